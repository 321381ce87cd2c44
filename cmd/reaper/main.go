package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pasarhemat/pasar-surplus.git/internal/config"
	kafkax "github.com/pasarhemat/pasar-surplus.git/internal/kafka"
	"github.com/pasarhemat/pasar-surplus.git/internal/market"
	"github.com/pasarhemat/pasar-surplus.git/internal/postgres"
	"github.com/pasarhemat/pasar-surplus.git/internal/reaper"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(ctx)

	repo := &market.Repo{DB: db}
	rp := &reaper.Reaper{
		Orders:         repo,
		Listings:       repo,
		Producer:       prod,
		Log:            log,
		ReapAfter:      cfg.ReapAfter,
		ListingHorizon: cfg.ListingHorizon,
		ServiceName:    cfg.ServiceName + "-reaper",
	}
	if err := rp.Start(cfg.ReaperOrderSpec, cfg.ReaperDailySpec); err != nil {
		log.Fatal("reaper start", zap.Error(err))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down reaper...")

	rp.Stop() // tunggu sweep yang sedang jalan
	prod.Close()
	cancel()
	prod.WaitClosed()
}
