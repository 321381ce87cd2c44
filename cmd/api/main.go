package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pasarhemat/pasar-surplus.git/internal/config"
	"github.com/pasarhemat/pasar-surplus.git/internal/httpx"
	kafkax "github.com/pasarhemat/pasar-surplus.git/internal/kafka"
	"github.com/pasarhemat/pasar-surplus.git/internal/market"
	"github.com/pasarhemat/pasar-surplus.git/internal/postgres"
	"github.com/pasarhemat/pasar-surplus.git/internal/redisx"
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

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer (multi-topic)
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(ctx)

	// Store, ledger, service & handler
	repo := &market.Repo{DB: db}
	ledger := &market.Ledger{DB: db}
	svc := &market.Service{
		Store:       repo,
		Redis:       rdb,
		Producer:    prod,
		Log:         log,
		ServiceName: cfg.ServiceName,
	}
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Svc:      svc,
		Products: repo,
		Ledger:   ledger,
		Redis:    rdb,
		Log:      log,
		Dev:      cfg.DevMode,
	}
	oh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
