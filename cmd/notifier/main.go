package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pasarhemat/pasar-surplus.git/internal/config"
	kafkax "github.com/pasarhemat/pasar-surplus.git/internal/kafka"
	"github.com/pasarhemat/pasar-surplus.git/internal/market"
	"github.com/pasarhemat/pasar-surplus.git/internal/notify"
	"github.com/pasarhemat/pasar-surplus.git/internal/redisx"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

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

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{Redis: rdb, Log: log}

	group := getenv("NOTIFIER_GROUP", "notifier-svc")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, market.TopicNotifyPickup, workers, log)

	go func() {
		log.Info("notifier consumer started",
			zap.String("group", group), zap.String("topic", market.TopicNotifyPickup), zap.Int("workers", workers))
		if err := cons.Start(ctx, svc.HandlePickupNotify); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down notifier...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
