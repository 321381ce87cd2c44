package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler harus return nil hanya jika proses sukses & boleh commit offset.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	log     *zap.Logger
	workers int
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, log: log, workers: workers}
}

func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	done := c.startWorkers(ctx, jobs, h, c.r.CommitMessages)

	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			close(jobs)
			<-done // tunggu in-flight selesai, error terkuras
			// kecilkan noise saat shutdown
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			close(jobs)
			<-done
			return nil
		}
	}
}

// startWorkers runs the pool plus a drainer that logs worker errors for
// the pool's whole lifetime. The returned channel closes only after every
// worker exited and the error channel is empty, so a worker whose handler
// fails mid-shutdown never blocks on an error send.
func (c *Consumer) startWorkers(ctx context.Context, jobs <-chan kafka.Message, h Handler,
	commit func(context.Context, ...kafka.Message) error) <-chan struct{} {

	errs := make(chan error, c.workers)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				if err := h(ctx, m); err != nil {
					errs <- err
					time.Sleep(200 * time.Millisecond) // backoff ringan
					continue
				}
				// commit on success
				if err := commit(ctx, m); err != nil {
					errs <- err
				}
			}
		}()
	}
	go func() { wg.Wait(); close(errs) }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range errs {
			c.log.Warn("worker error", zap.Error(e))
		}
	}()
	return done
}
