package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/restobill/internal/analytics"
	"github.com/ariefcatur/restobill/internal/config"
	kafkax "github.com/ariefcatur/restobill/internal/kafka"
	"github.com/ariefcatur/restobill/internal/logx"
	"github.com/ariefcatur/restobill/internal/orders"
	"github.com/ariefcatur/restobill/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-analytics"

	logger, err := logx.New(cfg.Log, service)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if len(cfg.KafkaBrokers) == 0 || cfg.RedisAddr == "" {
		logger.Fatal("analytics needs KAFKA_BROKERS and REDIS_ADDR")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		logger.Fatal("redis", zap.Error(err))
	}

	svc := &analytics.Service{
		Redis:       rdb,
		Log:         logger,
		Location:    cfg.Location(),
		ServiceName: service,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.AnalyticsGroup, orders.TopicOrderCompleted, cfg.AnalyticsWorkers, logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("analytics consumer started",
			zap.String("group", cfg.AnalyticsGroup),
			zap.String("topic", orders.TopicOrderCompleted),
			zap.Int("workers", cfg.AnalyticsWorkers))
		if err := cons.Start(ctx, svc.HandleOrderCompleted); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumer...")
	cancel()
	<-done
}
