package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spacesedan/instalens/config"
	"github.com/spacesedan/instalens/internal/clients"
	"github.com/spacesedan/instalens/internal/clients/kafka_client"
	"github.com/spacesedan/instalens/internal/consumers"
	"github.com/spacesedan/instalens/internal/db"
	"github.com/spacesedan/instalens/internal/logging"
	"github.com/spacesedan/instalens/internal/monitoring"
	"github.com/spacesedan/instalens/internal/pipeline"
	"github.com/spacesedan/instalens/internal/sentiment"
)

func main() {
	config.LoadEnv(config.AppEnv())
	cfg := config.Load()
	logging.InitLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	valkeyClient, err := clients.NewValkeyClient(ctx, cfg.Valkey, cfg.Classifier.CacheTTL)
	if err != nil {
		slog.Error("[Main] Failed to connect to valkey", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer valkeyClient.Close()

	classifier, closeClassifier, err := sentiment.NewClassifier(cfg.Classifier, valkeyClient)
	if err != nil {
		slog.Error("[Main] Failed to initialize classifier", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeClassifier()

	annotator := sentiment.NewAnnotator(classifier,
		sentiment.WithConcurrency(cfg.Classifier.Concurrency),
		sentiment.WithAbortOnError(cfg.Classifier.AbortOnError))
	service := pipeline.NewService(annotator,
		pipeline.WithLocation(cfg.Location()),
		pipeline.WithDatasetCache(valkeyClient))

	awsCfg, err := clients.NewAWSConfig(ctx, cfg.AWS)
	if err != nil {
		slog.Error("[Main] Failed to load AWS config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	store := db.NewRecordStore(clients.NewDynamoDBClient(awsCfg, cfg.AWS), cfg.AWS.RecordTable)

	var producer *kafka_client.Producer
	for {
		producer, err = kafka_client.NewProducer(ctx, cfg.Kafka)
		if err == nil {
			break
		}
		slog.Warn("[Main] Kafka init failed, retrying...", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
	defer producer.Close()

	classifierHealthy := &atomic.Bool{}
	classifierHealthy.Store(true)
	backend := classifier
	if cached, ok := classifier.(*sentiment.CachedClassifier); ok {
		backend = cached.Unwrap()
	}
	if checker, ok := backend.(monitoring.HealthChecker); ok {
		go monitoring.MonitorClassifierHealth(ctx, checker, classifierHealthy, monitoring.HEALTHCHECK_INTERVAL)
	}

	reportConsumer := consumers.NewReportConsumer(service, producer, store, cfg.Kafka.ReportTopic)
	gate := func(h consumers.MessageHandler) consumers.MessageHandler {
		return consumers.WrapHandler(h).WithHealthCheck(classifierHealthy).Handler()
	}

	registry := kafka_client.NewConsumerRegistry()
	registry.Register(cfg.Kafka.RequestTopic, reportConsumer.Start(gate))

	if err := registry.Start(ctx, cfg.Kafka, cfg.Kafka.RequestTopic); err != nil {
		slog.Error("[Main] Failed to start consumer",
			slog.String("error", err.Error()))
	}
}
