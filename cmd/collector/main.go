package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brand-insight/cmd/collector/feeder"
	"brand-insight/cmd/collector/renderer"
	"brand-insight/cmd/internal/eventbus"
	"brand-insight/cmd/internal/httpclient"
	"brand-insight/cmd/internal/logger"
	"brand-insight/config"
	"brand-insight/db"
	"brand-insight/repositories"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// MongoDB 초기화
	if err := db.Init(ctx); err != nil {
		logger.ErrorWithFields("failed to initialize MongoDB", logger.Fields{"error": err.Error()})
		os.Exit(1)
	}
	defer db.Disconnect(context.Background())

	topic := eventbus.TrendTopic(cfg.Kafka)
	var publisher EventPublisher
	if brokers, ok := eventbus.LookupBrokers(); ok {
		if err := eventbus.EnsureTopics(brokers, topic, cfg.Kafka.Partitions); err != nil {
			logger.WarnWithFields("failed to ensure eventbus topics", logger.Fields{"error": err.Error()})
		}
		bus, err := eventbus.NewKafkaEventBus(brokers)
		if err != nil {
			logger.ErrorWithFields("failed to create event bus", logger.Fields{"error": err.Error()})
			os.Exit(1)
		}
		defer bus.Close()
		publisher = bus
	} else {
		logger.WarnWithFields("KAFKA_BOOTSTRAP_SERVERS not set, snapshots are stored without events", logger.Fields{})
	}

	httpClient := httpclient.New(httpclient.Config{Timeout: 30 * time.Second})
	var pages renderer.Fetcher = renderer.NewHTTPFetcher(httpClient)
	if cfg.Collector.RenderPages {
		pages = renderer.NewChromeRenderer(30 * time.Second)
	}

	svc := NewCollectorService(cfg.Collector, CollectorDeps{
		Feeds:     feeder.New(httpClient),
		Pages:     pages,
		Snapshots: repositories.NewTrendSnapshotRepository(db.Database()),
		Documents: repositories.NewStoreDocumentRepository(db.Database()),
		Publisher: publisher,
		Topic:     topic,
	})

	logger.InfoWithFields("starting collector", logger.Fields{
		"brands":   len(cfg.Collector.Brands),
		"interval": cfg.Collector.Interval.String(),
	})

	// 첫 실행은 즉시 1회 수행
	run := func() {
		if err := svc.RunOnce(ctx); err != nil {
			logger.ErrorWithFields("collector runOnce error", logger.Fields{"error": err.Error()})
		}
	}
	run()

	ticker := time.NewTicker(cfg.Collector.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.InfoWithFields("collector stopped", logger.Fields{})
			return
		case <-ticker.C:
			run()
		}
	}
}
