package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"brand-insight/cmd/internal/eventbus"
	"brand-insight/cmd/internal/logger"
	"brand-insight/config"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brokers := eventbus.GetBrokers()
	topics := eventbus.AllTopics(cfg.Kafka)
	for _, t := range topics {
		if err := eventbus.EnsureTopics(brokers, t, cfg.Kafka.Partitions); err != nil {
			logger.ErrorWithFields("failed to ensure eventbus topics", logger.Fields{"topic": t.Base(), "error": err.Error()})
		}
	}

	bus, err := eventbus.NewKafkaEventBus(brokers)
	if err != nil {
		logger.ErrorWithFields("failed to create event bus", logger.Fields{"error": err.Error()})
		os.Exit(1)
	}
	defer bus.Close()

	groupID := eventbus.GetGroupID() + "-retry-worker"

	logger.InfoWithFields("starting retry worker service with eventbus...", logger.Fields{"topics": len(topics)})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	for _, topic := range topics {
		wg.Add(1)
		go func() {
			defer wg.Done()
			topicGroupID := groupID + "-" + strings.ReplaceAll(topic.Base(), ".", "-")
			if err := bus.StartRetryReinjector(ctx, topicGroupID, topic); err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorWithFields("eventbus retry reinjector error", logger.Fields{"topic": topic.Base(), "error": err.Error()})
			}
		}()
	}

	<-sigChan
	logger.InfoWithFields("received shutdown signal, shutting down retry worker service...", logger.Fields{})

	cancel()
	wg.Wait()

	logger.InfoWithFields("retry worker service stopped", logger.Fields{})
}
