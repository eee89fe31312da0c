// @title           Brand Insight API
// @version         1.0
// @description     브랜드 인사이트 생성 및 트렌드 동기화 API
// @BasePath        /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"brand-insight/cmd/insight/consulting"
	"brand-insight/cmd/insight/metrics"
	"brand-insight/cmd/insight/orchestrator"
	"brand-insight/cmd/insight/provider"
	"brand-insight/cmd/insight/quota"
	"brand-insight/cmd/insight/router"
	"brand-insight/cmd/insight/trendbus"
	"brand-insight/cmd/insight/trendsync"
	"brand-insight/cmd/internal/eventbus"
	"brand-insight/cmd/internal/logger"
	"brand-insight/config"
	"brand-insight/db"
	"brand-insight/repositories"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB 초기화
	if err := db.Init(ctx); err != nil {
		logger.ErrorWithFields("failed to initialize MongoDB", logger.Fields{"error": err.Error()})
		os.Exit(1)
	}
	database := db.Database()

	trendRepo := repositories.NewTrendSnapshotRepository(database)

	ledger, redisClient, err := buildLedger(ctx, cfg, database)
	if err != nil {
		logger.ErrorWithFields("failed to initialize quota ledger", logger.Fields{"error": err.Error()})
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New(prometheus.DefaultRegisterer, "insight")

	reg, err := provider.BuildRegistry(ctx, cfg.Providers)
	if err != nil {
		logger.ErrorWithFields("failed to build provider registry", logger.Fields{"error": err.Error()})
		os.Exit(1)
	}
	reg.OnInvoke(m.ObserveProvider)
	logger.InfoWithFields("provider registry ready", logger.Fields{
		"text_insight":   reg.Providers(provider.TextInsight),
		"image_analysis": reg.Providers(provider.ImageAnalysis),
	})

	bus := trendbus.New()
	bus.OnDelivery(m.ObserveDelivery)

	orch := orchestrator.New(orchestrator.Deps{
		Ledger:    ledger,
		Providers: reg,
		Assembler: consulting.NewAssembler(cfg.Consulting.MaxDocuments, cfg.Consulting.MaxAttributeLength),
		Trends:    orchestrator.NewTrendTracker(trendRepo, cfg.TrendBus.CacheTTL),
		Documents: repositories.NewStoreDocumentRepository(database),
		Reports:   repositories.NewInsightReportRepository(database),
		Solutions: repositories.NewSolutionRepository(database),
		AILogs:    repositories.NewAILogRepository(database),
		Recorder:  m,
	}, orchestrator.Options{
		MaxRetries:         cfg.ProviderRetry.MaxRetries,
		Backoff:            cfg.ProviderRetry.Backoff,
		MeterImageAnalysis: cfg.ImageAnalysis.Metered,
	})
	if err := orch.Attach(bus); err != nil {
		logger.ErrorWithFields("failed to attach orchestrator to trend bus", logger.Fields{"error": err.Error()})
		os.Exit(1)
	}
	if err := bus.Subscribe(metrics.TrendFreshnessSubscriberID, m.HandleTrendUpdate); err != nil {
		logger.ErrorWithFields("failed to subscribe metrics to trend bus", logger.Fields{"error": err.Error()})
		os.Exit(1)
	}

	var wg sync.WaitGroup

	// Kafka 트렌드 이벤트 -> 트렌드 버스
	var kafkaBus *eventbus.KafkaEventBus
	if brokers, ok := eventbus.LookupBrokers(); ok {
		topic := eventbus.TrendTopic(cfg.Kafka)
		if err := eventbus.EnsureTopics(brokers, topic, cfg.Kafka.Partitions); err != nil {
			logger.WarnWithFields("failed to ensure eventbus topics", logger.Fields{"error": err.Error()})
		}
		kafkaBus, err = eventbus.NewKafkaEventBus(brokers)
		if err != nil {
			logger.ErrorWithFields("failed to create event bus", logger.Fields{"error": err.Error()})
			os.Exit(1)
		}
		bridge := trendsync.NewBridge(bus)
		groupID := eventbus.GetGroupID()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := kafkaBus.Subscribe(ctx, groupID, topic, bridge.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorWithFields("eventbus subscribe error", logger.Fields{"error": err.Error()})
			}
		}()
	} else {
		logger.WarnWithFields("KAFKA_BOOTSTRAP_SERVERS not set, trend events are not consumed", logger.Fields{})
	}

	handler := router.New(router.Deps{
		Insights:           orch,
		TrendBus:           bus,
		Health:             db.Ping,
		Metrics:            promhttp.Handler(),
		AdminToken:         cfg.HTTP.AdminToken,
		DefaultFreeReports: cfg.Quota.DefaultFreeReports,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router.WithCORS(handler, cfg.HTTP.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.InfoWithFields("starting insight service", logger.Fields{"addr": cfg.HTTP.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithFields("http server error", logger.Fields{"error": err.Error()})
			cancel()
		}
	}()

	// Graceful shutdown 설정
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}
	logger.InfoWithFields("received shutdown signal, shutting down insight service...", logger.Fields{})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WarnWithFields("http server shutdown error", logger.Fields{"error": err.Error()})
	}

	cancel()
	wg.Wait()
	if kafkaBus != nil {
		kafkaBus.Close()
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.TrendBus.DrainTimeout)
	defer drainCancel()
	if err := bus.Close(drainCtx); err != nil {
		logger.WarnWithFields("trend bus did not drain in time", logger.Fields{"error": err.Error()})
	}

	if err := db.Disconnect(shutdownCtx); err != nil {
		logger.WarnWithFields("mongo disconnect error", logger.Fields{"error": err.Error()})
	}
	logger.InfoWithFields("insight service stopped", logger.Fields{})
}

// buildLedger 는 quota.backend 에 필요한 저장소만 연결한다.
func buildLedger(ctx context.Context, cfg config.AppConfig, database *mongo.Database) (quota.Ledger, *redis.Client, error) {
	var backends quota.Backends
	var client *redis.Client

	switch cfg.Quota.Backend {
	case "mongo":
		backends.Mongo = repositories.NewQuotaRecordRepository(database)
	case "redis":
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		backends.Redis = client
	}

	ledger, err := quota.New(cfg.Quota, backends)
	if err != nil {
		if client != nil {
			client.Close()
		}
		return nil, nil, err
	}
	logger.InfoWithFields("quota ledger ready", logger.Fields{"backend": cfg.Quota.Backend, "database": database.Name()})
	return ledger, client, nil
}
