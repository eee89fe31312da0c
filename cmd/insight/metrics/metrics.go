package metrics

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"brand-insight/cmd/insight/provider"
	"brand-insight/cmd/insight/trendbus"
)

const TrendFreshnessSubscriberID = "metrics.trend-freshness"

// Metrics 는 인사이트 서비스의 Prometheus 계측값을 모은다.
type Metrics struct {
	quotaDecisions   *prometheus.CounterVec
	pipelineRuns     *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	busDeliveries    *prometheus.CounterVec
	trendCollectedAt *prometheus.GaugeVec

	mu     sync.Mutex
	latest map[int64]time.Time
}

// New 는 registerer 에 계측값을 등록한다. nil 이면 DefaultRegisterer 를 쓴다.
func New(registerer prometheus.Registerer, serviceName string) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		serviceName = "insight"
	}
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		quotaDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "brand_insight_quota_decisions_total",
			Help:        "Quota ledger decisions by outcome (granted, exhausted, released, release_failed, error).",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "brand_insight_pipeline_runs_total",
			Help:        "Orchestrator pipeline runs by operation and error code.",
			ConstLabels: constLabels,
		}, []string{"operation", "outcome"}),
		pipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "brand_insight_pipeline_duration_seconds",
			Help:        "Orchestrator pipeline latency including the provider call.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			ConstLabels: constLabels,
		}, []string{"operation"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "brand_insight_provider_calls_total",
			Help:        "Outbound AI provider calls by capability, provider and outcome.",
			ConstLabels: constLabels,
		}, []string{"capability", "provider", "outcome"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "brand_insight_provider_call_duration_seconds",
			Help:        "Outbound AI provider call latency.",
			Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			ConstLabels: constLabels,
		}, []string{"capability", "provider"}),
		busDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "brand_insight_trend_bus_deliveries_total",
			Help:        "Trend bus deliveries by subscriber and result.",
			ConstLabels: constLabels,
		}, []string{"subscriber", "result"}),
		trendCollectedAt: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "brand_insight_trend_latest_collected_timestamp_seconds",
			Help:        "collectedAt of the newest trend snapshot seen per brand.",
			ConstLabels: constLabels,
		}, []string{"brand_id"}),
		latest: make(map[int64]time.Time),
	}

	registerer.MustRegister(
		m.quotaDecisions,
		m.pipelineRuns,
		m.pipelineDuration,
		m.providerCalls,
		m.providerDuration,
		m.busDeliveries,
		m.trendCollectedAt,
	)
	return m
}

func (m *Metrics) QuotaDecision(outcome string) {
	m.quotaDecisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PipelineFinished(operation, outcome string, elapsed time.Duration) {
	m.pipelineRuns.WithLabelValues(operation, outcome).Inc()
	m.pipelineDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveProvider 는 provider.Registry.OnInvoke 에 연결한다.
func (m *Metrics) ObserveProvider(capability provider.Capability, name, outcome string, elapsed time.Duration) {
	m.providerCalls.WithLabelValues(string(capability), name, outcome).Inc()
	m.providerDuration.WithLabelValues(string(capability), name).Observe(elapsed.Seconds())
}

// ObserveDelivery 는 trendbus.Bus.OnDelivery 에 연결한다.
func (m *Metrics) ObserveDelivery(subscriber string, ev trendbus.Event, err error) {
	result := "delivered"
	if err != nil {
		result = "failed"
	}
	m.busDeliveries.WithLabelValues(subscriber, result).Inc()
}

// HandleTrendUpdate 는 트렌드 버스의 두 번째 구독자로 브랜드별 최신 수집 시각을 게이지에 남긴다.
// 늦게 도착한 예전 스냅샷은 게이지를 되돌리지 않는다.
func (m *Metrics) HandleTrendUpdate(ctx context.Context, ev trendbus.Event) error {
	if ev.Snapshot == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if seen, ok := m.latest[ev.BrandID]; ok && !ev.Snapshot.CollectedAt.After(seen) {
		return nil
	}
	m.latest[ev.BrandID] = ev.Snapshot.CollectedAt
	m.trendCollectedAt.WithLabelValues(strconv.FormatInt(ev.BrandID, 10)).Set(float64(ev.Snapshot.CollectedAt.Unix()))
	return nil
}
