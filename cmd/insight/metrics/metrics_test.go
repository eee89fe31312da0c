package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-insight/cmd/insight/provider"
	"brand-insight/cmd/insight/trendbus"
	"brand-insight/models"
)

func TestCountersByLabel(t *testing.T) {
	m := New(prometheus.NewRegistry(), "test")

	m.QuotaDecision("granted")
	m.QuotaDecision("granted")
	m.QuotaDecision("exhausted")
	m.PipelineFinished("generate_solution_report", "ok", 120*time.Millisecond)
	m.ObserveProvider(provider.TextInsight, "gemini", "provider_unavailable", time.Second)
	m.ObserveDelivery("orchestrator.latest-trend", trendbus.Event{}, nil)
	m.ObserveDelivery("orchestrator.latest-trend", trendbus.Event{}, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.quotaDecisions.WithLabelValues("granted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.quotaDecisions.WithLabelValues("exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pipelineRuns.WithLabelValues("generate_solution_report", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerCalls.WithLabelValues("text_insight", "gemini", "provider_unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.busDeliveries.WithLabelValues("orchestrator.latest-trend", "failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.pipelineDuration))
}

func TestTrendGaugeKeepsNewest(t *testing.T) {
	m := New(prometheus.NewRegistry(), "test")
	newer := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-24 * time.Hour)

	require.NoError(t, m.HandleTrendUpdate(context.Background(), trendbus.Event{BrandID: 7, Snapshot: &models.TrendSnapshot{CollectedAt: newer}}))
	require.NoError(t, m.HandleTrendUpdate(context.Background(), trendbus.Event{BrandID: 7, Snapshot: &models.TrendSnapshot{CollectedAt: older}}))
	require.NoError(t, m.HandleTrendUpdate(context.Background(), trendbus.Event{BrandID: 7}))

	assert.Equal(t, float64(newer.Unix()), testutil.ToFloat64(m.trendCollectedAt.WithLabelValues("7")))
}
