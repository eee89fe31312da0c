package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-insight/cmd/insight/consulting"
	"brand-insight/cmd/insight/handlers"
	"brand-insight/cmd/insight/metrics"
	"brand-insight/cmd/insight/orchestrator"
	"brand-insight/cmd/insight/provider"
	"brand-insight/cmd/insight/quota"
	"brand-insight/cmd/insight/trendbus"
	"brand-insight/config"
	"brand-insight/models"
)

type stubAdapter struct{}

func (stubAdapter) Name() string { return "stub" }
func (stubAdapter) Capability() provider.Capability { return provider.TextInsight }
func (stubAdapter) Invoke(ctx context.Context, req provider.Request) (provider.Result, error) {
	return provider.Result{"title": "가을 시즌 제안", "content": "소금빵 번들"}, nil
}

type memReports struct{ items map[string]*models.InsightReport }

func (m *memReports) Insert(ctx context.Context, r *models.InsightReport) error {
	m.items[r.ID] = r
	return nil
}

func (m *memReports) FindByID(ctx context.Context, id string) (*models.InsightReport, error) {
	return m.items[id], nil
}

func (m *memReports) ListByMemberAndProject(ctx context.Context, memberID string, projectID int64) ([]models.InsightReport, error) {
	var out []models.InsightReport
	for _, r := range m.items {
		if r.MemberID == memberID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type setup struct {
	engine *gin.Engine
	ledger quota.Ledger
}

func newSetup(t *testing.T, health func(context.Context) error) setup {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "test")

	providers := provider.NewRegistry(0)
	providers.OnInvoke(m.ObserveProvider)
	require.NoError(t, providers.Register(stubAdapter{}))

	ledger, err := quota.New(config.QuotaConfig{Backend: "memory"}, quota.Backends{})
	require.NoError(t, err)

	bus := trendbus.New()
	t.Cleanup(func() { _ = bus.Close(context.Background()) })

	orch := orchestrator.New(orchestrator.Deps{
		Ledger:    ledger,
		Providers: providers,
		Assembler: consulting.NewAssembler(0, 0),
		Reports:   &memReports{items: map[string]*models.InsightReport{}},
		Recorder:  m,
	}, orchestrator.Options{})
	require.NoError(t, orch.Attach(bus))

	engine := New(Deps{
		Insights:           orch,
		TrendBus:           bus,
		Health:             health,
		Metrics:            promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminToken:         "secret",
		DefaultFreeReports: 1,
	})
	return setup{engine: engine, ledger: ledger}
}

func do(h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	ok := newSetup(t, func(context.Context) error { return nil })
	assert.Equal(t, http.StatusOK, do(ok.engine, http.MethodGet, "/health", "", nil).Code)

	down := newSetup(t, func(context.Context) error { return errors.New("no primary") })
	assert.Equal(t, http.StatusServiceUnavailable, do(down.engine, http.MethodGet, "/health", "", nil).Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newSetup(t, nil)

	w := do(s.engine, http.MethodPost, "/api/v1/admin/quota/m1/grant", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(s.engine, http.MethodPost, "/api/v1/admin/quota/m1/grant", "", map[string]string{"X-Admin-Token": "secret"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(s.engine, http.MethodGet, "/api/v1/admin/trend-bus/stats", "", map[string]string{"X-Admin-Token": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), orchestrator.LatestTrendSubscriberID)
}

func TestGrantThenGenerateThenExhausted(t *testing.T) {
	s := newSetup(t, nil)
	member := map[string]string{handlers.HeaderMemberID: "m1"}
	body := `{"brand_id":7,"provider":"stub","question":"주말 매출"}`

	// 부여 전에는 0 이므로 402
	w := do(s.engine, http.MethodPost, "/api/v1/insights/reports", body, member)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	w = do(s.engine, http.MethodPost, "/api/v1/admin/quota/m1/grant", "", map[string]string{"X-Admin-Token": "secret"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(s.engine, http.MethodPost, "/api/v1/insights/reports", body, member)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "가을 시즌 제안")

	w = do(s.engine, http.MethodGet, "/api/v1/quota/free-reports", "", member)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"member_id":"m1","free_reports_remaining":0}`, w.Body.String())

	w = do(s.engine, http.MethodPost, "/api/v1/insights/reports", `{"brand_id":7,"provider":"nope"}`, member)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported_provider")

	w = do(s.engine, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "brand_insight_pipeline_runs_total")
}

func TestCORSPreflight(t *testing.T) {
	s := newSetup(t, nil)
	h := WithCORS(s.engine, []string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/insights/ask", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-Member-Id")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
