package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-insight/cmd/insight/consulting"
	"brand-insight/cmd/insight/provider"
	"brand-insight/cmd/insight/quota"
	"brand-insight/cmd/insight/trendbus"
	"brand-insight/cmd/internal/trace"
	"brand-insight/models"
)

type fakeInvoker struct {
	mu        sync.Mutex
	supported map[provider.Capability]string
	calls     int
	requests  []provider.Request
	invoke    func(ctx context.Context, attempt int) (provider.Result, error)
}

func (f *fakeInvoker) Supports(c provider.Capability, name string) bool {
	return f.supported[c] == name
}

func (f *fakeInvoker) Invoke(ctx context.Context, c provider.Capability, name string, req provider.Request) (provider.Result, error) {
	f.mu.Lock()
	f.calls++
	attempt := f.calls
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.invoke(ctx, attempt)
}

func okInvoker() *fakeInvoker {
	return &fakeInvoker{
		supported: map[provider.Capability]string{provider.TextInsight: "gemini", provider.ImageAnalysis: "vision"},
		invoke: func(context.Context, int) (provider.Result, error) {
			return provider.Result{"title": "성수 리포트", "content": "소금빵을 전면에"}, nil
		},
	}
}

type fakeReports struct {
	mu         sync.Mutex
	byID       map[string]models.InsightReport
	failInsert error
}

func newFakeReports() *fakeReports {
	return &fakeReports{byID: map[string]models.InsightReport{}}
}

func (f *fakeReports) Insert(ctx context.Context, r *models.InsightReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert != nil {
		return f.failInsert
	}
	f.byID[r.ID] = *r
	return nil
}

func (f *fakeReports) FindByID(ctx context.Context, id string) (*models.InsightReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeReports) ListByMemberAndProject(ctx context.Context, memberID string, projectID int64) ([]models.InsightReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.InsightReport
	for _, r := range f.byID {
		if r.MemberID == memberID && r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReports) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeSolutions struct {
	mu       sync.Mutex
	byReport map[string]models.Solution
}

func (f *fakeSolutions) UpsertByReportID(ctx context.Context, s *models.Solution) (*models.Solution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byReport == nil {
		f.byReport = map[string]models.Solution{}
	}
	if prev, ok := f.byReport[s.ReportID]; ok {
		s.CreatedAt = prev.CreatedAt
	}
	f.byReport[s.ReportID] = *s
	out := *s
	return &out, nil
}

type fakeDocs struct{ docs []models.StoreDocument }

func (f fakeDocs) FindByBrand(ctx context.Context, brandID int64) ([]models.StoreDocument, error) {
	return f.docs, nil
}

type chanAILogs struct{ ch chan models.AILog }

func (c chanAILogs) Insert(ctx context.Context, log models.AILog) error {
	c.ch <- log
	return nil
}

// countingLedger 는 원장 호출 횟수를 센다.
type countingLedger struct {
	quota.Ledger
	calls    atomic.Int32
	releases atomic.Int32
}

func (c *countingLedger) TryConsume(ctx context.Context, memberID string) (quota.Decision, error) {
	c.calls.Add(1)
	return c.Ledger.TryConsume(ctx, memberID)
}

func (c *countingLedger) Release(ctx context.Context, memberID string) error {
	c.calls.Add(1)
	c.releases.Add(1)
	return c.Ledger.Release(ctx, memberID)
}

type fixture struct {
	orch      *Orchestrator
	ledger    *countingLedger
	invoker   *fakeInvoker
	reports   *fakeReports
	solutions *fakeSolutions
	trends    *TrendTracker
}

func newFixture(t *testing.T, free int, opts Options) *fixture {
	t.Helper()
	ledger := &countingLedger{Ledger: quota.NewMemoryLedger()}
	if free > 0 {
		_, err := ledger.Grant(context.Background(), "m1", free)
		require.NoError(t, err)
	}
	f := &fixture{
		ledger:    ledger,
		invoker:   okInvoker(),
		reports:   newFakeReports(),
		solutions: &fakeSolutions{},
		trends:    NewTrendTracker(nil, 0),
	}
	f.orch = New(Deps{
		Ledger:    ledger,
		Providers: f.invoker,
		Assembler: consulting.NewAssembler(10, 200),
		Trends:    f.trends,
		Documents: fakeDocs{docs: []models.StoreDocument{{PlaceID: "p1", Rank: 1, Attributes: map[string]string{"name": "본점"}}}},
		Reports:   f.reports,
		Solutions: f.solutions,
	}, opts)
	return f
}

func insightRequest() InsightRequest {
	return InsightRequest{
		MemberID:  "m1",
		ProjectID: 11,
		BrandID:   7,
		Provider:  "gemini",
		Location:  consulting.LocationContext{Category: "bakery", BestPlaceID: "p1"},
	}
}

func freeCount(t *testing.T, f *fixture) int {
	t.Helper()
	n, err := f.orch.GetFreeReportCount(context.Background(), "m1")
	require.NoError(t, err)
	return n
}

func TestGenerateSolutionReportPersistsAndCharges(t *testing.T) {
	f := newFixture(t, 2, Options{})

	report, err := f.orch.GenerateSolutionReport(context.Background(), insightRequest(), "trace-1")
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "성수 리포트", report.Title)
	assert.Equal(t, "소금빵을 전면에", report.Content)
	assert.Equal(t, models.ReportTypeMarketing, report.ReportType)
	assert.Equal(t, int64(11), report.ProjectID)
	assert.Equal(t, 1, f.reports.count())
	assert.Equal(t, 1, freeCount(t, f))

	require.Len(t, f.invoker.requests, 1)
	sent := f.invoker.requests[0].Consulting
	require.NotNil(t, sent)
	assert.Equal(t, int64(7), sent.BrandID)
	assert.Nil(t, sent.Trend)
	assert.Contains(t, sent.Consulting, "우수 매장: 본점(p1)")
}

func TestAskAiInsightDoesNotPersist(t *testing.T) {
	f := newFixture(t, 1, Options{})

	res, err := f.orch.AskAiInsight(context.Background(), insightRequest(), "")
	require.NoError(t, err)

	assert.Equal(t, "gemini", res.Provider)
	assert.Equal(t, "성수 리포트", res.Result["title"])
	require.NotNil(t, res.FreeReportsRemaining)
	assert.Equal(t, 0, *res.FreeReportsRemaining)
	assert.Equal(t, 0, f.reports.count())
}

func TestConcurrentGenerationHonorsQuota(t *testing.T) {
	const free, callers = 3, 12
	f := newFixture(t, free, Options{})

	var wg sync.WaitGroup
	var ok, exhausted atomic.Int32
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.orch.GenerateSolutionReport(context.Background(), insightRequest(), "")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, quota.ErrQuotaExhausted):
				exhausted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(free), ok.Load())
	assert.Equal(t, int32(callers-free), exhausted.Load())
	assert.Equal(t, free, f.reports.count())
	assert.Equal(t, 0, freeCount(t, f))
}

func TestProviderFailureReleasesQuota(t *testing.T) {
	for _, failure := range []error{
		provider.Unavailable("timeout"),
		provider.Rejected("policy"),
	} {
		f := newFixture(t, 1, Options{})
		f.invoker.invoke = func(context.Context, int) (provider.Result, error) { return nil, failure }

		_, err := f.orch.GenerateSolutionReport(context.Background(), insightRequest(), "")
		require.Error(t, err)
		assert.ErrorIs(t, err, failure)

		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageContextAssembled, stageErr.Stage)
		assert.Equal(t, 1, freeCount(t, f))
		assert.Equal(t, int32(1), f.ledger.releases.Load())
		assert.Equal(t, 0, f.reports.count())
	}
}

func TestCancelledCallerStillReleases(t *testing.T) {
	f := newFixture(t, 1, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	f.invoker.invoke = func(context.Context, int) (provider.Result, error) {
		cancel()
		return nil, provider.Unavailable("context canceled")
	}

	_, err := f.orch.AskAiInsight(ctx, insightRequest(), "")
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
	assert.Equal(t, 1, freeCount(t, f))
}

func TestPersistenceFailureCarriesDraftAndReleases(t *testing.T) {
	f := newFixture(t, 1, Options{})
	f.reports.failInsert = errors.New("mongo down")

	_, err := f.orch.GenerateSolutionReport(context.Background(), insightRequest(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.Equal(t, "report_not_saved", ErrorCode(err))

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	require.NotNil(t, perr.Report)
	assert.Equal(t, "성수 리포트", perr.Report.Title)
	assert.Equal(t, 1, freeCount(t, f))

	// 저장만 다시 시도한다. 공급자는 다시 호출되지 않는다.
	f.reports.failInsert = nil
	saved, err := f.orch.SaveDraft(context.Background(), perr.Report, "")
	require.NoError(t, err)
	assert.Equal(t, perr.Report.ID, saved.ID)
	assert.Equal(t, 0, freeCount(t, f))
	assert.Equal(t, 1, f.invoker.calls)

	// 같은 초안을 다시 보내도 추가 차감은 없다.
	_, err = f.orch.SaveDraft(context.Background(), perr.Report, "")
	require.NoError(t, err)
	assert.Equal(t, 0, freeCount(t, f))
	assert.Equal(t, 1, f.reports.count())
}

func TestSaveDraftStoresOnlyHeldDraft(t *testing.T) {
	f := newFixture(t, 2, Options{})
	f.reports.failInsert = errors.New("mongo down")

	_, err := f.orch.GenerateSolutionReport(context.Background(), insightRequest(), "")
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	f.reports.failInsert = nil

	// 보관하지 않은 id 는 저장하지 않고 차감도 없다.
	forged := &models.InsightReport{ID: "made-up", MemberID: "m1", Title: "임의 본문", Content: "광고"}
	_, err = f.orch.SaveDraft(context.Background(), forged, "")
	assert.ErrorIs(t, err, ErrReportNotFound)
	assert.Equal(t, 2, freeCount(t, f))

	// 다른 회원은 남의 초안을 저장할 수 없다.
	_, err = f.orch.SaveDraft(context.Background(), &models.InsightReport{ID: perr.Report.ID, MemberID: "m2"}, "")
	assert.ErrorIs(t, err, ErrReportNotFound)

	// 본문을 바꿔 보내도 보관된 초안 내용이 저장된다.
	tampered := *perr.Report
	tampered.Content = "바뀐 내용"
	saved, err := f.orch.SaveDraft(context.Background(), &tampered, "")
	require.NoError(t, err)
	assert.Equal(t, "소금빵을 전면에", saved.Content)
	stored, err := f.reports.FindByID(context.Background(), perr.Report.ID)
	require.NoError(t, err)
	assert.Equal(t, "소금빵을 전면에", stored.Content)
	assert.Equal(t, 1, freeCount(t, f))
}

func TestSaveDraftExpires(t *testing.T) {
	f := newFixture(t, 1, Options{DraftTTL: time.Hour})
	clock := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	f.orch.now = func() time.Time { return clock }
	f.reports.failInsert = errors.New("mongo down")

	_, err := f.orch.GenerateSolutionReport(context.Background(), insightRequest(), "")
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	f.reports.failInsert = nil

	clock = clock.Add(2 * time.Hour)
	_, err = f.orch.SaveDraft(context.Background(), perr.Report, "")
	assert.ErrorIs(t, err, ErrReportNotFound)
	assert.Equal(t, 0, f.reports.count())
}

func TestQuotaExhaustedSkipsProvider(t *testing.T) {
	f := newFixture(t, 0, Options{})

	_, err := f.orch.GenerateSolutionReport(context.Background(), insightRequest(), "")
	assert.ErrorIs(t, err, quota.ErrQuotaExhausted)
	assert.Equal(t, "quota_exhausted", ErrorCode(err))
	assert.Equal(t, 0, f.invoker.calls)
	assert.Equal(t, int32(0), f.ledger.releases.Load())
}

func TestUnsupportedProviderDoesNotTouchLedger(t *testing.T) {
	f := newFixture(t, 1, Options{})
	req := insightRequest()
	req.Provider = "vendorX"

	_, err := f.orch.AskAiInsight(context.Background(), req, "")
	assert.ErrorIs(t, err, provider.ErrUnsupportedProvider)

	_, err = f.orch.AnalyzeImage(context.Background(), ImageRequest{MemberID: "m1", BrandID: 7, Provider: "vendorX", Image: []byte{1}}, "")
	assert.ErrorIs(t, err, provider.ErrUnsupportedProvider)
	assert.Equal(t, "unsupported_provider", ErrorCode(err))

	assert.Equal(t, int32(0), f.ledger.calls.Load())
	assert.Equal(t, 0, f.invoker.calls)
}

func TestAnalyzeImageMetering(t *testing.T) {
	unmetered := newFixture(t, 1, Options{})
	res, err := unmetered.orch.AnalyzeImage(context.Background(), ImageRequest{MemberID: "m1", BrandID: 7, Provider: "vision", Image: []byte{1, 2}}, "")
	require.NoError(t, err)
	assert.Nil(t, res.FreeReportsRemaining)
	assert.Equal(t, 1, freeCount(t, unmetered))

	metered := newFixture(t, 1, Options{MeterImageAnalysis: true})
	res, err = metered.orch.AnalyzeImage(context.Background(), ImageRequest{MemberID: "m1", BrandID: 7, Provider: "vision", Image: []byte{1, 2}}, "")
	require.NoError(t, err)
	require.NotNil(t, res.FreeReportsRemaining)
	assert.Equal(t, 0, freeCount(t, metered))

	refund := newFixture(t, 1, Options{MeterImageAnalysis: true})
	refund.invoker.invoke = func(context.Context, int) (provider.Result, error) { return nil, provider.Rejected("nsfw") }
	_, err = refund.orch.AnalyzeImage(context.Background(), ImageRequest{MemberID: "m1", BrandID: 7, Provider: "vision", Image: []byte{1, 2}}, "")
	assert.ErrorIs(t, err, provider.ErrProviderRejected)
	assert.Equal(t, 1, freeCount(t, refund))
}

func TestRetryOnlyOnUnavailable(t *testing.T) {
	f := newFixture(t, 1, Options{MaxRetries: 2, Backoff: time.Millisecond})
	f.invoker.invoke = func(_ context.Context, attempt int) (provider.Result, error) {
		if attempt < 3 {
			return nil, provider.Unavailable("503")
		}
		return provider.Result{"text": "ok"}, nil
	}

	res, err := f.orch.AskAiInsight(context.Background(), insightRequest(), "")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Result["text"])
	assert.Equal(t, 3, f.invoker.calls)

	g := newFixture(t, 1, Options{MaxRetries: 2, Backoff: time.Millisecond})
	g.invoker.invoke = func(context.Context, int) (provider.Result, error) { return nil, provider.Rejected("bad") }
	_, err = g.orch.AskAiInsight(context.Background(), insightRequest(), "")
	assert.ErrorIs(t, err, provider.ErrProviderRejected)
	assert.Equal(t, 1, g.invoker.calls)
}

func TestSaveReportAsSolutionIsIdempotent(t *testing.T) {
	f := newFixture(t, 1, Options{})
	report, err := f.orch.GenerateSolutionReport(context.Background(), insightRequest(), "")
	require.NoError(t, err)

	req := SaveSolutionRequest{ReportID: report.ID, MemberID: "m1", Title: "최종", Content: "확정본", ReportType: models.ReportTypeImprovement}
	first, err := f.orch.SaveReportAsSolution(context.Background(), req, "")
	require.NoError(t, err)
	_, err = f.orch.SaveReportAsSolution(context.Background(), req, "")
	require.NoError(t, err)

	assert.Len(t, f.solutions.byReport, 1)
	assert.Equal(t, "최종", first.Title)
	assert.Equal(t, models.ReportTypeImprovement, first.ReportType)
	assert.Equal(t, int64(11), first.ProjectID)
	assert.Equal(t, 0, freeCount(t, f))

	_, err = f.orch.SaveReportAsSolution(context.Background(), SaveSolutionRequest{ReportID: report.ID, MemberID: "intruder"}, "")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestLatestTrendFromBusIsUsed(t *testing.T) {
	f := newFixture(t, 2, Options{})
	bus := trendbus.New()
	require.NoError(t, f.orch.Attach(bus))

	s1 := &models.TrendSnapshot{BrandID: 7, CollectedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC), Payload: map[string]any{"keywords": []any{"베이글"}}}
	s2 := &models.TrendSnapshot{BrandID: 7, CollectedAt: time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC), Payload: map[string]any{"keywords": []any{"소금빵"}}}
	require.NoError(t, bus.Publish(7, s1))
	require.NoError(t, bus.Publish(7, s2))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Close(ctx))

	_, err := f.orch.AskAiInsight(context.Background(), insightRequest(), "")
	require.NoError(t, err)

	sent := f.invoker.requests[0].Consulting
	require.NotNil(t, sent.Trend)
	assert.Equal(t, s2.CollectedAt, sent.Trend.CollectedAt)
	assert.Contains(t, sent.Consulting, "트렌드 키워드: 소금빵")
}

func TestAILogRecordedAfterCommit(t *testing.T) {
	f := newFixture(t, 1, Options{})
	logs := chanAILogs{ch: make(chan models.AILog, 1)}
	f.orch.aiLogs = logs

	report, err := f.orch.GenerateSolutionReport(trace.Ensure(context.Background(), "trace-log"), insightRequest(), "trace-log")
	require.NoError(t, err)

	select {
	case entry := <-logs.ch:
		assert.Equal(t, "trace-log", entry.RequestID)
		assert.Equal(t, report.ID, entry.ReportID)
		assert.Equal(t, "text_insight", entry.Capability)
	case <-time.After(2 * time.Second):
		t.Fatal("ai log not recorded")
	}
}

func TestInvalidRequests(t *testing.T) {
	f := newFixture(t, 1, Options{})

	req := insightRequest()
	req.MemberID = ""
	_, err := f.orch.GenerateSolutionReport(context.Background(), req, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	req = insightRequest()
	req.ReportType = "weekly"
	_, err = f.orch.GenerateSolutionReport(context.Background(), req, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, int32(0), f.ledger.calls.Load())
}

func TestGetAndListReports(t *testing.T) {
	f := newFixture(t, 2, Options{})
	report, err := f.orch.GenerateSolutionReport(context.Background(), insightRequest(), "")
	require.NoError(t, err)

	got, err := f.orch.GetReport(context.Background(), report.ID, "m1")
	require.NoError(t, err)
	assert.Equal(t, report.ID, got.ID)

	_, err = f.orch.GetReport(context.Background(), report.ID, "m2")
	assert.ErrorIs(t, err, ErrReportNotFound)

	list, err := f.orch.ListReports(context.Background(), "m1", 11)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
