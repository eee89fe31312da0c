package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"brand-insight/cmd/insight/consulting"
	"brand-insight/cmd/insight/provider"
	"brand-insight/cmd/insight/quota"
	"brand-insight/cmd/insight/trendbus"
	"brand-insight/cmd/internal/logger"
	"brand-insight/cmd/internal/trace"
	"brand-insight/models"
)

// Invoker 는 provider.Registry 가 구현한다.
type Invoker interface {
	Supports(capability provider.Capability, name string) bool
	Invoke(ctx context.Context, capability provider.Capability, name string, req provider.Request) (provider.Result, error)
}

// ReportStore 의 FindByID 는 문서가 없으면 (nil, nil) 을 돌려준다.
type ReportStore interface {
	Insert(ctx context.Context, report *models.InsightReport) error
	FindByID(ctx context.Context, id string) (*models.InsightReport, error)
	ListByMemberAndProject(ctx context.Context, memberID string, projectID int64) ([]models.InsightReport, error)
}

// SolutionStore 는 report_id 기준 upsert 로 같은 리포트를 여러 번 저장해도 하나만 남긴다.
type SolutionStore interface {
	UpsertByReportID(ctx context.Context, s *models.Solution) (*models.Solution, error)
}

type StoreDocumentSource interface {
	FindByBrand(ctx context.Context, brandID int64) ([]models.StoreDocument, error)
}

type AILogStore interface {
	Insert(ctx context.Context, log models.AILog) error
}

// Subscriber 는 trendbus.Bus 가 구현한다.
type Subscriber interface {
	Subscribe(id string, h trendbus.Handler) error
}

// Recorder 는 메트릭 수집 지점이다. nil 이면 아무것도 기록하지 않는다.
type Recorder interface {
	QuotaDecision(outcome string)
	PipelineFinished(operation, outcome string, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) QuotaDecision(string) {}

func (noopRecorder) PipelineFinished(string, string, time.Duration) {}

const LatestTrendSubscriberID = "orchestrator.latest-trend"

type Options struct {
	// MaxRetries 는 ProviderUnavailable 에 대한 추가 시도 횟수다. 0 이면 재시도하지 않는다.
	MaxRetries int
	Backoff    time.Duration
	// MeterImageAnalysis 가 true 면 이미지 분석도 무료 리포트를 차감한다.
	MeterImageAnalysis bool
	// ReleaseTimeout 은 호출자 컨텍스트가 취소된 뒤에도 보상 release 에 쓰는 시간이다.
	ReleaseTimeout time.Duration
	AILogTimeout   time.Duration
	// DraftTTL 은 저장에 실패한 초안을 SaveDraft 용으로 보관하는 시간이다.
	DraftTTL time.Duration
}

type Deps struct {
	Ledger    quota.Ledger
	Providers Invoker
	Assembler *consulting.Assembler
	Trends    *TrendTracker
	Documents StoreDocumentSource
	Reports   ReportStore
	Solutions SolutionStore
	AILogs    AILogStore
	Recorder  Recorder
}

type Orchestrator struct {
	ledger    quota.Ledger
	providers Invoker
	assembler *consulting.Assembler
	trends    *TrendTracker
	documents StoreDocumentSource
	reports   ReportStore
	solutions SolutionStore
	aiLogs    AILogStore
	recorder  Recorder
	opts      Options
	drafts    *draftStore

	now   func() time.Time
	newID func() string
}

func New(d Deps, opts Options) *Orchestrator {
	if d.Assembler == nil {
		d.Assembler = consulting.NewAssembler(0, 0)
	}
	if d.Trends == nil {
		d.Trends = NewTrendTracker(nil, 0)
	}
	if d.Recorder == nil {
		d.Recorder = noopRecorder{}
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.ReleaseTimeout <= 0 {
		opts.ReleaseTimeout = 5 * time.Second
	}
	if opts.AILogTimeout <= 0 {
		opts.AILogTimeout = 5 * time.Second
	}
	if opts.DraftTTL <= 0 {
		opts.DraftTTL = 24 * time.Hour
	}
	o := &Orchestrator{
		ledger:    d.Ledger,
		providers: d.Providers,
		assembler: d.Assembler,
		trends:    d.Trends,
		documents: d.Documents,
		reports:   d.Reports,
		solutions: d.Solutions,
		aiLogs:    d.AILogs,
		recorder:  d.Recorder,
		opts:      opts,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	o.drafts = newDraftStore(opts.DraftTTL, func() time.Time { return o.now() })
	return o
}

// Attach 는 최신 트렌드 추적기를 트렌드 버스 구독자로 등록한다.
func (o *Orchestrator) Attach(bus Subscriber) error {
	return bus.Subscribe(LatestTrendSubscriberID, o.trends.HandleTrendUpdate)
}

// InsightRequest 는 텍스트 인사이트 요청이다. Documents 가 nil 이면 브랜드의 매장 문서를 저장소에서 읽는다.
type InsightRequest struct {
	MemberID   string
	ProjectID  int64
	BrandID    int64
	Provider   string
	ReportType models.ReportType
	Question   string
	Location   consulting.LocationContext
	Documents  []models.StoreDocument
}

func (r InsightRequest) validate() error {
	if strings.TrimSpace(r.MemberID) == "" {
		return invalid("member_id is required")
	}
	if r.BrandID <= 0 {
		return invalid("brand_id must be positive")
	}
	if r.Provider == "" {
		return invalid("provider is required")
	}
	if _, err := models.ParseReportType(string(r.ReportType)); err != nil {
		return invalid("%v", err)
	}
	return nil
}

type ImageRequest struct {
	MemberID string
	BrandID  int64
	Provider string
	Image    []byte
	MimeType string
}

type SaveSolutionRequest struct {
	ReportID   string
	MemberID   string
	Title      string
	Content    string
	ReportType models.ReportType
}

// InsightResult 는 저장하지 않는 공급자 결과다.
type InsightResult struct {
	Provider             string          `json:"provider"`
	Result               provider.Result `json:"result"`
	FreeReportsRemaining *int            `json:"free_reports_remaining,omitempty"`
	TrendSnapshotID      string          `json:"trend_snapshot_id,omitempty"`
}

// AskAiInsight 는 한도를 차감하고 공급자 결과를 그대로 돌려준다. 리포트는 저장하지 않는다.
func (o *Orchestrator) AskAiInsight(ctx context.Context, req InsightRequest, traceID string) (*InsightResult, error) {
	g, err := o.generate(ctx, "ask_ai_insight", req, traceID, false)
	if err != nil {
		return nil, err
	}
	return g.insightResult(req.Provider), nil
}

// GenerateSolutionReport 는 AskAiInsight 와 같은 파이프라인 뒤에 리포트 초안을 저장한다.
func (o *Orchestrator) GenerateSolutionReport(ctx context.Context, req InsightRequest, traceID string) (*models.InsightReport, error) {
	g, err := o.generate(ctx, "generate_solution_report", req, traceID, true)
	if err != nil {
		return nil, err
	}
	return g.report, nil
}

type generation struct {
	result    provider.Result
	report    *models.InsightReport
	remaining int
	trendID   string
}

func (g *generation) insightResult(providerName string) *InsightResult {
	remaining := g.remaining
	return &InsightResult{
		Provider:             providerName,
		Result:               g.result,
		FreeReportsRemaining: &remaining,
		TrendSnapshotID:      g.trendID,
	}
}

// generate 는 quota → context → provider → (persist) → commit 순서로 진행한다.
// 차감 이후 저장 전까지의 모든 실패는 에러를 돌려주기 전에 release 로 되돌린다.
func (o *Orchestrator) generate(ctx context.Context, operation string, req InsightRequest, traceID string, persist bool) (g *generation, err error) {
	ctx = trace.Ensure(ctx, traceID)
	r := newRun(ctx, operation, req.MemberID)
	defer func() {
		o.recorder.PipelineFinished(operation, ErrorCode(err), time.Since(r.started))
	}()

	if err := req.validate(); err != nil {
		return nil, r.fail(err)
	}
	if req.ReportType == "" {
		req.ReportType = models.ReportTypeMarketing
	}
	// 등록되지 않은 공급자는 원장을 건드리기 전에 거절한다.
	if !o.providers.Supports(provider.TextInsight, req.Provider) {
		return nil, r.fail(fmt.Errorf("%w: %s/%s", provider.ErrUnsupportedProvider, provider.TextInsight, req.Provider))
	}

	remaining, err := o.consume(ctx, req.MemberID)
	if err != nil {
		return nil, r.fail(err)
	}
	r.advance(StageQuotaChecked)

	persisted := false
	defer func() {
		if err != nil && !persisted {
			o.release(ctx, req.MemberID)
		}
	}()

	payload, trendID, err := o.assemble(ctx, req)
	if err != nil {
		return nil, r.fail(err)
	}
	r.advance(StageContextAssembled)

	callStarted := o.now()
	result, err := o.invoke(ctx, provider.TextInsight, req.Provider, provider.Request{
		BrandID:    req.BrandID,
		Consulting: payload,
	})
	if err != nil {
		return nil, r.fail(err)
	}
	r.advance(StageProviderInvoked)

	g = &generation{result: result, remaining: remaining, trendID: trendID}
	if persist {
		report := o.buildReport(req, result)
		if err := o.reports.Insert(ctx, report); err != nil {
			o.drafts.hold(report)
			return nil, r.fail(&PersistenceError{Report: report, Err: err})
		}
		persisted = true
		g.report = report
		r.advance(StageReportPersisted)
	}
	r.advance(StageCommitted)

	reportID := ""
	if g.report != nil {
		reportID = g.report.ID
	}
	o.recordAILog(ctx, models.AILog{
		MemberID:    req.MemberID,
		BrandID:     req.BrandID,
		Capability:  string(provider.TextInsight),
		Provider:    req.Provider,
		ReportID:    reportID,
		RequestedAt: callStarted,
	})
	return g, nil
}

func (o *Orchestrator) assemble(ctx context.Context, req InsightRequest) (*consulting.Payload, string, error) {
	docs := req.Documents
	if docs == nil && o.documents != nil {
		found, err := o.documents.FindByBrand(ctx, req.BrandID)
		if err != nil {
			return nil, "", fmt.Errorf("load store documents: %w", err)
		}
		docs = found
	}

	// 트렌드는 있으면 쓰고 없거나 조회에 실패해도 진행한다.
	latest, err := o.trends.Latest(ctx, req.BrandID)
	if err != nil {
		logger.WarnWithFields("latest trend lookup failed", logger.TraceFields(ctx).With(logger.Fields{
			"brand_id": req.BrandID,
			"error":    err.Error(),
		}))
		latest = nil
	}

	payload := o.assembler.Assemble(req.Location, docs, latest)
	payload.BrandID = req.BrandID
	payload.Question = req.Question

	trendID := ""
	if payload.Trend != nil {
		trendID = payload.Trend.SnapshotID
	}
	return &payload, trendID, nil
}

func (o *Orchestrator) consume(ctx context.Context, memberID string) (int, error) {
	d, err := o.ledger.TryConsume(ctx, memberID)
	if err != nil {
		o.recorder.QuotaDecision("error")
		if errors.Is(err, quota.ErrInvalidMember) {
			return 0, invalid("%v", err)
		}
		return 0, fmt.Errorf("quota consume: %w", err)
	}
	if !d.Granted {
		o.recorder.QuotaDecision("exhausted")
		return 0, quota.ErrQuotaExhausted
	}
	o.recorder.QuotaDecision("granted")
	return d.Remaining, nil
}

// release 는 호출자 컨텍스트가 취소됐어도 시도한다. 실패는 로그만 남기고 원래 에러를 가리지 않는다.
func (o *Orchestrator) release(ctx context.Context, memberID string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.ReleaseTimeout)
	defer cancel()

	fields := logger.TraceFields(ctx).With(logger.Fields{"member_id": memberID})
	if err := o.ledger.Release(rctx, memberID); err != nil {
		o.recorder.QuotaDecision("release_failed")
		logger.ErrorWithFields("quota release failed", fields.With(logger.Fields{"error": err.Error()}))
		return
	}
	o.recorder.QuotaDecision("released")
	logger.InfoWithFields("quota released", fields)
}

// invoke 는 ProviderUnavailable 에 한해 설정된 횟수만큼 (attempt^2 * backoff) 간격으로 다시 시도한다.
func (o *Orchestrator) invoke(ctx context.Context, capability provider.Capability, name string, req provider.Request) (provider.Result, error) {
	for attempt := 0; ; attempt++ {
		res, err := o.providers.Invoke(ctx, capability, name, req)
		if err == nil || !errors.Is(err, provider.ErrProviderUnavailable) || attempt >= o.opts.MaxRetries {
			return res, err
		}

		backoff := o.opts.Backoff * time.Duration((attempt+1)*(attempt+1))
		logger.WarnWithFields("provider unavailable, retrying", logger.TraceFields(ctx).With(logger.Fields{
			"provider": name,
			"attempt":  attempt + 1,
			"backoff":  backoff.String(),
			"error":    err.Error(),
		}))
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(backoff):
		}
	}
}

func (o *Orchestrator) buildReport(req InsightRequest, result provider.Result) *models.InsightReport {
	title, _ := result["title"].(string)
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("브랜드 %d %s 리포트", req.BrandID, reportTypeLabel(req.ReportType))
	}
	return &models.InsightReport{
		ID:         o.newID(),
		MemberID:   req.MemberID,
		ProjectID:  req.ProjectID,
		BrandID:    req.BrandID,
		Title:      title,
		Content:    reportContent(result),
		ReportType: req.ReportType,
		Provider:   req.Provider,
		CreatedAt:  o.now(),
	}
}

func reportTypeLabel(t models.ReportType) string {
	if t == models.ReportTypeImprovement {
		return "개선"
	}
	return "마케팅"
}

// reportContent 는 content, text 순으로 찾고 둘 다 없으면 결과 전체를 JSON 으로 남긴다.
func reportContent(result provider.Result) string {
	for _, key := range []string{"content", "text"} {
		if s, ok := result[key].(string); ok && s != "" {
			return s
		}
	}
	b, err := json.Marshal(result)
	if err != nil {
		return ""
	}
	return string(b)
}

// recordAILog 는 커밋 이후에 비동기로 남긴다. 실패해도 결과에는 영향이 없다.
func (o *Orchestrator) recordAILog(ctx context.Context, entry models.AILog) {
	if o.aiLogs == nil {
		return
	}
	entry.RequestID = trace.RequestIDFromContext(ctx)
	entry.CompletedAt = o.now()
	entry.DurationMs = entry.CompletedAt.Sub(entry.RequestedAt).Milliseconds()

	logCtx := context.WithoutCancel(ctx)
	go func() {
		c, cancel := context.WithTimeout(logCtx, o.opts.AILogTimeout)
		defer cancel()
		if err := o.aiLogs.Insert(c, entry); err != nil {
			logger.WarnWithFields("ai log insert failed", logger.TraceFields(logCtx).With(logger.Fields{
				"member_id": entry.MemberID,
				"error":     err.Error(),
			}))
		}
	}()
}

// SaveReportAsSolution 은 한도를 차감하지 않는다. 같은 리포트로 여러 번 호출해도 Solution 은 하나다.
func (o *Orchestrator) SaveReportAsSolution(ctx context.Context, req SaveSolutionRequest, traceID string) (*models.Solution, error) {
	ctx = trace.Ensure(ctx, traceID)
	if req.ReportID == "" || strings.TrimSpace(req.MemberID) == "" {
		return nil, invalid("report_id and member_id are required")
	}
	if _, err := models.ParseReportType(string(req.ReportType)); err != nil {
		return nil, invalid("%v", err)
	}

	report, err := o.reports.FindByID(ctx, req.ReportID)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	if report == nil || report.MemberID != req.MemberID {
		return nil, ErrReportNotFound
	}

	now := o.now()
	s := &models.Solution{
		ReportID:   report.ID,
		MemberID:   report.MemberID,
		ProjectID:  report.ProjectID,
		Title:      firstNonEmpty(req.Title, report.Title),
		Content:    firstNonEmpty(req.Content, report.Content),
		ReportType: models.ReportType(firstNonEmpty(string(req.ReportType), string(report.ReportType))),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	saved, err := o.solutions.UpsertByReportID(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("save solution: %w", err)
	}
	logger.InfoWithFields("solution saved", logger.TraceFields(ctx).With(logger.Fields{
		"member_id": req.MemberID,
		"report_id": req.ReportID,
	}))
	return saved, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// SaveDraft 는 PersistenceFailure 로 돌려받은 초안을 공급자 재호출 없이 저장한다.
// report 에서는 ID 와 MemberID 만 쓰고, 저장하는 내용은 실패 시점에 보관한 초안이다.
// 보관된 초안이 없거나 만료됐으면 ErrReportNotFound.
// 이전 실패에서 차감이 되돌려졌으므로 다시 차감하고, 저장에 실패하면 또 되돌린다.
// 이미 저장된 초안이면 추가 차감 없이 그대로 돌려준다.
func (o *Orchestrator) SaveDraft(ctx context.Context, report *models.InsightReport, traceID string) (saved *models.InsightReport, err error) {
	ctx = trace.Ensure(ctx, traceID)
	if report == nil || report.ID == "" || strings.TrimSpace(report.MemberID) == "" {
		return nil, invalid("draft must carry id and member_id")
	}
	r := newRun(ctx, "save_draft", report.MemberID)
	defer func() {
		o.recorder.PipelineFinished("save_draft", ErrorCode(err), time.Since(r.started))
	}()

	existing, err := o.reports.FindByID(ctx, report.ID)
	if err != nil {
		return nil, r.fail(fmt.Errorf("load report: %w", err))
	}
	if existing != nil {
		if existing.MemberID != report.MemberID {
			return nil, r.fail(ErrReportNotFound)
		}
		r.advance(StageCommitted)
		return existing, nil
	}

	draft, ok := o.drafts.lookup(report.ID, report.MemberID)
	if !ok {
		return nil, r.fail(ErrReportNotFound)
	}

	if _, err := o.consume(ctx, draft.MemberID); err != nil {
		return nil, r.fail(err)
	}
	r.advance(StageQuotaChecked)

	if err := o.reports.Insert(ctx, draft); err != nil {
		o.release(ctx, draft.MemberID)
		o.drafts.hold(draft)
		return nil, r.fail(&PersistenceError{Report: draft, Err: err})
	}
	o.drafts.drop(draft.ID)
	r.advance(StageReportPersisted)
	r.advance(StageCommitted)
	return draft, nil
}

// AnalyzeImage 는 공급자 확인을 먼저 하므로 등록되지 않은 공급자는 원장을 건드리지 않는다.
// MeterImageAnalysis 가 켜져 있으면 텍스트 인사이트와 같은 차감/보상 규칙을 따른다.
func (o *Orchestrator) AnalyzeImage(ctx context.Context, req ImageRequest, traceID string) (res *InsightResult, err error) {
	ctx = trace.Ensure(ctx, traceID)
	r := newRun(ctx, "analyze_image", req.MemberID)
	defer func() {
		o.recorder.PipelineFinished("analyze_image", ErrorCode(err), time.Since(r.started))
	}()

	if req.BrandID <= 0 || req.Provider == "" || len(req.Image) == 0 {
		return nil, r.fail(invalid("brand_id, provider and image are required"))
	}
	if !o.providers.Supports(provider.ImageAnalysis, req.Provider) {
		return nil, r.fail(fmt.Errorf("%w: %s/%s", provider.ErrUnsupportedProvider, provider.ImageAnalysis, req.Provider))
	}

	var remaining *int
	if o.opts.MeterImageAnalysis {
		var n int
		n, err = o.consume(ctx, req.MemberID)
		if err != nil {
			return nil, r.fail(err)
		}
		remaining = &n
		r.advance(StageQuotaChecked)
		defer func() {
			if err != nil {
				o.release(ctx, req.MemberID)
			}
		}()
	}

	callStarted := o.now()
	result, err := o.invoke(ctx, provider.ImageAnalysis, req.Provider, provider.Request{
		BrandID:  req.BrandID,
		Image:    req.Image,
		MimeType: req.MimeType,
	})
	if err != nil {
		return nil, r.fail(err)
	}
	r.advance(StageProviderInvoked)
	r.advance(StageCommitted)

	o.recordAILog(ctx, models.AILog{
		MemberID:    req.MemberID,
		BrandID:     req.BrandID,
		Capability:  string(provider.ImageAnalysis),
		Provider:    req.Provider,
		RequestedAt: callStarted,
	})
	return &InsightResult{Provider: req.Provider, Result: result, FreeReportsRemaining: remaining}, nil
}

// GetFreeReportCount 는 원장의 읽기 전용 조회를 그대로 위임한다.
func (o *Orchestrator) GetFreeReportCount(ctx context.Context, memberID string) (int, error) {
	n, err := o.ledger.FreeReportCount(ctx, memberID)
	if errors.Is(err, quota.ErrInvalidMember) {
		return 0, invalid("%v", err)
	}
	return n, err
}

func (o *Orchestrator) GrantFreeReports(ctx context.Context, memberID string, n int) (int, error) {
	total, err := o.ledger.Grant(ctx, memberID, n)
	if err != nil {
		return 0, invalid("%v", err)
	}
	logger.InfoWithFields("free reports granted", logger.TraceFields(ctx).With(logger.Fields{
		"member_id": memberID,
		"granted":   n,
		"total":     total,
	}))
	return total, nil
}

// GetReport 는 다른 회원의 리포트를 찾지 못한 것으로 취급한다.
func (o *Orchestrator) GetReport(ctx context.Context, reportID, memberID string) (*models.InsightReport, error) {
	report, err := o.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil || report.MemberID != memberID {
		return nil, ErrReportNotFound
	}
	return report, nil
}

func (o *Orchestrator) ListReports(ctx context.Context, memberID string, projectID int64) ([]models.InsightReport, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, invalid("member_id is required")
	}
	return o.reports.ListByMemberAndProject(ctx, memberID, projectID)
}

// ErrorCode 는 에러를 호출자에게 노출하는 코드로 바꾼다.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPersistenceFailure):
		return ErrPersistenceFailure.Error()
	case errors.Is(err, quota.ErrQuotaExhausted):
		return quota.ErrQuotaExhausted.Error()
	case errors.Is(err, provider.ErrUnsupportedProvider):
		return provider.ErrUnsupportedProvider.Error()
	case errors.Is(err, provider.ErrProviderRejected):
		return provider.ErrProviderRejected.Error()
	case errors.Is(err, provider.ErrProviderUnavailable):
		return provider.ErrProviderUnavailable.Error()
	case errors.Is(err, ErrReportNotFound):
		return ErrReportNotFound.Error()
	case errors.Is(err, ErrInvalidRequest):
		return ErrInvalidRequest.Error()
	default:
		return "internal_error"
	}
}
