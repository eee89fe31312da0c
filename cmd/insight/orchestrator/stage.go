package orchestrator

import (
	"context"
	"time"

	"brand-insight/cmd/internal/logger"
)

// Stage 는 요청 한 건의 상태 기계 단계다.
// Pending → QuotaChecked → ContextAssembled → ProviderInvoked → ReportPersisted → Committed,
// 종료되지 않은 어느 단계에서든 Failed 로 갈 수 있다.
type Stage string

const (
	StagePending          Stage = "pending"
	StageQuotaChecked     Stage = "quota_checked"
	StageContextAssembled Stage = "context_assembled"
	StageProviderInvoked  Stage = "provider_invoked"
	StageReportPersisted  Stage = "report_persisted"
	StageCommitted        Stage = "committed"
	StageFailed           Stage = "failed"
)

// run 은 요청 한 건의 진행 상태와 로그 필드를 들고 다닌다.
type run struct {
	ctx       context.Context
	operation string
	memberID  string
	stage     Stage
	started   time.Time
}

func newRun(ctx context.Context, operation, memberID string) *run {
	r := &run{ctx: ctx, operation: operation, memberID: memberID, stage: StagePending, started: time.Now()}
	r.log("pipeline started", nil)
	return r
}

func (r *run) advance(next Stage) {
	r.stage = next
	r.log("pipeline stage", nil)
}

// fail 은 현재 단계를 기록한 StageError 를 돌려준다.
func (r *run) fail(err error) error {
	failedAt := r.stage
	r.stage = StageFailed
	r.log("pipeline failed", logger.Fields{"failed_at": string(failedAt), "error": err.Error()})
	return &StageError{Stage: failedAt, Err: err}
}

func (r *run) log(msg string, extra logger.Fields) {
	fields := logger.TraceFields(r.ctx).With(logger.Fields{
		"operation": r.operation,
		"member_id": r.memberID,
		"stage":     string(r.stage),
	})
	if extra != nil {
		fields = fields.With(extra)
	}
	if r.stage == StageFailed {
		logger.WarnWithFields(msg, fields)
		return
	}
	logger.DebugWithFields(msg, fields)
}
