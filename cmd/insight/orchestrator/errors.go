package orchestrator

import (
	"errors"
	"fmt"

	"brand-insight/models"
)

var (
	// ErrPersistenceFailure 는 공급자 호출은 성공했지만 리포트를 저장하지 못한 경우다.
	// 호출자는 PersistenceError 의 초안으로 저장만 다시 시도할 수 있다.
	ErrPersistenceFailure = errors.New("report_not_saved")
	ErrReportNotFound     = errors.New("report_not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
)

// StageError 는 요청이 어느 단계에서 실패했는지 기록한다.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// PersistenceError 는 저장되지 못한 리포트 초안을 들고 있다.
type PersistenceError struct {
	Report *models.InsightReport
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%v: report %s: %v", ErrPersistenceFailure, e.Report.ID, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistenceFailure, e.Err}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
