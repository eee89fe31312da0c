package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"brand-insight/cmd/insight/consulting"
)

// Capability 는 공급자 어댑터 뒤에 있는 AI 기능의 종류다.
type Capability string

const (
	TextInsight   Capability = "text_insight"
	ImageAnalysis Capability = "image_analysis"
)

func (c Capability) Valid() bool {
	return c == TextInsight || c == ImageAnalysis
}

// Result 는 공급자 응답을 담는 느슨한 구조화 문서(JSON 트리)다.
type Result map[string]any

// Request 는 기능별 요청 본문이다.
// TextInsight 는 Consulting 을, ImageAnalysis 는 Image/MimeType 을 사용한다.
type Request struct {
	BrandID    int64
	Consulting *consulting.Payload
	Image      []byte
	MimeType   string
}

// Adapter 는 하나의 (기능, 공급자) 조합을 담당한다. Invoke 한 번에 외부 호출은 정확히 한 번이며
// 내부에서 재시도하지 않는다.
type Adapter interface {
	Name() string
	Capability() Capability
	Invoke(ctx context.Context, req Request) (Result, error)
}

// timeoutAware 를 구현한 어댑터는 레지스트리 기본값 대신 자신의 제한 시간을 쓴다.
type timeoutAware interface {
	Timeout() time.Duration
}

var (
	// ErrUnsupportedProvider 는 해당 기능에 등록되지 않은 공급자 이름이다. 설정 오류이며 재시도 불가.
	ErrUnsupportedProvider = errors.New("unsupported_provider")
	// ErrProviderUnavailable 은 네트워크 실패나 제한 시간 초과다. 백오프 후 재시도할 수 있다.
	ErrProviderUnavailable = errors.New("provider_unavailable")
	// ErrProviderRejected 는 공급자가 요청을 이해했지만 거절한 경우다. 재시도 불가.
	ErrProviderRejected = errors.New("provider_rejected")

	ErrDuplicateProvider = errors.New("duplicate provider registration")
)

// Rejected 는 ErrProviderRejected 로 감싼 에러를 만든다.
func Rejected(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProviderRejected, fmt.Sprintf(format, args...))
}

// Unavailable 은 ErrProviderUnavailable 로 감싼 에러를 만든다.
func Unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProviderUnavailable, fmt.Sprintf(format, args...))
}

// classifyStatus 는 공급자의 HTTP 상태 코드를 오류 분류로 바꾼다.
// 408/429/5xx 는 일시적 실패, 그 밖의 4xx 는 거절이다.
func classifyStatus(status int, detail string) error {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return Unavailable("status=%d %s", status, detail)
	case status >= 400:
		return Rejected("status=%d %s", status, detail)
	default:
		return Unavailable("unexpected status=%d %s", status, detail)
	}
}

// classify 는 어댑터가 돌려준 에러를 세 가지 분류 중 하나로 정규화한다.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrProviderRejected) || errors.Is(err, ErrProviderUnavailable) {
		return err
	}
	// 제한 시간 초과, 취소, 네트워크 오류, 그 밖의 알 수 없는 실패는 모두 일시적 실패로 본다.
	return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}
