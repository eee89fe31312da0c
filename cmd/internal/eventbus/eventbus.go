package eventbus

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrMaxRetryExceeded = errors.New("최대 재시도 횟수 초과")

// Event 는 Kafka 메시지 값으로 쓰는 봉투다. 도메인 이벤트는 Payload 에 JSON 으로 들어간다.
type Event struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
	// Retry 는 지금까지 재시도한 횟수다 (첫 처리 = 0).
	Retry     int    `json:"retry"`
	MaxRetry  int    `json:"max_retry"`
	LastError string `json:"last_error,omitempty"`
	// TraceID 는 발행 측의 request_id 로, 소비 측에서 같은 트레이스로 이어 붙인다.
	TraceID string `json:"trace_id,omitempty"`
}

type EventHandler func(ctx context.Context, event Event) error

type EventBus interface {
	Publish(ctx context.Context, topic string, event Event) error
	// Subscribe 는 기본 토픽을 소비한다. 실패한 이벤트는 재시도 토픽이나 DLQ 로 보낸다.
	Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error
	// StartRetryReinjector 는 재시도 토픽의 이벤트를 지연 후 기본 토픽으로 되돌린다.
	StartRetryReinjector(ctx context.Context, groupID string, topic Topic) error
	Close()
}
