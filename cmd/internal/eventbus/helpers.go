package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"brand-insight/cmd/internal/trace"
)

// Identified 를 구현한 payload 는 그 ID 를 Kafka 이벤트 ID(메시지 키)로 쓴다.
type Identified interface {
	EventID() string
}

// NewJSONEvent 는 payload 를 봉투에 담는다. ctx 의 request_id 를 TraceID 로 이어 받는다.
func NewJSONEvent(ctx context.Context, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("payload marshal 실패: %w", err)
	}

	id := ""
	if p, ok := payload.(Identified); ok {
		id = p.EventID()
	}
	if id == "" {
		id = uuid.NewString()
	}

	return normalizeMaxRetry(Event{
		ID:      id,
		Payload: b,
		TraceID: trace.RequestIDFromContext(ctx),
	}), nil
}
