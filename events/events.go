package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"brand-insight/models"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	TrendSnapshotCollected EventType = "trend.snapshot_collected"
)

const eventVersion = "1"

var ErrUnknownEventType = errors.New("unknown event type")

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // "collector" 등
	Version   string    `json:"version"`
}

// EventID 는 Kafka 메시지 키로 쓰인다.
func (e BaseEvent) EventID() string { return e.ID }

// TrendSnapshotCollectedEvent 수집기가 새 트렌드 스냅샷을 저장한 뒤 발행하는 이벤트
type TrendSnapshotCollectedEvent struct {
	BaseEvent
	SnapshotID     primitive.ObjectID `json:"snapshot_id"`
	BrandID        int64              `json:"brand_id"`
	CollectedAt    time.Time          `json:"collected_at"`
	SnapshotSource string             `json:"snapshot_source"`
	Payload        map[string]any     `json:"payload"`
}

// NewTrendSnapshotCollected 는 저장된 스냅샷으로 이벤트를 만든다.
func NewTrendSnapshotCollected(source string, s *models.TrendSnapshot) TrendSnapshotCollectedEvent {
	return TrendSnapshotCollectedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      TrendSnapshotCollected,
			Timestamp: time.Now(),
			Source:    source,
			Version:   eventVersion,
		},
		SnapshotID:     s.ID,
		BrandID:        s.BrandID,
		CollectedAt:    s.CollectedAt,
		SnapshotSource: s.Source,
		Payload:        s.Payload,
	}
}

// Snapshot 은 이벤트를 다시 스냅샷 모델로 되돌린다.
func (e TrendSnapshotCollectedEvent) Snapshot() *models.TrendSnapshot {
	return &models.TrendSnapshot{
		ID:          e.SnapshotID,
		BrandID:     e.BrandID,
		CollectedAt: e.CollectedAt,
		Source:      e.SnapshotSource,
		Payload:     e.Payload,
	}
}

// Validate 는 소비 측에서 처리할 수 없는 이벤트를 걸러낸다.
func (e TrendSnapshotCollectedEvent) Validate() error {
	if e.Type != TrendSnapshotCollected {
		return fmt.Errorf("unexpected event type: %q", e.Type)
	}
	if e.BrandID <= 0 {
		return fmt.Errorf("invalid brand_id: %d", e.BrandID)
	}
	if e.CollectedAt.IsZero() {
		return fmt.Errorf("collected_at is required")
	}
	return nil
}

// DeserializeEvent 는 이벤트 타입에 맞는 구조체 포인터로 디코딩한다.
// 모르는 타입이면 ErrUnknownEventType.
func DeserializeEvent(eventType EventType, data []byte) (any, error) {
	var event any
	switch eventType {
	case TrendSnapshotCollected:
		event = &TrendSnapshotCollectedEvent{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("unmarshal %s event: %w", eventType, err)
	}
	return event, nil
}
