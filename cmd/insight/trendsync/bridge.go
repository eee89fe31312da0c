package trendsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"brand-insight/cmd/internal/eventbus"
	"brand-insight/cmd/internal/logger"
	"brand-insight/events"
	"brand-insight/models"
)

// Publisher 는 trendbus.Bus 가 구현한다.
type Publisher interface {
	Publish(brandID int64, snapshot *models.TrendSnapshot) error
}

// Bridge 는 Kafka 트렌드 토픽의 이벤트를 프로세스 내 트렌드 버스로 옮긴다.
type Bridge struct {
	bus Publisher
}

func NewBridge(bus Publisher) *Bridge {
	return &Bridge{bus: bus}
}

// HandleEvent 는 eventbus.EventHandler 로 쓴다.
// 다른 타입의 이벤트는 무시(커밋)하고, 형식이 잘못된 이벤트는 재시도해도 소용없으므로 로그만 남긴다.
// 버스 발행 실패(종료 중)는 에러로 돌려 재시도 토픽으로 보낸다.
func (b *Bridge) HandleEvent(ctx context.Context, ev eventbus.Event) error {
	// 이벤트 타입만 먼저 파싱 (BaseEvent.Type 은 top-level 에 있음)
	var peek struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(ev.Payload, &peek); err != nil {
		logger.WarnWithFields("trend event payload is not json", logger.TraceFields(ctx).With(logger.Fields{
			"event_id": ev.ID,
			"error":    err.Error(),
		}))
		return nil
	}

	decoded, err := events.DeserializeEvent(events.EventType(peek.Type), ev.Payload)
	if errors.Is(err, events.ErrUnknownEventType) {
		return nil
	}
	if err != nil {
		return err
	}

	switch v := decoded.(type) {
	case *events.TrendSnapshotCollectedEvent:
		return b.handleCollected(ctx, ev, *v)
	default:
		return nil
	}
}

func (b *Bridge) handleCollected(ctx context.Context, ev eventbus.Event, v events.TrendSnapshotCollectedEvent) error {
	fields := logger.TraceFields(ctx).With(logger.Fields{
		"event_id": ev.ID,
		"brand_id": v.BrandID,
		"retry":    ev.Retry,
	})
	if err := v.Validate(); err != nil {
		logger.WarnWithFields("dropping invalid trend event", fields.With(logger.Fields{"error": err.Error()}))
		return nil
	}
	if err := b.bus.Publish(v.BrandID, v.Snapshot()); err != nil {
		return fmt.Errorf("publish trend snapshot for brand %d: %w", v.BrandID, err)
	}
	logger.DebugWithFields("trend snapshot forwarded to bus", fields.With(logger.Fields{
		"collected_at": v.CollectedAt,
	}))
	return nil
}
