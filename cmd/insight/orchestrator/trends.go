package orchestrator

import (
	"context"
	"sync"
	"time"

	"brand-insight/cmd/insight/trendbus"
	"brand-insight/cmd/internal/logger"
	"brand-insight/models"
)

// TrendSource 는 저장소에서 브랜드의 가장 최근 스냅샷을 찾는다. 없으면 (nil, nil).
type TrendSource interface {
	FindLatestByBrand(ctx context.Context, brandID int64) (*models.TrendSnapshot, error)
}

// TrendTracker 는 브랜드별 최신 트렌드 스냅샷 참조를 유지한다.
// 갱신이 경합하면 도착 순서가 아니라 CollectedAt 이 더 늦은 쪽이 이긴다.
// 버스 이벤트를 놓쳐도(Kafka 없음, DLQ) ttl 이 지나면 저장소를 다시 조회해 합친다.
type TrendTracker struct {
	mu      sync.RWMutex
	latest  map[int64]*models.TrendSnapshot
	checked map[int64]time.Time
	source  TrendSource
	ttl     time.Duration
	now     func() time.Time
}

// source 가 nil 이면 버스로 받은 스냅샷만 사용한다. ttl 이 0 이하이면 Latest 마다 저장소를 조회한다.
func NewTrendTracker(source TrendSource, ttl time.Duration) *TrendTracker {
	return &TrendTracker{
		latest:  make(map[int64]*models.TrendSnapshot),
		checked: make(map[int64]time.Time),
		source:  source,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Observe 는 더 최신인 스냅샷일 때만 교체하고 교체 여부를 돌려준다.
// 같은 스냅샷을 두 번 처리해도 상태는 변하지 않는다.
func (t *TrendTracker) Observe(brandID int64, snap *models.TrendSnapshot) bool {
	if snap == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !snap.NewerThan(t.latest[brandID]) {
		return false
	}
	t.latest[brandID] = snap
	return true
}

// HandleTrendUpdate 는 trendbus 구독 핸들러다.
func (t *TrendTracker) HandleTrendUpdate(ctx context.Context, ev trendbus.Event) error {
	t.Observe(ev.BrandID, ev.Snapshot)
	return nil
}

// Latest 는 마지막 조회 후 ttl 이 지났으면 저장소를 다시 읽어 Observe 로 합친다.
// 재조회가 실패하면 가지고 있는 스냅샷을 그대로 쓴다.
func (t *TrendTracker) Latest(ctx context.Context, brandID int64) (*models.TrendSnapshot, error) {
	t.mu.RLock()
	snap := t.latest[brandID]
	checkedAt, checked := t.checked[brandID]
	t.mu.RUnlock()

	now := t.now()
	if t.source == nil || (checked && t.ttl > 0 && now.Sub(checkedAt) < t.ttl) {
		return snap, nil
	}

	found, err := t.source.FindLatestByBrand(ctx, brandID)
	if err != nil {
		if snap == nil {
			return nil, err
		}
		logger.WarnWithFields("trend refresh failed, using cached snapshot", logger.TraceFields(ctx).With(logger.Fields{
			"brand_id": brandID,
			"error":    err.Error(),
		}))
		return snap, nil
	}
	t.Observe(brandID, found)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.checked[brandID] = now
	return t.latest[brandID], nil
}
