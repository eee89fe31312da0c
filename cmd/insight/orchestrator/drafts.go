package orchestrator

import (
	"sync"
	"time"

	"brand-insight/models"
)

// draftStore 는 저장에 실패한 리포트 초안을 id 로 보관한다.
// SaveDraft 는 호출자가 보낸 본문이 아니라 여기 보관된 초안만 저장한다.
type draftStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	held map[string]heldDraft
}

type heldDraft struct {
	report  models.InsightReport
	expires time.Time
}

func newDraftStore(ttl time.Duration, now func() time.Time) *draftStore {
	return &draftStore{ttl: ttl, now: now, held: make(map[string]heldDraft)}
}

func (d *draftStore) hold(r *models.InsightReport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for id, h := range d.held {
		if !now.Before(h.expires) {
			delete(d.held, id)
		}
	}
	d.held[r.ID] = heldDraft{report: *r, expires: now.Add(d.ttl)}
}

// lookup 은 보관 중인 초안의 복사본을 돌려준다. 만료됐거나 다른 회원의 초안이면 false.
func (d *draftStore) lookup(id, memberID string) (*models.InsightReport, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.held[id]
	if !ok {
		return nil, false
	}
	if !d.now().Before(h.expires) {
		delete(d.held, id)
		return nil, false
	}
	if h.report.MemberID != memberID {
		return nil, false
	}
	r := h.report
	return &r, true
}

func (d *draftStore) drop(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.held, id)
}
