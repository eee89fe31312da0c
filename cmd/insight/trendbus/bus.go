// Package trendbus 는 새로 수집된 트렌드 스냅샷을 프로세스 안의 구독자들에게 전파한다.
//
// Publish 는 구독자의 처리 완료를 기다리지 않는다. 구독자마다 브랜드별 대기열과 전용 워커를 두므로
// 한 구독자에게 같은 브랜드의 이벤트는 발행 순서대로 전달되고, 브랜드끼리나 구독자끼리는 순서를 보장하지 않는다.
// 구독 전에 발행된 이벤트는 다시 전달하지 않는다.
package trendbus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"brand-insight/cmd/internal/logger"
	"brand-insight/models"
)

var (
	ErrSubscriberExists   = errors.New("subscriber id already exists")
	ErrSubscriberNotFound = errors.New("subscriber id not found")
	ErrBusClosed          = errors.New("bus is closed")
)

// Event 는 버스 위에만 존재하는 트렌드 갱신 메시지다. 저장하지 않는다.
type Event struct {
	BrandID  int64
	Snapshot *models.TrendSnapshot
}

// Handler 가 에러를 반환하거나 panic 해도 다른 구독자와 발행자에는 영향이 없다.
type Handler func(ctx context.Context, ev Event) error

// DeliveryObserver 는 전달 한 건이 끝날 때마다 불린다. err 는 nil 이거나 핸들러 실패다.
type DeliveryObserver func(subscriber string, ev Event, err error)

type BusStats struct {
	TotalPublished uint64
	Subscribers    map[string]SubscriberStats
}

type SubscriberStats struct {
	Delivered uint64
	Failed    uint64
	Pending   int
}

type subscriber struct {
	id      string
	handler Handler

	mu     sync.Mutex
	queues map[int64][]Event
	active map[int64]bool

	delivered atomic.Uint64
	failed    atomic.Uint64
}

type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	closed      bool

	totalPublished atomic.Uint64

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	observer DeliveryObserver
}

func New() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		subscribers: make(map[string]*subscriber),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// OnDelivery 는 Subscribe/Publish 전에 한 번 설정한다.
func (b *Bus) OnDelivery(fn DeliveryObserver) {
	b.mu.Lock()
	b.observer = fn
	b.mu.Unlock()
}

func (b *Bus) Subscribe(id string, h Handler) error {
	if h == nil {
		return errors.New("subscriber handler cannot be nil")
	}
	if id == "" {
		return errors.New("subscriber id cannot be empty")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}
	b.subscribers[id] = &subscriber{
		id:      id,
		handler: h,
		queues:  make(map[int64][]Event),
		active:  make(map[int64]bool),
	}
	return nil
}

// Unsubscribe 이후의 발행은 전달되지 않지만 이미 대기열에 들어간 이벤트는 마저 전달한다.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; !exists {
		return ErrSubscriberNotFound
	}
	delete(b.subscribers, id)
	return nil
}

// Publish 는 대기열에 넣기만 하고 바로 돌아온다.
func (b *Bus) Publish(brandID int64, snapshot *models.TrendSnapshot) error {
	ev := Event{BrandID: brandID, Snapshot: snapshot}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	b.totalPublished.Add(1)
	for _, s := range b.subscribers {
		b.enqueue(s, ev)
	}
	return nil
}

func (b *Bus) enqueue(s *subscriber, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[ev.BrandID] = append(s.queues[ev.BrandID], ev)
	if s.active[ev.BrandID] {
		return
	}
	s.active[ev.BrandID] = true
	b.wg.Add(1)
	go b.drain(s, ev.BrandID)
}

// drain 은 (구독자, 브랜드) 하나당 최대 하나만 실행되어 순서를 지킨다.
func (b *Bus) drain(s *subscriber, brandID int64) {
	defer b.wg.Done()
	for {
		s.mu.Lock()
		q := s.queues[brandID]
		if len(q) == 0 {
			delete(s.queues, brandID)
			delete(s.active, brandID)
			s.mu.Unlock()
			return
		}
		ev := q[0]
		q[0] = Event{}
		s.queues[brandID] = q[1:]
		s.mu.Unlock()

		b.deliver(s, ev)
	}
}

func (b *Bus) deliver(s *subscriber, ev Event) {
	err := safeCall(b.ctx, s.handler, ev)
	if err != nil {
		s.failed.Add(1)
		logger.ErrorWithFields("trend bus handler failed", logger.Fields{
			"subscriber": s.id,
			"brand_id":   ev.BrandID,
			"error":      err.Error(),
		})
	} else {
		s.delivered.Add(1)
	}

	b.mu.RLock()
	observer := b.observer
	b.mu.RUnlock()
	if observer != nil {
		observer(s.id, ev, err)
	}
}

func safeCall(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, ev)
}

func (b *Bus) Stats() BusStats {
	b.mu.RLock()
	subs := make([]*subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	out := BusStats{
		TotalPublished: b.totalPublished.Load(),
		Subscribers:    make(map[string]SubscriberStats, len(subs)),
	}
	for _, s := range subs {
		s.mu.Lock()
		pending := 0
		for _, q := range s.queues {
			pending += len(q)
		}
		s.mu.Unlock()
		out.Subscribers[s.id] = SubscriberStats{
			Delivered: s.delivered.Load(),
			Failed:    s.failed.Load(),
			Pending:   pending,
		}
	}
	return out
}

// SubscriberIDs 는 현재 구독자 id 를 정렬해서 돌려준다.
func (b *Bus) SubscriberIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.subscribers))
	for id := range b.subscribers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close 는 새 발행을 막고 대기 중인 전달이 끝날 때까지 ctx 기한 안에서 기다린다.
// 기한이 지나면 핸들러 컨텍스트를 취소하고 ctx.Err() 를 돌려준다.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.cancel()
		return nil
	case <-ctx.Done():
		b.cancel()
		return ctx.Err()
	}
}
