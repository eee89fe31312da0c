package quota

import (
	"context"
	"sync"
)

type memberSlot struct {
	mu        sync.Mutex
	remaining int
}

// MemoryLedger 는 회원별 뮤텍스로 카운터를 보호하는 인메모리 원장이다.
// 맵 잠금은 슬롯을 찾을 때만 잡으므로 서로 다른 회원의 차감은 병렬로 진행된다.
// 프로세스가 재시작되면 값이 사라진다.
type MemoryLedger struct {
	mu    sync.Mutex
	slots map[string]*memberSlot
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{slots: make(map[string]*memberSlot)}
}

func (l *MemoryLedger) slot(memberID string, create bool) *memberSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[memberID]
	if !ok && create {
		s = &memberSlot{}
		l.slots[memberID] = s
	}
	return s
}

func (l *MemoryLedger) TryConsume(ctx context.Context, memberID string) (Decision, error) {
	if err := validateMember(memberID); err != nil {
		return Decision{}, err
	}
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	s := l.slot(memberID, false)
	if s == nil {
		return Decision{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remaining <= 0 {
		return Decision{}, nil
	}
	s.remaining--
	return Decision{Granted: true, Remaining: s.remaining}, nil
}

func (l *MemoryLedger) Release(ctx context.Context, memberID string) error {
	if err := validateMember(memberID); err != nil {
		return err
	}
	s := l.slot(memberID, true)
	s.mu.Lock()
	s.remaining++
	s.mu.Unlock()
	return nil
}

func (l *MemoryLedger) FreeReportCount(ctx context.Context, memberID string) (int, error) {
	if err := validateMember(memberID); err != nil {
		return 0, err
	}
	s := l.slot(memberID, false)
	if s == nil {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining, nil
}

func (l *MemoryLedger) Grant(ctx context.Context, memberID string, n int) (int, error) {
	if err := validateGrant(memberID, n); err != nil {
		return 0, err
	}
	s := l.slot(memberID, true)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining += n
	return s.remaining, nil
}
