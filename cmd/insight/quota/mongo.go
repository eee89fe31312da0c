package quota

import (
	"context"

	"brand-insight/models"
)

// MongoStore 는 quota_records 컬렉션에 대한 원자적 연산이다. repositories.QuotaRecordRepository 가 구현한다.
type MongoStore interface {
	DecrementIfPositive(ctx context.Context, memberID string) (int, bool, error)
	Increment(ctx context.Context, memberID string, n int) (int, error)
	GetByMemberID(ctx context.Context, memberID string) (*models.QuotaRecord, error)
}

// MongoLedger 는 조건부 findOneAndUpdate($gt:0, $inc:-1) 한 번으로 차감하므로
// 여러 인스턴스가 같은 회원을 동시에 차감해도 음수가 되지 않는다.
type MongoLedger struct {
	store MongoStore
}

func NewMongoLedger(store MongoStore) *MongoLedger {
	return &MongoLedger{store: store}
}

func (l *MongoLedger) TryConsume(ctx context.Context, memberID string) (Decision, error) {
	if err := validateMember(memberID); err != nil {
		return Decision{}, err
	}
	remaining, ok, err := l.store.DecrementIfPositive(ctx, memberID)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return Decision{}, nil
	}
	return Decision{Granted: true, Remaining: remaining}, nil
}

func (l *MongoLedger) Release(ctx context.Context, memberID string) error {
	if err := validateMember(memberID); err != nil {
		return err
	}
	_, err := l.store.Increment(ctx, memberID, 1)
	return err
}

func (l *MongoLedger) FreeReportCount(ctx context.Context, memberID string) (int, error) {
	if err := validateMember(memberID); err != nil {
		return 0, err
	}
	rec, err := l.store.GetByMemberID(ctx, memberID)
	if err != nil || rec == nil {
		return 0, err
	}
	return rec.FreeReportsRemaining, nil
}

func (l *MongoLedger) Grant(ctx context.Context, memberID string, n int) (int, error) {
	if err := validateGrant(memberID, n); err != nil {
		return 0, err
	}
	return l.store.Increment(ctx, memberID, n)
}
