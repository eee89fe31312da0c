package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"brand-insight/config"
)

var (
	// ErrQuotaExhausted 는 무료 리포트가 남아 있지 않은 경우다. 업그레이드 없이는 재시도해도 실패한다.
	ErrQuotaExhausted = errors.New("quota_exhausted")
	ErrInvalidMember  = errors.New("invalid member id")
)

// Decision 은 TryConsume 의 결과다. Granted 가 false 면 Remaining 은 0 이다.
type Decision struct {
	Granted   bool
	Remaining int
}

// Ledger 는 회원별 무료 리포트 카운터다.
// TryConsume 은 회원 단위로 원자적인 확인-후-차감을 보장하고, 서로 다른 회원끼리는 경합하지 않는다.
// 레코드가 없는 회원은 남은 횟수 0 으로 취급한다.
type Ledger interface {
	TryConsume(ctx context.Context, memberID string) (Decision, error)
	// Release 는 승인된 차감을 한 단위 되돌리는 보상 연산이다.
	Release(ctx context.Context, memberID string) error
	// FreeReportCount 는 읽기 전용이며 이후 TryConsume 시점에는 이미 달라져 있을 수 있다.
	FreeReportCount(ctx context.Context, memberID string) (int, error)
	// Grant 는 n 만큼 무료 리포트를 추가하고 결과 값을 돌려준다.
	Grant(ctx context.Context, memberID string, n int) (int, error)
}

func validateMember(memberID string) error {
	if strings.TrimSpace(memberID) == "" {
		return ErrInvalidMember
	}
	return nil
}

func validateGrant(memberID string, n int) error {
	if err := validateMember(memberID); err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("grant must be positive: %d", n)
	}
	return nil
}

// Backends 는 New 가 요구하는 저장소 핸들이다. 선택한 backend 에 필요한 것만 채우면 된다.
type Backends struct {
	Mongo MongoStore
	Redis RedisClient
}

// New 는 quota.backend 설정에 따라 원장을 고른다.
func New(cfg config.QuotaConfig, b Backends) (Ledger, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryLedger(), nil
	case "mongo":
		if b.Mongo == nil {
			return nil, fmt.Errorf("quota backend mongo requires a mongo store")
		}
		return NewMongoLedger(b.Mongo), nil
	case "redis":
		if b.Redis == nil {
			return nil, fmt.Errorf("quota backend redis requires a redis client")
		}
		return NewRedisLedger(b.Redis, ""), nil
	default:
		return nil, fmt.Errorf("unknown quota backend %q", cfg.Backend)
	}
}
