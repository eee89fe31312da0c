package quota

import (
	"context"
	"errors"

	redis "github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "brand-insight:quota:"

// 남은 값이 0 이하이면 -1, 아니면 차감 후 값을 돌려준다.
const consumeScript = `
local v = tonumber(redis.call("GET", KEYS[1]) or "0")
if v == nil or v <= 0 then
  return -1
end
return redis.call("DECR", KEYS[1])
`

// RedisClient 는 원장이 쓰는 go-redis 명령 집합이다. *redis.Client 가 구현한다.
type RedisClient interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
	IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd
}

// RedisLedger 는 Lua 스크립트로 확인과 차감을 한 번에 실행한다.
type RedisLedger struct {
	client  RedisClient
	prefix  string
	consume *redis.Script
}

func NewRedisLedger(client RedisClient, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisLedger{
		client:  client,
		prefix:  prefix,
		consume: redis.NewScript(consumeScript),
	}
}

func (l *RedisLedger) key(memberID string) string {
	return l.prefix + memberID
}

func (l *RedisLedger) TryConsume(ctx context.Context, memberID string) (Decision, error) {
	if err := validateMember(memberID); err != nil {
		return Decision{}, err
	}
	remaining, err := l.consume.Run(ctx, l.client, []string{l.key(memberID)}).Int()
	if err != nil {
		return Decision{}, err
	}
	if remaining < 0 {
		return Decision{}, nil
	}
	return Decision{Granted: true, Remaining: remaining}, nil
}

func (l *RedisLedger) Release(ctx context.Context, memberID string) error {
	if err := validateMember(memberID); err != nil {
		return err
	}
	return l.client.IncrBy(ctx, l.key(memberID), 1).Err()
}

func (l *RedisLedger) FreeReportCount(ctx context.Context, memberID string) (int, error) {
	if err := validateMember(memberID); err != nil {
		return 0, err
	}
	n, err := l.client.Get(ctx, l.key(memberID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return max(n, 0), nil
}

func (l *RedisLedger) Grant(ctx context.Context, memberID string, n int) (int, error) {
	if err := validateGrant(memberID, n); err != nil {
		return 0, err
	}
	v, err := l.client.IncrBy(ctx, l.key(memberID), int64(n)).Result()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
