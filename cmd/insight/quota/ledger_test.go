package quota

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"brand-insight/config"
	"brand-insight/models"
	"brand-insight/repositories"
)

// fakeMongoStore 는 조건부 차감을 잠금 하나로 흉내 낸다.
type fakeMongoStore struct {
	mu      sync.Mutex
	records map[string]int
}

func newFakeMongoStore() *fakeMongoStore {
	return &fakeMongoStore{records: map[string]int{}}
}

func (f *fakeMongoStore) DecrementIfPositive(ctx context.Context, memberID string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.records[memberID]
	if !ok || v <= 0 {
		return 0, false, nil
	}
	f.records[memberID] = v - 1
	return v - 1, true, nil
}

func (f *fakeMongoStore) Increment(ctx context.Context, memberID string, n int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[memberID] += n
	return f.records[memberID], nil
}

func (f *fakeMongoStore) GetByMemberID(ctx context.Context, memberID string) (*models.QuotaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.records[memberID]
	if !ok {
		return nil, nil
	}
	return &models.QuotaRecord{MemberID: memberID, FreeReportsRemaining: v}, nil
}

func runLedgerContract(t *testing.T, newLedger func(t *testing.T) Ledger) {
	ctx := context.Background()

	t.Run("unknown member has zero", func(t *testing.T) {
		l := newLedger(t)
		d, err := l.TryConsume(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, d.Granted)

		n, err := l.FreeReportCount(ctx, "ghost")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("consume until exhausted", func(t *testing.T) {
		l := newLedger(t)
		_, err := l.Grant(ctx, "m1", 2)
		require.NoError(t, err)

		d, err := l.TryConsume(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, Decision{Granted: true, Remaining: 1}, d)

		d, err = l.TryConsume(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, Decision{Granted: true, Remaining: 0}, d)

		d, err = l.TryConsume(ctx, "m1")
		require.NoError(t, err)
		assert.False(t, d.Granted)

		n, err := l.FreeReportCount(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("release restores one unit", func(t *testing.T) {
		l := newLedger(t)
		_, err := l.Grant(ctx, "m2", 1)
		require.NoError(t, err)

		d, err := l.TryConsume(ctx, "m2")
		require.NoError(t, err)
		require.True(t, d.Granted)
		require.NoError(t, l.Release(ctx, "m2"))

		n, err := l.FreeReportCount(ctx, "m2")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("concurrent consumes never exceed balance", func(t *testing.T) {
		l := newLedger(t)
		const balance, callers = 5, 40
		_, err := l.Grant(ctx, "m3", balance)
		require.NoError(t, err)

		var granted atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				d, err := l.TryConsume(ctx, "m3")
				if err == nil && d.Granted {
					granted.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(balance), granted.Load())
		n, err := l.FreeReportCount(ctx, "m3")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("rejects empty member", func(t *testing.T) {
		l := newLedger(t)
		_, err := l.TryConsume(ctx, " ")
		assert.ErrorIs(t, err, ErrInvalidMember)
		_, err = l.Grant(ctx, "m4", 0)
		assert.Error(t, err)
	})
}

func TestMemoryLedger(t *testing.T) {
	runLedgerContract(t, func(t *testing.T) Ledger { return NewMemoryLedger() })
}

func TestMongoLedgerWithFakeStore(t *testing.T) {
	runLedgerContract(t, func(t *testing.T) Ledger { return NewMongoLedger(newFakeMongoStore()) })
}

func TestMongoLedgerIntegration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	db := client.Database(fmt.Sprintf("brandinsight_test_%d", time.Now().UnixNano()))
	defer db.Drop(context.Background())

	runLedgerContract(t, func(t *testing.T) Ledger {
		require.NoError(t, db.Collection("quota_records").Drop(ctx))
		return NewMongoLedger(repositories.NewQuotaRecordRepository(db))
	})
}

func TestRedisLedgerIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	runLedgerContract(t, func(t *testing.T) Ledger {
		return NewRedisLedger(client, fmt.Sprintf("brand-insight-test:%d:", time.Now().UnixNano()))
	})
}

func TestNewSelectsBackend(t *testing.T) {
	l, err := New(config.QuotaConfig{Backend: "memory"}, Backends{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryLedger{}, l)

	l, err = New(config.QuotaConfig{Backend: "mongo"}, Backends{Mongo: newFakeMongoStore()})
	require.NoError(t, err)
	assert.IsType(t, &MongoLedger{}, l)

	_, err = New(config.QuotaConfig{Backend: "redis"}, Backends{})
	assert.Error(t, err)

	_, err = New(config.QuotaConfig{Backend: "etcd"}, Backends{})
	assert.Error(t, err)
}
