package trace

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

type ctxKey struct{}

// span 은 하나의 요청(HTTP 요청, Kafka 이벤트, 수집 실행)에 대한 트레이스다.
// seq 는 같은 요청 안에서 아웃바운드 호출마다 1 씩 증가한다.
type span struct {
	requestID string
	seq       atomic.Int64
}

// GenerateID 는 하이픈 없는 UUIDv4 를 돌려준다.
func GenerateID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func WithRequestAndSpan(ctx context.Context, requestID string, initialSpan int64) context.Context {
	s := &span{requestID: requestID}
	s.seq.Store(initialSpan)
	return context.WithValue(ctx, ctxKey{}, s)
}

// Ensure 는 컨텍스트에 트레이스가 없으면 traceID(비어 있으면 새 ID)로 시작한 컨텍스트를 돌려준다.
// 이미 같은 RequestID 가 있으면 그대로 사용한다.
func Ensure(ctx context.Context, traceID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if s := fromContext(ctx); s != nil && (traceID == "" || s.requestID == traceID) {
		return ctx
	}
	if traceID == "" {
		traceID = GenerateID()
	}
	return WithRequestAndSpan(ctx, traceID, 0)
}

func fromContext(ctx context.Context) *span {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(ctxKey{}).(*span)
	return s
}

func RequestIDFromContext(ctx context.Context) string {
	if s := fromContext(ctx); s != nil {
		return s.requestID
	}
	return ""
}

// CurrentSpanID 는 span 을 증가시키지 않는다.
func CurrentSpanID(ctx context.Context) string {
	s := fromContext(ctx)
	if s == nil {
		return "0"
	}
	return strconv.FormatInt(max(s.seq.Load(), 0), 10)
}

// NextSpanID 는 span 을 1 증가시키고 (requestID, spanID) 를 돌려준다.
// 트레이스가 없는 컨텍스트에서는 새 requestID 와 span 1 이다.
func NextSpanID(ctx context.Context) (string, string) {
	s := fromContext(ctx)
	if s == nil {
		return GenerateID(), "1"
	}
	return s.requestID, strconv.FormatInt(max(s.seq.Add(1), 1), 10)
}
