package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"brand-insight/cmd/internal/httpclient"
	"brand-insight/cmd/internal/logger"
	"brand-insight/cmd/internal/trace"
)

const loggedBodyLimit = 1024

// RequestTrace 는 요청마다 트레이스를 시작한다. 업스트림의 X-Request-Id 가 있으면 이어 쓰고,
// 인바운드는 span 0, 공급자 호출은 1 부터 센다.
func RequestTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		ctx := trace.Ensure(c.Request.Context(), c.GetHeader(httpclient.HeaderRequestID))
		c.Request = c.Request.WithContext(ctx)
		requestID := trace.RequestIDFromContext(ctx)

		c.Header(httpclient.HeaderRequestID, requestID)
		c.Header(httpclient.HeaderSpanID, trace.CurrentSpanID(ctx))

		body := jsonBodyPrefix(c.Request)

		c.Next()

		fields := logger.TraceFields(ctx).With(logger.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"elapsed_ms": time.Since(started).Milliseconds(),
		})
		if q := c.Request.URL.RawQuery; q != "" {
			fields["query"] = q
		}
		if body != "" {
			fields["body"] = body
		}
		logger.InfoWithFields("request completed", fields)
	}
}

// jsonBodyPrefix 는 쓰기 요청의 JSON 본문 앞부분을 돌려주고 Body 를 되돌려 놓는다.
// multipart 이미지 업로드는 읽지 않는다.
func jsonBodyPrefix(req *http.Request) string {
	if req.Body == nil || req.ContentLength == 0 || req.Method == http.MethodGet {
		return ""
	}
	if !strings.HasPrefix(req.Header.Get("Content-Type"), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(req.Body)
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	return string(raw[:min(len(raw), loggedBodyLimit)])
}
