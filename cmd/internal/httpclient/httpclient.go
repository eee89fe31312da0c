package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"brand-insight/cmd/internal/logger"
	"brand-insight/cmd/internal/trace"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderSpanID    = "X-Span-Id"

	defaultTimeout = 10 * time.Second
	bodyLogLimit   = 1024
)

var ErrQueryInPath = errors.New("httpclient: query string in path, pass url.Values instead")

type Config struct {
	Timeout time.Duration
	// nil 이면 http.DefaultTransport
	Transport http.RoundTripper
}

// New 는 트레이스 헤더를 붙이고 호출마다 로그를 남기는 http.Client 를 만든다.
func New(cfg Config) *http.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: tracingTransport{next: cfg.Transport},
	}
}

type tracingTransport struct {
	next http.RoundTripper
}

func (t tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	started := time.Now()
	out, requestID, spanID := stamp(req)
	body := peekBody(out)

	resp, err := t.next.RoundTrip(out)

	fields := logger.Fields{
		"method":     out.Method,
		"url":        out.URL.Redacted(),
		"elapsed_ms": time.Since(started).Milliseconds(),
		"request_id": requestID,
		"span_id":    spanID,
	}
	if body != "" {
		fields["body"] = body
	}
	if err != nil {
		logger.ErrorWithFields("outbound call failed", fields.With(logger.Fields{"error": err.Error()}))
		return nil, err
	}
	logger.DebugWithFields("outbound call", fields.With(logger.Fields{"status": resp.StatusCode}))
	return resp, nil
}

// stamp 는 원본을 건드리지 않고 트레이스 헤더가 실린 복제 요청을 돌려준다.
// 컨텍스트에 트레이스가 없으면 호출자가 넣은 X-Request-Id 를 이어 쓴다.
func stamp(req *http.Request) (*http.Request, string, string) {
	requestID := trace.RequestIDFromContext(req.Context())
	var spanID string
	if requestID != "" {
		requestID, spanID = trace.NextSpanID(req.Context())
	} else {
		requestID = req.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = trace.GenerateID()
		}
		spanID = "1"
	}
	out := req.Clone(req.Context())
	out.Header.Set(HeaderRequestID, requestID)
	out.Header.Set(HeaderSpanID, spanID)
	return out, requestID, spanID
}

// peekBody 는 로그용으로 바디 앞부분을 돌려주고 전송할 Body 를 되돌려 놓는다.
func peekBody(req *http.Request) string {
	if req.Body == nil || req.Body == http.NoBody {
		return ""
	}
	raw, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	return string(raw[:min(len(raw), bodyLogLimit)])
}

// Endpoint 는 baseURL 하나에 붙는 요청을 만든다.
type Endpoint struct {
	client  *http.Client
	baseURL string
}

// NewEndpoint 는 client 가 nil 이면 New(Config{}) 를 쓴다.
func NewEndpoint(client *http.Client, baseURL string) *Endpoint {
	if client == nil {
		client = New(Config{})
	}
	return &Endpoint{client: client, baseURL: baseURL}
}

// Request 는 baseURL 뒤에 relPath 를 붙인다. 쿼리는 query 로만 받는다.
func (e *Endpoint) Request(ctx context.Context, method, relPath string, query url.Values, body io.Reader) (*http.Request, error) {
	if strings.Contains(relPath, "?") {
		return nil, ErrQueryInPath
	}
	u, err := url.Parse(e.baseURL)
	if err != nil {
		return nil, err
	}
	if relPath != "" {
		u.Path = path.Join("/", u.Path, relPath)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return http.NewRequestWithContext(ctx, method, u.String(), body)
}

func (e *Endpoint) Do(req *http.Request) (*http.Response, error) {
	return e.client.Do(req)
}
