package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"brand-insight/cmd/insight/consulting"
	"brand-insight/cmd/internal/httpclient"
)

const maxResponseBody = 5 * 1024 * 1024

// HTTPAdapter 는 JSON POST 하나로 외부 AI 서비스(컨설팅, 비전 서비스 등)를 호출한다.
type HTTPAdapter struct {
	name       string
	capability Capability
	path       string
	timeout    time.Duration
	endpoint   *httpclient.Endpoint
}

type httpInvokeRequest struct {
	Provider   string              `json:"provider"`
	Capability Capability          `json:"capability"`
	BrandID    int64               `json:"brand_id"`
	Payload    *consulting.Payload `json:"payload,omitempty"`
	ImageBytes []byte              `json:"image_bytes,omitempty"`
	MimeType   string              `json:"mime_type,omitempty"`
}

type httpErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewHTTPAdapter(name string, capability Capability, baseURL, path string, timeout time.Duration) *HTTPAdapter {
	httpClient := httpclient.New(httpclient.Config{Timeout: timeout})
	return NewHTTPAdapterWithClient(name, capability, baseURL, path, timeout, httpClient)
}

func NewHTTPAdapterWithClient(name string, capability Capability, baseURL, path string, timeout time.Duration, httpClient *http.Client) *HTTPAdapter {
	if path == "" {
		path = "/api/v1/" + string(capability)
	}
	return &HTTPAdapter{
		name:       name,
		capability: capability,
		path:       path,
		timeout:    timeout,
		endpoint:   httpclient.NewEndpoint(httpClient, baseURL),
	}
}

func (a *HTTPAdapter) Name() string { return a.name }

func (a *HTTPAdapter) Capability() Capability { return a.capability }

func (a *HTTPAdapter) Timeout() time.Duration { return a.timeout }

func (a *HTTPAdapter) Invoke(ctx context.Context, req Request) (Result, error) {
	payload := httpInvokeRequest{
		Provider:   a.name,
		Capability: a.capability,
		BrandID:    req.BrandID,
	}
	switch a.capability {
	case TextInsight:
		payload.Payload = req.Consulting
	case ImageAnalysis:
		payload.ImageBytes = req.Image
		payload.MimeType = req.MimeType
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, Rejected("marshal request: %v", err)
	}

	httpReq, err := a.endpoint.Request(ctx, http.MethodPost, a.path, nil, bytes.NewReader(buf))
	if err != nil {
		return nil, Rejected("build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.endpoint.Do(httpReq)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		return nil, Unavailable("%s response read failed: %v", a.name, readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp.StatusCode, errorDetail(body))
	}

	var out Result
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, Unavailable("%s returned malformed body: %v", a.name, err)
	}
	return out, nil
}

// errorDetail 은 {"error": "..."} 형태면 메시지만, 아니면 본문 앞부분을 돌려준다.
func errorDetail(body []byte) string {
	var eb httpErrorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Error != "" {
			return eb.Error
		}
		if eb.Message != "" {
			return eb.Message
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		s = s[:256]
	}
	return fmt.Sprintf("body=%s", s)
}
