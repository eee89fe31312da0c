package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"brand-insight/cmd/internal/logger"
)

const TEXT_INSIGHT_INSTRUCTION = `
You are a marketing consultant for small offline brands (restaurants, cafes, bakeries).
You receive a JSON document describing the brand's location, nearby competitor stores
and the latest search trend keywords. Produce an actionable report.
The response MUST be a valid JSON object with these keys:

1. title: A short report title. (Written in Korean)
2. content: The report body in Markdown. Compare the best and the worst store when present,
   and connect the trend keywords to concrete actions. (Written in Korean)
3. keywords: A list of 3-7 trend keywords you actually used.
4. error: An optional string field. If the input is too sparse to give any advice,
   set this field to a descriptive message. Otherwise, set it to 'null'.

Additional constraints:
- You MUST NOT wrap the JSON output in a markdown code block.
- The response should contain ONLY the raw JSON string.
`

const IMAGE_ANALYSIS_INSTRUCTION = `
You analyze a photo taken in or around an offline store (menu, signage, interior, product).
The response MUST be a valid JSON object with these keys:

1. summary: What the image shows, no more than 200 characters. (Written in Korean)
2. labels: A list of 3-10 short labels for visible objects or concepts.
3. suggestions: A list of 1-5 improvement suggestions for the store. (Written in Korean)

- The response should contain ONLY the raw JSON string.
`

// GeminiAdapter 는 genai SDK 로 Gemini 모델을 호출한다.
type GeminiAdapter struct {
	name       string
	capability Capability
	model      string
	timeout    time.Duration
	client     *genai.Client
}

// NewGeminiAdapter 는 httpClient 를 SDK 에 넘겨 trace 헤더가 실린 채로 호출되게 한다.
func NewGeminiAdapter(ctx context.Context, name string, capability Capability, model, apiKey string, timeout time.Duration, httpClient *http.Client) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}
	if model == "" {
		return nil, fmt.Errorf("provider %s: model is empty", name)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{
		name:       name,
		capability: capability,
		model:      model,
		timeout:    timeout,
		client:     client,
	}, nil
}

func (a *GeminiAdapter) Name() string { return a.name }
func (a *GeminiAdapter) Capability() Capability { return a.capability }
func (a *GeminiAdapter) Timeout() time.Duration { return a.timeout }

func (a *GeminiAdapter) Invoke(ctx context.Context, req Request) (Result, error) {
	var (
		contents    []*genai.Content
		instruction string
	)
	switch a.capability {
	case TextInsight:
		body, err := json.Marshal(req.Consulting)
		if err != nil {
			return nil, Rejected("marshal consulting payload: %v", err)
		}
		contents = genai.Text(string(body))
		instruction = TEXT_INSIGHT_INSTRUCTION
	case ImageAnalysis:
		mimeType := req.MimeType
		if mimeType == "" {
			mimeType = http.DetectContentType(req.Image)
		}
		contents = []*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{Data: req.Image, MIMEType: mimeType}},
				{Text: fmt.Sprintf("brand_id=%d", req.BrandID)},
			},
		}}
		instruction = IMAGE_ANALYSIS_INSTRUCTION
	default:
		return nil, Rejected("capability %s is not served by gemini", a.capability)
	}

	start := time.Now()
	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	if resp == nil {
		return nil, Unavailable("gemini returned empty response")
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, Rejected("gemini blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, Rejected("gemini returned no candidates")
	}

	fields := logger.TraceFields(ctx).With(logger.Fields{
		"provider":      a.name,
		"model":         a.model,
		"model_version": resp.ModelVersion,
		"latency_ms":    time.Since(start).Milliseconds(),
	})
	if resp.UsageMetadata != nil {
		fields["input_tokens"] = resp.UsageMetadata.PromptTokenCount
		fields["output_tokens"] = resp.UsageMetadata.CandidatesTokenCount
		fields["total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}
	logger.InfoWithFields("gemini generate content", fields)

	return parseResult(text)
}

// parseResult 는 JSON 객체가 아니면 원문을 text 키에 담는다.
// 모델이 error 필드를 채웠으면 거절로 본다.
func parseResult(text string) (Result, error) {
	var out Result
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return Result{"text": text}, nil
	}
	if msg, ok := out["error"].(string); ok && msg != "" {
		return nil, Rejected("model declined: %s", msg)
	}
	delete(out, "error")
	return out, nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyStatus(apiErrPtr.Code, apiErrPtr.Message)
	}
	return classify(err)
}
