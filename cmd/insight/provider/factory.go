package provider

import (
	"context"
	"fmt"
	"os"

	"brand-insight/cmd/internal/httpclient"
	"brand-insight/config"
)

const (
	KindGemini = "gemini"
	KindHTTP   = "http"
)

// BuildRegistry 는 설정의 공급자 목록으로 레지스트리를 만든다.
// 알 수 없는 kind 나 중복 이름은 기동 시점 에러다.
func BuildRegistry(ctx context.Context, cfg config.ProvidersConfig) (*Registry, error) {
	reg := NewRegistry(cfg.Timeout)

	groups := []struct {
		capability Capability
		entries    []config.ProviderConfig
	}{
		{TextInsight, cfg.TextInsight},
		{ImageAnalysis, cfg.ImageAnalysis},
	}
	for _, g := range groups {
		for _, pc := range g.entries {
			a, err := newAdapter(ctx, g.capability, pc, cfg)
			if err != nil {
				return nil, err
			}
			if err := reg.Register(a); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

func newAdapter(ctx context.Context, capability Capability, pc config.ProviderConfig, cfg config.ProvidersConfig) (Adapter, error) {
	timeout := pc.Timeout
	if timeout <= 0 {
		timeout = cfg.Timeout
	}
	switch pc.Kind {
	case KindGemini:
		httpClient := httpclient.New(httpclient.Config{Timeout: timeout})
		return NewGeminiAdapter(ctx, pc.Name, capability, pc.Model, os.Getenv("GEMINI_API_KEY"), timeout, httpClient)
	case KindHTTP:
		if pc.BaseURL == "" {
			return nil, fmt.Errorf("provider %s/%s: base_url is empty", capability, pc.Name)
		}
		return NewHTTPAdapter(pc.Name, capability, pc.BaseURL, pc.Path, timeout), nil
	default:
		return nil, fmt.Errorf("provider %s/%s: unknown kind %q", capability, pc.Name, pc.Kind)
	}
}
