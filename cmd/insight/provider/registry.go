package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"brand-insight/cmd/internal/logger"
	"brand-insight/cmd/internal/trace"
)

type registryKey struct {
	capability Capability
	name       string
}

// Observer 는 공급자 호출 한 번이 끝날 때마다 불린다. outcome 은 ok 또는 에러 분류 이름이다.
type Observer func(capability Capability, name, outcome string, elapsed time.Duration)

// Registry 는 (기능, 공급자 이름) 으로 어댑터를 찾는다. 기동 시점에 한 번 구성한 뒤 읽기 전용으로 쓴다.
type Registry struct {
	mu       sync.RWMutex
	adapters map[registryKey]Adapter
	timeout  time.Duration
	observer Observer
}

func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Registry{
		adapters: make(map[registryKey]Adapter),
		timeout:  timeout,
	}
}

// Register 는 같은 (기능, 이름) 조합의 중복 등록을 거부한다.
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return fmt.Errorf("provider: nil adapter")
	}
	if a.Name() == "" {
		return fmt.Errorf("provider: adapter name is empty")
	}
	if !a.Capability().Valid() {
		return fmt.Errorf("provider: invalid capability %q for %s", a.Capability(), a.Name())
	}

	key := registryKey{capability: a.Capability(), name: a.Name()}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[key]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateProvider, key.capability, key.name)
	}
	r.adapters[key] = a
	return nil
}

func (r *Registry) OnInvoke(fn Observer) {
	r.mu.Lock()
	r.observer = fn
	r.mu.Unlock()
}

func (r *Registry) Supports(capability Capability, name string) bool {
	_, ok := r.lookup(capability, name)
	return ok
}

// Providers 는 기능별 등록된 공급자 이름을 정렬해서 돌려준다.
func (r *Registry) Providers(capability Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for k := range r.adapters {
		if k.capability == capability {
			names = append(names, k.name)
		}
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(capability Capability, name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[registryKey{capability: capability, name: name}]
	return a, ok
}

// Invoke 는 공급자를 찾아 제한 시간 안에서 한 번 호출하고, 실패를 세 가지 분류로 정규화한다.
// 등록되지 않은 공급자면 외부 호출 없이 ErrUnsupportedProvider 를 반환한다.
func (r *Registry) Invoke(ctx context.Context, capability Capability, name string, req Request) (Result, error) {
	a, ok := r.lookup(capability, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedProvider, capability, name)
	}
	if err := validateRequest(capability, req); err != nil {
		return nil, err
	}

	// 아웃바운드 호출에 trace id 가 반드시 실리도록 한다.
	ctx = trace.Ensure(ctx, "")

	timeout := r.timeout
	if ta, ok := a.(timeoutAware); ok && ta.Timeout() > 0 {
		timeout = ta.Timeout()
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := a.Invoke(callCtx, req)
	err = classify(err)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = OutcomeOf(err)
		logger.WarnWithFields("provider invocation failed", logger.TraceFields(ctx).With(logger.Fields{
			"capability": string(capability),
			"provider":   name,
			"outcome":    outcome,
			"duration":   elapsed.String(),
			"error":      err.Error(),
		}))
	} else {
		logger.DebugWithFields("provider invocation success", logger.TraceFields(ctx).With(logger.Fields{
			"capability": string(capability),
			"provider":   name,
			"duration":   elapsed.String(),
		}))
	}

	r.mu.RLock()
	observer := r.observer
	r.mu.RUnlock()
	if observer != nil {
		observer(capability, name, outcome, elapsed)
	}

	if err != nil {
		return nil, err
	}
	if result == nil {
		result = Result{}
	}
	return result, nil
}

func validateRequest(capability Capability, req Request) error {
	switch capability {
	case TextInsight:
		if req.Consulting == nil {
			return Rejected("text insight request without consulting payload")
		}
	case ImageAnalysis:
		if len(req.Image) == 0 {
			return Rejected("image analysis request without image bytes")
		}
	}
	return nil
}

// OutcomeOf 는 에러 분류를 로그/메트릭용 문자열로 바꾼다.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnsupportedProvider):
		return ErrUnsupportedProvider.Error()
	case errors.Is(err, ErrProviderRejected):
		return ErrProviderRejected.Error()
	default:
		return ErrProviderUnavailable.Error()
	}
}
