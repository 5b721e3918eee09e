package llm

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderFake   = "fake"
)

// Options selects and configures a backend.
type Options struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
	RPS        float64
	Burst      int
	Recorder   Recorder
	Logger     *log.Logger
}

type factory func(ctx context.Context, o Options) (ChatClient, error)

var factories = map[string]factory{
	ProviderOpenAI: func(_ context.Context, o Options) (ChatClient, error) {
		return NewOpenAIClient(OpenAIOptions{
			BaseURL:    o.BaseURL,
			APIKey:     o.APIKey,
			Model:      o.Model,
			APIVersion: o.APIVersion,
			Timeout:    o.Timeout,
		})
	},
	ProviderGemini: func(ctx context.Context, o Options) (ChatClient, error) {
		return NewGeminiClient(ctx, o.APIKey, o.Model)
	},
	ProviderFake: func(context.Context, Options) (ChatClient, error) {
		return NewFakeClient(), nil
	},
}

// Providers lists the registered provider names.
func Providers() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New builds the configured backend wrapped with the standard middleware
// stack: logging, metrics, rate limit and timeout. Nothing retries.
func New(ctx context.Context, o Options) (ChatClient, error) {
	name := strings.ToLower(strings.TrimSpace(o.Provider))
	if name == "" {
		name = ProviderOpenAI
	}
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q (known: %s)", o.Provider, strings.Join(Providers(), ", "))
	}
	inner, err := f(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("llm: init %s: %w", name, err)
	}
	return Wrap(inner,
		WithLogging(o.Logger),
		WithMetrics(o.Recorder),
		RateLimit(o.RPS, o.Burst),
		WithTimeout(o.Timeout),
	), nil
}
