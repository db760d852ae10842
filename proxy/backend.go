package proxy

import (
	"context"
	"fmt"

	"github.com/ZaguanLabs/mirrorlai"
	"github.com/ZaguanLabs/mirrorlai/cache"
	"github.com/ZaguanLabs/mirrorlai/config"
	"github.com/ZaguanLabs/mirrorlai/logger"
	"github.com/ZaguanLabs/mirrorlai/provider"
)

// NewBackend builds the configured translation backend, wrapped with retries
// and rate limiting. It returns nil without error when no backend is
// configured; the endpoint then answers 503.
func NewBackend(cfg *config.Config) (mirrorlai.AIProvider, error) {
	t := cfg.Translation

	var backend mirrorlai.AIProvider
	switch t.ResolvedBackend() {
	case config.BackendDeepL:
		if t.DeepLKey == "" {
			return nil, fmt.Errorf("deepl backend requires DEEPL_API_KEY")
		}
		backend = provider.NewDeepLProvider(provider.DeepLConfig{APIKey: t.DeepLKey})
	case config.BackendOpenAI:
		if t.OpenAIKey == "" {
			return nil, fmt.Errorf("openai backend requires OPENAI_API_KEY")
		}
		backend = provider.NewOpenAIProvider(provider.OpenAIConfig{APIKey: t.OpenAIKey, Model: t.OpenAIModel})
	case config.BackendMock:
		return provider.NewMockProvider(), nil
	default:
		return nil, nil
	}

	backend = mirrorlai.NewRateLimitedProvider(backend, mirrorlai.RateLimitConfig{
		RequestsPerMinute: t.RequestsPerMinute,
	})
	if t.Retries > 0 {
		rc := mirrorlai.DefaultRetryConfig()
		rc.MaxRetries = t.Retries
		backend = mirrorlai.NewRetryableProvider(backend, rc)
	}
	return backend, nil
}

// NewCache returns the shared translation cache: Redis when a URL is
// configured, else an in-process cache.
func NewCache(ctx context.Context, cfg *config.Config) (mirrorlai.TranslationCache, error) {
	t := cfg.Translation
	if t.RedisURL == "" {
		return cache.NewInMemoryCache(t.CacheTTL), nil
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: t.RedisURL, TTL: t.CacheTTL})
	if err != nil {
		return nil, err
	}
	logger.Info("translation cache: redis")
	return rc, nil
}
