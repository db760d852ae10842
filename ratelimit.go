package mirrorlai

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures backend request pacing.
type RateLimitConfig struct {
	RequestsPerMinute int // Sustained request rate, default 60
	BurstSize         int // Requests allowed at once, default RequestsPerMinute
}

// NewLimiter builds a token bucket from cfg.
func NewLimiter(cfg RateLimitConfig) *rate.Limiter {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = rpm
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
}

// RateLimitedProvider paces calls to a backend so bursts of proxy traffic do
// not trip the backend's own quota.
type RateLimitedProvider struct {
	provider AIProvider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider creates a new rate-limited provider.
func NewRateLimitedProvider(provider AIProvider, cfg RateLimitConfig) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  NewLimiter(cfg),
	}
}

// Translate implements AIProvider. Waiting for a token honours ctx.
func (p *RateLimitedProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{
			Message:   "rate limit wait cancelled",
			Cause:     err,
			Retryable: false,
		}
	}
	return p.provider.Translate(ctx, req)
}

// Limiter returns the underlying limiter for inspection.
func (p *RateLimitedProvider) Limiter() *rate.Limiter {
	return p.limiter
}
