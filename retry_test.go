package mirrorlai

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetry(n int) RetryConfig {
	return RetryConfig{
		MaxRetries: n,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}
}

func TestWithRetry_Success(t *testing.T) {
	callCount := 0
	result, err := WithRetry(context.Background(), fastRetry(3), func() (string, error) {
		callCount++
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want ok", result)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestWithRetry_RecoversFromRetryableError(t *testing.T) {
	callCount := 0
	result, err := WithRetry(context.Background(), fastRetry(3), func() (string, error) {
		callCount++
		if callCount < 3 {
			return "", &ProviderError{Message: "bad gateway", StatusCode: 502, Retryable: true}
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want ok", result)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestWithRetry_NonRetryableError(t *testing.T) {
	callCount := 0
	_, err := WithRetry(context.Background(), fastRetry(3), func() (string, error) {
		callCount++
		return "", &ProviderError{Message: "payload too large", StatusCode: 413}
	})

	if err == nil {
		t.Fatal("Expected error for non-retryable error")
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call for non-retryable error, got %d", callCount)
	}
}

func TestWithRetry_MaxRetriesExceeded(t *testing.T) {
	callCount := 0
	_, err := WithRetry(context.Background(), fastRetry(2), func() (string, error) {
		callCount++
		return "", &ProviderError{Message: "rate limited", Retryable: true}
	})

	if err == nil {
		t.Fatal("Expected error after max retries")
	}
	// Initial attempt + 2 retries
	if callCount != 3 {
		t.Errorf("Expected 3 calls (1 + 2 retries), got %d", callCount)
	}
}

func TestWithRetry_ContextCanceled(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := WithRetry(ctx, cfg, func() (string, error) {
		return "", &ProviderError{Message: "rate limited", Retryable: true}
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"retryable provider error", &ProviderError{Retryable: true}, true},
		{"non-retryable provider error", &ProviderError{Retryable: false}, false},
		{"wrapped retryable", &TranslationError{Message: "x", Cause: &ProviderError{Retryable: true}}, true},
		{"count mismatch", &CountMismatchError{Expected: 2, Got: 1}, false},
		{"generic error", errors.New("some error"), false},
		{"context canceled", context.Canceled, false},
		{"context deadline", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.MaxRetries != 2 {
		t.Errorf("Expected MaxRetries 2, got %d", cfg.MaxRetries)
	}
	if cfg.BaseDelay != 500*time.Millisecond {
		t.Errorf("Expected BaseDelay 500ms, got %v", cfg.BaseDelay)
	}
	if cfg.MaxDelay != 5*time.Second {
		t.Errorf("Expected MaxDelay 5s, got %v", cfg.MaxDelay)
	}
}

// flakyBackend fails the first failCount calls with a retryable error.
type flakyBackend struct {
	failCount int
	callCount int
}

func (p *flakyBackend) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	p.callCount++
	if p.callCount <= p.failCount {
		return nil, &ProviderError{Message: "temporary failure", StatusCode: 503, Retryable: true}
	}
	out := make([]string, len(req.Texts))
	for i := range req.Texts {
		out[i] = "translated"
	}
	return out, nil
}

func TestRetryableProvider(t *testing.T) {
	inner := &flakyBackend{failCount: 2}
	provider := NewRetryableProvider(inner, fastRetry(3))

	result, err := provider.Translate(context.Background(), TranslateRequest{
		Texts:      []string{"hello"},
		TargetLang: "es_ES",
	})

	if err != nil {
		t.Fatalf("Expected success after retries, got: %v", err)
	}
	if len(result) != 1 || result[0] != "translated" {
		t.Errorf("Unexpected result: %v", result)
	}
	if inner.callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", inner.callCount)
	}
}
