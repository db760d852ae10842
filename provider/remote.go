package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ZaguanLabs/mirrorlai"
)

// DefaultEndpointPath is where the proxy serves the translation endpoint.
const DefaultEndpointPath = "/api/translate"

// TranslateRequestBody is the JSON body of an endpoint request.
type TranslateRequestBody struct {
	Strings []string `json:"strings"`
}

// TranslateResponseBody is the JSON body of a successful endpoint response.
type TranslateResponseBody struct {
	Translations []string `json:"translations"`
}

// ErrorResponseBody is the JSON body of a rejected endpoint request.
type ErrorResponseBody struct {
	Error string `json:"error"`
}

// RemoteConfig holds configuration for the endpoint client.
type RemoteConfig struct {
	Endpoint   string       // Full endpoint URL, e.g. "https://mirror.example/api/translate"
	HTTPClient *http.Client // Defaults to a client without timeout; the caller's context governs
	Header     http.Header  // Extra headers sent with every request
}

// RemoteClient posts batches to the translation endpoint.
type RemoteClient struct {
	endpoint string
	client   *http.Client
	header   http.Header
}

// NewRemoteClient creates a new endpoint client.
func NewRemoteClient(cfg RemoteConfig) *RemoteClient {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &RemoteClient{
		endpoint: cfg.Endpoint,
		client:   client,
		header:   cfg.Header,
	}
}

// Translate sends one batch and returns its translations in input order.
func (c *RemoteClient) Translate(ctx context.Context, batch []string) ([]string, error) {
	if len(batch) == 0 {
		return []string{}, nil
	}

	body, err := json.Marshal(TranslateRequestBody{Strings: batch})
	if err != nil {
		return nil, &mirrorlai.ProviderError{Message: "encoding request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &mirrorlai.ProviderError{Message: "building request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", mirrorlai.UserAgent())
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &mirrorlai.ProviderError{
			Message:   "translation request failed",
			Cause:     err,
			Retryable: ctx.Err() == nil,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &mirrorlai.ProviderError{Message: "reading response", Cause: err, Retryable: true}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &mirrorlai.ProviderError{
			Message:    "endpoint rejected batch" + errorDetail(data),
			StatusCode: resp.StatusCode,
			Retryable:  mirrorlai.RetryableStatus(resp.StatusCode),
		}
	}

	var out TranslateResponseBody
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &mirrorlai.ProviderError{Message: "decoding response", Cause: err}
	}
	if len(out.Translations) != len(batch) {
		return nil, &mirrorlai.CountMismatchError{Expected: len(batch), Got: len(out.Translations)}
	}

	return out.Translations, nil
}

// errorDetail extracts the endpoint's error message, if any.
func errorDetail(data []byte) string {
	var e ErrorResponseBody
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return fmt.Sprintf(": %s", e.Error)
	}
	if s := strings.TrimSpace(string(data)); s != "" && len(s) < 200 {
		return ": " + s
	}
	return ""
}

var _ mirrorlai.BatchTranslator = (*RemoteClient)(nil)
