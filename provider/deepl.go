package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ZaguanLabs/mirrorlai"
)

// DeepL API endpoints. Free-tier keys end in ":fx".
const (
	DeepLProEndpoint  = "https://api.deepl.com/v2/translate"
	DeepLFreeEndpoint = "https://api-free.deepl.com/v2/translate"
)

// DeepLConfig holds configuration for the DeepL provider.
type DeepLConfig struct {
	APIKey     string       // DeepL authentication key
	Endpoint   string       // Override the endpoint (tests, proxies)
	HTTPClient *http.Client // Defaults to http.DefaultClient
}

// DeepLProvider implements AIProvider using the DeepL text API.
type DeepLProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewDeepLProvider creates a new DeepL provider.
func NewDeepLProvider(cfg DeepLConfig) *DeepLProvider {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DeepLEndpoint(cfg.APIKey)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &DeepLProvider{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		endpoint: endpoint,
		client:   client,
	}
}

// DeepLEndpoint picks the endpoint matching the key's plan.
func DeepLEndpoint(apiKey string) string {
	if strings.HasSuffix(strings.TrimSpace(apiKey), ":fx") {
		return DeepLFreeEndpoint
	}
	return DeepLProEndpoint
}

// DeepLTargetLang converts a locale to a DeepL target code. DeepL wants
// regional variants only for English and Portuguese.
func DeepLTargetLang(locale string) string {
	locale = mirrorlai.NormalizeLocale(locale)
	switch strings.ToLower(locale) {
	case "en", "en_gb":
		return "EN-GB"
	case "en_us":
		return "EN-US"
	case "pt", "pt_br":
		return "PT-BR"
	case "pt_pt":
		return "PT-PT"
	case "zh_tw":
		return "ZH-HANT"
	}
	return strings.ToUpper(mirrorlai.BaseLang(locale))
}

type deepLResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
	Message string `json:"message"`
}

// Translate sends all texts in one form-encoded request.
func (p *DeepLProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	form := url.Values{}
	for _, text := range req.Texts {
		form.Add("text", text)
	}
	form.Set("target_lang", DeepLTargetLang(req.TargetLang))
	if req.SourceLang != "" {
		form.Set("source_lang", strings.ToUpper(mirrorlai.BaseLang(req.SourceLang)))
	}
	if req.Context != "" {
		form.Set("context", req.Context)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &mirrorlai.ProviderError{Message: "building DeepL request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+p.apiKey)
	httpReq.Header.Set("User-Agent", mirrorlai.UserAgent())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &mirrorlai.ProviderError{
			Message:   "DeepL API call failed",
			Cause:     err,
			Retryable: ctx.Err() == nil,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &mirrorlai.ProviderError{Message: "reading DeepL response", Cause: err, Retryable: true}
	}

	var body deepLResponse
	decodeErr := json.Unmarshal(data, &body)

	if resp.StatusCode != http.StatusOK {
		msg := "DeepL API error"
		if decodeErr == nil && body.Message != "" {
			msg = fmt.Sprintf("DeepL API error: %s", body.Message)
		}
		return nil, &mirrorlai.ProviderError{
			Message:    msg,
			StatusCode: resp.StatusCode,
			Retryable:  mirrorlai.RetryableStatus(resp.StatusCode),
		}
	}
	if decodeErr != nil {
		return nil, &mirrorlai.ProviderError{Message: "invalid response format from DeepL", Cause: decodeErr}
	}

	if len(body.Translations) != len(req.Texts) {
		return nil, &mirrorlai.CountMismatchError{Expected: len(req.Texts), Got: len(body.Translations)}
	}
	out := make([]string, len(body.Translations))
	for i, t := range body.Translations {
		out[i] = t.Text
	}
	return out, nil
}

// Verify DeepLProvider implements AIProvider
var _ AIProvider = (*DeepLProvider)(nil)
