package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ZaguanLabs/mirrorlai"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements AIProvider using OpenAI's chat completions.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  // OpenAI API key
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.2)
	BaseURL     string  // Custom base URL (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Translate translates a batch of texts using a JSON-mode chat completion.
func (p *OpenAIProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: p.buildUserMessage(req)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &mirrorlai.ProviderError{
			Message:    "OpenAI API call failed",
			Cause:      err,
			StatusCode: statusCode(err),
			Retryable:  isRetryableError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return nil, &mirrorlai.ProviderError{
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	return p.parseResponse(resp.Choices[0].Message.Content, len(req.Texts))
}

func (p *OpenAIProvider) buildSystemPrompt(req TranslateRequest) string {
	sourceName := "English"
	if req.SourceLang != "" {
		sourceName = mirrorlai.GetLanguageName(req.SourceLang)
	}
	targetName := mirrorlai.GetLanguageName(req.TargetLang)

	contextText := "The strings come from the pages of a company website: navigation, headings, body copy, buttons and form hints."
	if req.Context != "" {
		contextText = fmt.Sprintf("The strings come from the website of %s. Keep the tone appropriate for it.", req.Context)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `# Role
You are a professional website localizer translating from %s to %s.

# Context
%s

# Rules
- Each input string is an independent fragment of a page. Translate it on its own; never merge or split strings.
- Keep short UI labels short. Keep the meaning of headings and calls to action.
- Do NOT translate URLs, email addresses, phone numbers, prices or placeholders such as {name} or %%s.
- Preserve leading and trailing whitespace and line breaks.
- If a string is already in %s or is a proper name, return it unchanged.`, sourceName, targetName, contextText, targetName)

	if len(req.Glossary) > 0 {
		sources := make([]string, 0, len(req.Glossary))
		for source := range req.Glossary {
			sources = append(sources, source)
		}
		sort.Strings(sources)

		b.WriteString("\n\n# Glossary\nAlways use these translations:")
		for _, source := range sources {
			fmt.Fprintf(&b, "\n- %q → %q", source, req.Glossary[source])
		}
	}

	if len(req.ExcludedTerms) > 0 {
		b.WriteString("\n\n# Exclusions\nKeep these terms exactly as written:\n- ")
		b.WriteString(strings.Join(req.ExcludedTerms, "\n- "))
	}

	b.WriteString(`

# Format
Return a JSON object with a single key "translations": an array of strings in the same order and of the same length as the input array.
Example: {"translations": ["first", "second"]}`)

	return b.String()
}

func (p *OpenAIProvider) buildUserMessage(req TranslateRequest) string {
	data, _ := json.Marshal(req.Texts)
	return string(data)
}

func (p *OpenAIProvider) parseResponse(content string, expectedCount int) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var objResult map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &objResult); err == nil {
		if raw, ok := objResult["translations"]; ok {
			return decodeStrings(raw, expectedCount)
		}
		// Fallback: first array-valued key, in key order
		keys := make([]string, 0, len(objResult))
		for k := range objResult {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if out, err := decodeStrings(objResult[k], expectedCount); err == nil {
				return out, nil
			} else if errors.As(err, new(*mirrorlai.CountMismatchError)) {
				return nil, err
			}
		}
	}

	if out, err := decodeStrings(json.RawMessage(content), expectedCount); err == nil {
		return out, nil
	} else if errors.As(err, new(*mirrorlai.CountMismatchError)) {
		return nil, err
	}

	return nil, &mirrorlai.ProviderError{
		Message:   "invalid response format from OpenAI",
		Retryable: false,
	}
}

// decodeStrings decodes a JSON array, stringifying non-string elements.
func decodeStrings(raw json.RawMessage, expectedCount int) ([]string, error) {
	var arr []interface{}
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, err
	}

	result := make([]string, len(arr))
	for i, v := range arr {
		if s, ok := v.(string); ok {
			result[i] = s
		} else {
			result[i] = fmt.Sprintf("%v", v)
		}
	}

	if len(result) != expectedCount {
		return nil, &mirrorlai.CountMismatchError{
			Expected: expectedCount,
			Got:      len(result),
		}
	}
	return result, nil
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if code := statusCode(err); code != 0 {
		return mirrorlai.RetryableStatus(code) || code >= 500
	}

	// Transport failures carry no status
	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "connection refused", "connection reset", "temporary", "eof"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// Verify OpenAIProvider implements AIProvider
var _ AIProvider = (*OpenAIProvider)(nil)
