package mirrorlai

import (
	"context"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Translator translates whole HTML documents with a single pipeline pass.
type Translator struct {
	targetLang    string
	sourceLang    string
	client        BatchTranslator
	state         *TranslationState
	processor     ContentProcessor
	limits        BatchLimits
	stickyPending bool
}

// AIProvider is the interface for translation backends behind the endpoint.
type AIProvider interface {
	Translate(ctx context.Context, req TranslateRequest) ([]string, error)
}

// TranslateRequest contains the parameters for a backend translation request.
type TranslateRequest struct {
	Texts         []string
	TargetLang    string
	SourceLang    string
	ExcludedTerms []string
	Context       string
	Glossary      map[string]string
}

// TranslatorOption is a functional option for configuring the Translator.
type TranslatorOption func(*Translator)

// WithSourceLang sets the source language.
func WithSourceLang(lang string) TranslatorOption {
	return func(t *Translator) {
		t.sourceLang = lang
	}
}

// WithCache backs a fresh translation state with cache.
func WithCache(cache TranslationCache) TranslatorOption {
	return func(t *Translator) {
		t.state = NewTranslationState(cache)
	}
}

// WithState shares an existing translation state.
func WithState(state *TranslationState) TranslatorOption {
	return func(t *Translator) {
		t.state = state
	}
}

// WithProcessor sets the content processor.
func WithProcessor(processor ContentProcessor) TranslatorOption {
	return func(t *Translator) {
		t.processor = processor
	}
}

// WithLimits sets the per-request batch limits.
func WithLimits(limits BatchLimits) TranslatorOption {
	return func(t *Translator) {
		t.limits = limits
	}
}

// WithStickyFailures keeps failed sources pending for the state's lifetime.
func WithStickyFailures() TranslatorOption {
	return func(t *Translator) {
		t.stickyPending = true
	}
}

// NewTranslator creates a new Translator with the given target language and client.
func NewTranslator(targetLang string, client BatchTranslator, opts ...TranslatorOption) *Translator {
	t := &Translator{
		targetLang: targetLang,
		sourceLang: "en",
		client:     client,
		limits:     DefaultBatchLimits(),
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.state == nil {
		t.state = NewTranslationState(nil)
	}

	return t
}

// Pipeline returns a pipeline bound to the translator's state, processor and client.
func (t *Translator) Pipeline() *Pipeline {
	opts := []PipelineOption{WithBatchLimits(t.limits)}
	if t.stickyPending {
		opts = append(opts, WithStickyPending())
	}
	return NewPipeline(t.state, t.processor, t.client, opts...)
}

// ProcessHTML parses content, runs one pipeline pass and renders the result.
// Translation failures leave the affected text in the source language and
// are reflected in FailedCount only.
func (t *Translator) ProcessHTML(ctx context.Context, content string) (*ProcessedContent, error) {
	// Skip if source == target
	if t.isSourceLang() {
		return &ProcessedContent{Content: content}, nil
	}

	if t.processor == nil {
		return nil, &ProcessorError{
			Message:     "no processor registered",
			ContentType: "html",
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, &ProcessorError{
			Message:     "failed to parse HTML",
			Cause:       err,
			ContentType: "html",
		}
	}

	stats := t.Pipeline().Run(ctx, &treeDocument{root: doc.Nodes[0]})

	t.setHTMLAttributes(doc)

	result, err := doc.Html()
	if err != nil {
		return nil, &ProcessorError{
			Message:     "failed to serialize HTML",
			Cause:       err,
			ContentType: "html",
		}
	}

	return &ProcessedContent{
		Content:         result,
		TranslatedCount: stats.Translated,
		CachedCount:     stats.Cached,
		FailedCount:     stats.Failed,
		TotalNodes:      stats.Collected,
	}, nil
}

// setHTMLAttributes sets lang and dir attributes on the <html> tag.
func (t *Translator) setHTMLAttributes(doc *goquery.Document) {
	htmlTag := doc.Find("html")
	if htmlTag.Length() > 0 {
		htmlTag.SetAttr("lang", ToHTMLLang(t.targetLang))
		htmlTag.SetAttr("dir", GetDirection(t.targetLang))
	}
}

// TargetLang returns the target language.
func (t *Translator) TargetLang() string {
	return t.targetLang
}

// SourceLang returns the source language.
func (t *Translator) SourceLang() string {
	return t.sourceLang
}

// State returns the translation state.
func (t *Translator) State() *TranslationState {
	return t.state
}

// IsRTL returns true if the target language uses right-to-left text direction.
func (t *Translator) IsRTL() bool {
	return IsRTL(t.targetLang)
}

// isSourceLang checks if target matches source (no translation needed).
func (t *Translator) isSourceLang() bool {
	return BaseLang(t.targetLang) == BaseLang(t.sourceLang)
}

// treeDocument is a parsed tree owned by a single ProcessHTML call.
type treeDocument struct {
	mu   sync.Mutex
	root *html.Node
}

func (d *treeDocument) Edit(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
}

// ProviderTranslator adapts a backend AIProvider to a BatchTranslator so a
// pipeline can call the backend in-process instead of through the endpoint.
type ProviderTranslator struct {
	provider AIProvider
	template TranslateRequest
}

// NewProviderTranslator creates an adapter. Every batch is sent with the
// languages, exclusions, context and glossary of template.
func NewProviderTranslator(provider AIProvider, template TranslateRequest) *ProviderTranslator {
	return &ProviderTranslator{provider: provider, template: template}
}

// Translate implements BatchTranslator.
func (p *ProviderTranslator) Translate(ctx context.Context, batch []string) ([]string, error) {
	req := p.template
	req.Texts = batch
	return p.provider.Translate(ctx, req)
}
