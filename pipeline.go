package mirrorlai

import (
	"context"

	"github.com/ZaguanLabs/mirrorlai/logger"
	"golang.org/x/net/html"
)

// BatchTranslator translates an ordered batch of strings. The result must
// have the same length and order as the input.
type BatchTranslator interface {
	Translate(ctx context.Context, batch []string) ([]string, error)
}

// BatchTranslatorFunc adapts a function to BatchTranslator.
type BatchTranslatorFunc func(ctx context.Context, batch []string) ([]string, error)

// Translate calls f.
func (f BatchTranslatorFunc) Translate(ctx context.Context, batch []string) ([]string, error) {
	return f(ctx, batch)
}

// Document is the live document a pipeline reads and updates. Edit runs fn
// with exclusive access to the tree; the pipeline never holds it across a
// network call.
type Document interface {
	Edit(fn func(root *html.Node))
}

// ContentProcessor finds translatable items in a tree and writes
// translations back.
type ContentProcessor interface {
	// Collect returns the items under root in document order.
	Collect(root *html.Node) []TranslatableItem

	// Apply writes translation into item. It returns false and leaves the
	// tree untouched when the item's node is no longer attached under root.
	Apply(root *html.Node, item TranslatableItem, translation string) bool

	// RewriteLinks keeps same-origin navigation inside the locale path
	// space. It returns the number of links changed.
	RewriteLinks(root *html.Node) int
}

// Pipeline runs collect → plan → translate → apply passes over a document.
type Pipeline struct {
	state         *TranslationState
	processor     ContentProcessor
	client        BatchTranslator
	limits        BatchLimits
	stickyPending bool
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithBatchLimits overrides the per-request limits.
func WithBatchLimits(limits BatchLimits) PipelineOption {
	return func(p *Pipeline) {
		p.limits = limits
	}
}

// WithStickyPending keeps sources of failed batches in the pending set, so
// they are never requested again for the lifetime of the state.
func WithStickyPending() PipelineOption {
	return func(p *Pipeline) {
		p.stickyPending = true
	}
}

// NewPipeline creates a pipeline sharing state with any other pipeline built
// on the same TranslationState.
func NewPipeline(state *TranslationState, processor ContentProcessor, client BatchTranslator, opts ...PipelineOption) *Pipeline {
	if state == nil {
		state = NewTranslationState(nil)
	}
	p := &Pipeline{
		state:     state,
		processor: processor,
		client:    client,
		limits:    DefaultBatchLimits(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the shared translation state.
func (p *Pipeline) State() *TranslationState {
	return p.state
}

// Run performs one pass over doc. Batches are sent one at a time; the first
// failure abandons the rest of the pass and leaves their text untouched.
// Failures are reported in RunStats, never returned.
func (p *Pipeline) Run(ctx context.Context, doc Document) RunStats {
	var stats RunStats
	var plan *Plan

	doc.Edit(func(root *html.Node) {
		items := p.processor.Collect(root)
		stats.Collected = len(items)

		plan = PlanBatches(items, p.state, p.limits)
		stats.Skipped = plan.Skipped
		for _, r := range plan.Immediate {
			stats.Cached++
			p.apply(root, r.Item, r.Translation, &stats)
		}

		p.processor.RewriteLinks(root)
	})

	stats.BatchesTotal = len(plan.Batches)
	for _, b := range plan.Batches {
		stats.Requested += len(b)
	}

	for i, batch := range plan.Batches {
		stats.BatchesSent++
		translations, err := p.translate(ctx, batch)
		if err != nil {
			abandoned := flatten(plan.Batches[i:])
			stats.Err = err
			stats.Failed = len(abandoned)
			if !p.stickyPending {
				p.state.Release(abandoned...)
			}
			logger.Warn("translation batch %d/%d failed, %d strings left untranslated: %v",
				i+1, len(plan.Batches), len(abandoned), err)
			break
		}

		resolved := make([]string, len(batch))
		for j, src := range batch {
			resolved[j] = p.state.Resolve(src, translations[j])
		}
		stats.Translated += len(batch)

		doc.Edit(func(root *html.Node) {
			for j, src := range batch {
				for _, item := range plan.Targets[src] {
					p.apply(root, item, resolved[j], &stats)
				}
			}
		})
	}

	logger.Debug("pipeline pass: collected=%d cached=%d skipped=%d requested=%d translated=%d failed=%d batches=%d/%d stale=%d",
		stats.Collected, stats.Cached, stats.Skipped, stats.Requested, stats.Translated, stats.Failed,
		stats.BatchesSent, stats.BatchesTotal, stats.Stale)

	return stats
}

func (p *Pipeline) translate(ctx context.Context, batch []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TranslationError{Message: "pass cancelled", Cause: err}
	}
	translations, err := p.client.Translate(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(translations) != len(batch) {
		return nil, &CountMismatchError{Expected: len(batch), Got: len(translations)}
	}
	return translations, nil
}

// apply writes a translation unless it is empty.
func (p *Pipeline) apply(root *html.Node, item TranslatableItem, translation string, stats *RunStats) {
	if translation == "" {
		return
	}
	if p.processor.Apply(root, item, translation) {
		stats.Applied++
	} else {
		stats.Stale++
	}
}

func flatten(batches [][]string) []string {
	var out []string
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}
