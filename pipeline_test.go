package mirrorlai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

const page = `<html><head><title>Shop</title><script>var s = "skip me";</script></head>
<body><h1>Welcome home</h1><p>Fresh coffee daily</p><a href="/en/contacts">Contact us</a></body></html>`

func TestPipeline_TranslatesAndPreservesOrder(t *testing.T) {
	doc := parseDoc(t, page)
	before := texts(doc)
	client := &recordingClient{}

	stats := NewPipeline(nil, textProcessor{}, client).Run(context.Background(), doc)

	if stats.Err != nil {
		t.Fatalf("unexpected error: %v", stats.Err)
	}
	after := texts(doc)
	if len(after) != len(before) {
		t.Fatalf("collected %d texts after, %d before", len(after), len(before))
	}
	for i := range before {
		if after[i] != strings.ToUpper(before[i]) {
			t.Errorf("text %d = %q, want %q", i, after[i], strings.ToUpper(before[i]))
		}
	}
	if !strings.Contains(render(t, doc), `"skip me"`) {
		t.Error("script content must not be translated")
	}
	if stats.Translated != len(before) || stats.Applied != len(before) {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPipeline_Idempotent(t *testing.T) {
	doc := parseDoc(t, page)
	client := &recordingClient{}
	state := NewTranslationState(nil)

	// The translations are already cached
	for _, s := range texts(doc) {
		state.Resolve(s, s)
	}

	before := render(t, doc)
	stats := NewPipeline(state, textProcessor{}, client).Run(context.Background(), doc)

	if client.calls() != 0 {
		t.Errorf("expected no requests, got %d", client.calls())
	}
	if render(t, doc) != before {
		t.Error("document changed on an idempotent pass")
	}
	if stats.Cached != stats.Collected {
		t.Errorf("Cached = %d, Collected = %d", stats.Cached, stats.Collected)
	}
}

func TestPipeline_SecondPassUsesCache(t *testing.T) {
	client := &recordingClient{}
	p := NewPipeline(nil, textProcessor{}, client)

	p.Run(context.Background(), parseDoc(t, page))
	first := client.calls()

	doc := parseDoc(t, page)
	stats := p.Run(context.Background(), doc)

	if client.calls() != first {
		t.Errorf("second pass sent %d new requests", client.calls()-first)
	}
	if stats.Cached != stats.Collected || stats.Requested != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if texts(doc)[0] != "SHOP" {
		t.Errorf("cached translation not applied: %v", texts(doc))
	}
}

func TestPipeline_FanOut(t *testing.T) {
	doc := parseDoc(t, `<div><p>Contact us</p><span>Contact us</span><b>Contact us</b></div>`)
	client := &recordingClient{}

	stats := NewPipeline(nil, textProcessor{}, client).Run(context.Background(), doc)

	if client.calls() != 1 {
		t.Fatalf("expected 1 request, got %d", client.calls())
	}
	if got := client.batches[0]; len(got) != 1 || got[0] != "Contact us" {
		t.Errorf("batch = %v, want [Contact us]", got)
	}
	for i, s := range texts(doc) {
		if s != "CONTACT US" {
			t.Errorf("node %d = %q, want CONTACT US", i, s)
		}
	}
	if stats.Applied != 3 {
		t.Errorf("Applied = %d, want 3", stats.Applied)
	}
}

func TestPipeline_SkipRules(t *testing.T) {
	doc := parseDoc(t, `<div><p>x</p><p>   </p><script>var x = 1;</script><p>ok</p></div>`)
	client := &recordingClient{}

	NewPipeline(nil, textProcessor{}, client).Run(context.Background(), doc)

	if client.calls() != 1 {
		t.Fatalf("expected 1 request, got %d", client.calls())
	}
	if got := client.batches[0]; len(got) != 1 || got[0] != "ok" {
		t.Errorf("batch = %v, want [ok]", got)
	}
}

func TestPipeline_FailureContainment(t *testing.T) {
	doc := parseDoc(t, `<div><p>first</p><p>second</p><p>third</p></div>`)
	client := &recordingClient{fn: func(call int, batch []string) ([]string, error) {
		if call == 2 {
			return nil, &ProviderError{Message: "endpoint rejected batch", StatusCode: 413}
		}
		return upper(batch), nil
	}}
	state := NewTranslationState(nil)

	stats := NewPipeline(state, textProcessor{}, client,
		WithBatchLimits(BatchLimits{MaxItems: 1, MaxChars: 100}),
	).Run(context.Background(), doc)

	if client.calls() != 2 {
		t.Fatalf("batch 3 must never be sent: %d requests", client.calls())
	}
	got := texts(doc)
	want := []string{"FIRST", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("text %d = %q, want %q", i, got[i], want[i])
		}
	}

	var providerErr *ProviderError
	if !errors.As(stats.Err, &providerErr) || providerErr.StatusCode != 413 {
		t.Errorf("Err = %v, want the 413 rejection", stats.Err)
	}
	if stats.BatchesSent != 2 || stats.BatchesTotal != 3 || stats.Failed != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if state.PendingLen() != 0 {
		t.Errorf("failed sources should be released, %d still pending", state.PendingLen())
	}
	if _, ok := state.Lookup("second"); ok {
		t.Error("failed source must not be cached")
	}
}

func TestPipeline_RetriesAfterRelease(t *testing.T) {
	fail := true
	client := &recordingClient{fn: func(call int, batch []string) ([]string, error) {
		if fail {
			return nil, &ProviderError{Message: "request failed", Cause: errors.New("connection refused")}
		}
		return upper(batch), nil
	}}
	p := NewPipeline(nil, textProcessor{}, client)
	doc := parseDoc(t, `<p>Hello</p>`)

	p.Run(context.Background(), doc)
	fail = false
	stats := p.Run(context.Background(), doc)

	if stats.Translated != 1 || texts(doc)[0] != "HELLO" {
		t.Errorf("retry pass did not translate: stats=%+v texts=%v", stats, texts(doc))
	}
}

func TestPipeline_StickyPending(t *testing.T) {
	client := &recordingClient{fn: func(call int, batch []string) ([]string, error) {
		return nil, &ProviderError{Message: "unavailable", StatusCode: 503}
	}}
	state := NewTranslationState(nil)
	p := NewPipeline(state, textProcessor{}, client, WithStickyPending())
	doc := parseDoc(t, `<p>Hello</p><p>World</p>`)

	p.Run(context.Background(), doc)
	if state.PendingLen() != 2 {
		t.Fatalf("PendingLen() = %d, want 2", state.PendingLen())
	}

	stats := p.Run(context.Background(), doc)
	if client.calls() != 1 {
		t.Errorf("sticky sources were requested again: %d requests", client.calls())
	}
	if stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", stats.Skipped)
	}
}

func TestPipeline_StaleNode(t *testing.T) {
	doc := parseDoc(t, `<div><p id="gone">Remove me</p><p>Keep me</p></div>`)
	var detached *html.Node

	client := &recordingClient{fn: func(call int, batch []string) ([]string, error) {
		// The document changes while the request is in flight
		doc.Edit(func(root *html.Node) {
			for _, item := range (textProcessor{}).Collect(root) {
				if item.Source == "Remove me" {
					detached = item.Node.Parent
					detached.Parent.RemoveChild(detached)
				}
			}
		})
		return upper(batch), nil
	}}

	stats := NewPipeline(nil, textProcessor{}, client).Run(context.Background(), doc)

	if stats.Stale != 1 || stats.Applied != 1 {
		t.Errorf("Stale = %d, Applied = %d, want 1 and 1", stats.Stale, stats.Applied)
	}
	if detached.FirstChild.Data != "Remove me" {
		t.Errorf("detached node was written: %q", detached.FirstChild.Data)
	}
	if got := texts(doc); len(got) != 1 || got[0] != "KEEP ME" {
		t.Errorf("texts = %v", got)
	}
}

func TestPipeline_CountMismatch(t *testing.T) {
	client := &recordingClient{fn: func(call int, batch []string) ([]string, error) {
		return []string{"only one"}, nil
	}}
	doc := parseDoc(t, `<p>Hello</p><p>World</p>`)

	stats := NewPipeline(nil, textProcessor{}, client).Run(context.Background(), doc)

	var mismatch *CountMismatchError
	if !errors.As(stats.Err, &mismatch) {
		t.Fatalf("Err = %v, want CountMismatchError", stats.Err)
	}
	if got := texts(doc); got[0] != "Hello" || got[1] != "World" {
		t.Errorf("mismatched response was applied: %v", got)
	}
}

func TestPipeline_EmptyTranslationNotApplied(t *testing.T) {
	client := &recordingClient{fn: func(call int, batch []string) ([]string, error) {
		return []string{""}, nil
	}}
	state := NewTranslationState(nil)
	doc := parseDoc(t, `<p>Hello</p>`)

	NewPipeline(state, textProcessor{}, client).Run(context.Background(), doc)

	if texts(doc)[0] != "Hello" {
		t.Errorf("empty translation overwrote the source: %q", texts(doc)[0])
	}
	if v, ok := state.Lookup("Hello"); !ok || v != "" {
		t.Errorf("empty translation should still be cached, got (%q, %v)", v, ok)
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	client := &recordingClient{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats := NewPipeline(nil, textProcessor{}, client).Run(ctx, parseDoc(t, `<p>Hello</p>`))

	if client.calls() != 0 {
		t.Errorf("cancelled pass sent %d requests", client.calls())
	}
	if !errors.Is(stats.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", stats.Err)
	}
}

func TestPipeline_ConcurrentPassSkipsInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	blocking := &recordingClient{fn: func(call int, batch []string) ([]string, error) {
		close(started)
		<-release
		return upper(batch), nil
	}}
	other := &recordingClient{}
	state := NewTranslationState(nil)

	first := parseDoc(t, `<p>Hello</p>`)
	done := make(chan RunStats)
	go func() {
		done <- NewPipeline(state, textProcessor{}, blocking).Run(context.Background(), first)
	}()
	<-started

	doc := parseDoc(t, `<p>Hello</p>`)
	stats := NewPipeline(state, textProcessor{}, other).Run(context.Background(), doc)
	close(release)
	<-done

	if other.calls() != 0 || stats.Skipped != 1 {
		t.Errorf("in-flight source requested twice: calls=%d skipped=%d", other.calls(), stats.Skipped)
	}
	// No late binding: the skipping pass's node keeps its source text
	if texts(doc)[0] != "Hello" {
		t.Errorf("texts = %v", texts(doc))
	}
}
