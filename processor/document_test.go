package processor

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ZaguanLabs/mirrorlai"
	"golang.org/x/net/html"
)

func TestDocument_EditDoesNotNotify(t *testing.T) {
	doc, err := ParseDocument(`<p>Hello</p>`)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	var notified atomic.Int32
	doc.Observe(func() { notified.Add(1) })

	doc.Edit(func(root *html.Node) {})
	if notified.Load() != 0 {
		t.Error("Edit must not notify observers")
	}

	doc.Mutate(func(root *html.Node) {})
	if notified.Load() != 1 {
		t.Errorf("Mutate notified %d times, want 1", notified.Load())
	}
}

func TestDocument_ReplaceDetachesOldNodes(t *testing.T) {
	doc, _ := ParseDocument(`<p>Hello</p>`)
	var old *html.Node
	doc.Edit(func(root *html.Node) {
		old = NewHTMLProcessor().Collect(root)[0].Node
	})

	var notified atomic.Int32
	doc.Observe(func() { notified.Add(1) })

	if err := doc.Replace(strings.NewReader(`<p>Goodbye</p>`)); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	if doc.Contains(old) {
		t.Error("nodes of the replaced tree should be detached")
	}
	if notified.Load() != 1 {
		t.Errorf("Replace notified %d times, want 1", notified.Load())
	}
	out, _ := doc.Render()
	if !strings.Contains(out, "Goodbye") {
		t.Errorf("Render() = %s", out)
	}
}

func TestDocument_SetLanguage(t *testing.T) {
	doc, _ := ParseDocument(`<html><body><p>Hola</p></body></html>`)
	doc.SetLanguage("es_ES")

	out, err := doc.Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, `lang="es-ES"`) || !strings.Contains(out, `dir="ltr"`) {
		t.Errorf("Render() = %s", out)
	}
}

func TestDocument_PipelinePass(t *testing.T) {
	doc, _ := ParseDocument(`<main><h1>Welcome</h1><a href="/en/contacts" title="Contact us">Contact us</a></main>`)
	client := mirrorlai.BatchTranslatorFunc(func(ctx context.Context, batch []string) ([]string, error) {
		out := make([]string, len(batch))
		for i, s := range batch {
			out[i] = strings.ToUpper(s)
		}
		return out, nil
	})

	var notified atomic.Int32
	doc.Observe(func() { notified.Add(1) })

	p := mirrorlai.NewPipeline(nil, NewHTMLProcessor(WithLocalePaths("es", "en")), client)
	stats := p.Run(context.Background(), doc)

	if stats.Requested != 2 || stats.Applied != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if notified.Load() != 0 {
		t.Error("pipeline writes must not notify observers")
	}

	out, _ := doc.Render()
	for _, want := range []string{"<h1>WELCOME</h1>", `href="/es/contacts"`, `title="CONTACT US"`, ">CONTACT US</a>"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}
