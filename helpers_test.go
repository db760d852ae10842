package mirrorlai

import (
	"context"
	"strings"
	"sync"
	"testing"

	"golang.org/x/net/html"
)

// textProcessor is a minimal ContentProcessor: text nodes outside <script>,
// no attributes, no link rewriting.
type textProcessor struct{}

func (textProcessor) Collect(root *html.Node) []TranslatableItem {
	var items []TranslatableItem
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			return
		}
		if n.Type == html.TextNode && len([]rune(strings.TrimSpace(n.Data))) >= MinTextLength {
			items = append(items, TranslatableItem{Kind: KindText, Node: n, Source: n.Data})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return items
}

func (textProcessor) Apply(root *html.Node, item TranslatableItem, translation string) bool {
	for n := item.Node; n != nil; n = n.Parent {
		if n == root {
			item.Node.Data = translation
			return true
		}
	}
	return false
}

func (textProcessor) RewriteLinks(root *html.Node) int { return 0 }

// recordingClient is a BatchTranslator that records every batch it receives.
type recordingClient struct {
	mu      sync.Mutex
	batches [][]string
	fn      func(call int, batch []string) ([]string, error)
}

func (c *recordingClient) Translate(ctx context.Context, batch []string) ([]string, error) {
	c.mu.Lock()
	c.batches = append(c.batches, append([]string(nil), batch...))
	call := len(c.batches)
	c.mu.Unlock()

	if c.fn != nil {
		return c.fn(call, batch)
	}
	return upper(batch), nil
}

func (c *recordingClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func upper(batch []string) []string {
	out := make([]string, len(batch))
	for i, s := range batch {
		out[i] = strings.ToUpper(s)
	}
	return out
}

func parseDoc(t testing.TB, src string) *treeDocument {
	t.Helper()
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return &treeDocument{root: root}
}

func render(t testing.TB, doc *treeDocument) string {
	t.Helper()
	var b strings.Builder
	doc.Edit(func(root *html.Node) {
		if err := html.Render(&b, root); err != nil {
			t.Fatalf("render: %v", err)
		}
	})
	return b.String()
}

// texts returns the data of every text node under the document body.
func texts(doc *treeDocument) []string {
	var out []string
	doc.Edit(func(root *html.Node) {
		for _, item := range (textProcessor{}).Collect(root) {
			out = append(out, item.Node.Data)
		}
	})
	return out
}
