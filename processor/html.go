package processor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/mirrorlai"
	"golang.org/x/net/html"
)

// HTMLProcessor collects translatable text and attributes from an HTML tree.
type HTMLProcessor struct {
	excludedTags map[string]bool
	attributes   []string
	paths        mirrorlai.LocalePaths
}

// Option configures an HTMLProcessor.
type Option func(*HTMLProcessor)

// WithExcludedTags replaces the set of elements whose subtrees are skipped.
func WithExcludedTags(tags ...string) Option {
	return func(p *HTMLProcessor) {
		p.excludedTags = make(map[string]bool, len(tags))
		for _, tag := range tags {
			p.excludedTags[strings.ToLower(tag)] = true
		}
	}
}

// WithAttributes replaces the list of human-readable attributes to collect.
func WithAttributes(attrs ...string) Option {
	return func(p *HTMLProcessor) {
		p.attributes = attrs
	}
}

// WithLocalePaths enables link normalization into the public locale.
func WithLocalePaths(public, upstream string) Option {
	return func(p *HTMLProcessor) {
		p.paths = mirrorlai.LocalePaths{Public: public, Upstream: upstream}
	}
}

// NewHTMLProcessor creates a processor with the default exclusions and
// attributes. Link normalization is off unless WithLocalePaths is given.
func NewHTMLProcessor(opts ...Option) *HTMLProcessor {
	p := &HTMLProcessor{
		excludedTags: mirrorlai.DefaultExcludedTags,
		attributes:   mirrorlai.DefaultTranslatableAttributes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// skip reports whether the subtree rooted at n holds nothing to translate.
func (p *HTMLProcessor) skip(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if p.excludedTags[strings.ToLower(n.Data)] {
		return true
	}
	for _, attr := range n.Attr {
		if attr.Key == "data-no-translate" {
			return true
		}
	}
	return false
}

// Collect returns the text nodes and attributes under root in document order.
//
// Text items keep the node's raw value as their source, so the same words
// with different surrounding whitespace are distinct entries. Attribute items
// carry the trimmed value.
func (p *HTMLProcessor) Collect(root *html.Node) []TranslatableItem {
	var items []TranslatableItem

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if p.skip(n) {
			return
		}

		switch n.Type {
		case html.TextNode:
			if utf8.RuneCountInString(strings.TrimSpace(n.Data)) >= mirrorlai.MinTextLength {
				items = append(items, TranslatableItem{
					Kind:   mirrorlai.KindText,
					Node:   n,
					Source: n.Data,
				})
			}
		case html.ElementNode:
			for _, name := range p.attributes {
				val, ok := attr(n, name)
				if !ok {
					continue
				}
				val = strings.TrimSpace(val)
				if utf8.RuneCountInString(val) > 1 {
					items = append(items, TranslatableItem{
						Kind:   mirrorlai.KindAttribute,
						Node:   n,
						Attr:   name,
						Source: val,
					})
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return items
}

// Apply writes translation into item if its node is still under root.
// Text nodes are replaced wholesale.
func (p *HTMLProcessor) Apply(root *html.Node, item TranslatableItem, translation string) bool {
	if item.Node == nil || !Attached(root, item.Node) {
		return false
	}

	switch item.Kind {
	case mirrorlai.KindAttribute:
		setAttr(item.Node, item.Attr, translation)
	default:
		item.Node.Data = translation
	}
	return true
}

// RewriteLinks points same-origin anchors at the public locale.
func (p *HTMLProcessor) RewriteLinks(root *html.Node) int {
	if p.paths.Public == "" {
		return 0
	}

	changed := 0
	goquery.NewDocumentFromNode(root).Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if next, ok := p.paths.NormalizeLink(href); ok && next != href {
			s.SetAttr("href", next)
			changed++
		}
	})
	return changed
}

// Describe returns a short description of where item sits in the document,
// for dry runs and debug logging.
func Describe(item TranslatableItem) string {
	n := item.Node
	if n == nil {
		return ""
	}
	if item.Kind == mirrorlai.KindAttribute {
		return fmt.Sprintf("<%s %s>", n.Data, item.Attr)
	}

	parent := n.Parent
	if parent == nil || parent.Type != html.ElementNode {
		return "text"
	}

	var parts []string
	if class, ok := attr(parent, "class"); ok && class != "" {
		parts = append(parts, fmt.Sprintf("in <%s class=%q>", parent.Data, class))
	} else if id, ok := attr(parent, "id"); ok && id != "" {
		parts = append(parts, fmt.Sprintf("in <%s id=%q>", parent.Data, id))
	} else {
		parts = append(parts, fmt.Sprintf("in <%s>", parent.Data))
	}

	// Up to 3 ancestors, outer to inner
	var ancestors []string
	for a, i := parent.Parent, 0; a != nil && i < 3; a, i = a.Parent, i+1 {
		if a.Type == html.ElementNode && a.Data != "html" && a.Data != "body" {
			ancestors = append([]string{a.Data}, ancestors...)
		}
	}
	if len(ancestors) > 0 {
		parts = append(parts, "inside: "+strings.Join(ancestors, " > "))
	}

	return strings.Join(parts, " | ")
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Verify HTMLProcessor implements ContentProcessor
var _ ContentProcessor = (*HTMLProcessor)(nil)
