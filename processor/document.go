package processor

import (
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/mirrorlai"
	"golang.org/x/net/html"
)

// Document is a live HTML document shared between its owner, which changes
// it through Mutate or Replace, and translation pipelines, which read and
// patch it through Edit.
//
// Observers are told about every owner change, never about pipeline edits,
// so a pipeline's own writes do not schedule another pass.
type Document struct {
	mu        sync.Mutex
	doc       *goquery.Document
	observers []func()
	obsMu     sync.Mutex
}

// NewDocument parses r into a Document.
func NewDocument(r io.Reader) (*Document, error) {
	doc, err := parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc}, nil
}

// ParseDocument parses an HTML string into a Document.
func ParseDocument(content string) (*Document, error) {
	return NewDocument(strings.NewReader(content))
}

func parse(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &mirrorlai.ProcessorError{
			Message:     "failed to parse HTML",
			Cause:       err,
			ContentType: "html",
		}
	}
	return doc, nil
}

// Edit runs fn with exclusive access to the tree.
func (d *Document) Edit(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.doc.Nodes[0])
}

// Mutate runs fn with exclusive access to the tree and then notifies
// observers.
func (d *Document) Mutate(fn func(root *html.Node)) {
	d.Edit(fn)
	d.notify()
}

// Replace swaps the whole tree for a fresh parse of r. Nodes of the old tree
// become detached, so in-flight translations for them are dropped.
func (d *Document) Replace(r io.Reader) error {
	doc, err := parse(r)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.doc = doc
	d.mu.Unlock()
	d.notify()
	return nil
}

// Observe registers fn to be called after every Mutate or Replace.
func (d *Document) Observe(fn func()) {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	d.observers = append(d.observers, fn)
}

func (d *Document) notify() {
	d.obsMu.Lock()
	observers := append([]func(){}, d.observers...)
	d.obsMu.Unlock()
	for _, fn := range observers {
		fn()
	}
}

// Contains reports whether n is part of the current tree.
func (d *Document) Contains(n *html.Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Attached(d.doc.Nodes[0], n)
}

// Render serializes the current tree.
func (d *Document) Render() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out, err := d.doc.Html()
	if err != nil {
		return "", &mirrorlai.ProcessorError{
			Message:     "failed to serialize HTML",
			Cause:       err,
			ContentType: "html",
		}
	}
	return out, nil
}

// SetLanguage sets the lang and dir attributes of the <html> element.
func (d *Document) SetLanguage(lang string) {
	d.Edit(func(root *html.Node) {
		sel := goquery.NewDocumentFromNode(root).Find("html")
		sel.SetAttr("lang", mirrorlai.ToHTMLLang(lang))
		sel.SetAttr("dir", mirrorlai.GetDirection(lang))
	})
}

var _ mirrorlai.Document = (*Document)(nil)
