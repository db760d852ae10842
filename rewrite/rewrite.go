package rewrite

import (
	"bufio"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PageInfo describes the page being rewritten.
type PageInfo struct {
	Path string // Public request path, used to select body classes
}

// Rewriter applies compiled Rules to HTML streams. It is safe for
// concurrent use; every stream keeps its own state.
type Rewriter struct {
	replacements []compiled
	linkLabels   []compiled
	locale       *localeLinks
	mapCoords    string
	headHTML     string
	headID       string
	bodyHTML     string
	bodyID       string
	bodyClasses  []bodyClass
}

// New compiles rules into a Rewriter.
func New(rules Rules) (*Rewriter, error) {
	replacements, err := compileAll(rules.Replacements)
	if err != nil {
		return nil, err
	}
	labels, err := compileAll(rules.LinkLabels)
	if err != nil {
		return nil, err
	}

	r := &Rewriter{
		replacements: replacements,
		linkLabels:   labels,
		locale:       newLocaleLinks(rules.LocaleFrom, rules.LocaleTo),
		mapCoords:    rules.MapCoords,
		headHTML:     rules.HeadHTML,
		headID:       firstID(rules.HeadHTML),
		bodyHTML:     rules.BodyHTML,
		bodyID:       firstID(rules.BodyHTML),
	}
	for _, bc := range rules.BodyClasses {
		re, err := compilePath(bc.Path)
		if err != nil {
			return nil, err
		}
		r.bodyClasses = append(r.bodyClasses, bodyClass{path: re, class: bc.Class})
	}
	return r, nil
}

// Reader returns the rewritten form of src. Output is produced while src is
// still being read; a read error from src surfaces from the returned reader.
// The caller must Close the reader; closing early stops the rewrite.
func (r *Rewriter) Reader(src io.Reader, page PageInfo) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(r.Rewrite(pw, src, page))
	}()
	return pr
}

// String rewrites a complete document.
func (r *Rewriter) String(src string, page PageInfo) (string, error) {
	var b strings.Builder
	if err := r.Rewrite(&b, strings.NewReader(src), page); err != nil {
		return "", err
	}
	return b.String(), nil
}

// stream holds the per-document state of one rewrite.
type stream struct {
	*Rewriter
	page     PageInfo
	w        *bufio.Writer
	rawText  bool // inside script or style
	anchors  int  // open <a> elements
	ids      map[string]bool
	injected map[atom.Atom]bool
	classed  bool
}

// Rewrite copies src to w, applying the rules.
func (r *Rewriter) Rewrite(w io.Writer, src io.Reader, page PageInfo) error {
	s := &stream{
		Rewriter: r,
		page:     page,
		w:        bufio.NewWriter(w),
		ids:      make(map[string]bool),
		injected: make(map[atom.Atom]bool),
	}

	z := html.NewTokenizer(src)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return err
			}
			return s.w.Flush()
		}

		raw := append([]byte(nil), z.Raw()...)
		var err error
		switch tt {
		case html.TextToken:
			err = s.text(raw)
		case html.StartTagToken, html.SelfClosingTagToken:
			err = s.startTag(raw, z.Token(), tt == html.SelfClosingTagToken)
		case html.EndTagToken:
			err = s.endTag(raw, z.Token())
		default:
			_, err = s.w.Write(raw)
		}
		if err != nil {
			return err
		}
		// Keep the client fed while the upstream trickles in
		if len(z.Buffered()) == 0 {
			if err := s.w.Flush(); err != nil {
				return err
			}
		}
	}
}

func (s *stream) text(raw []byte) error {
	if s.rawText {
		_, err := s.w.Write(raw)
		return err
	}
	text := replaceAll(s.replacements, string(raw))
	if s.anchors > 0 {
		text = replaceAll(s.linkLabels, text)
	}
	_, err := s.w.WriteString(text)
	return err
}

func (s *stream) startTag(raw []byte, tok html.Token, selfClosing bool) error {
	changed := false
	set := func(i int, v string) {
		if tok.Attr[i].Val != v {
			tok.Attr[i].Val = v
			changed = true
		}
	}

	for i, a := range tok.Attr {
		switch a.Key {
		case "id":
			s.ids[a.Val] = true
		case "title", "alt", "aria-label", "placeholder":
			set(i, replaceAll(s.replacements, a.Val))
		case "content":
			if tok.DataAtom == atom.Meta {
				set(i, replaceAll(s.replacements, a.Val))
			}
		case "href":
			if s.locale != nil && (tok.DataAtom == atom.A || tok.DataAtom == atom.Link) {
				set(i, s.locale.href(a.Val))
			}
		case "hreflang", "data-lang":
			if s.locale != nil {
				if v, ok := s.locale.lang(a.Val); ok {
					set(i, v)
				}
			}
		case "src":
			if tok.DataAtom == atom.Iframe && s.mapCoords != "" {
				set(i, s.mapURL(a.Val))
			}
		case "style":
			if s.mapCoords != "" {
				set(i, s.mapURL(a.Val))
			}
		}
	}

	if tok.DataAtom == atom.Body && !s.classed {
		s.classed = true
		if s.addBodyClasses(&tok) {
			changed = true
		}
	}

	if !selfClosing {
		switch tok.DataAtom {
		case atom.Script, atom.Style:
			s.rawText = true
		case atom.A:
			s.anchors++
		}
	}

	if !changed {
		_, err := s.w.Write(raw)
		return err
	}
	_, err := s.w.WriteString(tok.String())
	return err
}

func (s *stream) endTag(raw []byte, tok html.Token) error {
	switch tok.DataAtom {
	case atom.Script, atom.Style:
		s.rawText = false
	case atom.A:
		if s.anchors > 0 {
			s.anchors--
		}
	case atom.Head:
		if err := s.inject(atom.Head, s.headHTML, s.headID); err != nil {
			return err
		}
	case atom.Body:
		if err := s.inject(atom.Body, s.bodyHTML, s.bodyID); err != nil {
			return err
		}
	}
	_, err := s.w.Write(raw)
	return err
}

// inject writes snippet once per document, and not at all when an element
// with the snippet's id has already been seen.
func (s *stream) inject(at atom.Atom, snippet, id string) error {
	if snippet == "" || s.injected[at] || (id != "" && s.ids[id]) {
		return nil
	}
	s.injected[at] = true
	if id != "" {
		s.ids[id] = true
	}
	_, err := s.w.WriteString(snippet)
	return err
}

func (s *stream) addBodyClasses(tok *html.Token) bool {
	var add []string
	for _, bc := range s.bodyClasses {
		if bc.path.MatchString(s.page.Path) {
			add = append(add, bc.class)
		}
	}
	if len(add) == 0 {
		return false
	}

	for i, a := range tok.Attr {
		if a.Key != "class" {
			continue
		}
		classes := strings.Fields(a.Val)
		changed := false
		for _, c := range add {
			if !contains(classes, c) {
				classes = append(classes, c)
				changed = true
			}
		}
		tok.Attr[i].Val = strings.Join(classes, " ")
		return changed
	}
	tok.Attr = append(tok.Attr, html.Attribute{Key: "class", Val: strings.Join(add, " ")})
	return true
}

func (s *stream) mapURL(v string) string {
	return mapPairs.ReplaceAllString(v, "${1}"+s.mapCoords)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
