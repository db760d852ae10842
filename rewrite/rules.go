// Package rewrite patches upstream HTML while it streams to the client.
//
// A Rewriter walks the token stream once. It substitutes brand and contact
// text, moves language-switcher links to the mirror's locale, swaps map
// coordinates and injects head and body snippets. Nothing is buffered beyond
// the current token, so the first bytes reach the client before the
// upstream response has finished.
package rewrite

import (
	"fmt"
	"regexp"
	"strings"
)

// Replacement substitutes every case-insensitive match of Pattern with With.
type Replacement struct {
	Pattern string `yaml:"pattern"`
	With    string `yaml:"with"`
}

// BodyClass adds Class to <body> on pages whose path matches Path.
type BodyClass struct {
	Path  string `yaml:"path"`
	Class string `yaml:"class"`
}

// Rules configures a Rewriter.
type Rules struct {
	// Replacements apply to text, titles and human-readable attributes.
	Replacements []Replacement `yaml:"replacements"`

	// LinkLabels apply only to text inside <a>, e.g. "RU" → "ES".
	LinkLabels []Replacement `yaml:"link_labels"`

	// LocaleFrom and LocaleTo move upstream language links, e.g. "/ru/"
	// to "/es/", together with hreflang and data-lang values.
	LocaleFrom string `yaml:"locale_from"`
	LocaleTo   string `yaml:"locale_to"`

	// MapCoords replaces "lat,lng" pairs in map URLs of iframes and styles.
	MapCoords string `yaml:"map_coords"`

	HeadHTML    string      `yaml:"head_html"`
	BodyHTML    string      `yaml:"body_html"`
	BodyClasses []BodyClass `yaml:"body_classes"`
}

type compiled struct {
	re   *regexp.Regexp
	with string
}

func compileAll(list []Replacement) ([]compiled, error) {
	out := make([]compiled, 0, len(list))
	for _, r := range list {
		if r.Pattern == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("replacement %q: %w", r.Pattern, err)
		}
		out = append(out, compiled{re: re, with: r.With})
	}
	return out, nil
}

func replaceAll(list []compiled, s string) string {
	for _, c := range list {
		s = c.re.ReplaceAllLiteralString(s, c.with)
	}
	return s
}

type bodyClass struct {
	path  *regexp.Regexp
	class string
}

// localeLinks rewrites upstream language links to the mirror's locale.
type localeLinks struct {
	from, to string
	segment  *regexp.Regexp
	query    *regexp.Regexp
}

func newLocaleLinks(from, to string) *localeLinks {
	if from == "" || to == "" {
		return nil
	}
	q := regexp.QuoteMeta(from)
	return &localeLinks{
		from:    strings.ToLower(from),
		to:      to,
		segment: regexp.MustCompile(`/` + q + `(/|\?|$|\b)`),
		query:   regexp.MustCompile(`(?i)lang=` + q + `\b`),
	}
}

func (l *localeLinks) href(v string) string {
	v = l.segment.ReplaceAllString(v, "/"+l.to+"$1")
	return l.query.ReplaceAllLiteralString(v, "lang="+l.to)
}

// lang reports the replacement for an hreflang or data-lang value such as
// "ru" or "ru-RU".
func (l *localeLinks) lang(v string) (string, bool) {
	lv := strings.ToLower(v)
	if lv == l.from || strings.HasPrefix(lv, l.from+"-") {
		return l.to, true
	}
	return v, false
}

var mapPairs = regexp.MustCompile(`(?i)(maps\?q=|q=|center=|markers=)[0-9.\-]+,[0-9.\-]+`)

var snippetID = regexp.MustCompile(`\bid\s*=\s*["']([^"']+)["']`)

// firstID returns the id of the first element in snippet, if any.
func firstID(snippet string) string {
	if m := snippetID.FindStringSubmatch(snippet); m != nil {
		return m[1]
	}
	return ""
}

func compilePath(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("body class path %q: %w", pattern, err)
	}
	return re, nil
}
