package rewrite

import (
	"io"
	"runtime"
	"strings"
	"testing"
	"testing/iotest"
	"time"
)

func testRules() Rules {
	return Rules{
		Replacements: []Replacement{
			{Pattern: `krivitskiy`, With: "MRZ LEGAL"},
			{Pattern: `\+7\s*977\s*820-00-01`, With: "+506 2278 0392"},
			{Pattern: `pravo@\s*mrz\s*legal\.com`, With: "info@mrzlegal.com"},
		},
		LinkLabels: []Replacement{
			{Pattern: `\bRUS\b`, With: "ES"},
			{Pattern: `Russian`, With: "Spanish"},
		},
		LocaleFrom: "ru",
		LocaleTo:   "es",
		MapCoords:  "9.8455,-83.9649",
		HeadHTML:   `<style id="mirror-overrides">body{}</style>`,
		BodyHTML:   `<div id="pseudo-scroll"></div>`,
		BodyClasses: []BodyClass{
			{Path: `/contacts/?$`, Class: "mirror-contacts"},
			{Path: `^/es/?$`, Class: "mirror-home"},
		},
	}
}

func mustRewrite(t *testing.T, src string, page PageInfo) string {
	t.Helper()
	r, err := New(testRules())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	out, err := r.String(src, page)
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	return out
}

func TestRewrite_TextReplacements(t *testing.T) {
	src := `<html><head><title>Krivitskiy law</title><meta name="description" content="KRIVITSKIY bureau"></head>` +
		`<body><p>Call +7 977 820-00-01 or pravo@mrz legal.com</p><img alt="krivitskiy logo"></body></html>`

	out := mustRewrite(t, src, PageInfo{Path: "/es/about"})

	for _, want := range []string{
		"<title>MRZ LEGAL law</title>",
		`content="MRZ LEGAL bureau"`,
		"Call +506 2278 0392 or info@mrzlegal.com",
		`alt="MRZ LEGAL logo"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestRewrite_ScriptsUntouched(t *testing.T) {
	src := `<head><script>var who = "krivitskiy";</script><style>.krivitskiy{}</style></head>`

	out := mustRewrite(t, src, PageInfo{})

	if !strings.Contains(out, `var who = "krivitskiy";`) || !strings.Contains(out, ".krivitskiy{}") {
		t.Errorf("script and style bodies must pass through, got:\n%s", out)
	}
}

func TestRewrite_LocaleLinks(t *testing.T) {
	src := `<head><link rel="alternate" hreflang="ru-RU" href="https://site.example/ru/page"></head>` +
		`<body><a href="/ru/">RUS</a><a href="/ru?x=1">Russian</a><a href="/en/?lang=RU" data-lang="ru">EN</a>` +
		`<a href="/rules/">Rules</a><p>RUS stays outside links</p></body>`

	out := mustRewrite(t, src, PageInfo{})

	for _, want := range []string{
		`hreflang="es"`,
		`href="https://site.example/es/page"`,
		`<a href="/es/">ES</a>`,
		`<a href="/es?x=1">Spanish</a>`,
		`href="/en/?lang=es"`,
		`data-lang="es"`,
		`<a href="/rules/">Rules</a>`,
		`<p>RUS stays outside links</p>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestRewrite_MapCoordinates(t *testing.T) {
	src := `<body><iframe src="https://maps.example/maps?q=55.78,37.59&z=15"></iframe>` +
		`<div style="background:url(https://maps.example/static?center=55.78,37.59&markers=55.7,37.5)"></div></body>`

	out := mustRewrite(t, src, PageInfo{})

	if !strings.Contains(out, "maps?q=9.8455,-83.9649") {
		t.Errorf("iframe coordinates not replaced:\n%s", out)
	}
	if !strings.Contains(out, "center=9.8455,-83.9649") || !strings.Contains(out, "markers=9.8455,-83.9649") {
		t.Errorf("style coordinates not replaced:\n%s", out)
	}
}

func TestRewrite_Injection(t *testing.T) {
	src := `<html><head><title>x</title></head><body><p>hi</p></body></html>`

	out := mustRewrite(t, src, PageInfo{})

	if !strings.Contains(out, `<style id="mirror-overrides">body{}</style></head>`) {
		t.Errorf("head snippet missing:\n%s", out)
	}
	if !strings.Contains(out, `<div id="pseudo-scroll"></div></body>`) {
		t.Errorf("body snippet missing:\n%s", out)
	}
}

func TestRewrite_InjectionIdempotent(t *testing.T) {
	src := `<html><head><title>x</title></head><body><p>hi</p></body></html>`

	once := mustRewrite(t, src, PageInfo{Path: "/es/"})
	twice := mustRewrite(t, once, PageInfo{Path: "/es/"})

	if once != twice {
		t.Errorf("rewriting twice changed the output:\nonce:  %s\ntwice: %s", once, twice)
	}
	if strings.Count(twice, `id="mirror-overrides"`) != 1 {
		t.Errorf("head snippet injected more than once:\n%s", twice)
	}
}

func TestRewrite_BodyClasses(t *testing.T) {
	tests := []struct {
		path string
		src  string
		want string
	}{
		{"/es/contacts/", `<body><p>x</p></body>`, `<body class="mirror-contacts">`},
		{"/es/contacts", `<body class="dark"><p>x</p></body>`, `<body class="dark mirror-contacts">`},
		{"/es/", `<body class="dark"><p>x</p></body>`, `<body class="dark mirror-home">`},
		{"/es/about", `<body class="dark"><p>x</p></body>`, `<body class="dark">`},
	}

	for _, tt := range tests {
		out := mustRewrite(t, tt.src, PageInfo{Path: tt.path})
		if !strings.Contains(out, tt.want) {
			t.Errorf("%s: expected %q in %s", tt.path, tt.want, out)
		}
	}
}

func TestRewrite_UnchangedTagsKeepRawBytes(t *testing.T) {
	src := `<DIV  class='a'   data-x=1><p>plain</p></DIV>`

	r, err := New(Rules{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := r.String(src, PageInfo{})
	if err != nil {
		t.Fatal(err)
	}
	if out != src {
		t.Errorf("expected byte-identical passthrough, got %q", out)
	}
}

func TestRewrite_StreamsSmallReads(t *testing.T) {
	src := `<html><head></head><body><p>krivitskiy</p><a href="/ru/">RUS</a></body></html>`

	r, err := New(testRules())
	if err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(r.Reader(iotest.OneByteReader(strings.NewReader(src)), PageInfo{}))
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	want := mustRewrite(t, src, PageInfo{})
	if string(out) != want {
		t.Errorf("stream output differs:\nstream: %s\nstring: %s", out, want)
	}
}

func TestRewrite_SourceError(t *testing.T) {
	r, err := New(Rules{})
	if err != nil {
		t.Fatal(err)
	}
	src := io.MultiReader(strings.NewReader("<p>partial"), iotest.ErrReader(io.ErrUnexpectedEOF))

	_, err = io.ReadAll(r.Reader(src, PageInfo{}))
	if err != io.ErrUnexpectedEOF {
		t.Errorf("expected source error, got %v", err)
	}
}

func TestRewrite_CloseStopsStream(t *testing.T) {
	r, err := New(testRules())
	if err != nil {
		t.Fatal(err)
	}
	page := "<html><body>" + strings.Repeat("<p>krivitskiy paragraph</p>", 20000) + "</body></html>"

	before := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		rc := r.Reader(strings.NewReader(page), PageInfo{})
		buf := make([]byte, 100)
		if _, err := io.ReadFull(rc, buf); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if err := rc.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if after := runtime.NumGoroutine(); after > before {
		t.Errorf("closed readers left %d rewrite goroutines running", after-before)
	}
}

func TestRewrite_ReadAfterClose(t *testing.T) {
	r, err := New(Rules{})
	if err != nil {
		t.Fatal(err)
	}
	rc := r.Reader(strings.NewReader("<p>hello</p>"), PageInfo{})
	rc.Close()

	if _, err := rc.Read(make([]byte, 8)); err != io.ErrClosedPipe {
		t.Errorf("expected io.ErrClosedPipe after Close, got %v", err)
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	if _, err := New(Rules{Replacements: []Replacement{{Pattern: "(", With: "x"}}}); err == nil {
		t.Error("expected error for invalid pattern")
	}
	if _, err := New(Rules{BodyClasses: []BodyClass{{Path: "[", Class: "x"}}}); err == nil {
		t.Error("expected error for invalid body class path")
	}
}
