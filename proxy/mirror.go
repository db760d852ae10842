package proxy

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ZaguanLabs/mirrorlai"
	"github.com/ZaguanLabs/mirrorlai/rewrite"
	"github.com/gin-gonic/gin"
)

// maxPageBytes bounds a page read into memory for server-side translation.
const maxPageBytes = 8 << 20

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// asset proxies static upstream files with a long cache lifetime.
func (s *Server) asset(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Server.FetchTimeout)
	defer cancel()

	resp, err := s.fetch(ctx, c.Request, c.Request.URL.Path)
	if err != nil {
		requestLog(c).Warn("asset fetch failed: %v", err)
		c.String(http.StatusBadGateway, "Upstream unavailable.")
		return
	}
	defer resp.Body.Close()

	copyHeaders(c.Writer.Header(), resp.Header)
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.cfg.Server.AssetMaxAge.Seconds())))
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		requestLog(c).Debug("asset copy interrupted: %v", err)
	}
}

// mirror serves every path without a dedicated route.
func (s *Server) mirror(c *gin.Context) {
	req := c.Request
	log := requestLog(c)
	locale := s.paths.Matches(req.URL.Path)
	readOnly := req.Method == http.MethodGet || req.Method == http.MethodHead

	ctx, cancel := context.WithTimeout(req.Context(), s.cfg.Server.FetchTimeout)
	defer cancel()

	resp, err := s.fetch(ctx, req, s.paths.ToUpstream(req.URL.Path))
	if err == nil && locale && readOnly &&
		(resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone) {
		log.Debug("upstream %d for %s, falling back to %s", resp.StatusCode, req.URL.Path, s.paths.UpstreamHome())
		resp.Body.Close()
		resp, err = s.fetch(ctx, req, s.paths.UpstreamHome())
	}
	if err != nil {
		log.Warn("upstream fetch failed: %v", err)
		s.unavailable(c, locale)
		return
	}
	defer resp.Body.Close()

	isHTML := strings.Contains(resp.Header.Get("Content-Type"), "text/html")
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300 && isHTML:
		s.serveHTML(c, resp, locale)
	case resp.StatusCode >= 500:
		log.Warn("upstream answered %d", resp.StatusCode)
		s.unavailable(c, locale)
	default:
		s.passthrough(c, resp, locale)
	}
}

// fetch sends req to upstream at path, keeping the query and body.
func (s *Server) fetch(ctx context.Context, in *http.Request, path string) (*http.Response, error) {
	target := *s.upstream
	target.Path = path
	target.RawPath = ""
	target.RawQuery = in.URL.RawQuery

	var body io.Reader
	if in.Method != http.MethodGet && in.Method != http.MethodHead {
		body = in.Body
	}
	out, err := http.NewRequestWithContext(ctx, in.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	copyHeaders(out.Header, in.Header)
	// The transport negotiates compression itself so HTML arrives decoded
	out.Header.Del("Accept-Encoding")
	out.Header.Del("Content-Length")
	out.Host = s.upstream.Host
	if body != nil {
		out.ContentLength = in.ContentLength
	}

	return s.client.Do(out)
}

// serveHTML streams a successful HTML response through the rewriter and,
// for locale pages in server mode, the translator.
func (s *Server) serveHTML(c *gin.Context, resp *http.Response, locale bool) {
	log := requestLog(c)
	h := c.Writer.Header()
	copyHeaders(h, resp.Header)
	h.Del("Content-Length")
	h.Set("Cache-Control", "no-store")
	h.Set("X-Mirror-Rewrite", "1")

	rw := s.site
	if locale {
		rw = s.localized
		h.Set("Content-Language", mirrorlai.BaseLang(s.cfg.Locale.Target))
		h.Set("X-Translation", s.mode())
	}
	if c.Request.Method == http.MethodHead {
		c.Status(resp.StatusCode)
		return
	}

	stream := rw.Reader(resp.Body, rewrite.PageInfo{Path: c.Request.URL.Path})
	defer stream.Close()
	contentType := resp.Header.Get("Content-Type")

	if locale && s.pages != nil {
		data, err := io.ReadAll(io.LimitReader(stream, s.maxPage+1))
		if err != nil {
			log.Warn("reading upstream page: %v", err)
			s.unavailable(c, locale)
			return
		}
		if int64(len(data)) > s.maxPage {
			// Too large to translate: stream the rest untranslated and
			// keep it out of the snapshots.
			log.Warn("page exceeds %d bytes, serving it untranslated", s.maxPage)
			h.Set("X-Translation", "none")
			c.Status(resp.StatusCode)
			if _, err := io.Copy(c.Writer, io.MultiReader(bytes.NewReader(data), stream)); err != nil {
				log.Warn("streaming page interrupted: %v", err)
			}
			return
		}
		page := string(data)
		result, err := s.translatePage(c.Request.Context(), page)
		if err != nil {
			log.Warn("translating page: %v", err)
			h.Set("X-Translation", "none")
		} else {
			page = result.Content
			log.Debug("translated page: %d nodes, %d cached, %d translated, %d failed",
				result.TotalNodes, result.CachedCount, result.TranslatedCount, result.FailedCount)
		}
		s.remember(c.Request, contentType, []byte(page))
		c.Data(resp.StatusCode, contentType, []byte(page))
		return
	}

	var buf bytes.Buffer
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, io.TeeReader(stream, &buf)); err != nil {
		log.Warn("streaming page interrupted: %v", err)
		return
	}
	s.remember(c.Request, contentType, buf.Bytes())
}

// passthrough relays any other upstream response, keeping redirects inside
// the mirror.
func (s *Server) passthrough(c *gin.Context, resp *http.Response, locale bool) {
	copyHeaders(c.Writer.Header(), resp.Header)
	if loc := resp.Header.Get("Location"); loc != "" {
		c.Header("Location", s.rewriteLocation(loc, locale))
	}
	c.Status(resp.StatusCode)
	if c.Request.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		requestLog(c).Debug("passthrough copy interrupted: %v", err)
	}
}

// rewriteLocation turns upstream-absolute redirects into mirror-relative
// ones and, for locale pages, moves them back into the locale.
func (s *Server) rewriteLocation(loc string, locale bool) string {
	u, err := url.Parse(loc)
	if err != nil {
		return loc
	}
	if u.IsAbs() {
		if !strings.EqualFold(u.Host, s.upstream.Host) {
			return loc
		}
		u.Scheme, u.Host = "", ""
		loc = u.String()
	}
	if locale {
		loc, _ = s.paths.NormalizeLink(loc)
	}
	return loc
}

// unavailable answers when upstream cannot serve the page: HTML requests
// get the last good copy or a fallback page, anything else a 502.
func (s *Server) unavailable(c *gin.Context, locale bool) {
	if !isHTMLRequest(c.Request) {
		c.String(http.StatusBadGateway, "Upstream unavailable.")
		return
	}

	c.Header("Cache-Control", "no-store")
	if snap, ok := s.snapshots.Get(snapshotKey(c.Request)); ok {
		c.Header("X-Mirror-Snapshot", "1")
		c.Data(http.StatusOK, snap.contentType, snap.body)
		return
	}

	page := fallbackPage(c.Request.URL.Path, s.homeFor(locale))
	if locale && s.pages != nil {
		if result, err := s.translatePage(c.Request.Context(), page); err == nil {
			page = result.Content
		}
	}
	c.Header("X-Mirror-Fallback", "1")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (s *Server) homeFor(locale bool) string {
	if locale {
		return s.paths.Home()
	}
	return s.paths.UpstreamHome()
}

// remember stores a page as the last good copy for its URL.
func (s *Server) remember(r *http.Request, contentType string, body []byte) {
	if r.Method != http.MethodGet || len(body) == 0 {
		return
	}
	s.snapshots.Set(snapshotKey(r), snapshot{contentType: contentType, body: bytes.Clone(body)})
}

func snapshotKey(r *http.Request) string {
	return r.URL.RequestURI()
}

// isHTMLRequest reports whether a browser is asking for a page.
func isHTMLRequest(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}

func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
	for _, k := range hopHeaders {
		dst.Del(k)
	}
}

func fallbackPage(path, home string) string {
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Temporarily unavailable</title>
</head>
<body class="mirror-fallback">
<h1>We are having trouble loading this page</h1>
<p>The upstream site is currently overloaded, so this page cannot be displayed right now.</p>
<p><a href="%s">Back to home</a></p>
<p class="small">Requested path: %s</p>
</body>
</html>
`, html.EscapeString(home), html.EscapeString(path))
}
