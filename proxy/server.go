// Package proxy serves the locale mirror: it fetches pages from the upstream
// site, rewrites them on the way through, translates the mirror's locale and
// exposes the batch translation endpoint used by the client script.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ZaguanLabs/mirrorlai"
	"github.com/ZaguanLabs/mirrorlai/cache"
	"github.com/ZaguanLabs/mirrorlai/config"
	"github.com/ZaguanLabs/mirrorlai/logger"
	"github.com/ZaguanLabs/mirrorlai/processor"
	"github.com/ZaguanLabs/mirrorlai/provider"
	"github.com/ZaguanLabs/mirrorlai/rewrite"
	"github.com/gin-gonic/gin"
)

// Options wires a Server's collaborators.
type Options struct {
	Config *config.Config

	// Backend answers /api/translate and server-side translation. Nil
	// disables both.
	Backend mirrorlai.AIProvider

	// Cache is the shared translation cache. Nil uses an in-process cache.
	Cache mirrorlai.TranslationCache

	// Client fetches upstream pages. It must not follow redirects; nil gets
	// such a client.
	Client *http.Client
}

// Server is the mirror's HTTP handler.
type Server struct {
	cfg      *config.Config
	engine   *gin.Engine
	upstream *url.URL
	client   *http.Client
	paths    mirrorlai.LocalePaths

	backend    mirrorlai.AIProvider
	cache      mirrorlai.TranslationCache
	pages      *cache.InMemoryCache // server-side translation cache, nil otherwise
	processor  *processor.HTMLProcessor
	maxPage    int64 // largest page translated server-side

	site      *rewrite.Rewriter // pages outside the locale
	localized *rewrite.Rewriter // locale pages
	snapshots *cache.Memory[snapshot]
}

// snapshot is the last good rewritten copy of a page.
type snapshot struct {
	contentType string
	body        []byte
}

// New builds a Server from opts.
func New(opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("proxy: config is required")
	}
	if cfg.Server.Upstream == "" {
		return nil, errors.New("proxy: server.upstream is required")
	}
	upstream, err := url.Parse(cfg.Server.Upstream)
	if err != nil {
		return nil, fmt.Errorf("proxy: upstream: %w", err)
	}

	site, err := rewrite.New(cfg.Rewrite)
	if err != nil {
		return nil, fmt.Errorf("proxy: rewrite rules: %w", err)
	}
	localeRules := cfg.Rewrite
	if cfg.Translation.Mode == config.ModeClient {
		localeRules.BodyHTML = cfg.Translation.ClientScript + localeRules.BodyHTML
	}
	localized, err := rewrite.New(localeRules)
	if err != nil {
		return nil, fmt.Errorf("proxy: rewrite rules: %w", err)
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	tc := opts.Cache
	if tc == nil {
		tc = cache.NewInMemoryCache(cfg.Translation.CacheTTL)
	}

	s := &Server{
		cfg:       cfg,
		upstream:  upstream,
		client:    client,
		paths:     cfg.Locale.LocalePaths(),
		backend:   opts.Backend,
		cache:     tc,
		site:      site,
		localized: localized,
		snapshots: cache.NewMemory[snapshot](cfg.Server.SnapshotTTL),
		maxPage:   maxPageBytes,
	}

	if cfg.Translation.Mode == config.ModeServer && s.backend != nil {
		// Entries never expire so a source keeps its first translation for
		// the life of the process.
		s.pages = cache.NewInMemoryCache(0)
		s.processor = processor.NewHTMLProcessor(
			processor.WithLocalePaths(s.paths.Public, s.paths.Upstream),
		)
	}

	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.Use(gin.Recovery(), requestID())

	r.GET("/api/health", s.health)
	r.POST(provider.DefaultEndpointPath, s.translate)

	home := s.paths.Home()
	r.GET("/", redirectTo(home))
	r.GET("/"+s.paths.Public, redirectTo(home))

	if s.cfg.Server.StaticDir != "" {
		r.Static("/static", s.cfg.Server.StaticDir)
	}

	r.Any(strings.TrimSuffix(s.cfg.Server.AssetPrefix, "/")+"/*path", s.asset)
	r.NoRoute(s.mirror)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mirroring %s on %s (locale /%s/ → /%s/, translation %s)",
			s.cfg.Server.Upstream, srv.Addr, s.paths.Public, s.paths.Upstream, s.mode())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// translatePage runs one pipeline pass over page. Every call gets its own
// pending set over the shared cache, so concurrent requests for the same
// page each translate every string instead of skipping the other's.
func (s *Server) translatePage(ctx context.Context, page string) (*mirrorlai.ProcessedContent, error) {
	t := mirrorlai.NewTranslator(s.cfg.Locale.Target,
		mirrorlai.BatchTranslatorFunc(s.translateStrings),
		mirrorlai.WithSourceLang(s.cfg.Locale.Source),
		mirrorlai.WithState(mirrorlai.NewTranslationState(s.pages)),
		mirrorlai.WithLimits(s.cfg.Translation.BatchLimits()),
		mirrorlai.WithProcessor(s.processor),
	)
	return t.ProcessHTML(ctx, page)
}

// mode reports how locale pages are translated.
func (s *Server) mode() string {
	switch {
	case s.pages != nil:
		return config.ModeServer
	case s.cfg.Translation.Mode == config.ModeClient:
		return config.ModeClient
	}
	return config.ModeOff
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func redirectTo(location string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusFound, location)
	}
}
