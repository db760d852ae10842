// Package config loads the mirrorlai configuration.
//
// Settings come from three layers, later ones winning: built-in defaults, an
// optional YAML file and a handful of environment variables for secrets and
// deployment-specific addresses.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ZaguanLabs/mirrorlai"
	"github.com/ZaguanLabs/mirrorlai/rewrite"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up when no path is given.
const DefaultFileName = "mirrorlai.yaml"

// Translation modes.
const (
	ModeServer = "server" // Translate locale pages inside the proxy
	ModeClient = "client" // Inject the client script and serve /api/translate
	ModeOff    = "off"    // Serve the mirror untranslated
)

// Translation backends.
const (
	BackendDeepL  = "deepl"
	BackendOpenAI = "openai"
	BackendMock   = "mock"
	BackendNone   = "none"
)

// Config is the top-level mirrorlai.yaml structure.
type Config struct {
	Server      Server        `yaml:"server"`
	Locale      Locale        `yaml:"locale"`
	Translation Translation   `yaml:"translation"`
	Rewrite     rewrite.Rules `yaml:"rewrite"`
}

// Server configures the listener and the upstream site.
type Server struct {
	Listen       string        `yaml:"listen"`
	Upstream     string        `yaml:"upstream"`      // Origin of the mirrored site, e.g. "https://site.example"
	FetchTimeout time.Duration `yaml:"fetch_timeout"` // Bound on every upstream fetch
	AssetPrefix  string        `yaml:"asset_prefix"`  // Paths proxied verbatim with a long cache lifetime
	AssetMaxAge  time.Duration `yaml:"asset_max_age"`
	SnapshotTTL  time.Duration `yaml:"snapshot_ttl"` // Lifetime of last-good page copies
	StaticDir    string        `yaml:"static_dir"`   // Served under /static/ when set
}

// Locale maps the mirror's public locale onto the upstream one.
type Locale struct {
	Public   string `yaml:"public"`   // Path prefix served by the mirror, e.g. "es"
	Upstream string `yaml:"upstream"` // Path prefix fetched from upstream, e.g. "en"
	Target   string `yaml:"target"`   // Translation target, e.g. "es_ES"
	Source   string `yaml:"source"`
}

// Translation configures the pipeline, the endpoint and the backend.
type Translation struct {
	Mode    string `yaml:"mode"`
	Backend string `yaml:"backend"`

	DeepLKey    string `yaml:"deepl_key"`
	OpenAIKey   string `yaml:"openai_key"`
	OpenAIModel string `yaml:"openai_model"`

	Context       string            `yaml:"context"`
	Glossary      map[string]string `yaml:"glossary"`
	ExcludedTerms []string          `yaml:"excluded_terms"`

	MaxItems int           `yaml:"max_items"`
	MaxChars int           `yaml:"max_chars"`
	Debounce time.Duration `yaml:"debounce"`

	ServerMaxStrings int `yaml:"server_max_strings"`
	ServerMaxChars   int `yaml:"server_max_chars"`

	CacheTTL time.Duration `yaml:"cache_ttl"`
	RedisURL string        `yaml:"redis_url"`

	RequestsPerMinute int `yaml:"requests_per_minute"`
	Retries           int `yaml:"retries"`

	// ClientScript is injected before </body> of locale pages in client mode.
	ClientScript string `yaml:"client_script"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			Listen:       ":8787",
			FetchTimeout: 20 * time.Second,
			AssetPrefix:  "/i/",
			AssetMaxAge:  24 * time.Hour,
			SnapshotTTL:  24 * time.Hour,
		},
		Locale: Locale{
			Public:   "es",
			Upstream: "en",
			Target:   "es_ES",
			Source:   "en",
		},
		Translation: Translation{
			Mode:              ModeServer,
			OpenAIModel:       "gpt-4o-mini",
			MaxItems:          mirrorlai.MaxBatchItems,
			MaxChars:          mirrorlai.MaxBatchChars,
			Debounce:          mirrorlai.DefaultDebounce,
			ServerMaxStrings:  mirrorlai.ServerMaxStrings,
			ServerMaxChars:    mirrorlai.ServerMaxChars,
			CacheTTL:          7 * 24 * time.Hour,
			RequestsPerMinute: 60,
			Retries:           2,
			ClientScript:      `<script id="mirror-translate" src="/static/es-translate.js" defer></script>`,
		},
		Rewrite: rewrite.Rules{
			LocaleFrom: "ru",
			LocaleTo:   "es",
			BodyHTML:   `<div id="pseudo-scroll"></div>`,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path means DefaultFileName; a missing file
// leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultFileName
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv overrides addresses and secrets from the environment.
func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Listen = ":" + port
	}
	if v := os.Getenv("MIRRORLAI_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("MIRRORLAI_UPSTREAM"); v != "" {
		c.Server.Upstream = v
	}
	if v := os.Getenv("DEEPL_API_KEY"); v != "" {
		c.Translation.DeepLKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Translation.OpenAIKey = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Translation.RedisURL = v
	}
}

// Validate normalizes locale codes and checks that the settings are usable.
func (c *Config) Validate() error {
	var err error
	if c.Server.Upstream != "" {
		u, perr := url.Parse(c.Server.Upstream)
		if perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("server.upstream %q must be an absolute http(s) URL", c.Server.Upstream)
		}
		c.Server.Upstream = strings.TrimSuffix(c.Server.Upstream, "/")
	}

	if c.Server.FetchTimeout <= 0 {
		return fmt.Errorf("server.fetch_timeout must be positive")
	}
	if !strings.HasPrefix(c.Server.AssetPrefix, "/") {
		return fmt.Errorf("server.asset_prefix %q must start with /", c.Server.AssetPrefix)
	}

	if c.Locale.Public == "" || c.Locale.Upstream == "" {
		return fmt.Errorf("locale.public and locale.upstream are required")
	}
	if strings.Contains(c.Locale.Public, "/") || strings.Contains(c.Locale.Upstream, "/") {
		return fmt.Errorf("locale prefixes must be single path segments")
	}
	if c.Locale.Target, err = mirrorlai.ParseLocale(c.Locale.Target); err != nil {
		return fmt.Errorf("locale.target: %w", err)
	}
	if c.Locale.Source, err = mirrorlai.ParseLocale(c.Locale.Source); err != nil {
		return fmt.Errorf("locale.source: %w", err)
	}

	switch c.Translation.Mode {
	case ModeServer, ModeClient, ModeOff:
	default:
		return fmt.Errorf("translation.mode %q must be one of server, client, off", c.Translation.Mode)
	}
	switch c.Translation.Backend {
	case "", BackendDeepL, BackendOpenAI, BackendMock, BackendNone:
	default:
		return fmt.Errorf("translation.backend %q is not supported", c.Translation.Backend)
	}
	if c.Translation.MaxItems <= 0 || c.Translation.MaxChars <= 0 {
		return fmt.Errorf("translation.max_items and translation.max_chars must be positive")
	}
	if c.Translation.ServerMaxStrings <= 0 || c.Translation.ServerMaxChars <= 0 {
		return fmt.Errorf("translation.server_max_strings and translation.server_max_chars must be positive")
	}
	return nil
}

// ResolvedBackend returns the backend to use. Without an explicit choice it
// picks DeepL when a DeepL key is set, then OpenAI, else none.
func (t Translation) ResolvedBackend() string {
	if t.Backend != "" {
		return t.Backend
	}
	switch {
	case t.DeepLKey != "":
		return BackendDeepL
	case t.OpenAIKey != "":
		return BackendOpenAI
	}
	return BackendNone
}

// BatchLimits returns the pipeline's per-request limits.
func (t Translation) BatchLimits() mirrorlai.BatchLimits {
	return mirrorlai.BatchLimits{MaxItems: t.MaxItems, MaxChars: t.MaxChars}
}

// LocalePaths returns the public→upstream path mapping.
func (l Locale) LocalePaths() mirrorlai.LocalePaths {
	return mirrorlai.LocalePaths{Public: l.Public, Upstream: l.Upstream}
}
