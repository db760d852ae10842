package main

import (
	"errors"
	"fmt"

	"github.com/ZaguanLabs/mirrorlai"
	"github.com/ZaguanLabs/mirrorlai/cache"
	"github.com/ZaguanLabs/mirrorlai/config"
	"github.com/ZaguanLabs/mirrorlai/logger"
	"github.com/ZaguanLabs/mirrorlai/processor"
	"github.com/ZaguanLabs/mirrorlai/provider"
	"github.com/ZaguanLabs/mirrorlai/proxy"
	"github.com/spf13/cobra"
)

var errNoBackend = errors.New("no translation backend: pass --endpoint or --backend, or set DEEPL_API_KEY / OPENAI_API_KEY")

// pipelineFlags are shared by the commands that run the pipeline locally.
type pipelineFlags struct {
	lang     string
	source   string
	endpoint string
	backend  string
	cacheIn  string
	cacheOut string
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.lang, "lang", "l", "", "target language (default: locale.target)")
	cmd.Flags().StringVar(&f.source, "source", "", "source language (default: locale.source)")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "translation endpoint URL of a running mirror")
	cmd.Flags().StringVar(&f.backend, "backend", "", "call a backend directly: deepl, openai or mock")
	cmd.Flags().StringVar(&f.cacheIn, "cache-in", "", "seed the cache from an exported JSON file")
	cmd.Flags().StringVar(&f.cacheOut, "cache-out", "", "export the cache to a JSON file when done")
}

// load reads the configuration and applies the language flags.
func (f *pipelineFlags) load(root *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return nil, err
	}
	if f.lang != "" {
		cfg.Locale.Target = f.lang
	}
	if f.source != "" {
		cfg.Locale.Source = f.source
	}
	if f.backend != "" {
		cfg.Translation.Backend = f.backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// client returns the batch translator: the remote endpoint when one is
// given, else the configured backend called in-process.
func (f *pipelineFlags) client(cfg *config.Config) (mirrorlai.BatchTranslator, error) {
	if f.endpoint != "" {
		return provider.NewRemoteClient(provider.RemoteConfig{Endpoint: f.endpoint}), nil
	}

	backend, err := proxy.NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, errNoBackend
	}
	t := cfg.Translation
	return mirrorlai.NewProviderTranslator(backend, mirrorlai.TranslateRequest{
		TargetLang:    cfg.Locale.Target,
		SourceLang:    cfg.Locale.Source,
		ExcludedTerms: t.ExcludedTerms,
		Context:       t.Context,
		Glossary:      t.Glossary,
	}), nil
}

// cache returns an in-process cache, seeded from --cache-in when given.
func (f *pipelineFlags) cache(cfg *config.Config) (*cache.InMemoryCache, error) {
	c := cache.NewInMemoryCache(cfg.Translation.CacheTTL)
	if f.cacheIn == "" {
		return c, nil
	}
	res, err := cache.NewImporter(c).ImportFromFile(f.cacheIn)
	if err != nil {
		return nil, fmt.Errorf("importing cache: %w", err)
	}
	logger.Debug("imported %d cache entries from %s", res.Imported, f.cacheIn)
	return c, nil
}

// saveCache writes c to --cache-out when given.
func (f *pipelineFlags) saveCache(c *cache.InMemoryCache, cfg *config.Config) error {
	if f.cacheOut == "" {
		return nil
	}
	meta := map[string]string{
		"target_lang": cfg.Locale.Target,
		"source_lang": cfg.Locale.Source,
	}
	if err := cache.NewExporter(c).ExportToFile(f.cacheOut, meta); err != nil {
		return fmt.Errorf("exporting cache: %w", err)
	}
	logger.Debug("exported %d cache entries to %s", c.Len(), f.cacheOut)
	return nil
}

// newProcessor builds the collector for cfg's locale paths.
func newProcessor(cfg *config.Config) *processor.HTMLProcessor {
	return processor.NewHTMLProcessor(processor.WithLocalePaths(cfg.Locale.Public, cfg.Locale.Upstream))
}
