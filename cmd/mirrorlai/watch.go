package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZaguanLabs/mirrorlai"
	"github.com/ZaguanLabs/mirrorlai/cache"
	"github.com/ZaguanLabs/mirrorlai/config"
	"github.com/ZaguanLabs/mirrorlai/logger"
	"github.com/ZaguanLabs/mirrorlai/processor"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	pipelineFlags
	output string
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Keep a translated copy of an HTML file up to date while it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output == "" {
				return errors.New("--output is required")
			}
			cfg, err := opts.load(root)
			if err != nil {
				return err
			}
			client, err := opts.client(cfg)
			if err != nil {
				return err
			}
			c, err := opts.cache(cfg)
			if err != nil {
				return err
			}

			w, err := newWatcher(cfg, args[0], opts.output, client, c)
			if err != nil {
				return err
			}
			if err := w.run(cmd.Context()); err != nil {
				return err
			}
			return opts.saveCache(c, cfg)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "file the translated document is written to")
	return cmd
}

// watcher keeps a live document in sync with its source file and writes a
// translated rendering after every pipeline run.
type watcher struct {
	input    string
	output   string
	lang     string
	doc      *processor.Document
	pipeline *mirrorlai.Pipeline
	sched    *mirrorlai.Scheduler

	// ran is signalled after every completed run.
	ran chan mirrorlai.RunStats
}

func newWatcher(cfg *config.Config, input, output string, client mirrorlai.BatchTranslator, c *cache.InMemoryCache) (*watcher, error) {
	data, err := os.ReadFile(input) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	doc, err := processor.NewDocument(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	w := &watcher{
		input:  input,
		output: output,
		lang:   cfg.Locale.Target,
		doc:    doc,
		pipeline: mirrorlai.NewPipeline(mirrorlai.NewTranslationState(c), newProcessor(cfg), client,
			mirrorlai.WithBatchLimits(cfg.Translation.BatchLimits())),
		ran: make(chan mirrorlai.RunStats, 1),
	}
	w.sched = mirrorlai.NewScheduler(cfg.Translation.Debounce, w.pass)
	doc.Observe(w.sched.Trigger)
	return w, nil
}

// pass runs the pipeline once and writes the result.
func (w *watcher) pass(ctx context.Context) {
	stats := w.pipeline.Run(ctx, w.doc)
	w.doc.SetLanguage(w.lang)

	out, err := w.doc.Render()
	if err != nil {
		logger.Error("rendering %s: %v", w.input, err)
		return
	}
	if err := os.WriteFile(w.output, []byte(out), 0o644); err != nil { // #nosec G306 - output is a public page
		logger.Error("writing %s: %v", w.output, err)
		return
	}
	logger.Info("wrote %s: %d items, %d cached, %d translated, %d failed",
		w.output, stats.Collected, stats.Cached, stats.Translated, stats.Failed)

	select {
	case w.ran <- stats:
	default:
	}
}

// run watches the input until ctx is cancelled. The directory is watched
// rather than the file so editors that save by rename are followed.
func (w *watcher) run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.input)); err != nil {
		return fmt.Errorf("watching %s: %w", w.input, err)
	}

	w.sched.Start(ctx)
	defer w.sched.Stop()
	w.sched.Trigger()

	logger.Info("watching %s, writing %s", w.input, w.output)

	target := filepath.Clean(w.input)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// reload replaces the live document with the file's current content.
func (w *watcher) reload() {
	data, err := os.ReadFile(w.input)
	if err != nil {
		logger.Warn("reading %s: %v", w.input, err)
		return
	}
	if err := w.doc.Replace(bytes.NewReader(data)); err != nil {
		logger.Warn("parsing %s: %v", w.input, err)
		return
	}
	logger.Debug("reloaded %s", w.input)
}
