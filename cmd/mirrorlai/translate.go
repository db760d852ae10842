package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ZaguanLabs/mirrorlai"
	"github.com/ZaguanLabs/mirrorlai/config"
	"github.com/ZaguanLabs/mirrorlai/logger"
	"github.com/ZaguanLabs/mirrorlai/processor"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"
)

type translateOptions struct {
	pipelineFlags
	output string
	json   bool
	dryRun bool
}

func newTranslateCmd(root *rootOptions) *cobra.Command {
	opts := &translateOptions{}

	cmd := &cobra.Command{
		Use:   "translate [file]",
		Short: "Translate an HTML file (stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, root, opts, args)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "list what would be translated without calling a backend")
	return cmd
}

func runTranslate(cmd *cobra.Command, root *rootOptions, opts *translateOptions, args []string) error {
	input, inputName, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := opts.load(root)
	if err != nil {
		return err
	}

	if opts.dryRun {
		return runDryRun(cmd.OutOrStdout(), cfg, input, inputName, opts.json)
	}

	client, err := opts.client(cfg)
	if err != nil {
		return err
	}
	c, err := opts.cache(cfg)
	if err != nil {
		return err
	}

	translator := mirrorlai.NewTranslator(cfg.Locale.Target, client,
		mirrorlai.WithSourceLang(cfg.Locale.Source),
		mirrorlai.WithCache(c),
		mirrorlai.WithProcessor(newProcessor(cfg)),
		mirrorlai.WithLimits(cfg.Translation.BatchLimits()),
	)

	logger.Info("translating %s to %s", inputName, cfg.Locale.Target)

	start := time.Now()
	result, err := translator.ProcessHTML(cmd.Context(), input)
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}
	elapsed := time.Since(start)

	if result.FailedCount > 0 {
		logger.Warn("%d strings left untranslated", result.FailedCount)
	}

	out := cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output) // #nosec G304 - CLI tool writes user-specified files
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if opts.json {
		err = outputJSON(out, result, elapsed)
	} else {
		_, err = fmt.Fprint(out, result.Content)
	}
	if err != nil {
		return err
	}

	logger.Info("done in %v: %d items, %d translated, %d from cache",
		elapsed.Round(time.Millisecond), result.TotalNodes, result.TranslatedCount, result.CachedCount)

	return opts.saveCache(c, cfg)
}

// readInput reads the named file, or stdin when no file is given.
func readInput(cmd *cobra.Command, args []string) (content, name string, err error) {
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "stdin", nil
	}

	data, err := os.ReadFile(args[0]) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return "", "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), filepath.Base(args[0]), nil
}

// dryRunItem is one collected item in --dry-run output.
type dryRunItem struct {
	Kind    mirrorlai.ItemKind `json:"kind"`
	Text    string             `json:"text"`
	Context string             `json:"context,omitempty"`
}

// runDryRun lists what a pass would send for translation.
func runDryRun(w io.Writer, cfg *config.Config, input, inputName string, jsonOut bool) error {
	doc, err := processor.ParseDocument(input)
	if err != nil {
		return fmt.Errorf("extracting text: %w", err)
	}

	proc := newProcessor(cfg)
	var items []dryRunItem
	doc.Edit(func(root *html.Node) {
		for _, item := range proc.Collect(root) {
			items = append(items, dryRunItem{
				Kind:    item.Kind,
				Text:    strings.TrimSpace(item.Source),
				Context: processor.Describe(item),
			})
		}
	})

	if jsonOut {
		out := struct {
			InputFile  string       `json:"input_file"`
			TargetLang string       `json:"target_lang"`
			ItemCount  int          `json:"item_count"`
			Items      []dryRunItem `json:"items"`
		}{
			InputFile:  inputName,
			TargetLang: cfg.Locale.Target,
			ItemCount:  len(items),
			Items:      items,
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "Dry run: %s -> %s\n", inputName, cfg.Locale.Target)
	fmt.Fprintf(w, "Found %d translatable items:\n\n", len(items))
	for i, item := range items {
		fmt.Fprintf(w, "%3d. %q\n", i+1, truncate(item.Text, 60))
		if item.Context != "" {
			fmt.Fprintf(w, "     %s\n", item.Context)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

// JSONOutput is the --json result of the translate command.
type JSONOutput struct {
	Content         string `json:"content"`
	TotalNodes      int    `json:"total_nodes"`
	TranslatedCount int    `json:"translated_count"`
	CachedCount     int    `json:"cached_count"`
	FailedCount     int    `json:"failed_count"`
	ElapsedMs       int64  `json:"elapsed_ms"`
}

func outputJSON(w io.Writer, result *mirrorlai.ProcessedContent, elapsed time.Duration) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(JSONOutput{
		Content:         result.Content,
		TotalNodes:      result.TotalNodes,
		TranslatedCount: result.TranslatedCount,
		CachedCount:     result.CachedCount,
		FailedCount:     result.FailedCount,
		ElapsedMs:       elapsed.Milliseconds(),
	})
}
