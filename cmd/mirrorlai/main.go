// Command mirrorlai runs the locale mirror and translates HTML files with
// the same pipeline the mirror uses.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaguanLabs/mirrorlai"
	"github.com/ZaguanLabs/mirrorlai/config"
	"github.com/ZaguanLabs/mirrorlai/logger"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	verbose    bool
	quiet      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           mirrorlai.Name,
		Short:         mirrorlai.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.SetVerbose(opts.verbose)
			logger.SetQuiet(opts.quiet)
			logger.SetOutput(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultFileName, "configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "only log warnings and errors")

	cmd.AddCommand(
		newServeCmd(opts),
		newTranslateCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
