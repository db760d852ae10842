package main

import (
	"github.com/ZaguanLabs/mirrorlai/config"
	"github.com/ZaguanLabs/mirrorlai/proxy"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var listen, upstream, mode string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mirror proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if upstream != "" {
				cfg.Server.Upstream = upstream
			}
			if mode != "" {
				cfg.Translation.Mode = mode
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			srv, err := newServer(cmd, cfg)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listen)")
	cmd.Flags().StringVar(&upstream, "upstream", "", "upstream origin, e.g. https://example.com")
	cmd.Flags().StringVar(&mode, "mode", "", "translation mode: server, client or off")
	return cmd
}

// newServer wires the configured backend and cache into a proxy server.
func newServer(cmd *cobra.Command, cfg *config.Config) (*proxy.Server, error) {
	backend, err := proxy.NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	shared, err := proxy.NewCache(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	return proxy.New(proxy.Options{
		Config:  cfg,
		Backend: backend,
		Cache:   shared,
	})
}
