package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/titanic-analytics/internal/dashboard"
	"github.com/spf13/cobra"
)

var (
	serveAddr      string
	serveHideIntro bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web dashboard",
	Long: `Serve the dashboard views (overview, analysis, ML insights and data explorer)
with the AI copilot widget. Each browser gets its own session; the backend is
reached through the configured source.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		src, err := openSource(logger)
		if err != nil {
			return err
		}
		addr := cfg.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		srv, err := dashboard.NewServer(dashboard.Config{
			Source:        src,
			Addr:          addr,
			SessionSecret: cfg.SessionSecret,
			PageSize:      cfg.PageSize,
			Timeouts:      timeouts(),
			HideIntro:     cfg.HideIntro || serveHideIntro,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Dashboard listening on %s (source: %s)\n", addr, cfg.Source)
		return srv.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address (overrides listen_addr)")
	serveCmd.Flags().BoolVar(&serveHideIntro, "hide-intro", false, "never show the intro panel")
}
