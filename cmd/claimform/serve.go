package main

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/claimform/claimform/internal/config"
	"github.com/claimform/claimform/internal/pipeline"
	"github.com/claimform/claimform/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the claimform server",
	Long: `Start the claimform HTTP server.

The server provides:
  - POST /extract - Multipart upload of a claim form, returns extraction result
  - GET  /health  - Basic server health check

Examples:
  claimform serve                    # Start on default port 8080
  claimform serve --port 3000        # Start on custom port
  claimform serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfg := cfgMgr.Get()
		if err := cfg.Validate(); err != nil {
			return err
		}

		cfgMgr.OnChange(func(c *config.Config) {
			logger.Info("configuration reloaded")
		})
		cfgMgr.WatchConfig()

		host := serveHost
		if host == "" {
			host = cfg.Server.Host
		}
		port := servePort
		if port == "" {
			port = strconv.Itoa(cfg.Server.Port)
		}

		ocr, llm := cfg.BuildProviders()
		p := pipeline.New(ocr, llm, logger, pipeline.Options{
			MaxPages:            cfg.OCR.MaxPages,
			LayoutResultTimeout: cfg.OCR.ResultTimeout(),
		})

		srv, err := server.New(server.Config{
			Host:     host,
			Port:     port,
			Pipeline: p,
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		// Blocks until shutdown
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
