package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phillipod/sister-sto/internal/collaborators"
	"github.com/phillipod/sister-sto/internal/hashindex"
	"github.com/phillipod/sister-sto/internal/imageio"
	"github.com/phillipod/sister-sto/internal/overlaydetect"
	"github.com/phillipod/sister-sto/internal/pipeline"
	"github.com/phillipod/sister-sto/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd exposes the identification pipeline over HTTP: a /run
// endpoint accepting server-local screenshot paths, a /ws/progress
// websocket streaming the same stage-start/progress/stage-complete
// lifecycle the CLI's test-data recorder (test_data.enabled) records offline, plus
// /health, /catalog, and (optionally) /metrics.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server exposing the identification pipeline",
	Long: `serve loads the catalog hash index and overlay images once at
startup, then accepts screenshot-identification requests over HTTP for
as long as the process runs.

The server provides the following endpoints:
  POST /run          - run the pipeline against one or more screenshot paths
  GET  /ws/progress  - same, streamed as a websocket progress feed
  GET  /health       - health check endpoint
  GET  /catalog      - loaded hash-index size and overlay names
  GET  /metrics      - Prometheus metrics (if enabled)

Examples:
  sister serve
  sister serve --port 8080
  sister serve --host 0.0.0.0 --port 3000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("host", "H", "", "server host (default server.host)")
	serveCmd.Flags().IntP("port", "p", 0, "server port (default server.port)")
	serveCmd.Flags().String("cors-origin", "", "CORS allowed origin (default server.cors_origin)")
	serveCmd.Flags().Int("timeout", 0, "request timeout in seconds (default server.timeout_sec)")
	serveCmd.Flags().Int("shutdown-timeout", 0, "shutdown timeout in seconds (default server.shutdown_timeout)")
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 0, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", 0, "maximum requests per hour per client")
	serveCmd.Flags().String("pdf-password", "", "password to try against an encrypted PDF screenshot export")
	serveCmd.Flags().String("pdf-pages", "", "restrict PDF screenshot extraction to this page range, e.g. \"2-4\" (default: all pages)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()

	if h, _ := cmd.Flags().GetString("host"); h != "" {
		cfg.Server.Host = h
	}
	if p, _ := cmd.Flags().GetInt("port"); p != 0 {
		cfg.Server.Port = p
	}
	if o, _ := cmd.Flags().GetString("cors-origin"); o != "" {
		cfg.Server.CORSOrigin = o
	}
	if t, _ := cmd.Flags().GetInt("timeout"); t != 0 {
		cfg.Server.TimeoutSec = t
	}
	if t, _ := cmd.Flags().GetInt("shutdown-timeout"); t != 0 {
		cfg.Server.ShutdownTimeout = t
	}
	if cmd.Flags().Changed("rate-limit-enabled") {
		cfg.Server.RateLimit.Enabled, _ = cmd.Flags().GetBool("rate-limit-enabled")
	}
	if v, _ := cmd.Flags().GetInt("requests-per-minute"); v != 0 {
		cfg.Server.RateLimit.RequestsPerMinute = v
	}
	if v, _ := cmd.Flags().GetInt("requests-per-hour"); v != 0 {
		cfg.Server.RateLimit.RequestsPerHour = v
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", cfg.Server.Port)
	}

	idx, err := hashindex.Load(cfg.Catalog.HashIndexPath)
	if err != nil {
		return fmt.Errorf("load hash index: %w", err)
	}

	overlays, err := hashindex.LoadOverlays(cfg.Catalog.OverlayDir)
	if err != nil {
		return fmt.Errorf("load overlays: %w", err)
	}

	pdfPassword, _ := cmd.Flags().GetString("pdf-password")
	pdfPages, _ := cmd.Flags().GetString("pdf-pages")
	source := &collaborators.FileScreenshotSource{PDFPassword: pdfPassword, PDFPageRange: pdfPages}
	if !cfg.Output.NoResize {
		source.MaxWidth, source.MaxHeight = 1920, 1080
	}

	base := pipeline.Config{
		LabelLocator:     &collaborators.FixtureLabelLocator{},
		LayoutClassifier: collaborators.HeuristicLayoutClassifier{},
		GroupLocator:     &collaborators.FixtureIconGroupLocator{},
		SlotLocator:      &collaborators.GridSlotLocator{Columns: 1, Rows: 1, CropFunc: cropSlot},
		IconLoader:       &collaborators.FileIconLoader{Root: cfg.Catalog.IconDir, Load: imageio.Load},
		HashIndex:        idx,
		Overlays:         overlays,
		OverlayDetector:  overlaydetect.NewDetector(overlays, cfg.ToOverlayDetectConfig()),
	}
	serverCfg := cfg.ToServerConfig()
	serverCfg.OrchestratorConfig = cfg.ToOrchestratorConfig(base)
	serverCfg.Source = source

	srv, err := server.NewServer(serverCfg)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.TimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.TimeoutSec) * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("starting sister server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	return nil
}
