package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docrank/internal/api"
	"github.com/dgallion1/docrank/internal/metrics"
	"github.com/dgallion1/docrank/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	Long: `Start the HTTP API. Analyses are queued with POST /api/analyze and polled
with GET /api/analyze/{jobID}. Requests under /api require
"Authorization: Bearer $DOCRANK_API_KEY".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetString("port")
		}
		if err := cfg.ValidateServe(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		log := newLogger(os.Stderr, cfg.LogLevel)

		b, err := openBackends(cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		rec := metrics.NewRecorder(time.Hour)
		runner, err := newRunner(cfg, b, rec, log)
		if err != nil {
			return err
		}
		defer runner.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
			InputDir:     cfg.InputDir,
			WorkerCount:  cfg.WorkerCount,
			MaxQueueSize: cfg.MaxQueueSize,
			JobTTL:       cfg.JobTTL,
		}, runner, rec, log)
		orch.Start(ctx)

		srv := api.NewServer(orch, rec, log, cfg)
		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		done := make(chan struct{})
		go func() {
			defer close(done)
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			log.Info("shutting down...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Warn("http shutdown", "error", err)
			}
			orch.Stop()
		}()

		log.Info("starting docrank", "port", cfg.Port, "embed", b.embedder.Name(), "rerank", b.pairwise.Name(), "workers", cfg.WorkerCount)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		<-done
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "", "Listen port (default $PORT or 8090)")
	rootCmd.AddCommand(serveCmd)
}
