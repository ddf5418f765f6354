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

	"diffusion-sim/simulation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <base-dir> <metadata.{yaml,json}>",
		Short: "Run or resume a scenario",
		Long: `Run a scenario described by a YAML or JSON metadata file.

A scenario that already has a snapshot continues from it; a finished one
is skipped. DIFFSIM_SEED, DIFFSIM_WORKERS and DIFFSIM_LOG_LEVEL override
the metadata.

Examples:
  diffusion-sim run ./runs scenario.yaml
  diffusion-sim run ./runs scenario.json --metrics-addr :9090`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseDir, metadataPath := args[0], args[1]
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
			noProgress, _ := cmd.Flags().GetBool("no-progress")

			metadata, err := simulation.LoadScenarioMetadata(metadataPath)
			if err != nil {
				return err
			}
			if err := metadata.ApplyEnv(); err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				metadata.LogLevel, _ = cmd.Flags().GetString("log-level")
			}
			if err := metadata.Validate(); err != nil {
				return fmt.Errorf("invalid metadata: %w", err)
			}

			logger, err := newLogger(metadata.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			if metricsAddr != "" {
				srv := serveMetrics(metricsAddr, reg, logger)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
			}

			scenario := simulation.NewScenario(
				baseDir,
				metadata,
				simulation.WithLogger(logger),
				simulation.WithRegisterer(reg),
				simulation.WithProgress(!noProgress),
			)
			defer scenario.Close()

			loaded, err := scenario.Load()
			if err != nil {
				return fmt.Errorf("failed to load scenario: %w", err)
			}
			if !loaded {
				if err := scenario.Init(); err != nil {
					return fmt.Errorf("failed to initialize scenario: %w", err)
				}
			}

			err = scenario.StepTillEnd(ctx)
			if errors.Is(err, context.Canceled) {
				logger.Info("stopped, run again to resume", zap.String("dir", scenario.Dir()))
				return nil
			}
			return err
		},
	}

	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().Bool("no-progress", false, "Hide the progress bar")
	return cmd
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}
