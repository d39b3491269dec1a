package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/username/datadissem/src/config"
	"github.com/username/datadissem/src/logger"
	"github.com/username/datadissem/src/models"
	"github.com/username/datadissem/src/parsers/dataset"
	"github.com/username/datadissem/src/processors"
	"github.com/username/datadissem/src/security"
	"github.com/username/datadissem/src/server"
	"github.com/username/datadissem/src/services"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(cfg *config.AppConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port, _ := cmd.Flags().GetString("port"); port != "" {
				cfg.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
	cmd.Flags().String("port", "", "listen port (overrides PORT)")
	return cmd
}

// datasetLoader reads the configured data file.
func datasetLoader(cfg *config.AppConfig) services.DatasetLoader {
	return func() (*models.Dataset, error) {
		return dataset.LoadFile(cfg.DataPath, cfg.DataSheet)
	}
}

func runServer(ctx context.Context, cfg *config.AppConfig) error {
	logger.L.Info("datadissem server starting...", "version", version)

	registry, closer, err := services.NewAPIKeyRegistry(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	datasets := services.NewDatasetService(datasetLoader(cfg), cfg.DatasetTTL)
	if _, err := datasets.Current(); err != nil {
		logger.L.Warn("Dataset not loaded at startup; data endpoints return 503 until a reload or upload succeeds", "path", cfg.DataPath, "error", err)
	}

	var adminTokens *security.AdminTokens
	if cfg.JWTSecret == "" {
		logger.L.Warn("JWT_SECRET not set; admin API disabled")
	} else if adminTokens, err = security.NewAdminTokens(cfg.JWTSecret, cfg.AdminTokenExpiry); err != nil {
		return err
	}

	handler := server.NewRouter(server.Deps{
		Registry:       registry,
		Datasets:       datasets,
		Queries:        services.NewQueryService(datasets, processors.NewQueryProcessor(), processors.NewChartProcessor()),
		Settings:       services.NewAPISettings(cfg.APIBaseURL),
		AdminTokens:    adminTokens,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxUploadBytes: cfg.MaxUploadSizeBytes,
		DataSheet:      cfg.DataSheet,
	})
	srv := server.New(":"+cfg.Port, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.L.Info("Server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.L.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
