package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/Brownie44l1/iris-api/internal/diagnostics"
	"github.com/Brownie44l1/iris-api/internal/handlers"
	"github.com/Brownie44l1/iris-api/internal/inference"
	"github.com/Brownie44l1/iris-api/internal/logging"
	"github.com/Brownie44l1/iris-api/internal/model"
	"github.com/Brownie44l1/iris-api/internal/server"
	"github.com/Brownie44l1/iris-api/internal/species"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the demo web server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "Port to run the server on")
	serveCmd.Flags().String("host", "localhost", "Host to run the server on")

	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := logging.NewLogger(cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	resolver := species.NewResolver(cfg.ImagesDir)
	diagnostics.Run(cfg.ModelPath, resolver, logger)

	handle := model.Load(cfg.ModelPath, cfg.MetadataPath, model.NewOpener(cfg.OrtLibrary), logger)
	defer handle.Close()

	service := inference.NewService(model.NewPredictor(handle), resolver, logger)
	srv := server.NewServer(cfg, handlers.NewHandler(service, handle, resolver, logger), logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("Endpoints",
		zap.String("page", fmt.Sprintf("http://%s/", cfg.Addr())),
		zap.Strings("routes", []string{
			"GET  /                 - Prediction form",
			"POST /predict          - Form submission",
			"POST /api/v1/predict   - JSON prediction",
			"GET  /images/:species  - Species image (?width=N)",
			"GET  /health           - Health check",
		}))

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	if err := srv.Stop(context.Background(), cfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("error stopping server: %w", err)
	}
	return <-errCh
}
