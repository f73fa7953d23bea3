package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Brownie44l1/iris-api/internal/diagnostics"
	"github.com/Brownie44l1/iris-api/internal/logging"
	"github.com/Brownie44l1/iris-api/internal/model"
	"github.com/Brownie44l1/iris-api/internal/species"
	"github.com/spf13/cobra"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run the startup checks and a model load without serving",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.NewLogger(cfg.Environment)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync()

		report := diagnostics.Run(cfg.ModelPath, species.NewResolver(cfg.ImagesDir), logger)
		report.WriteTable(os.Stdout)

		handle := model.Load(cfg.ModelPath, cfg.MetadataPath, model.NewOpener(cfg.OrtLibrary), logger)
		defer handle.Close()

		if handle.State() != model.Loaded {
			return errors.New(handle.Message())
		}
		return nil
	},
}
