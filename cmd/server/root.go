package main

import (
	"github.com/Brownie44l1/iris-api/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "iris-api",
	Short: "Iris flower classification demo",
	Long:  "Serves a slider form that classifies iris flowers with a pre-trained model loaded at startup.",

	SilenceUsage: true,

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(viper.GetViper())
		return err
	},

	RunE: runServe,
}

func init() {
	pflags := rootCmd.PersistentFlags()

	pflags.String("config-file", "", "Path to a YAML config file (default ./config.yaml when present)")
	pflags.String("env-file", ".env", "Path to an env file loaded before reading the environment")
	pflags.String("environment", "development", "Environment: development, production or test")
	pflags.String("model-path", config.DefaultModelPath, "Path to the ONNX model file")
	pflags.String("metadata-path", config.DefaultMetadataPath, "Path to the model metadata JSON sidecar")
	pflags.String("images-dir", config.DefaultImagesDir, "Directory holding <species>.jpg images")
	pflags.String("ort-library", "", "Path to the onnxruntime shared library")

	viper.BindPFlag("config_file", pflags.Lookup("config-file"))
	viper.BindPFlag("env_file", pflags.Lookup("env-file"))
	viper.BindPFlag("environment", pflags.Lookup("environment"))
	viper.BindPFlag("model_path", pflags.Lookup("model-path"))
	viper.BindPFlag("metadata_path", pflags.Lookup("metadata-path"))
	viper.BindPFlag("images_dir", pflags.Lookup("images-dir"))
	viper.BindPFlag("ort_library", pflags.Lookup("ort-library"))

	rootCmd.AddCommand(serveCmd, diagnoseCmd)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}
