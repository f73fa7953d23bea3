package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "IRIS"

type Config struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	ModelPath       string        `mapstructure:"model_path"`
	MetadataPath    string        `mapstructure:"metadata_path"`
	ImagesDir       string        `mapstructure:"images_dir"`
	OrtLibrary      string        `mapstructure:"ort_library"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnvFile         string        `mapstructure:"env_file"`
	ConfigFile      string        `mapstructure:"config_file"`
}

var (
	ErrInvalidPort     = errors.New("port must be between 1 and 65535")
	ErrModelPathNotSet = errors.New("model path is not set")
	ErrImagesDirNotSet = errors.New("images directory is not set")
)

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 8080)
	v.SetDefault("environment", "development")
	v.SetDefault("model_path", DefaultModelPath)
	v.SetDefault("metadata_path", DefaultMetadataPath)
	v.SetDefault("images_dir", DefaultImagesDir)
	v.SetDefault("ort_library", "")
	v.SetDefault("shutdown_timeout", 5*time.Second)
	v.SetDefault("env_file", ".env")
	v.SetDefault("config_file", "")
}

// Load reads the optional env file and config file into v and decodes the
// result. Variables already present in the environment win over the env
// file, and IRIS_* variables win over the config file.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(`-`, `_`, `.`, `_`))
	v.AutomaticEnv()

	if envFile := v.GetString("env_file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	if configFile := v.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: got %d", ErrInvalidPort, c.Port)
	}
	if c.ModelPath == "" {
		return ErrModelPathNotSet
	}
	if c.ImagesDir == "" {
		return ErrImagesDirNotSet
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	return nil
}
