package internal

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/tuannm99/novatable/internal/engine"
)

type NovaTableConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		Location   string `mapstructure:"location"`
		PageSize   int    `mapstructure:"page_size"`
		BufferSize int    `mapstructure:"buffer_size"`
	} `mapstructure:"storage"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// LoadConfig reads the YAML file at path, if any, over the defaults.
// NOVATABLE_* environment variables override both, e.g.
// NOVATABLE_STORAGE_PAGE_SIZE.
func LoadConfig(path string) (*NovaTableConfig, error) {
	v := viper.New()
	v.SetDefault("app_name", "novatable")
	v.SetDefault("storage.location", "./data")
	v.SetDefault("storage.page_size", engine.DefaultPageSize)
	v.SetDefault("storage.buffer_size", 32)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix("NOVATABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg NovaTableConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// EngineOptions maps the storage section onto engine options.
func (c *NovaTableConfig) EngineOptions(logger *slog.Logger) engine.Options {
	return engine.Options{
		Location:   c.Storage.Location,
		PageSize:   c.Storage.PageSize,
		BufferSize: c.Storage.BufferSize,
		Logger:     logger,
	}
}

// NewLogger builds a text or JSON slog logger at the configured level.
func NewLogger(cfg *NovaTableConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("log format %q: want text or json", cfg.Log.Format)
	}
	return slog.New(h).With("app", cfg.AppName), nil
}
