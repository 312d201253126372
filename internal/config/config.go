// Package config provides configuration loading for similarityd.
package config

import (
	"fmt"
	"time"

	"github.com/claimlens/similarityd/internal/logging"
	"github.com/claimlens/similarityd/internal/similarity"
)

// Config is the full similarityd configuration.
type Config struct {
	Server     ServerConfig      `koanf:"server"`
	Logging    logging.Config    `koanf:"logging"`
	Similarity similarity.Config `koanf:"similarity"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8750
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	def := similarity.DefaultConfig()
	if cfg.Similarity.Dimension == 0 {
		cfg.Similarity.Dimension = def.Dimension
	}
	if cfg.Similarity.Bands == 0 {
		cfg.Similarity.Bands = def.Bands
	}
	if cfg.Similarity.RowsPerBand == 0 {
		cfg.Similarity.RowsPerBand = def.RowsPerBand
	}
	if cfg.Similarity.HashScale == 0 {
		cfg.Similarity.HashScale = def.HashScale
	}
	if cfg.Similarity.SimilarityThreshold == 0 {
		cfg.Similarity.SimilarityThreshold = def.SimilarityThreshold
	}
	if cfg.Similarity.DuplicateThreshold == 0 {
		cfg.Similarity.DuplicateThreshold = def.DuplicateThreshold
	}
	if cfg.Similarity.SignalThreshold == 0 {
		cfg.Similarity.SignalThreshold = def.SignalThreshold
	}
	if cfg.Similarity.Weights == (similarity.Weights{}) {
		cfg.Similarity.Weights = def.Weights
	}
	if cfg.Similarity.CacheSize == 0 {
		cfg.Similarity.CacheSize = def.CacheSize
	}
	if cfg.Similarity.ExhaustiveLimit == 0 {
		cfg.Similarity.ExhaustiveLimit = def.ExhaustiveLimit
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Similarity.Validate(); err != nil {
		return fmt.Errorf("similarity config: %w", err)
	}
	return nil
}
