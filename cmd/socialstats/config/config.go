package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang-social-analytics-service/internal/processor"
	"golang-social-analytics-service/internal/store"
	"golang-social-analytics-service/pkg/logger"
)

const (
	fastTierFile   = "state.json"
	durableTierFile = "datasets.db"
)

// DefaultDataDir returns the default location of the local stores
func DefaultDataDir() string {
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "socialstats")
	}
	return "socialstats-data"
}

// OpenStores opens both storage tiers under dataDir, creating the
// directory if needed.
func OpenStores(dataDir string) (*store.FastTier, *store.DurableTier, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	fast, err := store.OpenFastTier(filepath.Join(dataDir, fastTierFile), 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open fast tier: %w", err)
	}

	durable, err := store.OpenDurableTier(filepath.Join(dataDir, durableTierFile))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open durable tier: %w", err)
	}

	return fast, durable, nil
}

// CreatePipelineConfig creates a pipeline configuration with CLI overrides
func CreatePipelineConfig(maxRows, batchSize int) *processor.Config {
	config := processor.DefaultConfig()
	if maxRows > 0 {
		config.MaxRows = maxRows
	}
	if batchSize > 0 {
		config.BatchSize = batchSize
	}
	return config
}

// CreateManagerConfig creates a storage manager configuration
func CreateManagerConfig(wipeTimeout time.Duration) *store.ManagerConfig {
	config := store.DefaultManagerConfig()
	if wipeTimeout > 0 {
		config.WipeTimeout = wipeTimeout
	}
	return config
}

// CreateLoggerConfig creates a logger configuration for CLI usage
func CreateLoggerConfig(verbose bool) *logger.Config {
	if verbose {
		return logger.DebugConfig()
	}
	return logger.DefaultConfig()
}
