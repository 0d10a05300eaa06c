package config

import (
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration
	DatabaseConnectRetryCount int
	DatabaseConnectRetryDelay time.Duration
	DatabaseDebug             bool
	DatabaseFilePath          string
	Hostname                  string
	ServerHost                string
	ServerPort                int
	SevenZipEnabled           bool
	ThumbnailDir              string
	WorkerProcesses           int
}

const environmentENV = "ENVIRONMENT"

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		Hostname:                  hostname,
		ServerPort:                3690,
		SevenZipEnabled:           true,
		ThumbnailDir:              "./storage/cover",
		WorkerProcesses:           0, // 0 = one per core
	}

	switch os.Getenv(environmentENV) {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	return cfg, nil
}

// ArtworkWorkers resolves the configured worker-count override against the
// host. Unset or non-positive values fall back to the core count, and any
// override is capped at the core count since the work is CPU-bound.
func (cfg *Config) ArtworkWorkers() int {
	cores := runtime.NumCPU()
	if cfg.WorkerProcesses <= 0 || cfg.WorkerProcesses > cores {
		return cores
	}
	return cfg.WorkerProcesses
}
