package config

import (
	"os"
	"strconv"
)

func loadDevelopmentConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}

	cfg.DatabaseDebug = true
	cfg.DatabaseFilePath = "./tmp/data.sqlite"
	cfg.ServerHost = "127.0.0.1"
	cfg.ThumbnailDir = "./tmp/cover"
}

func loadTestConfig(cfg *Config) {
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
	cfg.WorkerProcesses = 1
}

func loadProductionConfig(cfg *Config) {
	dataDir := os.Getenv("DATA_DIRECTORY")
	if dataDir == "" {
		dataDir = "/data"
	}

	cfg.DatabaseFilePath = dataDir + "/data.sqlite"
	cfg.ThumbnailDir = dataDir + "/cover"
	cfg.ServerHost = "0.0.0.0"

	if workers, err := strconv.Atoi(os.Getenv("WORKER_PROCESSES")); err == nil {
		cfg.WorkerProcesses = workers
	}
	if os.Getenv("DISABLE_7Z") == "true" {
		cfg.SevenZipEnabled = false
	}
}
