package config

import (
	"time"

	"github.com/spf13/viper"
)

type WorkerConfig struct {
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	LogLevel      string
}

// WorkerProcessConfig is everything cmd/worker needs; it is read from
// worker.yaml with the CAMPUS_WORKER env prefix.
type WorkerProcessConfig struct {
	Environment string
	Redis       RedisConfig
	Storage     StorageConfig
	Worker      WorkerConfig
}

func LoadWorker() (*WorkerProcessConfig, error) {
	var cfg WorkerProcessConfig
	if err := load("worker", "CAMPUS_WORKER", func(v *viper.Viper) {
		v.SetDefault("environment", "development")
		setRedisDefaults(v)
		setStorageDefaults(v)
		setWorkerDefaults(v)
	}, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setWorkerDefaults(v *viper.Viper) {
	v.SetDefault("worker.group", "campus-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "30s")
	v.SetDefault("worker.loglevel", "info")
}
