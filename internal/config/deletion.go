package config

import "time"

type Deletion struct {
	CheckInterval time.Duration `env:"DELETION_CHECK_INTERVAL" envDefault:"30s"`
	BatchSize     int           `env:"DELETION_BATCH_SIZE" envDefault:"100"`
}
