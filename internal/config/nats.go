package config

import "time"

type Nats struct {
	URL              string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	MaxReconnects    int           `env:"NATS_MAX_RECONNECTS" envDefault:"5"`
	ReconnectTimeout time.Duration `env:"NATS_RECONNECT_TIMEOUT" envDefault:"5s"`
}
