package config

type DB struct {
	DSN                string `env:"DATABASE_DSN" envDefault:"host=localhost port=5432 user=postgres password=postgres dbname=podsync sslmode=disable"`
	Debug              bool   `env:"DATABASE_DEBUG" envDefault:"false"`
	MaxOpenConnections int    `env:"DATABASE_MAX_OPEN_CONNECTIONS" envDefault:"25"`
}
