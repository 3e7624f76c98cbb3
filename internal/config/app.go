package config

type App struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DB         DB
	API        API
	Nats       Nats
	Prometheus Prometheus
	Health     Health
	Deletion   Deletion
}
