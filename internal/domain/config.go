package domain

import "time"

// StoreBackend selects the durable medium for the persistent store
type StoreBackend string

const (
	// StoreBackendSQLite - single sqlite file in the data dir (default)
	StoreBackendSQLite StoreBackend = "sqlite"
	// StoreBackendBadger - badger directory in the data dir
	StoreBackendBadger StoreBackend = "badger"
	// StoreBackendMemory - nothing survives the process, useful for dry runs
	StoreBackendMemory StoreBackend = "memory"
)

type Config struct {
	DataDir           string        `mapstructure:"data_dir"`
	StoreBackend      StoreBackend  `mapstructure:"store_backend"`
	JikanBaseURL      string        `mapstructure:"jikan_base_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	LogLevel          string        `mapstructure:"log_level"`
}
