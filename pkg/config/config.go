package config

import "time"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Cache   CacheConfig   `mapstructure:"cache"`
	AMQP    AMQPConfig    `mapstructure:"amqp"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	ListenAddress     string        `mapstructure:"listen_address"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	HookTimeout       time.Duration `mapstructure:"hook_timeout"`
	Profiling         bool          `mapstructure:"profiling"`
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type StoreConfig struct {
	// Driver is memory or postgres.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	// FixturePath seeds the memory store from a json or yaml catalog.
	FixturePath    string        `mapstructure:"fixture_path"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdle        int           `mapstructure:"max_idle"`
}

type EngineConfig struct {
	FacetWorkers    int           `mapstructure:"facet_workers"`
	FacetTimeout    time.Duration `mapstructure:"facet_timeout"`
	TreeCacheTTL    time.Duration `mapstructure:"tree_cache_ttl"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
}

type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type AMQPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Prefix  string `mapstructure:"prefix"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
