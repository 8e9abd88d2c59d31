package domain

import "time"

// Config holds the complete Pulse configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server" yaml:"server"`

	// Tier determines which backing services are used
	Tier Tier `json:"tier" yaml:"tier"`

	// Scoring model artifact
	Model ModelConfig `json:"model" yaml:"model"`

	// Component configurations
	Repository RepositoryConfig `json:"repository" yaml:"repository"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	EventBus   EventBusConfig   `json:"eventBus" yaml:"eventBus"`
	RateLimit  RateLimitConfig  `json:"rateLimit" yaml:"rateLimit"`

	// Suggestion rules; empty means the built-in set
	Suggestions []SuggestionRule `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`

	// Async scoring worker
	Worker WorkerConfig `json:"worker" yaml:"worker"`

	// Observability
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host" yaml:"host"`
	Port         int    `json:"port" yaml:"port"`
	ReadTimeout  int    `json:"readTimeout" yaml:"readTimeout"`   // seconds
	WriteTimeout int    `json:"writeTimeout" yaml:"writeTimeout"` // seconds

	// AllowedOrigins for CORS; empty allows any origin
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

// ModelConfig points at the trained classifier artifact.
type ModelConfig struct {
	// Path to the JSON model artifact
	Path string `json:"path" yaml:"path"`

	// TargetClass is the label of the high-risk class.
	// If the model does not carry it, the most probable class is used instead.
	TargetClass string `json:"targetClass" yaml:"targetClass"`
}

// RateLimitConfig throttles the scoring endpoints per institution and per
// client address.
type RateLimitConfig struct {
	Enabled           bool    `json:"enabled" yaml:"enabled"`
	RequestsPerSecond float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	Burst             int     `json:"burst" yaml:"burst"`

	// Client limits apply per remote address across all institutions.
	// Zero means four times the institution limits.
	ClientRequestsPerSecond float64 `json:"clientRequestsPerSecond" yaml:"clientRequestsPerSecond"`
	ClientBurst             int     `json:"clientBurst" yaml:"clientBurst"`

	// MaxEntries caps the tracked institutions and clients; 0 means 10000.
	MaxEntries int `json:"maxEntries" yaml:"maxEntries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// WorkerConfig controls the async scoring worker.
type WorkerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Count   int  `json:"count" yaml:"count"`

	// Institutions to consume; empty consumes every institution
	Institutions []string `json:"institutions,omitempty" yaml:"institutions,omitempty"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + channels + in-process LRU
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultTargetClass is the label the trained classifier uses for high risk.
const DefaultTargetClass = "3"

// DefaultConfig returns a default configuration for the Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Model: ModelConfig{
			Path:        "./models/wellbeing-lr.json",
			TargetClass: DefaultTargetClass,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./pulse.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Worker: WorkerConfig{
			Enabled: false,
			Count:   4,
		},
	}
}

// ProConfig returns a configuration for the Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "pulse",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Worker.Enabled = true
	return cfg
}
