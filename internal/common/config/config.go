// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig               `mapstructure:"app"`
	Camunda     CamundaConfig           `mapstructure:"camunda"`
	Database    DatabaseConfig          `mapstructure:"database"`
	Workers     map[string]WorkerConfig `mapstructure:"workers"`
	Matching    MatchingConfig          `mapstructure:"matching"`
	Preferences PreferencesConfig       `mapstructure:"preferences"`
	Registry    RegistryConfig          `mapstructure:"registry"`
	Logging     LoggingConfig           `mapstructure:"logging"`
	Metrics     MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Matching Engine ---

// MatchingConfig configures the compatibility engines. The top-level values
// apply to every category; Categories overrides them per marketplace
// category.
type MatchingConfig struct {
	MaxDistanceKm    float64 `mapstructure:"max_distance_km"`
	EarthRadiusKm    float64 `mapstructure:"earth_radius_km"`
	WeightPolicy     string  `mapstructure:"weight_policy"`
	AvailabilityMode string  `mapstructure:"availability_mode"`
	Concurrency      int     `mapstructure:"concurrency"`
	// BaseWeights is decoded into matching.WeightVector by EngineConfig.
	BaseWeights map[string]interface{}    `mapstructure:"base_weights"`
	Categories  map[string]CategoryConfig `mapstructure:"categories"`
	// SlowRankingMs is the duration above which rank-candidates logs a warning.
	SlowRankingMs int `mapstructure:"slow_ranking_ms"`
	// MaxCandidates bounds one rank-candidates batch.
	MaxCandidates int `mapstructure:"max_candidates"`
}

type CategoryConfig struct {
	MaxDistanceKm float64                `mapstructure:"max_distance_km"`
	WeightPolicy  string                 `mapstructure:"weight_policy"`
	BaseWeights   map[string]interface{} `mapstructure:"base_weights"`
}

// PreferencesConfig controls the preferences store cache.
type PreferencesConfig struct {
	CacheEnabled bool `mapstructure:"cache_enabled"`
	CacheTTL     int  `mapstructure:"cache_ttl"` // seconds
}

// RegistryConfig points at the activity registry with the worker schemas.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig holds the health/metrics HTTP listener settings.
type MetricsConfig struct {
	Port        int    `mapstructure:"port"`
	ServiceName string `mapstructure:"service_name"`
}
