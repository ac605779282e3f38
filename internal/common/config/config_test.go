package config

import (
	"os"
	"path/filepath"
	"testing"

	"marketplace-matching/internal/matching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
app:
  name: marketplace-matching
  version: 1.2.0
camunda:
  broker_address: ${TEST_ZEEBE_ADDRESS}
database:
  postgres:
    host: localhost
    database: marketplace
    user: matcher
  redis:
    address: localhost:6379
workers:
  score-compatibility:
    enabled: true
  rank-candidates:
    enabled: false
    max_jobs_active: 2
matching:
  weight_policy: renormalize
  base_weights:
    skill: 0.4
    location: 0.2
    reputation: 0.1
    price: 0.1
    availability: 0.1
    urgency: 0.1
  categories:
    home-services:
      max_distance_km: 25
    tutoring:
      max_distance_km: 500
      weight_policy: as_is
      base_weights:
        skill: "0.5"
        location: 0.05
        reputation: 0.15
        price: 0.15
        availability: 0.1
        urgency: 0.05
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("TEST_ZEEBE_ADDRESS", "zeebe:26500")

	cfg, err := LoadFromFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "zeebe:26500", cfg.Camunda.BrokerAddress)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, 50.0, cfg.Matching.MaxDistanceKm)
	assert.Equal(t, 500, cfg.Matching.SlowRankingMs)
	assert.Equal(t, 600, cfg.Preferences.CacheTTL)
	assert.Equal(t, 8080, cfg.Metrics.Port)

	assert.True(t, IsWorkerEnabled(cfg, "score-compatibility"))
	assert.False(t, IsWorkerEnabled(cfg, "rank-candidates"))
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "rank-candidates").MaxJobsActive)
	assert.Equal(t, 30000, GetWorkerConfig(cfg, "score-compatibility").Timeout)

	assert.Equal(t, []string{"home-services", "tutoring"}, cfg.CategoryNames())
}

func TestEngineConfig(t *testing.T) {
	t.Setenv("TEST_ZEEBE_ADDRESS", "zeebe:26500")
	cfg, err := LoadFromFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	tests := []struct {
		name        string
		category    string
		maxDistance float64
		policy      matching.WeightPolicy
		skillWeight float64
	}{
		{"global", "", 50, matching.WeightPolicyRenormalize, 0.4},
		{"unknown category uses global", "pets", 50, matching.WeightPolicyRenormalize, 0.4},
		{"distance override only", "home-services", 25, matching.WeightPolicyRenormalize, 0.4},
		{"full override with weakly typed weight", "tutoring", 500, matching.WeightPolicyAsIs, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec, err := cfg.EngineConfig(tt.category)
			require.NoError(t, err)
			assert.Equal(t, tt.maxDistance, ec.MaxDistanceKm)
			assert.Equal(t, tt.policy, ec.WeightPolicy)
			require.NotNil(t, ec.BaseWeights)
			assert.Equal(t, tt.skillWeight, ec.BaseWeights.Skill)
			assert.Equal(t, matching.AvailabilityPresence, ec.AvailabilityMode)
		})
	}
}

func TestValidateConfig_Errors(t *testing.T) {
	base := func() *Config {
		return &Config{
			Camunda: CamundaConfig{BrokerAddress: "zeebe:26500"},
			Database: DatabaseConfig{
				Postgres: PostgresConfig{Host: "localhost", Database: "db", User: "u"},
				Redis:    RedisConfig{Address: "localhost:6379"},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing broker", func(c *Config) { c.Camunda.BrokerAddress = "" }, "camunda.broker_address"},
		{"missing redis", func(c *Config) { c.Database.Redis.Address = "" }, "database.redis.address"},
		{"bad policy", func(c *Config) { c.Matching.WeightPolicy = "ignore" }, "unknown weight policy"},
		{"bad availability mode", func(c *Config) { c.Matching.AvailabilityMode = "calendar" }, "unknown availability mode"},
		{"unknown weight key", func(c *Config) {
			c.Matching.BaseWeights = map[string]interface{}{"skill": 1.0, "charisma": 0.2}
		}, "base_weights"},
		{"negative weight", func(c *Config) {
			c.Matching.Categories = map[string]CategoryConfig{
				"events": {BaseWeights: map[string]interface{}{"skill": -1.0}},
			}
		}, "matching.categories.events"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			applyDefaults(cfg)
			tt.mutate(cfg)
			err := validateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	cfg := base()
	applyDefaults(cfg)
	assert.NoError(t, validateConfig(cfg))
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "m", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=m sslmode=disable", p.GetDSN())
}
