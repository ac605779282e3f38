// internal/workers/matching/score-compatibility/config.go
package scorecompatibility

import (
	"time"

	"marketplace-matching/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	wc := config.GetWorkerConfig(cfg, TaskType)
	c := &Config{Timeout: config.GetDuration(wc.Timeout)}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}
