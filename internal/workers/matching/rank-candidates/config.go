// internal/workers/matching/rank-candidates/config.go
package rankcandidates

import (
	"time"

	"marketplace-matching/internal/common/config"
)

type Config struct {
	// MaxCandidates bounds one batch; larger jobs are rejected as input errors.
	MaxCandidates int
	// SlowRanking is the duration above which a ranking is logged as slow.
	SlowRanking time.Duration
	Timeout     time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	wc := config.GetWorkerConfig(cfg, TaskType)
	c := &Config{
		MaxCandidates: cfg.Matching.MaxCandidates,
		SlowRanking:   config.GetDuration(cfg.Matching.SlowRankingMs),
		Timeout:       config.GetDuration(wc.Timeout),
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 1000
	}
	if c.SlowRanking <= 0 {
		c.SlowRanking = 500 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}
