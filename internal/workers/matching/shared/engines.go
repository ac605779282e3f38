// Package shared holds what the matching workers have in common: engine
// selection by category, preference resolution, variable decoding and job
// tracking.
package shared

import (
	"fmt"
	"strings"

	"marketplace-matching/internal/common/config"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/common/metrics"
	"marketplace-matching/internal/matching"
)

// DefaultEngine names the engine used when a job's category has no
// dedicated configuration.
const DefaultEngine = "default"

// EngineSet maps marketplace categories to engines. Category lookup is
// case-insensitive.
type EngineSet struct {
	fallback   *matching.Engine
	byCategory map[string]*matching.Engine
}

func NewEngineSet(fallback *matching.Engine, byCategory map[string]*matching.Engine) *EngineSet {
	set := &EngineSet{
		fallback:   fallback,
		byCategory: make(map[string]*matching.Engine, len(byCategory)),
	}
	for name, engine := range byCategory {
		set.byCategory[normalizeCategory(name)] = engine
	}
	return set
}

// NewEngineSetFromConfig builds the default engine plus one engine per
// configured category, each reporting to Prometheus under its own name.
func NewEngineSetFromConfig(cfg *config.Config, log logger.Logger) (*EngineSet, error) {
	base, err := cfg.EngineConfig("")
	if err != nil {
		return nil, fmt.Errorf("default engine: %w", err)
	}
	fallback := matching.NewEngine(base, log.WithFields(map[string]interface{}{"engine": DefaultEngine}),
		matching.WithRecorder(metrics.NewEngineRecorder(DefaultEngine)))

	engines := make(map[string]*matching.Engine)
	for _, name := range cfg.CategoryNames() {
		ec, err := cfg.EngineConfig(name)
		if err != nil {
			return nil, fmt.Errorf("engine %s: %w", name, err)
		}
		engines[name] = matching.NewEngine(ec, log.WithFields(map[string]interface{}{"engine": name}),
			matching.WithRecorder(metrics.NewEngineRecorder(name)))
	}

	return NewEngineSet(fallback, engines), nil
}

// For returns the engine for category and the name it is known by.
func (s *EngineSet) For(category string) (*matching.Engine, string) {
	key := normalizeCategory(category)
	if engine, ok := s.byCategory[key]; ok && key != "" {
		return engine, key
	}
	return s.fallback, DefaultEngine
}

func (s *EngineSet) Len() int {
	return len(s.byCategory) + 1
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
