package config

import (
	"fmt"
	"sort"
	"strings"

	"marketplace-matching/internal/matching"

	"github.com/mitchellh/mapstructure"
)

// EngineConfig builds the engine configuration for a marketplace category.
// An empty or unknown category yields the global settings.
func (c *Config) EngineConfig(category string) (matching.Config, error) {
	m := c.Matching

	policy, err := matching.ParseWeightPolicy(m.WeightPolicy)
	if err != nil {
		return matching.Config{}, err
	}

	mode := matching.AvailabilityMode(strings.ToLower(strings.TrimSpace(m.AvailabilityMode)))
	switch mode {
	case "", matching.AvailabilityPresence, matching.AvailabilityOverlap:
	default:
		return matching.Config{}, fmt.Errorf("unknown availability mode %q", m.AvailabilityMode)
	}

	out := matching.Config{
		MaxDistanceKm:    m.MaxDistanceKm,
		EarthRadiusKm:    m.EarthRadiusKm,
		WeightPolicy:     policy,
		AvailabilityMode: mode,
		Concurrency:      m.Concurrency,
	}
	if out.BaseWeights, err = decodeWeights(m.BaseWeights); err != nil {
		return matching.Config{}, err
	}

	cat, ok := c.Matching.Categories[category]
	if category == "" || !ok {
		return out, nil
	}

	if cat.MaxDistanceKm > 0 {
		out.MaxDistanceKm = cat.MaxDistanceKm
	}
	if cat.WeightPolicy != "" {
		if out.WeightPolicy, err = matching.ParseWeightPolicy(cat.WeightPolicy); err != nil {
			return matching.Config{}, err
		}
	}
	if len(cat.BaseWeights) > 0 {
		if out.BaseWeights, err = decodeWeights(cat.BaseWeights); err != nil {
			return matching.Config{}, err
		}
	}
	return out, nil
}

// CategoryNames returns the configured categories in sorted order.
func (c *Config) CategoryNames() []string {
	names := make([]string, 0, len(c.Matching.Categories))
	for name := range c.Matching.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decodeWeights(raw map[string]interface{}) (*matching.WeightVector, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var w matching.WeightVector
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &w,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("base_weights: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("base_weights: %w", err)
	}
	return &w, nil
}
