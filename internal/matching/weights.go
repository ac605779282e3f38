package matching

import (
	"fmt"
	"math"
	"strings"
)

// WeightVector holds the per-dimension multipliers of the aggregate score.
type WeightVector struct {
	Skill        float64 `json:"skill" mapstructure:"skill"`
	Location     float64 `json:"location" mapstructure:"location"`
	Reputation   float64 `json:"reputation" mapstructure:"reputation"`
	Price        float64 `json:"price" mapstructure:"price"`
	Availability float64 `json:"availability" mapstructure:"availability"`
	Urgency      float64 `json:"urgency" mapstructure:"urgency"`
}

// DefaultWeights returns the base vector. It sums to 1.0.
func DefaultWeights() WeightVector {
	return WeightVector{
		Skill:        0.30,
		Location:     0.20,
		Reputation:   0.15,
		Price:        0.15,
		Availability: 0.10,
		Urgency:      0.10,
	}
}

func (w WeightVector) Sum() float64 {
	return w.Skill + w.Location + w.Reputation + w.Price + w.Availability + w.Urgency
}

// Validate checks a configured base vector: no negative or non-finite
// weights, and a positive total.
func (w WeightVector) Validate() error {
	for _, e := range w.entries() {
		if !finite(*e.value) || *e.value < 0 {
			return fmt.Errorf("weight %s must be a non-negative number, got %v", e.name, *e.value)
		}
	}
	if w.Sum() <= 0 {
		return fmt.Errorf("weights must not all be zero")
	}
	return nil
}

type weightEntry struct {
	name  string
	value *float64
}

func (w *WeightVector) entries() []weightEntry {
	return []weightEntry{
		{DimensionSkill, &w.Skill},
		{DimensionLocation, &w.Location},
		{DimensionReputation, &w.Reputation},
		{DimensionPrice, &w.Price},
		{DimensionAvailability, &w.Availability},
		{DimensionUrgency, &w.Urgency},
	}
}

// MatchPreferences are the user-tunable knobs for one orchestration pass.
type MatchPreferences struct {
	PrioritizeLocation bool     `json:"prioritizeLocation,omitempty"`
	PrioritizeRate     bool     `json:"prioritizeRate,omitempty"`
	PrioritizeUrgent   bool     `json:"prioritizeUrgent,omitempty"`
	MaxDistanceKm      *float64 `json:"maxDistanceKm,omitempty"`
	// BaseWeights replaces the engine's base vector before the flags apply.
	BaseWeights *WeightVector `json:"baseWeights,omitempty"`
}

// WeightPolicy decides what happens when preference deltas push a weight
// below zero.
type WeightPolicy string

const (
	// WeightPolicyClamp raises negative weights to zero.
	WeightPolicyClamp WeightPolicy = "clamp"
	// WeightPolicyRenormalize clamps and then rescales the vector to sum to 1.
	WeightPolicyRenormalize WeightPolicy = "renormalize"
	// WeightPolicyAsIs keeps negative weights untouched.
	WeightPolicyAsIs WeightPolicy = "as_is"
)

func ParseWeightPolicy(s string) (WeightPolicy, error) {
	switch p := WeightPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case WeightPolicyClamp, WeightPolicyRenormalize, WeightPolicyAsIs:
		return p, nil
	case "":
		return WeightPolicyClamp, nil
	default:
		return "", fmt.Errorf("unknown weight policy %q", s)
	}
}

// WeightDiagnostic flags a weight that went negative after adjustment.
type WeightDiagnostic struct {
	Dimension string
	Weight    float64
}

// ResolveWeights applies the preference flags additively to base and then
// the policy. Diagnostics list every weight that was negative before the
// policy ran; they are warnings, never errors.
func ResolveWeights(base WeightVector, prefs MatchPreferences, policy WeightPolicy) (WeightVector, []WeightDiagnostic) {
	w := base

	if prefs.PrioritizeLocation {
		w.Location += 0.10
		w.Skill -= 0.05
		w.Price -= 0.05
	}
	if prefs.PrioritizeRate {
		w.Price += 0.10
		w.Location -= 0.05
		w.Reputation -= 0.05
	}
	if prefs.PrioritizeUrgent {
		w.Urgency += 0.10
		w.Availability += 0.05
		w.Reputation -= 0.05
		w.Location -= 0.05
		w.Skill -= 0.05
	}

	var diags []WeightDiagnostic
	for _, e := range w.entries() {
		// Tolerate float residue from the additions above.
		if *e.value < -1e-9 {
			diags = append(diags, WeightDiagnostic{Dimension: e.name, Weight: *e.value})
		}
	}

	switch policy {
	case WeightPolicyAsIs:
		return w, diags
	case WeightPolicyRenormalize:
		clampWeights(&w)
		sum := w.Sum()
		if sum <= 0 || !finite(sum) {
			return DefaultWeights(), diags
		}
		for _, e := range w.entries() {
			*e.value /= sum
		}
		return w, diags
	default:
		clampWeights(&w)
		return w, diags
	}
}

func clampWeights(w *WeightVector) {
	for _, e := range w.entries() {
		*e.value = math.Max(0, *e.value)
	}
}
