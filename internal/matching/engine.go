// Package matching scores how well a provider fits a requester: six
// dimension calculators, preference-driven weights, a premium boost and
// template explanations, orchestrated over single pairs or batches.
package matching

import (
	"runtime"

	"marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
)

// Config holds the distance cutoff, earth radius, weight policy and
// availability mode of one engine. Engines with different configs can
// coexist, one per category for example.
type Config struct {
	MaxDistanceKm    float64
	EarthRadiusKm    float64
	WeightPolicy     WeightPolicy
	AvailabilityMode AvailabilityMode
	// BaseWeights overrides DefaultWeights for every pass of this engine.
	BaseWeights *WeightVector
	// Concurrency bounds the per-candidate goroutines of a batch.
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		MaxDistanceKm:    DefaultMaxDistanceKm,
		EarthRadiusKm:    DefaultEarthRadiusKm,
		WeightPolicy:     WeightPolicyClamp,
		AvailabilityMode: AvailabilityPresence,
		Concurrency:      runtime.GOMAXPROCS(0),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if !(c.MaxDistanceKm > 0) {
		c.MaxDistanceKm = d.MaxDistanceKm
	}
	if !(c.EarthRadiusKm > 0) {
		c.EarthRadiusKm = d.EarthRadiusKm
	}
	if c.WeightPolicy == "" {
		c.WeightPolicy = d.WeightPolicy
	}
	if c.AvailabilityMode != AvailabilityOverlap {
		c.AvailabilityMode = AvailabilityPresence
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	return c
}

// Recorder receives engine events for metrics.
type Recorder interface {
	CandidateScored(score int)
	CandidateRejected(reason string)
	WeightWarning(dimension string)
}

type nopRecorder struct{}

func (nopRecorder) CandidateScored(int)      {}
func (nopRecorder) CandidateRejected(string) {}
func (nopRecorder) WeightWarning(string)     {}

type Option func(*Engine)

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// Engine is stateless apart from its immutable configuration and is safe
// for concurrent use.
type Engine struct {
	cfg      Config
	logger   logger.Logger
	recorder Recorder
}

func NewEngine(cfg Config, log logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	e := &Engine{
		cfg:      cfg.withDefaults(),
		logger:   log.WithFields(map[string]interface{}{"component": "matching-engine"}),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Config() Config {
	return e.cfg
}

// plan is the per-pass state resolved once before any candidate is scored.
type plan struct {
	weights       WeightVector
	warnings      []string
	maxDistanceKm float64
}

func (e *Engine) newPlan(prefs MatchPreferences) plan {
	base := DefaultWeights()
	if e.cfg.BaseWeights != nil {
		base = *e.cfg.BaseWeights
	}
	if prefs.BaseWeights != nil {
		base = *prefs.BaseWeights
	}

	weights, diags := ResolveWeights(base, prefs, e.cfg.WeightPolicy)

	var warnings []string
	for _, d := range diags {
		warn := errors.NewInvalidWeightConfigurationError(d.Dimension, d.Weight)
		warnings = append(warnings, warn.Error())
		e.recorder.WeightWarning(d.Dimension)
		e.logger.Warn("negative weight after preference adjustment", map[string]interface{}{
			"dimension": d.Dimension,
			"weight":    d.Weight,
			"policy":    string(e.cfg.WeightPolicy),
		})
	}

	maxDistance := e.cfg.MaxDistanceKm
	if prefs.MaxDistanceKm != nil && *prefs.MaxDistanceKm > 0 && finite(*prefs.MaxDistanceKm) {
		maxDistance = *prefs.MaxDistanceKm
	}

	return plan{weights: weights, warnings: warnings, maxDistanceKm: maxDistance}
}

// ScoreOne scores a single requester/provider pair.
func (e *Engine) ScoreOne(requester Requester, provider Provider, prefs MatchPreferences) MatchResult {
	result := e.score(e.newPlan(prefs), requester, provider)
	e.recorder.CandidateScored(result.Score)
	return result
}

func (e *Engine) score(p plan, requester Requester, provider Provider) MatchResult {
	var res [6]Resolution

	res[0] = SkillMatch(requester.Skills(), provider.SkillNames())

	res[1] = LocationProximity(requester.Location, provider.Location, p.maxDistanceKm, e.cfg.EarthRadiusKm)
	if res[1].Defaulted && requester.Location != nil && provider.Location != nil {
		geoErr := errors.NewGeoCalculationError("location dimension fell back to neutral")
		e.logger.Debug(geoErr.Message, map[string]interface{}{
			"requesterId": requester.ID,
			"providerId":  provider.ID,
		})
	}

	var customerRating *float64
	if rating, ok := requester.CustomerRating(); ok {
		customerRating = &rating
	}
	res[2] = ReputationCompatibility(provider.Rating, customerRating)

	var budget *BudgetRange
	if b, ok := requester.Budget(); ok {
		budget = &b
	}
	var rate *RateExpectation
	if r, ok := provider.Rate(); ok {
		rate = &r
	}
	res[3] = PriceMatch(budget, rate)

	res[4] = AvailabilityMatch(provider.Availability, requester.PreferredSchedule, e.cfg.AvailabilityMode)
	res[5] = UrgencyCompatibility(requester.UrgencyLevel, provider.ResponseTimeMinutes)

	dims := buildDimensions(res, p.weights)
	boost := provider.Premium.Boost()

	result := MatchResult{
		Score:        Aggregate(dims, boost),
		Dimensions:   dims,
		Explanations: Explain(dims, requester),
		Boost:        boost,
	}
	if len(p.warnings) > 0 {
		result.Warnings = append([]string(nil), p.warnings...)
	}
	return result
}
