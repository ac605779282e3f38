package matching

import "math"

// Aggregate combines weighted dimension scores and the premium boost into
// an integer score clamped to [0, 100].
func Aggregate(dims []CompatibilityDimension, boost float64) int {
	var raw float64
	for _, d := range dims {
		raw += d.Score * d.Weight
	}
	if !finite(boost) || boost <= 0 {
		boost = 1.0
	}

	scaled := math.Round(raw * boost * 100)
	switch {
	case math.IsNaN(scaled):
		return 0
	case scaled < 0:
		return 0
	case scaled > 100:
		return 100
	default:
		return int(scaled)
	}
}

var dimensionDescriptions = map[string]string{
	DimensionSkill:        "Share of required skills the provider covers",
	DimensionLocation:     "Proximity between requester and provider",
	DimensionReputation:   "Standing of both sides on the platform",
	DimensionPrice:        "Fit between budget and expected rate",
	DimensionAvailability: "Provider availability",
	DimensionUrgency:      "Ability to serve the request's urgency",
}

func buildDimensions(res [6]Resolution, w WeightVector) []CompatibilityDimension {
	weights := [6]float64{w.Skill, w.Location, w.Reputation, w.Price, w.Availability, w.Urgency}
	names := [6]string{DimensionSkill, DimensionLocation, DimensionReputation, DimensionPrice, DimensionAvailability, DimensionUrgency}

	dims := make([]CompatibilityDimension, len(names))
	for i, name := range names {
		dims[i] = CompatibilityDimension{
			Name:        name,
			Score:       res[i].Score,
			Weight:      weights[i],
			Description: dimensionDescriptions[name],
			Defaulted:   res[i].Defaulted,
		}
	}
	return dims
}
