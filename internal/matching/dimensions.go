package matching

import (
	"math"
	"strings"
)

const (
	// NeutralScore is used whenever a dimension lacks the data to be scored.
	NeutralScore = 0.5

	DefaultMaxDistanceKm = 50.0
	DefaultEarthRadiusKm = 6371.0

	budgetSpread = 1.5
)

// Resolution is a dimension score together with whether it fell back to
// the neutral default.
type Resolution struct {
	Score     float64
	Defaulted bool
}

// resolveOrNeutral is the one place the neutral-default policy lives: when
// the inputs are incomplete, or the computation does not yield a finite
// number, the dimension scores NeutralScore.
func resolveOrNeutral(ok bool, compute func() float64) Resolution {
	if !ok {
		return Resolution{Score: NeutralScore, Defaulted: true}
	}
	v := compute()
	if !finite(v) {
		return Resolution{Score: NeutralScore, Defaulted: true}
	}
	return Resolution{Score: clamp01(v)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SkillMatch is the share of required skills found among the provider's
// skill names. Matching is case-insensitive containment in either direction.
func SkillMatch(required, providerSkills []string) Resolution {
	return resolveOrNeutral(len(required) > 0 && len(providerSkills) > 0, func() float64 {
		have := make([]string, 0, len(providerSkills))
		for _, s := range providerSkills {
			have = append(have, strings.ToLower(strings.TrimSpace(s)))
		}
		matched := 0
		for _, req := range required {
			want := strings.ToLower(strings.TrimSpace(req))
			for _, h := range have {
				if want != "" && h != "" && (strings.Contains(h, want) || strings.Contains(want, h)) {
					matched++
					break
				}
			}
		}
		return float64(matched) / float64(len(required))
	})
}

// HaversineKm is the great-circle distance between a and b.
func HaversineKm(a, b Geolocation, earthRadiusKm float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// LocationProximity decays linearly from 1 at the same point to 0 at
// maxDistanceKm. Missing or invalid coordinates score neutral.
func LocationProximity(requester, provider *Geolocation, maxDistanceKm, earthRadiusKm float64) Resolution {
	ok := requester != nil && provider != nil &&
		requester.Valid() && provider.Valid() &&
		maxDistanceKm > 0 && earthRadiusKm > 0
	return resolveOrNeutral(ok, func() float64 {
		d := HaversineKm(*requester, *provider, earthRadiusKm)
		return math.Max(0, 1-d/maxDistanceKm)
	})
}

// ReputationCompatibility averages both sides' 0-5 ratings.
func ReputationCompatibility(providerRating, customerRating *float64) Resolution {
	ok := providerRating != nil && customerRating != nil
	return resolveOrNeutral(ok, func() float64 {
		p := math.Min(math.Max(*providerRating, 0), 5)
		c := math.Min(math.Max(*customerRating, 0), 5)
		return (p/5 + c/5) / 2
	})
}

// PriceMatch compares the budget window with the provider's rate range.
func PriceMatch(budget *BudgetRange, rate *RateExpectation) Resolution {
	return resolveOrNeutral(budget != nil && rate != nil, func() float64 {
		switch {
		case budget.Min <= rate.Preferred && rate.Preferred <= budget.Max:
			return 1.0
		case rate.Min <= budget.Max && budget.Min <= rate.Max:
			return 0.7
		}

		var gap float64
		if rate.Min > budget.Max {
			gap = rate.Min - budget.Max
		} else {
			gap = budget.Min - rate.Max
		}

		switch {
		case gap <= 10:
			return 0.5
		case gap <= 20:
			return 0.3
		default:
			return 0.1
		}
	})
}

// AvailabilityMode selects how the availability dimension is computed.
type AvailabilityMode string

const (
	// AvailabilityPresence scores 0.8 whenever the provider publishes any
	// availability. It does not look at the schedule itself.
	AvailabilityPresence AvailabilityMode = "presence"
	// AvailabilityOverlap scores the share of the requester's preferred
	// hours covered by the provider's schedule.
	AvailabilityOverlap AvailabilityMode = "overlap"
)

const availabilityPresentScore = 0.8

// AvailabilityMatch scores the provider's availability against the
// requester's preferred schedule according to mode.
func AvailabilityMatch(provider *Availability, requested []TimeSlot, mode AvailabilityMode) Resolution {
	present := provider != nil && (len(provider.Schedule) > 0 || provider.PreferredHours != nil)
	if mode == AvailabilityOverlap && present && len(provider.Schedule) > 0 && len(requested) > 0 {
		if score, ok := scheduleOverlap(provider.Schedule, requested); ok {
			return resolveOrNeutral(true, func() float64 { return score })
		}
	}
	return resolveOrNeutral(present, func() float64 { return availabilityPresentScore })
}

// scheduleOverlap returns covered requested hours over total requested
// hours. ok is false when the requested slots contain no hours.
func scheduleOverlap(offered, requested []TimeSlot) (float64, bool) {
	var wanted, covered float64
	for _, req := range requested {
		length := float64(req.EndHour - req.StartHour)
		if length <= 0 {
			continue
		}
		wanted += length

		var slotCovered float64
		for _, off := range offered {
			if !strings.EqualFold(strings.TrimSpace(off.Day), strings.TrimSpace(req.Day)) {
				continue
			}
			start := math.Max(float64(off.StartHour), float64(req.StartHour))
			end := math.Min(float64(off.EndHour), float64(req.EndHour))
			if end > start {
				slotCovered += end - start
			}
		}
		covered += math.Min(slotCovered, length)
	}
	if wanted == 0 {
		return 0, false
	}
	return covered / wanted, true
}

var urgencyBase = map[UrgencyLevel]float64{
	UrgencyLow:    0.3,
	UrgencyMedium: 0.6,
	UrgencyHigh:   0.9,
}

// UrgencyCompatibility maps the urgency level to a base value and, for
// urgent requests, blends in how quickly the provider responds.
func UrgencyCompatibility(level UrgencyLevel, responseTimeMinutes *float64) Resolution {
	base, ok := urgencyBase[ParseUrgencyLevel(string(level))]
	return resolveOrNeutral(ok, func() float64 {
		if base > 0.7 && responseTimeMinutes != nil && finite(*responseTimeMinutes) {
			responseScore := math.Max(0, 1-*responseTimeMinutes/60)
			return 0.4*base + 0.6*responseScore
		}
		return base
	})
}
