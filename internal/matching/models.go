package matching

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Geolocation is a point on the map. City, State and Zip are display-only.
type Geolocation struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	City  string  `json:"city,omitempty"`
	State string  `json:"state,omitempty"`
	Zip   string  `json:"zip,omitempty"`
}

// Valid reports whether the coordinates are finite and in range.
func (g Geolocation) Valid() bool {
	if math.IsNaN(g.Lat) || math.IsNaN(g.Lng) || math.IsInf(g.Lat, 0) || math.IsInf(g.Lng, 0) {
		return false
	}
	return g.Lat >= -90 && g.Lat <= 90 && g.Lng >= -180 && g.Lng <= 180
}

type Skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RateExpectation is what a provider expects to charge.
type RateExpectation struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Preferred float64 `json:"preferred"`
}

type TimeSlot struct {
	Day       string `json:"day"`
	StartHour int    `json:"startHour"`
	EndHour   int    `json:"endHour"`
}

type Availability struct {
	Schedule       []TimeSlot `json:"schedule"`
	PreferredHours *int       `json:"preferredHours,omitempty"`
}

// Provider is the candidate side of a match: a specialist, listing or item.
type Provider struct {
	ID                  string           `json:"id"`
	Skills              []Skill          `json:"skills"`
	Location            *Geolocation     `json:"location,omitempty"`
	Rating              *float64         `json:"rating,omitempty"`
	HourlyRate          *float64         `json:"hourlyRate,omitempty"`
	RatePreferences     *RateExpectation `json:"ratePreferences,omitempty"`
	Availability        *Availability    `json:"availability,omitempty"`
	ResponseTimeMinutes *float64         `json:"responseTimeMinutes,omitempty"`
	VerificationLevel   string           `json:"verificationLevel,omitempty"`
	Premium             PremiumProfile   `json:"premium"`
}

func (p Provider) CandidateID() string { return p.ID }

// SkillNames returns the non-blank skill names.
func (p Provider) SkillNames() []string {
	names := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		if strings.TrimSpace(s.Name) != "" {
			names = append(names, s.Name)
		}
	}
	return names
}

// Rate resolves the provider's pricing. A bare hourly rate becomes a
// zero-width range. A missing preferred rate defaults to the midpoint.
func (p Provider) Rate() (RateExpectation, bool) {
	if p.RatePreferences != nil {
		r := *p.RatePreferences
		if r.Min > r.Max {
			r.Min, r.Max = r.Max, r.Min
		}
		if r.Preferred <= 0 {
			r.Preferred = (r.Min + r.Max) / 2
		}
		if r.Max <= 0 {
			return RateExpectation{}, false
		}
		return r, true
	}
	if p.HourlyRate != nil && *p.HourlyRate > 0 {
		rate := *p.HourlyRate
		return RateExpectation{Min: rate, Max: rate, Preferred: rate}, true
	}
	return RateExpectation{}, false
}

// Validate rejects records that cannot be scored meaningfully.
func (p Provider) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("provider id is required")
	}
	if p.Rating != nil && !finite(*p.Rating) {
		return fmt.Errorf("provider %s: rating is not a number", p.ID)
	}
	if p.HourlyRate != nil && (!finite(*p.HourlyRate) || *p.HourlyRate < 0) {
		return fmt.Errorf("provider %s: invalid hourly rate", p.ID)
	}
	if r := p.RatePreferences; r != nil {
		if !finite(r.Min) || !finite(r.Max) || !finite(r.Preferred) || r.Min < 0 || r.Max < 0 {
			return fmt.Errorf("provider %s: invalid rate preferences", p.ID)
		}
	}
	if p.ResponseTimeMinutes != nil && (!finite(*p.ResponseTimeMinutes) || *p.ResponseTimeMinutes < 0) {
		return fmt.Errorf("provider %s: invalid response time", p.ID)
	}
	if o := p.Premium.BoostOverride; o != nil && !finite(*o) {
		return fmt.Errorf("provider %s: boost factor is not a number", p.ID)
	}
	return nil
}

type Reputation struct {
	OverallRating float64 `json:"overallRating"`
	TotalRatings  int     `json:"totalRatings"`
}

type Customer struct {
	ID         string      `json:"id,omitempty"`
	Reputation *Reputation `json:"reputation,omitempty"`
}

// Requester is the side seeking a match: a job post or booking request.
type Requester struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Location          *Geolocation `json:"location,omitempty"`
	RequiredSkills    []string     `json:"requiredSkills,omitempty"`
	BudgetMin         *float64     `json:"budgetMin,omitempty"`
	BudgetMax         *float64     `json:"budgetMax,omitempty"`
	UrgencyLevel      UrgencyLevel `json:"urgencyLevel,omitempty"`
	Category          string       `json:"category,omitempty"`
	Customer          *Customer    `json:"customer,omitempty"`
	PreferredSchedule []TimeSlot   `json:"preferredSchedule,omitempty"`
}

func (r Requester) CandidateID() string { return r.ID }

// Skills returns the skills a provider is matched against. Without an
// explicit list the category stands in as the single required skill.
func (r Requester) Skills() []string {
	out := make([]string, 0, len(r.RequiredSkills))
	for _, s := range r.RequiredSkills {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 && strings.TrimSpace(r.Category) != "" {
		out = append(out, r.Category)
	}
	return out
}

// CustomerRating returns the requester's own reputation, if known.
func (r Requester) CustomerRating() (float64, bool) {
	if r.Customer == nil || r.Customer.Reputation == nil {
		return 0, false
	}
	return r.Customer.Reputation.OverallRating, true
}

// BudgetRange is the requester's inclusive price window.
type BudgetRange struct {
	Min float64
	Max float64
}

// Budget resolves the budget window. When only one bound is set the other
// is derived with a 1.5x spread.
func (r Requester) Budget() (BudgetRange, bool) {
	switch {
	case r.BudgetMin != nil && r.BudgetMax != nil:
		return BudgetRange{Min: *r.BudgetMin, Max: *r.BudgetMax}, true
	case r.BudgetMin != nil:
		return BudgetRange{Min: *r.BudgetMin, Max: *r.BudgetMin * budgetSpread}, true
	case r.BudgetMax != nil:
		return BudgetRange{Min: *r.BudgetMax / budgetSpread, Max: *r.BudgetMax}, true
	default:
		return BudgetRange{}, false
	}
}

// Validate rejects records that cannot be scored meaningfully.
func (r Requester) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("requester id is required")
	}
	for name, v := range map[string]*float64{"budgetMin": r.BudgetMin, "budgetMax": r.BudgetMax} {
		if v != nil && (!finite(*v) || *v < 0) {
			return fmt.Errorf("requester %s: invalid %s", r.ID, name)
		}
	}
	if r.BudgetMin != nil && r.BudgetMax != nil && *r.BudgetMin > *r.BudgetMax {
		return fmt.Errorf("requester %s: budgetMin exceeds budgetMax", r.ID)
	}
	if rating, ok := r.CustomerRating(); ok && !finite(rating) {
		return fmt.Errorf("requester %s: customer rating is not a number", r.ID)
	}
	return nil
}

// UrgencyLevel is low, medium or high. Input is case-insensitive.
type UrgencyLevel string

const (
	UrgencyUnspecified UrgencyLevel = ""
	UrgencyLow         UrgencyLevel = "low"
	UrgencyMedium      UrgencyLevel = "medium"
	UrgencyHigh        UrgencyLevel = "high"
)

// ParseUrgencyLevel normalizes s. Unknown values map to UrgencyUnspecified.
func ParseUrgencyLevel(s string) UrgencyLevel {
	switch UrgencyLevel(strings.ToLower(strings.TrimSpace(s))) {
	case UrgencyLow:
		return UrgencyLow
	case UrgencyMedium:
		return UrgencyMedium
	case UrgencyHigh:
		return UrgencyHigh
	default:
		return UrgencyUnspecified
	}
}

func (u *UrgencyLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("urgencyLevel: %w", err)
	}
	*u = ParseUrgencyLevel(s)
	return nil
}

// Dimension names, in breakdown order.
const (
	DimensionSkill        = "skillMatch"
	DimensionLocation     = "locationProximity"
	DimensionReputation   = "reputationScore"
	DimensionPrice        = "priceMatch"
	DimensionAvailability = "availabilityMatch"
	DimensionUrgency      = "urgencyCompatibility"
)

// CompatibilityDimension is one scored factor of a match.
type CompatibilityDimension struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description,omitempty"`
	Defaulted   bool    `json:"defaulted"`
}

// MatchResult is computed per request and never persisted by the engine.
type MatchResult struct {
	Score        int                      `json:"score"`
	Dimensions   []CompatibilityDimension `json:"dimensions"`
	Explanations []string                 `json:"explanations"`
	Boost        float64                  `json:"boost"`
	Warnings     []string                 `json:"warnings,omitempty"`
}

// Dimension looks up a dimension by name.
func (m MatchResult) Dimension(name string) (CompatibilityDimension, bool) {
	for _, d := range m.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return CompatibilityDimension{}, false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
