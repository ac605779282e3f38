package matching

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PremiumTier is the provider's subscription tier.
type PremiumTier int

const (
	TierNone PremiumTier = iota
	TierBasic
	TierPro
	TierElite
)

func (t PremiumTier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierBasic:
		return "basic"
	case TierPro:
		return "pro"
	case TierElite:
		return "elite"
	default:
		return fmt.Sprintf("PremiumTier(%d)", int(t))
	}
}

// ParsePremiumTier accepts basic, pro and elite, case-insensitive.
func ParsePremiumTier(s string) (PremiumTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return TierBasic, nil
	case "pro":
		return TierPro, nil
	case "elite":
		return TierElite, nil
	default:
		return TierNone, fmt.Errorf("unknown premium level %q", s)
	}
}

// PremiumProfile selects the multiplicative boost applied to a provider's
// own score. BoostOverride replaces the tier default for premium providers.
type PremiumProfile struct {
	Tier          PremiumTier
	BoostOverride *float64
}

// Boost returns the multiplier for this profile, 1.0 for non-premium.
func (p PremiumProfile) Boost() float64 {
	var tierDefault float64
	switch p.Tier {
	case TierNone:
		return 1.0
	case TierBasic:
		tierDefault = 1.1
	case TierPro:
		tierDefault = 1.2
	case TierElite:
		tierDefault = 1.3
	default:
		return 1.0
	}
	if o := p.BoostOverride; o != nil && finite(*o) && *o > 0 {
		return *o
	}
	return tierDefault
}

type premiumWire struct {
	IsPremium    bool     `json:"isPremium"`
	PremiumLevel string   `json:"premiumLevel,omitempty"`
	BoostFactor  *float64 `json:"boostFactor,omitempty"`
}

func (p PremiumProfile) MarshalJSON() ([]byte, error) {
	w := premiumWire{IsPremium: p.Tier != TierNone, BoostFactor: p.BoostOverride}
	if w.IsPremium {
		w.PremiumLevel = p.Tier.String()
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads {isPremium, premiumLevel, boostFactor}. Premium
// without a level is treated as basic; an unknown level is an error.
func (p *PremiumProfile) UnmarshalJSON(data []byte) error {
	var w premiumWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = PremiumProfile{BoostOverride: w.BoostFactor}
	if !w.IsPremium {
		return nil
	}
	if strings.TrimSpace(w.PremiumLevel) == "" {
		p.Tier = TierBasic
		return nil
	}
	tier, err := ParsePremiumTier(w.PremiumLevel)
	if err != nil {
		return err
	}
	p.Tier = tier
	return nil
}
