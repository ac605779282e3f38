// Package preferences persists per-user matching preferences and weight
// overrides, optionally scoped to a marketplace category.
package preferences

import (
	"context"
	stderrors "errors"

	"marketplace-matching/internal/matching"
)

// ErrNotFound is returned when a user has no stored preferences.
var ErrNotFound = stderrors.New("preferences not found")

// Profile is what a user stored for a category.
type Profile struct {
	Preferences matching.MatchPreferences `json:"preferences"`
	Weights     *matching.WeightVector    `json:"weights,omitempty"`
}

// MatchPreferences folds the stored weight override into the preferences
// handed to the engine.
func (p Profile) MatchPreferences() matching.MatchPreferences {
	prefs := p.Preferences
	if p.Weights != nil {
		w := *p.Weights
		prefs.BaseWeights = &w
	}
	return prefs
}

type Store interface {
	// Get returns the profile for the category, falling back to the user's
	// category-independent profile.
	Get(ctx context.Context, userID, category string) (*Profile, error)
	Save(ctx context.Context, userID, category string, profile Profile) error
}
