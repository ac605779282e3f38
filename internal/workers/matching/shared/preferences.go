package shared

import (
	"context"
	stderrors "errors"

	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/matching"
	"marketplace-matching/internal/preferences"
)

// PreferenceSource tells where the preferences of a job came from.
type PreferenceSource string

const (
	SourceExplicit PreferenceSource = "explicit"
	SourceStored   PreferenceSource = "stored"
	SourceDefault  PreferenceSource = "default"
)

// PreferenceResolver picks the preferences for one job: explicit job
// variables first, then the user's stored profile, then engine defaults.
type PreferenceResolver struct {
	store  preferences.Store
	logger logger.Logger
}

// NewPreferenceResolver accepts a nil store, in which case only explicit
// preferences and defaults are used.
func NewPreferenceResolver(store preferences.Store, log logger.Logger) *PreferenceResolver {
	return &PreferenceResolver{store: store, logger: log}
}

// Resolve returns the preferences to score with. Store failures other than
// a missing profile are returned so the job can be retried.
func (r *PreferenceResolver) Resolve(ctx context.Context, userID, category string, explicit *matching.MatchPreferences) (matching.MatchPreferences, PreferenceSource, error) {
	if explicit != nil {
		return *explicit, SourceExplicit, nil
	}
	if r == nil || r.store == nil || userID == "" {
		return matching.MatchPreferences{}, SourceDefault, nil
	}

	profile, err := r.store.Get(ctx, userID, category)
	switch {
	case stderrors.Is(err, preferences.ErrNotFound):
		r.logger.Debug("no stored preferences", map[string]interface{}{
			"userId":   userID,
			"category": category,
		})
		return matching.MatchPreferences{}, SourceDefault, nil
	case err != nil:
		return matching.MatchPreferences{}, "", err
	}

	return profile.MatchPreferences(), SourceStored, nil
}
