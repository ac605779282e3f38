package preferences

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/matching"
)

const (
	selectProfileSQL = `
		SELECT prioritize_location, prioritize_rate, prioritize_urgent, max_distance_km, weights
		FROM match_preferences
		WHERE user_id = $1 AND category IN ($2, '')
		ORDER BY category DESC
		LIMIT 1`

	upsertProfileSQL = `
		INSERT INTO match_preferences
			(user_id, category, prioritize_location, prioritize_rate, prioritize_urgent, max_distance_km, weights, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id, category) DO UPDATE SET
			prioritize_location = EXCLUDED.prioritize_location,
			prioritize_rate     = EXCLUDED.prioritize_rate,
			prioritize_urgent   = EXCLUDED.prioritize_urgent,
			max_distance_km     = EXCLUDED.max_distance_km,
			weights             = EXCLUDED.weights,
			updated_at          = NOW()`
)

// PostgresStore reads and writes the match_preferences table.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "preferences-postgres"}),
	}
}

func (s *PostgresStore) Get(ctx context.Context, userID, category string) (*Profile, error) {
	var (
		profile     Profile
		maxDistance sql.NullFloat64
		weights     []byte
	)

	err := s.db.QueryRowContext(ctx, selectProfileSQL, userID, category).Scan(
		&profile.Preferences.PrioritizeLocation,
		&profile.Preferences.PrioritizeRate,
		&profile.Preferences.PrioritizeUrgent,
		&maxDistance,
		&weights,
	)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, s.wrap(ctx, userID, "select_preferences", err)
	}

	if maxDistance.Valid && maxDistance.Float64 > 0 {
		d := maxDistance.Float64
		profile.Preferences.MaxDistanceKm = &d
	}

	if len(weights) > 0 {
		var w matching.WeightVector
		if err := json.Unmarshal(weights, &w); err != nil {
			s.logger.Warn("ignoring unreadable stored weights", map[string]interface{}{
				"userId": userID,
				"error":  err,
			})
		} else if err := w.Validate(); err != nil {
			s.logger.Warn("ignoring invalid stored weights", map[string]interface{}{
				"userId": userID,
				"error":  err,
			})
		} else {
			profile.Weights = &w
		}
	}

	return &profile, nil
}

func (s *PostgresStore) Save(ctx context.Context, userID, category string, profile Profile) error {
	if userID == "" {
		return errors.NewInputValidationError("userId is required")
	}

	var weights interface{}
	if profile.Weights != nil {
		if err := profile.Weights.Validate(); err != nil {
			return errors.NewInputValidationError(err.Error())
		}
		data, err := json.Marshal(profile.Weights)
		if err != nil {
			return fmt.Errorf("encode weights: %w", err)
		}
		weights = data
	}

	var maxDistance sql.NullFloat64
	if d := profile.Preferences.MaxDistanceKm; d != nil && *d > 0 {
		maxDistance = sql.NullFloat64{Float64: *d, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, upsertProfileSQL,
		userID, category,
		profile.Preferences.PrioritizeLocation,
		profile.Preferences.PrioritizeRate,
		profile.Preferences.PrioritizeUrgent,
		maxDistance,
		weights,
	)
	if err != nil {
		return s.wrap(ctx, userID, "upsert_preferences", err)
	}

	s.logger.Debug("preferences saved", map[string]interface{}{
		"userId":   userID,
		"category": category,
	})
	return nil
}

func (s *PostgresStore) wrap(ctx context.Context, userID, queryType string, err error) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewQueryTimeoutError(queryType)
	}
	return errors.NewPreferencesLookupFailedError(userID, err)
}
