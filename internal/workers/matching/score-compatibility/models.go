// internal/workers/matching/score-compatibility/models.go
package scorecompatibility

import (
	"strings"

	"marketplace-matching/internal/matching"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Input struct {
	UserID      string                     `json:"userId,omitempty"`
	Category    string                     `json:"category,omitempty"`
	Requester   matching.Requester         `json:"requester"`
	Provider    matching.Provider          `json:"provider"`
	Preferences *matching.MatchPreferences `json:"preferences,omitempty"`
}

// Validate runs the record-level checks the JSON schema cannot express.
func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.UserID, validation.Length(0, 128)),
		validation.Field(&in.Requester),
		validation.Field(&in.Provider),
	)
}

// category prefers the explicit job variable over the requester's own.
func (in Input) category() string {
	if c := strings.TrimSpace(in.Category); c != "" {
		return c
	}
	return in.Requester.Category
}

type Output struct {
	MatchScore        int                               `json:"matchScore"`
	Dimensions        []matching.CompatibilityDimension `json:"dimensions"`
	Explanations      []string                          `json:"explanations"`
	Boost             float64                           `json:"boost"`
	Warnings          []string                          `json:"warnings,omitempty"`
	Engine            string                            `json:"engine"`
	PreferencesSource string                            `json:"preferencesSource"`
}
