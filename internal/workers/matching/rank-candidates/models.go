// internal/workers/matching/rank-candidates/models.go
package rankcandidates

import (
	"encoding/json"
	"fmt"
	"strings"

	"marketplace-matching/internal/matching"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Direction says which side of the match is being ranked.
type Direction string

const (
	// DirectionRequesters ranks many requesters for one provider.
	DirectionRequesters Direction = "requesters"
	// DirectionProviders ranks many providers for one requester.
	DirectionProviders Direction = "providers"
)

// Input carries either a provider with requesters or a requester with
// providers. Limit 0 returns every scored candidate.
type Input struct {
	UserID      string                     `json:"userId,omitempty"`
	Category    string                     `json:"category,omitempty"`
	Provider    *matching.Provider         `json:"provider,omitempty"`
	Requesters  []matching.Requester       `json:"requesters,omitempty"`
	Requester   *matching.Requester        `json:"requester,omitempty"`
	Providers   []matching.Provider        `json:"providers,omitempty"`
	Preferences *matching.MatchPreferences `json:"preferences,omitempty"`
	Limit       int                        `json:"limit,omitempty"`

	decodedRequesters matching.Decoded[matching.Requester]
	decodedProviders  matching.Decoded[matching.Provider]
}

// UnmarshalJSON decodes the candidate arrays element by element. A
// candidate that cannot be decoded is kept as a rejection for its index.
func (in *Input) UnmarshalJSON(data []byte) error {
	type plain Input
	var raw struct {
		plain
		Requesters json.RawMessage `json:"requesters"`
		Providers  json.RawMessage `json:"providers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = Input(raw.plain)

	if present(raw.Requesters) {
		d, err := matching.DecodeCandidates[matching.Requester](raw.Requesters)
		if err != nil {
			return fmt.Errorf("requesters: %w", err)
		}
		in.Requesters, in.decodedRequesters = d.Candidates, d
	}
	if present(raw.Providers) {
		d, err := matching.DecodeCandidates[matching.Provider](raw.Providers)
		if err != nil {
			return fmt.Errorf("providers: %w", err)
		}
		in.Providers, in.decodedProviders = d.Candidates, d
	}
	return nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// Validate checks the fixed side of the match. Candidates are validated one
// by one during scoring so a malformed record never fails the batch.
func (in Input) Validate() error {
	if _, err := in.direction(); err != nil {
		return err
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.UserID, validation.Length(0, 128)),
		validation.Field(&in.Provider),
		validation.Field(&in.Requester),
		validation.Field(&in.Limit, validation.Min(0)),
	)
}

func (in Input) direction() (Direction, error) {
	switch {
	case in.Provider != nil && in.Requester != nil:
		return "", fmt.Errorf("provide either provider or requester, not both")
	case in.Provider != nil:
		return DirectionRequesters, nil
	case in.Requester != nil:
		return DirectionProviders, nil
	default:
		return "", fmt.Errorf("provider or requester is required")
	}
}

// requesterSet pairs Requesters with the decode rejections, unless the
// slice was replaced after decoding.
func (in Input) requesterSet() matching.Decoded[matching.Requester] {
	d := in.decodedRequesters
	if len(d.Positions) != len(in.Requesters) {
		d.Positions, d.Rejected = nil, nil
	}
	d.Candidates = in.Requesters
	return d
}

func (in Input) providerSet() matching.Decoded[matching.Provider] {
	d := in.decodedProviders
	if len(d.Positions) != len(in.Providers) {
		d.Positions, d.Rejected = nil, nil
	}
	d.Candidates = in.Providers
	return d
}

func (in Input) candidateCount() int {
	if in.Provider != nil {
		return in.requesterSet().Len()
	}
	return in.providerSet().Len()
}

func (in Input) category() string {
	if c := strings.TrimSpace(in.Category); c != "" {
		return c
	}
	if in.Requester != nil {
		return in.Requester.Category
	}
	return ""
}

type Output struct {
	RankingID         string               `json:"rankingId"`
	Direction         Direction            `json:"direction"`
	Ranked            []RankedCandidate    `json:"ranked"`
	Rejected          []matching.Rejection `json:"rejected"`
	Warnings          []string             `json:"warnings,omitempty"`
	InputCount        int                  `json:"inputCount"`
	OutputCount       int                  `json:"outputCount"`
	Engine            string               `json:"engine"`
	PreferencesSource string               `json:"preferencesSource"`
	DurationMs        int64                `json:"durationMs"`
}

type RankedCandidate struct {
	Rank         int                               `json:"rank"`
	CandidateID  string                            `json:"candidateId"`
	Score        int                               `json:"score"`
	Dimensions   []matching.CompatibilityDimension `json:"dimensions"`
	Explanations []string                          `json:"explanations"`
	Boost        float64                           `json:"boost"`
}
