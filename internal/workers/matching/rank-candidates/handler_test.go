// internal/workers/matching/rank-candidates/handler_test.go
package rankcandidates

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"marketplace-matching/internal/common/config"
	"marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/matching"
	"marketplace-matching/internal/workers/matching/shared"
	"marketplace-matching/pkg/registry"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const registryPath = "../../../../configs/activity-registry.json"

func f64(v float64) *float64 { return &v }

func createTestConfig() *Config {
	return &Config{
		MaxCandidates: 10,
		SlowRanking:   500 * time.Millisecond,
		Timeout:       5 * time.Second,
	}
}

func createTestHandler(t *testing.T, cfg *Config) *Handler {
	log := logger.NewTestLogger(t)
	engines := shared.NewEngineSet(matching.NewEngine(matching.DefaultConfig(), log), nil)

	reg, err := registry.LoadRegistry(registryPath)
	require.NoError(t, err)
	validator, err := reg.InputValidator(TaskType)
	require.NoError(t, err)

	return NewHandler(cfg, engines, shared.NewPreferenceResolver(nil, log), validator, nil, log)
}

func reactProvider(id string) matching.Provider {
	return matching.Provider{
		ID:                  id,
		Skills:              []matching.Skill{{ID: "s1", Name: "JavaScript"}, {ID: "s2", Name: "React"}},
		Location:            &matching.Geolocation{Lat: 40.71, Lng: -74.00},
		Rating:              f64(4.8),
		HourlyRate:          f64(80),
		ResponseTimeMinutes: f64(20),
	}
}

func reactRequester(id string) matching.Requester {
	return matching.Requester{
		ID:           id,
		Title:        "Build a React dashboard",
		Location:     &matching.Geolocation{Lat: 40.73, Lng: -73.99},
		BudgetMin:    f64(70),
		BudgetMax:    f64(90),
		UrgencyLevel: matching.UrgencyHigh,
		Category:     "React",
		Customer:     &matching.Customer{ID: "c-1", Reputation: &matching.Reputation{OverallRating: 4.5, TotalRatings: 12}},
	}
}

// weakRequester shares nothing with reactProvider.
func weakRequester(id string) matching.Requester {
	return matching.Requester{
		ID:             id,
		Location:       &matching.Geolocation{Lat: 34.05, Lng: -118.24},
		RequiredSkills: []string{"Plumbing"},
		BudgetMax:      f64(20),
	}
}

func ids(ranked []RankedCandidate) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.CandidateID
	}
	return out
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_RanksRequesters(t *testing.T) {
	h := createTestHandler(t, createTestConfig())
	provider := reactProvider("provider-1")

	input := &Input{
		Provider: &provider,
		Requesters: []matching.Requester{
			weakRequester("weak"),
			reactRequester("strong-b"),
			{ID: ""},
			reactRequester("strong-a"),
		},
	}

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(output.RankingID)
	assert.NoError(t, parseErr)
	assert.Equal(t, DirectionRequesters, output.Direction)
	assert.Equal(t, []string{"strong-a", "strong-b", "weak"}, ids(output.Ranked))
	assert.Equal(t, 4, output.InputCount)
	assert.Equal(t, 3, output.OutputCount)
	assert.Equal(t, 1, output.Ranked[0].Rank)
	assert.Equal(t, 91, output.Ranked[0].Score)
	assert.Greater(t, output.Ranked[1].Score, output.Ranked[2].Score)

	require.Len(t, output.Rejected, 1)
	assert.Equal(t, 2, output.Rejected[0].Index)
	assert.Equal(t, errors.ErrCodeCandidateEvaluationFailed, output.Rejected[0].Code)
	assert.Equal(t, shared.DefaultEngine, output.Engine)
	assert.Equal(t, string(shared.SourceDefault), output.PreferencesSource)
}

func TestHandler_Execute_RanksProviders(t *testing.T) {
	h := createTestHandler(t, createTestConfig())
	requester := reactRequester("request-1")

	slow := reactProvider("slow")
	slow.ResponseTimeMinutes = f64(600)
	premium := reactProvider("premium")
	premium.Premium = matching.PremiumProfile{Tier: matching.TierElite}

	input := &Input{
		Requester: &requester,
		Providers: []matching.Provider{slow, reactProvider("plain"), premium},
		Limit:     2,
	}

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, DirectionProviders, output.Direction)
	assert.Equal(t, []string{"premium", "plain"}, ids(output.Ranked))
	assert.Equal(t, 3, output.InputCount)
	assert.Equal(t, 2, output.OutputCount)
	assert.Empty(t, output.Rejected)
	assert.NotNil(t, output.Rejected)
}

func TestHandler_Execute_Limit(t *testing.T) {
	provider := reactProvider("provider-1")
	requesters := make([]matching.Requester, 5)
	for i := range requesters {
		requesters[i] = reactRequester(fmt.Sprintf("r-%d", i))
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, 5},
		{1, 1},
		{3, 3},
		{9, 5},
	}

	h := createTestHandler(t, createTestConfig())
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit=%d", tt.limit), func(t *testing.T) {
			output, err := h.Execute(context.Background(), &Input{Provider: &provider, Requesters: requesters, Limit: tt.limit})
			require.NoError(t, err)
			assert.Len(t, output.Ranked, tt.want)
			assert.Equal(t, "r-0", output.Ranked[0].CandidateID)
		})
	}
}

func TestHandler_Execute_Errors(t *testing.T) {
	provider := reactProvider("provider-1")
	requester := reactRequester("request-1")
	badProvider := matching.Provider{ID: "bad", HourlyRate: f64(-1)}

	many := make([]matching.Requester, 11)
	for i := range many {
		many[i] = reactRequester(fmt.Sprintf("r-%d", i))
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name  string
		ctx   context.Context
		input *Input
		code  errors.ErrorCode
	}{
		{name: "nil input", input: nil, code: errors.ErrCodeInputValidationFailed},
		{name: "neither side", input: &Input{}, code: errors.ErrCodeInputValidationFailed},
		{
			name:  "both sides",
			input: &Input{Provider: &provider, Requester: &requester},
			code:  errors.ErrCodeInputValidationFailed,
		},
		{
			name:  "invalid fixed provider",
			input: &Input{Provider: &badProvider, Requesters: many[:1]},
			code:  errors.ErrCodeInputValidationFailed,
		},
		{
			name:  "negative limit",
			input: &Input{Provider: &provider, Requesters: many[:1], Limit: -1},
			code:  errors.ErrCodeInputValidationFailed,
		},
		{
			name:  "too many candidates",
			input: &Input{Provider: &provider, Requesters: many},
			code:  errors.ErrCodeInputValidationFailed,
		},
		{
			name:  "cancelled",
			ctx:   cancelled,
			input: &Input{Provider: &provider, Requesters: many[:3]},
			code:  errors.ErrCodeRankingCancelled,
		},
	}

	h := createTestHandler(t, createTestConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.ctx
			if ctx == nil {
				ctx = context.Background()
			}
			_, err := h.Execute(ctx, tt.input)
			code, ok := errors.CodeOf(err)
			require.True(t, ok, "unexpected error %v", err)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestHandler_Execute_CategoryFromRequester(t *testing.T) {
	log := logger.NewTestLogger(t)
	engines := shared.NewEngineSet(
		matching.NewEngine(matching.DefaultConfig(), log),
		map[string]*matching.Engine{"react": matching.NewEngine(matching.DefaultConfig(), log)},
	)
	h := NewHandler(createTestConfig(), engines, shared.NewPreferenceResolver(nil, log), nil, nil, log)

	requester := reactRequester("request-1")
	output, err := h.Execute(context.Background(), &Input{Requester: &requester, Providers: []matching.Provider{reactProvider("p")}})
	require.NoError(t, err)
	assert.Equal(t, "react", output.Engine)

	provider := reactProvider("p")
	output, err = h.Execute(context.Background(), &Input{Provider: &provider, Requesters: []matching.Requester{requester}})
	require.NoError(t, err)
	assert.Equal(t, shared.DefaultEngine, output.Engine)
}

func TestHandler_Execute_WeightWarnings(t *testing.T) {
	h := createTestHandler(t, createTestConfig())
	provider := reactProvider("provider-1")

	input := &Input{
		Provider:   &provider,
		Requesters: []matching.Requester{reactRequester("r-1")},
		Preferences: &matching.MatchPreferences{
			PrioritizeRate:   true,
			PrioritizeUrgent: true,
			BaseWeights:      &matching.WeightVector{Skill: 0.40, Location: 0.20, Reputation: 0.05, Price: 0.15, Availability: 0.10, Urgency: 0.10},
		},
	}

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, output.Warnings, 1)
	assert.Contains(t, output.Warnings[0], string(errors.ErrCodeInvalidWeightConfiguration))
	assert.Equal(t, string(shared.SourceExplicit), output.PreferencesSource)
}

// ==========================
// Variables & Config
// ==========================

func TestInputSchema(t *testing.T) {
	h := createTestHandler(t, createTestConfig())

	tests := []struct {
		name      string
		variables string
		valid     bool
	}{
		{name: "provider with requesters", variables: `{"provider":{"id":"p"},"requesters":[{"id":"r"}]}`, valid: true},
		{name: "requester with providers", variables: `{"requester":{"id":"r"},"providers":[{"id":"p"}],"limit":5}`, valid: true},
		{name: "provider without requesters", variables: `{"provider":{"id":"p"}}`},
		{name: "fractional limit", variables: `{"provider":{"id":"p"},"requesters":[],"limit":1.5}`},
		{name: "negative limit", variables: `{"provider":{"id":"p"},"requesters":[],"limit":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var input Input
			err := shared.DecodeVariables(h.validator, tt.variables, &input)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			code, _ := errors.CodeOf(err)
			assert.Equal(t, errors.ErrCodeInputValidationFailed, code)
		})
	}
}

func TestHandler_Execute_UndecodableCandidates(t *testing.T) {
	h := createTestHandler(t, createTestConfig())

	tests := []struct {
		name       string
		variables  string
		direction  Direction
		ranked     []string
		rejectedAt []int
		rejectedID []string
	}{
		{
			name: "one good and one bad provider",
			variables: `{"requester":{"id":"request-1","category":"React","budgetMin":70,"budgetMax":90},
				"providers":[
					{"id":"good","skills":[{"id":"s2","name":"React"}],"hourlyRate":80},
					{"id":"bad-tier","premium":{"isPremium":true,"premiumLevel":"platinum"}}
				]}`,
			direction:  DirectionProviders,
			ranked:     []string{"good"},
			rejectedAt: []int{1},
			rejectedID: []string{"bad-tier"},
		},
		{
			name: "bad records between good ones",
			variables: `{"requester":{"id":"request-1"},
				"providers":[
					{"id":"bad-rating","rating":"five"},
					{"id":"p-1"},
					{"id":42},
					{"id":"p-2"}
				]}`,
			direction:  DirectionProviders,
			ranked:     []string{"p-1", "p-2"},
			rejectedAt: []int{0, 2},
			rejectedID: []string{"bad-rating", ""},
		},
		{
			name: "requesters with an invalid record and a bad one",
			variables: `{"provider":{"id":"provider-1"},
				"requesters":[
					{"id":"r-1"},
					{"id":""},
					{"id":"r-bad","urgencyLevel":3}
				]}`,
			direction:  DirectionRequesters,
			ranked:     []string{"r-1"},
			rejectedAt: []int{1, 2},
			rejectedID: []string{"", "r-bad"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var input Input
			require.NoError(t, shared.DecodeVariables(h.validator, tt.variables, &input))

			output, err := h.Execute(context.Background(), &input)
			require.NoError(t, err)

			assert.Equal(t, tt.direction, output.Direction)
			assert.Equal(t, tt.ranked, ids(output.Ranked))
			assert.Equal(t, len(tt.ranked)+len(tt.rejectedAt), output.InputCount)

			require.Len(t, output.Rejected, len(tt.rejectedAt))
			for i, r := range output.Rejected {
				assert.Equal(t, tt.rejectedAt[i], r.Index)
				assert.Equal(t, tt.rejectedID[i], r.CandidateID)
				assert.Equal(t, errors.ErrCodeCandidateEvaluationFailed, r.Code)
				assert.Contains(t, r.Reason, "invalid_record")
			}
		})
	}
}

func TestInput_UnmarshalJSON(t *testing.T) {
	var input Input
	err := json.Unmarshal([]byte(`{"provider":{"id":"p"},"requesters":[{"id":"a"},{"id":"b","budgetMin":"low"}],"limit":2}`), &input)
	require.NoError(t, err)

	require.NotNil(t, input.Provider)
	assert.Equal(t, 2, input.Limit)
	require.Len(t, input.Requesters, 1)
	assert.Equal(t, "a", input.Requesters[0].ID)
	assert.Equal(t, 2, input.candidateCount())

	input.Requesters = append(input.Requesters, matching.Requester{ID: "c"})
	assert.Equal(t, 2, input.candidateCount())
	assert.Empty(t, input.requesterSet().Rejected)

	err = json.Unmarshal([]byte(`{"provider":{"id":"p"},"requesters":{"id":"a"}}`), &input)
	assert.Error(t, err)
}

func TestOutput_JSON(t *testing.T) {
	h := createTestHandler(t, createTestConfig())
	provider := reactProvider("provider-1")

	output, err := h.Execute(context.Background(), &Input{Provider: &provider, Requesters: []matching.Requester{}})
	require.NoError(t, err)

	data, err := json.Marshal(output)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []interface{}{}, decoded["ranked"])
	assert.Equal(t, []interface{}{}, decoded["rejected"])
	assert.Equal(t, 0.0, decoded["outputCount"])
}

func TestLoadConfig(t *testing.T) {
	cfg := &config.Config{
		Workers:  map[string]config.WorkerConfig{TaskType: {Enabled: true, Timeout: 15000}},
		Matching: config.MatchingConfig{MaxCandidates: 250, SlowRankingMs: 200},
	}

	c := LoadConfig(cfg)
	assert.Equal(t, 250, c.MaxCandidates)
	assert.Equal(t, 200*time.Millisecond, c.SlowRanking)
	assert.Equal(t, 15*time.Second, c.Timeout)

	c = LoadConfig(&config.Config{})
	assert.Equal(t, 1000, c.MaxCandidates)
	assert.Equal(t, 500*time.Millisecond, c.SlowRanking)
	assert.Equal(t, 30*time.Second, c.Timeout)
}
