package matching

import (
	"context"
	"testing"

	"marketplace-matching/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCandidates(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantErr    bool
		candidates []string
		positions  []int
		rejectedAt []int
		rejectedID []string
	}{
		{
			name:       "all good",
			data:       `[{"id":"a"},{"id":"b"}]`,
			candidates: []string{"a", "b"},
			positions:  []int{0, 1},
		},
		{
			name:       "unknown premium level",
			data:       `[{"id":"a"},{"id":"b","premium":{"isPremium":true,"premiumLevel":"platinum"}}]`,
			candidates: []string{"a"},
			positions:  []int{0},
			rejectedAt: []int{1},
			rejectedID: []string{"b"},
		},
		{
			name:       "wrong types",
			data:       `[{"id":7},{"id":"b"},{"id":"c","hourlyRate":"cheap"},"provider"]`,
			candidates: []string{"b"},
			positions:  []int{1},
			rejectedAt: []int{0, 2, 3},
			rejectedID: []string{"", "c", ""},
		},
		{
			name:       "empty array",
			data:       `[]`,
			candidates: []string{},
			positions:  []int{},
		},
		{name: "not an array", data: `{"id":"a"}`, wantErr: true},
		{name: "broken", data: `[{"id":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := DecodeCandidates[Provider]([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			got := make([]string, 0, len(d.Candidates))
			for _, c := range d.Candidates {
				got = append(got, c.ID)
			}
			assert.Equal(t, tt.candidates, got)
			assert.Equal(t, tt.positions, d.Positions)
			assert.Equal(t, len(tt.candidates)+len(tt.rejectedAt), d.Len())

			require.Len(t, d.Rejected, len(tt.rejectedAt))
			for i, r := range d.Rejected {
				assert.Equal(t, tt.rejectedAt[i], r.Index)
				assert.Equal(t, tt.rejectedID[i], r.CandidateID)
				assert.Equal(t, errors.ErrCodeCandidateEvaluationFailed, r.Code)
				assert.Contains(t, r.Reason, reasonInvalidRecord+": ")
			}
		})
	}
}

func TestEngine_ScoreDecodedRequesters_MergesRejections(t *testing.T) {
	rec := &recordingRecorder{}
	engine := newTestEngine(t, WithRecorder(rec))

	d, err := DecodeCandidates[Requester]([]byte(`[
		{"id":"bad-urgency","urgencyLevel":2},
		{"id":"request-1"},
		{"id":""},
		{"id":"bad-budget","budgetMax":"lots"},
		{"id":"request-2"}
	]`))
	require.NoError(t, err)

	batch, err := engine.ScoreDecodedRequesters(context.Background(), reactProvider(), d, MatchPreferences{})
	require.NoError(t, err)

	require.Len(t, batch.Scored, 2)
	assert.Equal(t, "request-1", batch.Scored[0].Candidate.ID)
	assert.Equal(t, "request-2", batch.Scored[1].Candidate.ID)

	require.Len(t, batch.Rejected, 3)
	assert.Equal(t, 0, batch.Rejected[0].Index)
	assert.Equal(t, "bad-urgency", batch.Rejected[0].CandidateID)
	assert.Equal(t, 2, batch.Rejected[1].Index)
	assert.Equal(t, 3, batch.Rejected[2].Index)
	assert.Equal(t, "bad-budget", batch.Rejected[2].CandidateID)
	assert.ElementsMatch(t, []string{reasonInvalidRecord, reasonInvalidRecord, reasonInvalidRecord}, rec.rejected)
}

func TestEngine_ScoreDecodedProviders_WithoutPositions(t *testing.T) {
	engine := newTestEngine(t)

	d := Decoded[Provider]{Candidates: []Provider{reactProvider(), {ID: ""}}}
	batch, err := engine.ScoreDecodedProviders(context.Background(), reactRequester("request-1"), d, MatchPreferences{})

	require.NoError(t, err)
	require.Len(t, batch.Scored, 1)
	require.Len(t, batch.Rejected, 1)
	assert.Equal(t, 1, batch.Rejected[0].Index)
	assert.Equal(t, 2, d.Len())
}
