package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryPath = "../../configs/activity-registry.json"

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry(registryPath)
	require.NoError(t, err)

	for _, taskType := range []string{"score-compatibility", "rank-candidates"} {
		a, ok := reg.ByTaskType(taskType)
		require.True(t, ok, taskType)
		assert.NotEmpty(t, a.InputSchema)
		assert.NotEmpty(t, a.ErrorCodes)
	}

	_, ok := reg.ByTaskType("calculate-match-score")
	assert.False(t, ok)
}

func TestInputValidator_RankCandidates(t *testing.T) {
	reg, err := LoadRegistry(registryPath)
	require.NoError(t, err)

	v, err := reg.InputValidator("rank-candidates")
	require.NoError(t, err)
	require.NotNil(t, v)

	tests := []struct {
		name  string
		doc   string
		valid bool
	}{
		{"provider with requesters", `{"provider":{"id":"p"},"requesters":[{"id":"r"}]}`, true},
		{"requester with providers", `{"requester":{"id":"r"},"providers":[{"id":"p"}],"limit":3}`, true},
		{"both directions at once", `{"provider":{"id":"p"},"requesters":[],"requester":{"id":"r"},"providers":[]}`, false},
		{"no candidates", `{"provider":{"id":"p"}}`, false},
		{"negative limit", `{"provider":{"id":"p"},"requesters":[],"limit":-2}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.ValidateJSON(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid, result.GetErrorMessages())
		})
	}
}

func TestInputValidator_ScoreCompatibility(t *testing.T) {
	reg, err := LoadRegistry(registryPath)
	require.NoError(t, err)

	v, err := reg.InputValidator("score-compatibility")
	require.NoError(t, err)

	result, err := v.ValidateJSON(`{"requester":{"id":"r"},"provider":{"id":"p"},"preferences":{"prioritizeRate":true}}`)
	require.NoError(t, err)
	assert.True(t, result.Valid, result.GetErrorMessages())

	result, err = v.ValidateJSON(`{"requester":{"id":""},"provider":{"id":"p"},"preferences":{"prioritizeRate":"yes"}}`)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("requester.id"))
	assert.True(t, result.HasErrors("preferences.prioritizeRate"))
}

func TestRegistry_Validate(t *testing.T) {
	tests := []struct {
		name string
		reg  ActivityRegistry
	}{
		{"bad id", ActivityRegistry{Activities: []Activity{{ID: "Score", TaskType: "score"}}}},
		{"missing task type", ActivityRegistry{Activities: []Activity{{ID: "matching.compatibility.score"}}}},
		{"duplicate task type", ActivityRegistry{Activities: []Activity{
			{ID: "matching.compatibility.score", TaskType: "score"},
			{ID: "matching.compatibility.rescore", TaskType: "score"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.reg.Validate())
		})
	}
}

func TestLoadRegistry_Errors(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"activities":[`), 0o600))
	_, err = LoadRegistry(path)
	assert.Error(t, err)

	var nilReg *ActivityRegistry
	_, ok := nilReg.ByTaskType("rank-candidates")
	assert.False(t, ok)
}
