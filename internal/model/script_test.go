package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptValidateJudgeInvariant(t *testing.T) {
	judge := "judge-1"
	tests := []struct {
		status  ScriptStatus
		judge   *string
		wantErr bool
	}{
		{ScriptPending, nil, false},
		{ScriptPending, &judge, false},
		{ScriptAssigned, nil, true},
		{ScriptAssigned, &judge, false},
		{ScriptReviewed, nil, true},
		{ScriptApproved, nil, true},
		{ScriptDeclined, &judge, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			s := Script{Status: tt.status, AssignedJudgeID: tt.judge}
			err := s.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrJudgeRequired)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(ScriptPending, ScriptAssigned))
	assert.True(t, CanTransition(ScriptAssigned, ScriptAssigned))
	assert.True(t, CanTransition(ScriptAssigned, ScriptApproved))
	assert.True(t, CanTransition(ScriptReviewed, ScriptDeclined))

	assert.False(t, CanTransition(ScriptPending, ScriptReviewed))
	assert.False(t, CanTransition(ScriptReviewed, ScriptPending))
	assert.False(t, CanTransition(ScriptApproved, ScriptAssigned))
}

func TestParseScriptStatus(t *testing.T) {
	st, err := ParseScriptStatus("declined")
	require.NoError(t, err)
	assert.Equal(t, ScriptDeclined, st)

	_, err = ParseScriptStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRecommendationScriptStatus(t *testing.T) {
	assert.Equal(t, ScriptApproved, RecommendApproved.ScriptStatus())
	assert.Equal(t, ScriptDeclined, RecommendDeclined.ScriptStatus())
	assert.Equal(t, ScriptReviewed, RecommendConsider.ScriptStatus())
	assert.Equal(t, ScriptReviewed, Recommendation("").ScriptStatus())

	_, err := ParseRecommendation("maybe")
	assert.Error(t, err)
}
