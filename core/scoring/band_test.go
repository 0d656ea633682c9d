package scoring

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lingo/core"
)

func fPtr(f float64) *float64 { return &f }

func TestValidBand(t *testing.T) {
	tests := []struct {
		score float64
		want  bool
	}{
		{score: -1}, {score: -0.5},
		{score: 0, want: true}, {score: 0.5, want: true}, {score: 6.5, want: true}, {score: 9, want: true},
		{score: 9.5}, {score: 6.25}, {score: 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidBand(tt.score), "ValidBand(%v)", tt.score)
	}
}

func TestRoundBand(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{6.0, 6.0}, {6.125, 6.0}, {6.25, 6.5}, {6.375, 6.5}, {6.625, 6.5}, {6.75, 7.0}, {8.875, 9},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundBand(tt.in), "RoundBand(%v)", tt.in)
	}
}

func TestBandScore(t *testing.T) {
	writing := Criteria{TaskAchievement: fPtr(6), Coherence: fPtr(6.5), Lexical: fPtr(7), Grammar: fPtr(6)}
	speaking := Criteria{Fluency: fPtr(7), Pronunciation: fPtr(6.5), Lexical: fPtr(6.5), Grammar: fPtr(6)}

	tests := []struct {
		name       string
		skill      string
		criteria   Criteria
		want       float64
		wantFields []string
	}{
		{name: "writing", skill: SkillWriting, criteria: writing, want: 6.5},
		{name: "speaking", skill: SkillSpeaking, criteria: speaking, want: 6.5},
		{
			name: "all zero", skill: SkillWriting,
			criteria: Criteria{TaskAchievement: fPtr(0), Coherence: fPtr(0), Lexical: fPtr(0), Grammar: fPtr(0)},
		},
		{
			name: "all nine", skill: SkillSpeaking, want: 9,
			criteria: Criteria{Fluency: fPtr(9), Pronunciation: fPtr(9), Lexical: fPtr(9), Grammar: fPtr(9)},
		},
		{
			name: "missing criteria", skill: SkillWriting, criteria: Criteria{TaskAchievement: fPtr(6)},
			wantFields: []string{"coherence", "lexical", "grammar"},
		},
		{
			name: "foreign criterion", skill: SkillWriting,
			criteria:   Criteria{Fluency: fPtr(6), TaskAchievement: fPtr(6), Coherence: fPtr(6), Lexical: fPtr(6), Grammar: fPtr(6)},
			wantFields: []string{"fluency"},
		},
		{
			name: "out of range", skill: SkillSpeaking,
			criteria:   Criteria{Fluency: fPtr(9.5), Pronunciation: fPtr(-1), Lexical: fPtr(6), Grammar: fPtr(6.3)},
			wantFields: []string{"fluency", "pronunciation", "grammar"},
		},
		{name: "unknown skill", skill: "READING", criteria: writing, wantFields: []string{"skill_type"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BandScore(tt.skill, tt.criteria)
			if tt.wantFields == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}

			require.Error(t, err)
			vErr, ok := errors.Cause(err).(*core.ValidationError)
			require.True(t, ok, "want *core.ValidationError, got %T", err)
			assert.Equal(t, ErrInvalidScore, vErr.Err)
			fields := make([]string, 0, len(vErr.Fields))
			for _, f := range vErr.Fields {
				fields = append(fields, f.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestValidateOverall(t *testing.T) {
	assert.NoError(t, ValidateOverall(0))
	assert.NoError(t, ValidateOverall(9))
	assert.True(t, core.IsValidation(ValidateOverall(-1)))
	assert.True(t, core.IsValidation(ValidateOverall(9.5)))
}

func TestCriteria_ValidateProvided(t *testing.T) {
	assert.NoError(t, Criteria{}.ValidateProvided(SkillWriting))
	assert.NoError(t, Criteria{Grammar: fPtr(7)}.ValidateProvided(SkillWriting))
	assert.True(t, core.IsValidation(Criteria{Grammar: fPtr(9.5)}.ValidateProvided(SkillWriting)))
	assert.True(t, core.IsValidation(Criteria{Fluency: fPtr(6)}.ValidateProvided(SkillWriting)))
	assert.True(t, core.IsValidation(Criteria{}.Validate(SkillWriting)))
}
