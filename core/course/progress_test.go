package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_computeProgress(t *testing.T) {
	c := Course{
		ID: "c1",
		Units: []Unit{
			{ID: "u1", Lessons: []Lesson{
				{ID: "l1", Title: "One", Challenges: []Challenge{{ID: "ch1"}, {ID: "ch2"}}},
				{ID: "l2", Title: "Two", Challenges: []Challenge{{ID: "ch3"}}},
			}},
			{ID: "u2", Lessons: []Lesson{
				{ID: "l3", Title: "Empty"},
			}},
		},
	}

	tests := []struct {
		name          string
		cps           []ChallengeProgress
		wantCompleted int
		wantPercent   int
		wantLessons   []bool
	}{
		{name: "nothing done", wantLessons: []bool{false, false, false}},
		{
			name:        "lesson half done",
			cps:         []ChallengeProgress{{UserID: "u", ChallengeID: "ch1", Completed: true}},
			wantLessons: []bool{false, false, false},
		},
		{
			name: "one lesson done",
			cps: []ChallengeProgress{
				{UserID: "u", ChallengeID: "ch1", Completed: true},
				{UserID: "u", ChallengeID: "ch2", Completed: true},
			},
			wantCompleted: 1,
			wantPercent:   33,
			wantLessons:   []bool{true, false, false},
		},
		{
			name: "every challenge done, empty lesson stays open",
			cps: []ChallengeProgress{
				{UserID: "u", ChallengeID: "ch1", Completed: true},
				{UserID: "u", ChallengeID: "ch2", Completed: true},
				{UserID: "u", ChallengeID: "ch3", Completed: true},
			},
			wantCompleted: 2,
			wantPercent:   66,
			wantLessons:   []bool{true, true, false},
		},
		{
			name: "other users & incomplete progress ignored",
			cps: []ChallengeProgress{
				{UserID: "other", ChallengeID: "ch3", Completed: true},
				{UserID: "u", ChallengeID: "ch3"},
			},
			wantLessons: []bool{false, false, false},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			p := computeProgress(c, "u", tt.cps)
			assert.Equal(t, "c1", p.CourseID)
			assert.Equal(t, 3, p.TotalLessons)
			assert.Equal(t, tt.wantCompleted, p.CompletedLessons)
			assert.Equal(t, tt.wantPercent, p.Percentage)

			var got []bool
			for _, lp := range p.Lessons {
				got = append(got, lp.Completed)
			}
			assert.Equal(t, tt.wantLessons, got)
			assert.Equal(t, "u2", p.Lessons[2].UnitID)
		})
	}

	t.Run("course without lessons", func(t *testing.T) {
		p := computeProgress(Course{ID: "c2"}, "u", nil)
		assert.Equal(t, 0, p.Percentage)
		assert.NotNil(t, p.Lessons)
	})
}
