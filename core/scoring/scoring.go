// Package scoring holds the side-effect free rules computing correctness, points and band scores.
package scoring

import (
	"strings"
)

// Challenge types
const (
	ChallengeSelect = "SELECT"
	ChallengeAssist = "ASSIST"
)

// DefaultQuestionPoints is what an unweighted test question is worth.
const DefaultQuestionPoints = 1

var challengeDefaultPoints = map[string]int{
	ChallengeSelect: 1,
	ChallengeAssist: 1,
}

func IsValidChallengeType(typ string) bool {
	_, ok := challengeDefaultPoints[typ]
	return ok
}

// IsCorrect reports whether the submitted option ids are exactly the correct ones, order and duplicates ignored.
func IsCorrect(submitted, correct []string) bool {
	want := toSet(correct)
	got := toSet(submitted)
	if len(want) != len(got) {
		return false
	}
	for id := range got {
		if _, ok := want[id]; !ok {
			return false
		}
	}
	return true
}

// MatchesText reports whether a free-text answer equals one of the accepted texts,
// ignoring case and surrounding or repeated whitespace.
func MatchesText(submitted string, accepted []string) bool {
	got := normalizeText(submitted)
	if got == "" {
		return false
	}
	for _, a := range accepted {
		if normalizeText(a) == got {
			return true
		}
	}
	return false
}

// PointsForChallenge returns the challenge's own points if set, else the default of its type.
func PointsForChallenge(points *int, challengeType string) int {
	if points != nil {
		return *points
	}
	return challengeDefaultPoints[challengeType]
}

// QuestionPoints returns what a test question is worth.
func QuestionPoints(points *int) int {
	if points != nil {
		return *points
	}
	return DefaultQuestionPoints
}

// TotalPoints sums the worth of all the questions of a test.
func TotalPoints(questionPoints []*int) int {
	var total int
	for _, p := range questionPoints {
		total += QuestionPoints(p)
	}
	return total
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
