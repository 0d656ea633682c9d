package exam

import (
	"github.com/trezcool/lingo/core"
)

type AttemptStatus string

// Attempt statuses
const (
	StatusNotStarted AttemptStatus = "NOT_STARTED"
	StatusInProgress AttemptStatus = "IN_PROGRESS"
	StatusCompleted  AttemptStatus = "COMPLETED"
	StatusAbandoned  AttemptStatus = "ABANDONED"
)

// attemptTransitions is the whole attempt state machine, terminal statuses have no entry.
var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	StatusNotStarted: {StatusInProgress},
	StatusInProgress: {StatusCompleted, StatusAbandoned},
}

func (s AttemptStatus) CanTransition(to AttemptStatus) bool {
	for _, next := range attemptTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns `to` if the state machine allows it, an *core.InvalidStateError naming op otherwise.
func (s AttemptStatus) Transition(to AttemptStatus, op string) (AttemptStatus, error) {
	if !s.CanTransition(to) {
		return s, core.NewInvalidStateError("attempt", string(s), op)
	}
	return to, nil
}

func (s AttemptStatus) IsTerminal() bool {
	return len(attemptTransitions[s]) == 0
}

// require returns an *core.InvalidStateError naming op unless s is want.
func (s AttemptStatus) require(want AttemptStatus, op string) error {
	if s != want {
		return core.NewInvalidStateError("attempt", string(s), op)
	}
	return nil
}

type SubmissionStatus string

// Submission statuses
const (
	SubmissionNew     SubmissionStatus = ""
	SubmissionPending SubmissionStatus = "PENDING"
	SubmissionGraded  SubmissionStatus = "GRADED"
)

// submissionTransitions: a pending submission may be re-submitted or graded, a graded one may only be re-graded.
var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionNew:     {SubmissionPending},
	SubmissionPending: {SubmissionPending, SubmissionGraded},
	SubmissionGraded:  {SubmissionGraded},
}

func (s SubmissionStatus) CanTransition(to SubmissionStatus) bool {
	for _, next := range submissionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s SubmissionStatus) Transition(to SubmissionStatus, op string) (SubmissionStatus, error) {
	if !s.CanTransition(to) {
		return s, core.NewInvalidStateError("submission", string(s), op)
	}
	return to, nil
}
