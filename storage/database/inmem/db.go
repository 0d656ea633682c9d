// Package inmemdb is an in-memory store for the core services, used by tests and local runs.
package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/course"
	"github.com/trezcool/lingo/core/exam"
	"github.com/trezcool/lingo/core/user"
)

type (
	progressKey struct{ userID, challengeID string }
	pairKey     struct{ a, b string }

	tables struct {
		users       map[string]user.User
		courses     map[string]course.Course
		progress    map[progressKey]course.ChallengeProgress
		enrollments map[pairKey]course.Enrollment // {userID, courseID}
		assignments map[pairKey]bool              // {teacherID, courseID}
		tests       map[string]exam.Test
		attempts    map[string]exam.Attempt
		answers     map[string]exam.Answer
		submissions map[string]exam.Submission
	}

	// DB holds every table behind a single lock, txMu serializes the units of work with the writes made outside them.
	// Stored values are never mutated in place.
	DB struct {
		mu   sync.RWMutex
		txMu sync.Mutex
		tables
	}

	txKey struct{}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{tables: tables{
		users:       make(map[string]user.User),
		courses:     make(map[string]course.Course),
		progress:    make(map[progressKey]course.ChallengeProgress),
		enrollments: make(map[pairKey]course.Enrollment),
		assignments: make(map[pairKey]bool),
		tests:       make(map[string]exam.Test),
		attempts:    make(map[string]exam.Attempt),
		answers:     make(map[string]exam.Answer),
		submissions: make(map[string]exam.Submission),
	}}
}

func (t tables) snapshot() tables {
	cp := tables{
		users:       make(map[string]user.User, len(t.users)),
		courses:     make(map[string]course.Course, len(t.courses)),
		progress:    make(map[progressKey]course.ChallengeProgress, len(t.progress)),
		enrollments: make(map[pairKey]course.Enrollment, len(t.enrollments)),
		assignments: make(map[pairKey]bool, len(t.assignments)),
		tests:       make(map[string]exam.Test, len(t.tests)),
		attempts:    make(map[string]exam.Attempt, len(t.attempts)),
		answers:     make(map[string]exam.Answer, len(t.answers)),
		submissions: make(map[string]exam.Submission, len(t.submissions)),
	}
	for k, v := range t.users {
		cp.users[k] = v
	}
	for k, v := range t.courses {
		cp.courses[k] = v
	}
	for k, v := range t.progress {
		cp.progress[k] = v
	}
	for k, v := range t.enrollments {
		cp.enrollments[k] = v
	}
	for k, v := range t.assignments {
		cp.assignments[k] = v
	}
	for k, v := range t.tests {
		cp.tests[k] = v
	}
	for k, v := range t.attempts {
		cp.attempts[k] = v
	}
	for k, v := range t.answers {
		cp.answers[k] = v
	}
	for k, v := range t.submissions {
		cp.submissions[k] = v
	}
	return cp
}

// InTx serializes units of work, restoring the tables as they were before fn when it fails.
// Nested calls join the outer unit of work.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.RLock()
	saved := db.tables.snapshot()
	db.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		db.mu.Lock()
		db.tables = saved
		db.mu.Unlock()
		return err
	}
	return nil
}

// write locks the tables for a single write. Outside a unit of work it waits for the running one to end,
// a rollback then never discards writes it did not make.
func (db *DB) write(ctx context.Context) (unlock func()) {
	if ctx.Value(txKey{}) != nil {
		db.mu.Lock()
		return db.mu.Unlock
	}
	db.txMu.Lock()
	db.mu.Lock()
	return func() {
		db.mu.Unlock()
		db.txMu.Unlock()
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables = Open().tables
}
