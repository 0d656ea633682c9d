package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/lingo/core"
)

const uniqueViolation = "23505"

type txKey struct{}

// DB is the postgres store shared by the repositories. It runs the units of work of the core services.
type DB struct {
	db *sqlx.DB
}

var _ core.Transactor = (*DB)(nil) // interface compliance check

func NewDB(db *sql.DB) *DB {
	return &DB{db: sqlx.NewDb(db, "postgres")}
}

// InTx begins a transaction carried by the ctx handed to fn. Nested calls join the outer transaction.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back transaction: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// getExec returns the transaction of ctx if any, the DB otherwise.
func (db *DB) getExec(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db.db
}

func (db *DB) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	exec := db.getExec(ctx)
	return sqlx.GetContext(ctx, exec, dest, exec.Rebind(query), args...)
}

func (db *DB) selekt(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	exec := db.getExec(ctx)
	return sqlx.SelectContext(ctx, exec, dest, exec.Rebind(query), args...)
}

// selectIn expands the slice args of query, ie: `WHERE id IN (?)`.
func (db *DB) selectIn(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "expanding query args")
	}
	return db.selekt(ctx, dest, query, args...)
}

func (db *DB) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	exec := db.getExec(ctx)
	return exec.ExecContext(ctx, exec.Rebind(query), args...)
}

// trapNoRowsErr maps psql "no rows" err to a *core.NotFoundError
func trapNoRowsErr(err error, resource, id, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return core.NewNotFoundError(resource, id)
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports whether err violates a unique constraint, the given one if set.
func isUniqueViolation(err error, constraint ...string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok || pqErr.Code != uniqueViolation {
		return false
	}
	return len(constraint) == 0 || pqErr.Constraint == constraint[0]
}

// newID returns id, or a new one if empty.
func newID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}
