package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/lingo/core"
	appfs "github.com/trezcool/lingo/fs"
)

const (
	maintenanceDB   = "postgres"
	maxPingAttempts = 30
)

// dsn builds the connection URL of dbName, as the admin role when admin is set and one is configured.
func dsn(conf *core.Config, dbName string, admin bool) string {
	dbConf := conf.Database
	user := url.UserPassword(dbConf.User, dbConf.Password)
	if admin && dbConf.AdminUser != "" {
		user = url.UserPassword(dbConf.AdminUser, dbConf.AdminPassword)
	}

	q := make(url.Values)
	q.Set("sslmode", "require")
	if dbConf.DisableTLS {
		q.Set("sslmode", "disable")
	}
	q.Set("timezone", "utc")

	return (&url.URL{
		Scheme:   dbConf.Engine,
		User:     user,
		Host:     dbConf.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}).String()
}

func connect(conf *core.Config, dbName string, admin bool) (*sql.DB, error) {
	db, err := sql.Open(conf.Database.Engine, dsn(conf, dbName, admin))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", dbName)
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open opens the app database & waits for it to be ready.
func Open(conf *core.Config) (*sql.DB, error) {
	return connect(conf, conf.Database.Name, false)
}

// ping waits for the database to accept connections, backing off 100ms more after each failed attempt.
func ping(db *sql.DB) error {
	var err error
	for attempt := 1; attempt <= maxPingAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

func exists(db *sql.DB, query, name string) (bool, error) {
	var found bool
	err := db.QueryRow(query, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

// ensureRole creates the app role, it may create the app database.
func ensureRole(db *sql.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}
	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil || found {
		return errors.Wrap(err, "checking app role")
	}
	_, err = db.Exec("CREATE ROLE " + pq.QuoteIdentifier(conf.Database.User) +
		" LOGIN CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(conf.Database.Password))
	return errors.Wrap(err, "creating app role")
}

func ensureDB(db *sql.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil || found {
		return errors.Wrap(err, "checking database")
	}
	_, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(conf.Database.Name))
	return errors.Wrap(err, "creating database")
}

// CreateIfNotExist creates the app role as admin, then the app database as the app role.
func CreateIfNotExist(conf *core.Config) error {
	adminDB, err := connect(conf, maintenanceDB, true)
	if err != nil {
		return err
	}
	err = ensureRole(adminDB, conf)
	_ = adminDB.Close()
	if err != nil {
		return err
	}

	appDB, err := connect(conf, maintenanceDB, false)
	if err != nil {
		return err
	}
	defer func() { _ = appDB.Close() }()
	return ensureDB(appDB, conf)
}

func init() {
	goose.SetBaseFS(appfs.FS)
}

// Migrate runs a goose command (up, down, status, redo, ...) against the embedded migrations.
func Migrate(db *sql.DB, command string, args ...string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	if err := goose.Run(command, db, appfs.MigrationsDir, args...); err != nil {
		return errors.Wrapf(err, "running migrations: %s", command)
	}
	return nil
}
