// Package db persists analysis runs, their metrics tables and rate curves in
// SQLite.
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/inhibition.report/internal/monitoring"
	"github.com/banshee-data/inhibition.report/internal/timeutil"
)

// pragmas are applied by the driver to every new connection.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
	"foreign_keys(1)",
}

func dsn(path string) string {
	var b strings.Builder
	b.WriteString("file:")
	b.WriteString(path)
	for i, p := range pragmas {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString("_pragma=")
		b.WriteString(p)
	}
	return b.String()
}

type DB struct {
	*sql.DB
	log   *zap.Logger
	clock timeutil.Clock
}

// Open opens (creating if needed) the database at path, applies the
// connection PRAGMAs and migrates the schema to the latest version.
func Open(path string, log *zap.Logger) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	db := &DB{
		DB:    sqlDB,
		log:   monitoring.OrNop(log).With(zap.String("db", path)),
		clock: timeutil.RealClock{},
	}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	version, _, err := db.MigrateVersion()
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	db.log.Debug("database ready", zap.Uint("schema_version", version))
	return db, nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// SetClock replaces the clock used for run timestamps and busy backoff.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}

// retryOnBusy runs fn, retrying with a short backoff while SQLite reports
// the database as locked.
func (db *DB) retryOnBusy(fn func() error) error {
	const attempts = 5
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); !isBusy(err) {
			return err
		}
		if i < attempts-1 {
			db.log.Debug("database busy, retrying", zap.Int("attempt", i+1))
			db.clock.Sleep(time.Duration(i+1) * 20 * time.Millisecond)
		}
	}
	return err
}
