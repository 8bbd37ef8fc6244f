// Package database centralises sqlx connection helpers for the key-value
// store.  Two drivers are linked in: go-sql-driver/mysql for a shared
// server, and modernc.org/sqlite (pure Go) for an on-device file.
//
// Public entry points:
//
//	Open(driver, dsn)                              – conservative pool sizes.
//	OpenWithOptions(driver, dsn, maxOpen, maxIdle) – fine-grained control.
//
// Both helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB when no
// longer needed.
package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported driver names.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Open returns a *sqlx.DB with sane defaults.  MySQL gets 15 max open and 5
// idle connections; SQLite is pinned to one connection so writers never
// contend for the file lock.
func Open(driver, dsn string) (*sqlx.DB, error) {
	if driver == DriverSQLite {
		return OpenWithOptions(driver, dsn, 1, 1)
	}
	return OpenWithOptions(driver, dsn, 15, 5)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle per pool.
func OpenWithOptions(driver, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	switch driver {
	case DriverMySQL, DriverSQLite:
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
