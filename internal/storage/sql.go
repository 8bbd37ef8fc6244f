// internal/storage/sql.go
//
// SQL Backend (sqlx).
//
// Context
// -------
// One table holds every key:
//
//	kv (k VARCHAR(191) PRIMARY KEY, v TEXT NOT NULL)
//
// The statements are portable across the two supported drivers, MySQL and
// SQLite: REPLACE INTO for upserts and a single DELETE … IN (…) so
// DeleteMany is atomic.
//
// Notes
// -----
// • Table names are validated once in NewSQL and then interpolated.
// • Oxford commas, two spaces after periods.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "kv"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// SQL is a Backend over a *sqlx.DB.
type SQL struct {
	db    *sqlx.DB
	table string
}

// NewSQL returns a Backend storing rows in table.  An empty table means
// DefaultTable.
func NewSQL(db *sqlx.DB, table string) (*SQL, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("storage: invalid table name %q", table)
	}
	return &SQL{db: db, table: table}, nil
}

// Migrate creates the table when missing.
func (b *SQL) Migrate(ctx context.Context) error {
	q := `CREATE TABLE IF NOT EXISTS ` + b.table + ` (
	        k VARCHAR(191) NOT NULL PRIMARY KEY,
	        v TEXT NOT NULL
	      )`
	_, err := b.db.ExecContext(ctx, q)
	return err
}

func (b *SQL) Put(ctx context.Context, key, value string) error {
	q := b.db.Rebind(`REPLACE INTO ` + b.table + ` (k, v) VALUES (?, ?)`)
	_, err := b.db.ExecContext(ctx, q, key, value)
	return err
}

func (b *SQL) Fetch(ctx context.Context, key string) (string, error) {
	var v string
	q := b.db.Rebind(`SELECT v FROM ` + b.table + ` WHERE k = ?`)
	err := b.db.GetContext(ctx, &v, q, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

func (b *SQL) Delete(ctx context.Context, key string) error {
	q := b.db.Rebind(`DELETE FROM ` + b.table + ` WHERE k = ?`)
	_, err := b.db.ExecContext(ctx, q, key)
	return err
}

func (b *SQL) DeleteMany(ctx context.Context, keys []string) error {
	q, args, err := sqlx.In(`DELETE FROM `+b.table+` WHERE k IN (?)`, keys)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, b.db.Rebind(q), args...)
	return err
}
