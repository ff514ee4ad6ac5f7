package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
)

// SQL drivers accepted by NewSQLBlob. The names match the registrations of
// pgx/v5/stdlib, modernc.org/sqlite and go-sql-driver/mysql.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
)

// DefaultSQLTable is the table used when none is configured.
const DefaultSQLTable = "bodymetrics_blobs"

var tableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dialect holds the statements that differ between drivers. Each contains
// one %s for the table name.
type dialect struct {
	create string
	load   string
	upsert string
	delete string
}

var dialects = map[string]dialect{
	DriverPostgres: {
		create: `CREATE TABLE IF NOT EXISTS %s (
	blob_key TEXT PRIMARY KEY,
	blob_value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		load: `SELECT blob_value FROM %s WHERE blob_key = $1`,
		upsert: `INSERT INTO %s (blob_key, blob_value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (blob_key) DO UPDATE SET blob_value = EXCLUDED.blob_value, updated_at = now()`,
		delete: `DELETE FROM %s WHERE blob_key = $1`,
	},
	DriverSQLite: {
		create: `CREATE TABLE IF NOT EXISTS %s (
	blob_key TEXT PRIMARY KEY,
	blob_value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		load: `SELECT blob_value FROM %s WHERE blob_key = ?`,
		upsert: `INSERT INTO %s (blob_key, blob_value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (blob_key) DO UPDATE SET blob_value = excluded.blob_value, updated_at = CURRENT_TIMESTAMP`,
		delete: `DELETE FROM %s WHERE blob_key = ?`,
	},
	DriverMySQL: {
		create: `CREATE TABLE IF NOT EXISTS %s (
	blob_key VARCHAR(191) PRIMARY KEY,
	blob_value LONGTEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		load: `SELECT blob_value FROM %s WHERE blob_key = ?`,
		upsert: `INSERT INTO %s (blob_key, blob_value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON DUPLICATE KEY UPDATE blob_value = VALUES(blob_value), updated_at = CURRENT_TIMESTAMP`,
		delete: `DELETE FROM %s WHERE blob_key = ?`,
	},
}

// SQLBlob stores the document as one row of a key/value table.
type SQLBlob struct {
	db    *sql.DB
	table string
	key   string
	stmts dialect
}

// NewSQLBlob returns a blob stored in table under key, using the statement
// dialect of driver. Call Migrate before first use.
func NewSQLBlob(db *sql.DB, driver, table, key string) (*SQLBlob, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if table == "" {
		table = DefaultSQLTable
	}
	if !tableNameRegex.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if key == "" {
		key = DefaultRedisKey
	}

	return &SQLBlob{
		db:    db,
		table: table,
		key:   key,
		stmts: dialect{
			create: fmt.Sprintf(d.create, table),
			load:   fmt.Sprintf(d.load, table),
			upsert: fmt.Sprintf(d.upsert, table),
			delete: fmt.Sprintf(d.delete, table),
		},
	}, nil
}

// Migrate creates the backing table if it does not exist.
func (b *SQLBlob) Migrate(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, b.stmts.create); err != nil {
		return fmt.Errorf("create table %s: %w", b.table, err)
	}
	return nil
}

func (b *SQLBlob) Load(ctx context.Context) ([]byte, error) {
	var value string
	err := b.db.QueryRowContext(ctx, b.stmts.load, b.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", b.table, err)
	}
	return []byte(value), nil
}

func (b *SQLBlob) Save(ctx context.Context, data []byte) error {
	if _, err := b.db.ExecContext(ctx, b.stmts.upsert, b.key, string(data)); err != nil {
		return fmt.Errorf("upsert %s: %w", b.table, err)
	}
	return nil
}

func (b *SQLBlob) Delete(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, b.stmts.delete, b.key); err != nil {
		return fmt.Errorf("delete from %s: %w", b.table, err)
	}
	return nil
}
