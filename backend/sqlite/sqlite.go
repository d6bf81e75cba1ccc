// Package sqlite implements backend.Backend on top of the pure-Go
// modernc.org/sqlite driver.
//
// All buckets share one table keyed by (bucket, key). Keys use the BINARY
// collation, so iteration follows byte order.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/vecscan/backend"
	_ "modernc.org/sqlite" // SQLite driver
)

// Compile time checks.
var (
	_ backend.Backend     = (*Backend)(nil)
	_ backend.Snapshotter = (*Backend)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	bucket TEXT NOT NULL,
	key    TEXT NOT NULL,
	value  BLOB NOT NULL,
	PRIMARY KEY (bucket, key)
) WITHOUT ROWID;`

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Backend is a SQLite-backed backend.
//
// The pool is limited to a single connection: SQLite admits one writer at a
// time and an in-memory database is private to its connection.
type Backend struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the SQLite database at path.
func Open(ctx context.Context, path string) (*Backend, error) {
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
		// busy_timeout: wait up to 5s for a lock instead of failing immediately
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Backend{db: db, path: path}, nil
}

// View runs fn in a read-only SQL transaction.
func (b *Backend) View(ctx context.Context, bucket string, fn func(backend.Tx) error) error {
	return b.run(ctx, bucket, false, fn)
}

// Update runs fn in a read-write SQL transaction.
func (b *Backend) Update(ctx context.Context, bucket string, fn func(backend.Tx) error) error {
	return b.run(ctx, bucket, true, fn)
}

func (b *Backend) run(ctx context.Context, bucket string, writable bool, fn func(backend.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	// The transaction runs to completion once begun.
	txCtx := context.WithoutCancel(ctx)

	tx, err := b.db.BeginTx(txCtx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit transaction: %w", cerr)
		}
	}()

	return fn(&sqlTx{ctx: txCtx, tx: tx, bucket: bucket, writable: writable})
}

// Snapshot writes a compacted copy of the database to w using VACUUM INTO.
func (b *Backend) Snapshot(ctx context.Context, w io.Writer) (int64, error) {
	dir, err := os.MkdirTemp("", "vecscan-snapshot-*")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "snapshot.db")
	stmt := fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(file, "'", "''"))
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return 0, fmt.Errorf("vacuum into: %w", err)
	}

	f, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return io.Copy(w, f)
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

type sqlTx struct {
	ctx      context.Context
	tx       *sql.Tx
	bucket   string
	writable bool
}

func (t *sqlTx) Add(key string, value []byte) error {
	if !t.writable {
		return backend.ErrReadOnly
	}
	res, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO kv (bucket, key, value) VALUES (?, ?, ?) ON CONFLICT (bucket, key) DO NOTHING`,
		t.bucket, key, value)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", backend.ErrKeyExists, key)
	}
	return nil
}

func (t *sqlTx) Put(key string, value []byte) error {
	if !t.writable {
		return backend.ErrReadOnly
	}
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO kv (bucket, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (bucket, key) DO UPDATE SET value = excluded.value`,
		t.bucket, key, value)
	return err
}

func (t *sqlTx) Get(key string) ([]byte, error) {
	var value []byte
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT value FROM kv WHERE bucket = ? AND key = ?`, t.bucket, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", backend.ErrKeyNotFound, key)
	}
	return value, err
}

func (t *sqlTx) Delete(key string) error {
	if !t.writable {
		return backend.ErrReadOnly
	}
	_, err := t.tx.ExecContext(t.ctx, `DELETE FROM kv WHERE bucket = ? AND key = ?`, t.bucket, key)
	return err
}

func (t *sqlTx) ForEach(fn func(key string, value []byte) error) error {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT key, value FROM kv WHERE bucket = ? ORDER BY key`, t.bucket)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (t *sqlTx) Keys() ([]string, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT key FROM kv WHERE bucket = ? ORDER BY key`, t.bucket)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
