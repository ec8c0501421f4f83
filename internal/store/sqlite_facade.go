package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cogmem/cogmem/internal/errs"

	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)
)

// SQLiteFacade implements Facade over a single modernc.org/sqlite database,
// persisting each table as a JSON-blob row keyed by id. WAL mode plus a
// single-writer connection pool satisfies the connection-pool contract of
// spec.md §4.1: acquire(ctx) maps to db.Conn(ctx), and PoolExhausted maps to
// the context deadline expiring while waiting for that single connection.
type SQLiteFacade struct {
	db *sql.DB
}

// NewSQLiteFacade opens (creating if absent) a SQLite-backed facade at path.
// path == "" opens a private in-memory database, useful for tests.
func NewSQLiteFacade(path string) (*SQLiteFacade, error) {
	dsn := ":memory:"
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create facade directory %s: %w", dir, err)
			}
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open facade database: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY under WAL; readers never
	// contend with each other, only with the lone writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		tbl  TEXT NOT NULL,
		id   TEXT NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (tbl, id)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create facade schema: %w", err)
	}

	return &SQLiteFacade{db: db}, nil
}

func (f *SQLiteFacade) conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := f.db.Conn(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.PoolExhausted()
		}
		return nil, fmt.Errorf("acquire facade connection: %w", err)
	}
	return conn, nil
}

// Create inserts rec at (table, id), failing with AlreadyExists if present.
func (f *SQLiteFacade) Create(ctx context.Context, table Table, id string, rec Record) error {
	conn, err := f.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	var exists int
	if err := conn.QueryRowContext(ctx, `SELECT 1 FROM records WHERE tbl = ? AND id = ?`, string(table), id).Scan(&exists); err == nil {
		return errs.AlreadyExists(string(table), id)
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("check existing record: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = conn.ExecContext(ctx, `INSERT INTO records (tbl, id, data) VALUES (?, ?, ?)`, string(table), id, data)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Get returns the record at (table, id).
func (f *SQLiteFacade) Get(ctx context.Context, table Table, id string) (Record, error) {
	conn, err := f.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var data []byte
	err = conn.QueryRowContext(ctx, `SELECT data FROM records WHERE tbl = ? AND id = ?`, string(table), id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound(string(table), id)
	}
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errs.Corrupt(fmt.Sprintf("record %s/%s: %v", table, id, err))
	}
	return rec, nil
}

// Update replaces the record at (table, id), failing with NotFound if absent.
func (f *SQLiteFacade) Update(ctx context.Context, table Table, id string, rec Record) error {
	conn, err := f.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	res, err := conn.ExecContext(ctx, `UPDATE records SET data = ? WHERE tbl = ? AND id = ?`, data, string(table), id)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rows affected: %w", err)
	}
	if n == 0 {
		return errs.NotFound(string(table), id)
	}
	return nil
}

// Delete removes the record at (table, id). Deletion is idempotent.
func (f *SQLiteFacade) Delete(ctx context.Context, table Table, id string) error {
	conn, err := f.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.ExecContext(ctx, `DELETE FROM records WHERE tbl = ? AND id = ?`, string(table), id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// Query scans every row of table and filters in Go; the record schema is
// caller-defined JSON, so predicate evaluation cannot be pushed into SQL
// beyond the table partition.
func (f *SQLiteFacade) Query(ctx context.Context, table Table, pred Predicate, limit int) ([]Record, error) {
	conn, err := f.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `SELECT data FROM records WHERE tbl = ?`, string(table))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, errs.Corrupt(fmt.Sprintf("record in table %s: %v", table, err))
		}
		if !pred.Match(rec) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}

// BulkApply runs ops inside a single SQL transaction: any failure rolls
// back the whole batch, so callers never observe a partially-applied set.
func (f *SQLiteFacade) BulkApply(ctx context.Context, ops []Operation) error {
	conn, err := f.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin facade transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	for _, op := range ops {
		switch op.Kind {
		case OpCreate:
			var exists int
			scanErr := tx.QueryRowContext(ctx, `SELECT 1 FROM records WHERE tbl = ? AND id = ?`, string(op.Table), op.ID).Scan(&exists)
			if scanErr == nil {
				return errs.AlreadyExists(string(op.Table), op.ID)
			} else if scanErr != sql.ErrNoRows {
				return fmt.Errorf("check existing record: %w", scanErr)
			}
			data, marshalErr := json.Marshal(op.Record)
			if marshalErr != nil {
				return fmt.Errorf("marshal record: %w", marshalErr)
			}
			if _, execErr := tx.ExecContext(ctx, `INSERT INTO records (tbl, id, data) VALUES (?, ?, ?)`, string(op.Table), op.ID, data); execErr != nil {
				return fmt.Errorf("insert record: %w", execErr)
			}

		case OpUpdate:
			data, marshalErr := json.Marshal(op.Record)
			if marshalErr != nil {
				return fmt.Errorf("marshal record: %w", marshalErr)
			}
			res, execErr := tx.ExecContext(ctx, `UPDATE records SET data = ? WHERE tbl = ? AND id = ?`, data, string(op.Table), op.ID)
			if execErr != nil {
				return fmt.Errorf("update record: %w", execErr)
			}
			n, raErr := res.RowsAffected()
			if raErr != nil {
				return fmt.Errorf("update rows affected: %w", raErr)
			}
			if n == 0 {
				return errs.NotFound(string(op.Table), op.ID)
			}

		case OpDelete:
			if _, execErr := tx.ExecContext(ctx, `DELETE FROM records WHERE tbl = ? AND id = ?`, string(op.Table), op.ID); execErr != nil {
				return fmt.Errorf("delete record: %w", execErr)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit facade transaction: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (f *SQLiteFacade) Close() error { return f.db.Close() }

var _ Facade = (*SQLiteFacade)(nil)
