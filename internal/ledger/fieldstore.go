package ledger

import (
	"context"
	"database/sql"
	"strings"
)

// FieldRow is one raw ledger field value with its owner.
type FieldRow struct {
	ResourceID int64
	Value      string
}

// FieldStore is the narrow storage primitive the ledger runs on: get one
// field, conditionally replace it, and coarsely scan all values. The write
// is all-or-nothing at field granularity.
type FieldStore interface {
	Get(ctx context.Context, resourceID int64, key string) (string, error)
	// SetIfUnchanged replaces the field value only when it still equals
	// old ("" meaning absent). Reports false on a concurrent change.
	SetIfUnchanged(ctx context.Context, resourceID int64, key, old, value string) (bool, error)
	// ScanContaining returns every field row whose raw text contains
	// needle. Over-matching is fine; callers verify.
	ScanContaining(ctx context.Context, key, needle string) ([]FieldRow, error)
}

// SQLFieldStore implements FieldStore over the resource_fields table.
type SQLFieldStore struct {
	db *sql.DB
}

// NewSQLFieldStore returns a SQLFieldStore over conn.
func NewSQLFieldStore(conn *sql.DB) *SQLFieldStore {
	return &SQLFieldStore{db: conn}
}

// Get returns the raw field value, "" when absent.
func (s *SQLFieldStore) Get(ctx context.Context, resourceID int64, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM resource_fields WHERE resource_id = ? AND field_key = ?`,
		resourceID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetIfUnchanged is the optimistic-concurrency write: the UPDATE is
// conditioned on the previously-read value, so a lost update shows up as
// zero affected rows instead of silently clobbering a concurrent writer.
func (s *SQLFieldStore) SetIfUnchanged(ctx context.Context, resourceID int64, key, old, value string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE resource_fields SET value = ? WHERE resource_id = ? AND field_key = ? AND value = ?`,
		value, resourceID, key, old)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if old != "" {
		return false, nil
	}
	// Absent row: create it, losing to whoever inserts first.
	res, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO resource_fields (resource_id, field_key, value) VALUES (?, ?, ?)`,
		resourceID, key, value)
	if err != nil {
		return false, err
	}
	n, err = res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ScanContaining runs the cheap candidate filter: a LIKE over the raw
// stored text, needle escaped so % and _ match literally.
func (s *SQLFieldStore) ScanContaining(ctx context.Context, key, needle string) ([]FieldRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT resource_id, value FROM resource_fields WHERE field_key = ? AND value LIKE ? ESCAPE '\'`,
		key, "%"+escapeLike(needle)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FieldRow
	for rows.Next() {
		var r FieldRow
		if err := rows.Scan(&r.ResourceID, &r.Value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
