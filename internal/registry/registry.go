// Package registry keeps the flat secondary table of attachment rows, one
// per successful upload. It is an audit/query index, not a set: duplicate
// rows for one identity are legal and readers get them most-recent first.
package registry

import (
	"context"
	"database/sql"
	"time"
)

// Row is one attachment record.
type Row struct {
	ID          int64
	ResourceID  int64
	Article     string
	VendorID    int64
	VendorName  string
	Folder      string
	DocName     string
	PreviewName string
	DocURL      string
	PreviewURL  string
	CreatedAt   time.Time
}

// Store provides indexed access to registry rows.
type Store struct {
	db *sql.DB
}

// New returns a Store over conn.
func New(conn *sql.DB) *Store {
	return &Store{db: conn}
}

// Insert adds one row and returns its id.
func (s *Store) Insert(ctx context.Context, r Row) (int64, error) {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO registry (resource_id, article, vendor_id, vendor_name, folder, doc_name, preview_name, doc_url, preview_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ResourceID, r.Article, r.VendorID, r.VendorName, r.Folder, r.DocName, r.PreviewName, r.DocURL, r.PreviewURL,
		float64(createdAt.UnixNano())/1e9,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DeleteByID removes one row. Missing rows delete zero.
func (s *Store) DeleteByID(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registry WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByIdentity removes every row for (folder, docName) and returns the
// count.
func (s *Store) DeleteByIdentity(ctx context.Context, folder, docName string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registry WHERE folder = ? AND doc_name = ?`, folder, docName)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindByArticle returns rows for article, optionally narrowed by vendorID,
// newest first.
func (s *Store) FindByArticle(ctx context.Context, article string, vendorID int64) ([]Row, error) {
	q := `SELECT id, resource_id, article, vendor_id, vendor_name, folder, doc_name, preview_name, doc_url, preview_url, created_at
	      FROM registry WHERE article = ?`
	args := []any{article}
	if vendorID > 0 {
		q += ` AND vendor_id = ?`
		args = append(args, vendorID)
	}
	q += ` ORDER BY created_at DESC, id DESC`
	return s.query(ctx, q, args...)
}

// FindByResource returns every row for one resource, newest first.
func (s *Store) FindByResource(ctx context.Context, resourceID int64) ([]Row, error) {
	return s.query(ctx,
		`SELECT id, resource_id, article, vendor_id, vendor_name, folder, doc_name, preview_name, doc_url, preview_url, created_at
		 FROM registry WHERE resource_id = ?
		 ORDER BY created_at DESC, id DESC`,
		resourceID)
}

// FindByIdentity returns rows for (folder, docName), newest first.
func (s *Store) FindByIdentity(ctx context.Context, folder, docName string) ([]Row, error) {
	return s.query(ctx,
		`SELECT id, resource_id, article, vendor_id, vendor_name, folder, doc_name, preview_name, doc_url, preview_url, created_at
		 FROM registry WHERE folder = ? AND doc_name = ?
		 ORDER BY created_at DESC, id DESC`,
		folder, docName)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var ts float64
		if err := rows.Scan(&r.ID, &r.ResourceID, &r.Article, &r.VendorID, &r.VendorName,
			&r.Folder, &r.DocName, &r.PreviewName, &r.DocURL, &r.PreviewURL, &ts); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, int64(ts*1e9))
		out = append(out, r)
	}
	return out, rows.Err()
}
