// Package catalog looks up products and vendors. The core never mutates
// catalog data; a missing product is an answer ("none"), not an error.
package catalog

import (
	"context"
	"database/sql"
)

// Product is one resolved catalog entry.
type Product struct {
	ResourceID int64
	PageTitle  string
	Article    string
	VendorID   int64
	VendorName string
}

// Vendor is one catalog vendor.
type Vendor struct {
	ID   int64
	Name string
}

// Resolver maps article/vendor codes and resource ids to products.
type Resolver interface {
	// ResolveByArticle returns the first product matching article,
	// optionally narrowed by vendorID (0 = any). ok=false means no match.
	ResolveByArticle(ctx context.Context, article string, vendorID int64) (Product, bool, error)
	ResolveByResourceID(ctx context.Context, resourceID int64) (Product, bool, error)
	VendorName(ctx context.Context, vendorID int64) (string, error)
	LookupProducts(ctx context.Context, article string, vendorID int64) ([]Product, error)
}

const lookupLimit = 50

// SQLResolver implements Resolver over the products/vendors tables.
type SQLResolver struct {
	db *sql.DB
}

// NewSQLResolver returns a SQLResolver over conn.
func NewSQLResolver(conn *sql.DB) *SQLResolver {
	return &SQLResolver{db: conn}
}

// ResolveByArticle returns the lowest-id product for article.
func (r *SQLResolver) ResolveByArticle(ctx context.Context, article string, vendorID int64) (Product, bool, error) {
	if article == "" {
		return Product{}, false, nil
	}
	q := `SELECT p.id, p.pagetitle, p.article, p.vendor, COALESCE(v.name, '')
	      FROM products p LEFT JOIN vendors v ON v.id = p.vendor
	      WHERE p.article = ?`
	args := []any{article}
	if vendorID > 0 {
		q += ` AND p.vendor = ?`
		args = append(args, vendorID)
	}
	q += ` ORDER BY p.id ASC LIMIT 1`
	return r.one(ctx, q, args...)
}

// ResolveByResourceID returns the product with the given id.
func (r *SQLResolver) ResolveByResourceID(ctx context.Context, resourceID int64) (Product, bool, error) {
	if resourceID <= 0 {
		return Product{}, false, nil
	}
	return r.one(ctx,
		`SELECT p.id, p.pagetitle, p.article, p.vendor, COALESCE(v.name, '')
		 FROM products p LEFT JOIN vendors v ON v.id = p.vendor
		 WHERE p.id = ? LIMIT 1`, resourceID)
}

// VendorName returns the vendor's name, "" when unknown.
func (r *SQLResolver) VendorName(ctx context.Context, vendorID int64) (string, error) {
	if vendorID <= 0 {
		return "", nil
	}
	var name string
	err := r.db.QueryRowContext(ctx, `SELECT name FROM vendors WHERE id = ?`, vendorID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// LookupProducts returns every product matching article (capped), for
// operator disambiguation when one article maps to several vendors.
func (r *SQLResolver) LookupProducts(ctx context.Context, article string, vendorID int64) ([]Product, error) {
	if article == "" {
		return nil, nil
	}
	q := `SELECT p.id, p.pagetitle, p.article, p.vendor, COALESCE(v.name, '')
	      FROM products p LEFT JOIN vendors v ON v.id = p.vendor
	      WHERE p.article = ?`
	args := []any{article}
	if vendorID > 0 {
		q += ` AND p.vendor = ?`
		args = append(args, vendorID)
	}
	q += ` ORDER BY p.id ASC LIMIT ?`
	args = append(args, lookupLimit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ResourceID, &p.PageTitle, &p.Article, &p.VendorID, &p.VendorName); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListVendors returns all vendors ordered by name.
func (r *SQLResolver) ListVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM vendors ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vendor
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.Name); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *SQLResolver) one(ctx context.Context, q string, args ...any) (Product, bool, error) {
	var p Product
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&p.ResourceID, &p.PageTitle, &p.Article, &p.VendorID, &p.VendorName)
	if err == sql.ErrNoRows {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}
