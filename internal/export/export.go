// Package export writes point-in-time snapshots of the registry and the
// attachment ledgers, intended as an operator backup before bulk detach
// sweeps. The format is zstd-compressed JSONL: a header line, then one
// line per registry row, then one line per non-empty ledger.
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/doclink/doclink/internal/registry"
)

type header struct {
	Kind       string    `json:"kind"`
	SnapshotID string    `json:"snapshot_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type registryLine struct {
	Kind string       `json:"kind"`
	Row  registry.Row `json:"row"`
}

type ledgerLine struct {
	Kind       string          `json:"kind"`
	ResourceID int64           `json:"resource_id"`
	Field      string          `json:"field"`
	Value      json.RawMessage `json:"value"`
}

// Snapshot dumps every registry row and every stored ledger field to w,
// returning the snapshot id. Ledger values are carried verbatim so a
// snapshot preserves byte-exact field content, malformed or not.
func Snapshot(ctx context.Context, conn *sql.DB, fieldKey string, w io.Writer) (string, error) {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	enc := json.NewEncoder(zw)

	id := uuid.NewString()
	if err := enc.Encode(header{Kind: "snapshot", SnapshotID: id, CreatedAt: time.Now().UTC()}); err != nil {
		zw.Close()
		return "", fmt.Errorf("snapshot: header: %w", err)
	}

	if err := writeRegistry(ctx, conn, enc); err != nil {
		zw.Close()
		return "", err
	}
	if err := writeLedgers(ctx, conn, fieldKey, enc); err != nil {
		zw.Close()
		return "", err
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("snapshot: flush: %w", err)
	}
	return id, nil
}

func writeRegistry(ctx context.Context, conn *sql.DB, enc *json.Encoder) error {
	rows, err := conn.QueryContext(ctx,
		`SELECT id, resource_id, article, vendor_id, vendor_name, folder,
		        doc_name, preview_name, doc_url, preview_url, created_at
		 FROM registry ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("snapshot: registry: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r registry.Row
		var created float64
		if err := rows.Scan(&r.ID, &r.ResourceID, &r.Article, &r.VendorID, &r.VendorName,
			&r.Folder, &r.DocName, &r.PreviewName, &r.DocURL, &r.PreviewURL, &created); err != nil {
			return fmt.Errorf("snapshot: registry: %w", err)
		}
		r.CreatedAt = time.Unix(int64(created), 0).UTC()
		if err := enc.Encode(registryLine{Kind: "registry", Row: r}); err != nil {
			return fmt.Errorf("snapshot: registry: %w", err)
		}
	}
	return rows.Err()
}

func writeLedgers(ctx context.Context, conn *sql.DB, fieldKey string, enc *json.Encoder) error {
	rows, err := conn.QueryContext(ctx,
		`SELECT resource_id, value FROM resource_fields
		 WHERE field_key = ? AND value != '' ORDER BY resource_id ASC`, fieldKey)
	if err != nil {
		return fmt.Errorf("snapshot: ledgers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var resourceID int64
		var value string
		if err := rows.Scan(&resourceID, &value); err != nil {
			return fmt.Errorf("snapshot: ledgers: %w", err)
		}
		line := ledgerLine{Kind: "ledger", ResourceID: resourceID, Field: fieldKey}
		if json.Valid([]byte(value)) {
			line.Value = json.RawMessage(value)
		} else {
			raw, _ := json.Marshal(value)
			line.Value = raw
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("snapshot: ledgers: %w", err)
		}
	}
	return rows.Err()
}
