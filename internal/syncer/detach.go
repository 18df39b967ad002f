package syncer

import (
	"context"
	"fmt"

	"github.com/doclink/doclink/internal/identity"
	"github.com/doclink/doclink/internal/objectstore"
	"github.com/doclink/doclink/internal/preview"
)

// DetachLedger removes every ledger entry on resourceID matching raw's
// identity. An absent entry is zero-effect success, not an error.
func (s *Syncer) DetachLedger(ctx context.Context, resourceID int64, raw string) (int, error) {
	id := s.normalize(raw)
	n, err := s.ledger.RemoveByIdentity(ctx, resourceID, id)
	if err != nil {
		return 0, fmt.Errorf("detach ledger: %w", err)
	}
	return n, nil
}

// DetachRegistryResult reports one registry detach.
type DetachRegistryResult struct {
	Identity       identity.FileIdentity
	RowsRemoved    int64
	DocDeleted     bool
	PreviewDeleted bool
	Diagnostics    []string
}

// DetachRegistry removes the registry rows for raw's identity, then — only
// when deleteFiles is set — the stored document and its preview. A row
// removal failure aborts before any file is touched; file deletion itself
// is best-effort.
func (s *Syncer) DetachRegistry(ctx context.Context, raw string, deleteFiles bool) (DetachRegistryResult, error) {
	id := s.normalize(raw)
	res := DetachRegistryResult{Identity: id}

	n, err := s.registry.DeleteByIdentity(ctx, id.Folder, id.Name)
	if err != nil {
		return res, fmt.Errorf("detach registry: %w: %v", ErrRegistryWriteFailed, err)
	}
	res.RowsRemoved = n

	if !deleteFiles {
		return res, nil
	}
	if removed, err := s.store.Delete(ctx, objectstore.Documents, id.Folder, id.Name); err != nil {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("delete document: %v", err))
	} else {
		res.DocDeleted = removed
	}
	pname := preview.PreviewName(id.Name)
	if removed, err := s.store.Delete(ctx, objectstore.Previews, id.Folder, pname); err != nil {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("delete preview: %v", err))
	} else {
		res.PreviewDeleted = removed
	}
	return res, nil
}

// DetachRegistryRow deletes one registry row by id, reporting whether a
// row was actually removed. An absent row is zero-effect success.
func (s *Syncer) DetachRegistryRow(ctx context.Context, rowID int64) (bool, error) {
	n, err := s.registry.DeleteByID(ctx, rowID)
	if err != nil {
		return false, fmt.Errorf("detach registry row: %w: %v", ErrRegistryWriteFailed, err)
	}
	return n > 0, nil
}

// BulkDetachResult reports a ledger-wide detach sweep.
type BulkDetachResult struct {
	Identity    identity.FileIdentity
	Checked     int
	RemovedFrom []int64
	Errors      []string
}

// BulkDetachLedger finds every product whose ledger holds raw's identity
// and removes the entry from each. Per-resource fail-soft; cancellation
// between resources returns the partial result with ctx's error.
func (s *Syncer) BulkDetachLedger(ctx context.Context, raw string) (BulkDetachResult, error) {
	id := s.normalize(raw)
	res := BulkDetachResult{Identity: id}

	holders, err := s.ledger.FindUsages(ctx, id)
	if err != nil {
		return res, fmt.Errorf("bulk detach: %w", err)
	}
	for _, resourceID := range holders {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++
		n, err := s.ledger.RemoveByIdentity(ctx, resourceID, id)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("resource %d: %v", resourceID, err))
			continue
		}
		if n > 0 {
			res.RemovedFrom = append(res.RemovedFrom, resourceID)
		}
	}
	return res, nil
}

func (s *Syncer) normalize(raw string) identity.FileIdentity {
	return identity.NormalizeWithBases(raw, s.cfg.DefaultFolder, s.cfg.DocsBaseURL, s.cfg.PreviewsBaseURL)
}
