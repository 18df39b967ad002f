// Package syncer orchestrates attach, detach and search operations across
// the object store, the preview renderer, the registry index and the
// per-product attachment ledgers. It owns the operation-level semantics:
// which failures abort an operation and which degrade to diagnostics.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/doclink/doclink/internal/catalog"
	"github.com/doclink/doclink/internal/config"
	"github.com/doclink/doclink/internal/identity"
	"github.com/doclink/doclink/internal/ledger"
	"github.com/doclink/doclink/internal/objectstore"
	"github.com/doclink/doclink/internal/preview"
	"github.com/doclink/doclink/internal/registry"
)

// The operation error taxonomy. Lower layers own some of these sentinels;
// they are re-exported here so callers match every failure class with
// errors.Is against one package.
var (
	ErrConfigurationMissing   = config.ErrConfigurationMissing
	ErrStorageUnavailable     = objectstore.ErrStorageUnavailable
	ErrLedgerWriteFailed      = ledger.ErrLedgerWriteFailed
	ErrConcurrentModification = ledger.ErrConcurrentModification

	// ErrNotFound covers a missing stored object. Absent detach and
	// search targets are zero-effect success, never this error.
	ErrNotFound = objectstore.ErrNotFound

	ErrCatalogNotFound     = errors.New("catalog entry not found")
	ErrPreviewFailed       = errors.New("preview rendering failed")
	ErrRegistryWriteFailed = errors.New("registry write failed")
)

// Syncer wires the stores together. All collaborators are injected; the
// zero value is unusable.
type Syncer struct {
	cfg      *config.Config
	store    objectstore.Store
	renderer *preview.Renderer
	registry *registry.Store
	ledger   *ledger.Ledger
	resolver catalog.Resolver
}

// New returns a Syncer over the given collaborators.
func New(cfg *config.Config, store objectstore.Store, renderer *preview.Renderer, reg *registry.Store, led *ledger.Ledger, resolver catalog.Resolver) *Syncer {
	return &Syncer{
		cfg:      cfg,
		store:    store,
		renderer: renderer,
		registry: reg,
		ledger:   led,
		resolver: resolver,
	}
}

// AttachRequest describes one document-to-product attach. The product is
// addressed either directly by ResourceID or by Article (optionally
// narrowed by VendorID); both empty means "store only, bind nothing".
type AttachRequest struct {
	Data        []byte
	DisplayName string
	Folder      string
	Title       string

	ResourceID int64
	Article    string
	VendorID   int64
}

// AttachResult reports what one attach actually did. It is populated even
// when the returned error is ErrLedgerWriteFailed: the stored files are
// kept and their URLs are real.
type AttachResult struct {
	OperationID string
	Identity    identity.FileIdentity
	ResourceID  int64
	Article     string
	VendorName  string

	DocURL      string
	PreviewName string
	PreviewURL  string

	LedgerUpdated bool
	RegistryID    int64
	Diagnostics   []string
}

// Attach stores one document, renders its preview, and binds it to the
// resolved product. An unresolvable product is recorded as a diagnostic
// and the file is stored unbound. Preview and registry failures degrade
// to diagnostics; only storage and ledger failures surface as errors.
func (s *Syncer) Attach(ctx context.Context, req AttachRequest) (AttachResult, error) {
	res := AttachResult{OperationID: uuid.NewString()}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if len(req.Data) == 0 {
		return res, fmt.Errorf("attach: empty document")
	}

	prod, ok, err := s.resolve(ctx, req.ResourceID, req.Article, req.VendorID)
	if err != nil {
		return res, fmt.Errorf("attach: resolve: %w", err)
	}
	if ok {
		res.ResourceID = prod.ResourceID
		res.Article = prod.Article
		res.VendorName = prod.VendorName
	} else if req.ResourceID > 0 || req.Article != "" {
		res.Diagnostics = append(res.Diagnostics,
			fmt.Sprintf("%v: article=%q resource=%d", ErrCatalogNotFound, req.Article, req.ResourceID))
	}

	folder := identity.SanitizeFolder(req.Folder)
	if folder == "" {
		folder = s.cfg.DefaultFolder
	}
	name := identity.SlugifyName(req.DisplayName, "pdf")

	stored, err := s.store.Put(ctx, objectstore.Documents, folder, name, req.Data)
	if err != nil {
		return res, fmt.Errorf("attach: %w", err)
	}
	res.Identity = identity.FileIdentity{Folder: folder, Name: stored}
	res.DocURL = s.store.URL(objectstore.Documents, folder, stored)

	previewData, diags := s.renderPreview(ctx, req.Data)
	res.Diagnostics = append(res.Diagnostics, diags...)
	if previewData != nil {
		pname, err := s.store.Put(ctx, objectstore.Previews, folder, preview.PreviewName(stored), previewData)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("%v: store preview: %v", ErrPreviewFailed, err))
		} else {
			res.PreviewName = pname
			res.PreviewURL = s.store.URL(objectstore.Previews, folder, pname)
		}
	}

	var ledgerErr error
	if res.ResourceID > 0 {
		entry := ledger.Entry{
			Title: entryTitle(req.Title, req.DisplayName),
			File:  res.Identity.String(),
		}
		if res.PreviewName != "" {
			entry.Image = identity.FileIdentity{Folder: folder, Name: res.PreviewName}.String()
		}
		if err := s.ledger.Append(ctx, res.ResourceID, entry); err != nil {
			ledgerErr = fmt.Errorf("attach: %w", err)
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("ledger: %v", err))
		} else {
			res.LedgerUpdated = true
		}
	}

	if s.cfg.RegistryEnabled && s.registry != nil {
		row := registry.Row{
			ResourceID:  res.ResourceID,
			Article:     res.Article,
			VendorID:    prod.VendorID,
			VendorName:  res.VendorName,
			Folder:      folder,
			DocName:     stored,
			PreviewName: res.PreviewName,
			DocURL:      res.DocURL,
			PreviewURL:  res.PreviewURL,
		}
		id, err := s.registry.Insert(ctx, row)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("%v: %v", ErrRegistryWriteFailed, err))
		} else {
			res.RegistryID = id
		}
	}

	return res, ledgerErr
}

func (s *Syncer) resolve(ctx context.Context, resourceID int64, article string, vendorID int64) (catalog.Product, bool, error) {
	if resourceID > 0 {
		return s.resolver.ResolveByResourceID(ctx, resourceID)
	}
	if article != "" {
		return s.resolver.ResolveByArticle(ctx, article, vendorID)
	}
	return catalog.Product{}, false, nil
}

// renderPreview rasterizes the first page through a scratch directory, so
// the same path works for both storage backends. nil data means "no
// preview"; the diagnostics say why.
func (s *Syncer) renderPreview(ctx context.Context, doc []byte) ([]byte, []string) {
	tmp, err := os.MkdirTemp("", "doclink-preview-")
	if err != nil {
		return nil, []string{fmt.Sprintf("%v: scratch dir: %v", ErrPreviewFailed, err)}
	}
	defer os.RemoveAll(tmp)

	docPath := filepath.Join(tmp, "doc.pdf")
	outPath := filepath.Join(tmp, "preview.jpg")
	if err := os.WriteFile(docPath, doc, 0o600); err != nil {
		return nil, []string{fmt.Sprintf("%v: scratch write: %v", ErrPreviewFailed, err)}
	}

	ok, diags := s.renderer.Render(ctx, docPath, outPath, 0)
	for i, d := range diags {
		diags[i] = fmt.Sprintf("%v: %s", ErrPreviewFailed, d)
	}
	if !ok {
		return nil, diags
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, append(diags, fmt.Sprintf("%v: read output: %v", ErrPreviewFailed, err))
	}
	return data, diags
}

func entryTitle(title, displayName string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	base := filepath.Base(displayName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
