package syncer

import (
	"context"
	"fmt"

	"github.com/doclink/doclink/internal/identity"
	"github.com/doclink/doclink/internal/ledger"
	"github.com/doclink/doclink/internal/objectstore"
	"github.com/doclink/doclink/internal/preview"
	"github.com/doclink/doclink/internal/registry"
)

// SearchRequest selects by product (Article, optional VendorID), by
// resource id, or by file (File, any accepted identity form). Exactly one
// axis must be set.
type SearchRequest struct {
	Article    string
	VendorID   int64
	ResourceID int64
	File       string
}

// LedgerHit is one product holding matching attachment entries.
type LedgerHit struct {
	ResourceID int64
	PageTitle  string
	Article    string
	VendorName string
	Entries    []ledger.Entry
}

// SearchResult holds both views side by side. The registry is history,
// the ledgers are current truth; disagreement between them is data the
// operator wants to see, so the views are never merged.
type SearchResult struct {
	FromRegistry []registry.Row
	FromLedger   []LedgerHit
}

// Search answers from both the registry index and the live ledgers.
func (s *Syncer) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	axes := 0
	for _, set := range []bool{req.Article != "", req.ResourceID > 0, req.File != ""} {
		if set {
			axes++
		}
	}
	if axes > 1 {
		return SearchResult{}, fmt.Errorf("search: article, resource and file are exclusive")
	}
	switch {
	case req.Article != "":
		return s.searchByArticle(ctx, req.Article, req.VendorID)
	case req.ResourceID > 0:
		return s.searchByResource(ctx, req.ResourceID)
	case req.File != "":
		id := s.normalize(req.File)
		rows, hits, err := s.usageOf(ctx, id)
		return SearchResult{FromRegistry: rows, FromLedger: hits}, err
	default:
		return SearchResult{}, fmt.Errorf("search: empty request")
	}
}

func (s *Syncer) searchByArticle(ctx context.Context, article string, vendorID int64) (SearchResult, error) {
	var res SearchResult
	var err error
	res.FromRegistry, err = s.registry.FindByArticle(ctx, article, vendorID)
	if err != nil {
		return res, fmt.Errorf("search registry: %w", err)
	}

	prods, err := s.resolver.LookupProducts(ctx, article, vendorID)
	if err != nil {
		return res, fmt.Errorf("search catalog: %w", err)
	}
	for _, p := range prods {
		entries, err := s.ledger.Read(ctx, p.ResourceID)
		if err != nil {
			return res, fmt.Errorf("search ledger: resource %d: %w", p.ResourceID, err)
		}
		res.FromLedger = append(res.FromLedger, LedgerHit{
			ResourceID: p.ResourceID,
			PageTitle:  p.PageTitle,
			Article:    p.Article,
			VendorName: p.VendorName,
			Entries:    entries,
		})
	}
	return res, nil
}

func (s *Syncer) searchByResource(ctx context.Context, resourceID int64) (SearchResult, error) {
	var res SearchResult
	var err error
	res.FromRegistry, err = s.registry.FindByResource(ctx, resourceID)
	if err != nil {
		return res, fmt.Errorf("search registry: %w", err)
	}

	hit := LedgerHit{ResourceID: resourceID}
	if prod, ok, err := s.resolver.ResolveByResourceID(ctx, resourceID); err == nil && ok {
		hit.PageTitle = prod.PageTitle
		hit.Article = prod.Article
		hit.VendorName = prod.VendorName
	}
	hit.Entries, err = s.ledger.Read(ctx, resourceID)
	if err != nil {
		return res, fmt.Errorf("search ledger: resource %d: %w", resourceID, err)
	}
	res.FromLedger = append(res.FromLedger, hit)
	return res, nil
}

// UsageResult reports where one file is referenced.
type UsageResult struct {
	Identity identity.FileIdentity
	Registry []registry.Row
	Holders  []LedgerHit
}

// Usage reports every registry row and every ledger holder for raw's
// identity, holders enriched with product info.
func (s *Syncer) Usage(ctx context.Context, raw string) (UsageResult, error) {
	id := s.normalize(raw)
	rows, hits, err := s.usageOf(ctx, id)
	return UsageResult{Identity: id, Registry: rows, Holders: hits}, err
}

func (s *Syncer) usageOf(ctx context.Context, id identity.FileIdentity) ([]registry.Row, []LedgerHit, error) {
	rows, err := s.registry.FindByIdentity(ctx, id.Folder, id.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("usage registry: %w", err)
	}

	holders, err := s.ledger.FindUsages(ctx, id)
	if err != nil {
		return rows, nil, fmt.Errorf("usage ledger: %w", err)
	}
	var hits []LedgerHit
	for _, resourceID := range holders {
		hit := LedgerHit{ResourceID: resourceID}
		if prod, ok, err := s.resolver.ResolveByResourceID(ctx, resourceID); err == nil && ok {
			hit.PageTitle = prod.PageTitle
			hit.Article = prod.Article
			hit.VendorName = prod.VendorName
		}
		entries, err := s.ledger.Read(ctx, resourceID)
		if err != nil {
			return rows, hits, fmt.Errorf("usage ledger: resource %d: %w", resourceID, err)
		}
		for _, e := range entries {
			if s.ledger.FileKey(e.File) == id.String() {
				hit.Entries = append(hit.Entries, e)
			}
		}
		hits = append(hits, hit)
	}
	return rows, hits, nil
}

// FileInfo is one stored document with its URLs.
type FileInfo struct {
	Name       string
	DocURL     string
	PreviewURL string
}

// ListFolders returns the document space's folders.
func (s *Syncer) ListFolders(ctx context.Context) ([]string, error) {
	return s.store.ListFolders(ctx, objectstore.Documents)
}

// ListFiles returns the documents in one folder, naturally sorted, with
// preview URLs for the previews that actually exist.
func (s *Syncer) ListFiles(ctx context.Context, folder string) ([]FileInfo, error) {
	folder = identity.SanitizeFolder(folder)
	if folder == "" {
		folder = s.cfg.DefaultFolder
	}
	names, err := s.store.List(ctx, objectstore.Documents, folder)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	out := make([]FileInfo, 0, len(names))
	for _, name := range names {
		info := FileInfo{
			Name:   name,
			DocURL: s.store.URL(objectstore.Documents, folder, name),
		}
		pname := preview.PreviewName(name)
		if ok, err := s.store.Exists(ctx, objectstore.Previews, folder, pname); err == nil && ok {
			info.PreviewURL = s.store.URL(objectstore.Previews, folder, pname)
		}
		out = append(out, info)
	}
	return out, nil
}
