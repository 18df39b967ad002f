package syncer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/doclink/doclink/internal/catalog"
	"github.com/doclink/doclink/internal/identity"
	"github.com/doclink/doclink/internal/ledger"
	"github.com/doclink/doclink/internal/objectstore"
	"github.com/doclink/doclink/internal/preview"
	"github.com/doclink/doclink/internal/registry"
)

// Target outcome statuses for bulk operations.
const (
	StatusAttached = "attached"
	StatusNotFound = "notFound"
	StatusError    = "error"
)

// BulkTarget addresses one product in a bulk attach.
type BulkTarget struct {
	ResourceID int64
	Article    string
	VendorID   int64
}

// BulkAttachRequest attaches one shared document to many products.
type BulkAttachRequest struct {
	Data        []byte
	DisplayName string
	Folder      string
	Title       string
	Targets     []BulkTarget
}

// TargetOutcome is one target's result in a bulk attach.
type TargetOutcome struct {
	Target     BulkTarget
	ResourceID int64
	Status     string
	Detail     string
}

// BulkAttachResult reports a bulk attach. The document and its preview are
// stored exactly once; Outcomes covers the targets processed before any
// cancellation.
type BulkAttachResult struct {
	OperationID string
	Identity    identity.FileIdentity
	DocURL      string
	PreviewURL  string
	Diagnostics []string
	Outcomes    []TargetOutcome
}

// BulkAttach stores the document once, then binds it to each target
// independently. A failed target never stops the rest; cancellation
// between targets returns the partial result with ctx's error.
func (s *Syncer) BulkAttach(ctx context.Context, req BulkAttachRequest) (BulkAttachResult, error) {
	res := BulkAttachResult{OperationID: uuid.NewString()}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if len(req.Data) == 0 {
		return res, fmt.Errorf("bulk attach: empty document")
	}

	folder := identity.SanitizeFolder(req.Folder)
	if folder == "" {
		folder = s.cfg.DefaultFolder
	}
	name := identity.SlugifyName(req.DisplayName, "pdf")

	stored, err := s.store.Put(ctx, objectstore.Documents, folder, name, req.Data)
	if err != nil {
		return res, fmt.Errorf("bulk attach: %w", err)
	}
	res.Identity = identity.FileIdentity{Folder: folder, Name: stored}
	res.DocURL = s.store.URL(objectstore.Documents, folder, stored)

	var previewID identity.FileIdentity
	previewData, diags := s.renderPreview(ctx, req.Data)
	res.Diagnostics = append(res.Diagnostics, diags...)
	if previewData != nil {
		pname, err := s.store.Put(ctx, objectstore.Previews, folder, preview.PreviewName(stored), previewData)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("%v: store preview: %v", ErrPreviewFailed, err))
		} else {
			previewID = identity.FileIdentity{Folder: folder, Name: pname}
			res.PreviewURL = s.store.URL(objectstore.Previews, folder, pname)
		}
	}

	title := entryTitle(req.Title, req.DisplayName)
	for _, target := range req.Targets {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		out := TargetOutcome{Target: target}

		prod, ok, err := s.resolve(ctx, target.ResourceID, target.Article, target.VendorID)
		switch {
		case err != nil:
			out.Status = StatusError
			out.Detail = fmt.Sprintf("resolve: %v", err)
		case !ok:
			out.Status = StatusNotFound
		default:
			out.ResourceID = prod.ResourceID
			entry := ledger.Entry{Title: title, File: res.Identity.String()}
			if !previewID.IsZero() {
				entry.Image = previewID.String()
			}
			if err := s.ledger.Append(ctx, prod.ResourceID, entry); err != nil {
				out.Status = StatusError
				out.Detail = err.Error()
			} else {
				out.Status = StatusAttached
			}

			if s.cfg.RegistryEnabled && s.registry != nil && out.Status == StatusAttached {
				if _, err := s.registryInsert(ctx, prod, folder, stored, previewID, res); err != nil {
					res.Diagnostics = append(res.Diagnostics,
						fmt.Sprintf("%v: resource %d: %v", ErrRegistryWriteFailed, prod.ResourceID, err))
				}
			}
		}
		res.Outcomes = append(res.Outcomes, out)
	}
	return res, nil
}

func (s *Syncer) registryInsert(ctx context.Context, prod catalog.Product, folder, stored string, previewID identity.FileIdentity, res BulkAttachResult) (int64, error) {
	return s.registry.Insert(ctx, registry.Row{
		ResourceID:  prod.ResourceID,
		Article:     prod.Article,
		VendorID:    prod.VendorID,
		VendorName:  prod.VendorName,
		Folder:      folder,
		DocName:     stored,
		PreviewName: previewID.Name,
		DocURL:      res.DocURL,
		PreviewURL:  res.PreviewURL,
	})
}

// UploadFile is one file in a mass upload.
type UploadFile struct {
	Name string
	Data []byte
}

// UploadOutcome is one file's result in a mass upload.
type UploadOutcome struct {
	Name        string
	Identity    identity.FileIdentity
	DocURL      string
	PreviewURL  string
	Err         string
	Diagnostics []string
}

// MassUpload stores many documents into one folder with previews but no
// product binding. Per-file fail-soft; cancellation between files returns
// the partial outcomes with ctx's error.
func (s *Syncer) MassUpload(ctx context.Context, folder string, files []UploadFile) ([]UploadOutcome, error) {
	folder = identity.SanitizeFolder(folder)
	if folder == "" {
		folder = s.cfg.DefaultFolder
	}

	var outs []UploadOutcome
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return outs, err
		}
		out := UploadOutcome{Name: f.Name}
		if len(f.Data) == 0 {
			out.Err = "empty document"
			outs = append(outs, out)
			continue
		}

		name := identity.SlugifyName(f.Name, "pdf")
		stored, err := s.store.Put(ctx, objectstore.Documents, folder, name, f.Data)
		if err != nil {
			out.Err = err.Error()
			outs = append(outs, out)
			continue
		}
		out.Identity = identity.FileIdentity{Folder: folder, Name: stored}
		out.DocURL = s.store.URL(objectstore.Documents, folder, stored)

		previewData, diags := s.renderPreview(ctx, f.Data)
		out.Diagnostics = diags
		if previewData != nil {
			pname, err := s.store.Put(ctx, objectstore.Previews, folder, preview.PreviewName(stored), previewData)
			if err != nil {
				out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("%v: store preview: %v", ErrPreviewFailed, err))
			} else {
				out.PreviewURL = s.store.URL(objectstore.Previews, folder, pname)
			}
		}
		outs = append(outs, out)
	}
	return outs, nil
}
