// Package objectstore persists original documents and generated previews,
// keyed by (folder, name), in one of two named spaces. Backends: a local
// directory pair and S3-compatible object storage.
package objectstore

import (
	"context"
	"errors"
)

// Space names one of the two storage areas.
type Space string

const (
	Documents Space = "documents"
	Previews  Space = "previews"
)

// ErrStorageUnavailable wraps directory-creation and write failures. The
// caller decides whether it aborts the whole operation.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrNotFound is returned by Get for a missing object.
var ErrNotFound = errors.New("object not found")

// SpaceConfig holds one space's base directory (or key prefix) and its
// public base URL.
type SpaceConfig struct {
	BasePath string
	BaseURL  string
}

// Store is the object storage contract. Put never overwrites: on a name
// collision the stored name is suffixed, and the actually-stored name is
// returned.
type Store interface {
	Put(ctx context.Context, space Space, folder, name string, data []byte) (string, error)
	// Get returns the object bytes, or ErrNotFound.
	Get(ctx context.Context, space Space, folder, name string) ([]byte, error)
	Exists(ctx context.Context, space Space, folder, name string) (bool, error)
	// Delete is best-effort; absence is not an error. Reports whether an
	// object was actually removed.
	Delete(ctx context.Context, space Space, folder, name string) (bool, error)
	// List returns file names in one folder, naturally sorted,
	// case-insensitive. One snapshot, no pagination state.
	List(ctx context.Context, space Space, folder string) ([]string, error)
	// ListFolders returns the folder names directly under the space root.
	ListFolders(ctx context.Context, space Space) ([]string, error)
	URL(space Space, folder, name string) string
}

const collisionAttempts = 20

func joinURL(base, folder, name string) string {
	u := base
	if folder != "" {
		u += "/" + folder
	}
	return u + "/" + name
}
