package objectstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DirStore implements Store over two local directory trees.
type DirStore struct {
	spaces map[Space]SpaceConfig
}

// NewDirStore returns a DirStore with the given space layout.
func NewDirStore(docs, previews SpaceConfig) *DirStore {
	return &DirStore{spaces: map[Space]SpaceConfig{
		Documents: docs,
		Previews:  previews,
	}}
}

func (d *DirStore) space(s Space) (SpaceConfig, error) {
	cfg, ok := d.spaces[s]
	if !ok {
		return SpaceConfig{}, fmt.Errorf("unknown space %q", s)
	}
	return cfg, nil
}

func (d *DirStore) dir(s Space, folder string) (string, error) {
	cfg, err := d.space(s)
	if err != nil {
		return "", err
	}
	if folder == "" {
		return cfg.BasePath, nil
	}
	return filepath.Join(cfg.BasePath, filepath.FromSlash(folder)), nil
}

// Put writes data under folder/name using an exclusive create. Two uploads
// racing on the same name both succeed, under distinct names: on collision
// the name gets a timestamp suffix, then a counter suffix, retried bounded.
func (d *DirStore) Put(ctx context.Context, space Space, folder, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir, err := d.dir(space, folder)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrStorageUnavailable, dir, err)
	}

	try := name
	for attempt := 0; attempt < collisionAttempts; attempt++ {
		f, err := os.OpenFile(filepath.Join(dir, try), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				try = suffixedName(name, attempt)
				continue
			}
			return "", fmt.Errorf("%w: create %s: %v", ErrStorageUnavailable, try, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(filepath.Join(dir, try))
			return "", fmt.Errorf("%w: write %s: %v", ErrStorageUnavailable, try, err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(filepath.Join(dir, try))
			return "", fmt.Errorf("%w: close %s: %v", ErrStorageUnavailable, try, err)
		}
		return try, nil
	}
	return "", fmt.Errorf("%w: no free name for %s after %d attempts", ErrStorageUnavailable, name, collisionAttempts)
}

// Get returns the object bytes, or ErrNotFound.
func (d *DirStore) Get(ctx context.Context, space Space, folder, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := d.dir(space, folder)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Exists reports whether folder/name holds an object.
func (d *DirStore) Exists(ctx context.Context, space Space, folder, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	dir, err := d.dir(space, folder)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filepath.Join(dir, name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Delete removes folder/name. Absence is not an error.
func (d *DirStore) Delete(ctx context.Context, space Space, folder, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	dir, err := d.dir(space, folder)
	if err != nil {
		return false, err
	}
	if err := os.Remove(filepath.Join(dir, name)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns one naturally-sorted snapshot of the file names in folder.
func (d *DirStore) List(ctx context.Context, space Space, folder string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := d.dir(space, folder)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	SortNatural(names)
	return names, nil
}

// ListFolders returns the folder names directly under the space root.
func (d *DirStore) ListFolders(ctx context.Context, space Space) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := d.space(space)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(cfg.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	SortNatural(names)
	return names, nil
}

// URL returns the public URL for folder/name in space.
func (d *DirStore) URL(space Space, folder, name string) string {
	cfg, ok := d.spaces[space]
	if !ok {
		return ""
	}
	return joinURL(cfg.BaseURL, folder, name)
}

// suffixedName produces the attempt-th fallback name for base: first a
// timestamp suffix, then timestamp-counter.
func suffixedName(base string, attempt int) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	ts := time.Now().Unix()
	if attempt == 0 {
		return fmt.Sprintf("%s-%d%s", stem, ts, ext)
	}
	return fmt.Sprintf("%s-%d-%d%s", stem, ts, attempt, ext)
}
