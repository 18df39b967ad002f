// Package ledger reads and writes the embedded per-product attachment list.
// The list lives in a single field with no native index; identity and
// equality of entries are defined solely by the normalized file string, and
// reverse lookup goes through a candidate-filter/verify scan.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/doclink/doclink/internal/identity"
)

var (
	// ErrLedgerWriteFailed marks a failed field write. The field value is
	// replaced whole, so there is no partially-written list to clean up.
	ErrLedgerWriteFailed = errors.New("ledger write failed")
	// ErrConcurrentModification surfaces after bounded retries lose to
	// concurrent writers of the same product's field.
	ErrConcurrentModification = errors.New("ledger concurrently modified")
)

const writeAttempts = 3

// Ledger operates on one configured field key across all products.
type Ledger struct {
	fields        FieldStore
	key           string
	defaultFolder string
	baseURLs      []string
}

// New returns a Ledger over fields, bound to the field key that stores the
// attachment list. baseURLs are the public URL roots legacy absolute
// entries may carry.
func New(fields FieldStore, key, defaultFolder string, baseURLs ...string) *Ledger {
	return &Ledger{fields: fields, key: key, defaultFolder: defaultFolder, baseURLs: baseURLs}
}

// FileKey returns the equality key of a stored file reference.
func (l *Ledger) FileKey(raw string) string {
	return identity.NormalizeWithBases(raw, l.defaultFolder, l.baseURLs...).String()
}

// Read returns the product's entries. Absent or malformed content reads as
// empty.
func (l *Ledger) Read(ctx context.Context, resourceID int64) ([]Entry, error) {
	raw, err := l.fields.Get(ctx, resourceID, l.key)
	if err != nil {
		return nil, fmt.Errorf("read ledger %d: %w", resourceID, err)
	}
	return decodeEntries(raw), nil
}

// Append upserts entry by identity: when an existing entry has the same
// normalized file, its title and image are replaced in place; otherwise the
// entry is appended. The full list is written back conditioned on the value
// read, with bounded retries.
func (l *Ledger) Append(ctx context.Context, resourceID int64, entry Entry) error {
	target := l.FileKey(entry.File)
	if target == "" {
		return fmt.Errorf("entry has no file reference")
	}

	for attempt := 0; attempt < writeAttempts; attempt++ {
		raw, err := l.fields.Get(ctx, resourceID, l.key)
		if err != nil {
			return fmt.Errorf("read ledger %d: %w", resourceID, err)
		}
		entries := decodeEntries(raw)

		replaced := false
		for i := range entries {
			if l.FileKey(entries[i].File) == target {
				entries[i].Title = entry.Title
				entries[i].Image = entry.Image
				replaced = true
			}
		}
		if !replaced {
			entries = append(entries, entry)
		}

		next, err := encodeEntries(entries)
		if err != nil {
			return fmt.Errorf("%w: encode: %v", ErrLedgerWriteFailed, err)
		}
		ok, err := l.fields.SetIfUnchanged(ctx, resourceID, l.key, raw, next)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLedgerWriteFailed, err)
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: resource %d", ErrConcurrentModification, resourceID)
}

// RemoveByIdentity drops every entry matching id and reports how many were
// removed. The field is written back only when something was removed.
func (l *Ledger) RemoveByIdentity(ctx context.Context, resourceID int64, id identity.FileIdentity) (int, error) {
	target := id.String()
	if target == "" {
		return 0, nil
	}

	for attempt := 0; attempt < writeAttempts; attempt++ {
		raw, err := l.fields.Get(ctx, resourceID, l.key)
		if err != nil {
			return 0, fmt.Errorf("read ledger %d: %w", resourceID, err)
		}
		entries := decodeEntries(raw)

		kept := entries[:0]
		removed := 0
		for _, e := range entries {
			if l.FileKey(e.File) == target {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if removed == 0 {
			return 0, nil
		}

		next, err := encodeEntries(kept)
		if err != nil {
			return 0, fmt.Errorf("%w: encode: %v", ErrLedgerWriteFailed, err)
		}
		ok, err := l.fields.SetIfUnchanged(ctx, resourceID, l.key, raw, next)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrLedgerWriteFailed, err)
		}
		if ok {
			return removed, nil
		}
	}
	return 0, fmt.Errorf("%w: resource %d", ErrConcurrentModification, resourceID)
}

// FindUsages returns the resource ids whose ledger holds id, in two phases:
// a coarse containment scan on the bare filename narrows candidates, then
// each candidate's entries are parsed and matched exactly against the
// canonical string. within, when non-empty, restricts the result set.
func (l *Ledger) FindUsages(ctx context.Context, id identity.FileIdentity, within ...int64) ([]int64, error) {
	target := id.String()
	if target == "" || id.Name == "" {
		return nil, nil
	}

	candidates, err := l.fields.ScanContaining(ctx, l.key, id.Name)
	if err != nil {
		return nil, fmt.Errorf("scan ledger fields: %w", err)
	}

	var allow map[int64]bool
	if len(within) > 0 {
		allow = make(map[int64]bool, len(within))
		for _, rid := range within {
			allow[rid] = true
		}
	}

	var hits []int64
	for _, c := range candidates {
		if allow != nil && !allow[c.ResourceID] {
			continue
		}
		for _, e := range decodeEntries(c.Value) {
			if l.FileKey(e.File) == target {
				hits = append(hits, c.ResourceID)
				break
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i] < hits[j] })
	return hits, nil
}
