package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doclink/doclink/internal/db"
	"github.com/doclink/doclink/internal/identity"
)

const fieldKey = "certificates"

func testLedger(t *testing.T) (*Ledger, *SQLFieldStore) {
	t.Helper()
	conn, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	fields := NewSQLFieldStore(conn)
	return New(fields, fieldKey, "manuals", "assets/docs", "assets/previews"), fields
}

func TestReadAbsentAndMalformed(t *testing.T) {
	l, fields := testLedger(t)
	ctx := context.Background()

	entries, err := l.Read(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, entries)

	ok, err := fields.SetIfUnchanged(ctx, 2, fieldKey, "", "{not json")
	require.NoError(t, err)
	require.True(t, ok)
	entries, err = l.Read(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, entries, "malformed content reads as empty")
}

func TestAppendUpsertsByIdentity(t *testing.T) {
	l, _ := testLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, 42, Entry{Title: "Manual v1", File: "manuals/x.pdf", Image: "manuals/x.jpg"}))
	require.NoError(t, l.Append(ctx, 42, Entry{Title: "Other", File: "manuals/y.pdf"}))

	// Same identity in a different accepted form: replace, don't append.
	require.NoError(t, l.Append(ctx, 42, Entry{Title: "Manual v2", File: "https://site.example/assets/docs/manuals/x.pdf", Image: "manuals/x2.jpg"}))

	entries, err := l.Read(ctx, 42)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "Manual v2", entries[0].Title)
	require.Equal(t, "manuals/x2.jpg", entries[0].Image)
	require.Equal(t, "manuals/x.pdf", entries[0].File, "upsert keeps the stored file reference")
	require.Equal(t, "Other", entries[1].Title)
}

func TestRemoveByIdentityIdempotent(t *testing.T) {
	l, _ := testLedger(t)
	ctx := context.Background()
	id := identity.Normalize("manuals/x.pdf", "manuals")

	require.NoError(t, l.Append(ctx, 7, Entry{Title: "a", File: "manuals/x.pdf"}))
	require.NoError(t, l.Append(ctx, 7, Entry{Title: "b", File: "manuals/y.pdf"}))

	removed, err := l.RemoveByIdentity(ctx, 7, id)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	removed, err = l.RemoveByIdentity(ctx, 7, id)
	require.NoError(t, err)
	require.Zero(t, removed)

	entries, err := l.Read(ctx, 7)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "manuals/y.pdf", entries[0].File)
}

func TestRemoveCountsMalformedDuplicates(t *testing.T) {
	l, fields := testLedger(t)
	ctx := context.Background()

	raw := `[{"title":"a","file":"manuals/x.pdf"},{"title":"dup","file":"x.pdf"},{"title":"keep","file":"manuals/y.pdf"}]`
	ok, err := fields.SetIfUnchanged(ctx, 9, fieldKey, "", raw)
	require.NoError(t, err)
	require.True(t, ok)

	// "x.pdf" normalizes into the default folder, so both entries match.
	removed, err := l.RemoveByIdentity(ctx, 9, identity.Normalize("manuals/x.pdf", "manuals"))
	require.NoError(t, err)
	require.Equal(t, 2, removed)
}

func TestFindUsagesPrecision(t *testing.T) {
	l, _ := testLedger(t)
	ctx := context.Background()

	exact := []int64{3, 17, 55}
	super := []int64{20, 21}
	for rid := int64(1); rid <= 100; rid++ {
		switch {
		case contains(exact, rid):
			require.NoError(t, l.Append(ctx, rid, Entry{File: "manuals/x.pdf"}))
		case contains(super, rid):
			require.NoError(t, l.Append(ctx, rid, Entry{File: "manuals/prefix-x.pdf"}))
		default:
			require.NoError(t, l.Append(ctx, rid, Entry{File: fmt.Sprintf("manuals/other-%d.pdf", rid)}))
		}
	}

	hits, err := l.FindUsages(ctx, identity.Normalize("manuals/x.pdf", "manuals"))
	require.NoError(t, err)
	require.Equal(t, exact, hits, "superstring candidates must be filtered out by verification")
}

func TestFindUsagesWithin(t *testing.T) {
	l, _ := testLedger(t)
	ctx := context.Background()

	for _, rid := range []int64{1, 2, 3} {
		require.NoError(t, l.Append(ctx, rid, Entry{File: "manuals/x.pdf"}))
	}
	hits, err := l.FindUsages(ctx, identity.Normalize("manuals/x.pdf", "manuals"), 2, 3)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3}, hits)
}

func TestAppendSurfacesConcurrentModification(t *testing.T) {
	l := New(&contendedFields{}, fieldKey, "manuals")
	err := l.Append(context.Background(), 1, Entry{File: "manuals/x.pdf"})
	require.ErrorIs(t, err, ErrConcurrentModification)
}

// contendedFields simulates a writer that always loses the conditioned
// write.
type contendedFields struct{}

func (c *contendedFields) Get(context.Context, int64, string) (string, error) { return "", nil }
func (c *contendedFields) SetIfUnchanged(context.Context, int64, string, string, string) (bool, error) {
	return false, nil
}
func (c *contendedFields) ScanContaining(context.Context, string, string) ([]FieldRow, error) {
	return nil, nil
}

func contains(xs []int64, x int64) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
