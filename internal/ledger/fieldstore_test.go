package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doclink/doclink/internal/db"
)

func TestSetIfUnchanged(t *testing.T) {
	conn, err := db.OpenMemory()
	require.NoError(t, err)
	defer conn.Close()
	fields := NewSQLFieldStore(conn)
	ctx := context.Background()

	// Create when absent.
	ok, err := fields.SetIfUnchanged(ctx, 1, "k", "", "v1")
	require.NoError(t, err)
	require.True(t, ok)

	// Stale snapshot loses.
	ok, err = fields.SetIfUnchanged(ctx, 1, "k", "", "v2")
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = fields.SetIfUnchanged(ctx, 1, "k", "stale", "v2")
	require.NoError(t, err)
	require.False(t, ok)

	// Fresh snapshot wins.
	ok, err = fields.SetIfUnchanged(ctx, 1, "k", "v1", "v2")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := fields.Get(ctx, 1, "k")
	require.NoError(t, err)
	require.Equal(t, "v2", got)
}

func TestScanContainingEscapesLike(t *testing.T) {
	conn, err := db.OpenMemory()
	require.NoError(t, err)
	defer conn.Close()
	fields := NewSQLFieldStore(conn)
	ctx := context.Background()

	ok, err := fields.SetIfUnchanged(ctx, 1, "k", "", `[{"file":"manuals/100%_spec.pdf"}]`)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = fields.SetIfUnchanged(ctx, 2, "k", "", `[{"file":"manuals/100x_spec.pdf"}]`)
	require.NoError(t, err)
	require.True(t, ok)

	rows, err := fields.ScanContaining(ctx, "k", "100%_spec.pdf")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(1), rows[0].ResourceID)
}
