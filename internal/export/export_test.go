package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/doclink/doclink/internal/db"
	"github.com/doclink/doclink/internal/ledger"
	"github.com/doclink/doclink/internal/registry"
)

func TestSnapshotRoundTrip(t *testing.T) {
	conn, err := db.OpenMemory()
	require.NoError(t, err)
	defer conn.Close()
	ctx := context.Background()

	reg := registry.New(conn)
	_, err = reg.Insert(ctx, registry.Row{
		ResourceID: 42, Article: "SKU-100", Folder: "manuals", DocName: "a.pdf",
		DocURL: "https://cdn.example/docs/manuals/a.pdf",
	})
	require.NoError(t, err)

	led := ledger.New(ledger.NewSQLFieldStore(conn), "certificates", "manuals")
	require.NoError(t, led.Append(ctx, 42, ledger.Entry{Title: "A", File: "manuals/a.pdf"}))

	var buf bytes.Buffer
	id, err := Snapshot(ctx, conn, "certificates", &buf)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	zr, err := zstd.NewReader(&buf)
	require.NoError(t, err)
	defer zr.Close()

	var lines []map[string]json.RawMessage
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		var m map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	require.NoError(t, sc.Err())
	require.Len(t, lines, 3)

	kind := func(i int) string {
		var k string
		require.NoError(t, json.Unmarshal(lines[i]["kind"], &k))
		return k
	}
	require.Equal(t, "snapshot", kind(0))
	require.Equal(t, "registry", kind(1))
	require.Equal(t, "ledger", kind(2))

	var row registry.Row
	require.NoError(t, json.Unmarshal(lines[1]["row"], &row))
	require.Equal(t, "a.pdf", row.DocName)

	var entries []ledger.Entry
	require.NoError(t, json.Unmarshal(lines[2]["value"], &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "manuals/a.pdf", entries[0].File)
}

func TestSnapshotEmptyDatabase(t *testing.T) {
	conn, err := db.OpenMemory()
	require.NoError(t, err)
	defer conn.Close()

	var buf bytes.Buffer
	_, err = Snapshot(context.Background(), conn, "certificates", &buf)
	require.NoError(t, err)

	zr, err := zstd.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer zr.Close()

	sc := bufio.NewScanner(zr)
	require.True(t, sc.Scan()) // header only
	require.False(t, sc.Scan())
	require.NoError(t, sc.Err())
}
