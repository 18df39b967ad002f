package objectstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *DirStore {
	t.Helper()
	root := t.TempDir()
	return NewDirStore(
		SpaceConfig{BasePath: filepath.Join(root, "docs"), BaseURL: "assets/docs"},
		SpaceConfig{BasePath: filepath.Join(root, "previews"), BaseURL: "assets/previews"},
	)
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	name, err := s.Put(ctx, Documents, "manuals", "x.pdf", []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if name != "x.pdf" {
		t.Fatalf("stored name: got %q", name)
	}
	data, err := s.Get(ctx, Documents, "manuals", "x.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Fatalf("got %q", data)
	}
	ok, err := s.Exists(ctx, Documents, "manuals", "x.pdf")
	if err != nil || !ok {
		t.Fatalf("exists: %v %v", ok, err)
	}
}

func TestPutNeverOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Put(ctx, Documents, "manuals", "x.pdf", []byte("one"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Put(ctx, Documents, "manuals", "x.pdf", []byte("two"))
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("collision resolved to the same name %q", first)
	}
	if !strings.HasPrefix(second, "x-") || !strings.HasSuffix(second, ".pdf") {
		t.Fatalf("unexpected collision name %q", second)
	}

	one, _ := s.Get(ctx, Documents, "manuals", first)
	two, _ := s.Get(ctx, Documents, "manuals", second)
	if string(one) != "one" || string(two) != "two" {
		t.Fatalf("payloads: %q %q", one, two)
	}
}

func TestDeleteBestEffort(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, Previews, "manuals", "x.jpg", []byte("img")); err != nil {
		t.Fatal(err)
	}
	removed, err := s.Delete(ctx, Previews, "manuals", "x.jpg")
	if err != nil || !removed {
		t.Fatalf("delete: %v %v", removed, err)
	}
	removed, err = s.Delete(ctx, Previews, "manuals", "x.jpg")
	if err != nil {
		t.Fatalf("delete missing should not error: %v", err)
	}
	if removed {
		t.Fatal("second delete should report nothing removed")
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), Documents, "manuals", "missing.pdf")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListAndFolders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, n := range []string{"doc10.pdf", "doc2.pdf", "Alpha.pdf"} {
		if _, err := s.Put(ctx, Documents, "manuals", n, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Put(ctx, Documents, "certs", "c.pdf", []byte("x")); err != nil {
		t.Fatal(err)
	}

	files, err := s.List(ctx, Documents, "manuals")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Alpha.pdf", "doc2.pdf", "doc10.pdf"}
	if len(files) != len(want) {
		t.Fatalf("got %v", files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("natural order: got %v, want %v", files, want)
		}
	}

	folders, err := s.ListFolders(ctx, Documents)
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 2 || folders[0] != "certs" || folders[1] != "manuals" {
		t.Fatalf("folders: got %v", folders)
	}

	empty, err := s.List(ctx, Documents, "nope")
	if err != nil || empty != nil {
		t.Fatalf("missing folder should list empty: %v %v", empty, err)
	}
}

func TestURL(t *testing.T) {
	s := newTestStore(t)
	if got := s.URL(Documents, "manuals", "x.pdf"); got != "assets/docs/manuals/x.pdf" {
		t.Fatalf("got %q", got)
	}
	if got := s.URL(Previews, "", "x.jpg"); got != "assets/previews/x.jpg" {
		t.Fatalf("root folder url: got %q", got)
	}
}
