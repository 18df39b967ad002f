package test_utils

import (
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/doclink/doclink/internal/catalog"
	"github.com/doclink/doclink/internal/config"
	"github.com/doclink/doclink/internal/db"
	"github.com/doclink/doclink/internal/ledger"
	"github.com/doclink/doclink/internal/objectstore"
	"github.com/doclink/doclink/internal/preview"
	"github.com/doclink/doclink/internal/registry"
	"github.com/doclink/doclink/internal/syncer"
	_ "github.com/mattn/go-sqlite3"
)

// TestSite wires a complete doclink stack over a temp directory and a
// file-backed sqlite database, the way a real deployment runs it.
type TestSite struct {
	Dir    string
	DB     *sql.DB
	Config *config.Config
	Store  objectstore.Store
	Ledger *ledger.Ledger
	Syncer *syncer.Syncer
	t      *testing.T
}

// NewSite creates an isolated site with a seeded catalog.
func NewSite(t *testing.T, name string) *TestSite {
	dir, err := os.MkdirTemp("", "doclink-integration-"+name+"-")
	if err != nil {
		t.Fatalf("Failed to create temp dir for site %s: %v", name, err)
	}

	conn, err := db.Open(dir + "/doclink.db")
	if err != nil {
		t.Fatalf("Failed to open db for site %s: %v", name, err)
	}

	seed := []string{
		`INSERT INTO vendors (id, name) VALUES (1, 'Acme')`,
		`INSERT INTO products (id, pagetitle, article, vendor) VALUES
			(1, 'Pump P1',  'SKU-1', 1),
			(2, 'Pump P2',  'SKU-2', 1),
			(3, 'Valve V1', 'SKU-3', 1)`,
	}
	for _, q := range seed {
		if _, err := conn.Exec(q); err != nil {
			t.Fatalf("Failed to seed catalog for site %s: %v", name, err)
		}
	}

	cfg := &config.Config{
		DocsBasePath:     dir + "/docs",
		DocsBaseURL:      "https://cdn.example/docs",
		PreviewsBasePath: dir + "/previews",
		PreviewsBaseURL:  "https://cdn.example/previews",
		DefaultFolder:    "manuals",
		LedgerField:      "certificates",
		RegistryEnabled:  true,
		PreviewTimeout:   2 * time.Second,
	}
	store := objectstore.NewDirStore(
		objectstore.SpaceConfig{BasePath: cfg.DocsBasePath, BaseURL: cfg.DocsBaseURL},
		objectstore.SpaceConfig{BasePath: cfg.PreviewsBasePath, BaseURL: cfg.PreviewsBaseURL},
	)
	led := ledger.New(ledger.NewSQLFieldStore(conn), cfg.LedgerField, cfg.DefaultFolder,
		cfg.DocsBaseURL, cfg.PreviewsBaseURL)

	return &TestSite{
		Dir:    dir,
		DB:     conn,
		Config: cfg,
		Store:  store,
		Ledger: led,
		Syncer: syncer.New(cfg, store, preview.New(cfg.PreviewTimeout),
			registry.New(conn), led, catalog.NewSQLResolver(conn)),
		t: t,
	}
}

// Cleanup closes the database and removes the site directory.
func (s *TestSite) Cleanup() {
	s.DB.Close()
	os.RemoveAll(s.Dir)
}
