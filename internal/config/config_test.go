package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validOptions() Options {
	return Options{
		KeyDocsBasePath:     "/srv/docs",
		KeyDocsBaseURL:      "assets/docs",
		KeyPreviewsBasePath: "/srv/previews",
		KeyPreviewsBaseURL:  "assets/previews",
	}
}

func TestFromMapDefaults(t *testing.T) {
	c, err := FromMap(validOptions())
	if err != nil {
		t.Fatal(err)
	}
	if c.DefaultFolder != "manuals" {
		t.Errorf("default folder: got %q", c.DefaultFolder)
	}
	if c.LedgerField != "certificates" {
		t.Errorf("ledger field: got %q", c.LedgerField)
	}
	if !c.RegistryEnabled {
		t.Error("registry should default to enabled")
	}
	if c.StorageBackend != "dir" {
		t.Errorf("backend: got %q", c.StorageBackend)
	}
	if c.PreviewTimeout != 20*time.Second {
		t.Errorf("preview timeout: got %v", c.PreviewTimeout)
	}
	if c.DBPath == "" {
		t.Error("db path should get a default")
	}
}

func TestFromMapMissingPaths(t *testing.T) {
	opts := validOptions()
	delete(opts, KeyPreviewsBaseURL)
	opts[KeyDocsBasePath] = "   "

	_, err := FromMap(opts)
	if !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("want ErrConfigurationMissing, got %v", err)
	}
}

func TestFromMapTrimsEdges(t *testing.T) {
	opts := validOptions()
	opts[KeyDocsBasePath] = "/srv/docs/"
	opts[KeyDocsBaseURL] = "/assets/docs/"
	c, err := FromMap(opts)
	if err != nil {
		t.Fatal(err)
	}
	if c.DocsBasePath != "/srv/docs" || c.DocsBaseURL != "assets/docs" {
		t.Errorf("got %q %q", c.DocsBasePath, c.DocsBaseURL)
	}
}

func TestFromMapS3RequiresBucket(t *testing.T) {
	opts := validOptions()
	opts[KeyStorageBackend] = "s3"
	if _, err := FromMap(opts); !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("want ErrConfigurationMissing for missing bucket, got %v", err)
	}
	opts[KeyS3Bucket] = "docs"
	c, err := FromMap(opts)
	if err != nil {
		t.Fatal(err)
	}
	if c.StorageBackend != "s3" {
		t.Errorf("backend: got %q", c.StorageBackend)
	}
}

func TestFromMapBadValues(t *testing.T) {
	for key, val := range map[string]string{
		KeyRegistryEnabled: "maybe",
		KeyPreviewTimeout:  "-3",
		KeyStorageBackend:  "ftp",
	} {
		opts := validOptions()
		opts[key] = val
		if _, err := FromMap(opts); err == nil {
			t.Errorf("expected error for %s=%q", key, val)
		}
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "docs_base_path: /srv/docs\n" +
		"docs_base_url: assets/docs\n" +
		"previews_base_path: /srv/previews\n" +
		"previews_base_url: assets/previews\n" +
		"default_folder: certs\n" +
		"registry_enabled: \"false\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.DefaultFolder != "certs" {
		t.Errorf("default folder: got %q", c.DefaultFolder)
	}
	if c.RegistryEnabled {
		t.Error("registry should be disabled")
	}
}
