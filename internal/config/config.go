// Package config resolves doclink settings from a flat key/value map or a
// YAML file. Validation happens once, at construction; operations never
// re-check paths ad hoc.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigurationMissing marks a refused-to-start configuration error.
var ErrConfigurationMissing = errors.New("configuration missing")

// Recognized option keys.
const (
	KeyDocsBasePath     = "docs_base_path"
	KeyDocsBaseURL      = "docs_base_url"
	KeyPreviewsBasePath = "previews_base_path"
	KeyPreviewsBaseURL  = "previews_base_url"
	KeyDefaultFolder    = "default_folder"
	KeyLedgerField      = "ledger_field"
	KeyRegistryEnabled  = "registry_enabled"
	KeyDBPath           = "db_path"
	KeyStorageBackend   = "storage_backend"
	KeyS3Bucket         = "s3_bucket"
	KeyS3Prefix         = "s3_prefix"
	KeyS3Region         = "s3_region"
	KeyS3Endpoint       = "s3_endpoint"
	KeyS3AccessKey      = "s3_access_key"
	KeyS3SecretKey      = "s3_secret_key"
	KeyS3PathStyle      = "s3_path_style"
	KeyPreviewTimeout   = "preview_timeout_seconds"
)

const (
	defaultFolder         = "manuals"
	defaultLedgerField    = "certificates"
	defaultPreviewTimeout = 20 * time.Second
)

// Options is the flat key -> value map the core consumes.
type Options map[string]string

// Config holds validated settings.
type Config struct {
	DocsBasePath     string
	DocsBaseURL      string
	PreviewsBasePath string
	PreviewsBaseURL  string
	DefaultFolder    string
	LedgerField      string
	RegistryEnabled  bool
	DBPath           string

	StorageBackend string // "dir" (default) or "s3"
	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3PathStyle    bool

	PreviewTimeout time.Duration
}

// FromMap validates opts into a Config. The four base path/url values are
// required; a blank one is a refusal, not a silent default.
func FromMap(opts Options) (*Config, error) {
	get := func(k string) string { return strings.TrimSpace(opts[k]) }

	c := &Config{
		DocsBasePath:     strings.TrimRight(get(KeyDocsBasePath), "/\\"),
		DocsBaseURL:      strings.Trim(get(KeyDocsBaseURL), "/"),
		PreviewsBasePath: strings.TrimRight(get(KeyPreviewsBasePath), "/\\"),
		PreviewsBaseURL:  strings.Trim(get(KeyPreviewsBaseURL), "/"),
		DefaultFolder:    get(KeyDefaultFolder),
		LedgerField:      get(KeyLedgerField),
		DBPath:           get(KeyDBPath),
		StorageBackend:   get(KeyStorageBackend),
		S3Bucket:         get(KeyS3Bucket),
		S3Prefix:         get(KeyS3Prefix),
		S3Region:         get(KeyS3Region),
		S3Endpoint:       get(KeyS3Endpoint),
		S3AccessKey:      get(KeyS3AccessKey),
		S3SecretKey:      get(KeyS3SecretKey),
		RegistryEnabled:  true,
		PreviewTimeout:   defaultPreviewTimeout,
	}

	var missing []string
	for _, k := range []string{KeyDocsBasePath, KeyDocsBaseURL, KeyPreviewsBasePath, KeyPreviewsBaseURL} {
		if get(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", ErrConfigurationMissing, strings.Join(missing, ", "))
	}

	if c.DefaultFolder == "" {
		c.DefaultFolder = defaultFolder
	}
	if c.LedgerField == "" {
		c.LedgerField = defaultLedgerField
	}
	if v := get(KeyRegistryEnabled); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", KeyRegistryEnabled, v)
		}
		c.RegistryEnabled = b
	}
	if v := get(KeyS3PathStyle); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", KeyS3PathStyle, v)
		}
		c.S3PathStyle = b
	}
	if v := get(KeyPreviewTimeout); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid %s: %q", KeyPreviewTimeout, v)
		}
		c.PreviewTimeout = time.Duration(secs) * time.Second
	}

	switch c.StorageBackend {
	case "", "dir":
		c.StorageBackend = "dir"
	case "s3":
		if c.S3Bucket == "" {
			return nil, fmt.Errorf("%w: %s", ErrConfigurationMissing, KeyS3Bucket)
		}
	default:
		return nil, fmt.Errorf("unknown %s: %q", KeyStorageBackend, c.StorageBackend)
	}

	if c.DBPath == "" {
		c.DBPath = filepath.Join(dataHome(), "doclink", "doclink.db")
	}
	return c, nil
}

// Load reads a YAML options file and validates it. DOCLINK_DB_PATH
// overrides db_path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var opts Options
	if err := yaml.Unmarshal(b, &opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if opts == nil {
		opts = Options{}
	}
	if v := os.Getenv("DOCLINK_DB_PATH"); v != "" {
		opts[KeyDBPath] = v
	}
	return FromMap(opts)
}

// DefaultPath returns the config file location, honoring DOCLINK_CONFIG.
func DefaultPath() string {
	if v := os.Getenv("DOCLINK_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(configHome(), "doclink", "config.yaml")
}

func configHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

func dataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share")
}
