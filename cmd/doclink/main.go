// doclink: CLI for the document attachment sync engine.
// Commands: ping, attach, mass-upload, search, usage, detach, folders,
// files, vendors, export.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"github.com/doclink/doclink/internal/catalog"
	"github.com/doclink/doclink/internal/config"
	"github.com/doclink/doclink/internal/db"
	"github.com/doclink/doclink/internal/export"
	"github.com/doclink/doclink/internal/ledger"
	"github.com/doclink/doclink/internal/objectstore"
	"github.com/doclink/doclink/internal/preview"
	"github.com/doclink/doclink/internal/registry"
	"github.com/doclink/doclink/internal/syncer"
)

func fatal(prefix string, err error) {
	fmt.Fprintf(os.Stderr, "doclink %s: %v\n", prefix, err)
	os.Exit(1)
}

func loadConfig() *config.Config {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fatal("config", err)
	}
	return cfg
}

func openDB(cfg *config.Config) *sql.DB {
	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		fatal("db", err)
	}
	return conn
}

func buildStore(ctx context.Context, cfg *config.Config) objectstore.Store {
	docs := objectstore.SpaceConfig{BasePath: cfg.DocsBasePath, BaseURL: cfg.DocsBaseURL}
	prevs := objectstore.SpaceConfig{BasePath: cfg.PreviewsBasePath, BaseURL: cfg.PreviewsBaseURL}
	if cfg.StorageBackend != "s3" {
		return objectstore.NewDirStore(docs, prevs)
	}
	if cfg.S3Prefix != "" {
		docs.BasePath = path.Join(cfg.S3Prefix, docs.BasePath)
		prevs.BasePath = path.Join(cfg.S3Prefix, prevs.BasePath)
	}
	st, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		PathStyle: cfg.S3PathStyle,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	}, docs, prevs)
	if err != nil {
		fatal("storage", err)
	}
	return st
}

func buildSyncer(ctx context.Context, cfg *config.Config, conn *sql.DB) *syncer.Syncer {
	led := ledger.New(ledger.NewSQLFieldStore(conn), cfg.LedgerField, cfg.DefaultFolder,
		cfg.DocsBaseURL, cfg.PreviewsBaseURL)
	return syncer.New(cfg,
		buildStore(ctx, cfg),
		preview.New(cfg.PreviewTimeout),
		registry.New(conn),
		led,
		catalog.NewSQLResolver(conn))
}

// renderTable prints a bordered table on a terminal and tab-separated
// values when piped.
func renderTable(head table.Row, rows []table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(head)
	t.AppendRows(rows)
	if term.IsTerminal(int(os.Stdout.Fd())) {
		t.SetStyle(table.StyleLight)
		t.Render()
	} else {
		t.RenderTSV()
	}
}

func printDiags(diags []string) {
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "  note: %s\n", d)
	}
}

func cmdPing() {
	cfg := loadConfig()
	conn := openDB(cfg)
	defer conn.Close()
	fmt.Printf("doclink\n")
	fmt.Printf("  db:       %s\n", cfg.DBPath)
	fmt.Printf("  docs:     %s\n", cfg.DocsBasePath)
	fmt.Printf("  previews: %s\n", cfg.PreviewsBasePath)
	fmt.Printf("  backend:  %s\n", cfg.StorageBackend)
	fmt.Printf("  registry: %t\n", cfg.RegistryEnabled)
}

func cmdAttach(args []string) {
	var filePath, article, folder, title string
	var vendorID, resourceID int64

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--file", "-f":
			filePath, i = nextArg(args, i, "attach", "--file")
		case "--article", "-a":
			article, i = nextArg(args, i, "attach", "--article")
		case "--vendor":
			var v string
			v, i = nextArg(args, i, "attach", "--vendor")
			vendorID = parseID("attach", "--vendor", v)
		case "--resource", "-r":
			var v string
			v, i = nextArg(args, i, "attach", "--resource")
			resourceID = parseID("attach", "--resource", v)
		case "--folder":
			folder, i = nextArg(args, i, "attach", "--folder")
		case "--title":
			title, i = nextArg(args, i, "attach", "--title")
		default:
			fmt.Fprintf(os.Stderr, "doclink attach: unknown flag %q\n", args[i])
			os.Exit(1)
		}
	}
	if filePath == "" {
		fmt.Fprintf(os.Stderr, "doclink attach: usage: doclink attach --file <path> [--article A | --resource N] [--vendor N] [--folder F] [--title T]\n")
		os.Exit(1)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		fatal("attach", err)
	}

	ctx := context.Background()
	cfg := loadConfig()
	conn := openDB(cfg)
	defer conn.Close()

	res, err := buildSyncer(ctx, cfg, conn).Attach(ctx, syncer.AttachRequest{
		Data:        data,
		DisplayName: filepath.Base(filePath),
		Folder:      folder,
		Title:       title,
		ResourceID:  resourceID,
		Article:     article,
		VendorID:    vendorID,
	})
	if err != nil {
		printDiags(res.Diagnostics)
		fatal("attach", err)
	}
	fmt.Printf("Stored %s\n", res.Identity)
	fmt.Printf("  doc:      %s\n", res.DocURL)
	if res.PreviewURL != "" {
		fmt.Printf("  preview:  %s\n", res.PreviewURL)
	}
	if res.ResourceID > 0 {
		fmt.Printf("  resource: %d (%s)\n", res.ResourceID, res.Article)
		fmt.Printf("  ledger:   %t\n", res.LedgerUpdated)
	}
	printDiags(res.Diagnostics)
}

func cmdMassUpload(args []string) {
	var folder string
	var paths []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--folder":
			folder, i = nextArg(args, i, "mass-upload", "--folder")
		default:
			paths = append(paths, args[i])
		}
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "doclink mass-upload: usage: doclink mass-upload [--folder F] <file>...\n")
		os.Exit(1)
	}

	var files []syncer.UploadFile
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			fatal("mass-upload", err)
		}
		files = append(files, syncer.UploadFile{Name: filepath.Base(p), Data: data})
	}

	ctx := context.Background()
	cfg := loadConfig()
	conn := openDB(cfg)
	defer conn.Close()

	outs, err := buildSyncer(ctx, cfg, conn).MassUpload(ctx, folder, files)
	if err != nil {
		fatal("mass-upload", err)
	}
	rows := make([]table.Row, 0, len(outs))
	for _, o := range outs {
		status := "ok"
		if o.Err != "" {
			status = o.Err
		}
		rows = append(rows, table.Row{o.Name, o.Identity.String(), status})
	}
	renderTable(table.Row{"file", "stored as", "status"}, rows)
}

func cmdSearch(args []string) {
	var req syncer.SearchRequest
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--article", "-a":
			req.Article, i = nextArg(args, i, "search", "--article")
		case "--vendor":
			var v string
			v, i = nextArg(args, i, "search", "--vendor")
			req.VendorID = parseID("search", "--vendor", v)
		case "--resource", "-r":
			var v string
			v, i = nextArg(args, i, "search", "--resource")
			req.ResourceID = parseID("search", "--resource", v)
		case "--file", "-f":
			req.File, i = nextArg(args, i, "search", "--file")
		default:
			fmt.Fprintf(os.Stderr, "doclink search: unknown flag %q\n", args[i])
			os.Exit(1)
		}
	}
	if req.Article == "" && req.File == "" && req.ResourceID <= 0 {
		fmt.Fprintf(os.Stderr, "doclink search: usage: doclink search (--article A [--vendor N] | --resource N | --file F)\n")
		os.Exit(1)
	}

	ctx := context.Background()
	cfg := loadConfig()
	conn := openDB(cfg)
	defer conn.Close()

	res, err := buildSyncer(ctx, cfg, conn).Search(ctx, req)
	if err != nil {
		fatal("search", err)
	}

	fmt.Println("Registry:")
	if len(res.FromRegistry) == 0 {
		fmt.Println("  (no rows)")
	} else {
		rows := make([]table.Row, 0, len(res.FromRegistry))
		for _, r := range res.FromRegistry {
			rows = append(rows, table.Row{r.ID, r.ResourceID, r.Article, r.VendorName,
				r.Folder + "/" + r.DocName, r.CreatedAt.Format("2006-01-02 15:04")})
		}
		renderTable(table.Row{"id", "resource", "article", "vendor", "file", "created"}, rows)
	}

	fmt.Println("Ledgers:")
	if len(res.FromLedger) == 0 {
		fmt.Println("  (no holders)")
	} else {
		var rows []table.Row
		for _, h := range res.FromLedger {
			for _, e := range h.Entries {
				rows = append(rows, table.Row{h.ResourceID, h.Article, h.PageTitle, e.Title, e.File})
			}
			if len(h.Entries) == 0 {
				rows = append(rows, table.Row{h.ResourceID, h.Article, h.PageTitle, "", "(empty)"})
			}
		}
		renderTable(table.Row{"resource", "article", "product", "title", "file"}, rows)
	}
}

func cmdUsage(args []string) {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "doclink usage: usage: doclink usage <file>\n")
		os.Exit(1)
	}
	ctx := context.Background()
	cfg := loadConfig()
	conn := openDB(cfg)
	defer conn.Close()

	res, err := buildSyncer(ctx, cfg, conn).Usage(ctx, args[0])
	if err != nil {
		fatal("usage", err)
	}
	fmt.Printf("File: %s\n", res.Identity)
	fmt.Printf("Registry rows: %d\n", len(res.Registry))
	rows := make([]table.Row, 0, len(res.Holders))
	for _, h := range res.Holders {
		rows = append(rows, table.Row{h.ResourceID, h.Article, h.VendorName, h.PageTitle, len(h.Entries)})
	}
	if len(rows) == 0 {
		fmt.Println("No ledger holders.")
		return
	}
	renderTable(table.Row{"resource", "article", "vendor", "product", "entries"}, rows)
}

func cmdDetach(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "doclink detach: usage: doclink detach <ledger|registry|row|all> ...\n")
		os.Exit(1)
	}
	ctx := context.Background()
	cfg := loadConfig()
	conn := openDB(cfg)
	defer conn.Close()
	s := buildSyncer(ctx, cfg, conn)

	switch args[0] {
	case "ledger":
		var file string
		var resourceID int64
		for i := 1; i < len(args); i++ {
			switch args[i] {
			case "--resource", "-r":
				var v string
				v, i = nextArg(args, i, "detach ledger", "--resource")
				resourceID = parseID("detach ledger", "--resource", v)
			case "--file", "-f":
				file, i = nextArg(args, i, "detach ledger", "--file")
			}
		}
		if resourceID <= 0 || file == "" {
			fmt.Fprintf(os.Stderr, "doclink detach ledger: usage: doclink detach ledger --resource N --file F\n")
			os.Exit(1)
		}
		n, err := s.DetachLedger(ctx, resourceID, file)
		if err != nil {
			fatal("detach ledger", err)
		}
		fmt.Printf("Removed %d entry(ies) from resource %d\n", n, resourceID)

	case "registry":
		var file string
		var deleteFiles bool
		for i := 1; i < len(args); i++ {
			switch args[i] {
			case "--file", "-f":
				file, i = nextArg(args, i, "detach registry", "--file")
			case "--delete-files":
				deleteFiles = true
			}
		}
		if file == "" {
			fmt.Fprintf(os.Stderr, "doclink detach registry: usage: doclink detach registry --file F [--delete-files]\n")
			os.Exit(1)
		}
		res, err := s.DetachRegistry(ctx, file, deleteFiles)
		if err != nil {
			fatal("detach registry", err)
		}
		fmt.Printf("Removed %d row(s) for %s\n", res.RowsRemoved, res.Identity)
		if deleteFiles {
			fmt.Printf("  doc deleted:     %t\n", res.DocDeleted)
			fmt.Printf("  preview deleted: %t\n", res.PreviewDeleted)
		}
		printDiags(res.Diagnostics)

	case "row":
		var id int64
		for i := 1; i < len(args); i++ {
			if args[i] == "--id" {
				var v string
				v, i = nextArg(args, i, "detach row", "--id")
				id = parseID("detach row", "--id", v)
			}
		}
		if id <= 0 {
			fmt.Fprintf(os.Stderr, "doclink detach row: usage: doclink detach row --id N\n")
			os.Exit(1)
		}
		removed, err := s.DetachRegistryRow(ctx, id)
		if err != nil {
			fatal("detach row", err)
		}
		if removed {
			fmt.Printf("Removed registry row %d\n", id)
		} else {
			fmt.Printf("Registry row %d not present\n", id)
		}

	case "all":
		var file string
		for i := 1; i < len(args); i++ {
			if args[i] == "--file" || args[i] == "-f" {
				file, i = nextArg(args, i, "detach all", "--file")
			}
		}
		if file == "" {
			fmt.Fprintf(os.Stderr, "doclink detach all: usage: doclink detach all --file F\n")
			os.Exit(1)
		}
		res, err := s.BulkDetachLedger(ctx, file)
		if err != nil {
			fatal("detach all", err)
		}
		fmt.Printf("Checked %d resource(s), removed from %d\n", res.Checked, len(res.RemovedFrom))
		for _, e := range res.Errors {
			fmt.Fprintf(os.Stderr, "  error: %s\n", e)
		}

	default:
		fmt.Fprintf(os.Stderr, "doclink detach: unknown scope %q\n", args[0])
		os.Exit(1)
	}
}

func cmdFolders() {
	ctx := context.Background()
	cfg := loadConfig()
	conn := openDB(cfg)
	defer conn.Close()

	folders, err := buildSyncer(ctx, cfg, conn).ListFolders(ctx)
	if err != nil {
		fatal("folders", err)
	}
	for _, f := range folders {
		fmt.Println(f)
	}
}

func cmdFiles(args []string) {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "doclink files: usage: doclink files <folder>\n")
		os.Exit(1)
	}
	ctx := context.Background()
	cfg := loadConfig()
	conn := openDB(cfg)
	defer conn.Close()

	files, err := buildSyncer(ctx, cfg, conn).ListFiles(ctx, args[0])
	if err != nil {
		fatal("files", err)
	}
	rows := make([]table.Row, 0, len(files))
	for _, f := range files {
		hasPreview := "no"
		if f.PreviewURL != "" {
			hasPreview = "yes"
		}
		rows = append(rows, table.Row{f.Name, hasPreview, f.DocURL})
	}
	renderTable(table.Row{"name", "preview", "url"}, rows)
}

func cmdVendors() {
	ctx := context.Background()
	cfg := loadConfig()
	conn := openDB(cfg)
	defer conn.Close()

	vendors, err := catalog.NewSQLResolver(conn).ListVendors(ctx)
	if err != nil {
		fatal("vendors", err)
	}
	rows := make([]table.Row, 0, len(vendors))
	for _, v := range vendors {
		rows = append(rows, table.Row{v.ID, v.Name})
	}
	renderTable(table.Row{"id", "name"}, rows)
}

func cmdExport(args []string) {
	out := fmt.Sprintf("doclink-snapshot-%s.jsonl.zst", timestamp())
	for i := 0; i < len(args); i++ {
		if args[i] == "--out" || args[i] == "-o" {
			out, i = nextArg(args, i, "export", "--out")
		}
	}
	ctx := context.Background()
	cfg := loadConfig()
	conn := openDB(cfg)
	defer conn.Close()

	f, err := os.Create(out)
	if err != nil {
		fatal("export", err)
	}
	id, err := export.Snapshot(ctx, conn, cfg.LedgerField, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fatal("export", err)
	}
	fmt.Printf("Snapshot %s written to %s\n", id, out)
}

func timestamp() string {
	return time.Now().Format("20060102-150405")
}

func nextArg(args []string, i int, cmd, flag string) (string, int) {
	if i+1 >= len(args) {
		fmt.Fprintf(os.Stderr, "doclink %s: %s requires a value\n", cmd, flag)
		os.Exit(1)
	}
	return args[i+1], i + 1
}

func parseID(cmd, flag, v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		fmt.Fprintf(os.Stderr, "doclink %s: %s wants a number, got %q\n", cmd, flag, v)
		os.Exit(1)
	}
	return n
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("doclink: document attachment sync engine")
		fmt.Println("Usage: doclink <ping|attach|mass-upload|search|usage|detach|folders|files|vendors|export>")
		os.Exit(0)
	}
	switch os.Args[1] {
	case "ping":
		cmdPing()
	case "attach":
		cmdAttach(os.Args[2:])
	case "mass-upload":
		cmdMassUpload(os.Args[2:])
	case "search":
		cmdSearch(os.Args[2:])
	case "usage":
		cmdUsage(os.Args[2:])
	case "detach":
		cmdDetach(os.Args[2:])
	case "folders":
		cmdFolders()
	case "files":
		cmdFiles(os.Args[2:])
	case "vendors":
		cmdVendors()
	case "export":
		cmdExport(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "doclink: unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}
