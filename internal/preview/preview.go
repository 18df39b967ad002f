// Package preview renders a raster preview from one page of a document by
// shelling out to an external rasterizer. Rendering is best-effort by
// design: every failure degrades to "no preview" with a diagnostic, and a
// hung tool is cut off by the timeout instead of stalling the attach.
package preview

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout = 20 * time.Second
	targetWidth    = 600
	density        = 160
	jpegQuality    = 75
)

// Renderer produces previews via pdftoppm, falling back to ImageMagick.
type Renderer struct {
	Timeout time.Duration

	// Overridable for tests.
	lookPath func(string) (string, error)
}

// New returns a Renderer with the given tool timeout (0 means the default).
func New(timeout time.Duration) *Renderer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Renderer{Timeout: timeout, lookPath: exec.LookPath}
}

// PreviewName derives the preview file name from a document name by
// swapping the extension for .jpg.
func PreviewName(docName string) string {
	ext := filepath.Ext(docName)
	return strings.TrimSuffix(docName, ext) + ".jpg"
}

// Render rasterizes page pageIndex (0-based) of docPath into outPath.
// Returns ok=false with diagnostics when every strategy failed; it never
// returns an error because preview failure must not abort an attach.
func (r *Renderer) Render(ctx context.Context, docPath, outPath string, pageIndex int) (bool, []string) {
	var diags []string
	if pageIndex < 0 {
		pageIndex = 0
	}

	for _, strategy := range []struct {
		name string
		run  func(context.Context) error
	}{
		{"pdftoppm", func(ctx context.Context) error { return r.pdftoppm(ctx, docPath, outPath, pageIndex) }},
		{"convert", func(ctx context.Context) error { return r.imagemagick(ctx, docPath, outPath, pageIndex) }},
	} {
		tctx, cancel := context.WithTimeout(ctx, r.Timeout)
		err := strategy.run(tctx)
		cancel()
		if err == nil {
			if _, statErr := os.Stat(outPath); statErr == nil {
				return true, diags
			}
			err = fmt.Errorf("no output produced")
		}
		diags = append(diags, fmt.Sprintf("%s: %v", strategy.name, err))
	}
	return false, diags
}

func (r *Renderer) pdftoppm(ctx context.Context, docPath, outPath string, pageIndex int) error {
	bin, err := r.lookPath("pdftoppm")
	if err != nil {
		return fmt.Errorf("not available")
	}
	page := strconv.Itoa(pageIndex + 1)
	prefix := strings.TrimSuffix(outPath, filepath.Ext(outPath))
	cmd := exec.CommandContext(ctx, bin,
		"-jpeg", "-jpegopt", "quality="+strconv.Itoa(jpegQuality),
		"-f", page, "-l", page,
		"-scale-to-x", strconv.Itoa(targetWidth), "-scale-to-y", "-1",
		"-singlefile", docPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return toolError(ctx, err, out)
	}
	return nil
}

func (r *Renderer) imagemagick(ctx context.Context, docPath, outPath string, pageIndex int) error {
	bin, err := r.lookPath("convert")
	if err != nil {
		return fmt.Errorf("not available")
	}
	cmd := exec.CommandContext(ctx, bin,
		"-density", strconv.Itoa(density),
		fmt.Sprintf("%s[%d]", docPath, pageIndex),
		"-thumbnail", fmt.Sprintf("%dx", targetWidth),
		"-quality", strconv.Itoa(jpegQuality),
		outPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return toolError(ctx, err, out)
	}
	return nil
}

func toolError(ctx context.Context, err error, out []byte) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("timed out")
	}
	msg := strings.TrimSpace(string(out))
	if msg != "" {
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return fmt.Errorf("%v: %s", err, msg)
	}
	return err
}
