// Package pdf converts PDF documents into ordered page images.
package pdf

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/lmercier/docextract/internal/config"
	"github.com/lmercier/docextract/internal/ocr"
	"github.com/lmercier/docextract/internal/preprocess"
)

// Rasterizer is the consumed PDF rasterization capability. Pages come back
// in document order.
type Rasterizer interface {
	PagesToImages(ctx context.Context, path string, dpi int) ([]image.Image, error)
}

// PdftoppmRasterizer renders pages by shelling out to pdftoppm.
type PdftoppmRasterizer struct {
	cfg    config.PDFConfig
	runner ocr.Runner
}

func NewPdftoppmRasterizer(cfg config.PDFConfig) *PdftoppmRasterizer {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	return &PdftoppmRasterizer{cfg: cfg, runner: ocr.ExecRunner()}
}

func (r *PdftoppmRasterizer) PagesToImages(ctx context.Context, path string, dpi int) ([]image.Image, error) {
	if dpi <= 0 {
		dpi = r.cfg.DPI
	}

	tmpDir, err := os.MkdirTemp("", "dx-pp-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", dpi), "-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (%s)", err, string(errb))
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if r.cfg.MaxPages > 0 && len(matches) > r.cfg.MaxPages {
		matches = matches[:r.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no pages for %q", path)
	}

	pages := make([]image.Image, 0, len(matches))
	for _, m := range matches {
		img, err := preprocess.LoadImage(m)
		if err != nil {
			return nil, fmt.Errorf("decode rendered page %q: %w", m, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}
