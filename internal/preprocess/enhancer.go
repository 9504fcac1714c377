// Package preprocess implements the deterministic image-quality pipeline
// applied before OCR: deskew, denoise, contrast enhancement and adaptive
// binarization. Every stage is best-effort; a stage that fails is logged
// and skipped so that preprocessing never aborts a document.
package preprocess

import (
	"image"
	"image/color"
	"log/slog"

	"github.com/lmercier/docextract/internal/config"
)

// Enhancer applies the configured enhancement stages in a fixed order:
// deskew -> denoise -> contrast -> binarize.
type Enhancer struct {
	cfg    config.PreprocessConfig
	logger *slog.Logger
}

func NewEnhancer(cfg config.PreprocessConfig, logger *slog.Logger) *Enhancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enhancer{cfg: cfg, logger: logger}
}

// Enhance runs the enabled stages over a single page image and returns the
// enhanced grayscale page.
func (e *Enhancer) Enhance(img image.Image) image.Image {
	gray := toGray(img)

	if e.cfg.Deskew {
		out, err := deskew(gray)
		if err != nil {
			e.logger.Warn("preprocess.deskew.skipped", "error", err)
		} else {
			gray = out
		}
	}
	if e.cfg.Denoise {
		out, err := denoise(gray)
		if err != nil {
			e.logger.Warn("preprocess.denoise.skipped", "error", err)
		} else {
			gray = out
		}
	}
	if e.cfg.EnhanceContrast {
		out, err := clahe(gray)
		if err != nil {
			e.logger.Warn("preprocess.contrast.skipped", "error", err)
		} else {
			gray = out
		}
	}
	if e.cfg.Binarize {
		out, err := binarize(gray)
		if err != nil {
			e.logger.Warn("preprocess.binarize.skipped", "error", err)
		} else {
			gray = out
		}
	}
	return gray
}

// EnhanceBatch enhances pages in order. The output has the same length and
// ordering as the input.
func (e *Enhancer) EnhanceBatch(images []image.Image) []image.Image {
	out := make([]image.Image, len(images))
	for i, img := range images {
		e.logger.Debug("preprocess.page", "index", i+1, "total", len(images))
		out[i] = e.Enhance(img)
	}
	return out
}

// toGray converts any image to 8-bit grayscale. Already-gray images are
// returned as-is.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}
