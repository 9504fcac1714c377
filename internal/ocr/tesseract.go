package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lmercier/docextract/internal/config"
)

// TesseractEngine shells out to the tesseract binary. A text pass produces
// the page text; a TSV pass produces per-token confidences and boxes.
type TesseractEngine struct {
	cfg    config.OCRConfig
	runner Runner
}

func NewTesseractEngine(cfg config.OCRConfig) *TesseractEngine {
	return NewTesseractEngineWithRunner(cfg, execRunner{})
}

// NewTesseractEngineWithRunner injects the command runner used to invoke
// tesseract.
func NewTesseractEngineWithRunner(cfg config.OCRConfig, runner Runner) *TesseractEngine {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	return &TesseractEngine{cfg: cfg, runner: runner}
}

func (t *TesseractEngine) Recognize(ctx context.Context, img image.Image, lang string, psm int) (Recognition, error) {
	tmpDir, err := os.MkdirTemp("", "dx-ocr-*")
	if err != nil {
		return Recognition{}, err
	}
	defer os.RemoveAll(tmpDir)

	pagePath := filepath.Join(tmpDir, "page.png")
	f, err := os.Create(pagePath)
	if err != nil {
		return Recognition{}, err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return Recognition{}, fmt.Errorf("encode page: %w", err)
	}
	if err := f.Close(); err != nil {
		return Recognition{}, err
	}

	args := t.baseArgs(pagePath, lang, psm)
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 512))
	}
	text := string(out)

	tsvOut, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, append(args, "tsv")...)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract tsv: %w (%s)", err, truncate(string(errb), 512))
	}

	return Recognition{Text: text, Tokens: parseTSV(string(tsvOut))}, nil
}

func (t *TesseractEngine) baseArgs(path, lang string, psm int) []string {
	args := []string{path, "stdout", "-l", lang}
	if psm > 0 {
		args = append(args, "--psm", strconv.Itoa(psm))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	return args
}

// parseTSV converts tesseract's TSV output into tokens. Structural rows
// (page/block/paragraph/line) carry conf -1 and empty text; they are kept
// so the caller sees the engine's sentinel values.
func parseTSV(out string) []Token {
	lines := strings.Split(out, "\n")
	var tokens []Token
	for i, ln := range lines {
		if i == 0 || ln == "" { // header
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil {
			continue
		}
		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])
		tokens = append(tokens, Token{
			Text:       cols[11],
			Confidence: conf,
			Box:        image.Rect(left, top, left+width, top+height),
		})
	}
	return tokens
}
