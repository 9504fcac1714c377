package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/lmercier/docextract/internal/config"
)

// Result is the aggregated OCR output for one or more pages.
type Result struct {
	Text             string
	Confidence       float64 // [0,1]
	WordCount        int
	ProcessingTimeMS float64
	Language         language.Tag
}

// IsEmpty reports whether no usable text was recognized.
func (r Result) IsEmpty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Lines returns the non-blank lines of the recognized text.
func (r Result) Lines() []string {
	var lines []string
	for _, ln := range strings.Split(r.Text, "\n") {
		if s := strings.TrimSpace(ln); s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}

// WordBox is a recognized word with its bounding box on the page.
type WordBox struct {
	Text       string
	Confidence float64 // [0,1]
	Box        image.Rectangle
}

// Extractor invokes the engine per page and merges results.
type Extractor struct {
	engine Engine
	cfg    config.OCRConfig
	tag    language.Tag
	logger *slog.Logger
}

func NewExtractor(engine Engine, cfg config.OCRConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &Extractor{
		engine: engine,
		cfg:    cfg,
		tag:    languageTag(cfg.Language),
		logger: logger,
	}
}

// languageTag maps a tesseract language pack ("fra", "fra+eng") onto a BCP 47
// tag for the primary language.
func languageTag(pack string) language.Tag {
	primary, _, _ := strings.Cut(pack, "+")
	tag, err := language.Parse(primary)
	if err != nil {
		return language.Und
	}
	return tag
}

// ExtractText runs the engine once over a single page. Confidence is the
// arithmetic mean of non-negative token confidences scaled to [0,1];
// negative sentinels are excluded, not treated as zero.
func (e *Extractor) ExtractText(ctx context.Context, img image.Image) (Result, error) {
	start := time.Now()

	rec, err := e.engine.Recognize(ctx, img, e.cfg.Language, e.cfg.PSM)
	if err != nil {
		return Result{}, fmt.Errorf("ocr recognize: %w", err)
	}

	var confSum float64
	var confN, words int
	for _, tok := range rec.Tokens {
		if tok.Confidence >= 0 {
			confSum += tok.Confidence
			confN++
		}
		if strings.TrimSpace(tok.Text) != "" {
			words++
		}
	}
	confidence := 0.0
	if confN > 0 {
		confidence = confSum / float64(confN) / 100.0
	}

	res := Result{
		Text:             Normalize(rec.Text),
		Confidence:       confidence,
		WordCount:        words,
		ProcessingTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
		Language:         e.tag,
	}
	e.logger.Debug("ocr.page.ok",
		"words", res.WordCount,
		"confidence", res.Confidence,
		"elapsed_ms", res.ProcessingTimeMS,
	)
	return res, nil
}

// WordBoxes runs the engine over a single page and returns the positioned
// words. Blank tokens and structural sentinel rows are dropped; confidences
// are scaled to [0,1].
func (e *Extractor) WordBoxes(ctx context.Context, img image.Image) ([]WordBox, error) {
	rec, err := e.engine.Recognize(ctx, img, e.cfg.Language, e.cfg.PSM)
	if err != nil {
		return nil, fmt.Errorf("ocr recognize: %w", err)
	}

	var words []WordBox
	for _, tok := range rec.Tokens {
		if strings.TrimSpace(tok.Text) == "" || tok.Confidence < 0 {
			continue
		}
		words = append(words, WordBox{
			Text:       tok.Text,
			Confidence: tok.Confidence / 100.0,
			Box:        tok.Box,
		})
	}
	e.logger.Debug("ocr.word_boxes.ok", "words", len(words))
	return words, nil
}

// ExtractFromMultiple processes pages strictly in input order; the order
// defines reading order in the concatenated text. The separator is inserted
// before every page after the first. Confidence is a word-count-weighted
// mean across pages. An empty page list yields a zero result without
// touching the engine.
func (e *Extractor) ExtractFromMultiple(ctx context.Context, images []image.Image, separator string) (Result, error) {
	if len(images) == 0 {
		return Result{Language: e.tag}, nil
	}

	var texts []string
	var weighted, totalTime float64
	var totalWords int

	for i, img := range images {
		e.logger.Info("ocr.page", "page", i+1, "total", len(images))
		res, err := e.ExtractText(ctx, img)
		if err != nil {
			return Result{}, fmt.Errorf("page %d: %w", i+1, err)
		}
		if i > 0 && separator != "" {
			texts = append(texts, separator)
		}
		texts = append(texts, res.Text)
		weighted += res.Confidence * float64(res.WordCount)
		totalWords += res.WordCount
		totalTime += res.ProcessingTimeMS
	}

	confidence := 0.0
	if totalWords > 0 {
		confidence = weighted / float64(totalWords)
	}
	return Result{
		Text:             strings.Join(texts, ""),
		Confidence:       confidence,
		WordCount:        totalWords,
		ProcessingTimeMS: totalTime,
		Language:         e.tag,
	}, nil
}
