// Package ocr wraps a single-page OCR engine and aggregates per-page
// results into one document-level result.
package ocr

import (
	"context"
	"image"
)

// Token is one recognized unit from the engine. Confidence is in the
// engine's native [0,100] range; non-text detections carry a negative
// sentinel value and must be excluded from averages, not zeroed.
type Token struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
}

// Recognition is the raw output of one engine invocation.
type Recognition struct {
	Text   string
	Tokens []Token
}

// Engine is the consumed OCR capability. Implementations run one page at a
// time; lang is the engine's language pack identifier and psm its page
// segmentation mode.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, lang string, psm int) (Recognition, error)
}
