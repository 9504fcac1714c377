package pipeline

import (
	"encoding/json"

	"github.com/lmercier/docextract/constants"
	"github.com/lmercier/docextract/internal/ocr"
)

// Record is a structured extraction payload (invoice or contract).
type Record interface {
	FieldMap() map[string]any
}

// ExtractionResult is the atomic outcome of processing one document.
// Either the whole pipeline succeeded (record and OCR summary present, no
// error message) or it failed (both nil, message set). There is no partial
// state in between.
type ExtractionResult struct {
	DocumentType constants.DocumentType
	Record       Record
	OCR          *ocr.Result
	Success      bool
	ErrorMessage string
}

func successResult(docType constants.DocumentType, record Record, ocrRes ocr.Result) ExtractionResult {
	return ExtractionResult{
		DocumentType: docType,
		Record:       record,
		OCR:          &ocrRes,
		Success:      true,
	}
}

func failureResult(docType constants.DocumentType, err error) ExtractionResult {
	return ExtractionResult{
		DocumentType: docType,
		Success:      false,
		ErrorMessage: err.Error(),
	}
}

// ToMap serializes the result for JSON output. The OCR block is always
// present; a failed run reports zeros there and null data.
func (r ExtractionResult) ToMap() map[string]any {
	var data any
	if r.Record != nil {
		data = r.Record.FieldMap()
	}
	var errMsg any
	if r.ErrorMessage != "" {
		errMsg = r.ErrorMessage
	}

	ocrBlock := map[string]any{
		"word_count":         0,
		"confidence":         0.0,
		"processing_time_ms": 0.0,
	}
	if r.OCR != nil {
		ocrBlock["word_count"] = r.OCR.WordCount
		ocrBlock["confidence"] = r.OCR.Confidence
		ocrBlock["processing_time_ms"] = r.OCR.ProcessingTimeMS
	}

	return map[string]any{
		"document_type": string(r.DocumentType),
		"success":       r.Success,
		"error_message": errMsg,
		"data":          data,
		"ocr":           ocrBlock,
	}
}

// ToJSON renders the result as indented JSON.
func (r ExtractionResult) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r.ToMap(), "", "  ")
}
