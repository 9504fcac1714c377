package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmercier/docextract/constants"
	"github.com/lmercier/docextract/internal/pipeline"
)

// Fields scored per document type.
var (
	InvoiceFields = []string{
		"invoice_number",
		"invoice_date",
		"supplier_name",
		"client_name",
		"total_ht",
		"total_tva",
		"total_ttc",
	}
	ContractFields = []string{
		"contract_type",
		"signature_date",
		"effective_date",
		"total_amount",
		"duration",
	}
)

// Annotation is one ground-truth entry: a sample file, its known type and
// the expected field values. The reserved "_raw_text" key carries OCR text
// for samples whose file is not on disk.
type Annotation struct {
	Filename string         `json:"filename"`
	Type     string         `json:"type"`
	Expected map[string]any `json:"expected"`
}

// LoadAnnotations reads a {"documents": [...]} annotations file.
func LoadAnnotations(path string) ([]Annotation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read annotations: %w", err)
	}
	var doc struct {
		Documents []Annotation `json:"documents"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse annotations: %w", err)
	}
	return doc.Documents, nil
}

// Processor is the slice of the pipeline the evaluator drives.
type Processor interface {
	Process(ctx context.Context, path string, explicitType string) pipeline.ExtractionResult
	ExtractFromText(ctx context.Context, text string, docType constants.DocumentType) (pipeline.Record, error)
}

// Evaluator scores a processor over an annotated sample set.
type Evaluator struct {
	proc Processor
	log  *slog.Logger
}

func NewEvaluator(proc Processor, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{proc: proc, log: logger}
}

// Evaluate runs every annotated sample through the processor and aggregates
// field metrics per document type. Samples whose file is missing fall back
// to extracting the annotation's raw text directly, so curated text-only
// datasets still score.
func (e *Evaluator) Evaluate(ctx context.Context, annotations []Annotation, samplesDir string) *EvaluationResults {
	results := NewEvaluationResults()

	var invoicePreds, invoiceTruths []map[string]any
	var contractPreds, contractTruths []map[string]any

	for _, ann := range annotations {
		results.TotalDocuments++
		e.log.Info("eval.sample", "filename", ann.Filename, "type", ann.Type)

		start := time.Now()
		predicted, ok := e.processSample(ctx, ann, samplesDir)
		results.ProcessingTimes = append(results.ProcessingTimes, float64(time.Since(start).Microseconds())/1000.0)

		if !ok {
			results.FailedExtractions++
			continue
		}
		results.SuccessfulExtractions++

		switch constants.ParseDocumentType(ann.Type) {
		case constants.DocTypeInvoice:
			invoicePreds = append(invoicePreds, predicted)
			invoiceTruths = append(invoiceTruths, ann.Expected)
		case constants.DocTypeContract:
			contractPreds = append(contractPreds, predicted)
			contractTruths = append(contractTruths, ann.Expected)
		}
	}

	if len(invoicePreds) > 0 {
		for name, m := range CalculateFieldMetrics(invoicePreds, invoiceTruths, InvoiceFields) {
			results.FieldMetrics[name] = m
		}
	}
	if len(contractPreds) > 0 {
		for name, m := range CalculateFieldMetrics(contractPreds, contractTruths, ContractFields) {
			results.FieldMetrics[name] = m
		}
	}

	e.log.Info("eval.done",
		"documents", results.TotalDocuments,
		"successful", results.SuccessfulExtractions,
		"failed", results.FailedExtractions,
		"macro_f1", results.MacroF1(),
	)
	return results
}

// processSample returns the predicted field map for one annotation, or
// ok=false when extraction failed.
func (e *Evaluator) processSample(ctx context.Context, ann Annotation, samplesDir string) (map[string]any, bool) {
	path := filepath.Join(samplesDir, ann.Filename)
	if _, err := os.Stat(path); err == nil {
		res := e.proc.Process(ctx, path, ann.Type)
		if !res.Success {
			e.log.Warn("eval.sample.failed", "filename", ann.Filename, "error", res.ErrorMessage)
			return nil, false
		}
		return res.Record.FieldMap(), true
	}

	e.log.Warn("eval.sample.file_missing", "filename", ann.Filename, "fallback", "_raw_text")
	text, _ := ann.Expected["_raw_text"].(string)
	if text == "" {
		text = fmt.Sprintf("Document %s", ann.Type)
	}
	record, err := e.proc.ExtractFromText(ctx, text, constants.ParseDocumentType(ann.Type))
	if err != nil {
		e.log.Warn("eval.sample.failed", "filename", ann.Filename, "error", err)
		return nil, false
	}
	return record.FieldMap(), true
}
