package eval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmercier/docextract/constants"
	"github.com/lmercier/docextract/internal/ocr"
	"github.com/lmercier/docextract/internal/pipeline"
)

// mapRecord adapts a plain map to the pipeline's record interface.
type mapRecord map[string]any

func (m mapRecord) FieldMap() map[string]any { return m }

// fakeProcessor replays canned predictions keyed by filename (Process) or by
// document type (ExtractFromText).
type fakeProcessor struct {
	byFile     map[string]map[string]any
	byType     map[constants.DocumentType]map[string]any
	extractErr error

	processedPaths []string
	extractedTexts []string
}

func (f *fakeProcessor) Process(_ context.Context, path string, _ string) pipeline.ExtractionResult {
	f.processedPaths = append(f.processedPaths, path)
	pred, ok := f.byFile[filepath.Base(path)]
	if !ok {
		return pipeline.ExtractionResult{Success: false, ErrorMessage: "no prediction"}
	}
	return pipeline.ExtractionResult{
		Success: true,
		Record:  mapRecord(pred),
		OCR:     &ocr.Result{WordCount: 10, Confidence: 0.9},
	}
}

func (f *fakeProcessor) ExtractFromText(_ context.Context, text string, docType constants.DocumentType) (pipeline.Record, error) {
	f.extractedTexts = append(f.extractedTexts, text)
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return mapRecord(f.byType[docType]), nil
}

func TestEvaluateScoresPresentFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inv1.png"), []byte("x"), 0o600))

	proc := &fakeProcessor{
		byFile: map[string]map[string]any{
			"inv1.png": {"invoice_number": "FA-1", "total_ttc": 1200.0},
		},
	}
	ev := NewEvaluator(proc, nil)

	annotations := []Annotation{
		{
			Filename: "inv1.png",
			Type:     "invoice",
			Expected: map[string]any{"invoice_number": "FA-1", "total_ttc": 1200.0},
		},
	}
	results := ev.Evaluate(context.Background(), annotations, dir)

	assert.Equal(t, 1, results.TotalDocuments)
	assert.Equal(t, 1, results.SuccessfulExtractions)
	assert.Zero(t, results.FailedExtractions)
	assert.Len(t, results.ProcessingTimes, 1)
	assert.Len(t, proc.processedPaths, 1)
	assert.Empty(t, proc.extractedTexts)

	num := results.FieldMetrics["invoice_number"]
	require.NotNil(t, num)
	assert.Equal(t, 1, num.TruePositives)
	assert.Equal(t, 1, num.ExactMatches)
}

func TestEvaluateFallsBackToRawText(t *testing.T) {
	proc := &fakeProcessor{
		byType: map[constants.DocumentType]map[string]any{
			constants.DocTypeContract: {"contract_type": "lease", "total_amount": 850.0},
		},
	}
	ev := NewEvaluator(proc, nil)

	annotations := []Annotation{
		{
			Filename: "missing.pdf",
			Type:     "contract",
			Expected: map[string]any{
				"_raw_text":     "CONTRAT DE BAIL Loyer: 850,00",
				"contract_type": "lease",
				"total_amount":  850.0,
			},
		},
	}
	results := ev.Evaluate(context.Background(), annotations, t.TempDir())

	assert.Equal(t, 1, results.SuccessfulExtractions)
	require.Len(t, proc.extractedTexts, 1)
	assert.Equal(t, "CONTRAT DE BAIL Loyer: 850,00", proc.extractedTexts[0])
	assert.Empty(t, proc.processedPaths)

	ctype := results.FieldMetrics["contract_type"]
	require.NotNil(t, ctype)
	assert.Equal(t, 1, ctype.ExactMatches)
}

func TestEvaluateCountsFailures(t *testing.T) {
	proc := &fakeProcessor{extractErr: errors.New("backend down")}
	ev := NewEvaluator(proc, nil)

	annotations := []Annotation{
		{Filename: "missing.pdf", Type: "invoice", Expected: map[string]any{"invoice_number": "FA-1"}},
	}
	results := ev.Evaluate(context.Background(), annotations, t.TempDir())

	assert.Equal(t, 1, results.TotalDocuments)
	assert.Equal(t, 1, results.FailedExtractions)
	assert.Zero(t, results.SuccessfulExtractions)
	// A run with no successful samples produces no field metrics.
	assert.Empty(t, results.FieldMetrics)
}

func TestLoadAnnotations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotations.json")
	content := `{
		"documents": [
			{"filename": "a.pdf", "type": "invoice", "expected": {"invoice_number": "FA-1"}},
			{"filename": "b.pdf", "type": "contract", "expected": {"duration": "12 mois"}}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	anns, err := LoadAnnotations(path)
	require.NoError(t, err)
	require.Len(t, anns, 2)
	assert.Equal(t, "invoice", anns[0].Type)
	assert.Equal(t, "FA-1", anns[0].Expected["invoice_number"])

	_, err = LoadAnnotations(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
