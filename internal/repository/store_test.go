package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmercier/docextract/constants"
	"github.com/lmercier/docextract/internal/eval"
	"github.com/lmercier/docextract/internal/ocr"
	"github.com/lmercier/docextract/internal/pipeline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type mapRecord map[string]any

func (m mapRecord) FieldMap() map[string]any { return m }

func TestSaveAndListExtractions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ok := pipeline.ExtractionResult{
		DocumentType: constants.DocTypeInvoice,
		Record:       mapRecord{"invoice_number": "FA-1"},
		OCR:          &ocr.Result{WordCount: 42, Confidence: 0.91, ProcessingTimeMS: 12.5},
		Success:      true,
	}
	failed := pipeline.ExtractionResult{
		DocumentType: constants.DocTypeUnknown,
		Success:      false,
		ErrorMessage: "unsupported document type: unknown",
	}

	id1, err := s.SaveExtraction(ctx, ok)
	require.NoError(t, err)
	id2, err := s.SaveExtraction(ctx, failed)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	rows, err := s.ListExtractions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Newest first.
	assert.Equal(t, id2, rows[0].ID)
	assert.False(t, rows[0].Success)
	assert.Equal(t, "unsupported document type: unknown", rows[0].ErrorMessage)

	assert.Equal(t, "invoice", rows[1].DocumentType)
	assert.Equal(t, 42, rows[1].WordCount)
	assert.InDelta(t, 0.91, rows[1].Confidence, 1e-9)
	data, okCast := rows[1].Payload["data"].(map[string]any)
	require.True(t, okCast)
	assert.Equal(t, "FA-1", data["invoice_number"])
}

func TestSaveAndLoadEvaluation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	results := eval.NewEvaluationResults()
	results.TotalDocuments = 3
	results.SuccessfulExtractions = 2
	results.FailedExtractions = 1
	results.FieldMetrics["invoice_number"] = &eval.FieldMetrics{
		FieldName: "invoice_number", TruePositives: 2, ExactMatches: 2, TotalSamples: 3,
	}

	id, err := s.SaveEvaluation(ctx, results)
	require.NoError(t, err)

	row, err := s.GetEvaluation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, row.TotalDocuments)
	assert.InDelta(t, 1.0, row.MacroPrecision, 1e-9)
	require.Contains(t, row.Payload, "summary")
	require.Contains(t, row.Payload, "fields")

	latest, err := s.LatestEvaluation(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, latest.ID)
}

func TestGetEvaluationMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetEvaluation(context.Background(), 999)
	assert.Error(t, err)

	_, err = s.LatestEvaluation(context.Background())
	assert.Error(t, err)
}
