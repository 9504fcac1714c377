// Package export renders evaluation runs as XLSX workbooks.
package export

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/lmercier/docextract/internal/eval"
)

// Service produces XLSX bytes for evaluation reports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// EvaluationXLSX returns a workbook with a summary sheet and one row per
// scored field.
func (s *Service) EvaluationXLSX(results *eval.EvaluationResults) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()

	if err := s.writeSummarySheet(f, results); err != nil {
		return nil, err
	}
	if err := s.writeFieldsSheet(f, results); err != nil {
		return nil, err
	}

	// Drop the default sheet so Summary opens first.
	const defaultSheet = "Sheet1"
	if index, _ := f.GetSheetIndex(defaultSheet); index != -1 {
		_ = f.DeleteSheet(defaultSheet)
	}
	if index, _ := f.GetSheetIndex("Summary"); index != -1 {
		f.SetActiveSheet(index)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"fields", len(results.FieldMetrics),
		"documents", results.TotalDocuments,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeSummarySheet(f *excelize.File, results *eval.EvaluationResults) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][2]any{
		{"Total documents", results.TotalDocuments},
		{"Successful extractions", results.SuccessfulExtractions},
		{"Failed extractions", results.FailedExtractions},
		{"Success rate", results.SuccessRate()},
		{"Avg processing time (ms)", results.AvgProcessingTime()},
		{"Macro precision", results.MacroPrecision()},
		{"Macro recall", results.MacroRecall()},
		{"Macro F1", results.MacroF1()},
	}
	for i, pair := range rows {
		for col, v := range pair {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 26)
	_ = f.SetColWidth(sheet, "B", "B", 14)
	return nil
}

func (s *Service) writeFieldsSheet(f *excelize.File, results *eval.EvaluationResults) error {
	const sheet = "Fields"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{
		"Field",
		"Precision",
		"Recall",
		"F1",
		"Accuracy",
		"True Positives",
		"False Positives",
		"False Negatives",
		"Exact Matches",
		"Partial Matches",
		"Samples",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	names := make([]string, 0, len(results.FieldMetrics))
	for name := range results.FieldMetrics {
		names = append(names, name)
	}
	sort.Strings(names)

	row := 2
	for _, name := range names {
		m := results.FieldMetrics[name]
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, name)
		write(2, m.Precision())
		write(3, m.Recall())
		write(4, m.F1())
		write(5, m.Accuracy())
		write(6, m.TruePositives)
		write(7, m.FalsePositives)
		write(8, m.FalseNegatives)
		write(9, m.ExactMatches)
		write(10, m.PartialMatches)
		write(11, m.TotalSamples)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "E", 12)
	_ = f.SetColWidth(sheet, "F", "K", 14)
	return nil
}
