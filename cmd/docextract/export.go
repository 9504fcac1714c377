package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lmercier/docextract/internal/eval"
	"github.com/lmercier/docextract/internal/export"
	"github.com/lmercier/docextract/internal/repository"
)

var (
	exportID     int64
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored evaluation run as an XLSX report",
	Example: `  # Export the most recent run
  docextract export --output report.xlsx

  # Export a specific run
  docextract export --id 3 --output report.xlsx`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().Int64Var(&exportID, "id", 0, "evaluation run id (defaults to the most recent)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "path of the XLSX file to write (required)")
	_ = exportCmd.MarkFlagRequired("output")
}

func runExport(cmd *cobra.Command, args []string) error {
	store, err := repository.Open(cfg.Store.Path, slog.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	var row *repository.EvaluationRow
	if exportID > 0 {
		row, err = store.GetEvaluation(cmd.Context(), exportID)
	} else {
		row, err = store.LatestEvaluation(cmd.Context())
	}
	if err != nil {
		return err
	}

	results := eval.ResultsFromMap(row.Payload)
	data, err := export.NewService(slog.Default()).EvaluationXLSX(results)
	if err != nil {
		return err
	}
	if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported evaluation %d to %s\n", row.ID, exportOutput)
	return nil
}
