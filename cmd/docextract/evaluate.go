package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lmercier/docextract/internal/eval"
	"github.com/lmercier/docextract/internal/export"
	"github.com/lmercier/docextract/internal/pipeline"
	"github.com/lmercier/docextract/internal/repository"
)

var (
	evalAnnotations string
	evalSamplesDir  string
	evalOutput      string
	evalXLSX        string
	evalSave        bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score the pipeline against annotated ground truth",
	Long: `Run every document listed in the annotations file through the
pipeline and report per-field precision, recall and F1. Annotated samples
whose file is missing from the samples directory are extracted from their
recorded raw text instead.`,
	Example: `  docextract evaluate --annotations eval/annotations.json --samples eval/samples

  # Also produce an XLSX report and keep the run in the store
  docextract evaluate --annotations ann.json --xlsx report.xlsx --save`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evalAnnotations, "annotations", "", "path to the ground-truth annotations JSON (required)")
	evaluateCmd.Flags().StringVar(&evalSamplesDir, "samples", ".", "directory containing the annotated sample documents")
	evaluateCmd.Flags().StringVarP(&evalOutput, "output", "o", "", "write the results JSON to this file instead of stdout")
	evaluateCmd.Flags().StringVar(&evalXLSX, "xlsx", "", "also write an XLSX report to this file")
	evaluateCmd.Flags().BoolVar(&evalSave, "save", false, "persist the run in the local store")
	_ = evaluateCmd.MarkFlagRequired("annotations")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	annotations, err := eval.LoadAnnotations(evalAnnotations)
	if err != nil {
		return err
	}
	if len(annotations) == 0 {
		return fmt.Errorf("no documents in %s", evalAnnotations)
	}

	p := pipeline.New(cfg, slog.Default())
	results := eval.NewEvaluator(p, slog.Default()).Evaluate(cmd.Context(), annotations, evalSamplesDir)

	out, err := json.MarshalIndent(results.ToMap(), "", "  ")
	if err != nil {
		return fmt.Errorf("serialize results: %w", err)
	}
	if evalOutput != "" {
		if err := os.WriteFile(evalOutput, append(out, '\n'), 0o644); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	}

	if evalXLSX != "" {
		data, err := export.NewService(slog.Default()).EvaluationXLSX(results)
		if err != nil {
			return err
		}
		if err := os.WriteFile(evalXLSX, data, 0o644); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	}

	if evalSave {
		store, err := repository.Open(cfg.Store.Path, slog.Default())
		if err != nil {
			return err
		}
		defer store.Close()
		if _, err := store.SaveEvaluation(cmd.Context(), results); err != nil {
			return err
		}
	}
	return nil
}
