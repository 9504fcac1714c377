package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lmercier/docextract/internal/pipeline"
	"github.com/lmercier/docextract/internal/repository"
)

var (
	processType   string
	processOutput string
	processSave   bool
)

var processCmd = &cobra.Command{
	Use:   "process [document]",
	Short: "Run one document through the extraction pipeline",
	Long: `Process a PDF or image document and print the extraction result as
JSON. Without --type the document type is classified automatically.`,
	Example: `  # Auto-detect the document type
  docextract process facture.pdf

  # Pin the type and write the result to a file
  docextract process contrat.pdf --type contract --output result.json

  # Keep the result in the local store
  docextract process facture.pdf --save`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processType, "type", "t", "", "document type (invoice or contract); skips classification")
	processCmd.Flags().StringVarP(&processOutput, "output", "o", "", "write the JSON result to this file instead of stdout")
	processCmd.Flags().BoolVar(&processSave, "save", false, "persist the result in the local store")
}

func runProcess(cmd *cobra.Command, args []string) error {
	p := pipeline.New(cfg, slog.Default())
	res := p.Process(cmd.Context(), args[0], processType)

	out, err := res.ToJSON()
	if err != nil {
		return fmt.Errorf("serialize result: %w", err)
	}
	if processOutput != "" {
		if err := os.WriteFile(processOutput, append(out, '\n'), 0o644); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	}

	if processSave {
		store, err := repository.Open(cfg.Store.Path, slog.Default())
		if err != nil {
			return err
		}
		defer store.Close()
		if _, err := store.SaveExtraction(cmd.Context(), res); err != nil {
			return err
		}
	}

	if !res.Success {
		return fmt.Errorf("extraction failed: %s", res.ErrorMessage)
	}
	return nil
}
