// Package repository persists extraction results and evaluation runs in a
// local SQLite database.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/lmercier/docextract/internal/eval"
	"github.com/lmercier/docextract/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS extractions (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	document_type      TEXT    NOT NULL,
	success            INTEGER NOT NULL,
	error_message      TEXT,
	payload            TEXT    NOT NULL,
	word_count         INTEGER NOT NULL DEFAULT 0,
	confidence         REAL    NOT NULL DEFAULT 0,
	processing_time_ms REAL    NOT NULL DEFAULT 0,
	created_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS evaluations (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	total_documents        INTEGER NOT NULL,
	successful_extractions INTEGER NOT NULL,
	failed_extractions     INTEGER NOT NULL,
	macro_precision        REAL    NOT NULL,
	macro_recall           REAL    NOT NULL,
	macro_f1               REAL    NOT NULL,
	payload                TEXT    NOT NULL,
	created_at             TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store wraps the SQLite handle. Open with ":memory:" for throwaway stores.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", path, err)
	}
	// modernc sqlite serializes access through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply store schema: %w", err)
	}
	logger.Info("store.ready", "path", path)
	return &Store{db: db, log: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ExtractionRow is a stored extraction result.
type ExtractionRow struct {
	ID               int64
	DocumentType     string
	Success          bool
	ErrorMessage     string
	Payload          map[string]any
	WordCount        int
	Confidence       float64
	ProcessingTimeMS float64
	CreatedAt        string
}

// SaveExtraction stores the serialized result and its OCR counters.
func (s *Store) SaveExtraction(ctx context.Context, res pipeline.ExtractionResult) (int64, error) {
	payload, err := json.Marshal(res.ToMap())
	if err != nil {
		return 0, fmt.Errorf("marshal extraction payload: %w", err)
	}

	var words int
	var confidence, elapsed float64
	if res.OCR != nil {
		words = res.OCR.WordCount
		confidence = res.OCR.Confidence
		elapsed = res.OCR.ProcessingTimeMS
	}

	out, err := s.db.ExecContext(ctx,
		`INSERT INTO extractions
		 (document_type, success, error_message, payload, word_count, confidence, processing_time_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(res.DocumentType), res.Success, res.ErrorMessage, string(payload),
		words, confidence, elapsed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert extraction: %w", err)
	}
	id, err := out.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.log.Info("store.extraction.saved", "id", id, "document_type", res.DocumentType, "success", res.Success)
	return id, nil
}

// ListExtractions returns the most recent stored results, newest first.
func (s *Store) ListExtractions(ctx context.Context, limit int) ([]ExtractionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_type, success, COALESCE(error_message, ''), payload,
		        word_count, confidence, processing_time_ms, CAST(created_at AS TEXT)
		 FROM extractions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	defer rows.Close()

	var out []ExtractionRow
	for rows.Next() {
		var row ExtractionRow
		var payload string
		if err := rows.Scan(&row.ID, &row.DocumentType, &row.Success, &row.ErrorMessage,
			&payload, &row.WordCount, &row.Confidence, &row.ProcessingTimeMS, &row.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &row.Payload); err != nil {
			return nil, fmt.Errorf("decode extraction %d payload: %w", row.ID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// EvaluationRow is a stored evaluation run.
type EvaluationRow struct {
	ID                    int64
	TotalDocuments        int
	SuccessfulExtractions int
	FailedExtractions     int
	MacroPrecision        float64
	MacroRecall           float64
	MacroF1               float64
	Payload               map[string]any
	CreatedAt             string
}

// SaveEvaluation stores a run's summary columns plus its full serialized
// form for later export.
func (s *Store) SaveEvaluation(ctx context.Context, results *eval.EvaluationResults) (int64, error) {
	payload, err := json.Marshal(results.ToMap())
	if err != nil {
		return 0, fmt.Errorf("marshal evaluation payload: %w", err)
	}

	out, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations
		 (total_documents, successful_extractions, failed_extractions,
		  macro_precision, macro_recall, macro_f1, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		results.TotalDocuments, results.SuccessfulExtractions, results.FailedExtractions,
		results.MacroPrecision(), results.MacroRecall(), results.MacroF1(), string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("insert evaluation: %w", err)
	}
	id, err := out.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.log.Info("store.evaluation.saved", "id", id, "documents", results.TotalDocuments)
	return id, nil
}

// GetEvaluation loads one stored run by id.
func (s *Store) GetEvaluation(ctx context.Context, id int64) (*EvaluationRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, total_documents, successful_extractions, failed_extractions,
		        macro_precision, macro_recall, macro_f1, payload, CAST(created_at AS TEXT)
		 FROM evaluations WHERE id = ?`, id)

	var out EvaluationRow
	var payload string
	err := row.Scan(&out.ID, &out.TotalDocuments, &out.SuccessfulExtractions, &out.FailedExtractions,
		&out.MacroPrecision, &out.MacroRecall, &out.MacroF1, &payload, &out.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("evaluation %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load evaluation %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(payload), &out.Payload); err != nil {
		return nil, fmt.Errorf("decode evaluation %d payload: %w", id, err)
	}
	return &out, nil
}

// LatestEvaluation loads the most recent stored run.
func (s *Store) LatestEvaluation(ctx context.Context) (*EvaluationRow, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM evaluations ORDER BY id DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no stored evaluations")
	}
	if err != nil {
		return nil, err
	}
	return s.GetEvaluation(ctx, id)
}
