package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lmercier/docextract/constants"
	"github.com/lmercier/docextract/internal/backend"
)

// Classifier determines the document type from OCR text. Classification is
// best effort: it never returns an error, any failure folds into unknown.
type Classifier struct {
	client backend.Client
	log    *slog.Logger
}

func NewClassifier(client backend.Client, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{client: client, log: logger}
}

func (c *Classifier) Classify(ctx context.Context, ocrText string) constants.DocumentType {
	if strings.TrimSpace(ocrText) == "" {
		return constants.DocTypeUnknown
	}

	answer, err := c.client.Generate(ctx, backend.ClassificationPrompt(ocrText))
	if err != nil {
		c.log.Warn("classify.backend_error", "error", err)
		return constants.DocTypeUnknown
	}

	docType := constants.ParseDocumentType(answer)
	c.log.Info("classify.ok", "document_type", docType)
	return docType
}
