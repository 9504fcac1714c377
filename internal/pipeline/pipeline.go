// Package pipeline orchestrates the linear document flow: preprocessing,
// OCR, optional classification, then structured extraction.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmercier/docextract/constants"
	"github.com/lmercier/docextract/internal/backend"
	"github.com/lmercier/docextract/internal/common"
	"github.com/lmercier/docextract/internal/config"
	"github.com/lmercier/docextract/internal/extract"
	"github.com/lmercier/docextract/internal/ocr"
	"github.com/lmercier/docextract/internal/pdf"
	"github.com/lmercier/docextract/internal/preprocess"
)

// pageSeparator joins multi-page OCR text; reading order follows page order.
const pageSeparator = "\n\n"

// Pipeline runs documents through the extraction stages. The backend is
// chosen once at construction and never revisited: a live client that cannot
// be built or probed is substituted by the simulation with a logged warning.
// A Pipeline is not safe for concurrent callers.
type Pipeline struct {
	cfg        *config.Config
	enhancer   *preprocess.Enhancer
	ocr        *ocr.Extractor
	rasterizer pdf.Rasterizer
	client     backend.Client

	invoices   *extract.InvoiceExtractor
	contracts  *extract.ContractExtractor
	classifier *extract.Classifier

	log *slog.Logger
}

// Option overrides a pipeline capability, mainly for tests.
type Option func(*Pipeline)

func WithBackend(client backend.Client) Option {
	return func(p *Pipeline) { p.client = client }
}

func WithEngine(engine ocr.Engine) Option {
	return func(p *Pipeline) { p.ocr = ocr.NewExtractor(engine, p.cfg.OCR, p.log) }
}

func WithRasterizer(r pdf.Rasterizer) Option {
	return func(p *Pipeline) { p.rasterizer = r }
}

func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		cfg:        cfg,
		enhancer:   preprocess.NewEnhancer(cfg.Preprocess, logger),
		ocr:        ocr.NewExtractor(ocr.NewTesseractEngine(cfg.OCR), cfg.OCR, logger),
		rasterizer: pdf.NewPdftoppmRasterizer(cfg.PDF),
		log:        logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = selectBackend(cfg.Backend, logger)
	}

	p.invoices = extract.NewInvoiceExtractor(p.client, logger)
	p.contracts = extract.NewContractExtractor(p.client, logger)
	p.classifier = extract.NewClassifier(p.client, logger)

	logger.Info("pipeline.ready")
	return p
}

// selectBackend prefers the live client; any construction error or failed
// availability probe substitutes the simulation, once, for the pipeline's
// lifetime.
func selectBackend(cfg config.BackendConfig, logger *slog.Logger) backend.Client {
	if cfg.UseSim {
		logger.Info("pipeline.backend", "client", "sim", "reason", "configured")
		return backend.NewSimClient(logger)
	}

	live, err := backend.NewHTTPClient(cfg, logger)
	if err != nil {
		logger.Warn("pipeline.backend.fallback", "client", "sim", "error", err)
		return backend.NewSimClient(logger)
	}

	probeCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if !live.IsAvailable(probeCtx) {
		logger.Warn("pipeline.backend.fallback", "client", "sim", "reason", "availability probe failed")
		return backend.NewSimClient(logger)
	}

	logger.Info("pipeline.backend", "client", "live", "model", cfg.Model)
	return live
}

// Process runs a document file through the full pipeline. explicitType, when
// non-empty, skips classification. Failures never surface as errors; they
// come back as a failed result with the stage's message.
func (p *Pipeline) Process(ctx context.Context, path string, explicitType string) ExtractionResult {
	docType := constants.ParseDocumentType(explicitType)
	p.log.Info("pipeline.process", "path", path, "explicit_type", explicitType)

	if _, err := os.Stat(path); err != nil {
		return p.fail(explicitType, constants.StagePreprocessing,
			common.NewAppError("INPUT_ERROR", fmt.Sprintf("file not found: %s", path), common.ErrInvalidInput))
	}

	images, err := p.loadPages(ctx, path)
	if err != nil {
		return p.fail(explicitType, constants.StagePreprocessing, err)
	}

	return p.run(ctx, images, explicitType, docType)
}

// ProcessBytes runs an in-memory document through the pipeline. The filename
// hint decides whether the bytes are rasterized as a PDF or decoded as an
// image.
func (p *Pipeline) ProcessBytes(ctx context.Context, data []byte, filenameHint string, explicitType string) ExtractionResult {
	docType := constants.ParseDocumentType(explicitType)
	p.log.Info("pipeline.process_bytes", "bytes", len(data), "filename", filenameHint)

	var images []image.Image
	var err error
	if constants.MapExtToFormat(filepath.Ext(filenameHint)) == constants.PDF {
		images, err = p.rasterizeBytes(ctx, data)
	} else {
		var img image.Image
		img, err = preprocess.DecodeImage(data)
		if err == nil {
			images = []image.Image{img}
		}
	}
	if err != nil {
		return p.fail(explicitType, constants.StagePreprocessing, err)
	}

	return p.run(ctx, images, explicitType, docType)
}

// run executes the stages shared by Process and ProcessBytes, starting from
// decoded page images.
func (p *Pipeline) run(ctx context.Context, images []image.Image, explicitType string, docType constants.DocumentType) ExtractionResult {
	p.log.Debug("pipeline.stage", "stage", constants.StagePreprocessing, "pages", len(images))
	enhanced := p.enhancer.EnhanceBatch(images)

	p.log.Debug("pipeline.stage", "stage", constants.StageTextExtraction)
	ocrRes, err := p.ocr.ExtractFromMultiple(ctx, enhanced, pageSeparator)
	if err != nil {
		return p.fail(explicitType, constants.StageTextExtraction, err)
	}
	p.log.Info("pipeline.ocr.done",
		"words", ocrRes.WordCount,
		"confidence", ocrRes.Confidence,
	)

	if explicitType == "" {
		p.log.Debug("pipeline.stage", "stage", constants.StageClassification)
		docType = p.classifier.Classify(ctx, ocrRes.Text)
		p.log.Info("pipeline.classified", "document_type", docType)
	}

	p.log.Debug("pipeline.stage", "stage", constants.StageExtraction, "document_type", docType)
	var record Record
	switch docType {
	case constants.DocTypeInvoice:
		record, err = p.invoices.Extract(ctx, ocrRes.Text)
	case constants.DocTypeContract:
		record, err = p.contracts.Extract(ctx, ocrRes.Text)
	default:
		err = common.NewAppError("INPUT_ERROR",
			fmt.Sprintf("unsupported document type: %s", docType), common.ErrInvalidInput)
	}
	if err != nil {
		return p.fail(string(docType), constants.StageExtraction, err)
	}

	p.log.Info("pipeline.done", "document_type", docType, "stage", constants.StageDone)
	return successResult(docType, record, ocrRes)
}

// ExtractFromText skips preprocessing and OCR, running structured
// extraction directly over already-recognized text. Evaluation uses this for
// annotated samples whose source document is not on disk.
func (p *Pipeline) ExtractFromText(ctx context.Context, text string, docType constants.DocumentType) (Record, error) {
	switch docType {
	case constants.DocTypeInvoice:
		return p.invoices.Extract(ctx, text)
	case constants.DocTypeContract:
		return p.contracts.Extract(ctx, text)
	default:
		return nil, common.NewAppError("INPUT_ERROR",
			fmt.Sprintf("unsupported document type: %s", docType), common.ErrInvalidInput)
	}
}

// loadPages turns a document file into page images: PDFs are rasterized,
// single images decoded directly.
func (p *Pipeline) loadPages(ctx context.Context, path string) ([]image.Image, error) {
	ext := filepath.Ext(path)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		return p.rasterizer.PagesToImages(ctx, path, p.cfg.PDF.DPI)
	case constants.IMAGE:
		img, err := preprocess.LoadImage(path)
		if err != nil {
			return nil, err
		}
		return []image.Image{img}, nil
	default:
		return nil, common.NewAppError("INPUT_ERROR",
			fmt.Sprintf("unsupported file format: %s", ext), common.ErrInvalidInput)
	}
}

// rasterizeBytes spills PDF bytes to a temp file for the rasterizer.
func (p *Pipeline) rasterizeBytes(ctx context.Context, data []byte) ([]image.Image, error) {
	tmp, err := os.CreateTemp("", "dx-doc-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	return p.rasterizer.PagesToImages(ctx, tmp.Name(), p.cfg.PDF.DPI)
}

func (p *Pipeline) fail(explicitType string, stage constants.StageStatus, err error) ExtractionResult {
	p.log.Error("pipeline.failed", "stage", stage, "error", err)

	docType := constants.DocTypeUnknown
	if strings.TrimSpace(explicitType) != "" {
		docType = constants.ParseDocumentType(explicitType)
	}
	return failureResult(docType, err)
}
