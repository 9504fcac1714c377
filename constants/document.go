package constants

import "strings"

// DocumentType is the canonical document classification label.
type DocumentType string

// Stable values (serialized into results, keep these exact strings).
const (
	DocTypeInvoice  DocumentType = "invoice"
	DocTypeContract DocumentType = "contract"
	DocTypeUnknown  DocumentType = "unknown"
)

var allDocumentTypes = []DocumentType{DocTypeInvoice, DocTypeContract}

// DocumentTypeLabels returns the classifiable labels (unknown excluded).
func DocumentTypeLabels() []string {
	result := make([]string, len(allDocumentTypes))
	for i, t := range allDocumentTypes {
		result[i] = string(t)
	}
	return result
}

// ParseDocumentType maps a free-form label onto a known type.
// Anything unrecognized maps to DocTypeUnknown.
func ParseDocumentType(input string) DocumentType {
	switch DocumentType(strings.ToLower(strings.TrimSpace(input))) {
	case DocTypeInvoice:
		return DocTypeInvoice
	case DocTypeContract:
		return DocTypeContract
	default:
		return DocTypeUnknown
	}
}

// StageStatus tracks a document through the orchestrator's linear state machine.
type StageStatus string

const (
	StageIdle           StageStatus = "IDLE"
	StagePreprocessing  StageStatus = "PREPROCESSING"
	StageTextExtraction StageStatus = "TEXT_EXTRACTION"
	StageClassification StageStatus = "CLASSIFICATION"
	StageExtraction     StageStatus = "STRUCTURED_EXTRACTION"
	StageDone           StageStatus = "DONE"
	StageFailed         StageStatus = "FAILED"
)
