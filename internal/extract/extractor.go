package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lmercier/docextract/internal/backend"
	"github.com/lmercier/docextract/internal/common"
)

// ExtractionError marks a failed structured extraction. It aborts the whole
// document: the orchestrator converts it into a failed result, never a
// partial record.
type ExtractionError struct {
	DocumentType string
	Cause        error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction failed: %v", e.DocumentType, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// InvoiceExtractor recovers invoice fields from OCR text.
type InvoiceExtractor struct {
	client backend.Client
	log    *slog.Logger
}

func NewInvoiceExtractor(client backend.Client, logger *slog.Logger) *InvoiceExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceExtractor{client: client, log: logger}
}

func (e *InvoiceExtractor) Extract(ctx context.Context, ocrText string) (*Invoice, error) {
	if strings.TrimSpace(ocrText) == "" {
		return nil, common.NewAppError("INPUT_ERROR", "empty OCR text", common.ErrEmptyInput)
	}

	data, err := e.client.GenerateJSON(ctx, backend.InvoicePrompt(ocrText))
	if err != nil {
		return nil, &ExtractionError{DocumentType: "invoice", Cause: err}
	}
	if err := ValidateAgainstSchema(invoiceSchema(), data); err != nil {
		return nil, &ExtractionError{DocumentType: "invoice", Cause: err}
	}

	inv := e.parseInvoice(data, ocrText)
	e.log.Info("extract.invoice.ok",
		"line_items", len(inv.LineItems),
		"confidence", floatPtrValue(inv.ConfidenceScore),
	)
	return inv, nil
}

func (e *InvoiceExtractor) parseInvoice(data map[string]any, ocrText string) *Invoice {
	var items []LineItem
	for _, raw := range asObjectSlice(data["line_items"]) {
		items = append(items, LineItem{
			Description: getStringDefault(raw, "description", ""),
			Quantity:    getFloat(raw, "quantity"),
			UnitPrice:   ParseDecimal(raw["unit_price"], e.log),
			TotalHT:     ParseDecimal(raw["total_ht"], e.log),
			TVARate:     getFloat(raw, "tva_rate"),
		})
	}

	return &Invoice{
		InvoiceNumber:     getString(data, "invoice_number"),
		InvoiceDate:       ParseDate(data["invoice_date"], e.log),
		DueDate:           ParseDate(data["due_date"], e.log),
		SupplierName:      getString(data, "supplier_name"),
		SupplierAddress:   getString(data, "supplier_address"),
		SupplierSIRET:     getString(data, "supplier_siret"),
		SupplierVATNumber: getString(data, "supplier_vat_number"),
		ClientName:        getString(data, "client_name"),
		ClientAddress:     getString(data, "client_address"),
		ClientSIRET:       getString(data, "client_siret"),
		TotalHT:           ParseDecimal(data["total_ht"], e.log),
		TotalTVA:          ParseDecimal(data["total_tva"], e.log),
		TotalTTC:          ParseDecimal(data["total_ttc"], e.log),
		LineItems:         items,
		ConfidenceScore:   getFloat(data, "confidence_score"),
		RawText:           ocrText,
		ExtractionMethod:  "llm",
	}
}

// ContractExtractor recovers contract fields from OCR text.
type ContractExtractor struct {
	client backend.Client
	log    *slog.Logger
}

func NewContractExtractor(client backend.Client, logger *slog.Logger) *ContractExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContractExtractor{client: client, log: logger}
}

func (e *ContractExtractor) Extract(ctx context.Context, ocrText string) (*Contract, error) {
	if strings.TrimSpace(ocrText) == "" {
		return nil, common.NewAppError("INPUT_ERROR", "empty OCR text", common.ErrEmptyInput)
	}

	data, err := e.client.GenerateJSON(ctx, backend.ContractPrompt(ocrText))
	if err != nil {
		return nil, &ExtractionError{DocumentType: "contract", Cause: err}
	}
	if err := ValidateAgainstSchema(contractSchema(), data); err != nil {
		return nil, &ExtractionError{DocumentType: "contract", Cause: err}
	}

	c := e.parseContract(data, ocrText)
	e.log.Info("extract.contract.ok",
		"parties", len(c.Parties),
		"clauses", len(c.KeyClauses),
		"confidence", floatPtrValue(c.ConfidenceScore),
	)
	return c, nil
}

func (e *ContractExtractor) parseContract(data map[string]any, ocrText string) *Contract {
	var ctype *ContractType
	if s := getString(data, "contract_type"); s != nil {
		t := ParseContractType(strings.ToLower(*s))
		ctype = &t
	}

	var parties []Party
	for _, raw := range asObjectSlice(data["parties"]) {
		parties = append(parties, Party{
			Name:           getStringDefault(raw, "name", ""),
			Role:           getString(raw, "role"),
			Address:        getString(raw, "address"),
			SIRET:          getString(raw, "siret"),
			Representative: getString(raw, "representative"),
		})
	}

	var clauses []Clause
	for _, raw := range asObjectSlice(data["key_clauses"]) {
		clauses = append(clauses, Clause{
			Title:      getStringDefault(raw, "title", ""),
			Content:    getStringDefault(raw, "content", ""),
			Importance: getString(raw, "importance"),
		})
	}

	var signatures []string
	if list, ok := data["signatures"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				signatures = append(signatures, s)
			}
		}
	}

	return &Contract{
		ContractType:          ctype,
		ContractNumber:        getString(data, "contract_number"),
		Title:                 getString(data, "title"),
		Parties:               parties,
		SignatureDate:         ParseDate(data["signature_date"], e.log),
		EffectiveDate:         ParseDate(data["effective_date"], e.log),
		EndDate:               ParseDate(data["end_date"], e.log),
		Duration:              getString(data, "duration"),
		TotalAmount:           ParseDecimal(data["total_amount"], e.log),
		PaymentTerms:          getString(data, "payment_terms"),
		Currency:              getStringDefault(data, "currency", "EUR"),
		KeyClauses:            clauses,
		TerminationConditions: getString(data, "termination_conditions"),
		RenewalTerms:          getString(data, "renewal_terms"),
		Signatures:            signatures,
		ConfidenceScore:       getFloat(data, "confidence_score"),
		RawText:               ocrText,
		ExtractionMethod:      "llm",
	}
}

func getString(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok {
		return &s
	}
	return nil
}

func getStringDefault(m map[string]any, key, def string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return def
}

func getFloat(m map[string]any, key string) *float64 {
	if f, ok := m[key].(float64); ok {
		return &f
	}
	return nil
}

func asObjectSlice(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
