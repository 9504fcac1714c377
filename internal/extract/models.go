// Package extract turns OCR text into typed invoice and contract records
// via the generation backend, and classifies documents when the caller did
// not name a type.
package extract

import (
	"github.com/shopspring/decimal"
)

// LineItem is one detail row of an invoice.
type LineItem struct {
	Description string
	Quantity    *float64
	UnitPrice   *decimal.Decimal
	TotalHT     *decimal.Decimal
	TVARate     *float64
}

// Invoice holds the structured fields recovered from an invoice. Optional
// fields are pointers; nil means the backend could not find the value.
// Dates are ISO strings (YYYY-MM-DD), already normalized.
type Invoice struct {
	InvoiceNumber *string
	InvoiceDate   *string
	DueDate       *string

	SupplierName      *string
	SupplierAddress   *string
	SupplierSIRET     *string
	SupplierVATNumber *string

	ClientName    *string
	ClientAddress *string
	ClientSIRET   *string

	TotalHT  *decimal.Decimal
	TotalTVA *decimal.Decimal
	TotalTTC *decimal.Decimal

	LineItems []LineItem

	ConfidenceScore  *float64
	RawText          string
	ExtractionMethod string
}

// FieldMap flattens the invoice into the serialized field names used by
// JSON output and evaluation. Amounts become plain floats, missing values
// stay nil. RawText is deliberately excluded.
func (inv *Invoice) FieldMap() map[string]any {
	items := make([]map[string]any, 0, len(inv.LineItems))
	for _, li := range inv.LineItems {
		items = append(items, map[string]any{
			"description": li.Description,
			"quantity":    floatPtrValue(li.Quantity),
			"unit_price":  decimalValue(li.UnitPrice),
			"total_ht":    decimalValue(li.TotalHT),
			"tva_rate":    floatPtrValue(li.TVARate),
		})
	}
	return map[string]any{
		"invoice_number":      strPtrValue(inv.InvoiceNumber),
		"invoice_date":        strPtrValue(inv.InvoiceDate),
		"due_date":            strPtrValue(inv.DueDate),
		"supplier_name":       strPtrValue(inv.SupplierName),
		"supplier_address":    strPtrValue(inv.SupplierAddress),
		"supplier_siret":      strPtrValue(inv.SupplierSIRET),
		"supplier_vat_number": strPtrValue(inv.SupplierVATNumber),
		"client_name":         strPtrValue(inv.ClientName),
		"client_address":      strPtrValue(inv.ClientAddress),
		"client_siret":        strPtrValue(inv.ClientSIRET),
		"total_ht":            decimalValue(inv.TotalHT),
		"total_tva":           decimalValue(inv.TotalTVA),
		"total_ttc":           decimalValue(inv.TotalTTC),
		"line_items":          items,
		"confidence_score":    floatPtrValue(inv.ConfidenceScore),
		"extraction_method":   inv.ExtractionMethod,
	}
}

// ContractType enumerates the supported contract categories.
type ContractType string

const (
	ContractService     ContractType = "service"
	ContractEmployment  ContractType = "employment"
	ContractLease       ContractType = "lease"
	ContractSale        ContractType = "sale"
	ContractNDA         ContractType = "nda"
	ContractPartnership ContractType = "partnership"
	ContractOther       ContractType = "other"
)

// ParseContractType maps a backend label onto a known contract type.
// Unrecognized labels fold into ContractOther.
func ParseContractType(s string) ContractType {
	switch t := ContractType(s); t {
	case ContractService, ContractEmployment, ContractLease,
		ContractSale, ContractNDA, ContractPartnership, ContractOther:
		return t
	default:
		return ContractOther
	}
}

// Party is one signatory side of a contract.
type Party struct {
	Name           string
	Role           *string
	Address        *string
	SIRET          *string
	Representative *string
}

// Clause is a notable contract clause flagged by the backend.
type Clause struct {
	Title      string
	Content    string
	Importance *string
}

// Contract holds the structured fields recovered from a contract.
type Contract struct {
	ContractType   *ContractType
	ContractNumber *string
	Title          *string

	Parties []Party

	SignatureDate *string
	EffectiveDate *string
	EndDate       *string
	Duration      *string

	TotalAmount  *decimal.Decimal
	PaymentTerms *string
	Currency     string

	KeyClauses            []Clause
	TerminationConditions *string
	RenewalTerms          *string
	Signatures            []string

	ConfidenceScore  *float64
	RawText          string
	ExtractionMethod string
}

// FieldMap flattens the contract for JSON output and evaluation, mirroring
// Invoice.FieldMap.
func (c *Contract) FieldMap() map[string]any {
	parties := make([]map[string]any, 0, len(c.Parties))
	for _, p := range c.Parties {
		parties = append(parties, map[string]any{
			"name":           p.Name,
			"role":           strPtrValue(p.Role),
			"address":        strPtrValue(p.Address),
			"siret":          strPtrValue(p.SIRET),
			"representative": strPtrValue(p.Representative),
		})
	}
	clauses := make([]map[string]any, 0, len(c.KeyClauses))
	for _, cl := range c.KeyClauses {
		clauses = append(clauses, map[string]any{
			"title":      cl.Title,
			"content":    cl.Content,
			"importance": strPtrValue(cl.Importance),
		})
	}

	var ctype any
	if c.ContractType != nil {
		ctype = string(*c.ContractType)
	}
	return map[string]any{
		"contract_type":          ctype,
		"contract_number":        strPtrValue(c.ContractNumber),
		"title":                  strPtrValue(c.Title),
		"parties":                parties,
		"signature_date":         strPtrValue(c.SignatureDate),
		"effective_date":         strPtrValue(c.EffectiveDate),
		"end_date":               strPtrValue(c.EndDate),
		"duration":               strPtrValue(c.Duration),
		"total_amount":           decimalValue(c.TotalAmount),
		"payment_terms":          strPtrValue(c.PaymentTerms),
		"currency":               c.Currency,
		"key_clauses":            clauses,
		"termination_conditions": strPtrValue(c.TerminationConditions),
		"renewal_terms":          strPtrValue(c.RenewalTerms),
		"signatures":             c.Signatures,
		"confidence_score":       floatPtrValue(c.ConfidenceScore),
		"extraction_method":      c.ExtractionMethod,
	}
}

func strPtrValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtrValue(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func decimalValue(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.InexactFloat64()
}
