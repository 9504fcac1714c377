package extract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmercier/docextract/constants"
	"github.com/lmercier/docextract/internal/common"
)

// stubClient replays canned answers so extraction logic can be tested
// without a live backend.
type stubClient struct {
	answer string
	err    error
	calls  int
}

func (s *stubClient) Generate(context.Context, string) (string, error) {
	s.calls++
	return s.answer, s.err
}

func (s *stubClient) GenerateJSON(context.Context, string) (map[string]any, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s.answer), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *stubClient) IsAvailable(context.Context) bool { return true }

func TestInvoiceExtractorEmptyInput(t *testing.T) {
	e := NewInvoiceExtractor(&stubClient{}, nil)

	_, err := e.Extract(context.Background(), "   \n\t ")
	assert.ErrorIs(t, err, common.ErrEmptyInput)
}

func TestInvoiceExtractorParsesAndNormalizes(t *testing.T) {
	stub := &stubClient{answer: `{
		"invoice_number": "FA-2024-001",
		"invoice_date": "15/01/2024",
		"due_date": null,
		"supplier_name": "ACME SARL",
		"total_ht": 1000,
		"total_tva": "200,00",
		"total_ttc": "1 200,00 €",
		"line_items": [
			{"description": "Conseil", "quantity": 2, "unit_price": 500, "total_ht": 1000, "tva_rate": 20}
		],
		"confidence_score": 0.9
	}`}
	e := NewInvoiceExtractor(stub, nil)

	inv, err := e.Extract(context.Background(), "Facture N° FA-2024-001")
	require.NoError(t, err)

	require.NotNil(t, inv.InvoiceNumber)
	assert.Equal(t, "FA-2024-001", *inv.InvoiceNumber)
	require.NotNil(t, inv.InvoiceDate)
	assert.Equal(t, "2024-01-15", *inv.InvoiceDate)
	assert.Nil(t, inv.DueDate)

	require.NotNil(t, inv.TotalTTC)
	assert.True(t, inv.TotalTTC.Equal(decimal.NewFromInt(1200)))
	require.NotNil(t, inv.TotalTVA)
	assert.True(t, inv.TotalTVA.Equal(decimal.NewFromInt(200)))

	require.Len(t, inv.LineItems, 1)
	li := inv.LineItems[0]
	assert.Equal(t, "Conseil", li.Description)
	require.NotNil(t, li.Quantity)
	assert.Equal(t, 2.0, *li.Quantity)
	require.NotNil(t, li.UnitPrice)
	assert.True(t, li.UnitPrice.Equal(decimal.NewFromInt(500)))

	assert.Equal(t, "llm", inv.ExtractionMethod)
	assert.Equal(t, "Facture N° FA-2024-001", inv.RawText)
}

func TestInvoiceExtractorUnparseableFieldsDegradeToNil(t *testing.T) {
	stub := &stubClient{answer: `{
		"invoice_number": "FA-1",
		"invoice_date": "pas une date",
		"total_ttc": "n/a"
	}`}
	e := NewInvoiceExtractor(stub, nil)

	inv, err := e.Extract(context.Background(), "texte")
	require.NoError(t, err)
	assert.Nil(t, inv.InvoiceDate)
	assert.Nil(t, inv.TotalTTC)
	require.NotNil(t, inv.InvoiceNumber)
}

func TestInvoiceExtractorBackendFailure(t *testing.T) {
	stub := &stubClient{err: errors.New("connection refused")}
	e := NewInvoiceExtractor(stub, nil)

	_, err := e.Extract(context.Background(), "texte")
	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "invoice", xerr.DocumentType)
}

func TestInvoiceExtractorRejectsOutOfRangeConfidence(t *testing.T) {
	stub := &stubClient{answer: `{"invoice_number": "FA-1", "confidence_score": 2.5}`}
	e := NewInvoiceExtractor(stub, nil)

	_, err := e.Extract(context.Background(), "texte")
	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
}

func TestContractExtractorParsesNestedStructures(t *testing.T) {
	stub := &stubClient{answer: `{
		"contract_type": "LEASE",
		"title": "Contrat de bail",
		"parties": [
			{"name": "Bailleur SARL", "role": "landlord"},
			{"name": "Locataire", "role": "tenant", "siret": "12345678901234"}
		],
		"signature_date": "01/02/2024",
		"total_amount": "850,00",
		"key_clauses": [
			{"title": "Résiliation", "content": "Préavis de 3 mois", "importance": "high"}
		],
		"signatures": ["Jean Dupont"],
		"confidence_score": 0.8
	}`}
	e := NewContractExtractor(stub, nil)

	c, err := e.Extract(context.Background(), "CONTRAT DE BAIL")
	require.NoError(t, err)

	require.NotNil(t, c.ContractType)
	assert.Equal(t, ContractLease, *c.ContractType)
	require.NotNil(t, c.SignatureDate)
	assert.Equal(t, "2024-02-01", *c.SignatureDate)
	require.NotNil(t, c.TotalAmount)
	assert.True(t, c.TotalAmount.Equal(decimal.NewFromInt(850)))

	require.Len(t, c.Parties, 2)
	assert.Equal(t, "Bailleur SARL", c.Parties[0].Name)
	require.NotNil(t, c.Parties[1].SIRET)

	require.Len(t, c.KeyClauses, 1)
	assert.Equal(t, "Résiliation", c.KeyClauses[0].Title)
	assert.Equal(t, []string{"Jean Dupont"}, c.Signatures)

	// EUR is the default when the backend omits the currency.
	assert.Equal(t, "EUR", c.Currency)
}

func TestContractExtractorUnknownTypeFoldsToOther(t *testing.T) {
	stub := &stubClient{answer: `{"contract_type": "franchise"}`}
	e := NewContractExtractor(stub, nil)

	c, err := e.Extract(context.Background(), "texte")
	require.NoError(t, err)
	require.NotNil(t, c.ContractType)
	assert.Equal(t, ContractOther, *c.ContractType)
}

func TestInvoiceFieldMapFlattensOptionals(t *testing.T) {
	num := "FA-1"
	ttc := decimal.NewFromFloat(1200.5)
	inv := &Invoice{
		InvoiceNumber: &num,
		TotalTTC:      &ttc,
		RawText:       "should not appear",
	}

	m := inv.FieldMap()
	assert.Equal(t, "FA-1", m["invoice_number"])
	assert.Equal(t, 1200.5, m["total_ttc"])
	assert.Nil(t, m["total_ht"])
	assert.NotContains(t, m, "raw_text")
}

func TestClassifier(t *testing.T) {
	t.Run("maps known labels", func(t *testing.T) {
		c := NewClassifier(&stubClient{answer: "  Invoice \n"}, nil)
		assert.Equal(t, constants.DocTypeInvoice, c.Classify(context.Background(), "Facture"))
	})

	t.Run("unrecognized label is unknown", func(t *testing.T) {
		c := NewClassifier(&stubClient{answer: "this looks like a receipt"}, nil)
		assert.Equal(t, constants.DocTypeUnknown, c.Classify(context.Background(), "texte"))
	})

	t.Run("backend failure is unknown, not an error", func(t *testing.T) {
		c := NewClassifier(&stubClient{err: errors.New("boom")}, nil)
		assert.Equal(t, constants.DocTypeUnknown, c.Classify(context.Background(), "texte"))
	})

	t.Run("empty text skips the backend", func(t *testing.T) {
		stub := &stubClient{answer: "invoice"}
		c := NewClassifier(stub, nil)
		assert.Equal(t, constants.DocTypeUnknown, c.Classify(context.Background(), "   "))
		assert.Zero(t, stub.calls)
	})
}
