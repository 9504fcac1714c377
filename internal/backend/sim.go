package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// SimClient derives plausible answers from the prompt text alone, using
// pattern search for common document labels. It backs the one-time fallback
// when the live backend is unavailable and keeps tests and offline
// evaluation runs reproducible: the same text always produces the same
// answer. Failure injection is the only source of randomness and is off by
// default.
type SimClient struct {
	failRate float64
	rng      *rand.Rand
	log      *slog.Logger
}

// SimOption configures a SimClient.
type SimOption func(*SimClient)

// WithFailures makes the client return an error with the given independent
// probability per call, for resilience testing.
func WithFailures(rate float64, seed int64) SimOption {
	return func(c *SimClient) {
		c.failRate = rate
		c.rng = rand.New(rand.NewSource(seed))
	}
}

func NewSimClient(logger *slog.Logger, opts ...SimOption) *SimClient {
	if logger == nil {
		logger = slog.Default()
	}
	c := &SimClient{log: logger}
	for _, opt := range opts {
		opt(c)
	}
	c.log.Info("backend.sim.ready", "fail_rate", c.failRate)
	return c
}

// IsAvailable always reports true; the simulation has no external state.
func (c *SimClient) IsAvailable(context.Context) bool { return true }

func (c *SimClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.maybeFail(); err != nil {
		return "", err
	}

	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "determine the document type"):
		return c.classify(promptText(prompt)), nil
	case strings.Contains(lower, "invoice"):
		return c.invoiceAnswer(promptText(prompt)), nil
	case strings.Contains(lower, "contract"):
		return c.contractAnswer(promptText(prompt)), nil
	default:
		return "{}", nil
	}
}

func (c *SimClient) GenerateJSON(ctx context.Context, prompt string) (map[string]any, error) {
	answer, err := c.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParseJSONAnswer(answer)
}

func (c *SimClient) maybeFail() error {
	if c.rng != nil && c.rng.Float64() < c.failRate {
		return errors.New("simulated backend failure")
	}
	return nil
}

var reFence = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")

// promptText pulls the OCR text out of a prompt's code fence.
func promptText(prompt string) string {
	if m := reFence.FindStringSubmatch(prompt); m != nil {
		return m[1]
	}
	return prompt
}

func (c *SimClient) classify(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.TrimSpace(lower) == "":
		return "unknown"
	case strings.Contains(lower, "facture") || strings.Contains(lower, "invoice"):
		return "invoice"
	case strings.Contains(lower, "contrat") || strings.Contains(lower, "contract") ||
		strings.Contains(lower, "bail") || strings.Contains(lower, "entre les soussign"):
		return "contract"
	default:
		return "unknown"
	}
}

var (
	reInvoiceNumber = []*regexp.Regexp{
		regexp.MustCompile(`(?i)facture\s*n[°o]?\s*:?\s*([\w-]+)`),
		regexp.MustCompile(`(?i)invoice\s*(?:no|number|#)\s*:?\s*([\w-]+)`),
		regexp.MustCompile(`(?i)\b(FA[-_]?\d+)\b`),
	}
	reSupplier = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^([A-Z][A-Za-z&' ]+(?:SARL|SAS|SA|EURL|GmbH|Ltd|Inc))\b`),
		regexp.MustCompile(`(?i)société\s+([A-Za-zÀ-ÿ' ]+)`),
	}
	reDate = regexp.MustCompile(`\b(\d{2})[/\-](\d{2})[/\-](\d{4})\b`)
)

func findPattern(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if len(m) > 1 {
				return strings.TrimSpace(m[1])
			}
			return strings.TrimSpace(m[0])
		}
	}
	return ""
}

// findDate returns the first slash/dash date as ISO, assuming day-month-year.
func findDate(text string) string {
	if m := reDate.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[3], m[2], m[1])
	}
	return ""
}

// findAmount scans for a keyword followed by an amount.
func findAmount(text string, keywords []string) (float64, bool) {
	for _, kw := range keywords {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw) + `\s*:?\s*(\d[\d ]*[,.]?\d*)\s*€?`)
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		s := strings.ReplaceAll(strings.ReplaceAll(m[1], " ", ""), ",", ".")
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// seedFor derives a stable placeholder seed from the text so that answers
// are reproducible.
func seedFor(text string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	return h.Sum32()
}

func (c *SimClient) invoiceAnswer(text string) string {
	seed := seedFor(text)

	invoiceNumber := findPattern(text, reInvoiceNumber)
	invoiceDate := findDate(text)
	supplierName := findPattern(text, reSupplier)
	totalTTC, okTTC := findAmount(text, []string{"total ttc", "ttc", "net à payer", "total"})
	totalHT, okHT := findAmount(text, []string{"total ht", "ht", "hors taxes"})
	totalTVA, okTVA := findAmount(text, []string{"total tva", "tva"})

	// Derive the tax amount when both totals were found.
	if okTTC && okHT && !okTVA {
		totalTVA = float64(int((totalTTC-totalHT)*100+0.5)) / 100
		okTVA = true
	}

	found := 0
	for _, ok := range []bool{invoiceNumber != "", invoiceDate != "", okTTC, supplierName != ""} {
		if ok {
			found++
		}
	}
	confidence := 0.5 + float64(found)*0.1
	if confidence > 0.95 {
		confidence = 0.95
	}

	resp := map[string]any{
		"invoice_number":      orPlaceholder(invoiceNumber, fmt.Sprintf("SIM-%04d", seed%9000+1000)),
		"invoice_date":        orPlaceholder(invoiceDate, "2024-01-15"),
		"due_date":            nil,
		"supplier_name":       orPlaceholder(supplierName, "Fournisseur Simulé SARL"),
		"supplier_address":    "123 Rue de la Simulation, 75001 Paris",
		"supplier_siret":      "12345678901234",
		"supplier_vat_number": "FR12345678901",
		"client_name":         "Client Exemple",
		"client_address":      "456 Avenue du Test, 69001 Lyon",
		"client_siret":        nil,
		"total_ht":            numOrPlaceholder(totalHT, okHT, float64(seed%4900+100)),
		"total_tva":           numOrNil(totalTVA, okTVA),
		"total_ttc":           numOrPlaceholder(totalTTC, okTTC, float64(seed%5880+120)),
		"line_items": []map[string]any{
			{
				"description": "Service de démonstration",
				"quantity":    1,
				"unit_price":  numOrPlaceholder(totalHT, okHT, 1000.0),
				"total_ht":    numOrPlaceholder(totalHT, okHT, 1000.0),
				"tva_rate":    20.0,
			},
		},
		"confidence_score": confidence,
	}
	if invoiceDate != "" {
		resp["due_date"] = "2024-02-14"
	}
	return mustJSON(resp)
}

func (c *SimClient) contractAnswer(text string) string {
	seed := seedFor(text)
	lower := strings.ToLower(text)

	contractType := "other"
	switch {
	case containsAny(lower, "emploi", "travail", "salarié", "employeur", "employment"):
		contractType = "employment"
	case containsAny(lower, "prestation", "service", "mission"):
		contractType = "service"
	case containsAny(lower, "bail", "location", "loyer", "locataire", "lease"):
		contractType = "lease"
	case containsAny(lower, "vente", "achat", "acquéreur", "sale"):
		contractType = "sale"
	case containsAny(lower, "confidentialité", "nda", "non-disclosure"):
		contractType = "nda"
	}

	signatureDate := findDate(text)
	amount, okAmount := findAmount(text, []string{"montant", "prix", "rémunération", "loyer"})

	confidence := 0.5
	if signatureDate != "" || okAmount {
		confidence = 0.75
	}

	resp := map[string]any{
		"contract_type":   contractType,
		"contract_number": fmt.Sprintf("CTR-2024-%03d", seed%900+100),
		"title":           "Contrat de " + contractType,
		"parties": []map[string]any{
			{
				"name":           "Société ABC",
				"role":           "Prestataire",
				"address":        "10 Rue du Commerce, 75001 Paris",
				"siret":          "98765432109876",
				"representative": "Jean Dupont",
			},
			{
				"name":           "Entreprise XYZ",
				"role":           "Client",
				"address":        "20 Avenue des Affaires, 69002 Lyon",
				"siret":          "12345678901234",
				"representative": "Marie Martin",
			},
		},
		"signature_date": orPlaceholder(signatureDate, "2024-01-15"),
		"effective_date": orPlaceholder(signatureDate, "2024-01-15"),
		"end_date":       "2025-01-15",
		"duration":       "12 mois",
		"total_amount":   numOrPlaceholder(amount, okAmount, float64(seed%90000+10000)),
		"payment_terms":  "30 jours fin de mois",
		"currency":       "EUR",
		"key_clauses": []map[string]any{
			{
				"title":      "Confidentialité",
				"content":    "Les parties s'engagent à maintenir la confidentialité des informations échangées",
				"importance": "high",
			},
			{
				"title":      "Résiliation",
				"content":    "Le contrat peut être résilié avec un préavis de 3 mois",
				"importance": "high",
			},
		},
		"termination_conditions": "Préavis de 3 mois",
		"renewal_terms":          "Reconduction tacite",
		"signatures":             []string{"Jean Dupont", "Marie Martin"},
		"confidence_score":       confidence,
	}
	return mustJSON(resp)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func orPlaceholder(v, placeholder string) string {
	if v != "" {
		return v
	}
	return placeholder
}

func numOrPlaceholder(v float64, ok bool, placeholder float64) float64 {
	if ok {
		return v
	}
	return placeholder
}

func numOrNil(v float64, ok bool) any {
	if ok {
		return v
	}
	return nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
