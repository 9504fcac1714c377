package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateAgainstSchema validates an already-decoded JSON value against
// "schemaMap". Used to reject structurally broken backend answers before
// field parsing.
func ValidateAgainstSchema(schemaMap map[string]any, v any) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// Field parsing tolerates string amounts (cleaned later), so schemas accept
// both numbers and strings for monetary values. Every field is optional;
// the schemas only pin down the shapes.

func optString() map[string]any { return map[string]any{"type": []string{"string", "null"}} }
func optNumber() map[string]any {
	return map[string]any{"type": []string{"number", "string", "null"}}
}

func invoiceSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"invoice_number":      optString(),
			"invoice_date":        optString(),
			"due_date":            optString(),
			"supplier_name":       optString(),
			"supplier_address":    optString(),
			"supplier_siret":      optString(),
			"supplier_vat_number": optString(),
			"client_name":         optString(),
			"client_address":      optString(),
			"client_siret":        optString(),
			"total_ht":            optNumber(),
			"total_tva":           optNumber(),
			"total_ttc":           optNumber(),
			"line_items": map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"description": optString(),
						"quantity":    optNumber(),
						"unit_price":  optNumber(),
						"total_ht":    optNumber(),
						"tva_rate":    optNumber(),
					},
				},
			},
			"confidence_score": map[string]any{
				"type":    []string{"number", "null"},
				"minimum": 0,
				"maximum": 1,
			},
		},
	}
}

func contractSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"contract_type":   optString(),
			"contract_number": optString(),
			"title":           optString(),
			"parties": map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":           optString(),
						"role":           optString(),
						"address":        optString(),
						"siret":          optString(),
						"representative": optString(),
					},
				},
			},
			"signature_date": optString(),
			"effective_date": optString(),
			"end_date":       optString(),
			"duration":       optString(),
			"total_amount":   optNumber(),
			"payment_terms":  optString(),
			"currency":       optString(),
			"key_clauses": map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":      optString(),
						"content":    optString(),
						"importance": optString(),
					},
				},
			},
			"termination_conditions": optString(),
			"renewal_terms":          optString(),
			"signatures": map[string]any{
				"type":  []string{"array", "null"},
				"items": optString(),
			},
			"confidence_score": map[string]any{
				"type":    []string{"number", "null"},
				"minimum": 0,
				"maximum": 1,
			},
		},
	}
}
