package backend

import "fmt"

// Prompt templates. Each asks for strict JSON so ParseJSONAnswer can decode
// the reply; null marks fields the model could not find.

const invoicePromptHeader = `You are an expert at extracting data from invoices. Analyze the OCR text below and extract structured information.

DOCUMENT TEXT:
` + "```" + `
`

const invoicePromptFooter = "```" + `

Extract the following information as strict JSON:

{
    "invoice_number": "invoice number or null",
    "invoice_date": "date as YYYY-MM-DD or null",
    "due_date": "due date as YYYY-MM-DD or null",
    "supplier_name": "supplier name or null",
    "supplier_address": "full supplier address or null",
    "supplier_siret": "SIRET number (14 digits) or null",
    "supplier_vat_number": "intra-community VAT number or null",
    "client_name": "client name or null",
    "client_address": "full client address or null",
    "client_siret": "client SIRET number or null",
    "total_ht": amount excluding tax as decimal number or null,
    "total_tva": tax amount as decimal number or null,
    "total_ttc": amount including tax as decimal number or null,
    "line_items": [
        {
            "description": "product or service description",
            "quantity": quantity as number or null,
            "unit_price": unit price excluding tax as number or null,
            "total_ht": line total excluding tax as number or null,
            "tva_rate": tax rate in percent or null
        }
    ],
    "confidence_score": confidence between 0 and 1
}

IMPORTANT RULES:
1. Return ONLY the JSON, no text before or after
2. Use null for fields you cannot find
3. Amounts must be numbers, not strings
4. Dates must be formatted YYYY-MM-DD
5. The confidence score reflects extraction quality (1.0 = fully confident)

JSON:`

const contractPromptHeader = `You are an expert at legal contract analysis. Analyze the OCR text below and extract structured information.

DOCUMENT TEXT:
` + "```" + `
`

const contractPromptFooter = "```" + `

Extract the following information as strict JSON:

{
    "contract_type": "service|employment|lease|sale|nda|partnership|other",
    "contract_number": "contract reference or null",
    "title": "contract title or null",
    "parties": [
        {
            "name": "party name",
            "role": "role (seller, buyer, employer, employee, landlord, tenant, ...)",
            "address": "address or null",
            "siret": "SIRET number or null",
            "representative": "legal representative or null"
        }
    ],
    "signature_date": "signature date as YYYY-MM-DD or null",
    "effective_date": "effective date as YYYY-MM-DD or null",
    "end_date": "end date as YYYY-MM-DD or null",
    "duration": "contract duration (e.g. '12 months') or null",
    "total_amount": total amount as decimal number or null,
    "payment_terms": "payment terms or null",
    "currency": "currency code (EUR, USD, ...) or EUR by default",
    "key_clauses": [
        {
            "title": "clause type (confidentiality, non-compete, termination, ...)",
            "content": "clause summary",
            "importance": "high|medium|low"
        }
    ],
    "termination_conditions": "termination conditions or null",
    "renewal_terms": "renewal terms or null",
    "signatures": ["identified signatories"],
    "confidence_score": confidence between 0 and 1
}

IMPORTANT RULES:
1. Return ONLY the JSON, no text before or after
2. Use null for fields you cannot find
3. Amounts must be numbers, not strings
4. Dates must be formatted YYYY-MM-DD
5. Identify the important clauses (confidentiality, penalties, termination, ...)

JSON:`

const classificationPrompt = `Analyze the text below and determine the document type.

TEXT:
` + "```" + `
%s
` + "```" + `

Answer with exactly one word among: invoice, contract, unknown.

Type:`

// InvoicePrompt builds the structured-extraction prompt for invoices.
func InvoicePrompt(ocrText string) string {
	return invoicePromptHeader + ocrText + "\n" + invoicePromptFooter
}

// ContractPrompt builds the structured-extraction prompt for contracts.
func ContractPrompt(ocrText string) string {
	return contractPromptHeader + ocrText + "\n" + contractPromptFooter
}

// ClassificationPrompt builds the document-type prompt.
func ClassificationPrompt(ocrText string) string {
	return fmt.Sprintf(classificationPrompt, ocrText)
}
