package openai

import (
	"github.com/lucabarone/invoiceflow/internal/core/domain"
)

// The model sees at most this much document text; accounting headers and
// totals sit well within it.
const maxSnippet = 4000

func snippet(text string) string {
	if len(text) > maxSnippet {
		return text[:maxSnippet]
	}
	return text
}

func buildClassificationPrompt(text string) string {
	return `You are a strict document classification engine for accounting documents.

Classify the document into ONE of the following:

document_type:
- invoice
- receipt
- other

If document_type is "invoice", also provide document_subtype:
- standard
- professional_fee
- reverse_charge
- tax_exempt

Rules:

1. standard:
   - B2B invoice with VAT/GST
   - Issued by a company (SRL, SPA, LLC, GmbH, Inc.)
   - Calculation: Subtotal + VAT = Total

2. professional_fee:
   - Issued by individual professional/freelancer (Dr., Atty., Eng., Arch.)
   - May include withholding tax (ritenuta d'acconto, income tax withholding)
   - May include stamp duty/fees
   - Calculation: Gross + Tax - Withholding + Fees = Net Payable

3. reverse_charge:
   - B2B cross-border invoice (intra-EU or international)
   - VAT 0% or "reverse charge" mention
   - Customer liable for VAT
   - Calculation: Subtotal only (no VAT applied)

4. tax_exempt:
   - VAT-exempt services (medical, education, insurance, etc.)
   - Flat-rate regime (regime forfettario)
   - No VAT line or "VAT exempt" mention
   - Calculation: Total = Subtotal

Other types:
- receipt: simple payment proof, usually no VAT breakdown
- other: contracts, CVs, letters, non-accounting documents

Respond ONLY with valid JSON, no markdown, no backticks.

JSON FORMAT:
{
  "document_type": "invoice | receipt | other",
  "document_subtype": "standard | professional_fee | reverse_charge | tax_exempt | null"
}

Document text:
"""
` + snippet(text) + `
"""`
}

const semanticBaseRules = `You extract accounting data from invoices.

STRICT RULES:
- Return ONLY valid JSON
- No markdown, no backticks
- Use dot as decimal separator
- Currency: detect from document (EUR, USD, GBP, etc.)
- Extract ONLY present values (omit fields if not found)
- DO NOT calculate or infer values
- A field may optionally carry a confidence score from 0 to 100 as
  {"value": ..., "confidence": ...}; omit low-confidence fields entirely
  instead of guessing
`

func buildSemanticPrompt(text string, subtype domain.DocumentSubtype) string {
	rules, structure := subtypeRules(subtype)

	return semanticBaseRules + rules + `
Document text:
"""
` + snippet(text) + `
"""

Return JSON with ONLY the fields you find. Example structure:
` + structure + `
IMPORTANT: Omit fields that are not present in the document.`
}

func subtypeRules(subtype domain.DocumentSubtype) (rules, structure string) {
	switch subtype {
	case domain.SubtypeProfessionalFee:
		return `
DOCUMENT SUBTYPE: PROFESSIONAL FEE

Extract ONLY these fields (if present):
- gross_fee: base fee before taxes
- vat: { rate, amount } (if applicable)
- withholding_tax: { rate, amount } (income tax withheld)
- stamp_duty: { present: boolean, amount } (administrative fee)
- net_payable: final amount to pay

Calculation flow: Gross + VAT - Withholding + Stamp = Net Payable
`, `
{
  "amounts": {
    "gross_fee": "1000.00",
    "vat": { "rate": 22, "amount": "220.00" },
    "withholding_tax": { "rate": 20, "amount": "200.00" },
    "stamp_duty": { "present": true, "amount": "2.00" },
    "net_payable": "1022.00",
    "currency": "EUR"
  }
}
`
	case domain.SubtypeReverseCharge:
		return `
DOCUMENT SUBTYPE: REVERSE CHARGE (Cross-border B2B)

Extract ONLY these fields (if present):
- subtotal: net amount before tax
- total_amount: usually same as subtotal (no VAT applied by seller)

Note: VAT 0% or not applicable (buyer liable for VAT)
`, `
{
  "amounts": {
    "subtotal": "5000.00",
    "total_amount": "5000.00",
    "currency": "EUR"
  }
}
`
	case domain.SubtypeTaxExempt:
		return `
DOCUMENT SUBTYPE: TAX EXEMPT

Extract ONLY these fields (if present):
- subtotal: net amount
- total_amount: usually same as subtotal (no VAT/tax)

Note: VAT-exempt services or flat-rate regime
`, `
{
  "amounts": {
    "subtotal": "3000.00",
    "total_amount": "3000.00",
    "currency": "EUR"
  }
}
`
	default:
		return `
DOCUMENT SUBTYPE: STANDARD INVOICE (B2B with VAT)

Extract ONLY these fields (if present):
- subtotal: net amount before tax
- vat: { rate, amount }
- total_amount: final amount including VAT

Calculation flow: Subtotal + VAT = Total
`, `
{
  "amounts": {
    "subtotal": "5050.00",
    "vat": { "rate": 22, "amount": "1111.00" },
    "total_amount": "6161.00",
    "currency": "EUR"
  }
}
`
	}
}
