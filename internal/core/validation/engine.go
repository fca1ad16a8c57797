// Package validation cross-checks AI-extracted invoice amounts for internal
// arithmetic consistency. The engine is a pure function over the amounts and
// the document subtype: no I/O, no clock, no state, so identical inputs always
// yield identical flag sets.
package validation

import (
	"fmt"
	"strings"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
)

// Tolerance for decimal comparisons, one cent.
const Tolerance = 0.01

var standardVATRates = []float64{0, 4, 5, 10, 22}

type Result struct {
	IsValid bool
	Flags   []domain.ValidationFlag
}

// Validate applies the subtype formula rules and the common rules to the
// extracted amounts. IsValid is true iff no critical flag was raised.
// A nil amounts object validates trivially.
func Validate(amounts *domain.Amounts, subtype domain.DocumentSubtype) Result {
	if amounts == nil {
		return Result{IsValid: true, Flags: []domain.ValidationFlag{}}
	}

	var flags []domain.ValidationFlag

	switch subtype {
	case domain.SubtypeProfessionalFee:
		flags = append(flags, professionalFeeRules(amounts)...)
	case domain.SubtypeStandard:
		flags = append(flags, standardInvoiceRules(amounts)...)
	case domain.SubtypeReverseCharge:
		flags = append(flags, noVATRules(amounts, "Reverse charge invoice", "reverse charge")...)
	case domain.SubtypeTaxExempt:
		flags = append(flags, noVATRules(amounts, "Tax-exempt invoice", "tax-exempt")...)
	}

	flags = append(flags, commonRules(amounts)...)

	if flags == nil {
		flags = []domain.ValidationFlag{}
	}
	return Result{IsValid: !hasCritical(flags), Flags: flags}
}

func hasCritical(flags []domain.ValidationFlag) bool {
	for _, flag := range flags {
		if flag.Severity == domain.SeverityCritical {
			return true
		}
	}
	return false
}

// professionalFeeRules checks the fee-note formula
// net_payable = gross_fee + vat - withholding + stamp_duty.
func professionalFeeRules(amounts *domain.Amounts) []domain.ValidationFlag {
	var flags []domain.ValidationFlag

	grossFee, hasGross := nonZero(amounts.GrossFee)
	vatAmount, hasVATAmount := nonZero(taxAmount(amounts.VAT))
	vatRate, hasVATRate := nonZero(taxRate(amounts.VAT))
	withholding, hasWithholding := nonZero(taxAmount(amounts.WithholdingTax))
	withholdingRate, hasWithholdingRate := nonZero(taxRate(amounts.WithholdingTax))
	stampDuty, _ := nonZero(stampAmount(amounts.StampDuty))
	netPayable, hasNet := nonZero(amounts.NetPayable)

	if hasGross && hasNet && netPayable > grossFee*2 {
		flags = append(flags, domain.ValidationFlag{
			Field:    "net_payable",
			Severity: domain.SeverityCritical,
			Message: fmt.Sprintf("Net payable (€%.2f) seems too high (>200%% of gross fee €%.2f)",
				netPayable, grossFee),
			Type: domain.FlagLogicError,
		})
	}

	if hasGross && hasWithholding && withholding > grossFee {
		flags = append(flags, domain.ValidationFlag{
			Field:    "withholding_tax.amount",
			Severity: domain.SeverityCritical,
			Message: fmt.Sprintf("Withholding tax (€%.2f) cannot exceed gross fee (€%.2f)",
				withholding, grossFee),
			Type: domain.FlagLogicError,
		})
	}

	if hasGross && hasVATRate && hasVATAmount {
		if flag, mismatch := rateMismatch("vat.amount", "VAT", grossFee, vatRate, vatAmount, domain.SeverityHigh); mismatch {
			flags = append(flags, flag)
		}
	}

	if hasGross && hasWithholdingRate && hasWithholding {
		if flag, mismatch := rateMismatch("withholding_tax.amount", "Withholding tax", grossFee, withholdingRate, withholding, domain.SeverityMedium); mismatch {
			flags = append(flags, flag)
		}
	}

	if hasGross && hasNet {
		expectedNet := grossFee + vatAmount - withholding + stampDuty
		if diff := abs(netPayable - expectedNet); diff > Tolerance {
			flags = append(flags, domain.ValidationFlag{
				Field:    "net_payable",
				Severity: domain.SeverityHigh,
				Message: fmt.Sprintf("Net payable calculation mismatch: expected €%.2f, but got €%.2f",
					expectedNet, netPayable),
				Type:     domain.FlagCalculationError,
				Expected: money(expectedNet),
				Actual:   money(netPayable),
			})
		}
	}

	if hasNet && netPayable < 0 {
		flags = append(flags, domain.ValidationFlag{
			Field:    "net_payable",
			Severity: domain.SeverityLow,
			Message: fmt.Sprintf("Net payable is negative (€%.2f). This is unusual but possible if withholding exceeds gross+VAT.",
				netPayable),
			Type: domain.FlagUnusualValue,
		})
	}

	return flags
}

// standardInvoiceRules checks total_amount = subtotal + vat.amount.
func standardInvoiceRules(amounts *domain.Amounts) []domain.ValidationFlag {
	var flags []domain.ValidationFlag

	subtotal, hasSubtotal := nonZero(amounts.Subtotal)
	vatAmount, hasVATAmount := nonZero(taxAmount(amounts.VAT))
	vatRate, hasVATRate := nonZero(taxRate(amounts.VAT))
	total, hasTotal := nonZero(amounts.TotalAmount)

	if hasSubtotal && hasTotal && total > subtotal*2 {
		flags = append(flags, domain.ValidationFlag{
			Field:    "total_amount",
			Severity: domain.SeverityCritical,
			Message: fmt.Sprintf("Total (€%.2f) seems too high (>200%% of subtotal €%.2f)",
				total, subtotal),
			Type: domain.FlagLogicError,
		})
	}

	if hasSubtotal && hasVATRate && hasVATAmount {
		if flag, mismatch := rateMismatch("vat.amount", "VAT", subtotal, vatRate, vatAmount, domain.SeverityHigh); mismatch {
			flags = append(flags, flag)
		}
	}

	if hasSubtotal && hasTotal && hasVATAmount {
		expectedTotal := subtotal + vatAmount
		if diff := abs(total - expectedTotal); diff > Tolerance {
			flags = append(flags, domain.ValidationFlag{
				Field:    "total_amount",
				Severity: domain.SeverityHigh,
				Message: fmt.Sprintf("Total calculation mismatch: expected €%.2f (subtotal + VAT), but got €%.2f",
					expectedTotal, total),
				Type:     domain.FlagCalculationError,
				Expected: money(expectedTotal),
				Actual:   money(total),
			})
		}
	}

	return flags
}

// noVATRules covers reverse charge and tax exempt invoices, where the seller
// applies no VAT and the total must equal the subtotal.
func noVATRules(amounts *domain.Amounts, label, kind string) []domain.ValidationFlag {
	var flags []domain.ValidationFlag

	subtotal, hasSubtotal := nonZero(amounts.Subtotal)
	total, hasTotal := nonZero(amounts.TotalAmount)
	vatAmount, hasVATAmount := nonZero(taxAmount(amounts.VAT))

	if hasSubtotal && hasTotal {
		if diff := abs(total - subtotal); diff > Tolerance {
			flags = append(flags, domain.ValidationFlag{
				Field:    "total_amount",
				Severity: domain.SeverityMedium,
				Message: fmt.Sprintf("%s: total (€%.2f) should equal subtotal (€%.2f)",
					label, total, subtotal),
				Type: domain.FlagLogicError,
			})
		}
	}

	if hasVATAmount && vatAmount > 0 {
		flags = append(flags, domain.ValidationFlag{
			Field:    "vat.amount",
			Severity: domain.SeverityLow,
			Message: fmt.Sprintf("VAT amount detected (€%.2f) in %s invoice. Verify if this is correct.",
				vatAmount, kind),
			Type: domain.FlagUnusualValue,
		})
	}

	return flags
}

func commonRules(amounts *domain.Amounts) []domain.ValidationFlag {
	var flags []domain.ValidationFlag

	for _, entry := range amounts.AmountEntries() {
		value := entry.Value.Value()
		if value < 0 && entry.Field != "net_payable" {
			flags = append(flags, domain.ValidationFlag{
				Field:    entry.Field,
				Severity: domain.SeverityCritical,
				Message: fmt.Sprintf("%s is negative (€%.2f). This is likely an error.",
					fieldLabel(entry.Field), value),
				Type: domain.FlagLogicError,
			})
		}
	}

	if rate := taxRate(amounts.VAT); rate != nil && !isStandardVATRate(rate.Value()) {
		flags = append(flags, domain.ValidationFlag{
			Field:    "vat.rate",
			Severity: domain.SeverityLow,
			Message: fmt.Sprintf("VAT rate %g%% is non-standard. Verify if this is correct (standard rates: 4%%, 10%%, 22%%).",
				rate.Value()),
			Type: domain.FlagUnusualValue,
		})
	}

	if amounts.Currency == nil || strings.TrimSpace(amounts.Currency.Value()) == "" {
		flags = append(flags, domain.ValidationFlag{
			Field:    "currency",
			Severity: domain.SeverityMedium,
			Message:  "Currency not detected in document. Verify manually.",
			Type:     domain.FlagMissingValue,
		})
	}

	for _, entry := range amounts.AmountEntries() {
		if value := entry.Value.Value(); value > 1_000_000 {
			flags = append(flags, domain.ValidationFlag{
				Field:    entry.Field,
				Severity: domain.SeverityMedium,
				Message: fmt.Sprintf("%s is very large (€%.2f). Verify if this is correct.",
					fieldLabel(entry.Field), value),
				Type: domain.FlagUnusualValue,
			})
		}
	}

	return flags
}

func rateMismatch(field, label string, base, rate, actual float64, severity domain.FlagSeverity) (domain.ValidationFlag, bool) {
	expected := base * rate / 100
	if abs(actual-expected) <= Tolerance {
		return domain.ValidationFlag{}, false
	}
	return domain.ValidationFlag{
		Field:    field,
		Severity: severity,
		Message: fmt.Sprintf("%s calculation mismatch: expected €%.2f (%g%% of €%.2f), but got €%.2f",
			label, expected, rate, base, actual),
		Type:     domain.FlagCalculationError,
		Expected: money(expected),
		Actual:   money(actual),
	}, true
}

func isStandardVATRate(rate float64) bool {
	for _, standard := range standardVATRates {
		if rate == standard {
			return true
		}
	}
	return false
}

// nonZero unwraps a field; absent or zero values do not participate in
// formula checks, matching how partially extracted documents are handled.
func nonZero(field *domain.NumericField) (float64, bool) {
	if field == nil {
		return 0, false
	}
	value := field.Value()
	return value, value != 0
}

func taxAmount(line *domain.TaxLine) *domain.NumericField {
	if line == nil {
		return nil
	}
	return line.Amount
}

func taxRate(line *domain.TaxLine) *domain.NumericField {
	if line == nil {
		return nil
	}
	return line.Rate
}

func stampAmount(duty *domain.StampDuty) *domain.NumericField {
	if duty == nil {
		return nil
	}
	return duty.Amount
}

func money(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func abs(value float64) float64 {
	if value < 0 {
		return -value
	}
	return value
}

func fieldLabel(field string) string {
	parts := strings.FieldsFunc(field, func(r rune) bool {
		return r == '_' || r == '.'
	})
	for i, part := range parts {
		if part == "vat" {
			parts[i] = "VAT"
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}
