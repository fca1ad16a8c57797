package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NumericField is a monetary or rate value as the extraction model reports it:
// either a bare number or a {value, confidence} wrapper. Both forms unwrap to
// the same plain float through Value, so downstream code never branches on the
// wire shape. String values with thousands separators ("1,022.00") are
// accepted because the model emits them for some locales.
type NumericField struct {
	value      float64
	confidence *float64
}

func Plain(value float64) NumericField {
	return NumericField{value: value}
}

func Scored(value, confidence float64) NumericField {
	return NumericField{value: value, confidence: &confidence}
}

func (f NumericField) Value() float64 { return f.value }

// Confidence returns the 0-100 score and whether one was reported.
func (f NumericField) Confidence() (float64, bool) {
	if f.confidence == nil {
		return 0, false
	}
	return *f.confidence, true
}

func (f NumericField) MarshalJSON() ([]byte, error) {
	if f.confidence == nil {
		return json.Marshal(f.value)
	}
	return json.Marshal(struct {
		Value      float64 `json:"value"`
		Confidence float64 `json:"confidence"`
	}{Value: f.value, Confidence: *f.confidence})
}

func (f *NumericField) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}

	if strings.HasPrefix(trimmed, "{") {
		var wrapped struct {
			Value      json.RawMessage `json:"value"`
			Confidence *float64        `json:"confidence"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return fmt.Errorf("parse scored field: %w", err)
		}
		value, err := parseNumeric(wrapped.Value)
		if err != nil {
			return err
		}
		f.value = value
		f.confidence = wrapped.Confidence
		return nil
	}

	value, err := parseNumeric([]byte(trimmed))
	if err != nil {
		return err
	}
	f.value = value
	f.confidence = nil
	return nil
}

func parseNumeric(raw json.RawMessage) (float64, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("parse numeric string: %w", err)
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" {
			return 0, nil
		}
		value, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse numeric string %q: %w", s, err)
		}
		return value, nil
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, fmt.Errorf("parse numeric value: %w", err)
	}
	return value, nil
}

// TextField carries a string the same two ways NumericField carries a number.
type TextField struct {
	value      string
	confidence *float64
}

func Text(value string) TextField { return TextField{value: value} }

func (f TextField) Value() string { return f.value }

func (f TextField) MarshalJSON() ([]byte, error) {
	if f.confidence == nil {
		return json.Marshal(f.value)
	}
	return json.Marshal(struct {
		Value      string  `json:"value"`
		Confidence float64 `json:"confidence"`
	}{Value: f.value, Confidence: *f.confidence})
}

func (f *TextField) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, "{") {
		var wrapped struct {
			Value      string   `json:"value"`
			Confidence *float64 `json:"confidence"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return fmt.Errorf("parse scored text field: %w", err)
		}
		f.value = wrapped.Value
		f.confidence = wrapped.Confidence
		return nil
	}
	return json.Unmarshal(data, &f.value)
}

// TaxLine is a rate/amount pair (VAT, withholding tax).
type TaxLine struct {
	Rate   *NumericField `json:"rate,omitempty"`
	Amount *NumericField `json:"amount,omitempty"`
}

type StampDuty struct {
	Present bool          `json:"present,omitempty"`
	Amount  *NumericField `json:"amount,omitempty"`
}

// Amounts is the union of the per-subtype extraction schemas. Fields the
// model did not find stay nil; the validation engine treats nil as absent.
type Amounts struct {
	Subtotal       *NumericField `json:"subtotal,omitempty"`
	GrossFee       *NumericField `json:"gross_fee,omitempty"`
	VAT            *TaxLine      `json:"vat,omitempty"`
	WithholdingTax *TaxLine      `json:"withholding_tax,omitempty"`
	StampDuty      *StampDuty    `json:"stamp_duty,omitempty"`
	TotalAmount    *NumericField `json:"total_amount,omitempty"`
	NetPayable     *NumericField `json:"net_payable,omitempty"`
	Currency       *TextField    `json:"currency,omitempty"`
}

// FallbackAmounts is the fail-closed extraction result: currency only.
func FallbackAmounts() *Amounts {
	currency := Text("EUR")
	return &Amounts{Currency: &currency}
}

// AmountEntry names one monetary field for rules that sweep all amounts.
type AmountEntry struct {
	Field string
	Value *NumericField
}

// AmountEntries lists every monetary field that is present, in a stable
// order. Rates and the currency are not amounts and are excluded.
func (a *Amounts) AmountEntries() []AmountEntry {
	if a == nil {
		return nil
	}
	entries := make([]AmountEntry, 0, 6)
	add := func(field string, value *NumericField) {
		if value != nil {
			entries = append(entries, AmountEntry{Field: field, Value: value})
		}
	}
	add("subtotal", a.Subtotal)
	add("gross_fee", a.GrossFee)
	if a.VAT != nil {
		add("vat.amount", a.VAT.Amount)
	}
	if a.WithholdingTax != nil {
		add("withholding_tax.amount", a.WithholdingTax.Amount)
	}
	if a.StampDuty != nil {
		add("stamp_duty.amount", a.StampDuty.Amount)
	}
	add("total_amount", a.TotalAmount)
	add("net_payable", a.NetPayable)
	return entries
}
