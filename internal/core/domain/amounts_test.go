package domain

import (
	"encoding/json"
	"testing"
)

func TestNumericFieldUnmarshalForms(t *testing.T) {
	cases := []struct {
		name         string
		raw          string
		wantValue    float64
		wantScore    float64
		wantHasScore bool
	}{
		{name: "bare number", raw: `1022.5`, wantValue: 1022.5},
		{name: "quoted number", raw: `"220.00"`, wantValue: 220},
		{name: "thousands separator", raw: `"1,022.00"`, wantValue: 1022},
		{name: "scored wrapper", raw: `{"value": 900, "confidence": 85}`, wantValue: 900, wantScore: 85, wantHasScore: true},
		{name: "scored quoted value", raw: `{"value": "1,000.00", "confidence": 60}`, wantValue: 1000, wantScore: 60, wantHasScore: true},
		{name: "wrapper without confidence", raw: `{"value": 12}`, wantValue: 12},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var field NumericField
			if err := json.Unmarshal([]byte(tc.raw), &field); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if field.Value() != tc.wantValue {
				t.Fatalf("value %v, want %v", field.Value(), tc.wantValue)
			}
			score, ok := field.Confidence()
			if ok != tc.wantHasScore {
				t.Fatalf("confidence present=%v, want %v", ok, tc.wantHasScore)
			}
			if ok && score != tc.wantScore {
				t.Fatalf("confidence %v, want %v", score, tc.wantScore)
			}
		})
	}
}

func TestNumericFieldUnmarshalRejectsGarbage(t *testing.T) {
	var field NumericField
	if err := json.Unmarshal([]byte(`"not a number"`), &field); err == nil {
		t.Fatalf("expected error for non-numeric string")
	}
}

func TestNumericFieldMarshalRoundTrip(t *testing.T) {
	plain := Plain(6161)
	data, err := json.Marshal(plain)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "6161" {
		t.Fatalf("plain field should marshal as a bare number, got %s", data)
	}

	scored := Scored(900, 85)
	data, err = json.Marshal(scored)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"value":900,"confidence":85}` {
		t.Fatalf("unexpected scored encoding: %s", data)
	}
}

func TestDocumentSubtypeMarshalsEmptyAsNull(t *testing.T) {
	data, err := json.Marshal(ParsedResult{
		DocumentType:    TypeReceipt,
		DocumentSubtype: SubtypeNone,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(decoded["document_subtype"]) != "null" {
		t.Fatalf("empty subtype must encode as null, got %s", decoded["document_subtype"])
	}
	if string(decoded["semantic"]) != "null" {
		t.Fatalf("nil semantic must encode as null, got %s", decoded["semantic"])
	}
}

func TestAmountsUnmarshalMixedShapes(t *testing.T) {
	raw := `{
		"gross_fee": "1000.00",
		"vat": {"rate": 22, "amount": {"value": "220.00", "confidence": 90}},
		"withholding_tax": {"rate": 20, "amount": 200},
		"stamp_duty": {"present": true, "amount": 2},
		"net_payable": 1022,
		"currency": {"value": "EUR", "confidence": 99}
	}`

	var amounts Amounts
	if err := json.Unmarshal([]byte(raw), &amounts); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if amounts.GrossFee.Value() != 1000 {
		t.Fatalf("gross fee %v", amounts.GrossFee.Value())
	}
	if amounts.VAT.Amount.Value() != 220 {
		t.Fatalf("vat amount %v", amounts.VAT.Amount.Value())
	}
	if score, ok := amounts.VAT.Amount.Confidence(); !ok || score != 90 {
		t.Fatalf("vat confidence %v %v", score, ok)
	}
	if amounts.Currency.Value() != "EUR" {
		t.Fatalf("currency %q", amounts.Currency.Value())
	}
	if !amounts.StampDuty.Present || amounts.StampDuty.Amount.Value() != 2 {
		t.Fatalf("stamp duty %+v", amounts.StampDuty)
	}
}

func TestAmountEntriesOrderAndPresence(t *testing.T) {
	subtotal := Plain(100)
	net := Plain(90)
	amounts := &Amounts{
		Subtotal:   &subtotal,
		NetPayable: &net,
	}

	entries := amounts.AmountEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Field != "subtotal" || entries[1].Field != "net_payable" {
		t.Fatalf("unexpected order: %+v", entries)
	}
}
