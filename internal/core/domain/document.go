package domain

import "time"

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusDone       DocumentStatus = "done"
	StatusFailed     DocumentStatus = "failed"
)

// IsTerminal reports whether no further automatic transition occurs.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

type DocumentType string

const (
	TypeInvoice DocumentType = "invoice"
	TypeReceipt DocumentType = "receipt"
	TypeOther   DocumentType = "other"
)

type DocumentSubtype string

const (
	SubtypeStandard        DocumentSubtype = "standard"
	SubtypeProfessionalFee DocumentSubtype = "professional_fee"
	SubtypeReverseCharge   DocumentSubtype = "reverse_charge"
	SubtypeTaxExempt       DocumentSubtype = "tax_exempt"
	SubtypeNone            DocumentSubtype = ""
)

// MarshalJSON renders the empty subtype as JSON null so non-invoice results
// keep the "document_subtype": null wire shape.
func (s DocumentSubtype) MarshalJSON() ([]byte, error) {
	if s == SubtypeNone {
		return []byte("null"), nil
	}
	return []byte(`"` + string(s) + `"`), nil
}

func (s *DocumentSubtype) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" || raw == `""` {
		*s = SubtypeNone
		return nil
	}
	if len(raw) >= 2 && raw[0] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	*s = DocumentSubtype(raw)
	return nil
}

type Document struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"owner_id"`
	StoredName   string         `json:"stored_name"`
	OriginalName string         `json:"original_name"`
	Status       DocumentStatus `json:"status"`
	IsDefective  bool           `json:"is_defective"`
	Error        string         `json:"error,omitempty"`
	UploadedAt   time.Time      `json:"uploaded_at"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
}

// ListFilter narrows owner document listings.
type ListFilter struct {
	Status DocumentStatus
	Search string
	Limit  int
	Offset int
}

type Classification struct {
	DocumentType    DocumentType    `json:"document_type"`
	DocumentSubtype DocumentSubtype `json:"document_subtype"`
}

// FallbackClassification is the fail-closed verdict used when the classifier
// capability errors out: the pipeline carries on with a non-invoice result.
func FallbackClassification() Classification {
	return Classification{DocumentType: TypeOther, DocumentSubtype: SubtypeNone}
}
