package domain

import "time"

type FlagSeverity string

const (
	SeverityCritical FlagSeverity = "critical"
	SeverityHigh     FlagSeverity = "high"
	SeverityMedium   FlagSeverity = "medium"
	SeverityLow      FlagSeverity = "low"
)

type FlagType string

const (
	FlagLogicError        FlagType = "logic_error"
	FlagCalculationError  FlagType = "calculation_error"
	FlagUnusualValue      FlagType = "unusual_value"
	FlagMissingValue      FlagType = "missing_value"
	FlagWrongDocumentType FlagType = "wrong_document_type"
)

// ValidationFlag is one detected inconsistency in the extracted amounts.
// Flags are recomputed on every processing run and persisted only inside the
// parsed result.
type ValidationFlag struct {
	Field    string       `json:"field"`
	Severity FlagSeverity `json:"severity"`
	Message  string       `json:"message"`
	Type     FlagType     `json:"type"`
	Expected string       `json:"expected,omitempty"`
	Actual   string       `json:"actual,omitempty"`
}

// ValidationSummary is stamped onto the semantic payload after the rules run.
type ValidationSummary struct {
	ValidatedAt time.Time `json:"validated_at"`
	IsValid     bool      `json:"is_valid"`
	FlagsCount  int       `json:"flags_count"`
}

type Semantic struct {
	Amounts    *Amounts           `json:"amounts,omitempty"`
	Validation *ValidationSummary `json:"validation,omitempty"`
}

// ParsedResult is the composite JSON the worker persists once the full
// pipeline has succeeded and the frontend consumes afterwards. Semantic stays
// null for documents that did not classify as invoices.
type ParsedResult struct {
	DocumentType    DocumentType     `json:"document_type"`
	DocumentSubtype DocumentSubtype  `json:"document_subtype"`
	Semantic        *Semantic        `json:"semantic"`
	ValidationFlags []ValidationFlag `json:"validation_flags"`
}

// DocumentResult holds the derived artifacts for a document, 1:1 with it.
// RawText is rewritten on every processing attempt; Parsed is written only
// when the pipeline reaches done, then possibly overwritten by manual edits.
type DocumentResult struct {
	DocumentID     string        `json:"document_id"`
	RawText        string        `json:"raw_text"`
	Parsed         *ParsedResult `json:"parsed_json,omitempty"`
	ManuallyEdited bool          `json:"manually_edited"`
	EditedAt       *time.Time    `json:"edited_at,omitempty"`
	EditedBy       string        `json:"edited_by,omitempty"`
}

// CompletionEvent is emitted exactly once per terminal status transition.
type CompletionEvent struct {
	DocumentID   string         `json:"document_id"`
	OwnerID      string         `json:"owner_id"`
	FileName     string         `json:"file_name"`
	Status       DocumentStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
}
