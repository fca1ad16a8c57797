package usecase

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/xuri/excelize/v2"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
	"github.com/lucabarone/invoiceflow/internal/core/ports"
)

// ExportUseCase flattens an owner's documents and their parsed amounts into
// CSV and Excel downloads.
type ExportUseCase struct {
	docs    ports.DocumentRepository
	results ports.ResultRepository
}

func NewExportUseCase(docs ports.DocumentRepository, results ports.ResultRepository) *ExportUseCase {
	return &ExportUseCase{docs: docs, results: results}
}

type exportRow struct {
	DocumentID   string `csv:"document_id"`
	OriginalName string `csv:"original_name"`
	Status       string `csv:"status"`
	UploadedAt   string `csv:"uploaded_at"`
	ProcessedAt  string `csv:"processed_at"`
	DocumentType string `csv:"document_type"`
	Subtype      string `csv:"document_subtype"`
	Subtotal     string `csv:"subtotal"`
	GrossFee     string `csv:"gross_fee"`
	VATAmount    string `csv:"vat_amount"`
	TotalAmount  string `csv:"total_amount"`
	NetPayable   string `csv:"net_payable"`
	Currency     string `csv:"currency"`
	IsValid      string `csv:"is_valid"`
	FlagsCount   int    `csv:"flags_count"`
}

func (uc *ExportUseCase) ExportCSV(ctx context.Context, ownerID string) ([]byte, error) {
	rows, err := uc.collectRows(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return data, nil
}

func (uc *ExportUseCase) ExportExcel(ctx context.Context, ownerID string) ([]byte, error) {
	rows, err := uc.collectRows(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	file := excelize.NewFile()
	const sheet = "Documents"
	if err := file.SetSheetName(file.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{
		"Document ID", "Original Name", "Status", "Uploaded At", "Processed At",
		"Type", "Subtype", "Subtotal", "Gross Fee", "VAT Amount",
		"Total Amount", "Net Payable", "Currency", "Is Valid", "Flags",
	}
	if err := file.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("resolve cell: %w", err)
		}
		values := []any{
			row.DocumentID, row.OriginalName, row.Status, row.UploadedAt, row.ProcessedAt,
			row.DocumentType, row.Subtype, row.Subtotal, row.GrossFee, row.VATAmount,
			row.TotalAmount, row.NetPayable, row.Currency, row.IsValid, row.FlagsCount,
		}
		if err := file.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func (uc *ExportUseCase) collectRows(ctx context.Context, ownerID string) ([]exportRow, error) {
	docs, err := uc.docs.ListByOwner(ctx, ownerID, domain.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	rows := make([]exportRow, 0, len(docs))
	for _, doc := range docs {
		row := exportRow{
			DocumentID:   doc.ID,
			OriginalName: doc.OriginalName,
			Status:       string(doc.Status),
			UploadedAt:   doc.UploadedAt.Format(time.RFC3339),
		}
		if doc.ProcessedAt != nil {
			row.ProcessedAt = doc.ProcessedAt.Format(time.RFC3339)
		}

		result, err := uc.results.GetByDocumentID(ctx, doc.ID)
		if err != nil {
			if domain.IsKind(err, domain.ErrResultNotFound) {
				rows = append(rows, row)
				continue
			}
			return nil, fmt.Errorf("load result for %s: %w", doc.ID, err)
		}
		fillParsed(&row, result.Parsed)
		rows = append(rows, row)
	}
	return rows, nil
}

func fillParsed(row *exportRow, parsed *domain.ParsedResult) {
	if parsed == nil {
		return
	}
	row.DocumentType = string(parsed.DocumentType)
	row.Subtype = string(parsed.DocumentSubtype)
	row.FlagsCount = len(parsed.ValidationFlags)

	if parsed.Semantic == nil {
		return
	}
	if parsed.Semantic.Validation != nil {
		row.IsValid = fmt.Sprintf("%t", parsed.Semantic.Validation.IsValid)
	}
	amounts := parsed.Semantic.Amounts
	if amounts == nil {
		return
	}
	row.Subtotal = formatAmount(amounts.Subtotal)
	row.GrossFee = formatAmount(amounts.GrossFee)
	if amounts.VAT != nil {
		row.VATAmount = formatAmount(amounts.VAT.Amount)
	}
	row.TotalAmount = formatAmount(amounts.TotalAmount)
	row.NetPayable = formatAmount(amounts.NetPayable)
	if amounts.Currency != nil {
		row.Currency = amounts.Currency.Value()
	}
}

func formatAmount(field *domain.NumericField) string {
	if field == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", field.Value())
}
