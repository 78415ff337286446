// Package export writes the document catalog as an XLSX workbook.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"coi-backend/internal/shared/telemetry"
)

// SheetName is the worksheet holding the catalog.
const SheetName = "Documents"

// Row is one catalog record in display form. Optional fields are empty
// strings when absent.
type Row struct {
	Filename   string
	CustomName string
	ExternalID string
	TenantCode string
	PropertyNo string
	Action     string
	UploadDate time.Time
	Status     string
}

var headers = []string{
	"Filename",
	"Custom Name",
	"External ID",
	"Tenant Code",
	"Property No",
	"Action",
	"Upload Date",
	"Status",
}

// Workbook returns XLSX bytes with a header row and one row per entry, in
// the order given.
func Workbook(rows []Row) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	index, err := f.GetSheetIndex(SheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("header %s: %w", h, err)
		}
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, style); err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, r := range rows {
		if err := writeRow(f, i+2, r.values()); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 36) // filename
	_ = f.SetColWidth(SheetName, "B", "F", 18)
	_ = f.SetColWidth(SheetName, "G", "G", 20) // upload date
	_ = f.SetColWidth(SheetName, "H", "H", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	telemetry.Info("export.xlsx.ok", map[string]any{
		"rows":       len(rows),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return buf.Bytes(), nil
}

type cellSetter interface {
	SetCellValue(sheet, cell string, value any) error
}

func (r Row) values() []any {
	values := []any{r.Filename, r.CustomName, r.ExternalID, r.TenantCode, r.PropertyNo, r.Action, nil, r.Status}
	if !r.UploadDate.IsZero() {
		values[6] = r.UploadDate.UTC().Format("2006-01-02 15:04:05")
	}
	return values
}

// writeRow sets one cell per non-nil value starting at column A.
func writeRow(w cellSetter, row int, values []any) error {
	for col, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := w.SetCellValue(SheetName, cell, v); err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
	}
	return nil
}
