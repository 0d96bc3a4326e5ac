// Package export renders the loaded report list as a spreadsheet.
package export

import (
	"fmt"
	"io"

	"incident-service/models"

	"github.com/xuri/excelize/v2"
)

// SheetName is the single fixed sheet the export writes.
const SheetName = "Reports"

const dateLayout = "02/01/2006 15:04"

// Exporter writes one data row per loaded report, columns in a fixed
// order. IncludeStatus mirrors the deployments that carried a status
// column and the ones that predated the status workflow.
type Exporter struct {
	IncludeStatus bool
}

func New(includeStatus bool) *Exporter {
	return &Exporter{IncludeStatus: includeStatus}
}

// Write renders the list in its given order (newest first as loaded).
// A report with no stored status exports as "Pending".
func (e *Exporter) Write(reports []models.Report, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", e.headerRow()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range reports {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell: %w", err)
		}
		if err := f.SetSheetRow(SheetName, cell, e.dataRow(r)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}

func (e *Exporter) headerRow() *[]interface{} {
	row := []interface{}{"Date", "Location", "Description"}
	if e.IncludeStatus {
		row = append(row, "Status")
	}
	row = append(row, "Reporter Name", "Reporter Email", "Has Photo", "Photo Ref")
	return &row
}

func (e *Exporter) dataRow(r models.Report) *[]interface{} {
	row := []interface{}{
		r.SubmittedAt.Local().Format(dateLayout),
		r.Location,
		r.Description,
	}
	if e.IncludeStatus {
		status := r.Status
		if status == "" {
			status = models.StatusPending
		}
		row = append(row, string(status))
	}
	hasPhoto := "No"
	if r.Photo != "" {
		hasPhoto = "Yes"
	}
	row = append(row, r.ReporterName, r.ReporterEmail, hasPhoto, r.Photo)
	return &row
}
