// Package export renders analysis results as spreadsheet workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/todmy/faers-signals/internal/signal"
	"github.com/todmy/faers-signals/pkg/models"
)

// ContentType is the MIME type of the workbooks written by WriteWorkbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SummarySheet is the name of the run metadata sheet
const SummarySheet = "summary"

// SignalHeader lists the columns of every exposure sheet
var SignalHeader = []string{
	"Term",
	"a",
	"b",
	"c",
	"d",
	"Odds Ratio",
	"OR CI Lower",
	"OR CI Upper",
	"PRR",
	"PRR SE",
	"PRR CI Lower",
	"PRR CI Upper",
	"Chi-Squared",
	"P Value",
	"Corrected P Value",
	"Significant",
	"Signal",
}

var signalColumnWidths = []float64{32, 8, 8, 8, 10, 12, 12, 12, 12, 10, 12, 12, 12, 14, 18, 12, 10}

// WriteWorkbook writes a summary sheet for the run followed by one sheet per
// exposure definition. Undefined statistics are left as empty cells.
func WriteWorkbook(w io.Writer, run *models.AnalysisRun, records map[signal.Exposure][]models.SignalRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to rename default sheet: %w", err)
	}
	if err := writeSummary(f, run); err != nil {
		return err
	}

	for _, exposure := range signal.Exposures {
		if err := writeSignalSheet(f, exposure.String(), records[exposure], headerStyle); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	return nil
}

func writeSummary(f *excelize.File, run *models.AnalysisRun) error {
	rows := [][]interface{}{
		{"Analysis ID", run.ID},
		{"Drug", run.Drug},
		{"Minimum Count", run.MinCount},
		{"Alpha", run.Alpha},
		{"Total Cases", run.TotalCases},
		{"Exposed Cases (any mention)", run.ExposedCases},
		{"Exposed Cases (primary suspect)", run.PrimarySuspectCases},
		{"Created At", run.CreatedAt.UTC().Format(time.RFC3339)},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}

	return f.SetColWidth(SummarySheet, "A", "A", 34)
}

func writeSignalSheet(f *excelize.File, sheet string, records []models.SignalRecord, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	header := make([]interface{}, len(SignalHeader))
	for i, h := range SignalHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(SignalHeader))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, width := range signalColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, rec := range records {
		row := signalRow(rec)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", rec.Term, err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func signalRow(rec models.SignalRecord) []interface{} {
	return []interface{}{
		rec.Term,
		rec.A,
		rec.B,
		rec.C,
		rec.D,
		rec.OddsRatio,
		rec.ORCILower,
		rec.ORCIUpper,
		rec.PRR,
		rec.PRRSE,
		rec.PRRCILower,
		rec.PRRCIUpper,
		optional(rec.ChiSquared),
		optional(rec.PValue),
		optional(rec.CorrectedPValue),
		rec.Significant,
		rec.Signal,
	}
}

// optional maps undefined statistics to nil, which excelize leaves blank
func optional(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
