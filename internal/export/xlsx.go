// Package export renders analysis results as downloadable artifacts.
package export

import (
	"bytes"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/heliowatt/pvscope/internal/analysis"
)

// BuildWorkbook renders a run as an XLSX workbook with a summary sheet, the
// full PR table and the per-inverter table.
func BuildWorkbook(res *analysis.Result) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	prSheet := "performance_ratio"
	invSheet := "inverters"

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(prSheet); err != nil {
		return nil, eris.Wrap(err, "export: add pr sheet")
	}
	if _, err := f.NewSheet(invSheet); err != nil {
		return nil, eris.Wrap(err, "export: add inverter sheet")
	}

	_ = f.SetCellValue(summarySheet, "A1", "PV Performance Analysis")
	_ = f.SetCellValue(summarySheet, "A3", "Run ID")
	_ = f.SetCellValue(summarySheet, "B3", res.RunID)
	_ = f.SetCellValue(summarySheet, "A4", "Capacity (MWp)")
	_ = f.SetCellValue(summarySheet, "B4", res.Params.CapacityMWp)
	_ = f.SetCellValue(summarySheet, "A5", "PR threshold")
	_ = f.SetCellValue(summarySheet, "B5", res.Params.PRThreshold)
	_ = f.SetCellValue(summarySheet, "A6", "Efficiency threshold")
	_ = f.SetCellValue(summarySheet, "B6", res.Params.EfficiencyThreshold)
	_ = f.SetCellValue(summarySheet, "A7", "Matched intervals")
	_ = f.SetCellValue(summarySheet, "B7", len(res.PRRows))
	if res.PRStats != nil {
		_ = f.SetCellValue(summarySheet, "A8", "Mean PR")
		_ = f.SetCellValue(summarySheet, "B8", res.PRStats.Mean)
		_ = f.SetCellValue(summarySheet, "A9", "Median PR")
		_ = f.SetCellValue(summarySheet, "B9", res.PRStats.Median)
	}

	prHeaders := []string{"Timestamp", "Irradiance", "Energy (kWh)", "PR", "Status", "Issue"}
	for i, h := range prHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(prSheet, cell, h)
	}
	for i, row := range res.PRRows {
		r := i + 2
		_ = f.SetCellValue(prSheet, fmt.Sprintf("A%d", r), row.Timestamp)
		_ = f.SetCellValue(prSheet, fmt.Sprintf("B%d", r), row.Irradiance)
		_ = f.SetCellValue(prSheet, fmt.Sprintf("C%d", r), row.EnergyKWh)
		if row.Finite() {
			_ = f.SetCellValue(prSheet, fmt.Sprintf("D%d", r), row.PR)
		} else {
			// Excel has no NaN/Inf cell value.
			_ = f.SetCellValue(prSheet, fmt.Sprintf("D%d", r), "undefined")
		}
		_ = f.SetCellValue(prSheet, fmt.Sprintf("E%d", r), string(row.Status))
		_ = f.SetCellValue(prSheet, fmt.Sprintf("F%d", r), string(row.Issue))
	}

	invHeaders := []string{"Source", "Joined rows", "Low efficiency count", "Mean efficiency"}
	for i, h := range invHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(invSheet, cell, h)
	}
	for i, inv := range res.Inverters {
		r := i + 2
		_ = f.SetCellValue(invSheet, fmt.Sprintf("A%d", r), inv.SourceID)
		_ = f.SetCellValue(invSheet, fmt.Sprintf("B%d", r), inv.JoinedRows)
		_ = f.SetCellValue(invSheet, fmt.Sprintf("C%d", r), inv.LowEfficiencyCount)
		if inv.MeanEfficiency != nil {
			_ = f.SetCellValue(invSheet, fmt.Sprintf("D%d", r), *inv.MeanEfficiency)
		} else {
			_ = f.SetCellValue(invSheet, fmt.Sprintf("D%d", r), "no data")
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "export: write workbook")
	}
	return buf.Bytes(), nil
}
