package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/rotisserie/eris"

	"github.com/heliowatt/pvscope/internal/analysis"
	"github.com/heliowatt/pvscope/internal/model"
)

// BuildSummaryPDF renders a one-page summary of a run: headline numbers,
// issue counts and the per-inverter table. The full PR row set belongs in
// the workbook, not here.
func BuildSummaryPDF(res *analysis.Result) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "PV Performance Analysis")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Run: %s", res.RunID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Completed: %s", res.CompletedAt.Format("2006-01-02 15:04:05 MST")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Capacity: %.2f MWp | PR threshold: %.2f | Efficiency threshold: %.2f",
		res.Params.CapacityMWp, res.Params.PRThreshold, res.Params.EfficiencyThreshold))
	pdf.Ln(8)

	pdf.Cell(0, 6, fmt.Sprintf("Matched intervals: %d (good %d, needs attention %d)",
		len(res.PRRows),
		res.StatusCounts[model.StatusGood],
		res.StatusCounts[model.StatusNeedsAttention]))
	pdf.Ln(5)
	if res.PRStats != nil {
		pdf.Cell(0, 6, fmt.Sprintf("PR mean %.4f, median %.4f, range [%.4f, %.4f]",
			res.PRStats.Mean, res.PRStats.Median, res.PRStats.Min, res.PRStats.Max))
		pdf.Ln(5)
	}
	for _, label := range []model.IssueLabel{model.IssueCalibrationNeeded, model.IssueModuleSoiling, model.IssueSensorOutage} {
		if n := res.IssueCounts[label]; n > 0 {
			pdf.Cell(0, 6, fmt.Sprintf("Issue %s: %d intervals", label, n))
			pdf.Ln(5)
		}
	}
	pdf.Ln(4)

	// Inverter table.
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Inverter", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 6, "Joined", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Low efficiency", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Mean efficiency", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, inv := range res.Inverters {
		mean := "no data"
		if inv.MeanEfficiency != nil {
			mean = fmt.Sprintf("%.4f", *inv.MeanEfficiency)
		}
		pdf.CellFormat(70, 6, inv.SourceID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", inv.JoinedRows), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d", inv.LowEfficiencyCount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, mean, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, eris.Wrap(err, "export: write pdf")
	}
	return buf.Bytes(), nil
}
