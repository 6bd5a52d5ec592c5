package analysis

import (
	"fmt"
	"strings"

	"github.com/heliowatt/pvscope/internal/model"
)

// FormatReport renders a run as a human-readable report.
func FormatReport(res *Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# PV Performance Report (run %s)\n", res.RunID)
	fmt.Fprintf(&b, "Plant capacity: %.2f MWp | PR threshold: %.2f | Efficiency threshold: %.2f\n\n",
		res.Params.CapacityMWp, res.Params.PRThreshold, res.Params.EfficiencyThreshold)

	// Summary.
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Matched intervals: %d\n", len(res.PRRows))
	fmt.Fprintf(&b, "- Good: %d\n", res.StatusCounts[model.StatusGood])
	fmt.Fprintf(&b, "- Needs attention: %d\n\n", res.StatusCounts[model.StatusNeedsAttention])

	// PR distribution.
	b.WriteString("## Performance Ratio\n")
	if res.PRStats == nil {
		b.WriteString("No finite PR values.\n\n")
	} else {
		s := res.PRStats
		fmt.Fprintf(&b, "- count: %d\n", s.Count)
		fmt.Fprintf(&b, "- mean: %.4f (std %.4f)\n", s.Mean, s.Std)
		fmt.Fprintf(&b, "- min/25%%/50%%/75%%/max: %.4f / %.4f / %.4f / %.4f / %.4f\n\n",
			s.Min, s.P25, s.Median, s.P75, s.Max)
	}

	// Diagnostics for degraded intervals.
	b.WriteString("## Issues\n")
	if len(res.IssueCounts) == 0 {
		b.WriteString("No issues flagged.\n\n")
	} else {
		for _, label := range []model.IssueLabel{model.IssueCalibrationNeeded, model.IssueModuleSoiling, model.IssueSensorOutage} {
			if n := res.IssueCounts[label]; n > 0 {
				fmt.Fprintf(&b, "- %s: %d\n", issueText(label), n)
			}
		}
		b.WriteString("\n")
	}

	// Per-inverter table.
	b.WriteString("## Inverters\n")
	if len(res.Inverters) == 0 {
		b.WriteString("No inverter files analyzed.\n\n")
	} else {
		for _, inv := range res.Inverters {
			mean := "n/a"
			if inv.MeanEfficiency != nil {
				mean = fmt.Sprintf("%.4f", *inv.MeanEfficiency)
			}
			fmt.Fprintf(&b, "- %s: %d joined rows, %d below threshold, mean efficiency %s\n",
				inv.SourceID, inv.JoinedRows, inv.LowEfficiencyCount, mean)
		}
		b.WriteString("\n")
	}

	// Load diagnostics.
	b.WriteString("## Inputs\n")
	for _, l := range res.Loads {
		if l.Err != "" {
			fmt.Fprintf(&b, "- %s (%s): FAILED: %s\n", l.Source, l.Role, l.Err)
			continue
		}
		fmt.Fprintf(&b, "- %s (%s): %d rows kept, %d non-numeric dropped, %d negative dropped\n",
			l.Source, l.Role, l.Kept, l.DroppedNonNumeric, l.DroppedNegative)
	}

	return b.String()
}

func issueText(label model.IssueLabel) string {
	switch label {
	case model.IssueCalibrationNeeded:
		return "sensor calibration needed"
	case model.IssueModuleSoiling:
		return "module soiling"
	case model.IssueSensorOutage:
		return "sensor outage"
	default:
		return string(label)
	}
}
