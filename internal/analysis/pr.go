// Package analysis derives Performance Ratio and inverter efficiency metrics
// from sanitized time series and classifies each interval against the plant
// thresholds.
package analysis

import (
	"github.com/heliowatt/pvscope/internal/model"
)

// ComputePR inner-joins the irradiance and revenue-meter series on exact
// timestamp equality and derives one PRRow per shared timestamp.
//
// Timestamps present on only one side are excluded on purpose: a telemetry
// gap on either sensor disqualifies that interval. Duplicate timestamps
// collapse to their first occurrence on each side, so the output has exactly
// one row per shared timestamp, ordered by first appearance in the
// irradiance series.
//
// pr = energy_kwh / (irradiance * capacity_kw). When irradiance is zero the
// ratio is non-finite; such rows are retained (status NeedsAttention, issue
// SensorOutage) rather than silently dropped.
func ComputePR(irradiance, revenue []model.TimeSeriesRow, params model.PlantParams) []model.PRRow {
	energyByTS := make(map[string]float64, len(revenue))
	for _, r := range revenue {
		if _, ok := energyByTS[r.Timestamp]; !ok {
			energyByTS[r.Timestamp] = r.Value
		}
	}

	rows := make([]model.PRRow, 0, min(len(irradiance), len(revenue)))
	seen := make(map[string]struct{}, len(irradiance))

	for _, ir := range irradiance {
		energy, ok := energyByTS[ir.Timestamp]
		if !ok {
			continue
		}
		if _, dup := seen[ir.Timestamp]; dup {
			continue
		}
		seen[ir.Timestamp] = struct{}{}

		row := model.PRRow{
			Timestamp:  ir.Timestamp,
			Irradiance: ir.Value,
			EnergyKWh:  energy,
			PR:         energy / (ir.Value * params.CapacityKW()),
		}
		row.Status = classifyStatus(row, params.PRThreshold)
		row.Issue = ClassifyIssue(row.PR, params.PRThreshold)
		rows = append(rows, row)
	}

	return rows
}

// classifyStatus applies the primary threshold rule. The boundary is
// inclusive on the Good side. A non-finite PR is never Good, whatever IEEE
// comparison semantics would say about +Inf.
func classifyStatus(row model.PRRow, threshold float64) model.PerformanceStatus {
	if !row.Finite() {
		return model.StatusNeedsAttention
	}
	if row.PR >= threshold {
		return model.StatusGood
	}
	return model.StatusNeedsAttention
}
