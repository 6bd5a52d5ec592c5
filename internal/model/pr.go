package model

import (
	"encoding/json"
	"math"
)

// PerformanceStatus is the two-way health classification of an interval.
type PerformanceStatus string

const (
	StatusGood           PerformanceStatus = "good"
	StatusNeedsAttention PerformanceStatus = "needs_attention"
)

// IssueLabel is the secondary diagnostic attached to an interval.
type IssueLabel string

const (
	IssueNone              IssueLabel = "none"
	IssueCalibrationNeeded IssueLabel = "calibration_needed"
	IssueModuleSoiling     IssueLabel = "module_soiling"
	// IssueSensorOutage marks intervals whose PR is non-finite (zero
	// irradiance denominator). These would otherwise slip through the
	// threshold comparisons and read as healthy.
	IssueSensorOutage IssueLabel = "sensor_outage"
)

// PRRow is one matched (irradiance, revenue energy) interval with its derived
// Performance Ratio and classification.
type PRRow struct {
	Timestamp  string            `json:"timestamp"`
	Irradiance float64           `json:"irradiance"`
	EnergyKWh  float64           `json:"energy_kwh"`
	PR         float64           `json:"pr"`
	Status     PerformanceStatus `json:"status"`
	Issue      IssueLabel        `json:"issue"`
}

// Finite reports whether the row's PR is a usable finite number.
func (r PRRow) Finite() bool {
	return !math.IsNaN(r.PR) && !math.IsInf(r.PR, 0)
}

// MarshalJSON encodes a non-finite PR as null; encoding/json has no
// representation for NaN or infinity. The issue label still identifies the
// interval as a sensor outage.
func (r PRRow) MarshalJSON() ([]byte, error) {
	type plain PRRow
	out := struct {
		plain
		PR *float64 `json:"pr"`
	}{plain: plain(r)}
	if r.Finite() {
		out.PR = &r.PR
	}
	return json.Marshal(out)
}

// InverterSummary is the per-inverter aggregate. MeanEfficiency is nil when
// the joined, filtered set was empty.
type InverterSummary struct {
	SourceID           string   `json:"source_id"`
	JoinedRows         int      `json:"joined_rows"`
	LowEfficiencyCount int      `json:"low_efficiency_count"`
	MeanEfficiency     *float64 `json:"mean_efficiency"`
}

// PlantParams carries the plant configuration threaded through every core
// computation.
type PlantParams struct {
	CapacityMWp         float64 `json:"capacity_mwp"`
	PRThreshold         float64 `json:"pr_threshold"`
	EfficiencyThreshold float64 `json:"efficiency_threshold"`
}

// DefaultPlantParams returns the reference plant configuration: 2.06 MWp,
// PR threshold 0.75, inverter efficiency threshold 0.90.
func DefaultPlantParams() PlantParams {
	return PlantParams{
		CapacityMWp:         2.06,
		PRThreshold:         0.75,
		EfficiencyThreshold: 0.90,
	}
}

// CapacityKW returns the plant capacity in kW (MWp scaled by 1000), the
// denominator unit used for both PR and simulated energy.
func (p PlantParams) CapacityKW() float64 {
	return p.CapacityMWp * 1000
}
