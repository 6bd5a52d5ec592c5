// Package model holds the canonical data types shared across the analysis
// pipeline: raw tables, sanitized time series, and derived PR/inverter rows.
package model

// Role identifies which source format a raw table carries. The role selects
// the column mapping the loader applies.
type Role string

const (
	// RoleIrradiance is the environmental-monitor (EM) irradiance export.
	RoleIrradiance Role = "irradiance"
	// RoleRevenueMeter is the revenue-meter (RM) active energy export.
	RoleRevenueMeter Role = "revenue_meter"
	// RoleInverter is a per-inverter energy output export.
	RoleInverter Role = "inverter"
)

// Valid reports whether r is one of the known source roles.
func (r Role) Valid() bool {
	switch r {
	case RoleIrradiance, RoleRevenueMeter, RoleInverter:
		return true
	}
	return false
}

// RawTable is an untyped spreadsheet section as read from a source workbook.
// The first two physical rows are vendor metadata; the third row carries the
// real column headers. Interpretation is the loader's job.
type RawTable struct {
	// Source identifies where the table came from (file name or upload
	// field), used in diagnostics and error messages.
	Source string
	Rows   [][]string
}

// TimeSeriesRow is one sanitized reading: a timestamp key and a non-negative
// numeric value. Timestamps are kept as the exact cell text because every
// downstream join is on exact equality; parsing them into time.Time could
// change which rows match.
type TimeSeriesRow struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// InverterSet is one inverter file's sanitized readings.
type InverterSet struct {
	SourceID string          `json:"source_id"`
	Rows     []TimeSeriesRow `json:"rows"`
}

// LoadStats records what the loader kept and dropped for one source file.
// Dropped rows are a diagnostic, not an error; Err is set only when the file
// failed structurally and produced no rows at all.
type LoadStats struct {
	Source            string `json:"source"`
	Role              Role   `json:"role"`
	Kept              int    `json:"kept"`
	DroppedNonNumeric int    `json:"dropped_non_numeric"`
	DroppedNegative   int    `json:"dropped_negative"`
	Err               string `json:"error,omitempty"`
}
