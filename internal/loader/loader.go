// Package loader converts raw spreadsheet tables into sanitized time series.
// It reproduces the source export layout exactly: two metadata rows, headers
// on the third physical row, data from the fourth, with fixed per-role column
// positions.
package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/heliowatt/pvscope/internal/model"
)

const (
	// headerRowIndex is the physical row carrying the real column names.
	// The two rows above it are vendor metadata and labels.
	headerRowIndex = 2
	// dataStartIndex is the first physical data row.
	dataStartIndex = 3
	// minRows is the smallest table that can carry any data at all.
	minRows = dataStartIndex + 1
)

// MalformedInputError reports a structurally unusable source table: wrong
// sheet shape, missing header row, too few rows. It is fatal for that file.
type MalformedInputError struct {
	Source string
	Role   model.Role
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input %s (role %s): %s", e.Source, e.Role, e.Reason)
}

// Result is the loader output for one table: the sanitized rows plus the
// per-row drop counters and the header names the mapping resolved to.
type Result struct {
	Rows []model.TimeSeriesRow

	// TimestampName and ValueName are the header-cell texts at the mapped
	// column positions, kept for diagnostics.
	TimestampName string
	ValueName     string

	DroppedNonNumeric int
	DroppedNegative   int
}

// Stats summarizes the result for the analysis envelope.
func (r *Result) Stats(source string, role model.Role) model.LoadStats {
	return model.LoadStats{
		Source:            source,
		Role:              role,
		Kept:              len(r.Rows),
		DroppedNonNumeric: r.DroppedNonNumeric,
		DroppedNegative:   r.DroppedNegative,
	}
}

// Load sanitizes one raw table according to its role's column map.
//
// Rows whose value cell fails numeric coercion are dropped, not zeroed;
// negative values are dropped too. Input ordering is preserved and timestamps
// are neither deduplicated nor sorted. A table with fewer than four physical
// rows fails with *MalformedInputError.
func Load(table model.RawTable, role model.Role, maps ColumnMaps) (*Result, error) {
	if !role.Valid() {
		return nil, &MalformedInputError{Source: table.Source, Role: role, Reason: "unknown role"}
	}
	cm, ok := maps[role]
	if !ok {
		return nil, &MalformedInputError{Source: table.Source, Role: role, Reason: "no column map for role"}
	}
	if len(table.Rows) < minRows {
		return nil, &MalformedInputError{
			Source: table.Source,
			Role:   role,
			Reason: fmt.Sprintf("expected at least %d rows, got %d", minRows, len(table.Rows)),
		}
	}

	res := &Result{}

	header := table.Rows[headerRowIndex]
	res.TimestampName = cellAt(header, cm.TimestampCol)
	res.ValueName = cellAt(header, cm.ValueCol)

	for _, row := range table.Rows[dataStartIndex:] {
		ts := cellAt(row, cm.TimestampCol)
		raw := cellAt(row, cm.ValueCol)

		// ParseFloat accepts literal "NaN" and "Inf" cells; those are not
		// usable readings and count as non-numeric.
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			res.DroppedNonNumeric++
			continue
		}
		if v < 0 {
			res.DroppedNegative++
			continue
		}

		res.Rows = append(res.Rows, model.TimeSeriesRow{Timestamp: ts, Value: v})
	}

	if res.DroppedNonNumeric > 0 || res.DroppedNegative > 0 {
		zap.L().Debug("loader: dropped rows",
			zap.String("source", table.Source),
			zap.String("role", string(role)),
			zap.Int("non_numeric", res.DroppedNonNumeric),
			zap.Int("negative", res.DroppedNegative),
			zap.Int("kept", len(res.Rows)),
		)
	}

	return res, nil
}

// cellAt returns the cell at index i, or "" when the physical row is shorter.
// A missing value cell then fails numeric coercion and the row is dropped,
// matching the missing-not-zero rule.
func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
