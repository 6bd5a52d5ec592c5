package analysis

import (
	"math"

	"github.com/heliowatt/pvscope/internal/model"
)

// soilingFactor scales the PR threshold down to the soiling boundary: below
// 90% of the threshold the loss is too large for a sensor calibration drift.
const soilingFactor = 0.9

// ClassifyIssue assigns the secondary diagnostic for a PR value. Pure and
// total: every float64 maps to exactly one label.
//
//	pr non-finite        → SensorOutage (zero-irradiance interval)
//	pr >= threshold      → None
//	pr <  0.9*threshold  → ModuleSoiling
//	otherwise            → CalibrationNeeded
//
// The soiling rule uses strict <, so pr == 0.9*threshold reads as
// CalibrationNeeded.
func ClassifyIssue(pr, threshold float64) model.IssueLabel {
	if math.IsNaN(pr) || math.IsInf(pr, 0) {
		return model.IssueSensorOutage
	}
	if pr >= threshold {
		return model.IssueNone
	}
	if pr < threshold*soilingFactor {
		return model.IssueModuleSoiling
	}
	return model.IssueCalibrationNeeded
}
