package analysis

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/heliowatt/pvscope/internal/model"
)

// InverterOptions tunes AnalyzeInverters. Concurrency <= 1 runs the sets
// sequentially; higher values fan out with a bounded errgroup. Output order
// is the input order either way.
type InverterOptions struct {
	Concurrency int
}

// AnalyzeInverters summarizes each inverter set against the PR rows.
//
// For every set the rows are inner-joined on timestamp against prRows (first
// occurrence wins on duplicates, matching ComputePR). Each joined row gets a
// simulated theoretical energy irradiance*capacity_kw; rows where that is
// <= 0 are discarded before the efficiency ratio is formed, so they affect
// neither the low-efficiency count nor the mean. A set whose join comes up
// empty reports a nil mean, not zero.
//
// Sets are independent; the only error returned is context cancellation,
// checked between sets.
func AnalyzeInverters(ctx context.Context, prRows []model.PRRow, sets []model.InverterSet, params model.PlantParams, opts InverterOptions) ([]model.InverterSummary, error) {
	irradianceByTS := make(map[string]float64, len(prRows))
	for _, r := range prRows {
		if _, ok := irradianceByTS[r.Timestamp]; !ok {
			irradianceByTS[r.Timestamp] = r.Irradiance
		}
	}

	summaries := make([]model.InverterSummary, len(sets))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Concurrency))

	for i, set := range sets {
		i, set := i, set
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			summaries[i] = summarizeInverter(set, irradianceByTS, params)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "analysis: inverter fan-out")
	}
	return summaries, nil
}

func summarizeInverter(set model.InverterSet, irradianceByTS map[string]float64, params model.PlantParams) model.InverterSummary {
	sum := model.InverterSummary{SourceID: set.SourceID}

	var total float64
	for _, row := range set.Rows {
		irr, ok := irradianceByTS[row.Timestamp]
		if !ok {
			continue
		}

		simulatedKWh := irr * params.CapacityKW()
		if simulatedKWh <= 0 {
			continue
		}

		eff := row.Value / simulatedKWh
		sum.JoinedRows++
		total += eff
		if eff < params.EfficiencyThreshold {
			sum.LowEfficiencyCount++
		}
	}

	if sum.JoinedRows > 0 {
		mean := total / float64(sum.JoinedRows)
		sum.MeanEfficiency = &mean
	}

	return sum
}
