package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/heliowatt/pvscope/internal/loader"
	"github.com/heliowatt/pvscope/internal/model"
)

// Options configures a full analysis run.
type Options struct {
	// ColumnMaps defaults to loader.DefaultColumnMaps when nil.
	ColumnMaps loader.ColumnMaps
	// Concurrency bounds the inverter fan-out; <= 1 means sequential.
	Concurrency int
}

// Result is the full output of one analysis run. Nothing in it is persisted;
// every run recomputes from its own inputs.
type Result struct {
	RunID       string            `json:"run_id"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	Params      model.PlantParams `json:"params"`

	PRRows       []model.PRRow                   `json:"pr_rows"`
	PRStats      *PRStats                        `json:"pr_stats"`
	StatusCounts map[model.PerformanceStatus]int `json:"status_counts"`
	IssueCounts  map[model.IssueLabel]int        `json:"issue_counts"`

	Inverters []model.InverterSummary `json:"inverters"`
	Loads     []model.LoadStats       `json:"loads"`
}

// Run executes the whole pipeline over one EM table, one RM table and any
// number of inverter tables.
//
// A structural failure in the EM or RM file aborts the run. A structural
// failure in an inverter file is recorded in Loads and skipped; the other
// inverters and the PR analysis are unaffected.
func Run(ctx context.Context, em, rm model.RawTable, inverters []model.RawTable, params model.PlantParams, opts Options) (*Result, error) {
	started := time.Now().UTC()

	maps := opts.ColumnMaps
	if maps == nil {
		maps = loader.DefaultColumnMaps()
	}

	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Params:    params,
	}

	emLoad, err := loader.Load(em, model.RoleIrradiance, maps)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: load EM %s", em.Source)
	}
	res.Loads = append(res.Loads, emLoad.Stats(em.Source, model.RoleIrradiance))

	rmLoad, err := loader.Load(rm, model.RoleRevenueMeter, maps)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: load RM %s", rm.Source)
	}
	res.Loads = append(res.Loads, rmLoad.Stats(rm.Source, model.RoleRevenueMeter))

	var sets []model.InverterSet
	for _, table := range inverters {
		invLoad, err := loader.Load(table, model.RoleInverter, maps)
		if err != nil {
			// One bad inverter file must not take down the rest.
			zap.L().Error("analysis: inverter file skipped",
				zap.String("source", table.Source),
				zap.Error(err),
			)
			res.Loads = append(res.Loads, model.LoadStats{
				Source: table.Source,
				Role:   model.RoleInverter,
				Err:    err.Error(),
			})
			continue
		}
		res.Loads = append(res.Loads, invLoad.Stats(table.Source, model.RoleInverter))
		sets = append(sets, model.InverterSet{SourceID: table.Source, Rows: invLoad.Rows})
	}

	res.PRRows = ComputePR(emLoad.Rows, rmLoad.Rows, params)
	res.PRStats = Describe(res.PRRows)
	res.StatusCounts = StatusCounts(res.PRRows)
	res.IssueCounts = IssueCounts(res.PRRows)

	summaries, err := AnalyzeInverters(ctx, res.PRRows, sets, params, InverterOptions{Concurrency: opts.Concurrency})
	if err != nil {
		return nil, err
	}
	res.Inverters = summaries
	res.CompletedAt = time.Now().UTC()

	zap.L().Info("analysis: run complete",
		zap.String("run_id", res.RunID),
		zap.Int("pr_rows", len(res.PRRows)),
		zap.Int("inverters", len(res.Inverters)),
		zap.Duration("elapsed", res.CompletedAt.Sub(res.StartedAt)),
	)

	return res, nil
}
