package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heliowatt/pvscope/internal/analysis"
	"github.com/heliowatt/pvscope/internal/export"
	"github.com/heliowatt/pvscope/internal/fetcher"
	"github.com/heliowatt/pvscope/internal/loader"
	"github.com/heliowatt/pvscope/internal/model"
)

var (
	analyzeEM          string
	analyzeRM          string
	analyzeInverters   []string
	analyzeCapacity    float64
	analyzePRThresh    float64
	analyzeEffThresh   float64
	analyzeConcurrency int
	analyzeOutput      string
	analyzeFormat      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a full performance analysis over EM, RM and inverter exports",
	Long: `Runs the full pipeline: load the EM and RM workbooks, join them on
timestamp, derive PR and issue labels, then summarize every inverter file
against the matched intervals.

Examples:
  # Text report to stdout
  pvscope analyze --em em.xlsx --rm rm.xlsx --inv inv1.xlsx --inv inv2.xlsx

  # JSON results to a file
  pvscope analyze --em em.xlsx --rm rm.xlsx --format json --output result.json

  # XLSX workbook with the full PR table
  pvscope analyze --em em.xlsx --rm rm.xlsx --format xlsx --output result.xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		params := cfg.Plant.Params()
		if cmd.Flags().Changed("capacity") {
			params.CapacityMWp = analyzeCapacity
		}
		if cmd.Flags().Changed("pr-threshold") {
			params.PRThreshold = analyzePRThresh
		}
		if cmd.Flags().Changed("eff-threshold") {
			params.EfficiencyThreshold = analyzeEffThresh
		}

		maps, err := columnMapsFromConfig()
		if err != nil {
			return err
		}

		sheetOpts := fetcher.XLSXOptions{SheetName: cfg.Loader.SheetName}

		em, err := fetcher.ReadXLSXContext(ctx, analyzeEM, sheetOpts)
		if err != nil {
			return eris.Wrap(err, "analyze: read EM workbook")
		}
		rm, err := fetcher.ReadXLSXContext(ctx, analyzeRM, sheetOpts)
		if err != nil {
			return eris.Wrap(err, "analyze: read RM workbook")
		}

		var inverters []model.RawTable
		for _, path := range analyzeInverters {
			table, invErr := fetcher.ReadXLSXContext(ctx, path, sheetOpts)
			if invErr != nil {
				// Per-file isolation: an unreadable inverter workbook is
				// reported and skipped, the run continues.
				zap.L().Error("analyze: inverter workbook skipped",
					zap.String("path", path),
					zap.Error(invErr),
				)
				inverters = append(inverters, model.RawTable{Source: path})
				continue
			}
			inverters = append(inverters, table)
		}

		concurrency := cfg.Analysis.Concurrency
		if cmd.Flags().Changed("concurrency") {
			concurrency = analyzeConcurrency
		}

		res, err := analysis.Run(ctx, em, rm, inverters, params, analysis.Options{
			ColumnMaps:  maps,
			Concurrency: concurrency,
		})
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		return writeAnalysisOutput(res, analyzeFormat, analyzeOutput)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeEM, "em", "", "path to EM (irradiance) workbook (required)")
	analyzeCmd.Flags().StringVar(&analyzeRM, "rm", "", "path to RM (revenue meter) workbook (required)")
	analyzeCmd.Flags().StringArrayVar(&analyzeInverters, "inv", nil, "path to an inverter workbook (repeatable)")
	analyzeCmd.Flags().Float64Var(&analyzeCapacity, "capacity", 2.06, "plant capacity in MWp")
	analyzeCmd.Flags().Float64Var(&analyzePRThresh, "pr-threshold", 0.75, "PR threshold for the Good classification")
	analyzeCmd.Flags().Float64Var(&analyzeEffThresh, "eff-threshold", 0.90, "inverter efficiency threshold")
	analyzeCmd.Flags().IntVar(&analyzeConcurrency, "concurrency", 0, "inverter sets analyzed concurrently (0 = config default)")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "", "write output to file (default: stdout; required for xlsx/pdf)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "report", "output format: report, json, xlsx or pdf")
	_ = analyzeCmd.MarkFlagRequired("em")
	_ = analyzeCmd.MarkFlagRequired("rm")
	rootCmd.AddCommand(analyzeCmd)
}

// columnMapsFromConfig resolves the loader column maps, applying the YAML
// override file when configured.
func columnMapsFromConfig() (loader.ColumnMaps, error) {
	if cfg.Loader.ColumnMapFile == "" {
		return loader.DefaultColumnMaps(), nil
	}
	maps, err := loader.LoadColumnMaps(cfg.Loader.ColumnMapFile)
	if err != nil {
		return nil, eris.Wrap(err, "analyze: column map overrides")
	}
	return maps, nil
}

func writeAnalysisOutput(res *analysis.Result, format, output string) error {
	var data []byte
	var err error

	switch format {
	case "report":
		data = []byte(analysis.FormatReport(res))
	case "json":
		data, err = json.MarshalIndent(res, "", "  ")
		if err != nil {
			return eris.Wrap(err, "analyze: marshal result")
		}
		data = append(data, '\n')
	case "xlsx":
		if output == "" {
			return eris.New("analyze: --output is required for xlsx format")
		}
		data, err = export.BuildWorkbook(res)
		if err != nil {
			return err
		}
	case "pdf":
		if output == "" {
			return eris.New("analyze: --output is required for pdf format")
		}
		data, err = export.BuildSummaryPDF(res)
		if err != nil {
			return err
		}
	default:
		return eris.Errorf("analyze: unknown format %q", format)
	}

	if output == "" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return eris.Wrapf(err, "analyze: write %s", output)
	}
	zap.L().Info("analyze: output written",
		zap.String("path", output),
		zap.String("format", format),
	)
	return nil
}
