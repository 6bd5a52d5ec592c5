package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/heliowatt/pvscope/internal/fetcher"
	"github.com/heliowatt/pvscope/internal/loader"
	"github.com/heliowatt/pvscope/internal/model"
)

var (
	inspectFile string
	inspectRole string
	inspectHead int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Parse a single source workbook and report what the loader keeps",
	RunE: func(cmd *cobra.Command, _ []string) error {
		role := model.Role(inspectRole)
		if !role.Valid() {
			return eris.Errorf("inspect: unknown role %q (want irradiance, revenue_meter or inverter)", inspectRole)
		}

		maps, err := columnMapsFromConfig()
		if err != nil {
			return err
		}

		table, err := fetcher.ReadXLSX(inspectFile, fetcher.XLSXOptions{SheetName: cfg.Loader.SheetName})
		if err != nil {
			return eris.Wrap(err, "inspect: read workbook")
		}

		res, err := loader.Load(table, role, maps)
		if err != nil {
			return eris.Wrap(err, "inspect: load")
		}

		head := res.Rows
		if inspectHead > 0 && inspectHead < len(head) {
			head = head[:inspectHead]
		}

		out := struct {
			Source        string                `json:"source"`
			Role          model.Role            `json:"role"`
			TimestampName string                `json:"timestamp_column"`
			ValueName     string                `json:"value_column"`
			Stats         model.LoadStats       `json:"stats"`
			Head          []model.TimeSeriesRow `json:"head"`
		}{
			Source:        table.Source,
			Role:          role,
			TimestampName: res.TimestampName,
			ValueName:     res.ValueName,
			Stats:         res.Stats(table.Source, role),
			Head:          head,
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return eris.Wrap(err, "inspect: marshal")
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFile, "file", "", "path to source workbook (required)")
	inspectCmd.Flags().StringVar(&inspectRole, "role", "", "source role: irradiance, revenue_meter or inverter (required)")
	inspectCmd.Flags().IntVar(&inspectHead, "head", 10, "number of sanitized rows to print (0 = all)")
	_ = inspectCmd.MarkFlagRequired("file")
	_ = inspectCmd.MarkFlagRequired("role")
	rootCmd.AddCommand(inspectCmd)
}
