// Package fetcher turns source workbooks into raw tables. It knows nothing
// about column semantics; that is the loader's job.
package fetcher

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/heliowatt/pvscope/internal/model"
)

// DefaultSheetName is the sheet the monitoring vendor exports 5-minute
// telemetry into, for EM, RM and inverter workbooks alike.
const DefaultSheetName = "5 minutes"

// XLSXOptions configures the XLSX reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX reads a workbook from disk and returns the selected sheet as a
// raw table. The table's Source is the file's base name.
func ReadXLSX(path string, opts XLSXOptions) (model.RawTable, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return model.RawTable{}, eris.Wrapf(err, "xlsx: open %s", path)
	}
	return sheetToTable(f, filepath.Base(path), opts)
}

// ReadXLSXBinary reads a workbook from an in-memory byte slice, as received
// from an upload. The caller supplies the source identity.
func ReadXLSXBinary(data []byte, source string, opts XLSXOptions) (model.RawTable, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return model.RawTable{}, eris.Wrapf(err, "xlsx: open %s", source)
	}
	return sheetToTable(f, source, opts)
}

func sheetToTable(f *xlsx.File, source string, opts XLSXOptions) (model.RawTable, error) {
	sheet, err := getSheet(f, opts)
	if err != nil {
		return model.RawTable{}, eris.Wrapf(err, "xlsx: %s", source)
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rows = append(rows, rowToStrings(row))
	}

	return model.RawTable{Source: source, Rows: rows}, nil
}

// StreamXLSX reads a workbook and sends the selected sheet's rows to a
// channel, checking for cancellation between rows. Both channels are closed
// when processing completes.
func StreamXLSX(ctx context.Context, path string, opts XLSXOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		f, err := xlsx.OpenFile(path)
		if err != nil {
			errCh <- eris.Wrapf(err, "xlsx: open %s", path)
			return
		}

		sheet, err := getSheet(f, opts)
		if err != nil {
			errCh <- eris.Wrapf(err, "xlsx: %s", path)
			return
		}

		for _, row := range sheet.Rows {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "xlsx: cancelled")
				return
			}

			select {
			case rowCh <- rowToStrings(row):
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "xlsx: cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadXLSXContext reads a workbook through the streaming path, so a
// cancelled context stops the read between rows. The table's Source is the
// file's base name.
func ReadXLSXContext(ctx context.Context, path string, opts XLSXOptions) (model.RawTable, error) {
	rowCh, errCh := StreamXLSX(ctx, path, opts)

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return model.RawTable{}, err
	}

	return model.RawTable{Source: filepath.Base(path), Rows: rows}, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
