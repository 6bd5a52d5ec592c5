package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	err := f.Save(path)
	require.NoError(t, err)
	return path
}

func TestReadXLSX_Basic(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"meta"},
			{"meta"},
			{"No", "Site", "Device", "Start Time", "Irradiance"},
			{"1", "A", "EM-1", "09:00", "412.5"},
		},
	})

	table, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, "test.xlsx", table.Source)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, []string{"No", "Site", "Device", "Start Time", "Irradiance"}, table.Rows[2])
	assert.Equal(t, "412.5", table.Rows[3][4])
}

func TestReadXLSX_SheetName(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Daily":          {{"wrong sheet"}},
		DefaultSheetName: {{"right"}, {"sheet"}},
	})

	table, err := ReadXLSX(path, XLSXOptions{SheetName: DefaultSheetName})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "right", table.Rows[0][0])
}

func TestReadXLSX_SheetNameNotFound(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"a"}},
	})

	_, err := ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadXLSX_SheetIndexOutOfRange(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"a"}},
	})

	_, err := ReadXLSX(path, XLSXOptions{SheetIndex: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadXLSX_MissingFile(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "missing.xlsx"), XLSXOptions{})
	require.Error(t, err)
}

func TestStreamXLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"meta"},
			{"No", "Site", "Device", "Start Time", "Irradiance"},
			{"1", "A", "EM-1", "09:00", "412.5"},
		},
	})

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{})

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	require.NoError(t, <-errCh)
	require.Len(t, rows, 3)
	assert.Equal(t, "412.5", rows[2][4])
}

func TestStreamXLSX_Cancelled(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"a"}, {"b"}, {"c"}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamXLSX(ctx, path, XLSXOptions{})
	for range rowCh {
	}
	err := <-errCh
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestReadXLSXContext(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"x", "y"}, {"1", "2"}},
	})

	table, err := ReadXLSXContext(context.Background(), path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, "test.xlsx", table.Source)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"1", "2"}, table.Rows[1])

	eager, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, eager.Rows, table.Rows)
}

func TestReadXLSXContext_Cancelled(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"a"}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadXLSXContext(ctx, path, XLSXOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestReadXLSXBinary(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"x", "y"}, {"1", "2"}},
	})
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	table, err := ReadXLSXBinary(data, "upload.xlsx", XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, "upload.xlsx", table.Source)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"1", "2"}, table.Rows[1])
}

func TestReadXLSXBinary_Garbage(t *testing.T) {
	_, err := ReadXLSXBinary([]byte("not a zip"), "upload.xlsx", XLSXOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload.xlsx")
}
