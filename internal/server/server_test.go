package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/heliowatt/pvscope/internal/analysis"
	"github.com/heliowatt/pvscope/internal/config"
	"github.com/heliowatt/pvscope/internal/model"
)

func testConfig() config.Config {
	return config.Config{
		Plant: config.PlantConfig{
			CapacityMWp:         1.0,
			PRThreshold:         0.75,
			EfficiencyThreshold: 0.90,
		},
		Loader:   config.LoaderConfig{SheetName: "5 minutes"},
		Analysis: config.AnalysisConfig{Concurrency: 2},
		Server:   config.ServerConfig{MaxUploadMB: 8, RatePerMinute: 600},
	}
}

// workbookBytes builds an in-memory xlsx with the vendor layout on the
// "5 minutes" sheet: timestamp at column 3, value at valueCol.
func workbookBytes(t *testing.T, valueCol int, data ...[2]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("5 minutes")
	require.NoError(t, err)

	addRow := func(cells []string) {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}

	header := make([]string, valueCol+1)
	header[3] = "Start Time"
	header[valueCol] = "Value"
	addRow([]string{"Plant Export"})
	addRow([]string{"Generated"})
	addRow(header)
	for _, d := range data {
		row := make([]string, valueCol+1)
		row[3] = d[0]
		row[valueCol] = d[1]
		addRow(row)
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func multipartBody(t *testing.T, files map[string][][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, contents := range files {
		for i, data := range contents {
			part, err := w.CreateFormFile(field, field+"-"+string(rune('a'+i))+".xlsx")
			require.NoError(t, err)
			_, err = part.Write(data)
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	srv := New(testConfig(), nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnalyze_FullRun(t *testing.T) {
	em := workbookBytes(t, 4, [2]string{"09:00", "1.0"}, [2]string{"09:05", "1.0"})
	rm := workbookBytes(t, 5, [2]string{"09:00", "800"}, [2]string{"09:05", "700"})
	inv := workbookBytes(t, 5, [2]string{"09:00", "950"}, [2]string{"09:05", "800"})

	body, contentType := multipartBody(t, map[string][][]byte{
		"em":       {em},
		"rm":       {rm},
		"inverter": {inv},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv := New(testConfig(), nil)
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res analysis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.PRRows, 2)
	require.Len(t, res.Inverters, 1)
	assert.Equal(t, 1, res.Inverters[0].LowEfficiencyCount)
}

func TestAnalyze_OutageRowStillDecodes(t *testing.T) {
	// A zero-irradiance interval makes the PR non-finite; the response must
	// still be complete, decodable JSON with the ratio as null.
	em := workbookBytes(t, 4, [2]string{"09:00", "0"}, [2]string{"09:05", "1.0"})
	rm := workbookBytes(t, 5, [2]string{"09:00", "10"}, [2]string{"09:05", "800"})

	body, contentType := multipartBody(t, map[string][][]byte{"em": {em}, "rm": {rm}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	New(testConfig(), nil).Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, json.Valid(rec.Body.Bytes()), rec.Body.String())

	var res analysis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.PRRows, 2)
	assert.Contains(t, rec.Body.String(), `"pr":null`)
	assert.Equal(t, 1, res.IssueCounts[model.IssueSensorOutage])
}

func TestAnalyze_MissingRM(t *testing.T) {
	em := workbookBytes(t, 4, [2]string{"09:00", "1.0"})
	body, contentType := multipartBody(t, map[string][][]byte{"em": {em}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	New(testConfig(), nil).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "rm")
}

func TestAnalyze_MalformedEM(t *testing.T) {
	// Valid workbook, but no data rows: structurally unusable and fatal.
	em := workbookBytes(t, 4)
	rm := workbookBytes(t, 5, [2]string{"09:00", "800"})

	body, contentType := multipartBody(t, map[string][][]byte{"em": {em}, "rm": {rm}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	New(testConfig(), nil).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAnalyze_BadInverterIsolated(t *testing.T) {
	em := workbookBytes(t, 4, [2]string{"09:00", "1.0"})
	rm := workbookBytes(t, 5, [2]string{"09:00", "800"})
	good := workbookBytes(t, 5, [2]string{"09:00", "900"})

	body, contentType := multipartBody(t, map[string][][]byte{
		"em":       {em},
		"rm":       {rm},
		"inverter": {[]byte("not an xlsx"), good},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	New(testConfig(), nil).Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res analysis.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	// Only the readable inverter produced a summary; the bad one is a load
	// diagnostic.
	require.Len(t, res.Inverters, 1)
	failed := 0
	for _, l := range res.Loads {
		if l.Err != "" {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestAnalyze_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RatePerMinute = 1

	srv := New(cfg, nil)
	router := srv.Router()

	em := workbookBytes(t, 4, [2]string{"09:00", "1.0"})
	rm := workbookBytes(t, 5, [2]string{"09:00", "800"})

	send := func() int {
		body, contentType := multipartBody(t, map[string][][]byte{"em": {em}, "rm": {rm}})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send())
	// Burst of 1 exhausted; the second request inside the same minute is
	// rejected.
	assert.Equal(t, http.StatusTooManyRequests, send())
}
