// Package server exposes the analysis pipeline over HTTP: multipart upload
// of the EM, RM and inverter workbooks in, JSON results out.
package server

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/heliowatt/pvscope/internal/analysis"
	"github.com/heliowatt/pvscope/internal/config"
	"github.com/heliowatt/pvscope/internal/fetcher"
	"github.com/heliowatt/pvscope/internal/loader"
	"github.com/heliowatt/pvscope/internal/model"
)

// Server handles analysis uploads.
type Server struct {
	cfg        config.Config
	columnMaps loader.ColumnMaps
	limiter    *rate.Limiter
}

// New builds a Server. columnMaps may be nil to use the defaults.
func New(cfg config.Config, columnMaps loader.ColumnMaps) *Server {
	perMinute := cfg.Server.RatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	return &Server{
		cfg:        cfg,
		columnMaps: columnMaps,
		limiter:    rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}
}

// Router assembles the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/v1/analyze", s.handleAnalyze)

	return r
}

// handleAnalyze runs a full analysis over the uploaded workbooks. Form
// fields: "em" and "rm" (required, one file each), "inverter" (repeatable).
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	maxBytes := int64(s.cfg.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	em, err := s.readWorkbook(r, "em")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rm, err := s.readWorkbook(r, "rm")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var inverters []model.RawTable
	for _, fh := range r.MultipartForm.File["inverter"] {
		table, invErr := s.readWorkbookHeader(fh)
		if invErr != nil {
			// Unreadable inverter files surface as per-file diagnostics,
			// consistent with the CLI's isolation rule.
			inverters = append(inverters, model.RawTable{Source: fh.Filename})
			zap.L().Warn("server: unreadable inverter upload",
				zap.String("file", fh.Filename),
				zap.Error(invErr),
			)
			continue
		}
		inverters = append(inverters, table)
	}

	res, err := analysis.Run(r.Context(), em, rm, inverters,
		s.cfg.Plant.Params(),
		analysis.Options{ColumnMaps: s.columnMaps, Concurrency: s.cfg.Analysis.Concurrency},
	)
	if err != nil {
		zap.L().Error("server: analysis failed", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// readWorkbook fetches a required single-file form field.
func (s *Server) readWorkbook(r *http.Request, field string) (model.RawTable, error) {
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return model.RawTable{}, &fieldError{field: field, msg: "missing file field"}
	}
	return s.readWorkbookHeader(files[0])
}

func (s *Server) readWorkbookHeader(fh *multipart.FileHeader) (model.RawTable, error) {
	f, err := fh.Open()
	if err != nil {
		return model.RawTable{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return model.RawTable{}, err
	}

	return fetcher.ReadXLSXBinary(data, fh.Filename, fetcher.XLSXOptions{SheetName: s.cfg.Loader.SheetName})
}

type fieldError struct {
	field string
	msg   string
}

func (e *fieldError) Error() string { return e.msg + ": " + e.field }

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	zap.L().Info("server: listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// The status line is already gone; the truncated body is all the
		// client sees, so at least leave a trace server-side.
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs each request with its duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
