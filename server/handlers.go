package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spektr-org/salesdash/dashboard"
	"github.com/spektr-org/salesdash/dataset"
	"github.com/spektr-org/salesdash/engine"
	"github.com/spektr-org/salesdash/resolver"
)

const msgNoDataset = "no dataset loaded"

// ============================================================================
// UPLOAD
// ============================================================================

type uploadResponse struct {
	Status        string   `json:"status"`
	Source        string   `json:"source"`
	Variant       string   `json:"variant"`
	Rows          int      `json:"rows"`
	SkippedRows   int      `json:"skipped_rows"`
	UnparsedDates int      `json:"unparsed_dates"`
	DateColumn    string   `json:"date_column"`
	Measure       string   `json:"measure"`
	Dimensions    []string `json:"dimensions"`
	Measures      []string `json:"measures"`
	Years         []string `json:"years"`
	Indexing      bool     `json:"indexing"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	data, name, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		WriteError(w, http.StatusBadRequest, "empty upload")
		return
	}

	opts := append([]dataset.Option{}, s.loadOpts...)
	opts = append(opts, dataset.WithSource(name), dataset.WithLogger(s.logger))
	q := r.URL.Query()
	if v := q.Get("variant"); v != "" {
		variant, err := dataset.ParseVariant(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts = append(opts, dataset.WithVariant(variant))
	}
	if col := q.Get("date_column"); col != "" {
		opts = append(opts, dataset.WithDateColumn(col))
	}
	if m := q.Get("measure"); m != "" {
		opts = append(opts, dataset.WithMeasure(m))
	}

	ds, err := dataset.Load(data, opts...)
	if err != nil {
		s.logger.Warn().Err(err).Str("source", name).Msg("Upload rejected")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.SetDataset(ds)

	indexing := s.reindex(ds)

	stats := ds.Stats()
	sch := ds.Schema()
	WriteJSON(w, http.StatusOK, uploadResponse{
		Status:        "success",
		Source:        ds.Source(),
		Variant:       string(ds.Variant()),
		Rows:          ds.Len(),
		SkippedRows:   stats.SkippedRows,
		UnparsedDates: stats.UnparsedDates,
		DateColumn:    sch.DateColumn,
		Measure:       ds.Measure(),
		Dimensions:    sch.DimensionKeys(),
		Measures:      sch.MeasureKeys(),
		Years:         ds.Years(),
		Indexing:      indexing,
	})
}

// readUpload returns the CSV bytes from a multipart "file" field or the raw body.
func readUpload(r *http.Request) ([]byte, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("multipart field \"file\": %w", err)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", err
		}
		return data, header.Filename, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", err
	}
	return data, "upload.csv", nil
}

// reindex rebuilds the retrieval index in the background. It reports
// whether indexing was started. Runs are serialized and a run superseded by
// a later upload is skipped, so the index ends up on the latest dataset.
func (s *Server) reindex(ds *dataset.Dataset) bool {
	if s.indexer == nil {
		return false
	}
	gen := s.indexGen.Add(1)
	s.indexWG.Add(1)
	go func() {
		defer s.indexWG.Done()
		s.indexMu.Lock()
		defer s.indexMu.Unlock()

		if s.indexGen.Load() != gen {
			s.logger.Debug().Str("source", ds.Source()).Msg("Skipping superseded re-index")
			return
		}
		stats, err := s.indexer.Index(context.Background(), ds, true)
		if err != nil {
			s.logger.Error().Err(err).Str("source", ds.Source()).Msg("Re-indexing failed")
			return
		}
		s.logger.Info().
			Str("source", ds.Source()).
			Int("chunks", stats.Chunks).
			Dur("duration", stats.Duration).
			Msg("Re-indexed uploaded dataset")
	}()
	return true
}

// ============================================================================
// DASHBOARD
// ============================================================================

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ds := s.Dataset()
	if ds == nil {
		WriteError(w, http.StatusConflict, msgNoDataset)
		return
	}

	d, err := dashboard.Build(ds, selectionFromQuery(r))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

func selectionFromQuery(r *http.Request) dashboard.Selection {
	return dashboard.Selection{
		Years:     queryList(r, "year"),
		Countries: queryList(r, "country"),
	}
}

// ============================================================================
// ASK
// ============================================================================

type askRequest struct {
	Question  string   `json:"question"`
	Years     []string `json:"years,omitempty"`
	Countries []string `json:"countries,omitempty"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, http.StatusBadRequest, "question is required")
		return
	}

	ds := s.Dataset()
	if ds == nil {
		WriteError(w, http.StatusConflict, msgNoDataset)
		return
	}

	q := resolver.Question{Text: req.Question, Dataset: ds}
	sel := dashboard.Selection{Years: req.Years, Countries: req.Countries}
	if f := sel.Filters(); !f.IsEmpty() {
		q.View = engine.ApplyFilters(ds.View(), f)
	}

	reply := s.assistant.Answer(r.Context(), q)
	WriteJSON(w, http.StatusOK, reply)
}

// ============================================================================
// HEALTH
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":         "ok",
		"dataset_loaded": false,
	}
	if ds := s.Dataset(); ds != nil {
		resp["dataset_loaded"] = true
		resp["rows"] = ds.Len()
		resp["source"] = ds.Source()
	}
	WriteJSON(w, http.StatusOK, resp)
}
