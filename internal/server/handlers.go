package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Sternrassler/sec-api-client/pkg/client"
	"github.com/Sternrassler/sec-api-client/pkg/edgar"
	"github.com/Sternrassler/sec-api-client/pkg/retriever"
)

var errBadRequest = errors.New("bad request")

type sectionInfo struct {
	ID    edgar.SectionType `json:"id"`
	Title string            `json:"title"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	doc, err := edgar.ParseDocumentType(chi.URLParam(r, "form"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sections := edgar.FormSections(doc)
	out := make([]sectionInfo, len(sections))
	for i, section := range sections {
		out[i] = sectionInfo{ID: section, Title: section.Title()}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	doc, err := edgar.ParseDocumentType(chi.URLParam(r, "form"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	lookup := retriever.Lookup{
		AccessionNumber: strings.TrimSpace(query.Get("accession")),
		Ticker:          strings.TrimSpace(query.Get("ticker")),
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	filing, err := s.retriever.RetrieveReportMetadata(ctx, doc, lookup)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, filing)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	doc, err := edgar.ParseDocumentType(chi.URLParam(r, "form"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	filingURL := strings.TrimSpace(query.Get("url"))
	if filingURL == "" {
		s.writeError(w, r, fmt.Errorf("%w: url parameter is required", errBadRequest))
		return
	}

	var sections []edgar.SectionType
	if raw := strings.TrimSpace(query.Get("sections")); raw != "" {
		sections, err = edgar.ParseSections(strings.Split(raw, ","))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	workers := s.cfg.DefaultWorkers
	if raw := query.Get("workers"); raw != "" {
		workers, err = strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: workers must be an integer", errBadRequest))
			return
		}
	}
	if workers > s.cfg.MaxWorkers {
		s.writeError(w, r, fmt.Errorf("%w: workers must be <= %d", errBadRequest, s.cfg.MaxWorkers))
		return
	}

	format := strings.ToLower(query.Get("format"))
	if format == "" {
		format = "html"
	}
	if format != "html" && format != "markdown" {
		s.writeError(w, r, fmt.Errorf("%w: format must be html or markdown", errBadRequest))
		return
	}

	refresh := false
	if raw := query.Get("refresh"); raw != "" {
		refresh, err = strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: refresh must be a boolean", errBadRequest))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	rep, err := s.retriever.GetReport(ctx, doc, filingURL, retriever.Options{
		Sections: sections,
		Parallel: workers > 1,
		Workers:  workers,
		Refresh:  refresh,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if format == "markdown" {
		body, err := rep.Markdown()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rep.HTML()))
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, edgar.ErrInvalidDocumentType),
		errors.Is(err, edgar.ErrInvalidSection),
		errors.Is(err, retriever.ErrLookupMissing),
		errors.Is(err, retriever.ErrLookupAmbiguous),
		errors.Is(err, retriever.ErrInvalidAccessionNumber),
		errors.Is(err, retriever.ErrInvalidWorkers),
		errors.Is(err, retriever.ErrParallelRequired),
		errors.Is(err, retriever.ErrDocumentTypeNotSupported):
		return http.StatusBadRequest
	case errors.Is(err, client.ErrSectionNotFound),
		errors.Is(err, client.ErrNoFilings):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	s.writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}
