package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/roelfdiedericks/lilybear/internal/entry"
	"github.com/roelfdiedericks/lilybear/internal/errs"
	"github.com/roelfdiedericks/lilybear/internal/journal"
	. "github.com/roelfdiedericks/lilybear/internal/logging"
	. "github.com/roelfdiedericks/lilybear/internal/metrics"
)

// Response details. Downstream failures are deliberately generic.
const (
	detailInvalidType  = "Invalid audio type"
	detailEmptyAudio   = "Empty audio file"
	detailMissingAudio = "Missing audio file"
	detailTooLarge     = "Audio file too large"
	detailCreateFailed = "Failed to create entry"
	detailNotFound     = "Entry not found"
	detailReadFailed   = "Failed to read entry"
	detailRenderFailed = "Failed to render entry"
)

// multipartMemoryLimit is how much of a form is held in memory before
// spilling to temp files.
const multipartMemoryLimit = 8 << 20

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		L_warn("http: failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	// some multipart paths flatten the error to text
	return strings.Contains(err.Error(), "request body too large")
}

// handleCreateEntry handles POST /entries (multipart field "audio").
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		if isTooLarge(err) {
			MetricFailWithReason("http", "entries_create", "too_large")
			writeError(w, http.StatusRequestEntityTooLarge, detailTooLarge)
			return
		}
		L_debug("http: bad multipart form", "error", err)
		writeError(w, http.StatusBadRequest, detailMissingAudio)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, detailMissingAudio)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, detailTooLarge)
			return
		}
		L_error("http: failed to read upload", "error", err)
		writeError(w, http.StatusBadRequest, detailMissingAudio)
		return
	}

	u := journal.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Mindset:     r.FormValue("mindset"),
		Heartset:    r.FormValue("heartset"),
		Energy:      r.FormValue("energy"),
		Intentions:  r.FormValue("intentions"),
	}

	res, err := s.journal.CreateEntry(r.Context(), u)
	if err != nil {
		switch {
		case errors.Is(err, journal.ErrInvalidAudioType):
			writeError(w, http.StatusBadRequest, detailInvalidType)
		case errors.Is(err, journal.ErrEmptyAudio):
			writeError(w, http.StatusBadRequest, detailEmptyAudio)
		default:
			L_error("http: create entry failed", "filename", u.Filename, "error", err)
			MetricFail("http", "entries_create")
			writeError(w, http.StatusInternalServerError, detailCreateFailed)
		}
		return
	}

	MetricSuccess("http", "entries_create")
	writeJSON(w, http.StatusOK, res)
}

// handleGetEntry handles GET /entries/{date}; ?format=html renders the
// markdown.
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")

	data, err := s.journal.GetEntry(r.Context(), date)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			writeError(w, http.StatusNotFound, detailNotFound)
			return
		}
		L_error("http: read entry failed", "date", date, "error", err)
		writeError(w, http.StatusInternalServerError, detailReadFailed)
		return
	}

	if r.URL.Query().Get("format") == "html" {
		html, err := entry.ToHTML(data)
		if err != nil {
			L_error("http: render entry failed", "date", date, "error", err)
			writeError(w, http.StatusInternalServerError, detailRenderFailed)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(html)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(data)
}

func (s *Server) handleEntryNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, detailNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMetrics serves the metrics snapshot as JSON.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"metrics": s.metrics.GetSnapshot()})
}
