package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/parser"
	"github.com/dgallion1/docrank/internal/pipeline"
	"github.com/dgallion1/docrank/internal/report"
)

const maxDescriptorBytes = 1 << 20

// handleAnalyze queues an analysis. A JSON body is an input descriptor whose
// documents are read from the server's input directory. A multipart body
// carries the descriptor in the "input" field and the PDFs as "files".
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var (
		in    *config.Input
		files map[string][]byte
		err   error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		in, files, err = s.readMultipart(w, r)
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxDescriptorBytes)
		in, err = config.DecodeInput(r.Body)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
		default:
			jsonError(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	job := pipeline.NewJob(in, files)
	if err := s.orchestrator.Submit(job); err != nil {
		s.log.Warn("analysis rejected", "job_id", job.ID, "error", err)
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("analysis queued", "job_id", job.ID, "documents", len(in.Documents), "uploaded", len(files))

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/analyze/%s", job.ID),
	})
}

func (s *Server) readMultipart(w http.ResponseWriter, r *http.Request) (*config.Input, map[string][]byte, error) {
	// Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	raw := r.FormValue("input")
	if raw == "" {
		return nil, nil, errors.New("input is required")
	}
	in, err := config.DecodeInput(strings.NewReader(raw))
	if err != nil {
		return nil, nil, err
	}

	files := make(map[string][]byte)
	for _, fh := range r.MultipartForm.File["files"] {
		name := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(name) {
			return nil, nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(name))
		}
		f, err := fh.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", name, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", name, err)
		}
		files[name] = data
	}
	if len(files) == 0 {
		return nil, nil, errors.New("at least one file is required")
	}
	return in, files, nil
}

func (s *Server) handleAnalyzeStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleAnalyzeReport(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	res := job.Result()
	if res == nil {
		jsonError(w, fmt.Sprintf("no report for job in status %q", job.Snapshot().Status), http.StatusConflict)
		return
	}
	page, err := report.HTML(res)
	if err != nil {
		s.log.Error("report rendering failed", "job_id", job.ID, "error", err)
		jsonError(w, "report rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// sanitizeFilename keeps only the base name. Dots inside a name are left
// alone so uploads still match the descriptor's filenames.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return "unnamed"
	}
	return name
}
