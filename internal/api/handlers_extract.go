package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/poextract/internal/extract"
	"github.com/dgallion1/poextract/internal/pipeline"
)

// readUpload pulls the PDF bytes and mode out of an already-parsed
// multipart form. Shared by the async, sync, and batch handlers.
func (s *Server) readUpload(fh *multipart.FileHeader) (string, []byte, error) {
	filename := sanitizeFilename(fh.Filename)
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return filename, nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	f, err := fh.Open()
	if err != nil {
		return filename, nil, fmt.Errorf("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return filename, nil, fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return filename, nil, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return filename, data, nil
}

func (s *Server) parseUploadForm(w http.ResponseWriter, r *http.Request) (string, []byte, extract.Mode, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return "", nil, "", false
	}

	mode, err := s.requestMode(r.FormValue("mode"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return "", nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return "", nil, "", false
	}
	file.Close()

	filename, data, err := s.readUpload(header)
	if err != nil {
		code := http.StatusBadRequest
		if strings.Contains(err.Error(), "max size") {
			code = http.StatusRequestEntityTooLarge
		}
		jsonError(w, err.Error(), code)
		return "", nil, "", false
	}
	return filename, data, mode, true
}

func (s *Server) requestMode(v string) (extract.Mode, error) {
	if v == "" {
		v = s.cfg.DefaultMode
	}
	return extract.ParseMode(v)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	filename, data, mode, ok := s.parseUploadForm(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	run := pipeline.NewRun(filename, mode, data)
	if err := s.orchestrator.Submit(run); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"run_id":   run.ID,
		"status":   run.Snapshot().Status,
		"mode":     mode,
		"poll_url": fmt.Sprintf("/api/extract/%s", run.ID),
	})
}

func (s *Server) handleExtractStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run := s.orchestrator.GetRun(runID)
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run.Snapshot())
}

// handleExtractSync processes the upload on the request goroutine and
// returns the full result. A failed run is still a well-formed 200
// response; the body's status and result distinguish "failed, no data"
// from "succeeded, some fields null".
func (s *Server) handleExtractSync(w http.ResponseWriter, r *http.Request) {
	filename, data, mode, ok := s.parseUploadForm(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	run := pipeline.NewRun(filename, mode, data)
	s.orchestrator.Execute(r.Context(), run)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run.Snapshot())
}

func (s *Server) handleExtractBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	mode, err := s.requestMode(r.FormValue("mode"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	// Every file becomes its own isolated run.
	var results []map[string]any
	for _, fh := range files {
		filename, data, err := s.readUpload(fh)
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		run := pipeline.NewRun(filename, mode, data)
		if err := s.orchestrator.Submit(run); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		results = append(results, map[string]any{
			"filename": filename,
			"run_id":   run.ID,
			"status":   run.Snapshot().Status,
			"poll_url": fmt.Sprintf("/api/extract/%s", run.ID),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"runs": results})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
