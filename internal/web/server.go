// Package web exposes the optional synchronous upload endpoint: a thin
// HTTP wrapper around the same pipeline the directory watcher drives.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"salesink/internal/ingest"
	"salesink/internal/logging"
	"salesink/internal/sniff"
)

// maxUploadSize caps a synchronous upload body (100MB).
const maxUploadSize int64 = 100 * 1024 * 1024

// Server is the HTTP server for synchronous uploads.
type Server struct {
	ingestor *ingest.Ingestor
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server listening on addr.
func NewServer(ingestor *ingest.Ingestor, addr string) *Server {
	s := &Server{
		ingestor: ingestor,
		router:   chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/upload", s.handleUpload)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	}
	return s
}

// Start runs the server until Shutdown.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload accepts a multipart file, spools it to a temp path and
// runs the same detect → resolve → load pipeline the watcher uses. The
// response body is the load outcome contract.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing multipart field \"file\"")
		return
	}
	defer file.Close()

	tmpDir, err := os.MkdirTemp("", "salesink-upload-*")
	if err != nil {
		log.Error("temp dir", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer os.RemoveAll(tmpDir)

	// Keep the original filename: the resolver reads its hints.
	tmpPath := filepath.Join(tmpDir, filepath.Base(header.Filename))
	dst, err := os.Create(tmpPath)
	if err != nil {
		log.Error("spool upload", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		log.Error("spool upload", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	dst.Close()

	outcome, err := s.ingestor.ProcessFile(r.Context(), tmpPath)
	if err != nil {
		log.Warn("upload failed", "file", header.Filename, "error", err)
		status := http.StatusUnprocessableEntity
		if errors.Is(err, sniff.ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
