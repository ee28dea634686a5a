package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"reportflow/pkg/docindex"
	"reportflow/pkg/fetch"
	"reportflow/pkg/stream"
)

// maxUploadSize caps the total multipart upload at 32MB.
const maxUploadSize = 32 << 20

type serverDeps struct {
	bridge     *stream.Bridge
	index      docindex.Index
	fetcher    *fetch.Fetcher
	collection string
	logger     *slog.Logger
}

type server struct {
	serverDeps
	mux *http.ServeMux
}

func newServer(deps serverDeps) *server {
	s := &server{serverDeps: deps, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /", s.handleRoot)
	s.mux.HandleFunc("POST /generate-report", s.handleGenerateReport)
	s.mux.HandleFunc("POST /add-documents", s.handleAddDocuments)
	s.mux.HandleFunc("POST /add-link", s.handleAddLink)
	s.mux.HandleFunc("POST /upload-files", s.handleUploadFiles)
	return s
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "reportflow: multi-agent report pipeline",
		"active_runs": s.bridge.ActiveRuns(),
	})
}

type generateReportRequest struct {
	TaskDescription string `json:"task_description"`
}

// handleGenerateReport starts a pipeline run and streams its events as
// server-sent events. The stream ends after exactly one "end" or
// "error" frame; a client disconnect cancels the run.
func (s *server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var req generateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if len(strings.TrimSpace(req.TaskDescription)) < 10 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "task_description must be at least 10 characters",
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	run := s.bridge.Start(r.Context(), req.TaskDescription)
	defer run.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range run.Events {
		data, err := json.Marshal(ev.Payload())
		if err != nil {
			s.logger.Error("marshal event failed",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()))
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
		flusher.Flush()
	}
}

type addDocumentsRequest struct {
	Documents []string `json:"documents"`
	IndexName string   `json:"index_name"`
}

type ingestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func (s *server) collectionFor(indexName string) string {
	if indexName != "" {
		return indexName
	}
	return s.collection
}

func (s *server) handleAddDocuments(w http.ResponseWriter, r *http.Request) {
	var req addDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ingestResponse{
			Success: false, Message: "Failed to add documents.", Error: "invalid JSON body",
		})
		return
	}
	if len(req.Documents) == 0 {
		writeJSON(w, http.StatusBadRequest, ingestResponse{
			Success: false, Message: "Failed to add documents.", Error: "documents must not be empty",
		})
		return
	}

	collection := s.collectionFor(req.IndexName)
	if err := s.index.AddDocuments(r.Context(), collection, req.Documents); err != nil {
		s.logger.Error("add documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ingestResponse{
			Success: false, Message: "Failed to add documents.", Error: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully added %d documents to index %q.", len(req.Documents), collection),
	})
}

type addLinkRequest struct {
	URL       string `json:"url"`
	IndexName string `json:"index_name"`
}

func (s *server) handleAddLink(w http.ResponseWriter, r *http.Request) {
	var req addLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ingestResponse{
			Success: false, Message: "Failed to add link.", Error: "invalid JSON body",
		})
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, ingestResponse{
			Success: false, Message: "Failed to add link.", Error: "url must not be empty",
		})
		return
	}

	page, err := s.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		s.logger.Error("fetch link failed", slog.String("url", req.URL), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ingestResponse{
			Success: false, Message: "Failed to scrape link.", Error: err.Error(),
		})
		return
	}

	collection := s.collectionFor(req.IndexName)
	if err := s.index.AddDocuments(r.Context(), collection, []string{page.Markdown}); err != nil {
		s.logger.Error("index link failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ingestResponse{
			Success: false, Message: "Failed to add link.", Error: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{
		Success: true, Message: "Link content added to knowledge base.",
	})
}

// handleUploadFiles accepts multipart uploads of plain-text files (.txt,
// .md) and indexes their contents. Other formats are skipped, not
// rejected, so mixed uploads still ingest what they can.
func (s *server) handleUploadFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, ingestResponse{
			Success: false, Message: "Failed to process files.", Error: "invalid multipart form",
		})
		return
	}

	var documents []string
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			ext := strings.ToLower(filepath.Ext(header.Filename))
			if ext != ".txt" && ext != ".md" {
				s.logger.Warn("skipping unsupported file", slog.String("filename", header.Filename))
				continue
			}
			f, err := header.Open()
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, ingestResponse{
					Success: false, Message: "Failed to process files.", Error: err.Error(),
				})
				return
			}
			content, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, ingestResponse{
					Success: false, Message: "Failed to process files.", Error: err.Error(),
				})
				return
			}
			documents = append(documents, string(content))
		}
	}

	if len(documents) == 0 {
		writeJSON(w, http.StatusBadRequest, ingestResponse{
			Success: false, Message: "No supported files were processed.", Error: "no supported files",
		})
		return
	}

	if err := s.index.AddDocuments(r.Context(), s.collection, documents); err != nil {
		s.logger.Error("index uploads failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ingestResponse{
			Success: false, Message: "Failed to process files.", Error: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully processed and added %d files.", len(documents)),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
