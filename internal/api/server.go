package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/quizbank/internal/config"
	"github.com/knowledge-engine/quizbank/internal/engine"
	"github.com/knowledge-engine/quizbank/internal/reader"
	"github.com/knowledge-engine/quizbank/internal/record"
	"github.com/knowledge-engine/quizbank/internal/search"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type Server struct {
	Engine *engine.Engine
	Index  *search.Index
	Logger *logrus.Entry
	Router *http.ServeMux
}

func NewServer(eng *engine.Engine, index *search.Index, logger *logrus.Entry) *Server {
	s := &Server{
		Engine: eng,
		Index:  index,
		Logger: logger.WithField("component", "api"),
		Router: http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("POST /api/v1/extract", s.handleExtract)
	s.Router.HandleFunc("GET /api/v1/search", s.handleSearch)
	s.Router.HandleFunc("GET /api/v1/random", s.handleRandom)
	s.Router.HandleFunc("POST /api/v1/questions", s.handleAdd)
	s.Router.HandleFunc("GET /api/v1/questions/{id}", s.handleGet)
	s.Router.HandleFunc("PUT /api/v1/questions/{id}", s.handleUpdate)
	s.Router.HandleFunc("DELETE /api/v1/questions/{id}", s.handleDelete)
	s.Router.HandleFunc("POST /api/v1/merge", s.handleMerge)
	s.Router.HandleFunc("GET /api/v1/stats", s.handleStats)
	s.Router.HandleFunc("GET /api/v1/status", s.handleStatus)
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.Logger.Infof("Starting API Server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Responses
type ErrorResponse struct {
	Error string `json:"error"`
}

type SearchResponse struct {
	Query    string                  `json:"query"`
	Category string                  `json:"category"`
	Total    int                     `json:"total"`
	Results  []record.QuestionRecord `json:"results"`
}

type StatsResponse struct {
	Bank    search.Statistics  `json:"bank"`
	LastRun *engine.RunSummary `json:"last_run,omitempty"`
}

type StatusResponse struct {
	Running   bool   `json:"running"`
	Runs      int64  `json:"runs"`
	LastRunID string `json:"last_run_id,omitempty"`
	LastError string `json:"last_error,omitempty"`
	Uptime    string `json:"uptime"`
}

type ExtractRequest struct {
	Sources []SourceView `json:"sources"`
}

type SourceView struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	StartID  int    `json:"start_id"`
}

// Handlers

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
			return
		}
	}

	sources := s.Engine.Config.Sources
	if len(req.Sources) > 0 {
		sources = make([]config.Source, 0, len(req.Sources))
		for _, src := range req.Sources {
			path, err := s.resolveSource(src.Path)
			if err != nil {
				jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
				return
			}
			sources = append(sources, config.Source{Path: path, Category: src.Category, StartID: src.StartID})
		}
	}

	res, err := s.Engine.Run(r.Context(), sources)
	if errors.Is(err, engine.ErrRunning) {
		jsonResponse(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	s.Index.Replace(res.Catalog)
	jsonResponse(w, http.StatusOK, res.Summary)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")
	limit, ok := parseLimit(w, r.URL.Query().Get("limit"))
	if !ok {
		return
	}

	hits := s.Index.Search(query, category)
	response := SearchResponse{
		Query:    query,
		Category: category,
		Total:    len(hits),
		Results:  hits,
	}
	if len(hits) > limit {
		response.Results = hits[:limit]
	}

	jsonResponse(w, http.StatusOK, response)
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	n, ok := parseLimit(w, r.URL.Query().Get("n"))
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, s.Index.Random(n, r.URL.Query().Get("category")))
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req search.NewQuestion
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}

	rec, err := s.Index.Add(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.persist(r.Context())
	jsonResponse(w, http.StatusCreated, rec)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rec, err := s.Index.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var patch search.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}

	rec, err := s.Index.Update(id, patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.persist(r.Context())
	jsonResponse(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := s.Index.Delete(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.persist(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	local := record.NewCatalog()
	if err := json.NewDecoder(r.Body).Decode(local); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}

	added := s.Index.Merge(local)
	if added > 0 {
		s.persist(r.Context())
	}
	jsonResponse(w, http.StatusOK, map[string]int{"added": added})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, StatsResponse{
		Bank:    s.Index.Statistics(),
		LastRun: s.Engine.Snapshot().LastRun,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.Engine.Snapshot()

	jsonResponse(w, http.StatusOK, StatusResponse{
		Running:   s.Engine.IsRunning(),
		Runs:      stats.Runs,
		LastRunID: stats.LastRunID,
		LastError: stats.LastError,
		Uptime:    time.Since(stats.StartTime).Round(time.Second).String(),
	})
}

// resolveSource maps a requested source onto the configured source directory.
// Remote sources are accepted only when enabled.
func (s *Server) resolveSource(path string) (string, error) {
	if path == "" {
		return "", errors.New("source path is required")
	}
	if reader.IsRemote(path) {
		if !s.Engine.Config.Server.AllowRemote {
			return "", fmt.Errorf("remote source %s is not allowed", path)
		}
		return path, nil
	}
	if !filepath.IsLocal(path) {
		return "", fmt.Errorf("source %s must be relative to the source directory", path)
	}
	return filepath.Join(s.Engine.Config.Server.SourceDir, path), nil
}

// persist writes the edited bank back; failures are logged, the edit stands.
func (s *Server) persist(ctx context.Context) {
	if s.Engine.Storage == nil {
		return
	}
	if err := s.Engine.Storage.Save(ctx, s.Index.Snapshot()); err != nil {
		s.Logger.WithError(err).Error("Failed to persist question bank")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrNotFound):
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, search.ErrInvalid):
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "id must be an integer"})
		return 0, false
	}
	return id, true
}

func parseLimit(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		return 0, false
	}
	return min(n, maxLimit), true
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
