// Package api serves the HTTP admin API of the skill runtime: listing and
// inspecting skills, refreshing the registry, previewing the prompt index,
// uploading skills and trying out selection.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"

	"github.com/jaguarliu/miniclaw-sub002/pkg/logger"
	"github.com/jaguarliu/miniclaw-sub002/pkg/presenter"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/install"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/template"
	"github.com/jaguarliu/miniclaw-sub002/pkg/tools"
	skilltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/skills"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const (
	maxRequestBody  = 2 << 20
	shutdownTimeout = 30 * time.Second
)

// Config holds the listen address.
type Config struct {
	Host string
	Port int
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}
	return nil
}

// Server is the admin API server.
type Server struct {
	router   *mux.Router
	runtime  *skills.Runtime
	tools    tools.Set
	config   *Config
	markdown goldmark.Markdown
	server   *http.Server
}

// NewServer creates the server and its routes.
func NewServer(rt *skills.Runtime, config *Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	s := &Server{
		router:   mux.NewRouter(),
		runtime:  rt,
		tools:    tools.NewSet(tools.NewUseSkillTool(rt.Registry)),
		config:   config,
		markdown: goldmark.New(),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/skills", s.handleListSkills).Methods("GET")
	api.HandleFunc("/index", s.handleIndex).Methods("GET")
	api.HandleFunc("/skills/refresh", s.handleRefresh).Methods("POST")
	api.HandleFunc("/skills/upload", s.handleUpload).Methods("POST")
	api.HandleFunc("/skills/select", s.handleSelect).Methods("POST")
	api.HandleFunc("/skills/{name}", s.handleGetSkill).Methods("GET")
	api.HandleFunc("/tools", s.handleListTools).Methods("GET")
	api.HandleFunc("/tools/{name}", s.handleExecuteTool).Methods("POST")

	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// requestIDMiddleware tags each request with an id, taken from the client
// when supplied, and attaches it to the request logger.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := logger.WithFields(r.Context(), logrus.Fields{"request_id": id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration":    time.Since(start),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// SkillSummary is one row of the skill list.
type SkillSummary struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Available         bool   `json:"available"`
	UnavailableReason string `json:"unavailableReason,omitempty"`
	Priority          string `json:"priority"`
	TokenCost         int    `json:"tokenCost"`
	SourcePath        string `json:"sourcePath"`
}

// ListSkillsResponse is returned by GET /api/skills.
type ListSkillsResponse struct {
	Skills  []SkillSummary `json:"skills"`
	Version int64          `json:"version"`
}

// SkillDetail is returned by GET /api/skills/{name}.
type SkillDetail struct {
	SkillSummary
	Body          string   `json:"body"`
	BodyHTML      string   `json:"bodyHtml"`
	AllowedTools  []string `json:"allowedTools"`
	ConfirmBefore []string `json:"confirmBefore"`
}

// UploadRequest is the body of POST /api/skills/upload.
type UploadRequest struct {
	FileName string `json:"fileName"`
	Content  string `json:"content"`
}

// SelectRequest is the body of POST /api/skills/select.
type SelectRequest struct {
	Input       string            `json:"input"`
	LLMResponse string            `json:"llmResponse,omitempty"`
	Variables   map[string]string `json:"variables,omitempty"`
}

// PreparedSkill is the rendered skill returned alongside a selection.
type PreparedSkill struct {
	Name          string   `json:"name"`
	Body          string   `json:"body"`
	BasePath      string   `json:"basePath"`
	AllowedTools  []string `json:"allowedTools"`
	ConfirmBefore []string `json:"confirmBefore"`
}

// SelectResponse is returned by POST /api/skills/select.
type SelectResponse struct {
	Selection skilltypes.SkillSelection `json:"selection"`
	Skill     *PreparedSkill            `json:"skill,omitempty"`
}

func summarize(e skilltypes.SkillEntry) SkillSummary {
	return SkillSummary{
		Name:              e.Name(),
		Description:       e.Metadata.Description,
		Available:         e.Available,
		UnavailableReason: e.UnavailableReason,
		Priority:          e.Priority().String(),
		TokenCost:         e.TokenCost,
		SourcePath:        e.Metadata.SourcePath,
	}
}

func (s *Server) handleListSkills(w http.ResponseWriter, _ *http.Request) {
	entries := s.runtime.Registry.All()
	resp := ListSkillsResponse{
		Skills:  make([]SkillSummary, 0, len(entries)),
		Version: s.runtime.Registry.SnapshotVersion(),
	}
	for _, e := range entries {
		resp.Skills = append(resp.Skills, summarize(e))
	}
	s.writeJSONResponse(w, http.StatusOK, resp)
}

func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	entry, ok := s.runtime.Registry.Get(name)
	if !ok {
		s.writeErrorResponse(r.Context(), w, http.StatusNotFound, fmt.Sprintf("skill '%s' not found", name), nil)
		return
	}
	if !entry.Available {
		s.writeErrorResponse(r.Context(), w, http.StatusNotFound, fmt.Sprintf("skill '%s' is unavailable: %s", name, entry.UnavailableReason), nil)
		return
	}
	loaded, ok := s.runtime.Registry.Activate(r.Context(), name)
	if !ok {
		s.writeErrorResponse(r.Context(), w, http.StatusNotFound, fmt.Sprintf("skill '%s' could not be loaded", name), nil)
		return
	}

	var html bytes.Buffer
	if err := s.markdown.Convert([]byte(loaded.Body), &html); err != nil {
		s.writeErrorResponse(r.Context(), w, http.StatusInternalServerError, "failed to render skill body", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, SkillDetail{
		SkillSummary:  summarize(entry),
		Body:          loaded.Body,
		BodyHTML:      html.String(),
		AllowedTools:  nonNil(entry.Metadata.AllowedTools),
		ConfirmBefore: nonNil(entry.Metadata.ConfirmBefore),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.runtime.Registry.Refresh(r.Context())
	stats := s.runtime.Registry.Stats()
	s.writeJSONResponse(w, http.StatusOK, map[string]any{
		"version":   s.runtime.Registry.SnapshotVersion(),
		"total":     stats.Total,
		"available": stats.Available,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, map[string]any{
		"index":   s.runtime.Index.BuildIndex(),
		"compact": s.runtime.Index.BuildCompactIndex(),
		"stats":   s.runtime.Index.Stats(),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req UploadRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	result, err := s.runtime.Installer.InstallBase64(r.Context(), req.FileName, req.Content)
	if err != nil {
		if install.IsUserError(err) {
			s.writeErrorResponse(r.Context(), w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		s.writeErrorResponse(r.Context(), w, http.StatusInternalServerError, "failed to write skill file", err)
		return
	}
	s.writeJSONResponse(w, http.StatusOK, map[string]string{"name": result.Name})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	sel := s.runtime.Select(r.Context(), req.Input, req.LLMResponse)
	resp := SelectResponse{Selection: sel}
	if sel.Selected {
		tctx := template.NewContext().WithAll(req.Variables)
		if loaded, ok := s.runtime.Prepare(r.Context(), sel, tctx); ok {
			resp.Skill = &PreparedSkill{
				Name:          loaded.Name,
				Body:          loaded.Body,
				BasePath:      loaded.BasePath,
				AllowedTools:  setToSlice(loaded.AllowedTools),
				ConfirmBefore: setToSlice(loaded.ConfirmBefore),
			}
		}
	}
	s.writeJSONResponse(w, http.StatusOK, resp)
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, map[string]any{"tools": s.tools.Definitions()})
}

func (s *Server) handleExecuteTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	tool, ok := s.tools[name]
	if !ok {
		s.writeErrorResponse(r.Context(), w, http.StatusNotFound, fmt.Sprintf("tool '%s' not found", name), nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.writeErrorResponse(r.Context(), w, http.StatusBadRequest, "failed to read request body", err)
		return
	}
	if err := tool.ValidateInput(string(body)); err != nil {
		s.writeErrorResponse(r.Context(), w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if kvs, err := tool.TracingKVs(string(body)); err == nil {
		fields := logrus.Fields{"tool": name}
		for _, kv := range kvs {
			fields[string(kv.Key)] = kv.Value.Emit()
		}
		logger.G(r.Context()).WithFields(fields).Debug("executing tool")
	}
	s.writeJSONResponse(w, http.StatusOK, tool.Execute(r.Context(), string(body)))
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		s.writeErrorResponse(r.Context(), w, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	return true
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode JSON response")
	}
}

func (s *Server) writeErrorResponse(ctx context.Context, w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		logger.G(ctx).WithError(err).Error(message)
	}
	s.writeJSONResponse(w, statusCode, map[string]any{
		"error":   message,
		"status":  statusCode,
		"success": false,
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", address)
	}
	return s.Serve(ctx, listener)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	presenter.Info(fmt.Sprintf("Starting skills API on http://%s", listener.Addr()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "skills API server failed")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
