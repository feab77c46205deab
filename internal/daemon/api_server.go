package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"studyscribe/internal/api"
	"studyscribe/internal/logging"
	"studyscribe/internal/services"
)

const maxRequestBytes = 1 << 20

// Service is the operation surface the HTTP handlers call.
type Service interface {
	Submit(ctx context.Context, req api.SubmitRequest) (api.SubmitResponse, error)
	Get(ctx context.Context, id string) (api.Job, error)
	List(ctx context.Context, statuses ...string) ([]api.JobSummary, error)
	Search(ctx context.Context, req api.SearchRequest) (api.SearchResponse, error)
	Ask(ctx context.Context, req api.AskRequest) (api.AskResponse, error)
	RebuildChunks(ctx context.Context, sessionDir string) (api.RebuildResponse, error)
	Status(ctx context.Context) (api.Status, error)
}

type apiServer struct {
	bind    string
	logger  *slog.Logger
	service Service

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind string, service Service, logger *slog.Logger) *apiServer {
	if logger == nil {
		logger = logging.NewNop()
	}
	srv := &apiServer{
		bind:    strings.TrimSpace(bind),
		logger:  logging.NewComponentLogger(logger, "api-server"),
		service: service,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Ask waits on the model, so writes get more room than reads.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/transcriptions", s.handleSubmit)
	mux.HandleFunc("GET /api/jobs", s.handleJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleJob)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("POST /api/chunks/rebuild", s.handleRebuild)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api listen: paths.api_bind is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.service.Submit(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []string
	for _, value := range r.URL.Query()["status"] {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				statuses = append(statuses, trimmed)
			}
		}
	}
	list, err := s.service.List(r.Context(), statuses...)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: list})
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req api.SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.service.Search(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req api.AskRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.service.Ask(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleRebuild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionDir string `json:"session_dir"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.service.RebuildChunks(r.Context(), req.SessionDir)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.Status(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		details := services.Details(err)
		s.logger.Error("api request failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.String(logging.FieldErrorKind, string(details.Kind)),
			logging.String(logging.FieldErrorOp, details.Operation),
			logging.Error(err),
		)
	}
	s.writeJSON(w, code, api.ErrorResponse{
		Error: services.UserMessage(err),
		Kind:  string(services.KindOf(err)),
	})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
