package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"revoice/internal/api"
	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/services"
)

type apiServer struct {
	bind    string
	maxBody int64
	logger  *slog.Logger
	daemon  *Daemon
	query   *api.QueryService
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:    strings.TrimSpace(cfg.API.Bind),
		maxBody: cfg.API.MaxBody,
		logger:  logging.NewComponentLogger(logger, "api-server"),
		daemon:  d,
		query:   api.NewQueryService(d.store),
	}
	if srv.maxBody <= 0 {
		srv.maxBody = 1 << 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(srv.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", srv.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(cfg.API.Token))
		srv.routes(r)
	})
	if cfg.API.Prefixed {
		r.Route("/api", func(r chi.Router) {
			r.Get("/healthz", srv.handleHealth)
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware(cfg.API.Token))
				srv.routes(r)
			})
		})
	}
	srv.handler = r
	return srv
}

func (s *apiServer) routes(r chi.Router) {
	r.Post("/process", s.handleSubmit)
	r.Get("/job", s.handleLookup)
	r.Get("/job/{id}", s.handleJob)
	r.Get("/jobs", s.handleList)
}

// listen binds the API address without serving requests yet.
func (s *apiServer) listen() error {
	if s.bind == "" {
		return errors.New("api bind address not configured")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	return nil
}

// closeListener undoes listen when startup fails before serve.
func (s *apiServer) closeListener() {
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) serve() {
	listener := s.listener
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	server := s.server
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
}

func (s *apiServer) stop() {
	if s.server == nil {
		s.closeListener()
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.server = nil
	s.listener = nil
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: "request body too large"})
			return
		}
		s.writeError(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid JSON body", Kind: "validation"})
		return
	}
	resp, err := s.daemon.gateway.Submit(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	record, err := s.query.Describe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *apiServer) handleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source := q.Get("source")
	if source == "" {
		source = q.Get("youtubeUrl")
	}
	record, err := s.query.LatestCompleted(r.Context(), source, q.Get("language"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid limit", Kind: "validation"})
			return
		}
		limit = parsed
	}
	records, err := s.query.List(r.Context(), q["status"], limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: records})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := s.daemon.Health(r.Context())
	code := http.StatusOK
	if payload.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, payload)
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	code := services.HTTPStatus(err)
	details := services.Details(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", logging.Error(err),
			logging.String(logging.FieldErrorKind, details.Kind),
			logging.String(logging.FieldEventType, "api_error"))
	}
	s.writeError(w, code, api.ErrorResponse{Error: err.Error(), Kind: details.Kind, Hint: details.Hint})
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

func (s *apiServer) writeError(w http.ResponseWriter, status int, payload api.ErrorResponse) {
	s.writeJSON(w, status, payload)
}

// requestLogger threads the chi request id into the request context and logs
// each request once it completes.
func (s *apiServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		if reqID != "" {
			r = r.WithContext(services.WithRequestID(r.Context(), reqID))
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Int("bytes", ww.BytesWritten()),
			logging.Duration("duration", time.Since(started)),
			logging.String(logging.FieldCorrelationID, reqID),
		)
	})
}

func processID() int { return os.Getpid() }
