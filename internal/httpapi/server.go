// Package httpapi exposes the record service over HTTP/JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"semsearch/config"
	"semsearch/internal/domain"
	"semsearch/internal/port"
	"semsearch/internal/usecase"
)

// Service is the subset of usecase.Service the handlers call.
type Service interface {
	AddRecords(ctx context.Context, inputs []domain.RecordInput) (*domain.IngestResult, error)
	Search(ctx context.Context, query string, opts ...usecase.SearchOption) ([]domain.ScoredRecord, error)
	ListAll(ctx context.Context) ([]domain.Record, error)
	ClearAll(ctx context.Context) (int, error)
	Embedder() port.Embedder
}

type Server struct {
	svc    Service
	cfg    config.ServerConfig
	logger *slog.Logger
	mux    *http.ServeMux
}

func NewServer(svc Service, cfg config.ServerConfig, logger *slog.Logger) *Server {
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /users", s.handleListUsers)
	s.mux.HandleFunc("DELETE /users", s.handleDeleteUsers)
	s.mux.HandleFunc("POST /add-users", s.handleAddUsers)
	s.mux.HandleFunc("POST /search", s.handleSearch)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the routes wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.cors(s.mux))
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to the configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type addUsersRequest struct {
	Users []domain.RecordInput `json:"users"`
}

type addUsersResponse struct {
	Message       string   `json:"message"`
	InsertedCount int      `json:"insertedCount"`
	IDs           []string `json:"ids"`
}

type searchRequest struct {
	Query     string   `json:"query"`
	Threshold *float64 `json:"threshold,omitempty"`
	Limit     *int     `json:"limit,omitempty"`
}

type searchHit struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Bio        string  `json:"bio"`
	Similarity float64 `json:"similarity"`
}

type listUsersResponse struct {
	TotalUsers int             `json:"totalUsers"`
	Users      []domain.Record `json:"users"`
}

type deleteUsersResponse struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deletedCount"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.ListAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, listUsersResponse{TotalUsers: len(records), Users: records})
}

func (s *Server) handleDeleteUsers(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.ClearAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, deleteUsersResponse{
		Message:      "All users deleted successfully",
		DeletedCount: n,
	})
}

func (s *Server) handleAddUsers(w http.ResponseWriter, r *http.Request) {
	var req addUsersRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Users == nil {
		s.writeError(w, domain.InvalidInput("add_records", "users must be an array of {name, email, bio}"))
		return
	}

	result, err := s.svc.AddRecords(r.Context(), req.Users)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, addUsersResponse{
		Message:       "Users added successfully",
		InsertedCount: result.InsertedCount,
		IDs:           result.IDs,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	var opts []usecase.SearchOption
	if req.Threshold != nil {
		opts = append(opts, usecase.WithThreshold(*req.Threshold))
	}
	if req.Limit != nil {
		opts = append(opts, usecase.WithLimit(*req.Limit))
	}

	results, err := s.svc.Search(r.Context(), req.Query, opts...)
	if err != nil {
		s.writeError(w, err)
		return
	}

	hits := make([]searchHit, len(results))
	for i, res := range results {
		hits[i] = searchHit{
			ID:         res.Record.ID,
			Name:       res.Record.Name,
			Email:      res.Record.Email,
			Bio:        res.Record.Bio,
			Similarity: res.Similarity,
		}
	}
	s.writeJSON(w, http.StatusOK, hits)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	emb := s.svc.Embedder()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"model":     emb.ModelName(),
		"dimension": emb.Dimension(),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.InvalidInput("decode", "request body exceeds %d bytes", tooLarge.Limit)
		}
		return domain.InvalidInput("decode", "malformed JSON body: %v", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "kind", kind.String(), "error", err)
	}
	s.writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		Kind:      kind.String(),
		Retryable: domain.IsRetryable(err),
	})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidInput, domain.KindDimensionMismatch:
		return http.StatusBadRequest
	case domain.KindEmbedding, domain.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindStoreWrite:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) cors(next http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(s.cfg.AllowedOrigins))
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
