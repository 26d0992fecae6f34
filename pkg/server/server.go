// Package server exposes plan conversion over HTTP. One POST endpoint
// accepts a JSON plan (optionally wrapped in an envelope carrying
// rewrite flags) and returns the converted plan; small GET endpoints
// report the operator mapping table, liveness and the build version.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/planshift/planshift/pkg/log"
	"github.com/planshift/planshift/pkg/planio"
	"github.com/planshift/planshift/pkg/trino"
	"github.com/planshift/planshift/pkg/version"
)

// maxBodyBytes bounds the size of a submitted plan.
const maxBodyBytes = 8 << 20

// Server converts plans over HTTP.
type Server struct {
	addr     string
	logger   *log.Logger
	expander trino.ProjectionExpander
	http     *http.Server
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithProjectionExpander supplies the expander used for
// generic-projection markers in submitted plans.
func WithProjectionExpander(e trino.ProjectionExpander) Option {
	return func(s *Server) { s.expander = e }
}

// New creates a server that listens on addr once started.
func New(addr string, opts ...Option) *Server {
	s := &Server{addr: addr, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the server's route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withRequestID)

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/convert", s.handleConvert)
		r.Get("/operators", s.handleOperators)
	})

	return r
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// withRequestID tags every request with an id, echoed in the response
// header and the request log line.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)

		start := time.Now()
		next.ServeHTTP(w, r)

		s.logger.Info("request handled",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// convertRequest is the envelope form of the convert body. A body
// without a "plan" key is read as a bare plan with no flags.
type convertRequest struct {
	Plan  json.RawMessage `json:"plan"`
	Flags map[string]bool `json:"flags"`
}

type convertResponse struct {
	Plan json.RawMessage `json:"plan"`
}

type operatorsResponse struct {
	Operators []trino.OperatorMapping `json:"operators"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(err, "read request body"))
		return
	}

	var req convertRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(err, "parse request"))
		return
	}
	raw := req.Plan
	if raw == nil {
		raw = body
	}

	cfg, err := requestConfig(r, req.Flags)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	root, err := planio.UnmarshalPlan(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := []trino.Option{trino.WithLogger(s.logger)}
	if s.expander != nil {
		opts = append(opts, trino.WithProjectionExpander(s.expander))
	}
	converted, err := trino.ConvertPlan(root, cfg, opts...)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	out, err := planio.MarshalPlan(converted)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, convertResponse{Plan: out})
}

// requestConfig merges rewrite flags from the request envelope with the
// flags query parameter; query values win. Each query value is a
// comma-separated list of name[=bool] specs.
func requestConfig(r *http.Request, envelope map[string]bool) (trino.Config, error) {
	cfg := trino.Config{}
	for name, on := range envelope {
		cfg[name] = on
	}

	var specs []string
	for _, v := range r.URL.Query()["flags"] {
		specs = append(specs, strings.Split(v, ",")...)
	}
	if len(specs) == 0 {
		return cfg, nil
	}

	parsed, err := trino.ParseFlags(specs)
	if err != nil {
		return nil, errors.Wrap(err, "parse flags query parameter")
	}
	for name, on := range parsed {
		cfg[name] = on
	}
	return cfg, nil
}

func (s *Server) handleOperators(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, operatorsResponse{Operators: trino.Operators()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"version": version.Version})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response", log.Err(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn("request failed", "status", status, log.Err(err))
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
