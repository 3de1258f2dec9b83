// Package server exposes the pipeline stages as a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/aaditya29/DNAgnosis/internal/duckdb"
	"github.com/aaditya29/DNAgnosis/internal/genome"
	"github.com/aaditya29/DNAgnosis/internal/pipeline"
)

// Ledger lists and records scored substitutions.
type Ledger interface {
	pipeline.Recorder
	Analyses(ctx context.Context) ([]duckdb.Analysis, error)
	AnalysesByGene(ctx context.Context, symbol string) ([]duckdb.Analysis, error)
	LookupAnalysis(ctx context.Context, assembly, chrom string, pos int64, alt string) ([]duckdb.Analysis, error)
	ClearAnalyses(ctx context.Context) error
}

// Server serves the API. Each pipeline request runs in its own session.
type Server struct {
	svc    pipeline.Services
	ledger Ledger
	logger *zap.Logger
}

// New creates a server. The ledger also becomes the services' recorder.
func New(svc pipeline.Services, ledger Ledger) *Server {
	if ledger != nil {
		svc.Recorder = ledger
	}
	return &Server{svc: svc, ledger: ledger, logger: zap.NewNop()}
}

// SetLogger sets the logger for the server.
func (s *Server) SetLogger(l *zap.Logger) {
	s.logger = l
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	var (
		verr *genome.ValidationError
		rerr *genome.RequestError
		serr *genome.ShapeError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &rerr), errors.As(err, &serr):
		return http.StatusBadGateway
	case errors.Is(err, pipeline.ErrNoScorer):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := s.logger.With(zap.String("request_id", RequestID(r.Context())), zap.Int("status", status), zap.Error(err))
	if status >= http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Info("request rejected")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
