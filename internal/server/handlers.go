package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/aaditya29/DNAgnosis/internal/clinvar"
	"github.com/aaditya29/DNAgnosis/internal/duckdb"
	"github.com/aaditya29/DNAgnosis/internal/genome"
	"github.com/aaditya29/DNAgnosis/internal/pipeline"
	"github.com/aaditya29/DNAgnosis/internal/scoring"
	"github.com/aaditya29/DNAgnosis/internal/ucsc"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func required(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", &genome.ValidationError{Field: name, Value: v, Reason: "parameter is required"}
	}
	return v, nil
}

func positionParam(r *http.Request, name string) (int64, error) {
	raw, err := required(r, name)
	if err != nil {
		return 0, err
	}
	pos, err := genome.ParsePosition(raw)
	var verr *genome.ValidationError
	if errors.As(err, &verr) {
		verr.Field = name
	}
	return pos, err
}

// regionParams reads chrom, start, end and assembly.
func regionParams(r *http.Request) (ucsc.SequenceRequest, error) {
	var (
		req ucsc.SequenceRequest
		err error
	)
	if req.Chrom, err = required(r, "chrom"); err != nil {
		return req, err
	}
	if req.Assembly, err = required(r, "assembly"); err != nil {
		return req, err
	}
	if req.Start, err = positionParam(r, "start"); err != nil {
		return req, err
	}
	if req.End, err = positionParam(r, "end"); err != nil {
		return req, err
	}
	if req.End < req.Start {
		return req, &genome.ValidationError{Field: "end", Value: r.URL.Query().Get("end"), Reason: "end must not precede start"}
	}
	return req, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &genome.ValidationError{Field: "body", Value: "", Reason: err.Error()}
	}
	return nil
}

// Assemblies returns the assembly catalog.
func (s *Server) Assemblies(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.svc.Catalog.Assemblies(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, catalog)
}

// Chromosomes returns the primary chromosomes of an assembly.
func (s *Server) Chromosomes(w http.ResponseWriter, r *http.Request) {
	chroms, err := s.svc.Catalog.Chromosomes(r.Context(), mux.Vars(r)["assembly"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		Chromosomes []genome.Chromosome `json:"chromosomes"`
	}{chroms})
}

// SearchGenes runs a gene search.
func (s *Server) SearchGenes(w http.ResponseWriter, r *http.Request) {
	q, err := required(r, "q")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	genes, err := s.svc.Genes.Search(r.Context(), q, r.URL.Query().Get("assembly"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		Query   string        `json:"query"`
		Results []genome.Gene `json:"results"`
	}{q, genes})
}

// GeneDetails resolves a gene id. A gene without usable annotation is not
// an error: the result carries Found()==false and a reason.
func (s *Server) GeneDetails(w http.ResponseWriter, r *http.Request) {
	res := s.svc.Genes.Details(r.Context(), mux.Vars(r)["gene_id"])
	s.writeJSON(w, http.StatusOK, res)
}

// Sequence returns a reference window. Fetch failures come back in the
// window's error field.
func (s *Server) Sequence(w http.ResponseWriter, r *http.Request) {
	req, err := regionParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.svc.Sequences.Sequence(r.Context(), req))
}

type clinvarResponse struct {
	Variants []genome.ClinvarVariant `json:"variants"`
	Match    *clinvar.Match          `json:"match,omitempty"`
}

// Clinvar lists the ClinVar variants in a region. With a position
// parameter it also reports the first single-nucleotide variant there.
func (s *Server) Clinvar(w http.ResponseWriter, r *http.Request) {
	req, err := regionParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	variants, err := s.svc.Variants.Fetch(r.Context(), req.Chrom, genome.GeneBounds{Min: req.Start, Max: req.End}, req.Assembly)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := clinvarResponse{Variants: variants}
	if r.URL.Query().Get("position") != "" {
		pos, err := positionParam(r, "position")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if m, ok := clinvar.FirstMatch(pos, variants); ok {
			resp.Match = &m
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type analyzeRequest struct {
	Position    int64  `json:"position"`
	Alternative string `json:"alternative"`
	Assembly    string `json:"assembly"`
	Chromosome  string `json:"chromosome"`
	GeneSymbol  string `json:"gene_symbol,omitempty"`
	ClinvarID   string `json:"clinvar_id,omitempty"`
}

// Analyze scores one substitution and records it in the ledger.
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	if s.svc.Scorer == nil {
		s.writeError(w, r, pipeline.ErrNoScorer)
		return
	}
	var body analyzeRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	req := scoring.Request{
		Position:    body.Position,
		Alternative: strings.ToUpper(strings.TrimSpace(body.Alternative)),
		Assembly:    body.Assembly,
		Chromosome:  body.Chromosome,
	}
	res, err := s.svc.Scorer.Analyze(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.ledger != nil {
		rec := genome.AnalysisRecord{
			Assembly:   req.Assembly,
			Chromosome: req.Chromosome,
			GeneSymbol: body.GeneSymbol,
			ClinvarID:  body.ClinvarID,
			Result:     res,
		}
		if err := s.ledger.RecordAnalysis(r.Context(), rec); err != nil {
			s.logger.Warn("failed to record analysis", zap.Error(err))
		}
	}
	s.writeJSON(w, http.StatusOK, res)
}

type pipelineResponse struct {
	pipeline.State
	Error string `json:"error,omitempty"`
}

// Pipeline runs a scripted pipeline in a fresh session and returns the
// final state. Invalid input is rejected; upstream failures are reported
// alongside the state reached so far.
func (s *Server) Pipeline(w http.ResponseWriter, r *http.Request) {
	var plan pipeline.Plan
	if err := decodeBody(w, r, &plan); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(plan.Assembly) == "" {
		s.writeError(w, r, &genome.ValidationError{Field: "assembly", Reason: "assembly is required"})
		return
	}

	sess := pipeline.NewSession(s.svc)
	sess.SetLogger(s.logger.With(zap.String("request_id", RequestID(r.Context()))))
	st, err := sess.Run(r.Context(), plan)
	resp := pipelineResponse{State: st}
	if err != nil {
		if statusFor(err) == http.StatusBadRequest {
			s.writeError(w, r, err)
			return
		}
		s.logger.Warn("pipeline stopped", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
		resp.Error = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// Analyses lists the ledger, optionally for one gene or for one
// substitution given as assembly, chrom, pos and alt.
func (s *Server) Analyses(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.writeJSON(w, http.StatusOK, struct {
			Analyses []duckdb.Analysis `json:"analyses"`
		}{[]duckdb.Analysis{}})
		return
	}
	var (
		rows []duckdb.Analysis
		err  error
	)
	q := r.URL.Query()
	switch {
	case q.Has("assembly") || q.Has("chrom") || q.Has("pos") || q.Has("alt"):
		rows, err = s.lookupAnalysis(r)
	case q.Get("gene") != "":
		rows, err = s.ledger.AnalysesByGene(r.Context(), q.Get("gene"))
	default:
		rows, err = s.ledger.Analyses(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []duckdb.Analysis{}
	}
	s.writeJSON(w, http.StatusOK, struct {
		Analyses []duckdb.Analysis `json:"analyses"`
	}{rows})
}

func (s *Server) lookupAnalysis(r *http.Request) ([]duckdb.Analysis, error) {
	assembly, err := required(r, "assembly")
	if err != nil {
		return nil, err
	}
	chrom, err := required(r, "chrom")
	if err != nil {
		return nil, err
	}
	pos, err := positionParam(r, "pos")
	if err != nil {
		return nil, err
	}
	alt, err := required(r, "alt")
	if err != nil {
		return nil, err
	}
	return s.ledger.LookupAnalysis(r.Context(), assembly, chrom, pos, strings.ToUpper(alt))
}

// ClearAnalyses empties the ledger.
func (s *Server) ClearAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.ledger != nil {
		if err := s.ledger.ClearAnalyses(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
