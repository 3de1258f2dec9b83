package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aaditya29/DNAgnosis/internal/genome"
	"github.com/aaditya29/DNAgnosis/internal/scoring"
	"github.com/aaditya29/DNAgnosis/internal/ucsc"
)

// CatalogSource lists assemblies and their chromosomes.
type CatalogSource interface {
	Assemblies(ctx context.Context) (genome.AssemblyCatalog, error)
	Chromosomes(ctx context.Context, assemblyID string) ([]genome.Chromosome, error)
}

// GeneSource searches genes and resolves their details.
type GeneSource interface {
	Search(ctx context.Context, query, assembly string) ([]genome.Gene, error)
	Details(ctx context.Context, geneID string) genome.GeneDetailsResult
}

// SequenceSource fetches reference sequence windows.
type SequenceSource interface {
	Sequence(ctx context.Context, req ucsc.SequenceRequest) genome.SequenceWindow
}

// VariantSource lists ClinVar variants overlapping a gene.
type VariantSource interface {
	Fetch(ctx context.Context, chrom string, bounds genome.GeneBounds, assembly string) ([]genome.ClinvarVariant, error)
}

// Scorer scores a single-nucleotide substitution.
type Scorer interface {
	Analyze(ctx context.Context, req scoring.Request) (genome.AnalysisResult, error)
}

// Recorder keeps scored substitutions for later listing.
type Recorder interface {
	RecordAnalysis(ctx context.Context, rec genome.AnalysisRecord) error
}

// ErrNoScorer is returned by analysis calls on a session without a Scorer.
var ErrNoScorer = errors.New("no scoring service configured")

// Services are the upstream collaborators of a Session. Scorer and Recorder
// are optional.
type Services struct {
	Catalog   CatalogSource
	Genes     GeneSource
	Sequences SequenceSource
	Variants  VariantSource
	Scorer    Scorer
	Recorder  Recorder
}

// Session drives one user's pipeline. Methods may be called concurrently;
// results of superseded selections are discarded.
type Session struct {
	svc    Services
	logger *zap.Logger

	mu    sync.Mutex
	state State
}

// NewSession creates an idle session.
func NewSession(svc Services) *Session {
	return &Session{svc: svc, logger: zap.NewNop()}
}

// SetLogger sets the logger for the session.
func (s *Session) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// begin applies a selection transition.
func (s *Session) begin(fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
	return s.state
}

// apply applies an upstream answer, reporting false when it was stale.
func (s *Session) apply(stage string, fn func(State) (State, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := fn(s.state)
	if !ok {
		s.logger.Debug("discarding stale response", zap.String("stage", stage))
		return false
	}
	s.state = next
	return true
}

// LoadAssemblies fetches the assembly catalog.
func (s *Session) LoadAssemblies(ctx context.Context) (State, error) {
	catalog, err := s.svc.Catalog.Assemblies(ctx)
	st := s.begin(func(st State) State { return st.LoadAssemblies(catalog, err) })
	if err != nil {
		return st, fmt.Errorf("load assemblies: %w", err)
	}
	return st, nil
}

// SelectAssembly switches assembly and loads its chromosomes.
func (s *Session) SelectAssembly(ctx context.Context, id string) (State, error) {
	var t Ticket
	s.begin(func(st State) State {
		st, t = st.SelectAssembly(id)
		return st
	})
	s.logger.Info("assembly selected", zap.String("assembly", id))

	chroms, err := s.svc.Catalog.Chromosomes(ctx, id)
	applied := s.apply("chromosomes", func(st State) (State, bool) { return st.ApplyChromosomes(t, chroms, err) })
	if applied && err != nil {
		return s.Snapshot(), fmt.Errorf("load chromosomes: %w", err)
	}
	return s.Snapshot(), nil
}

// SelectChromosome sets the browsed chromosome.
func (s *Session) SelectChromosome(name string) State {
	return s.begin(func(st State) State { return st.SelectChromosome(name) })
}

// Search runs a gene search against the selected assembly.
func (s *Session) Search(ctx context.Context, query string) (State, error) {
	var t Ticket
	s.begin(func(st State) State {
		st, t = st.StartSearch(query)
		return st
	})
	genes, err := s.svc.Genes.Search(ctx, query, t.Assembly)
	applied := s.apply("search", func(st State) (State, bool) { return st.ApplySearch(t, genes, err) })
	if applied && err != nil {
		return s.Snapshot(), fmt.Errorf("search genes: %w", err)
	}
	return s.Snapshot(), nil
}

// SelectGene opens g: gene details first, then the initial sequence window
// and the ClinVar variants concurrently. Details and sequence failures land
// in the state's stage errors; a ClinVar failure is also returned.
func (s *Session) SelectGene(ctx context.Context, g genome.Gene) (State, error) {
	var t Ticket
	st := s.begin(func(st State) State {
		st, t = st.SelectGene(g)
		return st
	})
	log := s.logger.With(zap.String("gene", g.Symbol), zap.String("gene_id", g.GeneID))
	log.Info("gene selected")
	if g.GeneID == "" {
		return st, nil
	}

	res := s.svc.Genes.Details(ctx, g.GeneID)
	if !s.apply("details", func(st State) (State, bool) { return st.ApplyDetails(t, res) }) {
		return s.Snapshot(), nil
	}
	if !res.Found() {
		log.Warn("gene details not found", zap.String("reason", res.Error))
		return s.Snapshot(), nil
	}

	bounds := *res.Bounds
	initial := bounds.InitialRange()
	var eg errgroup.Group
	eg.Go(func() error {
		w := s.svc.Sequences.Sequence(ctx, ucsc.SequenceRequest{
			Chrom:    g.Chrom,
			Start:    initial.Start,
			End:      initial.End,
			Assembly: t.Assembly,
		})
		s.apply("sequence", func(st State) (State, bool) { return st.ApplySequence(t, w) })
		return nil
	})
	eg.Go(func() error {
		variants, err := s.svc.Variants.Fetch(ctx, g.Chrom, bounds, t.Assembly)
		applied := s.apply("variants", func(st State) (State, bool) { return st.ApplyVariants(t, variants, err) })
		if applied && err != nil {
			return fmt.Errorf("load clinvar variants: %w", err)
		}
		return nil
	})
	err := eg.Wait()
	return s.Snapshot(), err
}

// SelectRange fetches another sequence window of the selected gene.
func (s *Session) SelectRange(ctx context.Context, r genome.Range) (State, error) {
	var (
		t   Ticket
		err error
		chr string
	)
	st := s.begin(func(st State) State {
		st, t, err = st.SelectRange(r)
		chr = st.chromosome()
		return st
	})
	if err != nil {
		return st, err
	}
	w := s.svc.Sequences.Sequence(ctx, ucsc.SequenceRequest{Chrom: chr, Start: r.Start, End: r.End, Assembly: t.Assembly})
	s.apply("sequence", func(st State) (State, bool) { return st.ApplySequence(t, w) })
	return s.Snapshot(), nil
}

// SelectPosition picks the position to analyze.
func (s *Session) SelectPosition(pos int64) State {
	return s.begin(func(st State) State { return st.SelectPosition(pos) })
}

// Analyze scores alt at the selected position and records the result.
func (s *Session) Analyze(ctx context.Context, alt string) (State, error) {
	var (
		t   Ticket
		req scoring.Request
		err error
	)
	if s.svc.Scorer == nil {
		return s.Snapshot(), ErrNoScorer
	}
	st := s.begin(func(st State) State {
		st, t, req, err = st.StartAnalysis(alt)
		return st
	})
	if err != nil {
		return st, err
	}

	res, err := s.svc.Scorer.Analyze(ctx, req)
	applied := s.apply("analysis", func(st State) (State, bool) { return st.ApplyAnalysis(t, res, err) })
	if !applied {
		return s.Snapshot(), nil
	}
	if err != nil {
		return s.Snapshot(), fmt.Errorf("analyze variant: %w", err)
	}

	st = s.Snapshot()
	rec := genome.AnalysisRecord{Assembly: req.Assembly, Chromosome: req.Chromosome, Result: res}
	if st.Gene != nil {
		rec.GeneSymbol = st.Gene.Symbol
	}
	if st.Match != nil {
		rec.ClinvarID = st.Match.Variant.ClinvarID
	}
	s.record(ctx, rec)
	return st, nil
}

// AnalyzeClinvarVariant scores a listed ClinVar variant using the
// substitution in its title and attaches the outcome to it.
func (s *Session) AnalyzeClinvarVariant(ctx context.Context, id string) (State, error) {
	st := s.Snapshot()
	if s.svc.Scorer == nil {
		return st, ErrNoScorer
	}
	t, req, err := st.ClinvarAnalysisRequest(id)
	if err != nil {
		return st, err
	}

	res, err := s.svc.Scorer.Analyze(ctx, req)
	if !s.apply("clinvar analysis", func(st State) (State, bool) { return st.ApplyClinvarAnalysis(t, id, res, err) }) {
		return s.Snapshot(), nil
	}
	if err != nil {
		return s.Snapshot(), fmt.Errorf("analyze clinvar variant %s: %w", id, err)
	}

	rec := genome.AnalysisRecord{Assembly: req.Assembly, Chromosome: req.Chromosome, ClinvarID: id, Result: res}
	if st.Gene != nil {
		rec.GeneSymbol = st.Gene.Symbol
	}
	s.record(ctx, rec)
	return s.Snapshot(), nil
}

func (s *Session) record(ctx context.Context, rec genome.AnalysisRecord) {
	if s.svc.Recorder == nil {
		return
	}
	if err := s.svc.Recorder.RecordAnalysis(ctx, rec); err != nil {
		s.logger.Warn("failed to record analysis", zap.Error(err))
	}
}
