package pipeline

import (
	"context"
	"strings"

	"github.com/aaditya29/DNAgnosis/internal/genome"
)

// Plan is a scripted series of selections for one non-interactive run.
type Plan struct {
	Assembly string `json:"assembly"`
	// Chromosome is browsed after the assembly loads; it must be one of
	// the assembly's primary chromosomes.
	Chromosome string        `json:"chromosome,omitempty"`
	Query      string        `json:"query"`
	GeneID     string        `json:"gene_id,omitempty"`
	Range      *genome.Range `json:"range,omitempty"`
	Position   int64         `json:"position,omitempty"`
	// Alternative defaults to the one pre-filled from a ClinVar match.
	Alternative string `json:"alternative,omitempty"`
}

// PickGene chooses the search hit to open: the one with geneID if given,
// otherwise an exact symbol match for query, otherwise the first hit.
func PickGene(genes []genome.Gene, query, geneID string) (genome.Gene, bool) {
	if len(genes) == 0 {
		return genome.Gene{}, false
	}
	if geneID != "" {
		for _, g := range genes {
			if g.GeneID == geneID {
				return g, true
			}
		}
	}
	for _, g := range genes {
		if strings.EqualFold(g.Symbol, strings.TrimSpace(query)) {
			return g, true
		}
	}
	return genes[0], true
}

// Run drives the session through p, starting from the assembly catalog;
// an assembly missing from the catalog is rejected. Stage failures that do
// not prevent later stages are left in the state's stage errors; the
// returned error is the one that stopped the run, if any.
func (s *Session) Run(ctx context.Context, p Plan) (State, error) {
	st, err := s.LoadAssemblies(ctx)
	if err != nil {
		return st, err
	}
	if _, ok := st.Catalog.Lookup(p.Assembly); !ok {
		return st, &genome.ValidationError{Field: "assembly", Value: p.Assembly, Reason: "not in the assembly catalog"}
	}
	if st, err = s.SelectAssembly(ctx, p.Assembly); err != nil {
		return st, err
	}
	if p.Chromosome != "" {
		name := genome.WithChrPrefix(p.Chromosome)
		if !hasChromosome(st.Chromosomes, name) {
			return st, &genome.ValidationError{Field: "chromosome", Value: p.Chromosome, Reason: "not a primary chromosome of " + p.Assembly}
		}
		s.SelectChromosome(name)
	}
	st, err = s.Search(ctx, p.Query)
	if err != nil {
		return st, err
	}
	g, ok := PickGene(st.SearchResults, p.Query, p.GeneID)
	if !ok {
		return st, &genome.ValidationError{Field: "query", Value: p.Query, Reason: "no gene matched"}
	}

	// A ClinVar failure is recorded in the state and does not stop the run.
	st, _ = s.SelectGene(ctx, g)
	if st.Bounds == nil {
		return st, nil
	}

	if p.Range != nil {
		if st, err = s.SelectRange(ctx, *p.Range); err != nil {
			return st, err
		}
	}
	if p.Position == 0 {
		return st, nil
	}

	st = s.SelectPosition(p.Position)
	alt := strings.ToUpper(strings.TrimSpace(p.Alternative))
	if alt == "" {
		alt = st.Alternative
	}
	if alt == "" {
		return st, nil
	}
	return s.Analyze(ctx, alt)
}

func hasChromosome(chroms []genome.Chromosome, name string) bool {
	for _, c := range chroms {
		if c.Name == name {
			return true
		}
	}
	return false
}
