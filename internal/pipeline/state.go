package pipeline

import (
	"fmt"

	"github.com/aaditya29/DNAgnosis/internal/clinvar"
	"github.com/aaditya29/DNAgnosis/internal/genome"
	"github.com/aaditya29/DNAgnosis/internal/scoring"
)

// Stage is the furthest point the pipeline has reached for the current selection.
type Stage int

const (
	Idle Stage = iota
	AssembliesLoaded
	ChromosomesLoaded
	GeneSelected
	SequenceLoaded
	VariantsLoaded
)

var stageNames = [...]string{"idle", "assemblies_loaded", "chromosomes_loaded", "gene_selected", "sequence_loaded", "variants_loaded"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText renders the stage name in JSON.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StageErrors holds the latest user-visible error of each stage. An error in
// one stage never clears or blocks another.
type StageErrors struct {
	Assemblies  string `json:"assemblies,omitempty"`
	Chromosomes string `json:"chromosomes,omitempty"`
	Search      string `json:"search,omitempty"`
	Details     string `json:"details,omitempty"`
	Sequence    string `json:"sequence,omitempty"`
	Variants    string `json:"variants,omitempty"`
	Analysis    string `json:"analysis,omitempty"`
}

// Ticket records the selection a request was dispatched under.
type Ticket struct {
	Assembly string
	GeneID   string
	Gen      uint64
	Window   uint64
}

// State is the pipeline's selections and the latest result of each stage.
type State struct {
	Stage Stage `json:"stage"`

	Catalog     genome.AssemblyCatalog `json:"catalog"`
	AssemblyID  string                 `json:"assembly"`
	Chromosomes []genome.Chromosome    `json:"chromosomes"`
	Chromosome  string                 `json:"chromosome"`

	Query         string        `json:"query"`
	SearchResults []genome.Gene `json:"search_results"`

	Gene    *genome.Gene           `json:"gene"`
	Details *genome.GeneDetails    `json:"gene_details"`
	Bounds  *genome.GeneBounds     `json:"gene_bounds"`
	Range   *genome.Range          `json:"range"`
	Window  *genome.SequenceWindow `json:"window"`

	Variants []genome.ClinvarVariant `json:"clinvar_variants"`

	Position    int64                  `json:"position"`
	Reference   string                 `json:"reference"`
	Alternative string                 `json:"alternative"`
	Match       *clinvar.Match         `json:"match"`
	Analysis    *genome.AnalysisResult `json:"analysis"`

	Errors StageErrors `json:"errors"`

	assemblyGen uint64
	searchGen   uint64
	geneGen     uint64
	windowGen   uint64
	analysisGen uint64
}

// LoadAssemblies applies the assembly catalog.
func (s State) LoadAssemblies(catalog genome.AssemblyCatalog, err error) State {
	if err != nil {
		s.Errors.Assemblies = fmt.Sprintf("genome data not found: %v", err)
		return s
	}
	s.Catalog = catalog
	s.Errors.Assemblies = ""
	if s.Stage == Idle {
		s.Stage = AssembliesLoaded
	}
	return s
}

// SelectAssembly switches assembly. Chromosome, search and gene state reset,
// and anything in flight for the previous assembly becomes stale.
func (s State) SelectAssembly(id string) (State, Ticket) {
	s.assemblyGen++
	s.searchGen++
	s = s.clearGene()

	s.AssemblyID = id
	s.Chromosomes = nil
	s.Chromosome = ""
	s.Query = ""
	s.SearchResults = nil
	s.Errors = StageErrors{Assemblies: s.Errors.Assemblies}
	s.Stage = AssembliesLoaded
	return s, Ticket{Assembly: id, Gen: s.assemblyGen}
}

// ApplyChromosomes applies a chromosome listing. It reports false and leaves
// the state untouched when t is stale.
func (s State) ApplyChromosomes(t Ticket, chroms []genome.Chromosome, err error) (State, bool) {
	if t.Gen != s.assemblyGen || t.Assembly != s.AssemblyID {
		return s, false
	}
	if err != nil {
		s.Errors.Chromosomes = fmt.Sprintf("failed to load chromosomes: %v", err)
		return s, true
	}
	s.Chromosomes = chroms
	s.Errors.Chromosomes = ""
	if s.Chromosome == "" && len(chroms) > 0 {
		s.Chromosome = chroms[0].Name
	}
	if s.Stage < ChromosomesLoaded {
		s.Stage = ChromosomesLoaded
	}
	return s, true
}

// SelectChromosome sets the browsed chromosome.
func (s State) SelectChromosome(name string) State {
	s.Chromosome = name
	return s
}

// StartSearch records a gene query.
func (s State) StartSearch(query string) (State, Ticket) {
	s.searchGen++
	s.Query = query
	return s, Ticket{Assembly: s.AssemblyID, Gen: s.searchGen}
}

// ApplySearch applies gene search results.
func (s State) ApplySearch(t Ticket, genes []genome.Gene, err error) (State, bool) {
	if t.Gen != s.searchGen || t.Assembly != s.AssemblyID {
		return s, false
	}
	if err != nil {
		s.SearchResults = nil
		s.Errors.Search = fmt.Sprintf("search failed: %v", err)
		return s, true
	}
	s.SearchResults = genes
	s.Errors.Search = ""
	return s, true
}

// SelectGene opens a gene. Sequence, position and variant state reset and
// anything in flight for a previous gene becomes stale.
func (s State) SelectGene(g genome.Gene) (State, Ticket) {
	s.geneGen++
	s = s.clearGene()
	s.Gene = &g
	s.Stage = GeneSelected
	if g.GeneID == "" {
		s.Errors.Details = "cannot fetch details because gene id is missing"
	}
	return s, s.geneTicket()
}

func (s State) geneTicket() Ticket {
	t := Ticket{Assembly: s.AssemblyID, Gen: s.geneGen, Window: s.windowGen}
	if s.Gene != nil {
		t.GeneID = s.Gene.GeneID
	}
	return t
}

func (s State) clearGene() State {
	s.windowGen++
	s.analysisGen++
	s.Gene = nil
	s.Details = nil
	s.Bounds = nil
	s.Range = nil
	s.Window = nil
	s.Variants = nil
	s.Position = 0
	s.Reference = ""
	s.Alternative = ""
	s.Match = nil
	s.Analysis = nil
	s.Errors.Details = ""
	s.Errors.Sequence = ""
	s.Errors.Variants = ""
	s.Errors.Analysis = ""
	return s
}

func (s State) isCurrentGene(t Ticket) bool {
	return s.Gene != nil && t.Gen == s.geneGen && t.GeneID == s.Gene.GeneID && t.Assembly == s.AssemblyID
}

// ApplyDetails applies a gene details result and sets the initial window
// unless a range was already chosen. Unresolved bounds surface as a details
// error; the gene stays selected.
func (s State) ApplyDetails(t Ticket, res genome.GeneDetailsResult) (State, bool) {
	if !s.isCurrentGene(t) {
		return s, false
	}
	if !res.Found() {
		s.Errors.Details = "gene details not found"
		if res.Error != "" {
			s.Errors.Details += ": " + res.Error
		}
		return s, true
	}
	s.Details = res.Details
	s.Bounds = res.Bounds
	s.Position = res.Bounds.Min
	if s.Range == nil {
		r := res.Bounds.InitialRange()
		s.Range = &r
	}
	s.Errors.Details = ""
	return s, true
}

// SelectRange requests a new sequence window for the current gene. Any
// window still in flight becomes stale; variants and details are untouched.
func (s State) SelectRange(r genome.Range) (State, Ticket, error) {
	if s.Gene == nil {
		return s, Ticket{}, &genome.ValidationError{Field: "range", Value: fmt.Sprintf("%d-%d", r.Start, r.End), Reason: "no gene selected"}
	}
	if r.Start < 1 || r.End < r.Start {
		return s, Ticket{}, &genome.ValidationError{Field: "range", Value: fmt.Sprintf("%d-%d", r.Start, r.End), Reason: "start must be >= 1 and end >= start"}
	}
	s.windowGen++
	s.Range = &r
	return s, s.geneTicket(), nil
}

// ApplySequence applies a fetched window. Fetch failures surface as a
// sequence error without touching other stages.
func (s State) ApplySequence(t Ticket, w genome.SequenceWindow) (State, bool) {
	if !s.isCurrentGene(t) || t.Window != s.windowGen {
		return s, false
	}
	s.Window = &w
	s.Errors.Sequence = w.Error
	if w.Ok() {
		if s.Stage < SequenceLoaded {
			s.Stage = SequenceLoaded
		}
		if b, ok := w.BaseAt(s.Position); ok {
			s.Reference = b
		}
	}
	return s, true
}

// ApplyVariants applies the ClinVar variants of the current gene.
func (s State) ApplyVariants(t Ticket, variants []genome.ClinvarVariant, err error) (State, bool) {
	if !s.isCurrentGene(t) {
		return s, false
	}
	if err != nil {
		s.Errors.Variants = fmt.Sprintf("failed to load ClinVar variants: %v", err)
		return s, true
	}
	s.Variants = variants
	s.Errors.Variants = ""
	s.Stage = VariantsLoaded
	return s, true
}

// SelectPosition picks the position to analyze. The reference base comes
// from the loaded window when it covers pos; otherwise from the first ClinVar
// single-nucleotide variant at pos, which also pre-fills the alternative.
func (s State) SelectPosition(pos int64) State {
	s.analysisGen++
	s.Position = pos
	s.Reference = ""
	s.Alternative = ""
	s.Match = nil
	s.Analysis = nil
	s.Errors.Analysis = ""

	if s.Window != nil {
		if b, ok := s.Window.BaseAt(pos); ok {
			s.Reference = b
		}
	}
	if m, ok := clinvar.FirstMatch(pos, s.Variants); ok {
		s.Match = &m
		if s.Reference == "" {
			s.Reference = m.Reference
		}
		s.Alternative = m.Alternative
	}
	return s
}

// chromosome returns the chromosome of the selected gene, falling back to
// the browsed chromosome.
func (s State) chromosome() string {
	if s.Gene != nil && s.Gene.Chrom != "" {
		return s.Gene.Chrom
	}
	return s.Chromosome
}

// StartAnalysis validates a substitution of alt at the selected position and
// returns the scoring request to send.
func (s State) StartAnalysis(alt string) (State, Ticket, scoring.Request, error) {
	req := scoring.Request{
		Position:    s.Position,
		Alternative: alt,
		Assembly:    s.AssemblyID,
		Chromosome:  s.chromosome(),
	}
	if err := req.Validate(); err != nil {
		s.Errors.Analysis = err.Error()
		return s, Ticket{}, req, err
	}
	s.analysisGen++
	s.Alternative = alt
	s.Analysis = nil
	s.Errors.Analysis = ""
	t := s.geneTicket()
	t.Window = s.analysisGen
	return s, t, req, nil
}

// ApplyAnalysis applies a scoring result for the selected position.
func (s State) ApplyAnalysis(t Ticket, res genome.AnalysisResult, err error) (State, bool) {
	if t.Gen != s.geneGen || t.Assembly != s.AssemblyID || t.Window != s.analysisGen {
		return s, false
	}
	if err != nil {
		s.Errors.Analysis = fmt.Sprintf("failed to analyze variant: %v", err)
		return s, true
	}
	s.Analysis = &res
	s.Errors.Analysis = ""
	return s, true
}

// ClinvarAnalysisRequest builds the scoring request for a listed ClinVar
// variant from the substitution in its title.
func (s State) ClinvarAnalysisRequest(id string) (Ticket, scoring.Request, error) {
	for _, v := range s.Variants {
		if v.ClinvarID != id {
			continue
		}
		pos, ok := clinvar.ParseLocation(v.Location)
		if !ok {
			return Ticket{}, scoring.Request{}, &genome.ValidationError{Field: "location", Value: v.Location, Reason: "variant has no usable location"}
		}
		_, alt, ok := clinvar.Substitution(v.Title)
		if !ok {
			return Ticket{}, scoring.Request{}, &genome.ValidationError{Field: "title", Value: v.Title, Reason: "no single-nucleotide substitution in title"}
		}
		req := scoring.Request{Position: pos, Alternative: alt, Assembly: s.AssemblyID, Chromosome: s.chromosome()}
		return s.geneTicket(), req, req.Validate()
	}
	return Ticket{}, scoring.Request{}, &genome.ValidationError{Field: "clinvar_id", Value: id, Reason: "not among the loaded variants"}
}

// ApplyClinvarAnalysis attaches a scoring outcome to the listed variant id.
func (s State) ApplyClinvarAnalysis(t Ticket, id string, res genome.AnalysisResult, err error) (State, bool) {
	if !s.isCurrentGene(t) {
		return s, false
	}
	variants := make([]genome.ClinvarVariant, len(s.Variants))
	copy(variants, s.Variants)
	found := false
	for i := range variants {
		if variants[i].ClinvarID != id {
			continue
		}
		found = true
		if err != nil {
			variants[i].AttachError(err.Error())
		} else {
			variants[i].AttachResult(res)
		}
	}
	if !found {
		return s, false
	}
	s.Variants = variants
	return s, true
}
