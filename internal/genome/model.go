// Package genome defines the gene-centric model shared by every pipeline stage:
// assemblies, chromosomes, genes and their bounds, sequence windows, ClinVar
// variants and variant-effect scores.
package genome

import "gopkg.in/guregu/null.v3"

// MaxInitialWindow is the widest window fetched when a gene is first opened.
const MaxInitialWindow = 10000

// Assembly is a reference genome build from the assembly catalog.
type Assembly struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SourceName string `json:"source_name"`
	Active     bool   `json:"active"`
}

// AssemblyCatalog groups assemblies by organism.
// Organisms lists each organism once, in upstream catalog order.
type AssemblyCatalog struct {
	Organisms  []string              `json:"organisms"`
	ByOrganism map[string][]Assembly `json:"genomes"`
}

// Lookup returns the assembly with the given id, searching every organism.
func (c AssemblyCatalog) Lookup(id string) (Assembly, bool) {
	for _, org := range c.Organisms {
		for _, a := range c.ByOrganism[org] {
			if a.ID == id {
				return a, true
			}
		}
	}
	return Assembly{}, false
}

// Chromosome is a primary chromosome of an assembly.
type Chromosome struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Gene is a gene search hit. Chrom always carries the "chr" prefix.
type Gene struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Chrom       string `json:"chrom"`
	Description string `json:"description"`
	GeneID      string `json:"gene_id"`
}

// GeneBounds is the inclusive genomic span of a gene. Min <= Max.
type GeneBounds struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// NewGeneBounds orders a raw start/stop pair, which is reversed for genes on
// the minus strand.
func NewGeneBounds(start, stop int64) GeneBounds {
	return GeneBounds{Min: min(start, stop), Max: max(start, stop)}
}

// Size returns Max - Min.
func (b GeneBounds) Size() int64 {
	return b.Max - b.Min
}

// InitialRange returns the first window shown for a gene: the whole gene, or
// the first MaxInitialWindow bases of it.
func (b GeneBounds) InitialRange() Range {
	if b.Size() > MaxInitialWindow {
		return Range{Start: b.Min, End: b.Min + MaxInitialWindow}
	}
	return Range{Start: b.Min, End: b.Max}
}

// Range is a 1-based inclusive coordinate range.
type Range struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// GeneDetails is the summary record of a gene.
type GeneDetails struct {
	UID         string   `json:"uid"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Summary     string   `json:"summary"`
	Organism    string   `json:"organism"`
	Chromosome  string   `json:"chromosome"`
	MapLocation string   `json:"maplocation"`
	Aliases     []string `json:"aliases,omitempty"`
}

// GeneDetailsResult is the outcome of a gene details lookup. When the gene has
// no genomic annotation every pointer is nil and Error explains why.
type GeneDetailsResult struct {
	Details      *GeneDetails `json:"gene_details"`
	Bounds       *GeneBounds  `json:"gene_bounds"`
	InitialRange *Range       `json:"initial_range"`
	Error        string       `json:"error,omitempty"`
}

// Found reports whether bounds were resolved.
func (r GeneDetailsResult) Found() bool {
	return r.Bounds != nil
}

// SequenceWindow is a fetched nucleotide window. On failure Sequence is empty,
// Error is set and Start/End still echo the request.
type SequenceWindow struct {
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Sequence string `json:"sequence"`
	Error    string `json:"error,omitempty"`
}

// Ok reports whether the window holds data.
func (w SequenceWindow) Ok() bool {
	return w.Error == "" && w.Sequence != ""
}

// BaseAt returns the base at 1-based genomic position pos, if the window covers it.
func (w SequenceWindow) BaseAt(pos int64) (string, bool) {
	if pos < w.Start || pos > w.End {
		return "", false
	}
	i := pos - w.Start
	if i >= int64(len(w.Sequence)) {
		return "", false
	}
	return w.Sequence[i : i+1], true
}

// ClinvarVariant is a known clinical variant. Upstream gives no uniqueness or
// ordering guarantee. The score fields are filled in lazily when the variant
// is sent to the scoring service.
type ClinvarVariant struct {
	ClinvarID      string `json:"clinvar_id"`
	Title          string `json:"title"`
	VariationType  string `json:"variation_type"`
	Classification string `json:"classification"`
	GeneSort       string `json:"gene_sort"`
	Chromosome     string `json:"chromosome"`
	Location       string `json:"location"`

	DeltaScore    null.Float  `json:"delta_score"`
	Prediction    null.String `json:"prediction"`
	Confidence    null.Float  `json:"classification_confidence"`
	AnalysisError null.String `json:"analysis_error"`
}

// Scored reports whether a score has been attached.
func (v ClinvarVariant) Scored() bool {
	return v.DeltaScore.Valid
}

// AttachResult records a scoring outcome on the variant.
func (v *ClinvarVariant) AttachResult(r AnalysisResult) {
	v.DeltaScore = null.FloatFrom(r.DeltaScore)
	v.Prediction = null.StringFrom(r.Prediction)
	v.Confidence = null.FloatFrom(r.ClassificationConfidence)
	v.AnalysisError = null.String{}
}

// AttachError records a failed scoring attempt on the variant.
func (v *ClinvarVariant) AttachError(msg string) {
	v.DeltaScore = null.Float{}
	v.Prediction = null.String{}
	v.Confidence = null.Float{}
	v.AnalysisError = null.StringFrom(msg)
}

// AnalysisResult is a variant-effect prediction for one substitution.
type AnalysisResult struct {
	Position                 int64   `json:"position"`
	Reference                string  `json:"reference"`
	Alternative              string  `json:"alternative"`
	DeltaScore               float64 `json:"delta_score"`
	Prediction               string  `json:"prediction"`
	ClassificationConfidence float64 `json:"classification_confidence"`
}

// AnalysisRecord is a scored substitution together with the selection it was
// made under.
type AnalysisRecord struct {
	Assembly   string         `json:"assembly"`
	Chromosome string         `json:"chromosome"`
	GeneSymbol string         `json:"gene_symbol"`
	ClinvarID  string         `json:"clinvar_id,omitempty"`
	Result     AnalysisResult `json:"result"`
}
