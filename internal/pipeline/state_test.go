package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaditya29/DNAgnosis/internal/genome"
)

var brca1 = genome.Gene{Symbol: "BRCA1", Name: "BRCA1 DNA repair associated", Chrom: "chr17", GeneID: "672"}

func detailsFor(start, stop int64) genome.GeneDetailsResult {
	b := genome.NewGeneBounds(start, stop)
	r := b.InitialRange()
	return genome.GeneDetailsResult{Details: &genome.GeneDetails{UID: "672"}, Bounds: &b, InitialRange: &r}
}

func geneState(t *testing.T) (State, Ticket) {
	t.Helper()
	s, _ := State{}.SelectAssembly("hg38")
	s, tk := s.SelectGene(brca1)
	s, ok := s.ApplyDetails(tk, detailsFor(1000, 20000))
	require.True(t, ok)
	return s, tk
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "variants_loaded", VariantsLoaded.String())
	assert.Equal(t, "stage(42)", Stage(42).String())
}

func TestLoadAssemblies(t *testing.T) {
	catalog := genome.AssemblyCatalog{Organisms: []string{"Human"}}
	s := State{}.LoadAssemblies(catalog, nil)
	assert.Equal(t, AssembliesLoaded, s.Stage)
	assert.Equal(t, []string{"Human"}, s.Catalog.Organisms)

	s = State{}.LoadAssemblies(genome.AssemblyCatalog{}, errors.New("boom"))
	assert.Equal(t, Idle, s.Stage)
	assert.Contains(t, s.Errors.Assemblies, "boom")
}

func TestSelectAssembly_ResetsDownstream(t *testing.T) {
	s, _ := geneState(t)
	s.Chromosome = "chr17"
	s.SearchResults = []genome.Gene{brca1}

	s, tk := s.SelectAssembly("hg19")
	assert.Equal(t, "hg19", s.AssemblyID)
	assert.Equal(t, "hg19", tk.Assembly)
	assert.Empty(t, s.Chromosome)
	assert.Nil(t, s.Chromosomes)
	assert.Nil(t, s.SearchResults)
	assert.Nil(t, s.Gene)
	assert.Nil(t, s.Bounds)
	assert.Equal(t, AssembliesLoaded, s.Stage)
}

func TestApplyChromosomes(t *testing.T) {
	s, tk := State{}.SelectAssembly("hg38")
	chroms := []genome.Chromosome{{Name: "chr1", Size: 248956422}, {Name: "chr2", Size: 242193529}}

	s, ok := s.ApplyChromosomes(tk, chroms, nil)
	require.True(t, ok)
	assert.Equal(t, "chr1", s.Chromosome)
	assert.Equal(t, ChromosomesLoaded, s.Stage)
}

func TestApplyChromosomes_Stale(t *testing.T) {
	s, old := State{}.SelectAssembly("hg38")
	s, _ = s.SelectAssembly("hg19")

	next, ok := s.ApplyChromosomes(old, []genome.Chromosome{{Name: "chr1"}}, nil)
	assert.False(t, ok)
	assert.Nil(t, next.Chromosomes)
}

func TestApplyChromosomes_Error(t *testing.T) {
	s, tk := State{}.SelectAssembly("hg38")
	s, ok := s.ApplyChromosomes(tk, nil, errors.New("status 500"))
	require.True(t, ok)
	assert.Contains(t, s.Errors.Chromosomes, "status 500")
	assert.Equal(t, AssembliesLoaded, s.Stage)
}

func TestApplySearch_Stale(t *testing.T) {
	s, _ := State{}.SelectAssembly("hg38")
	s, first := s.StartSearch("BRC")
	s, second := s.StartSearch("BRCA1")

	_, ok := s.ApplySearch(first, []genome.Gene{{Symbol: "BRCA2"}}, nil)
	assert.False(t, ok)

	s, ok = s.ApplySearch(second, []genome.Gene{brca1}, nil)
	require.True(t, ok)
	assert.Equal(t, []genome.Gene{brca1}, s.SearchResults)
}

func TestSelectGene_MissingID(t *testing.T) {
	s, _ := State{}.SelectAssembly("hg38")
	s, _ = s.SelectGene(genome.Gene{Symbol: "ORPHAN", Chrom: "chr1"})
	assert.Equal(t, GeneSelected, s.Stage)
	assert.Equal(t, "cannot fetch details because gene id is missing", s.Errors.Details)
}

func TestApplyDetails(t *testing.T) {
	s, _ := geneState(t)
	require.NotNil(t, s.Bounds)
	assert.Equal(t, genome.GeneBounds{Min: 1000, Max: 20000}, *s.Bounds)
	assert.Equal(t, genome.Range{Start: 1000, End: 11000}, *s.Range)
	assert.Equal(t, int64(1000), s.Position)
}

func TestApplyDetails_NotFound(t *testing.T) {
	s, _ := State{}.SelectAssembly("hg38")
	s, tk := s.SelectGene(brca1)
	s, ok := s.ApplyDetails(tk, genome.GeneDetailsResult{Error: "no genomic info"})
	require.True(t, ok)
	assert.Nil(t, s.Bounds)
	assert.Equal(t, "gene details not found: no genomic info", s.Errors.Details)
	assert.Equal(t, GeneSelected, s.Stage)
}

func TestApplyDetails_SupersededGene(t *testing.T) {
	s, _ := State{}.SelectAssembly("hg38")
	s, ticketA := s.SelectGene(brca1)
	s, _ = s.SelectGene(genome.Gene{Symbol: "TP53", Chrom: "chr17", GeneID: "7157"})

	next, ok := s.ApplyDetails(ticketA, detailsFor(1000, 5000))
	assert.False(t, ok)
	assert.Nil(t, next.Bounds)
	assert.Equal(t, "TP53", next.Gene.Symbol)
}

func TestApplyDetails_SameGeneReselected(t *testing.T) {
	s, _ := State{}.SelectAssembly("hg38")
	s, first := s.SelectGene(brca1)
	s, _ = s.SelectGene(brca1)

	_, ok := s.ApplyDetails(first, detailsFor(1000, 5000))
	assert.False(t, ok)
}

func TestSelectGene_ResetsSequenceState(t *testing.T) {
	s, tk := geneState(t)
	s, _ = s.ApplySequence(tk, genome.SequenceWindow{Start: 1000, End: 1003, Sequence: "ACGT"})
	s = s.SelectPosition(1001)
	require.Equal(t, "C", s.Reference)

	s, _ = s.SelectGene(genome.Gene{Symbol: "TP53", Chrom: "chr17", GeneID: "7157"})
	assert.Nil(t, s.Window)
	assert.Nil(t, s.Range)
	assert.Zero(t, s.Position)
	assert.Empty(t, s.Reference)
	assert.Nil(t, s.Variants)
}

func TestApplySequence(t *testing.T) {
	s, tk := geneState(t)
	s, ok := s.ApplySequence(tk, genome.SequenceWindow{Start: 1000, End: 1003, Sequence: "GATC"})
	require.True(t, ok)
	assert.Equal(t, SequenceLoaded, s.Stage)
	assert.Equal(t, "G", s.Reference)
	assert.Empty(t, s.Errors.Sequence)
}

func TestApplySequence_SoftFailIsolated(t *testing.T) {
	s, tk := geneState(t)
	variants := []genome.ClinvarVariant{{ClinvarID: "1"}}
	s, _ = s.ApplyVariants(tk, variants, nil)

	s, ok := s.ApplySequence(tk, genome.SequenceWindow{Start: 1000, End: 11000, Error: "no sequence data returned"})
	require.True(t, ok)
	assert.Equal(t, "no sequence data returned", s.Errors.Sequence)
	assert.Equal(t, variants, s.Variants)
	assert.NotNil(t, s.Bounds)
	assert.Empty(t, s.Errors.Variants)
}

func TestSelectRange(t *testing.T) {
	s, initial := geneState(t)
	s, tk, err := s.SelectRange(genome.Range{Start: 2000, End: 2003})
	require.NoError(t, err)
	assert.Equal(t, genome.Range{Start: 2000, End: 2003}, *s.Range)

	// The initial window arriving late must not replace the chosen one.
	_, ok := s.ApplySequence(initial, genome.SequenceWindow{Start: 1000, End: 11000, Sequence: "A"})
	assert.False(t, ok)

	s, ok = s.ApplySequence(tk, genome.SequenceWindow{Start: 2000, End: 2003, Sequence: "TTTT"})
	require.True(t, ok)
	assert.Equal(t, "TTTT", s.Window.Sequence)
	assert.NotNil(t, s.Bounds)
}

func TestSelectRange_Invalid(t *testing.T) {
	s, _ := geneState(t)
	_, _, err := s.SelectRange(genome.Range{Start: 10, End: 5})
	var verr *genome.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "range", verr.Field)

	_, _, err = State{}.SelectRange(genome.Range{Start: 1, End: 5})
	require.ErrorAs(t, err, &verr)
}

func TestApplyVariants_Error(t *testing.T) {
	s, tk := geneState(t)
	s, ok := s.ApplyVariants(tk, nil, errors.New("status 502"))
	require.True(t, ok)
	assert.Contains(t, s.Errors.Variants, "status 502")
	assert.Empty(t, s.Errors.Sequence)
}

var snv = genome.ClinvarVariant{
	ClinvarID:     "55",
	Title:         "NM_007294.4(BRCA1):c.5266A>T (p.Lys1756Ter)",
	VariationType: "Single Nucleotide Variant",
	Location:      "1,234",
}

func TestSelectPosition_FromClinvarMatch(t *testing.T) {
	s, tk := geneState(t)
	s, _ = s.ApplyVariants(tk, []genome.ClinvarVariant{snv}, nil)

	s = s.SelectPosition(1234)
	assert.Equal(t, "A", s.Reference)
	assert.Equal(t, "T", s.Alternative)
	require.NotNil(t, s.Match)
	assert.Equal(t, "55", s.Match.Variant.ClinvarID)
}

func TestSelectPosition_WindowBeatsClinvar(t *testing.T) {
	s, tk := geneState(t)
	s, _ = s.ApplyVariants(tk, []genome.ClinvarVariant{snv}, nil)
	s, _ = s.ApplySequence(tk, genome.SequenceWindow{Start: 1233, End: 1235, Sequence: "CGC"})

	s = s.SelectPosition(1234)
	assert.Equal(t, "G", s.Reference)
	assert.Equal(t, "T", s.Alternative)
}

func TestSelectPosition_NoMatch(t *testing.T) {
	s, _ := geneState(t)
	s = s.SelectPosition(99)
	assert.Empty(t, s.Reference)
	assert.Empty(t, s.Alternative)
	assert.Nil(t, s.Match)
}

func TestStartAnalysis(t *testing.T) {
	s, _ := geneState(t)
	s = s.SelectPosition(1500)

	s, tk, req, err := s.StartAnalysis("G")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), req.Position)
	assert.Equal(t, "chr17", req.Chromosome)
	assert.Equal(t, "hg38", req.Assembly)

	res := genome.AnalysisResult{Position: 1500, Reference: "A", Alternative: "G", DeltaScore: -0.01, Prediction: "Likely pathogenic", ClassificationConfidence: 0.9}
	s, ok := s.ApplyAnalysis(tk, res, nil)
	require.True(t, ok)
	assert.Equal(t, res, *s.Analysis)
}

func TestStartAnalysis_Validation(t *testing.T) {
	s, _ := geneState(t)
	for _, alt := range []string{"", "a", "AC", "N"} {
		next, _, _, err := s.StartAnalysis(alt)
		var verr *genome.ValidationError
		require.ErrorAs(t, err, &verr, alt)
		assert.NotEmpty(t, next.Errors.Analysis)
	}
}

func TestApplyAnalysis_PositionChanged(t *testing.T) {
	s, _ := geneState(t)
	s = s.SelectPosition(1500)
	s, tk, _, err := s.StartAnalysis("G")
	require.NoError(t, err)
	s = s.SelectPosition(1600)

	_, ok := s.ApplyAnalysis(tk, genome.AnalysisResult{Position: 1500}, nil)
	assert.False(t, ok)
}

func TestClinvarAnalysis(t *testing.T) {
	s, tk := geneState(t)
	s, _ = s.ApplyVariants(tk, []genome.ClinvarVariant{snv, {ClinvarID: "56", Title: "deletion", Location: "1,300"}}, nil)

	vtk, req, err := s.ClinvarAnalysisRequest("55")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), req.Position)
	assert.Equal(t, "T", req.Alternative)

	before := s.Variants
	next, ok := s.ApplyClinvarAnalysis(vtk, "55", genome.AnalysisResult{DeltaScore: -0.2, Prediction: "Likely pathogenic", ClassificationConfidence: 0.8}, nil)
	require.True(t, ok)
	assert.True(t, next.Variants[0].Scored())
	assert.False(t, before[0].Scored())

	_, _, err = s.ClinvarAnalysisRequest("56")
	assert.Error(t, err)
	_, _, err = s.ClinvarAnalysisRequest("404")
	assert.Error(t, err)
}

func TestApplyClinvarAnalysis_Error(t *testing.T) {
	s, tk := geneState(t)
	s, _ = s.ApplyVariants(tk, []genome.ClinvarVariant{snv}, nil)

	s, ok := s.ApplyClinvarAnalysis(tk, "55", genome.AnalysisResult{}, errors.New("status 503"))
	require.True(t, ok)
	assert.Equal(t, "status 503", s.Variants[0].AnalysisError.String)
	assert.False(t, s.Variants[0].Scored())
}
