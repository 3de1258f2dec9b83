package ncbi

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/aaditya29/DNAgnosis/internal/genome"
	"github.com/aaditya29/DNAgnosis/internal/upstream"
)

// DefaultGeneSearchURL is the NLM clinical tables gene search endpoint.
const DefaultGeneSearchURL = "https://clinicaltables.nlm.nih.gov/api/ncbi_genes/v3/search"

// Resolver turns free-text queries into genes and genes into genomic bounds.
type Resolver struct {
	search *upstream.Client
	eutils *EUtils
	logger *zap.Logger
}

// NewResolver creates a resolver from a gene search client and an E-utilities client.
func NewResolver(search *upstream.Client, eutils *EUtils) *Resolver {
	return &Resolver{search: search, eutils: eutils, logger: zap.NewNop()}
}

// SetLogger sets the logger for warnings and request tracing.
func (r *Resolver) SetLogger(l *zap.Logger) {
	r.logger = l
	r.search.SetLogger(l)
	r.eutils.SetLogger(l)
}

// Search looks up genes matching query. The assembly only scopes logging:
// the search service is assembly independent.
func (r *Resolver) Search(ctx context.Context, query, assembly string) ([]genome.Gene, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &genome.ValidationError{Field: "query", Value: query, Reason: "empty search"}
	}

	q := url.Values{
		"terms": {query},
		"df":    {searchDisplayFields},
		"ef":    {searchExtraFields},
	}
	var resp searchResponse
	if err := r.search.GetJSON(ctx, "", q, &resp); err != nil {
		return nil, err
	}
	genes := resp.genes()
	r.logger.Debug("gene search",
		zap.String("query", query),
		zap.String("assembly", assembly),
		zap.Int("count", resp.Count),
		zap.Int("returned", len(genes)))
	return genes, nil
}

// geneSummary is one record of an esummary db=gene response.
type geneSummary struct {
	UID          string `json:"uid"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Summary      string `json:"summary"`
	Chromosome   string `json:"chromosome"`
	MapLocation  string `json:"maplocation"`
	OtherAliases string `json:"otheraliases"`
	Organism     struct {
		ScientificName string `json:"scientificname"`
	} `json:"organism"`
	GenomicInfo []struct {
		ChrStart *int64 `json:"chrstart"`
		ChrStop  *int64 `json:"chrstop"`
	} `json:"genomicinfo"`
}

// Details fetches the gene summary and its genomic bounds. It never fails:
// a failed call or a gene without genomic annotation yields a not-found
// result with Error set.
func (r *Resolver) Details(ctx context.Context, geneID string) genome.GeneDetailsResult {
	if geneID == "" {
		return r.notFound(geneID, "gene id is missing")
	}

	var resp struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := r.eutils.Summary(ctx, "gene", []string{geneID}, &resp); err != nil {
		return r.notFound(geneID, err.Error())
	}
	raw, ok := resp.Result[geneID]
	if !ok {
		return r.notFound(geneID, "gene not found")
	}
	var doc geneSummary
	if err := json.Unmarshal(raw, &doc); err != nil {
		return r.notFound(geneID, "malformed gene summary")
	}
	if len(doc.GenomicInfo) == 0 || doc.GenomicInfo[0].ChrStart == nil || doc.GenomicInfo[0].ChrStop == nil {
		return r.notFound(geneID, "gene has no genomic information")
	}

	gi := doc.GenomicInfo[0]
	bounds := genome.NewGeneBounds(*gi.ChrStart, *gi.ChrStop)
	initial := bounds.InitialRange()
	return genome.GeneDetailsResult{
		Details: &genome.GeneDetails{
			UID:         doc.UID,
			Name:        doc.Name,
			Description: doc.Description,
			Summary:     doc.Summary,
			Organism:    doc.Organism.ScientificName,
			Chromosome:  doc.Chromosome,
			MapLocation: doc.MapLocation,
			Aliases:     splitAliases(doc.OtherAliases),
		},
		Bounds:       &bounds,
		InitialRange: &initial,
	}
}

func (r *Resolver) notFound(geneID, msg string) genome.GeneDetailsResult {
	r.logger.Warn("gene details not found", zap.String("gene_id", geneID), zap.String("reason", msg))
	return genome.GeneDetailsResult{Error: msg}
}

func splitAliases(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
