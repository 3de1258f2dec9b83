// Package clinvar retrieves known clinical variants overlapping a gene and
// matches user-entered substitutions against them.
package clinvar

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/aaditya29/DNAgnosis/internal/genome"
	"github.com/aaditya29/DNAgnosis/internal/ncbi"
)

// MaxVariants caps the variants fetched per interval.
const MaxVariants = 20

// LegacyAssembly is the one assembly indexed by GRCh37 positions in ClinVar.
const LegacyAssembly = "hg19"

// Unknown fills classification and location when upstream leaves them out.
const Unknown = "Unknown"

// Fetcher queries ClinVar through E-utilities.
type Fetcher struct {
	eutils *ncbi.EUtils
	logger *zap.Logger
}

// NewFetcher creates a fetcher on a shared E-utilities client.
func NewFetcher(e *ncbi.EUtils) *Fetcher {
	return &Fetcher{eutils: e, logger: zap.NewNop()}
}

// SetLogger sets the logger.
func (f *Fetcher) SetLogger(l *zap.Logger) {
	f.logger = l
}

// PositionField returns the ClinVar search field holding positions for assembly.
func PositionField(assembly string) string {
	if assembly == LegacyAssembly {
		return "chrpos37"
	}
	return "chrpos38"
}

// SearchTerm builds the esearch term selecting variants in bounds on chrom.
func SearchTerm(chrom string, bounds genome.GeneBounds, assembly string) string {
	return fmt.Sprintf("%s[chromosome] AND %d:%d[%s]",
		genome.StripChrPrefix(chrom), bounds.Min, bounds.Max, PositionField(assembly))
}

// summaryRecord is one record of an esummary db=clinvar response.
type summaryRecord struct {
	Title                  string          `json:"title"`
	ObjType                string          `json:"obj_type"`
	GermlineClassification *classification `json:"germline_classification"`
	GeneSort               string          `json:"gene_sort"`
	LocationSort           string          `json:"location_sort"`
}

type classification struct {
	Description string `json:"description"`
}

// Fetch returns up to MaxVariants ClinVar variants within bounds. An empty
// search is not an error; any non-success status is.
func (f *Fetcher) Fetch(ctx context.Context, chrom string, bounds genome.GeneBounds, assembly string) ([]genome.ClinvarVariant, error) {
	chrom = genome.StripChrPrefix(chrom)
	term := SearchTerm(chrom, bounds, assembly)

	ids, err := f.eutils.Search(ctx, "clinvar", term, MaxVariants)
	if err != nil {
		return nil, fmt.Errorf("clinvar search: %w", err)
	}
	if len(ids) == 0 {
		f.logger.Debug("no clinvar variants", zap.String("term", term))
		return []genome.ClinvarVariant{}, nil
	}

	var resp struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := f.eutils.Summary(ctx, "clinvar", ids, &resp); err != nil {
		return nil, fmt.Errorf("clinvar summary: %w", err)
	}
	if resp.Result == nil {
		return nil, &genome.ShapeError{Source: "clinvar", Key: "result"}
	}

	var uids []string
	if raw, ok := resp.Result["uids"]; ok {
		if err := json.Unmarshal(raw, &uids); err != nil {
			return nil, &genome.ShapeError{Source: "clinvar", Key: "result.uids"}
		}
	}

	variants := make([]genome.ClinvarVariant, 0, len(uids))
	for _, id := range uids {
		raw, ok := resp.Result[id]
		if !ok {
			continue
		}
		var rec summaryRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			f.logger.Warn("skipping malformed clinvar record", zap.String("id", id), zap.Error(err))
			continue
		}
		variants = append(variants, normalize(id, chrom, rec))
	}

	f.logger.Debug("fetched clinvar variants",
		zap.String("term", term),
		zap.Int("ids", len(ids)),
		zap.Int("variants", len(variants)))
	return variants, nil
}

func normalize(id, chrom string, rec summaryRecord) genome.ClinvarVariant {
	classification := Unknown
	if rec.GermlineClassification != nil && rec.GermlineClassification.Description != "" {
		classification = rec.GermlineClassification.Description
	}
	return genome.ClinvarVariant{
		ClinvarID:      id,
		Title:          rec.Title,
		VariationType:  TitleCase(rec.ObjType),
		Classification: classification,
		GeneSort:       rec.GeneSort,
		Chromosome:     chrom,
		Location:       FormatLocation(rec.LocationSort),
	}
}

// TitleCase capitalizes each whitespace-separated word of s.
func TitleCase(s string) string {
	caser := cases.Title(language.English)
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

// FormatLocation renders a raw location as a thousands-grouped integer, or
// Unknown when it does not parse.
func FormatLocation(raw string) string {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return Unknown
	}
	return message.NewPrinter(language.English).Sprintf("%d", n)
}
