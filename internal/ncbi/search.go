package ncbi

import (
	"encoding/json"
	"fmt"

	"github.com/aaditya29/DNAgnosis/internal/genome"
)

// Columns requested from the gene search, in row order.
const (
	colChromosome = iota
	colSymbol
	colDescription
	colMapLocation
	colGeneType
)

const (
	searchDisplayFields = "chromosome,Symbol,description,map_location,type_of_gene"
	searchExtraFields   = "chromosome,Symbol,description,map_location,type_of_gene,GenomicInfo,GeneID"
)

// MaxSearchResults caps the genes returned by a search.
const MaxSearchResults = 10

// searchResponse is the positional array [count, ids, fieldMap, rows]
// returned by the clinical tables search API.
type searchResponse struct {
	Count  int
	Fields map[string][]json.RawMessage
	Rows   []json.RawMessage
}

func (r *searchResponse) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return &genome.ShapeError{Source: "genes", Key: "[count, ids, fields, rows]"}
	}
	if len(parts) < 4 {
		return &genome.ShapeError{Source: "genes", Key: "rows"}
	}
	if err := json.Unmarshal(parts[0], &r.Count); err != nil {
		return &genome.ShapeError{Source: "genes", Key: "count"}
	}
	if err := json.Unmarshal(parts[2], &r.Fields); err != nil {
		r.Fields = nil
	}
	if err := json.Unmarshal(parts[3], &r.Rows); err != nil {
		return &genome.ShapeError{Source: "genes", Key: "rows"}
	}
	return nil
}

// genes builds at most MaxSearchResults genes. Rows that cannot be read are
// skipped; a missing gene id column yields an empty id.
func (r *searchResponse) genes() []genome.Gene {
	n := min(MaxSearchResults, r.Count, len(r.Rows))
	ids := r.Fields["GeneID"]

	genes := make([]genome.Gene, 0, n)
	for i := 0; i < n; i++ {
		g, err := geneFromRow(r.Rows[i])
		if err != nil {
			continue
		}
		if i < len(ids) {
			g.GeneID = scalarString(ids[i])
		}
		genes = append(genes, g)
	}
	return genes
}

func geneFromRow(raw json.RawMessage) (genome.Gene, error) {
	var cols []*string
	if err := json.Unmarshal(raw, &cols); err != nil {
		return genome.Gene{}, err
	}
	if len(cols) <= colDescription || cols[colSymbol] == nil {
		return genome.Gene{}, fmt.Errorf("row has %d columns", len(cols))
	}
	col := func(i int) string {
		if i < len(cols) && cols[i] != nil {
			return *cols[i]
		}
		return ""
	}

	g := genome.Gene{
		Symbol:      col(colSymbol),
		Name:        col(colDescription),
		Chrom:       genome.WithChrPrefix(col(colChromosome)),
		Description: col(colGeneType),
	}
	if g.Description == "" {
		g.Description = g.Name
	}
	return g, nil
}

// scalarString renders a JSON string or number as a string.
func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
