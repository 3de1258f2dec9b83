package ucsc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"go.uber.org/zap"

	"github.com/aaditya29/DNAgnosis/internal/genome"
	"github.com/aaditya29/DNAgnosis/internal/upstream"
)

// OtherOrganism is the bucket for assemblies without an organism.
const OtherOrganism = "Other"

// rawAssembly is one entry of the ucscGenomes listing. Active is kept raw
// because UCSC sends it as a number.
type rawAssembly struct {
	Organism    string          `json:"organism"`
	Description string          `json:"description"`
	SourceName  string          `json:"sourceName"`
	Active      json.RawMessage `json:"active"`
}

// Assemblies fetches the assembly catalog grouped by organism.
func (c *Client) Assemblies(ctx context.Context) (genome.AssemblyCatalog, error) {
	var resp struct {
		UCSCGenomes json.RawMessage `json:"ucscGenomes"`
	}
	if err := c.api.GetJSON(ctx, "/list/ucscGenomes", nil, &resp); err != nil {
		return genome.AssemblyCatalog{}, err
	}
	return NormalizeAssemblies(resp.UCSCGenomes)
}

// NormalizeAssemblies turns the raw ucscGenomes object into a catalog.
// Missing fields fall back to the organism "Other", the assembly id for name
// and source name, and false for active.
func NormalizeAssemblies(raw json.RawMessage) (genome.AssemblyCatalog, error) {
	if upstream.IsNull(raw) {
		return genome.AssemblyCatalog{}, &genome.ShapeError{Source: "ucsc", Key: "ucscGenomes"}
	}
	entries, err := upstream.ObjectEntries(raw)
	if err != nil {
		return genome.AssemblyCatalog{}, fmt.Errorf("ucsc: parse ucscGenomes: %w", err)
	}

	catalog := genome.AssemblyCatalog{ByOrganism: make(map[string][]genome.Assembly)}
	for _, e := range entries {
		var ra rawAssembly
		// A malformed entry still yields an assembly with defaulted fields.
		_ = json.Unmarshal(e.Value, &ra)

		organism := ra.Organism
		if organism == "" {
			organism = OtherOrganism
		}
		a := genome.Assembly{
			ID:         e.Key,
			Name:       ra.Description,
			SourceName: ra.SourceName,
			Active:     truthy(ra.Active),
		}
		if a.Name == "" {
			a.Name = e.Key
		}
		if a.SourceName == "" {
			a.SourceName = e.Key
		}

		if _, ok := catalog.ByOrganism[organism]; !ok {
			catalog.Organisms = append(catalog.Organisms, organism)
		}
		catalog.ByOrganism[organism] = append(catalog.ByOrganism[organism], a)
	}
	return catalog, nil
}

// truthy mirrors how the catalog's active flag is interpreted: true, any
// non-zero number and any non-empty string count as active.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case nil:
		return false
	}
	return true
}

// Chromosomes fetches the primary chromosomes of an assembly in display order.
func (c *Client) Chromosomes(ctx context.Context, assemblyID string) ([]genome.Chromosome, error) {
	var resp struct {
		Chromosomes json.RawMessage `json:"chromosomes"`
	}
	q := url.Values{"genome": {assemblyID}}
	if err := c.api.GetJSON(ctx, "/list/chromosomes", q, &resp); err != nil {
		return nil, err
	}
	chroms, err := NormalizeChromosomes(resp.Chromosomes)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("loaded chromosomes", zap.String("assembly", assemblyID), zap.Int("count", len(chroms)))
	return chroms, nil
}

// NormalizeChromosomes drops alternative, unplaced and random contigs and
// sorts the rest: numeric names ascending, then the others lexicographically.
// Entries with equal sort keys keep their upstream order.
func NormalizeChromosomes(raw json.RawMessage) ([]genome.Chromosome, error) {
	if upstream.IsNull(raw) {
		return nil, &genome.ShapeError{Source: "ucsc", Key: "chromosomes"}
	}
	entries, err := upstream.ObjectEntries(raw)
	if err != nil {
		return nil, fmt.Errorf("ucsc: parse chromosomes: %w", err)
	}

	chroms := make([]genome.Chromosome, 0, len(entries))
	for _, e := range entries {
		if !genome.IsPrimaryChromosome(e.Key) {
			continue
		}
		var size int64
		if err := json.Unmarshal(e.Value, &size); err != nil {
			return nil, fmt.Errorf("ucsc: size of %s: %w", e.Key, err)
		}
		chroms = append(chroms, genome.Chromosome{Name: e.Key, Size: size})
	}

	sort.SliceStable(chroms, func(i, j int) bool {
		return genome.LessChromosome(chroms[i].Name, chroms[j].Name)
	})
	return chroms, nil
}
