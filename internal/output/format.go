package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aaditya29/DNAgnosis/internal/duckdb"
	"github.com/aaditya29/DNAgnosis/internal/genome"
)

// FastaLineWidth is the number of bases per sequence line.
const FastaLineWidth = 60

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

func writeAll(tw *TabWriter, rows [][]string) error {
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tw.WriteRow(r...); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteAssemblies writes the catalog grouped by organism, in catalog order.
// A non-empty organism restricts output to that organism.
func WriteAssemblies(w io.Writer, catalog genome.AssemblyCatalog, organism string) error {
	var rows [][]string
	for _, org := range catalog.Organisms {
		if organism != "" && !strings.EqualFold(org, organism) {
			continue
		}
		for _, a := range catalog.ByOrganism[org] {
			rows = append(rows, []string{org, a.ID, a.Name, a.SourceName, yesNo(a.Active)})
		}
	}
	return writeAll(NewTabWriter(w, "Organism", "ID", "Name", "Source", "Active"), rows)
}

// WriteChromosomes writes chromosome names and sizes.
func WriteChromosomes(w io.Writer, chroms []genome.Chromosome) error {
	rows := make([][]string, 0, len(chroms))
	for _, c := range chroms {
		rows = append(rows, []string{c.Name, formatInt(c.Size)})
	}
	return writeAll(NewTabWriter(w, "Chromosome", "Size"), rows)
}

// WriteGenes writes gene search results.
func WriteGenes(w io.Writer, genes []genome.Gene) error {
	rows := make([][]string, 0, len(genes))
	for _, g := range genes {
		rows = append(rows, []string{g.Symbol, g.GeneID, g.Chrom, g.Name, g.Description})
	}
	return writeAll(NewTabWriter(w, "Symbol", "GeneID", "Chromosome", "Name", "Description"), rows)
}

// WriteGeneDetails writes a details result as key/value lines.
func WriteGeneDetails(w io.Writer, res genome.GeneDetailsResult) error {
	if !res.Found() {
		msg := "gene details not found"
		if res.Error != "" {
			msg += ": " + res.Error
		}
		_, err := fmt.Fprintln(w, msg)
		return err
	}
	d := res.Details
	tw := NewTabWriter(w)
	pairs := [][2]string{
		{"UID", d.UID},
		{"Name", d.Name},
		{"Description", d.Description},
		{"Organism", d.Organism},
		{"Chromosome", d.Chromosome},
		{"MapLocation", d.MapLocation},
		{"Aliases", strings.Join(d.Aliases, ", ")},
		{"Bounds", fmt.Sprintf("%d-%d", res.Bounds.Min, res.Bounds.Max)},
	}
	if res.InitialRange != nil {
		pairs = append(pairs, [2]string{"InitialRange", fmt.Sprintf("%d-%d", res.InitialRange.Start, res.InitialRange.End)})
	}
	pairs = append(pairs, [2]string{"Summary", d.Summary})
	for _, p := range pairs {
		if err := tw.WriteRow(p[0], p[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteSequence writes a window in FASTA format. A failed window is
// written as a comment line carrying its error.
func WriteSequence(w io.Writer, chrom, assembly string, win genome.SequenceWindow) error {
	if !win.Ok() {
		msg := win.Error
		if msg == "" {
			msg = "no sequence data returned"
		}
		_, err := fmt.Fprintf(w, "; %s:%d-%d %s: %s\n", genome.WithChrPrefix(chrom), win.Start, win.End, assembly, msg)
		return err
	}
	if _, err := fmt.Fprintf(w, ">%s:%d-%d %s\n", genome.WithChrPrefix(chrom), win.Start, win.End, assembly); err != nil {
		return err
	}
	seq := win.Sequence
	for len(seq) > 0 {
		n := min(FastaLineWidth, len(seq))
		if _, err := io.WriteString(w, seq[:n]+"\n"); err != nil {
			return err
		}
		seq = seq[n:]
	}
	return nil
}

// WriteClinvarVariants writes ClinVar variants, including any attached score.
func WriteClinvarVariants(w io.Writer, variants []genome.ClinvarVariant) error {
	rows := make([][]string, 0, len(variants))
	for _, v := range variants {
		score, prediction := "", v.Prediction.String
		if v.DeltaScore.Valid {
			score = formatFloat(v.DeltaScore.Float64)
		}
		if v.AnalysisError.Valid {
			prediction = "error: " + v.AnalysisError.String
		}
		rows = append(rows, []string{
			v.ClinvarID, v.Chromosome, v.Location, v.VariationType, v.Classification, v.Title, score, prediction,
		})
	}
	return writeAll(NewTabWriter(w, "ClinvarID", "Chromosome", "Location", "Type", "Classification", "Title", "DeltaScore", "Prediction"), rows)
}

// WriteAnalysis writes a single scoring result.
func WriteAnalysis(w io.Writer, chrom string, r genome.AnalysisResult) error {
	return writeAll(NewTabWriter(w, "Chromosome", "Position", "Ref", "Alt", "DeltaScore", "Prediction", "Confidence"), [][]string{{
		chrom, formatInt(r.Position), r.Reference, r.Alternative,
		formatFloat(r.DeltaScore), r.Prediction, formatFloat(r.ClassificationConfidence),
	}})
}

// WriteAnalyses writes ledger rows.
func WriteAnalyses(w io.Writer, analyses []duckdb.Analysis) error {
	rows := make([][]string, 0, len(analyses))
	for _, a := range analyses {
		r := a.Result
		rows = append(rows, []string{
			a.ID, a.Assembly, a.GeneSymbol, a.Chromosome, formatInt(r.Position), r.Reference, r.Alternative,
			formatFloat(r.DeltaScore), r.Prediction, formatFloat(r.ClassificationConfidence), a.ClinvarID,
		})
	}
	return writeAll(NewTabWriter(w, "ID", "Assembly", "Gene", "Chromosome", "Position", "Ref", "Alt", "DeltaScore", "Prediction", "Confidence", "ClinvarID"), rows)
}
