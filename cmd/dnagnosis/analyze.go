package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aaditya29/DNAgnosis/internal/clinvar"
	"github.com/aaditya29/DNAgnosis/internal/duckdb"
	"github.com/aaditya29/DNAgnosis/internal/genome"
	"github.com/aaditya29/DNAgnosis/internal/output"
	"github.com/aaditya29/DNAgnosis/internal/pipeline"
	"github.com/aaditya29/DNAgnosis/internal/scoring"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var assembly string

	cmd := &cobra.Command{
		Use:   "analyze <chrom> <position> <alt>",
		Short: "Score a single-nucleotide substitution with the variant-effect predictor",
		Long: `Score a single-nucleotide substitution. The alternative base must be one of
A, C, G or T (lower case is accepted). Requires scoring.url to be configured.`,
		Example: "  dnagnosis analyze chr17 43045705 T --assembly hg38",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parseArgPosition("position", args[1])
			if err != nil {
				return err
			}
			req := scoring.Request{
				Position:    pos,
				Alternative: strings.ToUpper(strings.TrimSpace(args[2])),
				Assembly:    resolveAssembly(assembly),
				Chromosome:  genome.WithChrPrefix(args[0]),
			}
			// Fail on bad input before complaining about configuration.
			if err := req.Validate(); err != nil {
				return err
			}
			gw, err := newClients(a.logger).requireScoring()
			if err != nil {
				return err
			}
			res, err := gw.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			return output.WriteAnalysis(cmd.OutOrStdout(), req.Chromosome, res)
		},
	}
	assemblyFlag(cmd, &assembly)
	return cmd
}

type exploreOptions struct {
	assembly     string
	chromosome   string
	geneID       string
	start, end   int64
	position     int64
	alternative  string
	scoreClinvar bool
}

func newExploreCmd(a *app) *cobra.Command {
	var opts exploreOptions

	cmd := &cobra.Command{
		Use:   "explore <query>",
		Short: "Run the whole pipeline for a gene",
		Long: `Run the whole pipeline: select an assembly, search the gene, resolve its
bounds, fetch the initial sequence window and the ClinVar variants around it,
then optionally score a substitution at --position. Without --alt the
substitution is taken from the first ClinVar single-nucleotide variant at that
position. Stage failures are reported and do not stop unrelated stages.`,
		Example: `  dnagnosis explore BRCA1
  dnagnosis explore BRCA1 --position 43045705
  dnagnosis explore TP53 --position 7675088 --alt A --start 7675000 --end 7675200
  dnagnosis explore BRCA1 --score-clinvar`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(cmd, a, args[0], opts)
		},
	}
	assemblyFlag(cmd, &opts.assembly)
	cmd.Flags().StringVar(&opts.chromosome, "chromosome", "", "Chromosome to browse, e.g. chr17 (default the first one)")
	cmd.Flags().StringVar(&opts.geneID, "gene-id", "", "Open the search hit with this NCBI gene id")
	cmd.Flags().Int64Var(&opts.start, "start", 0, "Start of a sequence window to fetch instead of the initial one")
	cmd.Flags().Int64Var(&opts.end, "end", 0, "End of that sequence window")
	cmd.Flags().Int64Var(&opts.position, "position", 0, "Position to analyze")
	cmd.Flags().StringVar(&opts.alternative, "alt", "", "Alternative base to score at --position")
	cmd.Flags().BoolVar(&opts.scoreClinvar, "score-clinvar", false, "Score every listed single-nucleotide ClinVar variant")
	return cmd
}

func runExplore(cmd *cobra.Command, a *app, query string, opts exploreOptions) error {
	ctx := cmd.Context()
	plan := pipeline.Plan{
		Assembly:    resolveAssembly(opts.assembly),
		Chromosome:  opts.chromosome,
		Query:       query,
		GeneID:      opts.geneID,
		Position:    opts.position,
		Alternative: opts.alternative,
	}
	if opts.start != 0 || opts.end != 0 {
		plan.Range = &genome.Range{Start: opts.start, End: opts.end}
	}

	ledger, err := duckdb.Open()
	if err != nil {
		return err
	}
	defer ledger.Close()

	svc := newClients(a.logger).services()
	svc.Recorder = ledger
	sess := pipeline.NewSession(svc)
	sess.SetLogger(a.logger)

	st, runErr := sess.Run(ctx, plan)

	if opts.scoreClinvar && svc.Scorer != nil {
		for _, v := range st.Variants {
			if !clinvar.IsSNV(v.VariationType) {
				continue
			}
			if _, err := sess.AnalyzeClinvarVariant(ctx, v.ClinvarID); err != nil {
				a.logger.Warn("failed to score clinvar variant", zap.String("clinvar_id", v.ClinvarID), zap.Error(err))
			}
		}
		st = sess.Snapshot()
	}

	out := cmd.OutOrStdout()
	if err := writeExplore(out, st); err != nil {
		return err
	}
	if st.Gene != nil {
		rows, err := ledger.AnalysesByGene(ctx, st.Gene.Symbol)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			fmt.Fprintln(out, "\n## Analyses")
			if err := output.WriteAnalyses(out, rows); err != nil {
				return err
			}
		}
	}

	if errors.Is(runErr, pipeline.ErrNoScorer) {
		return errNoScoringURL
	}
	return runErr
}

// writeExplore prints each stage of st with its error, if any.
func writeExplore(out io.Writer, st pipeline.State) error {
	section := func(title, stageErr string) {
		fmt.Fprintf(out, "\n## %s\n", title)
		if stageErr != "" {
			fmt.Fprintf(out, "! %s\n", stageErr)
		}
	}

	fmt.Fprintf(out, "# Assembly %s, stage %s\n", st.AssemblyID, st.Stage)
	if st.Errors.Assemblies != "" {
		fmt.Fprintf(out, "! %s\n", st.Errors.Assemblies)
	}
	if st.Chromosome != "" {
		fmt.Fprintf(out, "# Chromosome %s of %d\n", st.Chromosome, len(st.Chromosomes))
	}
	if st.Errors.Chromosomes != "" {
		fmt.Fprintf(out, "! %s\n", st.Errors.Chromosomes)
	}

	section("Search: "+st.Query, st.Errors.Search)
	if err := output.WriteGenes(out, st.SearchResults); err != nil {
		return err
	}
	if st.Gene == nil {
		return nil
	}

	section("Gene "+st.Gene.Symbol, st.Errors.Details)
	if st.Bounds != nil {
		res := genome.GeneDetailsResult{Details: st.Details, Bounds: st.Bounds, InitialRange: st.Range}
		if err := output.WriteGeneDetails(out, res); err != nil {
			return err
		}
	}

	if st.Window != nil {
		section("Sequence", "")
		if err := output.WriteSequence(out, st.Gene.Chrom, st.AssemblyID, *st.Window); err != nil {
			return err
		}
	} else if st.Errors.Sequence != "" {
		section("Sequence", st.Errors.Sequence)
	}

	if st.Variants != nil || st.Errors.Variants != "" {
		section("ClinVar variants", st.Errors.Variants)
		if err := output.WriteClinvarVariants(out, st.Variants); err != nil {
			return err
		}
	}

	if st.Position == 0 || (st.Analysis == nil && st.Errors.Analysis == "") {
		return nil
	}
	section(fmt.Sprintf("Analysis at %d (reference %s)", st.Position, orDash(st.Reference)), st.Errors.Analysis)
	if st.Match != nil {
		fmt.Fprintf(out, "ClinVar %s at this position: %s>%s (%s)\n",
			st.Match.Variant.ClinvarID, st.Match.Reference, st.Match.Alternative, st.Match.Variant.Classification)
	}
	if st.Analysis != nil {
		return output.WriteAnalysis(out, st.Gene.Chrom, *st.Analysis)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
