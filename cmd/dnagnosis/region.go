package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aaditya29/DNAgnosis/internal/clinvar"
	"github.com/aaditya29/DNAgnosis/internal/genome"
	"github.com/aaditya29/DNAgnosis/internal/output"
	"github.com/aaditya29/DNAgnosis/internal/ucsc"
)

// parseRegion parses <chrom> <start> <end> arguments.
func parseRegion(args []string, assembly string) (ucsc.SequenceRequest, error) {
	req := ucsc.SequenceRequest{Chrom: args[0], Assembly: assembly}
	var err error
	if req.Start, err = parseArgPosition("start", args[1]); err != nil {
		return req, err
	}
	if req.End, err = parseArgPosition("end", args[2]); err != nil {
		return req, err
	}
	if req.End < req.Start {
		return req, &genome.ValidationError{Field: "end", Value: args[2], Reason: "end must not precede start"}
	}
	return req, nil
}

func parseArgPosition(name, s string) (int64, error) {
	pos, err := genome.ParsePosition(s)
	var verr *genome.ValidationError
	if errors.As(err, &verr) {
		verr.Field = name
	}
	return pos, err
}

func newSequenceCmd(a *app) *cobra.Command {
	var assembly string

	cmd := &cobra.Command{
		Use:   "sequence <chrom> <start> <end>",
		Short: "Fetch the reference sequence of a 1-based inclusive range as FASTA",
		Example: `  dnagnosis sequence chr17 43044295 43044394
  dnagnosis sequence 17 101 200 --assembly hg19`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseRegion(args, resolveAssembly(assembly))
			if err != nil {
				return err
			}
			c := newClients(a.logger)
			win := c.ucsc.Sequence(cmd.Context(), req)
			if err := output.WriteSequence(cmd.OutOrStdout(), req.Chrom, req.Assembly, win); err != nil {
				return err
			}
			if !win.Ok() {
				return fmt.Errorf("sequence: %s", win.Error)
			}
			return nil
		},
	}
	assemblyFlag(cmd, &assembly)
	return cmd
}

func newClinvarCmd(a *app) *cobra.Command {
	var (
		assembly string
		position int64
	)

	cmd := &cobra.Command{
		Use:   "clinvar <chrom> <start> <end>",
		Short: "List known ClinVar variants in a region",
		Long: `List up to 20 known ClinVar variants in a region. With --position, also report
the first single-nucleotide variant at that position and its substitution;
further variants at the same position are not considered.`,
		Example: "  dnagnosis clinvar chr17 43044295 43125364 --position 43045705",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseRegion(args, resolveAssembly(assembly))
			if err != nil {
				return err
			}
			c := newClients(a.logger)
			bounds := genome.GeneBounds{Min: req.Start, Max: req.End}
			variants, err := c.clinvar.Fetch(cmd.Context(), req.Chrom, bounds, req.Assembly)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := output.WriteClinvarVariants(out, variants); err != nil {
				return err
			}
			if position == 0 {
				return nil
			}
			if m, ok := clinvar.FirstMatch(position, variants); ok {
				fmt.Fprintf(out, "\nMatch at %d: ClinVar %s %s>%s (%s)\n", position, m.Variant.ClinvarID, m.Reference, m.Alternative, m.Variant.Classification)
			} else {
				fmt.Fprintf(out, "\nNo single-nucleotide ClinVar variant at %d\n", position)
			}
			return nil
		},
	}
	assemblyFlag(cmd, &assembly)
	cmd.Flags().Int64Var(&position, "position", 0, "Position to match against the listed variants")
	return cmd
}
