package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aaditya29/DNAgnosis/internal/output"
)

// assemblyFlag registers --assembly; an empty value falls back to the
// "assembly" config key.
func assemblyFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVarP(dst, "assembly", "a", "", "Assembly id, e.g. hg38 (default from config, hg38)")
}

func resolveAssembly(flag string) string {
	if flag != "" {
		return flag
	}
	return viper.GetString("assembly")
}

func newSearchCmd(a *app) *cobra.Command {
	var assembly string

	cmd := &cobra.Command{
		Use:     "search <query>",
		Short:   "Search genes by symbol or name",
		Example: "  dnagnosis search BRCA1",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClients(a.logger)
			genes, err := c.resolver.Search(cmd.Context(), args[0], resolveAssembly(assembly))
			if err != nil {
				return err
			}
			return output.WriteGenes(cmd.OutOrStdout(), genes)
		},
	}
	assemblyFlag(cmd, &assembly)
	return cmd
}

func newGeneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "gene <gene-id>",
		Short:   "Show the summary and genomic bounds of a gene",
		Example: "  dnagnosis gene 672",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClients(a.logger)
			res := c.resolver.Details(cmd.Context(), args[0])
			return output.WriteGeneDetails(cmd.OutOrStdout(), res)
		},
	}
}
