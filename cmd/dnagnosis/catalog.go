package main

import (
	"github.com/spf13/cobra"

	"github.com/aaditya29/DNAgnosis/internal/output"
)

func newAssembliesCmd(a *app) *cobra.Command {
	var organism string

	cmd := &cobra.Command{
		Use:   "assemblies",
		Short: "List reference genome assemblies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClients(a.logger)
			catalog, err := c.ucsc.Assemblies(cmd.Context())
			if err != nil {
				return err
			}
			return output.WriteAssemblies(cmd.OutOrStdout(), catalog, organism)
		},
	}
	cmd.Flags().StringVar(&organism, "organism", "", "Only list assemblies of this organism, e.g. Human")
	return cmd
}

func newChromosomesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "chromosomes <assembly>",
		Short:   "List the primary chromosomes of an assembly",
		Example: "  dnagnosis chromosomes hg38",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClients(a.logger)
			chroms, err := c.ucsc.Chromosomes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return output.WriteChromosomes(cmd.OutOrStdout(), chroms)
		},
	}
}
