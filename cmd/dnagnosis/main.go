// Package main provides the dnagnosis command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aaditya29/DNAgnosis/internal/genome"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var verr *genome.ValidationError
		if errors.As(err, &verr) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

// app carries what every command needs once flags and config are parsed.
type app struct {
	cfgFile string
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "dnagnosis",
		Short: "Gene lookup, reference sequence and variant effect analysis",
		Long: `dnagnosis locates a gene, fetches its reference sequence, lists the known
ClinVar variants around it and scores single-nucleotide substitutions with an
external variant-effect predictor.`,
		Example: `  dnagnosis assemblies --organism Human
  dnagnosis search BRCA1
  dnagnosis sequence chr17 43044295 43044394 --assembly hg38
  dnagnosis analyze chr17 43045705 T --assembly hg38
  dnagnosis explore BRCA1 --position 43045705`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(a.cfgFile); err != nil {
				return err
			}
			logger, err := newLogger(a.verbose, viper.GetString("log.level"))
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	cmd.SetVersionTemplate("dnagnosis version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default: ~/.dnagnosis.yaml)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log upstream requests to stderr")

	cmd.AddCommand(newAssembliesCmd(a))
	cmd.AddCommand(newChromosomesCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newGeneCmd(a))
	cmd.AddCommand(newSequenceCmd(a))
	cmd.AddCommand(newClinvarCmd(a))
	cmd.AddCommand(newAnalyzeCmd(a))
	cmd.AddCommand(newExploreCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// newLogger builds a console logger on stderr. Verbose forces debug level.
func newLogger(verbose bool, level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	lvl := zap.WarnLevel
	if level != "" {
		parsed, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log.level: %w", err)
		}
		lvl = parsed.Level()
	}
	if verbose {
		lvl = zap.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
