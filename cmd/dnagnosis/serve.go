package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aaditya29/DNAgnosis/internal/duckdb"
	"github.com/aaditya29/DNAgnosis/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline as a JSON HTTP API",
		Long: `Serve the pipeline as a JSON HTTP API:

  GET  /api/assemblies
  GET  /api/assemblies/{assembly}/chromosomes
  GET  /api/genes?q=&assembly=
  GET  /api/genes/{gene_id}
  GET  /api/sequence?chrom=&start=&end=&assembly=
  GET  /api/clinvar?chrom=&start=&end=&assembly=[&position=]
  POST /api/analyze
  POST /api/pipeline
  GET  /api/analyses[?gene=]

Scored substitutions are kept in memory until the server stops.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = viper.GetString("serve.addr")
			}
			return runServe(cmd.Context(), a, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}

func runServe(ctx context.Context, a *app, addr string) error {
	ledger, err := duckdb.Open()
	if err != nil {
		return err
	}
	defer ledger.Close()

	c := newClients(a.logger)
	if c.scoring == nil {
		a.logger.Warn("scoring.url is not configured; analysis endpoints will answer 503")
	}
	srv := server.New(c.services(), ledger)
	srv.SetLogger(a.logger)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", addr))
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}
