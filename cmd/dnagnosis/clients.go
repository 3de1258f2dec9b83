package main

import (
	"errors"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aaditya29/DNAgnosis/internal/clinvar"
	"github.com/aaditya29/DNAgnosis/internal/ncbi"
	"github.com/aaditya29/DNAgnosis/internal/pipeline"
	"github.com/aaditya29/DNAgnosis/internal/scoring"
	"github.com/aaditya29/DNAgnosis/internal/ucsc"
	"github.com/aaditya29/DNAgnosis/internal/upstream"
)

var errNoScoringURL = errors.New("scoring.url is not configured; run: dnagnosis config set scoring.url <url>")

// clients are the upstream data sources built from configuration.
type clients struct {
	ucsc     *ucsc.Client
	resolver *ncbi.Resolver
	clinvar  *clinvar.Fetcher
	scoring  *scoring.Gateway
}

func newClients(logger *zap.Logger) *clients {
	timeout := viper.GetDuration("http.timeout")

	u := ucsc.NewClient(upstream.New(upstream.Config{
		Source:  "ucsc",
		BaseURL: viper.GetString("ucsc.url"),
		Timeout: timeout,
	}))
	u.SetLogger(logger)

	// The resolver and the ClinVar fetcher share one E-utilities client so
	// they draw from the same rate limit.
	eutils := ncbi.NewEUtils(ncbi.EUtilsConfig{
		BaseURL:   viper.GetString("ncbi.eutils_url"),
		APIKey:    viper.GetString("ncbi.api_key"),
		Timeout:   timeout,
		RateLimit: viper.GetFloat64("ncbi.rate_limit"),
	})
	search := upstream.New(upstream.Config{
		Source:  "genes",
		BaseURL: viper.GetString("genes.search_url"),
		Timeout: timeout,
	})
	resolver := ncbi.NewResolver(search, eutils)
	resolver.SetLogger(logger)

	fetcher := clinvar.NewFetcher(eutils)
	fetcher.SetLogger(logger)

	c := &clients{ucsc: u, resolver: resolver, clinvar: fetcher}
	if url := viper.GetString("scoring.url"); url != "" {
		c.scoring = scoring.New(url, viper.GetDuration("scoring.timeout"))
		c.scoring.SetLogger(logger)
	}
	return c
}

// requireScoring fails when no scoring endpoint is configured.
func (c *clients) requireScoring() (*scoring.Gateway, error) {
	if c.scoring == nil {
		return nil, errNoScoringURL
	}
	return c.scoring, nil
}

// services wires the clients into pipeline services. Scoring may be
// absent: a session then stops before analysis.
func (c *clients) services() pipeline.Services {
	svc := pipeline.Services{
		Catalog:   c.ucsc,
		Genes:     c.resolver,
		Sequences: c.ucsc,
		Variants:  c.clinvar,
	}
	if c.scoring != nil {
		svc.Scorer = c.scoring
	}
	return svc
}
