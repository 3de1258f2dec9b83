// Package ncbi resolves genes against NCBI services: the clinical tables gene
// search and the E-utilities gene summary. EUtils is shared with the ClinVar
// matcher so both respect one rate limit.
package ncbi

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aaditya29/DNAgnosis/internal/genome"
	"github.com/aaditya29/DNAgnosis/internal/upstream"
)

// DefaultEUtilsURL is the public E-utilities endpoint.
const DefaultEUtilsURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// EUtilsConfig configures an EUtils client.
type EUtilsConfig struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second; NCBI allows 3 without a key, 10 with one
}

// EUtils issues esearch and esummary requests.
type EUtils struct {
	api    *upstream.Client
	apiKey string
}

// NewEUtils creates an E-utilities client.
func NewEUtils(cfg EUtilsConfig) *EUtils {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultEUtilsURL
	}
	if cfg.RateLimit == 0 {
		if cfg.APIKey != "" {
			cfg.RateLimit = 10
		} else {
			cfg.RateLimit = 3
		}
	}
	return &EUtils{
		api: upstream.New(upstream.Config{
			Source:    "eutils",
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
		}),
		apiKey: cfg.APIKey,
	}
}

// SetLogger sets the logger for request tracing.
func (e *EUtils) SetLogger(l *zap.Logger) {
	e.api.SetLogger(l)
}

func (e *EUtils) query(db string) url.Values {
	q := url.Values{"db": {db}, "retmode": {"json"}}
	if e.apiKey != "" {
		q.Set("api_key", e.apiKey)
	}
	return q
}

// Search runs esearch and returns up to retmax ids.
func (e *EUtils) Search(ctx context.Context, db, term string, retmax int) ([]string, error) {
	q := e.query(db)
	q.Set("term", term)
	q.Set("retmax", strconv.Itoa(retmax))

	var resp struct {
		ESearchResult *struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := e.api.GetJSON(ctx, "/esearch.fcgi", q, &resp); err != nil {
		return nil, err
	}
	if resp.ESearchResult == nil {
		return nil, &genome.ShapeError{Source: "eutils", Key: "esearchresult"}
	}
	return resp.ESearchResult.IDList, nil
}

// Summary runs esummary for ids and decodes the response into v.
func (e *EUtils) Summary(ctx context.Context, db string, ids []string, v any) error {
	q := e.query(db)
	q.Set("id", strings.Join(ids, ","))
	return e.api.GetJSON(ctx, "/esummary.fcgi", q, v)
}
