// Package ucsc talks to the UCSC Genome Browser REST API: the assembly and
// chromosome catalogs, and reference sequence retrieval.
package ucsc

import (
	"go.uber.org/zap"

	"github.com/aaditya29/DNAgnosis/internal/upstream"
)

// DefaultURL is the public UCSC REST API.
const DefaultURL = "https://api.genome.ucsc.edu"

// Client wraps the UCSC REST API.
type Client struct {
	api    *upstream.Client
	logger *zap.Logger
}

// NewClient creates a UCSC client on top of an upstream client.
func NewClient(api *upstream.Client) *Client {
	return &Client{api: api, logger: zap.NewNop()}
}

// New creates a UCSC client with default settings for baseURL.
func New(baseURL string) *Client {
	return NewClient(upstream.New(upstream.Config{Source: "ucsc", BaseURL: baseURL}))
}

// SetLogger sets the logger for warnings and request tracing.
func (c *Client) SetLogger(l *zap.Logger) {
	c.logger = l
	c.api.SetLogger(l)
}
