package ucsc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aaditya29/DNAgnosis/internal/genome"
)

// SequenceRequest asks for the 1-based inclusive range [Start, End] of a chromosome.
type SequenceRequest struct {
	Chrom    string
	Start    int64
	End      int64
	Assembly string
}

// Sequence fetches the upper-cased reference sequence for req. It never
// returns an error: failures come back as an empty window with Error set and
// the requested range echoed, so callers can keep going without data.
func (c *Client) Sequence(ctx context.Context, req SequenceRequest) genome.SequenceWindow {
	w := genome.SequenceWindow{Start: req.Start, End: req.End}

	if req.Start < 1 || req.End < req.Start {
		w.Error = "invalid range: start must be >= 1 and end >= start"
		return w
	}

	// UCSC takes a 0-based half-open range.
	q := url.Values{
		"genome": {req.Assembly},
		"chrom":  {genome.WithChrPrefix(req.Chrom)},
		"start":  {strconv.FormatInt(req.Start-1, 10)},
		"end":    {strconv.FormatInt(req.End, 10)},
	}

	var raw json.RawMessage
	if err := c.api.GetJSON(ctx, "/getData/sequence", q, &raw); err != nil {
		w.Error = err.Error()
		c.warn(req, w.Error)
		return w
	}

	seq, msg := parseSequence(raw)
	if msg != "" {
		w.Error = msg
		c.warn(req, msg)
		return w
	}
	w.Sequence = strings.ToUpper(seq)
	return w
}

func (c *Client) warn(req SequenceRequest, msg string) {
	c.logger.Warn("sequence fetch failed",
		zap.String("assembly", req.Assembly),
		zap.String("chrom", req.Chrom),
		zap.Int64("start", req.Start),
		zap.Int64("end", req.End),
		zap.String("error", msg))
}

// parseSequence extracts dna from a getData/sequence payload, or returns an
// error message for error payloads, non-objects and missing dna.
func parseSequence(raw json.RawMessage) (string, string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return "", "unexpected sequence response"
	}
	var resp struct {
		DNA   *string `json:"dna"`
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", "unexpected sequence response: " + err.Error()
	}
	if resp.Error != nil {
		return "", "UCSC API error: " + *resp.Error
	}
	if resp.DNA == nil {
		return "", "no sequence data returned"
	}
	return *resp.DNA, ""
}
