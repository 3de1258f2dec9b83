// Package scoring submits single-nucleotide substitutions to the external
// variant-effect predictor and normalizes its answer.
package scoring

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

// DefaultTimeout allows for model cold starts.
const DefaultTimeout = 5 * time.Minute

// Request describes one substitution to score.
type Request struct {
	Position    int64
	Alternative string
	Assembly    string
	Chromosome  string
}

// Validate checks the request locally. It returns a *genome.ValidationError.
func (r Request) Validate() error {
	if r.Position < 1 {
		return &genome.ValidationError{
			Field:  "position",
			Value:  strconv.FormatInt(r.Position, 10),
			Reason: "not a valid position number",
		}
	}
	if err := genome.ValidateNucleotide("alternative", r.Alternative); err != nil {
		return err
	}
	if r.Chromosome == "" {
		return &genome.ValidationError{Field: "chromosome", Value: r.Chromosome, Reason: "chromosome is required"}
	}
	if r.Assembly == "" {
		return &genome.ValidationError{Field: "assembly", Value: r.Assembly, Reason: "assembly is required"}
	}
	return nil
}

// rawResult is the predictor's response. Required fields are pointers so a
// missing field can be told apart from a zero value.
type rawResult struct {
	Position                 *int64   `json:"position"`
	Reference                string   `json:"reference"`
	Alternative              string   `json:"alternative"`
	DeltaScore               *float64 `json:"delta_score"`
	Prediction               *string  `json:"prediction"`
	ClassificationConfidence *float64 `json:"classification_confidence"`
}

// Gateway calls the scoring endpoint. It performs no retries.
type Gateway struct {
	api    *upstream.Client
	logger *zap.Logger
}

// NewGateway creates a gateway on an upstream client whose base URL is the
// scoring endpoint.
func NewGateway(api *upstream.Client) *Gateway {
	return &Gateway{api: api, logger: zap.NewNop()}
}

// New creates a gateway for endpoint.
func New(endpoint string, timeout time.Duration) *Gateway {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return NewGateway(upstream.New(upstream.Config{Source: "scoring", BaseURL: endpoint, Timeout: timeout}))
}

// SetLogger sets the logger.
func (g *Gateway) SetLogger(l *zap.Logger) {
	g.logger = l
	g.api.SetLogger(l)
}

// Analyze validates req and scores it. Invalid input never reaches the
// network. A non-success status returns a *genome.RequestError carrying the
// response body.
func (g *Gateway) Analyze(ctx context.Context, req Request) (genome.AnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return genome.AnalysisResult{}, err
	}

	q := url.Values{
		"variant_position": {strconv.FormatInt(req.Position, 10)},
		"alternative":      {req.Alternative},
		"genome":           {req.Assembly},
		"chromosome":       {genome.WithChrPrefix(req.Chromosome)},
	}
	var raw rawResult
	if err := g.api.PostJSON(ctx, "", q, nil, &raw); err != nil {
		return genome.AnalysisResult{}, err
	}

	res, err := normalize(req, raw)
	if err != nil {
		return genome.AnalysisResult{}, err
	}
	g.logger.Info("variant scored",
		zap.String("chrom", req.Chromosome),
		zap.Int64("pos", res.Position),
		zap.String("ref", res.Reference),
		zap.String("alt", res.Alternative),
		zap.Float64("delta_score", res.DeltaScore),
		zap.String("prediction", res.Prediction))
	return res, nil
}

func normalize(req Request, raw rawResult) (genome.AnalysisResult, error) {
	switch {
	case raw.DeltaScore == nil:
		return genome.AnalysisResult{}, &genome.ShapeError{Source: "scoring", Key: "delta_score"}
	case raw.Prediction == nil:
		return genome.AnalysisResult{}, &genome.ShapeError{Source: "scoring", Key: "prediction"}
	case raw.ClassificationConfidence == nil:
		return genome.AnalysisResult{}, &genome.ShapeError{Source: "scoring", Key: "classification_confidence"}
	}

	res := genome.AnalysisResult{
		Position:                 req.Position,
		Reference:                strings.ToUpper(raw.Reference),
		Alternative:              strings.ToUpper(raw.Alternative),
		DeltaScore:               *raw.DeltaScore,
		Prediction:               *raw.Prediction,
		ClassificationConfidence: min(max(*raw.ClassificationConfidence, 0), 1),
	}
	if raw.Position != nil {
		res.Position = *raw.Position
	}
	if res.Alternative == "" {
		res.Alternative = req.Alternative
	}
	return res, nil
}
