package scoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaditya29/DNAgnosis/internal/genome"
)

const testResult = `{
  "position": 43057062,
  "reference": "a",
  "alternative": "t",
  "delta_score": -0.00123,
  "prediction": "Likely pathogenic",
  "classification_confidence": 0.87
}`

func TestAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		q := r.URL.Query()
		assert.Equal(t, "43057062", q.Get("variant_position"))
		assert.Equal(t, "T", q.Get("alternative"))
		assert.Equal(t, "hg38", q.Get("genome"))
		assert.Equal(t, "chr17", q.Get("chromosome"))
		w.Write([]byte(testResult))
	}))
	defer srv.Close()

	g := New(srv.URL, 0)
	res, err := g.Analyze(context.Background(), Request{Position: 43057062, Alternative: "T", Assembly: "hg38", Chromosome: "17"})
	require.NoError(t, err)
	assert.Equal(t, genome.AnalysisResult{
		Position:                 43057062,
		Reference:                "A",
		Alternative:              "T",
		DeltaScore:               -0.00123,
		Prediction:               "Likely pathogenic",
		ClassificationConfidence: 0.87,
	}, res)
}

func TestAnalyze_ValidationNeverCallsUpstream(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()
	g := New(srv.URL, 0)

	tests := []struct {
		name string
		req  Request
	}{
		{"empty alt", Request{Position: 1, Alternative: "", Assembly: "hg38", Chromosome: "chr1"}},
		{"lowercase alt", Request{Position: 1, Alternative: "a", Assembly: "hg38", Chromosome: "chr1"}},
		{"multi alt", Request{Position: 1, Alternative: "AC", Assembly: "hg38", Chromosome: "chr1"}},
		{"bad base", Request{Position: 1, Alternative: "N", Assembly: "hg38", Chromosome: "chr1"}},
		{"zero position", Request{Position: 0, Alternative: "A", Assembly: "hg38", Chromosome: "chr1"}},
		{"no chromosome", Request{Position: 1, Alternative: "A", Assembly: "hg38"}},
		{"no assembly", Request{Position: 1, Alternative: "A", Chromosome: "chr1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Analyze(context.Background(), tt.req)
			var verr *genome.ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
	assert.False(t, called)
}

func TestAnalyze_RequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "CUDA out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).Analyze(context.Background(), Request{Position: 5, Alternative: "G", Assembly: "hg38", Chromosome: "chr1"})
	var rerr *genome.RequestError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "CUDA out of memory", rerr.Body)
}

func TestAnalyze_ShapeErrorAndClamp(t *testing.T) {
	t.Run("missing score", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"prediction": "Likely benign", "classification_confidence": 0.5}`))
		}))
		defer srv.Close()
		_, err := New(srv.URL, 0).Analyze(context.Background(), Request{Position: 5, Alternative: "G", Assembly: "hg38", Chromosome: "chr1"})
		var serr *genome.ShapeError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, "delta_score", serr.Key)
	})

	t.Run("confidence clamped", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"delta_score": 0.1, "prediction": "Likely benign", "classification_confidence": 1.7}`))
		}))
		defer srv.Close()
		res, err := New(srv.URL, 0).Analyze(context.Background(), Request{Position: 5, Alternative: "G", Assembly: "hg38", Chromosome: "chr1"})
		require.NoError(t, err)
		assert.Equal(t, 1.0, res.ClassificationConfidence)
		assert.Equal(t, int64(5), res.Position)
		assert.Equal(t, "G", res.Alternative)
	})
}
