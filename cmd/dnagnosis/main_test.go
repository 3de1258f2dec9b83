package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/aaditya29/DNAgnosis/internal/genome"
)

const (
	fakeGenomes = `{"ucscGenomes": {
  "hg38": {"description": "Dec. 2013 (GRCh38/hg38)", "organism": "Human", "sourceName": "GRCh38", "active": 1},
  "mm39": {"description": "Jun. 2020 (GRCm39/mm39)", "organism": "Mouse", "sourceName": "GRCm39", "active": 1}
}}`
	fakeChromosomes = `{"chromosomes": {"chr2": 242193529, "chr1": 248956422, "chrUn_GL000195v1": 182896}}`
	fakeSearch      = `[1, ["672"], {"GeneID": ["672"]}, [["17", "BRCA1", "BRCA1 DNA repair associated", "17q21.31", "protein-coding"]]]`
	fakeGene        = `{"result": {"uids": ["672"], "672": {"uid": "672", "name": "BRCA1", "description": "BRCA1 DNA repair associated",
  "genomicinfo": [{"chrstart": 43125482, "chrstop": 43044294}]}}}`
	fakeClinvar = `{"result": {"uids": ["55407"], "55407": {"obj_type": "single nucleotide variant",
  "title": "NM_007294.4(BRCA1):c.5266A>T (p.Lys1756Ter)", "germline_classification": {"description": "Pathogenic"},
  "gene_sort": "BRCA1", "location_sort": "00000000000043057062"}}}`
)

// fakeUpstream serves every upstream the CLI talks to.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ucsc/list/ucscGenomes", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fakeGenomes)
	})
	mux.HandleFunc("/ucsc/list/chromosomes", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fakeChromosomes)
	})
	mux.HandleFunc("/ucsc/getData/sequence", func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		end, _ := strconv.Atoi(r.URL.Query().Get("end"))
		fmt.Fprintf(w, `{"dna": %q}`, strings.Repeat("a", end-start))
	})
	mux.HandleFunc("/genes", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fakeSearch)
	})
	mux.HandleFunc("/eutils/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"esearchresult": {"idlist": ["55407"]}}`)
	})
	mux.HandleFunc("/eutils/esummary.fcgi", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("db") == "gene" {
			fmt.Fprint(w, fakeGene)
			return
		}
		fmt.Fprint(w, fakeClinvar)
	})
	mux.HandleFunc("/score", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		q := r.URL.Query()
		fmt.Fprintf(w, `{"position": %s, "reference": "A", "alternative": %q, "delta_score": -0.0042, "prediction": "Likely pathogenic", "classification_confidence": 0.87}`,
			q.Get("variant_position"), q.Get("alternative"))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func configureUpstream(t *testing.T, ts *httptest.Server, withScoring bool) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DNAGNOSIS_UCSC_URL", ts.URL+"/ucsc")
	t.Setenv("DNAGNOSIS_GENES_SEARCH_URL", ts.URL+"/genes")
	t.Setenv("DNAGNOSIS_NCBI_EUTILS_URL", ts.URL+"/eutils")
	t.Setenv("DNAGNOSIS_NCBI_RATE_LIMIT", "1000")
	if withScoring {
		t.Setenv("DNAGNOSIS_SCORING_URL", ts.URL+"/score")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dnagnosis version dev")
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger(false, "info")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = newLogger(true, "error")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger(false, "loud")
	assert.Error(t, err)
}

func TestParseRegion(t *testing.T) {
	req, err := parseRegion([]string{"17", "101", "200"}, "hg38")
	require.NoError(t, err)
	assert.Equal(t, int64(101), req.Start)
	assert.Equal(t, int64(200), req.End)

	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{"zero start", []string{"17", "0", "200"}, "start"},
		{"bad end", []string{"17", "1", "x"}, "end"},
		{"reversed", []string{"17", "300", "200"}, "end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRegion(tt.args, "hg38")
			var verr *genome.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestAssembliesCmd(t *testing.T) {
	configureUpstream(t, fakeUpstream(t), false)

	out, err := execute(t, "assemblies", "--organism", "Human")
	require.NoError(t, err)
	assert.Contains(t, out, "Human\thg38\tDec. 2013 (GRCh38/hg38)\tGRCh38\tYES")
	assert.NotContains(t, out, "mm39")
}

func TestChromosomesCmd(t *testing.T) {
	configureUpstream(t, fakeUpstream(t), false)

	out, err := execute(t, "chromosomes", "hg38")
	require.NoError(t, err)
	assert.Equal(t, "#Chromosome\tSize\nchr1\t248956422\nchr2\t242193529\n", out)
}

func TestSequenceCmd(t *testing.T) {
	configureUpstream(t, fakeUpstream(t), false)

	out, err := execute(t, "sequence", "17", "101", "200")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, ">chr17:101-200 hg38", lines[0])
	assert.Equal(t, strings.Repeat("A", 60), lines[1])
	assert.Equal(t, strings.Repeat("A", 40), lines[2])
}

func TestClinvarCmd(t *testing.T) {
	configureUpstream(t, fakeUpstream(t), false)

	out, err := execute(t, "clinvar", "chr17", "43044294", "43125482", "--position", "43057062")
	require.NoError(t, err)
	assert.Contains(t, out, "55407\t17\t43,057,062\tSingle Nucleotide Variant\tPathogenic")
	assert.Contains(t, out, "Match at 43057062: ClinVar 55407 A>T (Pathogenic)")
}

func TestAnalyzeCmd(t *testing.T) {
	configureUpstream(t, fakeUpstream(t), true)

	out, err := execute(t, "analyze", "17", "43057062", "t")
	require.NoError(t, err)
	assert.Contains(t, out, "chr17\t43057062\tA\tT\t-0.0042\tLikely pathogenic\t0.87")
}

func TestAnalyzeCmd_Validation(t *testing.T) {
	configureUpstream(t, fakeUpstream(t), false)

	_, err := execute(t, "analyze", "17", "43057062", "N")
	var verr *genome.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = execute(t, "analyze", "17", "0", "A")
	require.ErrorAs(t, err, &verr)

	_, err = execute(t, "analyze", "17", "43057062", "A")
	assert.ErrorIs(t, err, errNoScoringURL)
}

func TestExploreCmd(t *testing.T) {
	configureUpstream(t, fakeUpstream(t), true)

	out, err := execute(t, "explore", "BRCA1", "--position", "43057062")
	require.NoError(t, err)
	assert.Contains(t, out, "# Assembly hg38, stage variants_loaded")
	assert.Contains(t, out, "# Chromosome chr1 of 2")
	assert.Contains(t, out, "## Gene BRCA1")
	assert.Contains(t, out, "Bounds\t43044294-43125482")
	assert.Contains(t, out, ">chr17:43044294-43054294 hg38")
	assert.Contains(t, out, "## Analysis at 43057062 (reference A)")
	assert.Contains(t, out, "ClinVar 55407 at this position: A>T (Pathogenic)")
	assert.Contains(t, out, "## Analyses")
	assert.Contains(t, out, "hg38\tBRCA1\tchr17\t43057062\tA\tT\t-0.0042\tLikely pathogenic\t0.87\t55407")
}

func TestExploreCmd_ScoreClinvar(t *testing.T) {
	configureUpstream(t, fakeUpstream(t), true)

	out, err := execute(t, "explore", "BRCA1", "--score-clinvar")
	require.NoError(t, err)
	assert.Contains(t, out, "Pathogenic\tNM_007294.4(BRCA1):c.5266A>T (p.Lys1756Ter)\t-0.0042\tLikely pathogenic")
	assert.Contains(t, out, "## Analyses")
}

func TestExploreCmd_Chromosome(t *testing.T) {
	configureUpstream(t, fakeUpstream(t), false)

	out, err := execute(t, "explore", "BRCA1", "--chromosome", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "# Chromosome chr2 of 2")

	_, err = execute(t, "explore", "BRCA1", "--chromosome", "chrUn_GL000195v1")
	var verr *genome.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "chromosome", verr.Field)
}

func TestExploreCmd_UnknownAssembly(t *testing.T) {
	configureUpstream(t, fakeUpstream(t), true)

	_, err := execute(t, "explore", "BRCA1", "--assembly", "hg99")
	var verr *genome.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "assembly", verr.Field)
}

func TestExploreCmd_NoScoring(t *testing.T) {
	configureUpstream(t, fakeUpstream(t), false)

	out, err := execute(t, "explore", "BRCA1", "--position", "43057062")
	assert.ErrorIs(t, err, errNoScoringURL)
	assert.Contains(t, out, "## ClinVar variants")
}

func TestConfigSetGet(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := filepath.Join(t.TempDir(), "dnagnosis.yaml")
	require.NoError(t, os.WriteFile(cfg, nil, 0o644))

	out, err := execute(t, "--config", cfg, "config", "set", "scoring.url", "http://localhost:9000/analyze")
	require.NoError(t, err)
	assert.Contains(t, out, "Set scoring.url = http://localhost:9000/analyze")

	out, err = execute(t, "--config", cfg, "config", "get", "scoring.url")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/analyze\n", out)

	out, err = execute(t, "--config", cfg, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "serve:")
}

func TestConfigSet_WritesOnlyFileKeys(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DNAGNOSIS_NCBI_API_KEY", "secret-from-env")

	_, err := execute(t, "config", "set", "scoring.url", "http://localhost:9000/analyze")
	require.NoError(t, err)
	_, err = execute(t, "config", "set", "log.level", "debug")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(home, ".dnagnosis.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-from-env")

	var written map[string]any
	require.NoError(t, yaml.Unmarshal(data, &written))
	assert.Equal(t, map[string]any{
		"scoring": map[string]any{"url": "http://localhost:9000/analyze"},
		"log":     map[string]any{"level": "debug"},
	}, written)

	out, err := execute(t, "config", "get", "ncbi.api_key")
	require.NoError(t, err)
	assert.Equal(t, "secret-from-env\n", out)
}
