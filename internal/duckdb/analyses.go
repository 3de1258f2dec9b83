package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/aaditya29/DNAgnosis/internal/genome"
)

// Analysis is a ledger row.
type Analysis struct {
	ID         string    `json:"id"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	genome.AnalysisRecord
}

// now is replaced in tests.
var now = time.Now

// RecordAnalysis appends one scored substitution to the ledger.
func (s *Store) RecordAnalysis(ctx context.Context, rec genome.AnalysisRecord) error {
	_, err := s.WriteAnalyses(ctx, []genome.AnalysisRecord{rec})
	return err
}

// WriteAnalyses batch-inserts records using the Appender API and returns
// the ids assigned to them, in input order.
func (s *Store) WriteAnalyses(ctx context.Context, recs []genome.AnalysisRecord) ([]string, error) {
	if len(recs) == 0 {
		return nil, nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "analysis_results")
		return err
	}); err != nil {
		return nil, fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	ids := make([]string, 0, len(recs))
	at := now().UTC()
	for _, rec := range recs {
		id := uuid.NewString()
		r := rec.Result
		if err := appender.AppendRow(
			id, rec.Assembly, rec.Chromosome, r.Position, r.Reference, r.Alternative,
			r.DeltaScore, r.Prediction, r.ClassificationConfidence,
			rec.GeneSymbol, rec.ClinvarID, at,
		); err != nil {
			return nil, fmt.Errorf("append analysis: %w", err)
		}
		ids = append(ids, id)
	}

	if err := appender.Flush(); err != nil {
		return nil, fmt.Errorf("flush analyses: %w", err)
	}
	return ids, nil
}

const selectAnalyses = `SELECT
	id, analyzed_at, assembly, chrom, gene_symbol, clinvar_id,
	pos, ref, alt, delta_score, prediction, confidence
	FROM analysis_results`

// Analyses lists every recorded analysis, oldest first.
func (s *Store) Analyses(ctx context.Context) ([]Analysis, error) {
	rows, err := s.db.QueryContext(ctx, selectAnalyses+` ORDER BY analyzed_at, pos`)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	return scanAnalyses(rows)
}

// AnalysesByGene lists the analyses recorded for a gene symbol.
func (s *Store) AnalysesByGene(ctx context.Context, symbol string) ([]Analysis, error) {
	rows, err := s.db.QueryContext(ctx, selectAnalyses+` WHERE gene_symbol=? ORDER BY analyzed_at, pos`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query analyses by gene: %w", err)
	}
	defer rows.Close()

	return scanAnalyses(rows)
}

// LookupAnalysis returns earlier scores of the same substitution.
func (s *Store) LookupAnalysis(ctx context.Context, assembly, chrom string, pos int64, alt string) ([]Analysis, error) {
	rows, err := s.db.QueryContext(ctx, selectAnalyses+` WHERE assembly=? AND chrom=? AND pos=? AND alt=? ORDER BY analyzed_at`,
		assembly, chrom, pos, alt)
	if err != nil {
		return nil, fmt.Errorf("query analysis: %w", err)
	}
	defer rows.Close()

	return scanAnalyses(rows)
}

// ClearAnalyses removes every recorded analysis.
func (s *Store) ClearAnalyses(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM analysis_results")
	return err
}

// scanAnalyses scans rows into Analysis values.
func scanAnalyses(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Analysis, error) {
	var out []Analysis
	for rows.Next() {
		var a Analysis
		r := &a.Result
		if err := rows.Scan(
			&a.ID, &a.AnalyzedAt, &a.Assembly, &a.Chromosome, &a.GeneSymbol, &a.ClinvarID,
			&r.Position, &r.Reference, &r.Alternative, &r.DeltaScore, &r.Prediction, &r.ClassificationConfidence,
		); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}
