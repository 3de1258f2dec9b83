// Package duckdb keeps a queryable ledger of scored substitutions in an
// in-memory DuckDB database. The ledger lives as long as the process.
package duckdb

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages an in-memory DuckDB connection.
type Store struct {
	db *sql.DB
}

// Open creates an empty in-memory database.
func Open() (*Store, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS analysis_results (
		id VARCHAR PRIMARY KEY,
		assembly VARCHAR,
		chrom VARCHAR,
		pos BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		delta_score DOUBLE,
		prediction VARCHAR,
		confidence DOUBLE,
		gene_symbol VARCHAR,
		clinvar_id VARCHAR,
		analyzed_at TIMESTAMP
	)`)
	return err
}
