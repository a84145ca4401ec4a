package migration

import (
	"context"

	"gobayes/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles the run ledger schema
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all migrations in order. Every statement is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, step := range r.Steps() {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return errors.Wrapf(err, "failed to %s", step.Name)
		}
	}
	return nil
}

// Step is one named schema statement
type Step struct {
	Name string
	SQL  string
}

// Steps lists the schema statements in execution order
func (r *MigrationRunner) Steps() []Step {
	return []Step{
		{Name: "create evidence_runs table", SQL: `
		CREATE TABLE IF NOT EXISTS evidence_runs (
			run_id TEXT PRIMARY KEY,
			included INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			combined_lr DOUBLE PRECISION,
			log_combined DOUBLE PRECISION,
			no_evidence BOOLEAN NOT NULL DEFAULT false,
			generated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			report JSONB NOT NULL
		)`},
		{Name: "create evidence_records table", SQL: `
		CREATE TABLE IF NOT EXISTS evidence_records (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES evidence_runs(run_id) ON DELETE CASCADE,
			study TEXT NOT NULL,
			lr DOUBLE PRECISION NOT NULL,
			computed_lr DOUBLE PRECISION,
			method VARCHAR(50) NOT NULL,
			source TEXT,
			record JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`},
		{Name: "create indexes", SQL: `
		CREATE INDEX IF NOT EXISTS idx_evidence_runs_generated_at ON evidence_runs(generated_at DESC);
		CREATE INDEX IF NOT EXISTS idx_evidence_records_study ON evidence_records(study, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_evidence_records_run ON evidence_records(run_id)`},
	}
}
