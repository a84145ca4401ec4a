package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gobayes/domain/core"
	"gobayes/domain/evidence"
	"gobayes/internal/errors"
	"gobayes/ports"
)

// ReportRepository stores run reports and their evidence records
type ReportRepository struct {
	db *sqlx.DB
}

var _ ports.LedgerPort = (*ReportRepository)(nil)

// NewReportRepository creates a new report repository
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Connect opens a postgres connection pool
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("failed to connect to database: %w", err))
	}
	return db, nil
}

// StoreReport writes the report and one row per evidence record in a single
// transaction
func (r *ReportRepository) StoreReport(ctx context.Context, report *evidence.Report) error {
	if report == nil || report.RunID == "" {
		return errors.InvalidInput("report must carry a run ID")
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var combined sql.NullFloat64
	if !report.NoEvidence {
		combined = sql.NullFloat64{Float64: float64(report.CombinedLR), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO evidence_runs (
			run_id, included, failed, combined_lr, log_combined, no_evidence, generated_at, report
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		report.RunID.String(),
		len(report.Included),
		len(report.Failed),
		combined,
		report.LogCombined,
		report.NoEvidence,
		report.GeneratedAt,
		reportJSON,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.InvalidInput(fmt.Sprintf("run %s already stored", report.RunID))
		}
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, s := range report.Studies {
		if s.Record == nil {
			continue
		}
		recordJSON, err := json.Marshal(s.Record)
		if err != nil {
			return fmt.Errorf("failed to marshal record for %s: %w", s.Study, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO evidence_records (
				id, run_id, study, lr, computed_lr, method, source, record, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			s.Record.ID.String(),
			report.RunID.String(),
			s.Record.Study,
			float64(s.Record.LR),
			float64(s.Record.ComputedLR),
			string(s.Record.Method),
			s.Record.Source,
			recordJSON,
			s.Record.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert record for %s: %w", s.Study, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetReport loads one report by run ID
func (r *ReportRepository) GetReport(ctx context.Context, runID core.RunID) (*evidence.Report, error) {
	return r.loadReport(ctx, `SELECT report FROM evidence_runs WHERE run_id = $1`, runID.String())
}

// LatestReport loads the most recently generated report
func (r *ReportRepository) LatestReport(ctx context.Context) (*evidence.Report, error) {
	return r.loadReport(ctx, `SELECT report FROM evidence_runs ORDER BY generated_at DESC LIMIT 1`)
}

func (r *ReportRepository) loadReport(ctx context.Context, query string, args ...interface{}) (*evidence.Report, error) {
	var payload []byte
	if err := r.db.GetContext(ctx, &payload, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("report")
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	var report evidence.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// ListRuns lists run summaries, newest first
func (r *ReportRepository) ListRuns(ctx context.Context, filters ports.RunFilters) ([]ports.RunSummary, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	runs := []ports.RunSummary{}
	err := r.db.SelectContext(ctx, &runs, `
		SELECT run_id, included, failed, log_combined, no_evidence, generated_at
		FROM evidence_runs
		ORDER BY generated_at DESC
		LIMIT $1 OFFSET $2`, limit, filters.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// StudyHistory returns the stored records of one study, newest first
func (r *ReportRepository) StudyHistory(ctx context.Context, study string, limit int) ([]evidence.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	var payloads [][]byte
	err := r.db.SelectContext(ctx, &payloads, `
		SELECT record FROM evidence_records
		WHERE study = $1
		ORDER BY created_at DESC
		LIMIT $2`, study, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query study history: %w", err)
	}

	records := make([]evidence.Record, 0, len(payloads))
	for _, p := range payloads {
		var rec evidence.Record
		if err := json.Unmarshal(p, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
