package ports

import (
	"context"
	"time"

	"gobayes/domain/core"
	"gobayes/domain/evidence"
)

// LedgerWriterPort stores finished reports. Reports are append-only; a run
// ID is written once.
type LedgerWriterPort interface {
	StoreReport(ctx context.Context, report *evidence.Report) error
}

// LedgerReaderPort gives read-only access to stored reports
type LedgerReaderPort interface {
	GetReport(ctx context.Context, runID core.RunID) (*evidence.Report, error)
	// LatestReport returns a NOT_FOUND error when nothing has been stored
	LatestReport(ctx context.Context) (*evidence.Report, error)
	ListRuns(ctx context.Context, filters RunFilters) ([]RunSummary, error)
	// StudyHistory returns every stored record of one study, newest first
	StudyHistory(ctx context.Context, study string, limit int) ([]evidence.Record, error)
}

// LedgerPort combines read and write access
type LedgerPort interface {
	LedgerWriterPort
	LedgerReaderPort
}

// RunFilters for listing runs
type RunFilters struct {
	Limit  int
	Offset int
}

// RunSummary is one row of the run listing
type RunSummary struct {
	RunID       core.RunID `json:"run_id" db:"run_id"`
	Included    int        `json:"included" db:"included"`
	Failed      int        `json:"failed" db:"failed"`
	LogCombined float64    `json:"log_combined_lr" db:"log_combined"`
	NoEvidence  bool       `json:"no_evidence" db:"no_evidence"`
	GeneratedAt time.Time  `json:"generated_at" db:"generated_at"`
}

// RunObserver receives progress while a run is in flight. Implementations
// must not block; they are called from the study goroutines.
type RunObserver interface {
	StudyFinished(runID core.RunID, result evidence.StudyResult, done, total int)
	RunFinished(report *evidence.Report)
}
