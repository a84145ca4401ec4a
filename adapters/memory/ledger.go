// Package memory keeps run reports in process memory. It backs the API and
// CLI when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"gobayes/domain/core"
	"gobayes/domain/evidence"
	"gobayes/internal/errors"
	"gobayes/ports"
)

// DefaultCapacity bounds how many reports are retained
const DefaultCapacity = 64

// Ledger is an in-memory ports.LedgerPort. Once full, the oldest report is
// evicted.
type Ledger struct {
	mu       sync.RWMutex
	capacity int
	order    []core.RunID
	reports  map[core.RunID]*evidence.Report
}

var _ ports.LedgerPort = (*Ledger)(nil)

// NewLedger creates a ledger holding at most capacity reports
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		capacity: capacity,
		reports:  make(map[core.RunID]*evidence.Report),
	}
}

func (l *Ledger) StoreReport(_ context.Context, report *evidence.Report) error {
	if report == nil || report.RunID == "" {
		return errors.InvalidInput("report must carry a run ID")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.reports[report.RunID]; exists {
		return errors.InvalidInput(fmt.Sprintf("run %s already stored", report.RunID))
	}
	if len(l.order) == l.capacity {
		delete(l.reports, l.order[0])
		l.order = l.order[1:]
	}
	l.order = append(l.order, report.RunID)
	l.reports[report.RunID] = report
	return nil
}

func (l *Ledger) GetReport(_ context.Context, runID core.RunID) (*evidence.Report, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	report, ok := l.reports[runID]
	if !ok {
		return nil, errors.NotFound("run " + runID.String())
	}
	return report, nil
}

func (l *Ledger) LatestReport(_ context.Context) (*evidence.Report, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.order) == 0 {
		return nil, errors.NotFound("report")
	}
	return l.reports[l.order[len(l.order)-1]], nil
}

// ListRuns lists newest first
func (l *Ledger) ListRuns(_ context.Context, filters ports.RunFilters) ([]ports.RunSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []ports.RunSummary{}
	skipped := 0
	for i := len(l.order) - 1; i >= 0; i-- {
		if skipped < filters.Offset {
			skipped++
			continue
		}
		if filters.Limit > 0 && len(out) == filters.Limit {
			break
		}
		out = append(out, Summarize(l.reports[l.order[i]]))
	}
	return out, nil
}

func (l *Ledger) StudyHistory(_ context.Context, study string, limit int) ([]evidence.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []evidence.Record
	for i := len(l.order) - 1; i >= 0; i-- {
		r, ok := l.reports[l.order[i]].Study(study)
		if !ok || r.Record == nil {
			continue
		}
		out = append(out, *r.Record)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Summarize builds the listing row for a report
func Summarize(r *evidence.Report) ports.RunSummary {
	return ports.RunSummary{
		RunID:       r.RunID,
		Included:    len(r.Included),
		Failed:      len(r.Failed),
		LogCombined: r.LogCombined,
		NoEvidence:  r.NoEvidence,
		GeneratedAt: r.GeneratedAt,
	}
}
