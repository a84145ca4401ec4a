package api

import (
	"time"

	"gobayes/domain/core"
	"gobayes/domain/evidence"
	"gobayes/ports"
)

// SSEEventBroadcaster adapts the SSEHub to ports.RunObserver
type SSEEventBroadcaster struct {
	sseHub *SSEHub
	now    func() time.Time
}

var _ ports.RunObserver = (*SSEEventBroadcaster)(nil)

// NewSSEEventBroadcaster creates a new SSE event broadcaster
func NewSSEEventBroadcaster(sseHub *SSEHub) *SSEEventBroadcaster {
	return &SSEEventBroadcaster{sseHub: sseHub, now: time.Now}
}

func (seb *SSEEventBroadcaster) StudyFinished(runID core.RunID, result evidence.StudyResult, done, total int) {
	data := map[string]interface{}{"duration_ms": result.Duration.Milliseconds()}
	if result.OK() {
		data["lr"] = float64(result.LR)
		data["method"] = result.Record.Method
	} else {
		data["code"] = result.Code
		data["message"] = result.Message
	}

	seb.sseHub.Broadcast(RunEvent{
		RunID:     runID.String(),
		EventType: "study_finished",
		Study:     result.Study,
		Status:    string(result.Status),
		Progress:  float64(done) / float64(total),
		Data:      data,
		Timestamp: seb.now(),
	})
}

func (seb *SSEEventBroadcaster) RunFinished(report *evidence.Report) {
	data := map[string]interface{}{
		"included":    report.Included,
		"failed":      report.Failed,
		"no_evidence": report.NoEvidence,
	}
	if !report.NoEvidence {
		data["log_combined_lr"] = report.LogCombined
	}

	seb.sseHub.Broadcast(RunEvent{
		RunID:     report.RunID.String(),
		EventType: "run_finished",
		Progress:  1,
		Data:      data,
		Timestamp: seb.now(),
	})
}
