package run

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"gobayes/domain/core"
	"gobayes/internal/errors"
)

// Manifest records everything a run's numbers depend on. Two runs with the
// same fingerprint are expected to produce identical reports.
type Manifest struct {
	RunID       core.RunID  `json:"run_id"`
	Studies     []string    `json:"studies"`
	Fingerprint Fingerprint `json:"fingerprint"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Fingerprint ensures deterministic replay
type Fingerprint struct {
	// StudyHash covers the full study definitions and the prior set
	StudyHash   core.Hash `json:"study_hash"`
	Seed        int64     `json:"seed"`
	BootstrapN  int       `json:"bootstrap_n"`
	NoiseTrials int       `json:"noise_trials"`
	CodeVersion string    `json:"code_version"`
	Fingerprint core.Hash `json:"fingerprint"` // Hash of all above
}

// NewFingerprint creates a fingerprint from determinism parameters
func NewFingerprint(studyHash core.Hash, seed int64, bootstrapN, noiseTrials int, codeVersion string) Fingerprint {
	return Fingerprint{
		StudyHash:   studyHash,
		Seed:        seed,
		BootstrapN:  bootstrapN,
		NoiseTrials: noiseTrials,
		CodeVersion: codeVersion,
		Fingerprint: computeFingerprint(studyHash, seed, bootstrapN, noiseTrials, codeVersion),
	}
}

func computeFingerprint(studyHash core.Hash, seed int64, bootstrapN, noiseTrials int, codeVersion string) core.Hash {
	data := fmt.Sprintf("studies:%s|seed:%d|bootstrap:%d|noise:%d|code:%s",
		studyHash, seed, bootstrapN, noiseTrials, codeVersion)
	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}

// NewManifest creates a run manifest
func NewManifest(runID core.RunID, studies []string, fp Fingerprint, createdAt time.Time) *Manifest {
	return &Manifest{
		RunID:       runID,
		Studies:     append([]string(nil), studies...),
		Fingerprint: fp,
		CreatedAt:   createdAt,
	}
}

// Replays reports whether other was computed from the same inputs
func (m *Manifest) Replays(other *Manifest) bool {
	return other != nil && m.Fingerprint.Fingerprint == other.Fingerprint.Fingerprint &&
		strings.Join(m.Studies, "\x00") == strings.Join(other.Studies, "\x00")
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return errors.InvalidInput("run manifest: run_id cannot be empty")
	}
	if m.Fingerprint.StudyHash.IsEmpty() {
		return errors.InvalidInput("run manifest: study_hash cannot be empty")
	}
	if m.Fingerprint.CodeVersion == "" {
		return errors.InvalidInput("run manifest: code_version cannot be empty")
	}
	if m.Fingerprint.Fingerprint != computeFingerprint(m.Fingerprint.StudyHash, m.Fingerprint.Seed,
		m.Fingerprint.BootstrapN, m.Fingerprint.NoiseTrials, m.Fingerprint.CodeVersion) {
		return errors.InvalidInput("run manifest: fingerprint does not match its parameters")
	}
	return nil
}
