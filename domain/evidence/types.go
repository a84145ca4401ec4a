package evidence

import (
	"math"
	"time"

	"gobayes/domain/core"
	"gobayes/domain/run"
)

// LikelihoodRatio is P(evidence|H1)/P(evidence|H0). Values are strictly
// positive and finite; 1.0 is neutral.
type LikelihoodRatio float64

// Valid reports whether the ratio can be composed multiplicatively
func (lr LikelihoodRatio) Valid() bool {
	f := float64(lr)
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Favours returns the hypothesis the ratio points towards
func (lr LikelihoodRatio) Favours() Hypothesis {
	switch {
	case lr > 1:
		return HypothesisAuthentic
	case lr < 1:
		return HypothesisForgery
	default:
		return HypothesisNeutral
	}
}

// Hypothesis names the side a piece of evidence supports
type Hypothesis string

const (
	HypothesisAuthentic Hypothesis = "H1"
	HypothesisForgery   Hypothesis = "H0"
	HypothesisNeutral   Hypothesis = "neutral"
)

// Prior is a named prior odds preset (H1:H0)
type Prior struct {
	Name string  `json:"name" yaml:"name"`
	Odds float64 `json:"odds" yaml:"odds"`
}

// Posterior is the result of updating one prior by a combined likelihood ratio
type Posterior struct {
	Prior       string  `json:"prior"`
	PriorOdds   float64 `json:"prior_odds"`
	LogOdds     float64 `json:"log_odds"`
	Probability float64 `json:"probability"`
	// Saturated is set when the probability rounds to exactly 0 or 1 in float64
	Saturated bool `json:"saturated"`
}

// Method labels how a likelihood ratio was derived
type Method string

const (
	MethodRegression Method = "regression_slope"
	MethodDecayFit   Method = "exponential_decay_fit"
	MethodLattice    Method = "lattice_monte_carlo"
	MethodClassifier Method = "two_point_classifier"
	MethodLiterature Method = "literature"
	MethodScoring    Method = "scoring_matrix"
	MethodAsserted   Method = "asserted"
)

// Record is the immutable evidence produced by one study run
type Record struct {
	ID               core.RecordID          `json:"id"`
	Study            string                 `json:"study"`
	RawInputs        map[string]interface{} `json:"raw_inputs,omitempty"`
	FittedParameters map[string]float64     `json:"fitted_parameters,omitempty"`
	LR               LikelihoodRatio        `json:"lr"`
	ComputedLR       LikelihoodRatio        `json:"computed_lr,omitempty"`
	Method           Method                 `json:"method"`
	Source           string                 `json:"source,omitempty"`
	Details          map[string]interface{} `json:"details,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// Range is a closed interval of likelihood ratios
type Range struct {
	Min LikelihoodRatio `json:"min"`
	Max LikelihoodRatio `json:"max"`
}

// Interval is a closed interval of a sampled statistic
type Interval struct {
	Low         float64   `json:"low"`
	High        float64   `json:"high"`
	Percentiles []float64 `json:"percentiles"`
}

// Status of a study run
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
)

// StudyResult is the structured per-study output consumed by reporting
type StudyResult struct {
	Study              string          `json:"study"`
	Status             Status          `json:"status"`
	Code               string          `json:"code,omitempty"`
	Message            string          `json:"message,omitempty"`
	Standalone         bool            `json:"standalone,omitempty"`
	Record             *Record         `json:"record,omitempty"`
	Posteriors         []Posterior     `json:"posteriors,omitempty"`
	SensitivityRange   *Range          `json:"sensitivity_range,omitempty"`
	ConfidenceInterval *Interval       `json:"confidence_interval,omitempty"`
	Duration           time.Duration   `json:"duration"`
	LR                 LikelihoodRatio `json:"lr,omitempty"`
}

// OK reports whether the study produced usable evidence
func (r StudyResult) OK() bool {
	return r.Status == StatusOK && r.Record != nil
}

// Report is the structured output of a multi-study run
type Report struct {
	RunID        core.RunID      `json:"run_id"`
	Studies      []StudyResult   `json:"studies"`
	Included     []string        `json:"included"`
	Failed       []string        `json:"failed,omitempty"`
	CombinedLR   LikelihoodRatio `json:"combined_lr"`
	LogCombined  float64         `json:"log_combined_lr"`
	Posteriors   []Posterior     `json:"posteriors,omitempty"`
	NoEvidence   bool            `json:"no_evidence,omitempty"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Independence string          `json:"independence_assumption"`
	Manifest     *run.Manifest   `json:"manifest,omitempty"`
}

// Study returns the result for the named study
func (r *Report) Study(name string) (StudyResult, bool) {
	for _, s := range r.Studies {
		if s.Study == name {
			return s, true
		}
	}
	return StudyResult{}, false
}
