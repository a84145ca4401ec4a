// Package classifier separates two labeled scalar measurements with a
// hard-margin linear boundary and scores new measurements against it.
package classifier

import (
	"fmt"
	"math"
	"math/rand"

	"gobayes/internal/errors"
	"gobayes/internal/sensitivity"
)

// Class labels
const (
	ClassReference = 0
	ClassTarget    = 1
)

// probability clamp applied before forming odds
const probEpsilon = 1e-12

// Point is one labeled training measurement
type Point struct {
	X     float64 `json:"x" yaml:"x"`
	Label int     `json:"label" yaml:"label"`
}

// Model is the maximum-margin separator for exactly two points. The decision
// value is Weight·(x − Threshold), +1 at the target point and −1 at the
// reference point; probabilities pass it through a logistic with slope Scale.
type Model struct {
	Threshold float64  `json:"threshold"`
	Weight    float64  `json:"weight"`
	Scale     float64  `json:"scale"`
	Training  [2]Point `json:"training"`
}

// Prediction is the classification of one query
type Prediction struct {
	X           float64 `json:"x"`
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
	Decision    float64 `json:"decision"`
}

// Train fits the separator. Coinciding measurements or identical labels
// return DEGENERATE_TRAINING_SET. A non-positive scale defaults to 1.
func Train(a, b Point, scale float64) (*Model, error) {
	if a.Label == b.Label {
		return nil, errors.DegenerateTrainingSet(fmt.Sprintf("both points carry label %d", a.Label))
	}
	if !validLabel(a.Label) || !validLabel(b.Label) {
		return nil, errors.InvalidInput(fmt.Sprintf("labels must be %d or %d", ClassReference, ClassTarget))
	}
	if math.IsNaN(a.X) || math.IsNaN(b.X) || math.IsInf(a.X, 0) || math.IsInf(b.X, 0) {
		return nil, errors.InvalidInput("training points must be finite")
	}
	if a.X == b.X {
		return nil, errors.DegenerateTrainingSet(fmt.Sprintf("both points at x=%v", a.X))
	}
	if !(scale > 0) {
		scale = 1
	}

	ref, tgt := a, b
	if a.Label == ClassTarget {
		ref, tgt = b, a
	}

	return &Model{
		Threshold: (ref.X + tgt.X) / 2,
		Weight:    2 / (tgt.X - ref.X),
		Scale:     scale,
		Training:  [2]Point{ref, tgt},
	}, nil
}

func validLabel(l int) bool { return l == ClassReference || l == ClassTarget }

// Decision returns the signed margin distance of x
func (m *Model) Decision(x float64) float64 {
	return m.Weight * (x - m.Threshold)
}

// Probability returns P(target | x)
func (m *Model) Probability(x float64) float64 {
	return 1 / (1 + math.Exp(-m.Scale*m.Decision(x)))
}

// Predict labels x and reports the target-class probability
func (m *Model) Predict(x float64) Prediction {
	d := m.Decision(x)
	label := ClassReference
	if d > 0 {
		label = ClassTarget
	}
	return Prediction{X: x, Label: label, Probability: m.Probability(x), Decision: d}
}

// Odds returns P(target|x)/P(reference|x), the likelihood ratio under equal
// class priors, with the probability clamped away from 0 and 1
func (m *Model) Odds(x float64) float64 {
	p := math.Min(1-probEpsilon, math.Max(probEpsilon, m.Probability(x)))
	return p / (1 - p)
}

// Robustness perturbs x with Gaussian noise and summarises the target-class
// probability over trials evaluations
func (m *Model) Robustness(x, sd float64, trials int, rng *rand.Rand) (sensitivity.Robustness, error) {
	return sensitivity.NoiseRobustness(m.Probability, x, sd, trials, rng)
}
