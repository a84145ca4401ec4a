package sensitivity

import (
	"fmt"
	"math/rand"

	"gobayes/internal/errors"
	"gobayes/internal/generators/decay"
)

// DefaultNoiseTrials is the number of perturbed evaluations in NoiseRobustness
const DefaultNoiseTrials = 100

// Robustness is the spread of fn under Gaussian noise on its input
type Robustness struct {
	Input   float64   `json:"input"`
	NoiseSD float64   `json:"noise_sd"`
	Summary Summary   `json:"summary"`
	Values  []float64 `json:"-"`
}

// NoiseRobustness evaluates fn(x + N(0, sd)) trials times and summarises the
// outcomes with mean and population standard deviation
func NoiseRobustness(fn func(float64) float64, x, sd float64, trials int, rng *rand.Rand) (Robustness, error) {
	if trials <= 0 {
		trials = DefaultNoiseTrials
	}
	if sd < 0 {
		return Robustness{}, errors.InvalidInput(fmt.Sprintf("noise sd must be non-negative, got %v", sd))
	}
	if rng == nil {
		return Robustness{}, errors.InvalidInput("noise robustness requires a random source")
	}

	values := make([]float64, trials)
	for i := range values {
		values[i] = fn(x + sd*rng.NormFloat64())
	}

	summary, err := Summarize(values)
	if err != nil {
		return Robustness{}, err
	}
	return Robustness{Input: x, NoiseSD: sd, Summary: summary, Values: values}, nil
}

// RateCurve is a decay curve tabulated under one alternative rate
type RateCurve struct {
	Label  string        `json:"label"`
	Rate   float64       `json:"rate"`
	Points []decay.Point `json:"points"`
	// AgeAt is the age at which the curve reaches the target, when requested
	AgeAt *float64 `json:"age_at,omitempty"`
}

// RateSweep re-tabulates base under every alternative decay rate. When target
// is non-nil each curve is also inverted at target; curves without a root
// are reported without an age.
func RateSweep(base decay.Params, variants []decay.RateVariant, ages []float64, target *float64, guess float64) ([]RateCurve, error) {
	if len(variants) == 0 {
		return nil, errors.InvalidInput("rate sweep requires at least one rate")
	}
	out := make([]RateCurve, 0, len(variants))
	for _, v := range variants {
		if !(v.Rate > 0) {
			return nil, errors.InvalidInput(fmt.Sprintf("rate %q must be positive, got %v", v.Label, v.Rate))
		}
		p := base.WithRate(v.Rate)
		curve := RateCurve{Label: v.Label, Rate: v.Rate, Points: decay.Tabulate(p, ages)}
		if target != nil {
			if age, err := decay.SolveAge(p, *target, guess, decay.DefaultRootOptions()); err == nil {
				curve.AgeAt = &age
			}
		}
		out = append(out, curve)
	}
	return out, nil
}
