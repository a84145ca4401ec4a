// Package sensitivity probes how stable a likelihood ratio or its inputs are
// under resampling, measurement noise and alternative model rates.
package sensitivity

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"gobayes/domain/evidence"
	"gobayes/internal/distributions"
	"gobayes/internal/errors"
)

const (
	DefaultBootstrapN = 1000
	DefaultLow        = 2.5
	DefaultHigh       = 97.5
)

// BootstrapOptions configure a percentile bootstrap. RNG takes precedence
// over Seed; a zero Seed is a valid seed.
type BootstrapOptions struct {
	NBoot       int
	Percentiles [2]float64
	Seed        int64
	RNG         *rand.Rand
}

// DefaultBootstrapOptions returns 1000 replicates and a 95% interval
func DefaultBootstrapOptions() BootstrapOptions {
	return BootstrapOptions{
		NBoot:       DefaultBootstrapN,
		Percentiles: [2]float64{DefaultLow, DefaultHigh},
	}
}

// BootstrapCI resamples with replacement NBoot times and returns the
// requested percentiles of the replicate means. A single sample or a set with
// zero variance yields (x, x) without resampling.
func BootstrapCI(samples []float64, opts BootstrapOptions) (evidence.Interval, error) {
	if len(samples) == 0 {
		return evidence.Interval{}, errors.InsufficientData("bootstrap", 0, 1)
	}
	if opts.NBoot <= 0 {
		opts.NBoot = DefaultBootstrapN
	}
	if opts.Percentiles == [2]float64{} {
		opts.Percentiles = [2]float64{DefaultLow, DefaultHigh}
	}
	lo, hi := opts.Percentiles[0], opts.Percentiles[1]
	if lo > hi {
		return evidence.Interval{}, errors.InvalidInput(fmt.Sprintf("percentiles out of order: %v > %v", lo, hi))
	}
	pcts := []float64{lo, hi}

	if constant(samples) {
		x := samples[0]
		return evidence.Interval{Low: x, High: x, Percentiles: pcts}, nil
	}

	rng := opts.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(opts.Seed))
	}

	n := len(samples)
	means := make([]float64, opts.NBoot)
	draw := make([]float64, n)
	for b := range means {
		for i := range draw {
			draw[i] = samples[rng.Intn(n)]
		}
		means[b] = stat.Mean(draw, nil)
	}

	bounds, err := distributions.Percentiles(means, pcts)
	if err != nil {
		return evidence.Interval{}, err
	}
	return evidence.Interval{Low: bounds[0], High: bounds[1], Percentiles: pcts}, nil
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

// SyntheticSamples draws n normal samples, used when a study only reports a
// mean and spread
func SyntheticSamples(mean, sd float64, n int, rng *rand.Rand) ([]float64, error) {
	if n <= 0 {
		return nil, errors.InsufficientData("synthetic samples", n, 1)
	}
	if sd < 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("sd must be non-negative, got %v", sd))
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = mean + sd*rng.NormFloat64()
	}
	return out, nil
}
