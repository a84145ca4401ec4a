package sensitivity

import (
	"github.com/montanaflynn/stats"

	"gobayes/internal/errors"
)

// Summary describes a set of perturbed outcomes
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// Summarize computes mean, population standard deviation and extremes
func Summarize(data []float64) (Summary, error) {
	if len(data) == 0 {
		return Summary{}, errors.InsufficientData("summary", 0, 1)
	}

	mean, err := stats.Mean(data)
	if err != nil {
		return Summary{}, err
	}

	stdDev, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		return Summary{}, err
	}

	min, err := stats.Min(data)
	if err != nil {
		return Summary{}, err
	}

	max, err := stats.Max(data)
	if err != nil {
		return Summary{}, err
	}

	median, err := stats.Median(data)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		N:      len(data),
		Mean:   mean,
		StdDev: stdDev,
		Min:    min,
		Max:    max,
		Median: median,
	}, nil
}
