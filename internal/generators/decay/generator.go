package decay

import (
	"context"

	"github.com/rs/zerolog/log"

	"gobayes/domain/evidence"
	"gobayes/internal/distributions"
	"gobayes/internal/errors"
	"gobayes/internal/generators"
)

// RateVariant is an alternative decay rate (humidity, UV exposure) tabulated
// against the fitted curve
type RateVariant struct {
	Label string  `json:"label" yaml:"label"`
	Rate  float64 `json:"rate" yaml:"rate"`
}

// Config describes one crystallinity study
type Config struct {
	Ages      []float64
	Values    []float64
	Options   Options
	Fallback  *Params
	TableAges []float64

	// Observed is the measured value of the artifact; Guess seeds the age inversion
	Observed float64
	Guess    float64
	H1       distributions.Gaussian
	H0       distributions.Gaussian
}

// Study fits the benchmark curve, dates the observed value and scores it
// under two Gaussian hypotheses
type Study struct {
	Label  string
	Config Config
}

// NewStudy creates a decay study generator
func NewStudy(label string, cfg Config) *Study {
	return &Study{Label: label, Config: cfg}
}

func (s *Study) Name() string { return s.Label }

// Generate never substitutes parameters on its own: a failed fit without a
// configured fallback is returned as an error.
func (s *Study) Generate(ctx context.Context) (generators.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return generators.Evidence{}, err
	}
	cfg := s.Config

	fit, err := FitCurve(cfg.Ages, cfg.Values, cfg.Options)
	fallbackUsed := false
	if err != nil {
		if !errors.HasCode(err, errors.CodeFitConvergence) || cfg.Fallback == nil {
			return generators.Evidence{}, err
		}
		log.Warn().Str("study", s.Label).Err(err).Msg("decay fit did not converge, using fallback parameters")
		fit = FromParams(*cfg.Fallback)
		fallbackUsed = true
	}

	ratio, err := NormalLR(cfg.Observed, cfg.H1, cfg.H0)
	if err != nil {
		return generators.Evidence{}, err
	}

	details := map[string]interface{}{
		"fit":           fit,
		"fallback_used": fallbackUsed,
		"density_ratio": ratio,
	}
	if len(cfg.TableAges) > 0 {
		details["table"] = fit.Tabulate(cfg.TableAges)
	}

	age, rootErr := SolveAge(fit.Params, cfg.Observed, cfg.Guess, DefaultRootOptions())
	if rootErr != nil {
		details["age_error"] = rootErr.Error()
	} else {
		details["estimated_age"] = age
	}

	return generators.Evidence{
		LR:     ratio.LR,
		Method: evidence.MethodDecayFit,
		Inputs: map[string]interface{}{
			"ages":     cfg.Ages,
			"values":   cfg.Values,
			"observed": cfg.Observed,
		},
		Params: map[string]float64{
			"a": fit.Params.A,
			"b": fit.Params.B,
			"c": fit.Params.C,
		},
		Details: details,
	}, nil
}

// NormalLR scores an observation under two Gaussian hypotheses
func NormalLR(x float64, h1, h0 distributions.Gaussian) (distributions.DensityRatio, error) {
	return distributions.GaussianLR(x, h1, h0)
}
