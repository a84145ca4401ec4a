package lattice

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gobayes/domain/evidence"
	"gobayes/internal/distributions"
	"gobayes/internal/errors"
	"gobayes/internal/generators"
)

// Spectra compares an empirical reflectance spectrum with the spectra
// modeled under each mechanism
type Spectra struct {
	Wavelengths []float64 `json:"wavelengths" yaml:"wavelengths"`
	Empirical   []float64 `json:"empirical" yaml:"empirical"`
	Low         []float64 `json:"low" yaml:"low"`
	High        []float64 `json:"high" yaml:"high"`
	// SD is the per-wavelength measurement error used for the likelihood
	SD float64 `json:"sd" yaml:"sd"`
}

// SpectralFit holds the RMSE of each modeled spectrum against the empirical one
type SpectralFit struct {
	RMSELow  float64 `json:"rmse_low"`
	RMSEHigh float64 `json:"rmse_high"`
	LogLR    float64 `json:"log_lr"`
}

// Compare computes both RMSEs and, when SD is set, the log likelihood ratio
// of the empirical spectrum under independent Gaussian errors
func (s Spectra) Compare() (SpectralFit, error) {
	rl, err := distributions.RMSE(s.Empirical, s.Low)
	if err != nil {
		return SpectralFit{}, errors.Wrap(err, "low-energy spectrum")
	}
	rh, err := distributions.RMSE(s.Empirical, s.High)
	if err != nil {
		return SpectralFit{}, errors.Wrap(err, "high-energy spectrum")
	}
	fit := SpectralFit{RMSELow: rl, RMSEHigh: rh}
	if s.SD > 0 {
		n := float64(len(s.Empirical))
		fit.LogLR = n * (rh*rh - rl*rl) / (2 * s.SD * s.SD)
	}
	return fit, nil
}

// Observation is a measured reflectance scored against both simulated values
type Observation struct {
	Reflectance float64 `json:"reflectance" yaml:"reflectance"`
	SD          float64 `json:"sd" yaml:"sd"`
}

// SampleDesign draws replicate RMSE samples for each mechanism
type SampleDesign struct {
	LowMean  float64 `json:"low_mean" yaml:"low_mean"`
	LowSD    float64 `json:"low_sd" yaml:"low_sd"`
	HighMean float64 `json:"high_mean" yaml:"high_mean"`
	HighSD   float64 `json:"high_sd" yaml:"high_sd"`
	N        int     `json:"n" yaml:"n"`
	// Method is student_pooled (the default) or welch
	Method string `json:"method,omitempty" yaml:"method,omitempty"`
}

// SampleComparison is a two-sample t-test between the RMSE sample sets
type SampleComparison struct {
	Low  []float64                 `json:"low"`
	High []float64                 `json:"high"`
	Test distributions.TTestResult `json:"t_test"`
}

// Draw samples both sets from rng and compares them
func (d SampleDesign) Draw(rng *rand.Rand) (SampleComparison, error) {
	if d.N < 2 {
		return SampleComparison{}, errors.InsufficientData("rmse samples", d.N, 2)
	}
	test := distributions.StudentTTest
	switch d.Method {
	case "", distributions.MethodStudentPooled:
	case distributions.MethodWelch:
		test = distributions.WelchTTest
	default:
		return SampleComparison{}, errors.InvalidInput(fmt.Sprintf("unknown t-test method %q", d.Method))
	}
	low := make([]float64, d.N)
	high := make([]float64, d.N)
	for i := range low {
		low[i] = d.LowMean + d.LowSD*rng.NormFloat64()
	}
	for i := range high {
		high[i] = d.HighMean + d.HighSD*rng.NormFloat64()
	}
	res, err := test(low, high)
	if err != nil {
		return SampleComparison{}, err
	}
	return SampleComparison{Low: low, High: high, Test: res}, nil
}

// Simulator is the lattice evidence generator. The LR comes from the observed
// reflectance when given, otherwise from the spectra; with neither the
// evidence is neutral.
type Simulator struct {
	Label       string
	Config      Config
	Seed        int64
	Observation *Observation
	Spectra     *Spectra
	Samples     *SampleDesign
}

func (s *Simulator) Name() string { return s.Label }

func (s *Simulator) Generate(ctx context.Context) (generators.Evidence, error) {
	rng := rand.New(rand.NewSource(s.Seed))
	res, err := Simulate(ctx, s.Config, rng)
	if err != nil {
		return generators.Evidence{}, err
	}

	details := map[string]interface{}{
		"simulation": res,
		"seed":       s.Seed,
	}
	if s.Samples != nil {
		cmp, err := s.Samples.Draw(rng)
		if err != nil {
			return generators.Evidence{}, err
		}
		details["rmse_samples"] = cmp
	}
	lr := evidence.LikelihoodRatio(1)
	basis := "none"

	if s.Spectra != nil {
		fit, err := s.Spectra.Compare()
		if err != nil {
			return generators.Evidence{}, err
		}
		details["spectral_fit"] = fit
		if s.Spectra.SD > 0 {
			lr = clampLog(fit.LogLR)
			basis = "spectra"
		}
	}

	if s.Observation != nil {
		ratio, err := distributions.GaussianLR(s.Observation.Reflectance,
			distributions.Gaussian{Mean: res.ReflectanceLow, SD: s.Observation.SD},
			distributions.Gaussian{Mean: res.ReflectanceHigh, SD: s.Observation.SD})
		if err != nil {
			return generators.Evidence{}, err
		}
		details["density_ratio"] = ratio
		lr = ratio.LR
		basis = "observed_reflectance"
	}
	details["lr_basis"] = basis

	return generators.Evidence{
		LR:     lr,
		Method: evidence.MethodLattice,
		Inputs: map[string]interface{}{
			"config": s.Config,
		},
		Params: map[string]float64{
			"fraction_low":     res.FractionLow,
			"fraction_high":    res.FractionHigh,
			"reflectance_low":  res.ReflectanceLow,
			"reflectance_high": res.ReflectanceHigh,
		},
		Details: details,
	}, nil
}

func clampLog(logLR float64) evidence.LikelihoodRatio {
	switch {
	case logLR > math.Log(distributions.MaxLR):
		return distributions.MaxLR
	case logLR < math.Log(distributions.MinLR):
		return distributions.MinLR
	}
	return evidence.LikelihoodRatio(math.Exp(logLR))
}
