package distributions

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"gobayes/domain/evidence"
	"gobayes/internal/errors"
)

// Bounds applied to likelihood ratios derived from density ratios
const (
	MinLR = 1e-300
	MaxLR = 1e300
)

// Gaussian is a normal likelihood model for one hypothesis
type Gaussian struct {
	Mean float64 `json:"mean" yaml:"mean"`
	SD   float64 `json:"sd" yaml:"sd"`
}

// Validate ensures the standard deviation is usable
func (g Gaussian) Validate() error {
	if !(g.SD > 0) || math.IsInf(g.SD, 0) || math.IsNaN(g.Mean) || math.IsInf(g.Mean, 0) {
		return errors.InvalidInput(fmt.Sprintf("gaussian requires finite mean and sd > 0, got mean=%v sd=%v", g.Mean, g.SD))
	}
	return nil
}

func (g Gaussian) dist() distuv.Normal {
	return distuv.Normal{Mu: g.Mean, Sigma: g.SD}
}

// DensityRatio is the outcome of comparing two Gaussian likelihoods at one point
type DensityRatio struct {
	LR       evidence.LikelihoodRatio `json:"lr"`
	LogLR    float64                  `json:"log_lr"`
	PDFH1    float64                  `json:"pdf_h1"`
	PDFH0    float64                  `json:"pdf_h0"`
	Clamped  bool                     `json:"clamped"`
	Observed float64                  `json:"observed"`
	ModelH1  Gaussian                 `json:"model_h1"`
	ModelH0  Gaussian                 `json:"model_h0"`
}

// GaussianLR computes pdf_H1(x)/pdf_H0(x). The ratio is formed from log
// densities so that a vanishing H0 density does not produce Inf; results
// outside [MinLR, MaxLR] are clamped and flagged.
func GaussianLR(x float64, h1, h0 Gaussian) (DensityRatio, error) {
	if err := h1.Validate(); err != nil {
		return DensityRatio{}, errors.Wrap(err, "invalid H1 model")
	}
	if err := h0.Validate(); err != nil {
		return DensityRatio{}, errors.Wrap(err, "invalid H0 model")
	}

	d1, d0 := h1.dist(), h0.dist()
	logLR := d1.LogProb(x) - d0.LogProb(x)

	clamped := false
	lr := math.Exp(logLR)
	switch {
	case logLR > math.Log(MaxLR):
		lr, clamped = MaxLR, true
	case logLR < math.Log(MinLR):
		lr, clamped = MinLR, true
	}

	return DensityRatio{
		LR:       evidence.LikelihoodRatio(lr),
		LogLR:    logLR,
		PDFH1:    d1.Prob(x),
		PDFH0:    d0.Prob(x),
		Clamped:  clamped,
		Observed: x,
		ModelH1:  h1,
		ModelH0:  h0,
	}, nil
}

// TTestPValue computes the two-tailed p-value of a t statistic
func TTestPValue(tStatistic, degreesOfFreedom float64) float64 {
	if degreesOfFreedom <= 0 || math.IsNaN(tStatistic) {
		return math.NaN()
	}
	if math.IsInf(tStatistic, 0) {
		return 0
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: degreesOfFreedom}
	return 2 * tDist.Survival(math.Abs(tStatistic))
}

// Two-sample t-test methods
const (
	MethodStudentPooled = "student_pooled"
	MethodWelch         = "welch"
)

// TTestResult holds a two-sample t-test
type TTestResult struct {
	Method string  `json:"method"`
	T      float64 `json:"t"`
	DF     float64 `json:"df"`
	PValue float64 `json:"p_value"`
}

// StudentTTest compares the means of two samples under a pooled variance with
// na+nb-2 degrees of freedom
func StudentTTest(a, b []float64) (TTestResult, error) {
	if len(a) < 2 || len(b) < 2 {
		return TTestResult{}, errors.InsufficientData("student t-test", min(len(a), len(b)), 2)
	}

	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))

	df := na + nb - 2
	pooled := ((na-1)*va + (nb-1)*vb) / df
	se := math.Sqrt(pooled * (1/na + 1/nb))
	if se == 0 {
		return TTestResult{}, errors.InvalidInput("student t-test undefined for two zero-variance samples")
	}

	t := (ma - mb) / se
	return TTestResult{Method: MethodStudentPooled, T: t, DF: df, PValue: TTestPValue(t, df)}, nil
}

// WelchTTest compares the means of two samples without assuming equal variances
func WelchTTest(a, b []float64) (TTestResult, error) {
	if len(a) < 2 || len(b) < 2 {
		return TTestResult{}, errors.InsufficientData("welch t-test", min(len(a), len(b)), 2)
	}

	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))

	sa, sb := va/na, vb/nb
	se := math.Sqrt(sa + sb)
	if se == 0 {
		return TTestResult{}, errors.InvalidInput("welch t-test undefined for two zero-variance samples")
	}

	t := (ma - mb) / se
	df := (sa + sb) * (sa + sb) / (sa*sa/(na-1) + sb*sb/(nb-1))

	return TTestResult{Method: MethodWelch, T: t, DF: df, PValue: TTestPValue(t, df)}, nil
}

// PValueBoundLR converts a p-value into the maximum likelihood ratio it can
// support, 1/(-e·p·ln p) for p < 1/e and 1 otherwise.
func PValueBoundLR(p float64) (evidence.LikelihoodRatio, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, errors.InvalidInput(fmt.Sprintf("p-value must be in [0,1], got %v", p))
	}
	if p >= 1/math.E {
		return 1, nil
	}
	if p == 0 {
		return MaxLR, nil
	}
	lr := 1 / (-math.E * p * math.Log(p))
	return evidence.LikelihoodRatio(math.Min(lr, MaxLR)), nil
}

// Percentiles returns the requested percentiles (0-100) of data using
// linear interpolation of the empirical distribution
func Percentiles(data []float64, percentiles []float64) ([]float64, error) {
	if len(data) == 0 {
		return nil, errors.InsufficientData("percentile", 0, 1)
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	out := make([]float64, len(percentiles))
	for i, p := range percentiles {
		if p < 0 || p > 100 || math.IsNaN(p) {
			return nil, errors.InvalidInput(fmt.Sprintf("percentile must be in [0,100], got %v", p))
		}
		out[i] = stat.Quantile(p/100, stat.LinInterp, sorted, nil)
	}
	return out, nil
}

// RMSE computes the root mean squared difference of two equal-length series
func RMSE(observed, modeled []float64) (float64, error) {
	if len(observed) == 0 || len(observed) != len(modeled) {
		return 0, errors.InvalidInput(fmt.Sprintf("rmse requires equal non-empty series, got %d and %d", len(observed), len(modeled)))
	}
	sum := 0.0
	for i := range observed {
		d := observed[i] - modeled[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(observed))), nil
}
