package decay

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobayes/internal/distributions"
	"gobayes/internal/errors"
)

var literatureParams = Params{A: 70, B: 0.000495, C: 20}

func syntheticBenchmarks(p Params) ([]float64, []float64) {
	var ages, values []float64
	for age := 0.0; age <= 2000; age += 250 {
		ages = append(ages, age)
		values = append(values, p.Eval(age))
	}
	return ages, values
}

func TestFitCurve_RecoversNoiselessParameters(t *testing.T) {
	ages, values := syntheticBenchmarks(literatureParams)
	opts := DefaultOptions()
	opts.Initial = Params{A: 60, B: 0.0008, C: 30}

	fit, err := FitCurve(ages, values, opts)
	require.NoError(t, err)

	assert.InEpsilon(t, literatureParams.A, fit.Params.A, 0.01)
	assert.InEpsilon(t, literatureParams.B, fit.Params.B, 0.01)
	assert.InEpsilon(t, literatureParams.C, fit.Params.C, 0.01)
	assert.Less(t, fit.RMSE, 1e-3)
	assert.Len(t, fit.Points, len(ages))
}

func TestFitCurve_StaysInsideBounds(t *testing.T) {
	fit, err := FitCurve([]float64{0, 700, 1965}, []float64{90, 71, 46}, DefaultOptions())
	require.NoError(t, err)

	b := DefaultOptions().Bounds
	assert.GreaterOrEqual(t, fit.Params.A, b.Lower.A)
	assert.LessOrEqual(t, fit.Params.A, b.Upper.A)
	assert.GreaterOrEqual(t, fit.Params.B, b.Lower.B)
	assert.LessOrEqual(t, fit.Params.B, b.Upper.B)
	assert.GreaterOrEqual(t, fit.Params.C, b.Lower.C)
	assert.LessOrEqual(t, fit.Params.C, b.Upper.C)
}

func TestFitCurve_IterationBudgetExhausted(t *testing.T) {
	ages, values := syntheticBenchmarks(literatureParams)
	opts := DefaultOptions()
	opts.Initial = Params{A: 95, B: 0.0009, C: 45}
	opts.MaxIterations = 1

	_, err := FitCurve(ages, values, opts)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeFitConvergence))
}

func TestFitCurve_RejectsBadInput(t *testing.T) {
	_, err := FitCurve([]float64{0, 1}, []float64{1, 2}, DefaultOptions())
	assert.True(t, errors.HasCode(err, errors.CodeInsufficient))

	_, err = FitCurve([]float64{0, 1, 2}, []float64{1, 2}, DefaultOptions())
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	opts := DefaultOptions()
	opts.Bounds.Lower.A = 200
	_, err = FitCurve([]float64{0, 1, 2}, []float64{3, 2, 1}, opts)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestSolveAge(t *testing.T) {
	age, err := SolveAge(literatureParams, 48, 1800, DefaultRootOptions())
	require.NoError(t, err)
	assert.InDelta(t, math.Log(2.5)/0.000495, age, 1e-3)
	assert.InDelta(t, 48, literatureParams.Eval(age), 1e-6)
}

func TestSolveAge_BelowAsymptote(t *testing.T) {
	_, err := SolveAge(literatureParams, 15, 1800, DefaultRootOptions())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNoRootFound))
}

func TestTabulateAndCurve(t *testing.T) {
	fit := FromParams(literatureParams)

	table := fit.Tabulate([]float64{0, 500, 1000})
	require.Len(t, table, 3)
	assert.InDelta(t, 90, table[0].Value, 1e-12)
	assert.Greater(t, table[1].Value, table[2].Value)

	curve := fit.Curve(0, 2000, 5)
	require.Len(t, curve, 5)
	assert.Equal(t, 0.0, curve[0].Age)
	assert.Equal(t, 2000.0, curve[4].Age)

	faster := Tabulate(literatureParams.WithRate(0.000645), []float64{1000})
	assert.Less(t, faster[0].Value, fit.Eval(1000))
}

func TestStudy_Generate(t *testing.T) {
	fallback := literatureParams
	study := NewStudy("ci_decay", Config{
		Ages:      []float64{0, 700, 1965},
		Values:    []float64{90, 71, 46},
		Options:   DefaultOptions(),
		Fallback:  &fallback,
		TableAges: []float64{0, 500, 1000, 1500, 2000},
		Observed:  48,
		Guess:     1800,
		H1:        distributions.Gaussian{Mean: 46, SD: 2},
		H0:        distributions.Gaussian{Mean: 71, SD: 5},
	})

	ev, err := study.Generate(context.Background())
	require.NoError(t, err)
	require.NoError(t, ev.Validate())

	assert.InEpsilon(t, 2.5*math.Exp(10.08), float64(ev.LR), 1e-9)
	assert.Contains(t, ev.Details, "estimated_age")
	assert.Len(t, ev.Details["table"], 5)
}

func TestStudy_FallbackOnlyWhenConfigured(t *testing.T) {
	ages, values := syntheticBenchmarks(literatureParams)
	opts := DefaultOptions()
	opts.Initial = Params{A: 95, B: 0.0009, C: 45}
	opts.MaxIterations = 1

	cfg := Config{
		Ages: ages, Values: values, Options: opts,
		Observed: 48, Guess: 1800,
		H1: distributions.Gaussian{Mean: 46, SD: 2},
		H0: distributions.Gaussian{Mean: 71, SD: 5},
	}

	_, err := NewStudy("no_fallback", cfg).Generate(context.Background())
	assert.True(t, errors.HasCode(err, errors.CodeFitConvergence))

	fallback := literatureParams
	cfg.Fallback = &fallback
	ev, err := NewStudy("with_fallback", cfg).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, ev.Details["fallback_used"])
	assert.Equal(t, literatureParams.B, ev.Params["b"])
}
