package aggregator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobayes/domain/evidence"
	"gobayes/internal/errors"
)

func lrs(values ...float64) []evidence.LikelihoodRatio {
	out := make([]evidence.LikelihoodRatio, len(values))
	for i, v := range values {
		out[i] = evidence.LikelihoodRatio(v)
	}
	return out
}

func TestCombine_SynthesisStreams(t *testing.T) {
	combined, err := Combine(lrs(171, 19, 1e6, 15))
	require.NoError(t, err)

	assert.InEpsilon(t, 4.8735e10, float64(combined.Value), 1e-12)
	assert.InEpsilon(t, math.Log(4.8735e10), combined.LogValue, 1e-12)
	assert.Equal(t, 4, combined.Count)

	neutral := Posterior(evidence.Prior{Name: PriorNeutral, Odds: 1}, combined)
	assert.InDelta(t, 1.0, neutral.Probability, 1e-6)
	assert.False(t, math.IsNaN(neutral.Probability))
}

func TestCombine_OrderIndependent(t *testing.T) {
	values := []float64{171, 19, 1e6, 15, 2.38e7, 189, 0.002, 5, 100, 60}

	forward, err := Combine(lrs(values...))
	require.NoError(t, err)

	reversed := make([]float64, len(values))
	for i, v := range values {
		reversed[len(values)-1-i] = v
	}
	backward, err := Combine(lrs(reversed...))
	require.NoError(t, err)

	assert.InEpsilon(t, float64(forward.Value), float64(backward.Value), 1e-12)
	assert.InEpsilon(t, forward.LogValue, backward.LogValue, 1e-12)

	// associativity: combining partial products gives the same result
	left, err := Combine(lrs(values[:4]...))
	require.NoError(t, err)
	right, err := Combine(lrs(values[4:]...))
	require.NoError(t, err)
	nested, err := Combine([]evidence.LikelihoodRatio{left.Value, right.Value})
	require.NoError(t, err)
	assert.InEpsilon(t, float64(forward.Value), float64(nested.Value), 1e-12)

	assert.InEpsilon(t, 1.315318662e22, float64(forward.Value), 1e-9)
}

func TestCombine_RejectsInvalidEvidence(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"empty", nil},
		{"zero", []float64{5, 0}},
		{"negative", []float64{-2}},
		{"nan", []float64{math.NaN()}},
		{"inf", []float64{math.Inf(1), 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Combine(lrs(tt.values...))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeInvalidEvidence), "got code %s", errors.GetCode(err))
		})
	}
}

func TestPosterior_NeutralPriorMatchesClosedForm(t *testing.T) {
	for _, l := range []float64{1, 1e-3, 0.5, 19, 1e6, 1e22} {
		p, err := PosteriorFromLR(1, evidence.LikelihoodRatio(l))
		require.NoError(t, err)
		assert.InEpsilon(t, l/(l+1), p, 1e-12, "L=%g", l)
	}
}

func TestPosterior_NeutralPriorIsExact(t *testing.T) {
	for _, l := range []float64{1, 1e-3, 0.5, 19, 1e6} {
		combined, err := Combine(lrs(l))
		require.NoError(t, err)
		post := Posterior(evidence.Prior{Name: PriorNeutral, Odds: 1}, combined)
		assert.Equal(t, l/(l+1), post.Probability, "L=%g", l)

		p, err := PosteriorFromLR(1, evidence.LikelihoodRatio(l))
		require.NoError(t, err)
		assert.Equal(t, l/(l+1), p, "L=%g", l)
	}

	combined, err := Combine(lrs(1e22))
	require.NoError(t, err)
	post := Posterior(evidence.Prior{Name: PriorNeutral, Odds: 1}, combined)
	assert.InDelta(t, 1, post.Probability, 1e-15)
}

func TestPosterior_HugeOddsDoNotOverflow(t *testing.T) {
	combined, err := Combine(lrs(1e30, 1e30, 1e30, 1e300))
	require.NoError(t, err)
	assert.True(t, math.IsInf(float64(combined.Value), 1), "direct product overflows")

	for _, p := range Evaluate(combined, DefaultPriors()) {
		assert.False(t, math.IsNaN(p.Probability), "prior %s", p.Prior)
		assert.Equal(t, 1.0, p.Probability)
		assert.True(t, p.Saturated)
	}

	tiny, err := Combine(lrs(1e-300, 1e-300))
	require.NoError(t, err)
	post := Posterior(evidence.Prior{Name: "x", Odds: 1}, tiny)
	assert.Equal(t, 0.0, post.Probability)
	assert.True(t, post.Saturated)
}

func TestPosterior_Monotonic(t *testing.T) {
	prev := -1.0
	for _, l := range []float64{1e-6, 1e-3, 0.1, 1, 5, 60, 1e3, 1e5} {
		p, err := PosteriorFromLR(1.0/100, evidence.LikelihoodRatio(l))
		require.NoError(t, err)
		assert.Greater(t, p, prev, "posterior must increase with LR (L=%g)", l)
		prev = p
	}

	prev = -1.0
	for _, odds := range []float64{1e-5, 1e-3, 1e-2, 1, 10} {
		p, err := PosteriorFromLR(odds, 5)
		require.NoError(t, err)
		assert.Greater(t, p, prev, "posterior must increase with prior odds (odds=%g)", odds)
		prev = p
	}
}

func TestPosteriorFromLR_Validation(t *testing.T) {
	_, err := PosteriorFromLR(0, 5)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	_, err = PosteriorFromLR(1, -1)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidEvidence))
}

func TestEvaluate_SkepticalPriors(t *testing.T) {
	combined, err := Combine(lrs(5))
	require.NoError(t, err)

	posteriors := Evaluate(combined, DefaultPriors())
	require.Len(t, posteriors, 3)

	byName := map[string]float64{}
	for _, p := range posteriors {
		byName[p.Prior] = p.Probability
	}
	assert.InEpsilon(t, 5.0/6.0, byName[PriorNeutral], 1e-12)
	assert.InEpsilon(t, 0.05/1.05, byName[PriorSkeptical], 1e-12)
	assert.InEpsilon(t, 0.005/1.005, byName[PriorHighlySkeptical], 1e-12)
}

func TestParsePrior(t *testing.T) {
	tests := []struct {
		input   string
		odds    float64
		wantErr bool
	}{
		{"neutral", 1, false},
		{"skeptical", 0.01, false},
		{"1:1000", 0.001, false},
		{"0.25", 0.25, false},
		{"1:0", 0, true},
		{"-3", 0, true},
		{"lots", 0, true},
	}

	for _, tt := range tests {
		p, err := ParsePrior(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.InEpsilon(t, tt.odds, p.Odds, 1e-12, tt.input)
	}
}
