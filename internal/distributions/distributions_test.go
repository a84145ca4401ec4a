package distributions

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobayes/internal/errors"
)

func TestGaussianLR_CrystallinityFixture(t *testing.T) {
	// shroud CI 48% under ancient N(46,2) vs medieval N(71,5)
	ratio, err := GaussianLR(48, Gaussian{Mean: 46, SD: 2}, Gaussian{Mean: 71, SD: 5})
	require.NoError(t, err)

	expected := 2.5 * math.Exp(10.08)
	assert.InEpsilon(t, expected, float64(ratio.LR), 1e-9)
	assert.InEpsilon(t, ratio.PDFH1/ratio.PDFH0, float64(ratio.LR), 1e-9)
	assert.False(t, ratio.Clamped)
}

func TestGaussianLR_ClampsVanishingDensity(t *testing.T) {
	ratio, err := GaussianLR(0, Gaussian{Mean: 0, SD: 1}, Gaussian{Mean: 1e4, SD: 1})
	require.NoError(t, err)

	assert.True(t, ratio.Clamped)
	assert.Equal(t, MaxLR, float64(ratio.LR))
	assert.True(t, ratio.LR.Valid())
}

func TestGaussianLR_RejectsZeroSD(t *testing.T) {
	_, err := GaussianLR(1, Gaussian{Mean: 0, SD: 0}, Gaussian{Mean: 1, SD: 1})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestTTestPValue(t *testing.T) {
	assert.InDelta(t, 1.0, TTestPValue(0, 6), 1e-12)
	// t=2.447 is the two-sided 5% critical value at 6 df
	assert.InDelta(t, 0.05, TTestPValue(2.4469, 6), 1e-3)
	assert.True(t, math.IsNaN(TTestPValue(1, 0)))
	assert.Equal(t, 0.0, TTestPValue(math.Inf(1), 3))
}

func TestWelchTTest_SeparatedGroups(t *testing.T) {
	low := []float64{1.2, 1.9, 2.4, 1.5, 2.0, 1.7}
	high := []float64{4.1, 4.6, 3.9, 4.4, 4.0, 4.8}

	res, err := WelchTTest(low, high)
	require.NoError(t, err)
	assert.Less(t, res.T, 0.0)
	assert.Less(t, res.PValue, 0.001)
	assert.Greater(t, res.DF, 0.0)

	assert.Equal(t, MethodWelch, res.Method)

	_, err = WelchTTest([]float64{1}, high)
	assert.True(t, errors.HasCode(err, errors.CodeInsufficient))
}

func TestStudentTTest_PooledVariance(t *testing.T) {
	// means 2 and 5, both variances 1: pooled se = sqrt(2/3), t = -3/sqrt(2/3)
	a := []float64{1, 2, 3}
	b := []float64{4, 5, 6}

	res, err := StudentTTest(a, b)
	require.NoError(t, err)
	assert.Equal(t, MethodStudentPooled, res.Method)
	assert.Equal(t, 4.0, res.DF)
	assert.InDelta(t, -3/math.Sqrt(2.0/3), res.T, 1e-12)
	assert.InDelta(t, TTestPValue(res.T, 4), res.PValue, 1e-15)

	// ten per group gives the 18 degrees of freedom of the lattice comparison
	ten := make([]float64, 10)
	for i := range ten {
		ten[i] = float64(i)
	}
	res, err = StudentTTest(ten, ten)
	require.NoError(t, err)
	assert.Equal(t, 18.0, res.DF)
	assert.Equal(t, 0.0, res.T)

	_, err = StudentTTest([]float64{1, 1}, []float64{2, 2})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	_, err = StudentTTest(a, []float64{1})
	assert.True(t, errors.HasCode(err, errors.CodeInsufficient))
}

func TestPValueBoundLR(t *testing.T) {
	lr, err := PValueBoundLR(0.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, float64(lr))

	lr, err = PValueBoundLR(0.011)
	require.NoError(t, err)
	assert.InEpsilon(t, 1/(math.E*0.011*-math.Log(0.011)), float64(lr), 1e-12)
	assert.Greater(t, float64(lr), 7.0)

	_, err = PValueBoundLR(math.NaN())
	assert.Error(t, err)
}

func TestPercentiles(t *testing.T) {
	got, err := Percentiles([]float64{5, 5, 5}, []float64{2.5, 97.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5}, got)

	got, err = Percentiles([]float64{4, 1, 3, 2}, []float64{0, 100})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got[0])
	assert.Equal(t, 4.0, got[1])

	_, err = Percentiles(nil, []float64{50})
	assert.True(t, errors.HasCode(err, errors.CodeInsufficient))
}

func TestRMSE(t *testing.T) {
	rmse, err := RMSE([]float64{0.17, 0.30, 0.43}, []float64{0.18, 0.32, 0.44})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt((0.0001+0.0004+0.0001)/3), rmse, 1e-12)

	_, err = RMSE([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}
