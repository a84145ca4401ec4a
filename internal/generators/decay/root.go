package decay

import (
	"fmt"
	"math"

	"gobayes/internal/errors"
)

// RootOptions bound the age inversion
type RootOptions struct {
	NewtonIterations int
	Tolerance        float64
	// ScanStep and ScanSteps define the outward bracket search used when
	// Newton fails: intervals [guess±(k-1)·step, guess±k·step], k=1..ScanSteps.
	ScanStep  float64
	ScanSteps int
}

// DefaultRootOptions scan ±10000 years in 10-year steps
func DefaultRootOptions() RootOptions {
	return RootOptions{
		NewtonIterations: 50,
		Tolerance:        1e-9,
		ScanStep:         10,
		ScanSteps:        1000,
	}
}

// SolveAge finds the age at which the curve reaches target, starting from
// guess. It returns NO_ROOT_FOUND when Newton diverges and no sign change
// exists within the scan window (e.g. target at or below the asymptote c).
func SolveAge(p Params, target, guess float64, opts RootOptions) (float64, error) {
	if math.IsNaN(target) || math.IsInf(target, 0) || math.IsNaN(guess) || math.IsInf(guess, 0) {
		return 0, errors.InvalidInput("age inversion requires finite target and guess")
	}
	def := DefaultRootOptions()
	if opts.NewtonIterations <= 0 {
		opts.NewtonIterations = def.NewtonIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.ScanStep <= 0 {
		opts.ScanStep = def.ScanStep
	}
	if opts.ScanSteps <= 0 {
		opts.ScanSteps = def.ScanSteps
	}

	f := func(age float64) float64 { return p.Eval(age) - target }

	if root, ok := newton(p, f, guess, opts); ok {
		return root, nil
	}

	for k := 1; k <= opts.ScanSteps; k++ {
		inner, outer := float64(k-1)*opts.ScanStep, float64(k)*opts.ScanStep
		if lo, hi := guess+inner, guess+outer; straddles(f(lo), f(hi)) {
			return bisect(f, lo, hi, opts.Tolerance), nil
		}
		if lo, hi := guess-outer, guess-inner; straddles(f(lo), f(hi)) {
			return bisect(f, lo, hi, opts.Tolerance), nil
		}
	}

	return 0, errors.NoRootFound(fmt.Sprintf("curve a=%g b=%g c=%g never reaches %g within ±%g of %g",
		p.A, p.B, p.C, target, opts.ScanStep*float64(opts.ScanSteps), guess))
}

func newton(p Params, f func(float64) float64, x float64, opts RootOptions) (float64, bool) {
	for i := 0; i < opts.NewtonIterations; i++ {
		fx := f(x)
		if fx == 0 {
			return x, true
		}
		d := p.Derivative(x)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return 0, false
		}
		step := fx / d
		x -= step
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		if math.Abs(step) <= opts.Tolerance*(1+math.Abs(x)) {
			return x, math.Abs(f(x)) <= 1e-6*(1+math.Abs(p.A)+math.Abs(p.C))
		}
	}
	return 0, false
}

// straddles reports a sign change or an exact zero at either end
func straddles(a, b float64) bool {
	if a == 0 || b == 0 {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return (a > 0) != (b > 0)
}

func bisect(f func(float64) float64, lo, hi, tol float64) float64 {
	flo := f(lo)
	if flo == 0 {
		return lo
	}
	if f(hi) == 0 {
		return hi
	}
	for i := 0; i < 200 && hi-lo > tol*(1+math.Abs(lo)); i++ {
		mid := lo + (hi-lo)/2
		fm := f(mid)
		if fm == 0 {
			return mid
		}
		if (fm > 0) == (flo > 0) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	return lo + (hi-lo)/2
}
