// Package decay fits exponential degradation curves value(age) = a·exp(−b·age) + c
// to benchmark measurements and inverts them to estimate ages.
package decay

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"gobayes/internal/errors"
)

// MinPoints is the smallest benchmark set that determines three parameters
const MinPoints = 3

// Params are the coefficients of a·exp(−b·age) + c
type Params struct {
	A float64 `json:"a" yaml:"a"`
	B float64 `json:"b" yaml:"b"`
	C float64 `json:"c" yaml:"c"`
}

// Eval returns the modeled value at age
func (p Params) Eval(age float64) float64 {
	return p.A*math.Exp(-p.B*age) + p.C
}

// Derivative returns d value / d age
func (p Params) Derivative(age float64) float64 {
	return -p.A * p.B * math.Exp(-p.B*age)
}

// WithRate returns a copy with a different decay rate
func (p Params) WithRate(b float64) Params {
	p.B = b
	return p
}

func (p Params) vector() []float64 { return []float64{p.A, p.B, p.C} }

func paramsFrom(v []float64) Params { return Params{A: v[0], B: v[1], C: v[2]} }

// Bounds are inclusive box constraints on the parameters
type Bounds struct {
	Lower Params `json:"lower" yaml:"lower"`
	Upper Params `json:"upper" yaml:"upper"`
}

// Validate checks lower <= upper component-wise
func (b Bounds) Validate() error {
	lo, hi := b.Lower.vector(), b.Upper.vector()
	for i := range lo {
		if !(lo[i] <= hi[i]) {
			return errors.InvalidInput(fmt.Sprintf("bound %d: lower %v exceeds upper %v", i, lo[i], hi[i]))
		}
	}
	return nil
}

func (b Bounds) clip(v []float64) {
	lo, hi := b.Lower.vector(), b.Upper.vector()
	for i := range v {
		v[i] = math.Min(hi[i], math.Max(lo[i], v[i]))
	}
}

// active marks components at a bound whose descent step leaves the box and
// zeroes their entry in grad
func (b Bounds) active(v []float64, grad *mat.VecDense) [3]bool {
	lo, hi := b.Lower.vector(), b.Upper.vector()
	var out [3]bool
	for i := range v {
		g := grad.AtVec(i)
		if (v[i] <= lo[i] && g < 0) || (v[i] >= hi[i] && g > 0) {
			out[i] = true
			grad.SetVec(i, 0)
		}
	}
	return out
}

// Options configure the least squares solver
type Options struct {
	Initial       Params
	Bounds        Bounds
	MaxIterations int
	Tolerance     float64
}

// DefaultOptions returns the crystallinity bounds a∈[50,100], b∈[1e-4,1e-3], c∈[0,50]
func DefaultOptions() Options {
	return Options{
		Initial: Params{A: 70, B: 0.000495, C: 20},
		Bounds: Bounds{
			Lower: Params{A: 50, B: 0.0001, C: 0},
			Upper: Params{A: 100, B: 0.001, C: 50},
		},
		MaxIterations: 200,
		Tolerance:     1e-10,
	}
}

// Point is one (age, value) pair
type Point struct {
	Age   float64 `json:"age"`
	Value float64 `json:"value"`
}

// Fit is a converged decay model owned by one study
type Fit struct {
	Params     Params  `json:"params"`
	Iterations int     `json:"iterations"`
	SSE        float64 `json:"sse"`
	RMSE       float64 `json:"rmse"`
	AtBound    bool    `json:"at_bound"`
	Points     []Point `json:"points"`
}

// FitCurve runs a projected Levenberg–Marquardt search for the parameters that
// minimise the squared residuals inside the bounds. A solver that exhausts
// MaxIterations returns FIT_CONVERGENCE; there is no built-in fallback.
func FitCurve(ages, values []float64, opts Options) (*Fit, error) {
	if len(ages) != len(values) {
		return nil, errors.InvalidInput(fmt.Sprintf("ages (%d) and values (%d) differ in length", len(ages), len(values)))
	}
	if len(ages) < MinPoints {
		return nil, errors.InsufficientData("decay fit", len(ages), MinPoints)
	}
	if !allFinite(ages) || !allFinite(values) {
		return nil, errors.InvalidInput("decay fit requires finite benchmarks")
	}
	if err := opts.Bounds.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}

	n := len(ages)
	p := opts.Initial.vector()
	opts.Bounds.clip(p)

	scale := floats.Dot(values, values)
	cost := sse(ages, values, paramsFrom(p))
	lambda := 1e-3

	jac := mat.NewDense(n, 3, nil)
	res := mat.NewVecDense(n, nil)
	var jtj mat.Dense
	var grad mat.VecDense
	delta := mat.NewVecDense(3, nil)
	trial := make([]float64, 3)

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		cur := paramsFrom(p)
		for i, age := range ages {
			e := math.Exp(-cur.B * age)
			jac.Set(i, 0, e)
			jac.Set(i, 1, -cur.A*age*e)
			jac.Set(i, 2, 1)
			res.SetVec(i, values[i]-cur.Eval(age))
		}
		jtj.Mul(jac.T(), jac)
		grad.MulVec(jac.T(), res)

		// parameters pinned at a bound with the gradient pointing outward
		// are held fixed for this iteration
		rhs := mat.VecDenseCopyOf(&grad)
		active := opts.Bounds.active(p, rhs)

		accepted := false
		for lambda < 1e16 {
			damped := mat.DenseCopyOf(&jtj)
			for k := 0; k < 3; k++ {
				d := jtj.At(k, k)
				if d < 1e-300 {
					d = 1e-300
				}
				damped.Set(k, k, d*(1+lambda))
			}
			for k, fixed := range active {
				if !fixed {
					continue
				}
				for j := 0; j < 3; j++ {
					damped.Set(k, j, 0)
					damped.Set(j, k, 0)
				}
				damped.Set(k, k, 1)
			}
			if err := delta.SolveVec(damped, rhs); err != nil {
				lambda *= 10
				continue
			}
			for k := range trial {
				trial[k] = p[k] + delta.AtVec(k)
			}
			opts.Bounds.clip(trial)
			trialCost := sse(ages, values, paramsFrom(trial))
			if trialCost < cost {
				accepted = true
				break
			}
			lambda *= 10
		}

		if !accepted {
			// no descent direction left inside the box: stationary point
			return newFit(ages, values, p, iter, cost, opts.Bounds), nil
		}

		step := 0.0
		for k := range trial {
			step = math.Max(step, math.Abs(trial[k]-p[k])/(math.Abs(p[k])+opts.Tolerance))
		}
		improvement := cost - sse(ages, values, paramsFrom(trial))
		copy(p, trial)
		cost -= improvement
		lambda = math.Max(lambda/10, 1e-12)

		if step < opts.Tolerance || cost <= 1e-28*scale || improvement <= opts.Tolerance*opts.Tolerance*cost {
			return newFit(ages, values, p, iter, cost, opts.Bounds), nil
		}
	}

	return nil, errors.FitConvergence(opts.MaxIterations, fmt.Errorf("last parameters a=%g b=%g c=%g, sse=%g", p[0], p[1], p[2], cost))
}

func newFit(ages, values, p []float64, iterations int, cost float64, bounds Bounds) *Fit {
	params := paramsFrom(p)
	points := make([]Point, len(ages))
	for i := range ages {
		points[i] = Point{Age: ages[i], Value: values[i]}
	}
	lo, hi := bounds.Lower.vector(), bounds.Upper.vector()
	atBound := false
	for k := range p {
		if p[k] == lo[k] || p[k] == hi[k] {
			atBound = true
		}
	}
	return &Fit{
		Params:     params,
		Iterations: iterations,
		SSE:        cost,
		RMSE:       math.Sqrt(cost / float64(len(ages))),
		AtBound:    atBound,
		Points:     points,
	}
}

// FromParams wraps a literature parameter set as a model, used when a fit
// fails and the caller supplies a fallback.
func FromParams(p Params) *Fit {
	return &Fit{Params: p}
}

// Eval returns the fitted value at age
func (f *Fit) Eval(age float64) float64 {
	return f.Params.Eval(age)
}

// Tabulate evaluates the curve at the given ages
func (f *Fit) Tabulate(ages []float64) []Point {
	return Tabulate(f.Params, ages)
}

// Curve samples n evenly spaced points on [from, to] for plotting
func (f *Fit) Curve(from, to float64, n int) []Point {
	if n < 2 {
		return f.Tabulate([]float64{from})
	}
	ages := make([]float64, n)
	floats.Span(ages, from, to)
	return f.Tabulate(ages)
}

// Tabulate evaluates any parameter set at the given ages
func Tabulate(p Params, ages []float64) []Point {
	out := make([]Point, len(ages))
	for i, age := range ages {
		out[i] = Point{Age: age, Value: p.Eval(age)}
	}
	return out
}

func sse(ages, values []float64, p Params) float64 {
	total := 0.0
	for i, age := range ages {
		r := values[i] - p.Eval(age)
		total += r * r
	}
	return total
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
