package scoring

import (
	"context"
	"fmt"
	"math"

	"gobayes/domain/evidence"
	"gobayes/internal/errors"
	"gobayes/internal/generators"
)

// Evaluator maps a matrix to a likelihood ratio
type Evaluator func(m *Matrix) (evidence.LikelihoodRatio, error)

// BayesFactorModel turns mechanism totals into a likelihood ratio:
//
//	BF = Σ favoured totals / (Σ reference totals + 1) · Scale
//	LR = Base · BF · ForgeryNull
type BayesFactorModel struct {
	Favoured    []string `json:"favoured" yaml:"favoured"`
	Reference   []string `json:"reference" yaml:"reference"`
	Scale       float64  `json:"scale" yaml:"scale"`
	Base        float64  `json:"base" yaml:"base"`
	ForgeryNull float64  `json:"forgery_null" yaml:"forgery_null"`
}

// Validate checks that the model names at least one mechanism on each side
// and uses positive multipliers
func (b BayesFactorModel) Validate() error {
	if len(b.Favoured) == 0 || len(b.Reference) == 0 {
		return errors.InvalidInput("bayes factor needs favoured and reference mechanisms")
	}
	for _, v := range []float64{b.Scale, b.Base, b.ForgeryNull} {
		if !(v > 0) || math.IsInf(v, 0) {
			return errors.InvalidInput(fmt.Sprintf("bayes factor multipliers must be positive and finite, got %v", v))
		}
	}
	return nil
}

// BayesFactor computes the mechanism Bayes factor on m
func (b BayesFactorModel) BayesFactor(m *Matrix) (float64, error) {
	fav, err := sumTotals(m, b.Favoured)
	if err != nil {
		return 0, err
	}
	ref, err := sumTotals(m, b.Reference)
	if err != nil {
		return 0, err
	}
	return float64(fav) / float64(ref+1) * b.Scale, nil
}

// Evaluate is an Evaluator
func (b BayesFactorModel) Evaluate(m *Matrix) (evidence.LikelihoodRatio, error) {
	bf, err := b.BayesFactor(m)
	if err != nil {
		return 0, err
	}
	lr := evidence.LikelihoodRatio(b.Base * bf * b.ForgeryNull)
	if !lr.Valid() {
		return 0, errors.InvalidEvidence(fmt.Sprintf("scoring model produced likelihood ratio %v", float64(lr)))
	}
	return lr, nil
}

func sumTotals(m *Matrix, names []string) (int, error) {
	sum := 0
	for _, name := range names {
		t, err := m.Total(name)
		if err != nil {
			return 0, err
		}
		sum += t
	}
	return sum, nil
}

// CellResult is the outcome of perturbing one cell. A direction the model
// rejects as invalid evidence leaves its LR at 0 and marks the cell
// Degenerate, with the reason in Note.
type CellResult struct {
	Mechanism  string                   `json:"mechanism"`
	Criterion  string                   `json:"criterion"`
	Original   int                      `json:"original"`
	LRPlus     evidence.LikelihoodRatio `json:"lr_plus"`
	LRMinus    evidence.LikelihoodRatio `json:"lr_minus"`
	Degenerate bool                     `json:"degenerate,omitempty"`
	Note       string                   `json:"note,omitempty"`
}

// SweepResult reports the baseline and the range over all perturbations
type SweepResult struct {
	Baseline evidence.LikelihoodRatio `json:"baseline"`
	Range    evidence.Range           `json:"range"`
	Cells    []CellResult             `json:"cells"`
}

// Sweep perturbs every cell by +1 then −1 (clamped to the score limits), one
// cell at a time, and evaluates the LR each time. Perturbations are applied
// to a working copy and undone by defer, so m is unchanged on every return
// path including an evaluator error.
func Sweep(m *Matrix, eval Evaluator) (SweepResult, error) {
	if m == nil || eval == nil {
		return SweepResult{}, errors.InvalidInput("sweep requires a matrix and an evaluator")
	}
	work := m.Clone()

	baseline, err := eval(work)
	if err != nil {
		return SweepResult{}, errors.Wrap(err, "baseline evaluation")
	}

	result := SweepResult{
		Baseline: baseline,
		Range:    evidence.Range{Min: baseline, Max: baseline},
		Cells:    make([]CellResult, 0, len(work.mechanisms)*len(work.criteria)),
	}

	for i, mech := range work.mechanisms {
		for j, crit := range work.criteria {
			cell, err := perturb(work, i, j, eval)
			if err != nil {
				return SweepResult{}, errors.Wrapf(err, "sweep %s/%s", mech, crit)
			}
			cell.Mechanism, cell.Criterion = mech, crit
			result.Cells = append(result.Cells, cell)

			for _, lr := range []evidence.LikelihoodRatio{cell.LRPlus, cell.LRMinus} {
				if !lr.Valid() {
					continue
				}
				if lr < result.Range.Min {
					result.Range.Min = lr
				}
				if lr > result.Range.Max {
					result.Range.Max = lr
				}
			}
		}
	}

	if !work.Equal(m) {
		return SweepResult{}, errors.InternalError("sweep working copy diverged from the scoring matrix")
	}
	return result, nil
}

func perturb(work *Matrix, i, j int, eval Evaluator) (CellResult, error) {
	original := work.scores[i][j]
	defer work.set(i, j, original)

	cell := CellResult{Original: original}

	var err error
	work.set(i, j, min(MaxScore, original+1))
	if cell.LRPlus, err = evalCell(&cell, "+1", work, eval); err != nil {
		return CellResult{}, err
	}
	work.set(i, j, max(MinScore, original-1))
	if cell.LRMinus, err = evalCell(&cell, "-1", work, eval); err != nil {
		return CellResult{}, err
	}
	return cell, nil
}

// evalCell evaluates one perturbation. Invalid evidence degenerates the cell;
// any other error aborts the sweep.
func evalCell(cell *CellResult, step string, work *Matrix, eval Evaluator) (evidence.LikelihoodRatio, error) {
	lr, err := eval(work)
	if err == nil {
		return lr, nil
	}
	if !errors.HasCode(err, errors.CodeInvalidEvidence) {
		return 0, err
	}
	cell.Degenerate = true
	note := fmt.Sprintf("%s: %v", step, err)
	if cell.Note != "" {
		note = cell.Note + "; " + note
	}
	cell.Note = note
	return 0, nil
}

// Generator scores the canonical matrix with a Bayes-factor model
type Generator struct {
	Label  string
	Matrix *Matrix
	Model  BayesFactorModel
}

func (g *Generator) Name() string { return g.Label }

func (g *Generator) Generate(ctx context.Context) (generators.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return generators.Evidence{}, err
	}
	if g.Matrix == nil {
		return generators.Evidence{}, errors.InvalidInput("scoring generator has no matrix")
	}
	if err := g.Model.Validate(); err != nil {
		return generators.Evidence{}, err
	}
	bf, err := g.Model.BayesFactor(g.Matrix)
	if err != nil {
		return generators.Evidence{}, err
	}
	lr, err := g.Model.Evaluate(g.Matrix)
	if err != nil {
		return generators.Evidence{}, err
	}

	return generators.Evidence{
		LR:     lr,
		Method: evidence.MethodScoring,
		Inputs: map[string]interface{}{
			"matrix": g.Matrix.Rows(),
		},
		Params: map[string]float64{
			"bayes_factor": bf,
			"base":         g.Model.Base,
			"forgery_null": g.Model.ForgeryNull,
		},
		Details: map[string]interface{}{
			"totals": g.Matrix.Totals(),
			"model":  g.Model,
		},
	}, nil
}
