package generators

import (
	"context"
	"fmt"

	"gobayes/domain/evidence"
	"gobayes/internal/errors"
)

// Evidence is what every generator hands back: one likelihood ratio plus the
// intermediate derivation kept for audit.
type Evidence struct {
	LR      evidence.LikelihoodRatio
	Method  evidence.Method
	Source  string
	Inputs  map[string]interface{}
	Params  map[string]float64
	Details map[string]interface{}
}

// Generator is the contract all evidence generators satisfy
type Generator interface {
	Name() string
	Generate(ctx context.Context) (Evidence, error)
}

// Validate rejects evidence that cannot be composed multiplicatively
func (e Evidence) Validate() error {
	if !e.LR.Valid() {
		return errors.InvalidEvidence(fmt.Sprintf("%s produced likelihood ratio %v", e.Method, float64(e.LR)))
	}
	return nil
}

// Func adapts a plain function to the Generator interface
type Func struct {
	Label string
	Fn    func(ctx context.Context) (Evidence, error)
}

func (f Func) Name() string { return f.Label }

func (f Func) Generate(ctx context.Context) (Evidence, error) {
	return f.Fn(ctx)
}
