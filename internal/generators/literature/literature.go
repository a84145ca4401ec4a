// Package literature supplies likelihood ratios taken directly from
// published estimates.
package literature

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gobayes/domain/evidence"
	"gobayes/internal/errors"
	"gobayes/internal/generators"
)

// Entry is one published likelihood ratio
type Entry struct {
	Label  string  `json:"label" yaml:"label"`
	LR     float64 `json:"lr" yaml:"lr"`
	Source string  `json:"source" yaml:"source"`
}

// Validate requires a positive finite ratio
func (e Entry) Validate() error {
	if !evidence.LikelihoodRatio(e.LR).Valid() {
		return errors.InvalidEvidence(fmt.Sprintf("literature entry %q has likelihood ratio %v", e.Label, e.LR))
	}
	return nil
}

// Generator multiplies its entries; sub-components of one study (e.g. two
// independent image analyses) are listed separately and compose here.
type Generator struct {
	Label   string
	Entries []Entry
}

// New creates a literature generator
func New(label string, entries ...Entry) *Generator {
	return &Generator{Label: label, Entries: entries}
}

func (g *Generator) Name() string { return g.Label }

func (g *Generator) Generate(ctx context.Context) (generators.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return generators.Evidence{}, err
	}
	if len(g.Entries) == 0 {
		return generators.Evidence{}, errors.InsufficientData("literature entries", 0, 1)
	}

	logSum := 0.0
	sources := make([]string, 0, len(g.Entries))
	params := make(map[string]float64, len(g.Entries))
	for _, e := range g.Entries {
		if err := e.Validate(); err != nil {
			return generators.Evidence{}, err
		}
		logSum += math.Log(e.LR)
		params[e.Label] = e.LR
		if e.Source != "" {
			sources = append(sources, e.Source)
		}
	}

	product := 1.0
	for _, e := range g.Entries {
		product *= e.LR
	}
	lr := evidence.LikelihoodRatio(product)
	if !lr.Valid() {
		return generators.Evidence{}, errors.InvalidEvidence(fmt.Sprintf("entry product overflows (log %.2f)", logSum))
	}

	return generators.Evidence{
		LR:     lr,
		Method: evidence.MethodLiterature,
		Source: strings.Join(sources, "; "),
		Params: params,
		Details: map[string]interface{}{
			"entries": g.Entries,
			"log_lr":  logSum,
		},
	}, nil
}
