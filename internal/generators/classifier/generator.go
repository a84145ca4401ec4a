package classifier

import (
	"context"
	"math/rand"

	"gobayes/domain/evidence"
	"gobayes/internal/errors"
	"gobayes/internal/generators"
	"gobayes/internal/generators/decay"
)

// Config describes a two-point age classification study
type Config struct {
	Training [2]Point
	Query    float64
	Scale    float64

	// NoiseSD and Trials drive the robustness check; zero NoiseSD skips it
	NoiseSD float64
	Trials  int
	Seed    int64

	// Residual optionally tabulates the degradation model behind the
	// training points
	Residual  *decay.Params
	TableAges []float64
}

// Study is the classifier evidence generator
type Study struct {
	Label  string
	Config Config
}

// NewStudy creates a classifier study generator
func NewStudy(label string, cfg Config) *Study {
	return &Study{Label: label, Config: cfg}
}

func (s *Study) Name() string { return s.Label }

func (s *Study) Generate(ctx context.Context) (generators.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return generators.Evidence{}, err
	}
	cfg := s.Config

	model, err := Train(cfg.Training[0], cfg.Training[1], cfg.Scale)
	if err != nil {
		return generators.Evidence{}, err
	}
	pred := model.Predict(cfg.Query)

	details := map[string]interface{}{
		"model":      model,
		"prediction": pred,
	}
	if cfg.NoiseSD > 0 {
		rob, err := model.Robustness(cfg.Query, cfg.NoiseSD, cfg.Trials, rand.New(rand.NewSource(cfg.Seed)))
		if err != nil {
			return generators.Evidence{}, errors.Wrap(err, "robustness check")
		}
		details["robustness"] = rob
	}
	if cfg.Residual != nil && len(cfg.TableAges) > 0 {
		details["residual_table"] = decay.Tabulate(*cfg.Residual, cfg.TableAges)
	}

	return generators.Evidence{
		LR:     evidence.LikelihoodRatio(model.Odds(cfg.Query)),
		Method: evidence.MethodClassifier,
		Inputs: map[string]interface{}{
			"training": cfg.Training,
			"query":    cfg.Query,
		},
		Params: map[string]float64{
			"threshold":   model.Threshold,
			"weight":      model.Weight,
			"probability": pred.Probability,
		},
		Details: details,
	}, nil
}
