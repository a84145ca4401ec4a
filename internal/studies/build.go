package studies

import (
	"fmt"

	"gobayes/internal/errors"
	"gobayes/internal/generators"
	"gobayes/internal/generators/classifier"
	"gobayes/internal/generators/decay"
	"gobayes/internal/generators/lattice"
	"gobayes/internal/generators/literature"
	"gobayes/internal/generators/regression"
	"gobayes/internal/scoring"
)

// Build creates the generator for a study. Stochastic generators take seed;
// deterministic ones ignore it.
func Build(s Study, seed int64) (generators.Generator, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	switch s.Kind {
	case KindLiterature:
		return literature.New(s.Name, s.Literature.Entries...), nil

	case KindRegression:
		return regression.NewSlopeTest(s.Name, s.Regression.Series), nil

	case KindDecay:
		d := s.Decay
		opts := decay.DefaultOptions()
		if d.Initial != (decay.Params{}) {
			opts.Initial = d.Initial
		}
		if d.Bounds != (decay.Bounds{}) {
			opts.Bounds = d.Bounds
		}
		if d.MaxIterations > 0 {
			opts.MaxIterations = d.MaxIterations
		}
		return decay.NewStudy(s.Name, decay.Config{
			Ages:      d.Ages,
			Values:    d.Values,
			Options:   opts,
			Fallback:  d.Fallback,
			TableAges: d.TableAges,
			Observed:  d.Observed,
			Guess:     d.Guess,
			H1:        d.H1,
			H0:        d.H0,
		}), nil

	case KindLattice:
		l := s.Lattice
		return &lattice.Simulator{
			Label:       s.Name,
			Config:      l.Config,
			Seed:        seed,
			Observation: l.Observation,
			Spectra:     l.Spectra,
			Samples:     l.Samples,
		}, nil

	case KindClassifier:
		c := s.Classifier
		return classifier.NewStudy(s.Name, classifier.Config{
			Training:  c.Training,
			Query:     c.Query,
			Scale:     c.Scale,
			NoiseSD:   c.NoiseSD,
			Trials:    c.Trials,
			Seed:      seed,
			Residual:  c.Residual,
			TableAges: c.TableAges,
		}), nil

	case KindScoring:
		m, err := s.Matrix()
		if err != nil {
			return nil, err
		}
		return &scoring.Generator{Label: s.Name, Matrix: m, Model: s.Scoring.Model}, nil
	}

	return nil, errors.ConfigInvalid(fmt.Sprintf("no generator for kind %q", s.Kind))
}

// Matrix builds a fresh scoring matrix for a scoring study. Every call
// returns an independent matrix.
func (s Study) Matrix() (*scoring.Matrix, error) {
	if s.Scoring == nil {
		return nil, errors.InvalidInput(fmt.Sprintf("study %q has no scoring matrix", s.Name))
	}
	m, err := scoring.NewMatrix(s.Scoring.Criteria, s.Scoring.Matrix)
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "study %q", s.Name))
	}
	return m, nil
}
