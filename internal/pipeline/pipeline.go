// Package pipeline runs studies end to end: generator, sensitivity checks,
// evidence record, and the combined Bayesian report.
package pipeline

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"gobayes/domain/core"
	"gobayes/domain/evidence"
	"gobayes/domain/run"
	"gobayes/internal/aggregator"
	"gobayes/internal/errors"
	"gobayes/internal/generators"
	"gobayes/internal/scoring"
	"gobayes/internal/sensitivity"
	"gobayes/internal/studies"
	"gobayes/ports"
)

// Version is recorded in every run manifest
const Version = "1.0.0"

// Options configure a pipeline
type Options struct {
	Seed        int64
	Parallelism int
	// HeavyLimit caps concurrent lattice simulations, each of which holds
	// two full grids in memory
	HeavyLimit int
	// Heavy, when set, is the lattice limiter shared with other pipelines and
	// HeavyLimit is ignored
	Heavy      *semaphore.Weighted
	BootstrapN int
	// NoiseTrials applies to classifier studies that leave trials unset
	NoiseTrials int
	Priors      []evidence.Prior
	Seeds       ports.SeedSource
	Observer    ports.RunObserver
}

// Pipeline is safe for concurrent use; it holds no per-run state
type Pipeline struct {
	opts  Options
	heavy *semaphore.Weighted
	now   func() time.Time
}

// New creates a pipeline, filling unset options with defaults
func New(opts Options) *Pipeline {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	if opts.HeavyLimit <= 0 {
		opts.HeavyLimit = 1
	}
	if opts.BootstrapN <= 0 {
		opts.BootstrapN = sensitivity.DefaultBootstrapN
	}
	if opts.NoiseTrials <= 0 {
		opts.NoiseTrials = sensitivity.DefaultNoiseTrials
	}
	if len(opts.Priors) == 0 {
		opts.Priors = aggregator.DefaultPriors()
	}
	if opts.Seeds == nil {
		opts.Seeds = ports.DerivedSeeds{Base: opts.Seed}
	}
	if opts.Heavy == nil {
		opts.Heavy = NewHeavyLimiter(opts.HeavyLimit)
	}
	return &Pipeline{
		opts:  opts,
		heavy: opts.Heavy,
		now:   time.Now,
	}
}

// NewHeavyLimiter builds a lattice limiter to share between pipelines, for
// example across API requests
func NewHeavyLimiter(limit int) *semaphore.Weighted {
	if limit <= 0 {
		limit = 1
	}
	return semaphore.NewWeighted(int64(limit))
}

// Priors returns the priors applied to every result
func (p *Pipeline) Priors() []evidence.Prior {
	return append([]evidence.Prior(nil), p.opts.Priors...)
}

// Run executes one study. Failures are reported as an unavailable result,
// never as a panic or an error return.
func (p *Pipeline) Run(ctx context.Context, s studies.Study) evidence.StudyResult {
	start := p.now()
	seed := p.opts.Seeds.StudySeed(s.Name)
	logger := log.With().Str("study", s.Name).Str("kind", string(s.Kind)).Logger()
	logger.Debug().Int64("seed", seed).Msg("study started")

	result := evidence.StudyResult{Study: s.Name, Standalone: s.Standalone}
	fail := func(err error) evidence.StudyResult {
		result.Status = evidence.StatusUnavailable
		result.Code = errors.GetCode(err)
		result.Message = err.Error()
		result.Duration = p.now().Sub(start)
		logger.Warn().Err(err).Str("code", result.Code).Msg("study unavailable")
		return result
	}

	if s.Classifier != nil && s.Classifier.Trials <= 0 {
		c := *s.Classifier
		c.Trials = p.opts.NoiseTrials
		s.Classifier = &c
	}

	gen, err := studies.Build(s, seed)
	if err != nil {
		return fail(err)
	}

	if s.Kind == studies.KindLattice {
		if err := p.heavy.Acquire(ctx, 1); err != nil {
			return fail(err)
		}
		defer p.heavy.Release(1)
	}

	ev, err := generate(ctx, gen)
	if err != nil {
		return fail(err)
	}

	details := make(map[string]interface{}, len(ev.Details)+2)
	for k, v := range ev.Details {
		details[k] = v
	}
	if s.Sensitivity != nil {
		p.sensitivity(s, seed, &result, details, logger)
	}

	record := &evidence.Record{
		ID:               core.NewRecordID(),
		Study:            s.Name,
		RawInputs:        ev.Inputs,
		FittedParameters: ev.Params,
		LR:               ev.LR,
		ComputedLR:       ev.LR,
		Method:           ev.Method,
		Source:           ev.Source,
		Details:          details,
		CreatedAt:        p.now(),
	}
	if s.Asserted != nil {
		details["computed_method"] = ev.Method
		record.LR = evidence.LikelihoodRatio(s.Asserted.LR)
		record.Method = evidence.MethodAsserted
		record.Source = s.Asserted.Source
	}

	combined, err := aggregator.Combine([]evidence.LikelihoodRatio{record.LR})
	if err != nil {
		return fail(err)
	}

	result.Status = evidence.StatusOK
	result.Record = record
	result.LR = record.LR
	result.Posteriors = aggregator.Evaluate(combined, p.opts.Priors)
	result.Duration = p.now().Sub(start)

	logger.Info().
		Float64("lr", float64(record.LR)).
		Float64("computed_lr", float64(record.ComputedLR)).
		Str("method", string(record.Method)).
		Dur("duration", result.Duration).
		Msg("study complete")
	return result
}

// generate runs the generator and converts a panic into an internal error
func generate(ctx context.Context, gen generators.Generator) (ev generators.Evidence, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.CodeInternalError, "generator %s panicked: %v", gen.Name(), r)
		}
	}()
	ev, err = gen.Generate(ctx)
	if err != nil {
		return ev, err
	}
	return ev, ev.Validate()
}

// sensitivity runs the requested analyses. They annotate the result but
// never invalidate the evidence; failures are logged and kept in details.
func (p *Pipeline) sensitivity(s studies.Study, seed int64, result *evidence.StudyResult, details map[string]interface{}, logger zerolog.Logger) {
	spec := s.Sensitivity

	if spec.Sweep {
		m, err := s.Matrix()
		if err == nil {
			var sweep scoring.SweepResult
			sweep, err = scoring.Sweep(m, s.Scoring.Model.Evaluate)
			if err == nil {
				result.SensitivityRange = &sweep.Range
				details["sweep"] = sweep
			}
		}
		if err != nil {
			details["sweep_error"] = err.Error()
			logger.Warn().Err(err).Msg("scoring sweep failed")
		}
	}

	if b := spec.Bootstrap; b != nil {
		rng := rand.New(rand.NewSource(seed))
		samples := b.Samples
		var err error
		if len(samples) == 0 {
			samples, err = sensitivity.SyntheticSamples(b.Mean, b.SD, b.N, rng)
		}
		if err == nil {
			opts := sensitivity.BootstrapOptions{NBoot: b.NBoot, Percentiles: b.Percentiles, RNG: rng}
			if opts.NBoot <= 0 {
				opts.NBoot = p.opts.BootstrapN
			}
			var ci evidence.Interval
			ci, err = sensitivity.BootstrapCI(samples, opts)
			if err == nil {
				result.ConfidenceInterval = &ci
				details["bootstrap_samples"] = samples
			}
		}
		if err != nil {
			details["bootstrap_error"] = err.Error()
			logger.Warn().Err(err).Msg("bootstrap failed")
		}
	}

	if r := spec.Rates; r != nil {
		curves, err := sensitivity.RateSweep(r.Base, r.Variants, r.Ages, r.Target, r.Guess)
		if err != nil {
			details["rate_sweep_error"] = err.Error()
			logger.Warn().Err(err).Msg("rate sweep failed")
		} else {
			details["rate_sweep"] = curves
		}
	}
}

// RunAll runs the studies concurrently and combines every ok, non-standalone
// result. Results keep the input order. The returned error is only non-nil
// when the context is cancelled.
func (p *Pipeline) RunAll(ctx context.Context, list []studies.Study) (*evidence.Report, error) {
	runID := core.NewRunID()
	log.Info().Str("run_id", runID.String()).Int("studies", len(list)).Int("parallelism", p.opts.Parallelism).Msg("run started")

	// each goroutine writes only its own slot
	results := make([]evidence.StudyResult, len(list))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Parallelism)
	for i, s := range list {
		i, s := i, s
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.Run(gctx, s)
			if p.opts.Observer != nil {
				p.opts.Observer.StudyFinished(runID, results[i], int(done.Add(1)), len(list))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "study run cancelled")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "study run cancelled")
	}

	report := p.Combine(results)
	report.RunID = runID
	report.Manifest = p.manifest(runID, list, report.GeneratedAt)

	ev := log.Info().Str("run_id", runID.String()).Strs("included", report.Included).Strs("failed", report.Failed)
	if !report.NoEvidence {
		ev = ev.Float64("log10_combined_lr", report.LogCombined/math.Ln10)
	}
	ev.Msg("run complete")

	if p.opts.Observer != nil {
		p.opts.Observer.RunFinished(report)
	}
	return report, nil
}

// manifest fingerprints the study definitions, priors and settings of a run.
// A custom seed source makes seeds opaque, so the fingerprint then covers the
// base seed only.
func (p *Pipeline) manifest(runID core.RunID, list []studies.Study, at time.Time) *run.Manifest {
	names := make([]string, len(list))
	for i, s := range list {
		names[i] = s.Name
	}

	data, err := json.Marshal(struct {
		Studies []studies.Study  `json:"studies"`
		Priors  []evidence.Prior `json:"priors"`
	}{list, p.opts.Priors})
	if err != nil {
		log.Warn().Err(err).Msg("cannot fingerprint run")
		return nil
	}

	fp := run.NewFingerprint(core.NewHash(data), p.opts.Seed, p.opts.BootstrapN, p.opts.NoiseTrials, Version)
	return run.NewManifest(runID, names, fp, at)
}

// Combine builds a report from finished results
func (p *Pipeline) Combine(results []evidence.StudyResult) *evidence.Report {
	report := &evidence.Report{
		Studies:      results,
		Included:     []string{},
		GeneratedAt:  p.now(),
		Independence: aggregator.IndependenceNote,
	}

	var lrs []evidence.LikelihoodRatio
	for _, r := range results {
		switch {
		case !r.OK():
			report.Failed = append(report.Failed, r.Study)
		case r.Standalone:
			// reported on its own, never multiplied in
		default:
			report.Included = append(report.Included, r.Study)
			lrs = append(lrs, r.LR)
		}
	}

	combined, err := aggregator.Combine(lrs)
	if err != nil {
		report.NoEvidence = true
		return report
	}
	report.CombinedLR = combined.Value
	if math.IsInf(float64(combined.Value), 1) {
		// LogCombined stays exact
		report.CombinedLR = math.MaxFloat64
	}
	report.LogCombined = combined.LogValue
	report.Posteriors = aggregator.Evaluate(combined, p.opts.Priors)
	return report
}
