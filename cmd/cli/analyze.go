package main

import (
	"fmt"
	"math/rand"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gobayes/domain/evidence"
	"gobayes/internal/config"
	"gobayes/internal/errors"
	"gobayes/internal/scoring"
	"gobayes/internal/sensitivity"
)

func newSweepCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep [study]",
		Short: "Perturb every scoring-matrix cell by ±1 and report the LR range",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "mechanism_scoring"
			if len(args) == 1 {
				name = args[0]
			}
			catalog, err := g.loadStudies()
			if err != nil {
				return err
			}
			s, err := catalog.Lookup(name)
			if err != nil {
				return err
			}
			if s.Scoring == nil {
				return errors.InvalidInput(fmt.Sprintf("study %q has no scoring matrix", name))
			}
			m, err := s.Matrix()
			if err != nil {
				return err
			}
			result, err := scoring.Sweep(m, s.Scoring.Model.Evaluate)
			if err != nil {
				return err
			}
			if g.asJSON {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "=== Sensitivity sweep: %s ===\n", name)
			fmt.Fprintf(out, "Baseline LR: %s\n", formatLR(result.Baseline))
			fmt.Fprintf(out, "Range:       %s .. %s\n\n", formatLR(result.Range.Min), formatLR(result.Range.Max))

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MECHANISM\tCRITERION\tSCORE\tLR +1\tLR -1\tNOTES")
			for _, c := range result.Cells {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", c.Mechanism, c.Criterion, c.Original, sweepLR(c.LRPlus), sweepLR(c.LRMinus), c.Note)
			}
			return w.Flush()
		},
	}
}

func sweepLR(lr evidence.LikelihoodRatio) string {
	if !lr.Valid() {
		return "-"
	}
	return formatLR(lr)
}

func newBootstrapCmd(g *globalFlags, cfg *config.Config) *cobra.Command {
	var samples []float64
	var mean, sd float64
	var n, nBoot int
	var seed int64
	var low, high float64

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Percentile bootstrap confidence interval of a sample mean",
		Long: `Resample with replacement and report percentiles of the resampled means.
Either pass --samples, or --mean/--sd/--n to draw synthetic normal samples.

Example: gobayes bootstrap --mean 0.30 --sd 0.05 --n 30 --n-boot 2000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rng := rand.New(rand.NewSource(seed))
			data := samples
			if len(data) == 0 {
				var err error
				data, err = sensitivity.SyntheticSamples(mean, sd, n, rng)
				if err != nil {
					return err
				}
			}
			ci, err := sensitivity.BootstrapCI(data, sensitivity.BootstrapOptions{
				NBoot:       nBoot,
				Percentiles: [2]float64{low, high},
				RNG:         rng,
			})
			if err != nil {
				return err
			}
			summary, err := sensitivity.Summarize(data)
			if err != nil {
				return err
			}
			if g.asJSON {
				return writeJSON(cmd, map[string]interface{}{"summary": summary, "interval": ci})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Samples: %d (mean %.6g, sd %.6g)\n", summary.N, summary.Mean, summary.StdDev)
			fmt.Fprintf(out, "%g%%-%g%% interval of the mean: [%.6g, %.6g]\n", low, high, ci.Low, ci.High)
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64SliceVar(&samples, "samples", nil, "Comma-separated sample values")
	f.Float64Var(&mean, "mean", 0, "Mean for synthetic samples")
	f.Float64Var(&sd, "sd", 1, "Standard deviation for synthetic samples")
	f.IntVar(&n, "n", 30, "Number of synthetic samples")
	f.IntVar(&nBoot, "n-boot", cfg.Engine.BootstrapN, "Bootstrap resamples")
	f.Int64Var(&seed, "seed", cfg.Engine.Seed, "Random seed")
	f.Float64Var(&low, "low", sensitivity.DefaultLow, "Lower percentile")
	f.Float64Var(&high, "high", sensitivity.DefaultHigh, "Upper percentile")
	return cmd
}

func newRatesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rates [study]",
		Short: "Tabulate a decay curve under alternative rates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "ci_decay"
			if len(args) == 1 {
				name = args[0]
			}
			catalog, err := g.loadStudies()
			if err != nil {
				return err
			}
			s, err := catalog.Lookup(name)
			if err != nil {
				return err
			}
			if s.Sensitivity == nil || s.Sensitivity.Rates == nil {
				return errors.InvalidInput(fmt.Sprintf("study %q has no rate variants", name))
			}
			r := s.Sensitivity.Rates
			curves, err := sensitivity.RateSweep(r.Base, r.Variants, r.Ages, r.Target, r.Guess)
			if err != nil {
				return err
			}
			if g.asJSON {
				return writeJSON(cmd, curves)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "=== Rate sweep: %s ===\n", name)
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprint(w, "AGE\t")
			for _, c := range curves {
				fmt.Fprintf(w, "%s (b=%g)\t", c.Label, c.Rate)
			}
			fmt.Fprintln(w)
			for i, age := range r.Ages {
				fmt.Fprintf(w, "%g\t", age)
				for _, c := range curves {
					fmt.Fprintf(w, "%.4f\t", c.Points[i].Value)
				}
				fmt.Fprintln(w)
			}
			if r.Target != nil {
				fmt.Fprintf(w, "age at %g\t", *r.Target)
				for _, c := range curves {
					if c.AgeAt != nil {
						fmt.Fprintf(w, "%.0f\t", *c.AgeAt)
					} else {
						fmt.Fprint(w, "-\t")
					}
				}
				fmt.Fprintln(w)
			}
			return w.Flush()
		},
	}
}
