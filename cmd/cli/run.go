package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gobayes/domain/evidence"
	"gobayes/internal/aggregator"
	"gobayes/internal/config"
	"gobayes/internal/pipeline"
)

func newListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the studies in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := g.loadStudies()
			if err != nil {
				return err
			}
			if g.asJSON {
				return writeJSON(cmd, catalog.Studies)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STUDY\tKIND\tASSERTED LR\tDESCRIPTION")
			for _, s := range catalog.Studies {
				asserted := "-"
				if s.Asserted != nil {
					asserted = formatLR(evidence.LikelihoodRatio(s.Asserted.LR))
				}
				name := s.Name
				if s.Standalone {
					name += " (standalone)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, s.Kind, asserted, s.Description)
			}
			return w.Flush()
		},
	}
}

func newRunCmd(g *globalFlags, cfg *config.Config) *cobra.Command {
	var seed int64
	var priors []string
	var parallelism int
	var out string

	cmd := &cobra.Command{
		Use:   "run [study...]",
		Short: "Run studies and combine their likelihood ratios",
		Long: `Run the named studies (all studies when none are named), then multiply the
likelihood ratios of every successful, non-standalone study and report the
posterior under each prior.

Example: gobayes run sudarium ci_decay --seed 42 --prior skeptical --prior 1:1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := g.loadStudies()
			if err != nil {
				return err
			}
			list, err := catalog.Select(args)
			if err != nil {
				return err
			}
			ps, err := parsePriors(priors, catalog.PriorSet(aggregator.DefaultPriors()))
			if err != nil {
				return err
			}

			p := pipeline.New(pipeline.Options{
				Seed:        seed,
				Parallelism: parallelism,
				HeavyLimit:  cfg.Engine.HeavyLimit,
				BootstrapN:  cfg.Engine.BootstrapN,
				NoiseTrials: cfg.Engine.NoiseTrials,
				Priors:      ps,
			})
			report, err := p.RunAll(contextOf(cmd), list)
			if err != nil {
				return err
			}

			if out != "" {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return err
				}
			}
			if g.asJSON {
				return writeJSON(cmd, report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", cfg.Engine.Seed, "Random seed for stochastic studies")
	cmd.Flags().StringArrayVar(&priors, "prior", nil, "Prior: preset name, a:b odds or a number (repeatable)")
	cmd.Flags().IntVar(&parallelism, "parallelism", cfg.Engine.Parallelism, "Studies run concurrently")
	cmd.Flags().StringVar(&out, "out", "", "Also write the JSON report to this file")
	return cmd
}

func newCombineCmd(g *globalFlags) *cobra.Command {
	var priors []string

	cmd := &cobra.Command{
		Use:   "combine lr [lr...]",
		Short: "Multiply likelihood ratios and report posteriors",
		Long: `Combine likelihood ratios under the independence assumption.

Example: gobayes combine 171 19 1e6 --prior skeptical`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lrs := make([]evidence.LikelihoodRatio, 0, len(args))
			for _, a := range args {
				v, err := parseFloat(a)
				if err != nil {
					return err
				}
				lrs = append(lrs, evidence.LikelihoodRatio(v))
			}
			combined, err := aggregator.Combine(lrs)
			if err != nil {
				return err
			}
			ps, err := parsePriors(priors, aggregator.DefaultPriors())
			if err != nil {
				return err
			}
			posteriors := aggregator.Evaluate(combined, ps)

			if g.asJSON {
				return writeJSON(cmd, map[string]interface{}{
					"combined_lr":     combined.Value,
					"log_combined_lr": combined.LogValue,
					"count":           combined.Count,
					"posteriors":      posteriors,
				})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Combined LR: %s (%d ratios)\n", formatLR(combined.Value), combined.Count)
			printPosteriors(w, posteriors)
			fmt.Fprintf(w, "\n%s\n", aggregator.IndependenceNote)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&priors, "prior", nil, "Prior: preset name, a:b odds or a number (repeatable)")
	return cmd
}

func newPosteriorCmd(g *globalFlags) *cobra.Command {
	var lr float64
	var prior string

	cmd := &cobra.Command{
		Use:   "posterior",
		Short: "Posterior probability for one likelihood ratio and prior",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := aggregator.ParsePrior(prior)
			if err != nil {
				return err
			}
			prob, err := aggregator.PosteriorFromLR(p.Odds, evidence.LikelihoodRatio(lr))
			if err != nil {
				return err
			}
			if g.asJSON {
				return writeJSON(cmd, map[string]interface{}{"prior_odds": p.Odds, "lr": lr, "posterior": prob})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "P(H1 | E) = %.6g\n", prob)
			return nil
		},
	}
	cmd.Flags().Float64Var(&lr, "lr", 1, "Likelihood ratio")
	cmd.Flags().StringVar(&prior, "prior", aggregator.PriorNeutral, "Prior: preset name, a:b odds or a number")
	return cmd
}

func parsePriors(raw []string, defaults []evidence.Prior) ([]evidence.Prior, error) {
	if len(raw) == 0 {
		return defaults, nil
	}
	out := make([]evidence.Prior, 0, len(raw))
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			p, err := aggregator.ParsePrior(part)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
