package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gobayes/domain/evidence"
	"gobayes/internal/errors"
)

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatLR(lr evidence.LikelihoodRatio) string {
	v := float64(lr)
	if v >= 1e4 || (v > 0 && v < 1e-3) {
		return strconv.FormatFloat(v, 'e', 3, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.InvalidInput(fmt.Sprintf("%q is not a number", s))
	}
	return v, nil
}

func printPosteriors(w io.Writer, posteriors []evidence.Posterior) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIOR\tPRIOR ODDS\tLOG10 POSTERIOR ODDS\tP(H1 | E)")
	for _, p := range posteriors {
		prob := strconv.FormatFloat(p.Probability, 'f', 6, 64)
		if p.Saturated {
			prob += " (saturated)"
		}
		fmt.Fprintf(tw, "%s\t%g\t%.2f\t%s\n", p.Prior, p.PriorOdds, p.LogOdds/ln10, prob)
	}
	tw.Flush()
}

const ln10 = 2.302585092994046

func printReport(w io.Writer, r *evidence.Report) {
	fmt.Fprintf(w, "=== Run %s ===\n", r.RunID)
	if m := r.Manifest; m != nil {
		fmt.Fprintf(w, "Seed %d, fingerprint %.16s\n", m.Fingerprint.Seed, m.Fingerprint.Fingerprint)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STUDY\tSTATUS\tLR\tMETHOD\tNOTES")
	for _, s := range r.Studies {
		lr, method, notes := "-", "-", ""
		if s.OK() {
			lr = formatLR(s.LR)
			method = string(s.Record.Method)
		}
		switch {
		case s.Status != evidence.StatusOK:
			notes = fmt.Sprintf("%s: %s", s.Code, s.Message)
		case s.Standalone:
			notes = "standalone, not combined"
		}
		if s.SensitivityRange != nil {
			notes = strings.TrimSpace(notes + fmt.Sprintf(" range %s..%s", formatLR(s.SensitivityRange.Min), formatLR(s.SensitivityRange.Max)))
		}
		if ci := s.ConfidenceInterval; ci != nil {
			notes = strings.TrimSpace(notes + fmt.Sprintf(" CI [%.4g, %.4g]", ci.Low, ci.High))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Study, s.Status, lr, method, notes)
	}
	tw.Flush()

	fmt.Fprintln(w)
	if r.NoEvidence {
		fmt.Fprintln(w, "No evidence: no study produced a combinable likelihood ratio.")
		return
	}
	fmt.Fprintf(w, "Combined LR: %s (log10 %.2f) from %d studies\n", formatLR(r.CombinedLR), r.LogCombined/ln10, len(r.Included))
	if len(r.Failed) > 0 {
		fmt.Fprintf(w, "Failed: %s\n", strings.Join(r.Failed, ", "))
	}
	fmt.Fprintln(w)
	printPosteriors(w, r.Posteriors)
	fmt.Fprintf(w, "\n%s\n", r.Independence)
}
