package aggregator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"gobayes/domain/evidence"
	"gobayes/internal/errors"
)

// Named prior presets
const (
	PriorNeutral         = "neutral"
	PriorSkeptical       = "skeptical"
	PriorHighlySkeptical = "highly_skeptical"
)

// IndependenceNote is attached to every combined report. The product rule
// treats streams as conditionally independent; nothing here checks that.
const IndependenceNote = "likelihood ratios are multiplied under an unverified conditional independence assumption"

// DefaultPriors returns the neutral, skeptical (1:100) and highly skeptical (1:1000) presets
func DefaultPriors() []evidence.Prior {
	return []evidence.Prior{
		{Name: PriorNeutral, Odds: 1},
		{Name: PriorSkeptical, Odds: 1.0 / 100},
		{Name: PriorHighlySkeptical, Odds: 1.0 / 1000},
	}
}

// Combined is the product of a sequence of likelihood ratios. Value may be
// +Inf when the product leaves float64 range; LogValue is always finite.
type Combined struct {
	Value    evidence.LikelihoodRatio `json:"value"`
	LogValue float64                  `json:"log_value"`
	Count    int                      `json:"count"`
}

// Combine multiplies likelihood ratios under the independence assumption.
// An empty sequence is an explicit "no evidence" error, never a silent 1.0.
func Combine(lrs []evidence.LikelihoodRatio) (Combined, error) {
	if len(lrs) == 0 {
		return Combined{}, errors.InvalidEvidence("no evidence: cannot combine an empty set of likelihood ratios")
	}

	logs := make([]float64, len(lrs))
	product := 1.0
	for i, lr := range lrs {
		if !lr.Valid() {
			return Combined{}, errors.InvalidEvidence(fmt.Sprintf("likelihood ratio %d is %v; must be positive and finite", i, float64(lr)))
		}
		product *= float64(lr)
		logs[i] = math.Log(float64(lr))
	}

	return Combined{
		Value:    evidence.LikelihoodRatio(product),
		LogValue: floats.Sum(logs),
		Count:    len(lrs),
	}, nil
}

// Posterior converts prior odds and a combined likelihood ratio into a posterior
// probability. Odds outside float64 range go through log odds so that they
// saturate at 1 or 0 instead of Inf/Inf.
func Posterior(prior evidence.Prior, combined Combined) evidence.Posterior {
	logOdds := math.Log(prior.Odds) + combined.LogValue
	p := probability(prior.Odds*float64(combined.Value), logOdds)
	return evidence.Posterior{
		Prior:       prior.Name,
		PriorOdds:   prior.Odds,
		LogOdds:     logOdds,
		Probability: p,
		Saturated:   p == 1 || p == 0,
	}
}

// PosteriorFromLR is the scalar form: odds = priorOdds*lr; odds/(odds+1)
func PosteriorFromLR(priorOdds float64, lr evidence.LikelihoodRatio) (float64, error) {
	if priorOdds <= 0 || math.IsInf(priorOdds, 0) || math.IsNaN(priorOdds) {
		return 0, errors.InvalidInput(fmt.Sprintf("prior odds must be positive and finite, got %v", priorOdds))
	}
	if !lr.Valid() {
		return 0, errors.InvalidEvidence(fmt.Sprintf("likelihood ratio %v must be positive and finite", float64(lr)))
	}
	return probability(priorOdds*float64(lr), math.Log(priorOdds)+math.Log(float64(lr))), nil
}

// Evaluate applies every prior to the same combined ratio
func Evaluate(combined Combined, priors []evidence.Prior) []evidence.Posterior {
	out := make([]evidence.Posterior, 0, len(priors))
	for _, prior := range priors {
		out = append(out, Posterior(prior, combined))
	}
	return out
}

// ParsePrior accepts a preset name, an "a:b" odds ratio or a plain positive number
func ParsePrior(s string) (evidence.Prior, error) {
	s = strings.TrimSpace(s)
	for _, p := range DefaultPriors() {
		if strings.EqualFold(p.Name, s) {
			return p, nil
		}
	}

	var odds float64
	if left, right, ok := strings.Cut(s, ":"); ok {
		num, err1 := strconv.ParseFloat(strings.TrimSpace(left), 64)
		den, err2 := strconv.ParseFloat(strings.TrimSpace(right), 64)
		if err1 != nil || err2 != nil || den == 0 {
			return evidence.Prior{}, errors.InvalidInput(fmt.Sprintf("invalid prior odds %q", s))
		}
		odds = num / den
	} else {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return evidence.Prior{}, errors.InvalidInput(fmt.Sprintf("invalid prior %q", s))
		}
		odds = v
	}

	if odds <= 0 || math.IsInf(odds, 0) || math.IsNaN(odds) {
		return evidence.Prior{}, errors.InvalidInput(fmt.Sprintf("prior odds must be positive, got %q", s))
	}
	return evidence.Prior{Name: s, Odds: odds}, nil
}

// logistic computes odds/(odds+1) from log odds without overflow
// maxDirectOdds bounds the odds that odds/(odds+1) handles without overflow
const maxDirectOdds = 1e300

// probability is odds/(odds+1), falling back to the logistic of logOdds when
// odds underflowed to 0 or exceeds maxDirectOdds
func probability(odds, logOdds float64) float64 {
	if odds > 0 && odds < maxDirectOdds {
		return odds / (odds + 1)
	}
	return logistic(logOdds)
}

func logistic(logOdds float64) float64 {
	if logOdds >= 0 {
		return 1 / (1 + math.Exp(-logOdds))
	}
	e := math.Exp(logOdds)
	return e / (1 + e)
}
