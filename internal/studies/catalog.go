// Package studies loads the study catalog and turns each entry into an
// evidence generator.
package studies

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"gobayes/domain/evidence"
	"gobayes/internal/errors"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Default returns the embedded synthesis catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalogYAML)
}

// Load reads and validates a catalog file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read catalog %s", path)
	}
	return Parse(data)
}

// Parse decodes a catalog, rejecting unknown fields, and validates it
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("decode catalog: %w", err))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Lookup returns the named study
func (c *Catalog) Lookup(name string) (Study, error) {
	for _, s := range c.Studies {
		if s.Name == name {
			return s, nil
		}
	}
	return Study{}, errors.NotFound("study " + name)
}

// Names lists the studies in catalog order
func (c *Catalog) Names() []string {
	out := make([]string, len(c.Studies))
	for i, s := range c.Studies {
		out[i] = s.Name
	}
	return out
}

// Select returns the named studies in the given order, or every study when
// names is empty
func (c *Catalog) Select(names []string) ([]Study, error) {
	if len(names) == 0 {
		return append([]Study(nil), c.Studies...), nil
	}
	out := make([]Study, 0, len(names))
	for _, n := range names {
		s, err := c.Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Validate checks names, kinds, parameter blocks and asserted ratios
func (c *Catalog) Validate() error {
	if len(c.Studies) == 0 {
		return errors.ConfigInvalid("catalog has no studies")
	}
	for _, p := range c.Priors {
		if p.Name == "" || !(p.Odds > 0) || math.IsInf(p.Odds, 0) {
			return errors.ConfigInvalid(fmt.Sprintf("prior %q must have a name and positive finite odds", p.Name))
		}
	}
	seen := make(map[string]bool, len(c.Studies))
	for _, s := range c.Studies {
		if s.Name == "" {
			return errors.ConfigInvalid("study without a name")
		}
		if seen[s.Name] {
			return errors.ConfigInvalid(fmt.Sprintf("duplicate study %q", s.Name))
		}
		seen[s.Name] = true
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that the study carries exactly the block its kind needs
func (s Study) Validate() error {
	blocks := map[Kind]bool{
		KindLiterature: s.Literature != nil,
		KindRegression: s.Regression != nil,
		KindDecay:      s.Decay != nil,
		KindLattice:    s.Lattice != nil,
		KindClassifier: s.Classifier != nil,
		KindScoring:    s.Scoring != nil,
	}
	present, known := blocks[s.Kind]
	if !known {
		return errors.ConfigInvalid(fmt.Sprintf("study %q has unknown kind %q", s.Name, s.Kind))
	}
	if !present {
		return errors.ConfigInvalid(fmt.Sprintf("study %q of kind %s has no %s block", s.Name, s.Kind, s.Kind))
	}
	for k, p := range blocks {
		if p && k != s.Kind {
			return errors.ConfigInvalid(fmt.Sprintf("study %q of kind %s also carries a %s block", s.Name, s.Kind, k))
		}
	}

	if s.Asserted != nil && !evidence.LikelihoodRatio(s.Asserted.LR).Valid() {
		return errors.ConfigInvalid(fmt.Sprintf("study %q asserts non-positive likelihood ratio %v", s.Name, s.Asserted.LR))
	}
	if s.Literature != nil {
		if len(s.Literature.Entries) == 0 {
			return errors.ConfigInvalid(fmt.Sprintf("study %q has no literature entries", s.Name))
		}
		for _, e := range s.Literature.Entries {
			if err := e.Validate(); err != nil {
				return errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "study %q", s.Name))
			}
		}
	}
	if sens := s.Sensitivity; sens != nil {
		if sens.Sweep && s.Kind != KindScoring {
			return errors.ConfigInvalid(fmt.Sprintf("study %q requests a scoring sweep but is %s", s.Name, s.Kind))
		}
		if b := sens.Bootstrap; b != nil && len(b.Samples) == 0 && b.N <= 0 {
			return errors.ConfigInvalid(fmt.Sprintf("study %q bootstrap needs samples or n", s.Name))
		}
		if r := sens.Rates; r != nil && len(r.Variants) == 0 {
			return errors.ConfigInvalid(fmt.Sprintf("study %q rate sweep has no variants", s.Name))
		}
	}
	return nil
}

// PriorSet returns the catalog priors, or defaults when none are configured
func (c *Catalog) PriorSet(defaults []evidence.Prior) []evidence.Prior {
	if len(c.Priors) == 0 {
		return defaults
	}
	return append([]evidence.Prior(nil), c.Priors...)
}
