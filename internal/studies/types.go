package studies

import (
	"gobayes/domain/evidence"
	"gobayes/internal/distributions"
	"gobayes/internal/generators/classifier"
	"gobayes/internal/generators/decay"
	"gobayes/internal/generators/lattice"
	"gobayes/internal/generators/literature"
	"gobayes/internal/generators/regression"
	"gobayes/internal/scoring"
)

// Kind selects the evidence generator for a study
type Kind string

const (
	KindLiterature Kind = "literature"
	KindRegression Kind = "regression"
	KindDecay      Kind = "decay"
	KindLattice    Kind = "lattice"
	KindClassifier Kind = "classifier"
	KindScoring    Kind = "scoring"
)

// Kinds lists every supported generator kind
func Kinds() []Kind {
	return []Kind{KindLiterature, KindRegression, KindDecay, KindLattice, KindClassifier, KindScoring}
}

// Catalog is the root of a study catalog file
type Catalog struct {
	Version int              `yaml:"version" json:"version"`
	Priors  []evidence.Prior `yaml:"priors,omitempty" json:"priors,omitempty"`
	Studies []Study          `yaml:"studies" json:"studies"`
}

// Study is one configured evidence stream
type Study struct {
	Name        string `yaml:"name" json:"name"`
	Kind        Kind   `yaml:"kind" json:"kind"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Standalone studies are reported but never multiplied into the combined LR
	Standalone bool      `yaml:"standalone,omitempty" json:"standalone,omitempty"`
	Asserted   *Asserted `yaml:"asserted,omitempty" json:"asserted,omitempty"`

	Literature *LiteratureSpec `yaml:"literature,omitempty" json:"literature,omitempty"`
	Regression *RegressionSpec `yaml:"regression,omitempty" json:"regression,omitempty"`
	Decay      *DecaySpec      `yaml:"decay,omitempty" json:"decay,omitempty"`
	Lattice    *LatticeSpec    `yaml:"lattice,omitempty" json:"lattice,omitempty"`
	Classifier *ClassifierSpec `yaml:"classifier,omitempty" json:"classifier,omitempty"`
	Scoring    *ScoringSpec    `yaml:"scoring,omitempty" json:"scoring,omitempty"`

	Sensitivity *SensitivitySpec `yaml:"sensitivity,omitempty" json:"sensitivity,omitempty"`
}

// Asserted overrides the computed likelihood ratio with a published one
type Asserted struct {
	LR     float64 `yaml:"lr" json:"lr"`
	Source string  `yaml:"source" json:"source"`
}

type LiteratureSpec struct {
	Entries []literature.Entry `yaml:"entries" json:"entries"`
}

type RegressionSpec struct {
	Series []regression.Series `yaml:"series" json:"series"`
}

type DecaySpec struct {
	Ages          []float64              `yaml:"ages" json:"ages"`
	Values        []float64              `yaml:"values" json:"values"`
	Initial       decay.Params           `yaml:"initial" json:"initial"`
	Bounds        decay.Bounds           `yaml:"bounds" json:"bounds"`
	MaxIterations int                    `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`
	Fallback      *decay.Params          `yaml:"fallback,omitempty" json:"fallback,omitempty"`
	TableAges     []float64              `yaml:"table_ages,omitempty" json:"table_ages,omitempty"`
	Observed      float64                `yaml:"observed" json:"observed"`
	Guess         float64                `yaml:"guess" json:"guess"`
	H1            distributions.Gaussian `yaml:"h1" json:"h1"`
	H0            distributions.Gaussian `yaml:"h0" json:"h0"`
}

type LatticeSpec struct {
	Config      lattice.Config        `yaml:"config" json:"config"`
	Observation *lattice.Observation  `yaml:"observation,omitempty" json:"observation,omitempty"`
	Spectra     *lattice.Spectra      `yaml:"spectra,omitempty" json:"spectra,omitempty"`
	Samples     *lattice.SampleDesign `yaml:"samples,omitempty" json:"samples,omitempty"`
}

type ClassifierSpec struct {
	Training  [2]classifier.Point `yaml:"training" json:"training"`
	Query     float64             `yaml:"query" json:"query"`
	Scale     float64             `yaml:"scale,omitempty" json:"scale,omitempty"`
	NoiseSD   float64             `yaml:"noise_sd,omitempty" json:"noise_sd,omitempty"`
	Trials    int                 `yaml:"trials,omitempty" json:"trials,omitempty"`
	Residual  *decay.Params       `yaml:"residual,omitempty" json:"residual,omitempty"`
	TableAges []float64           `yaml:"table_ages,omitempty" json:"table_ages,omitempty"`
}

type ScoringSpec struct {
	Criteria []string                 `yaml:"criteria" json:"criteria"`
	Matrix   []scoring.Row            `yaml:"matrix" json:"matrix"`
	Model    scoring.BayesFactorModel `yaml:"model" json:"model"`
}

// SensitivitySpec requests post-generation analyses
type SensitivitySpec struct {
	// Sweep runs the ±1 scoring sweep (scoring studies only)
	Sweep     bool           `yaml:"sweep,omitempty" json:"sweep,omitempty"`
	Bootstrap *BootstrapSpec `yaml:"bootstrap,omitempty" json:"bootstrap,omitempty"`
	Rates     *RateSpec      `yaml:"rates,omitempty" json:"rates,omitempty"`
}

// BootstrapSpec bootstraps either explicit samples or synthetic normal
// samples drawn from Mean/SD/N
type BootstrapSpec struct {
	Samples     []float64  `yaml:"samples,omitempty" json:"samples,omitempty"`
	Mean        float64    `yaml:"mean,omitempty" json:"mean,omitempty"`
	SD          float64    `yaml:"sd,omitempty" json:"sd,omitempty"`
	N           int        `yaml:"n,omitempty" json:"n,omitempty"`
	NBoot       int        `yaml:"n_boot,omitempty" json:"n_boot,omitempty"`
	Percentiles [2]float64 `yaml:"percentiles,omitempty" json:"percentiles,omitempty"`
}

// RateSpec tabulates alternative decay rates against a base curve
type RateSpec struct {
	Base     decay.Params        `yaml:"base" json:"base"`
	Variants []decay.RateVariant `yaml:"variants" json:"variants"`
	Ages     []float64           `yaml:"ages" json:"ages"`
	Target   *float64            `yaml:"target,omitempty" json:"target,omitempty"`
	Guess    float64             `yaml:"guess,omitempty" json:"guess,omitempty"`
}
