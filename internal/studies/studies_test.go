package studies

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobayes/internal/errors"
	"gobayes/internal/generators/decay"
	"gobayes/internal/generators/lattice"
	"gobayes/internal/scoring"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"superficiality_3d", "vanillin", "ci_decay", "spatial_voc", "sudarium",
		"forensic_trauma", "c14_reappraisal", "c14_time_series", "age_integration",
		"kmc_reflectance", "mechanism_scoring",
	}, c.Names())
	assert.Len(t, c.Priors, 3)

	ci, err := c.Lookup("ci_decay")
	require.NoError(t, err)
	require.NotNil(t, ci.Asserted)
	assert.Equal(t, 1e6, ci.Asserted.LR)
	assert.Len(t, ci.Sensitivity.Rates.Variants, 5)

	scoringStudy, err := c.Lookup("mechanism_scoring")
	require.NoError(t, err)
	assert.True(t, scoringStudy.Standalone)
	assert.Equal(t, 5.26e22, scoringStudy.Scoring.Model.Base)
}

func TestBuild_EveryDefaultStudy(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	for _, s := range c.Studies {
		g, err := Build(s, 42)
		require.NoError(t, err, s.Name)
		assert.Equal(t, s.Name, g.Name())
	}
}

func TestBuild_Kinds(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	ci, _ := c.Lookup("ci_decay")
	g, err := Build(ci, 1)
	require.NoError(t, err)
	study, ok := g.(*decay.Study)
	require.True(t, ok)
	assert.Equal(t, 200, study.Config.Options.MaxIterations)
	assert.Equal(t, 50.0, study.Config.Options.Bounds.Upper.C)

	kmc, _ := c.Lookup("kmc_reflectance")
	g, err = Build(kmc, 99)
	require.NoError(t, err)
	sim, ok := g.(*lattice.Simulator)
	require.True(t, ok)
	assert.Equal(t, int64(99), sim.Seed)
	assert.Equal(t, 500, sim.Config.Size)
	assert.Equal(t, 1e-6, sim.Config.PHigh)

	sudarium, _ := c.Lookup("sudarium")
	g, err = Build(sudarium, 0)
	require.NoError(t, err)
	ev, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.InEpsilon(t, 2.376e7, float64(ev.LR), 1e-9)
}

func TestStudy_MatrixIsIndependent(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	s, _ := c.Lookup("mechanism_scoring")

	a, err := s.Matrix()
	require.NoError(t, err)
	b, err := s.Matrix()
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.True(t, a.Equal(b))

	bf, err := s.Scoring.Model.BayesFactor(a)
	require.NoError(t, err)
	assert.InDelta(t, 80, bf, 1e-12)

	_, err = scoring.Sweep(a, s.Scoring.Model.Evaluate)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestParse_Rejections(t *testing.T) {
	cases := map[string]string{
		"unknown kind": `
studies:
  - name: x
    kind: astrology
`,
		"missing block": `
studies:
  - name: x
    kind: literature
`,
		"wrong block": `
studies:
  - name: x
    kind: literature
    literature:
      entries: [{label: a, lr: 2}]
    regression:
      series: []
`,
		"duplicate": `
studies:
  - name: x
    kind: literature
    literature:
      entries: [{label: a, lr: 2}]
  - name: x
    kind: literature
    literature:
      entries: [{label: a, lr: 3}]
`,
		"non-positive asserted": `
studies:
  - name: x
    kind: literature
    asserted: {lr: -1, source: nowhere}
    literature:
      entries: [{label: a, lr: 2}]
`,
		"zero literature lr": `
studies:
  - name: x
    kind: literature
    literature:
      entries: [{label: a, lr: 0}]
`,
		"unknown field": `
studies:
  - name: x
    kind: literature
    colour: blue
    literature:
      entries: [{label: a, lr: 2}]
`,
		"sweep on non-scoring": `
studies:
  - name: x
    kind: literature
    literature:
      entries: [{label: a, lr: 2}]
    sensitivity:
      sweep: true
`,
		"empty": `studies: []`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid), err.Error())
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: 1
studies:
  - name: only
    kind: literature
    literature:
      entries: [{label: a, lr: 4, source: test}]
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, c.Names())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = c.Select([]string{"nope"})
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}
