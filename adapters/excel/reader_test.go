package excel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gobayes/internal/errors"
	"gobayes/internal/studies"
)

func writeSheet(t *testing.T, f *excelize.File, sheet string, rows [][]interface{}) {
	t.Helper()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
}

func testWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "c14_time_series"))
	writeSheet(t, f, "c14_time_series", [][]interface{}{
		{"arizona", "oxford"},
		{606, 795},
		{574, 730},
		{753, 690},
		{745},
	})

	_, err := f.NewSheet("ci_decay")
	require.NoError(t, err)
	writeSheet(t, f, "ci_decay", [][]interface{}{
		{"Age", "Value", "note"},
		{0, 90, "modern"},
		{700, 71, "Masada"},
		{1000, 65},
		{1965, 46, "Nahal Hever"},
	})

	_, err = f.NewSheet("mechanism_scoring")
	require.NoError(t, err)
	writeSheet(t, f, "mechanism_scoring", [][]interface{}{
		{"mechanism", "Superficiality", "Chemistry"},
		{"VUV", 3, 2},
		{"Maillard", 1, 0},
		{"CD", 3, 3},
		{"Latent", 2, 2},
	})

	_, err = f.NewSheet("sudarium")
	require.NoError(t, err)
	writeSheet(t, f, "sudarium", [][]interface{}{{"label", "lr"}, {"pollen", 10}})

	path := filepath.Join(t.TempDir(), "inputs.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestDataReader_ReadSheet(t *testing.T) {
	r := NewDataReader(testWorkbook(t))

	sheets, err := r.Sheets()
	require.NoError(t, err)
	assert.Contains(t, sheets, "ci_decay")

	d, err := r.ReadSheet("ci_decay")
	require.NoError(t, err)
	assert.Equal(t, []string{"Age", "Value", "note"}, d.Headers)
	assert.Len(t, d.Rows, 4)

	ages, err := d.Column("age")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 700, 1000, 1965}, ages)

	_, err = d.Column("note")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
	_, err = d.Column("missing")
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))

	_, err = r.ReadSheet("nope")
	assert.Error(t, err)
}

func TestDataReader_MissingFile(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "gone.xlsx")).ReadSheet("Sheet1")
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestDataReader_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zurich.csv")
	require.NoError(t, os.WriteFile(path, []byte("zurich\n733\n722\n635\n617\n595\n"), 0o644))

	r := NewDataReader(path)
	sheets, err := r.Sheets()
	require.NoError(t, err)
	assert.Equal(t, []string{"zurich"}, sheets)

	d, err := r.ReadSheet("")
	require.NoError(t, err)
	series, err := SeriesFromSheet(d)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "zurich", series[0].Name)
	assert.Equal(t, []float64{733, 722, 635, 617, 595}, series[0].Values)
}

func TestSeriesFromSheet_UnevenColumns(t *testing.T) {
	d, err := NewDataReader(testWorkbook(t)).ReadSheet("c14_time_series")
	require.NoError(t, err)

	series, err := SeriesFromSheet(d)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, []float64{606, 574, 753, 745}, series[0].Values)
	assert.Equal(t, []float64{795, 730, 690}, series[1].Values)
}

func TestBenchmarksFromSheet(t *testing.T) {
	d, err := NewDataReader(testWorkbook(t)).ReadSheet("ci_decay")
	require.NoError(t, err)

	ages, values, err := BenchmarksFromSheet(d, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 700, 1000, 1965}, ages)
	assert.Equal(t, []float64{90, 71, 65, 46}, values)

	cfg := DefaultConfig()
	cfg.AgeColumn = "years"
	_, _, err = BenchmarksFromSheet(d, cfg)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestScoringFromSheet(t *testing.T) {
	d, err := NewDataReader(testWorkbook(t)).ReadSheet("mechanism_scoring")
	require.NoError(t, err)

	criteria, rows, err := ScoringFromSheet(d, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"Superficiality", "Chemistry"}, criteria)
	require.Len(t, rows, 4)
	assert.Equal(t, "Maillard", rows[1].Mechanism)
	assert.Equal(t, 1, rows[1].Scores["Superficiality"])
}

func TestApply(t *testing.T) {
	c, err := studies.Default()
	require.NoError(t, err)
	original, _ := c.Lookup("ci_decay")

	cfg := DefaultConfig()
	cfg.FilePath = testWorkbook(t)
	out, applied, err := Apply(cfg, c.Studies)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c14_time_series", "ci_decay", "mechanism_scoring"}, applied)

	var decayStudy, regStudy, scoringStudy studies.Study
	for _, s := range out {
		switch s.Name {
		case "ci_decay":
			decayStudy = s
		case "c14_time_series":
			regStudy = s
		case "mechanism_scoring":
			scoringStudy = s
		}
	}

	assert.Equal(t, []float64{0, 700, 1000, 1965}, decayStudy.Decay.Ages)
	assert.Equal(t, original.Decay.Observed, decayStudy.Decay.Observed)
	assert.Equal(t, []float64{0, 700, 1965}, original.Decay.Ages, "catalog must not be modified")

	require.Len(t, regStudy.Regression.Series, 2)
	assert.Equal(t, "oxford", regStudy.Regression.Series[1].Name)

	m, err := scoringStudy.Matrix()
	require.NoError(t, err)
	total, err := m.Total("Maillard")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestApply_RejectsBadScores(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "mechanism_scoring"))
	writeSheet(t, f, "mechanism_scoring", [][]interface{}{
		{"mechanism", "Chemistry"},
		{"CD", 7},
	})
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	c, err := studies.Default()
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.FilePath = path
	_, _, err = Apply(cfg, c.Studies)
	assert.Error(t, err)
}
