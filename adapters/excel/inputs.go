package excel

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rs/zerolog/log"

	"gobayes/internal/errors"
	"gobayes/internal/generators/regression"
	"gobayes/internal/scoring"
	"gobayes/internal/studies"
)

// SeriesFromSheet reads every column of the sheet as one measurement series,
// named after its header
func SeriesFromSheet(d *SheetData) ([]regression.Series, error) {
	out := make([]regression.Series, 0, len(d.Headers))
	for _, h := range d.Headers {
		if h == "" {
			continue
		}
		values, err := d.Column(h)
		if err != nil {
			return nil, err
		}
		out = append(out, regression.Series{Name: h, Values: values})
	}
	return out, nil
}

// BenchmarksFromSheet reads paired (age, value) rows. Rows with a blank cell
// in either column are skipped.
func BenchmarksFromSheet(d *SheetData, cfg Config) (ages, values []float64, err error) {
	ageKey, ok := d.header(cfg.AgeColumn)
	if !ok {
		return nil, nil, errors.NotFound(fmt.Sprintf("column %q in sheet %s", cfg.AgeColumn, d.Name))
	}
	valueKey, ok := d.header(cfg.ValueColumn)
	if !ok {
		return nil, nil, errors.NotFound(fmt.Sprintf("column %q in sheet %s", cfg.ValueColumn, d.Name))
	}

	for i, row := range d.Rows {
		a, v := row[ageKey], row[valueKey]
		if a == "" || v == "" {
			continue
		}
		age, err1 := strconv.ParseFloat(a, 64)
		value, err2 := strconv.ParseFloat(v, 64)
		if err1 != nil || err2 != nil {
			return nil, nil, errors.InvalidInput(fmt.Sprintf("sheet %s row %d: non-numeric benchmark (%q, %q)", d.Name, i+2, a, v))
		}
		ages = append(ages, age)
		values = append(values, value)
	}
	return ages, values, nil
}

// ScoringFromSheet reads a mechanism scoring matrix: one row per mechanism,
// one integer column per criterion
func ScoringFromSheet(d *SheetData, cfg Config) ([]string, []scoring.Row, error) {
	mechKey, ok := d.header(cfg.MechanismColumn)
	if !ok {
		return nil, nil, errors.NotFound(fmt.Sprintf("column %q in sheet %s", cfg.MechanismColumn, d.Name))
	}

	var criteria []string
	for _, h := range d.Headers {
		if h != "" && h != mechKey {
			criteria = append(criteria, h)
		}
	}

	rows := make([]scoring.Row, 0, len(d.Rows))
	for i, raw := range d.Rows {
		mech := raw[mechKey]
		if mech == "" {
			continue
		}
		row := scoring.Row{Mechanism: mech, Scores: make(map[string]int, len(criteria))}
		for _, c := range criteria {
			f, err := strconv.ParseFloat(raw[c], 64)
			if err != nil || f != math.Trunc(f) {
				return nil, nil, errors.InvalidInput(fmt.Sprintf("sheet %s row %d column %s: %q is not an integer score", d.Name, i+2, c, raw[c]))
			}
			row.Scores[c] = int(f)
		}
		rows = append(rows, row)
	}
	return criteria, rows, nil
}

// Apply replaces catalog inputs with data from the workbook at cfg.FilePath.
// A sheet named after a regression, decay or scoring study overrides that
// study's measurements; other sheets are ignored. The input slice is not
// modified. Returns the studies and the names of those that were overridden.
func Apply(cfg Config, list []studies.Study) ([]studies.Study, []string, error) {
	sheets, err := NewDataReader(cfg.FilePath).ReadAll()
	if err != nil {
		return nil, nil, err
	}

	out := make([]studies.Study, len(list))
	copy(out, list)
	var applied []string

	for i, s := range out {
		sheet, ok := sheets[s.Name]
		if !ok {
			continue
		}

		switch s.Kind {
		case studies.KindRegression:
			series, err := SeriesFromSheet(sheet)
			if err != nil {
				return nil, nil, err
			}
			s.Regression = &studies.RegressionSpec{Series: series}

		case studies.KindDecay:
			ages, values, err := BenchmarksFromSheet(sheet, cfg)
			if err != nil {
				return nil, nil, err
			}
			spec := *s.Decay
			spec.Ages, spec.Values = ages, values
			s.Decay = &spec

		case studies.KindScoring:
			criteria, rows, err := ScoringFromSheet(sheet, cfg)
			if err != nil {
				return nil, nil, err
			}
			spec := *s.Scoring
			spec.Criteria, spec.Matrix = criteria, rows
			s.Scoring = &spec
			if _, err := s.Matrix(); err != nil {
				return nil, nil, err
			}

		default:
			log.Warn().Str("study", s.Name).Str("kind", string(s.Kind)).Msg("workbook sheet ignored: study kind takes no tabular input")
			continue
		}

		if err := s.Validate(); err != nil {
			return nil, nil, errors.Wrapf(err, "workbook sheet %s", s.Name)
		}
		out[i] = s
		applied = append(applied, s.Name)
	}

	log.Info().Str("file", cfg.FilePath).Strs("studies", applied).Msg("workbook inputs applied")
	return out, applied, nil
}
