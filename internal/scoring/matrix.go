// Package scoring holds the mechanism-by-criterion scoring matrix and the
// one-at-a-time sensitivity sweep over it.
package scoring

import (
	"fmt"
	"strings"

	"gobayes/internal/errors"
)

// Score limits
const (
	MinScore = 0
	MaxScore = 3
)

// Row is one mechanism's scores keyed by criterion
type Row struct {
	Mechanism string         `json:"mechanism" yaml:"mechanism"`
	Scores    map[string]int `json:"scores" yaml:"scores"`
}

// Matrix is an immutable view of mechanism scores. Only the sweep in this
// package mutates scores, and only on its own clone.
type Matrix struct {
	mechanisms []string
	criteria   []string
	scores     [][]int
	mechIndex  map[string]int
	critIndex  map[string]int
}

// NewMatrix validates that every mechanism scores every criterion within
// [MinScore, MaxScore] and that no name repeats
func NewMatrix(criteria []string, rows []Row) (*Matrix, error) {
	if len(criteria) == 0 || len(rows) == 0 {
		return nil, errors.InvalidInput("scoring matrix needs at least one mechanism and one criterion")
	}

	m := &Matrix{
		mechanisms: make([]string, 0, len(rows)),
		criteria:   append([]string(nil), criteria...),
		scores:     make([][]int, 0, len(rows)),
		mechIndex:  make(map[string]int, len(rows)),
		critIndex:  make(map[string]int, len(criteria)),
	}
	for j, c := range criteria {
		if _, dup := m.critIndex[c]; dup {
			return nil, errors.InvalidInput(fmt.Sprintf("duplicate criterion %q", c))
		}
		m.critIndex[c] = j
	}

	for i, row := range rows {
		if _, dup := m.mechIndex[row.Mechanism]; dup {
			return nil, errors.InvalidInput(fmt.Sprintf("duplicate mechanism %q", row.Mechanism))
		}
		if len(row.Scores) != len(criteria) {
			return nil, errors.InvalidInput(fmt.Sprintf("mechanism %q scores %d criteria, want %d", row.Mechanism, len(row.Scores), len(criteria)))
		}
		values := make([]int, len(criteria))
		for j, c := range criteria {
			v, ok := row.Scores[c]
			if !ok {
				return nil, errors.InvalidInput(fmt.Sprintf("mechanism %q has no score for %q", row.Mechanism, c))
			}
			if v < MinScore || v > MaxScore {
				return nil, errors.InvalidInput(fmt.Sprintf("score %s/%s = %d outside [%d,%d]", row.Mechanism, c, v, MinScore, MaxScore))
			}
			values[j] = v
		}
		m.mechIndex[row.Mechanism] = i
		m.mechanisms = append(m.mechanisms, row.Mechanism)
		m.scores = append(m.scores, values)
	}
	return m, nil
}

func (m *Matrix) Mechanisms() []string { return append([]string(nil), m.mechanisms...) }

func (m *Matrix) Criteria() []string { return append([]string(nil), m.criteria...) }

// Score returns the score of one cell
func (m *Matrix) Score(mechanism, criterion string) (int, error) {
	i, j, err := m.cell(mechanism, criterion)
	if err != nil {
		return 0, err
	}
	return m.scores[i][j], nil
}

// Total sums a mechanism's scores over all criteria
func (m *Matrix) Total(mechanism string) (int, error) {
	i, ok := m.mechIndex[mechanism]
	if !ok {
		return 0, errors.NotFound("mechanism " + mechanism)
	}
	sum := 0
	for _, v := range m.scores[i] {
		sum += v
	}
	return sum, nil
}

// Totals returns every mechanism's total
func (m *Matrix) Totals() map[string]int {
	out := make(map[string]int, len(m.mechanisms))
	for i, name := range m.mechanisms {
		sum := 0
		for _, v := range m.scores[i] {
			sum += v
		}
		out[name] = sum
	}
	return out
}

// Rows exports the matrix in its construction form
func (m *Matrix) Rows() []Row {
	rows := make([]Row, len(m.mechanisms))
	for i, name := range m.mechanisms {
		scores := make(map[string]int, len(m.criteria))
		for j, c := range m.criteria {
			scores[c] = m.scores[i][j]
		}
		rows[i] = Row{Mechanism: name, Scores: scores}
	}
	return rows
}

// Clone returns a deep copy
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{
		mechanisms: append([]string(nil), m.mechanisms...),
		criteria:   append([]string(nil), m.criteria...),
		scores:     make([][]int, len(m.scores)),
		mechIndex:  make(map[string]int, len(m.mechIndex)),
		critIndex:  make(map[string]int, len(m.critIndex)),
	}
	for i, row := range m.scores {
		c.scores[i] = append([]int(nil), row...)
	}
	for k, v := range m.mechIndex {
		c.mechIndex[k] = v
	}
	for k, v := range m.critIndex {
		c.critIndex[k] = v
	}
	return c
}

// Equal reports whether two matrices hold the same names and scores
func (m *Matrix) Equal(o *Matrix) bool {
	if m == nil || o == nil {
		return m == o
	}
	if len(m.mechanisms) != len(o.mechanisms) || len(m.criteria) != len(o.criteria) {
		return false
	}
	for i := range m.mechanisms {
		if m.mechanisms[i] != o.mechanisms[i] {
			return false
		}
	}
	for j := range m.criteria {
		if m.criteria[j] != o.criteria[j] {
			return false
		}
	}
	for i := range m.scores {
		for j := range m.scores[i] {
			if m.scores[i][j] != o.scores[i][j] {
				return false
			}
		}
	}
	return true
}

func (m *Matrix) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s", "")
	for _, c := range m.criteria {
		fmt.Fprintf(&b, " %s", c)
	}
	for i, name := range m.mechanisms {
		fmt.Fprintf(&b, "\n%-12s", name)
		for j, c := range m.criteria {
			fmt.Fprintf(&b, " %*d", len(c), m.scores[i][j])
		}
	}
	return b.String()
}

func (m *Matrix) cell(mechanism, criterion string) (int, int, error) {
	i, ok := m.mechIndex[mechanism]
	if !ok {
		return 0, 0, errors.NotFound("mechanism " + mechanism)
	}
	j, ok := m.critIndex[criterion]
	if !ok {
		return 0, 0, errors.NotFound("criterion " + criterion)
	}
	return i, j, nil
}

// set is reserved for the sweep's working copy
func (m *Matrix) set(i, j, v int) {
	m.scores[i][j] = v
}
