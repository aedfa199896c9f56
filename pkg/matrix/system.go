package matrix

import (
	"errors"
	"fmt"
	"io"

	"github.com/edp1096/sparse"
)

var ErrIndexOutOfRange = errors.New("matrix: index out of range")

type entry struct {
	i, j  int
	value float64
}

// SystemMatrix is a real sparse linear system A x = b with 1-based indexing.
type SystemMatrix struct {
	Size     int
	matrix   *sparse.Matrix
	rhs      []float64
	solution []float64
	entries  []entry // stamped values, kept for residual evaluation
	config   *sparse.Configuration
	factored bool
	err      error
}

func NewMatrix(size int) (*SystemMatrix, error) {
	if size <= 0 {
		return nil, fmt.Errorf("matrix: invalid size %d", size)
	}

	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 false,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               true, // re-stamping after Factor needs translated indices
		ModifiedNodal:           false,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %w", err)
	}

	return &SystemMatrix{
		Size:     size,
		matrix:   mat,
		rhs:      make([]float64, size+1), // 1-based indexing
		solution: make([]float64, size+1),
		config:   config,
	}, nil
}

func (m *SystemMatrix) AddElement(i, j int, value float64) {
	if i <= 0 || j <= 0 || i > m.Size || j > m.Size {
		m.recordErr(fmt.Errorf("%w: (i=%d, j=%d, size=%d)", ErrIndexOutOfRange, i, j, m.Size))
		return
	}
	m.matrix.GetElement(int64(i), int64(j)).Real += value
	m.entries = append(m.entries, entry{i, j, value})
}

func (m *SystemMatrix) AddRHS(i int, value float64) {
	if i <= 0 || i > m.Size {
		m.recordErr(fmt.Errorf("%w: rhs (i=%d, size=%d)", ErrIndexOutOfRange, i, m.Size))
		return
	}
	m.rhs[i] += value
}

func (m *SystemMatrix) recordErr(err error) {
	if m.err == nil {
		m.err = err
	}
}

// Err reports the first out of range stamp since the last Clear.
func (m *SystemMatrix) Err() error {
	return m.err
}

func (m *SystemMatrix) Clear() {
	m.matrix.Clear()
	for i := range m.rhs {
		m.rhs[i] = 0
	}
	m.entries = m.entries[:0]
	m.factored = false
	m.err = nil
}

func (m *SystemMatrix) Solve() error {
	solution, err := m.SolveWith(m.rhs)
	if err != nil {
		return err
	}
	m.solution = solution

	return nil
}

// SolveWith solves A x = rhs for a 1-based rhs, factoring A once per Clear.
func (m *SystemMatrix) SolveWith(rhs []float64) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(rhs) != m.Size+1 {
		return nil, fmt.Errorf("%w: rhs length %d for size %d", ErrIndexOutOfRange, len(rhs), m.Size)
	}

	if !m.factored {
		if err := m.matrix.Factor(); err != nil {
			return nil, fmt.Errorf("matrix factorization failed: %w", err)
		}
		m.factored = true
	}

	b := make([]float64, len(rhs))
	copy(b, rhs)
	solution, err := m.matrix.Solve(b)
	if err != nil {
		return nil, fmt.Errorf("matrix solve failed: %w", err)
	}

	return solution, nil
}

// Residual returns b - A x for a 1-based x of length Size+1.
func (m *SystemMatrix) Residual(x []float64) []float64 {
	r := make([]float64, m.Size+1)
	copy(r, m.rhs)
	for _, e := range m.entries {
		r[e.i] -= e.value * x[e.j]
	}
	r[0] = 0
	return r
}

func (m *SystemMatrix) RHS() []float64 {
	return m.rhs
}

func (m *SystemMatrix) Solution() []float64 {
	return m.solution
}

func (m *SystemMatrix) PrintSystem(w io.Writer) {
	fmt.Fprintf(w, "\nSystem (%dx%d):\n", m.Size, m.Size)

	rows := make(map[int][]entry)
	for _, e := range m.entries {
		rows[e.i] = append(rows[e.i], e)
	}
	for i := 1; i <= m.Size; i++ {
		fmt.Fprintf(w, "Equation %d:", i)
		for _, e := range rows[i] {
			fmt.Fprintf(w, "  %+g*x%d", e.value, e.j)
		}
		fmt.Fprintf(w, " = %g\n", m.rhs[i])
	}
}

func (m *SystemMatrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
		m.matrix = nil
	}
}
