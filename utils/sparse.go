package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// DOK wraps a sparse dictionary-of-keys matrix behind the two-phase build
// contract of a BCRS-style matrix: first declare row sizes and the sparsity
// pattern, then fill values. Values may only be written at declared indices.
type DOK struct {
	M        *sparse.DOK
	nr, nc   int
	rowSizes []int
	pattern  []map[int]struct{}
	sized    bool
	indexed  bool
}

func NewDOK(nr, nc int) (R *DOK) {
	R = &DOK{
		M:        sparse.NewDOK(nr, nc),
		nr:       nr,
		nc:       nc,
		rowSizes: make([]int, nr),
		pattern:  make([]map[int]struct{}, nr),
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m *DOK) Dims() (r, c int)    { return m.nr, m.nc }
func (m *DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m *DOK) T() mat.Matrix      { return m.M.T() }

func (m *DOK) SetRowSize(row, size int) {
	if m.sized {
		panic("SetRowSize called after EndRowSizes")
	}
	m.rowSizes[row] = size
}

func (m *DOK) EndRowSizes() {
	for i := range m.pattern {
		m.pattern[i] = make(map[int]struct{}, m.rowSizes[i])
	}
	m.sized = true
}

func (m *DOK) AddIndex(row, col int) {
	if !m.sized || m.indexed {
		panic("AddIndex called outside the index-declaration phase")
	}
	m.pattern[row][col] = struct{}{}
}

// EndIndices checks the declared pattern against the row sizes.
func (m *DOK) EndIndices() error {
	for i, p := range m.pattern {
		if len(p) > m.rowSizes[i] {
			return fmt.Errorf("row %d: %d indices declared, row size is %d", i, len(p), m.rowSizes[i])
		}
	}
	m.indexed = true
	return nil
}

func (m *DOK) checkIndex(row, col int) {
	if !m.indexed {
		panic("value written before EndIndices")
	}
	if _, ok := m.pattern[row][col]; !ok {
		panic(fmt.Errorf("write at undeclared matrix index (%d,%d)", row, col))
	}
}

func (m *DOK) Set(row, col int, val float64) {
	m.checkIndex(row, col)
	m.M.Set(row, col, val)
}

func (m *DOK) Add(row, col int, val float64) {
	m.checkIndex(row, col)
	m.M.Set(row, col, m.M.At(row, col)+val)
}

// Zero resets all values, keeping the declared pattern. Called at the start
// of every assemble so accumulation is a true sum within one call only.
func (m *DOK) Zero() {
	m.M = sparse.NewDOK(m.nr, m.nc)
}

// ZeroRow clears one row's values (the pattern stays declared). Used for
// pinning ghost rows to identity after the main assembly loop.
func (m *DOK) ZeroRow(row int) {
	for col := range m.pattern[row] {
		m.M.Set(row, col, 0)
	}
}

// ToCSR converts to compressed sparse rows for repeated matrix-vector
// products in the linear solver.
func (m *DOK) ToCSR() *sparse.CSR {
	return m.M.ToCSR()
}

// MulVec computes y = A x using the nonzero structure only.
func (m *DOK) MulVec(x, y []float64) {
	if len(x) != m.nc || len(y) != m.nr {
		panic("dimension mismatch in sparse MulVec")
	}
	for i := range y {
		y[i] = 0
	}
	m.M.DoNonZero(func(i, j int, v float64) {
		y[i] += v * x[j]
	})
}

// Diagonal extracts the main diagonal.
func (m *DOK) Diagonal() (d []float64) {
	d = make([]float64, m.nr)
	for i := 0; i < m.nr; i++ {
		d[i] = m.M.At(i, i)
	}
	return
}
