package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDOKBuildContract(t *testing.T) {
	m := NewDOK(3, 3)
	for i := 0; i < 3; i++ {
		m.SetRowSize(i, 3)
	}
	m.EndRowSizes()
	for i := 0; i < 3; i++ {
		m.AddIndex(i, i)
	}
	m.AddIndex(0, 1)
	m.AddIndex(0, 1) // duplicates are fine, the pattern is a set
	m.AddIndex(1, 0)
	m.AddIndex(1, 2)
	m.AddIndex(2, 1)
	assert.NoError(t, m.EndIndices())

	m.Set(0, 0, 2.0)
	m.Add(0, 0, 0.5)
	m.Set(0, 1, -1.0)
	assert.True(t, near(m.At(0, 0), 2.5))
	assert.True(t, near(m.At(0, 1), -1.0))
	// undeclared entries read as zero
	assert.True(t, m.At(2, 0) == 0)

	// writing an undeclared index panics
	assert.Panics(t, func() { m.Set(2, 0, 1.0) })
}

func TestDOKRowSizeOverflow(t *testing.T) {
	m := NewDOK(2, 2)
	m.SetRowSize(0, 1)
	m.SetRowSize(1, 2)
	m.EndRowSizes()
	m.AddIndex(0, 0)
	m.AddIndex(0, 1) // one more than declared
	m.AddIndex(1, 1)
	assert.Error(t, m.EndIndices())
}

func TestDOKZeroKeepsPattern(t *testing.T) {
	m := NewDOK(2, 2)
	m.SetRowSize(0, 2)
	m.SetRowSize(1, 2)
	m.EndRowSizes()
	m.AddIndex(0, 0)
	m.AddIndex(0, 1)
	m.AddIndex(1, 1)
	assert.NoError(t, m.EndIndices())

	m.Set(0, 0, 1.0)
	m.Set(0, 1, 2.0)
	m.Zero()
	assert.True(t, m.At(0, 0) == 0)
	// pattern survives, values can be written again
	m.Set(0, 1, 3.0)
	assert.True(t, near(m.At(0, 1), 3.0))
}

func TestDOKMulVecAndDiagonal(t *testing.T) {
	m := NewDOK(2, 2)
	m.SetRowSize(0, 2)
	m.SetRowSize(1, 2)
	m.EndRowSizes()
	m.AddIndex(0, 0)
	m.AddIndex(0, 1)
	m.AddIndex(1, 0)
	m.AddIndex(1, 1)
	assert.NoError(t, m.EndIndices())

	m.Set(0, 0, 4.0)
	m.Set(0, 1, 1.0)
	m.Set(1, 0, -1.0)
	m.Set(1, 1, 3.0)

	y := make([]float64, 2)
	m.MulVec([]float64{1.0, 2.0}, y)
	assert.True(t, near(y[0], 6.0))
	assert.True(t, near(y[1], 5.0))

	d := m.Diagonal()
	assert.True(t, near(d[0], 4.0))
	assert.True(t, near(d[1], 3.0))

	m.ZeroRow(0)
	assert.True(t, m.At(0, 0) == 0)
	assert.True(t, m.At(0, 1) == 0)
	assert.True(t, near(m.At(1, 1), 3.0))
}

func TestDOKToCSR(t *testing.T) {
	m := NewDOK(3, 3)
	for i := 0; i < 3; i++ {
		m.SetRowSize(i, 2)
	}
	m.EndRowSizes()
	m.AddIndex(0, 0)
	m.AddIndex(0, 2)
	m.AddIndex(1, 1)
	m.AddIndex(2, 0)
	m.AddIndex(2, 2)
	assert.NoError(t, m.EndIndices())

	m.Set(0, 0, 2.0)
	m.Set(0, 2, -1.0)
	m.Set(1, 1, 3.0)
	m.Set(2, 0, 0.5)
	m.Set(2, 2, 4.0)

	csr := m.ToCSR()
	x := []float64{1.0, 2.0, 3.0}
	want := make([]float64, 3)
	m.MulVec(x, want)

	got := make([]float64, 3)
	csr.DoNonZero(func(i, j int, v float64) {
		got[i] += v * x[j]
	})
	for i := range want {
		assert.True(t, near(got[i], want[i]))
		assert.True(t, near(csr.At(i, i), m.At(i, i)))
	}
}

func near(a, b float64, tolI ...float64) (l bool) {
	var (
		tol float64
	)
	if len(tolI) == 0 {
		tol = 1.e-08
	} else {
		tol = tolI[0]
	}
	bound := math.Max(tol, tol*math.Abs(a))
	if math.Abs(a-b) <= bound {
		l = true
	}
	return
}
