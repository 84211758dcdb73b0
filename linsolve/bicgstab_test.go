package linsolve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pmflow/gompfa/utils"
)

func denseToDOK(n int, data []float64) *utils.DOK {
	m := utils.NewDOK(n, n)
	for i := 0; i < n; i++ {
		m.SetRowSize(i, n)
	}
	m.EndRowSizes()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if data[i*n+j] != 0 {
				m.AddIndex(i, j)
			}
		}
	}
	if err := m.EndIndices(); err != nil {
		panic(err)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if data[i*n+j] != 0 {
				m.Set(i, j, data[i*n+j])
			}
		}
	}
	return m
}

func TestBiCGStabSPD(t *testing.T) {
	// 1D Laplacian with Dirichlet ends
	a := denseToDOK(4, []float64{
		2, -1, 0, 0,
		-1, 2, -1, 0,
		0, -1, 2, -1,
		0, 0, -1, 2,
	})
	want := []float64{1.0, 2.0, 3.0, 4.0}
	b := utils.NewVector(4)
	a.MulVec(want, b.DataP)

	x := utils.NewVector(4)
	res, err := BiCGStab(a, b, x, DefaultOptions())
	assert.NoError(t, err)
	assert.True(t, res.Residual <= DefaultOptions().Tolerance)
	for i := range want {
		assert.True(t, near(x.DataP[i], want[i], 1.e-10))
	}
}

func TestBiCGStabNonSymmetric(t *testing.T) {
	// upwind-type matrix, the kind mobility contrasts produce
	a := denseToDOK(3, []float64{
		3, -2, 0,
		-1, 3, -2,
		0, -1, 3,
	})
	want := []float64{2.0, -1.0, 0.5}
	b := utils.NewVector(3)
	a.MulVec(want, b.DataP)

	x := utils.NewVector(3)
	_, err := BiCGStab(a, b, x, DefaultOptions())
	assert.NoError(t, err)
	for i := range want {
		assert.True(t, near(x.DataP[i], want[i], 1.e-10))
	}
}

func TestBiCGStabZeroRHS(t *testing.T) {
	a := denseToDOK(2, []float64{2, -1, -1, 2})
	b := utils.NewVector(2)
	x := utils.NewVector(2, []float64{5.0, -3.0})
	res, err := BiCGStab(a, b, x, DefaultOptions())
	assert.NoError(t, err)
	assert.Equal(t, 0, res.Iterations)
	assert.True(t, x.Norm() == 0)
}

func TestBiCGStabDimensionMismatch(t *testing.T) {
	a := denseToDOK(2, []float64{2, -1, -1, 2})
	b := utils.NewVector(3)
	x := utils.NewVector(2)
	_, err := BiCGStab(a, b, x, DefaultOptions())
	assert.Error(t, err)
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
