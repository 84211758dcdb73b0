package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrixInverse2x2(t *testing.T) {
	m := NewMatrix(2, 2, []float64{4, 7, 2, 6})
	assert.NoError(t, m.Inverse())
	assert.True(t, near(m.At(0, 0), 0.6))
	assert.True(t, near(m.At(0, 1), -0.7))
	assert.True(t, near(m.At(1, 0), -0.2))
	assert.True(t, near(m.At(1, 1), 0.4))

	s := NewMatrix(2, 2, []float64{1, 2, 2, 4})
	assert.Error(t, s.Inverse())
}

func TestMatrixInverse4x4(t *testing.T) {
	data := []float64{
		2, 0, 0, 1,
		0, 3, 1, 0,
		0, 1, 4, 0,
		1, 0, 0, 5,
	}
	m := NewMatrix(4, 4, data)
	orig := NewMatrix(4, 4, []float64{
		2, 0, 0, 1,
		0, 3, 1, 0,
		0, 1, 4, 0,
		1, 0, 0, 5,
	})
	assert.NoError(t, m.Inverse())

	id := orig.Mul(m)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.True(t, near(id.At(i, j), want, 1.e-12))
		}
	}
}

func TestMatrixMulAndScale(t *testing.T) {
	a := NewMatrix(2, 3, []float64{1, 2, 3, 4, 5, 6})
	b := NewMatrix(3, 2, []float64{7, 8, 9, 10, 11, 12})
	c := a.Mul(b)
	assert.True(t, near(c.At(0, 0), 58.0))
	assert.True(t, near(c.At(0, 1), 64.0))
	assert.True(t, near(c.At(1, 0), 139.0))
	assert.True(t, near(c.At(1, 1), 154.0))

	x := a.MulVec([]float64{1, 0, -1})
	assert.True(t, near(x[0], -2.0))
	assert.True(t, near(x[1], -2.0))

	a.Scale(2.0)
	assert.True(t, near(a.At(1, 2), 12.0))
}

func TestVectorOps(t *testing.T) {
	v := NewVector(3, []float64{3, 4, 0})
	assert.True(t, near(v.Norm(), 5.0))
	assert.True(t, near(v.Dot(NewVectorConst(3, 1.0)), 7.0))
	assert.True(t, near(v.Min(), 0.0))
	assert.True(t, near(v.Max(), 4.0))

	w := v.Copy()
	w.Scale(2.0)
	assert.True(t, near(w.AtVec(1), 8.0))
	assert.True(t, near(v.AtVec(1), 4.0)) // copy does not alias

	w.Zero()
	assert.True(t, w.Norm() == 0)
}
