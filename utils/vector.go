package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vector wraps a gonum VecDense with raw slice access, following the same
// pattern as Matrix.
type Vector struct {
	V     *mat.VecDense
	DataP []float64
}

func NewVector(n int, dataO ...[]float64) (R Vector) {
	var v *mat.VecDense
	if len(dataO) != 0 {
		if len(dataO[0]) != n {
			err := fmt.Errorf("mismatch in allocation: NewVector n = %v, len(data[0]) = %v",
				n, len(dataO[0]))
			panic(err)
		}
		v = mat.NewVecDense(n, dataO[0])
	} else {
		v = mat.NewVecDense(n, make([]float64, n))
	}
	R = Vector{
		V:     v,
		DataP: v.RawVector().Data,
	}
	return
}

func NewVectorConst(n int, val float64) (R Vector) {
	R = NewVector(n)
	for i := range R.DataP {
		R.DataP[i] = val
	}
	return
}

func (v Vector) Len() int              { return len(v.DataP) }
func (v Vector) AtVec(i int) float64   { return v.DataP[i] }
func (v Vector) Data() []float64       { return v.DataP }
func (v Vector) Set(i int, val float64) Vector {
	v.DataP[i] = val
	return v
}

func (v Vector) Copy() (R Vector) {
	R = NewVector(v.Len())
	copy(R.DataP, v.DataP)
	return
}

func (v Vector) Zero() Vector {
	for i := range v.DataP {
		v.DataP[i] = 0
	}
	return v
}

func (v Vector) Add(i int, val float64) Vector {
	v.DataP[i] += val
	return v
}

func (v Vector) Scale(a float64) Vector {
	for i := range v.DataP {
		v.DataP[i] *= a
	}
	return v
}

func (v Vector) Dot(w Vector) (d float64) {
	if v.Len() != w.Len() {
		panic("dimension mismatch in Dot")
	}
	for i, val := range v.DataP {
		d += val * w.DataP[i]
	}
	return
}

func (v Vector) Norm() (n float64) {
	for _, val := range v.DataP {
		n += val * val
	}
	return math.Sqrt(n)
}

func (v Vector) Min() (min float64) {
	min = math.Inf(1)
	for _, val := range v.DataP {
		if val < min {
			min = val
		}
	}
	return
}

func (v Vector) Max() (max float64) {
	max = math.Inf(-1)
	for _, val := range v.DataP {
		if val > max {
			max = val
		}
	}
	return
}
