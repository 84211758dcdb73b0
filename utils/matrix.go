package utils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix wraps a gonum Dense matrix with direct access to the backing slice.
// Local MPFA systems are small (2x2 up to 4x4), so most operations work on
// DataP directly and only fall back to gonum for general inversion.
type Matrix struct {
	M     *mat.Dense
	DataP []float64
	nr    int
	nc    int
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v",
				nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{
		M:     m,
		DataP: m.RawMatrix().Data,
		nr:    nr,
		nc:    nc,
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)    { return m.nr, m.nc }
func (m Matrix) At(i, j int) float64 { return m.DataP[i*m.nc+j] }
func (m Matrix) T() mat.Matrix       { return m.M.T() }

func (m Matrix) Set(i, j int, val float64) Matrix {
	m.DataP[i*m.nc+j] = val
	return m
}

func (m Matrix) Add(i, j int, val float64) Matrix {
	m.DataP[i*m.nc+j] += val
	return m
}

func (m Matrix) Data() []float64 { return m.DataP }

func (m Matrix) Copy() (R Matrix) {
	R = NewMatrix(m.nr, m.nc)
	copy(R.DataP, m.DataP)
	return
}

func (m Matrix) Zero() Matrix {
	for i := range m.DataP {
		m.DataP[i] = 0
	}
	return m
}

func (m Matrix) Scale(a float64) Matrix {
	for i := range m.DataP {
		m.DataP[i] *= a
	}
	return m
}

// Mul returns m times A in a new matrix.
func (m Matrix) Mul(A Matrix) (R Matrix) {
	var (
		nrM, ncM = m.Dims()
		nrA, ncA = A.Dims()
	)
	if ncM != nrA {
		panic(fmt.Errorf("dimension mismatch in Mul: [%d x %d] times [%d x %d]", nrM, ncM, nrA, ncA))
	}
	R = NewMatrix(nrM, ncA)
	for i := 0; i < nrM; i++ {
		for k := 0; k < ncM; k++ {
			mik := m.DataP[i*ncM+k]
			if mik == 0 {
				continue
			}
			for j := 0; j < ncA; j++ {
				R.DataP[i*ncA+j] += mik * A.DataP[k*ncA+j]
			}
		}
	}
	return
}

// MulVec applies m to the vector b.
func (m Matrix) MulVec(b []float64) (x []float64) {
	if len(b) != m.nc {
		panic(fmt.Errorf("dimension mismatch in MulVec: [%d x %d] times [%d]", m.nr, m.nc, len(b)))
	}
	x = make([]float64, m.nr)
	for i := 0; i < m.nr; i++ {
		var sum float64
		for j := 0; j < m.nc; j++ {
			sum += m.DataP[i*m.nc+j] * b[j]
		}
		x[i] = sum
	}
	return
}

// AddM accumulates A into m elementwise.
func (m Matrix) AddM(A Matrix) Matrix {
	if m.nr != A.nr || m.nc != A.nc {
		panic("dimension mismatch in AddM")
	}
	for i, v := range A.DataP {
		m.DataP[i] += v
	}
	return m
}

// Inverse inverts m in place. 2x2 matrices are inverted explicitly since
// they sit on the hot path of the transmissibility calculation; larger
// systems go through gonum.
func (m Matrix) Inverse() error {
	if m.nr != m.nc {
		return fmt.Errorf("cannot invert non-square [%d x %d] matrix", m.nr, m.nc)
	}
	if m.nr == 2 {
		a, b := m.DataP[0], m.DataP[1]
		c, d := m.DataP[2], m.DataP[3]
		det := a*d - b*c
		if det == 0 {
			return fmt.Errorf("singular 2x2 matrix in Inverse")
		}
		oodet := 1. / det
		m.DataP[0] = d * oodet
		m.DataP[1] = -b * oodet
		m.DataP[2] = -c * oodet
		m.DataP[3] = a * oodet
		return nil
	}
	var inv mat.Dense
	if err := inv.Inverse(m.M); err != nil {
		return fmt.Errorf("unable to invert [%d x %d] matrix: %w", m.nr, m.nc, err)
	}
	copy(m.DataP, inv.RawMatrix().Data)
	return nil
}

func (m Matrix) String() (out string) {
	out = "\n"
	for i := 0; i < m.nr; i++ {
		for j := 0; j < m.nc; j++ {
			out += fmt.Sprintf("%11.4e ", m.DataP[i*m.nc+j])
		}
		out += "\n"
	}
	return
}
