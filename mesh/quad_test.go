package mesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuredGeometry(t *testing.T) {
	m := NewStructured(3, 2, 3.0, 1.0)
	assert.Equal(t, 6, m.NumCells())
	assert.Equal(t, 12, m.NumVertices())

	for c := 0; c < m.NumCells(); c++ {
		assert.True(t, near(m.CellVolume(c), 0.5))
		for f := 0; f < m.NumFaces(c); f++ {
			n := m.FaceUnitNormal(c, f)
			assert.True(t, near(n.Norm(), 1.0))
			// the outward normal points from the cell center to the face
			d := m.FaceCenter(c, f).Sub(m.CellCenter(c))
			assert.True(t, d.Dot(n) > 0)
		}
	}

	// first cell spans [0,1] x [0,0.5]
	ctr := m.CellCenter(0)
	assert.True(t, near(ctr[0], 0.5))
	assert.True(t, near(ctr[1], 0.25))
}

func TestAdjacencySymmetry(t *testing.T) {
	m := NewStructured(4, 3, 4.0, 3.0)
	boundaryFaces := 0
	for c := 0; c < m.NumCells(); c++ {
		for f := 0; f < m.NumFaces(c); f++ {
			if m.OnBoundary(c, f) {
				boundaryFaces++
				assert.Equal(t, -1, m.Neighbor(c, f).Cell)
				continue
			}
			a := m.Neighbor(c, f)
			back := m.Neighbor(a.Cell, a.Face)
			assert.Equal(t, c, back.Cell)
			assert.Equal(t, f, back.Face)
			// shared face, opposite orientation
			assert.True(t, near(m.FaceUnitNormal(c, f).Dot(m.FaceUnitNormal(a.Cell, a.Face)), -1.0))
		}
	}
	assert.Equal(t, 2*4+2*3, boundaryFaces)
}

func TestRefineCells(t *testing.T) {
	coarse := NewStructured(2, 2, 2.0, 2.0)
	m, err := coarse.RefineCells([]bool{true, false, false, false})
	assert.NoError(t, err)
	assert.Equal(t, 7, m.NumCells())

	total := 0.0
	fine := 0
	for c := 0; c < m.NumCells(); c++ {
		total += m.CellVolume(c)
		if m.WasRefined(c) {
			fine++
			assert.True(t, near(m.CellVolume(c), 0.25))
		} else {
			assert.True(t, near(m.CellVolume(c), 1.0))
		}
	}
	assert.True(t, near(total, 4.0))
	assert.Equal(t, 4, fine)

	// the two coarse faces against the refined cell split into half-face
	// pairs; their midpoints are the hanging nodes
	assert.True(t, m.HasHangingNodes())
	hanging := 0
	for v := 0; v < m.NumVertices(); v++ {
		if !m.IsHangingNode(v) {
			continue
		}
		hanging++
		pos := m.VertexPosition(v)
		onFine := pos == Point{1.0, 0.5} || pos == Point{0.5, 1.0}
		assert.True(t, onFine, "unexpected hanging node at %v", pos)
	}
	assert.Equal(t, 2, hanging)

	splitFaces := 0
	for c := 0; c < m.NumCells(); c++ {
		for f := 0; f < m.NumFaces(c); f++ {
			adj := m.Neighbors(c, f)
			if len(adj) != 2 {
				continue
			}
			splitFaces++
			assert.False(t, m.WasRefined(c))
			for _, a := range adj {
				assert.True(t, m.WasRefined(a.Cell))
				// the fine half-face sees the coarse cell as its single neighbor
				assert.Equal(t, c, m.Neighbor(a.Cell, a.Face).Cell)
				assert.True(t, near(m.FaceArea(a.Cell, a.Face), 0.5*m.FaceArea(c, f)))
			}
		}
	}
	assert.Equal(t, 2, splitFaces)
}

func TestRefineCellsBadMarks(t *testing.T) {
	m := NewStructured(2, 2, 2.0, 2.0)
	_, err := m.RefineCells([]bool{true})
	assert.Error(t, err)
}

func TestTensorApply(t *testing.T) {
	k := Tensor{2, 1, 1, 3}
	v := k.Apply(Point{1, 1})
	assert.True(t, near(v[0], 3.0))
	assert.True(t, near(v[1], 4.0))

	iso := IsotropicTensor(1e-12)
	w := iso.Apply(Point{2, -1})
	assert.True(t, near(w[0], 2e-12))
	assert.True(t, near(w[1], -1e-12))
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
