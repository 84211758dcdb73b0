package mpfa

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pmflow/gompfa/mesh"
	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/types"
)

// uniformProblem is a no-flow box with unit total mobility: Sw = 1 and
// linear relative permeabilities make the wetting mobility 1 and the
// nonwetting mobility 0.
func uniformProblem(m mesh.Mesh, k float64) *twophase.BaseProblem {
	p := twophase.NewBaseProblem(m, twophase.UnitFluid(),
		mesh.IsotropicTensor(k), twophase.NoCapillarity{})
	for i := 0; i < p.Vars.NumCells(); i++ {
		cd := p.Vars.CellData(i)
		cd.SetSaturation(types.WPhase, 1.0)
		cd.SetSaturation(types.NPhase, 0.0)
	}
	twophase.UpdateMaterialLaws(p)
	return p
}

func TestInteractionVolumeGeometry(t *testing.T) {
	m := mesh.NewStructured(2, 2, 2.0, 2.0)
	p := uniformProblem(m, 1.0)

	ivs, _, err := buildInteractionVolumes(p, sharedNormals, true)
	assert.NoError(t, err)
	assert.Equal(t, m.NumVertices(), len(ivs))

	// the center vertex at (1,1) joins all four cells
	var center *InteractionVolume
	for v := range ivs {
		if !ivs[v].IsStored() || !ivs[v].IsInnerVolume() {
			continue
		}
		center = &ivs[v]
	}
	assert.NotNil(t, center)
	assert.True(t, near(center.CenterPosition()[0], 1.0))
	assert.True(t, near(center.CenterPosition()[1], 1.0))

	// sub-volume 0 is the cell that stored the volume; all four slots hold
	// distinct cells
	seen := make(map[int]bool)
	for i := 0; i < 4; i++ {
		e := center.SubVolumeElement(i)
		assert.True(t, e >= 0)
		seen[e] = true
	}
	assert.Equal(t, 4, len(seen))

	// half faces: length 0.5 on a unit-cell grid, unit normals
	for i := 0; i < 4; i++ {
		for f := 0; f < 2; f++ {
			assert.True(t, near(center.FaceArea(i, f), 0.5))
			assert.True(t, near(center.Normal(i, f).Norm(), 1.0))
		}
	}

	// the O-method stores one shared normal per interaction volume face, so
	// the two slots of a face agree
	for k := 0; k < 4; k++ {
		n1 := center.Normal(k, 0)
		n2 := center.Normal((k+1)%4, 1)
		assert.True(t, near(n1[0], n2[0]))
		assert.True(t, near(n1[1], n2[1]))
	}
}

func TestOutwardNormalsFlipped(t *testing.T) {
	m := mesh.NewStructured(2, 2, 2.0, 2.0)
	p := uniformProblem(m, 1.0)

	ivs, _, err := buildInteractionVolumes(p, outwardNormals, false)
	assert.NoError(t, err)

	for v := range ivs {
		iv := &ivs[v]
		if !iv.IsStored() || !iv.IsInnerVolume() {
			continue
		}
		// each interaction volume face sees opposite normals from its two
		// sub-volumes
		for k := 0; k < 4; k++ {
			n1 := iv.Normal(k, 0)
			n2 := iv.Normal((k+1)%4, 1)
			assert.True(t, near(n1[0], -n2[0]))
			assert.True(t, near(n1[1], -n2[1]))
		}
	}
}

func TestIdempotentRebuild(t *testing.T) {
	m := mesh.NewStructured(3, 3, 3.0, 3.0)
	p := uniformProblem(m, 1e-12)

	s, err := newPressureSolver(p, types.DefaultModelConfig(), sharedNormals, true)
	assert.NoError(t, err)
	assert.NoError(t, s.UpdateInteractionVolumeInfo())
	first := make([]InteractionVolume, len(s.interactionVolumes))
	copy(first, s.interactionVolumes)

	assert.NoError(t, s.UpdateInteractionVolumeInfo())
	for v := range first {
		assert.Equal(t, first[v], s.interactionVolumes[v])
	}
}

func TestBoundaryVolumeMarks(t *testing.T) {
	m := mesh.NewStructured(2, 2, 2.0, 2.0)
	p := uniformProblem(m, 1.0)

	ivs, _, err := buildInteractionVolumes(p, sharedNormals, true)
	assert.NoError(t, err)

	inner, boundary := 0, 0
	for v := range ivs {
		if !ivs[v].IsStored() {
			continue
		}
		if ivs[v].IsInnerVolume() {
			inner++
		} else {
			boundary++
		}
	}
	// 3x3 vertices: one interior, four corners, four edge midpoints
	assert.Equal(t, 1, inner)
	assert.Equal(t, 8, boundary)
}

func TestHangingNodeVolumeArity(t *testing.T) {
	coarse := mesh.NewStructured(2, 2, 2.0, 2.0)
	m, err := coarse.RefineCells([]bool{true, false, false, false})
	assert.NoError(t, err)
	assert.True(t, m.HasHangingNodes())

	p := uniformProblem(m, 1.0)
	ivs, _, err := buildInteractionVolumes(p, outwardNormals, false)
	assert.NoError(t, err)

	hanging := 0
	for v := range ivs {
		iv := &ivs[v]
		if !iv.IsStored() || !iv.IsHangingNodeVolume() {
			continue
		}
		hanging++
		// exactly three sub-volumes: slots 0, 1 fine, slot 3 coarse,
		// slot 2 empty
		assert.True(t, iv.SubVolumeElement(0) >= 0)
		assert.True(t, iv.SubVolumeElement(1) >= 0)
		assert.True(t, iv.SubVolumeElement(2) < 0)
		assert.True(t, iv.SubVolumeElement(3) >= 0)
		assert.True(t, m.WasRefined(iv.SubVolumeElement(0)))
		assert.True(t, m.WasRefined(iv.SubVolumeElement(1)))
		assert.False(t, m.WasRefined(iv.SubVolumeElement(3)))
	}
	// one refined cell leaves two hanging vertices
	assert.Equal(t, 2, hanging)
}

func TestHangingNodeRejectedBySharedNormals(t *testing.T) {
	coarse := mesh.NewStructured(2, 2, 2.0, 2.0)
	m, err := coarse.RefineCells([]bool{true, false, false, false})
	assert.NoError(t, err)

	p := uniformProblem(m, 1.0)
	_, _, err = buildInteractionVolumes(p, sharedNormals, true)
	assert.ErrorIs(t, err, types.ErrBoundaryShape)
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
