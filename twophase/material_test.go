package twophase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pmflow/gompfa/mesh"
	"github.com/pmflow/gompfa/types"
)

func TestBrooksCorey(t *testing.T) {
	bc := BrooksCorey{EntryPressure: 1e4, Lambda: 2.0, ResidualW: 0.2, ResidualN: 0.2}

	// Se(0.5) = 0.5
	assert.True(t, near(bc.Pc(0.5), 1e4*math.Sqrt2))
	assert.True(t, near(bc.Krw(0.5), 0.0625))
	assert.True(t, near(bc.Krn(0.5), 0.1875))

	// fully saturated
	assert.True(t, near(bc.Pc(1.0), 1e4))
	assert.True(t, near(bc.Krw(1.0), 1.0))
	assert.True(t, bc.Krn(1.0) == 0)

	// below residual the entry pressure blows up but stays finite
	assert.True(t, bc.Pc(0.1) > bc.Pc(0.5))
	assert.True(t, bc.Krw(0.1) == 0)
}

func TestLinearLaw(t *testing.T) {
	l := LinearLaw{EntryPressure: 1e3, MaxPc: 1e4}
	assert.True(t, near(l.Pc(0.4), 6400.0))
	assert.True(t, near(l.Pc(1.0), 1e3))
	assert.True(t, near(l.Pc(0.0), 1e4))
	assert.True(t, near(l.Krw(0.4), 0.4))
	assert.True(t, near(l.Krn(0.4), 0.6))
}

func TestNoCapillarity(t *testing.T) {
	n := NoCapillarity{}
	assert.True(t, n.Pc(0.3) == 0)
	assert.True(t, near(n.Krw(0.3), 0.3))
	assert.True(t, near(n.Krn(0.3), 0.7))
	assert.True(t, n.Krw(-0.5) == 0)
	assert.True(t, near(n.Krn(-0.5), 1.0))
}

func TestUpdateMaterialLaws(t *testing.T) {
	m := mesh.NewStructured(2, 1, 2.0, 1.0)
	fs := NewFluidSystem(1000.0, 1000.0, 1e-3, 1e-5)
	p := NewBaseProblem(m, fs, mesh.IsotropicTensor(1e-12), NoCapillarity{})

	p.Vars.CellData(0).SetSaturation(types.WPhase, 0.5)
	p.Vars.CellData(0).SetSaturation(types.NPhase, 0.5)
	UpdateMaterialLaws(p)

	cd := p.Vars.CellData(0)
	assert.True(t, near(cd.Mobility(types.WPhase), 0.5/1e-3))
	assert.True(t, near(cd.Mobility(types.NPhase), 0.5/1e-5))
	assert.True(t, cd.CapillaryPressure() == 0)

	// fractional flows sum to one and favor the low-viscosity phase
	fw := cd.FracFlowFunc(types.WPhase)
	fn := cd.FracFlowFunc(types.NPhase)
	assert.True(t, near(fw+fn, 1.0))
	assert.True(t, fn > fw)
	assert.True(t, near(fw, 500.0/(500.0+50000.0)))
}

func TestBBoxMax(t *testing.T) {
	m := mesh.NewStructured(3, 2, 1.5, 4.0)
	p := NewBaseProblem(m, UnitFluid(), mesh.IsotropicTensor(1.0), NoCapillarity{})
	max := p.BBoxMax()
	assert.True(t, near(max[0], 1.5))
	assert.True(t, near(max[1], 4.0))
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
