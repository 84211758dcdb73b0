package Flow2D

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pmflow/gompfa/mpfa"
	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/types"
)

// a test scenario with a stronger outflux than the default, so the pressure
// gradient sits well above solver tolerance
func testScenario() *BuckleyLeverett {
	p := NewBuckleyLeverett(10, 2, 1.0, 0.2)
	p.OutflowFlux = 3e-2
	return p
}

func TestBuckleyLeverettSetup(t *testing.T) {
	p := testScenario()
	m := p.Mesh()

	for i := 0; i < p.Vars.NumCells(); i++ {
		cd := p.Vars.CellData(i)
		assert.True(t, near(cd.Saturation(types.WPhase), 0.2))
		assert.True(t, near(cd.Saturation(types.NPhase), 0.8))
	}

	inflow, outflow, noflow := 0, 0, 0
	for c := 0; c < m.NumCells(); c++ {
		for f := 0; f < m.NumFaces(c); f++ {
			if !m.OnBoundary(c, f) {
				continue
			}
			bt := p.BoundaryTypes(c, f)
			x := m.FaceCenter(c, f)[0]
			switch {
			case x < boundaryEps:
				assert.True(t, bt.IsDirichlet(types.PressEqIdx))
				inflow++
			case x > 1.0-boundaryEps:
				assert.True(t, bt.IsNeumann(types.PressEqIdx))
				assert.True(t, p.Neumann(c, f)[types.NPhase] > 0)
				outflow++
			default:
				assert.True(t, bt.IsNeumann(types.PressEqIdx))
				assert.True(t, p.Neumann(c, f)[types.NPhase] == 0)
				noflow++
			}
		}
	}
	assert.Equal(t, 2, inflow)
	assert.Equal(t, 2, outflow)
	assert.Equal(t, 20, noflow)
}

func TestSimulationInitialize(t *testing.T) {
	p := testScenario()
	m := p.Mesh()
	sim, err := NewSimulation(p, types.DefaultModelConfig(), "L", 1e6, 0.1)
	assert.NoError(t, err)
	assert.NoError(t, sim.Initialize())

	// pressure decreases from the inflow toward the outflow side
	press := sim.Pressure.Pressure()
	for c := 0; c < m.NumCells(); c++ {
		for f := 0; f < m.NumFaces(c); f++ {
			nb := m.Neighbor(c, f).Cell
			if nb < 0 {
				continue
			}
			dx := m.CellCenter(nb)[0] - m.CellCenter(c)[0]
			if dx > 1e-9 {
				assert.True(t, press.DataP[c] > press.DataP[nb],
					"pressure not decreasing between x=%g and x=%g",
					m.CellCenter(c)[0], m.CellCenter(nb)[0])
			}
		}
		assert.True(t, near(press.DataP[c], p.InflowPressure, 1.e-3))
	}

	// the outflow faces carry the imposed nonwetting flux; no water leaves
	want := p.OutflowFlux / 1000.0 // volume flux, m/s
	for c := 0; c < m.NumCells(); c++ {
		for f := 0; f < m.NumFaces(c); f++ {
			if !m.OnBoundary(c, f) || m.FaceCenter(c, f)[0] < 1.0-boundaryEps {
				continue
			}
			fd := p.Vars.CellData(c).FluxData()
			vn := fd.Velocity(types.NPhase, f)
			assert.True(t, near(vn[0], want, 1.e-6), "outflow velocity %g, want %g", vn[0], want)
			vw := fd.Velocity(types.WPhase, f)
			assert.True(t, math.Abs(vw[0]) < 1e-12)
		}
	}
}

func TestSimulationSteps(t *testing.T) {
	p := testScenario()
	m := p.Mesh()
	sim, err := NewSimulation(p, types.DefaultModelConfig(), "L", 1e6, 0.1)
	assert.NoError(t, err)
	assert.NoError(t, sim.Initialize())

	for i := 0; i < 3; i++ {
		dt, err := sim.Step()
		assert.NoError(t, err)
		assert.True(t, dt > 0)
	}
	assert.True(t, sim.Time > 0)

	// water enters at the inflow; the front has not reached the outflow yet
	for c := 0; c < m.NumCells(); c++ {
		sw := p.Vars.CellData(c).Saturation(types.WPhase)
		x := m.CellCenter(c)[0]
		if x < 0.1 {
			assert.True(t, sw > 0.2, "inflow cell at x=%g: Sw = %g", x, sw)
		}
		if x > 0.9 {
			assert.True(t, near(sw, 0.2, 1.e-3), "outflow cell at x=%g: Sw = %g", x, sw)
		}
		assert.True(t, sw > 0.19 && sw < 1.01)
	}
}

func TestSimulationNeedsTimeController(t *testing.T) {
	p := testScenario()
	// hide the time-stepping hooks behind the bare Problem interface
	wrapped := struct{ twophase.Problem }{p}
	_, err := NewSimulation(wrapped, types.DefaultModelConfig(), "L", 1e6, 0.1)
	assert.ErrorIs(t, err, types.ErrUnsupportedConfig)
}

func TestSimulationMethodSelection(t *testing.T) {
	for _, method := range []string{"L", ""} {
		sim, err := NewSimulation(testScenario(), types.DefaultModelConfig(), method, 1e6, 0.1)
		assert.NoError(t, err)
		_, ok := sim.Pressure.(*mpfa.LPressure)
		assert.True(t, ok, "method %q: expected the L-method assembler", method)
	}

	sim, err := NewSimulation(testScenario(), types.DefaultModelConfig(), "O", 1e6, 0.1)
	assert.NoError(t, err)
	_, ok := sim.Pressure.(*mpfa.OPressure)
	assert.True(t, ok, "method O: expected the O-method assembler")
	assert.NoError(t, sim.Initialize())

	_, err = NewSimulation(testScenario(), types.DefaultModelConfig(), "Q", 1e6, 0.1)
	assert.ErrorIs(t, err, types.ErrUnsupportedConfig)
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
