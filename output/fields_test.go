package output

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pmflow/gompfa/mesh"
	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/types"
)

func testProblem() (*twophase.BaseProblem, mesh.Mesh) {
	m := mesh.NewStructured(2, 2, 2.0, 2.0)
	p := twophase.NewBaseProblem(m, twophase.UnitFluid(),
		mesh.IsotropicTensor(1e-12), twophase.NoCapillarity{})
	for i := 0; i < p.Vars.NumCells(); i++ {
		cd := p.Vars.CellData(i)
		cd.SetPressure(types.WPhase, 1e5+float64(i))
		cd.SetPressure(types.NPhase, 2e5+float64(i))
		cd.SetSaturation(types.WPhase, 0.25)
		cd.SetSaturation(types.NPhase, 0.75)
		cd.SetCapillaryPressure(1e5)
	}
	return p, m
}

func TestCollectCellFieldsLevels(t *testing.T) {
	p, _ := testProblem()
	cfg := types.DefaultModelConfig()

	f := CollectCellFields(p, cfg, 0)
	assert.Equal(t, []string{"pressure pw", "saturation Sw"}, f.ScalarNames())
	assert.Equal(t, 0, len(f.VectorNames()))

	pw, err := f.Scalar("pressure pw")
	assert.NoError(t, err)
	assert.True(t, near(pw[3], 1e5+3.0))
	sw, err := f.Scalar("saturation Sw")
	assert.NoError(t, err)
	assert.True(t, near(sw[0], 0.25))

	_, err = f.Scalar("capillary pressure")
	assert.Error(t, err)

	f = CollectCellFields(p, cfg, 1)
	assert.Equal(t, []string{"pressure pw", "saturation Sw", "pressure pn", "capillary pressure"},
		f.ScalarNames())
	assert.Equal(t, []string{"velocity wetting", "velocity nonwetting"}, f.VectorNames())

	pn, err := f.Scalar("pressure pn")
	assert.NoError(t, err)
	assert.True(t, near(pn[1], 2e5+1.0))
}

func TestCollectCellFieldsPnFormulation(t *testing.T) {
	p, _ := testProblem()
	cfg := types.DefaultModelConfig()
	cfg.Pressure = types.PressureNW
	cfg.Saturation = types.SaturationNW

	f := CollectCellFields(p, cfg, 0)
	assert.Equal(t, []string{"pressure pn", "saturation Sn"}, f.ScalarNames())
	sn, err := f.Scalar("saturation Sn")
	assert.NoError(t, err)
	assert.True(t, near(sn[0], 0.75))
}

func TestAverageVelocity(t *testing.T) {
	p, m := testProblem()
	fd := p.Vars.CellData(0).FluxData()
	for f := 0; f < m.NumFaces(0); f++ {
		fd.SetVelocity(types.WPhase, f, mesh.Point{2e-7, 0})
	}

	fields := CollectCellFields(p, types.DefaultModelConfig(), 1)
	velW, err := fields.Vector("velocity wetting")
	assert.NoError(t, err)
	assert.True(t, near(velW[0][0], 2e-7))
	assert.True(t, velW[0][1] == 0)
	assert.True(t, velW[1][0] == 0)
}

func TestFaceTraceRoundTrip(t *testing.T) {
	_, m := testProblem()
	tr := NewFaceTrace(m)
	for c := 0; c < m.NumCells(); c++ {
		for f := 0; f < m.NumFaces(c); f++ {
			tr.Set(c, f, 1e5*float64(c)+0.123456789012345*float64(f))
		}
	}

	var buf bytes.Buffer
	assert.NoError(t, tr.Write(&buf))

	back := NewFaceTrace(m)
	assert.NoError(t, back.Read(&buf))
	for c := 0; c < m.NumCells(); c++ {
		for f := 0; f < m.NumFaces(c); f++ {
			assert.True(t, back.At(c, f) == tr.At(c, f),
				"cell %d face %d: %v != %v", c, f, back.At(c, f), tr.At(c, f))
		}
	}
}

func TestFaceTraceShortInput(t *testing.T) {
	_, m := testProblem()
	tr := NewFaceTrace(m)
	assert.Error(t, tr.Read(bytes.NewBufferString("1.0 2.0")))
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
