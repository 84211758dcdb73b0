package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pmflow/gompfa/types"
)

var yamlInput = `
Title: "Buckley-Leverett"
Nx: 30
Ny: 6
Lx: 3.0
Ly: 0.75
CFL: 0.95
FinalTime: 1.0e7
MaxTimeSteps: 200
PressureFormulation: pn
SaturationFormulation: Sn
Method: L
OutputLevel: 1
`

func TestParse(t *testing.T) {
	ip := &InputParameters2D{}
	assert.NoError(t, ip.Parse([]byte(yamlInput)))
	assert.Equal(t, "Buckley-Leverett", ip.Title)
	assert.Equal(t, 30, ip.Nx)
	assert.Equal(t, 6, ip.Ny)
	assert.Equal(t, 3.0, ip.Lx)
	assert.Equal(t, 0.75, ip.Ly)
	assert.Equal(t, 0.95, ip.CFL)
	assert.Equal(t, 1.0e7, ip.FinalTime)
	assert.Equal(t, 200, ip.MaxTimeSteps)
	assert.Equal(t, "L", ip.Method)
	assert.Equal(t, 1, ip.OutputLevel)
}

func TestParseRejectsBadGrid(t *testing.T) {
	ip := &InputParameters2D{}
	assert.Error(t, ip.Parse([]byte("Nx: 0\nNy: 5\nLx: 1.0\nLy: 1.0\n")))
	assert.Error(t, ip.Parse([]byte("Nx: 5\nNy: 5\nLx: -1.0\nLy: 1.0\n")))
	assert.Error(t, ip.Parse([]byte("Nx: [\n")))
}

func TestModelConfig(t *testing.T) {
	ip := &InputParameters2D{}
	assert.NoError(t, ip.Parse([]byte(yamlInput)))

	cfg, err := ip.ModelConfig()
	assert.NoError(t, err)
	assert.Equal(t, types.PressureNW, cfg.Pressure)
	assert.Equal(t, types.SaturationNW, cfg.Saturation)

	// empty formulation strings fall back to the defaults
	ip.PressureFormulation = ""
	ip.SaturationFormulation = ""
	cfg, err = ip.ModelConfig()
	assert.NoError(t, err)
	assert.Equal(t, types.PressureW, cfg.Pressure)
	assert.Equal(t, types.SaturationW, cfg.Saturation)

	ip.PressureFormulation = "pglobal"
	_, err = ip.ModelConfig()
	assert.Error(t, err)

	ip.PressureFormulation = "pw"
	ip.SaturationFormulation = "St"
	_, err = ip.ModelConfig()
	assert.Error(t, err)
}
