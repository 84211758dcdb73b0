// Package output collects named per-cell buffers for plotting and carries
// the face-trace checkpoint. It is a pure data dump; nothing here feeds back
// into the assembly core.
package output

import (
	"fmt"

	"github.com/pmflow/gompfa/mesh"
	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/types"
)

// Fields is an ordered set of named per-cell scalar and vector buffers.
type Fields struct {
	scalarNames []string
	scalars     map[string][]float64
	vectorNames []string
	vectors     map[string][]mesh.Point
}

func NewFields() *Fields {
	return &Fields{
		scalars: make(map[string][]float64),
		vectors: make(map[string][]mesh.Point),
	}
}

func (f *Fields) AddScalar(name string, values []float64) {
	if _, ok := f.scalars[name]; !ok {
		f.scalarNames = append(f.scalarNames, name)
	}
	f.scalars[name] = values
}

func (f *Fields) AddVector(name string, values []mesh.Point) {
	if _, ok := f.vectors[name]; !ok {
		f.vectorNames = append(f.vectorNames, name)
	}
	f.vectors[name] = values
}

func (f *Fields) ScalarNames() []string { return f.scalarNames }
func (f *Fields) VectorNames() []string { return f.vectorNames }

func (f *Fields) Scalar(name string) ([]float64, error) {
	s, ok := f.scalars[name]
	if !ok {
		return nil, fmt.Errorf("no scalar field %q", name)
	}
	return s, nil
}

func (f *Fields) Vector(name string) ([]mesh.Point, error) {
	v, ok := f.vectors[name]
	if !ok {
		return nil, fmt.Errorf("no vector field %q", name)
	}
	return v, nil
}

// CollectCellFields snapshots the current cell data into named buffers. At
// output level 0 only the primary fields of the chosen formulation are
// written; a higher level adds the complementary phase pressure, the
// capillary pressure and the cell-averaged phase velocities.
func CollectCellFields(p twophase.Problem, cfg types.ModelConfig, level int) *Fields {
	vars := p.Variables()
	n := vars.NumCells()
	f := NewFields()

	primary := make([]float64, n)
	sat := make([]float64, n)
	primaryPhase := types.WPhase
	if cfg.Pressure == types.PressureNW {
		primaryPhase = types.NPhase
	}
	satPhase := types.WPhase
	if cfg.Saturation == types.SaturationNW {
		satPhase = types.NPhase
	}
	for i := 0; i < n; i++ {
		cd := vars.CellData(i)
		primary[i] = cd.Pressure(primaryPhase)
		sat[i] = cd.Saturation(satPhase)
	}
	f.AddScalar("pressure "+cfg.Pressure.String(), primary)
	f.AddScalar("saturation "+cfg.Saturation.String(), sat)

	if level < 1 {
		return f
	}

	other := make([]float64, n)
	pc := make([]float64, n)
	velW := make([]mesh.Point, n)
	velN := make([]mesh.Point, n)
	otherPhase := types.NPhase
	if primaryPhase == types.NPhase {
		otherPhase = types.WPhase
	}
	for i := 0; i < n; i++ {
		cd := vars.CellData(i)
		other[i] = cd.Pressure(otherPhase)
		pc[i] = cd.CapillaryPressure()
		velW[i] = averageVelocity(cd, types.WPhase, p.Mesh().NumFaces(i))
		velN[i] = averageVelocity(cd, types.NPhase, p.Mesh().NumFaces(i))
	}
	otherCfg := types.PressureNW
	if primaryPhase == types.NPhase {
		otherCfg = types.PressureW
	}
	f.AddScalar("pressure "+otherCfg.String(), other)
	f.AddScalar("capillary pressure", pc)
	f.AddVector("velocity wetting", velW)
	f.AddVector("velocity nonwetting", velN)
	return f
}

// averageVelocity is the arithmetic mean of the stored face velocities, a
// crude but sufficient cell value for plotting.
func averageVelocity(cd *twophase.CellData, phase, numFaces int) mesh.Point {
	var v mesh.Point
	for face := 0; face < numFaces; face++ {
		v = v.Add(cd.FluxData().Velocity(phase, face))
	}
	return v.Scale(1.0 / float64(numFaces))
}
