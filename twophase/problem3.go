package twophase

import (
	"github.com/pmflow/gompfa/mesh"
	"github.com/pmflow/gompfa/types"
)

// Problem3 is the 3D counterpart of Problem, consumed by the hexahedral
// assembly core. Cell and face arguments are mesh indices.
type Problem3 interface {
	Mesh() mesh.Mesh3
	Variables() *Variables
	FluidSystem() FluidSystem

	IntrinsicPermeability(cell int) mesh.Tensor3
	MaterialLaw(cell int) MaterialLaw
	Porosity(cell int) float64

	Source(cell int) types.PrimaryVariables
	BoundaryTypes(cell, face int) types.BoundaryTypes
	Dirichlet(cell, face int) types.PrimaryVariables
	Neumann(cell, face int) types.PrimaryVariables

	Gravity() mesh.Point3
	BBoxMax() mesh.Point3
	ReferencePressure() float64
	Temperature() float64

	TimeStepSize() float64
	WillBeFinished() bool
}

// BaseProblem3 carries the boilerplate of a Problem3: mesh, variables, fluid
// system, uniform spatial parameters, gravity off, no sources, no-flow
// boundaries.
type BaseProblem3 struct {
	M      mesh.Mesh3
	Vars   *Variables
	Fluids FluidSystem

	Permeability mesh.Tensor3
	Law          MaterialLaw
	Phi          float64

	Grav     mesh.Point3
	RefP     float64
	Temp     float64
	Dt       float64
	LastStep bool
}

func NewBaseProblem3(m mesh.Mesh3, fluids FluidSystem, k mesh.Tensor3, law MaterialLaw) *BaseProblem3 {
	return &BaseProblem3{
		M:            m,
		Vars:         NewVariables(m.NumCells()),
		Fluids:       fluids,
		Permeability: k,
		Law:          law,
		Phi:          0.2,
		RefP:         1e5,
		Temp:         283.15,
		Dt:           1.0,
	}
}

func (p *BaseProblem3) Mesh() mesh.Mesh3         { return p.M }
func (p *BaseProblem3) Variables() *Variables    { return p.Vars }
func (p *BaseProblem3) FluidSystem() FluidSystem { return p.Fluids }

func (p *BaseProblem3) IntrinsicPermeability(cell int) mesh.Tensor3 { return p.Permeability }
func (p *BaseProblem3) MaterialLaw(cell int) MaterialLaw            { return p.Law }
func (p *BaseProblem3) Porosity(cell int) float64                   { return p.Phi }

func (p *BaseProblem3) Source(cell int) types.PrimaryVariables { return types.PrimaryVariables{} }

func (p *BaseProblem3) BoundaryTypes(cell, face int) (bt types.BoundaryTypes) {
	bt.SetAllNeumann()
	return
}

func (p *BaseProblem3) Dirichlet(cell, face int) types.PrimaryVariables {
	return types.PrimaryVariables{}
}

func (p *BaseProblem3) Neumann(cell, face int) types.PrimaryVariables {
	return types.PrimaryVariables{}
}

func (p *BaseProblem3) Gravity() mesh.Point3       { return p.Grav }
func (p *BaseProblem3) ReferencePressure() float64 { return p.RefP }
func (p *BaseProblem3) Temperature() float64       { return p.Temp }
func (p *BaseProblem3) TimeStepSize() float64      { return p.Dt }
func (p *BaseProblem3) WillBeFinished() bool       { return p.LastStep }

func (p *BaseProblem3) SetTimeStepSize(dt float64) { p.Dt = dt }
func (p *BaseProblem3) SetWillBeFinished(b bool)   { p.LastStep = b }

// BBoxMax is the upper domain corner, the datum for the gravity potential.
func (p *BaseProblem3) BBoxMax() (max mesh.Point3) {
	m := p.M
	for v := 0; v < m.NumVertices(); v++ {
		pos := m.VertexPosition(v)
		if v == 0 {
			max = pos
			continue
		}
		for d := 0; d < 3; d++ {
			if pos[d] > max[d] {
				max[d] = pos[d]
			}
		}
	}
	return
}
