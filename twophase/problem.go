package twophase

import (
	"github.com/pmflow/gompfa/mesh"
	"github.com/pmflow/gompfa/types"
)

// Problem bundles the physics collaborators the assembly core consumes:
// spatial parameters, constitutive laws, boundary conditions, sources and
// the time context. Cell and face arguments are mesh indices.
type Problem interface {
	Mesh() mesh.Mesh
	Variables() *Variables
	FluidSystem() FluidSystem

	IntrinsicPermeability(cell int) mesh.Tensor
	MaterialLaw(cell int) MaterialLaw
	Porosity(cell int) float64

	Source(cell int) types.PrimaryVariables
	BoundaryTypes(cell, face int) types.BoundaryTypes
	Dirichlet(cell, face int) types.PrimaryVariables
	Neumann(cell, face int) types.PrimaryVariables

	Gravity() mesh.Point
	BBoxMax() mesh.Point
	ReferencePressure() float64
	Temperature() float64

	TimeStepSize() float64
	WillBeFinished() bool
}

// BaseProblem carries the boilerplate of a Problem: mesh, variables, fluid
// system, uniform spatial parameters, gravity off, no sources, no-flow
// boundaries. Scenario problems embed it and override what they need.
type BaseProblem struct {
	M      mesh.Mesh
	Vars   *Variables
	Fluids FluidSystem

	Permeability mesh.Tensor
	Law          MaterialLaw
	Phi          float64

	Grav    mesh.Point
	RefP    float64
	Temp    float64
	Dt      float64
	LastStep bool
}

func NewBaseProblem(m mesh.Mesh, fluids FluidSystem, k mesh.Tensor, law MaterialLaw) *BaseProblem {
	return &BaseProblem{
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

func (p *BaseProblem) Mesh() mesh.Mesh          { return p.M }
func (p *BaseProblem) Variables() *Variables    { return p.Vars }
func (p *BaseProblem) FluidSystem() FluidSystem { return p.Fluids }

func (p *BaseProblem) IntrinsicPermeability(cell int) mesh.Tensor { return p.Permeability }
func (p *BaseProblem) MaterialLaw(cell int) MaterialLaw           { return p.Law }
func (p *BaseProblem) Porosity(cell int) float64                  { return p.Phi }

func (p *BaseProblem) Source(cell int) types.PrimaryVariables { return types.PrimaryVariables{} }

func (p *BaseProblem) BoundaryTypes(cell, face int) (bt types.BoundaryTypes) {
	bt.SetAllNeumann()
	return
}

func (p *BaseProblem) Dirichlet(cell, face int) types.PrimaryVariables {
	return types.PrimaryVariables{}
}

func (p *BaseProblem) Neumann(cell, face int) types.PrimaryVariables {
	return types.PrimaryVariables{}
}

func (p *BaseProblem) Gravity() mesh.Point       { return p.Grav }
func (p *BaseProblem) ReferencePressure() float64 { return p.RefP }
func (p *BaseProblem) Temperature() float64       { return p.Temp }
func (p *BaseProblem) TimeStepSize() float64      { return p.Dt }
func (p *BaseProblem) WillBeFinished() bool       { return p.LastStep }

// SetTimeStepSize and SetWillBeFinished are the time controller's hooks.
func (p *BaseProblem) SetTimeStepSize(dt float64) { p.Dt = dt }
func (p *BaseProblem) SetWillBeFinished(b bool)   { p.LastStep = b }

// BBoxMax is the upper-right corner of the domain, the datum for the
// gravity potential.
func (p *BaseProblem) BBoxMax() (max mesh.Point) {
	m := p.M
	for v := 0; v < m.NumVertices(); v++ {
		pos := m.VertexPosition(v)
		if v == 0 {
			max = pos
			continue
		}
		if pos[0] > max[0] {
			max[0] = pos[0]
		}
		if pos[1] > max[1] {
			max[1] = pos[1]
		}
	}
	return
}

// constitutiveState is the slice of a problem the material-law update needs;
// both the 2D and the 3D problem interfaces satisfy it.
type constitutiveState interface {
	Variables() *Variables
	FluidSystem() FluidSystem
	MaterialLaw(cell int) MaterialLaw
}

// UpdateMaterialLaws refreshes capillary pressure, mobilities and
// fractional-flow functions from the current saturations. Must run before
// every pressure assembly so the mobility snapshots on the interaction
// volumes are current.
func UpdateMaterialLaws(p constitutiveState) {
	vars := p.Variables()
	fs := p.FluidSystem()
	for i := 0; i < vars.NumCells(); i++ {
		cd := vars.CellData(i)
		law := p.MaterialLaw(i)
		satW := cd.Saturation(types.WPhase)

		cd.SetCapillaryPressure(law.Pc(satW))

		mobW := law.Krw(satW) / fs.Viscosity(types.WPhase)
		mobN := law.Krn(satW) / fs.Viscosity(types.NPhase)
		cd.SetMobility(types.WPhase, mobW)
		cd.SetMobility(types.NPhase, mobN)

		cd.SetFracFlowFunc(types.WPhase, mobW/(mobW+mobN))
		cd.SetFracFlowFunc(types.NPhase, mobN/(mobW+mobN))
	}
}
