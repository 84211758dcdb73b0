package twophase

import (
	"github.com/pmflow/gompfa/mesh"
	"github.com/pmflow/gompfa/types"
)

const maxFaces = 4

// FluxData holds the per-half-face velocity and upwind-potential state of
// one cell. It is written by the velocity reconstruction and read by the
// saturation transport.
type FluxData struct {
	velocity  [types.NumPhases][maxFaces]mesh.Point
	potential [types.NumPhases][maxFaces]float64
	marker    [maxFaces]bool
}

func (f *FluxData) Velocity(phase, face int) mesh.Point { return f.velocity[phase][face] }

func (f *FluxData) SetVelocity(phase, face int, v mesh.Point) {
	f.velocity[phase][face] = v
}

func (f *FluxData) AddVelocity(phase, face int, v mesh.Point) {
	f.velocity[phase][face] = f.velocity[phase][face].Add(v)
}

func (f *FluxData) UpwindPotential(phase, face int) float64 { return f.potential[phase][face] }

func (f *FluxData) SetUpwindPotential(phase, face int, pot float64) {
	f.potential[phase][face] = pot
}

// AddUpwindPotential accumulates a potential contribution; every face
// collects one contribution per interaction volume built around its two
// end vertices.
func (f *FluxData) AddUpwindPotential(phase, face int, pot float64) {
	f.potential[phase][face] += pot
}

// VelocityMarker guards against double-writing a face that is shared by two
// interaction volumes.
func (f *FluxData) VelocityMarker(face int) bool     { return f.marker[face] }
func (f *FluxData) SetVelocityMarker(face int)       { f.marker[face] = true }
func (f *FluxData) ResetVelocityMarkers() {
	for i := range f.marker {
		f.marker[i] = false
	}
}

func (f *FluxData) ResetVelocity() {
	for ph := 0; ph < types.NumPhases; ph++ {
		for fc := 0; fc < maxFaces; fc++ {
			f.velocity[ph][fc] = mesh.Point{}
			f.potential[ph][fc] = 0
		}
	}
	f.ResetVelocityMarkers()
}

// CellData is the per-cell state snapshot the assemblers read. Mobilities
// and capillary pressure are refreshed by UpdateMaterialLaws every time
// step; the assembler never evaluates constitutive laws on interior cells
// itself.
type CellData struct {
	pressure   [types.NumPhases]float64
	saturation [types.NumPhases]float64
	pc         float64
	mobility   [types.NumPhases]float64
	fracFlow   [types.NumPhases]float64
	flux       FluxData
}

func (c *CellData) Pressure(phase int) float64              { return c.pressure[phase] }
func (c *CellData) SetPressure(phase int, p float64)        { c.pressure[phase] = p }
func (c *CellData) Saturation(phase int) float64            { return c.saturation[phase] }
func (c *CellData) SetSaturation(phase int, s float64)      { c.saturation[phase] = s }
func (c *CellData) CapillaryPressure() float64              { return c.pc }
func (c *CellData) SetCapillaryPressure(pc float64)         { c.pc = pc }
func (c *CellData) Mobility(phase int) float64              { return c.mobility[phase] }
func (c *CellData) SetMobility(phase int, lambda float64)   { c.mobility[phase] = lambda }
func (c *CellData) FracFlowFunc(phase int) float64          { return c.fracFlow[phase] }
func (c *CellData) SetFracFlowFunc(phase int, f float64)    { c.fracFlow[phase] = f }
func (c *CellData) FluxData() *FluxData                     { return &c.flux }

// Variables owns the cell data of the whole grid.
type Variables struct {
	cells []CellData
}

func NewVariables(numCells int) *Variables {
	return &Variables{cells: make([]CellData, numCells)}
}

func (v *Variables) NumCells() int            { return len(v.cells) }
func (v *Variables) CellData(i int) *CellData { return &v.cells[i] }
