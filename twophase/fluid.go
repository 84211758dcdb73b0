package twophase

import "github.com/pmflow/gompfa/types"

// FluidSystem supplies phase densities and viscosities. The sequential
// pressure model is incompressible, so properties are evaluated once at the
// reference state and stay constant over the run.
type FluidSystem struct {
	density   [types.NumPhases]float64
	viscosity [types.NumPhases]float64
}

func NewFluidSystem(densityW, densityN, viscosityW, viscosityN float64) FluidSystem {
	return FluidSystem{
		density:   [types.NumPhases]float64{densityW, densityN},
		viscosity: [types.NumPhases]float64{viscosityW, viscosityN},
	}
}

// WaterGas is a water / gas-like pairing used by the examples.
func WaterGas() FluidSystem {
	return NewFluidSystem(1000.0, 1.2, 1e-3, 1.8e-5)
}

// UnitFluid has unit density and viscosity in both phases, so mobilities
// equal relative permeabilities. Used in analytic checks.
func UnitFluid() FluidSystem {
	return NewFluidSystem(1, 1, 1, 1)
}

func (f FluidSystem) Density(phase int) float64   { return f.density[phase] }
func (f FluidSystem) Viscosity(phase int) float64 { return f.viscosity[phase] }
