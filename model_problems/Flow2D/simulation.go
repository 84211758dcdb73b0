package Flow2D

import (
	"fmt"
	"math"

	"github.com/pmflow/gompfa/mpfa"
	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/types"
	"github.com/pmflow/gompfa/utils"
)

// timeController is the slice of a scenario problem the driver steers.
type timeController interface {
	SetTimeStepSize(dt float64)
	SetWillBeFinished(b bool)
}

// PressureSolver is the assembler surface the driver consumes; both the
// O- and the L-method satisfy it.
type PressureSolver interface {
	Initialize() error
	Update() error
	CalculateVelocity() error
	Pressure() utils.Vector
}

// Simulation runs the IMPES cycle: implicit pressure, explicit saturation.
// The pressure field and the face velocities come from the selected MPFA
// assembler; the transport step is a first-order upwind update fed by the
// reconstructed wetting velocities.
type Simulation struct {
	Problem  twophase.Problem
	Pressure PressureSolver

	clock timeController
	cfg   types.ModelConfig

	Time      float64
	FinalTime float64
	CFL       float64

	step int
}

// NewSimulation builds the driver around the assembler selected by method:
// "L" (the default for an empty string) or "O".
func NewSimulation(p twophase.Problem, cfg types.ModelConfig, method string, finalTime, cfl float64) (*Simulation, error) {
	clock, ok := p.(timeController)
	if !ok {
		return nil, fmt.Errorf("%w: problem cannot be time-stepped", types.ErrUnsupportedConfig)
	}

	var (
		pressure PressureSolver
		err      error
	)
	switch method {
	case "L", "":
		pressure, err = mpfa.NewLPressure(p, cfg)
	case "O":
		pressure, err = mpfa.NewOPressure(p, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown pressure method %q", types.ErrUnsupportedConfig, method)
	}
	if err != nil {
		return nil, err
	}
	return &Simulation{
		Problem:   p,
		Pressure:  pressure,
		clock:     clock,
		cfg:       cfg,
		FinalTime: finalTime,
		CFL:       cfl,
	}, nil
}

// Initialize solves the initial pressure field and reconstructs the
// velocities the first transport step will consume.
func (s *Simulation) Initialize() error {
	s.clock.SetTimeStepSize(s.FinalTime)
	if err := s.Pressure.Initialize(); err != nil {
		return err
	}
	return s.Pressure.CalculateVelocity()
}

// Step advances one IMPES cycle and returns the time step taken.
func (s *Simulation) Step() (float64, error) {
	dt := s.timeStep()
	if s.Time+dt >= s.FinalTime {
		dt = s.FinalTime - s.Time
		s.clock.SetWillBeFinished(true)
	}
	s.clock.SetTimeStepSize(dt)

	s.advanceSaturation(dt)
	twophase.UpdateMaterialLaws(s.Problem)

	if err := s.Pressure.Update(); err != nil {
		return 0, err
	}
	if err := s.Pressure.CalculateVelocity(); err != nil {
		return 0, err
	}

	s.Time += dt
	s.step++
	return dt, nil
}

// Run steps until the final time, bounded by maxSteps.
func (s *Simulation) Run(maxSteps int) error {
	for i := 0; i < maxSteps && s.Time < s.FinalTime; i++ {
		dt, err := s.Step()
		if err != nil {
			return fmt.Errorf("step %d (t = %g): %w", s.step, s.Time, err)
		}
		fmt.Printf("step %4d: t = %12.5g, dt = %12.5g\n", s.step, s.Time, dt)
	}
	return nil
}

// timeStep is the explicit-transport CFL bound: the pore volume of a cell
// over its total outflux, scaled by the CFL factor.
func (s *Simulation) timeStep() float64 {
	m := s.Problem.Mesh()
	vars := s.Problem.Variables()
	dt := math.Inf(1)
	for c := 0; c < m.NumCells(); c++ {
		fd := vars.CellData(c).FluxData()
		outflux := 0.0
		for f := 0; f < m.NumFaces(c); f++ {
			vt := fd.Velocity(types.WPhase, f).Add(fd.Velocity(types.NPhase, f))
			flux := vt.Dot(m.FaceUnitNormal(c, f)) * m.FaceArea(c, f)
			if flux > 0 {
				outflux += flux
			}
		}
		if outflux <= 0 {
			continue
		}
		poreVol := s.Problem.Porosity(c) * m.CellVolume(c)
		if d := s.CFL * poreVol / outflux; d < dt {
			dt = d
		}
	}
	if math.IsInf(dt, 1) {
		return s.FinalTime - s.Time
	}
	return dt
}

// advanceSaturation is the explicit upwind transport update. The stored face
// velocities already carry the upwind fractional flow, so the divergence of
// the wetting velocity is the net wetting volume flux out of the cell.
func (s *Simulation) advanceSaturation(dt float64) {
	m := s.Problem.Mesh()
	vars := s.Problem.Variables()
	densityW := s.Problem.FluidSystem().Density(types.WPhase)

	for c := 0; c < m.NumCells(); c++ {
		cd := vars.CellData(c)
		div := 0.0
		for f := 0; f < m.NumFaces(c); f++ {
			vw := cd.FluxData().Velocity(types.WPhase, f)
			div += vw.Dot(m.FaceUnitNormal(c, f)) * m.FaceArea(c, f)
		}
		poreVol := s.Problem.Porosity(c) * m.CellVolume(c)
		dS := -dt / poreVol * div
		dS += dt * s.Problem.Source(c)[types.WPhase] /
			(densityW * s.Problem.Porosity(c))

		satW := cd.Saturation(types.WPhase) + dS
		cd.SetSaturation(types.WPhase, satW)
		cd.SetSaturation(types.NPhase, 1.0-satW)
	}
}
