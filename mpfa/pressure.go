package mpfa

import (
	"fmt"
	"math"

	"github.com/pmflow/gompfa/linsolve"
	"github.com/pmflow/gompfa/mesh"
	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/types"
	"github.com/pmflow/gompfa/utils"
)

// threshold below which a total mobility is treated as zero
const mobilityThreshold = 1e-15

// pressureSolver is the state shared by the O- and L-method assemblers:
// linear system, interaction volumes, constant fluid properties and the
// volumetric error-damping context. The concrete assemblers embed it and
// provide assemble().
type pressureSolver struct {
	problem twophase.Problem
	cfg     types.ModelConfig

	scheme normalScheme
	withNu bool

	a        *utils.DOK
	f        utils.Vector
	pressure utils.Vector

	interactionVolumes       []InteractionVolume
	innerBoundaryVolumeFaces [][4]bool

	density   [types.NumPhases]float64
	viscosity [types.NumPhases]float64
	gravity   mesh.Point

	maxError float64
	timeStep float64

	solverOpts linsolve.Options

	assembleFn func(first bool) error
}

func newPressureSolver(p twophase.Problem, cfg types.ModelConfig, scheme normalScheme, withNu bool) (*pressureSolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fs := p.FluidSystem()
	s := &pressureSolver{
		problem:    p,
		cfg:        cfg,
		scheme:     scheme,
		withNu:     withNu,
		gravity:    p.Gravity(),
		timeStep:   p.TimeStepSize(),
		solverOpts: linsolve.DefaultOptions(),
	}
	for ph := 0; ph < types.NumPhases; ph++ {
		s.density[ph] = fs.Density(ph)
		s.viscosity[ph] = fs.Viscosity(ph)
	}
	return s, nil
}

// Pressure is the solution vector of the last solve, one value per cell.
func (s *pressureSolver) Pressure() utils.Vector { return s.pressure }

// Matrix and RHS expose the assembled system, mainly for diagnostics and
// tests.
func (s *pressureSolver) Matrix() *utils.DOK { return s.a }
func (s *pressureSolver) RHS() utils.Vector  { return s.f }

// InteractionVolume returns the stored interaction volume of a vertex.
func (s *pressureSolver) InteractionVolume(v int) *InteractionVolume {
	return &s.interactionVolumes[v]
}

// Initialize sets up the material laws, builds the interaction volumes and
// the matrix structure, and solves the initial pressure field.
func (s *pressureSolver) Initialize() error {
	twophase.UpdateMaterialLaws(s.problem)
	if err := s.UpdateInteractionVolumeInfo(); err != nil {
		return err
	}
	if err := s.initializeMatrix(); err != nil {
		return err
	}
	s.maxError = 0
	s.timeStep = s.problem.TimeStepSize()
	if err := s.assembleFn(true); err != nil {
		return err
	}
	if err := s.solvePressure(); err != nil {
		return err
	}
	s.storePressureSolution()
	return nil
}

// Update re-assembles and re-solves the pressure field for the current
// saturation state. The volumetric error damping is scaled against the
// largest saturation overshoot of the grid.
func (s *pressureSolver) Update() error {
	s.timeStep = s.problem.TimeStepSize()
	s.updateMaxError()
	if err := s.assembleFn(false); err != nil {
		return err
	}
	if err := s.solvePressure(); err != nil {
		return err
	}
	s.storePressureSolution()
	return nil
}

// UpdateInteractionVolumeInfo rebuilds all interaction volumes, e.g. after
// grid adaptation. The matrix structure has to be re-initialized afterwards.
func (s *pressureSolver) UpdateInteractionVolumeInfo() error {
	ivs, inner, err := buildInteractionVolumes(s.problem, s.scheme, s.withNu)
	if err != nil {
		return err
	}
	s.interactionVolumes = ivs
	s.innerBoundaryVolumeFaces = inner
	return nil
}

// initializeMatrix declares the sparsity pattern: the diagonal, one entry
// per face neighbor and one entry per diagonal cell reached over a shared
// corner vertex.
func (s *pressureSolver) initializeMatrix() error {
	m := s.problem.Mesh()
	n := m.NumCells()
	s.a = utils.NewDOK(n, n)
	s.f = utils.NewVector(n)
	s.pressure = utils.NewVector(n)

	for e := 0; e < n; e++ {
		size := 1
		for f := 0; f < m.NumFaces(e); f++ {
			size += len(m.Neighbors(e, f))
			if c, _ := s.cornerNeighbor(e, f); c >= 0 {
				size++
			}
		}
		s.a.SetRowSize(e, size)
	}
	s.a.EndRowSizes()

	for e := 0; e < n; e++ {
		s.a.AddIndex(e, e)
		for f := 0; f < m.NumFaces(e); f++ {
			for _, adj := range m.Neighbors(e, f) {
				s.a.AddIndex(e, adj.Cell)
			}
			if c, _ := s.cornerNeighbor(e, f); c >= 0 {
				s.a.AddIndex(e, c)
			}
		}
	}
	return s.a.EndIndices()
}

// cornerNeighbor finds the cell diagonally across the corner shared by the
// faces f and f+1 of e, i.e. the common neighbor of the two face neighbors
// that is not e itself.
func (s *pressureSolver) cornerNeighbor(e, f int) (int, int) {
	m := s.problem.Mesh()
	fNext := (f + 1) % 4
	if m.OnBoundary(e, f) || m.OnBoundary(e, fNext) {
		return -1, -1
	}
	v := m.FaceVertices(e, f)[1]
	a1 := adjacentAt(m, e, f, v)
	a2 := adjacentAt(m, e, fNext, v)
	if a1.Cell < 0 || a2.Cell < 0 {
		return -1, -1
	}
	for j := 0; j < m.NumFaces(a1.Cell); j++ {
		if m.OnBoundary(a1.Cell, j) || !faceHasVertex(m, a1.Cell, j, v) {
			continue
		}
		cand := adjacentAt(m, a1.Cell, j, v)
		if cand.Cell < 0 || cand.Cell == e {
			continue
		}
		for k := 0; k < m.NumFaces(a2.Cell); k++ {
			if m.OnBoundary(a2.Cell, k) || !faceHasVertex(m, a2.Cell, k, v) {
				continue
			}
			if adjacentAt(m, a2.Cell, k, v).Cell == cand.Cell {
				return cand.Cell, v
			}
		}
	}
	return -1, -1
}

func (s *pressureSolver) solvePressure() error {
	_, err := linsolve.BiCGStab(s.a, s.f, s.pressure, s.solverOpts)
	if err != nil {
		return fmt.Errorf("pressure solve: %w", err)
	}
	return nil
}

// PinRows overwrites the given matrix rows with identity and fixes the
// right-hand side to the current pressure. Used for cells owned by another
// process in a decomposed run.
func (s *pressureSolver) PinRows(rows []int) {
	for _, row := range rows {
		s.a.ZeroRow(row)
		s.a.Set(row, row, 1.0)
		s.f.DataP[row] = s.pressure.DataP[row]
	}
}

// gravityPcDiff is the gravity correction added to the capillary pressure,
// anchored at the upper domain corner.
func (s *pressureSolver) gravityPcDiff(pos mesh.Point) float64 {
	return s.problem.BBoxMax().Sub(pos).Dot(s.gravity) *
		(s.density[types.NPhase] - s.density[types.WPhase])
}

// storePressureSolution writes the solved pressure into the cell data of
// both phases and invalidates the velocity field.
func (s *pressureSolver) storePressureSolution() {
	vars := s.problem.Variables()
	m := s.problem.Mesh()
	for i := 0; i < vars.NumCells(); i++ {
		cd := vars.CellData(i)
		press := s.pressure.DataP[i]
		pc := cd.CapillaryPressure() + s.gravityPcDiff(m.CellCenter(i))

		switch s.cfg.Pressure {
		case types.PressureW:
			cd.SetPressure(types.WPhase, press)
			cd.SetPressure(types.NPhase, press+pc)
		case types.PressureNW:
			cd.SetPressure(types.NPhase, press)
			cd.SetPressure(types.WPhase, press-pc)
		}
		cd.FluxData().ResetVelocity()
	}
}

func (s *pressureSolver) modelSaturation(cd *twophase.CellData) float64 {
	if s.cfg.Saturation == types.SaturationNW {
		return cd.Saturation(types.NPhase)
	}
	return cd.Saturation(types.WPhase)
}

func (s *pressureSolver) updateMaxError() {
	vars := s.problem.Variables()
	s.maxError = 0
	for i := 0; i < vars.NumCells(); i++ {
		sat := s.modelSaturation(vars.CellData(i))
		var e float64
		if sat > 1.0 {
			e = (sat - 1.0) / s.timeStep
		} else if sat < 0.0 {
			e = -sat / s.timeStep
		}
		if e > s.maxError {
			s.maxError = e
		}
	}
}

// evaluateErrorTerm returns the volumetric source that pushes a saturation
// overshoot back into [0, 1]. Small deviations and deviations below the
// damping threshold relative to the grid maximum are left alone.
func (s *pressureSolver) evaluateErrorTerm(cd *twophase.CellData) float64 {
	sat := s.modelSaturation(cd)
	var e float64
	if sat > 1.0 {
		e = sat - 1.0
	} else if sat < 0.0 {
		e = sat
	}
	e /= s.timeStep

	errorAbs := math.Abs(e)
	if errorAbs*s.timeStep > 1e-6 &&
		errorAbs > s.cfg.ErrorTermLowerBound*s.maxError &&
		!s.problem.WillBeFinished() {
		return s.cfg.ErrorTermFactor * e
	}
	return 0.0
}

// addSourceAndErrorTerm accumulates the quarter-cell share of the volume
// sources and of the error damping for one sub-volume.
func (s *pressureSolver) addSourceAndErrorTerm(cell int) {
	m := s.problem.Mesh()
	volume := m.CellVolume(cell)
	src := s.problem.Source(cell)
	s.f.DataP[cell] += volume / 4.0 * (src[types.WPhase]/s.density[types.WPhase] +
		src[types.NPhase]/s.density[types.NPhase])
	s.f.DataP[cell] += s.evaluateErrorTerm(s.problem.Variables().CellData(cell)) * volume / 4.0
}

// assembleBoundaryVolume adds the two-point flux contributions of one
// boundary interaction volume: Dirichlet faces couple the sub-volume cell to
// the boundary potential, Neumann faces enter the right-hand side with the
// stored half-face flux. Interior faces of boundary volumes are skipped
// here; they are assembled with doubled weight from the neighboring inner
// volumes.
func (s *pressureSolver) assembleBoundaryVolume(iv *InteractionVolume) error {
	m := s.problem.Mesh()
	vars := s.problem.Variables()

	for elemIdx := 0; elemIdx < subVolumes; elemIdx++ {
		cell := iv.SubVolumeElement(elemIdx)
		if cell < 0 {
			continue
		}
		cd := vars.CellData(cell)
		center := m.CellCenter(cell)

		s.addSourceAndErrorTerm(cell)

		pc := cd.CapillaryPressure() + s.gravityPcDiff(center)
		pressW := cd.Pressure(types.WPhase)
		pressNW := cd.Pressure(types.NPhase)

		for fIdx := 0; fIdx < localFaces; fIdx++ {
			ivFace := iv.FaceIndexFromSubVolume(elemIdx, fIdx)
			if !iv.IsBoundaryFace(ivFace) {
				continue
			}
			bt := iv.BoundaryType(ivFace)

			switch {
			case bt.IsDirichlet(types.PressEqIdx):
				boundValues := iv.DirichletValues(ivFace)
				posFace := iv.FacePosition(elemIdx, fIdx)
				faceArea := iv.FaceArea(elemIdx, fIdx)
				distVec := posFace.Sub(center)
				dist := distVec.Norm()
				unitDist := distVec.Scale(1.0 / dist)

				satWBound := cd.Saturation(types.WPhase)
				if bt.IsDirichlet(types.SatEqIdx) {
					if s.cfg.Saturation == types.SaturationNW {
						satWBound = 1.0 - boundValues[types.SaturationIdx]
					} else {
						satWBound = boundValues[types.SaturationIdx]
					}
				}
				law := s.problem.MaterialLaw(cell)
				pcBound := law.Pc(satWBound) + s.gravityPcDiff(posFace)

				lambdaWBound := law.Krw(satWBound) / s.viscosity[types.WPhase]
				lambdaNWBound := law.Krn(satWBound) / s.viscosity[types.NPhase]

				gdeltaZ := s.problem.BBoxMax().Sub(posFace).Dot(s.gravity)
				potentialBound := boundValues[types.PressureIdx]
				var potentialW, potentialNW float64
				switch s.cfg.Pressure {
				case types.PressureW:
					potentialBound += s.density[types.WPhase] * gdeltaZ
					potentialW = (pressW - potentialBound) / dist
					potentialNW = (pressNW - potentialBound - pcBound) / dist
				case types.PressureNW:
					potentialBound += s.density[types.NPhase] * gdeltaZ
					potentialW = (pressW - potentialBound + pcBound) / dist
					potentialNW = (pressNW - potentialBound) / dist
				}

				lambdaWUp := lambdaWBound
				if potentialW >= 0 {
					lambdaWUp = cd.Mobility(types.WPhase)
				}
				lambdaNWUp := lambdaNWBound
				if potentialNW >= 0 {
					lambdaNWUp = cd.Mobility(types.NPhase)
				}

				k := s.problem.IntrinsicPermeability(cell)
				entry := (lambdaWUp + lambdaNWUp) * unitDist.Dot(k.Apply(unitDist)) / dist * faceArea
				s.a.Add(cell, cell, entry)
				s.f.DataP[cell] += entry * potentialBound

				if pc == 0 && pcBound == 0 {
					continue
				}
				// capillary flux against the boundary pc gradient
				var lambdaPcCell, lambdaPcBound float64
				switch s.cfg.Pressure {
				case types.PressureW:
					lambdaPcCell = cd.Mobility(types.NPhase)
					lambdaPcBound = lambdaNWBound
				case types.PressureNW:
					lambdaPcCell = cd.Mobility(types.WPhase)
					lambdaPcBound = lambdaWBound
				}
				pcGradient := unitDist.Scale((pc - pcBound) / dist)
				pcFlux := 0.5 * (lambdaPcCell + lambdaPcBound) *
					k.Apply(pcGradient).Dot(unitDist) * faceArea

				switch s.cfg.Pressure {
				case types.PressureW:
					s.f.DataP[cell] -= pcFlux
				case types.PressureNW:
					s.f.DataP[cell] += pcFlux
				}

			case bt.IsNeumann(types.PressEqIdx):
				j := iv.NeumannValues(ivFace)
				s.f.DataP[cell] -= j[types.WPhase]/s.density[types.WPhase] +
					j[types.NPhase]/s.density[types.NPhase]

			default:
				return fmt.Errorf("%w (cell %d, interaction volume face %d)",
					types.ErrBoundaryCondition, cell, ivFace)
			}
		}
	}
	return nil
}
