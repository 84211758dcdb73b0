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

// LPressure3 assembles the cell-centered pressure equation on a hex grid
// with the MPFA L-method. Every inner interaction volume contributes twelve
// quarter-face fluxes, each expanded over an adaptively selected four-cell
// stencil; interaction volumes touching the domain boundary fall back to
// two-point fluxes. Conforming grids only.
type LPressure3 struct {
	problem twophase.Problem3
	cfg     types.ModelConfig
	tc      *TransmissibilityCalculator3

	a        *utils.DOK
	f        utils.Vector
	pressure utils.Vector

	interactionVolumes []InteractionVolume3

	density   [types.NumPhases]float64
	viscosity [types.NumPhases]float64
	gravity   mesh.Point3

	maxError float64
	timeStep float64

	solverOpts linsolve.Options
}

func NewLPressure3(p twophase.Problem3, cfg types.ModelConfig) (*LPressure3, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fs := p.FluidSystem()
	l := &LPressure3{
		problem:    p,
		cfg:        cfg,
		tc:         NewTransmissibilityCalculator3(p),
		gravity:    p.Gravity(),
		timeStep:   p.TimeStepSize(),
		solverOpts: linsolve.DefaultOptions(),
	}
	for ph := 0; ph < types.NumPhases; ph++ {
		l.density[ph] = fs.Density(ph)
		l.viscosity[ph] = fs.Viscosity(ph)
	}
	return l, nil
}

// Pressure is the solution vector of the last solve, one value per cell.
func (l *LPressure3) Pressure() utils.Vector { return l.pressure }

// Matrix and RHS expose the assembled system, mainly for diagnostics and
// tests.
func (l *LPressure3) Matrix() *utils.DOK { return l.a }
func (l *LPressure3) RHS() utils.Vector  { return l.f }

// InteractionVolume returns the stored interaction volume of a vertex.
func (l *LPressure3) InteractionVolume(v int) *InteractionVolume3 {
	return &l.interactionVolumes[v]
}

// Initialize sets up the material laws, builds the interaction volumes and
// the matrix structure, and solves the initial pressure field.
func (l *LPressure3) Initialize() error {
	twophase.UpdateMaterialLaws(l.problem)
	l.UpdateInteractionVolumeInfo()
	if err := l.initializeMatrix(); err != nil {
		return err
	}
	l.maxError = 0
	l.timeStep = l.problem.TimeStepSize()
	if err := l.assemble(); err != nil {
		return err
	}
	if err := l.solvePressure(); err != nil {
		return err
	}
	l.storePressureSolution()
	return nil
}

// Update re-assembles and re-solves the pressure field for the current
// saturation state.
func (l *LPressure3) Update() error {
	l.timeStep = l.problem.TimeStepSize()
	l.updateMaxError()
	if err := l.assemble(); err != nil {
		return err
	}
	if err := l.solvePressure(); err != nil {
		return err
	}
	l.storePressureSolution()
	return nil
}

// UpdateInteractionVolumeInfo rebuilds all interaction volumes. The matrix
// structure has to be re-initialized afterwards.
func (l *LPressure3) UpdateInteractionVolumeInfo() {
	l.interactionVolumes = buildInteractionVolumes3(l.problem)
}

// initializeMatrix declares the sparsity pattern: every cell couples to all
// cells it shares a vertex with, up to the 27-point stencil in the interior.
func (l *LPressure3) initializeMatrix() error {
	m := l.problem.Mesh()
	n := m.NumCells()
	l.a = utils.NewDOK(n, n)
	l.f = utils.NewVector(n)
	l.pressure = utils.NewVector(n)

	stencil := func(e int, visit func(cell int)) {
		seen := map[int]bool{}
		for _, v := range m.CellVertices(e) {
			for _, c := range m.VertexCells(v) {
				if c < 0 || seen[c] {
					continue
				}
				seen[c] = true
				visit(c)
			}
		}
	}

	for e := 0; e < n; e++ {
		size := 0
		stencil(e, func(int) { size++ })
		l.a.SetRowSize(e, size)
	}
	l.a.EndRowSizes()

	for e := 0; e < n; e++ {
		stencil(e, func(c int) { l.a.AddIndex(e, c) })
	}
	return l.a.EndIndices()
}

func (l *LPressure3) solvePressure() error {
	_, err := linsolve.BiCGStab(l.a, l.f, l.pressure, l.solverOpts)
	if err != nil {
		return fmt.Errorf("pressure solve: %w", err)
	}
	return nil
}

// gravityPcDiff is the gravity correction added to the capillary pressure,
// anchored at the upper domain corner.
func (l *LPressure3) gravityPcDiff(pos mesh.Point3) float64 {
	return l.problem.BBoxMax().Sub(pos).Dot(l.gravity) *
		(l.density[types.NPhase] - l.density[types.WPhase])
}

// storePressureSolution writes the solved pressure into the cell data of
// both phases.
func (l *LPressure3) storePressureSolution() {
	vars := l.problem.Variables()
	m := l.problem.Mesh()
	for i := 0; i < vars.NumCells(); i++ {
		cd := vars.CellData(i)
		press := l.pressure.DataP[i]
		pc := cd.CapillaryPressure() + l.gravityPcDiff(m.CellCenter(i))

		switch l.cfg.Pressure {
		case types.PressureW:
			cd.SetPressure(types.WPhase, press)
			cd.SetPressure(types.NPhase, press+pc)
		case types.PressureNW:
			cd.SetPressure(types.NPhase, press)
			cd.SetPressure(types.WPhase, press-pc)
		}
	}
}

func (l *LPressure3) modelSaturation(cd *twophase.CellData) float64 {
	if l.cfg.Saturation == types.SaturationNW {
		return cd.Saturation(types.NPhase)
	}
	return cd.Saturation(types.WPhase)
}

func (l *LPressure3) updateMaxError() {
	vars := l.problem.Variables()
	l.maxError = 0
	for i := 0; i < vars.NumCells(); i++ {
		sat := l.modelSaturation(vars.CellData(i))
		var e float64
		if sat > 1.0 {
			e = (sat - 1.0) / l.timeStep
		} else if sat < 0.0 {
			e = -sat / l.timeStep
		}
		if e > l.maxError {
			l.maxError = e
		}
	}
}

// evaluateErrorTerm returns the volumetric source that pushes a saturation
// overshoot back into [0, 1], as in the 2D solvers.
func (l *LPressure3) evaluateErrorTerm(cd *twophase.CellData) float64 {
	sat := l.modelSaturation(cd)
	var e float64
	if sat > 1.0 {
		e = sat - 1.0
	} else if sat < 0.0 {
		e = sat
	}
	e /= l.timeStep

	errorAbs := math.Abs(e)
	if errorAbs*l.timeStep > 1e-6 &&
		errorAbs > l.cfg.ErrorTermLowerBound*l.maxError &&
		!l.problem.WillBeFinished() {
		return l.cfg.ErrorTermFactor * e
	}
	return 0.0
}

// addSourceAndErrorTerm accumulates the octant share of the volume sources
// and of the error damping for one sub-volume. Every cell sits in eight
// interaction volumes, one per corner.
func (l *LPressure3) addSourceAndErrorTerm(cell int) {
	m := l.problem.Mesh()
	volume := m.CellVolume(cell)
	src := l.problem.Source(cell)
	l.f.DataP[cell] += volume / 8.0 * (src[types.WPhase]/l.density[types.WPhase] +
		src[types.NPhase]/l.density[types.NPhase])
	l.f.DataP[cell] += l.evaluateErrorTerm(l.problem.Variables().CellData(cell)) * volume / 8.0
}

func (l *LPressure3) assemble() error {
	l.a.Zero()
	l.f.Zero()

	for v := range l.interactionVolumes {
		iv := &l.interactionVolumes[v]
		if !iv.IsStored() {
			continue
		}
		if iv.IsInnerVolume() {
			l.assembleInnerVolume3(iv)
		} else if err := l.assembleBoundaryVolume3(iv); err != nil {
			return err
		}
	}
	return nil
}

// fracFlowUpwind3 evaluates the fractional flow of the capillary-flux phase
// in the upwind cell of a face.
func (l *LPressure3) fracFlowUpwind3(potential float64, up, down *twophase.CellData) float64 {
	phase := types.NPhase
	if l.cfg.Pressure == types.PressureNW {
		phase = types.WPhase
	}
	c := down
	if potential >= 0 {
		c = up
	}
	lambdaT := c.Mobility(types.WPhase) + c.Mobility(types.NPhase)
	if lambdaT > mobilityThreshold {
		return c.Mobility(phase) / lambdaT
	}
	return 0
}

// assembleInnerVolume3 adds the twelve quarter-face fluxes of a full
// interaction volume. Each flux row is assembled antisymmetrically into the
// rows of the two cells sharing the face, oriented from the lower octant to
// its partner.
func (l *LPressure3) assembleInnerVolume3(iv *InteractionVolume3) {
	vars := l.problem.Variables()
	m := l.problem.Mesh()

	var g [octants]int
	var cd [octants]*twophase.CellData
	var lambda [octants]float64
	var pc [octants]float64
	pcZero := true
	for s := 0; s < octants; s++ {
		g[s] = iv.SubVolumeElement(s)
		cd[s] = vars.CellData(g[s])
		lambda[s] = cd[s].Mobility(types.WPhase) + cd[s].Mobility(types.NPhase)
		pc[s] = cd[s].CapillaryPressure() + l.gravityPcDiff(m.CellCenter(g[s]))
		if pc[s] != 0 {
			pcZero = false
		}
		l.addSourceAndErrorTerm(g[s])
	}

	sign := -1.0
	if l.cfg.Pressure == types.PressureNW {
		sign = 1.0
	}

	for d := 0; d < axes; d++ {
		for s := 0; s < octants; s++ {
			if s&(1<<d) != 0 {
				continue
			}
			t := s | (1 << d)
			row, octs := l.tc.Calculate(iv, &lambda, s, d)

			for j := 0; j < subStencil; j++ {
				l.a.Add(g[s], g[octs[j]], row[j])
				l.a.Add(g[t], g[octs[j]], -row[j])
			}

			if pcZero {
				continue
			}
			var pcFlux float64
			for j := 0; j < subStencil; j++ {
				pcFlux += row[j] * pc[octs[j]]
			}
			real := pcFlux * l.fracFlowUpwind3(pcFlux, cd[s], cd[t])
			l.f.DataP[g[s]] += sign * real
			l.f.DataP[g[t]] -= sign * real
		}
	}
}

// assembleBoundaryVolume3 handles interaction volumes with missing octants.
// Interior quarter faces get a two-point flux with the harmonic mean of the
// normal permeabilities; boundary quarter faces couple to the boundary
// condition as in the 2D boundary volumes.
func (l *LPressure3) assembleBoundaryVolume3(iv *InteractionVolume3) error {
	sign := -1.0
	if l.cfg.Pressure == types.PressureNW {
		sign = 1.0
	}

	for s := 0; s < octants; s++ {
		cell := iv.SubVolumeElement(s)
		if cell < 0 {
			continue
		}
		l.addSourceAndErrorTerm(cell)

		for d := 0; d < axes; d++ {
			t := s ^ (1 << d)
			partner := iv.SubVolumeElement(t)

			if partner >= 0 {
				// assemble each interior pair once, from the lower octant
				if s&(1<<d) != 0 {
					continue
				}
				l.assembleTwoPointPair(iv, s, t, d, sign)
				continue
			}

			if err := l.assembleBoundaryFace3(iv, s, d, sign); err != nil {
				return err
			}
		}
	}
	return nil
}

// assembleTwoPointPair adds the two-point flux of an interior quarter face
// inside a boundary interaction volume.
func (l *LPressure3) assembleTwoPointPair(iv *InteractionVolume3, s, t, d int, sign float64) {
	m := l.problem.Mesh()
	vars := l.problem.Variables()

	ga, gb := iv.SubVolumeElement(s), iv.SubVolumeElement(t)
	cda, cdb := vars.CellData(ga), vars.CellData(gb)
	n := iv.Normal(s, d)
	x := iv.FacePosition(s, d)
	area := iv.FaceArea(s, d)

	da := math.Abs(x.Sub(m.CellCenter(ga)).Dot(n))
	db := math.Abs(x.Sub(m.CellCenter(gb)).Dot(n))
	ta := n.Dot(l.problem.IntrinsicPermeability(ga).Apply(n)) / da
	tb := n.Dot(l.problem.IntrinsicPermeability(gb).Apply(n)) / db
	geom := ta * tb / (ta + tb) * area

	lambdaA := cda.Mobility(types.WPhase) + cda.Mobility(types.NPhase)
	lambdaB := cdb.Mobility(types.WPhase) + cdb.Mobility(types.NPhase)
	entry := 0.5 * (lambdaA + lambdaB) * geom

	l.a.Add(ga, ga, entry)
	l.a.Add(ga, gb, -entry)
	l.a.Add(gb, gb, entry)
	l.a.Add(gb, ga, -entry)

	pcA := cda.CapillaryPressure() + l.gravityPcDiff(m.CellCenter(ga))
	pcB := cdb.CapillaryPressure() + l.gravityPcDiff(m.CellCenter(gb))
	if pcA == 0 && pcB == 0 {
		return
	}
	pcFlux := 0.5 * (lambdaA + lambdaB) * geom * (pcA - pcB)
	real := pcFlux * l.fracFlowUpwind3(pcFlux, cda, cdb)
	l.f.DataP[ga] += sign * real
	l.f.DataP[gb] -= sign * real
}

// assembleBoundaryFace3 couples one boundary quarter face to its condition:
// Dirichlet faces add the two-point entry against the boundary potential,
// Neumann faces enter the right-hand side with the stored quarter-face flux.
func (l *LPressure3) assembleBoundaryFace3(iv *InteractionVolume3, s, d int, sign float64) error {
	m := l.problem.Mesh()
	vars := l.problem.Variables()

	cell := iv.SubVolumeElement(s)
	cd := vars.CellData(cell)
	center := m.CellCenter(cell)
	bt := iv.BoundaryType(s, d)

	switch {
	case bt.IsDirichlet(types.PressEqIdx):
		boundValues := iv.DirichletValues(s, d)
		posFace := iv.FacePosition(s, d)
		faceArea := iv.FaceArea(s, d)
		distVec := posFace.Sub(center)
		dist := distVec.Norm()
		unitDist := distVec.Scale(1.0 / dist)

		satWBound := cd.Saturation(types.WPhase)
		if bt.IsDirichlet(types.SatEqIdx) {
			if l.cfg.Saturation == types.SaturationNW {
				satWBound = 1.0 - boundValues[types.SaturationIdx]
			} else {
				satWBound = boundValues[types.SaturationIdx]
			}
		}
		law := l.problem.MaterialLaw(cell)
		pcBound := law.Pc(satWBound) + l.gravityPcDiff(posFace)
		pc := cd.CapillaryPressure() + l.gravityPcDiff(center)

		lambdaWBound := law.Krw(satWBound) / l.viscosity[types.WPhase]
		lambdaNWBound := law.Krn(satWBound) / l.viscosity[types.NPhase]

		gdeltaZ := l.problem.BBoxMax().Sub(posFace).Dot(l.gravity)
		potentialBound := boundValues[types.PressureIdx]
		pressW := cd.Pressure(types.WPhase)
		pressNW := cd.Pressure(types.NPhase)
		var potentialW, potentialNW float64
		switch l.cfg.Pressure {
		case types.PressureW:
			potentialBound += l.density[types.WPhase] * gdeltaZ
			potentialW = (pressW - potentialBound) / dist
			potentialNW = (pressNW - potentialBound - pcBound) / dist
		case types.PressureNW:
			potentialBound += l.density[types.NPhase] * gdeltaZ
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

		k := l.problem.IntrinsicPermeability(cell)
		entry := (lambdaWUp + lambdaNWUp) * unitDist.Dot(k.Apply(unitDist)) / dist * faceArea
		l.a.Add(cell, cell, entry)
		l.f.DataP[cell] += entry * potentialBound

		if pc == 0 && pcBound == 0 {
			return nil
		}
		var lambdaPcCell, lambdaPcBound float64
		switch l.cfg.Pressure {
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
		l.f.DataP[cell] += sign * pcFlux

	case bt.IsNeumann(types.PressEqIdx):
		j := iv.NeumannValues(s, d)
		l.f.DataP[cell] -= j[types.WPhase]/l.density[types.WPhase] +
			j[types.NPhase]/l.density[types.NPhase]

	default:
		return fmt.Errorf("%w (cell %d, octant %d axis %d)",
			types.ErrBoundaryCondition, cell, s, d)
	}
	return nil
}
