package mpfa

import (
	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/types"
	"github.com/pmflow/gompfa/utils"
)

// LPressure assembles the cell-centered pressure equation with the MPFA
// L-method. Every flux face of an inner interaction volume is expanded over
// a three-cell triangle stencil chosen adaptively per face; interaction
// volumes around hanging nodes shrink to three sub-volumes. Boundary volumes
// fall back to two-point fluxes against the boundary condition.
type LPressure struct {
	*pressureSolver
	tc *TransmissibilityCalculator
}

func NewLPressure(p twophase.Problem, cfg types.ModelConfig) (*LPressure, error) {
	s, err := newPressureSolver(p, cfg, outwardNormals, false)
	if err != nil {
		return nil, err
	}
	l := &LPressure{
		pressureSolver: s,
		tc:             NewTransmissibilityCalculator(p),
	}
	s.assembleFn = l.assemble
	return l, nil
}

func (l *LPressure) assemble(first bool) error {
	l.a.Zero()
	l.f.Zero()

	for v := range l.interactionVolumes {
		iv := &l.interactionVolumes[v]
		if !iv.IsStored() {
			continue
		}
		switch {
		case iv.IsHangingNodeVolume():
			l.assembleHangingVolume(iv)
		case iv.IsInnerVolume():
			l.assembleInnerVolume(iv)
		default:
			if err := l.assembleBoundaryVolume(iv); err != nil {
				return err
			}
		}
	}
	return nil
}

// fracFlowUpwind evaluates the fractional flow of the capillary-flux phase
// in the upwind cell of a face.
func (l *LPressure) fracFlowUpwind(potential float64, up, down *twophase.CellData) float64 {
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

// assembleInnerVolume adds the four flux faces of a full interaction
// volume. Each face flux is T[1] * u with the pressure vector u ordered by
// the selected triangle; the face is assembled antisymmetrically into the
// rows of its two cells. Faces whose twin interaction volume is a boundary
// volume count twice.
func (l *LPressure) assembleInnerVolume(iv *InteractionVolume) {
	vars := l.problem.Variables()
	m := l.problem.Mesh()

	var g [subVolumes]int
	var cd [subVolumes]*twophase.CellData
	var lambda [subVolumes][localFaces]float64
	var pc [subVolumes]float64
	for i := 0; i < subVolumes; i++ {
		g[i] = iv.SubVolumeElement(i)
		cd[i] = vars.CellData(g[i])
		lambdaT := cd[i].Mobility(types.WPhase) + cd[i].Mobility(types.NPhase)
		lambda[i][0], lambda[i][1] = lambdaT, lambdaT
		pc[i] = cd[i].CapillaryPressure() + l.gravityPcDiff(m.CellCenter(g[i]))
		l.addSourceAndErrorTerm(g[i])
	}
	pcZero := pc[0] == 0 && pc[1] == 0 && pc[2] == 0 && pc[3] == 0

	var pcFlux [subVolumes]float64
	for f := 0; f < subVolumes; f++ {
		idx1, idx2, idx3, idx4 := f, (f+1)%4, (f+2)%4, (f+3)%4
		t, tri := l.tc.Calculate(iv, &lambda, idx1, idx2, idx3, idx4)

		if l.innerBoundaryVolumeFaces[g[idx1]][iv.IndexOnElement(idx1, 0)] {
			t.Scale(2.0)
		}

		var u [3]float64
		if tri == RightTriangle {
			l.addFluxFace(t, g[idx1], g[idx2], g[idx2], g[idx3], g[idx1])
			u = [3]float64{pc[idx2], pc[idx3], pc[idx1]}
		} else {
			l.addFluxFace(t, g[idx1], g[idx2], g[idx1], g[idx4], g[idx2])
			u = [3]float64{pc[idx1], pc[idx4], pc[idx2]}
		}
		if !pcZero {
			pcFlux[f] = t.At(1, 0)*u[0] + t.At(1, 1)*u[1] + t.At(1, 2)*u[2]
		}
	}
	if pcZero {
		return
	}

	// face order 12, 32, 34, 14; the flux of face f is oriented from
	// sub-volume f to f+1
	potential12 := pcFlux[0]
	potential32 := -pcFlux[1]
	potential34 := pcFlux[2]
	potential14 := -pcFlux[3]

	var real [subVolumes]float64
	real[0] = pcFlux[0] * l.fracFlowUpwind(potential12, cd[0], cd[1])
	real[1] = pcFlux[1] * l.fracFlowUpwind(potential32, cd[2], cd[1])
	real[2] = pcFlux[2] * l.fracFlowUpwind(potential34, cd[2], cd[3])
	real[3] = pcFlux[3] * l.fracFlowUpwind(potential14, cd[0], cd[3])

	sign := -1.0
	if l.cfg.Pressure == types.PressureNW {
		sign = 1.0
	}
	l.f.DataP[g[0]] += sign * (real[0] - real[3])
	l.f.DataP[g[1]] += sign * (real[1] - real[0])
	l.f.DataP[g[2]] += sign * (real[2] - real[1])
	l.f.DataP[g[3]] += sign * (real[3] - real[2])
}

// addFluxFace writes one face flux T[1]*(p_c0, p_c1, p_c2) into the global
// matrix: an outflow of rowOut and an inflow of rowIn.
func (l *LPressure) addFluxFace(t utils.Matrix, rowOut, rowIn, c0, c1, c2 int) {
	l.a.Add(rowOut, c0, t.At(1, 0))
	l.a.Add(rowOut, c1, t.At(1, 1))
	l.a.Add(rowOut, c2, t.At(1, 2))
	l.a.Add(rowIn, c0, -t.At(1, 0))
	l.a.Add(rowIn, c1, -t.At(1, 1))
	l.a.Add(rowIn, c2, -t.At(1, 2))
}

// assembleHangingVolume adds the three flux faces of an interaction volume
// around a hanging node. The fine-fine face keeps the adaptive triangle
// selection; the two faces against the coarse cell have only one triangle
// each. Sources and the error term go to the fine sub-volumes only, so the
// coarse cell collects its full share from its own corner volumes.
func (l *LPressure) assembleHangingVolume(iv *InteractionVolume) {
	vars := l.problem.Variables()
	m := l.problem.Mesh()

	g1 := iv.SubVolumeElement(0)
	g2 := iv.SubVolumeElement(1)
	g4 := iv.SubVolumeElement(3)
	cd1 := vars.CellData(g1)
	cd2 := vars.CellData(g2)
	cd4 := vars.CellData(g4)

	var lambda [subVolumes][localFaces]float64
	var pc [subVolumes]float64
	for _, i := range [...]int{0, 1, 3} {
		cell := iv.SubVolumeElement(i)
		cd := vars.CellData(cell)
		lambdaT := cd.Mobility(types.WPhase) + cd.Mobility(types.NPhase)
		lambda[i][0], lambda[i][1] = lambdaT, lambdaT
		pc[i] = cd.CapillaryPressure() + l.gravityPcDiff(m.CellCenter(cell))
	}
	l.addSourceAndErrorTerm(g1)
	l.addSourceAndErrorTerm(g2)
	pcZero := pc[0] == 0 && pc[1] == 0 && pc[3] == 0

	// fine-fine face through the hanging node
	t0, tri := l.tc.Calculate(iv, &lambda, 0, 1, 3, 3)
	if l.innerBoundaryVolumeFaces[g1][iv.IndexOnElement(0, 0)] {
		t0.Scale(2.0)
	}
	var u0 [3]float64
	if tri == RightTriangle {
		l.addFluxFace(t0, g1, g2, g2, g4, g1)
		u0 = [3]float64{pc[1], pc[3], pc[0]}
	} else {
		l.addFluxFace(t0, g1, g2, g1, g4, g2)
		u0 = [3]float64{pc[0], pc[3], pc[1]}
	}

	// half faces against the coarse cell: only the triangle on the fine
	// side exists
	t1 := l.tc.CalculateLeft(iv, &lambda, 1, 3, 0)
	if l.innerBoundaryVolumeFaces[g2][iv.IndexOnElement(1, 0)] {
		t1.Scale(2.0)
	}
	l.addFluxFace(t1, g2, g4, g2, g1, g4)

	t3 := l.tc.CalculateRight(iv, &lambda, 3, 0, 1)
	if l.innerBoundaryVolumeFaces[g4][iv.IndexOnElement(3, 0)] {
		t3.Scale(2.0)
	}
	l.addFluxFace(t3, g4, g1, g1, g2, g4)

	if pcZero {
		return
	}

	pcFlux12 := t0.At(1, 0)*u0[0] + t0.At(1, 1)*u0[1] + t0.At(1, 2)*u0[2]
	pcFlux24 := t1.At(1, 0)*pc[1] + t1.At(1, 1)*pc[0] + t1.At(1, 2)*pc[3]
	pcFlux41 := t3.At(1, 0)*pc[0] + t3.At(1, 1)*pc[1] + t3.At(1, 2)*pc[3]

	potential12 := pcFlux12
	potential24 := pcFlux24
	potential14 := -pcFlux41

	real12 := pcFlux12 * l.fracFlowUpwind(potential12, cd1, cd2)
	real24 := pcFlux24 * l.fracFlowUpwind(potential24, cd2, cd4)
	real14 := pcFlux41 * l.fracFlowUpwind(potential14, cd1, cd4)

	sign := -1.0
	if l.cfg.Pressure == types.PressureNW {
		sign = 1.0
	}
	l.f.DataP[g1] += sign * (real12 - real14)
	l.f.DataP[g2] += sign * (real24 - real12)
	l.f.DataP[g4] += sign * (real14 - real24)
}
