package mpfa

import (
	"fmt"

	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/types"
)

// CalculateVelocity reconstructs the phase velocities and upwind potentials
// on all cell faces from the solved pressure field. Every interaction volume
// contributes its half-face fluxes; a face collects contributions from the
// volumes around both of its end vertices, which is why the per-face parts
// carry a factor 1/2.
func (l *LPressure) CalculateVelocity() error {
	for v := range l.interactionVolumes {
		iv := &l.interactionVolumes[v]
		if !iv.IsStored() {
			continue
		}
		switch {
		case iv.IsHangingNodeVolume():
			l.calcHangingVolumeVelocity(iv)
		case iv.IsInnerVolume():
			l.calcInnerVolumeVelocity(iv)
		default:
			if err := l.calcBoundaryVolumeVelocity(iv); err != nil {
				return err
			}
		}
	}
	return nil
}

func fracFlow(upwMob *[types.NumPhases]float64, phase int) float64 {
	lambdaT := upwMob[types.WPhase] + upwMob[types.NPhase]
	if lambdaT > mobilityThreshold {
		return upwMob[phase] / lambdaT
	}
	return 0
}

// calcInnerVolumeVelocity evaluates the eight half-face fluxes of a full
// interaction volume for both phases and distributes them as velocities
// onto the involved cell faces. The flux of a face is converted with the
// normal it was computed for; a coarser cell next to a finer one gets the
// half weight since its face collects twice as many contributions.
func (l *LPressure) calcInnerVolumeVelocity(iv *InteractionVolume) {
	vars := l.problem.Variables()
	m := l.problem.Mesh()

	var g [subVolumes]int
	var cd [subVolumes]*twophase.CellData
	var press [types.NumPhases][subVolumes]float64
	var mob [subVolumes][types.NumPhases]float64
	var lambda [subVolumes][localFaces]float64
	var level [subVolumes]int
	for i := 0; i < subVolumes; i++ {
		g[i] = iv.SubVolumeElement(i)
		cd[i] = vars.CellData(g[i])
		for ph := 0; ph < types.NumPhases; ph++ {
			press[ph][i] = cd[i].Pressure(ph)
			mob[i][ph] = cd[i].Mobility(ph)
		}
		lambdaT := mob[i][types.WPhase] + mob[i][types.NPhase]
		lambda[i][0], lambda[i][1] = lambdaT, lambdaT
		if m.WasRefined(g[i]) {
			level[i] = 1
		}
	}

	// flux and potential per phase, face order 12, 32, 34, 14
	var flux, pot [types.NumPhases][subVolumes]float64
	for f := 0; f < subVolumes; f++ {
		idx1, idx2, idx3, idx4 := f, (f+1)%4, (f+2)%4, (f+3)%4
		t, tri := l.tc.Calculate(iv, &lambda, idx1, idx2, idx3, idx4)
		for ph := 0; ph < types.NumPhases; ph++ {
			var u [3]float64
			if tri == RightTriangle {
				u = [3]float64{press[ph][idx2], press[ph][idx3], press[ph][idx1]}
			} else {
				u = [3]float64{press[ph][idx1], press[ph][idx4], press[ph][idx2]}
			}
			tu := t.At(1, 0)*u[0] + t.At(1, 1)*u[1] + t.At(1, 2)*u[2]
			flux[ph][f] = tu
			if f == 1 || f == 3 {
				pot[ph][f] = -tu
			} else {
				pot[ph][f] = tu
			}
		}
	}

	var up12, up32, up34, up14 [types.NumPhases]float64
	for ph := 0; ph < types.NumPhases; ph++ {
		cd[0].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(0, 0), pot[ph][0])
		cd[0].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(0, 1), pot[ph][3])
		cd[1].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(1, 0), -pot[ph][1])
		cd[1].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(1, 1), -pot[ph][0])
		cd[2].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(2, 0), pot[ph][2])
		cd[2].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(2, 1), pot[ph][1])
		cd[3].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(3, 0), -pot[ph][3])
		cd[3].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(3, 1), -pot[ph][2])

		up12[ph] = pick(pot[ph][0] >= 0, mob[0][ph], mob[1][ph])
		up32[ph] = pick(pot[ph][1] >= 0, mob[2][ph], mob[1][ph])
		up34[ph] = pick(pot[ph][2] >= 0, mob[2][ph], mob[3][ph])
		up14[ph] = pick(pot[ph][3] >= 0, mob[0][ph], mob[3][ph])
	}

	for ph := 0; ph < types.NumPhases; ph++ {
		vel12 := iv.Normal(0, 0).Scale(flux[ph][0] / (2 * iv.FaceArea(0, 0)))
		vel14 := iv.Normal(3, 0).Scale(flux[ph][3] / (2 * iv.FaceArea(0, 1)))
		vel23 := iv.Normal(1, 0).Scale(flux[ph][1] / (2 * iv.FaceArea(1, 0)))
		vel21 := iv.Normal(0, 0).Scale(flux[ph][0] / (2 * iv.FaceArea(1, 1)))
		vel34 := iv.Normal(2, 0).Scale(flux[ph][2] / (2 * iv.FaceArea(2, 0)))
		vel32 := iv.Normal(1, 0).Scale(flux[ph][1] / (2 * iv.FaceArea(2, 1)))
		vel41 := iv.Normal(3, 0).Scale(flux[ph][3] / (2 * iv.FaceArea(3, 0)))
		vel43 := iv.Normal(2, 0).Scale(flux[ph][2] / (2 * iv.FaceArea(3, 1)))

		// the coarser side of a non-conforming face collects four instead
		// of two contributions
		if level[0] < level[1] {
			vel12 = vel12.Scale(0.5)
		} else if level[1] < level[0] {
			vel21 = vel21.Scale(0.5)
		}
		if level[1] < level[2] {
			vel23 = vel23.Scale(0.5)
		} else if level[2] < level[1] {
			vel32 = vel32.Scale(0.5)
		}
		if level[2] < level[3] {
			vel34 = vel34.Scale(0.5)
		} else if level[3] < level[2] {
			vel43 = vel43.Scale(0.5)
		}
		if level[3] < level[0] {
			vel41 = vel41.Scale(0.5)
		} else if level[0] < level[3] {
			vel14 = vel14.Scale(0.5)
		}

		ff12 := fracFlow(&up12, ph)
		ff32 := fracFlow(&up32, ph)
		ff34 := fracFlow(&up34, ph)
		ff14 := fracFlow(&up14, ph)

		vel12 = vel12.Scale(ff12)
		vel21 = vel21.Scale(ff12)
		vel23 = vel23.Scale(ff32)
		vel32 = vel32.Scale(ff32)
		vel34 = vel34.Scale(ff34)
		vel43 = vel43.Scale(ff34)
		vel41 = vel41.Scale(ff14)
		vel14 = vel14.Scale(ff14)

		if l.innerBoundaryVolumeFaces[g[0]][iv.IndexOnElement(0, 0)] {
			vel12 = vel12.Scale(2)
		}
		if l.innerBoundaryVolumeFaces[g[0]][iv.IndexOnElement(0, 1)] {
			vel14 = vel14.Scale(2)
		}
		if l.innerBoundaryVolumeFaces[g[1]][iv.IndexOnElement(1, 0)] {
			vel23 = vel23.Scale(2)
		}
		if l.innerBoundaryVolumeFaces[g[1]][iv.IndexOnElement(1, 1)] {
			vel21 = vel21.Scale(2)
		}
		if l.innerBoundaryVolumeFaces[g[2]][iv.IndexOnElement(2, 0)] {
			vel34 = vel34.Scale(2)
		}
		if l.innerBoundaryVolumeFaces[g[2]][iv.IndexOnElement(2, 1)] {
			vel32 = vel32.Scale(2)
		}
		if l.innerBoundaryVolumeFaces[g[3]][iv.IndexOnElement(3, 0)] {
			vel41 = vel41.Scale(2)
		}
		if l.innerBoundaryVolumeFaces[g[3]][iv.IndexOnElement(3, 1)] {
			vel43 = vel43.Scale(2)
		}

		cd[0].FluxData().AddVelocity(ph, iv.IndexOnElement(0, 0), vel12)
		cd[0].FluxData().AddVelocity(ph, iv.IndexOnElement(0, 1), vel14)
		cd[1].FluxData().AddVelocity(ph, iv.IndexOnElement(1, 0), vel23)
		cd[1].FluxData().AddVelocity(ph, iv.IndexOnElement(1, 1), vel21)
		cd[2].FluxData().AddVelocity(ph, iv.IndexOnElement(2, 0), vel34)
		cd[2].FluxData().AddVelocity(ph, iv.IndexOnElement(2, 1), vel32)
		cd[3].FluxData().AddVelocity(ph, iv.IndexOnElement(3, 0), vel41)
		cd[3].FluxData().AddVelocity(ph, iv.IndexOnElement(3, 1), vel43)
	}

	for i := 0; i < subVolumes; i++ {
		cd[i].FluxData().SetVelocityMarker(iv.IndexOnElement(i, 0))
		cd[i].FluxData().SetVelocityMarker(iv.IndexOnElement(i, 1))
	}
}

// calcHangingVolumeVelocity is the three-cell variant around a hanging
// node. The coarse cell's faces collect four contributions instead of two,
// hence the divisor 4 on its velocity parts.
func (l *LPressure) calcHangingVolumeVelocity(iv *InteractionVolume) {
	vars := l.problem.Variables()

	g1 := iv.SubVolumeElement(0)
	g2 := iv.SubVolumeElement(1)
	g4 := iv.SubVolumeElement(3)
	cd1 := vars.CellData(g1)
	cd2 := vars.CellData(g2)
	cd4 := vars.CellData(g4)

	var press [types.NumPhases][subVolumes]float64
	var mob [subVolumes][types.NumPhases]float64
	var lambda [subVolumes][localFaces]float64
	for _, i := range [...]int{0, 1, 3} {
		cd := vars.CellData(iv.SubVolumeElement(i))
		for ph := 0; ph < types.NumPhases; ph++ {
			press[ph][i] = cd.Pressure(ph)
			mob[i][ph] = cd.Mobility(ph)
		}
		lambdaT := mob[i][types.WPhase] + mob[i][types.NPhase]
		lambda[i][0], lambda[i][1] = lambdaT, lambdaT
	}

	// fluxes through the fine-fine face, the face 2-4 and the face 4-1
	var flux [types.NumPhases][3]float64
	var pot12, pot24, pot14 [types.NumPhases]float64

	t0, tri := l.tc.Calculate(iv, &lambda, 0, 1, 3, 3)
	for ph := 0; ph < types.NumPhases; ph++ {
		var u [3]float64
		if tri == RightTriangle {
			u = [3]float64{press[ph][1], press[ph][3], press[ph][0]}
		} else {
			u = [3]float64{press[ph][0], press[ph][3], press[ph][1]}
		}
		tu := t0.At(1, 0)*u[0] + t0.At(1, 1)*u[1] + t0.At(1, 2)*u[2]
		flux[ph][0] = tu
		pot12[ph] = tu
	}

	t1 := l.tc.CalculateLeft(iv, &lambda, 1, 3, 0)
	for ph := 0; ph < types.NumPhases; ph++ {
		tu := t1.At(1, 0)*press[ph][1] + t1.At(1, 1)*press[ph][0] + t1.At(1, 2)*press[ph][3]
		flux[ph][1] = tu
		pot24[ph] = tu
	}

	t3 := l.tc.CalculateRight(iv, &lambda, 3, 0, 1)
	for ph := 0; ph < types.NumPhases; ph++ {
		tu := t3.At(1, 0)*press[ph][0] + t3.At(1, 1)*press[ph][1] + t3.At(1, 2)*press[ph][3]
		flux[ph][2] = tu
		pot14[ph] = -tu
	}

	var up12, up24, up14 [types.NumPhases]float64
	for ph := 0; ph < types.NumPhases; ph++ {
		cd1.FluxData().AddUpwindPotential(ph, iv.IndexOnElement(0, 0), pot12[ph])
		cd1.FluxData().AddUpwindPotential(ph, iv.IndexOnElement(0, 1), pot14[ph])
		cd2.FluxData().AddUpwindPotential(ph, iv.IndexOnElement(1, 0), pot24[ph])
		cd2.FluxData().AddUpwindPotential(ph, iv.IndexOnElement(1, 1), -pot12[ph])
		cd4.FluxData().AddUpwindPotential(ph, iv.IndexOnElement(3, 0), -pot14[ph])
		cd4.FluxData().AddUpwindPotential(ph, iv.IndexOnElement(3, 1), -pot24[ph])

		up12[ph] = pick(pot12[ph] >= 0, mob[0][ph], mob[1][ph])
		up14[ph] = pick(pot14[ph] >= 0, mob[0][ph], mob[3][ph])
		up24[ph] = pick(pot24[ph] >= 0, mob[1][ph], mob[3][ph])
	}

	for ph := 0; ph < types.NumPhases; ph++ {
		vel12 := iv.Normal(0, 0).Scale(flux[ph][0] / (2 * iv.FaceArea(0, 0)))
		vel14 := iv.Normal(3, 0).Scale(flux[ph][2] / (2 * iv.FaceArea(3, 0)))
		vel24 := iv.Normal(1, 0).Scale(flux[ph][1] / (2 * iv.FaceArea(1, 0)))
		vel21 := iv.Normal(0, 0).Scale(flux[ph][0] / (2 * iv.FaceArea(0, 0)))
		vel41 := iv.Normal(3, 0).Scale(flux[ph][2] / (4 * iv.FaceArea(3, 0)))
		vel42 := iv.Normal(1, 0).Scale(flux[ph][1] / (4 * iv.FaceArea(1, 0)))

		ff12 := fracFlow(&up12, ph)
		ff14 := fracFlow(&up14, ph)
		ff24 := fracFlow(&up24, ph)

		vel12 = vel12.Scale(ff12)
		vel21 = vel21.Scale(ff12)
		vel14 = vel14.Scale(ff14)
		vel41 = vel41.Scale(ff14)
		vel24 = vel24.Scale(ff24)
		vel42 = vel42.Scale(ff24)

		if l.innerBoundaryVolumeFaces[g1][iv.IndexOnElement(0, 0)] {
			vel12 = vel12.Scale(2)
			vel21 = vel21.Scale(2)
		}
		if l.innerBoundaryVolumeFaces[g1][iv.IndexOnElement(0, 1)] {
			vel14 = vel14.Scale(2)
			vel41 = vel41.Scale(2)
		}
		if l.innerBoundaryVolumeFaces[g2][iv.IndexOnElement(1, 0)] {
			vel24 = vel24.Scale(2)
			vel42 = vel42.Scale(2)
		}

		cd1.FluxData().AddVelocity(ph, iv.IndexOnElement(0, 0), vel12)
		cd1.FluxData().AddVelocity(ph, iv.IndexOnElement(0, 1), vel14)
		cd2.FluxData().AddVelocity(ph, iv.IndexOnElement(1, 0), vel24)
		cd2.FluxData().AddVelocity(ph, iv.IndexOnElement(1, 1), vel21)
		cd4.FluxData().AddVelocity(ph, iv.IndexOnElement(3, 0), vel41)
		cd4.FluxData().AddVelocity(ph, iv.IndexOnElement(3, 1), vel42)
	}

	cd1.FluxData().SetVelocityMarker(iv.IndexOnElement(0, 0))
	cd1.FluxData().SetVelocityMarker(iv.IndexOnElement(0, 1))
	cd2.FluxData().SetVelocityMarker(iv.IndexOnElement(1, 0))
	cd2.FluxData().SetVelocityMarker(iv.IndexOnElement(1, 1))
	cd4.FluxData().SetVelocityMarker(iv.IndexOnElement(3, 0))
	cd4.FluxData().SetVelocityMarker(iv.IndexOnElement(3, 1))
}

// calcBoundaryVolumeVelocity evaluates two-point velocities against the
// boundary conditions. Each boundary face is visited from its two end
// vertices, hence the halving of the Dirichlet velocity and the 2*faceArea
// divisor of the Neumann flux.
func (s *pressureSolver) calcBoundaryVolumeVelocity(iv *InteractionVolume) error {
	m := s.problem.Mesh()
	vars := s.problem.Variables()

	for elemIdx := 0; elemIdx < subVolumes; elemIdx++ {
		cell := iv.SubVolumeElement(elemIdx)
		if cell < 0 {
			continue
		}
		cd := vars.CellData(cell)
		center := m.CellCenter(cell)
		pressW := cd.Pressure(types.WPhase)
		pressNW := cd.Pressure(types.NPhase)

		for fIdx := 0; fIdx < localFaces; fIdx++ {
			ivFace := iv.FaceIndexFromSubVolume(elemIdx, fIdx)
			if !iv.IsBoundaryFace(ivFace) {
				continue
			}
			bt := iv.BoundaryType(ivFace)
			boundaryFaceIdx := iv.IndexOnElement(elemIdx, fIdx)
			posFace := m.FaceCenter(cell, boundaryFaceIdx)
			distVec := posFace.Sub(center)
			dist := distVec.Norm()
			unitDist := distVec.Scale(1.0 / dist)

			switch {
			case bt.IsDirichlet(types.PressEqIdx):
				boundValues := iv.DirichletValues(ivFace)

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

				gdeltaZ := s.problem.BBoxMax().Sub(center).Dot(s.gravity)
				potentialBoundW := boundValues[types.PressureIdx] + s.density[types.WPhase]*gdeltaZ
				potentialBoundNW := potentialBoundW
				switch s.cfg.Pressure {
				case types.PressureW:
					potentialBoundNW += pcBound
				case types.PressureNW:
					potentialBoundW -= pcBound
				}

				potentialW := (pressW - potentialBoundW) / dist
				potentialNW := (pressNW - potentialBoundNW) / dist

				cd.FluxData().AddUpwindPotential(types.WPhase, boundaryFaceIdx, potentialW)
				cd.FluxData().AddUpwindPotential(types.NPhase, boundaryFaceIdx, potentialNW)

				k := s.problem.IntrinsicPermeability(cell)
				velocityW := k.Apply(unitDist.Scale((pressW - potentialBoundW) / dist))
				velocityNW := k.Apply(unitDist.Scale((pressNW - potentialBoundNW) / dist))

				velocityW = velocityW.Scale(
					pick(potentialW >= 0, cd.Mobility(types.WPhase), lambdaWBound))
				velocityNW = velocityNW.Scale(
					pick(potentialNW >= 0, cd.Mobility(types.NPhase), lambdaNWBound))

				// two vertices share one boundary face
				velocityW = velocityW.Scale(0.5)
				velocityNW = velocityNW.Scale(0.5)

				cd.FluxData().AddVelocity(types.WPhase, boundaryFaceIdx, velocityW)
				cd.FluxData().AddVelocity(types.NPhase, boundaryFaceIdx, velocityNW)
				cd.FluxData().SetVelocityMarker(boundaryFaceIdx)

			case bt.IsNeumann(types.PressEqIdx):
				j := iv.NeumannValues(ivFace)
				jW := j[types.WPhase] / s.density[types.WPhase]
				jNW := j[types.NPhase] / s.density[types.NPhase]

				velocityW := unitDist.Scale(jW / (2 * iv.FaceArea(elemIdx, fIdx)))
				velocityNW := unitDist.Scale(jNW / (2 * iv.FaceArea(elemIdx, fIdx)))

				cd.FluxData().AddUpwindPotential(types.WPhase, boundaryFaceIdx, jW)
				cd.FluxData().AddUpwindPotential(types.NPhase, boundaryFaceIdx, jNW)
				cd.FluxData().AddVelocity(types.WPhase, boundaryFaceIdx, velocityW)
				cd.FluxData().AddVelocity(types.NPhase, boundaryFaceIdx, velocityNW)
				cd.FluxData().SetVelocityMarker(boundaryFaceIdx)

			default:
				return fmt.Errorf("%w (cell %d, interaction volume face %d)",
					types.ErrBoundaryCondition, cell, ivFace)
			}
		}
	}
	return nil
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
