package mpfa

import (
	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/types"
)

// CalculateVelocity reconstructs the phase velocities and upwind potentials
// on all cell faces from the solved pressure field. Inner interaction
// volumes re-condense their transmissibility matrix and evaluate it against
// the phase pressures; boundary volumes fall back to two-point velocities
// against the boundary condition, exactly mirroring the assembly split.
func (o *OPressure) CalculateVelocity() error {
	for v := range o.interactionVolumes {
		iv := &o.interactionVolumes[v]
		if !iv.IsStored() {
			continue
		}
		if iv.IsInnerVolume() {
			if err := o.calcInnerVolumeVelocity(iv); err != nil {
				return err
			}
		} else if err := o.calcBoundaryVolumeVelocity(iv); err != nil {
			return err
		}
	}
	return nil
}

// calcInnerVolumeVelocity distributes the four interaction volume face
// fluxes T p as velocities onto the involved cell faces. The flux rows are
// oriented as in the assembly: row 0 leaves sub-volume 1 toward 2, row 1
// leaves 2 toward 3, row 2 leaves 4 toward 3 and row 3 leaves 1 toward 4.
func (o *OPressure) calcInnerVolumeVelocity(iv *InteractionVolume) error {
	vars := o.problem.Variables()

	var g [subVolumes]int
	var cd [subVolumes]*twophase.CellData
	var press [types.NumPhases][subVolumes]float64
	var mob [subVolumes][types.NumPhases]float64
	var lambda [subVolumes]float64
	for i := 0; i < subVolumes; i++ {
		g[i] = iv.SubVolumeElement(i)
		cd[i] = vars.CellData(g[i])
		for ph := 0; ph < types.NumPhases; ph++ {
			press[ph][i] = cd[i].Pressure(ph)
			mob[i][ph] = cd[i].Mobility(ph)
		}
		lambda[i] = mob[i][types.WPhase] + mob[i][types.NPhase]
	}

	t, err := o.innerTransmissibility(iv, &lambda)
	if err != nil {
		return err
	}

	var flux [types.NumPhases][subVolumes]float64
	for ph := 0; ph < types.NumPhases; ph++ {
		for f := 0; f < subVolumes; f++ {
			for j := 0; j < subVolumes; j++ {
				flux[ph][f] += t.At(f, j) * press[ph][j]
			}
		}
	}

	var up12, up23, up43, up14 [types.NumPhases]float64
	for ph := 0; ph < types.NumPhases; ph++ {
		f := &flux[ph]
		cd[0].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(0, 0), f[0])
		cd[0].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(0, 1), f[3])
		cd[1].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(1, 0), f[1])
		cd[1].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(1, 1), -f[0])
		cd[2].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(2, 0), -f[2])
		cd[2].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(2, 1), -f[1])
		cd[3].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(3, 0), -f[3])
		cd[3].FluxData().AddUpwindPotential(ph, iv.IndexOnElement(3, 1), f[2])

		up12[ph] = pick(f[0] >= 0, mob[0][ph], mob[1][ph])
		up23[ph] = pick(f[1] >= 0, mob[1][ph], mob[2][ph])
		up43[ph] = pick(f[2] >= 0, mob[3][ph], mob[2][ph])
		up14[ph] = pick(f[3] >= 0, mob[0][ph], mob[3][ph])
	}

	for ph := 0; ph < types.NumPhases; ph++ {
		f := &flux[ph]
		// the shared normal of a face pair is stored with the first
		// sub-volume; rows 2 and 3 run against it
		vel12 := iv.Normal(0, 0).Scale(fracFlow(&up12, ph) * f[0] / (2 * iv.FaceArea(0, 0)))
		vel21 := iv.Normal(0, 0).Scale(fracFlow(&up12, ph) * f[0] / (2 * iv.FaceArea(1, 1)))
		vel23 := iv.Normal(1, 0).Scale(fracFlow(&up23, ph) * f[1] / (2 * iv.FaceArea(1, 0)))
		vel32 := iv.Normal(1, 0).Scale(fracFlow(&up23, ph) * f[1] / (2 * iv.FaceArea(2, 1)))
		vel43 := iv.Normal(2, 0).Scale(-fracFlow(&up43, ph) * f[2] / (2 * iv.FaceArea(3, 1)))
		vel34 := iv.Normal(2, 0).Scale(-fracFlow(&up43, ph) * f[2] / (2 * iv.FaceArea(2, 0)))
		vel14 := iv.Normal(3, 0).Scale(-fracFlow(&up14, ph) * f[3] / (2 * iv.FaceArea(0, 1)))
		vel41 := iv.Normal(3, 0).Scale(-fracFlow(&up14, ph) * f[3] / (2 * iv.FaceArea(3, 0)))

		if o.innerBoundaryVolumeFaces[g[0]][iv.IndexOnElement(0, 0)] {
			vel12 = vel12.Scale(2)
		}
		if o.innerBoundaryVolumeFaces[g[0]][iv.IndexOnElement(0, 1)] {
			vel14 = vel14.Scale(2)
		}
		if o.innerBoundaryVolumeFaces[g[1]][iv.IndexOnElement(1, 0)] {
			vel23 = vel23.Scale(2)
		}
		if o.innerBoundaryVolumeFaces[g[1]][iv.IndexOnElement(1, 1)] {
			vel21 = vel21.Scale(2)
		}
		if o.innerBoundaryVolumeFaces[g[2]][iv.IndexOnElement(2, 0)] {
			vel34 = vel34.Scale(2)
		}
		if o.innerBoundaryVolumeFaces[g[2]][iv.IndexOnElement(2, 1)] {
			vel32 = vel32.Scale(2)
		}
		if o.innerBoundaryVolumeFaces[g[3]][iv.IndexOnElement(3, 0)] {
			vel41 = vel41.Scale(2)
		}
		if o.innerBoundaryVolumeFaces[g[3]][iv.IndexOnElement(3, 1)] {
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
	return nil
}
