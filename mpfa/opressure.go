package mpfa

import (
	"fmt"

	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/types"
	"github.com/pmflow/gompfa/utils"
)

// OPressure assembles the cell-centered pressure equation with the MPFA
// O-method. Every inner interaction volume condenses a local 4x4 system of
// flux continuity conditions into one transmissibility matrix; boundary
// volumes fall back to two-point fluxes against the boundary condition.
//
// The O-method expands all four sub-volume gradients at once and therefore
// requires a conforming grid.
type OPressure struct {
	*pressureSolver
}

func NewOPressure(p twophase.Problem, cfg types.ModelConfig) (*OPressure, error) {
	m := p.Mesh()
	for v := 0; v < m.NumVertices(); v++ {
		if m.IsHangingNode(v) {
			return nil, fmt.Errorf("%w: O-method assembly on a non-conforming grid",
				types.ErrUnsupportedConfig)
		}
	}
	s, err := newPressureSolver(p, cfg, sharedNormals, true)
	if err != nil {
		return nil, err
	}
	o := &OPressure{pressureSolver: s}
	s.assembleFn = o.assemble
	return o, nil
}

func (o *OPressure) assemble(first bool) error {
	o.a.Zero()
	o.f.Zero()

	for v := range o.interactionVolumes {
		iv := &o.interactionVolumes[v]
		if !iv.IsStored() {
			continue
		}
		if iv.IsInnerVolume() {
			if err := o.assembleInnerVolume(iv); err != nil {
				return err
			}
		} else if err := o.assembleBoundaryVolume(iv); err != nil {
			return err
		}
	}
	return nil
}

// assembleInnerVolume writes the eight half-face fluxes of one inner
// interaction volume into the global system. The local flux expression is
// T p with T = C A^-1 B + F; the rows of T are the fluxes through the
// interaction volume faces 12, 23, 34 and 41.
func (o *OPressure) assembleInnerVolume(iv *InteractionVolume) error {
	vars := o.problem.Variables()
	m := o.problem.Mesh()

	var g [subVolumes]int
	var cd [subVolumes]*twophase.CellData
	var lambda [subVolumes]float64
	for i := 0; i < subVolumes; i++ {
		g[i] = iv.SubVolumeElement(i)
		cd[i] = vars.CellData(g[i])
		lambda[i] = cd[i].Mobility(types.WPhase) + cd[i].Mobility(types.NPhase)
		o.addSourceAndErrorTerm(g[i])
	}

	t, err := o.innerTransmissibility(iv, &lambda)
	if err != nil {
		return err
	}
	// each interaction volume carries one half of every flux face; the
	// signs turn the face fluxes into outflows of the respective cell
	for j := 0; j < subVolumes; j++ {
		o.a.Add(g[0], g[j], t.At(0, j)+t.At(3, j))
		o.a.Add(g[1], g[j], -t.At(0, j)+t.At(1, j))
		o.a.Add(g[2], g[j], -t.At(1, j)-t.At(2, j))
		o.a.Add(g[3], g[j], t.At(2, j)-t.At(3, j))
	}

	// faces whose twin interaction volume is a boundary volume are only
	// assembled here, so their half counts twice
	type double struct {
		row, sub, face int
		sign           float64
		tRow           int
	}
	doubles := [...]double{
		{g[0], 0, 0, 1, 0},
		{g[0], 0, 1, 1, 3},
		{g[1], 1, 0, 1, 1},
		{g[1], 1, 1, -1, 0},
		{g[2], 2, 0, -1, 2},
		{g[2], 2, 1, -1, 1},
		{g[3], 3, 0, -1, 3},
		{g[3], 3, 1, 1, 2},
	}
	for _, d := range doubles {
		if o.innerBoundaryVolumeFaces[g[d.sub]][iv.IndexOnElement(d.sub, d.face)] {
			for j := 0; j < subVolumes; j++ {
				o.a.Add(d.row, g[j], d.sign*t.At(d.tRow, j))
			}
		}
	}

	// capillary and gravity driven part of the fluxes
	var pc [subVolumes]float64
	for i := 0; i < subVolumes; i++ {
		pc[i] = cd[i].CapillaryPressure() + o.gravityPcDiff(m.CellCenter(g[i]))
	}
	if pc[0] == 0 && pc[1] == 0 && pc[2] == 0 && pc[3] == 0 {
		return nil
	}
	pcFlux := t.MulVec(pc[:])

	phase := types.NPhase
	if o.cfg.Pressure == types.PressureNW {
		phase = types.WPhase
	}
	fracFlow := func(potential float64, up, down *twophase.CellData) float64 {
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

	// face order 12, 32, 34, 14; the potentials fix the upwind direction
	var real [subVolumes]float64
	real[0] = pcFlux[0] * fracFlow(pcFlux[0], cd[0], cd[1])
	real[1] = pcFlux[1] * fracFlow(-pcFlux[1], cd[2], cd[1])
	real[2] = pcFlux[2] * fracFlow(-pcFlux[2], cd[2], cd[3])
	real[3] = pcFlux[3] * fracFlow(pcFlux[3], cd[0], cd[3])

	sign := -1.0
	if o.cfg.Pressure == types.PressureNW {
		sign = 1.0
	}
	o.f.DataP[g[0]] += sign * (real[0] + real[3])
	o.f.DataP[g[1]] += sign * (real[1] - real[0])
	o.f.DataP[g[2]] += sign * (-real[2] - real[1])
	o.f.DataP[g[3]] += sign * (-real[3] + real[2])

	rhsDoubles := [...]struct {
		sub, face int
		val       float64
	}{
		{0, 0, real[0]},
		{0, 1, real[3]},
		{1, 0, real[1]},
		{1, 1, -real[0]},
		{2, 0, -real[2]},
		{2, 1, -real[1]},
		{3, 0, -real[3]},
		{3, 1, real[2]},
	}
	for _, d := range rhsDoubles {
		if o.innerBoundaryVolumeFaces[g[d.sub]][iv.IndexOnElement(d.sub, d.face)] {
			o.f.DataP[g[d.sub]] += sign * d.val
		}
	}
	return nil
}

// innerTransmissibility condenses the flux continuity conditions of one inner
// interaction volume into the 4x4 matrix T = C A^-1 B + F mapping the four
// cell potentials onto the four interaction volume face fluxes.
func (o *OPressure) innerTransmissibility(iv *InteractionVolume, lambda *[subVolumes]float64) (utils.Matrix, error) {
	gn12nu14 := iv.NTKrKNuByDF(lambda[0], 0, 0, 1)
	gn12nu12 := iv.NTKrKNuByDF(lambda[0], 0, 0, 0)
	gn14nu14 := iv.NTKrKNuByDF(lambda[0], 0, 1, 1)
	gn14nu12 := iv.NTKrKNuByDF(lambda[0], 0, 1, 0)
	gn12nu23 := iv.NTKrKNuByDF(lambda[1], 1, 1, 0)
	gn12nu21 := iv.NTKrKNuByDF(lambda[1], 1, 1, 1)
	gn23nu23 := iv.NTKrKNuByDF(lambda[1], 1, 0, 0)
	gn23nu21 := iv.NTKrKNuByDF(lambda[1], 1, 0, 1)
	gn43nu32 := iv.NTKrKNuByDF(lambda[2], 2, 0, 1)
	gn43nu34 := iv.NTKrKNuByDF(lambda[2], 2, 0, 0)
	gn23nu32 := iv.NTKrKNuByDF(lambda[2], 2, 1, 1)
	gn23nu34 := iv.NTKrKNuByDF(lambda[2], 2, 1, 0)
	gn43nu41 := iv.NTKrKNuByDF(lambda[3], 3, 1, 0)
	gn43nu43 := iv.NTKrKNuByDF(lambda[3], 3, 1, 1)
	gn14nu41 := iv.NTKrKNuByDF(lambda[3], 3, 0, 0)
	gn14nu43 := iv.NTKrKNuByDF(lambda[3], 3, 0, 1)

	// C and F couple the fluxes to the face and cell pressures, A and B
	// come from flux continuity across the four interaction volume faces
	c := utils.NewMatrix(subVolumes, subVolumes, []float64{
		-gn12nu12, 0, 0, -gn12nu14,
		gn23nu21, -gn23nu23, 0, 0,
		0, gn43nu32, gn43nu34, 0,
		0, 0, -gn14nu43, gn14nu41,
	})
	fm := utils.NewMatrix(subVolumes, subVolumes, []float64{
		gn12nu12 + gn12nu14, 0, 0, 0,
		0, -gn23nu21 + gn23nu23, 0, 0,
		0, 0, -gn43nu34 - gn43nu32, 0,
		0, 0, 0, gn14nu43 - gn14nu41,
	})
	a := utils.NewMatrix(subVolumes, subVolumes, []float64{
		gn12nu12 + gn12nu21, -gn12nu23, 0, gn12nu14,
		-gn23nu21, gn23nu23 + gn23nu32, gn23nu34, 0,
		0, -gn43nu32, -gn43nu34 - gn43nu43, gn43nu41,
		-gn14nu12, 0, gn14nu43, -gn14nu41 - gn14nu14,
	})
	b := utils.NewMatrix(subVolumes, subVolumes, []float64{
		gn12nu12 + gn12nu14, gn12nu21 - gn12nu23, 0, 0,
		0, -gn23nu21 + gn23nu23, gn23nu34 + gn23nu32, 0,
		0, 0, -gn43nu34 - gn43nu32, -gn43nu43 + gn43nu41,
		-gn14nu12 - gn14nu14, 0, 0, gn14nu43 - gn14nu41,
	})

	if err := a.Inverse(); err != nil {
		return utils.Matrix{}, fmt.Errorf("interaction volume at %v: %w", iv.CenterPosition(), err)
	}
	t := c.Mul(a).Mul(b)
	t.AddM(fm)
	return t, nil
}
