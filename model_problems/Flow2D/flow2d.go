// Package Flow2D holds ready-made two-phase flow scenarios and the
// sequential IMPES driver that runs them: implicit MPFA pressure solve,
// velocity reconstruction, explicit upwind saturation transport.
package Flow2D

import (
	"github.com/pmflow/gompfa/mesh"
	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/types"
)

// BuckleyLeverett is the classic horizontal displacement benchmark: water
// flooding a quasi-1D oil-filled strip. Dirichlet pressure and saturation on
// the inflow (left) boundary, a fixed nonwetting outflux on the right, no-flow
// elsewhere. With zero entry pressure the capillary terms vanish and the
// saturation front follows the analytic Buckley-Leverett profile.
type BuckleyLeverett struct {
	*twophase.BaseProblem

	lx float64

	InflowPressure   float64
	InflowSaturation float64
	OutflowFlux      float64
}

const boundaryEps = 1e-6

func NewBuckleyLeverett(nx, ny int, lx, ly float64) *BuckleyLeverett {
	m := mesh.NewStructured(nx, ny, lx, ly)
	fluids := twophase.NewFluidSystem(1000.0, 1000.0, 1e-3, 1e-3)
	law := twophase.BrooksCorey{
		EntryPressure: 0,
		Lambda:        2.0,
		ResidualW:     0.2,
		ResidualN:     0.2,
	}
	p := &BuckleyLeverett{
		BaseProblem:      twophase.NewBaseProblem(m, fluids, mesh.IsotropicTensor(1e-7), law),
		lx:               lx,
		InflowPressure:   2e5,
		InflowSaturation: 0.8,
		OutflowFlux:      3e-7,
	}
	for i := 0; i < p.Vars.NumCells(); i++ {
		cd := p.Vars.CellData(i)
		cd.SetSaturation(types.WPhase, law.ResidualW)
		cd.SetSaturation(types.NPhase, 1.0-law.ResidualW)
	}
	return p
}

func (p *BuckleyLeverett) BoundaryTypes(cell, face int) (bt types.BoundaryTypes) {
	pos := p.M.FaceCenter(cell, face)
	switch {
	case pos[0] < boundaryEps:
		bt.SetAllDirichlet()
	default:
		bt.SetAllNeumann()
	}
	return
}

func (p *BuckleyLeverett) Dirichlet(cell, face int) types.PrimaryVariables {
	return types.PrimaryVariables{p.InflowPressure, p.InflowSaturation}
}

func (p *BuckleyLeverett) Neumann(cell, face int) (j types.PrimaryVariables) {
	pos := p.M.FaceCenter(cell, face)
	if pos[0] > p.lx-boundaryEps {
		j[types.NPhase] = p.OutflowFlux
	}
	return
}
