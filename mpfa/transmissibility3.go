package mpfa

import (
	"github.com/pmflow/gompfa/mesh"
	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/utils"
)

// TransmissibilityCalculator3 evaluates the 1x4 flux-face transmissibilities
// of the 3D L-method. Each quarter face is expanded over a four-cell stencil
// centered on one of its two cells; of the two candidates the calculator
// keeps the one with the smaller transversal coupling.
type TransmissibilityCalculator3 struct {
	p twophase.Problem3
}

func NewTransmissibilityCalculator3(p twophase.Problem3) *TransmissibilityCalculator3 {
	return &TransmissibilityCalculator3{p: p}
}

// Calculate condenses the flux through quarter face (oct, axis), oriented out
// of sub-volume oct, from both candidate stencils. The returned row
// multiplies the cell pressures of the four stencil octants in the returned
// order; the first octant is the candidate's central cell.
func (tc *TransmissibilityCalculator3) Calculate(iv *InteractionVolume3,
	lambda *[octants]float64, oct, axis int) ([subStencil]float64, [subStencil]int) {

	partner := oct ^ (1 << axis)

	rowNear, octsNear, transNear := tc.candidate(iv, lambda, oct, axis)
	rowFar, octsFar, transFar := tc.candidate(iv, lambda, partner, axis)

	if transNear <= transFar {
		return rowNear, octsNear
	}
	// the far candidate computes the flux out of the partner, so flip it
	for i := range rowFar {
		rowFar[i] = -rowFar[i]
	}
	return rowFar, octsFar
}

// subStencil is the cell count of one candidate: the central cell plus its
// three axis partners inside the interaction volume.
const subStencil = 4

// candidate eliminates the three unknown quarter-face potentials of the
// stencil centered on octant c. Cell gradients are expanded in the dual
// basis of the three continuity-point offsets; flux continuity across the
// central cell's quarter faces yields a 3x3 system, and the flux through
// the face along the given axis condenses to T = C A^-1 B + D against the
// four cell pressures (central first, then the partners in axis order).
// The transversal measure is the coupling to the two cells across the
// other two axes.
func (tc *TransmissibilityCalculator3) candidate(iv *InteractionVolume3,
	lambda *[octants]float64, c, axis int) (row [subStencil]float64, octs [subStencil]int, trans float64) {

	m := tc.p.Mesh()

	octs[0] = c
	for d := 0; d < axes; d++ {
		octs[1+d] = c ^ (1 << d)
	}

	// continuity points and the central cell's dual basis
	var x [axes]mesh.Point3
	for d := 0; d < axes; d++ {
		x[d] = iv.FacePosition(c, d)
	}
	center := m.CellCenter(iv.SubVolumeElement(c))
	nuC, detC := dualBasis(x, center)

	kC := tc.p.IntrinsicPermeability(iv.SubVolumeElement(c))
	var omegaC [axes][axes]float64
	for i := 0; i < axes; i++ {
		ni := iv.Normal(c, i)
		ai := iv.FaceArea(c, i)
		for k := 0; k < axes; k++ {
			omegaC[i][k] = lambda[c] * ai * ni.Dot(kC.Apply(nuC[k])) / detC
		}
	}

	a := utils.NewMatrix(axes, axes)
	b := utils.NewMatrix(axes, subStencil)
	for i := 0; i < axes; i++ {
		o := octs[1+i]
		nuO, detO := dualBasis(x, m.CellCenter(iv.SubVolumeElement(o)))
		kO := tc.p.IntrinsicPermeability(iv.SubVolumeElement(o))
		ni := iv.Normal(c, i)
		ai := iv.FaceArea(c, i)

		var sumC, sumO float64
		for k := 0; k < axes; k++ {
			omegaO := lambda[o] * ai * ni.Dot(kO.Apply(nuO[k])) / detO
			a.Set(i, k, omegaC[i][k]-omegaO)
			sumC += omegaC[i][k]
			sumO += omegaO
		}
		b.Set(i, 0, sumC)
		b.Set(i, 1+i, -sumO)
	}

	cm := utils.NewMatrix(1, axes)
	d := utils.NewMatrix(1, subStencil)
	var sumF float64
	for k := 0; k < axes; k++ {
		cm.Set(0, k, -omegaC[axis][k])
		sumF += omegaC[axis][k]
	}
	d.Set(0, 0, sumF)

	if err := a.Inverse(); err != nil {
		panic(err)
	}
	t := cm.Mul(a).Mul(b)
	t.AddM(d)

	for j := 0; j < subStencil; j++ {
		row[j] = t.At(0, j)
	}
	for i := 0; i < axes; i++ {
		if i == axis {
			continue
		}
		e := row[1+i]
		if e < 0 {
			e = -e
		}
		trans += e
	}
	return
}

// dualBasis returns the reciprocal vectors of the three offsets x_i - y and
// their determinant, so a cell gradient reconstructed from potentials u_i at
// the points x_i reads sum_i (u_i - p) nu_i / det.
func dualBasis(x [axes]mesh.Point3, y mesh.Point3) (nu [axes]mesh.Point3, det float64) {
	v0 := x[0].Sub(y)
	v1 := x[1].Sub(y)
	v2 := x[2].Sub(y)
	nu[0] = v1.Cross(v2)
	nu[1] = v2.Cross(v0)
	nu[2] = v0.Cross(v1)
	det = v0.Dot(nu[0])
	return
}
