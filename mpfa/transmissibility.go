package mpfa

import (
	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/utils"
)

// TriangleType identifies which flux stencil a transmissibility was built
// from: the right triangle reaches the sub-volume behind the downstream
// cell, the left triangle the one behind the upstream cell.
type TriangleType int

const (
	RightTriangle TriangleType = 1
	LeftTriangle  TriangleType = -1
)

// TransmissibilityCalculator evaluates the 2x3 flux-face transmissibilities
// of the L-method. Each flux face is expanded over a three-cell stencil; of
// the two candidate triangles the calculator keeps the one with the smaller
// off-diagonal coupling.
type TransmissibilityCalculator struct {
	p twophase.Problem
}

func NewTransmissibilityCalculator(p twophase.Problem) *TransmissibilityCalculator {
	return &TransmissibilityCalculator{p: p}
}

// Calculate computes the transmissibility of flux face (idx1, 0) from both
// candidate triangles and returns the selected one. The row T[1] multiplies
// the pressure vector ordered to match the triangle: (p2, p3, p1) for the
// right, (p1, p4, p2) for the left triangle.
func (tc *TransmissibilityCalculator) Calculate(iv *InteractionVolume,
	lambda *[subVolumes][localFaces]float64, idx1, idx2, idx3, idx4 int) (utils.Matrix, TriangleType) {

	tRight := tc.CalculateRight(iv, lambda, idx1, idx2, idx3)
	tLeft := tc.CalculateLeft(iv, lambda, idx1, idx2, idx4)

	sRight := tRight.At(1, 2) - tRight.At(1, 0)
	if sRight < 0 {
		sRight = -sRight
	}
	sLeft := tLeft.At(1, 0) - tLeft.At(1, 2)
	if sLeft < 0 {
		sLeft = -sLeft
	}

	if sRight <= sLeft {
		return tRight, RightTriangle
	}
	return tLeft, LeftTriangle
}

// CalculateRight expands the flux through face (idx1, 0) over the triangle
// spanned by the sub-volumes idx1, idx2 and idx3 (the cell diagonally across
// the face, reached through idx2).
func (tc *TransmissibilityCalculator) CalculateRight(iv *InteractionVolume,
	lambda *[subVolumes][localFaces]float64, idx1, idx2, idx3 int) utils.Matrix {

	m := tc.p.Mesh()
	center := iv.CenterPosition()
	posFace12 := iv.FacePosition(idx1, 0)
	posFace23 := iv.FacePosition(idx2, 0)
	pos1 := m.CellCenter(iv.SubVolumeElement(idx1))
	pos2 := m.CellCenter(iv.SubVolumeElement(idx2))
	pos3 := m.CellCenter(iv.SubVolumeElement(idx3))

	k1 := tc.p.IntrinsicPermeability(iv.SubVolumeElement(idx1))
	k2 := tc.p.IntrinsicPermeability(iv.SubVolumeElement(idx2))
	k3 := tc.p.IntrinsicPermeability(iv.SubVolumeElement(idx3))

	nu1 := posFace12.Sub(pos2).Rot()
	nu2 := pos2.Sub(posFace23).Rot()
	nu3 := posFace23.Sub(pos3).Rot()
	nu4 := pos3.Sub(center).Rot()
	nu5 := center.Sub(pos1).Rot()
	nu6 := pos1.Sub(posFace12).Rot()
	nu7 := center.Sub(pos2).Rot()

	t1 := nu1.Dot(nu2.Rot())
	t2 := nu3.Dot(nu4.Rot())
	t3 := nu5.Dot(nu6.Rot())

	n1 := iv.Normal(idx2, 0)
	n2 := iv.Normal(idx1, 0)

	omega111 := lambda[idx2][0] * n1.Dot(k2.Apply(nu1)) * iv.FaceArea(idx2, 0) / t1
	omega112 := lambda[idx2][0] * n1.Dot(k2.Apply(nu2)) * iv.FaceArea(idx2, 0) / t1
	omega211 := lambda[idx2][1] * n2.Dot(k2.Apply(nu1)) * iv.FaceArea(idx2, 1) / t1
	omega212 := lambda[idx2][1] * n2.Dot(k2.Apply(nu2)) * iv.FaceArea(idx2, 1) / t1
	omega123 := lambda[idx3][1] * n1.Dot(k3.Apply(nu3)) * iv.FaceArea(idx3, 1) / t2
	omega124 := lambda[idx3][1] * n1.Dot(k3.Apply(nu4)) * iv.FaceArea(idx3, 1) / t2
	omega235 := lambda[idx1][0] * n2.Dot(k1.Apply(nu5)) * iv.FaceArea(idx1, 0) / t3
	omega236 := lambda[idx1][0] * n2.Dot(k1.Apply(nu6)) * iv.FaceArea(idx1, 0) / t3
	chi711 := nu7.Dot(nu1.Rot()) / t1
	chi712 := nu7.Dot(nu2.Rot()) / t1

	return fluxFaceTransmissibility(
		omega111, omega112, omega211, omega212,
		omega123, omega124, omega235, omega236,
		chi711, chi712)
}

// CalculateLeft expands the flux through face (idx1, 0) over the triangle
// spanned by the sub-volumes idx1, idx2 and idx4 (the cell diagonally across
// the face, reached through idx1).
func (tc *TransmissibilityCalculator) CalculateLeft(iv *InteractionVolume,
	lambda *[subVolumes][localFaces]float64, idx1, idx2, idx4 int) utils.Matrix {

	m := tc.p.Mesh()
	center := iv.CenterPosition()
	posFace12 := iv.FacePosition(idx1, 0)
	posFace14 := iv.FacePosition(idx1, 1)
	pos1 := m.CellCenter(iv.SubVolumeElement(idx1))
	pos2 := m.CellCenter(iv.SubVolumeElement(idx2))
	pos4 := m.CellCenter(iv.SubVolumeElement(idx4))

	k1 := tc.p.IntrinsicPermeability(iv.SubVolumeElement(idx1))
	k2 := tc.p.IntrinsicPermeability(iv.SubVolumeElement(idx2))
	k4 := tc.p.IntrinsicPermeability(iv.SubVolumeElement(idx4))

	nu1 := posFace12.Sub(pos1).Rot()
	nu2 := pos1.Sub(posFace14).Rot()
	nu3 := posFace14.Sub(pos4).Rot()
	nu4 := pos4.Sub(center).Rot()
	nu5 := center.Sub(pos2).Rot()
	nu6 := pos2.Sub(posFace12).Rot()
	nu7 := center.Sub(pos1).Rot()

	t1 := nu1.Dot(nu2.Rot())
	t2 := nu3.Dot(nu4.Rot())
	t3 := nu5.Dot(nu6.Rot())

	n1 := iv.Normal(idx1, 1)
	n2 := iv.Normal(idx1, 0)

	omega111 := lambda[idx1][1] * n1.Dot(k1.Apply(nu1)) * iv.FaceArea(idx1, 1) / t1
	omega112 := lambda[idx1][1] * n1.Dot(k1.Apply(nu2)) * iv.FaceArea(idx1, 1) / t1
	omega211 := lambda[idx1][0] * n2.Dot(k1.Apply(nu1)) * iv.FaceArea(idx1, 0) / t1
	omega212 := lambda[idx1][0] * n2.Dot(k1.Apply(nu2)) * iv.FaceArea(idx1, 0) / t1
	omega123 := lambda[idx4][0] * n1.Dot(k4.Apply(nu3)) * iv.FaceArea(idx4, 0) / t2
	omega124 := lambda[idx4][0] * n1.Dot(k4.Apply(nu4)) * iv.FaceArea(idx4, 0) / t2
	omega235 := lambda[idx2][1] * n2.Dot(k2.Apply(nu5)) * iv.FaceArea(idx2, 1) / t3
	omega236 := lambda[idx2][1] * n2.Dot(k2.Apply(nu6)) * iv.FaceArea(idx2, 1) / t3
	chi711 := nu7.Dot(nu1.Rot()) / t1
	chi712 := nu7.Dot(nu2.Rot()) / t1

	return fluxFaceTransmissibility(
		omega111, omega112, omega211, omega212,
		omega123, omega124, omega235, omega236,
		chi711, chi712)
}

// fluxFaceTransmissibility eliminates the two face-pressure unknowns of one
// triangle stencil: T = C A^-1 B + D.
func fluxFaceTransmissibility(
	omega111, omega112, omega211, omega212,
	omega123, omega124, omega235, omega236,
	chi711, chi712 float64) utils.Matrix {

	c := utils.NewMatrix(2, 2, []float64{
		-omega111, -omega112,
		-omega211, -omega212,
	})
	d := utils.NewMatrix(2, 3, []float64{
		omega111 + omega112, 0, 0,
		omega211 + omega212, 0, 0,
	})
	a := utils.NewMatrix(2, 2, []float64{
		omega111 - omega124 - omega123*chi711, omega112 - omega123*chi712,
		omega211 - omega236*chi711, omega212 - omega235 - omega236*chi712,
	})
	b := utils.NewMatrix(2, 3, []float64{
		omega111 + omega112 + omega123*(1.0-chi711-chi712), -omega123 - omega124, 0,
		omega211 + omega212 + omega236*(1.0-chi711-chi712), 0, -omega235 - omega236,
	})

	if err := a.Inverse(); err != nil {
		panic(err)
	}
	t := c.Mul(a).Mul(b)
	t.AddM(d)
	return t
}
