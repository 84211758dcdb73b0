package mpfa

import (
	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/types"
)

// buildInteractionVolumes3 assembles the interaction volume around every
// vertex of a hex grid. Octant bit d of a sub-volume index is 0 when the cell
// lies on the negative side of the vertex along axis d, so the partner across
// quarter face (s, d) is always s^(1<<d). A missing partner octant marks a
// domain-boundary quarter face; its boundary condition is stored on the
// sub-volume slot.
func buildInteractionVolumes3(p twophase.Problem3) []InteractionVolume3 {
	m := p.Mesh()
	ivs := make([]InteractionVolume3, m.NumVertices())

	for v := range ivs {
		iv := &ivs[v]
		iv.reset()
		iv.setStored()
		iv.SetCenterPosition(m.VertexPosition(v))

		cells := m.VertexCells(v)
		for oct, cell := range cells {
			if cell < 0 {
				continue
			}
			iv.SetSubVolumeElement(cell, oct)
			for d := 0; d < axes; d++ {
				// a set octant bit means the partner sits on the negative
				// side, i.e. behind the cell's negative-axis face
				face := 2 * d
				if oct&(1<<d) == 0 {
					face = 2*d + 1
				}
				// the continuity point is the full mesh-face center, the
				// control-volume share of the face a quarter
				iv.SetIndexOnElement(face, oct, d)
				iv.SetNormal(m.FaceUnitNormal(cell, face), oct, d)
				iv.SetFacePosition(m.FaceCenter(cell, face), oct, d)
				iv.SetFaceArea(0.25*m.FaceArea(cell, face), oct, d)

				if cells[oct^(1<<d)] < 0 {
					setBoundaryFace3(p, iv, cell, face, oct, d)
				}
			}
		}
	}
	return ivs
}

// setBoundaryFace3 stores the boundary condition of one quarter face.
// Neumann fluxes are pre-multiplied by the quarter-face area, so the
// assembler adds them to the right-hand side without further geometry.
func setBoundaryFace3(p twophase.Problem3, iv *InteractionVolume3, cell, face, oct, axis int) {
	bt := p.BoundaryTypes(cell, face)
	if bt.IsNeumann(types.PressEqIdx) {
		j := p.Neumann(cell, face)
		for i := range j {
			j[i] *= iv.FaceArea(oct, axis)
		}
		iv.SetNeumannCondition(j, oct, axis)
	}
	if bt.HasDirichlet() {
		iv.SetDirichletCondition(p.Dirichlet(cell, face), oct, axis)
	}
	iv.SetBoundary(bt, oct, axis)
}
