package mpfa

import (
	"fmt"
	"math"

	"github.com/pmflow/gompfa/mesh"
	"github.com/pmflow/gompfa/twophase"
	"github.com/pmflow/gompfa/types"
)

// normalScheme fixes the orientation convention of the stored face normals.
// The O-method expands both half-fluxes of a flux face against one shared
// normal, so both slots store the same vector. The L-method reads the four
// sub-volume stencils cyclically and wants every stored normal pointing out
// of its own sub-volume.
type normalScheme int

const (
	sharedNormals normalScheme = iota
	outwardNormals
)

// buildInteractionVolumes assembles the interaction volume around every mesh
// vertex, plus the per-cell face flags marking interior faces that belong to
// a boundary interaction volume. Such faces get assembled from the interior
// side only and are counted twice there.
//
// withNu additionally stores the K*nu geometry vectors and dF normalization
// areas the O-method transmissibility needs.
func buildInteractionVolumes(p twophase.Problem, scheme normalScheme, withNu bool) ([]InteractionVolume, [][4]bool, error) {
	m := p.Mesh()
	ivs := make([]InteractionVolume, m.NumVertices())
	for i := range ivs {
		ivs[i].reset()
	}
	innerBoundaryFaces := make([][4]bool, m.NumCells())

	flip := func(n mesh.Point) mesh.Point {
		if scheme == outwardNormals {
			return n.Scale(-1)
		}
		return n
	}

	for e := 0; e < m.NumCells(); e++ {
		for f12 := 0; f12 < m.NumFaces(e); f12++ {
			f14 := (f12 + 1) % 4
			v := m.FaceVertices(e, f12)[1]
			iv := &ivs[v]
			if iv.IsStored() {
				continue
			}
			iv.setStored()
			iv.SetCenterPosition(m.VertexPosition(v))

			if m.IsHangingNode(v) {
				if scheme != outwardNormals {
					return nil, nil, fmt.Errorf("hanging node at vertex %d: %w", v, types.ErrBoundaryShape)
				}
				if err := buildHangingNodeVolume(m, iv, v, e, f12, f14); err != nil {
					return nil, nil, err
				}
				continue
			}

			bound12 := m.OnBoundary(e, f12)
			bound14 := m.OnBoundary(e, f14)

			// sub-volume 0 is always the visiting cell
			iv.SetSubVolumeElement(e, 0)
			iv.SetIndexOnElement(f12, 0, 0)
			iv.SetIndexOnElement(f14, 0, 1)

			pos12, area12, n12 := faceGeometry(m, e, f12, v)
			pos14, area14, n14 := faceGeometry(m, e, f14, v)
			iv.SetNormal(n12, 0, 0)
			iv.SetNormal(n14, 0, 1)
			iv.SetFacePosition(pos12, 0, 0)
			iv.SetFacePosition(pos14, 0, 1)
			iv.SetFaceArea(area12, 0, 0)
			iv.SetFaceArea(area14, 0, 1)

			switch {
			case !bound12 && !bound14:
				a12 := adjacentAt(m, e, f12, v)
				a14 := adjacentAt(m, e, f14, v)
				if a12.Cell < 0 || a14.Cell < 0 {
					return nil, nil, fmt.Errorf("vertex %d: %w", v, types.ErrBoundaryShape)
				}
				cell2, cell4 := a12.Cell, a14.Cell

				iv.SetSubVolumeElement(cell2, 1)
				iv.SetIndexOnElement(a12.Face, 1, 1)
				iv.SetNormal(flip(n12), 1, 1)
				iv.SetFacePosition(pos12, 1, 1)
				iv.SetFaceArea(area12, 1, 1)

				iv.SetSubVolumeElement(cell4, 3)
				iv.SetIndexOnElement(a14.Face, 3, 0)
				iv.SetNormal(flip(n14), 3, 0)
				iv.SetFacePosition(pos14, 3, 0)
				iv.SetFaceArea(area14, 3, 0)

				// close the ring with the common neighbor of cells 2 and 4
				found := false
				for j := 0; j < m.NumFaces(cell2) && !found; j++ {
					if m.OnBoundary(cell2, j) || !faceHasVertex(m, cell2, j, v) {
						continue
					}
					a23 := adjacentAt(m, cell2, j, v)
					if a23.Cell < 0 || a23.Cell == e {
						continue
					}
					for k := 0; k < m.NumFaces(cell4); k++ {
						if m.OnBoundary(cell4, k) || !faceHasVertex(m, cell4, k, v) {
							continue
						}
						a34 := adjacentAt(m, cell4, k, v)
						if a34.Cell != a23.Cell {
							continue
						}
						cell3 := a23.Cell
						iv.SetSubVolumeElement(cell3, 2)
						iv.SetIndexOnElement(j, 1, 0)
						iv.SetIndexOnElement(a23.Face, 2, 1)
						iv.SetIndexOnElement(a34.Face, 2, 0)
						iv.SetIndexOnElement(k, 3, 1)

						pos23, area23, n23 := faceGeometry(m, cell2, j, v)
						pos34, area34, n43 := faceGeometry(m, cell4, k, v)
						iv.SetNormal(n23, 1, 0)
						iv.SetNormal(flip(n23), 2, 1)
						iv.SetNormal(n43, 3, 1)
						iv.SetNormal(flip(n43), 2, 0)
						iv.SetFacePosition(pos23, 1, 0)
						iv.SetFacePosition(pos23, 2, 1)
						iv.SetFacePosition(pos34, 3, 1)
						iv.SetFacePosition(pos34, 2, 0)
						iv.SetFaceArea(area23, 1, 0)
						iv.SetFaceArea(area23, 2, 1)
						iv.SetFaceArea(area34, 3, 1)
						iv.SetFaceArea(area34, 2, 0)

						if withNu {
							c1 := m.CellCenter(e)
							c2 := m.CellCenter(cell2)
							c3 := m.CellCenter(cell3)
							c4 := m.CellCenter(cell4)
							k1 := p.IntrinsicPermeability(e)
							k2 := p.IntrinsicPermeability(cell2)
							k3 := p.IntrinsicPermeability(cell3)
							k4 := p.IntrinsicPermeability(cell4)

							nu12 := pos14.Sub(c1).Rot()
							nu14 := c1.Sub(pos12).Rot()
							nu23 := pos12.Sub(c2).Rot()
							nu21 := pos23.Sub(c2).Rot()
							nu32 := pos34.Sub(c3).Rot()
							nu34 := c3.Sub(pos23).Rot()
							nu41 := c4.Sub(pos34).Rot()
							nu43 := c4.Sub(pos14).Rot()

							iv.SetPermTimesNu(nu12, k1, 0, 0)
							iv.SetPermTimesNu(nu14, k1, 0, 1)
							iv.SetPermTimesNu(nu23, k2, 1, 0)
							iv.SetPermTimesNu(nu21, k2, 1, 1)
							iv.SetPermTimesNu(nu34, k3, 2, 0)
							iv.SetPermTimesNu(nu32, k3, 2, 1)
							iv.SetPermTimesNu(nu41, k4, 3, 0)
							iv.SetPermTimesNu(nu43, k4, 3, 1)

							iv.SetDF(math.Abs(nu14.Dot(nu12.Rot())), 0)
							iv.SetDF(math.Abs(nu23.Dot(nu21.Rot())), 1)
							iv.SetDF(math.Abs(nu32.Dot(nu34.Rot())), 2)
							iv.SetDF(math.Abs(nu41.Dot(nu43.Rot())), 3)
						}
						found = true
						break
					}
				}
				if !found {
					return nil, nil, fmt.Errorf("vertex %d: %w", v, types.ErrBoundaryShape)
				}

			case !bound12 && bound14:
				a12 := adjacentAt(m, e, f12, v)
				if a12.Cell < 0 {
					return nil, nil, fmt.Errorf("vertex %d: %w", v, types.ErrBoundaryShape)
				}
				cell2 := a12.Cell

				iv.SetSubVolumeElement(cell2, 1)
				iv.SetIndexOnElement(a12.Face, 1, 1)
				iv.SetNormal(flip(n12), 1, 1)
				iv.SetFacePosition(pos12, 1, 1)
				iv.SetFaceArea(area12, 1, 1)

				setBoundaryFace(p, iv, e, f14, area14, 3)

				// cell 2's boundary face through the vertex closes the volume
				found := false
				for j := 0; j < m.NumFaces(cell2); j++ {
					if j == a12.Face || !m.OnBoundary(cell2, j) || !faceHasVertex(m, cell2, j, v) {
						continue
					}
					posB, areaB, nB := faceGeometry(m, cell2, j, v)
					iv.SetIndexOnElement(j, 1, 0)
					iv.SetNormal(nB, 1, 0)
					iv.SetFacePosition(posB, 1, 0)
					iv.SetFaceArea(areaB, 1, 0)
					setBoundaryFace(p, iv, cell2, j, areaB, 1)
					found = true
					break
				}
				if !found {
					return nil, nil, fmt.Errorf("vertex %d: %w", v, types.ErrBoundaryShape)
				}
				iv.SetOutsideFace(2)
				innerBoundaryFaces[e][f12] = true
				innerBoundaryFaces[cell2][a12.Face] = true

			case bound12 && bound14:
				setBoundaryFace(p, iv, e, f12, area12, 0)
				setBoundaryFace(p, iv, e, f14, area14, 3)
				iv.SetOutsideFace(1)
				iv.SetOutsideFace(2)

			default: // bound12 && !bound14
				setBoundaryFace(p, iv, e, f12, area12, 0)

				a14 := adjacentAt(m, e, f14, v)
				if a14.Cell < 0 {
					return nil, nil, fmt.Errorf("vertex %d: %w", v, types.ErrBoundaryShape)
				}
				cell4 := a14.Cell

				iv.SetSubVolumeElement(cell4, 3)
				iv.SetIndexOnElement(a14.Face, 3, 0)
				iv.SetNormal(flip(n14), 3, 0)
				iv.SetFacePosition(pos14, 3, 0)
				iv.SetFaceArea(area14, 3, 0)

				found := false
				for k := 0; k < m.NumFaces(cell4); k++ {
					if k == a14.Face || !m.OnBoundary(cell4, k) || !faceHasVertex(m, cell4, k, v) {
						continue
					}
					posB, areaB, nB := faceGeometry(m, cell4, k, v)
					iv.SetIndexOnElement(k, 3, 1)
					iv.SetNormal(nB, 3, 1)
					iv.SetFacePosition(posB, 3, 1)
					iv.SetFaceArea(areaB, 3, 1)
					setBoundaryFace(p, iv, cell4, k, areaB, 2)
					found = true
					break
				}
				if !found {
					return nil, nil, fmt.Errorf("vertex %d: %w", v, types.ErrBoundaryShape)
				}
				iv.SetOutsideFace(1)
				innerBoundaryFaces[e][f14] = true
				innerBoundaryFaces[cell4][a14.Face] = true
			}
		}
	}
	return ivs, innerBoundaryFaces, nil
}

// buildHangingNodeVolume stores the three-cell interaction volume around a
// non-conforming vertex: the two fine cells in slots 0 and 1 with the shared
// fine face as flux face 0, the coarse cell in slot 3, slot 2 empty. All
// geometry is measured on the fine side; normals point out of their own
// sub-volume.
func buildHangingNodeVolume(m mesh.Mesh, iv *InteractionVolume, v, e, f12, f14 int) error {
	iv.setHangingNodeVolume()

	a12 := adjacentAt(m, e, f12, v)
	a14 := adjacentAt(m, e, f14, v)
	if a12.Cell < 0 || a14.Cell < 0 {
		return fmt.Errorf("vertex %d: %w", v, types.ErrBoundaryShape)
	}

	if cellHasVertex(m, a12.Cell, v) {
		// e and the cell across f12 form the fine pair, the coarse cell
		// sits across f14
		fine2, coarse := a12.Cell, a14.Cell

		iv.SetSubVolumeElement(e, 0)
		iv.SetSubVolumeElement(fine2, 1)
		iv.SetSubVolumeElement(coarse, 3)

		n12 := m.FaceUnitNormal(e, f12)
		iv.SetIndexOnElement(f12, 0, 0)
		iv.SetIndexOnElement(a12.Face, 1, 1)
		iv.SetNormal(n12, 0, 0)
		iv.SetNormal(n12.Scale(-1), 1, 1)
		storeFacePair(m, iv, e, f12, 0, 0, 1, 1)

		iFC, aFC, ok := faceToward(m, fine2, coarse, v, a12.Face)
		if !ok {
			return fmt.Errorf("vertex %d: %w", v, types.ErrBoundaryShape)
		}
		nFC := m.FaceUnitNormal(fine2, iFC)
		iv.SetIndexOnElement(iFC, 1, 0)
		iv.SetIndexOnElement(aFC.Face, 3, 1)
		iv.SetNormal(nFC, 1, 0)
		iv.SetNormal(nFC.Scale(-1), 3, 1)
		storeFacePair(m, iv, fine2, iFC, 1, 0, 3, 1)

		n14 := m.FaceUnitNormal(e, f14)
		iv.SetIndexOnElement(f14, 0, 1)
		iv.SetIndexOnElement(a14.Face, 3, 0)
		iv.SetNormal(n14, 0, 1)
		iv.SetNormal(n14.Scale(-1), 3, 0)
		storeFacePair(m, iv, e, f14, 0, 1, 3, 0)
		return nil
	}

	// the coarse cell sits across f12, the fine sibling across f14 takes
	// slot 0 so the counterclockwise order stays intact
	fine0, coarse := a14.Cell, a12.Cell

	iv.SetSubVolumeElement(fine0, 0)
	iv.SetSubVolumeElement(e, 1)
	iv.SetSubVolumeElement(coarse, 3)

	nff := m.FaceUnitNormal(e, f14).Scale(-1)
	iv.SetIndexOnElement(a14.Face, 0, 0)
	iv.SetIndexOnElement(f14, 1, 1)
	iv.SetNormal(nff, 0, 0)
	iv.SetNormal(nff.Scale(-1), 1, 1)
	storeFacePair(m, iv, e, f14, 0, 0, 1, 1)

	n12 := m.FaceUnitNormal(e, f12)
	iv.SetIndexOnElement(f12, 1, 0)
	iv.SetIndexOnElement(a12.Face, 3, 1)
	iv.SetNormal(n12, 1, 0)
	iv.SetNormal(n12.Scale(-1), 3, 1)
	storeFacePair(m, iv, e, f12, 1, 0, 3, 1)

	iCF, aCF, ok := faceToward(m, fine0, coarse, v, a14.Face)
	if !ok {
		return fmt.Errorf("vertex %d: %w", v, types.ErrBoundaryShape)
	}
	nCF := m.FaceUnitNormal(fine0, iCF)
	iv.SetIndexOnElement(aCF.Face, 3, 0)
	iv.SetIndexOnElement(iCF, 0, 1)
	iv.SetNormal(nCF.Scale(-1), 3, 0)
	iv.SetNormal(nCF, 0, 1)
	storeFacePair(m, iv, fine0, iCF, 3, 0, 0, 1)
	return nil
}

// setBoundaryFace stores the boundary condition of one interaction volume
// face. Neumann fluxes are pre-multiplied by the half-face area, so the
// assembler adds them to the right-hand side without further geometry.
func setBoundaryFace(p twophase.Problem, iv *InteractionVolume, cell, face int, faceVol float64, ivFace int) {
	bt := p.BoundaryTypes(cell, face)
	if bt.IsNeumann(types.PressEqIdx) {
		j := p.Neumann(cell, face)
		for i := range j {
			j[i] *= faceVol
		}
		iv.SetNeumannCondition(j, ivFace)
	}
	if bt.HasDirichlet() {
		iv.SetDirichletCondition(p.Dirichlet(cell, face), ivFace)
	}
	iv.SetBoundary(bt, ivFace)
}

func storeFacePair(m mesh.Mesh, iv *InteractionVolume, cell, face, s1, fc1, s2, fc2 int) {
	pos := m.FaceCenter(cell, face)
	area := 0.5 * m.FaceArea(cell, face)
	iv.SetFacePosition(pos, s1, fc1)
	iv.SetFacePosition(pos, s2, fc2)
	iv.SetFaceArea(area, s1, fc1)
	iv.SetFaceArea(area, s2, fc2)
}

func faceHasVertex(m mesh.Mesh, cell, face, v int) bool {
	fv := m.FaceVertices(cell, face)
	return fv[0] == v || fv[1] == v
}

func cellHasVertex(m mesh.Mesh, cell, v int) bool {
	for f := 0; f < m.NumFaces(cell); f++ {
		if m.FaceVertices(cell, f)[0] == v {
			return true
		}
	}
	return false
}

// adjacentAt resolves the cell across a face next to the given vertex. On a
// split coarse face this picks the finer neighbor whose half touches the
// vertex.
func adjacentAt(m mesh.Mesh, cell, face, v int) mesh.Adjacency {
	adj := m.Neighbors(cell, face)
	if len(adj) == 1 {
		return adj[0]
	}
	for _, a := range adj {
		if faceHasVertex(m, a.Cell, a.Face, v) {
			return a
		}
	}
	return mesh.Adjacency{Cell: -1, Face: -1}
}

// faceToward finds the local face of cell leading to target through the
// vertex, excluding one known face.
func faceToward(m mesh.Mesh, cell, target, v, exclude int) (int, mesh.Adjacency, bool) {
	for f := 0; f < m.NumFaces(cell); f++ {
		if f == exclude || m.OnBoundary(cell, f) || !faceHasVertex(m, cell, f, v) {
			continue
		}
		a := adjacentAt(m, cell, f, v)
		if a.Cell == target {
			return f, a, true
		}
	}
	return -1, mesh.Adjacency{Cell: -1, Face: -1}, false
}

// faceGeometry returns position, control-volume area and outward normal of
// the half face of (cell, face) next to the vertex, measured on the finer
// side when the face is split.
func faceGeometry(m mesh.Mesh, cell, face, v int) (pos mesh.Point, halfArea float64, n mesh.Point) {
	if len(m.Neighbors(cell, face)) == 2 {
		a := adjacentAt(m, cell, face, v)
		return m.FaceCenter(a.Cell, a.Face), 0.5 * m.FaceArea(a.Cell, a.Face),
			m.FaceUnitNormal(a.Cell, a.Face).Scale(-1)
	}
	return m.FaceCenter(cell, face), 0.5 * m.FaceArea(cell, face), m.FaceUnitNormal(cell, face)
}
