package mpfa

import (
	"github.com/pmflow/gompfa/mesh"
	"github.com/pmflow/gompfa/types"
)

const (
	// sub-volumes and flux faces per interaction volume on a 2-D quad grid
	subVolumes = 4
	localFaces = 2
)

// InteractionVolume collects the geometric and boundary information of the
// dual cell around one mesh vertex: up to four sub-volumes, each with two
// local flux faces, plus the boundary data attached to the interaction
// volume faces. Sub-volumes are numbered counterclockwise; the flux face
// (s, 0) leads to the next sub-volume, (s, 1) to the previous one.
//
// The container is a plain value type with array fields only, so a rebuilt
// volume compares equal to the original with ==.
type InteractionVolume struct {
	stored      bool
	hangingNode bool
	elemNum     int

	centerPos mesh.Point

	elements       [subVolumes]int
	indexOnElement [subVolumes][localFaces]int

	normals  [subVolumes][localFaces]mesh.Point
	facePos  [subVolumes][localFaces]mesh.Point
	faceArea [subVolumes][localFaces]float64

	// K·nu vectors and the dF normalization areas, filled only when the
	// assembler evaluates transmissibilities through NTKrKNuByDF.
	kNu [subVolumes][localFaces]mesh.Point
	dF  [subVolumes]float64

	boundaryTypes   [subVolumes]types.BoundaryTypes
	dirichletValues [subVolumes]types.PrimaryVariables
	neumannValues   [subVolumes]types.PrimaryVariables
	boundaryFace    [subVolumes]bool
	outsideFace     [subVolumes]bool
}

func (iv *InteractionVolume) reset() {
	*iv = InteractionVolume{}
	for i := range iv.elements {
		iv.elements[i] = -1
	}
}

func (iv *InteractionVolume) IsStored() bool { return iv.stored }
func (iv *InteractionVolume) setStored()     { iv.stored = true }

func (iv *InteractionVolume) IsHangingNodeVolume() bool { return iv.hangingNode }
func (iv *InteractionVolume) setHangingNodeVolume()     { iv.hangingNode = true }

// ElementNumber is the number of sub-volume elements actually present;
// four in the interior, three at a hanging node, fewer at the boundary.
func (iv *InteractionVolume) ElementNumber() int { return iv.elemNum }

// IsInnerVolume reports whether the volume is fully surrounded by cells
// and carries no boundary faces.
func (iv *InteractionVolume) IsInnerVolume() bool {
	if iv.hangingNode {
		return true
	}
	if iv.elemNum < subVolumes {
		return false
	}
	for i := 0; i < subVolumes; i++ {
		if iv.boundaryFace[i] || iv.outsideFace[i] {
			return false
		}
	}
	return true
}

func (iv *InteractionVolume) SetCenterPosition(pos mesh.Point) { iv.centerPos = pos }
func (iv *InteractionVolume) CenterPosition() mesh.Point       { return iv.centerPos }

func (iv *InteractionVolume) SetSubVolumeElement(cell, subVol int) {
	if iv.elements[subVol] < 0 {
		iv.elemNum++
	}
	iv.elements[subVol] = cell
}

func (iv *InteractionVolume) SubVolumeElement(subVol int) int { return iv.elements[subVol] }

func (iv *InteractionVolume) SetIndexOnElement(meshFace, subVol, face int) {
	iv.indexOnElement[subVol][face] = meshFace
}

// IndexOnElement is the mesh-local face index of flux face (subVol, face)
// on the sub-volume element.
func (iv *InteractionVolume) IndexOnElement(subVol, face int) int {
	return iv.indexOnElement[subVol][face]
}

func (iv *InteractionVolume) SetNormal(n mesh.Point, subVol, face int) {
	iv.normals[subVol][face] = n
}

func (iv *InteractionVolume) Normal(subVol, face int) mesh.Point { return iv.normals[subVol][face] }

func (iv *InteractionVolume) SetFacePosition(pos mesh.Point, subVol, face int) {
	iv.facePos[subVol][face] = pos
}

func (iv *InteractionVolume) FacePosition(subVol, face int) mesh.Point {
	return iv.facePos[subVol][face]
}

func (iv *InteractionVolume) SetFaceArea(area float64, subVol, face int) {
	iv.faceArea[subVol][face] = area
}

func (iv *InteractionVolume) FaceArea(subVol, face int) float64 { return iv.faceArea[subVol][face] }

// SetPermTimesNu stores K·nu for the omega coefficients of the flux
// expansion.
func (iv *InteractionVolume) SetPermTimesNu(nu mesh.Point, k mesh.Tensor, subVol, face int) {
	iv.kNu[subVol][face] = k.Apply(nu)
}

func (iv *InteractionVolume) SetDF(dF float64, subVol int) { iv.dF[subVol] = dF }

// NTKrKNuByDF evaluates lambda * (n^T K nu) * |face| / dF, the omega
// coefficient of the flux through face (subVol, faceIdx) with respect to
// the geometry vector nu stored at (subVol, nuIdx).
func (iv *InteractionVolume) NTKrKNuByDF(lambda float64, subVol, faceIdx, nuIdx int) float64 {
	return lambda * iv.normals[subVol][faceIdx].Dot(iv.kNu[subVol][nuIdx]) *
		iv.faceArea[subVol][faceIdx] / iv.dF[subVol]
}

// FaceIndexFromSubVolume maps the local flux face (subVol, face) to the
// interaction volume face index shared by the two adjacent sub-volumes.
func (iv *InteractionVolume) FaceIndexFromSubVolume(subVol, face int) int {
	if face == 0 {
		return subVol
	}
	return (subVol + subVolumes - 1) % subVolumes
}

func (iv *InteractionVolume) SetBoundary(bt types.BoundaryTypes, ivFace int) {
	iv.boundaryTypes[ivFace] = bt
	iv.boundaryFace[ivFace] = true
}

func (iv *InteractionVolume) BoundaryType(ivFace int) types.BoundaryTypes {
	return iv.boundaryTypes[ivFace]
}

func (iv *InteractionVolume) IsBoundaryFace(ivFace int) bool { return iv.boundaryFace[ivFace] }

func (iv *InteractionVolume) SetDirichletCondition(values types.PrimaryVariables, ivFace int) {
	iv.dirichletValues[ivFace] = values
}

func (iv *InteractionVolume) DirichletValues(ivFace int) types.PrimaryVariables {
	return iv.dirichletValues[ivFace]
}

func (iv *InteractionVolume) SetNeumannCondition(values types.PrimaryVariables, ivFace int) {
	iv.neumannValues[ivFace] = values
}

func (iv *InteractionVolume) NeumannValues(ivFace int) types.PrimaryVariables {
	return iv.neumannValues[ivFace]
}

// SetOutsideFace marks an interaction volume face that lies outside the
// domain, so the adjacent sub-volume slot stays empty.
func (iv *InteractionVolume) SetOutsideFace(ivFace int) { iv.outsideFace[ivFace] = true }

func (iv *InteractionVolume) IsOutsideFace(ivFace int) bool { return iv.outsideFace[ivFace] }
