package mpfa

import (
	"github.com/pmflow/gompfa/mesh"
	"github.com/pmflow/gompfa/types"
)

const (
	// sub-volumes and flux-face axes per interaction volume on a hex grid
	octants = 8
	axes    = 3
)

// InteractionVolume3 collects the dual cell around one vertex of a hex grid:
// up to eight sub-volumes in octant order, each with three quarter faces, one
// per axis. Quarter face (s, d) leads from sub-volume s to its partner
// s^(1<<d); when the partner octant lies outside the domain the slot carries
// the boundary condition instead.
type InteractionVolume3 struct {
	stored  bool
	elemNum int

	centerPos mesh.Point3

	elements       [octants]int
	indexOnElement [octants][axes]int

	// normals point out of their own sub-volume
	normals  [octants][axes]mesh.Point3
	facePos  [octants][axes]mesh.Point3
	faceArea [octants][axes]float64

	boundaryTypes   [octants][axes]types.BoundaryTypes
	dirichletValues [octants][axes]types.PrimaryVariables
	neumannValues   [octants][axes]types.PrimaryVariables
	boundaryFace    [octants][axes]bool
}

func (iv *InteractionVolume3) reset() {
	*iv = InteractionVolume3{}
	for i := range iv.elements {
		iv.elements[i] = -1
	}
}

func (iv *InteractionVolume3) IsStored() bool { return iv.stored }
func (iv *InteractionVolume3) setStored()     { iv.stored = true }

// ElementNumber is the number of sub-volume cells present; eight in the
// interior, fewer at the boundary.
func (iv *InteractionVolume3) ElementNumber() int { return iv.elemNum }

// IsInnerVolume reports whether all eight octants carry a cell.
func (iv *InteractionVolume3) IsInnerVolume() bool { return iv.elemNum == octants }

func (iv *InteractionVolume3) SetCenterPosition(pos mesh.Point3) { iv.centerPos = pos }
func (iv *InteractionVolume3) CenterPosition() mesh.Point3       { return iv.centerPos }

func (iv *InteractionVolume3) SetSubVolumeElement(cell, oct int) {
	if iv.elements[oct] < 0 {
		iv.elemNum++
	}
	iv.elements[oct] = cell
}

func (iv *InteractionVolume3) SubVolumeElement(oct int) int { return iv.elements[oct] }

func (iv *InteractionVolume3) SetIndexOnElement(meshFace, oct, axis int) {
	iv.indexOnElement[oct][axis] = meshFace
}

// IndexOnElement is the mesh-local face index of quarter face (oct, axis) on
// the sub-volume cell.
func (iv *InteractionVolume3) IndexOnElement(oct, axis int) int {
	return iv.indexOnElement[oct][axis]
}

func (iv *InteractionVolume3) SetNormal(n mesh.Point3, oct, axis int) {
	iv.normals[oct][axis] = n
}

func (iv *InteractionVolume3) Normal(oct, axis int) mesh.Point3 { return iv.normals[oct][axis] }

func (iv *InteractionVolume3) SetFacePosition(pos mesh.Point3, oct, axis int) {
	iv.facePos[oct][axis] = pos
}

func (iv *InteractionVolume3) FacePosition(oct, axis int) mesh.Point3 {
	return iv.facePos[oct][axis]
}

func (iv *InteractionVolume3) SetFaceArea(area float64, oct, axis int) {
	iv.faceArea[oct][axis] = area
}

func (iv *InteractionVolume3) FaceArea(oct, axis int) float64 { return iv.faceArea[oct][axis] }

func (iv *InteractionVolume3) SetBoundary(bt types.BoundaryTypes, oct, axis int) {
	iv.boundaryTypes[oct][axis] = bt
	iv.boundaryFace[oct][axis] = true
}

func (iv *InteractionVolume3) BoundaryType(oct, axis int) types.BoundaryTypes {
	return iv.boundaryTypes[oct][axis]
}

func (iv *InteractionVolume3) IsBoundaryFace(oct, axis int) bool {
	return iv.boundaryFace[oct][axis]
}

func (iv *InteractionVolume3) SetDirichletCondition(values types.PrimaryVariables, oct, axis int) {
	iv.dirichletValues[oct][axis] = values
}

func (iv *InteractionVolume3) DirichletValues(oct, axis int) types.PrimaryVariables {
	return iv.dirichletValues[oct][axis]
}

func (iv *InteractionVolume3) SetNeumannCondition(values types.PrimaryVariables, oct, axis int) {
	iv.neumannValues[oct][axis] = values
}

func (iv *InteractionVolume3) NeumannValues(oct, axis int) types.PrimaryVariables {
	return iv.neumannValues[oct][axis]
}
