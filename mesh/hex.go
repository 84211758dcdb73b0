package mesh

import "fmt"

// Mesh3 is the grid capability of the 3D assembly core. Hexahedral cells
// only, conforming grids only.
//
// Local faces come in axis pairs: face 2d points in the negative, face 2d+1
// in the positive direction of axis d. Around a vertex the adjacent cells
// are addressed by octant: bit d of the octant index is 0 when the cell
// center lies on the negative side of the vertex along axis d.
type Mesh3 interface {
	NumCells() int
	NumVertices() int
	NumFaces(cell int) int

	CellCenter(cell int) Point3
	CellVolume(cell int) float64
	VertexPosition(v int) Point3

	FaceCenter(cell, face int) Point3
	FaceArea(cell, face int) float64
	FaceUnitNormal(cell, face int) Point3

	// Neighbor is the cell across a face, -1 on the domain boundary.
	Neighbor(cell, face int) int
	OnBoundary(cell, face int) bool

	// CellVertices lists the eight corner vertices of a cell; bit d of the
	// position index is 1 for the corner on the positive side along axis d.
	CellVertices(cell int) [8]int
	// VertexCells lists the cells around a vertex in octant order, -1 for
	// octants outside the domain.
	VertexCells(v int) [8]int
}

// HexMesh is a uniform structured hexahedral grid over an axis-aligned box.
// All topology is index arithmetic; nothing is stored per cell.
type HexMesh struct {
	nx, ny, nz int
	hx, hy, hz float64
}

// NewStructuredHex builds a uniform nx x ny x nz grid over
// [0,lx] x [0,ly] x [0,lz].
func NewStructuredHex(nx, ny, nz int, lx, ly, lz float64) *HexMesh {
	if nx < 1 || ny < 1 || nz < 1 {
		panic(fmt.Errorf("invalid structured grid size %d x %d x %d", nx, ny, nz))
	}
	return &HexMesh{
		nx: nx, ny: ny, nz: nz,
		hx: lx / float64(nx), hy: ly / float64(ny), hz: lz / float64(nz),
	}
}

func (m *HexMesh) NumCells() int         { return m.nx * m.ny * m.nz }
func (m *HexMesh) NumVertices() int      { return (m.nx + 1) * (m.ny + 1) * (m.nz + 1) }
func (m *HexMesh) NumFaces(cell int) int { return 6 }

func (m *HexMesh) cellIndices(cell int) (ix, iy, iz int) {
	ix = cell % m.nx
	iy = (cell / m.nx) % m.ny
	iz = cell / (m.nx * m.ny)
	return
}

func (m *HexMesh) cellAt(ix, iy, iz int) int {
	if ix < 0 || ix >= m.nx || iy < 0 || iy >= m.ny || iz < 0 || iz >= m.nz {
		return -1
	}
	return ix + m.nx*(iy+m.ny*iz)
}

func (m *HexMesh) vertexIndices(v int) (i, j, k int) {
	i = v % (m.nx + 1)
	j = (v / (m.nx + 1)) % (m.ny + 1)
	k = v / ((m.nx + 1) * (m.ny + 1))
	return
}

func (m *HexMesh) vertexAt(i, j, k int) int {
	return i + (m.nx+1)*(j+(m.ny+1)*k)
}

func (m *HexMesh) CellCenter(cell int) Point3 {
	ix, iy, iz := m.cellIndices(cell)
	return Point3{
		(float64(ix) + 0.5) * m.hx,
		(float64(iy) + 0.5) * m.hy,
		(float64(iz) + 0.5) * m.hz,
	}
}

func (m *HexMesh) CellVolume(cell int) float64 { return m.hx * m.hy * m.hz }

func (m *HexMesh) VertexPosition(v int) Point3 {
	i, j, k := m.vertexIndices(v)
	return Point3{float64(i) * m.hx, float64(j) * m.hy, float64(k) * m.hz}
}

// faceAxis splits a local face index into its axis and direction sign.
func faceAxis(face int) (axis int, sign float64) {
	axis = face / 2
	sign = -1.0
	if face%2 == 1 {
		sign = 1.0
	}
	return
}

func (m *HexMesh) spacing(axis int) float64 {
	switch axis {
	case 0:
		return m.hx
	case 1:
		return m.hy
	}
	return m.hz
}

func (m *HexMesh) FaceCenter(cell, face int) Point3 {
	c := m.CellCenter(cell)
	axis, sign := faceAxis(face)
	c[axis] += sign * 0.5 * m.spacing(axis)
	return c
}

func (m *HexMesh) FaceArea(cell, face int) float64 {
	switch face / 2 {
	case 0:
		return m.hy * m.hz
	case 1:
		return m.hx * m.hz
	}
	return m.hx * m.hy
}

func (m *HexMesh) FaceUnitNormal(cell, face int) Point3 {
	axis, sign := faceAxis(face)
	var n Point3
	n[axis] = sign
	return n
}

func (m *HexMesh) Neighbor(cell, face int) int {
	ix, iy, iz := m.cellIndices(cell)
	axis, sign := faceAxis(face)
	step := int(sign)
	switch axis {
	case 0:
		ix += step
	case 1:
		iy += step
	default:
		iz += step
	}
	return m.cellAt(ix, iy, iz)
}

func (m *HexMesh) OnBoundary(cell, face int) bool {
	return m.Neighbor(cell, face) < 0
}

func (m *HexMesh) CellVertices(cell int) (vs [8]int) {
	ix, iy, iz := m.cellIndices(cell)
	for b := 0; b < 8; b++ {
		vs[b] = m.vertexAt(ix+b&1, iy+(b>>1)&1, iz+(b>>2)&1)
	}
	return
}

func (m *HexMesh) VertexCells(v int) (cs [8]int) {
	i, j, k := m.vertexIndices(v)
	for oct := 0; oct < 8; oct++ {
		cs[oct] = m.cellAt(i-1+oct&1, j-1+(oct>>1)&1, k-1+(oct>>2)&1)
	}
	return
}
