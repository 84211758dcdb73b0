package mesh

// Adjacency describes what lies across one cell face.
type Adjacency struct {
	Cell int // neighbor cell index, -1 on the domain boundary
	Face int // the shared face's local index in the neighbor
}

// Mesh is the grid capability consumed by the assembly core. It replaces
// iterator-based traversal with plain index queries; all element and vertex
// references are stable integer indices valid until the next adaptation.
//
// Quadrilateral cells only. Local faces are numbered counter-clockwise
// (0=south, 1=east, 2=north, 3=west for an axis-aligned cell), so face f and
// face (f+1)%4 always share a corner, and FaceVertices(c, f)[1] equals
// FaceVertices(c, (f+1)%4)[0].
type Mesh interface {
	NumCells() int
	NumVertices() int
	NumFaces(cell int) int

	CellCenter(cell int) Point
	CellVolume(cell int) float64
	VertexPosition(v int) Point

	// FaceVertices returns the global vertex indices of the face's two
	// corners, ordered counter-clockwise around the cell.
	FaceVertices(cell, face int) [2]int
	FaceCenter(cell, face int) Point
	// FaceArea is the full mesh-face length; the builder halves it per
	// control-volume boundary portion.
	FaceArea(cell, face int) float64
	FaceUnitNormal(cell, face int) Point

	// Neighbor resolves the cell across a face; Cell is -1 on the boundary.
	// A coarse face adjoining two finer cells reports the one nearer the
	// face's first vertex; Neighbors lists all of them.
	Neighbor(cell, face int) Adjacency
	Neighbors(cell, face int) []Adjacency
	OnBoundary(cell, face int) bool

	// WasRefined reports whether the cell came out of the last adaptation
	// step, IsHangingNode whether the vertex sits mid-edge on a coarser
	// neighbor face.
	WasRefined(cell int) bool
	IsHangingNode(v int) bool
}
