package mesh

import (
	"fmt"
	"math"
)

// QuadMesh is an unstructured quadrilateral mesh with optional one-level
// local refinement. Cell corners are stored counter-clockwise; all adjacency
// is derived from shared corner vertices, not stored topology.
type QuadMesh struct {
	verts    []Point
	corners  [][4]int
	adj      [][4][]Adjacency
	refined  []bool
	hanging  []bool
	posIndex map[Point]int
}

// NewStructured builds a uniform nx x ny Cartesian grid over [0,lx] x [0,ly].
func NewStructured(nx, ny int, lx, ly float64) *QuadMesh {
	if nx < 1 || ny < 1 {
		panic(fmt.Errorf("invalid structured grid size %d x %d", nx, ny))
	}
	m := &QuadMesh{
		verts:    make([]Point, 0, (nx+1)*(ny+1)),
		corners:  make([][4]int, 0, nx*ny),
		posIndex: make(map[Point]int),
	}
	hx, hy := lx/float64(nx), ly/float64(ny)
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			m.addVertex(Point{float64(i) * hx, float64(j) * hy})
		}
	}
	stride := nx + 1
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			sw := j*stride + i
			m.corners = append(m.corners, [4]int{sw, sw + 1, sw + stride + 1, sw + stride})
		}
	}
	m.refined = make([]bool, len(m.corners))
	m.buildAdjacency()
	return m
}

func (m *QuadMesh) addVertex(p Point) int {
	if id, ok := m.posIndex[p]; ok {
		return id
	}
	id := len(m.verts)
	m.verts = append(m.verts, p)
	m.posIndex[p] = id
	return id
}

// buildAdjacency re-derives all face neighbor relations from the corner
// table: conforming faces by shared vertex pairs, non-conforming faces by
// locating the hanging midpoint vertex of a coarse face.
func (m *QuadMesh) buildAdjacency() {
	type ref struct{ cell, face int }
	edges := make(map[[2]int][]ref, 4*len(m.corners))
	key := func(a, b int) [2]int {
		if a > b {
			a, b = b, a
		}
		return [2]int{a, b}
	}
	for c, cs := range m.corners {
		for f := 0; f < 4; f++ {
			k := key(cs[f], cs[(f+1)%4])
			edges[k] = append(edges[k], ref{c, f})
		}
	}

	m.adj = make([][4][]Adjacency, len(m.corners))
	m.hanging = make([]bool, len(m.verts))
	for _, refs := range edges {
		if len(refs) == 2 {
			a, b := refs[0], refs[1]
			m.adj[a.cell][a.face] = []Adjacency{{b.cell, b.face}}
			m.adj[b.cell][b.face] = []Adjacency{{a.cell, a.face}}
		} else if len(refs) > 2 {
			panic(fmt.Errorf("face shared by %d cells", len(refs)))
		}
	}

	// Resolve coarse faces against pairs of finer half-faces via the
	// midpoint vertex. The midpoint is the hanging node.
	for c, cs := range m.corners {
		for f := 0; f < 4; f++ {
			if len(m.adj[c][f]) != 0 {
				continue
			}
			a, b := cs[f], cs[(f+1)%4]
			mid, ok := m.posIndex[m.verts[a].Mid(m.verts[b])]
			if !ok {
				continue // true boundary face
			}
			lo, hi := edges[key(a, mid)], edges[key(mid, b)]
			if len(lo) != 1 || len(hi) != 1 {
				continue
			}
			m.adj[c][f] = []Adjacency{
				{lo[0].cell, lo[0].face},
				{hi[0].cell, hi[0].face},
			}
			m.adj[lo[0].cell][lo[0].face] = []Adjacency{{c, f}}
			m.adj[hi[0].cell][hi[0].face] = []Adjacency{{c, f}}
			m.hanging[mid] = true
		}
	}
}

func (m *QuadMesh) NumCells() int        { return len(m.corners) }
func (m *QuadMesh) NumVertices() int     { return len(m.verts) }
func (m *QuadMesh) NumFaces(cell int) int { return 4 }

func (m *QuadMesh) VertexPosition(v int) Point { return m.verts[v] }

func (m *QuadMesh) CellCenter(cell int) Point {
	cs := m.corners[cell]
	p := m.verts[cs[0]].Add(m.verts[cs[1]]).Add(m.verts[cs[2]]).Add(m.verts[cs[3]])
	return p.Scale(0.25)
}

func (m *QuadMesh) CellVolume(cell int) float64 {
	cs := m.corners[cell]
	var area float64
	for i := 0; i < 4; i++ {
		p, q := m.verts[cs[i]], m.verts[cs[(i+1)%4]]
		area += p[0]*q[1] - q[0]*p[1]
	}
	return 0.5 * math.Abs(area)
}

func (m *QuadMesh) FaceVertices(cell, face int) [2]int {
	cs := m.corners[cell]
	return [2]int{cs[face], cs[(face+1)%4]}
}

func (m *QuadMesh) FaceCenter(cell, face int) Point {
	fv := m.FaceVertices(cell, face)
	return m.verts[fv[0]].Mid(m.verts[fv[1]])
}

func (m *QuadMesh) FaceArea(cell, face int) float64 {
	fv := m.FaceVertices(cell, face)
	return m.verts[fv[1]].Sub(m.verts[fv[0]]).Norm()
}

func (m *QuadMesh) FaceUnitNormal(cell, face int) Point {
	fv := m.FaceVertices(cell, face)
	d := m.verts[fv[1]].Sub(m.verts[fv[0]])
	l := d.Norm()
	// counter-clockwise corners put the outward normal at -90 degrees from
	// the edge direction
	return Point{d[1] / l, -d[0] / l}
}

func (m *QuadMesh) Neighbor(cell, face int) Adjacency {
	if len(m.adj[cell][face]) == 0 {
		return Adjacency{Cell: -1, Face: -1}
	}
	return m.adj[cell][face][0]
}

func (m *QuadMesh) Neighbors(cell, face int) []Adjacency {
	return m.adj[cell][face]
}

func (m *QuadMesh) OnBoundary(cell, face int) bool {
	return len(m.adj[cell][face]) == 0
}

func (m *QuadMesh) WasRefined(cell int) bool { return m.refined[cell] }
func (m *QuadMesh) IsHangingNode(v int) bool { return m.hanging[v] }

// HasHangingNodes reports whether the last adaptation produced any
// non-conforming vertex.
func (m *QuadMesh) HasHangingNodes() bool {
	for _, h := range m.hanging {
		if h {
			return true
		}
	}
	return false
}
