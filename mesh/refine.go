package mesh

import "fmt"

// RefineCells splits every marked cell into four children and returns the
// adapted mesh. All element and vertex indices of the receiver are invalid
// afterwards; interaction volumes built on the old mesh must be cleared and
// rebuilt. Only one level of refinement against an unrefined neighbor is
// supported; deeper mismatches fail the adjacency resolution.
func (m *QuadMesh) RefineCells(marks []bool) (*QuadMesh, error) {
	if len(marks) != m.NumCells() {
		return nil, fmt.Errorf("marks length %d does not match cell count %d", len(marks), m.NumCells())
	}
	r := &QuadMesh{
		posIndex: make(map[Point]int),
	}
	for c, cs := range m.corners {
		v := [4]Point{m.verts[cs[0]], m.verts[cs[1]], m.verts[cs[2]], m.verts[cs[3]]}
		if !marks[c] {
			var ids [4]int
			for i := range v {
				ids[i] = r.addVertex(v[i])
			}
			r.corners = append(r.corners, ids)
			r.refined = append(r.refined, false)
			continue
		}
		e01 := v[0].Mid(v[1])
		e12 := v[1].Mid(v[2])
		e23 := v[2].Mid(v[3])
		e30 := v[3].Mid(v[0])
		ctr := e01.Mid(e23)
		children := [4][4]Point{
			{v[0], e01, ctr, e30},
			{e01, v[1], e12, ctr},
			{ctr, e12, v[2], e23},
			{e30, ctr, e23, v[3]},
		}
		for _, ch := range children {
			var ids [4]int
			for i := range ch {
				ids[i] = r.addVertex(ch[i])
			}
			r.corners = append(r.corners, ids)
			r.refined = append(r.refined, true)
		}
	}
	r.buildAdjacency()
	return r, nil
}
