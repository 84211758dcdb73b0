package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pmflow/gompfa/mesh"
)

// FaceTrace is the checkpoint format for per-face scalars (pressure traces):
// one value per element face, serialized in element-traversal order. The
// grid must be identical on write and read.
type FaceTrace struct {
	m      mesh.Mesh
	values [][]float64
}

func NewFaceTrace(m mesh.Mesh) *FaceTrace {
	t := &FaceTrace{
		m:      m,
		values: make([][]float64, m.NumCells()),
	}
	for e := range t.values {
		t.values[e] = make([]float64, m.NumFaces(e))
	}
	return t
}

func (t *FaceTrace) At(cell, face int) float64     { return t.values[cell][face] }
func (t *FaceTrace) Set(cell, face int, v float64) { t.values[cell][face] = v }

func (t *FaceTrace) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for e := range t.values {
		for _, v := range t.values[e] {
			if _, err := fmt.Fprintf(bw, "%.17g\n", v); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func (t *FaceTrace) Read(r io.Reader) error {
	br := bufio.NewReader(r)
	for e := range t.values {
		for f := range t.values[e] {
			if _, err := fmt.Fscan(br, &t.values[e][f]); err != nil {
				return fmt.Errorf("face trace at cell %d face %d: %w", e, f, err)
			}
		}
	}
	return nil
}
