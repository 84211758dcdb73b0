package mesh

import "math"

// Point is a position or direction in the 2D plane. Kept as a fixed array so
// the interaction-volume builder allocates nothing per face.
type Point [2]float64

func (p Point) Add(q Point) Point      { return Point{p[0] + q[0], p[1] + q[1]} }
func (p Point) Sub(q Point) Point      { return Point{p[0] - q[0], p[1] - q[1]} }
func (p Point) Scale(a float64) Point  { return Point{a * p[0], a * p[1]} }
func (p Point) Dot(q Point) float64    { return p[0]*q[0] + p[1]*q[1] }
func (p Point) Norm() float64          { return math.Hypot(p[0], p[1]) }
func (p Point) Mid(q Point) Point      { return Point{0.5 * (p[0] + q[0]), 0.5 * (p[1] + q[1])} }

// Rot applies the 90-degree rotation matrix R = [[0,1],[-1,0]] used to turn
// cell-center/face-center difference vectors into the nu vectors of the MPFA
// construction.
func (p Point) Rot() Point { return Point{p[1], -p[0]} }

// Tensor is a symmetric 2x2 permeability tensor in row-major order.
type Tensor [4]float64

func IsotropicTensor(k float64) Tensor { return Tensor{k, 0, 0, k} }

// Apply computes K*v.
func (k Tensor) Apply(v Point) Point {
	return Point{k[0]*v[0] + k[1]*v[1], k[2]*v[0] + k[3]*v[1]}
}
