package mesh

import "math"

// Point3 is a position or direction in 3D space, a fixed array for the same
// allocation-free reason as Point.
type Point3 [3]float64

func (p Point3) Add(q Point3) Point3 {
	return Point3{p[0] + q[0], p[1] + q[1], p[2] + q[2]}
}

func (p Point3) Sub(q Point3) Point3 {
	return Point3{p[0] - q[0], p[1] - q[1], p[2] - q[2]}
}

func (p Point3) Scale(a float64) Point3 {
	return Point3{a * p[0], a * p[1], a * p[2]}
}

func (p Point3) Dot(q Point3) float64 {
	return p[0]*q[0] + p[1]*q[1] + p[2]*q[2]
}

// Cross is the vector product p x q, the 3D counterpart of Rot in the
// dual-basis construction.
func (p Point3) Cross(q Point3) Point3 {
	return Point3{
		p[1]*q[2] - p[2]*q[1],
		p[2]*q[0] - p[0]*q[2],
		p[0]*q[1] - p[1]*q[0],
	}
}

func (p Point3) Norm() float64 {
	return math.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
}

func (p Point3) Mid(q Point3) Point3 {
	return Point3{0.5 * (p[0] + q[0]), 0.5 * (p[1] + q[1]), 0.5 * (p[2] + q[2])}
}

// Tensor3 is a symmetric 3x3 permeability tensor in row-major order.
type Tensor3 [9]float64

func IsotropicTensor3(k float64) Tensor3 {
	return Tensor3{k, 0, 0, 0, k, 0, 0, 0, k}
}

// Apply computes K*v.
func (k Tensor3) Apply(v Point3) Point3 {
	return Point3{
		k[0]*v[0] + k[1]*v[1] + k[2]*v[2],
		k[3]*v[0] + k[4]*v[1] + k[5]*v[2],
		k[6]*v[0] + k[7]*v[1] + k[8]*v[2],
	}
}
