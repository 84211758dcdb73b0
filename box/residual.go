// Package box is the vertex-centered fully-implicit local assembler: one
// degree of freedom per mesh vertex, per-element residual evaluation over the
// four corner sub-control-volumes, and numeric or analytic Jacobian assembly
// into a scalar sparse matrix with NumEq x NumEq block addressing.
package box

import "github.com/pmflow/gompfa/types"

// corners per quadrilateral element
const numCorners = 4

// ElementSolution holds one primary-variable vector per element corner,
// ordered like the element's local face indices (corner i sits between the
// faces i-1 and i).
type ElementSolution [numCorners]types.PrimaryVariables

// ElementResidual is one residual vector per corner sub-control-volume.
type ElementResidual [numCorners]types.PrimaryVariables

func (r *ElementResidual) sub(o ElementResidual) {
	for i := range r {
		for eq := 0; eq < types.NumEq; eq++ {
			r[i][eq] -= o[i][eq]
		}
	}
}

func (r *ElementResidual) scale(s float64) {
	for i := range r {
		for eq := 0; eq < types.NumEq; eq++ {
			r[i][eq] *= s
		}
	}
}

// LocalResidual evaluates the mass balances of one element. Eval covers the
// flux and source terms at the given corner solution; EvalStorage covers the
// storage difference between two solutions over one time step. A stationary
// residual has no storage part and EvalStorage is never called.
type LocalResidual interface {
	Stationary() bool
	Eval(elem int, sol *ElementSolution) ElementResidual
	EvalStorage(elem int, prev, cur *ElementSolution) ElementResidual
}

// AnalyticLocalResidual is implemented by residuals that can hand out their
// own partial derivatives instead of being differenced numerically. The
// derivative hooks write into the Jacobian with block addressing; corner is
// the local corner whose degree of freedom the storage/source terms belong
// to, dofs are the global dof indices of all four corners.
type AnalyticLocalResidual interface {
	LocalResidual
	AddStorageDerivatives(jac *Jacobian, elem, corner, dof int, sol *ElementSolution)
	AddSourceDerivatives(jac *Jacobian, elem, corner, dof int, sol *ElementSolution)
	AddFluxDerivatives(jac *Jacobian, elem int, dofs *[numCorners]int, sol *ElementSolution)
}

// BoundaryConditions supplies the vertex-wise boundary data of the box
// scheme. Dirichlet values are indexed like the primary variables; the
// equation-to-variable mapping is the identity.
type BoundaryConditions interface {
	VertexBoundaryTypes(v int) types.BoundaryTypes
	VertexDirichlet(v int) types.PrimaryVariables
}
