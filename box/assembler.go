package box

import (
	"fmt"
	"math"

	"github.com/pmflow/gompfa/mesh"
	"github.com/pmflow/gompfa/types"
	"github.com/pmflow/gompfa/utils"
)

// Jacobian wraps the scalar sparse matrix with block addressing: the entry
// (dofI, dofJ, eq, pv) is the rate of change of the residual of equation eq
// at dofI with respect to the primary variable pv at dofJ.
type Jacobian struct {
	a *utils.DOK
}

func (j *Jacobian) Add(dofI, dofJ, eq, pv int, v float64) {
	j.a.Add(dofI*types.NumEq+eq, dofJ*types.NumEq+pv, v)
}

func (j *Jacobian) Matrix() *utils.DOK { return j.a }

// Assembler drives the per-element residual and Jacobian assembly of the
// box scheme. It owns the global Jacobian and residual vector for the
// duration of one Assemble call; both are zeroed on entry.
type Assembler struct {
	m  mesh.Mesh
	lr LocalResidual
	bc BoundaryConditions

	method   types.DifferenceMethod
	implicit bool

	jac *Jacobian
	res utils.Vector

	prev utils.Vector
}

// NewAssembler wires a local residual to the grid. An explicit time
// discretization of a stationary residual is rejected; there is nothing to
// advance.
func NewAssembler(m mesh.Mesh, lr LocalResidual, bc BoundaryConditions,
	method types.DifferenceMethod, implicit bool) (*Assembler, error) {
	if !implicit && lr.Stationary() {
		return nil, fmt.Errorf("%w: explicit time discretization of a stationary residual",
			types.ErrUnsupportedConfig)
	}
	a := &Assembler{
		m:        m,
		lr:       lr,
		bc:       bc,
		method:   method,
		implicit: implicit,
	}
	if err := a.initializeMatrix(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Assembler) Jacobian() *Jacobian    { return a.jac }
func (a *Assembler) Residual() utils.Vector { return a.res }

// SetPreviousSolution stores the previous time step's solution consumed by
// the storage term of an instationary residual.
func (a *Assembler) SetPreviousSolution(prev utils.Vector) { a.prev = prev }

// initializeMatrix declares the sparsity pattern: every pair of corners of
// every element couples block-wise. Row sizes are an upper bound; shared
// vertices declare the same index more than once.
func (a *Assembler) initializeMatrix() error {
	n := a.m.NumVertices() * types.NumEq
	dok := utils.NewDOK(n, n)

	elemsAtVertex := make([]int, a.m.NumVertices())
	for e := 0; e < a.m.NumCells(); e++ {
		for i := 0; i < numCorners; i++ {
			elemsAtVertex[cornerVertex(a.m, e, i)]++
		}
	}
	for v, cnt := range elemsAtVertex {
		size := cnt * numCorners * types.NumEq
		if size == 0 {
			size = types.NumEq
		}
		for eq := 0; eq < types.NumEq; eq++ {
			dok.SetRowSize(v*types.NumEq+eq, size)
		}
	}
	dok.EndRowSizes()

	for e := 0; e < a.m.NumCells(); e++ {
		var dofs [numCorners]int
		for i := 0; i < numCorners; i++ {
			dofs[i] = cornerVertex(a.m, e, i)
		}
		for _, di := range dofs {
			for _, dj := range dofs {
				for eq := 0; eq < types.NumEq; eq++ {
					for pv := 0; pv < types.NumEq; pv++ {
						dok.AddIndex(di*types.NumEq+eq, dj*types.NumEq+pv)
					}
				}
			}
		}
	}
	if err := dok.EndIndices(); err != nil {
		return err
	}

	a.jac = &Jacobian{a: dok}
	a.res = utils.NewVector(n)
	return nil
}

// Assemble computes the global residual and Jacobian at the given solution.
// Dirichlet vertices are enforced afterwards by overwriting their residual
// rows with (primary variable - Dirichlet value) and their Jacobian rows
// with identity.
func (a *Assembler) Assemble(cur utils.Vector) error {
	if err := a.checkSolution(cur); err != nil {
		return err
	}
	a.jac.a.Zero()
	a.res.Zero()

	for e := 0; e < a.m.NumCells(); e++ {
		if alr, ok := a.lr.(AnalyticLocalResidual); ok {
			a.assembleElementAnalytic(alr, e, cur)
		} else {
			a.assembleElementNumeric(e, cur)
		}
	}

	a.applyDirichlet(cur, true)
	return nil
}

// AssembleResidual evaluates the residual only, with the same Dirichlet row
// overwrite as the full assembly.
func (a *Assembler) AssembleResidual(cur utils.Vector) error {
	if err := a.checkSolution(cur); err != nil {
		return err
	}
	a.res.Zero()

	for e := 0; e < a.m.NumCells(); e++ {
		var dofs [numCorners]int
		elemSol, prevSol := a.gather(e, cur, &dofs)
		residual := a.evalLocal(e, &prevSol, &elemSol)
		a.scatterResidual(&dofs, residual)
	}

	a.applyDirichlet(cur, false)
	return nil
}

func (a *Assembler) checkSolution(cur utils.Vector) error {
	want := a.m.NumVertices() * types.NumEq
	if cur.Len() != want {
		return fmt.Errorf("solution has %d entries, grid has %d dofs", cur.Len(), want)
	}
	if !a.lr.Stationary() && a.prev.Len() != want {
		return fmt.Errorf("instationary residual needs a previous solution (SetPreviousSolution)")
	}
	return nil
}

func (a *Assembler) gather(e int, cur utils.Vector, dofs *[numCorners]int) (elemSol, prevSol ElementSolution) {
	for i := 0; i < numCorners; i++ {
		dofs[i] = cornerVertex(a.m, e, i)
		for pv := 0; pv < types.NumEq; pv++ {
			elemSol[i][pv] = cur.DataP[dofs[i]*types.NumEq+pv]
			if !a.lr.Stationary() {
				prevSol[i][pv] = a.prev.DataP[dofs[i]*types.NumEq+pv]
			}
		}
	}
	return
}

// evalLocal is the full local residual of the configured time scheme: flux
// and source at the current (implicit) or previous (explicit) solution, plus
// the storage difference for instationary residuals.
func (a *Assembler) evalLocal(e int, prevSol, elemSol *ElementSolution) ElementResidual {
	if a.lr.Stationary() {
		return a.lr.Eval(e, elemSol)
	}
	var residual ElementResidual
	if a.implicit {
		residual = a.lr.Eval(e, elemSol)
	} else {
		residual = a.lr.Eval(e, prevSol)
	}
	storage := a.lr.EvalStorage(e, prevSol, elemSol)
	for i := range residual {
		for eq := 0; eq < types.NumEq; eq++ {
			residual[i][eq] += storage[i][eq]
		}
	}
	return residual
}

func (a *Assembler) scatterResidual(dofs *[numCorners]int, residual ElementResidual) {
	for i, dof := range dofs {
		for eq := 0; eq < types.NumEq; eq++ {
			a.res.DataP[dof*types.NumEq+eq] += residual[i][eq]
		}
	}
}

// numericEpsilon scales the differencing step to the magnitude of the
// primary variable.
func numericEpsilon(priVar float64) float64 {
	const baseEps = 1e-10
	return baseEps * (math.Abs(priVar) + 1.0)
}

// assembleElementNumeric deflects every corner primary variable in turn and
// differences the local residual. An implicit scheme re-evaluates the whole
// residual and couples all corners of the element; an explicit scheme only
// the storage term, which is lumped on the diagonal block.
func (a *Assembler) assembleElementNumeric(e int, cur utils.Vector) {
	var dofs [numCorners]int
	elemSol, prevSol := a.gather(e, cur, &dofs)

	residual := a.evalLocal(e, &prevSol, &elemSol)
	a.scatterResidual(&dofs, residual)

	// the recycled base value of one-sided differences: the part of the
	// residual that actually depends on the current solution
	base := residual
	if !a.implicit {
		base = a.lr.EvalStorage(e, &prevSol, &elemSol)
	}

	deflected := func(sol *ElementSolution) ElementResidual {
		if a.implicit {
			return a.evalLocal(e, &prevSol, sol)
		}
		return a.lr.EvalStorage(e, &prevSol, sol)
	}

	for i := 0; i < numCorners; i++ {
		for pv := 0; pv < types.NumEq; pv++ {
			orig := elemSol[i][pv]
			eps := numericEpsilon(orig)
			delta := 0.0

			var partial ElementResidual
			if a.method >= types.CentralDifference {
				elemSol[i][pv] += eps
				delta += eps
				partial = deflected(&elemSol)
			} else {
				partial = base
			}

			if a.method <= types.CentralDifference {
				elemSol[i][pv] -= delta + eps
				delta += eps
				partial.sub(deflected(&elemSol))
			} else {
				partial.sub(base)
			}

			partial.scale(1.0 / delta)

			if a.implicit {
				for j, dofJ := range dofs {
					for eq := 0; eq < types.NumEq; eq++ {
						a.jac.Add(dofJ, dofs[i], eq, pv, partial[j][eq])
					}
				}
			} else {
				for eq := 0; eq < types.NumEq; eq++ {
					a.jac.Add(dofs[i], dofs[i], eq, pv, partial[i][eq])
				}
			}

			elemSol[i][pv] = orig
		}
	}
}

// assembleElementAnalytic delegates the derivatives to the residual itself:
// storage and source are lumped on the corner's diagonal block, flux
// derivatives couple the element's corners.
func (a *Assembler) assembleElementAnalytic(alr AnalyticLocalResidual, e int, cur utils.Vector) {
	var dofs [numCorners]int
	elemSol, prevSol := a.gather(e, cur, &dofs)

	residual := a.evalLocal(e, &prevSol, &elemSol)
	a.scatterResidual(&dofs, residual)

	for i, dof := range dofs {
		if !a.lr.Stationary() {
			alr.AddStorageDerivatives(a.jac, e, i, dof, &elemSol)
		}
		if a.implicit {
			alr.AddSourceDerivatives(a.jac, e, i, dof, &elemSol)
		}
	}
	if a.implicit {
		alr.AddFluxDerivatives(a.jac, e, &dofs, &elemSol)
	}
}

// applyDirichlet overwrites the rows of Dirichlet vertices: residual becomes
// (primary variable - Dirichlet value), the Jacobian row becomes identity.
func (a *Assembler) applyDirichlet(cur utils.Vector, withJacobian bool) {
	for v := 0; v < a.m.NumVertices(); v++ {
		bt := a.bc.VertexBoundaryTypes(v)
		if !bt.HasDirichlet() {
			continue
		}
		dv := a.bc.VertexDirichlet(v)
		for eq := 0; eq < types.NumEq; eq++ {
			if !bt.IsDirichlet(eq) {
				continue
			}
			row := v*types.NumEq + eq
			a.res.DataP[row] = cur.DataP[row] - dv[eq]
			if withJacobian {
				a.jac.a.ZeroRow(row)
				a.jac.a.Set(row, row, 1.0)
			}
		}
	}
}

func cornerVertex(m mesh.Mesh, cell, i int) int {
	return m.FaceVertices(cell, i)[0]
}
