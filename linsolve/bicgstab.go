package linsolve

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"

	"github.com/pmflow/gompfa/utils"
)

// Options controls the iterative solve.
type Options struct {
	MaxIterations int
	Tolerance     float64 // relative residual reduction
}

func DefaultOptions() Options {
	return Options{
		MaxIterations: 10000,
		Tolerance:     1e-12,
	}
}

// Result reports how the solve went.
type Result struct {
	Iterations int
	Residual   float64
}

// BiCGStab solves A x = b with Jacobi preconditioning. The pressure systems
// of the MPFA assemblers are non-symmetric whenever mobilities differ across
// a flux face, so CG is not an option. x carries the initial guess in and
// the solution out.
func BiCGStab(a *utils.DOK, b, x utils.Vector, opt Options) (Result, error) {
	nr, nc := a.Dims()
	if nr != nc || b.Len() != nr || x.Len() != nr {
		return Result{}, fmt.Errorf("dimension mismatch in BiCGStab: A is %d x %d, b has %d, x has %d",
			nr, nc, b.Len(), x.Len())
	}

	// inverse diagonal as preconditioner; a zero diagonal entry would mean a
	// cell without any flux face, so fall back to identity there
	diagInv := a.Diagonal()
	for i, d := range diagInv {
		if d != 0 {
			diagInv[i] = 1.0 / d
		} else {
			diagInv[i] = 1.0
		}
	}

	normB := b.Norm()
	if normB == 0 {
		x.Zero()
		return Result{}, nil
	}

	// freeze the assembled values into compressed rows once; the iteration
	// does nothing but matrix-vector products
	am := a.ToCSR()

	r := utils.NewVector(nr)
	mulVec(am, x.DataP, r.DataP)
	for i := range r.DataP {
		r.DataP[i] = b.DataP[i] - r.DataP[i]
	}
	if r.Norm()/normB <= opt.Tolerance {
		return Result{Residual: r.Norm() / normB}, nil
	}

	rHat := r.Copy()
	p := utils.NewVector(nr)
	v := utils.NewVector(nr)
	pHat := utils.NewVector(nr)
	sHat := utils.NewVector(nr)
	t := utils.NewVector(nr)

	rho, alpha, omega := 1.0, 1.0, 1.0
	for it := 1; it <= opt.MaxIterations; it++ {
		rhoNext := rHat.Dot(r)
		if rhoNext == 0 {
			return Result{Iterations: it}, fmt.Errorf("BiCGStab breakdown: rho = 0 at iteration %d", it)
		}
		beta := (rhoNext / rho) * (alpha / omega)
		for i := range p.DataP {
			p.DataP[i] = r.DataP[i] + beta*(p.DataP[i]-omega*v.DataP[i])
		}

		for i := range pHat.DataP {
			pHat.DataP[i] = diagInv[i] * p.DataP[i]
		}
		mulVec(am, pHat.DataP, v.DataP)

		rHatV := rHat.Dot(v)
		if rHatV == 0 {
			return Result{Iterations: it}, fmt.Errorf("BiCGStab breakdown: rHat*v = 0 at iteration %d", it)
		}
		alpha = rhoNext / rHatV

		// s reuses r
		for i := range r.DataP {
			r.DataP[i] -= alpha * v.DataP[i]
		}
		if r.Norm()/normB <= opt.Tolerance {
			for i := range x.DataP {
				x.DataP[i] += alpha * pHat.DataP[i]
			}
			return Result{Iterations: it, Residual: r.Norm() / normB}, nil
		}

		for i := range sHat.DataP {
			sHat.DataP[i] = diagInv[i] * r.DataP[i]
		}
		mulVec(am, sHat.DataP, t.DataP)

		tt := t.Dot(t)
		if tt == 0 {
			return Result{Iterations: it}, fmt.Errorf("BiCGStab breakdown: t*t = 0 at iteration %d", it)
		}
		omega = t.Dot(r) / tt

		for i := range x.DataP {
			x.DataP[i] += alpha*pHat.DataP[i] + omega*sHat.DataP[i]
		}
		for i := range r.DataP {
			r.DataP[i] -= omega * t.DataP[i]
		}

		res := r.Norm() / normB
		if res <= opt.Tolerance {
			return Result{Iterations: it, Residual: res}, nil
		}
		if omega == 0 || math.IsNaN(res) {
			return Result{Iterations: it, Residual: res},
				fmt.Errorf("BiCGStab stagnated at iteration %d, residual %g", it, res)
		}
		rho = rhoNext
	}

	res := r.Norm() / normB
	return Result{Iterations: opt.MaxIterations, Residual: res},
		fmt.Errorf("BiCGStab: no convergence within %d iterations, residual %g", opt.MaxIterations, res)
}

func mulVec(a *sparse.CSR, x, y []float64) {
	for i := range y {
		y[i] = 0
	}
	a.DoNonZero(func(i, j int, v float64) {
		y[i] += v * x[j]
	})
}
