package types

import "errors"

// Fatal configuration errors. All of them terminate the run; none is
// recovered inside the assembly core.
var (
	// ErrUnsupportedConfig covers unsupported pressure/saturation/velocity
	// formulations, compressibility and unsupported dimensions.
	ErrUnsupportedConfig = errors.New("configuration not supported")

	// ErrBoundaryShape is raised when the corner-matching search of the
	// interaction-volume builder fails, i.e. the grid violates the
	// quadrilateral geometry assumption.
	ErrBoundaryShape = errors.New("boundary shape not available as interaction volume shape")

	// ErrBoundaryCondition is raised when a boundary face carries neither a
	// Dirichlet nor a Neumann condition for the pressure equation.
	ErrBoundaryCondition = errors.New("no valid boundary condition type defined for pressure equation")
)
