package types

import "fmt"

// Index conventions of the two-phase model. Primary variables and equations
// share the same numbering: pressure first, saturation second.
const (
	WPhase = 0
	NPhase = 1

	NumPhases = 2
	NumEq     = 2

	PressureIdx   = 0
	SaturationIdx = 1
	PressEqIdx    = 0
	SatEqIdx      = 1
)

// PrimaryVariables is one value per equation, used for Dirichlet value
// vectors and Neumann flux vectors alike.
type PrimaryVariables [NumEq]float64

type PressureFormulation uint8

const (
	PressureW PressureFormulation = iota
	PressureNW
	PressureGlobal
)

func (p PressureFormulation) String() string {
	switch p {
	case PressureW:
		return "pw"
	case PressureNW:
		return "pn"
	case PressureGlobal:
		return "pglobal"
	}
	return "unknown"
}

type SaturationFormulation uint8

const (
	SaturationW SaturationFormulation = iota
	SaturationNW
)

func (s SaturationFormulation) String() string {
	if s == SaturationNW {
		return "Sn"
	}
	return "Sw"
}

type VelocityFormulation uint8

const (
	VelocityW VelocityFormulation = iota
	VelocityNW
	VelocityTotal
)

// DifferenceMethod selects forward (+1), central (0) or backward (-1)
// numeric differencing in the box assembler.
type DifferenceMethod int

const (
	BackwardDifference DifferenceMethod = -1
	CentralDifference  DifferenceMethod = 0
	ForwardDifference  DifferenceMethod = 1
)

type TimeScheme uint8

const (
	Instationary TimeScheme = iota
	Stationary
)

// ModelConfig collects the model choices in one explicit struct handed to
// the assembler constructors.
type ModelConfig struct {
	Pressure        PressureFormulation
	Saturation      SaturationFormulation
	Velocity        VelocityFormulation
	Compressibility bool

	// volumetric error-term damping
	ErrorTermFactor     float64
	ErrorTermLowerBound float64
	ErrorTermUpperBound float64
}

// DefaultModelConfig is the standard sequential two-phase configuration:
// wetting-phase formulation, total velocity, mild error-term damping.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Pressure:            PressureW,
		Saturation:          SaturationW,
		Velocity:            VelocityTotal,
		ErrorTermFactor:     0.5,
		ErrorTermLowerBound: 0.1,
		ErrorTermUpperBound: 0.9,
	}
}

// Validate raises the fatal configuration errors of the pressure assembler:
// unsupported formulations and compressibility are rejected at construction,
// never at run time.
func (c ModelConfig) Validate() error {
	if c.Pressure != PressureW && c.Pressure != PressureNW {
		return fmt.Errorf("%w: pressure formulation %s", ErrUnsupportedConfig, c.Pressure)
	}
	if c.Saturation != SaturationW && c.Saturation != SaturationNW {
		return fmt.Errorf("%w: saturation formulation %s", ErrUnsupportedConfig, c.Saturation)
	}
	if c.Compressibility {
		return fmt.Errorf("%w: compressibility", ErrUnsupportedConfig)
	}
	return nil
}
