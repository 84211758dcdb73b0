package types

type BCFLAG uint8

const (
	BC_None BCFLAG = iota
	BC_Dirichlet
	BC_Neumann
	BC_Outflow
)

var BCNameMap = map[string]BCFLAG{
	"dirichlet": BC_Dirichlet,
	"neumann":   BC_Neumann,
	"outflow":   BC_Outflow,
}

func (f BCFLAG) String() string {
	switch f {
	case BC_Dirichlet:
		return "Dirichlet"
	case BC_Neumann:
		return "Neumann"
	case BC_Outflow:
		return "Outflow"
	}
	return "None"
}

// BoundaryTypes carries one boundary-condition flag per equation, so a face
// can be Dirichlet for the pressure equation and Neumann for the saturation
// equation at the same time.
type BoundaryTypes struct {
	flags [NumEq]BCFLAG
}

func (bt *BoundaryTypes) Reset() {
	for i := range bt.flags {
		bt.flags[i] = BC_None
	}
}

func (bt *BoundaryTypes) SetAllDirichlet() {
	for i := range bt.flags {
		bt.flags[i] = BC_Dirichlet
	}
}

func (bt *BoundaryTypes) SetAllNeumann() {
	for i := range bt.flags {
		bt.flags[i] = BC_Neumann
	}
}

func (bt *BoundaryTypes) SetDirichlet(eqIdx int) { bt.flags[eqIdx] = BC_Dirichlet }
func (bt *BoundaryTypes) SetNeumann(eqIdx int)   { bt.flags[eqIdx] = BC_Neumann }
func (bt *BoundaryTypes) SetOutflow(eqIdx int)   { bt.flags[eqIdx] = BC_Outflow }

func (bt BoundaryTypes) IsDirichlet(eqIdx int) bool { return bt.flags[eqIdx] == BC_Dirichlet }
func (bt BoundaryTypes) IsNeumann(eqIdx int) bool   { return bt.flags[eqIdx] == BC_Neumann }
func (bt BoundaryTypes) IsOutflow(eqIdx int) bool   { return bt.flags[eqIdx] == BC_Outflow }

func (bt BoundaryTypes) HasDirichlet() bool {
	for _, f := range bt.flags {
		if f == BC_Dirichlet {
			return true
		}
	}
	return false
}

func (bt BoundaryTypes) HasNeumann() bool {
	for _, f := range bt.flags {
		if f == BC_Neumann {
			return true
		}
	}
	return false
}

func (bt BoundaryTypes) IsSet() bool {
	for _, f := range bt.flags {
		if f != BC_None {
			return true
		}
	}
	return false
}
