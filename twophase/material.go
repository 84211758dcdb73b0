package twophase

import "math"

// MaterialLaw evaluates the constitutive closures as pure functions of the
// wetting saturation. Parameters are bound per instance; the spatial
// parameters of a problem map cells to laws.
type MaterialLaw interface {
	Pc(satW float64) float64
	Krw(satW float64) float64
	Krn(satW float64) float64
}

// BrooksCorey is the standard Brooks-Corey capillary pressure / relative
// permeability model with residual saturations.
type BrooksCorey struct {
	EntryPressure float64 // pd
	Lambda        float64 // pore-size distribution index
	ResidualW     float64 // Swr
	ResidualN     float64 // Snr
}

func (b BrooksCorey) effective(satW float64) float64 {
	se := (satW - b.ResidualW) / (1.0 - b.ResidualW - b.ResidualN)
	if se < 0 {
		return 0
	}
	if se > 1 {
		return 1
	}
	return se
}

func (b BrooksCorey) Pc(satW float64) float64 {
	se := b.effective(satW)
	if se <= 0 {
		se = 1e-3
	}
	return b.EntryPressure * math.Pow(se, -1.0/b.Lambda)
}

func (b BrooksCorey) Krw(satW float64) float64 {
	se := b.effective(satW)
	return math.Pow(se, (2.0+3.0*b.Lambda)/b.Lambda)
}

func (b BrooksCorey) Krn(satW float64) float64 {
	se := b.effective(satW)
	return (1 - se) * (1 - se) * (1 - math.Pow(se, (2.0+b.Lambda)/b.Lambda))
}

// LinearLaw interpolates pc linearly between entry and maximum pressure and
// uses linear relative permeabilities. Handy for tests, where pc(S) must be
// easy to invert by hand.
type LinearLaw struct {
	EntryPressure float64
	MaxPc         float64
	ResidualW     float64
	ResidualN     float64
}

func (l LinearLaw) effective(satW float64) float64 {
	se := (satW - l.ResidualW) / (1.0 - l.ResidualW - l.ResidualN)
	if se < 0 {
		return 0
	}
	if se > 1 {
		return 1
	}
	return se
}

func (l LinearLaw) Pc(satW float64) float64 {
	se := l.effective(satW)
	return l.EntryPressure + (l.MaxPc-l.EntryPressure)*(1-se)
}

func (l LinearLaw) Krw(satW float64) float64 { return l.effective(satW) }
func (l LinearLaw) Krn(satW float64) float64 { return 1 - l.effective(satW) }

// NoCapillarity has zero capillary pressure and linear relperms; the
// fractional-flow structure stays intact while the pc terms vanish.
type NoCapillarity struct{}

func (NoCapillarity) Pc(satW float64) float64  { return 0 }
func (NoCapillarity) Krw(satW float64) float64 { return clamp01(satW) }
func (NoCapillarity) Krn(satW float64) float64 { return clamp01(1 - satW) }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
