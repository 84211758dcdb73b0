package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"

	"github.com/pmflow/gompfa/types"
)

// Parameters obtained from the YAML input file
type InputParameters2D struct {
	Title                 string  `yaml:"Title"`
	Nx                    int     `yaml:"Nx"`
	Ny                    int     `yaml:"Ny"`
	Lx                    float64 `yaml:"Lx"`
	Ly                    float64 `yaml:"Ly"`
	FinalTime             float64 `yaml:"FinalTime"`
	CFL                   float64 `yaml:"CFL"`
	MaxTimeSteps          int     `yaml:"MaxTimeSteps"`
	PressureFormulation   string  `yaml:"PressureFormulation"`   // pw | pn
	SaturationFormulation string  `yaml:"SaturationFormulation"` // Sw | Sn
	Method                string  `yaml:"Method"`                // L | O
	OutputLevel           int     `yaml:"OutputLevel"`
}

func (ip *InputParameters2D) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, ip); err != nil {
		return err
	}
	if ip.Nx <= 0 || ip.Ny <= 0 {
		return fmt.Errorf("grid must have positive cell counts, got %d x %d", ip.Nx, ip.Ny)
	}
	if ip.Lx <= 0 || ip.Ly <= 0 {
		return fmt.Errorf("domain must have positive extent, got %g x %g", ip.Lx, ip.Ly)
	}
	return nil
}

func (ip *InputParameters2D) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%d x %d]\t\t= Grid\n", ip.Nx, ip.Ny)
	fmt.Printf("[%g x %g]\t\t= Domain\n", ip.Lx, ip.Ly)
	fmt.Printf("%8.5f\t\t= CFL\n", ip.CFL)
	fmt.Printf("%8.5g\t\t= FinalTime\n", ip.FinalTime)
	fmt.Printf("[%s]\t\t\t= Method\n", ip.Method)
	fmt.Printf("[%s/%s]\t\t= Formulation\n", ip.PressureFormulation, ip.SaturationFormulation)
}

// ModelConfig maps the formulation strings onto the assembler configuration.
func (ip *InputParameters2D) ModelConfig() (types.ModelConfig, error) {
	cfg := types.DefaultModelConfig()
	switch ip.PressureFormulation {
	case "", "pw":
		cfg.Pressure = types.PressureW
	case "pn":
		cfg.Pressure = types.PressureNW
	default:
		return cfg, fmt.Errorf("unknown pressure formulation %q (want pw or pn)", ip.PressureFormulation)
	}
	switch ip.SaturationFormulation {
	case "", "Sw":
		cfg.Saturation = types.SaturationW
	case "Sn":
		cfg.Saturation = types.SaturationNW
	default:
		return cfg, fmt.Errorf("unknown saturation formulation %q (want Sw or Sn)", ip.SaturationFormulation)
	}
	return cfg, nil
}
