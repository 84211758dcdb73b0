/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/pmflow/gompfa/InputParameters"
	"github.com/pmflow/gompfa/model_problems/Flow2D"
	"github.com/pmflow/gompfa/output"
)

type Model2D struct {
	ICFile  string
	Profile bool
}

// TwoDCmd represents the 2D command
var TwoDCmd = &cobra.Command{
	Use:   "2D",
	Short: "Two dimensional IMPES solver on structured quadrilateral grids",
	Long:  `Two dimensional IMPES solver on structured quadrilateral grids`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		fmt.Println("2D called")
		m2d := &Model2D{}
		if m2d.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			panic(err)
		}
		m2d.Profile, _ = cmd.Flags().GetBool("profile")
		ip := processInput(m2d)
		Run2D(m2d, ip)
	},
}

func processInput(m2d *Model2D) (ip *InputParameters.InputParameters2D) {
	var (
		err error
	)
	if len(m2d.ICFile) == 0 {
		err = fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		exampleFile := `
########################################
Title: "Buckley-Leverett"
Nx: 30
Ny: 6
Lx: 3.0
Ly: 0.75
CFL: 0.95
FinalTime: 1.0e7
MaxTimeSteps: 200
PressureFormulation: pw  # or pn
SaturationFormulation: Sw
OutputLevel: 1
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	var data []byte
	if data, err = os.ReadFile(m2d.ICFile); err != nil {
		panic(err)
	}
	ip = &InputParameters.InputParameters2D{}
	if err = ip.Parse(data); err != nil {
		panic(err)
	}
	return
}

func init() {
	rootCmd.AddCommand(TwoDCmd)
	TwoDCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- grid size\n\t- CFL\n\t- formulation")
	TwoDCmd.Flags().BoolP("profile", "p", false, "write a CPU profile of the run")
}

func Run2D(m2d *Model2D, ip *InputParameters.InputParameters2D) {
	if m2d.Profile {
		defer profile.Start(profile.CPUProfile).Stop()
	}
	ip.Print()

	cfg, err := ip.ModelConfig()
	if err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}

	problem := Flow2D.NewBuckleyLeverett(ip.Nx, ip.Ny, ip.Lx, ip.Ly)
	sim, err := Flow2D.NewSimulation(problem, cfg, ip.Method, ip.FinalTime, ip.CFL)
	if err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	if err = sim.Initialize(); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	maxSteps := ip.MaxTimeSteps
	if maxSteps <= 0 {
		maxSteps = 1000
	}
	if err = sim.Run(maxSteps); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}

	fields := output.CollectCellFields(problem, cfg, ip.OutputLevel)
	for _, name := range fields.ScalarNames() {
		vals, _ := fields.Scalar(name)
		min, max := vals[0], vals[0]
		for _, v := range vals {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		fmt.Printf("%-24s min %12.5g  max %12.5g\n", name, min, max)
	}
}
