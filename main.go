package main

import "github.com/pmflow/gompfa/cmd"

func main() {
	cmd.Execute()
}
