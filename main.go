// The main package for the athlete-pipeline executable.
package main

import (
	"github.com/JakeFAU/athlete-pipeline/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
