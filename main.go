// The main package for the indexrunner executable.
package main

import (
	"github.com/searchpress/indexrunner/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
