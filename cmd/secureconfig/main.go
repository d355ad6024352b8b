// FILE: cmd/secureconfig/main.go
package main

import (
	"fmt"
	"os"

	"github.com/lixenwraith/secureconfig/cmd/secureconfig/commands"
)

var version = "dev"

func main() {
	root := commands.NewRootCommand(version)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
