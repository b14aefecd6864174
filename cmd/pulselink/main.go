package main

import (
	"os"

	"github.com/layer-3/pulselink/cmd/pulselink/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
