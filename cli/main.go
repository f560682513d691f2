package main

import (
	"os"

	"github.com/transitwire-systems/avl-stack/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
