package main

import (
	"os"

	"github.com/rustyeddy/gptrader/cmd/gptrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
