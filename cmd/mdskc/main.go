package main

import (
	"os"

	"github.com/jasonmooney/mds-knowledge-capture/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
