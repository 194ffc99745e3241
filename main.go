package main

import (
	"os"

	"github.com/labelsense/labelsense/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
