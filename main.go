package main

import (
	"os"

	"github.com/gigflow/gigwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
