package main

import (
	"os"

	"github.com/example/luxcards/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
