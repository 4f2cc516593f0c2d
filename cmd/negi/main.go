package main

import (
	"os"

	"github.com/hermitpopcorn/negi-ms/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
