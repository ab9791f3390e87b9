package main

import (
	"os"

	"github.com/ppiankov/threadpull/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
