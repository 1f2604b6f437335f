// Package main is the entry point for the csvclean CLI.
package main

import (
	"os"

	"github.com/leeovery/csvclean/internal/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)

	dir := "."
	if wd, err := os.Getwd(); err == nil {
		dir = wd
	}

	os.Exit(app.Run(os.Args, dir))
}
