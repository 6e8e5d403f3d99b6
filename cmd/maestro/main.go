package main

import (
	"os"

	"github.com/maestro/maestro/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
