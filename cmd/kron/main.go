package main

import (
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  string
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "kron: %s\n", err)
		os.Exit(1)
	}
}
