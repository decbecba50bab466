// Command rowstore inspects the tables of a row store from the shell.
//
// Usage: rowstore [--root DIR] [--format FORMAT] <command> [args]
package main

import (
	"os"
)

func main() {
	if err := NewCLI(os.Stdout, os.Stderr).Execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
