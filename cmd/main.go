package main

import (
	"os"

	"github.com/pborman/getopt"
	"go.runml.dev/pkg"
)

func main() {
	emit := ""
	help := false
	getopt.StringVarLong(&emit, "emit", 'c', "write the translated C source to FILE and exit", "FILE")
	getopt.BoolVarLong(&help, "help", 'h', "display help")
	getopt.SetParameters("source.ml [args...]")
	getopt.Parse()

	if help {
		getopt.PrintUsage(os.Stdout)
		return
	}

	args := getopt.Args()
	if len(args) < 1 {
		getopt.PrintUsage(os.Stderr)
		os.Exit(1)
	}

	c := runml.NewCompiler()
	if emit != "" {
		os.Exit(c.Emit(args[0], emit))
	}

	os.Exit(c.Run(args))
}
