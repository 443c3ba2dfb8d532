// Command rtti-dump inspects serialized object graphs and the stores holding them.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	e := &env{stdin: stdin, stdout: stdout, stderr: stderr}
	if len(args) < 1 {
		e.printUsage()
		return 2
	}

	var err error
	switch args[0] {
	case "inspect":
		err = e.inspectCommand(args[1:])
	case "tree":
		err = e.treeCommand(args[1:])
	case "ls":
		err = e.listCommand(args[1:])
	case "show":
		err = e.showCommand(args[1:])
	case "put":
		err = e.putCommand(args[1:])
	case "version":
		err = e.versionCommand()
	case "-h", "-help", "--help", "help":
		e.printUsage()
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		e.printUsage()
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s failed: %v\n", args[0], err)
		return 1
	}
	return 0
}

func (e *env) printUsage() {
	fmt.Fprintf(e.stderr, "Usage: rtti-dump <command> [options]\n")
	fmt.Fprintf(e.stderr, "\nCommands:\n")
	fmt.Fprintf(e.stderr, "  inspect   Print the record structure of a serialized file\n")
	fmt.Fprintf(e.stderr, "  tree      Print a serialized project library as a tree\n")
	fmt.Fprintf(e.stderr, "  ls        List the ids held by a store\n")
	fmt.Fprintf(e.stderr, "  show      Load a graph from a store and print it\n")
	fmt.Fprintf(e.stderr, "  put       Validate a serialized file and save it to a store\n")
	fmt.Fprintf(e.stderr, "  version   Show version information\n")
	fmt.Fprintf(e.stderr, "\nRun 'rtti-dump <command> -h' for help on a specific command.\n")
}
