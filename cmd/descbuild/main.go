// Command descbuild runs the project-descriptor build pipeline over a
// local descriptor tree and prints the effective descriptor's model id,
// its lineage, and any collected problems, in the teacher's
// command-table style.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// command mirrors the teacher's cmd/dep command interface, trimmed to
// what this CLI's single real subcommand needs.
type command interface {
	Name() string
	Args() string
	ShortHelp() string
	Register(*flag.FlagSet)
	Run(cfg *Config, fs *flag.FlagSet, args []string) error
}

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to get working directory:", err)
		os.Exit(1)
	}
	c := &Config{
		Args:       os.Args,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		WorkingDir: wd,
	}
	os.Exit(c.Run())
}

// Config specifies a full configuration for a descbuild execution.
type Config struct {
	WorkingDir     string
	Args           []string
	Stdout, Stderr io.Writer
}

// Run executes a configuration and returns an exit code.
func (c *Config) Run() (exitCode int) {
	commands := []command{
		&buildCommand{},
		&versionCommand{},
	}

	errLogger := log.New(c.Stderr, "", 0)

	usage := func() {
		errLogger.Println("descbuild builds a project descriptor's effective model")
		errLogger.Println()
		errLogger.Println("Usage: descbuild <command> [flags]")
		errLogger.Println()
		errLogger.Println("Commands:")
		for _, cmd := range commands {
			errLogger.Printf("  %-10s %s\n", cmd.Name(), cmd.ShortHelp())
		}
	}

	if len(c.Args) < 2 {
		usage()
		return 1
	}
	cmdName := c.Args[1]

	for _, cmd := range commands {
		if cmd.Name() != cmdName {
			continue
		}
		fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
		fs.SetOutput(c.Stderr)
		cmd.Register(fs)
		if err := fs.Parse(c.Args[2:]); err != nil {
			return 1
		}
		if err := cmd.Run(c, fs, fs.Args()); err != nil {
			errLogger.Printf("descbuild %s: %v\n", cmdName, err)
			return 1
		}
		return 0
	}

	errLogger.Printf("descbuild: %s: no such command\n", cmdName)
	usage()
	return 1
}
