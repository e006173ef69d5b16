package main

import (
	"flag"
	"fmt"
)

const version = "0.1.0"

type versionCommand struct{}

func (versionCommand) Name() string        { return "version" }
func (versionCommand) Args() string        { return "" }
func (versionCommand) ShortHelp() string   { return "print the descbuild version" }
func (versionCommand) Register(*flag.FlagSet) {}

func (versionCommand) Run(cfg *Config, fs *flag.FlagSet, args []string) error {
	fmt.Fprintln(cfg.Stdout, version)
	return nil
}
