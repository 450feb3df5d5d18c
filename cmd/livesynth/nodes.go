package main

import (
	"flag"
	"fmt"

	"github.com/dudk/livesynth/internal/dsl"
	"github.com/dudk/livesynth/internal/dsp"
)

type nodesCommand struct{}

func (cmd *nodesCommand) Name() string {
	return "nodes"
}

func (cmd *nodesCommand) Help() string {
	return "Show the list of available nodes"
}

func (cmd *nodesCommand) Register(fs *flag.FlagSet) {}

func (cmd *nodesCommand) Run() error {
	fmt.Println("Available nodes:")
	for _, name := range dsp.Names() {
		// references are written as ~name
		if name == dsl.RefNode {
			continue
		}
		k, _ := dsp.Lookup(name)
		fmt.Printf("\t%s\t%s\t%s\n", k.Name, role(k), arity(k))
	}
	return nil
}

func role(k dsp.Kind) string {
	if k.Source {
		return "source"
	}
	return "processor"
}

func arity(k dsp.Kind) string {
	switch {
	case k.MaxArgs == dsp.Variadic:
		return fmt.Sprintf("%d+ args", k.MinArgs)
	case k.MinArgs == k.MaxArgs:
		return fmt.Sprintf("%d args", k.MinArgs)
	}
	return fmt.Sprintf("%d-%d args", k.MinArgs, k.MaxArgs)
}
