package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

const (
	successExitCode = 0
	errorExitCode   = 1
)

// command is a single livesynth subcommand.
type command interface {
	Name() string
	Help() string
	Run() error
	Register(*flag.FlagSet)
}

var commands = []command{
	&playCommand{},
	&checkCommand{},
	&bounceCommand{},
	&nodesCommand{},
}

// cli dispatches arguments to commands.
type cli struct {
	args   []string
	stderr io.Writer
}

func (c *cli) run() int {
	if c.stderr == nil {
		c.stderr = os.Stderr
	}
	if len(c.args) < 2 {
		c.usage()
		return errorExitCode
	}
	name, args := c.args[1], c.args[2:]
	cmd := lookup(name)
	if cmd == nil {
		fmt.Fprintf(c.stderr, "unknown command %q\n\n", name)
		c.usage()
		return errorExitCode
	}

	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(c.stderr)
	cmd.Register(flags)
	switch err := flags.Parse(args); {
	case errors.Is(err, flag.ErrHelp):
		return successExitCode
	case err != nil:
		return errorExitCode
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(c.stderr, "%s failed: %v\n", name, err)
		return errorExitCode
	}
	return successExitCode
}

func lookup(name string) command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func (c *cli) usage() {
	fmt.Fprintln(c.stderr, "Livesynth plays a patch and reloads it on every edit.")
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "Usage: livesynth <command> [flags]")
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "Commands:")
	w := tabwriter.NewWriter(c.stderr, 0, 8, 2, ' ', 0)
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %s\t%s\n", cmd.Name(), cmd.Help())
	}
	w.Flush()
}

func main() {
	c := cli{args: os.Args}
	os.Exit(c.run())
}
