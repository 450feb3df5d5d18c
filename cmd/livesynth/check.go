package main

import (
	"errors"
	"flag"
	"fmt"
	"io/ioutil"

	"github.com/dudk/livesynth/engine"
)

type checkCommand struct {
	patch string
}

func (cmd *checkCommand) Name() string {
	return "check"
}

func (cmd *checkCommand) Help() string {
	return "Compile the patch and print its diagnostics"
}

func (cmd *checkCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.patch, "patch", "", "patch file to check (required)")
}

func (cmd *checkCommand) Run() error {
	if cmd.patch == "" {
		return errors.New("missing -patch required flag")
	}
	text, err := ioutil.ReadFile(cmd.patch)
	if err != nil {
		return err
	}
	err = engine.Check(string(text))
	if err == nil {
		fmt.Printf("%s: ok\n", cmd.patch)
		return nil
	}
	diags, ok := err.(engine.Diagnostics)
	if !ok {
		return err
	}
	for _, d := range diags {
		if d.Line == 0 {
			fmt.Printf("%s: %v\n", cmd.patch, d)
			continue
		}
		fmt.Printf("%s:%v\n", cmd.patch, d)
	}
	return fmt.Errorf("%s has %d errors", cmd.patch, len(diags))
}
