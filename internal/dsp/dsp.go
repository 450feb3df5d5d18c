// Package dsp contains the nodes a patch is built from.
//
// Nodes keep their own state between blocks (phase, filter memory, delay
// lines). Arguments are not part of the node: they are passed on every
// call, so the same node instance can be moved into a new graph with
// different argument bindings.
package dsp

import (
	"fmt"
	"sort"
)

// Variadic is used as Kind.MaxArgs when node accepts any number of arguments.
const Variadic = -1

type (
	// Node renders one block. Sources receive nil input. Processors must
	// support in and out being the same slice.
	Node interface {
		Process(in, out []float64, args []Param)
	}

	// Param is a node argument. It's either a constant value or a buffer
	// with a value for every sample of the block.
	Param struct {
		Value float64
		Buf   []float64
	}

	// Kind describes a node type.
	Kind struct {
		Name    string
		MinArgs int
		MaxArgs int
		// Source nodes generate signal and must start the chain.
		// Other nodes process the output of the previous node.
		Source bool
		// New allocates node. Constant values of arguments are provided,
		// referenced arguments are zero.
		New func(sampleRate int, args []float64) Node
	}
)

// At returns value of the parameter at sample position i.
func (p Param) At(i int) float64 {
	if p.Buf != nil {
		return p.Buf[i]
	}
	return p.Value
}

// Const returns constant parameter.
func Const(v float64) Param {
	return Param{Value: v}
}

// Signal returns parameter backed by buffer.
func Signal(buf []float64) Param {
	return Param{Buf: buf}
}

// optional returns argument at position i or default value.
func optional(args []Param, i int, def float64) Param {
	if i < len(args) {
		return args[i]
	}
	return Const(def)
}

var kinds = map[string]Kind{}

func register(k Kind) {
	if _, ok := kinds[k.Name]; ok {
		panic(fmt.Sprintf("node %s registered twice", k.Name))
	}
	kinds[k.Name] = k
}

// Lookup returns node kind by name.
func Lookup(name string) (Kind, bool) {
	k, ok := kinds[name]
	return k, ok
}

// Names returns sorted names of all nodes.
func Names() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckArgs returns error if number of arguments doesn't fit the kind.
func (k Kind) CheckArgs(n int) error {
	switch {
	case n < k.MinArgs && k.MinArgs == k.MaxArgs:
		return fmt.Errorf("%s expects %d arguments, got %d", k.Name, k.MinArgs, n)
	case n < k.MinArgs:
		return fmt.Errorf("%s expects at least %d arguments, got %d", k.Name, k.MinArgs, n)
	case k.MaxArgs != Variadic && n > k.MaxArgs:
		if k.MinArgs == k.MaxArgs {
			return fmt.Errorf("%s expects %d arguments, got %d", k.Name, k.MaxArgs, n)
		}
		return fmt.Errorf("%s expects at most %d arguments, got %d", k.Name, k.MaxArgs, n)
	}
	return nil
}
