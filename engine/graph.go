package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dudk/livesynth/internal/dsl"
	"github.com/dudk/livesynth/internal/dsp"
	"github.com/dudk/livesynth/signal"
)

type (
	// graph is a compiled patch.
	graph struct {
		chains  []*chain // render order
		outputs []*chain // declaration order
	}

	chain struct {
		name  string
		text  string
		nodes []dsp.Node
		args  [][]dsp.Param
		buf   []float64
	}

	// plan is a validated patch with chains in render order.
	plan struct {
		chains  []*dsl.Chain
		outputs []*dsl.Chain
	}
)

const (
	unvisited = iota
	visiting
	visited
)

// parse parses and validates patch text.
func parse(text string) (*plan, Diagnostics) {
	p, errs := dsl.Parse(text)
	if len(errs) > 0 {
		diags := make(Diagnostics, 0, len(errs))
		for _, err := range errs {
			diags = append(diags, Diagnostic{Line: err.Line, Column: err.Column, Message: err.Msg})
		}
		sortDiagnostics(diags)
		return nil, diags
	}
	return validate(p)
}

// validate checks nodes, arguments and references of the parsed patch.
func validate(p *dsl.Patch) (*plan, Diagnostics) {
	var (
		diags  Diagnostics
		byName = make(map[string]*dsl.Chain)
		unique = make([]*dsl.Chain, 0, len(p.Chains))
		deps   = make(map[string][]string)
	)
	diag := func(pos dsl.Pos, format string, args ...interface{}) {
		diags = append(diags, Diagnostic{Line: pos.Line, Column: pos.Column, Message: fmt.Sprintf(format, args...)})
	}

	for _, c := range p.Chains {
		if first, ok := byName[c.Name]; ok {
			diag(c.Pos, "chain %s is already defined at line %d", c.Name, first.Line)
			continue
		}
		byName[c.Name] = c
		unique = append(unique, c)
	}

	for _, c := range unique {
		for i, n := range c.Nodes {
			kind, ok := dsp.Lookup(n.Name)
			if !ok {
				diag(n.Pos, "unknown node %q", n.Name)
				continue
			}
			if err := kind.CheckArgs(len(n.Args)); err != nil {
				diag(n.Pos, "%v", err)
			}
			switch {
			case i == 0 && !kind.Source:
				diag(n.Pos, "%s needs an input", n.Name)
			case i > 0 && kind.Source:
				diag(n.Pos, "%s cannot take an input", n.Name)
			}
			for _, a := range n.Args {
				if !a.IsRef() {
					continue
				}
				if _, ok := byName[a.Ref]; !ok {
					diag(a.Pos, "undefined reference %s", a.Ref)
					continue
				}
				deps[c.Name] = append(deps[c.Name], a.Ref)
			}
		}
	}

	// order chains so that references are rendered first
	var (
		order = make([]*dsl.Chain, 0, len(unique))
		state = make(map[string]int)
		visit func(c *dsl.Chain, path []string)
	)
	visit = func(c *dsl.Chain, path []string) {
		switch state[c.Name] {
		case visiting:
			start := 0
			for i := range path {
				if path[i] == c.Name {
					start = i
				}
			}
			cycle := append(append([]string{}, path[start:]...), c.Name)
			diag(c.Pos, "reference cycle %s", strings.Join(cycle, " -> "))
			return
		case visited:
			return
		}
		state[c.Name] = visiting
		path = append(path, c.Name)
		for _, dep := range deps[c.Name] {
			visit(byName[dep], path)
		}
		state[c.Name] = visited
		order = append(order, c)
	}
	for _, c := range unique {
		visit(c, nil)
	}

	if len(diags) > 0 {
		sortDiagnostics(diags)
		return nil, diags
	}
	pl := plan{chains: order}
	for _, c := range unique {
		if !c.IsRef() {
			pl.outputs = append(pl.outputs, c)
		}
	}
	return &pl, nil
}

// build allocates a graph for validated plan. Chains with unchanged text
// take over the nodes of the previous graph, so their state is preserved.
func build(pl *plan, prev *graph, sampleRate, blockSize int) *graph {
	reuse := make(map[string]*chain)
	if prev != nil {
		for _, c := range prev.chains {
			reuse[c.text] = c
		}
	}

	g := graph{
		chains:  make([]*chain, 0, len(pl.chains)),
		outputs: make([]*chain, 0, len(pl.outputs)),
	}
	byName := make(map[string]*chain, len(pl.chains))
	for _, dc := range pl.chains {
		c := &chain{
			name: dc.Name,
			text: dc.String(),
			buf:  make([]float64, blockSize),
			args: make([][]dsp.Param, len(dc.Nodes)),
		}
		if old, ok := reuse[c.text]; ok {
			c.nodes = old.nodes
			delete(reuse, c.text)
		} else {
			c.nodes = make([]dsp.Node, len(dc.Nodes))
			for i, n := range dc.Nodes {
				kind, _ := dsp.Lookup(n.Name)
				consts := make([]float64, len(n.Args))
				for j, a := range n.Args {
					consts[j] = a.Value
				}
				c.nodes[i] = kind.New(sampleRate, consts)
			}
		}
		for i, n := range dc.Nodes {
			params := make([]dsp.Param, len(n.Args))
			for j, a := range n.Args {
				if a.IsRef() {
					params[j] = dsp.Signal(byName[a.Ref].buf)
				} else {
					params[j] = dsp.Const(a.Value)
				}
			}
			c.args[i] = params
		}
		byName[c.name] = c
		g.chains = append(g.chains, c)
	}
	for _, dc := range pl.outputs {
		g.outputs = append(g.outputs, byName[dc.Name])
	}
	return &g
}

// render processes all chains and returns a copy of output buffers.
func (g *graph) render() signal.Float64 {
	for _, c := range g.chains {
		c.nodes[0].Process(nil, c.buf, c.args[0])
		for i := 1; i < len(c.nodes); i++ {
			c.nodes[i].Process(c.buf, c.buf, c.args[i])
		}
	}
	block := make(signal.Float64, len(g.outputs))
	for i, c := range g.outputs {
		block[i] = append(make([]float64, 0, len(c.buf)), c.buf...)
	}
	return block
}

func sortDiagnostics(diags Diagnostics) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Line != diags[j].Line {
			return diags[i].Line < diags[j].Line
		}
		return diags[i].Column < diags[j].Column
	})
}
