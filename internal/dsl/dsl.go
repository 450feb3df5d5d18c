// Package dsl parses patch text into chains of nodes.
//
// A patch is a list of chains, one per line:
//
//	~lfo: sin 0.5 >> mul 200 >> add 400
//	left: saw ~lfo >> lpf 800 1.0
//	>> mul 0.3
//	right: ~left
//
// A line starting with ">>" continues the previous chain. Everything after
// "//" is a comment.
package dsl

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// RefNode is the node name used for chains that start with a reference.
const RefNode = "ref"

type (
	// Pos is a position in patch text. Both line and column start from 1.
	Pos struct {
		Line   int
		Column int
	}

	// Error is a syntax error at certain position.
	Error struct {
		Pos
		Msg string
	}

	// Patch is a parsed patch text.
	Patch struct {
		Chains []*Chain
	}

	// Chain is a named sequence of nodes.
	Chain struct {
		Pos
		Name  string
		Nodes []*Node
	}

	// Node is a single node of the chain with its arguments.
	Node struct {
		Pos
		Name string
		Args []Arg
	}

	// Arg is either a number or a reference to another chain.
	Arg struct {
		Pos
		Ref   string
		Value float64
	}
)

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

// IsRef returns true if argument references another chain.
func (a Arg) IsRef() bool {
	return a.Ref != ""
}

// IsRef returns true if chain name is a reference name.
func (c *Chain) IsRef() bool {
	return IsRefName(c.Name)
}

// String returns normalized chain text. Two chains with equal strings
// are built from the same nodes with the same arguments.
func (c *Chain) String() string {
	nodes := make([]string, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		nodes = append(nodes, n.String())
	}
	return c.Name + ": " + strings.Join(nodes, " >> ")
}

func (n *Node) String() string {
	var b strings.Builder
	b.WriteString(n.Name)
	for _, a := range n.Args {
		b.WriteByte(' ')
		if a.IsRef() {
			b.WriteString(a.Ref)
		} else {
			b.WriteString(strconv.FormatFloat(a.Value, 'g', -1, 64))
		}
	}
	return b.String()
}

// IsRefName returns true if s is a valid reference name.
func IsRefName(s string) bool {
	return strings.HasPrefix(s, "~") && isIdent(s[1:])
}

// Parse parses patch text. All syntax errors are returned, the patch
// contains all chains that could be parsed.
func Parse(text string) (*Patch, []*Error) {
	var (
		p       = &Patch{}
		errs    []*Error
		current *Chain
	)
	for i, line := range strings.Split(text, "\n") {
		lineNum := i + 1
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		start := len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
		body := line[start:]

		// continuation of the previous chain
		if strings.HasPrefix(body, ">>") {
			if current == nil {
				errs = append(errs, &Error{Pos: Pos{lineNum, start + 1}, Msg: "continuation without chain"})
				continue
			}
			nodes, nodeErrs := parseNodes(body[2:], lineNum, start+3)
			current.Nodes = append(current.Nodes, nodes...)
			errs = append(errs, nodeErrs...)
			continue
		}

		colon := strings.Index(body, ":")
		if colon < 0 {
			errs = append(errs, &Error{Pos: Pos{lineNum, start + 1}, Msg: "expected 'name:' at the start of chain"})
			current = nil
			continue
		}
		name := strings.TrimSpace(body[:colon])
		if !isIdent(name) && !IsRefName(name) {
			errs = append(errs, &Error{Pos: Pos{lineNum, start + 1}, Msg: fmt.Sprintf("invalid chain name %q", name)})
			current = nil
			continue
		}
		current = &Chain{
			Pos:  Pos{lineNum, start + 1},
			Name: name,
		}
		p.Chains = append(p.Chains, current)
		if strings.TrimSpace(body[colon+1:]) == "" {
			// nodes follow on continuation lines
			continue
		}
		nodes, nodeErrs := parseNodes(body[colon+1:], lineNum, start+colon+2)
		current.Nodes = nodes
		errs = append(errs, nodeErrs...)
	}
	for _, c := range p.Chains {
		if len(c.Nodes) == 0 {
			errs = append(errs, &Error{Pos: c.Pos, Msg: fmt.Sprintf("chain %s has no nodes", c.Name)})
		}
	}
	return p, errs
}

// parseNodes parses nodes separated by ">>". Column is the position of
// the first byte of s in the line.
func parseNodes(s string, line, column int) ([]*Node, []*Error) {
	var (
		nodes []*Node
		errs  []*Error
	)
	offset := 0
	for _, segment := range strings.Split(s, ">>") {
		segColumn := column + offset
		offset += len(segment) + 2
		fields := splitFields(segment, segColumn)
		if len(fields) == 0 {
			errs = append(errs, &Error{Pos: Pos{line, segColumn}, Msg: "empty node"})
			continue
		}
		head := fields[0]
		n := &Node{
			Pos:  Pos{line, head.column},
			Name: head.text,
		}
		if IsRefName(head.text) {
			n.Name = RefNode
			n.Args = []Arg{{Pos: n.Pos, Ref: head.text}}
			if len(fields) > 1 {
				errs = append(errs, &Error{Pos: Pos{line, fields[1].column}, Msg: fmt.Sprintf("unexpected argument %q after reference", fields[1].text)})
			}
			nodes = append(nodes, n)
			continue
		}
		if !isIdent(head.text) {
			errs = append(errs, &Error{Pos: n.Pos, Msg: fmt.Sprintf("invalid node name %q", head.text)})
			continue
		}
		valid := true
		for _, f := range fields[1:] {
			arg, err := parseArg(f.text)
			if err != nil {
				errs = append(errs, &Error{Pos: Pos{line, f.column}, Msg: err.Error()})
				valid = false
				continue
			}
			arg.Pos = Pos{line, f.column}
			n.Args = append(n.Args, arg)
		}
		if valid {
			nodes = append(nodes, n)
		}
	}
	return nodes, errs
}

func parseArg(s string) (Arg, error) {
	if strings.HasPrefix(s, "~") {
		if !IsRefName(s) {
			return Arg{}, fmt.Errorf("invalid reference %q", s)
		}
		return Arg{Ref: s}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Arg{}, fmt.Errorf("invalid argument %q", s)
	}
	return Arg{Value: v}, nil
}

type field struct {
	text   string
	column int
}

// splitFields splits s by white space and keeps the column of every field.
func splitFields(s string, column int) []field {
	var (
		fields []field
		start  = -1
	)
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				fields = append(fields, field{text: s[start:i], column: column + start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, field{text: s[start:], column: column + start})
	}
	return fields
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
