/*
Copyright 2023 The Nanosoldier Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package submission extracts trigger phrases from comment bodies and parses
// the job mini-language, `name(arg, ...; kw = v, ...)`. The parser is
// syntax-only: argument values are kept as source text and are never
// evaluated. Downstream validators walk the tree and accept only enumerated
// shapes.
package submission

import (
	"fmt"
	"strings"
)

// Node is a parsed expression. Source returns the canonical source text of
// the node; it is the stored representation, so readers re-parse rather than
// trusting a pre-evaluated value.
type Node interface {
	Source() string
}

// LitKind discriminates literal nodes.
type LitKind int

// Literal kinds.
const (
	StringLit LitKind = iota
	IntLit
	BoolLit
)

// Ident is a bare identifier such as ALL.
type Ident struct {
	Name string
}

func (i *Ident) Source() string { return i.Name }

// Lit is a literal; Text is the source form (strings keep their quotes).
type Lit struct {
	Kind LitKind
	Text string
}

func (l *Lit) Source() string { return l.Text }

// Vector is a bracketed literal list, `[v, v, ...]`.
type Vector struct {
	Elems []Node
}

func (v *Vector) Source() string {
	parts := make([]string, len(v.Elems))
	for i, e := range v.Elems {
		parts[i] = e.Source()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Arg is a call or tuple element. Name is empty for positional elements.
type Arg struct {
	Name  string
	Value Node
}

func (a *Arg) Source() string {
	if a.Name == "" {
		return a.Value.Source()
	}
	return fmt.Sprintf("%s = %s", a.Name, a.Value.Source())
}

// Call is `fun(args...)`.
type Call struct {
	Fun  string
	Args []*Arg
}

func (c *Call) Source() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.Source()
	}
	return c.Fun + "(" + strings.Join(parts, ", ") + ")"
}

// Tuple is `(elem, ...)`, used by configuration values.
type Tuple struct {
	Elems []*Arg
}

func (t *Tuple) Source() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.Source()
	}
	if len(parts) == 1 && t.Elems[0].Name == "" {
		// Single positional element keeps the trailing comma so the source
		// still reads as a tuple.
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Unary is `!x`.
type Unary struct {
	Op string
	X  Node
}

func (u *Unary) Source() string { return u.Op + u.X.Source() }

// Binary is `x && y` or `x || y`.
type Binary struct {
	Op   string
	X, Y Node
}

func (b *Binary) Source() string {
	return fmt.Sprintf("%s %s %s", b.X.Source(), b.Op, b.Y.Source())
}
