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

package submission

import (
	"fmt"
	"strings"
	"text/scanner"
)

type token struct {
	tok rune
	lit string
	pos scanner.Position
}

type parser struct {
	toks []token
	i    int
}

func newParser(src string) (*parser, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanStrings
	var scanErr error
	s.Error = func(_ *scanner.Scanner, msg string) {
		if scanErr == nil {
			scanErr = fmt.Errorf("scan error: %s", msg)
		}
	}
	p := &parser{}
	for {
		tok := s.Scan()
		if tok == scanner.EOF {
			break
		}
		p.toks = append(p.toks, token{tok: tok, lit: s.TokenText(), pos: s.Position})
	}
	return p, scanErr
}

func (p *parser) cur() rune {
	if p.i >= len(p.toks) {
		return scanner.EOF
	}
	return p.toks[p.i].tok
}

func (p *parser) lit() string {
	if p.i >= len(p.toks) {
		return ""
	}
	return p.toks[p.i].lit
}

func (p *parser) peek(k int) rune {
	if p.i+k >= len(p.toks) {
		return scanner.EOF
	}
	return p.toks[p.i+k].tok
}

func (p *parser) advance() {
	p.i++
}

func (p *parser) expect(tok rune) error {
	if p.cur() != tok {
		return fmt.Errorf("expected %q, found %q", string(tok), p.lit())
	}
	p.advance()
	return nil
}

// ParseExpression parses src as a single expression of the submission
// mini-language. It is syntax-only; nothing is ever evaluated.
func ParseExpression(src string) (Node, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur() != scanner.EOF {
		return nil, fmt.Errorf("unexpected trailing input %q", p.lit())
	}
	return n, nil
}

// parseCall parses src, requiring the result to be a call with an identifier
// head.
func parseCall(src string) (*Call, error) {
	n, err := ParseExpression(src)
	if err != nil {
		return nil, err
	}
	c, ok := n.(*Call)
	if !ok {
		return nil, fmt.Errorf("expected a function call, found %q", n.Source())
	}
	return c, nil
}

func (p *parser) parseExpr() (Node, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Node, error) {
	x, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur() == '|' && p.peek(1) == '|' {
		p.advance()
		p.advance()
		y, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		x = &Binary{Op: "||", X: x, Y: y}
	}
	return x, nil
}

func (p *parser) parseAnd() (Node, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur() == '&' && p.peek(1) == '&' {
		p.advance()
		p.advance()
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		x = &Binary{Op: "&&", X: x, Y: y}
	}
	return x, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.cur() == '!' {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "!", X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	switch p.cur() {
	case scanner.Ident:
		name := p.lit()
		p.advance()
		if name == "true" || name == "false" {
			return &Lit{Kind: BoolLit, Text: name}, nil
		}
		if p.cur() == '(' {
			p.advance()
			args, err := p.parseArgs(')')
			if err != nil {
				return nil, err
			}
			return &Call{Fun: name, Args: args}, nil
		}
		return &Ident{Name: name}, nil
	case scanner.String:
		lit := p.lit()
		p.advance()
		return &Lit{Kind: StringLit, Text: lit}, nil
	case scanner.Int:
		lit := p.lit()
		p.advance()
		return &Lit{Kind: IntLit, Text: lit}, nil
	case '-':
		if p.peek(1) != scanner.Int {
			return nil, fmt.Errorf("expected integer after %q", "-")
		}
		p.advance()
		lit := p.lit()
		p.advance()
		return &Lit{Kind: IntLit, Text: "-" + lit}, nil
	case '[':
		p.advance()
		var elems []Node
		for p.cur() != ']' {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.cur() == ',' {
				p.advance()
			} else if p.cur() != ']' {
				return nil, fmt.Errorf("expected %q or %q in vector, found %q", ",", "]", p.lit())
			}
		}
		p.advance()
		return &Vector{Elems: elems}, nil
	case '(':
		p.advance()
		elems, err := p.parseArgs(')')
		if err != nil {
			return nil, err
		}
		return &Tuple{Elems: elems}, nil
	case scanner.EOF:
		return nil, fmt.Errorf("unexpected end of input")
	default:
		return nil, fmt.Errorf("unexpected token %q", p.lit())
	}
}

// parseArgs parses a `,`/`;`-separated element list up to the closing rune.
// `;` is accepted as a separator equivalently to `,`. Elements of the form
// `ident = value` become named arguments.
func (p *parser) parseArgs(closing rune) ([]*Arg, error) {
	var args []*Arg
	for p.cur() != closing {
		arg := &Arg{}
		if p.cur() == scanner.Ident && p.peek(1) == '=' && p.peek(2) != '=' {
			arg.Name = p.lit()
			p.advance()
			p.advance()
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		arg.Value = v
		args = append(args, arg)
		if p.cur() == ',' || p.cur() == ';' {
			p.advance()
		} else if p.cur() != closing {
			return nil, fmt.Errorf("expected separator or %q, found %q", string(closing), p.lit())
		}
	}
	if err := p.expect(closing); err != nil {
		return nil, err
	}
	return args, nil
}
