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
	"strconv"

	"github.com/juliaci/nanosoldier/pkg/api"
)

// ValidTagPredicate reports whether src parses to an acceptable benchmark tag
// selector: a boolean expression built from !, && and || whose leaves are
// ALL, bare identifiers or string literals. This is a shape check, not a
// semantic check; it exists solely to deny server-side evaluation of
// arbitrary code, so any call other than negation is rejected.
func ValidTagPredicate(src string) error {
	n, err := ParseExpression(src)
	if err != nil {
		return api.Submissionf("invalid tag predicate %q: %v", src, err)
	}
	if !validTagpred(n) {
		return api.Submissionf("invalid tag predicate %q", src)
	}
	return nil
}

func validTagpred(n Node) bool {
	switch x := n.(type) {
	case *Ident:
		// ALL or a bare tag name.
		return true
	case *Lit:
		return x.Kind == StringLit
	case *Unary:
		return x.Op == "!" && validTagpred(x.X)
	case *Binary:
		return validTagpred(x.X) && validTagpred(x.Y)
	default:
		// Calls, vectors and tuples have no place in a tag predicate.
		return false
	}
}

// ValidPackageList reports whether src is an acceptable runtests selector:
// ALL, a string literal, or a vector literal of string literals. It returns
// the selected package names; ALL yields an empty slice.
func ValidPackageList(src string) ([]string, error) {
	n, err := ParseExpression(src)
	if err != nil {
		return nil, api.Submissionf("invalid package selection %q: %v", src, err)
	}
	switch x := n.(type) {
	case *Ident:
		if x.Name == "ALL" {
			return nil, nil
		}
	case *Lit:
		if x.Kind == StringLit {
			return []string{Unquote(x.Text)}, nil
		}
	case *Vector:
		var pkgs []string
		for _, e := range x.Elems {
			l, ok := e.(*Lit)
			if !ok || l.Kind != StringLit {
				return nil, api.Submissionf("invalid package selection %q: vector elements must be string literals", src)
			}
			pkgs = append(pkgs, Unquote(l.Text))
		}
		return pkgs, nil
	}
	return nil, api.Submissionf("invalid package selection %q", src)
}

// ValidConfiguration reports whether src is an acceptable configuration
// value: a tuple literal whose elements are positional literals or
// `ident = literal`, where literals are strings, integers, booleans, or
// vectors thereof. No nested function calls.
func ValidConfiguration(src string) (*Tuple, error) {
	n, err := ParseExpression(src)
	if err != nil {
		return nil, api.Submissionf("invalid configuration %q: %v", src, err)
	}
	t, ok := n.(*Tuple)
	if !ok {
		return nil, api.Submissionf("invalid configuration %q: expected a tuple literal", src)
	}
	for _, e := range t.Elems {
		if !validConfigValue(e.Value) {
			return nil, api.Submissionf("invalid configuration %q: element %q is not a literal", src, e.Source())
		}
	}
	return t, nil
}

func validConfigValue(n Node) bool {
	switch x := n.(type) {
	case *Lit:
		return true
	case *Vector:
		for _, e := range x.Elems {
			if _, ok := e.(*Lit); !ok {
				return false
			}
		}
		return true
	}
	return false
}

// Unquote strips the quotes from a string-literal source form.
func Unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}
