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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractPhrase(t *testing.T) {
	trigger, err := Trigger("")
	if err != nil {
		t.Fatalf("compiling default trigger: %v", err)
	}
	var testcases = []struct {
		name   string
		body   string
		phrase string
		found  bool
	}{
		{
			name:   "plain mention with call",
			body:   "@nanosoldier `runbenchmarks(ALL)`",
			phrase: "`runbenchmarks(ALL)`",
			found:  true,
		},
		{
			name:   "mention embedded in prose",
			body:   "LGTM. @nanosoldier `runtests(\"JSON\")` please",
			phrase: "`runtests(\"JSON\")`",
			found:  true,
		},
		{
			name:   "multiline body",
			body:   "some context\n@nanosoldier `runbenchmarks(\"linalg\", vs = \":master\")`\nthanks",
			phrase: "`runbenchmarks(\"linalg\", vs = \":master\")`",
			found:  true,
		},
		{
			name:  "mention without call",
			body:  "cc @nanosoldier what do you think?",
			found: false,
		},
		{
			name:  "no mention",
			body:  "`runbenchmarks(ALL)`",
			found: false,
		},
	}
	for _, tc := range testcases {
		phrase, found := ExtractPhrase(trigger, tc.body)
		if found != tc.found {
			t.Errorf("%s: found = %v, want %v", tc.name, found, tc.found)
			continue
		}
		if found && phrase != tc.phrase {
			t.Errorf("%s: phrase = %q, want %q", tc.name, phrase, tc.phrase)
		}
	}
}

func TestParse(t *testing.T) {
	var testcases = []struct {
		name string
		in   string
		want *Parsed
		err  bool
	}{
		{
			name: "no arguments",
			in:   "`runbenchmarks()`",
			want: &Parsed{Func: "runbenchmarks", Kwargs: map[string]string{}},
		},
		{
			name: "identifier argument",
			in:   "`runbenchmarks(ALL)`",
			want: &Parsed{Func: "runbenchmarks", Args: []string{"ALL"}, Kwargs: map[string]string{}},
		},
		{
			name: "string argument and kwarg",
			in:   "`runbenchmarks(\"linalg\", vs = \"%self\")`",
			want: &Parsed{
				Func:   "runbenchmarks",
				Args:   []string{`"linalg"`},
				Kwargs: map[string]string{"vs": `"%self"`},
			},
		},
		{
			name: "semicolon separates kwargs",
			in:   "`runbenchmarks(ALL; vs = \":master\", skipbuild = true)`",
			want: &Parsed{
				Func:   "runbenchmarks",
				Args:   []string{"ALL"},
				Kwargs: map[string]string{"vs": `":master"`, "skipbuild": "true"},
			},
		},
		{
			name: "vector argument keeps source form",
			in:   "`runtests([\"JSON\", \"HTTP\"])`",
			want: &Parsed{
				Func:   "runtests",
				Args:   []string{`["JSON", "HTTP"]`},
				Kwargs: map[string]string{},
			},
		},
		{
			name: "tuple kwarg keeps source form",
			in:   "`runtests(ALL, configuration = (buildflags = [\"LLVM_ASSERTIONS=1\"], rr = true))`",
			want: &Parsed{
				Func:   "runtests",
				Args:   []string{"ALL"},
				Kwargs: map[string]string{"configuration": `(buildflags = ["LLVM_ASSERTIONS=1"], rr = true)`},
			},
		},
		{
			name: "boolean expression argument",
			in:   "`runbenchmarks(\"tag1\" && !\"tag2\")`",
			want: &Parsed{
				Func:   "runbenchmarks",
				Args:   []string{`"tag1" && !"tag2"`},
				Kwargs: map[string]string{},
			},
		},
		{
			name: "nested call survives parsing",
			in:   "`runbenchmarks(system(\"rm -rf /\"))`",
			want: &Parsed{
				Func:   "runbenchmarks",
				Args:   []string{`system("rm -rf /")`},
				Kwargs: map[string]string{},
			},
		},
		{
			name: "positional after keyword",
			in:   "`runbenchmarks(vs = \":master\", ALL)`",
			err:  true,
		},
		{
			name: "duplicate keyword",
			in:   "`runbenchmarks(ALL, vs = \":master\", vs = \":master\")`",
			err:  true,
		},
		{
			name: "not a call",
			in:   "`ALL`",
			err:  true,
		},
		{
			name: "unterminated call",
			in:   "`runbenchmarks(ALL`",
			err:  true,
		},
		{
			name: "no backticks",
			in:   "runbenchmarks(ALL)",
			err:  true,
		},
		{
			name: "empty delimiters",
			in:   "``",
			err:  true,
		},
	}
	for _, tc := range testcases {
		got, err := Parse(tc.in)
		if tc.err {
			if err == nil {
				t.Errorf("%s: expected an error, got %+v", tc.name, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%s: parsed submission differs (-want +got):\n%s", tc.name, diff)
		}
	}
}

// Parsing the re-rendered source of every argument must reproduce the same
// tree, since stored argument text is re-parsed downstream.
func TestParseSourceRoundTrip(t *testing.T) {
	var inputs = []string{
		"`runbenchmarks(ALL)`",
		"`runbenchmarks(\"a\" || \"b\" && !\"c\")`",
		"`runtests([\"A\", \"B\"], configuration = (rr = true, buildflags = [\"X=1\", \"Y=2\"]))`",
		"`runbenchmarks(ALL, vs = \"JuliaLang/julia:master\")`",
		"`runtests(ALL, configuration = (depth = -1,))`",
	}
	for _, in := range inputs {
		first, err := Parse(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		for _, src := range first.Args {
			n, err := ParseExpression(src)
			if err != nil {
				t.Errorf("re-parse arg %q of %q: %v", src, in, err)
				continue
			}
			if n.Source() != src {
				t.Errorf("arg of %q rendered %q, want %q", in, n.Source(), src)
			}
		}
		for k, src := range first.Kwargs {
			n, err := ParseExpression(src)
			if err != nil {
				t.Errorf("re-parse kwarg %s=%q of %q: %v", k, src, in, err)
				continue
			}
			if n.Source() != src {
				t.Errorf("kwarg %s of %q rendered %q, want %q", k, in, n.Source(), src)
			}
		}
	}
}

func TestParseExpressionRejectsGarbage(t *testing.T) {
	for _, src := range []string{
		"",
		"(",
		"[1,",
		"a b",
		"&& \"x\"",
		"\"unterminated",
	} {
		if _, err := ParseExpression(src); err == nil {
			t.Errorf("expected an error for %q", src)
		}
	}
}
