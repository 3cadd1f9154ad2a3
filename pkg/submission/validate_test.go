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

func TestValidTagPredicate(t *testing.T) {
	var testcases = []struct {
		src   string
		valid bool
	}{
		{"ALL", true},
		{`"linalg"`, true},
		{`!"linalg"`, true},
		{`"a" && "b"`, true},
		{`"a" || "b"`, true},
		{`"a" && !"b" || "c"`, true},
		{`ALL && !"slow"`, true},
		{`"array" || ALL`, true},
		{`!ALL`, true},
		{`"a" && notall`, true},
		{`!(!"a")`, false},
		{`system("rm -rf /")`, false},
		{`!system("ls")`, false},
		{`"a" && system("ls")`, false},
		{`ALL && system("ls")`, false},
		{`["a", "b"]`, false},
		{`(1, 2)`, false},
		{`1`, false},
		{`true`, false},
		{`notall`, true},
		{`"a" &&`, false},
	}
	for _, tc := range testcases {
		err := ValidTagPredicate(tc.src)
		if tc.valid && err != nil {
			t.Errorf("%q: unexpected error: %v", tc.src, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("%q: expected an error", tc.src)
		}
	}
}

func TestValidPackageList(t *testing.T) {
	var testcases = []struct {
		src  string
		want []string
		err  bool
	}{
		{src: "ALL", want: nil},
		{src: `"JSON"`, want: []string{"JSON"}},
		{src: `["JSON", "HTTP"]`, want: []string{"JSON", "HTTP"}},
		{src: `[]`, want: nil},
		{src: `NOTALL`, err: true},
		{src: `["JSON", 1]`, err: true},
		{src: `[ALL]`, err: true},
		{src: `42`, err: true},
		{src: `f("JSON")`, err: true},
	}
	for _, tc := range testcases {
		got, err := ValidPackageList(tc.src)
		if tc.err {
			if err == nil {
				t.Errorf("%q: expected an error, got %v", tc.src, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tc.src, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%q: packages differ (-want +got):\n%s", tc.src, diff)
		}
	}
}

func TestValidConfiguration(t *testing.T) {
	var testcases = []struct {
		src   string
		valid bool
	}{
		{`(rr = true,)`, true},
		{`(buildflags = ["LLVM_ASSERTIONS=1", "LLVM_DEBUG=1"], rr = true)`, true},
		{`(julia_binary = "/opt/julia/bin/julia",)`, true},
		{`(depth = -1, compiled = false)`, true},
		{`("positional",)`, true},
		{`(rr = system("ls"),)`, false},
		{`(rr = (nested = true,),)`, false},
		{`rr = true`, false},
		{`["not", "a", "tuple"]`, false},
		{`ALL`, false},
	}
	for _, tc := range testcases {
		_, err := ValidConfiguration(tc.src)
		if tc.valid && err != nil {
			t.Errorf("%q: unexpected error: %v", tc.src, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("%q: expected an error", tc.src)
		}
	}
}

func TestUnquote(t *testing.T) {
	var testcases = []struct {
		in, want string
	}{
		{`"JSON"`, "JSON"},
		{`"a b"`, "a b"},
		{`"%self"`, "%self"},
		{`bare`, "bare"},
		{`""`, ""},
	}
	for _, tc := range testcases {
		if got := Unquote(tc.in); got != tc.want {
			t.Errorf("Unquote(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
