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

package benchmark

import (
	"math"
	"testing"
)

func TestJudge(t *testing.T) {
	primary := map[string]Metrics{
		"sort":      {Minimum: 110},
		"sum":       {Minimum: 90},
		"parse":     {Minimum: 100},
		"noisy":     {Minimum: 118, TimeTolerance: 0.25},
		"only_here": {Minimum: 50},
	}
	against := map[string]Metrics{
		"sort":       {Minimum: 100},
		"sum":        {Minimum: 100},
		"parse":      {Minimum: 100},
		"noisy":      {Minimum: 100},
		"only_there": {Minimum: 50},
		"zero":       {Minimum: 0},
	}

	judged := judge(primary, against, 0.05)

	var testcases = []struct {
		name  string
		ratio float64
		mark  Mark
	}{
		{"sort", 1.10, Regression},
		{"sum", 0.90, Improvement},
		{"parse", 1.00, Invariant},
		// Per-benchmark tolerance overrides the default.
		{"noisy", 1.18, Invariant},
	}
	for _, tc := range testcases {
		j, ok := judged[tc.name]
		if !ok {
			t.Errorf("%s: missing judgement", tc.name)
			continue
		}
		if math.Abs(j.Ratio-tc.ratio) > 1e-9 {
			t.Errorf("%s: ratio = %v, want %v", tc.name, j.Ratio, tc.ratio)
		}
		if j.Mark != tc.mark {
			t.Errorf("%s: mark = %q, want %q", tc.name, j.Mark, tc.mark)
		}
	}

	for _, absent := range []string{"only_here", "only_there", "zero"} {
		if _, ok := judged[absent]; ok {
			t.Errorf("%s: should not be judged", absent)
		}
	}

	if !anyRegression(judged) {
		t.Error("anyRegression = false with a regression present")
	}
	delete(judged, "sort")
	if anyRegression(judged) {
		t.Error("anyRegression = true without regressions")
	}
}

func TestJudgeBoundaries(t *testing.T) {
	against := map[string]Metrics{"b": {Minimum: 100}}
	var testcases = []struct {
		minimum float64
		mark    Mark
	}{
		{105, Regression},  // exactly at 1+tol
		{104.9, Invariant}, // just under
		{95, Improvement},  // exactly at 1-tol
		{95.1, Invariant},  // just over
	}
	for _, tc := range testcases {
		judged := judge(map[string]Metrics{"b": {Minimum: tc.minimum}}, against, 0.05)
		if got := judged["b"].Mark; got != tc.mark {
			t.Errorf("minimum %v: mark = %q, want %q", tc.minimum, got, tc.mark)
		}
	}
}
