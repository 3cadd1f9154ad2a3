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

// Mark classifies a benchmark ratio.
type Mark string

// Judgement marks.
const (
	Regression  Mark = "regression"
	Improvement Mark = "improvement"
	Invariant   Mark = "invariant"
)

// Judgement is the verdict for one benchmark of a comparison.
type Judgement struct {
	Ratio     float64 `json:"ratio"`
	Mark      Mark    `json:"mark"`
	Tolerance float64 `json:"tolerance"`
}

// judge computes per-benchmark judgements for every benchmark present on
// both sides, using the minimum estimator. Tolerances come from the
// benchmark's own parameters, falling back to the configured default.
func judge(primary, against map[string]Metrics, defaultTolerance float64) map[string]Judgement {
	judged := make(map[string]Judgement)
	for name, p := range primary {
		a, ok := against[name]
		if !ok || a.Minimum == 0 {
			continue
		}
		tol := p.TimeTolerance
		if tol == 0 {
			tol = defaultTolerance
		}
		ratio := p.Minimum / a.Minimum
		mark := Invariant
		switch {
		case ratio >= 1+tol:
			mark = Regression
		case ratio <= 1-tol:
			mark = Improvement
		}
		judged[name] = Judgement{Ratio: ratio, Mark: mark, Tolerance: tol}
	}
	return judged
}

func anyRegression(judged map[string]Judgement) bool {
	for _, j := range judged {
		if j.Mark == Regression {
			return true
		}
	}
	return false
}
