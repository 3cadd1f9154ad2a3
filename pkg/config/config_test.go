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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `
user: nanosoldier
admin: maleadt
track_repo: JuliaLang/julia
report_repo: JuliaCI/NanosoldierReports
report_dir: /data/reports
work_dir: /data/work
nodes:
- name: bench1
  job_kinds: ["benchmark"]
  accept_daily: true
  cpus: 8
- name: eval1
  job_kinds: ["pkgeval"]
  cpus: 32
`

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.User != "nanosoldier" || c.TrackRepo != "JuliaLang/julia" {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.TimeTolerance != 0.05 {
		t.Errorf("TimeTolerance = %v, want the 0.05 default", c.TimeTolerance)
	}
	if c.TriggerRegexp() == nil {
		t.Fatal("trigger was not compiled")
	}
	if !c.TriggerRegexp().MatchString("@nanosoldier `runbenchmarks(ALL)`") {
		t.Error("default trigger does not match a plain submission")
	}
	if !c.DailyNode("benchmark") {
		t.Error("DailyNode(benchmark) = false")
	}
	if c.DailyNode("pkgeval") {
		t.Error("DailyNode(pkgeval) = true, no pkgeval node accepts dailies")
	}
}

func TestLoadCustomTrigger(t *testing.T) {
	c, err := Load(writeConfig(t, validConfig+"trigger: '@otherbot\\s*(`[a-z_]+\\(.*?\\)`)'\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.TriggerRegexp().MatchString("@nanosoldier `runbenchmarks(ALL)`") {
		t.Error("custom trigger still matches the default mention")
	}
	if !c.TriggerRegexp().MatchString("@otherbot `runbenchmarks(ALL)`") {
		t.Error("custom trigger does not match its own mention")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	var testcases = []struct {
		name string
		raw  string
	}{
		{
			name: "missing user",
			raw: `
track_repo: JuliaLang/julia
report_repo: JuliaCI/NanosoldierReports
nodes:
- name: n1
  job_kinds: ["benchmark"]
`,
		},
		{
			name: "missing repos",
			raw: `
user: nanosoldier
nodes:
- name: n1
  job_kinds: ["benchmark"]
`,
		},
		{
			name: "no nodes",
			raw: `
user: nanosoldier
track_repo: JuliaLang/julia
report_repo: JuliaCI/NanosoldierReports
`,
		},
		{
			name: "node without kinds",
			raw: `
user: nanosoldier
track_repo: JuliaLang/julia
report_repo: JuliaCI/NanosoldierReports
nodes:
- name: n1
`,
		},
		{
			name: "bad trigger regexp",
			raw:  validConfig + "trigger: '@nanosoldier(('\n",
		},
		{
			name: "not yaml",
			raw:  "{{{",
		},
	}
	for _, tc := range testcases {
		if _, err := Load(writeConfig(t, tc.raw)); err == nil {
			t.Errorf("%s: expected an error", tc.name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
