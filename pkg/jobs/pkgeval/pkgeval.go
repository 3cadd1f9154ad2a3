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

// Package pkgeval implements the package evaluation job: run the registered
// package test suites under a primary and optionally a comparison
// configuration, inside the external sandbox evaluator.
package pkgeval

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/juliaci/nanosoldier/pkg/api"
	"github.com/juliaci/nanosoldier/pkg/jobs"
	"github.com/juliaci/nanosoldier/pkg/submission"
)

func init() {
	jobs.Register("runtests", construct)
}

var allowedKwargs = map[string]bool{
	"vs":               true,
	"isdaily":          true,
	"configuration":    true,
	"vs_configuration": true,
	"use_blacklist":    true,
}

// Mode selects what is being compared.
type Mode string

// Modes.
const (
	// TestJulia compares two revisions of the interpreter by running the
	// same package set against each.
	TestJulia Mode = "TestJulia"
	// TestPackage compares two revisions of a single package by
	// synthesizing a registry that redirects the package to the new
	// revision, then running reverse-dependency tests.
	TestPackage Mode = "TestPackage"
)

// Configuration is handed to the sandbox runner. Recognized keys are limited
// to the fields below; unknown keys pass through unchanged in Extra.
type Configuration struct {
	BuildFlags  []string          `json:"buildflags,omitempty"`
	JuliaBinary string            `json:"julia_binary,omitempty"`
	RR          bool              `json:"rr,omitempty"`
	Compiled    bool              `json:"compiled,omitempty"`
	Registry    string            `json:"registry,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Equal reports whether two configurations are interchangeable.
func (c Configuration) Equal(o Configuration) bool {
	return reflect.DeepEqual(c, o)
}

// Job evaluates package tests for one or two builds.
type Job struct {
	sub *api.Submission

	// Packages is the explicit selection; empty means every package in the
	// registry.
	Packages []string
	// Against is the comparison build, nil for single runs. Daily jobs fill
	// it at run time from the previous daily record.
	Against *api.BuildRef
	// Date is the nominal job date.
	Date time.Time
	// Daily marks scheduled baseline work.
	Daily bool
	// Config and AgainstConfig parameterize the two sides.
	Config        Configuration
	AgainstConfig Configuration
	// UseBlocklist excludes known-unreliable packages.
	UseBlocklist bool
	// Mode discriminates interpreter comparisons from package comparisons.
	Mode Mode

	// vsRef remembers the raw vs reference so the blocklist policy can tell
	// branches and tags apart.
	vsRef string
}

func construct(env *jobs.Env, sub *api.Submission) (jobs.Job, error) {
	j := &Job{sub: sub, Date: time.Now().UTC(), UseBlocklist: true, Mode: TestJulia}
	if sub.Repo != env.Config.TrackRepo {
		j.Mode = TestPackage
	}

	for k := range sub.Kwargs {
		if !allowedKwargs[k] {
			return nil, api.Submissionf("unknown keyword argument %q for runtests", k)
		}
	}

	switch len(sub.Args) {
	case 0:
	case 1:
		pkgs, err := submission.ValidPackageList(sub.Args[0])
		if err != nil {
			return nil, err
		}
		j.Packages = pkgs
	default:
		return nil, api.Submissionf("runtests accepts at most one package selection argument")
	}

	if v, ok := sub.Kwargs["isdaily"]; ok {
		if v != "true" {
			return nil, api.Validationf("isdaily must be the literal true")
		}
		if err := jobs.ValidateDaily(env, sub); err != nil {
			return nil, err
		}
		j.Daily = true
		// Daily runs exercise the debugger so crashes are replayable.
		j.Config.RR = true
	}

	if v, ok := sub.Kwargs["configuration"]; ok {
		cfg, err := parseConfiguration(v)
		if err != nil {
			return nil, err
		}
		cfg.RR = cfg.RR || j.Config.RR
		j.Config = cfg
	}
	if v, ok := sub.Kwargs["vs_configuration"]; ok {
		cfg, err := parseConfiguration(v)
		if err != nil {
			return nil, err
		}
		j.AgainstConfig = cfg
	} else {
		// Without an explicit comparison configuration both sides are
		// built the same way. This also lets a vs="%self" comparison
		// collapse into a single run at run time.
		j.AgainstConfig = j.Config
	}

	if v, ok := sub.Kwargs["use_blacklist"]; ok {
		switch v {
		case "true":
			j.UseBlocklist = true
		case "false":
			j.UseBlocklist = false
		default:
			return nil, api.Validationf("use_blacklist must be a boolean literal")
		}
	}

	if v, ok := sub.Kwargs["vs"]; ok {
		if j.Daily {
			return nil, api.Validationf("daily jobs do not accept keyword arguments other than isdaily")
		}
		against, err := jobs.ResolveReference(env, sub, v, sub.Repo)
		if err != nil {
			return nil, err
		}
		j.Against = against
		j.vsRef = submission.Unquote(strings.TrimSpace(v))
	} else if _, cfgd := sub.Kwargs["vs_configuration"]; cfgd {
		// A vs_configuration without vs compares the submission build
		// against itself under differing configurations.
		j.Against = sub.Build.Copy()
	}

	return j, nil
}

// parseConfiguration interprets a configuration tuple's source text.
func parseConfiguration(src string) (Configuration, error) {
	var cfg Configuration
	t, err := submission.ValidConfiguration(src)
	if err != nil {
		return cfg, err
	}
	for _, e := range t.Elems {
		switch e.Name {
		case "buildflags":
			flags, err := stringVector(e.Value)
			if err != nil {
				return cfg, api.Validationf("buildflags must be a vector of strings, got %s", e.Value.Source())
			}
			cfg.BuildFlags = flags
		case "julia_binary":
			s, ok := stringLit(e.Value)
			if !ok {
				return cfg, api.Validationf("julia_binary must be a string, got %s", e.Value.Source())
			}
			cfg.JuliaBinary = s
		case "registry":
			s, ok := stringLit(e.Value)
			if !ok {
				return cfg, api.Validationf("registry must be a string, got %s", e.Value.Source())
			}
			cfg.Registry = s
		case "rr", "compiled":
			b, ok := boolLit(e.Value)
			if !ok {
				return cfg, api.Validationf("%s must be a boolean, got %s", e.Name, e.Value.Source())
			}
			if e.Name == "rr" {
				cfg.RR = b
			} else {
				cfg.Compiled = b
			}
		default:
			// New keys are passed through unchanged.
			if cfg.Extra == nil {
				cfg.Extra = map[string]string{}
			}
			key := e.Name
			if key == "" {
				key = fmt.Sprintf("arg%d", len(cfg.Extra))
			}
			cfg.Extra[key] = e.Value.Source()
		}
	}
	return cfg, nil
}

func stringLit(n submission.Node) (string, bool) {
	l, ok := n.(*submission.Lit)
	if !ok || l.Kind != submission.StringLit {
		return "", false
	}
	return submission.Unquote(l.Text), true
}

func boolLit(n submission.Node) (bool, bool) {
	l, ok := n.(*submission.Lit)
	if !ok || l.Kind != submission.BoolLit {
		return false, false
	}
	return l.Text == "true", true
}

func stringVector(n submission.Node) ([]string, error) {
	v, ok := n.(*submission.Vector)
	if !ok {
		return nil, fmt.Errorf("not a vector")
	}
	var out []string
	for _, e := range v.Elems {
		s, ok := stringLit(e)
		if !ok {
			return nil, fmt.Errorf("not a string element")
		}
		out = append(out, s)
	}
	return out, nil
}

// Submission implements jobs.Job.
func (j *Job) Submission() *api.Submission { return j.sub }

// Kind implements jobs.Job.
func (j *Job) Kind() string { return jobs.KindPkgEval }

// IsDaily implements jobs.Job.
func (j *Job) IsDaily() bool { return j.Daily }

// Summary implements jobs.Job.
func (j *Job) Summary() string {
	if j.Against != nil {
		return fmt.Sprintf("PackageEvalJob: %s vs %s", j.sub.Build, j.Against)
	}
	return fmt.Sprintf("PackageEvalJob: %s", j.sub.Build)
}
