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

package pkgeval

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/juliaci/nanosoldier/pkg/api"
	"github.com/juliaci/nanosoldier/pkg/jobs"
	"github.com/juliaci/nanosoldier/pkg/report"
)

// The evaluator and the registry synthesizer are opaque external commands.
// The evaluator takes a side description file and produces a results file
// plus per-package logs; the synthesizer produces a registry directory that
// redirects one package to a given revision.
var (
	evalCommand     = "nanosoldier-run-pkgeval"
	registryCommand = "nanosoldier-make-registry"
)

// Package statuses as emitted by the evaluator.
const (
	StatusOK    = "ok"
	StatusSkip  = "skip"
	StatusFail  = "fail"
	StatusCrash = "crash"
	StatusKill  = "kill"
)

// PackageResult is the per-package outcome of one side.
type PackageResult struct {
	Status   string  `json:"status"`
	Reason   string  `json:"reason,omitempty"`
	Duration float64 `json:"duration"`
	Version  string  `json:"version,omitempty"`
	Log      string  `json:"log,omitempty"`
}

type side struct {
	Build   *api.BuildRef
	Config  Configuration
	Results map[string]PackageResult
}

// sideSpec is what the evaluator reads.
type sideSpec struct {
	Build    *api.BuildRef `json:"build"`
	Config   Configuration `json:"configuration"`
	Packages []string      `json:"packages,omitempty"`
	Exclude  []string      `json:"exclude,omitempty"`
}

// dailyRecord anchors the next daily run to this one.
type dailyRecord struct {
	Date  string        `json:"date"`
	Build *api.BuildRef `json:"build"`
}

type execFunc func(dir, name string, args ...string) ([]byte, error)

func defaultExec(dir, name string, args ...string) ([]byte, error) {
	c := exec.Command(name, args...)
	c.Dir = dir
	return c.CombinedOutput()
}

// Run implements jobs.Job.
func (j *Job) Run(env *jobs.RunEnv) (*jobs.Result, error) {
	return j.run(env, defaultExec)
}

func (j *Job) run(env *jobs.RunEnv, execute execFunc) (*jobs.Result, error) {
	// A comparison of the same build under the same configuration cannot
	// surface anything; demote to a single run.
	if j.Against != nil && j.Against.Same(j.sub.Build) && j.Config.Equal(j.AgainstConfig) {
		env.Log.WithField("build", j.sub.Build).Info("Comparison side is identical to the primary; demoting to a single run.")
		j.Against = nil
	}

	tmp, err := os.MkdirTemp(env.Config.WorkDir, "pkgeval-")
	if err != nil {
		return nil, api.Runf(err, "could not create job directory")
	}
	defer os.RemoveAll(tmp)
	logs := filepath.Join(tmp, "logs")
	if err := os.MkdirAll(logs, 0o755); err != nil {
		return nil, api.Runf(err, "could not create job directory")
	}

	var exclude []string
	if j.blocklistApplies() {
		exclude = j.loadBlocklist(env)
	}

	if j.Daily && j.Against == nil {
		if prev := j.previousDaily(env); prev != nil {
			j.Against = prev
		} else {
			env.Log.Info("No previous daily result; reporting without comparison.")
		}
	}

	primary, err := j.runSide(env, execute, tmp, j.sub.Build, j.Config, "primary", exclude)
	if err != nil {
		return nil, err
	}

	var against *side
	if j.Against != nil {
		if j.Daily {
			against, err = j.loadPreviousResults(env, tmp, j.Against)
			if err != nil {
				env.Log.WithError(err).Info("Previous daily results unreadable; reporting without comparison.")
				against = nil
			}
		} else {
			against, err = j.runSide(env, execute, tmp, j.Against, j.AgainstConfig, "against", exclude)
			if err != nil {
				return nil, err
			}
		}
	}

	newFailures := compare(primary, against)

	staged, err := j.assemble(env, tmp, primary, against, newFailures)
	if err != nil {
		return nil, err
	}
	j.uploadLogs(env, staged)
	url, err := j.publish(env, staged)
	if err != nil {
		return nil, err
	}
	return &jobs.Result{HasIssues: len(newFailures) > 0, URL: url}, nil
}

// runSide describes one side to the evaluator and decodes its results.
// Statuses are normalized so the report only distinguishes ok, skip, fail
// and crash; a killed suite counts as a failure with its reason kept.
func (j *Job) runSide(env *jobs.RunEnv, execute execFunc, tmp string, build *api.BuildRef, cfg Configuration, name string, exclude []string) (*side, error) {
	if j.Mode == TestPackage && cfg.Registry == "" {
		reg := filepath.Join(tmp, "registry_"+name)
		out, err := execute(tmp, registryCommand, build.Repo, build.SHA, reg)
		if err != nil {
			env.Log.WithError(err).WithField("output", string(out)).Error("Registry synthesis failed.")
			return nil, api.Runf(err, "could not prepare a registry for %s", build)
		}
		cfg.Registry = reg
	}

	spec := sideSpec{Build: build, Config: cfg, Packages: j.Packages, Exclude: exclude}
	specFile := filepath.Join(tmp, "spec_"+name+".json")
	if err := writeJSON(specFile, spec); err != nil {
		return nil, api.Runf(err, "could not prepare evaluation of %s", build)
	}

	resultsFile := filepath.Join(tmp, "results_"+name+".json")
	out, err := execute(tmp, evalCommand, specFile, resultsFile, filepath.Join(tmp, "logs"), name, fmt.Sprint(env.CPUs))
	if err != nil {
		env.Log.WithError(err).WithField("output", string(out)).Error("Evaluation failed.")
		return nil, api.Runf(err, "package evaluation failed for %s", build)
	}

	var results map[string]PackageResult
	if err := readJSON(resultsFile, &results); err != nil {
		return nil, api.Runf(err, "could not decode evaluation results for %s", build)
	}
	normalizeResults(results)
	return &side{Build: build, Config: cfg, Results: results}, nil
}

// normalizeResults folds killed suites into failures; the distinction only
// matters to the evaluator's resource accounting, not to the report.
func normalizeResults(results map[string]PackageResult) {
	for pkg, r := range results {
		if r.Status == StatusKill {
			r.Status = StatusFail
			if r.Reason == "" {
				r.Reason = "time or memory limit exceeded"
			}
			results[pkg] = r
		}
	}
}

// compare returns the packages that failed or crashed on the primary side
// while passing on the comparison side, sorted by assemble later. A nil
// against side compares against nothing and flags nothing.
func compare(primary, against *side) map[string]PackageResult {
	if against == nil {
		return nil
	}
	out := map[string]PackageResult{}
	for pkg, r := range primary.Results {
		if r.Status != StatusFail && r.Status != StatusCrash {
			continue
		}
		if prev, ok := against.Results[pkg]; ok && prev.Status == StatusOK {
			out[pkg] = r
		}
	}
	return out
}

// blocklistApplies implements the exclusion policy: the list never applies to
// daily runs (they produce it), to explicit opt-outs, or to comparisons
// against a tag or a non-default branch, where old failures are expected.
func (j *Job) blocklistApplies() bool {
	if j.Daily || !j.UseBlocklist {
		return false
	}
	if i := strings.IndexAny(j.vsRef, ":#@"); i >= 0 {
		switch j.vsRef[i] {
		case '#':
			return false
		case ':':
			branch := j.vsRef[i+1:]
			if branch != "master" && branch != "main" {
				return false
			}
		}
	}
	return true
}

const blocklistFile = "blocklist.json"

// loadBlocklist reads the package exclusion list maintained by daily runs.
// A missing or unreadable list excludes nothing.
func (j *Job) loadBlocklist(env *jobs.RunEnv) []string {
	var pkgs []string
	path := filepath.Join(env.Config.ReportDir, jobs.KindPkgEval, blocklistFile)
	if err := readJSON(path, &pkgs); err != nil {
		if !os.IsNotExist(err) {
			env.Log.WithError(err).Warn("Could not read the package blocklist.")
		}
		return nil
	}
	return pkgs
}

// previousDaily resolves the build recorded by the most recent daily run via
// the latest pointer. Returns nil when there is no usable record.
func (j *Job) previousDaily(env *jobs.RunEnv) *api.BuildRef {
	dateRel, err := report.ReadLatest(env.Config.ReportDir, jobs.KindPkgEval)
	if err != nil {
		return nil
	}
	var rec dailyRecord
	db := filepath.Join(env.Config.ReportDir, jobs.KindPkgEval, "by_date", dateRel, "db.json")
	if err := readJSON(db, &rec); err != nil {
		env.Log.WithError(err).Warn("Could not read the previous daily record.")
		return nil
	}
	return rec.Build
}

// loadPreviousResults extracts the prior daily archive and loads its primary
// side so the comparison does not re-execute yesterday's evaluation.
func (j *Job) loadPreviousResults(env *jobs.RunEnv, tmp string, build *api.BuildRef) (*side, error) {
	dateRel, err := report.ReadLatest(env.Config.ReportDir, jobs.KindPkgEval)
	if err != nil {
		return nil, err
	}
	archive := filepath.Join(env.Config.ReportDir, jobs.KindPkgEval, "by_date", dateRel, "data.tar.zst")
	dest := filepath.Join(tmp, "previous_daily")
	if err := report.ExtractArchive(archive, dest); err != nil {
		return nil, fmt.Errorf("could not extract %s: %w", archive, err)
	}
	var results map[string]PackageResult
	if err := readJSON(filepath.Join(dest, "results_primary.json"), &results); err != nil {
		return nil, err
	}
	return &side{Build: build, Results: results}, nil
}

// uploadLogs pushes per-package logs to the bucket so the report repository
// stays small. Best effort; local copies remain authoritative on failure.
func (j *Job) uploadLogs(env *jobs.RunEnv, rel string) {
	if env.Uploader == nil {
		return
	}
	logsDir := filepath.Join(env.Config.ReportDir, rel, "logs")
	err := filepath.Walk(logsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		sub, _ := filepath.Rel(logsDir, path)
		_, err = env.Uploader.Upload(rel+"/logs/"+filepath.ToSlash(sub), "text/plain; charset=utf-8", f)
		return err
	})
	if err != nil && !os.IsNotExist(err) {
		env.Log.WithError(err).Warn("Could not upload package logs.")
	}
}

func readJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func writeJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
