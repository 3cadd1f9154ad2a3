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

// The build toolchain and the suite runner are opaque external commands:
// given a revision and a destination they produce an artifact, given an
// artifact and a tag predicate they produce a results file.
var (
	buildCommand   = "nanosoldier-build-julia"
	suiteCommand   = "nanosoldier-run-benchmarks"
	versionCommand = "nanosoldier-versioninfo"
	// localInstall is used instead of a fresh build when skipbuild is set.
	localInstall = "/usr/local/julia"
)

// dailyLookback bounds the search for the previous daily result.
const dailyLookback = 120

// Metrics are the aggregates persisted per benchmark.
type Metrics struct {
	Minimum       float64 `json:"minimum"`
	Median        float64 `json:"median"`
	Mean          float64 `json:"mean"`
	Std           float64 `json:"std"`
	TimeTolerance float64 `json:"time_tolerance,omitempty"`
}

type side struct {
	Build   *api.BuildRef
	Results map[string]Metrics
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
	// Never compare a build against itself; demote to a single run.
	if j.Against != nil && j.Against.Same(j.sub.Build) {
		env.Log.WithField("build", j.sub.Build).Info("Comparison build is identical to the primary; demoting to a single run.")
		j.Against = nil
	}

	tmp, err := os.MkdirTemp(env.Config.WorkDir, "benchmark-")
	if err != nil {
		return nil, api.Runf(err, "could not create job directory")
	}
	defer os.RemoveAll(tmp)
	logs := filepath.Join(tmp, "logs")
	if err := os.MkdirAll(logs, 0o755); err != nil {
		return nil, api.Runf(err, "could not create job directory")
	}

	shield.acquire(execute)
	defer shield.release(execute)

	primary, err := j.runSide(env, execute, tmp, j.sub.Build, "primary")
	if err != nil {
		return nil, err
	}

	var against *side
	if j.Against != nil {
		against, err = j.runSide(env, execute, tmp, j.Against, "against")
		if err != nil {
			return nil, err
		}
	} else if j.Daily {
		// Daily jobs compare against the most recent previous daily result
		// rather than executing a second build.
		against, err = j.previousDaily(env, tmp)
		if err != nil {
			env.Log.WithError(err).Info("No previous daily result; reporting without comparison.")
			against = nil
		}
	}

	var judged map[string]Judgement
	if against != nil {
		judged = judge(primary.Results, against.Results, env.Config.TimeTolerance)
	}

	staged, err := j.assemble(env, tmp, primary, against, judged)
	if err != nil {
		return nil, err
	}
	url, err := j.publish(env, staged)
	if err != nil {
		return nil, err
	}
	return &jobs.Result{HasIssues: anyRegression(judged), URL: url}, nil
}

// runSide acquires an artifact for the build, captures its version info and
// executes the suite, returning the parsed aggregates.
func (j *Job) runSide(env *jobs.RunEnv, execute execFunc, tmp string, build *api.BuildRef, name string) (*side, error) {
	artifact := localInstall
	if !j.SkipBuild {
		artifact = filepath.Join(tmp, "build_"+name)
		out, err := execute(tmp, buildCommand, build.Repo, build.SHA, artifact)
		if err != nil {
			env.Log.WithError(err).WithField("output", string(out)).Error("Build failed.")
			return nil, api.Runf(err, "could not build %s", build)
		}
	}

	// The run directory is writable to the worker user only; other users
	// get read access.
	runDir := filepath.Join(tmp, "run_"+name)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, api.Runf(err, "could not prepare run directory")
	}

	build.VersionInfo = captureVersionInfo(execute, runDir, artifact)

	resultsFile := filepath.Join(runDir, "results.json")
	out, err := execute(runDir, suiteCommand, artifact, j.TagPredicate, resultsFile, fmt.Sprint(env.CPUs))
	logName := filepath.Join(tmp, "logs", fmt.Sprintf("%s_%s.out", build.SHA, name))
	if werr := os.WriteFile(logName, out, 0o644); werr != nil {
		env.Log.WithError(werr).Warn("Could not persist suite log.")
	}
	if err != nil {
		if werr := os.WriteFile(strings.TrimSuffix(logName, ".out")+".err", out, 0o644); werr != nil {
			env.Log.WithError(werr).Warn("Could not persist suite error log.")
		}
		return nil, api.Runf(err, "benchmark suite failed for %s", build)
	}

	b, err := os.ReadFile(resultsFile)
	if err != nil {
		return nil, api.Runf(err, "benchmark suite produced no results for %s", build)
	}
	var results map[string]Metrics
	if err := json.Unmarshal(b, &results); err != nil {
		return nil, api.Runf(err, "could not decode benchmark results for %s", build)
	}
	return &side{Build: build, Results: results}, nil
}

// captureVersionInfo records the artifact's version description, dropping
// everything from the Environment marker on so environment variables (which
// may hold secrets) never reach the report.
func captureVersionInfo(execute execFunc, dir, artifact string) string {
	out, err := execute(dir, versionCommand, artifact)
	if err != nil {
		return "version info unavailable"
	}
	s := string(out)
	if i := strings.Index(s, "Environment"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// previousDaily walks back up to dailyLookback calendar days and loads the
// newest earlier daily result as the against side.
func (j *Job) previousDaily(env *jobs.RunEnv, tmp string) (*side, error) {
	for i := 1; i <= dailyLookback; i++ {
		date := j.Date.AddDate(0, 0, -i)
		archive := filepath.Join(env.Config.ReportDir, jobs.KindBenchmark, "by_date", report.DateDirName(date), "data.tar.zst")
		if _, err := os.Stat(archive); err != nil {
			continue
		}
		dest := filepath.Join(tmp, "previous_daily")
		if err := report.ExtractArchive(archive, dest); err != nil {
			return nil, fmt.Errorf("could not extract %s: %w", archive, err)
		}
		s, err := loadSide(dest, "primary")
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("no daily result in the previous %d days", dailyLookback)
}

func loadSide(dir, name string) (*side, error) {
	var build api.BuildRef
	if err := readJSON(filepath.Join(dir, "build_"+name+".json"), &build); err != nil {
		return nil, err
	}
	var results map[string]Metrics
	if err := readJSON(filepath.Join(dir, "results_"+name+".json"), &results); err != nil {
		return nil, err
	}
	return &side{Build: &build, Results: results}, nil
}

func readJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
