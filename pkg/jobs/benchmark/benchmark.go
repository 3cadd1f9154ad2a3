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

// Package benchmark implements the benchmark job: build one or two revisions
// of the tracked project, run the benchmark suite against each, and judge
// the ratios.
package benchmark

import (
	"fmt"
	"time"

	"github.com/juliaci/nanosoldier/pkg/api"
	"github.com/juliaci/nanosoldier/pkg/jobs"
	"github.com/juliaci/nanosoldier/pkg/submission"
)

func init() {
	jobs.Register("runbenchmarks", construct)
}

var allowedKwargs = map[string]bool{
	"vs":        true,
	"skipbuild": true,
	"isdaily":   true,
}

// Job is a benchmark run against one revision, optionally compared to a
// second.
type Job struct {
	sub *api.Submission

	// TagPredicate is the benchmark selector, stored as source text and
	// passed through unchanged to the suite's own tag DSL.
	TagPredicate string
	// Against is the comparison build, nil for single runs.
	Against *api.BuildRef
	// Date is the nominal job date, used for daily directory naming.
	Date time.Time
	// Daily marks scheduled baseline work.
	Daily bool
	// SkipBuild uses a local install instead of building the revision.
	SkipBuild bool
}

func construct(env *jobs.Env, sub *api.Submission) (jobs.Job, error) {
	j := &Job{sub: sub, Date: time.Now().UTC(), TagPredicate: "ALL"}

	for k := range sub.Kwargs {
		if !allowedKwargs[k] {
			return nil, api.Submissionf("unknown keyword argument %q for runbenchmarks", k)
		}
	}

	if v, ok := sub.Kwargs["isdaily"]; ok {
		if v != "true" {
			return nil, api.Validationf("isdaily must be the literal true")
		}
		if _, vs := sub.Kwargs["vs"]; vs {
			return nil, api.Validationf("isdaily and vs are mutually exclusive")
		}
		if err := jobs.ValidateDaily(env, sub); err != nil {
			return nil, err
		}
		j.Daily = true
	}

	switch len(sub.Args) {
	case 0:
		// Only daily jobs may omit the tag predicate; they default to ALL.
		if !j.Daily {
			return nil, api.Submissionf("runbenchmarks requires exactly one tag predicate argument")
		}
	case 1:
		if err := submission.ValidTagPredicate(sub.Args[0]); err != nil {
			return nil, err
		}
		j.TagPredicate = sub.Args[0]
	default:
		return nil, api.Submissionf("runbenchmarks requires exactly one tag predicate argument")
	}

	if v, ok := sub.Kwargs["skipbuild"]; ok {
		switch v {
		case "true":
			j.SkipBuild = true
		case "false":
		default:
			return nil, api.Validationf("skipbuild must be a boolean literal")
		}
	}

	if v, ok := sub.Kwargs["vs"]; ok {
		against, err := jobs.ResolveReference(env, sub, v, env.Config.TrackRepo)
		if err != nil {
			return nil, err
		}
		j.Against = against
	}

	return j, nil
}

// Submission implements jobs.Job.
func (j *Job) Submission() *api.Submission { return j.sub }

// Kind implements jobs.Job.
func (j *Job) Kind() string { return jobs.KindBenchmark }

// IsDaily implements jobs.Job.
func (j *Job) IsDaily() bool { return j.Daily }

// Summary implements jobs.Job.
func (j *Job) Summary() string {
	if j.Against != nil {
		return fmt.Sprintf("BenchmarkJob: %s vs %s", j.sub.Build, j.Against)
	}
	return fmt.Sprintf("BenchmarkJob: %s", j.sub.Build)
}
