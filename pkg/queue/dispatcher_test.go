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

package queue

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/juliaci/nanosoldier/pkg/api"
	"github.com/juliaci/nanosoldier/pkg/config"
	"github.com/juliaci/nanosoldier/pkg/github"
	"github.com/juliaci/nanosoldier/pkg/github/fakegithub"
	"github.com/juliaci/nanosoldier/pkg/jobs"
	"github.com/juliaci/nanosoldier/pkg/report"
)

// runnableJob carries a real submission so runOne can post statuses.
type runnableJob struct {
	sub    *api.Submission
	result *jobs.Result
	err    error
}

func (r *runnableJob) Submission() *api.Submission { return r.sub }
func (r *runnableJob) Kind() string                { return jobs.KindBenchmark }
func (r *runnableJob) IsDaily() bool               { return false }
func (r *runnableJob) Summary() string             { return "BenchmarkJob: JuliaLang/julia@1111111" }
func (r *runnableJob) Run(*jobs.RunEnv) (*jobs.Result, error) {
	return r.result, r.err
}

func dispatchSubmission() *api.Submission {
	sha := "1111111111111111111111111111111111111111"
	return &api.Submission{
		Repo:      "JuliaLang/julia",
		Build:     api.NewBuildRef("JuliaLang/julia", sha, time.Now()),
		StatusSHA: sha,
		FromKind:  api.KindPR,
		PRNumber:  42,
	}
}

func TestRunOneStatusWording(t *testing.T) {
	fake := fakegithub.NewFakeClient()
	agent := &config.Agent{}
	agent.Set(&config.Config{})
	d := &Dispatcher{
		Queue:       New(),
		GitHub:      fake,
		Reporter:    report.NewReporter(fake, "nanosoldier"),
		ConfigAgent: agent,
	}
	j := &runnableJob{sub: dispatchSubmission(), result: &jobs.Result{}}

	d.runOne(config.Node{Name: "node7", JobKinds: []string{jobs.KindBenchmark}, CPUs: 4}, j, logrus.WithField("test", t.Name()))

	statuses := fake.CreatedStatuses["JuliaLang/julia@"+j.sub.StatusSHA]
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want running + final", len(statuses))
	}
	if want := "running on node node7: " + j.Summary(); statuses[0].Description != want {
		t.Errorf("running description = %q, want %q", statuses[0].Description, want)
	}
	if statuses[1].State != github.StatusSuccess {
		t.Errorf("final state = %q, want success", statuses[1].State)
	}
	if len(fake.IssueCommentsAdded) != 1 || !strings.Contains(fake.IssueCommentsAdded[0], "Your job has completed.") {
		t.Errorf("unexpected completion comments: %v", fake.IssueCommentsAdded)
	}
}
