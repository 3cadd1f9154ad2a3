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

// Package jobs defines the job capability interface and the constructor
// registry keyed by submission function name. Job variants register
// themselves in their package init, and the webhook handler constructs jobs
// through Construct without knowing the concrete types.
package jobs

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/juliaci/nanosoldier/pkg/api"
	"github.com/juliaci/nanosoldier/pkg/config"
	"github.com/juliaci/nanosoldier/pkg/github"
	"github.com/juliaci/nanosoldier/pkg/report"
)

// Job kinds.
const (
	KindBenchmark = "benchmark"
	KindPkgEval   = "pkgeval"
)

// GitHubClient is the read-side of the github client jobs rely on.
type GitHubClient interface {
	GetPullRequest(repo string, number int) (*github.PullRequest, error)
	GetSingleCommit(repo, sha string) (*github.RepositoryCommit, error)
	ListCommits(repo, branch string, perPage int) ([]github.RepositoryCommit, error)
	GetBranch(repo, branch string) (*github.Branch, error)
	GetRef(repo, ref string) (string, error)
	GetTag(repo, sha string) (*github.Tag, error)
	GetRepo(repo string) (*github.Repo, error)
}

// Env is the construction-time context handed to constructors.
type Env struct {
	GitHub GitHubClient
	Config *config.Config
}

// RunEnv is the run-time context a dispatcher node hands to a job.
type RunEnv struct {
	GitHub    GitHubClient
	Reporter  *report.Reporter
	Publisher *report.Publisher
	Uploader  *report.Uploader
	Config    *config.Config
	// Node is the name of the worker executing the job.
	Node string
	// CPUs is the parallelism allocated to this node.
	CPUs int
	Log  *logrus.Entry
}

// Result is what a run leaves behind.
type Result struct {
	// HasIssues is set when a comparison detected possible regressions.
	// Detection is not an error.
	HasIssues bool
	// URL is the published report location, when available.
	URL string
}

// Job is one schedulable unit. A job owns its submission; the submission
// never references the job.
type Job interface {
	// Submission returns the originating submission.
	Submission() *api.Submission
	// Kind returns the job type used for node affinity.
	Kind() string
	// IsDaily reports whether this is scheduled daily work.
	IsDaily() bool
	// Summary describes the job in one line for status messages.
	Summary() string
	// Run executes the job to completion on the calling node.
	Run(env *RunEnv) (*Result, error)
}

// Constructor validates a submission against a job type's grammar and builds
// the typed job.
type Constructor func(env *Env, sub *api.Submission) (Job, error)

var constructors = map[string]Constructor{}

// Register records a constructor under a submission function name. Called
// from variant package inits.
func Register(name string, c Constructor) {
	if _, ok := constructors[name]; ok {
		panic(fmt.Sprintf("jobs: constructor %q registered twice", name))
	}
	constructors[name] = c
}

// Construct builds the job requested by the submission.
func Construct(env *Env, sub *api.Submission) (Job, error) {
	c, ok := constructors[sub.Func]
	if !ok {
		return nil, api.Submissionf("unknown job type %q", sub.Func)
	}
	return c(env, sub)
}
