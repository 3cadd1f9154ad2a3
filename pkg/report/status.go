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

// Package report publishes job results: commit statuses and comment replies,
// report-repository staging and pushing, and object-store uploads.
package report

import (
	"os"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/juliaci/nanosoldier/pkg/api"
	"github.com/juliaci/nanosoldier/pkg/github"
)

// DryRun reports whether all outbound writes to the hosting service are
// disabled via NANOSOLDIER_DRYRUN=1.
func DryRun() bool {
	return os.Getenv("NANOSOLDIER_DRYRUN") == "1"
}

// statusLimit is GitHub's visible description length.
const statusLimit = 140

// GitHubClient is the subset of the github client the reporter needs.
type GitHubClient interface {
	CreateStatus(repo, ref string, s github.Status) error
	CreateComment(repo string, number int, comment string) error
	CreateCommitComment(repo, sha string, comment string) error
}

// Reporter posts job state transitions back to the originating repository.
// All statuses go against the submission's pinned StatusSHA.
type Reporter struct {
	gh      GitHubClient
	context string
}

// NewReporter returns a Reporter posting statuses under the given context.
func NewReporter(gh GitHubClient, context string) *Reporter {
	return &Reporter{gh: gh, context: context}
}

// Status posts a commit status. A runner-level "failure" means regressions
// were detected, and detection is not a malfunction, so it is downgraded to
// "success" at the hosting-service level.
func (r *Reporter) Status(sub *api.Submission, state, description, targetURL string) error {
	if DryRun() {
		logrus.WithFields(logrus.Fields{"state": state, "description": description}).Info("Dry run: skipping status.")
		return nil
	}
	if state == github.StatusFailure {
		state = github.StatusSuccess
	}
	return r.gh.CreateStatus(sub.Repo, sub.StatusSHA, github.Status{
		State:       state,
		Description: truncate(description),
		Context:     r.context,
		TargetURL:   targetURL,
	})
}

// Comment replies on the originating commit or pull request.
func (r *Reporter) Comment(sub *api.Submission, body string) error {
	if DryRun() {
		logrus.WithField("body", body).Info("Dry run: skipping comment.")
		return nil
	}
	if sub.FromKind == api.KindCommit {
		return r.gh.CreateCommitComment(sub.Repo, sub.StatusSHA, body)
	}
	return r.gh.CreateComment(sub.Repo, sub.PRNumber, body)
}

func truncate(s string) string {
	if len(s) <= statusLimit {
		return s
	}
	// Back up to a rune boundary so the cut never produces invalid UTF-8.
	cut := statusLimit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
