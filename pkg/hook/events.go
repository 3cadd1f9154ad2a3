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

package hook

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/juliaci/nanosoldier/pkg/api"
	"github.com/juliaci/nanosoldier/pkg/config"
	"github.com/juliaci/nanosoldier/pkg/github"
	"github.com/juliaci/nanosoldier/pkg/submission"
)

// submissionPhrase extracts the trigger payload from a comment body.
func submissionPhrase(cfg *config.Config, body string) (string, bool) {
	return submission.ExtractPhrase(cfg.TriggerRegexp(), body)
}

func parsePhrase(phrase string) (*submission.Parsed, error) {
	return submission.Parse(phrase)
}

func (s *Server) handleCommitComment(l *logrus.Entry, event github.CommitCommentEvent) (int, error) {
	if event.Action != "created" {
		return http.StatusNoContent, nil
	}
	if _, found := submissionPhrase(s.ConfigAgent.Config(), event.Comment.Body); !found {
		return http.StatusOK, nil
	}
	repo := event.Repo.FullName
	build, err := s.buildRef(repo, event.Comment.CommitID)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	intake := &api.Submission{
		Repo:      repo,
		Build:     build,
		StatusSHA: event.Comment.CommitID,
		URL:       event.Comment.HTMLURL,
		FromKind:  api.KindCommit,
	}
	return s.admit(l, event.Comment.Body, intake)
}

func (s *Server) handleReviewComment(l *logrus.Entry, event github.ReviewCommentEvent) (int, error) {
	if event.Action != "created" {
		return http.StatusNoContent, nil
	}
	if _, found := submissionPhrase(s.ConfigAgent.Config(), event.Comment.Body); !found {
		return http.StatusOK, nil
	}
	// A review comment annotates one specific commit of the pull request,
	// which may be older than the head. That commit is what gets built and
	// what carries the statuses; the merge commit belongs to the head only.
	build, err := s.buildRef(event.PullRequest.Head.Repo.FullName, event.Comment.CommitID)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	intake := &api.Submission{
		Repo:      event.Repo.FullName,
		Build:     build,
		StatusSHA: event.Comment.CommitID,
		URL:       event.Comment.HTMLURL,
		FromKind:  api.KindReview,
		PRNumber:  event.PullRequest.Number,
	}
	return s.admit(l, event.Comment.Body, intake)
}

func (s *Server) handlePullRequest(l *logrus.Entry, event github.PullRequestEvent) (int, error) {
	// Only freshly opened pull requests are scanned; edits and synchronize
	// pushes never re-trigger.
	if event.Action != "opened" {
		return http.StatusNoContent, nil
	}
	if _, found := submissionPhrase(s.ConfigAgent.Config(), event.PullRequest.Body); !found {
		return http.StatusOK, nil
	}
	intake, err := s.pullRequestIntake(event.Repo.FullName, &event.PullRequest, event.PullRequest.HTMLURL, api.KindPR)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return s.admit(l, event.PullRequest.Body, intake)
}

func (s *Server) handleIssueComment(l *logrus.Entry, event github.IssueCommentEvent) (int, error) {
	if event.Action != "created" {
		return http.StatusNoContent, nil
	}
	if _, found := submissionPhrase(s.ConfigAgent.Config(), event.Comment.Body); !found {
		return http.StatusOK, nil
	}
	if !event.Issue.IsPullRequest() {
		// There is no commit to build or report against on a plain issue.
		return http.StatusBadRequest, errors.New("jobs cannot be submitted from issue comments")
	}
	pr, err := s.GitHub.GetPullRequest(event.Repo.FullName, event.Issue.Number)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	intake, err := s.pullRequestIntake(event.Repo.FullName, pr, event.Comment.HTMLURL, api.KindPR)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return s.admit(l, event.Comment.Body, intake)
}

// pullRequestIntake builds a submission for a pull request context. The
// build may live in a fork; statuses always go to the base repository
// against the head SHA, which stays pinned even when the build moves to the
// merge commit.
func (s *Server) pullRequestIntake(repo string, pr *github.PullRequest, url string, kind api.EventKind) (*api.Submission, error) {
	buildRepo := pr.Head.Repo.FullName
	build, err := s.buildRef(buildRepo, pr.Head.SHA)
	if err != nil {
		return nil, err
	}
	intake := &api.Submission{
		Repo:      repo,
		Build:     build,
		StatusSHA: pr.Head.SHA,
		URL:       url,
		FromKind:  kind,
		PRNumber:  pr.Number,
	}
	// Test what would be merged, not the head itself, whenever the merge
	// commit exists.
	if pr.MergeSHA != nil && *pr.MergeSHA != "" {
		intake.SetMergeCommit(*pr.MergeSHA)
	}
	return intake, nil
}

// buildRef resolves a commit to a BuildRef carrying its committer time.
func (s *Server) buildRef(repo, sha string) (*api.BuildRef, error) {
	commit, err := s.GitHub.GetSingleCommit(repo, sha)
	if err != nil {
		return nil, err
	}
	return api.NewBuildRef(repo, sha, commit.Commit.Committer.Date), nil
}
