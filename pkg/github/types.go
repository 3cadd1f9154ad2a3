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

package github

import "time"

// Status is used to set a commit status line.
type Status struct {
	State       string `json:"state"`
	TargetURL   string `json:"target_url,omitempty"`
	Description string `json:"description,omitempty"`
	Context     string `json:"context,omitempty"`
}

// Possible commit states.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusError   = "error"
	StatusFailure = "failure"
)

// User is a GitHub user account.
type User struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Repo contains general repository information.
type Repo struct {
	Owner         User   `json:"owner"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
}

// Label is an issue or PR label.
type Label struct {
	URL   string `json:"url"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// PullRequest contains information about a PullRequest.
type PullRequest struct {
	Number  int               `json:"number"`
	HTMLURL string            `json:"html_url"`
	User    User              `json:"user"`
	Base    PullRequestBranch `json:"base"`
	Head    PullRequestBranch `json:"head"`
	Body    string            `json:"body"`
	Merged  bool              `json:"merged"`
	// If Merged is true, MergeSHA is the SHA of the merge commit. If Merged
	// is false, MergeSHA is a commit SHA that github created to test if the
	// PR can be merged automatically.
	MergeSHA *string `json:"merge_commit_sha"`
}

// PullRequestBranch contains information about a particular branch in a PR.
type PullRequestBranch struct {
	Ref  string `json:"ref"`
	SHA  string `json:"sha"`
	Repo Repo   `json:"repo"`
}

// PullRequestEvent is what GitHub sends us when a PR is changed.
type PullRequestEvent struct {
	Action      string      `json:"action"`
	Number      int         `json:"number"`
	PullRequest PullRequest `json:"pull_request"`
	Repo        Repo        `json:"repository"`
}

// Issue represents general info about an issue.
type Issue struct {
	User    User   `json:"user"`
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	Body    string `json:"body"`

	// This will be non-nil if it is a pull request.
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

// IsPullRequest reports whether the issue is the issue-facet of a PR.
func (i Issue) IsPullRequest() bool {
	return i.PullRequest != nil
}

// IssueComment represents general info about an issue comment.
type IssueComment struct {
	ID      int    `json:"id,omitempty"`
	Body    string `json:"body"`
	User    User   `json:"user,omitempty"`
	HTMLURL string `json:"html_url,omitempty"`
}

// IssueCommentEvent is what GitHub sends us when an issue comment is changed.
type IssueCommentEvent struct {
	Action  string       `json:"action"`
	Issue   Issue        `json:"issue"`
	Comment IssueComment `json:"comment"`
	Repo    Repo         `json:"repository"`
}

// CommitComment is a comment on a specific commit.
type CommitComment struct {
	ID       int    `json:"id"`
	CommitID string `json:"commit_id"`
	User     User   `json:"user"`
	Body     string `json:"body"`
	HTMLURL  string `json:"html_url"`
}

// CommitCommentEvent is what GitHub sends us when a commit is commented on.
type CommitCommentEvent struct {
	Action  string        `json:"action"`
	Comment CommitComment `json:"comment"`
	Repo    Repo          `json:"repository"`
}

// ReviewComment describes a pull request review comment.
type ReviewComment struct {
	ID       int    `json:"id"`
	CommitID string `json:"commit_id"`
	User     User   `json:"user"`
	Body     string `json:"body"`
	HTMLURL  string `json:"html_url"`
}

// ReviewCommentEvent is what GitHub sends us when a PR review comment is
// changed.
type ReviewCommentEvent struct {
	Action      string        `json:"action"`
	PullRequest PullRequest   `json:"pull_request"`
	Repo        Repo          `json:"repository"`
	Comment     ReviewComment `json:"comment"`
}

// GenericEvent is the minimal payload shape shared by all webhook events,
// enough to route HMAC validation.
type GenericEvent struct {
	Repo Repo `json:"repository"`
	Org  struct {
		Login string `json:"login"`
	} `json:"organization"`
}

// GitUser is the author/committer identity embedded in a git commit.
type GitUser struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date"`
}

// GitCommit is the git-level commit object inside a RepositoryCommit.
type GitCommit struct {
	Message   string  `json:"message"`
	Author    GitUser `json:"author"`
	Committer GitUser `json:"committer"`
}

// RepositoryCommit is what the commits API returns.
type RepositoryCommit struct {
	SHA    string    `json:"sha"`
	Commit GitCommit `json:"commit"`
}

// Tag is an annotated tag object.
type Tag struct {
	Tag    string `json:"tag"`
	SHA    string `json:"sha"`
	Object struct {
		Type string `json:"type"`
		SHA  string `json:"sha"`
	} `json:"object"`
}

// Branch holds the head commit of a branch.
type Branch struct {
	Name   string           `json:"name"`
	Commit RepositoryCommit `json:"commit"`
}

// ClientError represents https://developer.github.com/v3/#client-errors
type ClientError struct {
	Message string `json:"message"`
	Errors  []struct {
		Resource string `json:"resource"`
		Field    string `json:"field"`
		Code     string `json:"code"`
	} `json:"errors,omitempty"`
}
