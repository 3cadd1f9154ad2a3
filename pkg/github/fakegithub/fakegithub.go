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

// Package fakegithub provides an in-memory github client for tests.
package fakegithub

import (
	"fmt"

	"github.com/juliaci/nanosoldier/pkg/github"
)

// FakeClient records mutations and serves canned lookups.
type FakeClient struct {
	PullRequests map[int]*github.PullRequest
	// Commits is keyed by repo@sha.
	Commits map[string]github.RepositoryCommit
	// Branches is keyed by repo:branch.
	Branches map[string]github.Branch
	// Tags is keyed by repo@sha of the tag object.
	Tags map[string]github.Tag
	// BranchCommits is keyed by repo:branch, newest first.
	BranchCommits map[string][]github.RepositoryCommit
	Repos         map[string]github.Repo

	// repo@sha: statuses in creation order.
	CreatedStatuses map[string][]github.Status
	// repo#number:body
	IssueCommentsAdded []string
	// repo@sha:body
	CommitCommentsAdded []string
}

// NewFakeClient returns a FakeClient with all maps initialized.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		PullRequests:    map[int]*github.PullRequest{},
		Commits:         map[string]github.RepositoryCommit{},
		Branches:        map[string]github.Branch{},
		Tags:            map[string]github.Tag{},
		BranchCommits:   map[string][]github.RepositoryCommit{},
		Repos:           map[string]github.Repo{},
		CreatedStatuses: map[string][]github.Status{},
	}
}

func (f *FakeClient) CreateStatus(repo, ref string, s github.Status) error {
	k := repo + "@" + ref
	f.CreatedStatuses[k] = append(f.CreatedStatuses[k], s)
	return nil
}

func (f *FakeClient) CreateComment(repo string, number int, comment string) error {
	f.IssueCommentsAdded = append(f.IssueCommentsAdded, fmt.Sprintf("%s#%d:%s", repo, number, comment))
	return nil
}

func (f *FakeClient) CreateCommitComment(repo, sha string, comment string) error {
	f.CommitCommentsAdded = append(f.CommitCommentsAdded, fmt.Sprintf("%s@%s:%s", repo, sha, comment))
	return nil
}

func (f *FakeClient) GetPullRequest(repo string, number int) (*github.PullRequest, error) {
	pr, ok := f.PullRequests[number]
	if !ok {
		return nil, fmt.Errorf("pull request %s#%d not found", repo, number)
	}
	return pr, nil
}

func (f *FakeClient) GetSingleCommit(repo, sha string) (*github.RepositoryCommit, error) {
	c, ok := f.Commits[repo+"@"+sha]
	if !ok {
		return nil, fmt.Errorf("commit %s@%s not found", repo, sha)
	}
	return &c, nil
}

func (f *FakeClient) ListCommits(repo, branch string, perPage int) ([]github.RepositoryCommit, error) {
	commits := f.BranchCommits[repo+":"+branch]
	if len(commits) > perPage {
		commits = commits[:perPage]
	}
	return commits, nil
}

func (f *FakeClient) GetBranch(repo, branch string) (*github.Branch, error) {
	b, ok := f.Branches[repo+":"+branch]
	if !ok {
		return nil, fmt.Errorf("branch %s:%s not found", repo, branch)
	}
	return &b, nil
}

func (f *FakeClient) GetRef(repo, ref string) (string, error) {
	if t, ok := f.Tags[repo+"@"+ref]; ok {
		return t.SHA, nil
	}
	return "", fmt.Errorf("ref %s:%s not found", repo, ref)
}

func (f *FakeClient) GetTag(repo, sha string) (*github.Tag, error) {
	t, ok := f.Tags[repo+"@"+sha]
	if !ok {
		return nil, fmt.Errorf("tag %s@%s not found", repo, sha)
	}
	return &t, nil
}

func (f *FakeClient) GetRepo(repo string) (*github.Repo, error) {
	r, ok := f.Repos[repo]
	if !ok {
		return &github.Repo{FullName: repo, DefaultBranch: "master"}, nil
	}
	return &r, nil
}
