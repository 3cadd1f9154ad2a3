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

// Package api holds the value types shared by the webhook intake, the job
// queue and the runners.
package api

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// EventKind describes where a submission originated.
type EventKind string

const (
	// KindCommit is a comment on a commit.
	KindCommit EventKind = "commit"
	// KindReview is a pull request review comment.
	KindReview EventKind = "review"
	// KindPR is a pull request body or issue comment on a pull request.
	KindPR EventKind = "pr"
)

// BuildRef pins a source revision for build and test.
type BuildRef struct {
	// Repo is the owner/name of the repository holding the revision.
	Repo string
	// SHA is the full commit hash.
	SHA string
	// CommitTime is the committer timestamp, UTC.
	CommitTime time.Time
	// VersionInfo is a free-form interpreter/platform description captured
	// after a successful build. Placeholder until then.
	VersionInfo string
}

// NewBuildRef returns a BuildRef with the version info placeholder set.
func NewBuildRef(repo, sha string, commitTime time.Time) *BuildRef {
	return &BuildRef{
		Repo:        repo,
		SHA:         sha,
		CommitTime:  commitTime.UTC(),
		VersionInfo: "retrieving versioninfo...",
	}
}

// Copy returns an independent copy of the ref.
func (b *BuildRef) Copy() *BuildRef {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

// Same reports whether two refs name the same revision.
func (b *BuildRef) Same(o *BuildRef) bool {
	return b != nil && o != nil && b.Repo == o.Repo && b.SHA == o.SHA
}

func (b *BuildRef) String() string {
	return fmt.Sprintf("%s@%s", b.Repo, shorten(b.SHA))
}

func shorten(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// ShortSHA returns the 7-character abbreviation of the ref's SHA.
func (b *BuildRef) ShortSHA() string {
	return shorten(b.SHA)
}

// Submission is a validated description of what was requested, independent of
// which worker ends up executing it. It is immutable after construction with
// one exception: Build.SHA may be overwritten exactly once when a pull
// request resolves to its merge commit. StatusSHA is pinned at intake so that
// status reporting never retargets.
type Submission struct {
	// Repo is the repository the triggering comment lives in. Status and
	// comment replies go here.
	Repo string
	// Build is the code under test. May point at a fork when the comment is
	// on a pull request.
	Build *BuildRef
	// StatusSHA is the commit statuses are posted against.
	StatusSHA string
	// URL is the HTML URL of the triggering comment.
	URL string
	// FromKind records the originating event kind.
	FromKind EventKind
	// PRNumber is set for review and pr kinds.
	PRNumber int

	// Func is the requested job constructor name, e.g. "runbenchmarks".
	Func string
	// Args are the positional arguments, stored as source text.
	Args []string
	// Kwargs are the keyword arguments, stored as source text. Never
	// evaluated.
	Kwargs map[string]string
}

// SetMergeCommit applies the one legal mutation of the build ref: replacing
// the head SHA with the merge commit SHA. StatusSHA is unaffected.
func (s *Submission) SetMergeCommit(sha string) {
	s.Build.SHA = sha
}

// String renders the submission the way it appears in status descriptions.
func (s *Submission) String() string {
	return s.Build.String()
}

// Reserialize renders the stored source text back into the submission
// mini-language, `func(arg, ...; kw = v, ...)`. Parsing the result yields the
// same (func, args, kwargs).
func (s *Submission) Reserialize() string {
	var b strings.Builder
	b.WriteString(s.Func)
	b.WriteString("(")
	b.WriteString(strings.Join(s.Args, ", "))
	if len(s.Kwargs) > 0 {
		b.WriteString("; ")
		keys := make([]string, 0, len(s.Kwargs))
		for k := range s.Kwargs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s = %s", k, s.Kwargs[k])
		}
	}
	b.WriteString(")")
	return b.String()
}
