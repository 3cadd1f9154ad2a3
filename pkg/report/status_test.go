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

package report

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/juliaci/nanosoldier/pkg/api"
	"github.com/juliaci/nanosoldier/pkg/github"
	"github.com/juliaci/nanosoldier/pkg/github/fakegithub"
)

func testSubmission(kind api.EventKind) *api.Submission {
	return &api.Submission{
		Repo:      "JuliaLang/julia",
		Build:     api.NewBuildRef("JuliaLang/julia", "1111111111111111111111111111111111111111", time.Now()),
		StatusSHA: "1111111111111111111111111111111111111111",
		FromKind:  kind,
		PRNumber:  42,
	}
}

func TestStatusDowngradesFailure(t *testing.T) {
	fake := fakegithub.NewFakeClient()
	r := NewReporter(fake, "nanosoldier")
	sub := testSubmission(api.KindPR)

	if err := r.Status(sub, github.StatusFailure, "possible regressions were detected", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	statuses := fake.CreatedStatuses["JuliaLang/julia@"+sub.StatusSHA]
	if len(statuses) != 1 {
		t.Fatalf("got %d statuses, want 1", len(statuses))
	}
	if statuses[0].State != github.StatusSuccess {
		t.Errorf("state = %q, want success: detection is not a malfunction", statuses[0].State)
	}
	if statuses[0].Context != "nanosoldier" {
		t.Errorf("context = %q, want nanosoldier", statuses[0].Context)
	}
}

func TestStatusTruncatesDescription(t *testing.T) {
	fake := fakegithub.NewFakeClient()
	r := NewReporter(fake, "nanosoldier")
	sub := testSubmission(api.KindPR)

	long := strings.Repeat("x", 500)
	if err := r.Status(sub, github.StatusPending, long, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	statuses := fake.CreatedStatuses["JuliaLang/julia@"+sub.StatusSHA]
	if got := len(statuses[0].Description); got > 140 {
		t.Errorf("description length = %d, want at most 140", got)
	}
	if !strings.HasSuffix(statuses[0].Description, "...") {
		t.Error("truncated description should end in an ellipsis")
	}
}

// Truncation must never cut through a multi-byte rune.
func TestStatusTruncatesOnRuneBoundary(t *testing.T) {
	fake := fakegithub.NewFakeClient()
	r := NewReporter(fake, "nanosoldier")
	sub := testSubmission(api.KindPR)

	long := strings.Repeat("é", 300)
	if err := r.Status(sub, github.StatusPending, long, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	desc := fake.CreatedStatuses["JuliaLang/julia@"+sub.StatusSHA][0].Description
	if len(desc) > 140 {
		t.Errorf("description length = %d, want at most 140", len(desc))
	}
	if !utf8.ValidString(desc) {
		t.Errorf("truncated description is not valid UTF-8: %q", desc)
	}
	if !strings.HasSuffix(desc, "...") {
		t.Error("truncated description should end in an ellipsis")
	}
}

func TestCommentRouting(t *testing.T) {
	fake := fakegithub.NewFakeClient()
	r := NewReporter(fake, "nanosoldier")

	if err := r.Comment(testSubmission(api.KindCommit), "done"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.CommitCommentsAdded) != 1 || len(fake.IssueCommentsAdded) != 0 {
		t.Errorf("commit origin: commit comments = %v, issue comments = %v", fake.CommitCommentsAdded, fake.IssueCommentsAdded)
	}

	fake = fakegithub.NewFakeClient()
	r = NewReporter(fake, "nanosoldier")
	if err := r.Comment(testSubmission(api.KindPR), "done"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.IssueCommentsAdded) != 1 || len(fake.CommitCommentsAdded) != 0 {
		t.Errorf("pr origin: issue comments = %v, commit comments = %v", fake.IssueCommentsAdded, fake.CommitCommentsAdded)
	}
	if !strings.Contains(fake.IssueCommentsAdded[0], "#42:") {
		t.Errorf("comment went to the wrong number: %v", fake.IssueCommentsAdded)
	}
}

func TestDryRunSuppressesWrites(t *testing.T) {
	t.Setenv("NANOSOLDIER_DRYRUN", "1")
	fake := fakegithub.NewFakeClient()
	r := NewReporter(fake, "nanosoldier")
	sub := testSubmission(api.KindPR)

	if err := r.Status(sub, github.StatusPending, "accepted", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Comment(sub, "done"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.CreatedStatuses) != 0 || len(fake.IssueCommentsAdded) != 0 {
		t.Error("dry run must not write to the hosting service")
	}
}
