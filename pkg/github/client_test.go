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

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func getClient(url string) *Client {
	return &Client{
		client: &http.Client{},
		base:   url,
	}
}

func TestCreateStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Bad method: %s", r.Method)
		}
		if r.URL.Path != "/repos/JuliaLang/julia/statuses/abcdef" {
			t.Errorf("Bad request path: %s", r.URL.Path)
		}
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("Could not read request body: %v", err)
		}
		var s Status
		if err := json.Unmarshal(b, &s); err != nil {
			t.Errorf("Could not unmarshal request: %v", err)
		} else if s.Context != "nanosoldier" || s.State != StatusPending {
			t.Errorf("Wrong status: %+v", s)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()
	c := getClient(ts.URL)
	if err := c.CreateStatus("JuliaLang/julia", "abcdef", Status{
		State:   StatusPending,
		Context: "nanosoldier",
	}); err != nil {
		t.Errorf("Didn't expect error: %v", err)
	}
}

func TestGetPullRequest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/JuliaLang/julia/pulls/42" {
			t.Errorf("Bad request path: %s", r.URL.Path)
		}
		pr := PullRequest{Number: 42, Head: PullRequestBranch{SHA: "abcdef"}}
		b, _ := json.Marshal(&pr)
		w.Write(b)
	}))
	defer ts.Close()
	c := getClient(ts.URL)
	pr, err := c.GetPullRequest("JuliaLang/julia", 42)
	if err != nil {
		t.Errorf("Didn't expect error: %v", err)
	} else if pr.Number != 42 || pr.Head.SHA != "abcdef" {
		t.Errorf("Wrong pull request: %+v", pr)
	}
}

func TestListCommits(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/JuliaLang/julia/commits" {
			t.Errorf("Bad request path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("per_page"); got != "50" {
			t.Errorf("per_page = %s, want 50", got)
		}
		if got := r.URL.Query().Get("sha"); got != "master" {
			t.Errorf("sha = %s, want master", got)
		}
		b, _ := json.Marshal([]RepositoryCommit{{SHA: "one"}, {SHA: "two"}})
		w.Write(b)
	}))
	defer ts.Close()
	c := getClient(ts.URL)
	commits, err := c.ListCommits("JuliaLang/julia", "master", 50)
	if err != nil {
		t.Errorf("Didn't expect error: %v", err)
	} else if len(commits) != 2 || commits[0].SHA != "one" {
		t.Errorf("Wrong commits: %+v", commits)
	}
}

func TestRetry404(t *testing.T) {
	oldSleep := timeSleep
	timeSleep = func(time.Duration) {}
	defer func() { timeSleep = oldSleep }()

	tries := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tries++
		if tries < 2 {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		b, _ := json.Marshal(&Repo{FullName: "JuliaLang/julia", DefaultBranch: "master"})
		w.Write(b)
	}))
	defer ts.Close()
	c := getClient(ts.URL)
	repo, err := c.GetRepo("JuliaLang/julia")
	if err != nil {
		t.Errorf("Didn't expect error: %v", err)
	} else if repo.DefaultBranch != "master" {
		t.Errorf("Wrong repo: %+v", repo)
	}
	if tries != 2 {
		t.Errorf("Expected two attempts, got %d", tries)
	}
}

func TestRetry500(t *testing.T) {
	oldSleep := timeSleep
	timeSleep = func(time.Duration) {}
	defer func() { timeSleep = oldSleep }()

	tries := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tries++
		if tries < 3 {
			http.Error(w, "oops", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("{}"))
	}))
	defer ts.Close()
	c := getClient(ts.URL)
	if _, err := c.GetRepo("JuliaLang/julia"); err != nil {
		t.Errorf("Didn't expect error: %v", err)
	}
	if tries != 3 {
		t.Errorf("Expected three attempts, got %d", tries)
	}
}

func TestDryRunSkipsMutations(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Mutating call leaked through in dry-run mode: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte("{}"))
	}))
	defer ts.Close()
	c := getClient(ts.URL)
	c.dry = true
	if err := c.CreateComment("JuliaLang/julia", 1, "hi"); err != nil {
		t.Errorf("Didn't expect error: %v", err)
	}
	if _, err := c.GetRepo("JuliaLang/julia"); err != nil {
		t.Errorf("Didn't expect error: %v", err)
	}
}

func TestErrorStatusSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Validation Failed"}`, http.StatusUnprocessableEntity)
	}))
	defer ts.Close()
	c := getClient(ts.URL)
	if err := c.CreateComment("JuliaLang/julia", 1, "hi"); err == nil {
		t.Error("Expected error for a 422 response")
	}
}
