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

// Package github provides the subset of the GitHub REST API the bot needs,
// plus webhook payload validation.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Logger lets tests swap out logging.
type Logger interface {
	Debugf(s string, v ...interface{})
}

// Client interacts with the github api.
type Client struct {
	// If logger is non-nil, log all method calls with it.
	logger Logger

	client *http.Client
	token  string
	base   string
	dry    bool
	fake   bool
}

const (
	maxRetries    = 8
	max404Retries = 2
	maxSleepTime  = 2 * time.Minute
	initialDelay  = 2 * time.Second

	// DefaultAPIBase is the public GitHub REST endpoint.
	DefaultAPIBase = "https://api.github.com"
)

// NewClient creates a new fully operational GitHub client.
func NewClient(token, base string) *Client {
	return &Client{
		logger: logrus.WithField("client", "github"),
		client: oauth2.NewClient(context.Background(),
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})),
		token: token,
		base:  base,
	}
}

// NewDryRunClient creates a client that will not perform mutating actions
// such as setting statuses or commenting, but will still query GitHub.
func NewDryRunClient(token, base string) *Client {
	c := NewClient(token, base)
	c.dry = true
	return c
}

// NewFakeClient creates a client that will not perform any actions at all.
func NewFakeClient() *Client {
	return &Client{
		logger: logrus.WithField("client", "github"),
		fake:   true,
		dry:    true,
	}
}

func (c *Client) log(methodName string, args ...interface{}) {
	if c.logger == nil {
		return
	}
	var as []string
	for _, arg := range args {
		as = append(as, fmt.Sprintf("%v", arg))
	}
	c.logger.Debugf("%s(%s)", methodName, strings.Join(as, ", "))
}

var timeSleep = time.Sleep

type request struct {
	method      string
	path        string
	requestBody interface{}
	exitCodes   []int
}

type requestError struct {
	ClientError
	ErrorString string
}

func (r requestError) Error() string {
	return r.ErrorString
}

// Make a request with retries. If ret is not nil, unmarshal the response body
// into it. Returns an error if the exit code is not one of the provided codes.
func (c *Client) request(r *request, ret interface{}) (int, error) {
	if c.fake || (c.dry && r.method != http.MethodGet) {
		return r.exitCodes[0], nil
	}
	resp, err := c.requestRetry(r.method, r.path, r.requestBody)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	var okCode bool
	for _, code := range r.exitCodes {
		if code == resp.StatusCode {
			okCode = true
			break
		}
	}
	if !okCode {
		clientError := ClientError{}
		if err := json.Unmarshal(b, &clientError); err != nil {
			return resp.StatusCode, err
		}
		return resp.StatusCode, requestError{
			ClientError: clientError,
			ErrorString: fmt.Sprintf("status code %d not one of %v, body: %s", resp.StatusCode, r.exitCodes, string(b)),
		}
	}
	if ret != nil {
		if err := json.Unmarshal(b, ret); err != nil {
			return 0, err
		}
	}
	return resp.StatusCode, nil
}

// Retry on transport failures. Retries on 500s, retries after sleep on
// ratelimit exceeded, and retries 404s a couple times.
func (c *Client) requestRetry(method, path string, body interface{}) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := initialDelay
	for retries := 0; retries < maxRetries; retries++ {
		resp, err = c.doRequest(method, path, body)
		if err == nil {
			if resp.StatusCode == 404 && retries < max404Retries {
				// Retry 404s a couple times. Sometimes GitHub sends us an
				// event and an immediate GET on the referenced object 404s.
				// Don't retry more; a 404 may just be a bad call and we'd
				// burn through tokens.
				resp.Body.Close()
				timeSleep(backoff)
				backoff *= 2
			} else if resp.StatusCode == 403 {
				if resp.Header.Get("X-RateLimit-Remaining") == "0" {
					// Out of API tokens; the X-RateLimit-Reset header tells
					// us when we can request again.
					var t int
					if t, err = strconv.Atoi(resp.Header.Get("X-RateLimit-Reset")); err == nil {
						sleepTime := time.Until(time.Unix(int64(t), 0)) + time.Second
						if sleepTime > 0 && sleepTime < maxSleepTime {
							timeSleep(sleepTime)
						} else {
							break
						}
					}
				}
				resp.Body.Close()
			} else if resp.StatusCode < 500 {
				// Normal, happy case.
				break
			} else {
				// Retry 500 after a break.
				resp.Body.Close()
				timeSleep(backoff)
				backoff *= 2
			}
		} else {
			timeSleep(backoff)
			backoff *= 2
		}
	}
	return resp, err
}

func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewBuffer(b)
	}
	req, err := http.NewRequest(method, path, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", "application/vnd.github.v3+json")
	// Disable keep-alive so that we don't get flakes when GitHub closes the
	// connection prematurely.
	req.Close = true
	return c.client.Do(req)
}

func splitRepo(fullName string) (string, string) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 {
		return fullName, ""
	}
	return parts[0], parts[1]
}

// CreateStatus creates or updates the status of a commit.
func (c *Client) CreateStatus(repo, ref string, s Status) error {
	c.log("CreateStatus", repo, ref, s)
	org, name := splitRepo(repo)
	_, err := c.request(&request{
		method:      http.MethodPost,
		path:        fmt.Sprintf("%s/repos/%s/%s/statuses/%s", c.base, org, name, ref),
		requestBody: &s,
		exitCodes:   []int{201},
	}, nil)
	return err
}

// CreateComment posts a comment on an issue or pull request.
func (c *Client) CreateComment(repo string, number int, comment string) error {
	c.log("CreateComment", repo, number, comment)
	org, name := splitRepo(repo)
	ic := IssueComment{Body: comment}
	_, err := c.request(&request{
		method:      http.MethodPost,
		path:        fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.base, org, name, number),
		requestBody: &ic,
		exitCodes:   []int{201},
	}, nil)
	return err
}

// CreateCommitComment posts a comment directly on a commit.
func (c *Client) CreateCommitComment(repo, sha string, comment string) error {
	c.log("CreateCommitComment", repo, sha, comment)
	org, name := splitRepo(repo)
	cc := CommitComment{Body: comment}
	_, err := c.request(&request{
		method:      http.MethodPost,
		path:        fmt.Sprintf("%s/repos/%s/%s/commits/%s/comments", c.base, org, name, sha),
		requestBody: &cc,
		exitCodes:   []int{201},
	}, nil)
	return err
}

// GetPullRequest gets a pull request.
func (c *Client) GetPullRequest(repo string, number int) (*PullRequest, error) {
	c.log("GetPullRequest", repo, number)
	org, name := splitRepo(repo)
	var pr PullRequest
	_, err := c.request(&request{
		method:    http.MethodGet,
		path:      fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.base, org, name, number),
		exitCodes: []int{200},
	}, &pr)
	return &pr, err
}

// GetSingleCommit returns a single commit, including its committer timestamp.
func (c *Client) GetSingleCommit(repo, sha string) (*RepositoryCommit, error) {
	c.log("GetSingleCommit", repo, sha)
	org, name := splitRepo(repo)
	var commit RepositoryCommit
	_, err := c.request(&request{
		method:    http.MethodGet,
		path:      fmt.Sprintf("%s/repos/%s/%s/commits/%s", c.base, org, name, sha),
		exitCodes: []int{200},
	}, &commit)
	return &commit, err
}

// ListCommits returns the most recent commits on the given branch, newest
// first. perPage is capped by GitHub at 100.
func (c *Client) ListCommits(repo, branch string, perPage int) ([]RepositoryCommit, error) {
	c.log("ListCommits", repo, branch, perPage)
	org, name := splitRepo(repo)
	var commits []RepositoryCommit
	_, err := c.request(&request{
		method:    http.MethodGet,
		path:      fmt.Sprintf("%s/repos/%s/%s/commits?sha=%s&per_page=%d", c.base, org, name, branch, perPage),
		exitCodes: []int{200},
	}, &commits)
	return commits, err
}

// GetBranch returns the head commit of a branch.
func (c *Client) GetBranch(repo, branch string) (*Branch, error) {
	c.log("GetBranch", repo, branch)
	org, name := splitRepo(repo)
	var b Branch
	_, err := c.request(&request{
		method:    http.MethodGet,
		path:      fmt.Sprintf("%s/repos/%s/%s/branches/%s", c.base, org, name, branch),
		exitCodes: []int{200},
	}, &b)
	return &b, err
}

// GetRef returns the SHA of the given ref, such as "heads/master" or
// "tags/v1.0.0".
func (c *Client) GetRef(repo, ref string) (string, error) {
	c.log("GetRef", repo, ref)
	org, name := splitRepo(repo)
	var res struct {
		Object map[string]string `json:"object"`
	}
	_, err := c.request(&request{
		method:    http.MethodGet,
		path:      fmt.Sprintf("%s/repos/%s/%s/git/refs/%s", c.base, org, name, ref),
		exitCodes: []int{200},
	}, &res)
	return res.Object["sha"], err
}

// GetTag dereferences an annotated tag object.
func (c *Client) GetTag(repo, sha string) (*Tag, error) {
	c.log("GetTag", repo, sha)
	org, name := splitRepo(repo)
	var t Tag
	_, err := c.request(&request{
		method:    http.MethodGet,
		path:      fmt.Sprintf("%s/repos/%s/%s/git/tags/%s", c.base, org, name, sha),
		exitCodes: []int{200},
	}, &t)
	return &t, err
}

// GetRepo returns repository metadata, notably the default branch.
func (c *Client) GetRepo(repo string) (*Repo, error) {
	c.log("GetRepo", repo)
	org, name := splitRepo(repo)
	var r Repo
	_, err := c.request(&request{
		method:    http.MethodGet,
		path:      fmt.Sprintf("%s/repos/%s/%s", c.base, org, name),
		exitCodes: []int{200},
	}, &r)
	return &r, err
}
