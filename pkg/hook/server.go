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

// Package hook implements the webhook intake: signature validation, event
// demultiplexing, trigger extraction and job admission.
package hook

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/juliaci/nanosoldier/pkg/api"
	"github.com/juliaci/nanosoldier/pkg/config"
	"github.com/juliaci/nanosoldier/pkg/github"
	"github.com/juliaci/nanosoldier/pkg/jobs"
	"github.com/juliaci/nanosoldier/pkg/queue"
	"github.com/juliaci/nanosoldier/pkg/report"
)

// Server implements an http.Handler that validates and admits job
// submissions. Admission is synchronous: by the time the webhook is answered
// the job is either queued with a pending status or rejected.
type Server struct {
	// TokenGenerator returns the current HMAC secret.
	TokenGenerator func() []byte
	GitHub         jobs.GitHubClient
	Reporter       *report.Reporter
	Queue          *queue.Queue
	ConfigAgent    *config.Agent
}

// ServeHTTP validates an incoming webhook and admits any submission in it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	eventType, eventGUID, payload, ok := github.ValidateWebhook(w, r, s.TokenGenerator())
	if !ok {
		return
	}
	webhookCounter.WithLabelValues(eventType).Inc()

	code, err := s.demuxEvent(eventType, eventGUID, payload)
	responseCounter.WithLabelValues(strconv.Itoa(code)).Inc()
	if err != nil {
		logrus.WithFields(logrus.Fields{"event-type": eventType, "event-GUID": eventGUID}).WithError(err).Info("Rejected event.")
		http.Error(w, err.Error(), code)
		return
	}
	w.WriteHeader(code)
}

// demuxEvent dispatches by event type and returns the response code. Events
// that carry no trigger phrase are acknowledged and dropped.
func (s *Server) demuxEvent(eventType, eventGUID string, payload []byte) (int, error) {
	l := logrus.WithFields(logrus.Fields{"event-type": eventType, "event-GUID": eventGUID})
	switch eventType {
	case "commit_comment":
		var event github.CommitCommentEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return http.StatusBadRequest, err
		}
		return s.handleCommitComment(l, event)
	case "pull_request_review_comment":
		var event github.ReviewCommentEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return http.StatusBadRequest, err
		}
		return s.handleReviewComment(l, event)
	case "pull_request":
		var event github.PullRequestEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return http.StatusBadRequest, err
		}
		return s.handlePullRequest(l, event)
	case "issue_comment":
		var event github.IssueCommentEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return http.StatusBadRequest, err
		}
		return s.handleIssueComment(l, event)
	default:
		l.Debug("Ignoring unhandled event type.")
		return http.StatusOK, nil
	}
}

// admit takes a comment body plus its origin, extracts and parses the
// trigger phrase, constructs the typed job and enqueues it. The pending
// status is posted before the webhook response so senders observe the
// admission.
func (s *Server) admit(l *logrus.Entry, body string, intake *api.Submission) (int, error) {
	cfg := s.ConfigAgent.Config()
	phrase, found := submissionPhrase(cfg, body)
	if !found {
		return http.StatusOK, nil
	}
	l = l.WithFields(logrus.Fields{"repo": intake.Repo, "sha": intake.StatusSHA})
	l.Infof("Found trigger phrase %q.", phrase)

	job, err := s.construct(phrase, intake)
	if err != nil {
		msg := api.UserMessage(err)
		if serr := s.Reporter.Status(intake, github.StatusError, msg, ""); serr != nil {
			l.WithError(serr).Warn("Could not post the rejection status.")
		}
		return http.StatusBadRequest, errors.New(msg)
	}

	if err := s.Reporter.Status(intake, github.StatusPending, fmt.Sprintf("accepted %s", job.Summary()), ""); err != nil {
		l.WithError(err).Warn("Could not post the accepted status.")
	}
	s.Queue.Push(job)
	l.Infof("Queued %s.", job.Summary())
	return http.StatusAccepted, nil
}

func (s *Server) construct(phrase string, intake *api.Submission) (jobs.Job, error) {
	parsed, err := parsePhrase(phrase)
	if err != nil {
		return nil, err
	}
	intake.Func = parsed.Func
	intake.Args = parsed.Args
	intake.Kwargs = parsed.Kwargs
	env := &jobs.Env{GitHub: s.GitHub, Config: s.ConfigAgent.Config()}
	return jobs.Construct(env, intake)
}
