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

package queue

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/juliaci/nanosoldier/pkg/api"
	"github.com/juliaci/nanosoldier/pkg/config"
	"github.com/juliaci/nanosoldier/pkg/github"
	"github.com/juliaci/nanosoldier/pkg/jobs"
	"github.com/juliaci/nanosoldier/pkg/report"
)

// pollInterval is how often idle nodes look for work.
const pollInterval = 5 * time.Second

// Dispatcher runs one claim loop per configured worker node. Each loop polls
// the queue for jobs matching the node's kind affinity, executes them one at
// a time and reports the outcome. A panicking or failing job takes down
// neither its loop nor its siblings.
type Dispatcher struct {
	Queue       *Queue
	GitHub      jobs.GitHubClient
	Reporter    *report.Reporter
	Publisher   *report.Publisher
	Uploader    *report.Uploader
	ConfigAgent *config.Agent
}

// Start launches the node loops. It returns immediately; the loops run until
// stop is closed.
func (d *Dispatcher) Start(stop <-chan struct{}) {
	for _, n := range d.ConfigAgent.Config().Nodes {
		go d.nodeLoop(n, stop)
	}
}

func (d *Dispatcher) nodeLoop(node config.Node, stop <-chan struct{}) {
	log := logrus.WithField("node", node.Name)
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			queueDepth.Set(float64(d.Queue.Len()))
			j := d.Queue.Pop(func(j jobs.Job) bool { return accepts(node, j) })
			if j == nil {
				continue
			}
			d.runOne(node, j, log)
		}
	}
}

// accepts implements node affinity: the job kind must be among the node's
// kinds, and daily jobs only go to nodes marked for them.
func accepts(node config.Node, j jobs.Job) bool {
	if j.IsDaily() && !node.AcceptDaily {
		return false
	}
	for _, k := range node.JobKinds {
		if k == j.Kind() {
			return true
		}
	}
	return false
}

// runOne executes a single claimed job and reports its outcome. All failure
// paths are absorbed here so the loop survives.
func (d *Dispatcher) runOne(node config.Node, j jobs.Job, log *logrus.Entry) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Job panicked: %v", r)
			jobsRun.WithLabelValues(j.Kind(), "panic").Inc()
			d.reportError(j, fmt.Errorf("internal error"), log)
		}
	}()

	sub := j.Submission()
	log = log.WithFields(logrus.Fields{"kind": j.Kind(), "build": sub.Build.String()})
	log.Infof("Running %s.", j.Summary())
	if err := d.Reporter.Status(sub, github.StatusPending, fmt.Sprintf("running on node %s: %s", node.Name, j.Summary()), ""); err != nil {
		log.WithError(err).Warn("Could not post the running status.")
	}

	env := &jobs.RunEnv{
		GitHub:    d.GitHub,
		Reporter:  d.Reporter,
		Publisher: d.Publisher,
		Uploader:  d.Uploader,
		Config:    d.ConfigAgent.Config(),
		Node:      node.Name,
		CPUs:      node.CPUs,
		Log:       log,
	}

	start := time.Now()
	result, err := j.Run(env)
	jobDuration.WithLabelValues(j.Kind()).Observe(time.Since(start).Seconds())
	if err != nil {
		log.WithError(err).Error("Job failed.")
		jobsRun.WithLabelValues(j.Kind(), "error").Inc()
		d.reportError(j, err, log)
		return
	}

	state, desc := github.StatusSuccess, fmt.Sprintf("%s succeeded", j.Summary())
	body := "Your job has completed."
	if result.HasIssues {
		// Failure is downgraded to success by the reporter; detection is
		// the job doing its work.
		state, desc = github.StatusFailure, fmt.Sprintf("%s completed; possible new issues were detected", j.Summary())
		body = "Your job has completed. Possible new issues were detected."
	}
	if result.URL != "" {
		body += fmt.Sprintf(" A full report can be found [here](%s).", result.URL)
	}
	jobsRun.WithLabelValues(j.Kind(), "success").Inc()
	if err := d.Reporter.Status(sub, state, desc, result.URL); err != nil {
		log.WithError(err).Warn("Could not post the final status.")
	}
	if err := d.Reporter.Comment(sub, body); err != nil {
		log.WithError(err).Warn("Could not post the result comment.")
	}
	log.Info("Job completed.")
}

// reportError posts the error status and a reply that carries the user-safe
// message plus an admin mention. Causes stay in the logs.
func (d *Dispatcher) reportError(j jobs.Job, err error, log *logrus.Entry) {
	sub := j.Submission()
	msg := api.UserMessage(err)
	if serr := d.Reporter.Status(sub, github.StatusError, fmt.Sprintf("%s errored: %s", j.Summary(), msg), ""); serr != nil {
		log.WithError(serr).Warn("Could not post the error status.")
	}
	body := fmt.Sprintf("Your job errored: %s", msg)
	if admin := d.ConfigAgent.Config().Admin; admin != "" {
		body += fmt.Sprintf(" cc @%s", admin)
	}
	if cerr := d.Reporter.Comment(sub, body); cerr != nil {
		log.WithError(cerr).Warn("Could not post the error comment.")
	}
}
