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

package main

import (
	"bytes"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/juliaci/nanosoldier/pkg/config"
	"github.com/juliaci/nanosoldier/pkg/git"
	"github.com/juliaci/nanosoldier/pkg/github"
	"github.com/juliaci/nanosoldier/pkg/hook"
	"github.com/juliaci/nanosoldier/pkg/jobs"
	"github.com/juliaci/nanosoldier/pkg/logrusutil"
	"github.com/juliaci/nanosoldier/pkg/queue"
	"github.com/juliaci/nanosoldier/pkg/report"

	// Register the job constructors.
	_ "github.com/juliaci/nanosoldier/pkg/jobs/benchmark"
	_ "github.com/juliaci/nanosoldier/pkg/jobs/pkgeval"
)

type options struct {
	port int

	configPath    string
	hmacSecret    string
	tokenFile     string
	githubAPIBase string
	statusContext string
	dryRun        bool
}

func gatherOptions() options {
	o := options{}
	flag.IntVar(&o.port, "port", 8888, "Port to listen on.")
	flag.StringVar(&o.configPath, "config-path", "/etc/nanosoldier/config.yaml", "Path to config.yaml.")
	flag.StringVar(&o.hmacSecret, "hmac-secret-file", "/etc/webhook/hmac", "Path to the file containing the GitHub HMAC secret.")
	flag.StringVar(&o.tokenFile, "github-token-file", "/etc/github/oauth", "Path to the file containing the GitHub OAuth token.")
	flag.StringVar(&o.githubAPIBase, "github-endpoint", github.DefaultAPIBase, "GitHub's API endpoint.")
	flag.StringVar(&o.statusContext, "status-context", "nanosoldier", "Context used on commit statuses.")
	flag.BoolVar(&o.dryRun, "dry-run", false, "Query GitHub but do not mutate it.")
	flag.Parse()
	return o
}

func main() {
	o := gatherOptions()
	logrusutil.ComponentInit("nanosoldier")

	webhookSecret, err := os.ReadFile(o.hmacSecret)
	if err != nil {
		logrus.WithError(err).Fatal("Could not read webhook secret file.")
	}
	webhookSecret = bytes.TrimSpace(webhookSecret)

	token, err := os.ReadFile(o.tokenFile)
	if err != nil {
		logrus.WithError(err).Fatal("Could not read oauth token file.")
	}
	oauthToken := string(bytes.TrimSpace(token))

	var ghc *github.Client
	if o.dryRun {
		ghc = github.NewDryRunClient(oauthToken, o.githubAPIBase)
	} else {
		ghc = github.NewClient(oauthToken, o.githubAPIBase)
	}

	configAgent := &config.Agent{}
	if err := configAgent.Start(o.configPath); err != nil {
		logrus.WithError(err).Fatal("Could not load config.")
	}
	cfg := configAgent.Config()

	censor := git.CensorTokens(oauthToken)
	cloneURL := fmt.Sprintf("https://%s:%s@github.com/%s.git", cfg.User, oauthToken, cfg.ReportRepo)
	reportRepo, err := git.EnsureClone(cloneURL, cfg.ReportDir, cfg.MirrorDir, censor, logrus.WithField("repo", cfg.ReportRepo))
	if err != nil {
		logrus.WithError(err).Fatal("Could not clone the report repository.")
	}
	if err := reportRepo.SetUser(cfg.User, cfg.User+"@users.noreply.github.com"); err != nil {
		logrus.WithError(err).Fatal("Could not configure the report clone identity.")
	}

	uploader, err := report.NewUploader(cfg.Bucket, cfg.BucketRegion)
	if err != nil {
		logrus.WithError(err).Fatal("Could not set up the object-store uploader.")
	}
	repoInfo, err := ghc.GetRepo(cfg.ReportRepo)
	if err != nil {
		logrus.WithError(err).Fatal("Could not resolve the report repository.")
	}
	publisher := &report.Publisher{
		Repo:     reportRepo,
		Branch:   repoInfo.DefaultBranch,
		RepoSlug: cfg.ReportRepo,
		Name:     cfg.User,
		Email:    cfg.User + "@users.noreply.github.com",
		Uploader: uploader,
	}
	reporter := report.NewReporter(ghc, o.statusContext)

	jobQueue := queue.New()
	dispatcher := &queue.Dispatcher{
		Queue:       jobQueue,
		GitHub:      ghc,
		Reporter:    reporter,
		Publisher:   publisher,
		Uploader:    uploader,
		ConfigAgent: configAgent,
	}
	stop := make(chan struct{})
	dispatcher.Start(stop)

	server := &hook.Server{
		TokenGenerator: func() []byte { return webhookSecret },
		GitHub:         ghc,
		Reporter:       reporter,
		Queue:          jobQueue,
		ConfigAgent:    configAgent,
	}

	// Fail fast if no node can take daily work for a registered kind.
	for _, kind := range []string{jobs.KindBenchmark, jobs.KindPkgEval} {
		if !cfg.DailyNode(kind) {
			logrus.WithField("kind", kind).Warn("No node accepts daily jobs of this kind.")
		}
	}

	http.Handle("/", server)
	http.Handle("/metrics", promhttp.Handler())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logrus.Info("Shutting down.")
		close(stop)
		os.Exit(0)
	}()

	logrus.WithField("port", o.port).Info("Listening.")
	logrus.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", o.port), nil))
}
