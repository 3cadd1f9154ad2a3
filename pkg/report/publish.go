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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/juliaci/nanosoldier/pkg/api"
	"github.com/juliaci/nanosoldier/pkg/git"
)

// Publisher pushes staged report directories to the shared report
// repository. Multiple uncoordinated producers may push concurrently; the
// protocol tolerates interleaving via reset + cherry-pick.
type Publisher struct {
	Repo *git.Repo
	// Branch is the report repository's main branch.
	Branch string
	// RepoSlug is owner/name of the report repository, used to build URLs.
	RepoSlug string
	// Name and Email form the commit identity.
	Name, Email string
	// Uploader, when non-nil, additionally uploads an HTML rendering and the
	// returned URL points at it.
	Uploader *Uploader
}

// URL returns the stable address of a staged report directory.
func (p *Publisher) URL(rel string) string {
	if p.Uploader != nil {
		return p.Uploader.URL(rel + "/report.html")
	}
	return fmt.Sprintf("https://github.com/%s/blob/%s/%s/report.md", p.RepoSlug, p.Branch, rel)
}

// Publish commits the working tree on a detached head, transplants the
// commit onto the latest remote tip, and pushes. A rejected push means
// another producer won the race; the staged directory survives in the clone
// and rides along with the next publication, so the job still surfaces its
// result with the last-known URL.
func (p *Publisher) Publish(rel, message string) (string, error) {
	if DryRun() {
		logrus.WithField("dir", rel).Info("Dry run: skipping report push.")
		return p.URL(rel), nil
	}
	if err := p.Repo.CheckoutDetached("HEAD"); err != nil {
		return "", &api.PublishError{Cause: err}
	}
	sha, err := p.Repo.CommitAll(message, p.Name, p.Email)
	if err != nil {
		return "", &api.PublishError{Cause: err}
	}
	if err := p.Repo.HardResetToRemote(p.Branch); err != nil {
		return "", &api.PublishError{Cause: err}
	}
	if err := p.Repo.CherryPickOurs(sha); err != nil {
		return "", &api.PublishError{Cause: err}
	}
	if err := p.Repo.Push(p.Branch); err != nil {
		if err == git.ErrPushRejected {
			logrus.WithField("dir", rel).Warn("Push rejected; commit rides along with the next publication.")
			return p.URL(rel), nil
		}
		return "", &api.PublishError{Cause: err}
	}
	if p.Uploader != nil {
		if err := p.uploadRendering(rel); err != nil {
			logrus.WithError(err).Warn("Could not upload report rendering.")
		}
	}
	return p.URL(rel), nil
}
