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

package git

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

// Repo wraps an executor with the operations the bot needs: the report
// publish protocol and mirror-cached clones.
type Repo struct {
	Dir  string
	exec Executor
}

// NewRepo returns a Repo for an existing clone at dir.
func NewRepo(dir string, censor Censor, logger *logrus.Entry) (*Repo, error) {
	e, err := NewCensoringExecutor(dir, censor, logger)
	if err != nil {
		return nil, err
	}
	return &Repo{Dir: dir, exec: e}, nil
}

// EnsureClone clones url into dir, refreshing from a bare mirror under
// mirrorDir when one is configured. The mirror is shared between possibly
// multiple processes, so it is guarded by a file lock.
func EnsureClone(url, dir, mirrorDir string, censor Censor, logger *logrus.Entry) (*Repo, error) {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, err
	}
	e, err := NewCensoringExecutor(parent, censor, logger)
	if err != nil {
		return nil, err
	}
	reference := ""
	if mirrorDir != "" {
		mirror, err := ensureMirror(url, mirrorDir, censor, logger)
		if err != nil {
			return nil, err
		}
		reference = mirror
	}
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		r := &Repo{Dir: dir}
		r.exec, err = NewCensoringExecutor(dir, censor, logger)
		if err != nil {
			return nil, err
		}
		if out, err := r.exec.Run("fetch", "origin"); err != nil {
			return nil, fmt.Errorf("error fetching: %v %v", err, string(out))
		}
		return r, nil
	}
	args := []string{"clone"}
	if reference != "" {
		args = append(args, "--reference", reference, "--dissociate")
	}
	args = append(args, url, dir)
	if out, err := e.Run(args...); err != nil {
		return nil, fmt.Errorf("error cloning: %v %v", err, string(out))
	}
	return NewRepo(dir, censor, logger)
}

// ensureMirror creates or refreshes the bare mirror for url and returns its
// path. Held under a file lock because the mirror directory is shared across
// processes.
func ensureMirror(url, mirrorDir string, censor Censor, logger *logrus.Entry) (string, error) {
	if err := os.MkdirAll(mirrorDir, 0o755); err != nil {
		return "", err
	}
	name := strings.TrimSuffix(filepath.Base(url), ".git") + ".git"
	path := filepath.Join(mirrorDir, name)
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("error locking mirror: %w", err)
	}
	defer lock.Unlock()
	e, err := NewCensoringExecutor(mirrorDir, censor, logger)
	if err != nil {
		return "", err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		me, err := NewCensoringExecutor(path, censor, logger)
		if err != nil {
			return "", err
		}
		if out, err := me.Run("remote", "update", "--prune"); err != nil {
			return "", fmt.Errorf("error updating mirror: %v %v", err, string(out))
		}
		return path, nil
	}
	if out, err := e.Run("clone", "--mirror", url, path); err != nil {
		return "", fmt.Errorf("error mirroring: %v %v", err, string(out))
	}
	return path, nil
}

// Checkout checks out the given ref.
func (r *Repo) Checkout(ref string) error {
	if out, err := r.exec.Run("checkout", ref); err != nil {
		return fmt.Errorf("error checking out %q: %v %v", ref, err, string(out))
	}
	return nil
}

// CheckoutDetached detaches HEAD at the given ref.
func (r *Repo) CheckoutDetached(ref string) error {
	if out, err := r.exec.Run("checkout", "--detach", ref); err != nil {
		return fmt.Errorf("error detaching at %q: %v %v", ref, err, string(out))
	}
	return nil
}

// CommitAll stages everything and commits it with the message. Returns the
// new commit's SHA.
func (r *Repo) CommitAll(message, name, email string) (string, error) {
	commands := [][]string{
		{"add", "--all"},
		{"commit", "--allow-empty", "--message", message, "--author", fmt.Sprintf("%s <%s>", name, email)},
	}
	for _, command := range commands {
		if out, err := r.exec.Run(command...); err != nil {
			return "", fmt.Errorf("error committing %q: %v %v", message, err, string(out))
		}
	}
	return r.HeadSHA()
}

// HeadSHA returns the SHA of HEAD.
func (r *Repo) HeadSHA() (string, error) {
	out, err := r.exec.Run("rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("error resolving HEAD: %v %v", err, string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// HardResetToRemote fetches origin and hard-resets branch to its remote tip.
func (r *Repo) HardResetToRemote(branch string) error {
	commands := [][]string{
		{"fetch", "origin"},
		{"checkout", branch},
		{"reset", "--hard", "origin/" + branch},
	}
	for _, command := range commands {
		if out, err := r.exec.Run(command...); err != nil {
			return fmt.Errorf("error resetting to origin/%s: %v %v", branch, err, string(out))
		}
	}
	return nil
}

// CherryPickOurs cherry-picks sha preferring our side on conflicts, so
// unrelated concurrent additions survive.
func (r *Repo) CherryPickOurs(sha string) error {
	if out, err := r.exec.Run("cherry-pick", "--strategy", "recursive", "--strategy-option", "ours", sha); err != nil {
		return fmt.Errorf("error cherry-picking %s: %v %v", sha, err, string(out))
	}
	return nil
}

// Push pushes branch to origin. The returned error distinguishes rejected
// non-fast-forward pushes via ErrPushRejected.
func (r *Repo) Push(branch string) error {
	out, err := r.exec.Run("push", "origin", branch)
	if err != nil {
		if strings.Contains(string(out), "[rejected]") || strings.Contains(string(out), "non-fast-forward") {
			return ErrPushRejected
		}
		return fmt.Errorf("error pushing %s: %v %v", branch, err, string(out))
	}
	return nil
}

// ErrPushRejected marks a push rejected because the remote tip moved.
var ErrPushRejected = fmt.Errorf("push rejected: remote tip moved")

// SetUser configures the commit identity for the clone.
func (r *Repo) SetUser(name, email string) error {
	commands := [][]string{
		{"config", "user.name", name},
		{"config", "user.email", email},
	}
	for _, command := range commands {
		if out, err := r.exec.Run(command...); err != nil {
			return fmt.Errorf("error configuring identity: %v %v", err, string(out))
		}
	}
	return nil
}
