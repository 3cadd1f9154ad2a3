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

// Package git runs git against local clones. Remote URLs may embed
// authentication tokens, so all command output is censored before it can
// reach logs or error messages.
package git

import (
	"bytes"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Executor knows how to execute git commands in a directory.
type Executor interface {
	Run(args ...string) ([]byte, error)
}

// Censor censors content to remove secrets.
type Censor func(content []byte) []byte

// NewCensoringExecutor returns an executor rooted at dir whose combined
// output passes through censor.
func NewCensoringExecutor(dir string, censor Censor, logger *logrus.Entry) (Executor, error) {
	g, err := exec.LookPath("git")
	if err != nil {
		return nil, err
	}
	return &censoringExecutor{
		logger: logger.WithField("client", "git"),
		dir:    dir,
		git:    g,
		censor: censor,
		execute: func(dir, command string, args ...string) ([]byte, error) {
			c := exec.Command(command, args...)
			c.Dir = dir
			return c.CombinedOutput()
		},
	}, nil
}

// CensorTokens returns a Censor that redacts every given secret.
func CensorTokens(tokens ...string) Censor {
	return func(content []byte) []byte {
		for _, t := range tokens {
			if t == "" {
				continue
			}
			content = bytes.ReplaceAll(content, []byte(t), []byte("CENSORED"))
		}
		return content
	}
}

type censoringExecutor struct {
	// logger will be used to log git operations
	logger *logrus.Entry
	// dir is the location of this repo.
	dir string
	// git is the path to the git binary.
	git string
	// censor removes sensitive data from output
	censor Censor
	// execute executes a command
	execute func(dir, command string, args ...string) ([]byte, error)
}

func (e *censoringExecutor) Run(args ...string) ([]byte, error) {
	logger := e.logger.WithField("args", strings.Join(args, " "))
	b, err := e.execute(e.dir, e.git, args...)
	b = e.censor(b)
	if err != nil {
		logger.WithError(err).WithField("output", string(b)).Debug("Running command failed.")
	} else {
		logger.Debug("Running command succeeded.")
	}
	return b, err
}
