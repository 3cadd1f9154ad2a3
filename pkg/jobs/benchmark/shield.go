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

package benchmark

import (
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"
)

// cpuShield serializes access to the process-wide cset CPU shield. The
// shield is reset before and after every run so a crashed job cannot leave
// stale shielding behind.
type cpuShield struct {
	mu sync.Mutex
}

var shield cpuShield

func (s *cpuShield) acquire(execute execFunc) {
	s.mu.Lock()
	if _, err := exec.LookPath("cset"); err != nil {
		return
	}
	if out, err := execute("", "cset", "shield", "--reset"); err != nil {
		logrus.WithError(err).WithField("output", string(out)).Debug("cset reset failed.")
	}
	if out, err := execute("", "cset", "shield", "-c", "1-7", "-k", "on"); err != nil {
		logrus.WithError(err).WithField("output", string(out)).Warn("Could not raise CPU shield.")
	}
}

func (s *cpuShield) release(execute execFunc) {
	defer s.mu.Unlock()
	if _, err := exec.LookPath("cset"); err != nil {
		return
	}
	if out, err := execute("", "cset", "shield", "--reset"); err != nil {
		logrus.WithError(err).WithField("output", string(out)).Debug("cset reset failed.")
	}
}
