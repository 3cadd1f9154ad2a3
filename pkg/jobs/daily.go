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

package jobs

import (
	"github.com/juliaci/nanosoldier/pkg/api"
)

// dailyWindow is how many recent default-branch commits may carry a daily
// trigger. Scheduled commits land on the branch tip; anything older is a
// replay.
const dailyWindow = 50

// ValidateDaily enforces the admission rules for isdaily=true submissions:
// the trigger must come from a commit comment, carry no other keyword
// arguments, and its status SHA must be among the most recent commits of the
// tracked repository's default branch.
func ValidateDaily(env *Env, sub *api.Submission) error {
	if sub.FromKind != api.KindCommit {
		return api.Validationf("daily jobs can only be triggered from a commit comment")
	}
	if len(sub.Kwargs) != 1 {
		return api.Validationf("daily jobs do not accept keyword arguments other than isdaily")
	}
	if sub.Kwargs["isdaily"] != "true" {
		return api.Validationf("isdaily must be the literal true")
	}
	track := env.Config.TrackRepo
	repo, err := env.GitHub.GetRepo(track)
	if err != nil {
		return api.Validationf("cannot look up %s: %v", track, err)
	}
	commits, err := env.GitHub.ListCommits(track, repo.DefaultBranch, dailyWindow)
	if err != nil {
		return api.Validationf("cannot list commits on %s: %v", track, err)
	}
	for _, c := range commits {
		if c.SHA == sub.StatusSHA {
			return nil
		}
	}
	return api.Validationf("daily trigger commit %s is not among the %d most recent commits of %s", sub.StatusSHA, dailyWindow, track)
}
