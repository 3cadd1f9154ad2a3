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
	"strings"

	"github.com/juliaci/nanosoldier/pkg/api"
	"github.com/juliaci/nanosoldier/pkg/submission"
)

// ResolveReference converts a `vs` keyword value into a pinned BuildRef.
// The value is the stored source text of a string literal; its contents
// follow the grammar `[owner/name](:|@|#)ref`, or the special `%self`.
// `:` resolves a branch head, `@` a commit SHA, `#` a tag. defaultRepo is
// used when no owner/name prefix is present.
func ResolveReference(env *Env, sub *api.Submission, src, defaultRepo string) (*api.BuildRef, error) {
	node, err := submission.ParseExpression(src)
	if err != nil {
		return nil, api.Validationf("invalid vs value %s: %v", src, err)
	}
	lit, ok := node.(*submission.Lit)
	if !ok || lit.Kind != submission.StringLit {
		return nil, api.Validationf("vs value must be a string literal, got %s", src)
	}
	ref := submission.Unquote(lit.Text)

	if ref == "%self" {
		return sub.Build.Copy(), nil
	}

	i := strings.IndexAny(ref, ":@#")
	if i < 0 {
		return nil, api.Validationf("invalid vs reference %q: no separator", ref)
	}
	repo := defaultRepo
	if i > 0 {
		repo = ref[:i]
		if !strings.Contains(repo, "/") {
			return nil, api.Validationf("invalid vs reference %q: repo prefix must be owner/name", ref)
		}
	}
	sep, name := ref[i], ref[i+1:]
	if name == "" {
		return nil, api.Validationf("invalid vs reference %q: empty ref name", ref)
	}

	switch sep {
	case ':':
		b, err := env.GitHub.GetBranch(repo, name)
		if err != nil {
			return nil, api.Validationf("cannot resolve branch %q on %s: %v", name, repo, err)
		}
		return api.NewBuildRef(repo, b.Commit.SHA, b.Commit.Commit.Committer.Date), nil
	case '@':
		return resolveCommit(env, repo, name)
	case '#':
		tagSHA, err := env.GitHub.GetRef(repo, "tags/"+name)
		if err != nil {
			return nil, api.Validationf("cannot resolve tag %q on %s: %v", name, repo, err)
		}
		target := tagSHA
		// Annotated tags need one more dereference to the commit.
		if t, err := env.GitHub.GetTag(repo, tagSHA); err == nil && t.Object.SHA != "" {
			target = t.Object.SHA
		}
		return resolveCommit(env, repo, target)
	}
	return nil, api.Validationf("invalid vs reference %q", ref)
}

func resolveCommit(env *Env, repo, sha string) (*api.BuildRef, error) {
	c, err := env.GitHub.GetSingleCommit(repo, sha)
	if err != nil {
		return nil, api.Validationf("cannot resolve commit %q on %s: %v", sha, repo, err)
	}
	return api.NewBuildRef(repo, c.SHA, c.Commit.Committer.Date), nil
}
