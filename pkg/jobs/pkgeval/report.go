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

package pkgeval

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/juliaci/nanosoldier/pkg/api"
	"github.com/juliaci/nanosoldier/pkg/jobs"
	"github.com/juliaci/nanosoldier/pkg/report"
)

// assemble lays out the staging directory and moves it into the report
// repository clone. Daily runs additionally record their anchor, refresh the
// blocklist and repoint the latest symlink.
func (j *Job) assemble(env *jobs.RunEnv, tmp string, primary, against *side, newFailures map[string]PackageResult) (string, error) {
	dataDir := filepath.Join(tmp, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", api.Runf(err, "could not assemble report")
	}
	if err := writeJSON(filepath.Join(dataDir, "build_primary.json"), primary.Build); err != nil {
		return "", api.Runf(err, "could not assemble report")
	}
	if err := writeJSON(filepath.Join(dataDir, "results_primary.json"), primary.Results); err != nil {
		return "", api.Runf(err, "could not assemble report")
	}
	if against != nil {
		if err := writeJSON(filepath.Join(dataDir, "build_against.json"), against.Build); err != nil {
			return "", api.Runf(err, "could not assemble report")
		}
		if err := writeJSON(filepath.Join(dataDir, "results_against.json"), against.Results); err != nil {
			return "", api.Runf(err, "could not assemble report")
		}
	}

	staging := filepath.Join(tmp, "staging")
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return "", api.Runf(err, "could not assemble report")
	}
	md := j.renderMarkdown(primary, against, newFailures)
	if err := os.WriteFile(filepath.Join(staging, "report.md"), []byte(md), 0o644); err != nil {
		return "", api.Runf(err, "could not assemble report")
	}
	if err := report.Archive(dataDir, filepath.Join(staging, "data.tar.zst")); err != nil {
		return "", api.Runf(err, "could not archive results")
	}
	if err := os.Rename(filepath.Join(tmp, "logs"), filepath.Join(staging, "logs")); err != nil {
		return "", api.Runf(err, "could not assemble report")
	}
	if j.Daily {
		rec := dailyRecord{Date: j.Date.Format("2006-01-02"), Build: primary.Build}
		if err := writeJSON(filepath.Join(staging, "db.json"), rec); err != nil {
			return "", api.Runf(err, "could not record daily state")
		}
	}

	subdir, name := "by_hash", report.HashDirName(primary.Build, buildOf(against))
	if j.Daily {
		subdir, name = "by_date", report.DateDirName(j.Date)
	}
	rel, err := report.Stage(env.Config.ReportDir, jobs.KindPkgEval, subdir, name, staging)
	if err != nil {
		return "", api.Runf(err, "could not stage report")
	}

	if j.Daily {
		if err := j.writeBlocklist(env, primary); err != nil {
			env.Log.WithError(err).Warn("Could not refresh the package blocklist.")
		}
		if err := report.UpdateLatest(env.Config.ReportDir, jobs.KindPkgEval, name); err != nil {
			env.Log.WithError(err).Warn("Could not update the latest pointer.")
		}
	}
	return rel, nil
}

// writeBlocklist replaces the exclusion list with the packages that did not
// pass today's baseline.
func (j *Job) writeBlocklist(env *jobs.RunEnv, primary *side) error {
	var pkgs []string
	for pkg, r := range primary.Results {
		if r.Status == StatusFail || r.Status == StatusCrash {
			pkgs = append(pkgs, pkg)
		}
	}
	sort.Strings(pkgs)
	return writeJSON(filepath.Join(env.Config.ReportDir, jobs.KindPkgEval, blocklistFile), pkgs)
}

func (j *Job) publish(env *jobs.RunEnv, rel string) (string, error) {
	message := fmt.Sprintf("%s results for %s", jobs.KindPkgEval, j.Summary())
	return env.Publisher.Publish(rel, message)
}

func buildOf(s *side) *api.BuildRef {
	if s == nil {
		return nil
	}
	return s.Build
}

var statusOrder = []string{StatusCrash, StatusFail, StatusSkip, StatusOK}

var statusHeading = map[string]string{
	StatusCrash: "Crashed packages",
	StatusFail:  "Failed packages",
	StatusSkip:  "Skipped packages",
	StatusOK:    "Passed packages",
}

func (j *Job) renderMarkdown(primary, against *side, newFailures map[string]PackageResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Package Evaluation Report\n\n")
	fmt.Fprintf(&b, "## Job Properties\n\n")
	fmt.Fprintf(&b, "*Commit:* %s\n\n", primary.Build)
	if against != nil {
		fmt.Fprintf(&b, "*Comparison commit:* %s\n\n", against.Build)
	}
	if len(j.Packages) > 0 {
		fmt.Fprintf(&b, "*Package selection:* `%s`\n\n", strings.Join(j.Packages, "`, `"))
	}
	fmt.Fprintf(&b, "*Triggered by:* %s\n\n", j.sub.URL)

	counts := map[string]int{}
	for _, r := range primary.Results {
		counts[r.Status]++
	}
	fmt.Fprintf(&b, "In total, %d packages were evaluated", len(primary.Results))
	var parts []string
	for _, st := range statusOrder {
		if counts[st] > 0 {
			parts = append(parts, fmt.Sprintf("%d %sed", counts[st], verb(st)))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(parts, ", "))
	}
	b.WriteString(".\n\n")

	if against != nil {
		fmt.Fprintf(&b, "## New Issues\n\n")
		if len(newFailures) == 0 {
			fmt.Fprintf(&b, "No new package issues were detected.\n\n")
		} else {
			fmt.Fprintf(&b, "These packages passed on the comparison build but not on this one:\n\n")
			fmt.Fprintf(&b, "| Package | status | reason |\n|---|---|---|\n")
			for _, pkg := range sortedPackages(newFailures) {
				r := newFailures[pkg]
				fmt.Fprintf(&b, "| `%s` | %s | %s |\n", pkg, r.Status, r.Reason)
			}
			b.WriteString("\n")
		}
	}

	for _, st := range statusOrder {
		if st == StatusOK && counts[st] > 50 {
			// A full pass list on an all-registry run is noise.
			fmt.Fprintf(&b, "## %s\n\n%d packages passed.\n\n", statusHeading[st], counts[st])
			continue
		}
		group := map[string]PackageResult{}
		for pkg, r := range primary.Results {
			if r.Status == st {
				group[pkg] = r
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", statusHeading[st])
		fmt.Fprintf(&b, "| Package | version | duration | reason |\n|---|---|---|---|\n")
		for _, pkg := range sortedPackages(group) {
			r := group[pkg]
			fmt.Fprintf(&b, "| `%s` | %s | %.0fs | %s |\n", pkg, orDash(r.Version), r.Duration, orDash(r.Reason))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Version Info\n\n")
	fmt.Fprintf(&b, "### Primary\n\n```\n%s\n```\n", primary.Build.VersionInfo)
	if against != nil {
		fmt.Fprintf(&b, "\n### Comparison\n\n```\n%s\n```\n", against.Build.VersionInfo)
	}
	return b.String()
}

func verb(status string) string {
	switch status {
	case StatusOK:
		return "pass"
	case StatusSkip:
		return "skipp"
	default:
		return status
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sortedPackages(m map[string]PackageResult) []string {
	pkgs := make([]string, 0, len(m))
	for k := range m {
		pkgs = append(pkgs, k)
	}
	sort.Strings(pkgs)
	return pkgs
}
