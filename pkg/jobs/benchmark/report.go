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
	"encoding/json"
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
// repository clone.
func (j *Job) assemble(env *jobs.RunEnv, tmp string, primary, against *side, judged map[string]Judgement) (string, error) {
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
	if judged != nil {
		if err := writeJSON(filepath.Join(dataDir, "judged.json"), judged); err != nil {
			return "", api.Runf(err, "could not assemble report")
		}
	}

	staging := filepath.Join(tmp, "staging")
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return "", api.Runf(err, "could not assemble report")
	}
	md := j.renderMarkdown(primary, against, judged)
	if err := os.WriteFile(filepath.Join(staging, "report.md"), []byte(md), 0o644); err != nil {
		return "", api.Runf(err, "could not assemble report")
	}
	if err := report.Archive(dataDir, filepath.Join(staging, "data.tar.zst")); err != nil {
		return "", api.Runf(err, "could not archive results")
	}
	if err := os.Rename(filepath.Join(tmp, "logs"), filepath.Join(staging, "logs")); err != nil {
		return "", api.Runf(err, "could not assemble report")
	}

	subdir, name := "by_hash", report.HashDirName(primary.Build, buildOf(against))
	if j.Daily {
		subdir, name = "by_date", report.DateDirName(j.Date)
	}
	rel, err := report.Stage(env.Config.ReportDir, jobs.KindBenchmark, subdir, name, staging)
	if err != nil {
		return "", api.Runf(err, "could not stage report")
	}
	return rel, nil
}

func (j *Job) publish(env *jobs.RunEnv, rel string) (string, error) {
	message := fmt.Sprintf("%s results for %s", jobs.KindBenchmark, j.Summary())
	return env.Publisher.Publish(rel, message)
}

func buildOf(s *side) *api.BuildRef {
	if s == nil {
		return nil
	}
	return s.Build
}

func (j *Job) renderMarkdown(primary, against *side, judged map[string]Judgement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Benchmark Report\n\n")
	fmt.Fprintf(&b, "## Job Properties\n\n")
	fmt.Fprintf(&b, "*Commit:* %s\n\n", primary.Build)
	if against != nil {
		fmt.Fprintf(&b, "*Comparison commit:* %s\n\n", against.Build)
	}
	fmt.Fprintf(&b, "*Tag predicate:* `%s`\n\n", j.TagPredicate)
	fmt.Fprintf(&b, "*Triggered by:* %s\n\n", j.sub.URL)

	if judged != nil {
		fmt.Fprintf(&b, "## Judgements\n\n")
		fmt.Fprintf(&b, "A ratio greater than `1.0` denotes a possible regression, a ratio less than `1.0` a possible improvement.\n\n")
		fmt.Fprintf(&b, "| Benchmark | time ratio | verdict |\n|---|---|---|\n")
		for _, name := range sortedJudged(judged) {
			v := judged[name]
			fmt.Fprintf(&b, "| `%s` | %.2f (%.0f%%) | %s |\n", name, v.Ratio, v.Tolerance*100, v.Mark)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Results\n\n")
	fmt.Fprintf(&b, "| Benchmark | minimum | median | mean | std |\n|---|---|---|---|---|\n")
	for _, name := range sortedResults(primary.Results) {
		m := primary.Results[name]
		fmt.Fprintf(&b, "| `%s` | %.2f | %.2f | %.2f | %.2f |\n", name, m.Minimum, m.Median, m.Mean, m.Std)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Version Info\n\n")
	fmt.Fprintf(&b, "### Primary\n\n```\n%s\n```\n", primary.Build.VersionInfo)
	if against != nil {
		fmt.Fprintf(&b, "\n### Comparison\n\n```\n%s\n```\n", against.Build.VersionInfo)
	}
	return b.String()
}

func sortedJudged(m map[string]Judgement) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func sortedResults(m map[string]Metrics) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func writeJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
