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
	"os"
	"path/filepath"
	"time"

	"github.com/juliaci/nanosoldier/pkg/api"
)

// HashDirName encodes a report directory name from a shortened SHA pair.
func HashDirName(primary, against *api.BuildRef) string {
	if DryRun() {
		return "redacted_vs_redacted"
	}
	if against == nil {
		return primary.ShortSHA()
	}
	return fmt.Sprintf("%s_vs_%s", primary.ShortSHA(), against.ShortSHA())
}

// DateDirName encodes a daily report directory, YYYY-MM/DD.
func DateDirName(date time.Time) string {
	return filepath.Join(date.Format("2006-01"), date.Format("02"))
}

// Stage renames the job-local directory src into its deterministic location
// under the report repository and returns the path relative to the repo
// root. Re-staging the same directory replaces the previous contents, so
// publishing twice is a no-op modulo commit metadata.
func Stage(reportDir, jobKind, subdir, name, src string) (string, error) {
	rel := filepath.Join(jobKind, subdir, name)
	if DryRun() {
		rel = name
	}
	dest := filepath.Join(reportDir, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	if err := os.RemoveAll(dest); err != nil {
		return "", err
	}
	if err := os.Rename(src, dest); err != nil {
		return "", fmt.Errorf("error staging %s: %w", rel, err)
	}
	return rel, nil
}

// UpdateLatest atomically points <reportDir>/<jobKind>/by_date/latest at the
// given date directory (relative to by_date).
func UpdateLatest(reportDir, jobKind, dateRel string) error {
	base := filepath.Join(reportDir, jobKind, "by_date")
	tmp := filepath.Join(base, ".latest.tmp")
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Symlink(dateRel, tmp); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(base, "latest"))
}

// ReadLatest resolves the daily "latest" pointer, returning the date
// directory it names.
func ReadLatest(reportDir, jobKind string) (string, error) {
	return os.Readlink(filepath.Join(reportDir, jobKind, "by_date", "latest"))
}
