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

// Package config loads and validates the bot configuration.
package config

import (
	"fmt"
	"os"
	"regexp"

	"sigs.k8s.io/yaml"

	"github.com/juliaci/nanosoldier/pkg/submission"
)

// Node describes one worker node of the pool.
type Node struct {
	// Name identifies the node in status descriptions and logs.
	Name string `json:"name"`
	// JobKinds is the node's job-type affinity, e.g. ["benchmark"].
	JobKinds []string `json:"job_kinds"`
	// AcceptDaily marks the one node per affinity group that takes daily
	// jobs, so the rest of the pool doesn't stall on long daily runs.
	AcceptDaily bool `json:"accept_daily,omitempty"`
	// CPUs is the parallelism handed to the sandbox evaluator.
	CPUs int `json:"cpus,omitempty"`
}

// Config is the bot configuration.
type Config struct {
	// User is the GitHub account the bot acts as.
	User string `json:"user"`
	// Admin is mentioned in error replies.
	Admin string `json:"admin"`
	// TrackRepo is the repository whose commits daily jobs track, owner/name.
	TrackRepo string `json:"track_repo"`
	// ReportRepo is the repository report directories are pushed to.
	ReportRepo string `json:"report_repo"`
	// ReportDir is the local clone of ReportRepo.
	ReportDir string `json:"report_dir"`
	// WorkDir is where jobs stage temporary build and result directories.
	WorkDir string `json:"work_dir"`
	// Trigger overrides the default trigger regular expression.
	Trigger string `json:"trigger,omitempty"`
	// Bucket, when set, receives report renderings and package logs.
	Bucket string `json:"bucket,omitempty"`
	// BucketRegion is the object-store region for Bucket.
	BucketRegion string `json:"bucket_region,omitempty"`
	// MirrorDir caches bare clones shared between jobs, guarded by a file
	// lock.
	MirrorDir string `json:"mirror_dir,omitempty"`
	// TimeTolerance is the default benchmark ratio tolerance when a
	// benchmark carries no parameters of its own.
	TimeTolerance float64 `json:"time_tolerance,omitempty"`
	// Nodes is the worker pool.
	Nodes []Node `json:"nodes"`

	trigger *regexp.Regexp
}

// Load reads, parses and validates the configuration at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("error unmarshaling %s: %w", path, err)
	}
	if err := c.finalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) finalize() error {
	if c.User == "" {
		return fmt.Errorf("user must be set")
	}
	if c.TrackRepo == "" || c.ReportRepo == "" {
		return fmt.Errorf("track_repo and report_repo must be set")
	}
	if len(c.Nodes) == 0 {
		return fmt.Errorf("at least one node must be configured")
	}
	for i, n := range c.Nodes {
		if n.Name == "" {
			return fmt.Errorf("node %d has no name", i)
		}
		if len(n.JobKinds) == 0 {
			return fmt.Errorf("node %q has no job kind affinity", n.Name)
		}
	}
	if c.TimeTolerance == 0 {
		c.TimeTolerance = 0.05
	}
	trigger, err := submission.Trigger(c.Trigger)
	if err != nil {
		return fmt.Errorf("invalid trigger expression: %w", err)
	}
	c.trigger = trigger
	return nil
}

// TriggerRegexp returns the compiled trigger expression.
func (c *Config) TriggerRegexp() *regexp.Regexp {
	return c.trigger
}

// DailyNode returns whether any node accepts daily jobs of the given kind.
func (c *Config) DailyNode(kind string) bool {
	for _, n := range c.Nodes {
		if !n.AcceptDaily {
			continue
		}
		for _, k := range n.JobKinds {
			if k == kind {
				return true
			}
		}
	}
	return false
}
