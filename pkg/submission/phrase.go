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

package submission

import (
	"regexp"
	"strings"

	"github.com/juliaci/nanosoldier/pkg/api"
)

// DefaultTrigger matches the bot mention followed by a backtick-delimited
// job call. Match group one is the payload handed to Parse.
const DefaultTrigger = "@nanosoldier\\s*(`[a-z_]+\\(.*?\\)`)"

// Trigger compiles a trigger expression, falling back to DefaultTrigger when
// raw is empty.
func Trigger(raw string) (*regexp.Regexp, error) {
	if raw == "" {
		raw = DefaultTrigger
	}
	return regexp.Compile("(?s)" + raw)
}

// ExtractPhrase returns the trigger payload from a comment body, if any.
func ExtractPhrase(trigger *regexp.Regexp, body string) (string, bool) {
	m := trigger.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	if len(m) > 1 {
		return m[1], true
	}
	return m[0], true
}

// Parsed is the outcome of parsing a trigger phrase. Args and Kwargs hold the
// source text of each argument, never an evaluated value.
type Parsed struct {
	Func   string
	Args   []string
	Kwargs map[string]string
}

// Parse interprets the phrase matched by the trigger regex. By contract it
// contains a single backtick-delimited run of the form
// `name(args...; kwargs...)`.
func Parse(phrase string) (*Parsed, error) {
	call, err := extractCall(phrase)
	if err != nil {
		return nil, err
	}
	c, err := parseCall(call)
	if err != nil {
		return nil, api.Submissionf("invalid job submission: %v", err)
	}
	out := &Parsed{Func: c.Fun, Kwargs: map[string]string{}}
	for _, a := range c.Args {
		if a.Name == "" {
			if len(out.Kwargs) > 0 {
				return nil, api.Submissionf("invalid job submission: positional argument after keyword argument")
			}
			out.Args = append(out.Args, a.Value.Source())
			continue
		}
		if _, dup := out.Kwargs[a.Name]; dup {
			return nil, api.Submissionf("invalid job submission: duplicate keyword argument %q", a.Name)
		}
		out.Kwargs[a.Name] = a.Value.Source()
	}
	return out, nil
}

// extractCall pulls the substring between the first pair of backticks.
func extractCall(phrase string) (string, error) {
	start := strings.Index(phrase, "`")
	if start < 0 {
		return "", api.Submissionf("invalid job submission: no backtick-delimited call found")
	}
	rest := phrase[start+1:]
	end := strings.Index(rest, "`")
	if end < 0 {
		return "", api.Submissionf("invalid job submission: unterminated backtick delimiter")
	}
	call := strings.TrimSpace(rest[:end])
	if call == "" {
		return "", api.Submissionf("invalid job submission: empty call")
	}
	return call, nil
}
