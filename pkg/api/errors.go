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

package api

import "fmt"

// SubmissionError marks a malformed trigger phrase or a violation of a job
// type's grammar. Surfaced to the user as "invalid job submission" and to the
// webhook sender as a 400.
type SubmissionError struct {
	Msg string
}

func (e *SubmissionError) Error() string { return e.Msg }

// Submissionf constructs a SubmissionError.
func Submissionf(format string, args ...interface{}) error {
	return &SubmissionError{Msg: fmt.Sprintf(format, args...)}
}

// ValidationError marks a syntactically well-formed submission that is
// semantically rejected, e.g. isdaily from a PR or an unresolvable vs ref.
// Same user surface as SubmissionError.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf constructs a ValidationError.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// RunError wraps a failure during a job run. Only Msg is ever shown publicly;
// Cause may contain command invocations, and command invocations may contain
// tokens, so it goes to the node-local log only.
type RunError struct {
	// Msg is the user-safe summary.
	Msg string
	// Cause is the underlying error. Never user-facing.
	Cause error
}

func (e *RunError) Error() string { return e.Msg }

// Unwrap exposes the cause for logging.
func (e *RunError) Unwrap() error { return e.Cause }

// Runf wraps err with a user-safe message.
func Runf(err error, format string, args ...interface{}) error {
	return &RunError{Msg: fmt.Sprintf(format, args...), Cause: err}
}

// PublishError marks a failure to publish the report. The job still replies,
// noting that the upload failed.
type PublishError struct {
	Cause error
}

func (e *PublishError) Error() string { return "failed to upload report" }

func (e *PublishError) Unwrap() error { return e.Cause }

// UserMessage extracts the part of err that is safe to surface publicly.
// Unknown errors collapse to a generic message; their detail stays in the
// logs.
func UserMessage(err error) string {
	switch e := err.(type) {
	case *SubmissionError:
		return e.Msg
	case *ValidationError:
		return e.Msg
	case *RunError:
		return e.Msg
	case *PublishError:
		return e.Error()
	}
	return "an unexpected error occurred"
}
