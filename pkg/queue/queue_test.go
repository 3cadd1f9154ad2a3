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

package queue

import (
	"sync"
	"testing"

	"github.com/juliaci/nanosoldier/pkg/api"
	"github.com/juliaci/nanosoldier/pkg/config"
	"github.com/juliaci/nanosoldier/pkg/jobs"
)

// stubJob implements jobs.Job for queue tests.
type stubJob struct {
	id    string
	kind  string
	daily bool
}

func (s *stubJob) Submission() *api.Submission            { return &api.Submission{} }
func (s *stubJob) Kind() string                           { return s.kind }
func (s *stubJob) IsDaily() bool                          { return s.daily }
func (s *stubJob) Summary() string                        { return s.id }
func (s *stubJob) Run(*jobs.RunEnv) (*jobs.Result, error) { return &jobs.Result{}, nil }

func acceptAll(jobs.Job) bool { return false }

func TestQueueFIFO(t *testing.T) {
	q := New()
	q.Push(&stubJob{id: "a", kind: "benchmark"})
	q.Push(&stubJob{id: "b", kind: "pkgeval"})
	q.Push(&stubJob{id: "c", kind: "benchmark"})
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}

	all := func(jobs.Job) bool { return true }
	var order []string
	for j := q.Pop(all); j != nil; j = q.Pop(all) {
		order = append(order, j.Summary())
	}
	if got, want := len(order), 3; got != want {
		t.Fatalf("popped %d jobs, want %d", got, want)
	}
	for i, want := range []string{"a", "b", "c"} {
		if order[i] != want {
			t.Errorf("pop %d = %q, want %q", i, order[i], want)
		}
	}
}

func TestQueuePopSkipsRejected(t *testing.T) {
	q := New()
	q.Push(&stubJob{id: "a", kind: "benchmark"})
	q.Push(&stubJob{id: "b", kind: "pkgeval"})
	q.Push(&stubJob{id: "c", kind: "benchmark"})

	onlyPkgeval := func(j jobs.Job) bool { return j.Kind() == "pkgeval" }
	j := q.Pop(onlyPkgeval)
	if j == nil || j.Summary() != "b" {
		t.Fatalf("Pop = %v, want job b", j)
	}
	// Rejected jobs keep their relative order.
	all := func(jobs.Job) bool { return true }
	if j := q.Pop(all); j.Summary() != "a" {
		t.Errorf("next pop = %q, want a", j.Summary())
	}
	if j := q.Pop(all); j.Summary() != "c" {
		t.Errorf("next pop = %q, want c", j.Summary())
	}
}

func TestQueuePopEmpty(t *testing.T) {
	q := New()
	if j := q.Pop(func(jobs.Job) bool { return true }); j != nil {
		t.Errorf("Pop on empty queue = %v, want nil", j)
	}
	q.Push(&stubJob{id: "a", kind: "benchmark"})
	if j := q.Pop(acceptAll); j != nil {
		t.Errorf("Pop with rejecting predicate = %v, want nil", j)
	}
	if q.Len() != 1 {
		t.Errorf("rejected job vanished, Len() = %d", q.Len())
	}
}

// Two concurrent claimants must never receive the same job.
func TestQueueConcurrentPop(t *testing.T) {
	q := New()
	const n = 100
	for i := 0; i < n; i++ {
		q.Push(&stubJob{id: string(rune('a' + i%26)), kind: "benchmark"})
	}

	var mut sync.Mutex
	var claimed int
	var wg sync.WaitGroup
	all := func(jobs.Job) bool { return true }
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if j := q.Pop(all); j == nil {
					return
				}
				mut.Lock()
				claimed++
				mut.Unlock()
			}
		}()
	}
	wg.Wait()
	if claimed != n {
		t.Errorf("claimed %d jobs, want %d", claimed, n)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d after draining, want 0", q.Len())
	}
}

func TestNodeAffinity(t *testing.T) {
	var testcases = []struct {
		name   string
		node   config.Node
		job    *stubJob
		accept bool
	}{
		{
			name:   "matching kind",
			node:   config.Node{Name: "n1", JobKinds: []string{"benchmark"}},
			job:    &stubJob{kind: "benchmark"},
			accept: true,
		},
		{
			name:   "wrong kind",
			node:   config.Node{Name: "n1", JobKinds: []string{"benchmark"}},
			job:    &stubJob{kind: "pkgeval"},
			accept: false,
		},
		{
			name:   "daily job needs a daily node",
			node:   config.Node{Name: "n1", JobKinds: []string{"benchmark"}},
			job:    &stubJob{kind: "benchmark", daily: true},
			accept: false,
		},
		{
			name:   "daily node takes daily jobs",
			node:   config.Node{Name: "n1", JobKinds: []string{"benchmark"}, AcceptDaily: true},
			job:    &stubJob{kind: "benchmark", daily: true},
			accept: true,
		},
		{
			name:   "multi-kind node",
			node:   config.Node{Name: "n1", JobKinds: []string{"benchmark", "pkgeval"}},
			job:    &stubJob{kind: "pkgeval"},
			accept: true,
		},
	}
	for _, tc := range testcases {
		if got := accepts(tc.node, tc.job); got != tc.accept {
			t.Errorf("%s: accepts = %v, want %v", tc.name, got, tc.accept)
		}
	}
}
