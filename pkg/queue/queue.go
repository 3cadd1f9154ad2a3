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

// Package queue holds submitted jobs until a worker node claims them, and
// runs the per-node dispatcher loops.
package queue

import (
	"sync"

	"github.com/juliaci/nanosoldier/pkg/jobs"
)

// Queue is an in-memory FIFO of pending jobs. Claiming is atomic: two nodes
// polling concurrently never receive the same job.
type Queue struct {
	mut  sync.Mutex
	jobs []jobs.Job
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Push appends a job.
func (q *Queue) Push(j jobs.Job) {
	q.mut.Lock()
	defer q.mut.Unlock()
	q.jobs = append(q.jobs, j)
}

// Pop removes and returns the earliest job the accept predicate admits, or
// nil when no queued job qualifies. Jobs the predicate rejects keep their
// position.
func (q *Queue) Pop(accept func(jobs.Job) bool) jobs.Job {
	q.mut.Lock()
	defer q.mut.Unlock()
	for i, j := range q.jobs {
		if accept(j) {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			return j
		}
	}
	return nil
}

// Len returns the number of queued jobs.
func (q *Queue) Len() int {
	q.mut.Lock()
	defer q.mut.Unlock()
	return len(q.jobs)
}
