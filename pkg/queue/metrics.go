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
	"github.com/prometheus/client_golang/prometheus"
)

var (
	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nanosoldier_queue_depth",
		Help: "Number of jobs waiting for a worker node.",
	})
	jobsRun = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nanosoldier_jobs_total",
		Help: "Number of jobs run, by kind and outcome.",
	}, []string{"kind", "outcome"})
	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nanosoldier_job_duration_seconds",
		Help:    "Wall time jobs spent running, by kind.",
		Buckets: prometheus.ExponentialBuckets(60, 2, 12),
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(queueDepth, jobsRun, jobDuration)
}
