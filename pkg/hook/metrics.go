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

package hook

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	webhookCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nanosoldier_webhooks_total",
		Help: "Number of webhooks received, by event type.",
	}, []string{"event_type"})
	responseCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nanosoldier_webhook_responses_total",
		Help: "Number of webhook responses, by status code.",
	}, []string{"code"})
)

func init() {
	prometheus.MustRegister(webhookCounter, responseCounter)
}
