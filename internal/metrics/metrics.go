// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics holds the prometheus collectors exported by the RPC
// client: call counts by method and outcome, and call latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/corda-amqp/common"
)

var (
	// RPCCallsTotal counts every completed Call, labeled by method name
	// and how it completed: success, failure (a Corda-level Try.Failure),
	// or error (a transport/protocol error).
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "rpc_calls_total",
			Help:      "RPC calls total",
		},
		[]string{"method", "outcome"},
	)

	// RPCCallDuration tracks wall-clock latency of a Call that produced a
	// Try, from the start of Call (receiver attach included) to the
	// decoded reply, in seconds.
	RPCCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: common.App,
			Name:      "rpc_call_duration_seconds",
			Help:      "RPC call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// ConnectionsOpened counts successful Connect calls.
	ConnectionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "connections_opened_total",
			Help:      "Connections opened total",
		},
	)
)
