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

package rpc

import "github.com/packetd/corda-amqp/corda/envelope"

// FailureFingerprint points at the descriptor name this client matches a
// reply envelope's Obj against to recognize a Try.Failure variant. It is
// a *string, not a string, so that `*rpc.FailureFingerprint = "..."`
// mutates the one value envelope.DecodeTry actually reads — the
// upstream source only ever carried a placeholder in this slot, so
// callers targeting a specific broker build must set this to that
// broker's real fingerprint before issuing any call.
var FailureFingerprint = &envelope.FailureName

// Error is returned by Call for any failure that kept it from producing a
// Try: a link, transport or protocol error, or a reply envelope that could
// not be parsed as a Try at all. It is distinct from a successfully
// decoded Try.Failure.
type Error struct {
	Method string
	Err    error
}

func (e *Error) Error() string {
	return "rpc: " + e.Method + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
