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

// Package protoerr defines the domain-level error taxonomy shared by the
// codec, framing, and driver layers: sentinel values for errors.Is checks
// plus one typed error for the broker-surfaced Error composite.
package protoerr

import "github.com/pkg/errors"

// Sentinel errors matching the codec/framing failure modes. Layers wrap
// these with errors.Wrap to add context without losing errors.Is.
var (
	// InvalidData marks a field value or length inconsistent with the
	// wire format (a composite count exceeding its declared fields, a
	// size field that disagrees with the payload that follows it).
	InvalidData = errors.New("protoerr: invalid data")

	// UnexpectedEnd marks an input slice that ended mid-value.
	UnexpectedEnd = errors.New("protoerr: unexpected end of input")

	// TrailingCharacters marks bytes left over after a decode that
	// should have consumed its entire frame.
	TrailingCharacters = errors.New("protoerr: trailing characters after decode")

	// Io marks an underlying stream failure or unexpected close.
	Io = errors.New("protoerr: i/o failure")
)

// InvalidFormatCode marks a primitive decode that expected one of a set
// of format codes and read a byte not in that set.
type InvalidFormatCode struct {
	Expected []byte
	Got      byte
}

func (e *InvalidFormatCode) Error() string {
	return errors.Errorf("protoerr: invalid format code 0x%02x, expected one of %x", e.Got, e.Expected).Error()
}

// NewInvalidFormatCode builds an InvalidFormatCode for the given expected
// set and the code actually read.
func NewInvalidFormatCode(got byte, expected ...byte) error {
	return &InvalidFormatCode{Expected: expected, Got: got}
}

// PeerError wraps the broker's Error composite surfaced on Close, Detach,
// or a rejecting Disposition. Transport layers treat any PeerError as
// terminal for the connection; RPC-level failures are a distinct,
// successfully decoded Try.Failure value, never a PeerError.
type PeerError struct {
	Condition   string
	Description string
}

func (e *PeerError) Error() string {
	if e.Description != "" {
		return "protoerr: peer error " + e.Condition + ": " + e.Description
	}
	return "protoerr: peer error " + e.Condition
}

// IsPeerError reports whether err is, or wraps, a *PeerError.
func IsPeerError(err error) bool {
	var pe *PeerError
	return errors.As(err, &pe)
}
