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

package envelope

import (
	"github.com/pkg/errors"

	"github.com/packetd/corda-amqp/protocol/pamqp/encoding"
	"github.com/packetd/corda-amqp/protocol/protoerr"
)

// successName is the descriptor name every Corda broker in the wild
// actually ships for the Success<T> variant.
const successName = "net.corda:e+qsW/cJ4ajGpb8YkJWB1A=="

// FailureName is the descriptor name this client matches against the
// Failure<T> variant. The upstream source carries only a placeholder
// ("net.corda:????????????????????????") in this slot; the real
// fingerprint was never available to retrieve, so this is a required
// configuration point rather than a discovered constant — set it to
// whatever value the target broker actually advertises before relying
// on Failure decoding against a live server.
var FailureName = "net.corda:????????????????????????"

// Success wraps the value returned by a call that completed normally.
// Value is the raw encoded reply payload; the caller decodes it against
// whatever shape the RPC method declares.
type Success struct {
	Value []byte
}

func (s *Success) encode(enc *encoding.Encoder) {
	marshalSymbol(enc, successName, []field{
		optField(true, func() { enc.WriteRaw(s.Value) }),
	})
}

func decodeSuccess(dec *encoding.Decoder) (*Success, error) {
	sub, err := unmarshalSymbol(dec, successName)
	if err != nil {
		return nil, err
	}
	s := &Success{}
	if sub.More() {
		if s.Value, err = sub.CaptureValue(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Failure wraps the value returned by a call that completed with a
// Corda-level error rather than a transport failure.
type Failure struct {
	Value []byte
}

func (f *Failure) encode(enc *encoding.Encoder) {
	marshalSymbol(enc, FailureName, []field{
		optField(true, func() { enc.WriteRaw(f.Value) }),
	})
}

func decodeFailure(dec *encoding.Decoder) (*Failure, error) {
	sub, err := unmarshalSymbol(dec, FailureName)
	if err != nil {
		return nil, err
	}
	f := &Failure{}
	if sub.More() {
		if f.Value, err = sub.CaptureValue(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Try is the tagged choice an RPC reply's envelope payload always
// decodes as: exactly one of Success or Failure is populated.
type Try struct {
	Success *Success
	Failure *Failure
}

// EncodeTry writes a Try value in the shape an Envelope's Obj field
// holds for every RPC reply. Exactly one of t.Success or t.Failure must
// be set.
func EncodeTry(t *Try) []byte {
	enc := encoding.NewEncoder()
	defer enc.Release()
	switch {
	case t.Success != nil:
		t.Success.encode(enc)
	case t.Failure != nil:
		t.Failure.encode(enc)
	}
	return append([]byte(nil), enc.Bytes()...)
}

// DecodeTry reads a Try value from raw encoded bytes, the shape an
// Envelope's Obj field holds for every RPC reply.
func DecodeTry(raw []byte) (*Try, error) {
	dec := encoding.NewDecoder(raw)
	peek := encoding.NewDecoder(dec.Remaining())
	descr, err := peek.ReadDescriptor()
	if err != nil {
		return nil, errors.Wrap(err, "envelope: peeking try descriptor")
	}
	switch {
	case descr.MatchesName(successName):
		s, err := decodeSuccess(dec)
		if err != nil {
			return nil, err
		}
		return &Try{Success: s}, nil
	case descr.MatchesName(FailureName):
		f, err := decodeFailure(dec)
		if err != nil {
			return nil, err
		}
		return &Try{Failure: f}, nil
	default:
		return nil, errors.Wrapf(protoerr.InvalidData, "envelope: unrecognized try descriptor %+v", descr)
	}
}
