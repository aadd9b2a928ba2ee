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
)

// field and marshal/unmarshal mirror protocol/pamqp/types' composite
// helpers: Corda's own described composites (Envelope, Schema, ...) are
// always numeric-descriptor, fixed-field-order lists, the same shape as
// the AMQP performatives, just addressed under the net.corda descriptor
// space instead of amqp's.
type field struct {
	present bool
	write   func()
}

func optField(present bool, write func()) field {
	return field{present: present, write: write}
}

func marshal(enc *encoding.Encoder, code uint64, fields []field) {
	enc.WriteDescriptorCode(code)

	mark := enc.BeginList()
	for _, f := range fields {
		if f.present {
			f.write()
		} else {
			enc.WriteNull()
		}
	}
	enc.EndList(mark, len(fields))
}

func unmarshal(dec *encoding.Decoder, code uint64) (*encoding.Decoder, error) {
	descr, err := dec.ReadDescriptor()
	if err != nil {
		return nil, errors.Wrap(err, "envelope: reading composite descriptor")
	}
	if !descr.MatchesCode(code) {
		return nil, errors.Errorf("envelope: unexpected descriptor %+v for code 0x%x", descr, code)
	}
	sub, _, err := dec.EnterList()
	return sub, err
}

// marshalSymbol and unmarshalSymbol are marshal/unmarshal's counterparts
// for the Corda composites in this package (Success and Failure) whose
// source annotates them with a symbolic descriptor name instead of a
// numeric code.
func marshalSymbol(enc *encoding.Encoder, name string, fields []field) {
	enc.WriteDescriptorSymbol(name)

	mark := enc.BeginList()
	for _, f := range fields {
		if f.present {
			f.write()
		} else {
			enc.WriteNull()
		}
	}
	enc.EndList(mark, len(fields))
}

func unmarshalSymbol(dec *encoding.Decoder, name string) (*encoding.Decoder, error) {
	descr, err := dec.ReadDescriptor()
	if err != nil {
		return nil, errors.Wrap(err, "envelope: reading composite descriptor")
	}
	if !descr.MatchesName(name) {
		return nil, errors.Errorf("envelope: unexpected descriptor %+v for name %s", descr, name)
	}
	sub, _, err := dec.EnterList()
	return sub, err
}

func optRead(sub *encoding.Decoder, read func() error) error {
	if !sub.More() {
		return nil
	}
	if sub.IsNull() {
		return sub.ReadNull()
	}
	return read()
}
