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

// Package types implements the AMQP 1.0 described composites this client
// exchanges: the connection/session/link performatives, the SASL frames,
// message sections, delivery states, and link termini. Each composite is
// a plain Go struct with its own encode/decode method pair, built atop
// the two helpers in this file rather than a reflection-driven table —
// see the module's DESIGN.md for why.
package types

import (
	"github.com/pkg/errors"

	"github.com/packetd/corda-amqp/protocol/pamqp/encoding"
)

// fieldSlot captures one ordered field of a described list: whether the
// caller set it, and how to write it when present.
type fieldSlot struct {
	present bool
	write   func()
}

func optional(present bool, write func()) fieldSlot {
	return fieldSlot{present: present, write: write}
}

// marshalComposite writes a composite's descriptor and list body. Fields
// are positional and all of them are always encoded, in order, with an
// explicit null for any field the caller left unset — the canonical form
// a described list takes on the wire, rather than trimming the trailing
// run of unset fields.
func marshalComposite(enc *encoding.Encoder, code uint64, name string, fields []fieldSlot) {
	if name != "" {
		enc.WriteDescriptorSymbol(name)
	} else {
		enc.WriteDescriptorCode(code)
	}

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

// unmarshalComposite reads and validates a composite's descriptor, then
// returns a sub-decoder positioned over its list body along with the
// number of fields actually encoded. Callers read fields off the
// returned decoder in order, checking More() before each optional field:
// once the sub-decoder runs dry, every remaining field takes its Go zero
// value, matching AMQP's omitted-trailing-field rule.
func unmarshalComposite(dec *encoding.Decoder, code uint64, name string) (*encoding.Decoder, int, error) {
	descr, err := dec.ReadDescriptor()
	if err != nil {
		return nil, 0, errors.Wrap(err, "types: reading composite descriptor")
	}
	matched := descr.MatchesCode(code)
	if name != "" {
		matched = descr.MatchesName(name)
	}
	if !matched {
		return nil, 0, errors.Errorf("types: unexpected descriptor %+v for %q", descr, name)
	}
	return dec.EnterList()
}

// readOptionalField reads the next field off sub if one remains and it
// isn't encoded as null; otherwise it leaves dst untouched (its Go zero
// value) and returns nil.
func readOptionalField(sub *encoding.Decoder, read func() error) error {
	if !sub.More() {
		return nil
	}
	if sub.IsNull() {
		return sub.ReadNull()
	}
	return read()
}
