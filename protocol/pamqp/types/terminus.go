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

package types

import (
	"github.com/packetd/corda-amqp/protocol/pamqp/encoding"
)

// Source describes a link's originating terminus.
type Source struct {
	Address    string
	HasAddress bool
}

func (s *Source) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeSource, "", []fieldSlot{
		optional(s.HasAddress, func() { enc.WriteString(s.Address) }),
	})
}

func DecodeSource(dec *encoding.Decoder) (*Source, error) {
	sub, _, err := unmarshalComposite(dec, codeSource, "")
	if err != nil {
		return nil, err
	}
	s := &Source{}
	if err := readOptionalField(sub, func() (err error) { s.Address, err = sub.ReadString(); s.HasAddress = err == nil; return }); err != nil {
		return nil, err
	}
	return s, nil
}

// Target describes a link's destination terminus.
type Target struct {
	Address    string
	HasAddress bool
}

func (t *Target) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeTarget, "", []fieldSlot{
		optional(t.HasAddress, func() { enc.WriteString(t.Address) }),
	})
}

func DecodeTarget(dec *encoding.Decoder) (*Target, error) {
	sub, _, err := unmarshalComposite(dec, codeTarget, "")
	if err != nil {
		return nil, err
	}
	t := &Target{}
	if err := readOptionalField(sub, func() (err error) { t.Address, err = sub.ReadString(); t.HasAddress = err == nil; return }); err != nil {
		return nil, err
	}
	return t, nil
}
