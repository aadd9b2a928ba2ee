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

// SaslCode is the outcome code carried by a sasl-outcome frame.
type SaslCode uint8

const (
	SaslCodeOK      SaslCode = 0
	SaslCodeAuth    SaslCode = 1
	SaslCodeSys     SaslCode = 2
	SaslCodeSysPerm SaslCode = 3
	SaslCodeSysTemp SaslCode = 4
)

// SaslMechanisms is the server's advertisement of supported mechanisms.
type SaslMechanisms struct {
	Mechanisms []string
}

func (s *SaslMechanisms) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeSaslMechanisms, "", []fieldSlot{
		optional(true, func() { enc.WriteSymbolArray(s.Mechanisms) }),
	})
}

func DecodeSaslMechanisms(dec *encoding.Decoder) (*SaslMechanisms, error) {
	sub, _, err := unmarshalComposite(dec, codeSaslMechanisms, "")
	if err != nil {
		return nil, err
	}
	s := &SaslMechanisms{}
	if sub.More() {
		arr, count, err := sub.EnterArray()
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			m, err := arr.ReadSymbol()
			if err != nil {
				return nil, err
			}
			s.Mechanisms = append(s.Mechanisms, m)
		}
	}
	return s, nil
}

// SaslInit is the client's choice of mechanism and its initial response.
// For PLAIN this is the NUL-separated "authzid\0authcid\0password" blob.
type SaslInit struct {
	Mechanism       string
	InitialResponse []byte
	Hostname        string
	HasHostname     bool
}

func (s *SaslInit) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeSaslInit, "", []fieldSlot{
		optional(true, func() { enc.WriteSymbol(s.Mechanism) }),
		optional(len(s.InitialResponse) > 0, func() { enc.WriteBinary(s.InitialResponse) }),
		optional(s.HasHostname, func() { enc.WriteString(s.Hostname) }),
	})
}

func DecodeSaslInit(dec *encoding.Decoder) (*SaslInit, error) {
	sub, _, err := unmarshalComposite(dec, codeSaslInit, "")
	if err != nil {
		return nil, err
	}
	s := &SaslInit{}
	if sub.More() {
		if s.Mechanism, err = sub.ReadSymbol(); err != nil {
			return nil, err
		}
	}
	if err := readOptionalField(sub, func() (err error) { s.InitialResponse, err = sub.ReadBinary(); return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { s.Hostname, err = sub.ReadString(); s.HasHostname = err == nil; return }); err != nil {
		return nil, err
	}
	return s, nil
}

// SaslOutcome reports whether the SASL exchange succeeded.
type SaslOutcome struct {
	Code SaslCode
}

func (s *SaslOutcome) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeSaslOutcome, "", []fieldSlot{
		optional(true, func() { enc.WriteUbyte(uint8(s.Code)) }),
	})
}

func DecodeSaslOutcome(dec *encoding.Decoder) (*SaslOutcome, error) {
	sub, _, err := unmarshalComposite(dec, codeSaslOutcome, "")
	if err != nil {
		return nil, err
	}
	s := &SaslOutcome{}
	if sub.More() {
		code, err := sub.ReadUbyte()
		if err != nil {
			return nil, err
		}
		s.Code = SaslCode(code)
	}
	return s, nil
}

// PlainInitialResponse builds the SASL PLAIN initial-response blob:
// authzid NUL authcid NUL password. authzid is conventionally empty.
func PlainInitialResponse(username, password string) []byte {
	buf := make([]byte, 0, len(username)+len(password)+2)
	buf = append(buf, 0)
	buf = append(buf, username...)
	buf = append(buf, 0)
	buf = append(buf, password...)
	return buf
}
