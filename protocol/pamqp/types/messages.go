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
	"github.com/pkg/errors"

	"github.com/packetd/corda-amqp/protocol/pamqp/encoding"
)

// Any is a dynamically typed AMQP value, used for application-properties
// and footer map entries whose value type varies by key. Only the
// primitive kinds this client actually produces or consumes are
// supported; anything else decodes as ErrUnsupportedAnyKind.
type Any struct {
	Str    string
	Int    int64
	Uint   uint64
	Bool   bool
	Bytes  []byte
	Null   bool
	Kind   AnyKind
}

// AnyKind tags which field of Any is populated.
type AnyKind uint8

const (
	AnyKindNull AnyKind = iota
	AnyKindString
	AnyKindLong
	AnyKindUlong
	AnyKindBool
	AnyKindBinary
)

// ErrUnsupportedAnyKind is returned when decoding a dynamic value whose
// format code this client has no representation for.
var ErrUnsupportedAnyKind = errors.New("types: unsupported dynamic value format code")

func AnyString(s string) Any { return Any{Kind: AnyKindString, Str: s} }
func AnyLong(v int64) Any    { return Any{Kind: AnyKindLong, Int: v} }
func AnyUlong(v uint64) Any  { return Any{Kind: AnyKindUlong, Uint: v} }
func AnyBool(v bool) Any     { return Any{Kind: AnyKindBool, Bool: v} }
func AnyBinary(v []byte) Any { return Any{Kind: AnyKindBinary, Bytes: v} }

func (a Any) Encode(enc *encoding.Encoder) {
	switch a.Kind {
	case AnyKindString:
		enc.WriteString(a.Str)
	case AnyKindLong:
		enc.WriteLong(a.Int)
	case AnyKindUlong:
		enc.WriteUlong(a.Uint)
	case AnyKindBool:
		enc.WriteBool(a.Bool)
	case AnyKindBinary:
		enc.WriteBinary(a.Bytes)
	default:
		enc.WriteNull()
	}
}

// DecodeAny reads whatever primitive value is next, inferring its kind
// from the leading format code. Unlike a trial-and-error decode, this
// peeks the code once and dispatches, since a failed ReadXxx attempt
// would otherwise leave the format-code byte already consumed.
func DecodeAny(dec *encoding.Decoder) (Any, error) {
	code, err := dec.PeekCode()
	if err != nil {
		return Any{}, err
	}
	switch code {
	case encoding.TypeCodeNull:
		_ = dec.ReadNull()
		return Any{Kind: AnyKindNull, Null: true}, nil
	case encoding.TypeCodeStr8, encoding.TypeCodeStr32:
		s, err := dec.ReadString()
		if err != nil {
			return Any{}, err
		}
		return AnyString(s), nil
	case encoding.TypeCodeUlong0, encoding.TypeCodeSmallUlong, encoding.TypeCodeUlong:
		u, err := dec.ReadUlong()
		if err != nil {
			return Any{}, err
		}
		return AnyUlong(u), nil
	case encoding.TypeCodeSmallLong, encoding.TypeCodeLong:
		l, err := dec.ReadLong()
		if err != nil {
			return Any{}, err
		}
		return AnyLong(l), nil
	case encoding.TypeCodeBoolTrue, encoding.TypeCodeBoolFalse, encoding.TypeCodeBool:
		b, err := dec.ReadBool()
		if err != nil {
			return Any{}, err
		}
		return AnyBool(b), nil
	case encoding.TypeCodeVbin8, encoding.TypeCodeVbin32:
		bin, err := dec.ReadBinary()
		if err != nil {
			return Any{}, err
		}
		return AnyBinary(bin), nil
	default:
		return Any{}, ErrUnsupportedAnyKind
	}
}

// Header carries transfer-level delivery annotations: durability,
// priority, time-to-live, and the redelivery count.
type Header struct {
	Durable       bool
	HasDurable    bool
	Priority      uint8
	HasPriority   bool
	Ttl           uint32
	HasTtl        bool
	DeliveryCount uint32
	HasDeliveryCount bool
}

func (h *Header) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeHeader, "", []fieldSlot{
		optional(h.HasDurable, func() { enc.WriteBool(h.Durable) }),
		optional(h.HasPriority, func() { enc.WriteUbyte(h.Priority) }),
		optional(h.HasTtl, func() { enc.WriteUint(h.Ttl) }),
		optional(false, func() {}), // first-acquirer
		optional(h.HasDeliveryCount, func() { enc.WriteUint(h.DeliveryCount) }),
	})
}

func DecodeHeader(dec *encoding.Decoder) (*Header, error) {
	sub, _, err := unmarshalComposite(dec, codeHeader, "")
	if err != nil {
		return nil, err
	}
	h := &Header{}
	if err := readOptionalField(sub, func() (err error) { h.Durable, err = sub.ReadBool(); h.HasDurable = err == nil; return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { h.Priority, err = sub.ReadUbyte(); h.HasPriority = err == nil; return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { h.Ttl, err = sub.ReadUint(); h.HasTtl = err == nil; return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() error { _, err := sub.ReadBool(); return err }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { h.DeliveryCount, err = sub.ReadUint(); h.HasDeliveryCount = err == nil; return }); err != nil {
		return nil, err
	}
	return h, nil
}

// Properties carries immutable, standard message metadata set by the
// sender. This client only ever sets MessageID and ReplyTo — the unique
// receiver link name a call attaches, so the broker knows where to route
// its reply — the rest travel as ApplicationProperties instead. UserID,
// To, and Subject are never set but still occupy their positional slots
// ahead of ReplyTo.
type Properties struct {
	MessageID    string
	HasMessageID bool
	ReplyTo      string
	HasReplyTo   bool
}

func (p *Properties) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeProperties, "", []fieldSlot{
		optional(p.HasMessageID, func() { enc.WriteString(p.MessageID) }),
		optional(false, func() {}), // user-id
		optional(false, func() {}), // to
		optional(false, func() {}), // subject
		optional(p.HasReplyTo, func() { enc.WriteString(p.ReplyTo) }),
	})
}

func DecodeProperties(dec *encoding.Decoder) (*Properties, error) {
	sub, _, err := unmarshalComposite(dec, codeProperties, "")
	if err != nil {
		return nil, err
	}
	p := &Properties{}
	if err := readOptionalField(sub, func() (err error) { p.MessageID, err = sub.ReadString(); p.HasMessageID = err == nil; return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() error { _, err := sub.ReadBinary(); return err }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() error { _, err := sub.ReadString(); return err }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() error { _, err := sub.ReadString(); return err }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { p.ReplyTo, err = sub.ReadString(); p.HasReplyTo = err == nil; return }); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplicationProperties is the map section carrying Corda's RPC
// correlation metadata: _AMQ_VALIDATED_USER, tag, method-name, rpc-id,
// rpc-id-timestamp, rpc-session-id, rpc-session-id-timestamp, and
// deduplication-sequence-number.
type ApplicationProperties struct {
	Values map[string]Any
}

func (a *ApplicationProperties) Encode(enc *encoding.Encoder) {
	enc.WriteDescriptorCode(codeApplicationProperties)
	mark := enc.BeginMap()
	for k, v := range a.Values {
		enc.WriteString(k)
		v.Encode(enc)
	}
	enc.EndMap(mark, len(a.Values)*2)
}

func DecodeApplicationProperties(dec *encoding.Decoder) (*ApplicationProperties, error) {
	descr, err := dec.ReadDescriptor()
	if err != nil {
		return nil, errors.Wrap(err, "types: reading application-properties descriptor")
	}
	if !descr.MatchesCode(codeApplicationProperties) {
		return nil, errors.Errorf("types: unexpected descriptor %+v for application-properties", descr)
	}
	sub, count, err := dec.EnterMap()
	if err != nil {
		return nil, err
	}
	a := &ApplicationProperties{Values: make(map[string]Any, count)}
	for i := 0; i < count; i++ {
		k, err := sub.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := DecodeAny(sub)
		if err != nil {
			return nil, err
		}
		a.Values[k] = v
	}
	return a, nil
}

// IsDataSection reports whether the next described value in dec is a
// Data body section, without consuming anything. Callers walking an
// unknown run of message sections use this to decide whether to decode
// with DecodeData or skip past the section with CaptureValue.
func IsDataSection(dec *encoding.Decoder) (bool, error) {
	peek := encoding.NewDecoder(dec.Remaining())
	descr, err := peek.ReadDescriptor()
	if err != nil {
		return false, err
	}
	return descr.MatchesCode(codeData), nil
}

// Data is an opaque binary message-body section.
type Data struct {
	Payload []byte
}

func (d *Data) Encode(enc *encoding.Encoder) {
	enc.WriteDescriptorCode(codeData)
	enc.WriteBinary(d.Payload)
}

func DecodeData(dec *encoding.Decoder) (*Data, error) {
	descr, err := dec.ReadDescriptor()
	if err != nil {
		return nil, errors.Wrap(err, "types: reading data descriptor")
	}
	if !descr.MatchesCode(codeData) {
		return nil, errors.Errorf("types: unexpected descriptor %+v for data", descr)
	}
	payload, err := dec.ReadBinary()
	if err != nil {
		return nil, err
	}
	return &Data{Payload: payload}, nil
}

// Footer carries trailing metadata after the message body. Unused by
// this client's own traffic but decoded defensively for compatibility
// with brokers that append one.
type Footer struct {
	Values map[string]Any
}

func DecodeFooter(dec *encoding.Decoder) (*Footer, error) {
	descr, err := dec.ReadDescriptor()
	if err != nil {
		return nil, errors.Wrap(err, "types: reading footer descriptor")
	}
	if !descr.MatchesCode(codeFooter) {
		return nil, errors.Errorf("types: unexpected descriptor %+v for footer", descr)
	}
	sub, count, err := dec.EnterMap()
	if err != nil {
		return nil, err
	}
	f := &Footer{Values: make(map[string]Any, count)}
	for i := 0; i < count; i++ {
		k, err := sub.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := DecodeAny(sub)
		if err != nil {
			return nil, err
		}
		f.Values[k] = v
	}
	return f, nil
}
