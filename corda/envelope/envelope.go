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

// Package envelope implements Corda's AMQP serialization envelope: a
// 7-byte magic, a one-byte section id, then a described Envelope
// composite carrying an arbitrarily-typed payload alongside the schema
// that describes every composite/restricted type the payload
// references. The payload itself ("obj") is left as captured raw bytes
// — its shape depends on the RPC method in play, which this package has
// no business knowing about — see rpc/methods for the typed layer atop
// this one.
package envelope

import (
	"github.com/pkg/errors"

	"github.com/packetd/corda-amqp/protocol/pamqp/encoding"
	"github.com/packetd/corda-amqp/protocol/protoerr"
)

// Magic is the 7-byte prefix opening every Corda-serialized blob.
var Magic = []byte("corda\x01\x00")

// SectionDataAndStop is the only section id this client ever emits or
// expects: the payload is immediately followed by nothing else.
const SectionDataAndStop byte = 0x00

const (
	codeEnvelope         = 0xc562_0000_0000_0001
	codeSchema           = 0xc562_0000_0000_0002
	codeDescriptor       = 0xc562_0000_0000_0003
	codeField            = 0xc562_0000_0000_0004
	codeCompositeType    = 0xc562_0000_0000_0005
	codeRestrictedType   = 0xc562_0000_0000_0006
	codeChoice           = 0xc562_0000_0000_0007
	codeTransformsSchema = 0xc562_0000_0000_0009
)

// Descriptor names a composite type either by a base64-suffixed
// "net.corda:..." symbol or by its numeric code; at most one is set.
type Descriptor struct {
	Name    string
	HasName bool
	Code    uint64
	HasCode bool
}

func (d *Descriptor) encode(enc *encoding.Encoder) {
	marshal(enc, codeDescriptor, []field{
		optField(d.HasName, func() { enc.WriteSymbol(d.Name) }),
		optField(d.HasCode, func() { enc.WriteUlong(d.Code) }),
	})
}

func decodeDescriptor(dec *encoding.Decoder) (*Descriptor, error) {
	sub, err := unmarshal(dec, codeDescriptor)
	if err != nil {
		return nil, err
	}
	d := &Descriptor{}
	if err := optRead(sub, func() (err error) { d.Name, err = sub.ReadSymbol(); d.HasName = err == nil; return }); err != nil {
		return nil, err
	}
	if err := optRead(sub, func() (err error) { d.Code, err = sub.ReadUlong(); d.HasCode = err == nil; return }); err != nil {
		return nil, err
	}
	return d, nil
}

// Field describes one member of a CompositeType.
type Field struct {
	Name       string
	Type       string
	Requires   []string
	Default    string
	HasDefault bool
	Label      string
	HasLabel   bool
	Mandatory  bool
	Multiple   bool
}

func (f *Field) encode(enc *encoding.Encoder) {
	marshal(enc, codeField, []field{
		optField(true, func() { enc.WriteString(f.Name) }),
		optField(true, func() { enc.WriteString(f.Type) }),
		optField(true, func() { enc.WriteSymbolArray(f.Requires) }),
		optField(f.HasDefault, func() { enc.WriteString(f.Default) }),
		optField(f.HasLabel, func() { enc.WriteString(f.Label) }),
		optField(true, func() { enc.WriteBool(f.Mandatory) }),
		optField(true, func() { enc.WriteBool(f.Multiple) }),
	})
}

func decodeField(dec *encoding.Decoder) (*Field, error) {
	sub, err := unmarshal(dec, codeField)
	if err != nil {
		return nil, err
	}
	f := &Field{}
	if sub.More() {
		if f.Name, err = sub.ReadString(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		if f.Type, err = sub.ReadString(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		arr, count, err := sub.EnterArray()
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			s, err := arr.ReadSymbol()
			if err != nil {
				return nil, err
			}
			f.Requires = append(f.Requires, s)
		}
	}
	if err := optRead(sub, func() (err error) { f.Default, err = sub.ReadString(); f.HasDefault = err == nil; return }); err != nil {
		return nil, err
	}
	if err := optRead(sub, func() (err error) { f.Label, err = sub.ReadString(); f.HasLabel = err == nil; return }); err != nil {
		return nil, err
	}
	if err := optRead(sub, func() (err error) { f.Mandatory, err = sub.ReadBool(); return }); err != nil {
		return nil, err
	}
	if err := optRead(sub, func() (err error) { f.Multiple, err = sub.ReadBool(); return }); err != nil {
		return nil, err
	}
	return f, nil
}

// Choice names one legal value of a RestrictedType enum.
type Choice struct {
	Name  string
	Value string
}

func (c *Choice) encode(enc *encoding.Encoder) {
	marshal(enc, codeChoice, []field{
		optField(true, func() { enc.WriteString(c.Name) }),
		optField(true, func() { enc.WriteString(c.Value) }),
	})
}

func decodeChoice(dec *encoding.Decoder) (*Choice, error) {
	sub, err := unmarshal(dec, codeChoice)
	if err != nil {
		return nil, err
	}
	c := &Choice{}
	if sub.More() {
		if c.Name, err = sub.ReadString(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		if c.Value, err = sub.ReadString(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// CompositeType describes one struct-shaped type referenced by the
// envelope's payload: its fully-qualified name, the interfaces it
// provides, its wire descriptor, and its ordered fields.
type CompositeType struct {
	Name       string
	Label      string
	HasLabel   bool
	Provides   []string
	Descriptor *Descriptor
	Fields     []Field
}

func (c *CompositeType) encode(enc *encoding.Encoder) {
	marshal(enc, codeCompositeType, []field{
		optField(true, func() { enc.WriteString(c.Name) }),
		optField(c.HasLabel, func() { enc.WriteString(c.Label) }),
		optField(true, func() { enc.WriteSymbolArray(c.Provides) }),
		optField(true, func() { c.Descriptor.encode(enc) }),
		optField(true, func() {
			mark := enc.BeginList()
			for i := range c.Fields {
				c.Fields[i].encode(enc)
			}
			enc.EndList(mark, len(c.Fields))
		}),
	})
}

func decodeCompositeType(dec *encoding.Decoder) (*CompositeType, error) {
	sub, err := unmarshal(dec, codeCompositeType)
	if err != nil {
		return nil, err
	}
	c := &CompositeType{}
	if sub.More() {
		if c.Name, err = sub.ReadString(); err != nil {
			return nil, err
		}
	}
	if err := optRead(sub, func() (err error) { c.Label, err = sub.ReadString(); c.HasLabel = err == nil; return }); err != nil {
		return nil, err
	}
	if sub.More() {
		arr, count, err := sub.EnterArray()
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			s, err := arr.ReadSymbol()
			if err != nil {
				return nil, err
			}
			c.Provides = append(c.Provides, s)
		}
	}
	if sub.More() {
		if c.Descriptor, err = decodeDescriptor(sub); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		fieldsDec, count, err := sub.EnterList()
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			f, err := decodeField(fieldsDec)
			if err != nil {
				return nil, err
			}
			c.Fields = append(c.Fields, *f)
		}
	}
	return c, nil
}

// RestrictedType describes an enum-like type restricted to a fixed list
// of choices over some underlying source representation (typically
// "string" or "int").
type RestrictedType struct {
	Name       string
	Label      string
	HasLabel   bool
	Provides   []string
	Source     string
	Descriptor *Descriptor
	Choices    []Choice
}

func (r *RestrictedType) encode(enc *encoding.Encoder) {
	marshal(enc, codeRestrictedType, []field{
		optField(true, func() { enc.WriteString(r.Name) }),
		optField(r.HasLabel, func() { enc.WriteString(r.Label) }),
		optField(true, func() { enc.WriteSymbolArray(r.Provides) }),
		optField(true, func() { enc.WriteString(r.Source) }),
		optField(true, func() { r.Descriptor.encode(enc) }),
		optField(true, func() {
			mark := enc.BeginList()
			for i := range r.Choices {
				r.Choices[i].encode(enc)
			}
			enc.EndList(mark, len(r.Choices))
		}),
	})
}

func decodeRestrictedType(dec *encoding.Decoder) (*RestrictedType, error) {
	sub, err := unmarshal(dec, codeRestrictedType)
	if err != nil {
		return nil, err
	}
	r := &RestrictedType{}
	if sub.More() {
		if r.Name, err = sub.ReadString(); err != nil {
			return nil, err
		}
	}
	if err := optRead(sub, func() (err error) { r.Label, err = sub.ReadString(); r.HasLabel = err == nil; return }); err != nil {
		return nil, err
	}
	if sub.More() {
		arr, count, err := sub.EnterArray()
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			s, err := arr.ReadSymbol()
			if err != nil {
				return nil, err
			}
			r.Provides = append(r.Provides, s)
		}
	}
	if sub.More() {
		if r.Source, err = sub.ReadString(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		if r.Descriptor, err = decodeDescriptor(sub); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		choicesDec, count, err := sub.EnterList()
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			c, err := decodeChoice(choicesDec)
			if err != nil {
				return nil, err
			}
			r.Choices = append(r.Choices, *c)
		}
	}
	return r, nil
}

// TypeNotation is the tagged union of the two type-description shapes a
// Schema's types list can hold.
type TypeNotation struct {
	Composite  *CompositeType
	Restricted *RestrictedType
}

func (t *TypeNotation) encode(enc *encoding.Encoder) {
	switch {
	case t.Composite != nil:
		t.Composite.encode(enc)
	case t.Restricted != nil:
		t.Restricted.encode(enc)
	}
}

func decodeTypeNotation(dec *encoding.Decoder) (*TypeNotation, error) {
	peek := encoding.NewDecoder(dec.Remaining())
	descr, err := peek.ReadDescriptor()
	if err != nil {
		return nil, errors.Wrap(err, "envelope: peeking type-notation descriptor")
	}
	switch {
	case descr.MatchesCode(codeCompositeType):
		c, err := decodeCompositeType(dec)
		if err != nil {
			return nil, err
		}
		return &TypeNotation{Composite: c}, nil
	case descr.MatchesCode(codeRestrictedType):
		r, err := decodeRestrictedType(dec)
		if err != nil {
			return nil, err
		}
		return &TypeNotation{Restricted: r}, nil
	default:
		return nil, errors.Wrapf(protoerr.InvalidData, "envelope: unrecognized type-notation descriptor %+v", descr)
	}
}

// Schema lists every composite/restricted type the envelope's payload
// references, directly or transitively.
type Schema struct {
	Types []TypeNotation
}

func (s *Schema) encode(enc *encoding.Encoder) {
	marshal(enc, codeSchema, []field{
		optField(true, func() {
			mark := enc.BeginList()
			for i := range s.Types {
				s.Types[i].encode(enc)
			}
			enc.EndList(mark, len(s.Types))
		}),
	})
}

func decodeSchema(dec *encoding.Decoder) (*Schema, error) {
	sub, err := unmarshal(dec, codeSchema)
	if err != nil {
		return nil, err
	}
	s := &Schema{}
	if sub.More() {
		typesDec, count, err := sub.EnterList()
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			tn, err := decodeTypeNotation(typesDec)
			if err != nil {
				return nil, err
			}
			s.Types = append(s.Types, *tn)
		}
	}
	return s, nil
}

// TransformsSchema carries field/enum renames applied across Corda
// versions. This client neither emits nor interprets any transform: the
// envelopes it builds leave Transforms nil (encoded as null, the shape
// literal test vector 5 exercises), and a TransformsSchema, when set,
// encodes as an empty list.
type TransformsSchema struct{}

func (t *TransformsSchema) encode(enc *encoding.Encoder) {
	marshal(enc, codeTransformsSchema, nil)
}

func decodeTransformsSchema(dec *encoding.Decoder) (*TransformsSchema, error) {
	if _, err := unmarshal(dec, codeTransformsSchema); err != nil {
		return nil, err
	}
	return &TransformsSchema{}, nil
}

// Envelope is the top-level described composite carrying an
// arbitrarily-typed payload (obj), the Schema describing every type obj
// references, and an optional TransformsSchema.
type Envelope struct {
	// Obj is the payload's raw encoded bytes, still borrowed from the
	// decode buffer when this Envelope came from Decode. Callers decode
	// it against whatever shape their RPC method expects.
	Obj        []byte
	Schema     Schema
	Transforms *TransformsSchema
}

func (e *Envelope) encode(enc *encoding.Encoder) {
	marshal(enc, codeEnvelope, []field{
		optField(true, func() { enc.WriteRaw(e.Obj) }),
		optField(true, func() { e.Schema.encode(enc) }),
		optField(e.Transforms != nil, func() { e.Transforms.encode(enc) }),
	})
}

func decodeEnvelope(dec *encoding.Decoder) (*Envelope, error) {
	sub, err := unmarshal(dec, codeEnvelope)
	if err != nil {
		return nil, err
	}
	e := &Envelope{}
	if sub.More() {
		if e.Obj, err = sub.CaptureValue(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		schema, err := decodeSchema(sub)
		if err != nil {
			return nil, err
		}
		e.Schema = *schema
	}
	if sub.More() && !sub.IsNull() {
		if e.Transforms, err = decodeTransformsSchema(sub); err != nil {
			return nil, err
		}
	} else if sub.More() {
		_ = sub.ReadNull()
	}
	return e, nil
}

// Encode writes the full corda-magic-prefixed blob: 7-byte magic, the
// data-and-stop section byte, then the described Envelope.
func Encode(e *Envelope) []byte {
	enc := encoding.NewEncoder()
	defer enc.Release()
	e.encode(enc)

	out := make([]byte, 0, len(Magic)+1+len(enc.Bytes()))
	out = append(out, Magic...)
	out = append(out, SectionDataAndStop)
	out = append(out, enc.Bytes()...)
	return out
}

// Decode parses a corda-magic-prefixed blob into an Envelope. The
// returned Envelope.Obj borrows buf; callers needing it to outlive buf
// must copy it first.
func Decode(buf []byte) (*Envelope, error) {
	if len(buf) < len(Magic)+1 {
		return nil, errors.Wrap(protoerr.UnexpectedEnd, "envelope: buffer shorter than magic+section")
	}
	for i, b := range Magic {
		if buf[i] != b {
			return nil, errors.Wrap(protoerr.InvalidData, "envelope: bad magic prefix")
		}
	}
	if buf[len(Magic)] != SectionDataAndStop {
		return nil, errors.Wrapf(protoerr.InvalidData, "envelope: unsupported section id 0x%02x", buf[len(Magic)])
	}
	rest := buf[len(Magic)+1:]

	dec := encoding.NewDecoder(rest)
	e, err := decodeEnvelope(dec)
	if err != nil {
		return nil, err
	}
	if !dec.Empty() {
		return nil, protoerr.TrailingCharacters
	}
	return e, nil
}
