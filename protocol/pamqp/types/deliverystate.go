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

// Received marks a transfer as partially received, carrying the resume
// position for a split delivery. This client never splits a delivery
// across transfers but decodes it for protocol completeness.
type Received struct {
	SectionNumber uint32
	SectionOffset uint64
}

func (r *Received) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeReceived, "", []fieldSlot{
		optional(true, func() { enc.WriteUint(r.SectionNumber) }),
		optional(true, func() { enc.WriteUlong(r.SectionOffset) }),
	})
}

func DecodeReceived(dec *encoding.Decoder) (*Received, error) {
	sub, _, err := unmarshalComposite(dec, codeReceived, "")
	if err != nil {
		return nil, err
	}
	r := &Received{}
	if sub.More() {
		if r.SectionNumber, err = sub.ReadUint(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		if r.SectionOffset, err = sub.ReadUlong(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Accepted is the terminal outcome confirming a transfer was processed.
type Accepted struct{}

func (a *Accepted) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeAccepted, "", nil)
}

func DecodeAccepted(dec *encoding.Decoder) (*Accepted, error) {
	if _, _, err := unmarshalComposite(dec, codeAccepted, ""); err != nil {
		return nil, err
	}
	return &Accepted{}, nil
}

// Rejected is the terminal outcome reporting a transfer could not be
// processed, optionally with the reason.
type Rejected struct {
	Error *AmqpError
}

func (r *Rejected) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeRejected, "", []fieldSlot{
		optional(r.Error != nil, func() { r.Error.Encode(enc) }),
	})
}

func DecodeRejected(dec *encoding.Decoder) (*Rejected, error) {
	sub, _, err := unmarshalComposite(dec, codeRejected, "")
	if err != nil {
		return nil, err
	}
	r := &Rejected{}
	if sub.More() && !sub.IsNull() {
		if r.Error, err = DecodeAmqpError(sub); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Released is the terminal outcome putting a transfer back in play for
// redelivery without indicating a failure.
type Released struct{}

func (r *Released) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeReleased, "", nil)
}

func DecodeReleased(dec *encoding.Decoder) (*Released, error) {
	if _, _, err := unmarshalComposite(dec, codeReleased, ""); err != nil {
		return nil, err
	}
	return &Released{}, nil
}

// Modified is the terminal outcome redelivering a transfer with changed
// annotations or marking it undeliverable.
type Modified struct {
	DeliveryFailed    bool
	HasDeliveryFailed bool
	UndeliverableHere    bool
	HasUndeliverableHere bool
}

func (m *Modified) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeModified, "", []fieldSlot{
		optional(m.HasDeliveryFailed, func() { enc.WriteBool(m.DeliveryFailed) }),
		optional(m.HasUndeliverableHere, func() { enc.WriteBool(m.UndeliverableHere) }),
	})
}

func DecodeModified(dec *encoding.Decoder) (*Modified, error) {
	sub, _, err := unmarshalComposite(dec, codeModified, "")
	if err != nil {
		return nil, err
	}
	m := &Modified{}
	if err := readOptionalField(sub, func() (err error) { m.DeliveryFailed, err = sub.ReadBool(); m.HasDeliveryFailed = err == nil; return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { m.UndeliverableHere, err = sub.ReadBool(); m.HasUndeliverableHere = err == nil; return }); err != nil {
		return nil, err
	}
	return m, nil
}

// Declared marks the successful start of a transaction, carrying its id.
type Declared struct {
	TxnID []byte
}

func (d *Declared) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeDeclared, "", []fieldSlot{
		optional(len(d.TxnID) > 0, func() { enc.WriteBinary(d.TxnID) }),
	})
}

func DecodeDeclared(dec *encoding.Decoder) (*Declared, error) {
	sub, _, err := unmarshalComposite(dec, codeDeclared, "")
	if err != nil {
		return nil, err
	}
	d := &Declared{}
	if err := readOptionalField(sub, func() (err error) { d.TxnID, err = sub.ReadBinary(); return }); err != nil {
		return nil, err
	}
	return d, nil
}

// TransactionalState wraps another delivery outcome inside a transaction.
type TransactionalState struct {
	TxnID   []byte
	Outcome *DeliveryState
}

func (t *TransactionalState) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeTransactionalState, "", []fieldSlot{
		optional(len(t.TxnID) > 0, func() { enc.WriteBinary(t.TxnID) }),
		optional(t.Outcome != nil, func() { t.Outcome.Encode(enc) }),
	})
}

func DecodeTransactionalState(dec *encoding.Decoder) (*TransactionalState, error) {
	sub, _, err := unmarshalComposite(dec, codeTransactionalState, "")
	if err != nil {
		return nil, err
	}
	t := &TransactionalState{}
	if err := readOptionalField(sub, func() (err error) { t.TxnID, err = sub.ReadBinary(); return }); err != nil {
		return nil, err
	}
	if sub.More() && !sub.IsNull() {
		if t.Outcome, err = DecodeDeliveryState(sub); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// DeliveryState is the decoded form of whichever delivery-state
// composite a Disposition or Transfer's state field carried.
type DeliveryState struct {
	Received            *Received
	Accepted            *Accepted
	Rejected            *Rejected
	Released            *Released
	Modified            *Modified
	Declared            *Declared
	TransactionalState  *TransactionalState
}

func (ds *DeliveryState) Encode(enc *encoding.Encoder) {
	switch {
	case ds.Received != nil:
		ds.Received.Encode(enc)
	case ds.Accepted != nil:
		ds.Accepted.Encode(enc)
	case ds.Rejected != nil:
		ds.Rejected.Encode(enc)
	case ds.Released != nil:
		ds.Released.Encode(enc)
	case ds.Modified != nil:
		ds.Modified.Encode(enc)
	case ds.Declared != nil:
		ds.Declared.Encode(enc)
	case ds.TransactionalState != nil:
		ds.TransactionalState.Encode(enc)
	}
}

// DecodeDeliveryState peeks the composite descriptor and dispatches to
// the matching DecodeXxx function.
func DecodeDeliveryState(dec *encoding.Decoder) (*DeliveryState, error) {
	peek := encoding.NewDecoder(dec.Remaining())
	descr, err := peek.ReadDescriptor()
	if err != nil {
		return nil, errors.Wrap(err, "types: peeking delivery-state descriptor")
	}

	ds := &DeliveryState{}
	switch {
	case descr.MatchesCode(codeReceived):
		ds.Received, err = DecodeReceived(dec)
	case descr.MatchesCode(codeAccepted):
		ds.Accepted, err = DecodeAccepted(dec)
	case descr.MatchesCode(codeRejected):
		ds.Rejected, err = DecodeRejected(dec)
	case descr.MatchesCode(codeReleased):
		ds.Released, err = DecodeReleased(dec)
	case descr.MatchesCode(codeModified):
		ds.Modified, err = DecodeModified(dec)
	case descr.MatchesCode(codeDeclared):
		ds.Declared, err = DecodeDeclared(dec)
	case descr.MatchesCode(codeTransactionalState):
		ds.TransactionalState, err = DecodeTransactionalState(dec)
	default:
		return nil, errors.Errorf("types: unrecognized delivery-state descriptor %+v", descr)
	}
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Disposition communicates a delivery-state change for a settled range of
// deliveries on the sending or receiving end of a link.
type Disposition struct {
	Role    Role
	First   uint32
	Last    uint32
	HasLast bool
	Settled bool
	State   *DeliveryState
}

func (d *Disposition) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeDisposition, "", []fieldSlot{
		optional(true, func() { enc.WriteBool(bool(d.Role)) }),
		optional(true, func() { enc.WriteUint(d.First) }),
		optional(d.HasLast, func() { enc.WriteUint(d.Last) }),
		optional(d.Settled, func() { enc.WriteBool(d.Settled) }),
		optional(d.State != nil, func() { d.State.Encode(enc) }),
	})
}

func DecodeDisposition(dec *encoding.Decoder) (*Disposition, error) {
	sub, _, err := unmarshalComposite(dec, codeDisposition, "")
	if err != nil {
		return nil, err
	}
	d := &Disposition{}
	if sub.More() {
		b, err := sub.ReadBool()
		if err != nil {
			return nil, err
		}
		d.Role = Role(b)
	}
	if sub.More() {
		if d.First, err = sub.ReadUint(); err != nil {
			return nil, err
		}
	}
	if err := readOptionalField(sub, func() (err error) { d.Last, err = sub.ReadUint(); d.HasLast = err == nil; return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { d.Settled, err = sub.ReadBool(); return }); err != nil {
		return nil, err
	}
	if sub.More() && !sub.IsNull() {
		if d.State, err = DecodeDeliveryState(sub); err != nil {
			return nil, err
		}
	}
	return d, nil
}
