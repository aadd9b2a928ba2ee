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

// Role identifies which end of a link a party plays.
type Role bool

const (
	RoleSender   Role = false
	RoleReceiver Role = true
)

// SenderSettleMode controls how a sending link settles transfers.
type SenderSettleMode uint8

const (
	SenderSettleModeUnsettled SenderSettleMode = 0
	SenderSettleModeSettled   SenderSettleMode = 1
	SenderSettleModeMixed     SenderSettleMode = 2
)

// ReceiverSettleMode controls how a receiving link settles transfers.
type ReceiverSettleMode uint8

const (
	ReceiverSettleModeFirst  ReceiverSettleMode = 0
	ReceiverSettleModeSecond ReceiverSettleMode = 1
)

// Open is the first performative exchanged over a freshly established
// transport, negotiating connection-wide limits.
type Open struct {
	ContainerID         string
	Hostname            string
	MaxFrameSize        uint32
	ChannelMax          uint16
	IdleTimeout         uint32
	OutgoingLocales     []string
	IncomingLocales     []string
	OfferedCapabilities []string
	DesiredCapabilities []string

	HasHostname     bool
	HasMaxFrameSize bool
	HasChannelMax   bool
	HasIdleTimeout  bool
}

func (o *Open) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeOpen, "", []fieldSlot{
		optional(true, func() { enc.WriteString(o.ContainerID) }),
		optional(o.HasHostname, func() { enc.WriteString(o.Hostname) }),
		optional(o.HasMaxFrameSize, func() { enc.WriteUint(o.MaxFrameSize) }),
		optional(o.HasChannelMax, func() { enc.WriteUshort(o.ChannelMax) }),
		optional(o.HasIdleTimeout, func() { enc.WriteUint(o.IdleTimeout) }),
		optional(len(o.OutgoingLocales) > 0, func() { enc.WriteSymbolArray(o.OutgoingLocales) }),
		optional(len(o.IncomingLocales) > 0, func() { enc.WriteSymbolArray(o.IncomingLocales) }),
		optional(len(o.OfferedCapabilities) > 0, func() { enc.WriteSymbolArray(o.OfferedCapabilities) }),
		optional(len(o.DesiredCapabilities) > 0, func() { enc.WriteSymbolArray(o.DesiredCapabilities) }),
	})
}

func DecodeOpen(dec *encoding.Decoder) (*Open, error) {
	sub, _, err := unmarshalComposite(dec, codeOpen, "")
	if err != nil {
		return nil, err
	}
	o := &Open{}
	if sub.More() {
		if o.ContainerID, err = sub.ReadString(); err != nil {
			return nil, err
		}
	}
	if err := readOptionalField(sub, func() (err error) { o.Hostname, err = sub.ReadString(); o.HasHostname = err == nil; return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { o.MaxFrameSize, err = sub.ReadUint(); o.HasMaxFrameSize = err == nil; return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { o.ChannelMax, err = sub.ReadUshort(); o.HasChannelMax = err == nil; return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { o.IdleTimeout, err = sub.ReadUint(); o.HasIdleTimeout = err == nil; return }); err != nil {
		return nil, err
	}
	return o, nil
}

// Begin maps a session onto a channel. OfferedCapabilities and
// DesiredCapabilities are carried for wire compatibility; this client
// never advertises or requests any. Properties is never set either, so
// it is always encoded as a trailing null rather than given a field.
type Begin struct {
	RemoteChannel       uint16
	HasRemoteChannel    bool
	NextOutgoingID      uint32
	IncomingWindow      uint32
	OutgoingWindow      uint32
	HandleMax           uint32
	HasHandleMax        bool
	OfferedCapabilities []string
	DesiredCapabilities []string
}

func (b *Begin) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeBegin, "", []fieldSlot{
		optional(b.HasRemoteChannel, func() { enc.WriteUshort(b.RemoteChannel) }),
		optional(true, func() { enc.WriteUint(b.NextOutgoingID) }),
		optional(true, func() { enc.WriteUint(b.IncomingWindow) }),
		optional(true, func() { enc.WriteUint(b.OutgoingWindow) }),
		optional(b.HasHandleMax, func() { enc.WriteUint(b.HandleMax) }),
		optional(len(b.OfferedCapabilities) > 0, func() { enc.WriteSymbolArray(b.OfferedCapabilities) }),
		optional(len(b.DesiredCapabilities) > 0, func() { enc.WriteSymbolArray(b.DesiredCapabilities) }),
		optional(false, func() {}), // properties
	})
}

func DecodeBegin(dec *encoding.Decoder) (*Begin, error) {
	sub, _, err := unmarshalComposite(dec, codeBegin, "")
	if err != nil {
		return nil, err
	}
	b := &Begin{}
	if err := readOptionalField(sub, func() (err error) { b.RemoteChannel, err = sub.ReadUshort(); b.HasRemoteChannel = err == nil; return }); err != nil {
		return nil, err
	}
	if sub.More() {
		if b.NextOutgoingID, err = sub.ReadUint(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		if b.IncomingWindow, err = sub.ReadUint(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		if b.OutgoingWindow, err = sub.ReadUint(); err != nil {
			return nil, err
		}
	}
	if err := readOptionalField(sub, func() (err error) { b.HandleMax, err = sub.ReadUint(); b.HasHandleMax = err == nil; return }); err != nil {
		return nil, err
	}
	return b, nil
}

// Attach establishes a link between two nodes.
type Attach struct {
	Name               string
	Handle             uint32
	Role               Role
	Source             *Source
	Target             *Target
	InitialDeliveryCount      uint32
	HasInitialDeliveryCount   bool
}

func (a *Attach) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeAttach, "", []fieldSlot{
		optional(true, func() { enc.WriteString(a.Name) }),
		optional(true, func() { enc.WriteUint(a.Handle) }),
		optional(true, func() { enc.WriteBool(bool(a.Role)) }),
		optional(false, func() {}), // snd-settle-mode
		optional(false, func() {}), // rcv-settle-mode
		optional(a.Source != nil, func() { a.Source.Encode(enc) }),
		optional(a.Target != nil, func() { a.Target.Encode(enc) }),
		optional(false, func() {}), // unsettled
		optional(false, func() {}), // incomplete-unsettled
		optional(a.HasInitialDeliveryCount, func() { enc.WriteUint(a.InitialDeliveryCount) }),
	})
}

func DecodeAttach(dec *encoding.Decoder) (*Attach, error) {
	sub, _, err := unmarshalComposite(dec, codeAttach, "")
	if err != nil {
		return nil, err
	}
	a := &Attach{}
	if sub.More() {
		if a.Name, err = sub.ReadString(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		if a.Handle, err = sub.ReadUint(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		b, err := sub.ReadBool()
		if err != nil {
			return nil, err
		}
		a.Role = Role(b)
	}
	// snd-settle-mode, rcv-settle-mode: skip if present.
	for i := 0; i < 2; i++ {
		if err := readOptionalField(sub, func() error { _, err := sub.ReadUbyte(); return err }); err != nil {
			return nil, err
		}
	}
	if sub.More() && !sub.IsNull() {
		if a.Source, err = DecodeSource(sub); err != nil {
			return nil, err
		}
	} else if sub.More() {
		_ = sub.ReadNull()
	}
	if sub.More() && !sub.IsNull() {
		if a.Target, err = DecodeTarget(sub); err != nil {
			return nil, err
		}
	} else if sub.More() {
		_ = sub.ReadNull()
	}
	return a, nil
}

// Flow updates a session/link's flow-control window.
type Flow struct {
	NextIncomingID    uint32
	HasNextIncomingID bool
	IncomingWindow    uint32
	NextOutgoingID    uint32
	OutgoingWindow    uint32
	Handle            uint32
	HasHandle         bool
	DeliveryCount     uint32
	HasDeliveryCount  bool
	LinkCredit        uint32
	HasLinkCredit     bool
}

func (f *Flow) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeFlow, "", []fieldSlot{
		optional(f.HasNextIncomingID, func() { enc.WriteUint(f.NextIncomingID) }),
		optional(true, func() { enc.WriteUint(f.IncomingWindow) }),
		optional(true, func() { enc.WriteUint(f.NextOutgoingID) }),
		optional(true, func() { enc.WriteUint(f.OutgoingWindow) }),
		optional(f.HasHandle, func() { enc.WriteUint(f.Handle) }),
		optional(f.HasDeliveryCount, func() { enc.WriteUint(f.DeliveryCount) }),
		optional(f.HasLinkCredit, func() { enc.WriteUint(f.LinkCredit) }),
	})
}

func DecodeFlow(dec *encoding.Decoder) (*Flow, error) {
	sub, _, err := unmarshalComposite(dec, codeFlow, "")
	if err != nil {
		return nil, err
	}
	f := &Flow{}
	if err := readOptionalField(sub, func() (err error) { f.NextIncomingID, err = sub.ReadUint(); f.HasNextIncomingID = err == nil; return }); err != nil {
		return nil, err
	}
	if sub.More() {
		if f.IncomingWindow, err = sub.ReadUint(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		if f.NextOutgoingID, err = sub.ReadUint(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		if f.OutgoingWindow, err = sub.ReadUint(); err != nil {
			return nil, err
		}
	}
	if err := readOptionalField(sub, func() (err error) { f.Handle, err = sub.ReadUint(); f.HasHandle = err == nil; return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { f.DeliveryCount, err = sub.ReadUint(); f.HasDeliveryCount = err == nil; return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { f.LinkCredit, err = sub.ReadUint(); f.HasLinkCredit = err == nil; return }); err != nil {
		return nil, err
	}
	return f, nil
}

// Transfer carries a message delivery on a link.
type Transfer struct {
	Handle        uint32
	DeliveryID    uint32
	HasDeliveryID bool
	DeliveryTag   []byte
	MessageFormat uint32
	HasMessageFormat bool
	Settled       bool
	HasSettled    bool
	More_         bool
	HasMore       bool
}

func (t *Transfer) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeTransfer, "", []fieldSlot{
		optional(true, func() { enc.WriteUint(t.Handle) }),
		optional(t.HasDeliveryID, func() { enc.WriteUint(t.DeliveryID) }),
		optional(len(t.DeliveryTag) > 0, func() { enc.WriteBinary(t.DeliveryTag) }),
		optional(t.HasMessageFormat, func() { enc.WriteUint(t.MessageFormat) }),
		optional(t.HasSettled, func() { enc.WriteBool(t.Settled) }),
		optional(t.HasMore, func() { enc.WriteBool(t.More_) }),
	})
}

func DecodeTransfer(dec *encoding.Decoder) (*Transfer, error) {
	sub, _, err := unmarshalComposite(dec, codeTransfer, "")
	if err != nil {
		return nil, err
	}
	t := &Transfer{}
	if sub.More() {
		if t.Handle, err = sub.ReadUint(); err != nil {
			return nil, err
		}
	}
	if err := readOptionalField(sub, func() (err error) { t.DeliveryID, err = sub.ReadUint(); t.HasDeliveryID = err == nil; return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { t.DeliveryTag, err = sub.ReadBinary(); return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { t.MessageFormat, err = sub.ReadUint(); t.HasMessageFormat = err == nil; return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { t.Settled, err = sub.ReadBool(); t.HasSettled = err == nil; return }); err != nil {
		return nil, err
	}
	if err := readOptionalField(sub, func() (err error) { t.More_, err = sub.ReadBool(); t.HasMore = err == nil; return }); err != nil {
		return nil, err
	}
	return t, nil
}

// AmqpError carries an error condition attached to a Detach/Close/Disposition.
type AmqpError struct {
	Condition   string
	Description string
	HasDescription bool
}

func (e *AmqpError) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeError, "", []fieldSlot{
		optional(true, func() { enc.WriteSymbol(e.Condition) }),
		optional(e.HasDescription, func() { enc.WriteString(e.Description) }),
	})
}

func DecodeAmqpError(dec *encoding.Decoder) (*AmqpError, error) {
	sub, _, err := unmarshalComposite(dec, codeError, "")
	if err != nil {
		return nil, err
	}
	e := &AmqpError{}
	if sub.More() {
		if e.Condition, err = sub.ReadSymbol(); err != nil {
			return nil, err
		}
	}
	if err := readOptionalField(sub, func() (err error) { e.Description, err = sub.ReadString(); e.HasDescription = err == nil; return }); err != nil {
		return nil, err
	}
	return e, nil
}

// Detach tears down a link, optionally carrying the error that caused it.
type Detach struct {
	Handle uint32
	Closed bool
	HasClosed bool
	Error  *AmqpError
}

func (d *Detach) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeDetach, "", []fieldSlot{
		optional(true, func() { enc.WriteUint(d.Handle) }),
		optional(d.HasClosed, func() { enc.WriteBool(d.Closed) }),
		optional(d.Error != nil, func() { d.Error.Encode(enc) }),
	})
}

func DecodeDetach(dec *encoding.Decoder) (*Detach, error) {
	sub, _, err := unmarshalComposite(dec, codeDetach, "")
	if err != nil {
		return nil, err
	}
	d := &Detach{}
	if sub.More() {
		if d.Handle, err = sub.ReadUint(); err != nil {
			return nil, err
		}
	}
	if err := readOptionalField(sub, func() (err error) { d.Closed, err = sub.ReadBool(); d.HasClosed = err == nil; return }); err != nil {
		return nil, err
	}
	if sub.More() && !sub.IsNull() {
		if d.Error, err = DecodeAmqpError(sub); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Close tears down the whole connection.
type Close struct {
	Error *AmqpError
}

func (c *Close) Encode(enc *encoding.Encoder) {
	marshalComposite(enc, codeClose, "", []fieldSlot{
		optional(c.Error != nil, func() { c.Error.Encode(enc) }),
	})
}

func DecodeClose(dec *encoding.Decoder) (*Close, error) {
	sub, _, err := unmarshalComposite(dec, codeClose, "")
	if err != nil {
		return nil, err
	}
	c := &Close{}
	if sub.More() && !sub.IsNull() {
		if c.Error, err = DecodeAmqpError(sub); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Performative is the decoded form of whichever connection/session/link
// frame body a Decode call found described at the head of the buffer.
type Performative struct {
	Open        *Open
	Begin       *Begin
	Attach      *Attach
	Flow        *Flow
	Transfer    *Transfer
	Disposition *Disposition
	Detach      *Detach
	Close       *Close
}

// DecodePerformative peeks the composite descriptor and dispatches to the
// matching DecodeXxx function.
func DecodePerformative(dec *encoding.Decoder) (*Performative, error) {
	peek := encoding.NewDecoder(dec.Remaining())
	descr, err := peek.ReadDescriptor()
	if err != nil {
		return nil, errors.Wrap(err, "types: peeking performative descriptor")
	}

	p := &Performative{}
	switch {
	case descr.MatchesCode(codeOpen):
		p.Open, err = DecodeOpen(dec)
	case descr.MatchesCode(codeBegin):
		p.Begin, err = DecodeBegin(dec)
	case descr.MatchesCode(codeAttach):
		p.Attach, err = DecodeAttach(dec)
	case descr.MatchesCode(codeFlow):
		p.Flow, err = DecodeFlow(dec)
	case descr.MatchesCode(codeTransfer):
		p.Transfer, err = DecodeTransfer(dec)
	case descr.MatchesCode(codeDisposition):
		p.Disposition, err = DecodeDisposition(dec)
	case descr.MatchesCode(codeDetach):
		p.Detach, err = DecodeDetach(dec)
	case descr.MatchesCode(codeClose):
		p.Close, err = DecodeClose(dec)
	default:
		return nil, errors.Errorf("types: unrecognized performative descriptor %+v", descr)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
