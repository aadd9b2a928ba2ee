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

// Package driver implements the AMQP 1.0 connection/session/link state
// machine this client needs: SASL login, Open/Begin, per-call Attach,
// Flow, Transfer, and orderly Detach/Close. One Driver owns exactly one
// net.Conn; it is single-owner and single-flight, matching the
// cooperative concurrency model of the RPC client built on top of it —
// there is no internal mutex, and concurrent method calls are undefined
// behavior by design, not a bug to fix later.
package driver

import (
	"context"
	"net"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/packetd/corda-amqp/protocol/pamqp/encoding"
	"github.com/packetd/corda-amqp/protocol/pamqp/frame"
	"github.com/packetd/corda-amqp/protocol/pamqp/types"
	"github.com/packetd/corda-amqp/protocol/protoerr"
)

// state tracks the connection's position in the handshake/session
// lifecycle, mostly for log context and to catch obviously out-of-order
// calls (e.g. Attach before Begin) with a clear error instead of a
// confusing wire-level failure.
type state uint8

const (
	stateNew state = iota
	stateSaslOpened
	stateAmqpOpened
	stateSessionBegun
	stateClosed
)

// Driver is a single AMQP 1.0 connection to one broker. Link handles are
// chosen by the caller and passed to each link call; the Driver does not
// record them. It supports exactly one session and, at a time, one sender and one
// receiver link, matching the one RPC round trip this client drives at
// once.
type Driver struct {
	conn net.Conn
	dec  *frame.Decoder
	enc  *frame.Encoder

	st             state
	containerID    string
	nextOutgoingID uint32
}

// Dial opens a TCP connection to addr and wraps it in a Driver. The
// context only bounds the dial itself; once connected, each subsequent
// operation takes its own context.
func Dial(ctx context.Context, addr string) (*Driver, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(protoerr.Io, err.Error())
	}
	return NewConn(conn), nil
}

// NewConn wraps an already-established net.Conn in a Driver, skipping
// Dial's TCP connect step. Useful for a caller that manages its own
// transport (a TLS-wrapped dial, a test fixture built over net.Pipe).
func NewConn(conn net.Conn) *Driver {
	return &Driver{
		conn: conn,
		dec:  frame.NewDecoder(conn),
		enc:  frame.NewEncoder(conn),
	}
}

// Close tears down the connection, optionally preceded by a Close
// performative if the handshake reached the AMQP-open state. Errors from
// the performative and the underlying socket close are aggregated rather
// than the first one masking the second.
func (d *Driver) Close(ctx context.Context) error {
	var result *multierror.Error
	if d.st >= stateAmqpOpened && d.st != stateClosed {
		if err := d.sendPerformative(&closePerformative{}); err != nil {
			result = multierror.Append(result, err)
		}
	}
	d.st = stateClosed
	if err := d.conn.Close(); err != nil {
		result = multierror.Append(result, errors.Wrap(protoerr.Io, err.Error()))
	}
	return result.ErrorOrNil()
}

// closePerformative is a tiny adapter so sendPerformative's single
// encode path covers the bodyless types.Close{} case too.
type closePerformative struct{}

func (closePerformative) Encode(enc *encoding.Encoder) { (&types.Close{}).Encode(enc) }

// deadline applies ctx's deadline, if any, to the underlying connection
// for the duration of one blocking call. Per spec this layer does not
// itself enforce a timeout; it only forwards one the caller already set.
func (d *Driver) deadline(ctx context.Context) error {
	dl, ok := ctx.Deadline()
	if !ok {
		return d.conn.SetDeadline(time.Time{})
	}
	return d.conn.SetDeadline(dl)
}

type performativeEncoder interface {
	Encode(enc *encoding.Encoder)
}

func (d *Driver) sendPerformative(p performativeEncoder) error {
	enc := encoding.NewEncoder()
	defer enc.Release()
	p.Encode(enc)
	return d.enc.WriteFrame(frame.TypeAMQP, 0, enc.Bytes())
}

// sendPerformativeWithSections writes an AMQP frame carrying a
// performative (Transfer) immediately followed by zero or more message
// sections, each independently described, matching the frame layer's
// "single described performative followed — iff present — by message
// sections" body shape.
func (d *Driver) sendPerformativeWithSections(p performativeEncoder, sections ...performativeEncoder) error {
	enc := encoding.NewEncoder()
	defer enc.Release()
	p.Encode(enc)
	for _, s := range sections {
		s.Encode(enc)
	}
	return d.enc.WriteFrame(frame.TypeAMQP, 0, enc.Bytes())
}

// nextPerformative blocks for the next AMQP-typed frame and decodes its
// leading performative, returning any message sections that followed it
// as the still-raw remainder of the frame body.
func (d *Driver) nextPerformative(ctx context.Context) (*types.Performative, []byte, error) {
	if err := d.deadline(ctx); err != nil {
		return nil, nil, err
	}
	f, err := d.dec.Next(ctx)
	if err != nil {
		return nil, nil, err
	}
	if f.IsHeader {
		return nil, nil, errors.Wrapf(protoerr.InvalidData, "driver: unexpected protocol header while expecting a performative")
	}
	if f.Type != frame.TypeAMQP {
		return nil, nil, errors.Wrapf(protoerr.InvalidData, "driver: unexpected frame type %d while expecting AMQP", f.Type)
	}
	dec := encoding.NewDecoder(f.Body)
	perf, err := types.DecodePerformative(dec)
	if err != nil {
		return nil, nil, err
	}
	return perf, dec.Remaining(), nil
}

// checkPeerClose surfaces a terminal protoerr.PeerError if the
// performative the driver just read was a Close or Detach carrying an
// Error composite, or a Disposition whose Rejected state carries one, per
// the propagation policy: any PeerError on the connection is treated as
// terminal.
func checkPeerClose(perf *types.Performative) error {
	if perf.Close != nil && perf.Close.Error != nil {
		return &protoerr.PeerError{Condition: perf.Close.Error.Condition, Description: perf.Close.Error.Description}
	}
	if perf.Detach != nil && perf.Detach.Error != nil {
		return &protoerr.PeerError{Condition: perf.Detach.Error.Condition, Description: perf.Detach.Error.Description}
	}
	if d := perf.Disposition; d != nil && d.State != nil && d.State.Rejected != nil && d.State.Rejected.Error != nil {
		return &protoerr.PeerError{Condition: d.State.Rejected.Error.Condition, Description: d.State.Rejected.Error.Description}
	}
	return nil
}
