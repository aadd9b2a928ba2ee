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

package driver

import (
	"context"

	"github.com/pkg/errors"

	"github.com/packetd/corda-amqp/logger"
	"github.com/packetd/corda-amqp/protocol/pamqp/encoding"
	"github.com/packetd/corda-amqp/protocol/pamqp/frame"
	"github.com/packetd/corda-amqp/protocol/pamqp/types"
	"github.com/packetd/corda-amqp/protocol/protoerr"
)

// mechanismPlain is the only SASL mechanism this client ever offers.
const mechanismPlain = "PLAIN"

// sessionWindow is the incoming/outgoing transfer-count window this
// client advertises in Begin: enough to cover one RPC round trip's single
// Transfer without the broker ever throttling on session flow control.
const sessionWindow = 8

// Login runs the SASL handshake: send the SASL protocol header, read the
// broker's sasl-mechanisms advertisement, fail fast if PLAIN is absent,
// send sasl-init with a PLAIN initial response, and read the outcome.
func (d *Driver) Login(ctx context.Context, username, password string) error {
	if err := d.deadline(ctx); err != nil {
		return err
	}
	if err := d.enc.WriteHeader(frame.SASLProtocolHeader()); err != nil {
		return err
	}
	hdrFrame, err := d.dec.Next(ctx)
	if err != nil {
		return err
	}
	if !hdrFrame.IsHeader || hdrFrame.Header.ProtoID != 3 {
		return errors.Wrapf(protoerr.InvalidData, "driver: expected SASL protocol header in reply")
	}

	mechFrame, err := d.dec.Next(ctx)
	if err != nil {
		return err
	}
	if mechFrame.Type != frame.TypeSASL {
		return errors.Wrapf(protoerr.InvalidData, "driver: expected SASL frame, got type %d", mechFrame.Type)
	}
	mechs, err := types.DecodeSaslMechanisms(encoding.NewDecoder(mechFrame.Body))
	if err != nil {
		return err
	}
	if !containsMechanism(mechs.Mechanisms, mechanismPlain) {
		return errors.Wrapf(protoerr.InvalidData, "driver: broker does not offer PLAIN, offered %v", mechs.Mechanisms)
	}
	logger.Debugf("driver: broker offered sasl mechanisms %v", mechs.Mechanisms)

	init := &types.SaslInit{
		Mechanism:       mechanismPlain,
		InitialResponse: types.PlainInitialResponse(username, password),
	}
	enc := encoding.NewEncoder()
	init.Encode(enc)
	body := append([]byte(nil), enc.Bytes()...)
	enc.Release()
	if err := d.enc.WriteFrame(frame.TypeSASL, 0, body); err != nil {
		return err
	}

	outcomeFrame, err := d.dec.Next(ctx)
	if err != nil {
		return err
	}
	if outcomeFrame.Type != frame.TypeSASL {
		return errors.Wrapf(protoerr.InvalidData, "driver: expected SASL outcome frame, got type %d", outcomeFrame.Type)
	}
	outcome, err := types.DecodeSaslOutcome(encoding.NewDecoder(outcomeFrame.Body))
	if err != nil {
		return err
	}
	if outcome.Code != types.SaslCodeOK {
		return errors.Wrapf(protoerr.InvalidData, "driver: sasl outcome code %d, authentication rejected", outcome.Code)
	}

	d.st = stateSaslOpened
	return nil
}

func containsMechanism(mechs []string, want string) bool {
	for _, m := range mechs {
		if m == want {
			return true
		}
	}
	return false
}

// Open exchanges the AMQP protocol header and the Open performative,
// negotiating the container id this client presents.
func (d *Driver) Open(ctx context.Context, containerID string) (*types.Open, error) {
	if err := d.deadline(ctx); err != nil {
		return nil, err
	}
	if err := d.enc.WriteHeader(frame.AMQPProtocolHeader()); err != nil {
		return nil, err
	}

	hdrFrame, err := d.dec.Next(ctx)
	if err != nil {
		return nil, err
	}
	if !hdrFrame.IsHeader || hdrFrame.Header.ProtoID != 0 {
		return nil, errors.Wrapf(protoerr.InvalidData, "driver: expected AMQP protocol header in reply")
	}

	d.containerID = containerID
	open := &types.Open{ContainerID: containerID}
	if err := d.sendPerformative(open); err != nil {
		return nil, err
	}

	perf, _, err := d.nextPerformative(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkPeerClose(perf); err != nil {
		return nil, err
	}
	if perf.Open == nil {
		return nil, errors.Wrapf(protoerr.InvalidData, "driver: expected Open performative in reply")
	}

	d.st = stateAmqpOpened
	return perf.Open, nil
}

// Begin maps a session onto channel 0, the only channel this client
// ever uses.
func (d *Driver) Begin(ctx context.Context) (*types.Begin, error) {
	if err := d.deadline(ctx); err != nil {
		return nil, err
	}
	d.nextOutgoingID = 1
	begin := &types.Begin{
		NextOutgoingID: d.nextOutgoingID,
		IncomingWindow: sessionWindow,
		OutgoingWindow: sessionWindow,
	}
	if err := d.sendPerformative(begin); err != nil {
		return nil, err
	}

	perf, _, err := d.nextPerformative(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkPeerClose(perf); err != nil {
		return nil, err
	}
	if perf.Begin == nil {
		return nil, errors.Wrapf(protoerr.InvalidData, "driver: expected Begin performative in reply")
	}

	d.st = stateSessionBegun
	return perf.Begin, nil
}
