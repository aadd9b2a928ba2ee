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
	"github.com/packetd/corda-amqp/protocol/pamqp/types"
	"github.com/packetd/corda-amqp/protocol/protoerr"
)

// AttachSender attaches an outgoing link at handle, addressed from
// source to target, with an initial delivery count of zero.
func (d *Driver) AttachSender(ctx context.Context, handle uint32, name, source, target string) (*types.Attach, error) {
	return d.attach(ctx, &types.Attach{
		Name:                    name,
		Handle:                  handle,
		Role:                    types.RoleSender,
		Source:                  &types.Source{Address: source, HasAddress: true},
		Target:                  &types.Target{Address: target, HasAddress: true},
		HasInitialDeliveryCount: true,
		InitialDeliveryCount:    0,
	})
}

// AttachReceiver attaches an incoming link at handle, addressed from
// source to target.
func (d *Driver) AttachReceiver(ctx context.Context, handle uint32, name, source, target string) (*types.Attach, error) {
	return d.attach(ctx, &types.Attach{
		Name:   name,
		Handle: handle,
		Role:   types.RoleReceiver,
		Source: &types.Source{Address: source, HasAddress: true},
		Target: &types.Target{Address: target, HasAddress: true},
	})
}

func (d *Driver) attach(ctx context.Context, a *types.Attach) (*types.Attach, error) {
	if d.st < stateSessionBegun {
		return nil, errors.Wrapf(protoerr.InvalidData, "driver: attach called before session was begun")
	}
	if err := d.deadline(ctx); err != nil {
		return nil, err
	}
	if err := d.sendPerformative(a); err != nil {
		return nil, err
	}

	perf, _, err := d.nextPerformative(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkPeerClose(perf); err != nil {
		return nil, err
	}
	if perf.Attach == nil {
		return nil, errors.Wrapf(protoerr.InvalidData, "driver: expected Attach performative in reply")
	}
	logger.Debugf("driver: attached link %q handle=%d role=%v", perf.Attach.Name, perf.Attach.Handle, perf.Attach.Role)
	return perf.Attach, nil
}

// Flow issues a flow-control update for handle, granting linkCredit
// additional deliveries. Flow control beyond this static per-call grant
// is out of scope; Driver never tracks link-credit consumption.
func (d *Driver) Flow(ctx context.Context, handle, deliveryCount, linkCredit uint32) error {
	if err := d.deadline(ctx); err != nil {
		return err
	}
	flow := &types.Flow{
		HasNextIncomingID: true,
		NextIncomingID:    d.nextOutgoingID,
		IncomingWindow:    2147483647,
		NextOutgoingID:    d.nextOutgoingID,
		OutgoingWindow:    2147483647,
		HasHandle:         true,
		Handle:            handle,
		HasDeliveryCount:  true,
		DeliveryCount:     deliveryCount,
		HasLinkCredit:     true,
		LinkCredit:        linkCredit,
	}
	return d.sendPerformative(flow)
}

// Transfer sends a single, unsplit delivery on handle: deliveryID and
// deliveryTag identify it for later Disposition correlation, body is
// encoded as a single Data section carrying the Corda envelope bytes.
func (d *Driver) Transfer(ctx context.Context, handle, deliveryID uint32, deliveryTag, body []byte) error {
	return d.TransferMessage(ctx, handle, deliveryID, deliveryTag, nil, nil, body)
}

// TransferMessage sends a delivery whose message carries an optional
// Properties section and an optional ApplicationProperties section
// ahead of the Data body, the shape an RPC call needs to attach its
// message-id and Corda correlation metadata.
func (d *Driver) TransferMessage(ctx context.Context, handle, deliveryID uint32, deliveryTag []byte, props *types.Properties, appProps *types.ApplicationProperties, body []byte) error {
	if err := d.deadline(ctx); err != nil {
		return err
	}
	tr := &types.Transfer{
		Handle:           handle,
		HasDeliveryID:    true,
		DeliveryID:       deliveryID,
		DeliveryTag:      deliveryTag,
		HasMessageFormat: true,
		MessageFormat:    0,
	}
	var sections []performativeEncoder
	if props != nil {
		sections = append(sections, props)
	}
	if appProps != nil {
		sections = append(sections, appProps)
	}
	sections = append(sections, &types.Data{Payload: body})
	return d.sendPerformativeWithSections(tr, sections...)
}

// Next blocks for the next performative on the connection, exposing the
// message's Data section payload when the frame carried one (a Transfer
// reply always does; other performatives never do). Sections other than
// Data — Header, Properties, ApplicationProperties, and anything else a
// broker prepends — are skipped in place since this client only ever
// reads the body.
func (d *Driver) Next(ctx context.Context) (*types.Performative, []byte, error) {
	perf, remainder, err := d.nextPerformative(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := checkPeerClose(perf); err != nil {
		return nil, nil, err
	}
	if len(remainder) == 0 {
		return perf, nil, nil
	}
	payload, err := decodeBodySections(remainder)
	if err != nil {
		return nil, nil, err
	}
	return perf, payload, nil
}

// decodeBodySections walks a Transfer's trailing section stream in wire
// order until it finds the Data body, skipping any Header,
// DeliveryAnnotations, MessageAnnotations, Properties, or
// ApplicationProperties sections ahead of it.
func decodeBodySections(remainder []byte) ([]byte, error) {
	dec := encoding.NewDecoder(remainder)
	for dec.More() {
		isData, err := types.IsDataSection(dec)
		if err != nil {
			return nil, err
		}
		if isData {
			data, err := types.DecodeData(dec)
			if err != nil {
				return nil, err
			}
			return data.Payload, nil
		}
		if _, err := dec.CaptureValue(); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// Detach closes a single link without tearing down the whole session.
func (d *Driver) Detach(ctx context.Context, handle uint32) error {
	if err := d.deadline(ctx); err != nil {
		return err
	}
	detach := &types.Detach{Handle: handle, HasClosed: true, Closed: true}
	if err := d.sendPerformative(detach); err != nil {
		return err
	}
	perf, _, err := d.nextPerformative(ctx)
	if err != nil {
		return err
	}
	if perf.Detach == nil {
		return errors.Wrapf(protoerr.InvalidData, "driver: expected Detach performative in reply")
	}
	return checkPeerClose(perf)
}
