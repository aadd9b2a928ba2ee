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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/corda-amqp/protocol/pamqp/encoding"
)

func TestOpenRoundTrip(t *testing.T) {
	o := &Open{
		ContainerID:     "corda-rpc-client",
		HasMaxFrameSize: true,
		MaxFrameSize:    65536,
		HasChannelMax:   true,
		ChannelMax:      0,
	}
	enc := encoding.NewEncoder()
	o.Encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := DecodeOpen(dec)
	require.NoError(t, err)
	assert.Equal(t, o.ContainerID, got.ContainerID)
	assert.True(t, got.HasMaxFrameSize)
	assert.Equal(t, uint32(65536), got.MaxFrameSize)
	assert.True(t, got.HasChannelMax)
	assert.Equal(t, uint16(0), got.ChannelMax)
	assert.False(t, got.HasHostname)
}

func TestBeginRoundTrip(t *testing.T) {
	b := &Begin{
		NextOutgoingID: 1,
		IncomingWindow: 2147483647,
		OutgoingWindow: 2147483647,
	}
	enc := encoding.NewEncoder()
	b.Encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := DecodeBegin(dec)
	require.NoError(t, err)
	assert.False(t, got.HasRemoteChannel)
	assert.Equal(t, uint32(1), got.NextOutgoingID)
	assert.Equal(t, uint32(2147483647), got.IncomingWindow)
	assert.Equal(t, uint32(2147483647), got.OutgoingWindow)
}

func TestAttachSenderRoundTrip(t *testing.T) {
	a := &Attach{
		Name:                    "corda-rpc-uuid",
		Handle:                  0,
		Role:                    RoleSender,
		Source:                  &Source{Address: "container", HasAddress: true},
		Target:                  &Target{Address: "rpc.server", HasAddress: true},
		HasInitialDeliveryCount: true,
		InitialDeliveryCount:    0,
	}
	enc := encoding.NewEncoder()
	a.Encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := DecodeAttach(dec)
	require.NoError(t, err)
	assert.Equal(t, "corda-rpc-uuid", got.Name)
	assert.Equal(t, uint32(0), got.Handle)
	assert.Equal(t, RoleSender, got.Role)
	require.NotNil(t, got.Source)
	assert.Equal(t, "container", got.Source.Address)
	require.NotNil(t, got.Target)
	assert.Equal(t, "rpc.server", got.Target.Address)
}

func TestAttachReceiverRoundTrip(t *testing.T) {
	a := &Attach{
		Name:   "rpc.client.user.abc",
		Handle: 1,
		Role:   RoleReceiver,
		Source: &Source{Address: "rcv-queue", HasAddress: true},
		Target: &Target{Address: "container", HasAddress: true},
	}
	enc := encoding.NewEncoder()
	a.Encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := DecodeAttach(dec)
	require.NoError(t, err)
	assert.Equal(t, RoleReceiver, got.Role)
	assert.Equal(t, "rcv-queue", got.Source.Address)
	assert.Equal(t, "container", got.Target.Address)
}

func TestFlowRoundTrip(t *testing.T) {
	f := &Flow{
		HasNextIncomingID: true,
		NextIncomingID:    1,
		IncomingWindow:    2147483647,
		NextOutgoingID:    1,
		OutgoingWindow:    2147483647,
		HasHandle:         true,
		Handle:            1,
		HasDeliveryCount:  true,
		DeliveryCount:     0,
		HasLinkCredit:     true,
		LinkCredit:        1000,
	}
	enc := encoding.NewEncoder()
	f.Encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := DecodeFlow(dec)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got.NextIncomingID)
	assert.Equal(t, uint32(1000), got.LinkCredit)
	assert.Equal(t, uint32(1), got.Handle)
}

func TestTransferRoundTrip(t *testing.T) {
	tr := &Transfer{
		Handle:           0,
		HasDeliveryID:    true,
		DeliveryID:       0,
		DeliveryTag:      []byte{1, 2, 3, 4},
		HasMessageFormat: true,
		MessageFormat:    0,
	}
	enc := encoding.NewEncoder()
	tr.Encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := DecodeTransfer(dec)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got.Handle)
	assert.Equal(t, []byte{1, 2, 3, 4}, got.DeliveryTag)
	assert.True(t, got.HasMessageFormat)
}

func TestDetachRoundTrip(t *testing.T) {
	d := &Detach{Handle: 1, HasClosed: true, Closed: true}
	enc := encoding.NewEncoder()
	d.Encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := DecodeDetach(dec)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got.Handle)
	assert.True(t, got.Closed)
	assert.Nil(t, got.Error)
}

func TestCloseWithErrorRoundTrip(t *testing.T) {
	c := &Close{Error: &AmqpError{Condition: "amqp:internal-error", HasDescription: true, Description: "boom"}}
	enc := encoding.NewEncoder()
	c.Encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := DecodeClose(dec)
	require.NoError(t, err)
	require.NotNil(t, got.Error)
	assert.Equal(t, "amqp:internal-error", got.Error.Condition)
	assert.Equal(t, "boom", got.Error.Description)
}

func TestDecodePerformativeDispatch(t *testing.T) {
	o := &Open{ContainerID: "x"}
	enc := encoding.NewEncoder()
	o.Encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	p, err := DecodePerformative(dec)
	require.NoError(t, err)
	require.NotNil(t, p.Open)
	assert.Equal(t, "x", p.Open.ContainerID)
}
