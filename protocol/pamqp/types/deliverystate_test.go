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

func TestAcceptedRoundTrip(t *testing.T) {
	a := &Accepted{}
	enc := encoding.NewEncoder()
	a.Encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	_, err := DecodeAccepted(dec)
	require.NoError(t, err)
	assert.True(t, dec.Empty())
}

func TestRejectedWithErrorRoundTrip(t *testing.T) {
	r := &Rejected{Error: &AmqpError{Condition: "amqp:decode-error"}}
	enc := encoding.NewEncoder()
	r.Encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := DecodeRejected(dec)
	require.NoError(t, err)
	require.NotNil(t, got.Error)
	assert.Equal(t, "amqp:decode-error", got.Error.Condition)
}

func TestDeliveryStateDispatch(t *testing.T) {
	enc := encoding.NewEncoder()
	(&Accepted{}).Encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	ds, err := DecodeDeliveryState(dec)
	require.NoError(t, err)
	assert.NotNil(t, ds.Accepted)
	assert.Nil(t, ds.Rejected)
}

func TestDispositionRoundTrip(t *testing.T) {
	d := &Disposition{
		Role:    RoleReceiver,
		First:   0,
		Settled: true,
		State:   &DeliveryState{Accepted: &Accepted{}},
	}
	enc := encoding.NewEncoder()
	d.Encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := DecodeDisposition(dec)
	require.NoError(t, err)
	assert.Equal(t, RoleReceiver, got.Role)
	assert.True(t, got.Settled)
	require.NotNil(t, got.State)
	assert.NotNil(t, got.State.Accepted)
}
