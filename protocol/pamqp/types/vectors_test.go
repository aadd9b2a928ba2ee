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
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/corda-amqp/protocol/pamqp/encoding"
	"github.com/packetd/corda-amqp/protocol/pamqp/frame"
)

// These fix the handful of literal byte sequences a real broker is known
// to exchange, pinning the codec against the reference AMQP 1.0 wire
// format rather than only against its own round trip.

func TestSaslInitPlainWireBytes(t *testing.T) {
	init := &SaslInit{
		Mechanism:       "PLAIN",
		InitialResponse: PlainInitialResponse("user1", "psswd"),
	}
	enc := encoding.NewEncoder()
	defer enc.Release()
	init.Encode(enc)

	var buf bytes.Buffer
	fw := frame.NewEncoder(&buf)
	require.NoError(t, fw.WriteFrame(frame.TypeSASL, 0, enc.Bytes()))

	want := []byte("\x02\x01\x00\x00\x00SA\xd0\x00\x00\x00\x1a\x00\x00\x00\x03\xa3\x05PLAIN\xa0\x0c\x00user1\x00psswd\x40")
	got := buf.Bytes()
	require.Len(t, got, 4+len(want))
	assert.Equal(t, want, got[4:])
}

func TestSaslMechanismsDecodeWireBytes(t *testing.T) {
	input := []byte("AMQP\x03\x01\x00\x00\x00\x00\x00\x22\x02\x01\x00\x00\x00S@\xc0\x15\x01\xe0\x12\x02\xa3\x05PLAIN\tANONYMOUS")
	fd := frame.NewDecoder(bytes.NewReader(input))

	hdr, err := fd.Next(context.Background())
	require.NoError(t, err)
	require.True(t, hdr.IsHeader)
	assert.Equal(t, frame.SASLProtocolHeader(), hdr.Header)

	f, err := fd.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, frame.TypeSASL, f.Type)

	dec := encoding.NewDecoder(f.Body)
	mechs, err := DecodeSaslMechanisms(dec)
	require.NoError(t, err)
	assert.Equal(t, []string{"PLAIN", "ANONYMOUS"}, mechs.Mechanisms)
}

func TestOpenEncodeWireBytes(t *testing.T) {
	o := &Open{ContainerID: "source"}
	enc := encoding.NewEncoder()
	defer enc.Release()
	o.Encode(enc)

	var buf bytes.Buffer
	fw := frame.NewEncoder(&buf)
	require.NoError(t, fw.WriteFrame(frame.TypeAMQP, 0, enc.Bytes()))

	want := []byte("\x00\x00\x00\x24\x02\x00\x00\x00\x00S\x10\xd0\x00\x00\x00\x14\x00\x00\x00\x09\xa1\x06source@@@@@@@@")
	assert.Equal(t, want, buf.Bytes())
}

func TestBeginEncodeWireLength(t *testing.T) {
	b := &Begin{NextOutgoingID: 1, IncomingWindow: 8, OutgoingWindow: 8}
	enc := encoding.NewEncoder()
	defer enc.Release()
	b.Encode(enc)

	var buf bytes.Buffer
	fw := frame.NewEncoder(&buf)
	require.NoError(t, fw.WriteFrame(frame.TypeAMQP, 0, enc.Bytes()))

	got := buf.Bytes()
	require.Len(t, got, 31)
	assert.Equal(t, []byte("\x00\x00\x00\x1f\x02\x00\x00\x00\x00S\x11"), got[:11])
}

func TestDispositionDecodeWireBytes(t *testing.T) {
	input := []byte("\x00\x00\x00\x16\x02\x00\x00\x00\x00S\x15\xc0\x09\x05ACCA\x00S$E")
	fd := frame.NewDecoder(bytes.NewReader(input))

	f, err := fd.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, frame.TypeAMQP, f.Type)

	dec := encoding.NewDecoder(f.Body)
	d, err := DecodeDisposition(dec)
	require.NoError(t, err)
	assert.Equal(t, RoleReceiver, d.Role)
	assert.EqualValues(t, 0, d.First)
	assert.True(t, d.HasLast)
	assert.EqualValues(t, 0, d.Last)
	assert.True(t, d.Settled)
	require.NotNil(t, d.State)
	assert.NotNil(t, d.State.Accepted)
}
