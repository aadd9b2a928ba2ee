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

package frame

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteHeader(AMQPProtocolHeader()))

	dec := NewDecoder(&buf)
	f, err := dec.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, f.IsHeader)
	assert.Equal(t, uint8(0), f.Header.ProtoID)
	assert.Equal(t, uint8(1), f.Header.Major)
}

func TestSASLProtocolHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteHeader(SASLProtocolHeader()))

	dec := NewDecoder(&buf)
	f, err := dec.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, f.IsHeader)
	assert.Equal(t, uint8(3), f.Header.ProtoID)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	body := []byte{0x00, 0x53, 0x10, 0x45}
	require.NoError(t, enc.WriteFrame(TypeAMQP, 0, body))

	dec := NewDecoder(&buf)
	f, err := dec.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, f.IsHeader)
	assert.Equal(t, TypeAMQP, f.Type)
	assert.Equal(t, uint16(0), f.Channel)
	assert.Equal(t, body, f.Body)
}

func TestFrameLengthPrefixMatchesTotalLength(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	body := []byte{0x01, 0x02, 0x03}
	require.NoError(t, enc.WriteFrame(TypeSASL, 7, body))

	raw := buf.Bytes()
	var length uint32
	for i := 0; i < 4; i++ {
		length = length<<8 | uint32(raw[i])
	}
	assert.Equal(t, uint32(len(raw)), length)
}

func TestHeaderThenFrameSequence(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteHeader(SASLProtocolHeader()))
	require.NoError(t, enc.WriteFrame(TypeSASL, 0, []byte{0xde, 0xad}))
	require.NoError(t, enc.WriteHeader(AMQPProtocolHeader()))

	dec := NewDecoder(&buf)
	f1, err := dec.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, f1.IsHeader)

	f2, err := dec.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, f2.IsHeader)
	assert.Equal(t, []byte{0xde, 0xad}, f2.Body)

	f3, err := dec.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, f3.IsHeader)
	assert.Equal(t, uint8(0), f3.Header.ProtoID)
}
