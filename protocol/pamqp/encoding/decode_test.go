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

package encoding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderPrimitives(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  any
		read  func(d *Decoder) (any, error)
	}{
		{
			name:  "BoolTrueCompact",
			input: []byte{0x41},
			want:  true,
			read:  func(d *Decoder) (any, error) { return d.ReadBool() },
		},
		{
			name:  "BoolFalseWidened",
			input: []byte{0x56, 0x00},
			want:  false,
			read:  func(d *Decoder) (any, error) { return d.ReadBool() },
		},
		{
			name:  "UintZero",
			input: []byte{0x43},
			want:  uint32(0),
			read:  func(d *Decoder) (any, error) { return d.ReadUint() },
		},
		{
			name:  "UintSmall",
			input: []byte{0x52, 0x07},
			want:  uint32(7),
			read:  func(d *Decoder) (any, error) { return d.ReadUint() },
		},
		{
			name:  "UintWide",
			input: []byte{0x70, 0x00, 0x01, 0x00, 0x00},
			want:  uint32(65536),
			read:  func(d *Decoder) (any, error) { return d.ReadUint() },
		},
		{
			name:  "UlongWide",
			input: []byte{0x80, 0, 0, 0, 0, 0, 0, 0, 42},
			want:  uint64(42),
			read:  func(d *Decoder) (any, error) { return d.ReadUlong() },
		},
		{
			name:  "Str8",
			input: append([]byte{0xa1, 0x05}, "PLAIN"...),
			want:  "PLAIN",
			read:  func(d *Decoder) (any, error) { return d.ReadString() },
		},
		{
			name:  "Symbol8",
			input: append([]byte{0xa3, 0x04}, "PLAIN"[:4]...),
			want:  "PLAI",
			read:  func(d *Decoder) (any, error) { return d.ReadSymbol() },
		},
		{
			name:  "Binary8",
			input: []byte{0xa0, 0x03, 0x01, 0x02, 0x03},
			want:  []byte{0x01, 0x02, 0x03},
			read: func(d *Decoder) (any, error) {
				b, err := d.ReadBinary()
				return b, err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := NewDecoder(tt.input)
			got, err := tt.read(dec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, dec.Empty())
		})
	}
}

func TestDecoderTimestamp(t *testing.T) {
	ts := time.UnixMilli(1_700_000_000_000).UTC()
	enc := NewEncoder()
	enc.WriteTimestamp(ts)
	dec := NewDecoder(enc.Bytes())
	got, err := dec.ReadTimestamp()
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))
}

func TestDecoderEnterList(t *testing.T) {
	// list8 with two fields: a str8 "a", a uint 1 (small form)
	input := []byte{
		0xc0, 0x06, 0x02,
		0xa1, 0x01, 'a',
		0x52, 0x01,
	}
	dec := NewDecoder(input)
	sub, count, err := dec.EnterList()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	s, err := sub.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "a", s)

	v, err := sub.ReadUint()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v)
	assert.True(t, sub.Empty())
}

func TestDecoderEnterListWithDescriptor(t *testing.T) {
	// 0x00 descriptor (symbol "amqp:open:list"), then list0.
	name := "amqp:open:list"
	input := append([]byte{0x00, 0xa3, byte(len(name))}, name...)
	input = append(input, 0x45)

	dec := NewDecoder(input)
	sub, count, err := dec.EnterList()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.True(t, sub.Empty())
}

func TestDecoderEnterArrayHoistsConstructor(t *testing.T) {
	enc := NewEncoder()
	enc.WriteSymbolArray([]string{"net.corda:a", "net.corda:b"})
	dec := NewDecoder(enc.Bytes())

	sub, count, err := dec.EnterArray()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for i := 0; i < count; i++ {
		s, err := sub.ReadSymbol()
		require.NoError(t, err)
		assert.NotEmpty(t, s)
	}
}

func TestDecoderUnexpectedEnd(t *testing.T) {
	dec := NewDecoder([]byte{0x70, 0x00, 0x01})
	_, err := dec.ReadUint()
	assert.ErrorIs(t, err, ErrUnexpectedEnd)
}

func TestCaptureValuePrimitive(t *testing.T) {
	enc := NewEncoder()
	enc.WriteString("hello")
	enc.WriteUint(99)

	dec := NewDecoder(enc.Bytes())
	raw, err := dec.CaptureValue()
	require.NoError(t, err)

	sub := NewDecoder(raw)
	s, err := sub.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
	assert.True(t, sub.Empty())

	u, err := dec.ReadUint()
	require.NoError(t, err)
	assert.Equal(t, uint32(99), u)
}

func TestCaptureValueCompound(t *testing.T) {
	enc := NewEncoder()
	mark := enc.BeginList()
	enc.WriteString("a")
	enc.WriteString("b")
	enc.EndList(mark, 2)
	enc.WriteBool(true)

	dec := NewDecoder(enc.Bytes())
	raw, err := dec.CaptureValue()
	require.NoError(t, err)

	sub, count, err := NewDecoder(raw).EnterList()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	s, err := sub.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "a", s)

	b, err := dec.ReadBool()
	require.NoError(t, err)
	assert.True(t, b)
}

func TestDescriptorMatching(t *testing.T) {
	d := Descriptor{Code: 0x10}
	assert.True(t, d.MatchesCode(0x10))
	assert.False(t, d.MatchesName("amqp:open:list"))

	d2 := Descriptor{Name: "amqp:open:list", Symbol: true}
	assert.True(t, d2.MatchesName("amqp:open:list"))
	assert.False(t, d2.MatchesCode(0x10))
}
