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
	"encoding/binary"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/bytebufferpool"
)

// Encoder builds an AMQP 1.0 primitive stream into a pooled byte buffer.
// Variable-width compound headers (list32/map32/array32) are written with
// a zero placeholder that Begin/End pairs patch once the body length is
// known, the same two-pass approach the reference serializer this was
// grounded on uses for its struct/map bodies.
type Encoder struct {
	buf *bytebufferpool.ByteBuffer
}

// NewEncoder returns an Encoder backed by a buffer drawn from the shared
// pool. Call Release when done with it.
func NewEncoder() *Encoder {
	return &Encoder{buf: bytebufferpool.Get()}
}

// Release returns the underlying buffer to the pool. The Encoder must not
// be used afterward.
func (e *Encoder) Release() {
	bytebufferpool.Put(e.buf)
}

// Bytes returns the encoded stream so far. The slice is only valid until
// the next Write call or Release.
func (e *Encoder) Bytes() []byte {
	return e.buf.B
}

func (e *Encoder) writeByte(b byte) {
	e.buf.B = append(e.buf.B, b)
}

func (e *Encoder) writeBytes(b []byte) {
	e.buf.B = append(e.buf.B, b...)
}

func (e *Encoder) writeUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	e.writeBytes(b[:])
}

func (e *Encoder) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.writeBytes(b[:])
}

func (e *Encoder) writeUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.writeBytes(b[:])
}

// WriteNull writes the null primitive.
func (e *Encoder) WriteNull() {
	e.writeByte(TypeCodeNull)
}

// WriteBool writes the compact one-byte boolean encoding.
func (e *Encoder) WriteBool(v bool) {
	if v {
		e.writeByte(TypeCodeBoolTrue)
	} else {
		e.writeByte(TypeCodeBoolFalse)
	}
}

// WriteUbyte writes an unsigned 8-bit integer.
func (e *Encoder) WriteUbyte(v uint8) {
	e.writeByte(TypeCodeUbyte)
	e.writeByte(v)
}

// WriteUshort writes an unsigned 16-bit integer.
func (e *Encoder) WriteUshort(v uint16) {
	e.writeByte(TypeCodeUshort)
	e.writeUint16(v)
}

// WriteUint writes an unsigned 32-bit integer, preferring the compact
// zero/one-byte encodings when the value allows it.
func (e *Encoder) WriteUint(v uint32) {
	switch {
	case v == 0:
		e.writeByte(TypeCodeUint0)
	case v < 256:
		e.writeByte(TypeCodeSmallUint)
		e.writeByte(byte(v))
	default:
		e.writeByte(TypeCodeUint)
		e.writeUint32(v)
	}
}

// WriteUlong writes an unsigned 64-bit integer, preferring the compact
// zero/one-byte encodings when the value allows it.
func (e *Encoder) WriteUlong(v uint64) {
	switch {
	case v == 0:
		e.writeByte(TypeCodeUlong0)
	case v < 256:
		e.writeByte(TypeCodeSmallUlong)
		e.writeByte(byte(v))
	default:
		e.writeByte(TypeCodeUlong)
		e.writeUint64(v)
	}
}

// WriteByte writes a signed 8-bit integer.
func (e *Encoder) WriteByte(v int8) {
	e.writeByte(TypeCodeByte)
	e.writeByte(byte(v))
}

// WriteShort writes a signed 16-bit integer.
func (e *Encoder) WriteShort(v int16) {
	e.writeByte(TypeCodeShort)
	e.writeUint16(uint16(v))
}

// WriteInt writes a signed 32-bit integer, preferring the compact
// single-byte encoding for v in [0, 256) — the range this wire format
// reserves the compact form for; values outside it, including all
// negatives, always take the 4-byte form.
func (e *Encoder) WriteInt(v int32) {
	if v >= 0 && v < 256 {
		e.writeByte(TypeCodeSmallInt)
		e.writeByte(byte(v))
		return
	}
	e.writeByte(TypeCodeInt)
	e.writeUint32(uint32(v))
}

// WriteLong writes a signed 64-bit integer, preferring the compact
// single-byte encoding for v in [0, 256), matching WriteInt.
func (e *Encoder) WriteLong(v int64) {
	if v >= 0 && v < 256 {
		e.writeByte(TypeCodeSmallLong)
		e.writeByte(byte(v))
		return
	}
	e.writeByte(TypeCodeLong)
	e.writeUint64(uint64(v))
}

// WriteFloat writes an IEEE-754 single-precision float.
func (e *Encoder) WriteFloat(v float32) {
	e.writeByte(TypeCodeFloat)
	e.writeUint32(math.Float32bits(v))
}

// WriteDouble writes an IEEE-754 double-precision float.
func (e *Encoder) WriteDouble(v float64) {
	e.writeByte(TypeCodeDouble)
	e.writeUint64(math.Float64bits(v))
}

// WriteTimestamp writes t as a 64-bit signed millisecond offset from the
// Unix epoch.
func (e *Encoder) WriteTimestamp(t time.Time) {
	e.writeByte(TypeCodeTimestamp)
	e.writeUint64(uint64(t.UnixMilli()))
}

// WriteUUID writes a 16-byte UUID.
func (e *Encoder) WriteUUID(id uuid.UUID) {
	e.writeByte(TypeCodeUUID)
	e.writeBytes(id[:])
}

func (e *Encoder) writeVariableLength(code8, code32 byte, b []byte) {
	if len(b) < 256 {
		e.writeByte(code8)
		e.writeByte(byte(len(b)))
	} else {
		e.writeByte(code32)
		e.writeUint32(uint32(len(b)))
	}
	e.writeBytes(b)
}

// WriteRaw appends already-encoded bytes verbatim, e.g. a value captured
// earlier with Decoder.CaptureValue, or a caller-supplied pre-encoded
// argument list.
func (e *Encoder) WriteRaw(b []byte) {
	e.writeBytes(b)
}

// WriteBinary writes an opaque binary value.
func (e *Encoder) WriteBinary(b []byte) {
	e.writeVariableLength(TypeCodeVbin8, TypeCodeVbin32, b)
}

// WriteString writes a UTF-8 string.
func (e *Encoder) WriteString(s string) {
	e.writeVariableLength(TypeCodeStr8, TypeCodeStr32, []byte(s))
}

// WriteSymbol writes an ASCII symbol.
func (e *Encoder) WriteSymbol(s string) {
	e.writeVariableLength(TypeCodeSym8, TypeCodeSym32, []byte(s))
}

// WriteDescriptorCode writes a numeric composite descriptor (0x00 tag
// plus a ulong code).
func (e *Encoder) WriteDescriptorCode(code uint64) {
	e.writeByte(TypeCodeDescriptor)
	e.WriteUlong(code)
}

// WriteDescriptorSymbol writes a symbolic composite descriptor (0x00 tag
// plus a symbol name), the form Corda's envelope types use.
func (e *Encoder) WriteDescriptorSymbol(name string) {
	e.writeByte(TypeCodeDescriptor)
	e.WriteSymbol(name)
}

// listMark is returned by BeginList and consumed by EndList; it records
// where the list32 body starts so the size/count fields can be patched in
// after every field has been written.
type listMark struct {
	sizeOffset int
}

// BeginList reserves a list32 header (format code, 4-byte size, 4-byte
// count) and returns a mark for the matching EndList call. list32 is used
// unconditionally rather than picking list8 when small; this client never
// needs to shave four bytes off a handshake performative, and always
// knowing the header width keeps the Begin/End pairing trivial.
func (e *Encoder) BeginList() listMark {
	e.writeByte(TypeCodeList32)
	mark := listMark{sizeOffset: len(e.buf.B)}
	e.writeUint32(0)
	e.writeUint32(0)
	return mark
}

// EndList patches the list32 header written by BeginList with the number
// of bytes written since (the field count is the number of direct fields
// encoded, not the byte length).
func (e *Encoder) EndList(mark listMark, fieldCount int) {
	bodyLen := len(e.buf.B) - mark.sizeOffset - 4
	binary.BigEndian.PutUint32(e.buf.B[mark.sizeOffset:mark.sizeOffset+4], uint32(bodyLen))
	binary.BigEndian.PutUint32(e.buf.B[mark.sizeOffset+4:mark.sizeOffset+8], uint32(fieldCount))
}

// BeginMap reserves a map32 header; field count semantics mirror BeginList
// except the count covers key+value entries (2 per pair).
func (e *Encoder) BeginMap() listMark {
	e.writeByte(TypeCodeMap32)
	mark := listMark{sizeOffset: len(e.buf.B)}
	e.writeUint32(0)
	e.writeUint32(0)
	return mark
}

// EndMap patches a map32 header written by BeginMap with the total number
// of key+value entries written (twice the pair count).
func (e *Encoder) EndMap(mark listMark, entryCount int) {
	e.EndList(mark, entryCount)
}

// BeginArray reserves an array32 header with a one-byte element
// constructor. Every element written between BeginArray and EndArray must
// omit its own format code, since the constructor is shared across the
// whole array (see Decoder.EnterArray for the matching decode side).
func (e *Encoder) BeginArray(elementCode byte) listMark {
	e.writeByte(TypeCodeArray32)
	mark := listMark{sizeOffset: len(e.buf.B)}
	e.writeUint32(0)
	e.writeUint32(0)
	e.writeByte(elementCode)
	return mark
}

// EndArray patches an array32 header written by BeginArray. The size field
// covers everything after itself: the 4-byte count, the 1-byte element
// constructor, and the encoded elements — mirroring EndList, since the
// constructor byte was already appended right after the placeholder.
func (e *Encoder) EndArray(mark listMark, elementCount int) {
	bodyLen := len(e.buf.B) - mark.sizeOffset - 4
	binary.BigEndian.PutUint32(e.buf.B[mark.sizeOffset:mark.sizeOffset+4], uint32(bodyLen))
	binary.BigEndian.PutUint32(e.buf.B[mark.sizeOffset+4:mark.sizeOffset+8], uint32(elementCount))
}

// WriteSymbolArray writes a homogeneous array of symbols. Corda's schema
// composites (CompositeType.provides, RestrictedType.provides, Field.requires)
// are all arrays of this shape.
func (e *Encoder) WriteSymbolArray(values []string) {
	mark := e.BeginArray(TypeCodeSym32)
	for _, v := range values {
		b := []byte(v)
		e.writeUint32(uint32(len(b)))
		e.writeBytes(b)
	}
	e.EndArray(mark, len(values))
}
