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
	"github.com/pkg/errors"

	"github.com/packetd/corda-amqp/protocol/protoerr"
)

// ErrUnexpectedEnd is returned whenever a read runs past the end of the
// decoder's backing buffer. It is protoerr.UnexpectedEnd so callers
// higher up the stack can match it with a single errors.Is, regardless
// of which layer first detected the short read.
var ErrUnexpectedEnd = protoerr.UnexpectedEnd

// Decoder reads AMQP 1.0 primitives out of a borrowed byte slice. Every
// ReadXxx call advances the cursor. ReadString and ReadSymbol return Go
// strings, which are copies; the []byte results (ReadBinary,
// CaptureValue, Remaining) borrow the buffer the Decoder was built from,
// and the caller must copy them out to outlive it.
//
// constructor implements array constructor hoisting: once a Decoder has
// entered the body of an array (0xe0/0xf0), every element shares the one
// format code read from the array header instead of carrying its own.
// hoisted is false for an ordinary Decoder.
type Decoder struct {
	buf       []byte
	pos       int
	ctor      byte
	hoisted   bool
}

// NewDecoder wraps buf for sequential reads starting at offset 0.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Len returns the number of unread bytes.
func (d *Decoder) Len() int { return len(d.buf) - d.pos }

// Empty reports whether the decoder has no unread bytes left.
func (d *Decoder) Empty() bool { return d.Len() <= 0 }

// Remaining returns the unread tail of the backing buffer, still borrowed.
func (d *Decoder) Remaining() []byte { return d.buf[d.pos:] }

func (d *Decoder) peekByte() (byte, error) {
	if d.Len() < 1 {
		return 0, ErrUnexpectedEnd
	}
	return d.buf[d.pos], nil
}

func (d *Decoder) readByte() (byte, error) {
	b, err := d.peekByte()
	if err != nil {
		return 0, err
	}
	d.pos++
	return b, nil
}

func (d *Decoder) readBytes(n int) ([]byte, error) {
	if d.Len() < n {
		return nil, ErrUnexpectedEnd
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) assume(expect byte) error {
	code, err := d.nextCode()
	if err != nil {
		return err
	}
	if code != expect {
		return errors.Errorf("amqp/encoding: expected format code 0x%02x, got 0x%02x", expect, code)
	}
	return nil
}

// peekCode returns the next format code, honoring a hoisted array
// constructor without consuming a byte from the buffer.
func (d *Decoder) peekCode() (byte, error) {
	if d.hoisted {
		return d.ctor, nil
	}
	return d.peekByte()
}

// nextCode consumes and returns the next format code, honoring a hoisted
// array constructor (in which case no byte is consumed).
func (d *Decoder) nextCode() (byte, error) {
	if d.hoisted {
		return d.ctor, nil
	}
	return d.readByte()
}

func (d *Decoder) readUint32() (uint32, error) {
	b, err := d.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *Decoder) readUint64() (uint64, error) {
	b, err := d.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// PeekCode returns the next format code without consuming it, honoring a
// hoisted array constructor. Callers that need to dispatch on type before
// committing to a ReadXxx call (Any's dynamic decode) use this instead of
// trial-and-error, since a failed ReadXxx already consumes its code byte.
func (d *Decoder) PeekCode() (byte, error) {
	return d.peekCode()
}

// IsNull reports whether the next value is the null primitive (0x40)
// without consuming it. Composite fields use this to implement AMQP's
// "omitted trailing field" rule.
func (d *Decoder) IsNull() bool {
	code, err := d.peekCode()
	return err == nil && code == TypeCodeNull
}

// ReadNull consumes the null primitive.
func (d *Decoder) ReadNull() error {
	return d.assume(TypeCodeNull)
}

// ReadDescriptor reads the 0x00 tag and the numeric-or-symbolic value that
// follows it, per amqp:descriptor in the AMQP 1.0 type system.
func (d *Decoder) ReadDescriptor() (Descriptor, error) {
	if err := d.assume(TypeCodeDescriptor); err != nil {
		return Descriptor{}, err
	}
	code, err := d.peekCode()
	if err != nil {
		return Descriptor{}, err
	}
	switch code {
	case TypeCodeUlong0, TypeCodeSmallUlong, TypeCodeUlong:
		v, err := d.ReadUlong()
		if err != nil {
			return Descriptor{}, err
		}
		return Descriptor{Code: v}, nil
	case TypeCodeSym8, TypeCodeSym32:
		s, err := d.ReadSymbol()
		if err != nil {
			return Descriptor{}, err
		}
		return Descriptor{Name: s, Symbol: true}, nil
	default:
		return Descriptor{}, errors.Errorf("amqp/encoding: invalid descriptor format code 0x%02x", code)
	}
}

// ReadBool decodes true/false, true/0x01/0x00, in any of their three wire
// representations (0x56 widened, 0x41, 0x42).
func (d *Decoder) ReadBool() (bool, error) {
	code, err := d.nextCode()
	if err != nil {
		return false, err
	}
	switch code {
	case TypeCodeBool:
		b, err := d.readByte()
		if err != nil {
			return false, err
		}
		return b == 0x01, nil
	case TypeCodeBoolTrue:
		return true, nil
	case TypeCodeBoolFalse:
		return false, nil
	default:
		return false, errors.Errorf("amqp/encoding: invalid bool format code 0x%02x", code)
	}
}

// ReadUbyte decodes an unsigned 8-bit integer.
func (d *Decoder) ReadUbyte() (uint8, error) {
	if err := d.assume(TypeCodeUbyte); err != nil {
		return 0, err
	}
	return d.readByte()
}

// ReadUshort decodes an unsigned 16-bit integer.
func (d *Decoder) ReadUshort() (uint16, error) {
	if err := d.assume(TypeCodeUshort); err != nil {
		return 0, err
	}
	b, err := d.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadUint decodes an unsigned 32-bit integer in any of its three
// encodings (0 bytes, 1 byte, 4 bytes).
func (d *Decoder) ReadUint() (uint32, error) {
	code, err := d.nextCode()
	if err != nil {
		return 0, err
	}
	switch code {
	case TypeCodeUint0:
		return 0, nil
	case TypeCodeSmallUint:
		b, err := d.readByte()
		return uint32(b), err
	case TypeCodeUint:
		return d.readUint32()
	default:
		return 0, errors.Errorf("amqp/encoding: invalid uint format code 0x%02x", code)
	}
}

// ReadUlong decodes an unsigned 64-bit integer in any of its three
// encodings.
func (d *Decoder) ReadUlong() (uint64, error) {
	code, err := d.nextCode()
	if err != nil {
		return 0, err
	}
	switch code {
	case TypeCodeUlong0:
		return 0, nil
	case TypeCodeSmallUlong:
		b, err := d.readByte()
		return uint64(b), err
	case TypeCodeUlong:
		return d.readUint64()
	default:
		return 0, errors.Errorf("amqp/encoding: invalid ulong format code 0x%02x", code)
	}
}

// ReadByte decodes a signed 8-bit integer.
func (d *Decoder) ReadByte() (int8, error) {
	if err := d.assume(TypeCodeByte); err != nil {
		return 0, err
	}
	b, err := d.readByte()
	return int8(b), err
}

// ReadShort decodes a signed 16-bit integer.
func (d *Decoder) ReadShort() (int16, error) {
	if err := d.assume(TypeCodeShort); err != nil {
		return 0, err
	}
	b, err := d.readBytes(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

// ReadInt decodes a signed 32-bit integer in either of its two encodings.
// The compact form's byte is zero-extended, not sign-extended: WriteInt
// only ever uses it for v in [0, 256), so the byte is always a plain
// unsigned magnitude, never a negative two's-complement value.
func (d *Decoder) ReadInt() (int32, error) {
	code, err := d.nextCode()
	if err != nil {
		return 0, err
	}
	switch code {
	case TypeCodeSmallInt:
		b, err := d.readByte()
		return int32(b), err
	case TypeCodeInt:
		v, err := d.readUint32()
		return int32(v), err
	default:
		return 0, errors.Errorf("amqp/encoding: invalid int format code 0x%02x", code)
	}
}

// ReadLong decodes a signed 64-bit integer in either of its two encodings,
// zero-extending the compact form's byte for the same reason as ReadInt.
func (d *Decoder) ReadLong() (int64, error) {
	code, err := d.nextCode()
	if err != nil {
		return 0, err
	}
	switch code {
	case TypeCodeSmallLong:
		b, err := d.readByte()
		return int64(b), err
	case TypeCodeLong:
		v, err := d.readUint64()
		return int64(v), err
	default:
		return 0, errors.Errorf("amqp/encoding: invalid long format code 0x%02x", code)
	}
}

// ReadFloat decodes an IEEE-754 single-precision float.
func (d *Decoder) ReadFloat() (float32, error) {
	if err := d.assume(TypeCodeFloat); err != nil {
		return 0, err
	}
	v, err := d.readUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadDouble decodes an IEEE-754 double-precision float.
func (d *Decoder) ReadDouble() (float64, error) {
	if err := d.assume(TypeCodeDouble); err != nil {
		return 0, err
	}
	v, err := d.readUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadTimestamp decodes a 64-bit signed millisecond offset from the Unix
// epoch into a time.Time.
func (d *Decoder) ReadTimestamp() (time.Time, error) {
	if err := d.assume(TypeCodeTimestamp); err != nil {
		return time.Time{}, err
	}
	v, err := d.readUint64()
	if err != nil {
		return time.Time{}, err
	}
	ms := int64(v)
	return time.UnixMilli(ms).UTC(), nil
}

// ReadUUID decodes a 16-byte UUID.
func (d *Decoder) ReadUUID() (uuid.UUID, error) {
	if err := d.assume(TypeCodeUUID); err != nil {
		return uuid.UUID{}, err
	}
	b, err := d.readBytes(16)
	if err != nil {
		return uuid.UUID{}, err
	}
	var id uuid.UUID
	copy(id[:], b)
	return id, nil
}

func (d *Decoder) readVariableLength(code8, code32 byte) ([]byte, error) {
	c, err := d.nextCode()
	if err != nil {
		return nil, err
	}
	var n int
	switch c {
	case code8:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		n = int(b)
	case code32:
		v, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		n = int(v)
	default:
		return nil, errors.Errorf("amqp/encoding: invalid variable-width format code 0x%02x", c)
	}
	return d.readBytes(n)
}

// ReadBinary decodes an opaque binary value, still borrowed from the
// underlying buffer.
func (d *Decoder) ReadBinary() ([]byte, error) {
	return d.readVariableLength(TypeCodeVbin8, TypeCodeVbin32)
}

// ReadString decodes a UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	b, err := d.readVariableLength(TypeCodeStr8, TypeCodeStr32)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadSymbol decodes an ASCII symbol. Symbols and strings share the same
// variable-length encoding shape but use distinct format codes.
func (d *Decoder) ReadSymbol() (string, error) {
	b, err := d.readVariableLength(TypeCodeSym8, TypeCodeSym32)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// compositeHeader is the common shape of list/map/array headers: a byte
// size for the body, an element count, and (arrays only) a single hoisted
// constructor byte shared by every element.
type compositeHeader struct {
	size int
	// count is the number of direct children: fields for a list, 2*pairs
	// for a map, elements for an array.
	count     int
	ctor      byte
	isArray   bool
}

func (d *Decoder) readComposite() (compositeHeader, error) {
	code, err := d.readByte()
	if err != nil {
		return compositeHeader{}, err
	}
	switch code {
	case TypeCodeList0:
		return compositeHeader{}, nil
	case TypeCodeList8, TypeCodeMap8:
		sz, err := d.readByte()
		if err != nil {
			return compositeHeader{}, err
		}
		cnt, err := d.readByte()
		if err != nil {
			return compositeHeader{}, err
		}
		return compositeHeader{size: int(sz) - 1, count: int(cnt)}, nil
	case TypeCodeList32, TypeCodeMap32:
		sz, err := d.readUint32()
		if err != nil {
			return compositeHeader{}, err
		}
		cnt, err := d.readUint32()
		if err != nil {
			return compositeHeader{}, err
		}
		return compositeHeader{size: int(sz) - 4, count: int(cnt)}, nil
	case TypeCodeArray8:
		sz, err := d.readByte()
		if err != nil {
			return compositeHeader{}, err
		}
		cnt, err := d.readByte()
		if err != nil {
			return compositeHeader{}, err
		}
		ctor, err := d.readByte()
		if err != nil {
			return compositeHeader{}, err
		}
		return compositeHeader{size: int(sz) - 2, count: int(cnt), ctor: ctor, isArray: true}, nil
	case TypeCodeArray32:
		sz, err := d.readUint32()
		if err != nil {
			return compositeHeader{}, err
		}
		cnt, err := d.readUint32()
		if err != nil {
			return compositeHeader{}, err
		}
		ctor, err := d.readByte()
		if err != nil {
			return compositeHeader{}, err
		}
		return compositeHeader{size: int(sz) - 5, count: int(cnt), ctor: ctor, isArray: true}, nil
	default:
		return compositeHeader{}, errors.Errorf("amqp/encoding: invalid compound format code 0x%02x", code)
	}
}

// EnterList reads a list header (list0/list8/list32) and returns a
// sub-decoder bounded to the list body plus the element count. A leading
// descriptor, if present, is read and discarded first. The parent is
// advanced past the whole list body before EnterList returns, so it is
// already positioned at the next value.
func (d *Decoder) EnterList() (*Decoder, int, error) {
	if d.peekLooksLikeDescriptor() {
		if _, err := d.ReadDescriptor(); err != nil {
			return nil, 0, err
		}
	}
	hdr, err := d.readComposite()
	if err != nil {
		return nil, 0, err
	}
	if hdr.isArray {
		return nil, 0, errors.New("amqp/encoding: expected list, found array")
	}
	body, err := d.readBytes(hdr.size)
	if err != nil {
		return nil, 0, err
	}
	return NewDecoder(body), hdr.count, nil
}

// EnterArray reads an array header (array8/array32) and returns a
// sub-decoder over the element body with its constructor hoisted, plus
// the element count.
func (d *Decoder) EnterArray() (*Decoder, int, error) {
	hdr, err := d.readComposite()
	if err != nil {
		return nil, 0, err
	}
	if !hdr.isArray {
		return nil, 0, errors.New("amqp/encoding: expected array, found list/map")
	}
	body, err := d.readBytes(hdr.size)
	if err != nil {
		return nil, 0, err
	}
	return &Decoder{buf: body, ctor: hdr.ctor, hoisted: true}, hdr.count, nil
}

// EnterMap reads a map header (map8/map32) and returns a sub-decoder over
// the key/value body plus the number of pairs (count/2).
func (d *Decoder) EnterMap() (*Decoder, int, error) {
	hdr, err := d.readComposite()
	if err != nil {
		return nil, 0, err
	}
	if hdr.isArray {
		return nil, 0, errors.New("amqp/encoding: expected map, found array")
	}
	body, err := d.readBytes(hdr.size)
	if err != nil {
		return nil, 0, err
	}
	return NewDecoder(body), hdr.count / 2, nil
}

// peekLooksLikeDescriptor reports whether the next byte is the 0x00
// descriptor tag. Corda's RPC envelope nests described lists inside
// other described lists (a composite-typed field), so every composite
// decode must tolerate an optional leading descriptor the same way the
// upstream deserializer does.
func (d *Decoder) peekLooksLikeDescriptor() bool {
	b, err := d.peekByte()
	return err == nil && b == TypeCodeDescriptor
}

// CaptureValue consumes exactly one complete value (a primitive, or a
// compound with everything nested inside it) and returns the raw bytes
// it occupied, still borrowed from the backing buffer. Corda's envelope
// carries a polymorphic "obj" field whose shape depends on the schema
// that follows it; rather than needing to know that shape up front, the
// envelope codec captures it as opaque bytes and leaves decoding it to
// whichever RPC method knows what it should contain.
func (d *Decoder) CaptureValue() ([]byte, error) {
	start := d.pos
	if err := d.skipValue(); err != nil {
		return nil, err
	}
	return d.buf[start:d.pos], nil
}

func (d *Decoder) skipValue() error {
	code, err := d.peekCode()
	if err != nil {
		return err
	}
	switch code {
	case TypeCodeNull, TypeCodeBoolTrue, TypeCodeBoolFalse, TypeCodeUint0, TypeCodeUlong0, TypeCodeList0:
		_, err = d.nextCode()
		return err
	case TypeCodeBool, TypeCodeUbyte, TypeCodeSmallUint, TypeCodeSmallUlong, TypeCodeSmallInt, TypeCodeSmallLong, TypeCodeByte:
		if _, err := d.nextCode(); err != nil {
			return err
		}
		_, err = d.readByte()
		return err
	case TypeCodeUshort, TypeCodeShort:
		if _, err := d.nextCode(); err != nil {
			return err
		}
		_, err = d.readBytes(2)
		return err
	case TypeCodeUint, TypeCodeInt, TypeCodeFloat:
		if _, err := d.nextCode(); err != nil {
			return err
		}
		_, err = d.readBytes(4)
		return err
	case TypeCodeUlong, TypeCodeLong, TypeCodeDouble, TypeCodeTimestamp:
		if _, err := d.nextCode(); err != nil {
			return err
		}
		_, err = d.readBytes(8)
		return err
	case TypeCodeUUID:
		if _, err := d.nextCode(); err != nil {
			return err
		}
		_, err = d.readBytes(16)
		return err
	case TypeCodeVbin8, TypeCodeStr8, TypeCodeSym8:
		if _, err := d.nextCode(); err != nil {
			return err
		}
		n, err := d.readByte()
		if err != nil {
			return err
		}
		_, err = d.readBytes(int(n))
		return err
	case TypeCodeVbin32, TypeCodeStr32, TypeCodeSym32:
		if _, err := d.nextCode(); err != nil {
			return err
		}
		n, err := d.readUint32()
		if err != nil {
			return err
		}
		_, err = d.readBytes(int(n))
		return err
	case TypeCodeList8, TypeCodeList32, TypeCodeMap8, TypeCodeMap32, TypeCodeArray8, TypeCodeArray32:
		hdr, err := d.readComposite()
		if err != nil {
			return err
		}
		_, err = d.readBytes(hdr.size)
		return err
	case TypeCodeDescriptor:
		if _, err := d.nextCode(); err != nil {
			return err
		}
		if err := d.skipValue(); err != nil {
			return err
		}
		return d.skipValue()
	default:
		return errors.Errorf("amqp/encoding: cannot skip unknown format code 0x%02x", code)
	}
}

// More reports whether the sub-decoder returned by EnterList/EnterArray/
// EnterMap has at least one more field's worth of bytes left. Composite
// decoders use this to implement AMQP's trailing-omitted-field rule:
// once a list runs out of encoded fields, every remaining struct field
// takes its zero value without consuming or requiring an explicit null.
func (d *Decoder) More() bool {
	return !d.Empty()
}
