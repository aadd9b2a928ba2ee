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
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/corda-amqp/protocol/protoerr"
)

// Encoder writes frames and protocol headers to one io.Writer (a
// net.Conn in production). Not safe for concurrent use.
type Encoder struct {
	w io.Writer
}

// NewEncoder wraps w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteHeader emits a protocol header verbatim, no length prefix.
func (e *Encoder) WriteHeader(h ProtocolHeader) error {
	b := h.Bytes()
	if _, err := e.w.Write(b[:]); err != nil {
		return errors.Wrap(protoerr.Io, err.Error())
	}
	return nil
}

// WriteFrame encodes a frame with data-offset 2 (an 8-byte header, no
// frame-type-specific extension) and back-patches the 4-byte total
// length, then writes it in one call.
func (e *Encoder) WriteFrame(typ uint8, channel uint16, body []byte) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var lenPlaceholder [4]byte
	buf.B = append(buf.B, lenPlaceholder[:]...)
	buf.B = append(buf.B, 2, typ)
	var ch [2]byte
	binary.BigEndian.PutUint16(ch[:], channel)
	buf.B = append(buf.B, ch[:]...)
	buf.B = append(buf.B, body...)

	binary.BigEndian.PutUint32(buf.B[:4], uint32(len(buf.B)))

	if _, err := e.w.Write(buf.B); err != nil {
		return errors.Wrap(protoerr.Io, err.Error())
	}
	return nil
}
