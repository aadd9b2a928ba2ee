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
	"bufio"
	"context"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/packetd/corda-amqp/protocol/protoerr"
)

// minFrameSize is the smallest legal frame: an 8-byte header with no
// body (doff=2, nothing following).
const minFrameSize = 8

// Decoder reads frames and protocol headers off one net.Conn (or any
// io.Reader standing in for one in tests). It is not safe for
// concurrent use — matching the single-owner, single-flight connection
// model the driver built on top of it assumes.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r. r is read in whatever chunks bufio.Reader chooses;
// the frames returned by Next borrow bufio's internal buffer and are
// only valid until the next Next call, same contract as
// encoding.Decoder's borrowed slices one layer down.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next blocks until one full frame or protocol header is available,
// honoring ctx only between reads it is about to make — once a read is
// in flight against the underlying connection it runs to completion,
// matching "implementer is expected to wrap next() in an external
// timeout" rather than this layer owning cancellation of a live socket
// read.
func (d *Decoder) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	peek, err := d.r.Peek(4)
	if err != nil {
		return nil, errors.Wrap(protoerr.Io, err.Error())
	}
	if string(peek) == "AMQP" {
		full, err := d.r.Peek(8)
		if err != nil {
			return nil, errors.Wrap(protoerr.Io, err.Error())
		}
		hdr := ProtocolHeader{ProtoID: full[4], Major: full[5], Minor: full[6], Revision: full[7]}
		if _, err := d.r.Discard(8); err != nil {
			return nil, errors.Wrap(protoerr.Io, err.Error())
		}
		return &Frame{IsHeader: true, Header: hdr}, nil
	}

	lenBytes, err := d.r.Peek(4)
	if err != nil {
		return nil, errors.Wrap(protoerr.Io, err.Error())
	}
	total := binary.BigEndian.Uint32(lenBytes)
	if total < minFrameSize {
		return nil, errors.Wrapf(protoerr.InvalidData, "frame: declared length %d below minimum %d", total, minFrameSize)
	}

	raw, err := d.r.Peek(int(total))
	if err != nil {
		return nil, errors.Wrap(protoerr.Io, err.Error())
	}
	if _, err := d.r.Discard(int(total)); err != nil {
		return nil, errors.Wrap(protoerr.Io, err.Error())
	}

	doff := raw[4]
	typ := raw[5]
	channel := binary.BigEndian.Uint16(raw[6:8])
	headerBytes := int(doff) * 4
	if headerBytes < 8 || headerBytes > int(total) {
		return nil, errors.Wrapf(protoerr.InvalidData, "frame: data offset %d inconsistent with length %d", headerBytes, total)
	}

	return &Frame{
		Type:    typ,
		Channel: channel,
		Body:    raw[headerBytes:total],
	}, nil
}
