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

// Package frame implements the AMQP 1.0 stream-framing layer: the
// 8-byte protocol-header handshake and the 4-byte length-prefixed frame
// body that carries performatives and message sections. It is the
// single active-duplex-connection reworking of the teacher's
// protocol/pamqp decoder state machine, which reassembled frames off a
// passively captured, potentially multiplexed byte stream; here there is
// exactly one net.Conn and no channel multiplexing to reassemble.
package frame

// TypeAMQP and TypeSASL distinguish the two frame bodies this client
// exchanges, carried in byte 1 of the frame header.
const (
	TypeAMQP uint8 = 0
	TypeSASL uint8 = 1
)

// protoIDAMQP and protoIDSASL are byte 4 of a protocol header, selecting
// which handshake is starting.
const (
	protoIDAMQP uint8 = 0
	protoIDSASL uint8 = 3
)

// ProtocolHeader is the 8-byte handshake frame exchanged before SASL and
// again before the AMQP connection proper: "AMQP" + protocol id + major
// + minor + revision.
type ProtocolHeader struct {
	ProtoID  uint8
	Major    uint8
	Minor    uint8
	Revision uint8
}

// AMQPProtocolHeader is the header that opens the AMQP connection
// (post-SASL, or directly if SASL is skipped).
func AMQPProtocolHeader() ProtocolHeader {
	return ProtocolHeader{ProtoID: protoIDAMQP, Major: 1}
}

// SASLProtocolHeader is the header that opens the SASL handshake.
func SASLProtocolHeader() ProtocolHeader {
	return ProtocolHeader{ProtoID: protoIDSASL, Major: 1}
}

// Bytes encodes the header to its 8-byte wire form.
func (h ProtocolHeader) Bytes() [8]byte {
	return [8]byte{'A', 'M', 'Q', 'P', h.ProtoID, h.Major, h.Minor, h.Revision}
}

// Frame is the tagged union this layer emits and accepts: either a bare
// ProtocolHeader, or a channel-addressed body of a given Type.
type Frame struct {
	IsHeader bool
	Header   ProtocolHeader

	Type    uint8
	Channel uint16
	// Body is the frame payload after the 8-byte frame header: for a
	// type-0 (AMQP) frame, a described performative optionally followed
	// by message sections; for a type-1 (SASL) frame, a single
	// described SASL composite. It borrows the Decoder's internal
	// buffer and is only valid until the next Next call.
	Body []byte
}
