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

package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/corda-amqp/corda/envelope"
	"github.com/packetd/corda-amqp/protocol/pamqp/driver"
	"github.com/packetd/corda-amqp/protocol/pamqp/encoding"
	"github.com/packetd/corda-amqp/protocol/pamqp/frame"
	"github.com/packetd/corda-amqp/protocol/pamqp/types"
)

// newTestClient drives the same Login/Open/Begin/AttachSender sequence
// Connect runs, but over a pre-built net.Conn so the test can sit a fake
// broker on the other end of a net.Pipe instead of a real TCP dial.
func newTestClient(t *testing.T, conn net.Conn) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := driver.NewConn(conn)
	require.NoError(t, d.Login(ctx, "node-operator", "s3cr3t"))
	containerID := "corda-rpc-test"
	_, err := d.Open(ctx, containerID)
	require.NoError(t, err)
	_, err = d.Begin(ctx)
	require.NoError(t, err)
	_, err = d.AttachSender(ctx, senderHandle, containerID, containerAddr, rpcServerAddr)
	require.NoError(t, err)

	return &Client{
		d:                  d,
		username:           "node-operator",
		sessionID:          "11111111-1111-1111-1111-111111111111",
		sessionIDTimestamp: 1700000000000,
		nextRecvHandle:     receiverHandle,
	}
}

// fakeRPCBroker drives the far end of a net.Pipe through the SASL/Open/
// Begin/sender-Attach sequence, then answers exactly one call: it reads
// the client's receiver Attach, Flow, and request Transfer, and replies
// with a Corda envelope wrapping the Try value reply provides.
func fakeRPCBroker(t *testing.T, conn net.Conn, reply *envelope.Envelope) {
	t.Helper()
	dec := frame.NewDecoder(conn)
	enc := frame.NewEncoder(conn)
	ctx := context.Background()

	send := func(p interface{ Encode(*encoding.Encoder) }) {
		e := encoding.NewEncoder()
		p.Encode(e)
		require.NoError(t, enc.WriteFrame(frame.TypeAMQP, 0, e.Bytes()))
		e.Release()
	}
	sendSasl := func(p interface{ Encode(*encoding.Encoder) }) {
		e := encoding.NewEncoder()
		p.Encode(e)
		require.NoError(t, enc.WriteFrame(frame.TypeSASL, 0, e.Bytes()))
		e.Release()
	}

	hdr, err := dec.Next(ctx)
	require.NoError(t, err)
	require.True(t, hdr.IsHeader)
	require.NoError(t, enc.WriteHeader(frame.SASLProtocolHeader()))

	sendSasl(&types.SaslMechanisms{Mechanisms: []string{"PLAIN"}})

	initFrame, err := dec.Next(ctx)
	require.NoError(t, err)
	_, err = types.DecodeSaslInit(encoding.NewDecoder(initFrame.Body))
	require.NoError(t, err)
	sendSasl(&types.SaslOutcome{Code: types.SaslCodeOK})

	amqpHdr, err := dec.Next(ctx)
	require.NoError(t, err)
	require.True(t, amqpHdr.IsHeader)
	require.NoError(t, enc.WriteHeader(frame.AMQPProtocolHeader()))

	openFrame, err := dec.Next(ctx)
	require.NoError(t, err)
	_, err = types.DecodePerformative(encoding.NewDecoder(openFrame.Body))
	require.NoError(t, err)
	send(&types.Open{ContainerID: "broker"})

	beginFrame, err := dec.Next(ctx)
	require.NoError(t, err)
	_, err = types.DecodePerformative(encoding.NewDecoder(beginFrame.Body))
	require.NoError(t, err)
	send(&types.Begin{NextOutgoingID: 1, IncomingWindow: 2147483647, OutgoingWindow: 2147483647})

	senderAttachFrame, err := dec.Next(ctx)
	require.NoError(t, err)
	senderPerf, err := types.DecodePerformative(encoding.NewDecoder(senderAttachFrame.Body))
	require.NoError(t, err)
	require.NotNil(t, senderPerf.Attach)
	send(&types.Attach{
		Name:   senderPerf.Attach.Name,
		Handle: senderPerf.Attach.Handle,
		Role:   types.RoleReceiver,
		Source: senderPerf.Attach.Source,
		Target: senderPerf.Attach.Target,
	})

	recvAttachFrame, err := dec.Next(ctx)
	require.NoError(t, err)
	recvPerf, err := types.DecodePerformative(encoding.NewDecoder(recvAttachFrame.Body))
	require.NoError(t, err)
	require.NotNil(t, recvPerf.Attach)
	send(&types.Attach{
		Name:   recvPerf.Attach.Name,
		Handle: recvPerf.Attach.Handle,
		Role:   types.RoleSender,
		Source: recvPerf.Attach.Source,
		Target: recvPerf.Attach.Target,
	})

	flowFrame, err := dec.Next(ctx)
	require.NoError(t, err)
	flowPerf, err := types.DecodePerformative(encoding.NewDecoder(flowFrame.Body))
	require.NoError(t, err)
	require.NotNil(t, flowPerf.Flow)

	transferFrame, err := dec.Next(ctx)
	require.NoError(t, err)
	transferPerf, err := types.DecodePerformative(encoding.NewDecoder(transferFrame.Body))
	require.NoError(t, err)
	require.NotNil(t, transferPerf.Transfer)

	// A real broker settles the request transfer with a Disposition
	// ahead of sending the reply Transfer; the client must skip over it.
	send(&types.Disposition{
		Role:    types.RoleReceiver,
		First:   transferPerf.Transfer.DeliveryID,
		HasLast: true,
		Last:    transferPerf.Transfer.DeliveryID,
		Settled: true,
		State:   &types.DeliveryState{Accepted: &types.Accepted{}},
	})

	replyTransfer := &types.Transfer{
		Handle:           recvPerf.Attach.Handle,
		HasDeliveryID:    true,
		DeliveryID:       0,
		DeliveryTag:      transferPerf.Transfer.DeliveryTag,
		HasMessageFormat: true,
		MessageFormat:    0,
	}
	data := &types.Data{Payload: envelope.Encode(reply)}
	e := encoding.NewEncoder()
	replyTransfer.Encode(e)
	data.Encode(e)
	require.NoError(t, enc.WriteFrame(frame.TypeAMQP, 0, e.Bytes()))
	e.Release()

	detachFrame, err := dec.Next(ctx)
	require.NoError(t, err)
	detachPerf, err := types.DecodePerformative(encoding.NewDecoder(detachFrame.Body))
	require.NoError(t, err)
	require.NotNil(t, detachPerf.Detach)
	send(&types.Detach{Handle: detachPerf.Detach.Handle, HasClosed: true, Closed: true})
}

func successEnvelope(t *testing.T, value string) *envelope.Envelope {
	t.Helper()
	valEnc := encoding.NewEncoder()
	valEnc.WriteString(value)
	defer valEnc.Release()

	obj := envelope.EncodeTry(&envelope.Try{Success: &envelope.Success{Value: append([]byte(nil), valEnc.Bytes()...)}})
	return &envelope.Envelope{Obj: obj}
}

func TestClientCallSuccess(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	reply := successEnvelope(t, "ok")
	go fakeRPCBroker(t, serverConn, reply)

	c := newTestClient(t, clientConn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	argEnc := encoding.NewEncoder()
	mark := argEnc.BeginList()
	argEnc.EndList(mark, 0)
	argEnv := &envelope.Envelope{Obj: append([]byte(nil), argEnc.Bytes()...)}
	argEnc.Release()

	try, err := c.Call(ctx, "networkMapSnapshot", argEnv)
	require.NoError(t, err)
	require.NotNil(t, try.Success)
	assert.Nil(t, try.Failure)

	dec := encoding.NewDecoder(try.Success.Value)
	s, err := dec.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "ok", s)
}

func TestClientCallFailure(t *testing.T) {
	old := envelope.FailureName
	envelope.FailureName = "net.corda:test-failure-fingerprint=="
	defer func() { envelope.FailureName = old }()

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	valEnc := encoding.NewEncoder()
	valEnc.WriteString("flow failed")
	reply := &envelope.Envelope{
		Obj: envelope.EncodeTry(&envelope.Try{Failure: &envelope.Failure{Value: append([]byte(nil), valEnc.Bytes()...)}}),
	}
	valEnc.Release()

	go fakeRPCBroker(t, serverConn, reply)

	c := newTestClient(t, clientConn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	argEnc := encoding.NewEncoder()
	mark := argEnc.BeginList()
	argEnc.EndList(mark, 0)
	argEnv := &envelope.Envelope{Obj: append([]byte(nil), argEnc.Bytes()...)}
	argEnc.Release()

	try, err := c.Call(ctx, "networkMapSnapshot", argEnv)
	require.NoError(t, err)
	require.NotNil(t, try.Failure)
	assert.Nil(t, try.Success)

	dec := encoding.NewDecoder(try.Failure.Value)
	s, err := dec.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "flow failed", s)
}

func TestErrorUnwrap(t *testing.T) {
	inner := assert.AnError
	e := &Error{Method: "networkMapSnapshot", Err: inner}
	assert.ErrorIs(t, e, inner)
	assert.Contains(t, e.Error(), "networkMapSnapshot")
}
