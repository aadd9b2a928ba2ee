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

// Package rpc implements the typed Corda RPC call surface atop
// protocol/pamqp/driver: it attaches the sender/receiver links Corda's
// RPC broker subset expects, stamps every request with the
// ApplicationProperties correlation metadata the broker requires, and
// demultiplexes the reply envelope's Try<Success,Failure> into a typed
// result. One Client drives exactly one call at a time — see Open
// Question #3 in DESIGN.md for the planned correlator extension.
package rpc

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/packetd/corda-amqp/common"
	"github.com/packetd/corda-amqp/corda/envelope"
	"github.com/packetd/corda-amqp/internal/metrics"
	"github.com/packetd/corda-amqp/logger"
	"github.com/packetd/corda-amqp/protocol/pamqp/driver"
	"github.com/packetd/corda-amqp/protocol/pamqp/types"
)

var tracer = otel.Tracer("github.com/packetd/corda-amqp/rpc")

const (
	senderHandle   = uint32(0)
	receiverHandle = uint32(1)
	rpcServerAddr  = "rpc.server"
	containerAddr  = "container"
	linkCredit     = 1000
)

// Client is one authenticated connection to a Corda RPC broker, with
// the sender link this client's Transfers travel on already attached.
type Client struct {
	d        *driver.Driver
	username string

	sessionID          string
	sessionIDTimestamp int64

	nextDeliveryID uint32
	nextRecvHandle uint32
	linkCredit     uint32
}

// Connect dials addr, runs the SASL PLAIN handshake, opens the
// connection and session, and attaches the long-lived sender link every
// subsequent Call reuses. opts is an optional tuning bag: a "link-credit"
// int entry overrides the default receiver credit grant each Call issues.
func Connect(ctx context.Context, addr, username, password string, opts ...common.Options) (*Client, error) {
	credit := uint32(linkCredit)
	if len(opts) > 0 {
		if v, err := opts[0].GetInt("link-credit"); err == nil && v > 0 {
			credit = uint32(v)
		}
	}

	d, err := driver.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	if err := d.Login(ctx, username, password); err != nil {
		_ = d.Close(ctx)
		return nil, err
	}
	containerID := fmt.Sprintf("corda-rpc-%s", uuid.NewString())
	if _, err := d.Open(ctx, containerID); err != nil {
		_ = d.Close(ctx)
		return nil, err
	}
	if _, err := d.Begin(ctx); err != nil {
		_ = d.Close(ctx)
		return nil, err
	}
	if _, err := d.AttachSender(ctx, senderHandle, containerID, containerAddr, rpcServerAddr); err != nil {
		_ = d.Close(ctx)
		return nil, err
	}

	metrics.ConnectionsOpened.Inc()
	return &Client{
		d:                  d,
		username:           username,
		sessionID:          uuid.NewString(),
		sessionIDTimestamp: time.Now().UnixMilli(),
		nextDeliveryID:     0,
		nextRecvHandle:     receiverHandle,
		linkCredit:         credit,
	}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close(ctx context.Context) error {
	return c.d.Close(ctx)
}

// Call drives one RPC round trip: attach a fresh receiver link, send the
// request envelope with its correlation metadata, wait for the single
// reply transfer, detach the receiver, and return the reply envelope's
// Obj decoded as a Try. rpc/methods holds the per-method typed wrappers
// around this.
func (c *Client) Call(ctx context.Context, method string, argEnvelope *envelope.Envelope) (*envelope.Try, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "rpc.Call")
	span.SetAttributes(attribute.String("rpc.method", method))
	defer span.End()

	fail := func(err error) (*envelope.Try, error) {
		metrics.RPCCallsTotal.WithLabelValues(method, "error").Inc()
		return nil, &Error{Method: method, Err: err}
	}

	receiverName := fmt.Sprintf("rpc.client.%s.%d", c.username, rand.Uint32())
	if _, err := c.d.AttachReceiver(ctx, c.nextRecvHandle, receiverName, receiverName, containerAddr); err != nil {
		return fail(err)
	}
	if err := c.d.Flow(ctx, c.nextRecvHandle, 0, c.linkCredit); err != nil {
		return fail(err)
	}

	rpcID := uuid.NewString()
	now := time.Now().UnixMilli()
	appProps := &types.ApplicationProperties{Values: map[string]types.Any{
		"_AMQ_VALIDATED_USER":           types.AnyString(c.username),
		"tag":                           types.AnyLong(0),
		"method-name":                   types.AnyString(method),
		"rpc-id":                        types.AnyString(rpcID),
		"rpc-id-timestamp":              types.AnyLong(now),
		"rpc-session-id":                types.AnyString(c.sessionID),
		"rpc-session-id-timestamp":      types.AnyLong(c.sessionIDTimestamp),
		"deduplication-sequence-number": types.AnyLong(0),
	}}
	props := &types.Properties{
		MessageID:    rpcID,
		HasMessageID: true,
		ReplyTo:      receiverName,
		HasReplyTo:   true,
	}

	deliveryID := c.nextDeliveryID
	c.nextDeliveryID++
	deliveryTag := []byte(rpcID)
	body := envelope.Encode(argEnvelope)

	log := logger.With("method", method, "rpc_id", rpcID)
	log.Debugf("rpc: calling")
	if err := c.d.TransferMessage(ctx, senderHandle, deliveryID, deliveryTag, props, appProps, body); err != nil {
		return fail(err)
	}

	// The broker settles our outbound Transfer with a Disposition before
	// it ever sends the reply Transfer; skip over it and keep reading
	// until the actual reply arrives.
	var perf *types.Performative
	var payload []byte
	var err error
	for {
		perf, payload, err = c.d.Next(ctx)
		if err != nil {
			return fail(err)
		}
		if perf.Disposition != nil {
			log.Debugf("rpc: request transfer settled by broker")
			continue
		}
		if perf.Transfer == nil {
			return fail(errors.Errorf("expected Transfer reply, got %+v", perf))
		}
		break
	}
	// payload borrows the frame decoder's buffer, which the Detach
	// exchange below reads into again.
	payload = append([]byte(nil), payload...)

	if err := c.d.Detach(ctx, c.nextRecvHandle); err != nil {
		log.Debugf("rpc: detach of reply link failed: %v", err)
	}

	replyEnv, err := envelope.Decode(payload)
	if err != nil {
		return fail(errors.Wrap(err, "decoding reply envelope"))
	}
	try, err := envelope.DecodeTry(replyEnv.Obj)
	if err != nil {
		return fail(errors.Wrap(err, "decoding reply try"))
	}

	outcome := "success"
	if try.Failure != nil {
		outcome = "failure"
	}
	metrics.RPCCallsTotal.WithLabelValues(method, outcome).Inc()
	metrics.RPCCallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	return try, nil
}
