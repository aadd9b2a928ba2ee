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

// Package methods binds one Go file per Corda RPC method to its wire
// request/reply shape. networkMapSnapshot is the one method this client
// concretely types end to end; adding another method means adding
// another file in this shape, not touching rpc.Client.
package methods

import (
	"context"

	"github.com/pkg/errors"

	"github.com/packetd/corda-amqp/corda/envelope"
	"github.com/packetd/corda-amqp/protocol/pamqp/encoding"
	"github.com/packetd/corda-amqp/rpc"
)

// MethodNetworkMapSnapshot is the Corda RPC method name this file binds.
const MethodNetworkMapSnapshot = "networkMapSnapshot"

const (
	nameNodeInfo            = "net.corda:ncUcZzvT9YGn0ItdoWW3QQ=="
	nameNetworkHostAndPort  = "net.corda:IA+5d7+UvO6yts6wDzr86Q=="
	namePartyAndCertificate = "net.corda:GaPpq/rL9KtfTOQDN9ZCbA=="
	nameCertPath            = "net.corda:e+qsW/cJ4ajGpb8YkJWB1A=="

	nameObjectListType = "net.corda:1BLPJgNvsxdvPcbrIQd87g=="
)

// NodeInfo is one entry of a networkMapSnapshot reply: the node's
// advertised addresses, its legal identities, and version metadata.
type NodeInfo struct {
	Addresses               []NetworkHostAndPort
	LegalIdentitiesAndCerts []PartyAndCertificate
	PlatformVersion         int32
	Serial                  int64
}

// NetworkHostAndPort is a single host/port pair a node advertises.
type NetworkHostAndPort struct {
	Host string
	Port int32
}

// PartyAndCertificate pairs a legal identity with its certificate path.
type PartyAndCertificate struct {
	CertPath CertPath
}

// CertPath is an opaque certificate chain plus its encoding type name
// (e.g. "X.509"). Corda's source elides the raw bytes from its Debug
// output; this client keeps that convention via String.
type CertPath struct {
	Data []byte
	Type string
}

func (c CertPath) String() string {
	return "CertPath{data: [certificate data elided], ty: " + c.Type + "}"
}

func decodeNetworkHostAndPort(dec *encoding.Decoder) (*NetworkHostAndPort, error) {
	sub, err := unmarshalNamed(dec, nameNetworkHostAndPort)
	if err != nil {
		return nil, err
	}
	h := &NetworkHostAndPort{}
	if sub.More() {
		if h.Host, err = sub.ReadString(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		if h.Port, err = sub.ReadInt(); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func decodeCertPath(dec *encoding.Decoder) (*CertPath, error) {
	sub, err := unmarshalNamed(dec, nameCertPath)
	if err != nil {
		return nil, err
	}
	c := &CertPath{}
	if sub.More() {
		if c.Data, err = sub.ReadBinary(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		if c.Type, err = sub.ReadString(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func decodePartyAndCertificate(dec *encoding.Decoder) (*PartyAndCertificate, error) {
	sub, err := unmarshalNamed(dec, namePartyAndCertificate)
	if err != nil {
		return nil, err
	}
	p := &PartyAndCertificate{}
	if sub.More() {
		cp, err := decodeCertPath(sub)
		if err != nil {
			return nil, err
		}
		p.CertPath = *cp
	}
	return p, nil
}

func decodeNodeInfo(dec *encoding.Decoder) (*NodeInfo, error) {
	sub, err := unmarshalNamed(dec, nameNodeInfo)
	if err != nil {
		return nil, err
	}
	n := &NodeInfo{}
	if sub.More() {
		addrs, count, err := sub.EnterList()
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			a, err := decodeNetworkHostAndPort(addrs)
			if err != nil {
				return nil, err
			}
			n.Addresses = append(n.Addresses, *a)
		}
	}
	if sub.More() {
		certs, count, err := sub.EnterList()
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			p, err := decodePartyAndCertificate(certs)
			if err != nil {
				return nil, err
			}
			n.LegalIdentitiesAndCerts = append(n.LegalIdentitiesAndCerts, *p)
		}
	}
	if sub.More() {
		if n.PlatformVersion, err = sub.ReadInt(); err != nil {
			return nil, err
		}
	}
	if sub.More() {
		if n.Serial, err = sub.ReadLong(); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// unmarshalNamed reads a symbolic composite descriptor matching name and
// enters its list body. networkMapSnapshot's reply types are described
// by name rather than numeric code, the same convention corda/envelope's
// Try/Success/Failure use.
func unmarshalNamed(dec *encoding.Decoder, name string) (*encoding.Decoder, error) {
	descr, err := dec.ReadDescriptor()
	if err != nil {
		return nil, errors.Wrap(err, "methods: reading composite descriptor")
	}
	if !descr.MatchesName(name) {
		return nil, errors.Errorf("methods: unexpected descriptor %+v for name %s", descr, name)
	}
	sub, _, err := dec.EnterList()
	return sub, err
}

// requestEnvelope builds the networkMapSnapshot argument envelope: an
// empty object list, described by the single restricted type Corda's
// broker expects for "java.util.List<java.lang.Object>".
func requestEnvelope() *envelope.Envelope {
	argEnc := encoding.NewEncoder()
	defer argEnc.Release()
	mark := argEnc.BeginList()
	argEnc.EndList(mark, 0)

	return &envelope.Envelope{
		Obj: append([]byte(nil), argEnc.Bytes()...),
		Schema: envelope.Schema{
			Types: []envelope.TypeNotation{
				{Restricted: &envelope.RestrictedType{
					Name:   "java.util.List<java.lang.Object>",
					Source: "list",
					Descriptor: &envelope.Descriptor{
						Name:    nameObjectListType,
						HasName: true,
					},
				}},
			},
		},
	}
}

// NetworkMapSnapshotResult is the outcome of a NetworkMapSnapshot call:
// exactly one of Nodes or Failure is populated.
type NetworkMapSnapshotResult struct {
	Nodes   []NodeInfo
	Failure bool
}

// NetworkMapSnapshot calls Corda's networkMapSnapshot RPC method, which
// takes no arguments and returns every node the broker's network map
// currently advertises.
func NetworkMapSnapshot(ctx context.Context, c *rpc.Client) (*NetworkMapSnapshotResult, error) {
	try, err := c.Call(ctx, MethodNetworkMapSnapshot, requestEnvelope())
	if err != nil {
		return nil, err
	}
	if try.Failure != nil {
		return &NetworkMapSnapshotResult{Failure: true}, nil
	}

	dec := encoding.NewDecoder(try.Success.Value)
	nodes, count, err := dec.EnterList()
	if err != nil {
		return nil, errors.Wrap(err, "methods: entering networkMapSnapshot reply list")
	}
	result := &NetworkMapSnapshotResult{}
	for i := 0; i < count; i++ {
		n, err := decodeNodeInfo(nodes)
		if err != nil {
			return nil, errors.Wrap(err, "methods: decoding NodeInfo")
		}
		result.Nodes = append(result.Nodes, *n)
	}
	return result, nil
}
