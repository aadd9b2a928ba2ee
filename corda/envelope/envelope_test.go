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

package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/corda-amqp/protocol/pamqp/encoding"
)

func TestDescriptorRoundTripByName(t *testing.T) {
	d := &Descriptor{Name: "net.corda:e+qsW/cJ4ajGpb8YkJWB1A==", HasName: true}
	enc := encoding.NewEncoder()
	d.encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := decodeDescriptor(dec)
	require.NoError(t, err)
	assert.True(t, got.HasName)
	assert.Equal(t, d.Name, got.Name)
	assert.False(t, got.HasCode)
}

func TestDescriptorRoundTripByCode(t *testing.T) {
	d := &Descriptor{Code: 0x1234, HasCode: true}
	enc := encoding.NewEncoder()
	d.encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := decodeDescriptor(dec)
	require.NoError(t, err)
	assert.True(t, got.HasCode)
	assert.Equal(t, d.Code, got.Code)
	assert.False(t, got.HasName)
}

func TestFieldRoundTrip(t *testing.T) {
	f := &Field{
		Name:      "platformVersion",
		Type:      "int",
		Requires:  []string{"java.lang.Comparable"},
		Mandatory: true,
		Multiple:  false,
	}
	enc := encoding.NewEncoder()
	f.encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := decodeField(dec)
	require.NoError(t, err)
	assert.Equal(t, f.Name, got.Name)
	assert.Equal(t, f.Type, got.Type)
	assert.Equal(t, f.Requires, got.Requires)
	assert.True(t, got.Mandatory)
	assert.False(t, got.Multiple)
	assert.False(t, got.HasDefault)
	assert.False(t, got.HasLabel)
}

func TestFieldWithLabelAndDefaultRoundTrip(t *testing.T) {
	f := &Field{
		Name:       "serial",
		Type:       "long",
		Default:    "0",
		HasDefault: true,
		Label:      "serial number",
		HasLabel:   true,
		Mandatory:  false,
		Multiple:   false,
	}
	enc := encoding.NewEncoder()
	f.encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := decodeField(dec)
	require.NoError(t, err)
	assert.True(t, got.HasDefault)
	assert.Equal(t, "0", got.Default)
	assert.True(t, got.HasLabel)
	assert.Equal(t, "serial number", got.Label)
}

func TestChoiceRoundTrip(t *testing.T) {
	c := &Choice{Name: "RUNNING", Value: "0"}
	enc := encoding.NewEncoder()
	c.encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := decodeChoice(dec)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
	assert.Equal(t, c.Value, got.Value)
}

func TestCompositeTypeRoundTrip(t *testing.T) {
	c := &CompositeType{
		Name:     "net.corda.core.node.NodeInfo",
		Provides: []string{"java.io.Serializable"},
		Descriptor: &Descriptor{
			Name:    "net.corda:NodeInfo",
			HasName: true,
		},
		Fields: []Field{
			{Name: "addresses", Type: "java.util.List", Mandatory: true},
			{Name: "platformVersion", Type: "int", Mandatory: true},
		},
	}
	enc := encoding.NewEncoder()
	c.encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := decodeCompositeType(dec)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
	assert.Equal(t, c.Provides, got.Provides)
	require.NotNil(t, got.Descriptor)
	assert.Equal(t, c.Descriptor.Name, got.Descriptor.Name)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, "addresses", got.Fields[0].Name)
	assert.Equal(t, "platformVersion", got.Fields[1].Name)
}

func TestRestrictedTypeRoundTrip(t *testing.T) {
	r := &RestrictedType{
		Name:     "net.corda.core.node.NodeState",
		Provides: []string{"java.io.Serializable"},
		Source:   "int",
		Descriptor: &Descriptor{
			Name:    "net.corda:NodeState",
			HasName: true,
		},
		Choices: []Choice{
			{Name: "RUNNING", Value: "0"},
			{Name: "STOPPED", Value: "1"},
		},
	}
	enc := encoding.NewEncoder()
	r.encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := decodeRestrictedType(dec)
	require.NoError(t, err)
	assert.Equal(t, r.Name, got.Name)
	assert.Equal(t, r.Source, got.Source)
	require.Len(t, got.Choices, 2)
	assert.Equal(t, "RUNNING", got.Choices[0].Name)
}

func TestTypeNotationDispatch(t *testing.T) {
	tn := &TypeNotation{
		Composite: &CompositeType{
			Name:       "net.corda.core.node.NodeInfo",
			Descriptor: &Descriptor{Code: 0x01, HasCode: true},
		},
	}
	enc := encoding.NewEncoder()
	tn.encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := decodeTypeNotation(dec)
	require.NoError(t, err)
	require.NotNil(t, got.Composite)
	assert.Nil(t, got.Restricted)
	assert.Equal(t, "net.corda.core.node.NodeInfo", got.Composite.Name)
}

func TestSchemaRoundTripEmpty(t *testing.T) {
	s := &Schema{}
	enc := encoding.NewEncoder()
	s.encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := decodeSchema(dec)
	require.NoError(t, err)
	assert.Empty(t, got.Types)
}

func TestSchemaRoundTripWithTypes(t *testing.T) {
	s := &Schema{
		Types: []TypeNotation{
			{Composite: &CompositeType{
				Name:       "net.corda.core.node.NodeInfo",
				Descriptor: &Descriptor{Code: 0x01, HasCode: true},
			}},
			{Restricted: &RestrictedType{
				Name:       "net.corda.core.node.NodeState",
				Source:     "int",
				Descriptor: &Descriptor{Code: 0x02, HasCode: true},
			}},
		},
	}
	enc := encoding.NewEncoder()
	s.encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	got, err := decodeSchema(dec)
	require.NoError(t, err)
	require.Len(t, got.Types, 2)
	assert.NotNil(t, got.Types[0].Composite)
	assert.NotNil(t, got.Types[1].Restricted)
}

func TestTransformsSchemaRoundTrip(t *testing.T) {
	ts := &TransformsSchema{}
	enc := encoding.NewEncoder()
	ts.encode(enc)

	dec := encoding.NewDecoder(enc.Bytes())
	_, err := decodeTransformsSchema(dec)
	require.NoError(t, err)
}

func TestEnvelopeEncodeDecodeRoundTrip(t *testing.T) {
	payload := encoding.NewEncoder()
	payload.WriteInt(4)
	defer payload.Release()

	e := &Envelope{
		Obj: payload.Bytes(),
		Schema: Schema{
			Types: []TypeNotation{
				{Restricted: &RestrictedType{
					Name:       "net.corda.core.node.NodeState",
					Source:     "int",
					Descriptor: &Descriptor{Code: 0x02, HasCode: true},
				}},
			},
		},
	}

	raw := Encode(e)
	assert.Equal(t, Magic, raw[:len(Magic)])
	assert.Equal(t, SectionDataAndStop, raw[len(Magic)])

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, e.Obj, got.Obj)
	require.Len(t, got.Schema.Types, 1)
	assert.Equal(t, "net.corda.core.node.NodeState", got.Schema.Types[0].Restricted.Name)
	assert.Nil(t, got.Transforms)
}

// TestEnvelopeWithEmptyTransformsSchemaRoundTrip exercises an envelope
// carrying a present but empty TransformsSchema, which decodes back to a
// non-nil Transforms.
func TestEnvelopeWithEmptyTransformsSchemaRoundTrip(t *testing.T) {
	payload := encoding.NewEncoder()
	payload.WriteBool(true)
	defer payload.Release()

	e := &Envelope{
		Obj:        payload.Bytes(),
		Schema:     Schema{},
		Transforms: &TransformsSchema{},
	}

	raw := Encode(e)
	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Empty(t, got.Schema.Types)
	require.NotNil(t, got.Transforms)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := append([]byte("wrong\x01\x00"), SectionDataAndStop)
	_, err := Decode(buf)
	assert.Error(t, err)
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	payload := encoding.NewEncoder()
	payload.WriteBool(false)
	defer payload.Release()

	e := &Envelope{Obj: payload.Bytes()}
	raw := Encode(e)
	raw = append(raw, 0xff)

	_, err := Decode(raw)
	assert.Error(t, err)
}
