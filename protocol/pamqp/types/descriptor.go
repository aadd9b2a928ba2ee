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

package types

// Numeric descriptor codes for every composite this client encodes or
// decodes. AMQP also lets every composite be addressed by its symbolic
// name (the "amqp:...:list" strings below). This client encodes the
// numeric form only, and its decoders match the numeric code only: a
// composite that arrives with a symbolic descriptor is rejected as an
// unexpected descriptor. The name constants are not used by the codec.
const (
	codeOpen    = 0x00000000_00000010
	codeBegin   = 0x00000000_00000011
	codeAttach  = 0x00000000_00000012
	codeFlow    = 0x00000000_00000013
	codeTransfer = 0x00000000_00000014
	codeDisposition = 0x00000000_00000015
	codeDetach  = 0x00000000_00000016
	codeClose   = 0x00000000_00000018
	codeError   = 0x00000000_0000001d

	codeReceived           = 0x00000000_00000023
	codeAccepted           = 0x00000000_00000024
	codeRejected           = 0x00000000_00000025
	codeReleased           = 0x00000000_00000026
	codeModified           = 0x00000000_00000027
	codeSource             = 0x00000000_00000028
	codeTarget             = 0x00000000_00000029
	codeDeclared           = 0x00000000_00000033
	codeTransactionalState = 0x00000000_00000034

	codeHeader                = 0x00000000_00000070
	codeDeliveryAnnotations   = 0x00000000_00000071
	codeMessageAnnotations    = 0x00000000_00000072
	codeProperties            = 0x00000000_00000073
	codeApplicationProperties = 0x00000000_00000074
	codeData                  = 0x00000000_00000075
	codeAmqpSequence          = 0x00000000_00000076
	codeAmqpValue             = 0x00000000_00000077
	codeFooter                = 0x00000000_00000078

	codeSaslMechanisms = 0x00000000_00000040
	codeSaslInit       = 0x00000000_00000041
	codeSaslChallenge  = 0x00000000_00000042
	codeSaslResponse   = 0x00000000_00000043
	codeSaslOutcome    = 0x00000000_00000044
)

const (
	nameOpen   = "amqp:open:list"
	nameBegin  = "amqp:begin:list"
	nameAttach = "amqp:attach:list"
	nameFlow   = "amqp:flow:list"
	nameTransfer = "amqp:transfer:list"
	nameDisposition = "amqp:disposition:list"
	nameDetach = "amqp:detach:list"
	nameClose  = "amqp:close:list"
	nameError  = "amqp:error:list"

	nameReceived           = "amqp:received:list"
	nameAccepted           = "amqp:accepted:list"
	nameRejected           = "amqp:rejected:list"
	nameReleased           = "amqp:released:list"
	nameModified           = "amqp:modified:list"
	nameSource             = "amqp:source:list"
	nameTarget             = "amqp:target:list"
	nameDeclared           = "amqp:declared:list"
	nameTransactionalState = "amqp:transactional-state:list"

	nameHeader                = "amqp:header:list"
	nameDeliveryAnnotations   = "amqp:delivery-annotations:map"
	nameMessageAnnotations    = "amqp:message-annotations:map"
	nameProperties            = "amqp:properties:list"
	nameApplicationProperties = "amqp:application-properties:map"
	nameData                  = "amqp:data:binary"
	nameAmqpSequence          = "amqp:amqp-sequence:list"
	nameAmqpValue             = "amqp:amqp-value:*"
	nameFooter                = "amqp:footer:map"

	nameSaslMechanisms = "amqp:sasl-mechanisms:list"
	nameSaslInit       = "amqp:sasl-init:list"
	nameSaslOutcome    = "amqp:sasl-outcome:list"
)
