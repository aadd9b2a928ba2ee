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

// Descriptor identifies a described composite. A composite is described
// either by a numeric code (the common case on the wire, cheap to switch
// on) or by a symbolic name (what Corda's Try Success/Failure variants and
// the RPC reply records use; the envelope composites themselves are
// numeric). Exactly one of the two is populated.
type Descriptor struct {
	Code   uint64
	Name   string
	Symbol bool
}

func (d Descriptor) MatchesCode(code uint64) bool {
	return !d.Symbol && d.Code == code
}

func (d Descriptor) MatchesName(name string) bool {
	return d.Symbol && d.Name == name
}
