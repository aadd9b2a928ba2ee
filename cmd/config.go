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

package cmd

import (
	"github.com/packetd/corda-amqp/confengine"
	"github.com/packetd/corda-amqp/logger"
)

// defaultBrokerAddress is Corda's standard local node RPC port, used
// when a config file omits "address" entirely.
const defaultBrokerAddress = "localhost:10006"

// brokerConfig is the YAML shape both the agent and call subcommands
// accept: connection coordinates for the Corda RPC broker plus the
// usual logger options.
type brokerConfig struct {
	Address  string         `config:"address"`
	User     string         `config:"user"`
	Password string         `config:"password"`
	Logger   logger.Options `config:"logger"`
}

func loadBrokerConfig(path string) (*brokerConfig, error) {
	cfg, err := confengine.LoadConfigPath(path)
	if err != nil {
		return nil, err
	}
	bc := &brokerConfig{}
	if err := cfg.Unpack(bc); err != nil {
		return nil, err
	}
	if bc.Address == "" {
		bc.Address = cfg.StringDefault("address", defaultBrokerAddress)
	}
	return bc, nil
}
