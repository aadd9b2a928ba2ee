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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/packetd/corda-amqp/internal/sigs"
	"github.com/packetd/corda-amqp/logger"
	"github.com/packetd/corda-amqp/rpc"
	"github.com/packetd/corda-amqp/rpc/methods"
)

var agentConfigPath string

// agentCmd holds one long-lived connection open, polling
// networkMapSnapshot on an interval and reconnecting on SIGHUP with
// whatever broker config changed on disk in the meantime.
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run a long-lived connection that polls networkMapSnapshot",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadBrokerConfig(agentConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger.SetOptions(cfg.Logger)

		client, err := connectAgent(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
			os.Exit(1)
		}

		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		var reloadTotal int
		for {
			select {
			case <-sigs.Terminate():
				_ = client.Close(context.Background())
				return

			case <-sigs.Reload():
				reloadTotal++
				newCfg, err := loadBrokerConfig(agentConfigPath)
				if err != nil {
					logger.Errorf("reload (count=%d) failed to load config: %v", reloadTotal, err)
					continue
				}
				start := time.Now()
				newClient, err := connectAgent(newCfg)
				if err != nil {
					logger.Errorf("reload (count=%d) failed to reconnect: %v", reloadTotal, err)
					continue
				}
				_ = client.Close(context.Background())
				client = newClient
				logger.Infof("reload (count=%d) take %s", reloadTotal, time.Since(start))

			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				result, err := methods.NetworkMapSnapshot(ctx, client)
				cancel()
				if err != nil {
					logger.Errorf("networkMapSnapshot poll failed: %v", err)
					continue
				}
				logger.Infof("networkMapSnapshot poll returned %d nodes", len(result.Nodes))
			}
		}
	},
	Example: "# corda-amqp agent --config broker.yaml",
}

func connectAgent(cfg *brokerConfig) (*rpc.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return rpc.Connect(ctx, cfg.Address, cfg.User, cfg.Password)
}

func init() {
	agentCmd.Flags().StringVar(&agentConfigPath, "config", "broker.yaml", "Broker connection config file path")
	rootCmd.AddCommand(agentCmd)
}
