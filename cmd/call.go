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

	"github.com/packetd/corda-amqp/logger"
	"github.com/packetd/corda-amqp/rpc"
	"github.com/packetd/corda-amqp/rpc/methods"
)

var callConfigPath string

// callCmd issues exactly one networkMapSnapshot RPC against a broker
// and prints the decoded reply, mirroring the original client's
// connect-call-print example.
var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Issue one networkMapSnapshot RPC call and print the reply",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadBrokerConfig(callConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger.SetOptions(cfg.Logger)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client, err := rpc.Connect(ctx, cfg.Address, cfg.User, cfg.Password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
			os.Exit(1)
		}
		defer client.Close(ctx)

		result, err := methods.NetworkMapSnapshot(ctx, client)
		if err != nil {
			fmt.Fprintf(os.Stderr, "networkMapSnapshot failed: %v\n", err)
			os.Exit(1)
		}
		if result.Failure {
			fmt.Fprintln(os.Stderr, "networkMapSnapshot returned a Corda-level failure")
			os.Exit(1)
		}

		for _, node := range result.Nodes {
			fmt.Printf("%+v\n", node)
		}
	},
	Example: "# corda-amqp call --config broker.yaml",
}

func init() {
	callCmd.Flags().StringVar(&callConfigPath, "config", "broker.yaml", "Broker connection config file path")
	rootCmd.AddCommand(callCmd)
}
