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

// Package cmd wires the cobra command tree: a bare root command plus an
// agent subcommand (long-lived connection, reload on SIGHUP) and a call
// subcommand (one-shot RPC, prints the typed reply).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/packetd/corda-amqp/common"
)

// gitHash and buildTime are overridden at link time with
// -X github.com/packetd/corda-amqp/cmd.gitHash=... /.buildTime=...
var (
	gitHash   string
	buildTime string
)

var rootCmd = &cobra.Command{
	Use:     "corda-amqp",
	Short:   "A Corda RPC client over raw AMQP 1.0",
	// Execute reports errors itself; no usage dump on a failed run.
	SilenceUsage: true,
	Version: formatVersion(common.BuildInfo{Version: common.Version, GitHash: gitHash, Time: buildTime}),
}

func formatVersion(bi common.BuildInfo) string {
	if bi.GitHash == "" {
		return bi.Version
	}
	return fmt.Sprintf("%s (%s, built %s)", bi.Version, bi.GitHash, bi.Time)
}

// Execute runs the root command, printing any error to stderr and
// exiting non-zero rather than letting cobra's default usage dump mask
// the actual failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
