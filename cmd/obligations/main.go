/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/spf13/cobra"
)

var logger = logging.MustGetLogger("obligations.cmd")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "obligations",
		Short: "Operate a network of parties recording IOUs and corporate actions.",
	}
	rootCmd.AddCommand(serveCmd(), demoCmd())
	return rootCmd
}
