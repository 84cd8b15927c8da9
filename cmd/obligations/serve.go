/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/sdk"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/config"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the parties configured in core.yaml.",
		Long:  `Starts the parties configured in core.yaml and serves the REST API of those with a web address.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("trailing args detected")
			}
			cmd.SilenceUsage = true
			return serve(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "directory holding core.yaml")
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	cp, err := config.NewProvider(configPath)
	if err != nil {
		return err
	}
	s := sdk.NewSDK(cp)
	if err := s.Install(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()
	if err := s.Start(ctx); err != nil {
		return err
	}
	for _, p := range s.Parties() {
		if p.Web != nil {
			logger.Infof("party [%s] serving on [%s]", p.Node.Me().Name, p.Web.Addr())
		}
	}

	<-ctx.Done()
	logger.Infof("received signal, exiting...")
	s.Stop()
	return nil
}
