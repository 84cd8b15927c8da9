/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/sdk"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/config"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const demoConfig = `
obligations:
  session:
    timeout: 5s
  parties:
    - name: alice
    - name: bob
    - name: charlie
`

const pollInterval = 10 * time.Millisecond

func demoCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Runs an IOU and a corporate action between three in-process parties.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runDemo(ctx, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "time allowed to the whole demo")
	return cmd
}

func runDemo(ctx context.Context, out io.Writer) error {
	cp, err := config.NewProviderFromYAML([]byte(demoConfig))
	if err != nil {
		return err
	}
	s := sdk.NewSDK(cp)
	if err := s.Install(); err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Stop()

	alice, _ := s.Party("alice")
	bob, _ := s.Party("bob")

	// IOU
	tx, err := alice.Node.IssueIOU(ctx, states.MustFromMajor(99, "GBP"), "bob")
	if err != nil {
		return err
	}
	iou := tx.Outputs[0].State.ID()
	fmt.Fprintf(out, "alice lent 99.00 GBP to bob: IOU %s\n", iou)

	if tx, err = alice.Node.TransferIOU(ctx, iou, "charlie"); err != nil {
		return err
	}
	fmt.Fprintf(out, "alice transferred IOU %s to charlie\n", iou)
	if err := await(ctx, bob, tx.ID); err != nil {
		return err
	}
	if tx, err = bob.Node.SettleIOU(ctx, iou, states.MustFromMajor(40, "GBP")); err != nil {
		return err
	}
	fmt.Fprintf(out, "bob paid 40.00 GBP off IOU %s\n", iou)
	if tx, err = bob.Node.SettleIOU(ctx, iou, states.MustFromMajor(59, "GBP")); err != nil {
		return err
	}
	fmt.Fprintf(out, "bob paid 59.00 GBP off IOU %s, %d states left\n", iou, len(tx.Outputs))

	// corporate action
	if tx, err = alice.Node.OfferCorporateAction(ctx, "GBP", decimal.RequireFromString("0.05"), "bob"); err != nil {
		return err
	}
	ca := tx.Outputs[0].State.ID()
	fmt.Fprintf(out, "alice offered corporate action %s to bob at 5%%\n", ca)
	if err := await(ctx, bob, tx.ID); err != nil {
		return err
	}
	if tx, err = bob.Node.InvestInCorporateAction(ctx, ca, states.MustFromMajor(500, "GBP")); err != nil {
		return err
	}
	fmt.Fprintf(out, "bob invested 500.00 GBP in %s\n", ca)
	if err := await(ctx, alice, tx.ID); err != nil {
		return err
	}
	if _, err = alice.Node.OpenCorporateAction(ctx, ca); err != nil {
		return err
	}
	fmt.Fprintf(out, "alice opened %s\n", ca)
	closure, err := alice.Node.CloseCorporateAction(ctx, ca)
	if err != nil {
		return err
	}
	for _, d := range closure.Dividends {
		fmt.Fprintf(out, "%s receives %s\n", d.Investor.Name, d.Amount)
	}
	fmt.Fprintf(out, "alice closed %s, dividends paid %s\n", ca, closure.Total)
	return nil
}

// await waits until p has recorded the transaction txID
func await(ctx context.Context, p *sdk.Party, txID string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if _, ok := p.Vault.Transaction(txID); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "[%s] did not record [%s]", p.Node.Me().Name, txID)
		case <-ticker.C:
		}
	}
}
