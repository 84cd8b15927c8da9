/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package obligation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/sdk"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/transaction"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parties(t *testing.T) (*sdk.Party, *sdk.Party) {
	cp, err := config.NewProviderFromYAML([]byte("obligations:\n  parties:\n    - name: alice\n    - name: bob\n"))
	require.NoError(t, err)
	s := sdk.NewSDK(cp)
	require.NoError(t, s.Install())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	alice, err := s.Party("alice")
	require.NoError(t, err)
	bob, err := s.Party("bob")
	require.NoError(t, err)
	return alice, bob
}

func TestNodeQueries(t *testing.T) {
	alice, bob := parties(t)
	ctx := context.Background()

	_, err := alice.Node.IssueIOU(ctx, states.MustFromMajor(99, "GBP"), "bob")
	require.NoError(t, err)
	_, err = alice.Node.OfferCorporateAction(ctx, "GBP", decimal.RequireFromString("0.05"), "bob")
	require.NoError(t, err)

	ious, err := alice.Node.IOUs(ctx)
	require.NoError(t, err)
	require.Len(t, ious, 1)
	assert.Equal(t, int64(9900), ious[0].State.(states.IOU).Amount.Quantity)
	cas, err := alice.Node.CorporateActions(ctx)
	require.NoError(t, err)
	assert.Len(t, cas, 1)

	assert.Equal(t, "alice", alice.Node.Me().Name)
	assert.Equal(t, states.Parties{bob.Node.Me()}, alice.Node.Peers())
}

func TestCloseReportsDividends(t *testing.T) {
	alice, bob := parties(t)
	ctx := context.Background()

	tx, err := alice.Node.OfferCorporateAction(ctx, "GBP", decimal.RequireFromString("0.05"), "bob")
	require.NoError(t, err)
	linearID := tx.Outputs[0].State.ID()
	assert.Eventually(t, func() bool {
		_, ok := bob.Vault.Transaction(tx.ID)
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	tx, err = bob.Node.InvestInCorporateAction(ctx, linearID, states.MustFromMajor(500, "GBP"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		_, ok := alice.Vault.Transaction(tx.ID)
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	_, err = alice.Node.OpenCorporateAction(ctx, linearID)
	require.NoError(t, err)
	closure, err := alice.Node.CloseCorporateAction(ctx, linearID)
	require.NoError(t, err)
	assert.Equal(t, states.MustFromMajor(25, "GBP"), closure.Total)
	require.Len(t, closure.Dividends, 1)
	assert.Equal(t, "bob", closure.Dividends[0].Investor.Name)
	assert.Empty(t, closure.Transaction.Outputs)

	assert.Eventually(t, func() bool {
		_, ok := bob.Vault.Transaction(closure.Transaction.ID)
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	_, err = bob.Node.CloseCorporateAction(ctx, linearID)
	assert.ErrorIs(t, err, driver.ErrStateNotFound)
}

func TestSubmitRetrying(t *testing.T) {
	alice, bob := parties(t)
	ctx := context.Background()

	tx, err := alice.Node.IssueIOU(ctx, states.MustFromMajor(99, "GBP"), "bob")
	require.NoError(t, err)
	linearID := tx.Outputs[0].State.ID()
	assert.Eventually(t, func() bool {
		_, ok := bob.Vault.Transaction(tx.ID)
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	const settlers = 3
	var wg sync.WaitGroup
	errs := make([]error, settlers)
	for i := 0; i < settlers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = bob.Node.SubmitRetrying(ctx, transaction.Settle, transaction.Params{
				LinearID: linearID,
				Amount:   states.MustFromMajor(10, "GBP"),
			}, 10, 20*time.Millisecond)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}

	ious, err := bob.Node.IOUs(ctx)
	require.NoError(t, err)
	require.Len(t, ious, 1)
	assert.Equal(t, int64(6900), ious[0].State.(states.IOU).Remaining().Quantity)

	// terminal failures are not retried
	start := time.Now()
	_, err = bob.Node.SubmitRetrying(ctx, transaction.Settle, transaction.Params{
		LinearID: "missing",
		Amount:   states.MustFromMajor(10, "GBP"),
	}, 10, time.Second)
	assert.ErrorIs(t, err, driver.ErrStateNotFound)
	assert.Less(t, time.Since(start), time.Second)
}
