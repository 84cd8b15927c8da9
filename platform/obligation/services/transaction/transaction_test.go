/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transaction_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/identity"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/contract"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/directory"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/transaction"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/vault"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/id/ecdsa"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/sig"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = states.Party{Name: "alice", Key: identity.Identity("alice-key")}
	bob   = states.Party{Name: "bob", Key: identity.Identity("bob-key")}
	carol = states.Party{Name: "carol", Key: identity.Identity("carol-key")}
)

type node struct {
	vault   *vault.Vault
	builder *transaction.Builder
}

func newNode(t *testing.T, me states.Party) *node {
	d := directory.New()
	for _, p := range []states.Party{alice, bob, carol} {
		require.NoError(t, d.Register(p))
	}
	v := vault.New(me)
	return &node{vault: v, builder: transaction.NewBuilder(me, v, d)}
}

// commit records tx as finalized on the passed nodes, skipping signatures
func commit(t *testing.T, tx *transaction.Transition, nodes ...*node) string {
	id, err := tx.ID()
	require.NoError(t, err)
	signed := &transaction.SignedTransition{Transition: tx}
	for _, n := range nodes {
		require.NoError(t, n.vault.Append(context.Background(), signed.Finalize(id, &driver.Receipt{Accepted: true, Timestamp: time.Now()})))
	}
	return id
}

func TestIssueAndTransfer(t *testing.T) {
	ctx := context.Background()
	a, b := newNode(t, alice), newNode(t, bob)

	tx, err := a.builder.IssueIOU(ctx, states.NewAmount(9900, "GBP"), "bob")
	require.NoError(t, err)
	assert.Empty(t, tx.Inputs)
	require.Len(t, tx.Outputs, 1)
	iou := tx.Outputs[0].(states.IOU)
	assert.True(t, iou.Lender.Equal(alice))
	assert.True(t, iou.Borrower.Equal(bob))
	assert.True(t, iou.Paid.IsZero())
	assert.Equal(t, transaction.Issue, tx.Command.Action)
	assert.True(t, tx.RequiredSigners.Match(identity.Identities{alice.Key, bob.Key}))
	commit(t, tx, a, b)

	_, err = a.builder.IssueIOU(ctx, states.NewAmount(1, "GBP"), "dave")
	assert.ErrorIs(t, err, driver.ErrInvalidParty)
	_, err = a.builder.IssueIOU(ctx, states.NewAmount(1, "GBP"), "alice")
	assert.ErrorIs(t, err, driver.ErrInvalidParty)

	// only the lender may transfer
	_, err = b.builder.TransferIOU(ctx, iou.LinearID, "carol")
	assert.ErrorIs(t, err, driver.ErrInvalidParty)

	tx, err = a.builder.Propose(ctx, transaction.Transfer, transaction.Params{LinearID: iou.LinearID, Counterparty: "carol"})
	require.NoError(t, err)
	require.Len(t, tx.Inputs, 1)
	assert.True(t, tx.Outputs[0].(states.IOU).Lender.Equal(carol))
	assert.True(t, tx.RequiredSigners.Match(identity.Identities{alice.Key, bob.Key, carol.Key}))

	_, err = a.builder.TransferIOU(ctx, "missing", "carol")
	assert.ErrorIs(t, err, driver.ErrStateNotFound)
}

func TestSettle(t *testing.T) {
	ctx := context.Background()
	a, b := newNode(t, alice), newNode(t, bob)
	tx, err := a.builder.IssueIOU(ctx, states.MustFromMajor(99, "GBP"), "bob")
	require.NoError(t, err)
	commit(t, tx, a, b)
	linearID := tx.Outputs[0].ID()

	_, err = a.builder.SettleIOU(ctx, linearID, states.MustFromMajor(9, "GBP"))
	assert.ErrorIs(t, err, driver.ErrInvalidParty)

	partial, err := b.builder.SettleIOU(ctx, linearID, states.MustFromMajor(9, "GBP"))
	require.NoError(t, err)
	require.Len(t, partial.Outputs, 1)
	assert.Equal(t, "9.00 GBP", partial.Outputs[0].(states.IOU).Paid.String())
	assert.Equal(t, "99.00 GBP", partial.Outputs[0].(states.IOU).Amount.String())
	require.NotNil(t, partial.Command.Amount)
	assert.Equal(t, states.MustFromMajor(9, "GBP"), *partial.Command.Amount)

	full, err := b.builder.SettleIOU(ctx, linearID, states.MustFromMajor(99, "GBP"))
	require.NoError(t, err)
	assert.Empty(t, full.Outputs)

	_, err = b.builder.SettleIOU(ctx, linearID, states.MustFromMajor(100, "GBP"))
	assert.ErrorIs(t, err, driver.ErrValidation)
}

func TestCorporateActionLifecycle(t *testing.T) {
	ctx := context.Background()
	a, c := newNode(t, alice), newNode(t, carol)

	tx, err := a.builder.OfferCorporateAction(ctx, "GBP", decimal.RequireFromString("0.05"), "carol")
	require.NoError(t, err)
	commit(t, tx, a, c)
	linearID := tx.Outputs[0].ID()

	_, err = a.builder.InvestInCorporateAction(ctx, linearID, states.MustFromMajor(500, "GBP"))
	assert.ErrorIs(t, err, driver.ErrValidation)
	assert.Contains(t, err.Error(), contract.ReasonOnlyInvestorMayInvest)
	_, err = c.builder.OpenCorporateAction(ctx, linearID)
	assert.ErrorIs(t, err, driver.ErrInvalidParty)
	_, err = c.builder.CloseCorporateAction(ctx, linearID)
	assert.ErrorIs(t, err, driver.ErrInvalidParty)
	_, err = a.builder.SettleIOU(ctx, linearID, states.MustFromMajor(1, "GBP"))
	assert.ErrorIs(t, err, driver.ErrStateNotFound)

	tx, err = c.builder.Propose(ctx, transaction.Invest, transaction.Params{LinearID: linearID, Amount: states.MustFromMajor(500, "GBP")})
	require.NoError(t, err)
	amount, ok := tx.Outputs[0].(states.CorporateAction).InvestmentOf(carol)
	require.True(t, ok)
	assert.Equal(t, "500.00 GBP", amount.String())
	commit(t, tx, a, c)

	tx, err = a.builder.OpenCorporateAction(ctx, linearID)
	require.NoError(t, err)
	assert.False(t, tx.Outputs[0].(states.CorporateAction).Investable)
	commit(t, tx, a, c)

	_, err = c.builder.InvestInCorporateAction(ctx, linearID, states.MustFromMajor(1, "GBP"))
	assert.ErrorIs(t, err, driver.ErrValidation)

	tx, err = a.builder.Propose(ctx, transaction.Close, transaction.Params{LinearID: linearID})
	require.NoError(t, err)
	assert.Empty(t, tx.Outputs)
	assert.True(t, tx.RequiredSigners.Match(identity.Identities{alice.Key, carol.Key}))

	_, err = a.builder.Propose(ctx, "Burn", transaction.Params{})
	assert.Error(t, err)
}

func TestAmbiguousState(t *testing.T) {
	ctx := context.Background()
	a := newNode(t, alice)
	iou := states.NewIOU(states.MustFromMajor(1, "GBP"), alice, bob)
	require.NoError(t, a.vault.Append(ctx, &driver.FinalizedTransaction{
		ID: "tx",
		Outputs: []states.StateAndRef{
			{Ref: states.StateRef{TxID: "tx", Index: 0}, State: iou},
			{Ref: states.StateRef{TxID: "tx", Index: 1}, State: iou},
		},
	}))
	_, err := a.builder.TransferIOU(ctx, iou.LinearID, "carol")
	assert.ErrorIs(t, err, driver.ErrAmbiguousState)
}

func TestContentIsDeterministic(t *testing.T) {
	ctx := context.Background()
	a := newNode(t, alice)
	tx, err := a.builder.IssueIOU(ctx, states.MustFromMajor(10, "GBP"), "bob")
	require.NoError(t, err)

	id1, err := tx.ID()
	require.NoError(t, err)
	// signer order does not matter
	tx.RequiredSigners = identity.Identities{tx.RequiredSigners[1], tx.RequiredSigners[0]}
	id2, err := tx.ID()
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)

	raw, err := json.Marshal(tx)
	require.NoError(t, err)
	decoded := &transaction.Transition{}
	require.NoError(t, json.Unmarshal(raw, decoded))
	id3, err := decoded.ID()
	require.NoError(t, err)
	assert.Equal(t, id1, id3)

	other, err := a.builder.IssueIOU(ctx, states.MustFromMajor(10, "GBP"), "bob")
	require.NoError(t, err)
	id4, err := other.ID()
	require.NoError(t, err)
	assert.NotEqual(t, id1, id4, "fresh linear ids give fresh transactions")
}

func TestSignedTransition(t *testing.T) {
	signer := sig.NewService()
	aliceID, s, v, err := ecdsa.NewSigner()
	require.NoError(t, err)
	require.NoError(t, signer.RegisterSigner(aliceID, s, v))
	bobID, _, _, err := ecdsa.NewSigner()
	require.NoError(t, err)

	me := states.Party{Name: "alice", Key: aliceID}
	tx := &transaction.Transition{
		Outputs: []states.LedgerState{states.NewIOU(states.MustFromMajor(1, "GBP"), me, states.Party{Name: "bob", Key: bobID})},
		Command: transaction.Command{Action: transaction.Issue, Actor: me},
	}
	tx.RequiredSigners = transaction.RequiredSigners(tx)
	signed := &transaction.SignedTransition{Transition: tx}
	assert.Len(t, signed.Missing(), 2)

	content, err := tx.Content()
	require.NoError(t, err)
	sigma, err := signer.Sign(aliceID, content)
	require.NoError(t, err)
	signed.AddSignature(transaction.Signature{Signer: aliceID, Bytes: sigma})
	signed.AddSignature(transaction.Signature{Signer: aliceID, Bytes: sigma})
	assert.Len(t, signed.Signatures, 1)
	assert.Equal(t, identity.Identities{bobID}, signed.Missing())
	require.NoError(t, signed.Verify(signer))

	signed.AddSignature(transaction.Signature{Signer: bobID, Bytes: sigma})
	assert.ErrorIs(t, signed.Verify(signer), driver.ErrSignature)

	outsider, _, _, err := ecdsa.NewSigner()
	require.NoError(t, err)
	forged := &transaction.SignedTransition{Transition: tx, Signatures: []transaction.Signature{{Signer: outsider, Bytes: sigma}}}
	assert.ErrorIs(t, forged.Verify(signer), driver.ErrSignature)

	now := time.Now()
	final := signed.Finalize("tx1", &driver.Receipt{Accepted: true, Timestamp: now})
	assert.Equal(t, "Issue", final.Action)
	assert.Equal(t, now, final.Timestamp)
	require.Len(t, final.Outputs, 1)
	assert.Equal(t, "tx1:0", final.Outputs[0].Ref.String())
}
