/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package obligation

import (
	"context"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/pkg/utils"
	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/commit"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/transaction"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/view"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var logger = logging.MustGetLogger("obligations")

// ViewManager runs views on behalf of the local party
type ViewManager interface {
	InitiateView(view view.View, ctx context.Context) (interface{}, error)
}

// Directory lists the parties known to the local party
type Directory interface {
	driver.IdentityResolver
}

// Closure is the result of closing a corporate action
type Closure struct {
	Transaction *driver.FinalizedTransaction
	Dividends   []states.Dividend
	Total       states.Amount
}

// Node is the entry point of a party: it proposes transitions, commits them with its
// counterparties and answers queries on its ledger.
type Node struct {
	me        states.Party
	builder   *transaction.Builder
	ledger    driver.LedgerQuery
	directory Directory
	views     ViewManager
}

func NewNode(me states.Party, ledger driver.LedgerQuery, directory Directory, views ViewManager) *Node {
	return &Node{
		me:        me,
		builder:   transaction.NewBuilder(me, ledger, directory),
		ledger:    ledger,
		directory: directory,
		views:     views,
	}
}

// Me returns the local party
func (n *Node) Me() states.Party {
	return n.me
}

// Peers returns the known parties other than the local one
func (n *Node) Peers() states.Parties {
	var res states.Parties
	for _, p := range n.directory.KnownParties() {
		if !p.Equal(n.me) {
			res = append(res, p)
		}
	}
	return res
}

// IOUs returns the unconsumed IOUs the local party participates in
func (n *Node) IOUs(ctx context.Context) ([]states.StateAndRef, error) {
	return n.ledger.Unconsumed(ctx, states.KindIOU)
}

// CorporateActions returns the unconsumed corporate actions the local party participates in
func (n *Node) CorporateActions(ctx context.Context) ([]states.StateAndRef, error) {
	return n.ledger.Unconsumed(ctx, states.KindCorporateAction)
}

// Submit proposes the passed action and commits it
func (n *Node) Submit(ctx context.Context, action transaction.Action, p transaction.Params) (*driver.FinalizedTransaction, error) {
	tx, err := n.builder.Propose(ctx, action, p)
	if err != nil {
		return nil, err
	}
	return n.Commit(ctx, tx)
}

// SubmitRetrying behaves like Submit but rebuilds the transition against the current ledger
// when it lost a race on its inputs, at most attempts times, waiting delay and then twice as
// long before each new try.
func (n *Node) SubmitRetrying(ctx context.Context, action transaction.Action, p transaction.Params, attempts int, delay time.Duration) (*driver.FinalizedTransaction, error) {
	var res *driver.FinalizedTransaction
	err := utils.NewRetryRunner(attempts, delay, true, driver.IsRetryable).Run(func() error {
		var err error
		res, err = n.Submit(ctx, action, p)
		return err
	})
	return res, err
}

// Commit runs the commit protocol on a transition built elsewhere.
// When the transition committed but could not be recorded locally, the finalized
// transaction is returned together with a *commit.Unrecorded error.
func (n *Node) Commit(ctx context.Context, tx *transaction.Transition) (*driver.FinalizedTransaction, error) {
	res, err := n.views.InitiateView(commit.NewCommitView(tx), ctx)
	if err != nil {
		var unrecorded *commit.Unrecorded
		if errors.As(err, &unrecorded) {
			return unrecorded.Transaction, err
		}
		return nil, err
	}
	final, ok := res.(*driver.FinalizedTransaction)
	if !ok {
		return nil, errors.Wrapf(driver.ErrInternal, "unexpected commit result [%T]", res)
	}
	return final, nil
}

// IssueIOU issues an IOU lent by the local party to borrower
func (n *Node) IssueIOU(ctx context.Context, amount states.Amount, borrower string) (*driver.FinalizedTransaction, error) {
	return n.Submit(ctx, transaction.Issue, transaction.Params{Amount: amount, Counterparty: borrower})
}

// TransferIOU hands the IOU lent by the local party over to newLender
func (n *Node) TransferIOU(ctx context.Context, linearID, newLender string) (*driver.FinalizedTransaction, error) {
	return n.Submit(ctx, transaction.Transfer, transaction.Params{LinearID: linearID, Counterparty: newLender})
}

// SettleIOU pays amount off the IOU borrowed by the local party
func (n *Node) SettleIOU(ctx context.Context, linearID string, amount states.Amount) (*driver.FinalizedTransaction, error) {
	return n.Submit(ctx, transaction.Settle, transaction.Params{LinearID: linearID, Amount: amount})
}

func (n *Node) OfferCorporateAction(ctx context.Context, currency string, profit decimal.Decimal, investor string) (*driver.FinalizedTransaction, error) {
	return n.Submit(ctx, transaction.Offer, transaction.Params{Currency: currency, Profit: profit, Counterparty: investor})
}

func (n *Node) InvestInCorporateAction(ctx context.Context, linearID string, amount states.Amount) (*driver.FinalizedTransaction, error) {
	return n.Submit(ctx, transaction.Invest, transaction.Params{LinearID: linearID, Amount: amount})
}

func (n *Node) OpenCorporateAction(ctx context.Context, linearID string) (*driver.FinalizedTransaction, error) {
	return n.Submit(ctx, transaction.Open, transaction.Params{LinearID: linearID})
}

// CloseCorporateAction closes the corporate action and reports the dividends it paid
func (n *Node) CloseCorporateAction(ctx context.Context, linearID string) (*Closure, error) {
	tx, err := n.builder.CloseCorporateAction(ctx, linearID)
	if err != nil {
		return nil, err
	}
	ca, ok := tx.Inputs[0].State.(states.CorporateAction)
	if !ok {
		return nil, errors.Wrapf(driver.ErrInternal, "unexpected input [%T]", tx.Inputs[0].State)
	}
	final, err := n.Commit(ctx, tx)
	if err != nil {
		return nil, err
	}
	logger.Infof("[%s] closed [%s], paid [%s]", n.me, linearID, ca.TotalDividend())
	return &Closure{
		Transaction: final,
		Dividends:   ca.Dividends(),
		Total:       ca.TotalDividend(),
	}, nil
}
