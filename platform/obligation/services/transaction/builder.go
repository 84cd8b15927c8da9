/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transaction

import (
	"context"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/identity"
	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"
)

var logger = logging.MustGetLogger("obligations.transaction")

// Params carries the caller intent for Propose. Only the fields relevant to the action are read.
type Params struct {
	// LinearID selects the state to evolve
	LinearID string
	// Counterparty is the borrower (Issue), new lender (Transfer) or investor (Offer)
	Counterparty string
	// Amount is the IOU amount (Issue), the settlement (Settle) or the investment (Invest)
	Amount states.Amount
	// Currency and Profit describe an offered corporate action
	Currency string
	Profit   decimal.Decimal
}

// Builder turns caller intent into transitions on behalf of the local party
type Builder struct {
	me       states.Party
	query    driver.LedgerQuery
	resolver driver.IdentityResolver
}

func NewBuilder(me states.Party, query driver.LedgerQuery, resolver driver.IdentityResolver) *Builder {
	return &Builder{me: me, query: query, resolver: resolver}
}

// Propose builds the transition for the passed action
func (b *Builder) Propose(ctx context.Context, action Action, p Params) (*Transition, error) {
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("[%s] proposing [%s] on [%s]", b.me, action, p.LinearID)
	}
	switch action {
	case Issue:
		return b.IssueIOU(ctx, p.Amount, p.Counterparty)
	case Transfer:
		return b.TransferIOU(ctx, p.LinearID, p.Counterparty)
	case Settle:
		return b.SettleIOU(ctx, p.LinearID, p.Amount)
	case Offer:
		return b.OfferCorporateAction(ctx, p.Currency, p.Profit, p.Counterparty)
	case Invest:
		return b.InvestInCorporateAction(ctx, p.LinearID, p.Amount)
	case Open:
		return b.OpenCorporateAction(ctx, p.LinearID)
	case Close:
		return b.CloseCorporateAction(ctx, p.LinearID)
	default:
		return nil, errors.Wrapf(driver.ErrValidation, "unknown action [%s]", action)
	}
}

// IssueIOU builds the issuance of an IOU lent by the local party to borrower
func (b *Builder) IssueIOU(_ context.Context, amount states.Amount, borrower string) (*Transition, error) {
	counterparty, err := b.counterparty(borrower)
	if err != nil {
		return nil, err
	}
	iou := states.NewIOU(amount, b.me, counterparty)
	return b.newTransition(Issue, nil, nil, iou), nil
}

// TransferIOU builds the transfer of an IOU held by the local party to newLender
func (b *Builder) TransferIOU(ctx context.Context, linearID string, newLender string) (*Transition, error) {
	in, iou, err := b.iou(ctx, linearID)
	if err != nil {
		return nil, err
	}
	if !iou.Lender.Equal(b.me) {
		return nil, errors.Wrapf(driver.ErrInvalidParty, "only the lender may transfer iou [%s]", linearID)
	}
	lender, err := b.counterparty(newLender)
	if err != nil {
		return nil, err
	}
	return b.newTransition(Transfer, nil, []states.StateAndRef{in}, iou.WithLender(lender)), nil
}

// SettleIOU builds the repayment of amount by the local party. A full repayment produces no output.
func (b *Builder) SettleIOU(ctx context.Context, linearID string, amount states.Amount) (*Transition, error) {
	in, iou, err := b.iou(ctx, linearID)
	if err != nil {
		return nil, err
	}
	if !iou.Borrower.Equal(b.me) {
		return nil, errors.Wrapf(driver.ErrInvalidParty, "only the borrower may settle iou [%s]", linearID)
	}
	paid, err := iou.Pay(amount)
	if err != nil {
		return nil, errors.Wrapf(driver.ErrValidation, "cannot settle iou [%s]: %s", linearID, err)
	}
	var outputs []states.LedgerState
	if !paid.IsSettled() {
		outputs = append(outputs, paid)
	}
	return b.newTransition(Settle, &amount, []states.StateAndRef{in}, outputs...), nil
}

// OfferCorporateAction builds an offer owned by the local party to investor
func (b *Builder) OfferCorporateAction(_ context.Context, currency string, profit decimal.Decimal, investor string) (*Transition, error) {
	counterparty, err := b.counterparty(investor)
	if err != nil {
		return nil, err
	}
	ca := states.NewCorporateAction(b.me, currency, profit, counterparty)
	return b.newTransition(Offer, nil, nil, ca), nil
}

// InvestInCorporateAction builds the increase by amount of the investment the local party already holds
func (b *Builder) InvestInCorporateAction(ctx context.Context, linearID string, amount states.Amount) (*Transition, error) {
	in, ca, err := b.corporateAction(ctx, linearID)
	if err != nil {
		return nil, err
	}
	if _, ok := ca.InvestmentOf(b.me); !ok {
		return nil, errors.Wrapf(driver.ErrValidation, "only investor may increase own investment, [%s] does not invest in [%s]", b.me, linearID)
	}
	invested, err := ca.Invest(b.me, amount)
	if err != nil {
		return nil, errors.Wrapf(driver.ErrValidation, "cannot invest in corporate action [%s]: %s", linearID, err)
	}
	return b.newTransition(Invest, &amount, []states.StateAndRef{in}, invested), nil
}

// OpenCorporateAction builds the freezing of the investments of a corporate action owned by the local party
func (b *Builder) OpenCorporateAction(ctx context.Context, linearID string) (*Transition, error) {
	in, ca, err := b.corporateAction(ctx, linearID)
	if err != nil {
		return nil, err
	}
	if !ca.Owner.Equal(b.me) {
		return nil, errors.Wrapf(driver.ErrInvalidParty, "only the owner may open corporate action [%s]", linearID)
	}
	return b.newTransition(Open, nil, []states.StateAndRef{in}, ca.Opened()), nil
}

// CloseCorporateAction builds the consumption of an opened corporate action owned by the local party
func (b *Builder) CloseCorporateAction(ctx context.Context, linearID string) (*Transition, error) {
	in, ca, err := b.corporateAction(ctx, linearID)
	if err != nil {
		return nil, err
	}
	if !ca.Owner.Equal(b.me) {
		return nil, errors.Wrapf(driver.ErrInvalidParty, "only the owner may close corporate action [%s]", linearID)
	}
	return b.newTransition(Close, nil, []states.StateAndRef{in}), nil
}

func (b *Builder) newTransition(action Action, amount *states.Amount, inputs []states.StateAndRef, outputs ...states.LedgerState) *Transition {
	t := &Transition{
		Inputs:  inputs,
		Outputs: outputs,
		Command: Command{Action: action, Actor: b.me, Amount: amount},
	}
	t.RequiredSigners = RequiredSigners(t)
	return t
}

// RequiredSigners returns the union of the participant keys of inputs and outputs
func RequiredSigners(t *Transition) identity.Identities {
	return t.Participants().Keys().Union()
}

func (b *Builder) counterparty(name string) (states.Party, error) {
	p, err := b.resolver.Resolve(name)
	if err != nil {
		return states.Party{}, errors.Wrapf(driver.ErrInvalidParty, "cannot resolve [%s]: %s", name, err)
	}
	if p.Equal(b.me) {
		return states.Party{}, errors.Wrapf(driver.ErrInvalidParty, "counterparty [%s] cannot be the initiator", name)
	}
	return p, nil
}

func (b *Builder) single(ctx context.Context, linearID string) (states.StateAndRef, error) {
	found, err := b.query.FindUnconsumed(ctx, linearID)
	if err != nil {
		return states.StateAndRef{}, errors.WithMessagef(err, "failed looking up [%s]", linearID)
	}
	switch len(found) {
	case 0:
		return states.StateAndRef{}, errors.Wrapf(driver.ErrStateNotFound, "no unconsumed state for [%s]", linearID)
	case 1:
		return found[0], nil
	default:
		return states.StateAndRef{}, errors.Wrapf(driver.ErrAmbiguousState, "[%d] unconsumed states for [%s]", len(found), linearID)
	}
}

func (b *Builder) iou(ctx context.Context, linearID string) (states.StateAndRef, states.IOU, error) {
	in, err := b.single(ctx, linearID)
	if err != nil {
		return states.StateAndRef{}, states.IOU{}, err
	}
	iou, ok := in.State.(states.IOU)
	if !ok {
		return states.StateAndRef{}, states.IOU{}, errors.Wrapf(driver.ErrStateNotFound, "[%s] is not an iou", linearID)
	}
	return in, iou, nil
}

func (b *Builder) corporateAction(ctx context.Context, linearID string) (states.StateAndRef, states.CorporateAction, error) {
	in, err := b.single(ctx, linearID)
	if err != nil {
		return states.StateAndRef{}, states.CorporateAction{}, err
	}
	ca, ok := in.State.(states.CorporateAction)
	if !ok {
		return states.StateAndRef{}, states.CorporateAction{}, errors.Wrapf(driver.ErrStateNotFound, "[%s] is not a corporate action", linearID)
	}
	return in, ca, nil
}
