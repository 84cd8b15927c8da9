/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package contract

import (
	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/identity"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/transaction"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
)

// Reasons reported by Validate
const (
	ReasonAllParticipantsMustSign  = "all participants must sign"
	ReasonOwnerMustSign            = "owner and investors must sign"
	ReasonOnlyInvestorMayInvest    = "only investor may increase own investment"
	ReasonOwnerMayNotInvest        = "owner may not invest in own corporate action"
	ReasonOnlyOwnerMayOpen         = "only owner may open corporate action"
	ReasonOnlyOwnerMayClose        = "only owner may close corporate action"
	ReasonInvestmentMustChange     = "investment must change"
	ReasonSettlementExceedsBalance = "settlement exceeds remaining balance"
	ReasonPaidWithinAmount         = "paid must be between zero and the amount"
)

// Validate checks the transition against the rules of its action.
// It is deterministic and does not modify the transition.
func Validate(tx *transaction.LedgerTransaction) Verdict {
	if tx == nil {
		return Violation("missing transaction")
	}
	if len(tx.RequiredSigners) == 0 {
		return Violation("a transaction must have signers")
	}
	switch tx.Command.Action {
	case transaction.Issue:
		return validateIssue(tx)
	case transaction.Transfer:
		return validateTransfer(tx)
	case transaction.Settle:
		return validateSettle(tx)
	case transaction.Offer:
		return validateOffer(tx)
	case transaction.Invest:
		return validateInvest(tx)
	case transaction.Open:
		return validateOpen(tx)
	case transaction.Close:
		return validateClose(tx)
	default:
		return Violation("unknown action [%s]", tx.Command.Action)
	}
}

func validateIssue(tx *transaction.LedgerTransaction) Verdict {
	if len(tx.Inputs) != 0 || len(tx.Outputs) != 1 {
		return Violation("issue must consume no inputs and produce one output")
	}
	out, ok := tx.Outputs[0].(states.IOU)
	if !ok {
		return Violation("issue must produce an iou")
	}
	r := &requirements{}
	r.using("amount must be positive", out.Amount.IsPositive())
	r.using("paid must be zero", out.Paid.IsZero() && out.Paid.Currency == out.Amount.Currency)
	r.using("lender and borrower must be distinct", !out.Lender.Equal(out.Borrower))
	r.using(ReasonAllParticipantsMustSign, tx.RequiredSigners.Match(out.Participants().Keys()))
	return r.verdict()
}

func validateTransfer(tx *transaction.LedgerTransaction) Verdict {
	in, out, verdict := ious(tx, "transfer")
	if !verdict.OK {
		return verdict
	}
	if out == nil {
		return Violation("transfer must consume one input and produce one output")
	}
	r := &requirements{}
	r.using("linear id must not change", in.LinearID == out.LinearID)
	r.using("only the lender may change", in.Amount == out.Amount && in.Paid == out.Paid && in.Borrower.Equal(out.Borrower))
	r.using("lender must change", !in.Lender.Equal(out.Lender))
	r.using("lender and borrower must be distinct", !out.Lender.Equal(out.Borrower))
	r.using(ReasonAllParticipantsMustSign, tx.RequiredSigners.Match(union(in.Participants(), out.Participants())))
	return r.verdict()
}

func validateSettle(tx *transaction.LedgerTransaction) Verdict {
	in, out, verdict := ious(tx, "settle")
	if !verdict.OK {
		return verdict
	}
	amount := tx.Command.Amount
	if amount == nil || !amount.IsPositive() {
		return Violation("settlement must be positive")
	}
	if amount.Currency != in.Amount.Currency {
		return Violation("settlement currency must match")
	}
	remaining := in.Remaining().Quantity
	if amount.Quantity > remaining {
		return Violation(ReasonSettlementExceedsBalance)
	}
	r := &requirements{}
	switch {
	case amount.Quantity == remaining:
		r.using("fully settled iou must not produce an output", out == nil)
	case out == nil:
		r.using("partially settled iou must produce an output", false)
	default:
		r.using("paid must increase by the settlement", out.Paid.Quantity-in.Paid.Quantity == amount.Quantity && out.Paid.Currency == in.Paid.Currency)
		r.using("only paid may change", in.LinearID == out.LinearID && in.Amount == out.Amount && in.Lender.Equal(out.Lender) && in.Borrower.Equal(out.Borrower))
	}
	r.using(ReasonAllParticipantsMustSign, tx.RequiredSigners.Match(in.Participants().Keys()))
	return r.verdict()
}

func validateOffer(tx *transaction.LedgerTransaction) Verdict {
	if len(tx.Inputs) != 0 || len(tx.Outputs) != 1 {
		return Violation("offer must consume no inputs and produce one output")
	}
	out, ok := tx.Outputs[0].(states.CorporateAction)
	if !ok {
		return Violation("offer must produce a corporate action")
	}
	r := &requirements{}
	r.using("profit must be positive", out.Profit.IsPositive())
	r.using("corporate action must be investable", out.Investable)
	r.using("currency must be set", len(out.Currency) != 0)
	r.using("exactly one investor must be offered", len(out.Investments) == 1)
	if len(out.Investments) == 1 {
		r.using("investment must start at zero", out.Investments[0].Amount.IsZero() && out.Investments[0].Amount.Currency == out.Currency)
		r.using("owner and investor must be distinct", !out.Owner.Equal(out.Investments[0].Investor))
	}
	r.using(ReasonAllParticipantsMustSign, tx.RequiredSigners.Match(out.Participants().Keys()))
	return r.verdict()
}

func validateInvest(tx *transaction.LedgerTransaction) Verdict {
	in, out, verdict := corporateActions(tx, "invest")
	if !verdict.OK {
		return verdict
	}
	if out == nil {
		return Violation("invest must consume one input and produce one output")
	}
	if !in.Investable || !out.Investable {
		return Violation("corporate action must be investable")
	}
	if !in.SameTerms(*out) {
		return Violation("only investments may change")
	}
	if !out.Investors().Distinct() {
		return Violation("investors must be distinct")
	}
	amount := tx.Command.Amount
	if amount == nil || !amount.IsPositive() {
		return Violation("investment must be positive")
	}
	if amount.Currency != in.Currency {
		return Violation("investment currency must match")
	}

	var changed []states.Investment
	for _, inv := range in.Investments {
		if _, ok := out.InvestmentOf(inv.Investor); !ok {
			return Violation("investments may not be removed")
		}
	}
	for _, inv := range out.Investments {
		if inv.Amount.Currency != in.Currency {
			return Violation("investment currency must match")
		}
		before, _ := in.InvestmentOf(inv.Investor)
		switch {
		case inv.Amount.Quantity < before.Quantity:
			return Violation("investments may only grow")
		case inv.Amount.Quantity > before.Quantity:
			changed = append(changed, states.Investment{
				Investor: inv.Investor,
				Amount:   states.NewAmount(inv.Amount.Quantity-before.Quantity, in.Currency),
			})
		}
	}
	switch len(changed) {
	case 0:
		return Violation(ReasonInvestmentMustChange)
	case 1:
	default:
		return Violation("only one investment may change")
	}

	r := &requirements{}
	r.using(ReasonOwnerMayNotInvest, !tx.Command.Actor.Equal(in.Owner))
	r.using(ReasonOnlyInvestorMayInvest, changed[0].Investor.Equal(tx.Command.Actor))
	r.using("investment must increase by the invested amount", changed[0].Amount == *amount)
	r.using(ReasonAllParticipantsMustSign, tx.RequiredSigners.Match(union(in.Participants(), out.Participants())))
	return r.verdict()
}

func validateOpen(tx *transaction.LedgerTransaction) Verdict {
	in, out, verdict := corporateActions(tx, "open")
	if !verdict.OK {
		return verdict
	}
	if out == nil {
		return Violation("open must consume one input and produce one output")
	}
	r := &requirements{}
	r.using("corporate action must be investable", in.Investable)
	r.using("opened corporate action must not be investable", !out.Investable)
	r.using("only investable may change", in.Opened().Equal(*out))
	r.using(ReasonOnlyOwnerMayOpen, tx.Command.Actor.Equal(in.Owner))
	r.using(ReasonOwnerMustSign, tx.RequiredSigners.ContainsAll(in.Participants().Keys()...))
	return r.verdict()
}

func validateClose(tx *transaction.LedgerTransaction) Verdict {
	in, out, verdict := corporateActions(tx, "close")
	if !verdict.OK {
		return verdict
	}
	r := &requirements{}
	r.using("close must not produce outputs", out == nil)
	r.using("corporate action must be open", !in.Investable)
	r.using(ReasonOnlyOwnerMayClose, tx.Command.Actor.Equal(in.Owner))
	r.using("owner must sign", tx.RequiredSigners.Contains(in.Owner.Key))
	return r.verdict()
}

// ious extracts one iou input and at most one iou output
func ious(tx *transaction.LedgerTransaction, action string) (states.IOU, *states.IOU, Verdict) {
	if len(tx.Inputs) != 1 || len(tx.Outputs) > 1 {
		return states.IOU{}, nil, Violation("%s must consume one input and produce at most one output", action)
	}
	in, ok := tx.Inputs[0].State.(states.IOU)
	if !ok {
		return states.IOU{}, nil, Violation("%s must consume an iou", action)
	}
	if !in.WellFormed() {
		return states.IOU{}, nil, Violation(ReasonPaidWithinAmount)
	}
	if len(tx.Outputs) == 0 {
		return in, nil, Valid
	}
	out, ok := tx.Outputs[0].(states.IOU)
	if !ok {
		return states.IOU{}, nil, Violation("%s must produce an iou", action)
	}
	if !out.WellFormed() {
		return states.IOU{}, nil, Violation(ReasonPaidWithinAmount)
	}
	return in, &out, Valid
}

// corporateActions extracts one corporate action input and at most one corporate action output
func corporateActions(tx *transaction.LedgerTransaction, action string) (states.CorporateAction, *states.CorporateAction, Verdict) {
	if len(tx.Inputs) != 1 || len(tx.Outputs) > 1 {
		return states.CorporateAction{}, nil, Violation("%s must consume one input and produce at most one output", action)
	}
	in, ok := tx.Inputs[0].State.(states.CorporateAction)
	if !ok {
		return states.CorporateAction{}, nil, Violation("%s must consume a corporate action", action)
	}
	if len(tx.Outputs) == 0 {
		return in, nil, Valid
	}
	out, ok := tx.Outputs[0].(states.CorporateAction)
	if !ok {
		return states.CorporateAction{}, nil, Violation("%s must produce a corporate action", action)
	}
	if in.LinearID != out.LinearID {
		return states.CorporateAction{}, nil, Violation("linear id must not change")
	}
	return in, &out, Valid
}

func union(a, b states.Parties) identity.Identities {
	return a.Keys().Union(b.Keys())
}
