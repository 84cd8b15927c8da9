/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package states

import (
	"github.com/hyperledger-labs/fsc-obligations/pkg/utils"
	"github.com/pkg/errors"
)

// IOU records that the borrower owes the lender Amount, of which Paid has been repaid.
type IOU struct {
	LinearID string `json:"linear_id"`
	Amount   Amount `json:"amount"`
	Lender   Party  `json:"lender"`
	Borrower Party  `json:"borrower"`
	Paid     Amount `json:"paid"`
}

// NewIOU returns a fresh IOU with nothing paid
func NewIOU(amount Amount, lender, borrower Party) IOU {
	return IOU{
		LinearID: utils.GenerateUUID(),
		Amount:   amount,
		Lender:   lender,
		Borrower: borrower,
		Paid:     Zero(amount.Currency),
	}
}

func (i IOU) ID() string { return i.LinearID }

func (i IOU) Kind() Kind { return KindIOU }

func (i IOU) Participants() Parties {
	return Parties{i.Lender, i.Borrower}
}

// Remaining returns what is still owed
func (i IOU) Remaining() Amount {
	return Amount{Quantity: i.Amount.Quantity - i.Paid.Quantity, Currency: i.Amount.Currency}
}

// WellFormed reports whether the amount is positive and 0 <= paid <= amount in the same currency
func (i IOU) WellFormed() bool {
	return i.Amount.IsPositive() &&
		i.Paid.Currency == i.Amount.Currency &&
		i.Paid.Quantity >= 0 &&
		i.Paid.Quantity <= i.Amount.Quantity
}

func (i IOU) IsSettled() bool {
	return i.Paid.Currency == i.Amount.Currency && i.Paid.Quantity >= i.Amount.Quantity
}

// Pay returns a copy of the IOU with amount added to what was paid
func (i IOU) Pay(amount Amount) (IOU, error) {
	if amount.Currency != i.Amount.Currency {
		return IOU{}, errors.Errorf("currency mismatch [%s]!=[%s]", amount.Currency, i.Amount.Currency)
	}
	if amount.Quantity > i.Remaining().Quantity {
		return IOU{}, errors.Errorf("paying [%s] exceeds remaining [%s]", amount, i.Remaining())
	}
	paid, err := i.Paid.Plus(amount)
	if err != nil {
		return IOU{}, err
	}
	i.Paid = paid
	return i, nil
}

// WithLender returns a copy of the IOU owed to the passed lender
func (i IOU) WithLender(lender Party) IOU {
	i.Lender = lender
	return i
}

func (i IOU) Equal(o IOU) bool {
	return i.LinearID == o.LinearID &&
		i.Amount == o.Amount &&
		i.Paid == o.Paid &&
		i.Lender.Equal(o.Lender) &&
		i.Borrower.Equal(o.Borrower)
}
