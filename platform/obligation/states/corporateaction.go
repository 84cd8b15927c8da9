/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package states

import (
	"bytes"
	"sort"

	"github.com/hyperledger-labs/fsc-obligations/pkg/utils"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Investment is what an investor put into a corporate action
type Investment struct {
	Investor Party  `json:"investor"`
	Amount   Amount `json:"amount"`
}

// Dividend is what an investor earns when a corporate action is closed
type Dividend struct {
	Investor Party  `json:"investor"`
	Amount   Amount `json:"amount"`
}

// CorporateAction is an offer by Owner, paying Profit per unit invested.
// While Investable, investments may only grow. Once opened the record is frozen and may only be closed.
type CorporateAction struct {
	LinearID    string          `json:"linear_id"`
	Owner       Party           `json:"owner"`
	Currency    string          `json:"currency"`
	Profit      decimal.Decimal `json:"profit"`
	Investments []Investment    `json:"investments"`
	Investable  bool            `json:"investable"`
}

// NewCorporateAction returns an investable offer with a zero investment for investor
func NewCorporateAction(owner Party, currency string, profit decimal.Decimal, investor Party) CorporateAction {
	return CorporateAction{
		LinearID:    utils.GenerateUUID(),
		Owner:       owner,
		Currency:    currency,
		Profit:      profit,
		Investments: []Investment{{Investor: investor, Amount: Zero(currency)}},
		Investable:  true,
	}
}

func (c CorporateAction) ID() string { return c.LinearID }

func (c CorporateAction) Kind() Kind { return KindCorporateAction }

func (c CorporateAction) Participants() Parties {
	res := Parties{c.Owner}
	return append(res, c.Investors()...)
}

// Investors returns the investors, sorted by key
func (c CorporateAction) Investors() Parties {
	res := make(Parties, len(c.Investments))
	for i, inv := range c.Investments {
		res[i] = inv.Investor
	}
	return res
}

// InvestmentOf returns the investment of the passed party, if any
func (c CorporateAction) InvestmentOf(p Party) (Amount, bool) {
	for _, inv := range c.Investments {
		if inv.Investor.Equal(p) {
			return inv.Amount, true
		}
	}
	return Amount{}, false
}

// TotalInvested returns the sum of all investments
func (c CorporateAction) TotalInvested() Amount {
	total := Zero(c.Currency)
	for _, inv := range c.Investments {
		total.Quantity += inv.Amount.Quantity
	}
	return total
}

// Invest returns a copy of the record with amount added to the investment of investor.
// An investor not yet on record is added.
func (c CorporateAction) Invest(investor Party, amount Amount) (CorporateAction, error) {
	if !c.Investable {
		return CorporateAction{}, errors.Errorf("corporate action [%s] is not investable", c.LinearID)
	}
	if amount.Currency != c.Currency {
		return CorporateAction{}, errors.Errorf("currency mismatch [%s]!=[%s]", amount.Currency, c.Currency)
	}
	if !amount.IsPositive() {
		return CorporateAction{}, errors.Errorf("investment must be positive, got [%s]", amount)
	}
	investments := make([]Investment, 0, len(c.Investments)+1)
	found := false
	for _, inv := range c.Investments {
		if inv.Investor.Equal(investor) {
			sum, err := inv.Amount.Plus(amount)
			if err != nil {
				return CorporateAction{}, err
			}
			inv.Amount = sum
			found = true
		}
		investments = append(investments, inv)
	}
	if !found {
		investments = append(investments, Investment{Investor: investor, Amount: amount})
	}
	c.Investments = SortInvestments(investments)
	return c, nil
}

// Opened returns a copy of the record that no longer accepts investments
func (c CorporateAction) Opened() CorporateAction {
	c.Investments = append([]Investment(nil), c.Investments...)
	c.Investable = false
	return c
}

// Dividends returns the dividend of each investor, floored to minor units
func (c CorporateAction) Dividends() []Dividend {
	res := make([]Dividend, len(c.Investments))
	for i, inv := range c.Investments {
		q := decimal.NewFromInt(inv.Amount.Quantity).Mul(c.Profit).Floor().IntPart()
		res[i] = Dividend{Investor: inv.Investor, Amount: NewAmount(q, c.Currency)}
	}
	return res
}

// TotalDividend returns the sum of all dividends
func (c CorporateAction) TotalDividend() Amount {
	total := Zero(c.Currency)
	for _, d := range c.Dividends() {
		total.Quantity += d.Amount.Quantity
	}
	return total
}

// SameTerms returns true if the two records only differ in their investments
func (c CorporateAction) SameTerms(o CorporateAction) bool {
	return c.LinearID == o.LinearID &&
		c.Owner.Equal(o.Owner) &&
		c.Currency == o.Currency &&
		c.Profit.Equal(o.Profit)
}

func (c CorporateAction) Equal(o CorporateAction) bool {
	if !c.SameTerms(o) || c.Investable != o.Investable || len(c.Investments) != len(o.Investments) {
		return false
	}
	for i := range c.Investments {
		if !c.Investments[i].Investor.Equal(o.Investments[i].Investor) || c.Investments[i].Amount != o.Investments[i].Amount {
			return false
		}
	}
	return true
}

// SortInvestments sorts the passed investments by investor key
func SortInvestments(investments []Investment) []Investment {
	sort.SliceStable(investments, func(i, j int) bool {
		return bytes.Compare(investments[i].Investor.Key, investments[j].Investor.Key) < 0
	})
	return investments
}
