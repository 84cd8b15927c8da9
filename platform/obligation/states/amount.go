/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package states

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrOverflow is returned when an operation on amounts does not fit in the quantity
var ErrOverflow = errors.New("amount overflow")

// Amount is a quantity of a currency expressed in minor units (e.g. pence).
type Amount struct {
	Quantity int64  `json:"quantity"`
	Currency string `json:"currency"`
}

func NewAmount(quantity int64, currency string) Amount {
	return Amount{Quantity: quantity, Currency: currency}
}

// Zero returns the zero amount of the passed currency
func Zero(currency string) Amount {
	return Amount{Currency: currency}
}

// FromMajor converts a quantity of major units (pounds) to an Amount
func FromMajor(major int64, currency string) (Amount, error) {
	if major > math.MaxInt64/100 || major < math.MinInt64/100 {
		return Amount{}, errors.Wrapf(ErrOverflow, "[%d %s] in minor units", major, currency)
	}
	return Amount{Quantity: major * 100, Currency: currency}, nil
}

// MustFromMajor is FromMajor for quantities known to fit. It panics otherwise.
func MustFromMajor(major int64, currency string) Amount {
	a, err := FromMajor(major, currency)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Plus(o Amount) (Amount, error) {
	if a.Currency != o.Currency {
		return Amount{}, errors.Errorf("currency mismatch [%s]!=[%s]", a.Currency, o.Currency)
	}
	if (o.Quantity > 0 && a.Quantity > math.MaxInt64-o.Quantity) || (o.Quantity < 0 && a.Quantity < math.MinInt64-o.Quantity) {
		return Amount{}, errors.Wrapf(ErrOverflow, "[%s] plus [%s]", a, o)
	}
	return Amount{Quantity: a.Quantity + o.Quantity, Currency: a.Currency}, nil
}

func (a Amount) Minus(o Amount) (Amount, error) {
	if a.Currency != o.Currency {
		return Amount{}, errors.Errorf("currency mismatch [%s]!=[%s]", a.Currency, o.Currency)
	}
	if (o.Quantity < 0 && a.Quantity > math.MaxInt64+o.Quantity) || (o.Quantity > 0 && a.Quantity < math.MinInt64+o.Quantity) {
		return Amount{}, errors.Wrapf(ErrOverflow, "[%s] minus [%s]", a, o)
	}
	return Amount{Quantity: a.Quantity - o.Quantity, Currency: a.Currency}, nil
}

func (a Amount) IsZero() bool {
	return a.Quantity == 0
}

func (a Amount) IsPositive() bool {
	return a.Quantity > 0
}

// Decimal returns the amount in major units
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(a.Quantity, -2)
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.Decimal().StringFixed(2), a.Currency)
}
