/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package commit

import (
	"context"
	"reflect"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/transaction"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/pkg/errors"
)

const (
	DefaultTimeout        = 10 * time.Second
	DefaultOutcomeTimeout = 30 * time.Second
)

// Checker lets a responder refuse a valid transition for reasons of its own
type Checker interface {
	Check(ctx context.Context, tx *transaction.Transition) error
}

// CheckerFunc adapts a function to the Checker interface
type CheckerFunc func(ctx context.Context, tx *transaction.Transition) error

func (f CheckerFunc) Check(ctx context.Context, tx *transaction.Transition) error { return f(ctx, tx) }

// Directory resolves parties and learns the parties disclosed by initiators
type Directory interface {
	driver.IdentityResolver
	Learn(parties ...states.Party)
}

// Services bundles the collaborators the commit views of the local party need
type Services struct {
	Me         states.Party
	Signer     driver.Signer
	Ledger     driver.LedgerQuery
	Directory  Directory
	Uniqueness driver.Uniqueness
	History    driver.HistorySink
	Metrics    *Metrics
	// Checker is optional
	Checker Checker
	// Timeout bounds the wait for a proposal or a reply
	Timeout time.Duration
	// OutcomeTimeout bounds the wait of a responder for the outcome of the instance it signed
	OutcomeTimeout time.Duration
}

type ServiceProvider interface {
	GetService(v interface{}) (interface{}, error)
}

// GetServices returns the commit services registered in sp
func GetServices(sp ServiceProvider) (*Services, error) {
	s, err := sp.GetService(reflect.TypeOf((*Services)(nil)))
	if err != nil {
		return nil, errors.WithMessage(err, "commit services not available")
	}
	return s.(*Services), nil
}

func (s *Services) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

func (s *Services) outcomeTimeout() time.Duration {
	if s.OutcomeTimeout <= 0 {
		return DefaultOutcomeTimeout
	}
	return s.OutcomeTimeout
}
