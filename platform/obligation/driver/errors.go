/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	errors2 "github.com/hyperledger-labs/fsc-obligations/pkg/utils/errors"
	"github.com/pkg/errors"
)

var (
	// ErrValidation signals that a transition broke a rule of the contract
	ErrValidation = errors.New("validation failure")
	// ErrStateNotFound signals that no unconsumed state matches a lookup
	ErrStateNotFound = errors.New("state not found")
	// ErrAmbiguousState signals that more than one unconsumed state matches a lookup
	ErrAmbiguousState = errors.New("ambiguous state")
	// ErrInvalidParty signals an unknown party or a party acting outside its role
	ErrInvalidParty = errors.New("invalid party")
	// ErrSignature signals a missing, unexpected or unverifiable signature
	ErrSignature = errors.New("signature failure")
	// ErrConflictingConsumption signals that an input was already consumed by another transaction
	ErrConflictingConsumption = errors.New("conflicting consumption")
	// ErrSession signals a transport failure while talking to a counterparty
	ErrSession = errors.New("session failure")
	// ErrTimeout signals that a counterparty did not answer in time
	ErrTimeout = errors.New("timeout")
	// ErrInternal signals a local failure unrelated to the counterparties
	ErrInternal = errors.New("internal error")
)

// IsRetryable returns true if the failed operation could succeed when rebuilt against fresh ledger state.
func IsRetryable(err error) bool {
	return errors2.HasCause(err, ErrConflictingConsumption)
}
