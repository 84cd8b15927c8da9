/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	"context"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/identity"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
)

// LedgerQuery gives read access to the unconsumed states known to the local node
type LedgerQuery interface {
	// FindUnconsumed returns the unconsumed states with the passed linear id
	FindUnconsumed(ctx context.Context, linearID string) ([]states.StateAndRef, error)
	// Unconsumed returns all unconsumed states of the passed kind
	Unconsumed(ctx context.Context, kind states.Kind) ([]states.StateAndRef, error)
	// StateByRef returns the unconsumed state produced at ref.
	// It returns ErrStateNotFound if the ref is unknown or consumed.
	StateByRef(ctx context.Context, ref states.StateRef) (states.StateAndRef, error)
}

// IdentityResolver maps party names to parties and keys back to parties
type IdentityResolver interface {
	Resolve(name string) (states.Party, error)
	PartyOf(key identity.Identity) (states.Party, error)
	KnownParties() states.Parties
}

// Signer signs and verifies content on behalf of identities
type Signer interface {
	Sign(id identity.Identity, content []byte) ([]byte, error)
	Verify(id identity.Identity, content, sigma []byte) error
	IsMe(id identity.Identity) bool
}

// Signature is a signature over the content of a transition
type Signature struct {
	Signer identity.Identity `json:"signer"`
	Bytes  []byte            `json:"bytes"`
}

// Request asks the uniqueness service to mark the consumed refs as spent by TxID
type Request struct {
	TxID       string
	Consumed   []states.StateRef
	Signatures []Signature
}

// Receipt is the answer of the uniqueness service.
// When Accepted is false, Conflicts lists the refs already consumed by other transactions.
type Receipt struct {
	Accepted  bool
	Timestamp time.Time
	Conflicts []Conflict
}

// Conflict names a ref and the transaction that consumed it first
type Conflict struct {
	Ref  states.StateRef
	TxID string
}

// Uniqueness guarantees that no state is consumed by more than one finalized transaction.
// Submitting the same request twice returns the same acceptance.
type Uniqueness interface {
	Submit(ctx context.Context, req *Request) (*Receipt, error)
}

// FinalizedTransaction is the durable record of a committed transition
type FinalizedTransaction struct {
	ID         string               `json:"id"`
	Action     string               `json:"action"`
	Inputs     []states.StateRef    `json:"inputs"`
	Outputs    []states.StateAndRef `json:"outputs"`
	Signatures []Signature          `json:"signatures"`
	Timestamp  time.Time            `json:"timestamp"`
}

// HistorySink records finalized transactions
type HistorySink interface {
	Append(ctx context.Context, tx *FinalizedTransaction) error
}
