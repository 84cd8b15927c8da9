/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transaction

import (
	"encoding/json"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/identity"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/hash"
	"github.com/pkg/errors"
)

// Action is the intent of a transition
type Action string

const (
	Issue    Action = "Issue"
	Transfer Action = "Transfer"
	Settle   Action = "Settle"
	Offer    Action = "Offer"
	Invest   Action = "Invest"
	Open     Action = "Open"
	Close    Action = "Close"
)

// Actions lists every known action
var Actions = []Action{Issue, Transfer, Settle, Offer, Invest, Open, Close}

// Command carries the action of a transition, the party invoking it and,
// for Settle and Invest, the amount involved.
type Command struct {
	Action Action         `json:"action"`
	Actor  states.Party   `json:"actor"`
	Amount *states.Amount `json:"amount,omitempty"`
}

type (
	Signature            = driver.Signature
	FinalizedTransaction = driver.FinalizedTransaction
)

// Transition is a proposed change of the ledger: it consumes Inputs and produces Outputs.
// It has no identity until committed. Its id is derived from its content.
type Transition struct {
	Inputs          []states.StateAndRef
	Outputs         []states.LedgerState
	Command         Command
	RequiredSigners identity.Identities
}

// LedgerTransaction is the resolved form of a transition given to the contract.
// Inputs travel resolved, so it coincides with Transition.
type LedgerTransaction = Transition

type transition struct {
	Inputs          []states.StateAndRef `json:"inputs"`
	Outputs         []*states.Envelope   `json:"outputs"`
	Command         Command              `json:"command"`
	RequiredSigners identity.Identities  `json:"required_signers"`
}

func (t *Transition) MarshalJSON() ([]byte, error) {
	outputs, err := states.WrapAll(t.Outputs)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&transition{
		Inputs:          t.Inputs,
		Outputs:         outputs,
		Command:         t.Command,
		RequiredSigners: t.RequiredSigners,
	})
}

func (t *Transition) UnmarshalJSON(raw []byte) error {
	var tr transition
	if err := json.Unmarshal(raw, &tr); err != nil {
		return err
	}
	outputs, err := states.UnwrapAll(tr.Outputs)
	if err != nil {
		return err
	}
	t.Inputs = tr.Inputs
	t.Outputs = outputs
	t.Command = tr.Command
	t.RequiredSigners = tr.RequiredSigners
	return nil
}

// Content returns the canonical serialization of the transition. Signatures are computed over it.
func (t *Transition) Content() ([]byte, error) {
	canonical := &Transition{
		Inputs:          t.Inputs,
		Outputs:         t.Outputs,
		Command:         t.Command,
		RequiredSigners: t.RequiredSigners.Sorted(),
	}
	raw, err := json.Marshal(canonical)
	if err != nil {
		return nil, errors.Wrap(err, "failed computing transition content")
	}
	return raw, nil
}

// ID returns the hex encoded SHA-256 of the content
func (t *Transition) ID() (string, error) {
	content, err := t.Content()
	if err != nil {
		return "", err
	}
	return hash.SHA256Hex(content)
}

// InputRefs returns the refs of the consumed states, in order
func (t *Transition) InputRefs() []states.StateRef {
	res := make([]states.StateRef, len(t.Inputs))
	for i, in := range t.Inputs {
		res[i] = in.Ref
	}
	return res
}

// OutputStates returns the outputs referenced as produced by txID
func (t *Transition) OutputStates(txID string) []states.StateAndRef {
	res := make([]states.StateAndRef, len(t.Outputs))
	for i, out := range t.Outputs {
		res[i] = states.StateAndRef{Ref: states.StateRef{TxID: txID, Index: i}, State: out}
	}
	return res
}

// Participants returns the deduplicated participants of inputs and outputs
func (t *Transition) Participants() states.Parties {
	res := states.Parties{}
	add := func(s states.LedgerState) {
		for _, p := range s.Participants() {
			if !res.Contains(p) {
				res = append(res, p)
			}
		}
	}
	for _, in := range t.Inputs {
		add(in.State)
	}
	for _, out := range t.Outputs {
		add(out)
	}
	return res
}

// SignedTransition is a transition together with the signatures collected so far
type SignedTransition struct {
	Transition *Transition
	Signatures []Signature
}

// Missing returns the required signers that did not sign yet
func (s *SignedTransition) Missing() identity.Identities {
	signed := make(identity.Identities, len(s.Signatures))
	for i, sig := range s.Signatures {
		signed[i] = sig.Signer
	}
	var res identity.Identities
	for _, id := range s.Transition.RequiredSigners {
		if !signed.Contains(id) {
			res = append(res, id)
		}
	}
	return res
}

// AddSignature appends the passed signature, replacing a previous one by the same signer
func (s *SignedTransition) AddSignature(sig Signature) {
	for i, existing := range s.Signatures {
		if existing.Signer.Equal(sig.Signer) {
			s.Signatures[i] = sig
			return
		}
	}
	s.Signatures = append(s.Signatures, sig)
}

// Verify checks every collected signature against the content of the transition
func (s *SignedTransition) Verify(verifier driver.Signer) error {
	content, err := s.Transition.Content()
	if err != nil {
		return err
	}
	for _, sig := range s.Signatures {
		if !s.Transition.RequiredSigners.Contains(sig.Signer) {
			return errors.Wrapf(driver.ErrSignature, "[%s] is not a required signer", sig.Signer)
		}
		if err := verifier.Verify(sig.Signer, content, sig.Bytes); err != nil {
			return errors.Wrapf(driver.ErrSignature, "invalid signature by [%s]: %s", sig.Signer, err)
		}
	}
	return nil
}

// Finalize returns the durable record of the transition committed as txID
func (s *SignedTransition) Finalize(txID string, receipt *driver.Receipt) *FinalizedTransaction {
	return &FinalizedTransaction{
		ID:         txID,
		Action:     string(s.Transition.Command.Action),
		Inputs:     s.Transition.InputRefs(),
		Outputs:    s.Transition.OutputStates(txID),
		Signatures: s.Signatures,
		Timestamp:  receipt.Timestamp,
	}
}
