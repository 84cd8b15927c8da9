/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package commit

import (
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/services/transaction"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
)

// Proposal is sent by the initiator to every other required signer
type Proposal struct {
	Transition *transaction.Transition `json:"transition"`
	// Disclosures are the parties the transition involves, so that the responder can resolve their keys
	Disclosures states.Parties `json:"disclosures"`
	// TraceContext is the marshalled span context of the initiator
	TraceContext []byte `json:"trace_context,omitempty"`
}

// Reply carries either the signature of the responder or the reason it refused to sign
type Reply struct {
	Signature *transaction.Signature `json:"signature,omitempty"`
	Violation string                 `json:"violation,omitempty"`
}

// Outcome tells the responders how the commit instance terminated
type Outcome struct {
	Finalized  bool                    `json:"finalized"`
	TxID       string                  `json:"tx_id"`
	Signatures []transaction.Signature `json:"signatures,omitempty"`
	Timestamp  time.Time               `json:"timestamp"`
	Reason     string                  `json:"reason,omitempty"`
}

// Ack tells the initiator whether the responder recorded a finalized transition
type Ack struct {
	TxID  string `json:"tx_id"`
	Error string `json:"error,omitempty"`
}
