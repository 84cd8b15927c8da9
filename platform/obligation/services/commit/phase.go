/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package commit

import (
	"fmt"

	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/pkg/errors"
)

// ErrRemoteAbort is the cause of the abort of a responder whose initiator aborted
var ErrRemoteAbort = errors.New("aborted by initiator")

// Phase is a step of the commit protocol
type Phase int

const (
	Init Phase = iota
	LocalValidate
	SignLocal
	Distribute
	AwaitSignatures
	UniquenessCheck
	Finalize
	Done
	Aborted
)

var phaseNames = [...]string{
	Init:            "INIT",
	LocalValidate:   "LOCAL_VALIDATE",
	SignLocal:       "SIGN_LOCAL",
	Distribute:      "DISTRIBUTE",
	AwaitSignatures: "AWAIT_SIGNATURES",
	UniquenessCheck: "UNIQUENESS_CHECK",
	Finalize:        "FINALIZE",
	Done:            "DONE",
	Aborted:         "ABORTED",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Abort is the error returned when a commit instance terminates in the ABORTED phase.
// Phase is the phase that failed. Err wraps one of the driver error sentinels.
type Abort struct {
	Phase Phase
	Err   error
}

func (a *Abort) Error() string {
	return fmt.Sprintf("commit aborted in phase [%s]: %s", a.Phase, a.Err)
}

// Cause returns the failure that caused the abort
func (a *Abort) Cause() error { return a.Err }

func (a *Abort) Unwrap() error { return a.Err }

func abort(phase Phase, err error) *Abort {
	return &Abort{Phase: phase, Err: err}
}

// Unrecorded is returned when a transition was accepted by the uniqueness service and the
// counterparties were told it is finalized, but the local history failed to record it.
type Unrecorded struct {
	Transaction *driver.FinalizedTransaction
	Err         error
}

func (u *Unrecorded) Error() string {
	return fmt.Sprintf("[%s] committed but not recorded locally: %s", u.Transaction.ID, u.Err)
}

func (u *Unrecorded) Cause() error { return u.Err }

func (u *Unrecorded) Unwrap() error { return u.Err }

// PhaseOf returns the phase in which err aborted a commit.
// It returns Done if err is nil or an *Unrecorded.
func PhaseOf(err error) Phase {
	if err == nil {
		return Done
	}
	var u *Unrecorded
	if errors.As(err, &u) {
		return Done
	}
	var a *Abort
	if errors.As(err, &a) {
		return a.Phase
	}
	return Aborted
}
