/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package contract

import (
	"fmt"

	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/pkg/errors"
)

// Verdict is the outcome of validating a transition. Reason is set when OK is false.
type Verdict struct {
	OK     bool
	Reason string
}

// Valid is the verdict of a transition that obeys every rule
var Valid = Verdict{OK: true}

func Violation(format string, args ...interface{}) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

// Err returns nil for a valid verdict, an error wrapping driver.ErrValidation otherwise
func (v Verdict) Err() error {
	if v.OK {
		return nil
	}
	return errors.Wrap(driver.ErrValidation, v.Reason)
}

func (v Verdict) String() string {
	if v.OK {
		return "valid"
	}
	return "violation: " + v.Reason
}

// requirements collects the first failed requirement
type requirements struct {
	reason string
}

func (r *requirements) using(reason string, cond bool) {
	if len(r.reason) == 0 && !cond {
		r.reason = reason
	}
}

func (r *requirements) verdict() Verdict {
	if len(r.reason) != 0 {
		return Verdict{Reason: r.reason}
	}
	return Valid
}
