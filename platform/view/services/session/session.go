/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"github.com/pkg/errors"
)

var (
	// ErrTimeout is returned when no message arrives before the deadline
	ErrTimeout = errors.New("time out reached")
	// ErrRemote is returned when the remote party answered with an error message or went away
	ErrRemote = errors.New("remote error")
)
