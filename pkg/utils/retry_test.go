/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package utils

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var errRetry = errors.New("retry me")

func TestRetryRunnerStopsOnTerminalError(t *testing.T) {
	calls := 0
	terminal := errors.New("terminal")
	r := NewRetryRunner(5, 0, false, func(err error) bool { return errors.Is(err, errRetry) })
	err := r.Run(func() error {
		calls++
		return terminal
	})
	assert.Equal(t, terminal, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRunnerRetriesRetryable(t *testing.T) {
	calls := 0
	r := NewRetryRunner(5, 0, true, func(err error) bool { return errors.Is(err, errRetry) })
	err := r.Run(func() error {
		calls++
		if calls < 3 {
			return errors.Wrap(errRetry, "conflict")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryRunnerExhausts(t *testing.T) {
	r := NewRetryRunner(2, 0, false, func(err error) bool { return true })
	err := r.Run(func() error { return errRetry })
	assert.True(t, errors.Is(err, ErrMaxRetriesExceeded))
}
