/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package utils

import (
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/pkg/errors"
)

// RetryRunner receives a function that potentially fails and retries it
// as long as the returned error is classified as retryable.
type RetryRunner interface {
	Run(runner func() error) error
}

var ErrMaxRetriesExceeded = errors.New("maximum number of retries exceeded")

type retryRunner struct {
	delay      time.Duration
	expBackoff bool
	maxTimes   int
	retryable  func(error) bool
	logger     logging.Logger
}

// NewRetryRunner returns a runner that retries at most maxTimes, only for errors for which retryable returns true.
func NewRetryRunner(maxTimes int, delay time.Duration, expBackoff bool, retryable func(error) bool) *retryRunner {
	return &retryRunner{
		delay:      delay,
		expBackoff: expBackoff,
		maxTimes:   maxTimes,
		retryable:  retryable,
		logger:     logging.MustGetLogger("retry-runner"),
	}
}

func (f *retryRunner) nextDelay() time.Duration {
	d := f.delay
	if f.expBackoff {
		f.delay = 2 * f.delay
	}
	return d
}

func (f *retryRunner) Run(runner func() error) error {
	var last error
	for i := 0; i < f.maxTimes; i++ {
		last = runner()
		if last == nil || !f.retryable(last) {
			return last
		}
		f.logger.Debugf("retrying iteration [%d] after [%s]: %s", i+1, f.delay, last)
		time.Sleep(f.nextDelay())
	}
	return errors.Wrapf(ErrMaxRetriesExceeded, "last error [%s]", last)
}
