/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary

import (
	"context"
	"sync"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

var logger = logging.MustGetLogger("obligations.notary")

// Memory is a uniqueness service keeping the consumed refs in memory
type Memory struct {
	lock     sync.Mutex
	consumed map[states.StateRef]string
	accepted map[string]time.Time
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		consumed: map[states.StateRef]string{},
		accepted: map[string]time.Time{},
		now:      time.Now,
	}
}

func (m *Memory) Submit(_ context.Context, req *driver.Request) (*driver.Receipt, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	m.lock.Lock()
	defer m.lock.Unlock()

	if ts, ok := m.accepted[req.TxID]; ok {
		return accepted(ts), nil
	}
	var conflicts []driver.Conflict
	for _, ref := range req.Consumed {
		if other, ok := m.consumed[ref]; ok && other != req.TxID {
			conflicts = append(conflicts, driver.Conflict{Ref: ref, TxID: other})
		}
	}
	if len(conflicts) != 0 {
		logger.Warnf("rejecting [%s]: [%d] inputs already consumed", req.TxID, len(conflicts))
		return rejected(conflicts), nil
	}
	now := m.now()
	for _, ref := range req.Consumed {
		m.consumed[ref] = req.TxID
	}
	m.accepted[req.TxID] = now
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("accepted [%s] consuming [%d] inputs", req.TxID, len(req.Consumed))
	}
	return accepted(now), nil
}

func checkRequest(req *driver.Request) error {
	if req == nil || len(req.TxID) == 0 {
		return errors.New("invalid uniqueness request")
	}
	seen := map[states.StateRef]struct{}{}
	for _, ref := range req.Consumed {
		if _, ok := seen[ref]; ok {
			return errors.Errorf("ref [%s] consumed twice by [%s]", ref, req.TxID)
		}
		seen[ref] = struct{}{}
	}
	return nil
}

func accepted(ts time.Time) *driver.Receipt {
	return &driver.Receipt{Accepted: true, Timestamp: ts}
}

func rejected(conflicts []driver.Conflict) *driver.Receipt {
	return &driver.Receipt{Conflicts: conflicts}
}
