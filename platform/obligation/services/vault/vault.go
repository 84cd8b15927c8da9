/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vault

import (
	"context"
	"sort"
	"sync"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

var logger = logging.MustGetLogger("obligations.vault")

type entry struct {
	seq uint64
	sr  states.StateAndRef
}

// Vault is the materialized view of the unconsumed states the local party participates in.
// It is fed by finalized transactions and answers ledger queries.
type Vault struct {
	me states.Party

	lock       sync.RWMutex
	seq        uint64
	unconsumed map[states.StateRef]*entry
	txs        map[string]*driver.FinalizedTransaction
}

func New(me states.Party) *Vault {
	return &Vault{
		me:         me,
		unconsumed: map[states.StateRef]*entry{},
		txs:        map[string]*driver.FinalizedTransaction{},
	}
}

// Append consumes the inputs of tx and stores the outputs the local party participates in.
// Appending the same transaction twice is a no-op.
func (v *Vault) Append(_ context.Context, tx *driver.FinalizedTransaction) error {
	if tx == nil || len(tx.ID) == 0 {
		return errors.New("invalid finalized transaction")
	}
	v.lock.Lock()
	defer v.lock.Unlock()

	if _, ok := v.txs[tx.ID]; ok {
		if logger.IsEnabledFor(zapcore.DebugLevel) {
			logger.Debugf("[%s] transaction [%s] already in vault", v.me, tx.ID)
		}
		return nil
	}
	v.txs[tx.ID] = tx
	for _, ref := range tx.Inputs {
		delete(v.unconsumed, ref)
	}
	stored := 0
	for _, out := range tx.Outputs {
		if !out.State.Participants().Contains(v.me) {
			continue
		}
		v.seq++
		v.unconsumed[out.Ref] = &entry{seq: v.seq, sr: out}
		stored++
	}
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("[%s] appended [%s:%s], consumed [%d], stored [%d]", v.me, tx.Action, tx.ID, len(tx.Inputs), stored)
	}
	return nil
}

func (v *Vault) FindUnconsumed(_ context.Context, linearID string) ([]states.StateAndRef, error) {
	return v.filter(func(sr states.StateAndRef) bool { return sr.State.ID() == linearID }), nil
}

func (v *Vault) Unconsumed(_ context.Context, kind states.Kind) ([]states.StateAndRef, error) {
	return v.filter(func(sr states.StateAndRef) bool { return sr.State.Kind() == kind }), nil
}

func (v *Vault) StateByRef(_ context.Context, ref states.StateRef) (states.StateAndRef, error) {
	v.lock.RLock()
	defer v.lock.RUnlock()
	e, ok := v.unconsumed[ref]
	if !ok {
		return states.StateAndRef{}, errors.Wrapf(driver.ErrStateNotFound, "no unconsumed state at [%s]", ref)
	}
	return e.sr, nil
}

// Transaction returns the finalized transaction with the passed id
func (v *Vault) Transaction(txID string) (*driver.FinalizedTransaction, bool) {
	v.lock.RLock()
	defer v.lock.RUnlock()
	tx, ok := v.txs[txID]
	return tx, ok
}

// filter returns the matching unconsumed states in the order they were stored
func (v *Vault) filter(match func(states.StateAndRef) bool) []states.StateAndRef {
	v.lock.RLock()
	var found []*entry
	for _, e := range v.unconsumed {
		if match(e.sr) {
			found = append(found, e)
		}
	}
	v.lock.RUnlock()

	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })
	res := make([]states.StateAndRef, len(found))
	for i, e := range found {
		res[i] = e.sr
	}
	return res
}
