/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package directory

import (
	"sort"
	"sync"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/identity"
	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/states"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

var logger = logging.MustGetLogger("obligations.directory")

// Directory is the network map of a node: it binds party names to keys
type Directory struct {
	lock   sync.RWMutex
	byName map[string]states.Party
	byKey  map[string]states.Party
}

func New() *Directory {
	return &Directory{
		byName: map[string]states.Party{},
		byKey:  map[string]states.Party{},
	}
}

// Register adds the passed party. Registering the same party twice is a no-op.
func (d *Directory) Register(p states.Party) error {
	if len(p.Name) == 0 || p.Key.IsNone() {
		return errors.Errorf("invalid party [%s]", p.Name)
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if existing, ok := d.byName[p.Name]; ok {
		if existing.Equal(p) {
			return nil
		}
		return errors.Errorf("party [%s] already bound to another key", p.Name)
	}
	if existing, ok := d.byKey[p.Key.UniqueID()]; ok {
		return errors.Errorf("key of [%s] already bound to [%s]", p.Name, existing.Name)
	}
	d.byName[p.Name] = p
	d.byKey[p.Key.UniqueID()] = p
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("registered party [%s:%s]", p.Name, p.Key)
	}
	return nil
}

// Learn registers the passed parties, skipping those whose name or key is already bound differently
func (d *Directory) Learn(parties ...states.Party) {
	for _, p := range parties {
		if err := d.Register(p); err != nil {
			logger.Warnf("ignoring disclosed party [%s]: %s", p.Name, err)
		}
	}
}

func (d *Directory) Resolve(name string) (states.Party, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	p, ok := d.byName[name]
	if !ok {
		return states.Party{}, errors.Wrapf(driver.ErrInvalidParty, "unknown party [%s]", name)
	}
	return p, nil
}

func (d *Directory) PartyOf(key identity.Identity) (states.Party, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	p, ok := d.byKey[key.UniqueID()]
	if !ok {
		return states.Party{}, errors.Wrapf(driver.ErrInvalidParty, "unknown key [%s]", key)
	}
	return p, nil
}

// KnownParties returns the registered parties sorted by name
func (d *Directory) KnownParties() states.Parties {
	d.lock.RLock()
	defer d.lock.RUnlock()
	res := make(states.Parties, 0, len(d.byName))
	for _, p := range d.byName {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}
