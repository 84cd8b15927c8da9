/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package states

import (
	"fmt"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/identity"
)

// Party is a named participant of the network together with its public key.
// Two parties are the same party if their keys match.
type Party struct {
	Name string            `json:"name"`
	Key  identity.Identity `json:"key"`
}

func (p Party) Equal(o Party) bool {
	return p.Key.Equal(o.Key)
}

func (p Party) String() string {
	return p.Name
}

// Parties is a list of parties
type Parties []Party

// Keys returns the keys of the parties, in order
func (ps Parties) Keys() identity.Identities {
	res := make(identity.Identities, len(ps))
	for i, p := range ps {
		res[i] = p.Key
	}
	return res
}

func (ps Parties) Contains(p Party) bool {
	for _, q := range ps {
		if q.Equal(p) {
			return true
		}
	}
	return false
}

// ByKey returns the party holding the passed key
func (ps Parties) ByKey(key identity.Identity) (Party, bool) {
	for _, p := range ps {
		if p.Key.Equal(key) {
			return p, true
		}
	}
	return Party{}, false
}

// Distinct returns true if no two parties share a key
func (ps Parties) Distinct() bool {
	seen := map[string]struct{}{}
	for _, p := range ps {
		if _, ok := seen[p.Key.UniqueID()]; ok {
			return false
		}
		seen[p.Key.UniqueID()] = struct{}{}
	}
	return true
}

// StateRef points to an output of a finalized transaction
type StateRef struct {
	TxID  string `json:"tx_id"`
	Index int    `json:"index"`
}

func (r StateRef) String() string {
	return fmt.Sprintf("%s:%d", r.TxID, r.Index)
}
