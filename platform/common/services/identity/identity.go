/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identity

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"sort"
)

// Identity wraps the byte representation of a public key.
type Identity []byte

// Equal return true if the identities are the same
func (id Identity) Equal(id2 Identity) bool {
	return bytes.Equal(id, id2)
}

// UniqueID returns a unique identifier of this identity
func (id Identity) UniqueID() string {
	if len(id) == 0 {
		return "<empty>"
	}
	h := sha256.Sum256(id)
	return base64.StdEncoding.EncodeToString(h[:])
}

// String returns a string representation of this identity
func (id Identity) String() string {
	return id.UniqueID()
}

// Bytes returns the byte representation of this identity
func (id Identity) Bytes() []byte {
	return id
}

// IsNone returns true if this identity is empty
func (id Identity) IsNone() bool {
	return len(id) == 0
}

// Identities is a set-like list of identities.
type Identities []Identity

// Contains returns true if the passed identity is in the list.
func (ids Identities) Contains(id Identity) bool {
	for _, i := range ids {
		if i.Equal(id) {
			return true
		}
	}
	return false
}

// Union returns the deduplicated union of the receiver and the passed lists, sorted.
func (ids Identities) Union(others ...Identities) Identities {
	res := Identities{}
	for _, list := range append([]Identities{ids}, others...) {
		for _, id := range list {
			if !res.Contains(id) {
				res = append(res, id)
			}
		}
	}
	return res.Sorted()
}

// Sorted returns a sorted copy of the list.
func (ids Identities) Sorted() Identities {
	res := make(Identities, len(ids))
	copy(res, ids)
	sort.Slice(res, func(i, j int) bool { return bytes.Compare(res[i], res[j]) < 0 })
	return res
}

// Match returns true if the two lists contain the same identities, regardless of order and duplicates.
func (ids Identities) Match(others Identities) bool {
	for _, id := range ids {
		if !others.Contains(id) {
			return false
		}
	}
	for _, id := range others {
		if !ids.Contains(id) {
			return false
		}
	}
	return true
}

// ContainsAll returns true if every passed identity is in the list.
func (ids Identities) ContainsAll(others ...Identity) bool {
	for _, id := range others {
		if !ids.Contains(id) {
			return false
		}
	}
	return true
}
