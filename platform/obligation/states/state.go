/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package states

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Kind tags the concrete type of a LedgerState
type Kind string

const (
	KindIOU             Kind = "IOU"
	KindCorporateAction Kind = "CorporateAction"
)

// LedgerState is an immutable version of a shared fact. Successive versions share the same ID.
type LedgerState interface {
	// ID returns the linear identifier shared by all versions of the state
	ID() string
	// Participants returns the parties that must learn about and agree on the state
	Participants() Parties
	// Kind returns the type tag used to (de)serialize the state
	Kind() Kind
}

// StateAndRef is a state together with the reference of the transaction output that produced it
type StateAndRef struct {
	Ref   StateRef
	State LedgerState
}

type stateAndRef struct {
	Ref   StateRef  `json:"ref"`
	State *Envelope `json:"state"`
}

func (s StateAndRef) MarshalJSON() ([]byte, error) {
	env, err := Wrap(s.State)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&stateAndRef{Ref: s.Ref, State: env})
}

func (s *StateAndRef) UnmarshalJSON(raw []byte) error {
	var sr stateAndRef
	if err := json.Unmarshal(raw, &sr); err != nil {
		return err
	}
	if sr.State == nil {
		return errors.Errorf("missing state for [%s]", sr.Ref)
	}
	st, err := sr.State.Unwrap()
	if err != nil {
		return err
	}
	s.Ref = sr.Ref
	s.State = st
	return nil
}

// Envelope is the typed serialized form of a LedgerState
type Envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Wrap serializes the passed state into an Envelope
func Wrap(s LedgerState) (*Envelope, error) {
	if s == nil {
		return nil, errors.New("cannot wrap nil state")
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrapf(err, "failed marshalling state [%s]", s.ID())
	}
	return &Envelope{Kind: s.Kind(), Data: raw}, nil
}

// Unwrap deserializes the state carried by the envelope
func (e *Envelope) Unwrap() (LedgerState, error) {
	switch e.Kind {
	case KindIOU:
		var iou IOU
		if err := json.Unmarshal(e.Data, &iou); err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling iou")
		}
		return iou, nil
	case KindCorporateAction:
		var ca CorporateAction
		if err := json.Unmarshal(e.Data, &ca); err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling corporate action")
		}
		return ca, nil
	default:
		return nil, errors.Errorf("unknown state kind [%s]", e.Kind)
	}
}

// WrapAll serializes the passed states, in order
func WrapAll(ss []LedgerState) ([]*Envelope, error) {
	res := make([]*Envelope, len(ss))
	for i, s := range ss {
		env, err := Wrap(s)
		if err != nil {
			return nil, err
		}
		res[i] = env
	}
	return res, nil
}

// UnwrapAll deserializes the passed envelopes, in order
func UnwrapAll(envs []*Envelope) ([]LedgerState, error) {
	res := make([]LedgerState, len(envs))
	for i, env := range envs {
		if env == nil {
			return nil, errors.Errorf("missing state at [%d]", i)
		}
		s, err := env.Unwrap()
		if err != nil {
			return nil, err
		}
		res[i] = s
	}
	return res, nil
}
