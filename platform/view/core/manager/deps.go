/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package manager

import (
	"github.com/hyperledger-labs/fsc-obligations/platform/view/view"
)

// SessionFactory opens sessions to remote parties and accepts the ones they open
type SessionFactory interface {
	// NewSession opens a session to party for the view callerViewID running in contextID
	NewSession(callerViewID string, contextID string, party view.Identity) (view.Session, error)
	// NewSessionWithID returns our end of the session sessionID a remote party opened
	NewSessionWithID(sessionID string) (view.Session, error)
}

// CommLayer is the endpoint of the local party on the network
type CommLayer interface {
	SessionFactory
	// MasterSession delivers the first message of every session opened with us
	MasterSession() (view.Session, error)
}

type IdentityProvider interface {
	DefaultIdentity() view.Identity
}

type SigService interface {
	IsMe(id view.Identity) bool
}

type ServiceProvider interface {
	GetService(v interface{}) (interface{}, error)
}
