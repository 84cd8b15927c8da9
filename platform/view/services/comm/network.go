/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"sync"

	"github.com/hyperledger-labs/fsc-obligations/pkg/utils"
	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/view"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("view-sdk.comm")

// Network is an in-process message transport. Endpoints join with their identity
// and open sessions to each other. Delivery is reliable and ordered per session.
type Network struct {
	lock         sync.RWMutex
	endpoints    map[string]*Endpoint
	disconnected map[string]bool
}

func NewNetwork() *Network {
	return &Network{
		endpoints:    map[string]*Endpoint{},
		disconnected: map[string]bool{},
	}
}

// Join registers a new endpoint for the passed identity
func (n *Network) Join(name string, id view.Identity) (*Endpoint, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	if _, ok := n.endpoints[id.UniqueID()]; ok {
		return nil, errors.Errorf("endpoint for [%s] already joined", name)
	}
	e := &Endpoint{
		network:  n,
		name:     name,
		id:       id,
		sessions: map[string]*Session{},
	}
	e.master = newSession("master", "", "", nil, e, id)
	n.endpoints[id.UniqueID()] = e
	logger.Infof("endpoint [%s] joined", name)
	return e, nil
}

// Disconnect makes the endpoint of the passed identity unreachable until Reconnect is called
func (n *Network) Disconnect(id view.Identity) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.disconnected[id.UniqueID()] = true
}

// Reconnect undoes Disconnect
func (n *Network) Reconnect(id view.Identity) {
	n.lock.Lock()
	defer n.lock.Unlock()
	delete(n.disconnected, id.UniqueID())
}

func (n *Network) isDisconnected(id view.Identity) bool {
	n.lock.RLock()
	defer n.lock.RUnlock()
	return n.disconnected[id.UniqueID()]
}

func (n *Network) lookup(id view.Identity) (*Endpoint, error) {
	n.lock.RLock()
	defer n.lock.RUnlock()
	e, ok := n.endpoints[id.UniqueID()]
	if !ok {
		return nil, errors.Errorf("no endpoint found for [%s]", id)
	}
	if n.disconnected[id.UniqueID()] {
		return nil, errors.Errorf("endpoint [%s] unreachable", e.name)
	}
	return e, nil
}

// Endpoint is a node attached to a Network
type Endpoint struct {
	network  *Network
	name     string
	id       view.Identity
	master   *Session
	lock     sync.Mutex
	sessions map[string]*Session
}

// Name returns the name the endpoint joined with
func (e *Endpoint) Name() string {
	return e.name
}

// MasterSession returns the session on which the first message of every remotely opened session is announced
func (e *Endpoint) MasterSession() (view.Session, error) {
	return e.master, nil
}

// NewSession opens a new session to the passed party on behalf of the passed caller view
func (e *Endpoint) NewSession(callerViewID string, contextID string, party view.Identity) (view.Session, error) {
	remote, err := e.network.lookup(party)
	if err != nil {
		return nil, err
	}
	sessionID := utils.GenerateUUID()
	local := newSession(sessionID, contextID, callerViewID, nil, e, party)
	other := newSession(sessionID, contextID, callerViewID, e.id, remote, e.id)
	local.peer = other
	other.peer = local

	e.addSession(local)
	remote.addSession(other)
	return local, nil
}

// NewSessionWithID returns this endpoint's side of the session announced by msg
func (e *Endpoint) NewSessionWithID(sessionID string) (view.Session, error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	s, ok := e.sessions[sessionID]
	if !ok {
		return nil, errors.Errorf("session [%s] not found on [%s]", sessionID, e.name)
	}
	return s, nil
}

func (e *Endpoint) addSession(s *Session) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.sessions[s.sessionID] = s
}

func (e *Endpoint) removeSession(id string) {
	e.lock.Lock()
	defer e.lock.Unlock()
	delete(e.sessions, id)
}

func (e *Endpoint) announce(msg *view.Message) {
	e.master.enqueue(msg)
}
