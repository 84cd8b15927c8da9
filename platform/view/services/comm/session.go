/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"sync"

	"github.com/hyperledger-labs/fsc-obligations/platform/view/view"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

// ErrSessionClosed is returned when a message is sent when the session is closed.
var ErrSessionClosed = errors.New("session closed")

const incomingBufferSize = 128

// Session is one side of a point-to-point, ordered message channel between two endpoints.
// It implements view.Session.
type Session struct {
	sessionID    string
	contextID    string
	callerViewID string
	caller       view.Identity
	local        *Endpoint
	remote       view.Identity

	peer      *Session
	announced bool
	incoming  chan *view.Message
	closed    chan struct{}
	closeOnce sync.Once
	mutex     sync.Mutex
}

func newSession(sessionID, contextID, callerViewID string, caller view.Identity, local *Endpoint, remote view.Identity) *Session {
	return &Session{
		sessionID:    sessionID,
		contextID:    contextID,
		callerViewID: callerViewID,
		caller:       caller,
		local:        local,
		remote:       remote,
		incoming:     make(chan *view.Message, incomingBufferSize),
		closed:       make(chan struct{}),
	}
}

// Info returns a view.SessionInfo.
func (s *Session) Info() view.SessionInfo {
	return view.SessionInfo{
		ID:           s.sessionID,
		Caller:       s.caller,
		CallerViewID: s.callerViewID,
		Endpoint:     s.peerName(),
		EndpointPKID: s.remote,
		Closed:       s.isClosed(),
	}
}

// Send sends the payload to the endpoint.
func (s *Session) Send(payload []byte) error {
	return s.sendWithStatus(payload, view.OK)
}

// SendError sends an error to the endpoint with the passed payload.
func (s *Session) SendError(payload []byte) error {
	return s.sendWithStatus(payload, view.ERROR)
}

// Receive returns a channel of messages received from the endpoint
func (s *Session) Receive() <-chan *view.Message {
	return s.incoming
}

// Close releases the session on this side. Pending messages are dropped.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.local.removeSession(s.sessionID)
		if logger.IsEnabledFor(zapcore.DebugLevel) {
			logger.Debugf("session [%s] closed on [%s]", s.sessionID, s.local.name)
		}
	})
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Session) peerName() string {
	if s.peer == nil {
		return ""
	}
	return s.peer.local.name
}

func (s *Session) sendWithStatus(payload []byte, status int32) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if s.peer == nil {
		return errors.Errorf("session [%s] has no remote side", s.sessionID)
	}
	if s.local.network.isDisconnected(s.local.id) || s.local.network.isDisconnected(s.remote) {
		return errors.Errorf("endpoint [%s] unreachable", s.peerName())
	}
	msg := &view.Message{
		SessionID:    s.sessionID,
		ContextID:    s.contextID,
		Caller:       s.callerViewID,
		FromEndpoint: s.local.name,
		FromPKID:     s.local.id,
		Status:       status,
		Payload:      payload,
	}
	if !s.peer.enqueue(msg) {
		return errors.Wrapf(ErrSessionClosed, "remote side of [%s]", s.sessionID)
	}
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("sent message [len:%d] to [%s] from [%s] [status:%v]", len(payload), s.peerName(), s.local.name, status)
	}
	return nil
}

// enqueue enqueues a message into the session's incoming channel.
// The first message reaching a session opened by a remote party is announced on the endpoint's master session.
func (s *Session) enqueue(msg *view.Message) bool {
	select {
	case <-s.closed:
		return false
	case s.incoming <- msg:
	}

	s.mutex.Lock()
	announce := !s.announced && s.caller != nil
	s.announced = true
	s.mutex.Unlock()
	if announce {
		s.local.announce(msg)
	}
	return true
}
