/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"fmt"
)

// Message statuses
const (
	OK    = 200
	ERROR = 500
)

// Message is a frame delivered on a session.
type Message struct {
	SessionID    string
	ContextID    string
	Caller       string // view that opened the session
	FromEndpoint string
	FromPKID     []byte // key of the sender
	Status       int32
	Payload      []byte
}

func (m *Message) String() string {
	return fmt.Sprintf("[session:%s,context:%s,caller:%s,from:%s]", m.SessionID, m.ContextID, m.Caller, m.FromEndpoint)
}

// SessionInfo describes the two ends of a session.
type SessionInfo struct {
	ID           string
	Caller       Identity
	CallerViewID string
	Endpoint     string
	EndpointPKID []byte
	Closed       bool
}

func (i *SessionInfo) String() string {
	return fmt.Sprintf("session [%s] with [%s] for [%s], closed [%v]", i.ID, i.Endpoint, i.CallerViewID, i.Closed)
}

// Session is a bidirectional channel between two parties.
type Session interface {
	Info() SessionInfo
	Send(payload []byte) error
	// SendError sends payload flagged with the ERROR status
	SendError(payload []byte) error
	Receive() <-chan *Message
	Close()
}
