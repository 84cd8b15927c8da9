/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"testing"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/view/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, s view.Session) *view.Message {
	select {
	case msg := <-s.Receive():
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	n := NewNetwork()
	alice, err := n.Join("alice", view.Identity("alice"))
	require.NoError(t, err)
	bob, err := n.Join("bob", view.Identity("bob"))
	require.NoError(t, err)

	s, err := alice.NewSession("initiator", "ctx", view.Identity("bob"))
	require.NoError(t, err)
	require.NoError(t, s.Send([]byte("hello")))
	require.NoError(t, s.Send([]byte("world")))

	master, err := bob.MasterSession()
	require.NoError(t, err)
	announced := receive(t, master)
	assert.Equal(t, "initiator", announced.Caller)
	assert.Equal(t, "alice", announced.FromEndpoint)
	assert.Equal(t, []byte("alice"), announced.FromPKID)

	other, err := bob.NewSessionWithID(announced.SessionID)
	require.NoError(t, err)
	assert.Equal(t, view.Identity("alice"), other.Info().Caller)
	assert.Equal(t, "hello", string(receive(t, other).Payload))
	assert.Equal(t, "world", string(receive(t, other).Payload))

	// only the first message is announced
	select {
	case <-master.Receive():
		t.Fatal("unexpected announcement")
	default:
	}

	require.NoError(t, other.SendError([]byte("boom")))
	reply := receive(t, s)
	assert.Equal(t, int32(view.ERROR), reply.Status)
	assert.Equal(t, "bob", s.Info().Endpoint)
}

func TestSessionFailures(t *testing.T) {
	n := NewNetwork()
	alice, err := n.Join("alice", view.Identity("alice"))
	require.NoError(t, err)
	_, err = n.Join("alice", view.Identity("alice"))
	assert.Error(t, err)

	_, err = alice.NewSession("initiator", "ctx", view.Identity("carol"))
	assert.Error(t, err)

	_, err = n.Join("bob", view.Identity("bob"))
	require.NoError(t, err)
	s, err := alice.NewSession("initiator", "ctx", view.Identity("bob"))
	require.NoError(t, err)

	n.Disconnect(view.Identity("bob"))
	assert.Error(t, s.Send([]byte("lost")))
	_, err = alice.NewSession("initiator", "ctx", view.Identity("bob"))
	assert.Error(t, err)
	n.Reconnect(view.Identity("bob"))
	assert.NoError(t, s.Send([]byte("delivered")))

	s.Close()
	assert.True(t, s.Info().Closed)
	assert.ErrorIs(t, s.Send([]byte("closed")), ErrSessionClosed)
}
