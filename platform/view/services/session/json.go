/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/hash"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/view"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

var logger = logging.MustGetLogger("view-sdk.session.json")

// DefaultTimeout bounds Receive when no explicit timeout is given
const DefaultTimeout = 10 * time.Second

type Session interface {
	view.Session
}

type jsonSession struct {
	s       Session
	context context.Context
}

// NewJSON opens a session to party on behalf of caller. Values are exchanged as JSON documents.
func NewJSON(context view.Context, caller view.View, party view.Identity) (*jsonSession, error) {
	s, err := context.GetSession(caller, party)
	if err != nil {
		return nil, err
	}
	return &jsonSession{s: s, context: context.Context()}, nil
}

// JSON wraps the session the passed context is responding on
func JSON(context view.Context) *jsonSession {
	return &jsonSession{s: context.Session(), context: context.Context()}
}

// Wrap wraps an existing session
func Wrap(ctx context.Context, s Session) *jsonSession {
	return &jsonSession{s: s, context: ctx}
}

func (j *jsonSession) Receive(state interface{}) error {
	return j.ReceiveWithTimeout(state, DefaultTimeout)
}

func (j *jsonSession) ReceiveWithTimeout(state interface{}, d time.Duration) error {
	raw, err := j.ReceiveRawWithTimeout(d)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, state); err != nil {
		return errors.Wrapf(err, "failed unmarshalling message from [%s]", j.s.Info().Endpoint)
	}
	return nil
}

// ReceiveRawWithTimeout returns the payload of the next message
func (j *jsonSession) ReceiveRawWithTimeout(d time.Duration) ([]byte, error) {
	timeout := time.NewTimer(d)
	defer timeout.Stop()

	var raw []byte
	select {
	case msg := <-j.s.Receive():
		if msg == nil {
			return nil, errors.Wrap(ErrRemote, "session closed")
		}
		if msg.Status == view.ERROR {
			return nil, errors.Wrapf(ErrRemote, "received error from remote [%s]", string(msg.Payload))
		}
		raw = msg.Payload
	case <-timeout.C:
		return nil, errors.Wrapf(ErrTimeout, "waiting on [%s] after [%s]", j.s.Info().Endpoint, d)
	case <-j.context.Done():
		return nil, errors.Errorf("context done [%s]", j.context.Err())
	}
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("json session, received message [%s]", hash.Hashable(raw).String())
	}
	return raw, nil
}

func (j *jsonSession) Send(state interface{}) error {
	v, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("json session, send message [%s]", hash.Hashable(v).String())
	}
	return j.s.Send(v)
}

func (j *jsonSession) SendError(err string) error {
	logger.Debugf("json session, send error [%s]", err)
	return j.s.SendError([]byte(err))
}

func (j *jsonSession) Session() Session {
	return j.s
}
