/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package manager

import (
	"context"
	"reflect"
	"sync"

	"github.com/hyperledger-labs/fsc-obligations/pkg/utils"
	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/metrics"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/tracing"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/view"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

const (
	SuccessLabel       tracing.LabelName = "success"
	ViewLabel          tracing.LabelName = "view"
	InitiatorViewLabel tracing.LabelName = "initiator_view"
)

var logger = logging.MustGetLogger("obligations.views")

// Manager runs views for the local party. Sessions opened by remote parties are answered by the
// responder registered for the view that opened them.
type Manager struct {
	services ServiceProvider
	comm     CommLayer
	ids      IdentityProvider
	sig      SigService
	tracer   trace.Tracer
	metrics  *Metrics

	lock       sync.RWMutex
	ctx        context.Context
	responders map[string]view.View
	running    map[string]*viewContext
}

func New(services ServiceProvider, comm CommLayer, ids IdentityProvider, sig SigService, tp trace.TracerProvider, mp metrics.Provider) *Manager {
	return &Manager{
		services:   services,
		comm:       comm,
		ids:        ids,
		sig:        sig,
		responders: map[string]view.View{},
		running:    map[string]*viewContext{},
		tracer: tp.Tracer("view", tracing.WithMetricsOpts(tracing.MetricsOpts{
			LabelNames: []tracing.LabelName{SuccessLabel, ViewLabel, InitiatorViewLabel},
		})),
		metrics: newMetrics(mp),
	}
}

// RegisterResponder makes responder answer the sessions opened by initiatedBy, a view or a view identifier
func (m *Manager) RegisterResponder(responder view.View, initiatedBy interface{}) error {
	id, err := initiatorID(initiatedBy)
	if err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if existing, ok := m.responders[id]; ok {
		return errors.Errorf("[%s] already answered by [%s]", id, viewID(existing))
	}
	logger.Debugf("[%s] answers [%s]", viewID(responder), id)
	m.responders[id] = responder
	return nil
}

// Responder returns the view answering initiatedBy
func (m *Manager) Responder(initiatedBy interface{}) (view.View, error) {
	id, err := initiatorID(initiatedBy)
	if err != nil {
		return nil, err
	}
	m.lock.RLock()
	defer m.lock.RUnlock()
	responder, ok := m.responders[id]
	if !ok {
		return nil, errors.Errorf("no responder for [%s]", id)
	}
	return responder, nil
}

// InitiateView runs v as the local party. Sessions v opened are closed when it returns.
func (m *Manager) InitiateView(v view.View, ctx context.Context) (interface{}, error) {
	if ctx == nil {
		ctx = m.context()
	}
	ctx, span := m.tracer.Start(ctx, "initiate_view")
	defer span.End()

	c := m.newContext(ctx, utils.GenerateUUID(), nil)
	c.initiator = v
	m.track(c)
	defer m.untrack(c)

	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("[%s] initiating [%s] in [%s]", c.me, viewID(v), c.id)
	}
	res, err := c.run(ctx, v)
	span.SetAttributes(tracing.Bool(SuccessLabel, err == nil))
	if err != nil {
		logger.Debugf("[%s] view [%s] in [%s] failed: %s", c.me, viewID(v), c.id, err)
		return nil, err
	}
	return res, nil
}

// Start answers the sessions opened by remote parties until ctx is done
func (m *Manager) Start(ctx context.Context) {
	m.lock.Lock()
	m.ctx = ctx
	m.lock.Unlock()

	master, err := m.comm.MasterSession()
	if err != nil {
		logger.Errorf("failed getting master session: %s", err)
		return
	}
	for {
		select {
		case msg := <-master.Receive():
			go m.respond(msg)
		case <-ctx.Done():
			logger.Debugf("[%s] stops answering", m.ids.DefaultIdentity())
			return
		}
	}
}

func (m *Manager) respond(msg *view.Message) {
	responder, err := m.Responder(msg.Caller)
	if err != nil {
		logger.Errorf("[%s] cannot answer %s: %s", m.ids.DefaultIdentity(), msg, err)
		if s, err2 := m.comm.NewSessionWithID(msg.SessionID); err2 == nil {
			_ = s.SendError([]byte(err.Error()))
			s.Close()
		}
		return
	}
	s, err := m.comm.NewSessionWithID(msg.SessionID)
	if err != nil {
		logger.Errorf("failed accepting session %s: %s", msg, err)
		return
	}

	c := m.newContext(m.context(), msg.ContextID+"."+msg.SessionID, s)
	c.opened[view.Identity(msg.FromPKID).UniqueID()] = s
	m.track(c)
	defer m.untrack(c)

	if _, err := c.run(c.ctx, responder); err != nil {
		logger.Errorf("[%s] failed answering %s: %s", c.me, msg, err)
		// the session is closed on untrack, the caller must get the reason first
		if err := s.SendError([]byte(err.Error())); err != nil {
			logger.Debugf("failed sending error back: %s", err)
		}
	}
}

func (m *Manager) newContext(ctx context.Context, id string, s view.Session) *viewContext {
	return &viewContext{
		ctx:      ctx,
		id:       id,
		me:       m.ids.DefaultIdentity(),
		session:  s,
		services: m.services,
		factory:  m.comm,
		sig:      m.sig,
		tracer:   m.tracer,
		opened:   map[string]view.Session{},
	}
}

func (m *Manager) context() context.Context {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

func (m *Manager) track(c *viewContext) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.running[c.id] = c
	m.metrics.Contexts.Set(float64(len(m.running)))
}

func (m *Manager) untrack(c *viewContext) {
	c.dispose()
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.running, c.id)
	m.metrics.Contexts.Set(float64(len(m.running)))
}

func initiatorID(initiatedBy interface{}) (string, error) {
	switch t := initiatedBy.(type) {
	case view.View:
		return viewID(t), nil
	case string:
		return t, nil
	default:
		return "", errors.Errorf("initiatedBy must be a view or a view identifier, got [%T]", initiatedBy)
	}
}

// viewID is the package qualified type name of v
func viewID(v view.View) string {
	if v == nil {
		return "<nil view>"
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "/" + t.Name()
}

func viewName(v view.View) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
