/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package manager

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/tracing"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/view"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// viewContext is the state shared by the views of one run: who we are, the session we answer on
// if any, and the sessions the views opened.
type viewContext struct {
	ctx       context.Context
	id        string
	me        view.Identity
	initiator view.View
	session   view.Session

	services ServiceProvider
	factory  SessionFactory
	sig      SigService
	tracer   trace.Tracer

	lock   sync.Mutex
	opened map[string]view.Session
}

func (c *viewContext) ID() string { return c.id }

func (c *viewContext) Me() view.Identity { return c.me }

func (c *viewContext) IsMe(id view.Identity) bool {
	if c.sig == nil {
		return c.me.Equal(id)
	}
	return c.sig.IsMe(id)
}

func (c *viewContext) Initiator() view.View { return c.initiator }

func (c *viewContext) Session() view.Session { return c.session }

func (c *viewContext) GetService(v interface{}) (interface{}, error) {
	return c.services.GetService(v)
}

func (c *viewContext) StartSpanFrom(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, opts...)
}

// GetSession returns the open session caller holds with party, or opens one.
// A nil caller only finds the session a remote party opened with us.
func (c *viewContext) GetSession(caller view.View, party view.Identity) (view.Session, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	key := party.UniqueID()
	if caller != nil {
		key = viewID(caller) + "." + key
	}
	if s, ok := c.opened[key]; ok {
		if !s.Info().Closed {
			return s, nil
		}
		delete(c.opened, key)
	}
	if caller == nil {
		return nil, errors.Errorf("no session with [%s] to reuse", party)
	}

	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("[%s] opening session to [%s] for [%s]", c.me, party, viewID(caller))
	}
	trace.SpanFromContext(c.ctx).AddEvent(fmt.Sprintf("open session to %s", party))
	s, err := c.factory.NewSession(viewID(caller), c.id, party)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed opening session to [%s]", party)
	}
	c.opened[key] = s
	return s, nil
}

func (c *viewContext) dispose() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.session != nil {
		c.session.Close()
	}
	for _, s := range c.opened {
		s.Close()
	}
	c.opened = map[string]view.Session{}
}

// run calls v in its own frame under parent. A failing or panicking view triggers the callbacks it registered.
func (c *viewContext) run(parent context.Context, v view.View) (res interface{}, err error) {
	if v == nil {
		return nil, errors.New("no view passed")
	}
	spanCtx, span := c.tracer.Start(parent, viewName(v), tracing.WithAttributes(
		tracing.String(ViewLabel, viewID(v)),
		tracing.String(InitiatorViewLabel, viewID(c.initiator)),
	), trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	f := &frame{viewContext: c, ctx: spanCtx}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("view [%s] panicked: [%v]\n%s", viewID(v), r, debug.Stack())
			f.fail()
			res, err = nil, errors.Errorf("view panicked: %v", r)
		}
	}()

	res, err = v.Call(f)
	span.SetAttributes(tracing.Bool(SuccessLabel, err == nil))
	if err != nil {
		f.fail()
		return nil, err
	}
	return res, nil
}

// frame is the view.Context of a single view call
type frame struct {
	*viewContext
	ctx     context.Context
	onError []func()
}

func (f *frame) Context() context.Context { return f.ctx }

func (f *frame) RunView(v view.View) (interface{}, error) { return f.run(f.ctx, v) }

func (f *frame) OnError(callback func()) { f.onError = append(f.onError, callback) }

func (f *frame) fail() {
	for _, callback := range f.onError {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Debugf("error callback panicked [%v]", r)
				}
			}()
			callback()
		}()
	}
}
