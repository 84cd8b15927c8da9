/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package view defines the unit of work exchanged between parties: a View runs
// inside a Context that knows who the local party is and how to reach the others.
package view

import (
	"context"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/identity"
	"go.opentelemetry.io/otel/trace"
)

// Identity is the serialized public key of a party.
type Identity = identity.Identity

// View is a step of a protocol. The manager calls it with the context of the party running it.
type View interface {
	Call(ctx Context) (interface{}, error)
}

// Context is what a running View sees of its party.
type Context interface {
	// StartSpanFrom opens a span below the one carried by ctx
	StartSpanFrom(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)

	// GetService looks up a service registered with the party
	GetService(v interface{}) (interface{}, error)

	// ID identifies the run this context belongs to
	ID() string

	// RunView runs v as a child of this context, sharing its session
	RunView(v View) (interface{}, error)

	Me() Identity
	IsMe(id Identity) bool

	// Initiator is the view that started the run, nil on the responder side
	Initiator() View

	// GetSession opens, or reuses, the session caller holds with party
	GetSession(caller View, party Identity) (Session, error)

	// Session is the session the remote initiator opened, nil on the initiator side
	Session() Session

	Context() context.Context

	// OnError registers a callback invoked if the run fails or panics
	OnError(callback func())
}
