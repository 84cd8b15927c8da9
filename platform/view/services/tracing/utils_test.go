/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestEmptyContext(t *testing.T) {
	m, err := MarshalContext(trace.SpanContext{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(m))

	ctx, err := UnmarshalContext(m)
	require.NoError(t, err)
	assert.False(t, ctx.IsValid())

	_, err = UnmarshalContext([]byte("not json"))
	assert.Error(t, err)
}

func TestContextTravels(t *testing.T) {
	state, err := trace.ParseTraceState("obligations=commit,vendor=x")
	require.NoError(t, err)
	ctx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
		TraceState: state,
	})

	m, err := MarshalContext(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(m), "traceparent")

	received, err := UnmarshalContext(m)
	require.NoError(t, err)
	assert.True(t, received.IsRemote())
	assert.Equal(t, ctx.TraceID(), received.TraceID())
	assert.Equal(t, ctx.SpanID(), received.SpanID())
	assert.True(t, received.IsSampled())
	assert.Equal(t, "obligations=commit,vendor=x", received.TraceState().String())
}
