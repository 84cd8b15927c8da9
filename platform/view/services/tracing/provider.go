/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tracing

import (
	"context"
	"fmt"

	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/metrics"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"
)

type metricsProvider interface {
	NewCounter(opts metrics.CounterOpts) metrics.Counter
	NewHistogram(opts metrics.HistogramOpts) metrics.Histogram
}

// NewTracerProvider returns a provider whose spans also feed an operations counter
// and a duration histogram per tracer. A nil backing provider records no traces.
func NewTracerProvider(backingProvider trace.TracerProvider, mp metricsProvider) trace.TracerProvider {
	if backingProvider == nil {
		backingProvider = noop.NewTracerProvider()
	}
	return &tracerProvider{metricsProvider: mp, backingProvider: backingProvider}
}

type tracerProvider struct {
	embedded.TracerProvider

	metricsProvider metricsProvider
	backingProvider trace.TracerProvider
}

func (p *tracerProvider) Tracer(name string, options ...trace.TracerOption) trace.Tracer {
	c := trace.NewTracerConfig(options...)

	opts := metricsOptsOf(c)
	return &tracer{
		backingTracer: p.backingProvider.Tracer(name, options...),
		labelNames:    opts.LabelNames,
		operations: p.metricsProvider.NewCounter(metrics.CounterOpts{
			Namespace:  opts.Namespace,
			Name:       fmt.Sprintf("%s_operations", name),
			Help:       fmt.Sprintf("Counter of '%s' operations", name),
			LabelNames: opts.LabelNames,
		}),
		duration: p.metricsProvider.NewHistogram(metrics.HistogramOpts{
			Namespace:  opts.Namespace,
			Name:       fmt.Sprintf("%s_duration", name),
			Help:       fmt.Sprintf("Histogram for the duration of '%s' operations", name),
			LabelNames: opts.LabelNames,
		}),
	}
}

type tracer struct {
	embedded.Tracer

	backingTracer trace.Tracer
	labelNames    []LabelName
	operations    metrics.Counter
	duration      metrics.Histogram
}

func (t *tracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, backingSpan := t.backingTracer.Start(ctx, spanName, opts...)
	s := newSpan(backingSpan, t, opts...)
	return trace.ContextWithSpan(ctx, s), s
}
