/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tracing

import (
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type (
	LabelName       = string
	SpanStartOption = trace.SpanStartOption
	KeyValue        = attribute.KeyValue
)

var (
	WithAttributes = trace.WithAttributes
	Bool           = attribute.Bool
	String         = attribute.String
)

// instrumentation attributes carrying MetricsOpts from Tracer to the provider
const (
	namespaceAttr  = "metrics.namespace"
	labelNamesAttr = "metrics.label_names"
)

// MetricsOpts names the meters a tracer derives from its spans. Span attributes whose key is one of
// LabelNames become labels of the meters.
type MetricsOpts struct {
	Namespace  string
	LabelNames []LabelName
}

func WithMetricsOpts(o MetricsOpts) trace.TracerOption {
	return trace.WithInstrumentationAttributes(
		attribute.String(namespaceAttr, o.Namespace),
		attribute.StringSlice(labelNamesAttr, o.LabelNames),
	)
}

func metricsOptsOf(c trace.TracerConfig) MetricsOpts {
	attrs := c.InstrumentationAttributes()
	o := MetricsOpts{}
	if v, ok := attrs.Value(namespaceAttr); ok {
		o.Namespace = v.AsString()
	}
	if v, ok := attrs.Value(labelNamesAttr); ok {
		o.LabelNames = v.AsStringSlice()
	}
	return o
}

// span forwards to the backing span and, on End, counts the operation and observes its duration.
// Labels take the last value set for them; unset ones are empty.
type span struct {
	trace.Span

	names      []LabelName
	values     map[LabelName]string
	start      time.Time
	operations metrics.Counter
	duration   metrics.Histogram
}

func newSpan(backing trace.Span, t *tracer, opts ...SpanStartOption) *span {
	c := trace.NewSpanStartConfig(opts...)
	s := &span{
		Span:       backing,
		names:      t.labelNames,
		values:     make(map[LabelName]string, len(t.labelNames)),
		start:      c.Timestamp(),
		operations: t.operations,
		duration:   t.duration,
	}
	if s.start.IsZero() {
		s.start = time.Now()
	}
	s.record(c.Attributes())
	return s
}

func (s *span) record(kvs []attribute.KeyValue) {
	for _, kv := range kvs {
		if !kv.Valid() {
			continue
		}
		for _, name := range s.names {
			if string(kv.Key) == name {
				s.values[name] = kv.Value.Emit()
			}
		}
	}
}

func (s *span) labels() []string {
	ls := make([]string, 0, 2*len(s.names))
	for _, name := range s.names {
		ls = append(ls, name, s.values[name])
	}
	return ls
}

func (s *span) SetAttributes(kv ...KeyValue) {
	s.Span.SetAttributes(kv...)
	s.record(kv)
}

func (s *span) AddEvent(name string, options ...trace.EventOption) {
	s.Span.AddEvent(name, options...)
	c := trace.NewEventConfig(options...)
	s.record(c.Attributes())
}

func (s *span) End(options ...trace.SpanEndOption) {
	s.Span.End(options...)

	c := trace.NewSpanEndConfig(options...)
	s.record(c.Attributes())
	end := c.Timestamp()
	if end.IsZero() {
		end = time.Now()
	}
	ls := s.labels()
	s.operations.With(ls...).Add(1)
	s.duration.With(ls...).Observe(end.Sub(s.start).Seconds())
}
