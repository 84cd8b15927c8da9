/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package prometheus

import (
	kitmetrics "github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/prometheus"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/metrics"
	prom "github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace is used for the meters whose options leave the namespace empty
const DefaultNamespace = "obligations"

// Provider creates meters backed by prometheus collectors.
type Provider struct {
	// Registerer collects the created meters, the prometheus default registerer when nil
	Registerer prom.Registerer
	// SkipRegisterErr ignores registration failures, for example when the same meter is created twice
	SkipRegisterErr bool
}

// NewProvider returns a provider bound to the passed registerer
func NewProvider(registerer prom.Registerer) *Provider {
	return &Provider{Registerer: registerer}
}

func (p *Provider) NewCounter(o metrics.CounterOpts) metrics.Counter {
	cv := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace(o.Namespace),
		Subsystem: o.Subsystem,
		Name:      o.Name,
		Help:      o.Help,
	}, o.LabelNames)
	p.register(cv)
	return &Counter{Counter: prometheus.NewCounter(cv)}
}

func (p *Provider) NewGauge(o metrics.GaugeOpts) metrics.Gauge {
	gv := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace(o.Namespace),
		Subsystem: o.Subsystem,
		Name:      o.Name,
		Help:      o.Help,
	}, o.LabelNames)
	p.register(gv)
	return &Gauge{Gauge: prometheus.NewGauge(gv)}
}

func (p *Provider) NewHistogram(o metrics.HistogramOpts) metrics.Histogram {
	hv := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace(o.Namespace),
		Subsystem: o.Subsystem,
		Name:      o.Name,
		Help:      o.Help,
		Buckets:   o.Buckets,
	}, o.LabelNames)
	p.register(hv)
	return &Histogram{prometheus.NewHistogram(hv)}
}

func namespace(ns string) string {
	if len(ns) == 0 {
		return DefaultNamespace
	}
	return ns
}

func (p *Provider) register(c prom.Collector) {
	r := p.Registerer
	if r == nil {
		r = prom.DefaultRegisterer
	}
	if err := r.Register(c); err != nil && !p.SkipRegisterErr {
		panic(err)
	}
}

type Counter struct{ kitmetrics.Counter }

func (c *Counter) With(labelValues ...string) metrics.Counter {
	return &Counter{Counter: c.Counter.With(labelValues...)}
}

type Gauge struct{ kitmetrics.Gauge }

func (g *Gauge) With(labelValues ...string) metrics.Gauge {
	return &Gauge{Gauge: g.Gauge.With(labelValues...)}
}

type Histogram struct{ kitmetrics.Histogram }

func (h *Histogram) With(labelValues ...string) metrics.Histogram {
	return &Histogram{Histogram: h.Histogram.With(labelValues...)}
}
