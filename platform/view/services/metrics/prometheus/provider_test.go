/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/metrics"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderExposesMeters(t *testing.T) {
	registry := prom.NewRegistry()
	p := NewProvider(registry)

	counter := p.NewCounter(metrics.CounterOpts{
		Subsystem:  "commit",
		Name:       "transactions",
		Help:       "committed transactions",
		LabelNames: []string{"outcome"},
	})
	counter.With("outcome", "finalized").Add(2)
	counter.With("outcome", "aborted").Add(1)

	gauge := p.NewGauge(metrics.GaugeOpts{Namespace: "test", Name: "open_sessions", Help: "open sessions"})
	gauge.Set(3)

	histogram := p.NewHistogram(metrics.HistogramOpts{
		Subsystem: "commit",
		Name:      "duration_seconds",
		Help:      "commit duration",
		Buckets:   []float64{0.1, 1},
	})
	histogram.Observe(0.5)

	srv := httptest.NewServer(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	result, err := ReadAll(resp.Body)
	require.NoError(t, err)

	values := result["obligations_commit_transactions"]
	require.Len(t, values, 2)
	byOutcome := map[string]float64{}
	for _, v := range values {
		byOutcome[v.Labels["outcome"]] = v.Value
	}
	assert.Equal(t, 2.0, byOutcome["finalized"])
	assert.Equal(t, 1.0, byOutcome["aborted"])

	require.Len(t, result["test_open_sessions"], 1)
	assert.Equal(t, 3.0, result["test_open_sessions"][0].Value)
	require.Len(t, result["obligations_commit_duration_seconds_count"], 1)
	assert.Equal(t, 1.0, result["obligations_commit_duration_seconds_count"][0].Value)
}

func TestRegisterTwice(t *testing.T) {
	registry := prom.NewRegistry()
	opts := metrics.CounterOpts{Name: "twice", Help: "twice"}
	NewProvider(registry).NewCounter(opts)
	assert.Panics(t, func() { NewProvider(registry).NewCounter(opts) })
	assert.NotPanics(t, func() {
		(&Provider{Registerer: registry, SkipRegisterErr: true}).NewCounter(opts)
	})
}
