/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package commit

import (
	"time"

	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/metrics"
)

const (
	actionLabel = "action"
	phaseLabel  = "phase"
	roleLabel   = "role"

	initiatorRole = "initiator"
	responderRole = "responder"
)

var (
	committedOpts = metrics.CounterOpts{
		Subsystem:  "commit",
		Name:       "committed",
		Help:       "The number of transitions committed",
		LabelNames: []string{actionLabel, roleLabel},
	}
	abortedOpts = metrics.CounterOpts{
		Subsystem:  "commit",
		Name:       "aborted",
		Help:       "The number of commit instances aborted, by failed phase",
		LabelNames: []string{actionLabel, roleLabel, phaseLabel},
	}
	durationOpts = metrics.HistogramOpts{
		Subsystem:  "commit",
		Name:       "duration",
		Help:       "The duration of commit instances in seconds",
		LabelNames: []string{actionLabel, roleLabel},
		Buckets:    []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}
)

type Metrics struct {
	Committed metrics.Counter
	Aborted   metrics.Counter
	Duration  metrics.Histogram
}

func NewMetrics(p metrics.Provider) *Metrics {
	return &Metrics{
		Committed: p.NewCounter(committedOpts),
		Aborted:   p.NewCounter(abortedOpts),
		Duration:  p.NewHistogram(durationOpts),
	}
}

func (m *Metrics) observe(action, role string, start time.Time, err error) {
	if m == nil {
		return
	}
	if err == nil {
		m.Committed.With(actionLabel, action, roleLabel, role).Add(1)
	} else {
		m.Aborted.With(actionLabel, action, roleLabel, role, phaseLabel, PhaseOf(err).String()).Add(1)
	}
	m.Duration.With(actionLabel, action, roleLabel, role).Observe(time.Since(start).Seconds())
}
