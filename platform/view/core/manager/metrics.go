/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package manager

import (
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/metrics"
)

var contextsOpts = metrics.GaugeOpts{
	Subsystem: "view",
	Name:      "contexts",
	Help:      "The number of open view contexts",
}

type Metrics struct {
	Contexts metrics.Gauge
}

func newMetrics(p metrics.Provider) *Metrics {
	return &Metrics{Contexts: p.NewGauge(contextsOpts)}
}
