/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package journal

import (
	"context"

	"github.com/hyperledger-labs/fsc-obligations/platform/obligation/driver"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/events"
	"github.com/pkg/errors"
)

// FinalizedTopic is the topic finalized transactions are published on
const FinalizedTopic = "obligation.finalized"

// Publisher is a HistorySink announcing finalized transactions on an event bus
type Publisher struct {
	publisher events.Publisher
}

func NewPublisher(publisher events.Publisher) *Publisher {
	return &Publisher{publisher: publisher}
}

func (p *Publisher) Append(_ context.Context, tx *driver.FinalizedTransaction) error {
	p.publisher.Publish(&events.Message{T: FinalizedTopic, M: tx})
	return nil
}

// Sinks fans a finalized transaction out to several sinks, in order.
// It stops at the first failure.
type Sinks []driver.HistorySink

func (s Sinks) Append(ctx context.Context, tx *driver.FinalizedTransaction) error {
	for i, sink := range s {
		if err := sink.Append(ctx, tx); err != nil {
			return errors.WithMessagef(err, "history sink [%d] failed recording [%s]", i, tx.ID)
		}
	}
	return nil
}
