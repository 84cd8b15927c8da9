/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package simple

import (
	"slices"
	"sync"

	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/events"
)

type eventBus struct {
	lock     sync.RWMutex
	handlers map[string][]events.Listener
}

// NewEventBus returns an event system that delivers every event synchronously to the listeners of its topic
func NewEventBus() *eventBus {
	return &eventBus{handlers: map[string][]events.Listener{}}
}

// Publish calls the listeners of the event's topic in subscription order.
// Listeners may subscribe or unsubscribe while being notified.
func (e *eventBus) Publish(event events.Event) {
	if event == nil {
		return
	}
	e.lock.RLock()
	listeners := e.handlers[event.Topic()]
	e.lock.RUnlock()

	for _, l := range listeners {
		l.OnReceive(event)
	}
}

func (e *eventBus) Subscribe(topic string, receiver events.Listener) {
	if receiver == nil {
		return
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	// copy so that a Publish in progress keeps its snapshot
	e.handlers[topic] = append(slices.Clone(e.handlers[topic]), receiver)
}

func (e *eventBus) Unsubscribe(topic string, receiver events.Listener) {
	if receiver == nil {
		return
	}
	e.lock.Lock()
	defer e.lock.Unlock()

	listeners := e.handlers[topic]
	idx := slices.IndexFunc(listeners, func(l events.Listener) bool { return l == receiver })
	if idx == -1 {
		return
	}
	if len(listeners) == 1 {
		delete(e.handlers, topic)
		return
	}
	e.handlers[topic] = slices.Delete(slices.Clone(listeners), idx, idx+1)
}
