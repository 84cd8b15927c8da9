/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package simple

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEvents(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Test simple event system")
}

type countingListener struct {
	count int32
	last  events.Event
}

func (l *countingListener) OnReceive(event events.Event) {
	atomic.AddInt32(&l.count, 1)
	l.last = event
}

func (l *countingListener) calls() int {
	return int(atomic.LoadInt32(&l.count))
}

var _ = Describe("Event system", func() {

	When("creating a notifier service", func() {
		It("should succeed", func() {
			notifier := NewEventBus()
			Expect(notifier).NotTo(BeNil())
			Expect(notifier.handlers).NotTo(BeNil())
		})
	})

	When("publish and subscribe", func() {
		var notifier *eventBus

		var alice events.Subscriber
		var bob events.Publisher

		var listener *countingListener

		BeforeEach(func() {
			notifier = NewEventBus()
			alice = notifier
			bob = notifier
			Expect(notifier.handlers).To(BeEmpty())

			listener = &countingListener{}
		})

		It("Subscribe", func() {
			alice.Subscribe("obligation.finalized", listener)
			Expect(notifier.handlers).ToNot(BeEmpty())

			alice.Unsubscribe("obligation.finalized", nil)
			Expect(notifier.handlers).ToNot(BeEmpty())

			alice.Unsubscribe("other", listener)
			Expect(notifier.handlers).ToNot(BeEmpty())

			alice.Unsubscribe("obligation.finalized", listener)
			Expect(notifier.handlers).To(BeEmpty())

			alice.Subscribe("obligation.finalized", listener)
			alice.Unsubscribe("obligation.finalized", &countingListener{})
			Expect(notifier.handlers).ToNot(BeEmpty())
		})

		It("Publish", func() {
			event := &events.Message{T: "obligation.finalized", M: "tx1"}

			bob.Publish(nil)
			bob.Publish(event)
			Expect(listener.calls()).To(Equal(0))

			alice.Subscribe("obligation.finalized", listener)
			for i := 0; i < 1000; i++ {
				bob.Publish(event)
				Expect(listener.calls()).To(Equal(i + 1))
			}
			Expect(listener.last.Message()).To(Equal("tx1"))

			bob.Publish(&events.Message{T: "other"})
			Expect(listener.calls()).To(Equal(1000))
		})

		It("many listeners", func() {
			var listeners []*countingListener
			for i := 0; i < 100; i++ {
				l := &countingListener{}
				alice.Subscribe("topic", l)
				listeners = append(listeners, l)
				Expect(len(notifier.handlers["topic"])).To(Equal(i + 1))
			}
			bob.Publish(&events.Message{T: "topic"})
			for _, l := range listeners {
				Expect(l.calls()).To(Equal(1))
			}
		})

		It("subscribing while notified", func() {
			late := &countingListener{}
			alice.Subscribe("topic", events.ListenerFunc(func(events.Event) {
				alice.Subscribe("topic", late)
			}))
			bob.Publish(&events.Message{T: "topic"})
			Expect(late.calls()).To(Equal(0))
			bob.Publish(&events.Message{T: "topic"})
			Expect(late.calls()).To(Equal(1))
		})

		It("many topics", func() {
			for i := 0; i < 100; i++ {
				alice.Subscribe(fmt.Sprintf("topic_%d", i), events.ListenerFunc(func(events.Event) {}))
				Expect(len(notifier.handlers)).To(Equal(i + 1))
			}
		})
	})
})
