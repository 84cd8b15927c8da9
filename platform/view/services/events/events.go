/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package events

// Event models a message published on a topic
type Event interface {
	Topic() string
	Message() interface{}
}

// Listener is notified of the events published on the topics it subscribed to
type Listener interface {
	OnReceive(event Event)
}

type Publisher interface {
	Publish(event Event)
}

type Subscriber interface {
	Subscribe(topic string, receiver Listener)
	Unsubscribe(topic string, receiver Listener)
}

// EventSystem is both a Publisher and a Subscriber
type EventSystem interface {
	Publisher
	Subscriber
}

// ListenerFunc adapts a function to the Listener interface.
// Function values are not comparable, a ListenerFunc cannot be unsubscribed.
type ListenerFunc func(event Event)

func (f ListenerFunc) OnReceive(event Event) { f(event) }

// Message is a simple Event carrying an arbitrary payload
type Message struct {
	T string
	M interface{}
}

func (m *Message) Topic() string {
	return m.T
}

func (m *Message) Message() interface{} {
	return m.M
}
