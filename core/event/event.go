/*
 * Copyright (c) 2017-2020 The lyra developers
 */

package event

// Event is a single message delivered on the bus. Ack, when non-nil,
// is closed by the subscriber once the event has been handled.
type Event struct {
	Topic string
	Data  interface{}
	Ack   chan<- struct{}
}

// New constructs an event without an Ack channel.
func New(topic string, data interface{}) *Event {
	return &Event{Topic: topic, Data: data}
}
