/*
 * Copyright (c) 2017-2020 The lyra developers
 */

package event

import "sync"

// Bus is an in-process publish/subscribe hub keyed by topic. Publishing
// never blocks: subscribers with a full channel miss the event.
type Bus struct {
	mtx  sync.RWMutex
	subs map[string][]chan<- *Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan<- *Event)}
}

// Subscribe registers ch to receive events published on topic. The
// channel should be buffered; deliveries to a full channel are dropped.
func (b *Bus) Subscribe(topic string, ch chan<- *Event) {
	b.mtx.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mtx.Unlock()
}

// Message publishes data to every subscriber of topic.
func (b *Bus) Message(topic string, data interface{}) {
	b.mtx.RLock()
	subs := b.subs[topic]
	b.mtx.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- New(topic, data):
		default:
		}
	}
}
