package entity

import (
	"sync"
	"sync/atomic"
)

// ChannelObserver hands events to another goroutine through one ordered
// buffered channel. Events for the same entity are never reordered.
//
// By default OnEvent blocks while the buffer is full. With dropWhenFull set it
// discards the event instead and counts it in Dropped.
type ChannelObserver struct {
	events       chan Event
	done         chan struct{}
	closeOnce    sync.Once
	dropWhenFull bool
	dropped      atomic.Int64
}

func NewChannelObserver(buffer int, dropWhenFull bool) *ChannelObserver {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelObserver{
		events:       make(chan Event, buffer),
		done:         make(chan struct{}),
		dropWhenFull: dropWhenFull,
	}
}

func (c *ChannelObserver) OnEvent(e Event) {
	select {
	case <-c.done:
		return
	default:
	}

	if c.dropWhenFull {
		select {
		case c.events <- e:
		case <-c.done:
		default:
			c.dropped.Add(1)
		}
		return
	}

	select {
	case c.events <- e:
	case <-c.done:
	}
}

// Events is the consumer side. It is never closed; select on Done as well.
func (c *ChannelObserver) Events() <-chan Event {
	return c.events
}

// Done is closed once Close has been called
func (c *ChannelObserver) Done() <-chan struct{} {
	return c.done
}

// Close stops delivery and releases any producer blocked in OnEvent
func (c *ChannelObserver) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *ChannelObserver) Dropped() int64 {
	return c.dropped.Load()
}

// Hub fans events out to a dynamic set of subscribers, e.g. SSE clients.
// Slow subscribers lose events rather than stalling the aggregator.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*ChannelObserver]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	return &Hub{subs: make(map[*ChannelObserver]struct{}), buffer: buffer}
}

func (h *Hub) OnEvent(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		sub.OnEvent(e)
	}
}

// Subscribe registers a new dropping subscriber. Call Unsubscribe when done.
func (h *Hub) Subscribe() *ChannelObserver {
	sub := NewChannelObserver(h.buffer, true)

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) Unsubscribe(sub *ChannelObserver) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	sub.Close()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
