// Package sse pushes live clock readings and layout change notifications to
// browsers over Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/lintel/internal/clock"
)

// Event types.
const (
	TypeClockTick     = "clock.tick"
	TypeLayoutUpdated = "layout.updated"
	TypePageReload    = "page.reload"
)

// Topic selects which events a client receives.
type Topic uint8

// Topics.
const (
	TopicClock Topic = 1 << iota
	TopicLayout

	AllTopics = TopicClock | TopicLayout
)

// ParseTopics reads a comma separated list such as "clock,layout".
// Unknown names are ignored; an empty or unknown-only list means AllTopics.
func ParseTopics(s string) Topic {
	var t Topic
	for _, name := range strings.Split(s, ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "clock":
			t |= TopicClock
		case "layout":
			t |= TopicLayout
		}
	}
	if t == 0 {
		return AllTopics
	}
	return t
}

// Event is a message for connected clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (e Event) topic() Topic {
	if e.Type == TypeClockTick {
		return TopicClock
	}
	return TopicLayout
}

// LayoutChange is the payload of layout.updated.
type LayoutChange struct {
	Fragment string `json:"fragment"`
}

// retryMillis is the reconnect delay suggested to browsers.
const retryMillis = 3000

// Broker fans events out to SSE clients.
//
// A single goroutine owns the client set, the last clock frame and the
// reload throttle. Public methods talk to it over channels.
type Broker struct {
	reloadMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	layoutCh      chan string
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

type subscription struct {
	ch     chan []byte
	topics Topic
}

// NewBroker creates a new broker. page.reload hints are sent at most once
// per reloadThrottle.
func NewBroker(reloadThrottle time.Duration) *Broker {
	if reloadThrottle <= 0 {
		reloadThrottle = 2 * time.Second
	}

	b := &Broker{
		reloadMin:     reloadThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		layoutCh:      make(chan string, 64),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]Topic)
	var (
		seq        uint64
		lastClock  []byte
		lastReload time.Time
	)

	frame := func(event Event) []byte {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return nil
		}
		seq++
		return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))
	}

	send := func(ch chan []byte, raw []byte) {
		select {
		case ch <- raw:
		default:
			// Slow client; drop rather than stall everyone else.
		}
	}

	broadcast := func(event Event) {
		raw := frame(event)
		if raw == nil {
			return
		}
		if event.Type == TypeClockTick {
			lastClock = raw
		}
		topic := event.topic()
		for ch, topics := range clients {
			if topics&topic != 0 {
				send(ch, raw)
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.topics
			// New pages show the time right away instead of waiting a tick.
			if lastClock != nil && sub.topics&TopicClock != 0 {
				send(sub.ch, lastClock)
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case name := <-b.layoutCh:
			broadcast(Event{Type: TypeLayoutUpdated, Data: LayoutChange{Fragment: name}})

			now := time.Now()
			if now.Sub(lastReload) >= b.reloadMin {
				lastReload = now
				broadcast(Event{Type: TypePageReload, Data: struct{}{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client for the given topics and returns its channel.
// The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe(topics Topic) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, topics: topics}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish queues an event for all interested clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishClock sends a clock.tick event.
func (b *Broker) PublishClock(r clock.Reading) {
	b.Publish(Event{Type: TypeClockTick, Data: r})
}

// PublishLayoutEvent announces a changed fragment, followed by a throttled
// page.reload hint.
func (b *Broker) PublishLayoutEvent(fragment string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.layoutCh <- fragment:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler. The optional topics query
// parameter narrows the stream, e.g. /events?topics=clock.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	topics := ParseTopics(r.URL.Query().Get("topics"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe(topics)
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
