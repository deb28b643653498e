package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event is one SSE event: its event-stream type and a JSON payload.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type noteChange struct {
	kind   string // "created", "updated" or "deleted"
	noteID string
}

// Broker fans note-change events out to SSE subscribers. A single loop
// goroutine owns the subscriber set and the graph throttle clock; the
// exported methods only ever talk to that loop over channels.
type Broker struct {
	graphEvery time.Duration

	joinCh  chan chan []byte
	leaveCh chan chan []byte
	eventCh chan Event
	noteCh  chan noteChange
	countCh chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. graphEvery bounds how often a graph.updated
// event accompanies the note events, since every note change invalidates
// the graph but clients redraw it slowly.
func NewBroker(graphEvery time.Duration) *Broker {
	if graphEvery <= 0 {
		graphEvery = 2 * time.Second
	}

	b := &Broker{
		graphEvery: graphEvery,
		joinCh:     make(chan chan []byte),
		leaveCh:    make(chan chan []byte),
		eventCh:    make(chan Event, 256),
		noteCh:     make(chan noteChange, 256),
		countCh:    make(chan chan int),
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}

	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	subscribers := make(map[chan []byte]struct{})
	var lastGraph time.Time

	send := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		frame := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))
		for ch := range subscribers {
			select {
			case ch <- frame:
			default:
				// Subscriber is not draining; drop the frame rather
				// than stall everyone else.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range subscribers {
				close(ch)
			}
			return

		case ch := <-b.joinCh:
			subscribers[ch] = struct{}{}

		case ch := <-b.leaveCh:
			if _, ok := subscribers[ch]; ok {
				delete(subscribers, ch)
				close(ch)
			}

		case event := <-b.eventCh:
			send(event)

		case change := <-b.noteCh:
			send(Event{Type: "note." + change.kind, Data: map[string]string{"id": change.noteID}})
			if now := time.Now(); now.Sub(lastGraph) >= b.graphEvery {
				lastGraph = now
				send(Event{Type: "graph.updated", Data: map[string]string{}})
			}

		case reply := <-b.countCh:
			reply <- len(subscribers)
		}
	}
}

// Close stops the loop and closes every subscriber channel. Safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a subscriber and returns its channel. On a closed
// broker the returned channel is already closed.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.joinCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leaveCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount reports how many subscribers are connected.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	reply := make(chan int, 1)
	select {
	case b.countCh <- reply:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-reply:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish broadcasts an arbitrary event to all subscribers.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.eventCh <- event:
	case <-b.stopped:
	}
}

// PublishNoteEvent broadcasts a note change, with a throttled graph.updated
// alongside it. kind is "created", "updated" or "deleted".
func (b *Broker) PublishNoteEvent(kind, noteID string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.noteCh <- noteChange{kind: kind, noteID: noteID}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one subscriber until it disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Initial comment keeps proxies from buffering the stream.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
