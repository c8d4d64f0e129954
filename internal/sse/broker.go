// Package sse streams directory changes to browsers as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/rolodex/internal/contactservice"
	"github.com/starford/rolodex/internal/models"
)

// EventSeedRejected is published when a changed seed file does not fit.
const EventSeedRejected = "seed.rejected"

const (
	defaultSummaryEvery = 2 * time.Second
	defaultHeartbeat    = 15 * time.Second
	subscriberBuffer    = 64
)

// Event is one SSE frame. Data is JSON-encoded into the data: line.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// eventTypes maps service change kinds to SSE event names.
var eventTypes = map[string]string{
	contactservice.ChangeAdded:   "contact.added",
	contactservice.ChangeRemoved: "contact.removed",
	contactservice.ChangeSorted:  "directory.sorted",
	contactservice.ChangeCleared: "directory.cleared",
}

type change struct {
	kind    string
	contact *models.Contact
	size    int
}

type sizeData struct {
	Size int `json:"size"`
}

// Broker fans events out to subscribers.
//
// The subscriber set, the frame sequence and the summary throttle are owned
// by the run goroutine; exported methods reach it over channels.
type Broker struct {
	summaryEvery time.Duration
	heartbeat    time.Duration

	join    chan chan []byte
	leave   chan chan []byte
	events  chan Event
	changes chan change
	count   chan chan int

	stop    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker that sends at most one directory.changed summary
// per summaryEvery.
func NewBroker(summaryEvery time.Duration) *Broker {
	if summaryEvery <= 0 {
		summaryEvery = defaultSummaryEvery
	}

	b := &Broker{
		summaryEvery: summaryEvery,
		heartbeat:    defaultHeartbeat,
		join:         make(chan chan []byte),
		leave:        make(chan chan []byte),
		events:       make(chan Event, 256),
		changes:      make(chan change, 256),
		count:        make(chan chan int),
		stop:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	subscribers := make(map[chan []byte]struct{})
	var (
		seq         uint64
		lastSummary time.Time
	)

	send := func(ev Event) {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			return
		}
		seq++
		frame := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, ev.Type, data))
		for ch := range subscribers {
			select {
			case ch <- frame:
			default:
				// Slow subscriber; it misses this frame and can spot the gap by id.
			}
		}
	}

	for {
		select {
		case <-b.stop:
			for ch := range subscribers {
				close(ch)
			}
			return

		case ch := <-b.join:
			subscribers[ch] = struct{}{}

		case ch := <-b.leave:
			if _, ok := subscribers[ch]; ok {
				delete(subscribers, ch)
				close(ch)
			}

		case ev := <-b.events:
			send(ev)

		case c := <-b.changes:
			name, ok := eventTypes[c.kind]
			if !ok {
				continue
			}
			if c.contact != nil {
				send(Event{Type: name, Data: c.contact})
			} else {
				send(Event{Type: name, Data: sizeData{Size: c.size}})
			}

			if now := time.Now(); now.Sub(lastSummary) >= b.summaryEvery {
				lastSummary = now
				send(Event{Type: "directory.changed", Data: sizeData{Size: c.size}})
			}

		case reply := <-b.count:
			reply <- len(subscribers)
		}
	}
}

// Close stops the broker and closes every subscriber channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.stopped
}

// Subscribe registers a subscriber. The channel is closed on Unsubscribe or
// Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.join <- ch:
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
	case b.leave <- ch:
	case <-b.stopped:
	}
}

// ClientCount reports the number of subscribers.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	reply := make(chan int, 1)
	select {
	case b.count <- reply:
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

// Publish broadcasts an event that is not a directory change, such as a
// rejected seed reload.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- ev:
	case <-b.stopped:
	}
}

// PublishChange is a contactservice.ChangeFunc. Unknown kinds are dropped.
func (b *Broker) PublishChange(kind string, contact *models.Contact, size int) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changes <- change{kind: kind, contact: contact, size: size}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client until it disconnects or the broker
// closes. Idle streams get a comment line every heartbeat interval.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Subscribe before the headers go out so a client holding a response
	// sees every later event.
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
