package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/rolodex/internal/contactservice"
	"github.com/starford/rolodex/internal/models"
)

func recv(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for frame")
		return ""
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients = %d, want 0", n)
	}
	ch := b.Subscribe()
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}
	b.Unsubscribe(ch)
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients after unsubscribe = %d, want 0", n)
	}
}

func TestPublish_FrameFormat(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "contact.added", Data: models.Contact{Name: "Amy"}})
	b.Publish(Event{Type: "contact.added", Data: models.Contact{Name: "Bob"}})

	first, second := recv(t, ch), recv(t, ch)
	if !strings.HasPrefix(first, "id: 1\nevent: contact.added\ndata: ") || !strings.HasSuffix(first, "\n\n") {
		t.Errorf("first frame = %q", first)
	}
	if !strings.Contains(first, `"name":"Amy"`) {
		t.Errorf("first frame missing contact: %q", first)
	}
	if !strings.HasPrefix(second, "id: 2\n") {
		t.Errorf("second frame id: %q", second)
	}
}

func TestPublishChange_SummaryThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	amy := &models.Contact{Name: "Amy", PhoneNumber: "111"}
	b.PublishChange(contactservice.ChangeAdded, amy, 1)
	b.PublishChange(contactservice.ChangeRemoved, amy, 0)

	// added, directory.changed, removed; the second summary is throttled.
	frames := []string{recv(t, ch), recv(t, ch), recv(t, ch)}
	if !strings.Contains(frames[0], "event: contact.added") || !strings.Contains(frames[0], `"name":"Amy"`) {
		t.Errorf("frame 0 = %q", frames[0])
	}
	if !strings.Contains(frames[1], "event: directory.changed") || !strings.Contains(frames[1], `"size":1`) {
		t.Errorf("frame 1 = %q", frames[1])
	}
	if !strings.Contains(frames[2], "event: contact.removed") {
		t.Errorf("frame 2 = %q", frames[2])
	}

	select {
	case msg := <-ch:
		t.Errorf("unexpected extra frame %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishChange_DirectoryKinds(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(contactservice.ChangeSorted, nil, 3)
	b.PublishChange(contactservice.ChangeCleared, nil, 0)

	want := []string{
		"event: directory.sorted\ndata: {\"size\":3}",
		"event: directory.changed\ndata: {\"size\":3}",
		"event: directory.cleared\ndata: {\"size\":0}",
	}
	for _, w := range want {
		if got := recv(t, ch); !strings.Contains(got, w) {
			t.Errorf("got %q, want %q", got, w)
		}
	}
}

func TestPublishChange_UnknownKindDropped(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange("renamed", nil, 1)
	b.PublishChange(contactservice.ChangeCleared, nil, 0)

	if got := recv(t, ch); !strings.Contains(got, "event: directory.cleared") {
		t.Errorf("first frame = %q, want directory.cleared", got)
	}
}

func TestServeHTTP_StreamsAndCleansUp(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.PublishChange(contactservice.ChangeSorted, nil, 2)
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if body := w.Body.String(); !strings.Contains(body, "event: directory.sorted") {
		t.Errorf("body missing event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if n := b.ClientCount(); n != 0 {
		t.Errorf("clients after disconnect = %d, want 0", n)
	}
}

func TestServeHTTP_Heartbeat(t *testing.T) {
	b := NewBroker(time.Hour)
	b.heartbeat = 10 * time.Millisecond
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	b.ServeHTTP(w, req)

	if body := w.Body.String(); !strings.Contains(body, ": ping\n\n") {
		t.Errorf("no heartbeat in %q", body)
	}
}

func TestServeHTTP_EndsOnClose(t *testing.T) {
	b := NewBroker(time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	for b.ClientCount() != 1 {
		time.Sleep(5 * time.Millisecond)
	}

	b.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not end after Close")
	}
}

func TestPublish_FullBufferDoesNotBlock(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for range subscriberBuffer + 10 {
		b.Publish(Event{Type: "directory.sorted", Data: sizeData{Size: 1}})
	}
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}
}

func TestClose_ClosesSubscribers(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("subscriber channel still open")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients after close = %d, want 0", n)
	}

	// No-ops once closed.
	b.Publish(Event{Type: "directory.sorted", Data: sizeData{}})
	b.PublishChange(contactservice.ChangeCleared, nil, 0)
	b.Close()
	if got := b.Subscribe(); got != nil {
		if _, ok := <-got; ok {
			t.Error("Subscribe after Close returned an open channel")
		}
	}
}
