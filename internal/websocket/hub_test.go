package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/wavecanvas/api/internal/model"
)

func recvMessage(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case data, ok := <-ch:
		if !ok {
			t.Fatal("send channel closed unexpectedly")
		}
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func TestHub_BroadcastReachesJobSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := &Client{JobID: "job-1", Send: make(chan []byte, 8)}
	b := &Client{JobID: "job-1", Send: make(chan []byte, 8)}
	other := &Client{JobID: "job-2", Send: make(chan []byte, 8)}
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)

	hub.BroadcastProgress("job-1", 30, model.StatusRendering, "Rendering video...")

	for _, c := range []*Client{a, b} {
		var msg model.WSProgressMessage
		if err := json.Unmarshal(recvMessage(t, c.Send), &msg); err != nil {
			t.Fatal(err)
		}
		if msg.Type != model.WSMessageTypeProgress || msg.Progress != 30 || msg.Status != model.StatusRendering {
			t.Errorf("unexpected message: %+v", msg)
		}
	}

	select {
	case data := <-other.Send:
		t.Errorf("subscriber of another job received %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_DropsSlowConsumerAndKeepsServing(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Unbuffered and never read: the broadcast must drop this client by
	// closing its send channel. No receive happens until after the event
	// has been processed, so the hub's send attempt cannot be satisfied.
	slow := &Client{JobID: "job-1", Send: make(chan []byte)}
	hub.Register(slow)

	hub.BroadcastProgress("job-1", 10, model.StatusAnalyzing, "Analyzing audio...")
	time.Sleep(100 * time.Millisecond)

	select {
	case _, ok := <-slow.Send:
		if ok {
			t.Fatal("slow consumer received a message it could not have buffered")
		}
	case <-time.After(time.Second):
		t.Fatal("slow consumer send channel was not closed")
	}

	// The hub must keep delivering to remaining subscribers afterwards.
	fast := &Client{JobID: "job-1", Send: make(chan []byte, 8)}
	hub.Register(fast)
	hub.BroadcastError("job-1", "ExternalServiceFailure", "composition blew up")

	var msg model.WSErrorMessage
	if err := json.Unmarshal(recvMessage(t, fast.Send), &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Error.Code != "ExternalServiceFailure" {
		t.Errorf("error code = %q", msg.Error.Code)
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := &Client{JobID: "job-1", Send: make(chan []byte, 8)}
	hub.Register(c)
	hub.Unregister(c)

	select {
	case _, ok := <-c.Send:
		if ok {
			t.Fatal("expected closed channel, got message")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed on unregister")
	}
}
