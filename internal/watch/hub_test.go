package watch

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/freeeve/cellwar/internal/metrics"
)

func newTestConn(spectator string, buf int) *Conn {
	return &Conn{
		conn:      nil, // no real connection for hub tests
		spectator: spectator,
		send:      make(chan []byte, buf),
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub(nil)
	c := newTestConn("alice", 8)

	hub.Register(c)
	if hub.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", hub.ConnectionCount())
	}

	hub.Unregister(c)
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
	// A second unregister must not close the channel again.
	hub.Unregister(c)
}

func TestHubSubscribeUnsubscribe(t *testing.T) {
	hub := NewHub(nil)
	c := newTestConn("alice", 8)
	hub.Register(c)
	defer hub.Unregister(c)

	hub.Subscribe(c, "m1")
	if hub.MatchSubscriberCount("m1") != 1 {
		t.Errorf("expected 1 subscriber, got %d", hub.MatchSubscriberCount("m1"))
	}

	hub.Unsubscribe(c, "m1")
	if hub.MatchSubscriberCount("m1") != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.MatchSubscriberCount("m1"))
	}
}

func TestHubSubscribeRequiresRegistration(t *testing.T) {
	hub := NewHub(nil)
	c := newTestConn("alice", 8)
	hub.Subscribe(c, "m1")
	if hub.MatchSubscriberCount("m1") != 0 {
		t.Errorf("expected unregistered connection to be ignored")
	}
}

func TestHubPublish(t *testing.T) {
	hub := NewHub(nil)
	c1 := newTestConn("alice", 8)
	c2 := newTestConn("bob", 8)
	c3 := newTestConn("carol", 8) // not subscribed

	for _, c := range []*Conn{c1, c2, c3} {
		hub.Register(c)
		defer hub.Unregister(c)
	}
	hub.Subscribe(c1, "m1")
	hub.Subscribe(c2, "m1")

	hub.Publish(Event{Type: EventRound, MatchID: "m1", Data: map[string]int{"round": 3}})

	select {
	case msg := <-c1.send:
		var event Event
		json.Unmarshal(msg, &event)
		if event.Type != EventRound {
			t.Errorf("expected round, got %s", event.Type)
		}
		if event.MatchID != "m1" {
			t.Errorf("expected m1, got %s", event.MatchID)
		}
	case <-time.After(time.Second):
		t.Error("c1 did not receive event")
	}

	select {
	case <-c2.send:
	case <-time.After(time.Second):
		t.Error("c2 did not receive event")
	}

	select {
	case <-c3.send:
		t.Error("c3 should not have received event")
	default:
	}
}

func TestHubPublishDropsWhenFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	mc, err := metrics.New(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	hub := NewHub(mc)
	c := newTestConn("slow", 1)
	hub.Register(c)
	defer hub.Unregister(c)
	hub.Subscribe(c, "m1")

	hub.Publish(Event{Type: EventRound, MatchID: "m1"})
	hub.Publish(Event{Type: EventRound, MatchID: "m1"})

	if len(c.send) != 1 {
		t.Errorf("expected 1 queued event, got %d", len(c.send))
	}
	if got := testutil.ToFloat64(mc.Dropped.WithLabelValues("watch")); got != 1 {
		t.Errorf("expected 1 dropped event, got %v", got)
	}
}

func TestHubUnregisterCleansUpSubscriptions(t *testing.T) {
	hub := NewHub(nil)
	c := newTestConn("alice", 8)
	hub.Register(c)
	hub.Subscribe(c, "m1")
	hub.Subscribe(c, "m2")

	hub.Unregister(c)

	if hub.MatchSubscriberCount("m1") != 0 {
		t.Errorf("expected 0 subscribers for m1 after unregister")
	}
	if hub.MatchSubscriberCount("m2") != 0 {
		t.Errorf("expected 0 subscribers for m2 after unregister")
	}
}

func TestHubCloseAll(t *testing.T) {
	hub := NewHub(nil)
	c1 := newTestConn("alice", 8)
	c2 := newTestConn("bob", 8)
	hub.Register(c1)
	hub.Register(c2)

	hub.CloseAll()

	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
	if _, ok := <-c1.send; ok {
		t.Error("expected c1 send queue closed")
	}
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub(nil)
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newTestConn("spectator", 8)
			hub.Register(c)
			hub.Subscribe(c, "m1")
			hub.Publish(Event{Type: EventRound, MatchID: "m1"})
			hub.Unsubscribe(c, "m1")
			hub.Unregister(c)
		}()
	}

	wg.Wait()
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections after concurrent test, got %d", hub.ConnectionCount())
	}
}
