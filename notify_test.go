package arlo

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPublishAndGetEventRoundTrip(t *testing.T) {
	f := newFakeArlo(t)
	_, bs := newTestClient(t, f)

	event, err := bs.PublishAndGetEvent("modes")
	if err != nil {
		t.Fatalf("publish and get event: %v", err)
	}
	if event.Resource != "modes" {
		t.Errorf("expected a modes event, got %q", event.Resource)
	}

	// The matched entry must be claimed from the inbox, and since this call
	// opened the subscription itself it must also have torn it down.
	if bs.stream.pending() != 0 {
		t.Errorf("expected empty inbox, got %d entries", bs.stream.pending())
	}
	if bs.stream.isSubscribed() {
		t.Error("expected the stream to be stopped after the exchange")
	}

	f.mu.Lock()
	unsubscribes := f.unsubscribes
	f.mu.Unlock()
	if unsubscribes != 1 {
		t.Errorf("expected exactly one unsubscribe call, got %d", unsubscribes)
	}
}

func TestPublishAndGetEventEnvelope(t *testing.T) {
	f := newFakeArlo(t)
	_, bs := newTestClient(t, f)

	if _, err := bs.PublishAndGetEvent("basestation"); err != nil {
		t.Fatalf("publish and get event: %v", err)
	}

	gets := f.notifiesFor("get", "basestation")
	if len(gets) != 1 {
		t.Fatalf("expected one get publish, got %d", len(gets))
	}
	payload := gets[0]
	if payload.From != "USER1_web" {
		t.Errorf("unexpected from %q", payload.From)
	}
	if payload.To != "BASE1" {
		t.Errorf("unexpected to %q", payload.To)
	}
	if payload.PublishResponse {
		t.Error("get publishes must not request confirmation")
	}
	if !strings.HasPrefix(payload.TransID, "web!") {
		t.Errorf("unexpected transId %q", payload.TransID)
	}

	// The subscription registration must target the session's own channel.
	subs := f.notifiesFor("set", "subscriptions/USER1_web")
	if len(subs) != 1 {
		t.Fatalf("expected one subscription registration, got %d", len(subs))
	}
}

func TestTransIDsAreUnique(t *testing.T) {
	f := newFakeArlo(t)
	_, bs := newTestClient(t, f)

	if _, err := bs.PublishAndGetEvent("modes"); err != nil {
		t.Fatalf("first exchange: %v", err)
	}
	if _, err := bs.PublishAndGetEvent("modes"); err != nil {
		t.Fatalf("second exchange: %v", err)
	}

	gets := f.notifiesFor("get", "modes")
	if len(gets) != 2 {
		t.Fatalf("expected two get publishes, got %d", len(gets))
	}
	if gets[0].TransID == gets[1].TransID {
		t.Errorf("transaction ids must be unique per publish, got %q twice", gets[0].TransID)
	}
}

func TestPublishFailureReturnsWithoutWaiting(t *testing.T) {
	f := newFakeArlo(t)
	_, bs := newTestClient(t, f)

	f.mu.Lock()
	f.failNotifyAck = true
	f.mu.Unlock()

	start := time.Now()
	_, err := bs.PublishAndGetEvent("modes")
	elapsed := time.Since(start)

	if !errors.Is(err, ErrEventNotAvailable) {
		t.Fatalf("expected ErrEventNotAvailable, got %v", err)
	}
	// A failed acknowledgment must skip the poll loop entirely (the
	// configured budget is 2x2s).
	if elapsed > time.Second {
		t.Errorf("call took %v; it must not wait on the signal", elapsed)
	}
	if bs.stream.isSubscribed() {
		t.Error("expected the stream to be torn down on the failure path too")
	}
}

func TestPublishAndGetEventTimeout(t *testing.T) {
	f := newFakeArlo(t)
	_, bs := newTestClient(t, f)
	bs.SetEventConfig(EventConfig{
		PollAttempts:    2,
		PollTimeout:     50 * time.Millisecond,
		RefreshInterval: 300 * time.Millisecond,
	})

	f.mu.Lock()
	f.silentResources = map[string]bool{"rules": true}
	f.mu.Unlock()

	start := time.Now()
	_, err := bs.PublishAndGetEvent("rules")
	elapsed := time.Since(start)

	if !errors.Is(err, ErrEventNotAvailable) {
		t.Fatalf("expected ErrEventNotAvailable, got %v", err)
	}
	// Two poll attempts of 50ms each.
	if elapsed < 100*time.Millisecond {
		t.Errorf("poll budget not honoured, returned after %v", elapsed)
	}
	if bs.stream.isSubscribed() || bs.stream.pending() != 0 {
		t.Error("expected stream stopped and inbox empty after a timeout")
	}
}

func TestPublishAndGetEventKeepsCallerOwnedSubscription(t *testing.T) {
	f := newFakeArlo(t)
	_, bs := newTestClient(t, f)

	bs.Subscribe()
	defer bs.Unsubscribe()

	if _, err := bs.PublishAndGetEvent("modes"); err != nil {
		t.Fatalf("publish and get event: %v", err)
	}
	if !bs.stream.isSubscribed() {
		t.Error("engine must not tear down a subscription it did not open")
	}

	f.mu.Lock()
	unsubscribes := f.unsubscribes
	f.mu.Unlock()
	if unsubscribes != 0 {
		t.Errorf("expected no unsubscribe yet, got %d", unsubscribes)
	}
}
