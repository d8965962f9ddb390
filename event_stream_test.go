package arlo

import (
	"testing"
	"time"
)

func newIdleStream() *eventStream {
	s := newEventStream(NewTransport("http://unused.invalid"))
	s.subscribed = true
	return s
}

func TestHandleFrameDepositsStateUpdates(t *testing.T) {
	s := newIdleStream()

	s.handleFrame(s.gen, []byte(`{"action":"is","resource":"modes","properties":{"active":"mode1"}}`))

	if s.pending() != 1 {
		t.Fatalf("expected 1 inbox entry, got %d", s.pending())
	}
	if !s.wait(time.Millisecond) {
		t.Fatal("expected the wake signal to be set")
	}

	event, ok := s.takeMatching("modes")
	if !ok {
		t.Fatal("expected to claim the deposited event")
	}
	if event.Action != "is" || event.Resource != "modes" {
		t.Errorf("unexpected event %+v", event)
	}
	if s.pending() != 0 {
		t.Error("entry should be removed exactly once")
	}
	if _, ok := s.takeMatching("modes"); ok {
		t.Error("claimed event must not be claimable twice")
	}
}

func TestHandleFrameIgnoresNonUpdates(t *testing.T) {
	s := newIdleStream()

	s.handleFrame(s.gen, []byte(`{"status":"connected"}`))
	s.handleFrame(s.gen, []byte(`{"action":"is","resource":"subscriptions/USER1_web","properties":{}}`))
	s.handleFrame(s.gen, []byte(`{"action":"set","resource":"modes"}`))
	s.handleFrame(s.gen, nil)

	if s.pending() != 0 {
		t.Errorf("expected empty inbox, got %d entries", s.pending())
	}
	if !s.isSubscribed() {
		t.Error("informational frames must not close the stream")
	}
}

func TestHandleFrameLogoutIsTerminal(t *testing.T) {
	s := newIdleStream()

	s.handleFrame(s.gen, []byte(`{"action":"logout"}`))

	if s.isSubscribed() {
		t.Error("logout must clear the subscribed flag")
	}
}

func TestHandleFrameMalformedClosesStream(t *testing.T) {
	s := newIdleStream()

	s.handleFrame(s.gen, []byte(`{not json`))

	if s.isSubscribed() {
		t.Error("a malformed frame must close the stream")
	}
}

func TestStaleReaderFramesAreDropped(t *testing.T) {
	s := newIdleStream()
	stale := s.gen
	s.gen++ // a restart superseded the original reader

	s.handleFrame(stale, []byte(`{"action":"is","resource":"modes","properties":{"active":"mode1"}}`))
	if s.pending() != 0 {
		t.Errorf("a superseded reader must not deposit, got %d entries", s.pending())
	}

	s.handleFrame(stale, []byte(`{"action":"logout"}`))
	if !s.isSubscribed() {
		t.Error("a superseded reader must not close the live stream")
	}
}

func TestRestartAfterStopKeepsSubscription(t *testing.T) {
	f := newFakeArlo(t)
	s := newEventStream(NewTransport(f.server.URL))

	s.start("test-token")
	s.stop()
	s.start("test-token")
	defer s.stop()

	// Give the first reader's exit epilogue time to run; it must not clear
	// the restarted stream's flag or cancel its connection.
	time.Sleep(50 * time.Millisecond)
	if !s.isSubscribed() {
		t.Fatal("restarted stream lost its subscription to the stopped reader")
	}
}

func TestStopClearsInboxAndSignal(t *testing.T) {
	s := newIdleStream()
	s.handleFrame(s.gen, []byte(`{"action":"is","resource":"cameras","properties":[]}`))

	s.stop()
	s.stop() // idempotent

	if s.isSubscribed() {
		t.Error("stop must clear the subscribed flag")
	}
	if s.pending() != 0 {
		t.Error("stop must clear the inbox")
	}
	if s.wait(time.Millisecond) {
		t.Error("stop must drain the wake signal")
	}
}

func TestTakeMatchingClaimsFirstMatchOnly(t *testing.T) {
	s := newIdleStream()
	s.handleFrame(s.gen, []byte(`{"action":"is","resource":"modes","properties":{"active":"mode0"}}`))
	s.handleFrame(s.gen, []byte(`{"action":"is","resource":"cameras","properties":[]}`))
	s.handleFrame(s.gen, []byte(`{"action":"is","resource":"modes","properties":{"active":"mode1"}}`))

	event, ok := s.takeMatching("modes")
	if !ok {
		t.Fatal("expected a match")
	}
	props, _ := event.Properties.(map[string]interface{})
	if props["active"] != "mode0" {
		t.Errorf("expected the first deposited match, got %v", props["active"])
	}
	if s.pending() != 2 {
		t.Errorf("expected 2 remaining entries, got %d", s.pending())
	}
}

func TestWaitTimesOut(t *testing.T) {
	s := newIdleStream()

	start := time.Now()
	if s.wait(20 * time.Millisecond) {
		t.Fatal("expected wait to time out with nothing deposited")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("wait returned before the timeout elapsed")
	}
}
