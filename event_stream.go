package arlo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/r3labs/sse/v2"
	log "github.com/sirupsen/logrus"
	backoff "gopkg.in/cenkalti/backoff.v1"
)

// Event is one push notification delivered over the event stream. The
// resource name is the only correlation key the protocol offers; transIds
// are not echoed on "is" events.
type Event struct {
	Action     string      `json:"action"`
	Resource   string      `json:"resource"`
	From       string      `json:"from"`
	To         string      `json:"to"`
	TransID    string      `json:"transId"`
	Status     string      `json:"status"`
	Properties interface{} `json:"properties"`
}

// DecodeProperties decodes the loosely typed properties payload into out.
// Arlo payloads mix representations freely (booleans as strings, numbers as
// floats), so decoding is weakly typed.
func (e *Event) DecodeProperties(out interface{}) error {
	dec, err := newWeakDecoder(out)
	if err != nil {
		return err
	}
	return dec.Decode(e.Properties)
}

// eventStream maintains one server-push subscription per subscribed period
// and feeds state-update events into the inbox. There is no reconnect logic:
// a dropped stream is reopened by the next publish/correlate call.
type eventStream struct {
	transport *Transport

	mu         sync.Mutex
	inbox      []*Event
	subscribed bool
	cancel     context.CancelFunc

	// gen identifies the current subscription. The background reader exits
	// asynchronously after a cancel, so frames and the exit epilogue of a
	// superseded reader must not touch the live stream's state.
	gen int

	// signal holds at most one pending wake-up for the single foreground
	// waiter the engine allows per base station.
	signal chan struct{}
}

func newEventStream(transport *Transport) *eventStream {
	return &eventStream{
		transport: transport,
		signal:    make(chan struct{}, 1),
	}
}

// start opens the subscription stream on a background goroutine and returns
// immediately. A failure to open is logged and leaves the stream unsubscribed;
// the caller observes it only as a correlation timeout.
func (s *eventStream) start(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribed {
		return
	}

	url := fmt.Sprintf("%s%s?token=%s", s.transport.BaseURL(), subscribeEndpoint, token)

	client := sse.NewClient(url)
	client.Connection = s.transport.HTTPClient()
	client.Headers = s.transport.Headers()
	client.ReconnectStrategy = &backoff.StopBackOff{}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.subscribed = true
	s.gen++
	gen := s.gen

	go func() {
		err := client.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
			s.handleFrame(gen, msg.Data)
		})
		if err != nil && ctx.Err() == nil {
			log.WithError(err).Debug("event stream closed")
		}
		s.mu.Lock()
		if s.gen == gen {
			s.subscribed = false
		}
		s.mu.Unlock()
	}()
}

// handleFrame parses one pushed frame for the reader of generation gen.
// Malformed frames close the stream; that surfaces to callers as an ordinary
// correlation timeout.
func (s *eventStream) handleFrame(gen int, data []byte) {
	if len(data) == 0 {
		return
	}

	event := &Event{}
	if err := json.Unmarshal(data, event); err != nil {
		log.WithError(err).Debug("dropping event stream on malformed frame")
		s.close(gen)
		return
	}

	switch {
	case event.Status == "connected":
		log.Debug("event stream subscribed")
	case event.Action == "logout":
		// The remote session was closed by another client.
		log.Debug("event stream logged out remotely")
		s.close(gen)
	case event.Action == "is" && !strings.HasPrefix(event.Resource, "subscriptions/"):
		s.deposit(gen, event)
	}
}

func (s *eventStream) deposit(gen int, event *Event) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.inbox = append(s.inbox, event)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// close tears the stream down from inside the read loop of generation gen.
// A superseded reader must not cancel its successor.
func (s *eventStream) close(gen int) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.subscribed = false
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// stop closes the stream, clears the inbox and drains the wake signal. It is
// idempotent; entries never persist across a subscribe/unsubscribe cycle.
func (s *eventStream) stop() {
	s.mu.Lock()
	s.subscribed = false
	s.inbox = nil
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	select {
	case <-s.signal:
	default:
	}
}

// isSubscribed reports whether the push subscription is currently open.
func (s *eventStream) isSubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed
}

// wait blocks until an event has been deposited or the timeout elapses.
// Receiving consumes the pending wake-up.
func (s *eventStream) wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.signal:
		return true
	case <-timer.C:
		return false
	}
}

// takeMatching removes and returns the first inbox entry for resource.
// Entries are claimed exactly once, by the first matcher.
func (s *eventStream) takeMatching(resource string) (*Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, event := range s.inbox {
		if event.Resource == resource {
			s.inbox = append(s.inbox[:i], s.inbox[i+1:]...)
			return event, true
		}
	}
	return nil, false
}

// pending returns the number of unclaimed inbox entries.
func (s *eventStream) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inbox)
}
