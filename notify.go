package arlo

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
)

// NotifyPayload is the envelope posted to the per-device notify endpoint.
// A fresh payload is allocated for every request; envelopes are never shared
// or reused across calls.
type NotifyPayload struct {
	Action          string      `json:"action,omitempty"`
	Resource        string      `json:"resource,omitempty"`
	PublishResponse bool        `json:"publishResponse"`
	Properties      interface{} `json:"properties,omitempty"`

	TransID string `json:"transId"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// transID generates a unique transaction id in the vendor web-client format.
// The protocol does not echo it on "is" events, so correlation still runs on
// the resource name; the id exists for server-side request tracing.
func transID() string {
	random := rand.New(rand.NewSource(time.Now().UnixNano()))
	e := random.Float64() * math.Pow(2, 32)
	ms := time.Now().UnixNano() / int64(time.Millisecond)

	return fmt.Sprintf("web!%s!%d", strings.ToLower(floatToHex(e)), ms)
}

// newWeakDecoder builds a mapstructure decoder that tolerates the loose
// typing of Arlo payloads.
func newWeakDecoder(out interface{}) (*mapstructure.Decoder, error) {
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
}

// newPayload builds a notify envelope addressed to this base station.
func (b *BaseStation) newPayload(action, resource string, properties interface{}, publishResponse bool) *NotifyPayload {
	return &NotifyPayload{
		Action:          action,
		Resource:        resource,
		Properties:      properties,
		PublishResponse: publishResponse,
		TransID:         transID(),
		From:            fmt.Sprintf("%s_web", b.UserID()),
		To:              b.DeviceID(),
	}
}

// Notify posts the payload to the notify endpoint with the device's
// cloud-routing id. Success reflects only the HTTP-level acknowledgment, not
// propagation of the resource change.
func (b *BaseStation) Notify(payload *NotifyPayload) error {
	path := fmt.Sprintf(notifyEndpoint, b.DeviceID())
	headers := map[string]string{"xCloudId": b.XCloudID()}

	return b.session.transport.Post(path, payload, nil, headers)
}

// subscribeSelf registers this session for push notifications from the
// device. Fire and forget; a failure only delays events until the next call.
func (b *BaseStation) subscribeSelf() {
	resource := fmt.Sprintf("subscriptions/%s_web", b.UserID())
	properties := map[string][]string{"devices": {b.DeviceID()}}

	payload := b.newPayload("set", resource, properties, false)
	if err := b.Notify(payload); err != nil {
		log.WithError(err).Warn("event subscription registration failed")
	}
}

// unsubscribeSelf deregisters this session from push notifications.
func (b *BaseStation) unsubscribeSelf() {
	if err := b.session.transport.Get(unsubscribeEndpoint, nil); err != nil {
		log.WithError(err).Debug("unsubscribe request failed")
	}
}

// openEventStream starts the push stream and registers the subscription.
func (b *BaseStation) openEventStream() {
	b.stream.start(b.session.token)
	b.subscribeSelf()
}

// closeEventStream deregisters the subscription and stops the stream,
// clearing the inbox.
func (b *BaseStation) closeEventStream() {
	b.unsubscribeSelf()
	b.stream.stop()
}

// PublishAndGetEvent publishes a get request for resource and blocks until a
// matching event arrives on the push stream or the poll budget is exhausted.
//
// The resource name is the only correlation key, so calls on one base
// station are serialized; a timeout is a normal outcome reported as
// ErrEventNotAvailable. If this call had to open the subscription it always
// tears it down again before returning, leaving no background reader and an
// empty inbox.
func (b *BaseStation) PublishAndGetEvent(resource string) (*Event, error) {
	b.engineMu.Lock()
	defer b.engineMu.Unlock()

	opened := false
	if !b.stream.isSubscribed() {
		b.openEventStream()
		opened = true
	}
	if opened {
		defer b.closeEventStream()
	}

	payload := b.newPayload("get", resource, nil, false)
	if err := b.Notify(payload); err != nil {
		log.WithError(err).WithField("resource", resource).Debug("publish not acknowledged")
		return nil, ErrEventNotAvailable
	}

	for attempt := 0; attempt < b.cfg.PollAttempts; attempt++ {
		b.stream.wait(b.cfg.PollTimeout)
		if event, ok := b.stream.takeMatching(resource); ok {
			return event, nil
		}
	}
	return nil, ErrEventNotAvailable
}

// EventConfig controls the publish/correlate poll cadence and the minimum
// interval between cached-property refreshes.
type EventConfig struct {
	PollAttempts    int
	PollTimeout     time.Duration
	RefreshInterval time.Duration
}

// DefaultEventConfig returns the stock cadence: two poll attempts of five
// seconds each and a fifteen second refresh window.
func DefaultEventConfig() EventConfig {
	return EventConfig{
		PollAttempts:    defaultPollAttempts,
		PollTimeout:     defaultPollTimeout,
		RefreshInterval: defaultRefreshInterval,
	}
}
