package arlo

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// BaseStation owns one event stream and the publish/correlate engine built
// on it, and exposes the typed queries and mutations layered on top. Each
// instance is meant to serve one caller at a time; instances are independent
// of each other.
type BaseStation struct {
	device

	stream *eventStream
	cfg    EventConfig

	// engineMu serializes publish/correlate calls on this base station,
	// since events are matched by resource name alone.
	engineMu sync.Mutex

	mu           sync.Mutex
	modeCatalog  map[string]string
	cameraProps  []CameraState
	stationProps map[string]interface{}
	ambient      map[string][]AmbientReading
	lastRefresh  time.Time
}

func newBaseStation(name string, attrs DeviceAttributes, session *Client) *BaseStation {
	b := &BaseStation{
		stream:  newEventStream(session.transport),
		cfg:     DefaultEventConfig(),
		ambient: make(map[string][]AmbientReading),
	}
	b.device.init(name, attrs, session)
	return b
}

// SetEventConfig overrides the poll cadence and refresh window.
func (b *BaseStation) SetEventConfig(cfg EventConfig) {
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = defaultPollAttempts
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	b.cfg = cfg
}

// Subscribe opens a long-lived push subscription for callers that issue many
// queries in a row. Callers owning the subscription must Unsubscribe.
func (b *BaseStation) Subscribe() {
	b.openEventStream()
}

// Unsubscribe tears down a subscription opened with Subscribe.
func (b *BaseStation) Unsubscribe() {
	b.closeEventStream()
}

// modeEntry is one row of the modes catalog resource.
type modeEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (m modeEntry) label() string {
	if m.Type != "" {
		return m.Type
	}
	return m.Name
}

type modesProperties struct {
	Active string      `json:"active"`
	Modes  []modeEntry `json:"modes"`
}

type scheduleProperties struct {
	Active bool `json:"active"`
}

// availableModeIDs returns the mode catalog (display name to vendor mode
// id). The catalog always contains the built-in schedule entry; dynamic
// entries come from a one-time modes fetch and are cached for the lifetime
// of the object.
func (b *BaseStation) availableModeIDs() map[string]string {
	b.mu.Lock()
	cached := b.modeCatalog
	b.mu.Unlock()
	if cached != nil {
		return cached
	}

	catalog := map[string]string{ModeSchedule: ModeSchedule}

	event, err := b.PublishAndGetEvent("modes")
	if err != nil {
		// Leave only the built-in entry and do not cache, so a later call
		// can still discover the dynamic modes.
		log.WithError(err).Debug("modes catalog fetch produced no event")
		return catalog
	}

	props := modesProperties{}
	if err := event.DecodeProperties(&props); err != nil {
		log.WithError(err).Warn("undecodable modes catalog")
		return catalog
	}
	for _, mode := range props.Modes {
		if mode.label() != "" {
			catalog[mode.label()] = mode.ID
		}
	}

	b.mu.Lock()
	b.modeCatalog = catalog
	b.mu.Unlock()
	return catalog
}

// AvailableModes returns the known mode names, including built-ins.
func (b *BaseStation) AvailableModes() []string {
	catalog := b.availableModeIDs()
	modes := make([]string, 0, len(catalog))
	for name := range catalog {
		modes = append(modes, name)
	}
	return modes
}

// Mode returns the current operating mode name. An active schedule takes
// precedence over the numeric mode id. Returns ErrEventNotAvailable when no
// event was observed in time.
func (b *BaseStation) Mode() (string, error) {
	if event, err := b.PublishAndGetEvent("schedule"); err == nil {
		schedule := scheduleProperties{}
		if err := event.DecodeProperties(&schedule); err == nil && schedule.Active {
			return ModeSchedule, nil
		}
	}

	event, err := b.PublishAndGetEvent("modes")
	if err != nil {
		return "", err
	}

	props := modesProperties{}
	if err := event.DecodeProperties(&props); err != nil {
		return "", err
	}
	for _, mode := range props.Modes {
		if mode.ID == props.Active {
			return mode.label(), nil
		}
	}
	return "", ErrEventNotAvailable
}

// SetMode switches the base station to the named mode. Unknown mode names
// are ignored without issuing any request; this deliberately mirrors the
// vendor library's fail-soft contract on external-facing setters.
func (b *BaseStation) SetMode(name string) error {
	if name == ModeSchedule {
		payload := b.newPayload("set", "schedule", map[string]string{"active": "true"}, true)
		if err := b.Notify(payload); err != nil {
			return err
		}
		return b.Update()
	}

	modeID, ok := b.availableModeIDs()[name]
	if !ok {
		log.WithField("mode", name).Warn("ignoring unknown mode")
		return nil
	}

	payload := b.newPayload("set", "modes", map[string]string{"active": modeID}, true)
	if err := b.Notify(payload); err != nil {
		return err
	}
	return b.Update()
}

// IsMotionDetectionEnabled reports whether motion-triggered recording is on,
// i.e. the station is armed.
func (b *BaseStation) IsMotionDetectionEnabled() bool {
	mode, err := b.Mode()
	return err == nil && mode == "armed"
}

// CameraState is the live state of one camera as reported by the cameras
// resource.
type CameraState struct {
	SerialNumber    string `json:"serialNumber"`
	BatteryLevel    int    `json:"batteryLevel"`
	SignalStrength  int    `json:"signalStrength"`
	PrivacyActive   bool   `json:"privacyActive"`
	ConnectionState string `json:"connectionState"`
	ChargingState   string `json:"chargingState"`
	HWVersion       string `json:"hwVersion"`
}

func (b *BaseStation) fetchCameraProperties() error {
	event, err := b.PublishAndGetEvent("cameras")
	if err != nil {
		return err
	}

	var states []CameraState
	if err := event.DecodeProperties(&states); err != nil {
		return err
	}

	b.mu.Lock()
	b.cameraProps = states
	b.mu.Unlock()
	return nil
}

// CameraProperties returns the cached live state of all cameras behind this
// base station, fetching it on first access.
func (b *BaseStation) CameraProperties() ([]CameraState, error) {
	b.mu.Lock()
	cached := b.cameraProps
	b.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	if err := b.fetchCameraProperties(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cameraProps, nil
}

// cameraState returns the cached state for the camera with the given serial
// number.
func (b *BaseStation) cameraState(serialNumber string) (CameraState, error) {
	states, err := b.CameraProperties()
	if err != nil {
		return CameraState{}, err
	}
	for _, state := range states {
		if state.SerialNumber == serialNumber {
			return state, nil
		}
	}
	return CameraState{}, ErrEventNotAvailable
}

// BatteryLevels returns the battery level of every camera keyed by serial
// number.
func (b *BaseStation) BatteryLevels() (map[string]int, error) {
	states, err := b.CameraProperties()
	if err != nil {
		return nil, err
	}
	levels := make(map[string]int, len(states))
	for _, state := range states {
		levels[state.SerialNumber] = state.BatteryLevel
	}
	return levels, nil
}

// SignalStrengths returns the signal strength of every camera keyed by
// serial number.
func (b *BaseStation) SignalStrengths() (map[string]int, error) {
	states, err := b.CameraProperties()
	if err != nil {
		return nil, err
	}
	strengths := make(map[string]int, len(states))
	for _, state := range states {
		strengths[state.SerialNumber] = state.SignalStrength
	}
	return strengths, nil
}

// Properties returns the base station's own extended properties, cached
// until Update.
func (b *BaseStation) Properties() (map[string]interface{}, error) {
	b.mu.Lock()
	cached := b.stationProps
	b.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	event, err := b.PublishAndGetEvent("basestation")
	if err != nil {
		return nil, err
	}
	props := map[string]interface{}{}
	if err := event.DecodeProperties(&props); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.stationProps = props
	b.mu.Unlock()
	return props, nil
}

// Rules returns the motion rules configured on the cameras.
func (b *BaseStation) Rules() (map[string]interface{}, error) {
	return b.publishForMap("rules")
}

// Schedule returns the mode schedule configured on the base station.
func (b *BaseStation) Schedule() (map[string]interface{}, error) {
	return b.publishForMap("schedule")
}

// AudioPlaybackStatus returns the state of the audio playback player.
func (b *BaseStation) AudioPlaybackStatus() (map[string]interface{}, error) {
	return b.publishForMap("audioPlayback")
}

func (b *BaseStation) publishForMap(resource string) (map[string]interface{}, error) {
	event, err := b.PublishAndGetEvent(resource)
	if err != nil {
		return nil, err
	}
	props := map[string]interface{}{}
	if err := event.DecodeProperties(&props); err != nil {
		return nil, err
	}
	return props, nil
}

// AmbientSensorHistory returns the decoded ambient sensor history for the
// given camera, cached until Update.
func (b *BaseStation) AmbientSensorHistory(cameraID string) ([]AmbientReading, error) {
	b.mu.Lock()
	cached, ok := b.ambient[cameraID]
	b.mu.Unlock()
	if ok {
		return cached, nil
	}

	resource := fmt.Sprintf("cameras/%s/ambientSensors/history", cameraID)
	event, err := b.PublishAndGetEvent(resource)
	if err != nil {
		return nil, err
	}

	readings, err := decodeSensorHistory(event)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.ambient[cameraID] = readings
	b.mu.Unlock()
	return readings, nil
}

// PlayTrack starts audio playback of the given track at a position in
// seconds. Fire and forget.
func (b *BaseStation) PlayTrack(trackID string, position int) error {
	properties := map[string]interface{}{"trackId": trackID, "position": position}
	return b.Notify(b.newPayload("playTrack", "audioPlayback/player", properties, false))
}

// PauseTrack pauses audio playback.
func (b *BaseStation) PauseTrack() error {
	return b.Notify(b.newPayload("pause", "audioPlayback/player", nil, false))
}

// SkipTrack skips to the next track.
func (b *BaseStation) SkipTrack() error {
	return b.Notify(b.newPayload("nextTrack", "audioPlayback/player", nil, false))
}

// SetCameraEnabled enables or disables a camera. The wire encoding is the
// privacy flag, which is the inverse of enabled.
func (b *BaseStation) SetCameraEnabled(cameraID string, enabled bool) error {
	resource := fmt.Sprintf("cameras/%s", cameraID)
	properties := map[string]bool{"privacyActive": !enabled}

	if err := b.Notify(b.newPayload("set", resource, properties, true)); err != nil {
		return err
	}

	b.mu.Lock()
	b.cameraProps = nil
	b.mu.Unlock()
	return nil
}

// Update refreshes the attribute snapshot and the cached camera properties.
// Calls inside the refresh window are no-ops so that bursts of reads do not
// trigger needless event round-trips. A failed refresh leaves the window open
// and the existing caches intact, so the next call can retry immediately.
func (b *BaseStation) Update() error {
	b.mu.Lock()
	if time.Since(b.lastRefresh) < b.cfg.RefreshInterval {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	if err := b.Refresh(); err != nil {
		return err
	}
	if err := b.fetchCameraProperties(); err != nil {
		return err
	}

	b.mu.Lock()
	b.lastRefresh = time.Now()
	b.stationProps = nil
	b.ambient = make(map[string][]AmbientReading)
	b.mu.Unlock()
	return nil
}
