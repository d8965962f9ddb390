package arlo

import (
	"fmt"
)

// Camera is a thin view over one camera device. Attribute reads come from
// the discovery snapshot; live state is delegated to the owning base
// station's cached camera properties.
type Camera struct {
	device

	baseStation *BaseStation
}

func newCamera(name string, attrs DeviceAttributes, session *Client) *Camera {
	c := &Camera{}
	c.device.init(name, attrs, session)
	return c
}

// BaseStation returns the base station this camera reports through, or nil
// for standalone cameras.
func (c *Camera) BaseStation() *BaseStation {
	return c.baseStation
}

// ParentID returns the device id of the owning base station.
func (c *Camera) ParentID() string {
	return c.attrs.Load().ParentID
}

// SnapshotURL returns the presigned URL of the last camera snapshot.
func (c *Camera) SnapshotURL() string {
	return c.attrs.Load().PresignedLastImageURL
}

// DownloadSnapshot fetches the last snapshot image.
func (c *Camera) DownloadSnapshot() ([]byte, error) {
	return c.session.transport.Download(c.SnapshotURL())
}

// liveState pulls this camera's row from the base station's cached camera
// properties.
func (c *Camera) liveState() (CameraState, error) {
	if c.baseStation == nil {
		return CameraState{}, ErrNoBasestationFound
	}
	return c.baseStation.cameraState(c.SerialNumber())
}

// BatteryLevel returns the camera battery percentage.
func (c *Camera) BatteryLevel() (int, error) {
	state, err := c.liveState()
	if err != nil {
		return 0, err
	}
	return state.BatteryLevel, nil
}

// SignalStrength returns the camera signal strength.
func (c *Camera) SignalStrength() (int, error) {
	state, err := c.liveState()
	if err != nil {
		return 0, err
	}
	return state.SignalStrength, nil
}

// IsEnabled reports whether the camera is recording-capable, i.e. privacy
// mode is off.
func (c *Camera) IsEnabled() (bool, error) {
	state, err := c.liveState()
	if err != nil {
		return false, err
	}
	return !state.PrivacyActive, nil
}

// SetEnabled toggles the camera on or off through the owning base station.
func (c *Camera) SetEnabled(enabled bool) error {
	if c.baseStation == nil {
		return ErrNoBasestationFound
	}
	return c.baseStation.SetCameraEnabled(c.DeviceID(), enabled)
}

type streamData struct {
	URL string `json:"url"`
}

// LiveStreaming asks the cloud to start a user stream for this camera and
// returns the stream URL.
func (c *Camera) LiveStreaming() (string, error) {
	payload := &NotifyPayload{
		Action:          "set",
		Resource:        fmt.Sprintf("cameras/%s", c.DeviceID()),
		PublishResponse: true,
		Properties: map[string]string{
			"activityState": "startUserStream",
			"cameraId":      c.DeviceID(),
		},
		TransID: transID(),
		From:    fmt.Sprintf("%s_web", c.UserID()),
		To:      c.ParentID(),
	}

	data := streamData{}
	headers := map[string]string{"xCloudId": c.XCloudID()}
	if err := c.session.transport.Post(streamEndpoint, payload, &data, headers); err != nil {
		return "", err
	}
	return data.URL, nil
}

// Videos returns this camera's recordings from the last given days.
func (c *Camera) Videos(days int) ([]*Video, error) {
	return c.session.MediaLibrary.Load(LoadOptions{Days: days, OnlyCameras: []*Camera{c}})
}

// LastVideo returns the most recent recording, or ErrEventNotAvailable when
// there is none.
func (c *Camera) LastVideo() (*Video, error) {
	videos, err := c.Videos(PreloadDays)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, ErrEventNotAvailable
	}
	return videos[0], nil
}

// UnseenVideos returns the number of not-yet-viewed recordings reported by
// the discovery snapshot.
func (c *Camera) UnseenVideos() int {
	// Media counters ride along in the raw listing; a zero value simply
	// means the listing did not include them.
	return int(c.attrs.Load().MediaObjectCount)
}
