// Package arlo is a client library for the Arlo cloud camera API. It models
// the account as a tree of objects (session, base stations, cameras, media
// library) whose state lives on the remote service, reached through an
// authenticated HTTP transport and a server-push event stream.
package arlo

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Errors
var (
	ErrRequestFailedStatusNotOK = errors.New("request failed")
	ErrRequestUnsuccessful      = errors.New("request unsuccessful")
	ErrRequestUnauthorized      = errors.New("401 unauthorized")
	ErrNotLoggedIn              = errors.New("not logged in yet")
	ErrNoBasestationFound       = errors.New("no basestation found")
	ErrNoCamerasFound           = errors.New("no cameras found")
	ErrCameraNotFound           = errors.New("camera not found")
	ErrDeviceNotFound           = errors.New("device not found")

	// ErrEventNotAvailable reports that no matching event was observed
	// within the poll budget. It is a normal outcome, not a failure:
	// callers should treat it as "state unknown".
	ErrEventNotAvailable = errors.New("no event data available")
)

// Client represents an authenticated session with the Arlo account. It owns
// the shared transport and the device registry.
type Client struct {
	Username string
	Password string

	UserID      string
	CountryCode string
	DateCreated int64

	authenticated bool
	token         string
	transport     *Transport

	baseStations []*BaseStation
	cameras      []*Camera

	// MediaLibrary queries the account's recorded videos.
	MediaLibrary *MediaLibrary
}

// NewClient returns an Arlo client for the given credentials, bound to the
// production API. Call Login before anything else.
func NewClient(username, password string) *Client {
	return NewClientWithBaseURL(username, password, BaseURL)
}

// NewClientWithBaseURL returns a client bound to a non-standard API root.
func NewClientWithBaseURL(username, password, baseURL string) *Client {
	c := &Client{
		Username:  username,
		Password:  password,
		transport: NewTransport(baseURL),
	}
	c.MediaLibrary = newMediaLibrary(c)
	return c
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginData struct {
	Authenticated int64  `json:"authenticated"`
	CountryCode   string `json:"countryCode"`
	DateCreated   int64  `json:"dateCreated"`
	Token         string `json:"token"`
	UserID        string `json:"userId"`
}

// Login authenticates the session and installs the access token on the
// transport.
func (c *Client) Login() error {
	data := loginData{}
	err := c.transport.Post(loginEndpoint, loginRequest{c.Username, c.Password}, &data, nil)
	if err != nil {
		return err
	}

	c.authenticated = data.Authenticated != 0
	c.CountryCode = data.CountryCode
	c.DateCreated = data.DateCreated
	c.UserID = data.UserID
	c.token = data.Token
	c.transport.SetToken(data.Token)

	log.WithField("userId", c.UserID).Debug("session authenticated")
	return nil
}

// Logout ends the remote session and clears local credentials.
func (c *Client) Logout() error {
	err := c.transport.Put(logoutEndpoint, nil, nil)

	c.authenticated = false
	c.token = ""
	c.UserID = ""
	c.transport.SetToken("")

	return err
}

// IsConnected reports whether the session has authenticated.
func (c *Client) IsConnected() bool {
	return c.authenticated
}

// Update re-authenticates the session, refreshing the access token.
func (c *Client) Update() error {
	return c.Login()
}

func (c *Client) hasLoggedIn() bool {
	return c.token != ""
}

// GetDevices queries the device listing and rebuilds the entity registry.
// Only provisioned base stations and recognised camera types are
// materialized; cameras are linked to their parent base station.
func (c *Client) GetDevices() error {
	if !c.hasLoggedIn() {
		return ErrNotLoggedIn
	}

	var rows []DeviceAttributes
	if err := c.transport.Get(devicesEndpoint, &rows); err != nil {
		return err
	}

	baseStations := []*BaseStation{}
	cameras := []*Camera{}

	for _, row := range rows {
		if row.State != deviceStateProvisioned {
			continue
		}
		if row.IsBasestation() {
			baseStations = append(baseStations, newBaseStation(row.DeviceName, row, c))
		}
	}
	for _, row := range rows {
		if row.State != deviceStateProvisioned || !row.IsCamera() {
			continue
		}
		camera := newCamera(row.DeviceName, row, c)
		for _, base := range baseStations {
			if base.DeviceID() == row.ParentID || base.DeviceID() == row.DeviceID {
				camera.baseStation = base
				break
			}
		}
		cameras = append(cameras, camera)
	}

	c.baseStations = baseStations
	c.cameras = cameras
	return nil
}

// GetBasestations returns the base stations found by GetDevices.
func (c *Client) GetBasestations() []*BaseStation {
	return c.baseStations
}

// GetBasestation returns the first base station on the account.
// GetDevices should be called beforehand.
func (c *Client) GetBasestation() (*BaseStation, error) {
	if len(c.baseStations) == 0 {
		return nil, ErrNoBasestationFound
	}
	return c.baseStations[0], nil
}

// GetCameras returns the cameras found by GetDevices.
func (c *Client) GetCameras() ([]*Camera, error) {
	if len(c.cameras) == 0 {
		return nil, ErrNoCamerasFound
	}
	return c.cameras, nil
}

// LookupCameraByID returns the camera with the given device id.
func (c *Client) LookupCameraByID(deviceID string) (*Camera, error) {
	for _, camera := range c.cameras {
		if camera.DeviceID() == deviceID {
			return camera, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCameraNotFound, deviceID)
}

// RefreshAttributes re-queries the device listing and returns the fresh
// attribute snapshot for the named device.
func (c *Client) RefreshAttributes(name string) (*DeviceAttributes, error) {
	var rows []DeviceAttributes
	if err := c.transport.Get(devicesEndpoint, &rows); err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].DeviceName == name {
			return &rows[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
}

// UnseenVideosReset resets the unseen-videos counter for all cameras.
func (c *Client) UnseenVideosReset() error {
	return c.transport.Get(libraryResetEndpoint, nil)
}

// BillingInformation returns the account service level payload.
func (c *Client) BillingInformation() (map[string]interface{}, error) {
	return c.getMap(billingEndpoint)
}

// SharedUsers returns the users the account is shared with.
func (c *Client) SharedUsers() ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	if err := c.transport.Get(friendsEndpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Profile returns the account owner's profile.
func (c *Client) Profile() (map[string]interface{}, error) {
	return c.getMap(profileEndpoint)
}

func (c *Client) getMap(path string) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := c.transport.Get(path, &out); err != nil {
		return nil, err
	}
	return out, nil
}
