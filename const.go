package arlo

import "time"

// BaseURL is the Arlo web API root.
const BaseURL = "https://arlo.netgear.com/hmsweb"

// API endpoint paths, relative to BaseURL.
const (
	loginEndpoint        = "/login"
	logoutEndpoint       = "/logout"
	devicesEndpoint      = "/users/devices"
	notifyEndpoint       = "/users/devices/notify/%s"
	subscribeEndpoint    = "/client/subscribe"
	unsubscribeEndpoint  = "/client/unsubscribe"
	libraryEndpoint      = "/users/library"
	libraryResetEndpoint = "/users/library/reset"
	streamEndpoint       = "/users/devices/startStream"
	billingEndpoint      = "/users/serviceLevel"
	friendsEndpoint      = "/users/friends"
	profileEndpoint      = "/users/profile"
)

// Device types recognised during discovery.
const (
	DeviceTypeBasestation = "basestation"
	DeviceTypeCamera      = "camera"
	DeviceTypeArloQ       = "arloq"
	DeviceTypeArloQS      = "arloqs"
)

const deviceStateProvisioned = "provisioned"

// ModeSchedule is the built-in schedule mode, always available on every
// base station regardless of what the modes resource reports.
const ModeSchedule = "schedule"

// PreloadDays is the default lookback window for the media library.
const PreloadDays = 30

// Defaults for the publish/correlate engine. The poll cadence trades latency
// against false-negative timeouts; override via EventConfig.
const (
	defaultPollAttempts    = 2
	defaultPollTimeout     = 5 * time.Second
	defaultRefreshInterval = 15 * time.Second
)

// transportRetries is how many times a request is reissued on a non-200
// response before giving up.
const transportRetries = 3
