package arlo

import (
	"sync/atomic"
)

// DeviceProperties is the nested properties block of a device listing row.
type DeviceProperties struct {
	ModelID       string `json:"modelId"`
	HWVersion     string `json:"hwVersion"`
	OlsonTimeZone string `json:"olsonTimeZone"`
	SerialNumber  string `json:"serialNumber"`
}

// DeviceAttributes is one row of the device discovery listing. The snapshot
// is always replaced wholesale on refresh, never merged field by field.
type DeviceAttributes struct {
	DeviceID              string           `json:"deviceId"`
	DeviceName            string           `json:"deviceName"`
	DeviceType            string           `json:"deviceType"`
	ModelID               string           `json:"modelId"`
	State                 string           `json:"state"`
	UniqueID              string           `json:"uniqueId"`
	UserID                string           `json:"userId"`
	UserRole              string           `json:"userRole"`
	XCloudID              string           `json:"xCloudId"`
	ParentID              string           `json:"parentId"`
	LastModified          int64            `json:"lastModified"`
	MediaObjectCount      int64            `json:"mediaObjectCount"`
	PresignedLastImageURL string           `json:"presignedLastImageUrl"`
	Properties            DeviceProperties `json:"properties"`
}

// IsBasestation reports whether the row describes a base station.
func (a DeviceAttributes) IsBasestation() bool {
	return a.DeviceType == DeviceTypeBasestation
}

// IsCamera reports whether the row describes a recognised camera type.
func (a DeviceAttributes) IsCamera() bool {
	switch a.DeviceType {
	case DeviceTypeCamera, DeviceTypeArloQ, DeviceTypeArloQS:
		return true
	}
	return false
}

// device is the shared state of base stations and cameras: a name, an
// atomically swappable attribute snapshot and the owning session. Readers
// always see either the whole old or the whole new snapshot.
type device struct {
	name    string
	session *Client
	attrs   atomic.Pointer[DeviceAttributes]
}

func (d *device) init(name string, attrs DeviceAttributes, session *Client) {
	d.name = name
	d.session = session
	d.attrs.Store(&attrs)
}

// Name returns the device display name.
func (d *device) Name() string { return d.name }

// Attributes returns a copy of the current attribute snapshot.
func (d *device) Attributes() DeviceAttributes { return *d.attrs.Load() }

// DeviceID returns the vendor device id.
func (d *device) DeviceID() string { return d.attrs.Load().DeviceID }

// DeviceType returns the vendor device type.
func (d *device) DeviceType() string { return d.attrs.Load().DeviceType }

// ModelID returns the hardware model id.
func (d *device) ModelID() string { return d.attrs.Load().ModelID }

// UniqueID returns the vendor unique id.
func (d *device) UniqueID() string { return d.attrs.Load().UniqueID }

// UserID returns the owning user id.
func (d *device) UserID() string { return d.attrs.Load().UserID }

// UserRole returns the role the session user has on this device.
func (d *device) UserRole() string { return d.attrs.Load().UserRole }

// XCloudID returns the cloud-routing id required by the notify endpoint.
func (d *device) XCloudID() string { return d.attrs.Load().XCloudID }

// HWVersion returns the hardware version.
func (d *device) HWVersion() string { return d.attrs.Load().Properties.HWVersion }

// Timezone returns the Olson timezone name.
func (d *device) Timezone() string { return d.attrs.Load().Properties.OlsonTimeZone }

// SerialNumber returns the device serial number.
func (d *device) SerialNumber() string { return d.attrs.Load().Properties.SerialNumber }

// UpdatedAt returns the last-modified timestamp in epoch milliseconds.
func (d *device) UpdatedAt() int64 { return d.attrs.Load().LastModified }

// Refresh re-queries the device listing and swaps in the new snapshot.
func (d *device) Refresh() error {
	attrs, err := d.session.RefreshAttributes(d.name)
	if err != nil {
		return err
	}
	d.attrs.Store(attrs)
	return nil
}
