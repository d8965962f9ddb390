package arlo

import (
	"os"
	"time"
)

const libraryDateFormat = "20060102"

// MediaLibrary queries the account's recorded videos over a date range.
type MediaLibrary struct {
	session *Client
}

func newMediaLibrary(session *Client) *MediaLibrary {
	return &MediaLibrary{session: session}
}

type libraryRequest struct {
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
}

// VideoAttributes is one row of the media library listing.
type VideoAttributes struct {
	Name                  string `json:"name"`
	DeviceID              string `json:"deviceId"`
	ContentType           string `json:"contentType"`
	Reason                string `json:"reason"`
	LocalCreatedDate      int64  `json:"localCreatedDate"`
	MediaDurationSecond   int    `json:"mediaDurationSecond"`
	PresignedContentURL   string `json:"presignedContentUrl"`
	PresignedThumbnailURL string `json:"presignedThumbnailUrl"`
}

// LoadOptions refine a library query. Zero values mean "no restriction";
// Days defaults to PreloadDays when no explicit range is given.
type LoadOptions struct {
	Days        int
	DateFrom    string // YYYYMMDD, overrides Days together with DateTo
	DateTo      string
	OnlyCameras []*Camera
	Limit       int
}

// Load queries the library and wraps each row with its recording camera.
// Rows for cameras that are not materialized on the account are skipped.
func (m *MediaLibrary) Load(opts LoadOptions) ([]*Video, error) {
	dateFrom, dateTo := opts.DateFrom, opts.DateTo
	if dateFrom == "" || dateTo == "" {
		days := opts.Days
		if days <= 0 {
			days = PreloadDays
		}
		now := time.Now()
		dateFrom = now.AddDate(0, 0, -days).Format(libraryDateFormat)
		dateTo = now.Format(libraryDateFormat)
	}

	var rows []VideoAttributes
	err := m.session.transport.Post(libraryEndpoint, libraryRequest{dateFrom, dateTo}, &rows, nil)
	if err != nil {
		return nil, err
	}

	videos := []*Video{}
	for _, row := range rows {
		camera, err := m.session.LookupCameraByID(row.DeviceID)
		if err != nil {
			continue
		}
		if len(opts.OnlyCameras) > 0 && !containsCamera(opts.OnlyCameras, camera) {
			continue
		}
		videos = append(videos, &Video{attrs: row, camera: camera, session: m.session})
		if opts.Limit > 0 && len(videos) == opts.Limit {
			break
		}
	}
	return videos, nil
}

func containsCamera(cameras []*Camera, camera *Camera) bool {
	for _, c := range cameras {
		if c.DeviceID() == camera.DeviceID() {
			return true
		}
	}
	return false
}

// Video is an immutable view over one media library row.
type Video struct {
	attrs   VideoAttributes
	camera  *Camera
	session *Client
}

// ID returns the vendor name of the recording.
func (v *Video) ID() string { return v.attrs.Name }

// Camera returns the camera that recorded the video.
func (v *Video) Camera() *Camera { return v.camera }

// CreatedAt returns the local creation time.
func (v *Video) CreatedAt() time.Time {
	return time.UnixMilli(v.attrs.LocalCreatedDate)
}

// CreatedToday reports whether the recording was created today.
func (v *Video) CreatedToday() bool {
	now := time.Now()
	created := v.CreatedAt()
	return created.Year() == now.Year() && created.YearDay() == now.YearDay()
}

// ContentType returns the MIME type of the recording.
func (v *Video) ContentType() string { return v.attrs.ContentType }

// MediaDurationSeconds returns the recording length in seconds.
func (v *Video) MediaDurationSeconds() int { return v.attrs.MediaDurationSecond }

// TriggeredBy returns the reason the recording was made.
func (v *Video) TriggeredBy() string { return v.attrs.Reason }

// ThumbnailURL returns the presigned thumbnail URL.
func (v *Video) ThumbnailURL() string { return v.attrs.PresignedThumbnailURL }

// VideoURL returns the presigned content URL.
func (v *Video) VideoURL() string { return v.attrs.PresignedContentURL }

// DownloadThumbnail fetches the JPEG thumbnail.
func (v *Video) DownloadThumbnail() ([]byte, error) {
	return v.session.transport.Download(v.ThumbnailURL())
}

// DownloadVideo fetches the video content.
func (v *Video) DownloadVideo() ([]byte, error) {
	return v.session.transport.Download(v.VideoURL())
}

// SaveVideo downloads the video content to the given file.
func (v *Video) SaveVideo(filename string) error {
	content, err := v.DownloadVideo()
	if err != nil {
		return err
	}
	return os.WriteFile(filename, content, 0o644)
}
