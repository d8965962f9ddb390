package arlo

import (
	"testing"
	"time"
)

func seedLibrary(f *fakeArlo) {
	now := time.Now()
	f.mu.Lock()
	f.libraryRows = []map[string]interface{}{
		{
			"name":                  "rec-newest",
			"deviceId":              "CAM1",
			"contentType":           "video/mp4",
			"reason":                "motionRecord",
			"localCreatedDate":      now.UnixMilli(),
			"mediaDurationSecond":   12,
			"presignedContentUrl":   f.server.URL + "/snapshot.jpg",
			"presignedThumbnailUrl": f.server.URL + "/snapshot.jpg",
		},
		{
			// Rows from cameras the account does not know get skipped.
			"name":             "rec-orphan",
			"deviceId":         "GHOST",
			"localCreatedDate": now.Add(-time.Hour).UnixMilli(),
		},
		{
			"name":                "rec-older",
			"deviceId":            "CAM1",
			"contentType":         "video/mp4",
			"reason":              "audioRecord",
			"localCreatedDate":    now.Add(-48 * time.Hour).UnixMilli(),
			"mediaDurationSecond": 7,
		},
	}
	f.mu.Unlock()
}

func TestMediaLibraryLoad(t *testing.T) {
	f := newFakeArlo(t)
	client, _ := newTestClient(t, f)
	seedLibrary(f)

	videos, err := client.MediaLibrary.Load(LoadOptions{Days: 7})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos after skipping the orphan row, got %d", len(videos))
	}

	video := videos[0]
	if video.ID() != "rec-newest" {
		t.Errorf("unexpected id %q", video.ID())
	}
	if video.Camera().DeviceID() != "CAM1" {
		t.Errorf("unexpected camera %q", video.Camera().DeviceID())
	}
	if video.TriggeredBy() != "motionRecord" {
		t.Errorf("unexpected trigger %q", video.TriggeredBy())
	}
	if video.MediaDurationSeconds() != 12 {
		t.Errorf("unexpected duration %d", video.MediaDurationSeconds())
	}
	if !video.CreatedToday() {
		t.Error("expected the newest recording to be from today")
	}
	if videos[1].CreatedToday() {
		t.Error("expected the older recording to be from another day")
	}
}

func TestMediaLibraryLoadLimit(t *testing.T) {
	f := newFakeArlo(t)
	client, _ := newTestClient(t, f)
	seedLibrary(f)

	videos, err := client.MediaLibrary.Load(LoadOptions{Days: 7, Limit: 1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("expected the limit to cap the result, got %d videos", len(videos))
	}
}

func TestCameraVideosAndLastVideo(t *testing.T) {
	f := newFakeArlo(t)
	client, _ := newTestClient(t, f)
	seedLibrary(f)

	cam, err := client.LookupCameraByID("CAM1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	videos, err := cam.Videos(7)
	if err != nil {
		t.Fatalf("videos: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos for CAM1, got %d", len(videos))
	}

	last, err := cam.LastVideo()
	if err != nil {
		t.Fatalf("last video: %v", err)
	}
	if last.ID() != "rec-newest" {
		t.Errorf("unexpected last video %q", last.ID())
	}

	content, err := last.DownloadThumbnail()
	if err != nil {
		t.Fatalf("download thumbnail: %v", err)
	}
	if string(content) != "jpeg-bytes" {
		t.Errorf("unexpected thumbnail content %q", content)
	}
}

func TestLastVideoEmptyLibrary(t *testing.T) {
	f := newFakeArlo(t)
	client, _ := newTestClient(t, f)

	cam, err := client.LookupCameraByID("CAM1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if _, err := cam.LastVideo(); err != ErrEventNotAvailable {
		t.Fatalf("expected ErrEventNotAvailable, got %v", err)
	}
}

func TestUnseenVideosReset(t *testing.T) {
	f := newFakeArlo(t)
	client, _ := newTestClient(t, f)

	if err := client.UnseenVideosReset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
}
