// Package classify decides whether a selected file is an image or a video.
// Classification only looks at the declared media type; sniffing is offered
// separately for selection surfaces that cannot declare one.
package classify

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/indieinfra/ingest/media"
)

func IsImageFile(f *media.File) bool {
	return hasTopLevelType(f, "image")
}

func IsVideoFile(f *media.File) bool {
	return hasTopLevelType(f, "video")
}

// KindOf returns the media kind of f, or false if f is neither image nor video.
func KindOf(f *media.File) (media.Kind, bool) {
	switch {
	case IsImageFile(f):
		return media.KindImage, true
	case IsVideoFile(f):
		return media.KindVideo, true
	default:
		return "", false
	}
}

// Sniff detects a media type from file content.
func Sniff(data []byte) string {
	mt, _, err := mime.ParseMediaType(mimetype.Detect(data).String())
	if err != nil {
		return "application/octet-stream"
	}
	return mt
}

// DetectFile detects the media type of a file on disk.
func DetectFile(path string) (string, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}

	mt, _, err := mime.ParseMediaType(m.String())
	if err != nil {
		return "application/octet-stream", nil
	}
	return mt, nil
}

func hasTopLevelType(f *media.File, top string) bool {
	if f == nil {
		return false
	}

	declared := strings.TrimSpace(f.MediaType)
	if declared == "" {
		return false
	}

	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return false
	}

	major, _, ok := strings.Cut(mt, "/")
	return ok && major == top
}
