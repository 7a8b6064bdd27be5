package media

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// File is a raw handle to a user-selected file. The content is read through
// Open, so a File can refer to an in-memory buffer or to a path on disk.
type File struct {
	Name      string
	MediaType string
	Size      int64

	open func() (io.ReadCloser, error)
}

// NewFile wraps an in-memory buffer. The buffer must not be modified afterwards.
func NewFile(name, mediaType string, data []byte) *File {
	return &File{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// NewPathFile refers to a file on disk. Size is taken as given so callers can
// reuse the result of an earlier stat.
func NewPathFile(path, name, mediaType string, size int64) *File {
	return &File{
		Name:      name,
		MediaType: mediaType,
		Size:      size,
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

func (f *File) Open() (io.ReadCloser, error) {
	if f == nil || f.open == nil {
		return nil, fmt.Errorf("file has no content")
	}

	return f.open()
}

// Bytes reads the whole file into memory.
func (f *File) Bytes() ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", f.Name, err)
	}

	return data, nil
}

// MediaFile describes an object persisted by the upload service.
type MediaFile struct {
	ID       string    `json:"id"`
	OwnerID  string    `json:"owner_id"`
	URL      string    `json:"url"`
	Kind     Kind      `json:"kind"`
	Filename string    `json:"filename"`
	MIMEType string    `json:"mime_type"`
	Size     int64     `json:"size"`
	Width    *int      `json:"width,omitempty"`
	Height   *int      `json:"height,omitempty"`
	Created  time.Time `json:"created"`
	// ThumbnailURL is set when a thumbnail was uploaded next to an image.
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}
