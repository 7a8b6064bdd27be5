package state

import (
	"github.com/indieinfra/ingest/config"
	"github.com/indieinfra/ingest/picker"
	"github.com/indieinfra/ingest/server/registry"
	"github.com/indieinfra/ingest/storage/report"
	"github.com/indieinfra/ingest/upload"
)

type IngestState struct {
	Cfg        *config.Config
	MediaStore upload.Uploader
	Compressor upload.Compressor
	// Measurer is nil when dimension measurement is disabled.
	Measurer upload.Measurer
	// Thumbnailer is nil unless thumbnails are enabled.
	Thumbnailer upload.Thumbnailer
	Reporter    report.Reporter
	Sessions    *registry.Registry
}

// Builder returns a registry.Builder producing orchestrators wired to the
// server's stores and limits. Every batch of the session is reported under id.
func (st *IngestState) Builder(id string) registry.Builder {
	return func(p picker.Picker) *upload.Orchestrator {
		opts := []upload.Option{
			upload.WithSessionID(id),
			upload.WithMaxFileSize(st.Cfg.Upload.MaxFileSize),
		}
		if st.Measurer != nil {
			opts = append(opts, upload.WithMeasurer(st.Measurer))
		}
		if st.Thumbnailer != nil {
			opts = append(opts, upload.WithThumbnailer(st.Thumbnailer))
		}
		if st.Reporter != nil {
			opts = append(opts, upload.WithReporter(st.Reporter))
		}

		return upload.New(p, st.Compressor, st.MediaStore, opts...)
	}
}
