package picker

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/indieinfra/ingest/classify"
	"github.com/indieinfra/ingest/logging"
	"github.com/indieinfra/ingest/media"
)

var ErrNoFiles = errors.New("no files in request")

type MultipartValues map[string]any

// MultipartLimits bounds what FromMultipart buffers.
type MultipartLimits struct {
	// MaxPayload caps the whole request body.
	MaxPayload int64
	// MaxMemory caps the combined size of the non-file fields.
	MaxMemory int64
	// MaxFileSize is the largest part that is read into memory. Larger parts
	// are still selected, with their size and no content, so the session can
	// reject them.
	MaxFileSize int64
}

const defaultMaxValueBytes = 10 << 20

// FromMultipart turns the file parts of a multipart form into a Static
// selection. Only parts named after one of fields, or the same name with a
// "[]" suffix, are selected, and they keep the order in which they appear in
// the body. Parts are read into memory so the selection outlives the request.
func FromMultipart(w http.ResponseWriter, r *http.Request, limits MultipartLimits, fields []string) (Static, MultipartValues, error) {
	if limits.MaxPayload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limits.MaxPayload)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	accept := make(map[string]bool, 2*len(fields))
	for _, field := range fields {
		accept[field] = true
		accept[field+"[]"] = true
	}

	budget := limits.MaxMemory
	if budget <= 0 {
		budget = defaultMaxValueBytes
	}

	raw := make(map[string][]string)
	var files Static
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse multipart form: %w", err)
		}

		name := p.FormName()
		switch {
		case name == "":
		case p.FileName() == "":
			v, err := readValue(p, budget)
			if err != nil {
				return nil, nil, err
			}
			budget -= int64(len(v))
			raw[name] = append(raw[name], v)
		case accept[name]:
			f, err := readPart(p, limits.MaxFileSize)
			if err != nil {
				return nil, nil, err
			}
			files = append(files, f)
		}
		p.Close()
	}

	values := extractValues(raw)
	if len(files) == 0 {
		return nil, values, ErrNoFiles
	}

	return files, values, nil
}

func readValue(p *multipart.Part, budget int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(p, budget+1))
	if err != nil {
		return "", fmt.Errorf("could not read field %q: %w", p.FormName(), err)
	}
	if int64(len(data)) > budget {
		return "", fmt.Errorf("field %q: %w", p.FormName(), multipart.ErrMessageTooLarge)
	}
	return string(data), nil
}

func readPart(p *multipart.Part, maxFileSize int64) (*media.File, error) {
	filename := p.FileName()

	declared := p.Header.Get("Content-Type")
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			declared = mt
		}
	}

	var src io.Reader = p
	if maxFileSize > 0 {
		src = io.LimitReader(p, maxFileSize+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("could not read part %q: %w", filename, err)
	}

	if maxFileSize > 0 && int64(len(data)) > maxFileSize {
		rest, err := io.Copy(io.Discard, p)
		if err != nil {
			return nil, fmt.Errorf("could not read part %q: %w", filename, err)
		}
		size := int64(len(data)) + rest
		logging.Default.Debugf("not buffering oversized part %q (%d bytes)", filename, size)
		return &media.File{Name: filename, MediaType: declared, Size: size}, nil
	}

	if declared == "" || declared == "application/octet-stream" {
		declared = classify.Sniff(data)
	}

	return media.NewFile(filename, declared, data), nil
}

func extractValues(raw map[string][]string) MultipartValues {
	values := make(MultipartValues, len(raw))

	for key, arr := range raw {
		switch len(arr) {
		case 0:
			continue
		case 1:
			values[key] = arr[0]
		default:
			asAny := make([]any, len(arr))
			for i, v := range arr {
				asAny[i] = v
			}
			values[key] = asAny
		}
	}

	return values
}

// String returns the single string value stored under key.
func (v MultipartValues) String(key string) string {
	s, _ := v[key].(string)
	return s
}
