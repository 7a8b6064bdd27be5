package util

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// PathPattern represents a configurable pattern for generating object paths.
// It supports placeholders that get replaced with actual values:
//   - {owner}    - the owner id the media is uploaded on behalf of
//   - {id}       - the generated media id
//   - {year}     - 4-digit year (e.g., "2026")
//   - {month}    - 2-digit month (e.g., "01")
//   - {day}      - 2-digit day (e.g., "15")
//   - {slug}     - the slugified file name, without extension
//   - {ext}      - file extension (with leading dot, e.g., ".jpg")
//   - {filename} - slug plus extension
//
// Example patterns:
//   - "{owner}/{year}/{month}/{filename}" → "alice/2026/01/my-photo.jpg"
//   - "media/{id}{ext}" → "media/0d5c....jpg"
type PathPattern struct {
	pattern string
}

// PathValues are the substitutions available to a PathPattern.
type PathValues struct {
	Slug  string
	Owner string
	ID    string
	Time  time.Time
	Ext   string
}

func NewPathPattern(pattern string) *PathPattern {
	return &PathPattern{pattern: pattern}
}

// Generate produces a path by replacing placeholders with actual values.
// Slug is required. A zero Time leaves date placeholders untouched.
func (p *PathPattern) Generate(v PathValues) (string, error) {
	if v.Slug == "" {
		return "", fmt.Errorf("slug cannot be empty")
	}

	if strings.Contains(p.pattern, "{owner}") && v.Owner == "" {
		return "", fmt.Errorf("pattern %q requires an owner", p.pattern)
	}

	result := p.pattern

	if !v.Time.IsZero() {
		result = strings.ReplaceAll(result, "{year}", fmt.Sprintf("%04d", v.Time.Year()))
		result = strings.ReplaceAll(result, "{month}", fmt.Sprintf("%02d", v.Time.Month()))
		result = strings.ReplaceAll(result, "{day}", fmt.Sprintf("%02d", v.Time.Day()))
	}

	ext := v.Ext
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	result = strings.ReplaceAll(result, "{owner}", v.Owner)
	result = strings.ReplaceAll(result, "{id}", v.ID)
	result = strings.ReplaceAll(result, "{slug}", v.Slug)
	result = strings.ReplaceAll(result, "{filename}", v.Slug+ext)
	result = strings.ReplaceAll(result, "{ext}", ext)

	result = filepath.ToSlash(filepath.Clean(result))

	if result == ".." || strings.HasPrefix(result, "../") || strings.HasPrefix(result, "/") {
		return "", fmt.Errorf("generated path %q escapes the storage root", result)
	}

	return result, nil
}

// DefaultMediaPattern organizes media by owner and date.
func DefaultMediaPattern() *PathPattern {
	return NewPathPattern("{owner}/{year}/{month}/{filename}")
}
