package util

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeBaseURL trims surrounding space and guarantees exactly one
// trailing slash.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/") + "/"
}

// JoinPublicURL appends an object key to a normalized base URL. Each key
// segment is path-escaped.
func JoinPublicURL(base, key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return NormalizeBaseURL(base) + strings.Join(segments, "/")
}

// DeriveTableName prefixes table with prefix and an underscore, unless the
// prefix is empty.
func DeriveTableName(prefix string, table string) string {
	if prefix == "" {
		return table
	}

	return fmt.Sprintf("%s_%s", prefix, table)
}
