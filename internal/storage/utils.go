package storage

import (
	"strings"
	"time"
)

// DayDir returns the date-partition directory name for a timestamp,
// literally "YYYY-MM-DD".
func DayDir(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ContentTypeFor determines the MIME content type from a file extension
func ContentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".fits") || strings.HasSuffix(path, ".fit"):
		return "application/fits"
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".jp2"):
		return "image/jp2"
	case strings.HasSuffix(path, ".xml"):
		return "text/xml"
	case strings.HasSuffix(path, ".txt"):
		return "text/plain"
	case strings.HasSuffix(path, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
