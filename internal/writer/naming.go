package writer

import (
	"fmt"
	"time"

	"github.com/AlexPietrow/HelioSaver/internal/storage"
)

// Slug maps an instrument nickname onto filename-safe characters,
// e.g. "AIA 304" becomes "AIA_304".
func Slug(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	slug := string(out)
	for len(slug) > 0 && slug[0] == '_' {
		slug = slug[1:]
	}
	for len(slug) > 0 && slug[len(slug)-1] == '_' {
		slug = slug[:len(slug)-1]
	}
	if slug == "" {
		return "source"
	}
	return slug
}

// fileStem renders a timestamp the way existing archives name files:
// ISO-8601 with colons removed and the date/time separator flattened.
func fileStem(t time.Time) string {
	return t.UTC().Format("2006-01-02_150405Z")
}

// FITSPath returns the relative output path for a FITS artifact. The name
// embeds the actual observation time and the instrument nickname, not the
// requested time, so files line up with what the archive really holds.
func FITSPath(obsTime time.Time, sourceName string, sourceID int) string {
	if sourceName == "" {
		sourceName = fmt.Sprintf("source%d", sourceID)
	}
	return fmt.Sprintf("helioviewer_%s_%s.fits", fileStem(obsTime), Slug(sourceName))
}

// PNGPath returns the relative output path for a PNG artifact,
// partitioned by the observation's actual date.
func PNGPath(obsTime, requested time.Time, sourceID int) string {
	return fmt.Sprintf("png/%s/helioviewer_%s_source_%d.png",
		storage.DayDir(obsTime), fileStem(requested), sourceID)
}

// HeaderSidecarPath returns the relative path for the raw metadata sidecar
func HeaderSidecarPath(imageID int64) string {
	return fmt.Sprintf("helioviewer_%d.xml.txt", imageID)
}

// JP2SidecarPath returns the relative path for the raw JP2 sidecar
func JP2SidecarPath(imageID int64) string {
	return fmt.Sprintf("helioviewer_%d.jp2", imageID)
}
