package writer

import (
	"context"
	"time"

	"github.com/AlexPietrow/HelioSaver/internal/storage"
)

// WritePNG stores a rendered PNG payload under a date-partitioned
// directory derived from the observation's actual timestamp. Returns the
// relative output path.
func WritePNG(ctx context.Context, st storage.Client, data []byte, obsTime, requested time.Time, sourceID int) (string, error) {
	relPath := PNGPath(obsTime, requested, sourceID)
	if err := st.StoreFile(ctx, relPath, data); err != nil {
		return "", &WriteError{Path: relPath, Err: err}
	}
	return relPath, nil
}
