package pipeline

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/AlexPietrow/HelioSaver/internal/hvclient"
	"github.com/AlexPietrow/HelioSaver/internal/writer"
)

// FailedLog appends one tab-separated line per failed or skipped request
// to a local file, so long unattended batches leave a machine-readable
// trail of what needs re-requesting.
type FailedLog struct {
	mu   sync.Mutex
	path string
}

// NewFailedLog creates a failure log appending to path
func NewFailedLog(path string) *FailedLog {
	return &FailedLog{path: path}
}

// Record appends a line for a failed request. Logging failures are
// swallowed; the failure log must never break the batch itself.
func (f *FailedLog) Record(req Request, cause error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	line := fmt.Sprintf("%s\tsourceId=%d\t%s\n", req.Date, req.SourceID, classify(cause))

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer file.Close()
	file.WriteString(line)
}

// classify maps an error onto the short reason tag used in the log
func classify(err error) string {
	var ve *ValidationError
	var se *SkipError
	var fe *hvclient.FetchError
	var we *writer.WriteError

	switch {
	case errors.As(err, &ve):
		return "FAIL:bad_request\t" + ve.Reason
	case errors.As(err, &se):
		return fmt.Sprintf("SKIP:closest_out_of_range\tclosest=%s\tdt=%s",
			se.Closest.Format("2006-01-02T15:04:05Z"), se.Delta)
	case errors.Is(err, hvclient.ErrNotFound):
		return "FAIL:no_closest"
	case errors.As(err, &fe):
		if fe.Status == 0 {
			return "FAIL:download\t" + fe.Reason
		}
		return fmt.Sprintf("FAIL:download\tstatus=%d", fe.Status)
	case errors.As(err, &we):
		return "FAIL:write\t" + we.Path
	default:
		return "FAIL:error\t" + err.Error()
	}
}
