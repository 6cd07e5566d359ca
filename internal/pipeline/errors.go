package pipeline

import (
	"fmt"
	"time"
)

// ValidationError indicates a malformed request: a timestamp that does not
// parse or a sourceId out of range.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// SkipError indicates the closest available observation lies farther from
// the requested instant than the configured tolerance.
type SkipError struct {
	Requested time.Time
	Closest   time.Time
	Delta     time.Duration
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("closest observation %s is %s away from requested %s",
		e.Closest.Format(time.RFC3339), e.Delta, e.Requested.Format(time.RFC3339))
}

// requestLayout is the timestamp form requests must use
const requestLayout = "2006-01-02T15:04:05Z"

// validate checks a request and returns its parsed timestamp
func validate(req Request) (time.Time, error) {
	if req.SourceID < 0 {
		return time.Time{}, &ValidationError{
			Field:  "sourceId",
			Value:  fmt.Sprintf("%d", req.SourceID),
			Reason: "must be non-negative",
		}
	}
	t, err := time.Parse(requestLayout, req.Date)
	if err != nil {
		// tolerate full RFC3339 (offset or fractional-second) input
		t, err = time.Parse(time.RFC3339, req.Date)
	}
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:  "date",
			Value:  req.Date,
			Reason: "want ISO-8601 like 2014-01-01T23:59:59Z",
		}
	}
	return t.UTC(), nil
}
