// Package hvclient talks to the Helioviewer image archive API.
//
// Two logical operations matter to the rest of the tool: locating the
// closest available observation for a (time, sourceId) pair, and fetching
// the image payload plus its embedded JP2 metadata header for a located
// observation. Each call performs exactly one round trip and is never
// retried; a failed request is surfaced to the batch layer as a per-item
// failure.
package hvclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/AlexPietrow/HelioSaver/internal/logger"
)

// DefaultBaseURL is the public Helioviewer API endpoint
const DefaultBaseURL = "https://api.helioviewer.org/v2/"

// hvDateLayout is the timestamp format getClosestImage returns (UTC)
const hvDateLayout = "2006-01-02 15:04:05"

// ErrNotFound indicates the archive has no observation for the requested
// source, or reported an error status for the lookup.
var ErrNotFound = errors.New("no matching observation")

// FetchError indicates a transport or parse failure retrieving a payload
type FetchError struct {
	URL    string
	Status int
	Reason string
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

// Observation identifies the archive image closest to a requested instant
type Observation struct {
	ID   int64
	Date time.Time // actual observation time, may differ from the requested one
	Name string    // instrument nickname, e.g. "AIA 304"
}

// Client is the Helioviewer archive client
type Client struct {
	query    *resty.Client
	download *resty.Client
	baseURL  string
	log      *logger.Logger
}

// New creates an archive client. queryTimeout bounds metadata lookups,
// downloadTimeout bounds image payload transfers.
func New(baseURL string, queryTimeout, downloadTimeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	query := resty.New()
	query.SetTimeout(queryTimeout)

	download := resty.New()
	download.SetTimeout(downloadTimeout)

	return &Client{
		query:    query,
		download: download,
		baseURL:  baseURL,
		log:      logger.Global().WithComponent("hvclient"),
	}
}

// FindClosest locates the observation closest to date for the given sourceId.
// Returns ErrNotFound (wrapped) when the archive has nothing for that source
// or reports an error status.
func (c *Client) FindClosest(ctx context.Context, date time.Time, sourceID int) (*Observation, error) {
	url := c.baseURL + "getClosestImage/"
	dateStr := date.UTC().Format("2006-01-02T15:04:05Z")
	c.log.Debugf("getClosestImage date=%s sourceId=%d", dateStr, sourceID)

	resp, err := c.query.R().
		SetContext(ctx).
		SetQueryParam("date", dateStr).
		SetQueryParam("sourceId", strconv.Itoa(sourceID)).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("closest image lookup failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("closest image lookup returned status %d: %w", resp.StatusCode(), ErrNotFound)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to parse closest image response: %w", err)
	}
	if msg, ok := body["error"]; ok {
		return nil, fmt.Errorf("archive error %v: %w", msg, ErrNotFound)
	}

	id, err := parseImageID(body["id"])
	if err != nil {
		return nil, fmt.Errorf("sourceId %d at %s: %w: %v", sourceID, dateStr, ErrNotFound, err)
	}

	obs := &Observation{ID: id}
	if name, ok := body["name"].(string); ok {
		obs.Name = strings.TrimSpace(name)
	}
	if dateVal, ok := body["date"].(string); ok {
		if t, err := time.Parse(hvDateLayout, strings.TrimSpace(dateVal)); err == nil {
			obs.Date = t.UTC()
		}
	}
	return obs, nil
}

// parseImageID accepts the id field as either a JSON string or number,
// both of which the archive has been observed to emit.
func parseImageID(v interface{}) (int64, error) {
	switch id := v.(type) {
	case string:
		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid id format %q", id)
		}
		if parsed == 0 {
			return 0, errors.New("zero image id")
		}
		return parsed, nil
	case float64:
		if int64(id) == 0 {
			return 0, errors.New("zero image id")
		}
		return int64(id), nil
	case nil:
		return 0, errors.New("no id field in response")
	default:
		return 0, fmt.Errorf("unexpected id type %T", v)
	}
}

// FetchJP2 downloads the raw JP2 bytes for an observation
func (c *Client) FetchJP2(ctx context.Context, id int64) ([]byte, error) {
	return c.fetchBytes(ctx, "getJP2Image/", id)
}

// FetchPNG downloads the rendered PNG payload for an observation.
// This is the pixel source for FITS conversion since JP2 cannot be decoded
// natively.
func (c *Client) FetchPNG(ctx context.Context, id int64) ([]byte, error) {
	return c.fetchBytes(ctx, "getPNG/", id)
}

func (c *Client) fetchBytes(ctx context.Context, endpoint string, id int64) ([]byte, error) {
	url := c.baseURL + endpoint
	c.log.Debugf("%s id=%d", strings.TrimSuffix(endpoint, "/"), id)

	resp, err := c.download.R().
		SetContext(ctx).
		SetQueryParam("id", strconv.FormatInt(id, 10)).
		Get(url)
	if err != nil {
		return nil, &FetchError{URL: url, Reason: err.Error()}
	}
	if resp.StatusCode() != 200 {
		return nil, &FetchError{URL: url, Status: resp.StatusCode()}
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, &FetchError{URL: url, Reason: "empty response body"}
	}
	return body, nil
}

// FetchHeader downloads the JP2 metadata header (XML text) for an observation
func (c *Client) FetchHeader(ctx context.Context, id int64) (string, error) {
	url := c.baseURL + "getJP2Header/"
	c.log.Debugf("getJP2Header id=%d", id)

	resp, err := c.query.R().
		SetContext(ctx).
		SetQueryParam("id", strconv.FormatInt(id, 10)).
		Get(url)
	if err != nil {
		return "", &FetchError{URL: url, Reason: err.Error()}
	}
	if resp.StatusCode() != 200 {
		return "", &FetchError{URL: url, Status: resp.StatusCode()}
	}
	body := resp.Body()
	if len(body) == 0 {
		return "", &FetchError{URL: url, Reason: "empty response body"}
	}
	return string(body), nil
}

// LookupSourceID resolves a sourceId by walking the getDataSources catalog
// along the given path, e.g. ("SDO", "AIA", "304") or a four-segment path
// including the detector level for instruments that have one.
func (c *Client) LookupSourceID(ctx context.Context, path ...string) (int, error) {
	if len(path) == 0 {
		return 0, errors.New("empty data source path")
	}
	url := c.baseURL + "getDataSources/"

	resp, err := c.query.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		return 0, fmt.Errorf("data source catalog fetch failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return 0, &FetchError{URL: url, Status: resp.StatusCode()}
	}

	var catalog map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &catalog); err != nil {
		return 0, fmt.Errorf("failed to parse data source catalog: %w", err)
	}

	node := catalog
	for _, segment := range path {
		child, ok := node[segment]
		if !ok {
			return 0, fmt.Errorf("data source path segment not found: %s", segment)
		}
		childMap, ok := child.(map[string]interface{})
		if !ok {
			return 0, fmt.Errorf("unexpected catalog shape at segment %s", segment)
		}
		node = childMap
	}

	sourceID, ok := node["sourceId"].(float64)
	if !ok {
		return 0, fmt.Errorf("no sourceId at path %s", strings.Join(path, "/"))
	}
	return int(sourceID), nil
}
