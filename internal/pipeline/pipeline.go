// Package pipeline drives the per-timestamp download-and-convert flow and
// is the only layer that turns component failures into recorded per-item
// results. One bad request never stops the rest of the batch.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AlexPietrow/HelioSaver/internal/decode"
	"github.com/AlexPietrow/HelioSaver/internal/fitshdr"
	"github.com/AlexPietrow/HelioSaver/internal/hvclient"
	"github.com/AlexPietrow/HelioSaver/internal/logger"
	"github.com/AlexPietrow/HelioSaver/internal/storage"
	"github.com/AlexPietrow/HelioSaver/internal/writer"
)

// Mode selects the output artifact kind
type Mode int

const (
	ModeFITS Mode = iota
	ModePNG
)

// Request is one timestamp/source pair to acquire
type Request struct {
	Date     string // ISO-8601 with Z, e.g. "2014-01-01T23:59:59Z"
	SourceID int
}

// Result records the outcome for one request. Err is nil on success; Path
// holds the stored artifact's relative path when one was produced.
type Result struct {
	Request Request
	Path    string
	ObsTime time.Time
	Err     error
}

// ArchiveClient is the slice of the archive API the pipeline needs
type ArchiveClient interface {
	FindClosest(ctx context.Context, date time.Time, sourceID int) (*hvclient.Observation, error)
	FetchPNG(ctx context.Context, id int64) ([]byte, error)
	FetchJP2(ctx context.Context, id int64) ([]byte, error)
	FetchHeader(ctx context.Context, id int64) (string, error)
}

// Options configures a processing run
type Options struct {
	Mode           Mode
	Concurrency    int           // worker pool size, 1 = sequential
	RequestTimeout time.Duration // per-item wall clock budget, 0 = none
	MaxTimeDelta   time.Duration // reject matches farther than this, 0 = accept any
	SaveHeaderTxt  bool          // FITS mode: write the raw metadata sidecar
	KeepJP2        bool          // FITS mode: keep the original JP2 payload
	SkipExisting   bool          // do not rewrite artifacts that already exist
	FailedLog      *FailedLog    // optional failure log, may be nil
}

// Processor runs batches of requests against the archive
type Processor struct {
	client ArchiveClient
	store  storage.Client
	opts   Options
	log    *logger.Logger
}

// New creates a processor
func New(client ArchiveClient, store storage.Client, opts Options) *Processor {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Processor{
		client: client,
		store:  store,
		opts:   opts,
		log:    logger.Global().WithComponent("pipeline"),
	}
}

// Process runs every request and returns one result per request, in input
// order. Requests are independent; failures are recorded, not propagated.
func (p *Processor) Process(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))

	sem := make(chan struct{}, p.opts.Concurrency)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, req Request) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.processOne(ctx, req)
		}(i, req)
	}
	wg.Wait()

	return results
}

// processOne handles a single request end to end
func (p *Processor) processOne(ctx context.Context, req Request) Result {
	result := Result{Request: req}

	requested, err := validate(req)
	if err != nil {
		result.Err = err
		p.recordFailure(req, err)
		return result
	}

	if p.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RequestTimeout)
		defer cancel()
	}

	obs, err := p.client.FindClosest(ctx, requested, req.SourceID)
	if err != nil {
		result.Err = err
		p.recordFailure(req, err)
		return result
	}

	if p.opts.MaxTimeDelta > 0 && !obs.Date.IsZero() {
		delta := obs.Date.Sub(requested)
		if delta < 0 {
			delta = -delta
		}
		if delta > p.opts.MaxTimeDelta {
			err := &SkipError{Requested: requested, Closest: obs.Date, Delta: delta}
			result.Err = err
			p.recordFailure(req, err)
			return result
		}
	}

	switch p.opts.Mode {
	case ModePNG:
		result.Path, result.ObsTime, err = p.producePNG(ctx, requested, req.SourceID, obs)
	default:
		result.Path, result.ObsTime, err = p.produceFITS(ctx, requested, req.SourceID, obs)
	}
	if err != nil {
		result.Err = err
		p.recordFailure(req, err)
		return result
	}

	p.log.Infof("stored %s", p.store.Location(result.Path))
	return result
}

// producePNG downloads the rendered payload and stores it under the
// observation's date directory
func (p *Processor) producePNG(ctx context.Context, requested time.Time, sourceID int, obs *hvclient.Observation) (string, time.Time, error) {
	obsTime := obs.Date
	if obsTime.IsZero() {
		obsTime = requested
	}

	relPath := writer.PNGPath(obsTime, requested, sourceID)
	if skip, err := p.skipExisting(ctx, relPath); err != nil {
		return "", obsTime, err
	} else if skip {
		return relPath, obsTime, nil
	}

	data, err := p.client.FetchPNG(ctx, obs.ID)
	if err != nil {
		return "", obsTime, err
	}
	relPath, err = writer.WritePNG(ctx, p.store, data, obsTime, requested, sourceID)
	return relPath, obsTime, err
}

// produceFITS downloads payload and metadata, translates the header,
// decodes the pixels and assembles the FITS artifact plus any sidecars
func (p *Processor) produceFITS(ctx context.Context, requested time.Time, sourceID int, obs *hvclient.Observation) (string, time.Time, error) {
	headerText, err := p.client.FetchHeader(ctx, obs.ID)
	if err != nil {
		return "", time.Time{}, err
	}

	hdr, err := fitshdr.Translate(headerText)
	if err != nil {
		return "", time.Time{}, err
	}

	obsTime := resolveObsTime(obs, hdr, requested)

	relPath := writer.FITSPath(obsTime, obs.Name, sourceID)
	if skip, err := p.skipExisting(ctx, relPath); err != nil {
		return "", obsTime, err
	} else if skip {
		return relPath, obsTime, nil
	}

	payload, err := p.client.FetchPNG(ctx, obs.ID)
	if err != nil {
		return "", obsTime, err
	}
	plane, err := decode.Decode(payload)
	if err != nil {
		return "", obsTime, err
	}

	if p.opts.SaveHeaderTxt {
		if _, err := writer.WriteHeaderSidecar(ctx, p.store, obs.ID, headerText); err != nil {
			return "", obsTime, err
		}
	}
	if p.opts.KeepJP2 {
		jp2, err := p.client.FetchJP2(ctx, obs.ID)
		if err != nil {
			return "", obsTime, err
		}
		if _, err := writer.WriteJP2Sidecar(ctx, p.store, obs.ID, jp2); err != nil {
			return "", obsTime, err
		}
	}

	relPath, err = writer.WriteFITS(ctx, p.store, plane, hdr, obsTime, obs.Name, sourceID)
	return relPath, obsTime, err
}

// skipExisting reports whether an artifact should be left untouched
func (p *Processor) skipExisting(ctx context.Context, relPath string) (bool, error) {
	if !p.opts.SkipExisting {
		return false, nil
	}
	exists, err := p.store.Exists(ctx, relPath)
	if err != nil {
		return false, err
	}
	if exists {
		p.log.Debugf("skipping existing artifact %s", relPath)
	}
	return exists, nil
}

// resolveObsTime picks the observation timestamp used for naming: the
// archive's closest-match time, else the metadata DATE-OBS, else the
// requested time.
func resolveObsTime(obs *hvclient.Observation, hdr *fitshdr.Header, requested time.Time) time.Time {
	if !obs.Date.IsZero() {
		return obs.Date
	}
	for _, key := range []string{"DATE-OBS", "DATE_OBS"} {
		card, ok := hdr.Get(key)
		if !ok {
			continue
		}
		s, ok := card.Value.(string)
		if !ok {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.99", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	return requested
}

func (p *Processor) recordFailure(req Request, err error) {
	p.log.Error(fmt.Sprintf("request %s sourceId=%d failed", req.Date, req.SourceID), err)
	if p.opts.FailedLog != nil {
		p.opts.FailedLog.Record(req, err)
	}
}

// Summary aggregates a result slice for reporting and exit-code policy
type Summary struct {
	Succeeded int
	Failed    int
}

// Summarize counts successes and failures
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
		} else {
			s.Succeeded++
		}
	}
	return s
}

// ExitCode maps an aggregate result onto the process exit code: nonzero
// when everything failed, or when anything failed under strict policy.
func (s Summary) ExitCode(strict bool) int {
	if s.Failed == 0 {
		return 0
	}
	if strict || s.Succeeded == 0 {
		return 1
	}
	return 0
}
