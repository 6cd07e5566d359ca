// Package writer assembles decoded samples and translated headers into
// output artifacts and hands them to a storage client.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/AlexPietrow/HelioSaver/internal/decode"
	"github.com/AlexPietrow/HelioSaver/internal/fitshdr"
	"github.com/AlexPietrow/HelioSaver/internal/storage"
)

// WriteError indicates an artifact could not be stored
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// WriteFITS renders a FITS file (empty primary HDU plus a JP2_IMAGE image
// extension carrying the translated header) and stores it. The sample
// plane is flipped vertically on the way in, recorded by the FLIPUD card,
// so the data follows FITS row ordering. Returns the relative output path.
func WriteFITS(ctx context.Context, st storage.Client, plane *decode.Plane, hdr *fitshdr.Header, obsTime time.Time, sourceName string, sourceID int) (string, error) {
	relPath := FITSPath(obsTime, sourceName, sourceID)

	data, err := renderFITS(plane, hdr)
	if err != nil {
		return "", &WriteError{Path: relPath, Err: err}
	}
	if err := st.StoreFile(ctx, relPath, data); err != nil {
		return "", &WriteError{Path: relPath, Err: err}
	}
	return relPath, nil
}

// renderFITS encodes the plane and header into FITS container bytes
func renderFITS(plane *decode.Plane, hdr *fitshdr.Header) ([]byte, error) {
	buf := new(bytes.Buffer)
	f, err := fitsio.Create(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create FITS container: %w", err)
	}
	defer f.Close()

	// empty primary HDU; the data lives in an extension, mirroring the
	// layout existing consumers expect
	primary := fitsio.NewImage(8, []int{})
	defer primary.Close()
	if err := f.Write(primary); err != nil {
		return nil, fmt.Errorf("failed to write primary HDU: %w", err)
	}

	bitpix := 8
	if plane.BitDepth == 16 {
		bitpix = 16
	}
	img := fitsio.NewImage(bitpix, []int{plane.Width, plane.Height})
	defer img.Close()

	cards := []fitsio.Card{{Name: "EXTNAME", Value: "JP2_IMAGE"}}
	if bitpix == 16 {
		// unsigned 16-bit convention: stored as signed with a fixed offset
		cards = append(cards,
			fitsio.Card{Name: "BZERO", Value: 32768, Comment: "offset data range to that of unsigned short"},
			fitsio.Card{Name: "BSCALE", Value: 1, Comment: "default scaling factor"},
		)
	}
	for _, c := range hdr.Cards() {
		if reservedKey(c.Key) {
			continue
		}
		cards = append(cards, fitsio.Card{Name: c.Key, Value: c.Value, Comment: c.Comment})
	}
	cards = append(cards, fitsio.Card{Name: "FLIPUD", Value: true, Comment: "data flipped vertically relative to source"})

	if err := img.Header().Append(cards...); err != nil {
		return nil, fmt.Errorf("failed to build FITS header: %w", err)
	}

	if bitpix == 16 {
		if err := img.Write(flipInt16(plane)); err != nil {
			return nil, fmt.Errorf("failed to write FITS data: %w", err)
		}
	} else {
		if err := img.Write(flipUint8(plane)); err != nil {
			return nil, fmt.Errorf("failed to write FITS data: %w", err)
		}
	}

	if err := f.Write(img); err != nil {
		return nil, fmt.Errorf("failed to write image HDU: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize FITS container: %w", err)
	}
	return buf.Bytes(), nil
}

// reservedKey reports whether a translated key would collide with a card
// the container or this writer already manages. Archive metadata carries
// the observation's own SIMPLE/BITPIX/NAXIS*/BZERO/BSCALE keywords; the
// output file describes the rendered plane, not the source encoding, so
// those are dropped in favor of the writer's values.
func reservedKey(key string) bool {
	switch key {
	case "SIMPLE", "BITPIX", "EXTEND", "XTENSION", "PCOUNT", "GCOUNT",
		"BZERO", "BSCALE", "BLANK", "END",
		"EXTNAME", "FLIPUD":
		return true
	}
	if strings.HasPrefix(key, "NAXIS") {
		rest := key[len("NAXIS"):]
		if rest == "" {
			return true
		}
		for _, r := range rest {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	}
	return false
}

// flipInt16 flips the plane vertically and shifts the samples into the
// signed range the 16-bit FITS convention stores on disk
func flipInt16(plane *decode.Plane) []int16 {
	out := make([]int16, len(plane.Pix))
	for y := 0; y < plane.Height; y++ {
		srcRow := (plane.Height - 1 - y) * plane.Width
		dstRow := y * plane.Width
		for x := 0; x < plane.Width; x++ {
			out[dstRow+x] = int16(int32(plane.Pix[srcRow+x]) - 32768)
		}
	}
	return out
}

// flipUint8 flips the plane vertically at byte depth
func flipUint8(plane *decode.Plane) []uint8 {
	out := make([]uint8, len(plane.Pix))
	for y := 0; y < plane.Height; y++ {
		srcRow := (plane.Height - 1 - y) * plane.Width
		dstRow := y * plane.Width
		for x := 0; x < plane.Width; x++ {
			out[dstRow+x] = uint8(plane.Pix[srcRow+x])
		}
	}
	return out
}

// WriteHeaderSidecar stores the raw untranslated metadata XML next to the
// FITS output so the translation stays auditable
func WriteHeaderSidecar(ctx context.Context, st storage.Client, imageID int64, xmlText string) (string, error) {
	relPath := HeaderSidecarPath(imageID)
	if err := st.StoreFile(ctx, relPath, []byte(xmlText)); err != nil {
		return "", &WriteError{Path: relPath, Err: err}
	}
	return relPath, nil
}

// WriteJP2Sidecar stores the original compressed JP2 payload verbatim
func WriteJP2Sidecar(ctx context.Context, st storage.Client, imageID int64, data []byte) (string, error) {
	relPath := JP2SidecarPath(imageID)
	if err := st.StoreFile(ctx, relPath, data); err != nil {
		return "", &WriteError{Path: relPath, Err: err}
	}
	return relPath, nil
}
