// Package decode turns compressed image payloads into bare sample planes.
//
// The archive stores observations as JP2 internally but serves rendered
// PNG (and occasionally JPEG) payloads; those are what this package
// decodes. Raw JP2 bytes are recognized and rejected with a typed error
// since no native codec exists for them.
package decode

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
)

// DecodeError indicates the payload is not a decodable image
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode image: " + e.Reason
}

// Plane is a decoded 2-D sample array. Pix holds row-major samples in the
// decoded (top-down) orientation; BitDepth records the source encoding (8
// or 16) so downstream containers can preserve it.
type Plane struct {
	Width    int
	Height   int
	BitDepth int
	Pix      []uint16
}

// At returns the sample at (x, y)
func (p *Plane) At(x, y int) uint16 {
	return p.Pix[y*p.Width+x]
}

// jp2Signature is the JP2 container magic; jp2Codestream is a bare
// JPEG 2000 codestream start marker.
var (
	jp2Signature  = []byte{0x00, 0x00, 0x00, 0x0c, 0x6a, 0x50, 0x20, 0x20}
	jp2Codestream = []byte{0xff, 0x4f, 0xff, 0x51}
)

// Decode decodes compressed image bytes into a sample plane. Pure
// function; safe to call concurrently on independent inputs.
func Decode(data []byte) (*Plane, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Reason: "empty payload"}
	}
	if bytes.HasPrefix(data, jp2Signature) || bytes.HasPrefix(data, jp2Codestream) {
		return nil, &DecodeError{Reason: "unsupported compression profile: JPEG 2000"}
	}

	var img image.Image
	var err error
	switch contentType := http.DetectContentType(data); contentType {
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unsupported content type %s", contentType)}
	}
	if err != nil {
		return nil, &DecodeError{Reason: err.Error()}
	}

	return flatten(img), nil
}

// flatten collapses a decoded image into a single sample plane at the
// source bit depth. Grayscale sources keep their samples untouched; color
// sources collapse to luma.
func flatten(img image.Image) *Plane {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	plane := &Plane{
		Width:    w,
		Height:   h,
		BitDepth: bitDepthOf(img),
		Pix:      make([]uint16, w*h),
	}

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w]
			for x, v := range row {
				plane.Pix[y*w+x] = uint16(v)
			}
		}
	case *image.Gray16:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				off := y*src.Stride + x*2
				plane.Pix[y*w+x] = uint16(src.Pix[off])<<8 | uint16(src.Pix[off+1])
			}
		}
	default:
		// color payload: collapse to luma, preserving depth
		shift := 8
		if plane.BitDepth == 16 {
			shift = 0
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				// BT.601 luma weights on 16-bit channel values
				luma := (299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000
				plane.Pix[y*w+x] = uint16(luma >> uint(shift))
			}
		}
	}
	return plane
}

// bitDepthOf reports the sample depth the source encoding carried
func bitDepthOf(img image.Image) int {
	switch img.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		return 16
	default:
		return 8
	}
}
