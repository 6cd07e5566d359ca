package decode

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeGray8(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			src.Pix[y*src.Stride+x] = uint8(y*40 + x*10)
		}
	}

	plane, err := Decode(encodePNG(t, src))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if plane.Width != 4 || plane.Height != 3 {
		t.Errorf("dimensions = %dx%d, want 4x3", plane.Width, plane.Height)
	}
	if plane.BitDepth != 8 {
		t.Errorf("BitDepth = %d, want 8", plane.BitDepth)
	}
	if got := plane.At(2, 1); got != 60 {
		t.Errorf("sample (2,1) = %d, want 60", got)
	}
}

func TestDecodeGray16PreservesDepth(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 2, 2))
	values := []uint16{0, 300, 9830, 65535}
	for i, v := range values {
		off := (i/2)*src.Stride + (i%2)*2
		src.Pix[off] = uint8(v >> 8)
		src.Pix[off+1] = uint8(v)
	}

	plane, err := Decode(encodePNG(t, src))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if plane.BitDepth != 16 {
		t.Errorf("BitDepth = %d, want 16 (implicit downcast)", plane.BitDepth)
	}
	for i, want := range values {
		if got := plane.Pix[i]; got != want {
			t.Errorf("sample %d = %d, want %d", i, got, want)
		}
	}
}

func TestDecodeColorCollapsesToLuma(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.Pix[0], src.Pix[1], src.Pix[2], src.Pix[3] = 255, 255, 255, 255

	plane, err := Decode(encodePNG(t, src))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if plane.BitDepth != 8 {
		t.Errorf("BitDepth = %d, want 8", plane.BitDepth)
	}
	if got := plane.At(0, 0); got != 255 {
		t.Errorf("white pixel luma = %d, want 255", got)
	}
}

func TestDecodeRejectsJP2(t *testing.T) {
	jp2 := []byte{0x00, 0x00, 0x00, 0x0c, 0x6a, 0x50, 0x20, 0x20, 0x0d, 0x0a, 0x87, 0x0a}

	_, err := Decode(jp2)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("want *DecodeError, got %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("this is not an image")},
		{"truncated png", []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Errorf("want *DecodeError, got %v", err)
			}
		})
	}
}
