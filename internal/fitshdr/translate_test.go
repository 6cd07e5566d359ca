package fitshdr

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

const sampleXML = `<?xml version="1.0" encoding="utf-8"?>
<meta>
  <fits>
    <TELESCOP>SDO/AIA</TELESCOP>
    <INSTRUME>AIA_4</INSTRUME>
    <WAVELNTH>304</WAVELNTH>
    <DATE-OBS>2014-01-01T23:59:54.13Z</DATE-OBS>
    <EXPTIME>2.902582</EXPTIME>
    <DATAMIN>0</DATAMIN>
    <DATAMAX>9830</DATAMAX>
  </fits>
</meta>`

func TestTranslateKeysLegal(t *testing.T) {
	hdr, err := Translate(sampleXML)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, card := range hdr.Cards() {
		if len(card.Key) > MaxKeyLen {
			t.Errorf("key %q exceeds %d characters", card.Key, MaxKeyLen)
		}
		if seen[card.Key] {
			t.Errorf("duplicate key %q", card.Key)
		}
		seen[card.Key] = true
		for _, r := range card.Key {
			legal := (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
			if !legal {
				t.Errorf("key %q contains illegal character %q", card.Key, r)
			}
		}
	}
}

func TestTranslateValueTypes(t *testing.T) {
	hdr, err := Translate(sampleXML)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if card, ok := hdr.Get("TELESCOP"); !ok {
		t.Error("TELESCOP card missing")
	} else if card.Value != "SDO/AIA" {
		t.Errorf("TELESCOP = %v, want SDO/AIA", card.Value)
	}

	if card, ok := hdr.Get("WAVELNTH"); !ok {
		t.Error("WAVELNTH card missing")
	} else if card.Value != 304 {
		t.Errorf("WAVELNTH = %v (%T), want int 304", card.Value, card.Value)
	}

	if card, ok := hdr.Get("EXPTIME"); !ok {
		t.Error("EXPTIME card missing")
	} else if card.Value != 2.902582 {
		t.Errorf("EXPTIME = %v (%T), want float 2.902582", card.Value, card.Value)
	}

	// container elements carry only whitespace, which parses to 0
	if card, ok := hdr.Get("META"); !ok {
		t.Error("META card missing")
	} else if card.Value != 0 {
		t.Errorf("META = %v, want 0", card.Value)
	}
}

func TestTranslateDeterministic(t *testing.T) {
	first, err := Translate(sampleXML)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	second, err := Translate(sampleXML)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if !reflect.DeepEqual(first.Cards(), second.Cards()) {
		t.Error("repeated translation of identical input produced different headers")
	}
}

func TestTranslateCollision(t *testing.T) {
	hdr := TranslatePairs([]Pair{
		{Key: "TEMPERATURE_1", Value: 273.1},
		{Key: "TEMPERATURE_2", Value: 274.9},
	})

	cards := hdr.Cards()
	if len(cards) != 2 {
		t.Fatalf("card count = %d, want 2", len(cards))
	}
	if cards[0].Key != "TEMPERAT" {
		t.Errorf("first key = %q, want TEMPERAT", cards[0].Key)
	}
	if cards[1].Key != "TEMPERA0" {
		t.Errorf("second key = %q, want TEMPERA0", cards[1].Key)
	}
	for _, c := range cards {
		if len(c.Key) > MaxKeyLen {
			t.Errorf("key %q exceeds length limit", c.Key)
		}
	}
	// provenance comments carry the original names
	if cards[0].Comment != "TEMPERATURE_1" {
		t.Errorf("first comment = %q, want original key", cards[0].Comment)
	}
	if cards[1].Comment != "TEMPERATURE_2" {
		t.Errorf("second comment = %q, want original key", cards[1].Comment)
	}
}

func TestTranslateCollisionChain(t *testing.T) {
	var pairs []Pair
	for i := 0; i < 15; i++ {
		pairs = append(pairs, Pair{Key: fmt.Sprintf("HISTORY_ENTRY_%02d", i), Value: i})
	}
	hdr := TranslatePairs(pairs)

	if hdr.Len() != 15 {
		t.Fatalf("card count = %d, want 15 (bijection broken)", hdr.Len())
	}
	seen := make(map[string]bool)
	for _, c := range hdr.Cards() {
		if seen[c.Key] {
			t.Errorf("duplicate key %q in collision chain", c.Key)
		}
		seen[c.Key] = true
		if len(c.Key) > MaxKeyLen {
			t.Errorf("key %q exceeds length limit", c.Key)
		}
	}
	// the chain walks the digit tier then widens to the two-digit tier
	if !seen["HISTORY_"] || !seen["HISTORY0"] || !seen["HISTOR00"] {
		t.Errorf("unexpected collision chain keys: %v", keysOf(hdr))
	}
}

func keysOf(h *Header) []string {
	out := make([]string, 0, h.Len())
	for _, c := range h.Cards() {
		out = append(out, c.Key)
	}
	return out
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"telescop", "TELESCOP"},
		{"DATE-OBS", "DATE-OBS"},
		{"lonely key with spaces", "LONELYKE"},
		{"héliosphère", "HLIOSPHR"},
		{"a", "A"},
		{"...", "KEY"},
		{"IMG_EXP_TIME", "IMG_EXP_"},
	}
	for _, tt := range tests {
		if got := NormalizeKey(tt.in); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"304", 304},
		{"-12", -12},
		{"2.902582", 2.902582},
		{"1.5e3", 1500.0},
		{"nan", 0},
		{"NULL", 0},
		{"", 0},
		{"  \n  ", 0},
		{"inf", 1.0e9},
		{"+INF", 1.0e9},
		{"-inf", -1.0e9},
		{"SDO/AIA", "SDO/AIA"},
		{"line\nbreak", "line break"},
	}
	for _, tt := range tests {
		if got := ParseValue(tt.in); got != tt.want {
			t.Errorf("ParseValue(%q) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
		}
	}
}

func TestSanitizeStringClipsLongValues(t *testing.T) {
	long := strings.Repeat("x", 200)
	if got := SanitizeString(long); len(got) != MaxValueLen {
		t.Errorf("sanitized length = %d, want %d", len(got), MaxValueLen)
	}
}

func TestTranslateRejectsMalformedXML(t *testing.T) {
	if _, err := Translate("<meta><unclosed></meta>"); err == nil {
		t.Error("expected error for malformed XML")
	}
	if _, err := Translate(""); err == nil {
		t.Error("expected error for empty document")
	}
}

func TestSetReplacesInPlace(t *testing.T) {
	hdr := NewHeader()
	hdr.Append("FLIPUD", "F")
	hdr.Append("NAXIS", 2)
	hdr.Set("FLIPUD", "T", "")

	cards := hdr.Cards()
	if cards[0].Key != "FLIPUD" || cards[0].Value != "T" {
		t.Errorf("Set did not replace in place: %+v", cards[0])
	}
	if hdr.Len() != 2 {
		t.Errorf("Set grew the header: len = %d", hdr.Len())
	}
}
