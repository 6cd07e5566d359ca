// Package fitshdr converts free-form JP2 metadata into a FITS-legal header.
//
// FITS keywords are at most 8 characters drawn from uppercase letters,
// digits, hyphen and underscore, and must be unique within a header. The
// archive's metadata keys obey none of that, so incoming keys are
// normalized, truncated and de-collided deterministically: the same input
// always produces byte-identical output.
package fitshdr

import (
	"fmt"
	"strings"
)

// MaxKeyLen is the FITS keyword length limit
const MaxKeyLen = 8

// MaxValueLen is the FITS string value field limit
const MaxValueLen = 68

// Card is one (key, value, comment) header triple. Value is an int, a
// float64 or a string.
type Card struct {
	Key     string
	Value   interface{}
	Comment string
}

// Header is an ordered sequence of cards with unique keys
type Header struct {
	cards []Card
	index map[string]int
}

// NewHeader returns an empty header
func NewHeader() *Header {
	return &Header{index: make(map[string]int)}
}

// Len returns the number of cards
func (h *Header) Len() int {
	return len(h.cards)
}

// Cards returns the cards in insertion order
func (h *Header) Cards() []Card {
	return h.cards
}

// Has reports whether a card with the exact key exists
func (h *Header) Has(key string) bool {
	_, ok := h.index[key]
	return ok
}

// Get returns the card stored under the exact key
func (h *Header) Get(key string) (Card, bool) {
	i, ok := h.index[key]
	if !ok {
		return Card{}, false
	}
	return h.cards[i], true
}

// Set stores a card under the exact key, replacing any existing card in
// place. The key must already be FITS-legal; use Append for raw metadata
// keys.
func (h *Header) Set(key string, value interface{}, comment string) {
	card := Card{Key: key, Value: sanitizeValue(value), Comment: comment}
	if i, ok := h.index[key]; ok {
		h.cards[i] = card
		return
	}
	h.index[key] = len(h.cards)
	h.cards = append(h.cards, card)
}

// Append adds a card for a raw metadata key. The key is normalized and
// truncated to the FITS limit; collisions with existing cards are resolved
// by digit suffixing. The original key is preserved as the card comment
// when it differs from the emitted key.
func (h *Header) Append(rawKey string, value interface{}) {
	key := h.uniqueKey(NormalizeKey(rawKey))
	comment := ""
	if key != strings.ToUpper(strings.TrimSpace(rawKey)) {
		comment = strings.TrimSpace(rawKey)
	}
	h.index[key] = len(h.cards)
	h.cards = append(h.cards, Card{Key: key, Value: sanitizeValue(value), Comment: comment})
}

// uniqueKey resolves collisions against the cards already present.
// First tier replaces the 8th character with a digit 0-9; if all ten are
// taken the key is shortened to six characters and suffixed 00-99.
func (h *Header) uniqueKey(key string) string {
	if !h.Has(key) {
		return key
	}
	base := key
	if len(base) > MaxKeyLen-1 {
		base = base[:MaxKeyLen-1]
	}
	for i := 0; i < 10; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if !h.Has(candidate) {
			return candidate
		}
	}
	if len(base) > MaxKeyLen-2 {
		base = base[:MaxKeyLen-2]
	}
	for i := 0; i < 100; i++ {
		candidate := fmt.Sprintf("%s%02d", base, i)
		if !h.Has(candidate) {
			return candidate
		}
	}
	// 110 collisions on one stem exceeds any real metadata document
	panic(fmt.Sprintf("fitshdr: keyword space exhausted for %q", key))
}

// NormalizeKey maps a raw metadata key onto the FITS keyword alphabet:
// uppercase, characters outside [A-Z0-9_-] dropped, first 8 characters kept.
func NormalizeKey(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	var b strings.Builder
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	key := b.String()
	if key == "" {
		key = "KEY"
	}
	if len(key) > MaxKeyLen {
		key = key[:MaxKeyLen]
	}
	return key
}

// sanitizeValue coerces a value into one of the FITS-storable primitives.
// Numeric types pass through with their kind preserved; booleans and
// anything else become their string representation.
func sanitizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case int:
		return val
	case int32:
		return int(val)
	case int64:
		return int(val)
	case float32:
		return float64(val)
	case float64:
		return val
	case string:
		return SanitizeString(val)
	case bool:
		if val {
			return "T"
		}
		return "F"
	case nil:
		return "N/A"
	default:
		return SanitizeString(fmt.Sprintf("%v", val))
	}
}

// SanitizeString makes a string FITS-card friendly: control characters
// become spaces, non-ASCII bytes are dropped, and the result is clipped to
// the value-field limit. Empty input becomes "N/A".
func SanitizeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case r < 32 || r > 126:
			// drop
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "N/A"
	}
	if len(out) > MaxValueLen {
		out = out[:MaxValueLen]
	}
	return out
}
