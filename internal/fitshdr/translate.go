package fitshdr

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Pair is one raw metadata key/value as received from the archive
type Pair struct {
	Key   string
	Value interface{}
}

// Translate converts JP2 header XML text into a FITS header. Every element
// of the document contributes one card, in document order, keyed by its tag
// name; the element's own text (up to its first child) is the value.
func Translate(xmlText string) (*Header, error) {
	pairs, err := flattenXML(xmlText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metadata XML: %w", err)
	}
	return TranslatePairs(pairs), nil
}

// TranslatePairs converts already-flat raw metadata into a FITS header.
// Deterministic: the same pairs in the same order always yield the same
// header, collisions included.
func TranslatePairs(pairs []Pair) *Header {
	hdr := NewHeader()
	for _, p := range pairs {
		hdr.Append(p.Key, p.Value)
	}
	return hdr
}

// xmlElement tracks one open element while streaming the document
type xmlElement struct {
	tag      string
	text     strings.Builder
	hasChild bool
}

// flattenXML walks every element of the document in pre-order and returns
// (tag, parsed value) pairs. Container elements contribute their
// inter-tag whitespace, which parses to the integer 0, matching the
// historical output format.
func flattenXML(xmlText string) ([]Pair, error) {
	dec := xml.NewDecoder(strings.NewReader(xmlText))

	var pairs []Pair
	var stack []*xmlElement
	var order []*xmlElement

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) > 0 {
				stack[len(stack)-1].hasChild = true
			}
			el := &xmlElement{tag: t.Name.Local}
			stack = append(stack, el)
			order = append(order, el)
		case xml.CharData:
			// only text before the first child counts as the element value
			if len(stack) > 0 && !stack[len(stack)-1].hasChild {
				stack[len(stack)-1].text.Write([]byte(t))
			}
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unbalanced end tag </%s>", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("document contains no elements")
	}

	for _, el := range order {
		pairs = append(pairs, Pair{Key: el.tag, Value: ParseValue(el.text.String())})
	}
	return pairs, nil
}

// ParseValue converts raw metadata text into a FITS-storable primitive.
// Placeholder tokens collapse to 0, infinities clamp to +/-1e9, numeric
// strings keep their numeric kind, everything else is sanitized text.
func ParseValue(text string) interface{} {
	s := strings.TrimSpace(text)
	lower := strings.ToLower(s)

	switch lower {
	case "", "nan", "null", "n/a":
		return 0
	case "inf", "+inf":
		return 1.0e9
	case "-inf":
		return -1.0e9
	}

	if strings.ContainsAny(lower, ".e") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	} else if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(i)
	}

	return SanitizeString(s)
}
