package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ragserver/pkg/types"
)

// Extract converts a raw text payload into the flat string that gets
// chunked and indexed, according to the declared format.
//
// Plain text and markdown pass through unchanged: downstream semantic
// matching tolerates markup, so nothing is stripped. JSON payloads are
// reduced to their string leaves.
func Extract(content string, format types.Format) (string, error) {
	switch format {
	case types.FormatText, types.FormatMarkdown:
		return content, nil
	case types.FormatJSON:
		return extractJSON(content)
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, format)
	}
}

// extractJSON collects every string leaf in document order, joined with
// single spaces. Numbers, booleans and nulls contribute no text. A
// streaming token walk is used instead of Unmarshal because Go maps do
// not preserve object key order.
func extractJSON(content string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(content))

	var strs []string
	if err := walkValue(dec, &strs); err != nil {
		return "", fmt.Errorf("%w: invalid JSON: %v", types.ErrMalformedInput, err)
	}

	// Reject trailing garbage after the top-level value
	if _, err := dec.Token(); err != io.EOF {
		return "", fmt.Errorf("%w: trailing data after JSON value", types.ErrMalformedInput)
	}

	return strings.Join(strs, " "), nil
}

// walkValue consumes exactly one JSON value from the decoder, appending
// string leaves to out as they are encountered.
func walkValue(dec *json.Decoder, out *[]string) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			for dec.More() {
				// Object key: skip, only values carry content
				if _, err := dec.Token(); err != nil {
					return err
				}
				if err := walkValue(dec, out); err != nil {
					return err
				}
			}
			// Consume closing brace
			if _, err := dec.Token(); err != nil {
				return err
			}
		case '[':
			for dec.More() {
				if err := walkValue(dec, out); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil {
				return err
			}
		}
	case string:
		*out = append(*out, t)
	default:
		// Numbers, booleans, null: no text contribution
	}

	return nil
}
