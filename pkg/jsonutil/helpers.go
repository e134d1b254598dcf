// Package jsonutil provides the JSON encoding helpers shared by the
// Fastline export format, the API server and the CLI.
package jsonutil

import (
	"encoding/json"
	"errors"
	"io"
)

// ErrTrailingData is returned by DecodeStrict when input continues after
// the first JSON value.
var ErrTrailingData = errors.New("unexpected data after JSON value")

// WriteIndented encodes v to w with two-space indentation and a trailing
// newline.
func WriteIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// DecodeStrict decodes exactly one JSON value from r into v, rejecting
// unknown object fields and trailing data. Empty input yields io.EOF
// unwrapped, so callers can treat a missing body as "no fields".
func DecodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return err
	}
	if dec.More() {
		return ErrTrailingData
	}
	return nil
}
