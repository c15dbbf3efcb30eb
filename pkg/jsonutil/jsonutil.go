// Package jsonutil is the repo's single JSON entry point, backed by
// github.com/go-json-experiment/json. OSINT clients and report
// writers decode and emit large documents on the hot path; the
// experiment encoder is markedly faster there than encoding/json
// while keeping a compatible call shape.
package jsonutil

import (
	"io"
	"os"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalIndent returns the JSON encoding of v indented with indent.
// The prefix argument exists for encoding/json call-site parity and
// must be empty.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return json.Marshal(v, jsontext.WithIndent(indent))
}

// Unmarshal parses data into v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// UnmarshalRead parses one value from r into v.
func UnmarshalRead(r io.Reader, v any) error {
	return json.UnmarshalRead(r, v)
}

// Valid reports whether data is well-formed JSON.
func Valid(data []byte) bool {
	return jsontext.Value(data).IsValid()
}

// WriteFile persists v to path as indented JSON with a trailing
// newline. Scan artifacts (subdomain listings, reports) go through
// here so they diff cleanly between runs.
func WriteFile(path string, v any, perm os.FileMode) error {
	data, err := json.Marshal(v, jsontext.WithIndent("  "))
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), perm)
}

// Encoder streams values to w, one per line, mirroring the
// encoding/json.Encoder contract the output writers were built
// against.
type Encoder struct {
	w      io.Writer
	indent string
}

// NewStreamEncoder returns an Encoder writing to w.
func NewStreamEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// SetIndent switches the encoder to indented output. The prefix
// argument must be empty, as with MarshalIndent.
func (e *Encoder) SetIndent(prefix, indent string) {
	e.indent = indent
}

// Encode writes v followed by a newline.
func (e *Encoder) Encode(v any) error {
	var err error
	if e.indent != "" {
		err = json.MarshalWrite(e.w, v, jsontext.WithIndent(e.indent))
	} else {
		err = json.MarshalWrite(e.w, v)
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(e.w, "\n")
	return err
}
