package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Parser decodes raw bytes into untyped structured data.
type Parser interface {
	Parse(data []byte) (any, error)
}

// JSONParser decodes JSON documents. Numbers decode as json.Number so the
// validator sees them exactly as written.
type JSONParser struct{}

// Parse decodes exactly one JSON value from data.
func (JSONParser) Parse(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse json: unexpected data after top-level value")
	}
	return v, nil
}
