// Package jsoncompat routes JSON encoding through sonic using the
// encoding/json compatible configuration (sorted map keys, html escaping).
package jsoncompat

import (
	"io"

	"github.com/bytedance/sonic"
)

var api = sonic.ConfigStd

func Marshal(v any) ([]byte, error) { return api.Marshal(v) }

func Unmarshal(data []byte, v any) error { return api.Unmarshal(data, v) }

type Encoder interface {
	Encode(v any) error
	SetIndent(prefix, indent string)
}

func NewEncoder(w io.Writer) Encoder { return api.NewEncoder(w) }

type Decoder interface {
	Decode(v any) error
}

func NewDecoder(r io.Reader) Decoder { return api.NewDecoder(r) }
