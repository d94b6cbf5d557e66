package repocontext

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// textDecoder is one candidate in the ordered decode list.
type textDecoder struct {
	name   string
	decode func([]byte) (string, bool)
}

// textDecoders are tried in order; the first success wins. This is a
// best-effort heuristic for repositories with mixed encodings, not a
// byte-exact content-type detector; binary blobs are rejected before the
// list is consulted.
var textDecoders = []textDecoder{
	{"utf-8", func(b []byte) (string, bool) {
		if !utf8.Valid(b) {
			return "", false
		}
		return string(b), true
	}},
	{"latin-1", func(b []byte) (string, bool) {
		s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
		if err != nil {
			return "", false
		}
		return string(s), true
	}},
}

// decodeText decodes raw file bytes using the ordered candidate list and
// returns the text plus the name of the decoder that succeeded. Content
// containing NUL bytes is treated as binary and rejected outright.
func decodeText(path string, raw []byte) (string, string, error) {
	if bytes.IndexByte(raw, 0) >= 0 {
		return "", "", DecodeError{Path: path}
	}
	for _, d := range textDecoders {
		if s, ok := d.decode(raw); ok {
			return s, d.name, nil
		}
	}
	return "", "", DecodeError{Path: path}
}
