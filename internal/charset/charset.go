// Package charset maps encoding names to golang.org/x/text encoders and
// converts text between them and UTF-8.
package charset

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// UTF8 is the default encoding name.
const UTF8 = "UTF-8"

// Lookup returns the encoding registered under name in the WHATWG index.
func Lookup(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// IsUTF8 reports whether name refers to UTF-8.
func IsUTF8(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8", "unicode-1-1-utf-8":
		return true
	}
	enc, err := htmlindex.Get(name)
	return err == nil && enc == unicode.UTF8
}

// Decode converts b from the named encoding to a UTF-8 string.
func Decode(name string, b []byte) (string, error) {
	if IsUTF8(name) {
		return string(b), nil
	}
	enc, err := Lookup(name)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(out), nil
}

// Encode converts s to the named encoding. Runes the encoding cannot
// represent are an error.
func Encode(name, s string) ([]byte, error) {
	if IsUTF8(name) {
		return []byte(s), nil
	}
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return out, nil
}

// EncodeXML is Encode for XML character data: unrepresentable runes become
// numeric character references instead of failing. Unknown names fall back
// to UTF-8.
func EncodeXML(name, s string) []byte {
	if IsUTF8(name) {
		return []byte(s)
	}
	enc, err := Lookup(name)
	if err != nil {
		return []byte(s)
	}
	out, err := encoding.HTMLEscapeUnsupported(enc.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}
