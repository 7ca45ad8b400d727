package core

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names the character set an upload was decoded with.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingLatin1      Encoding = "latin-1"
	EncodingWindows1252 Encoding = "windows-1252"
)

// ErrEncoding is returned when no supported character set fits the input.
var ErrEncoding = errors.New("encoding error: input is not valid utf-8, latin-1 or windows-1252")

type candidate struct {
	name    Encoding
	cmap    *charmap.Charmap
	rejects func(b byte) bool
}

// Latin-1 maps 0x80-0x9F to C1 control codes, which never appear in real
// text; treating them as a mismatch lets Windows-1252 claim those bytes.
// Windows-1252 leaves five bytes undefined.
var fallbacks = []candidate{
	{EncodingLatin1, charmap.ISO8859_1, func(b byte) bool { return b >= 0x80 && b <= 0x9F }},
	{EncodingWindows1252, charmap.Windows1252, func(b byte) bool {
		switch b {
		case 0x81, 0x8D, 0x8F, 0x90, 0x9D:
			return true
		}
		return false
	}},
}

// DecodeCSV converts raw upload bytes to text, trying strict UTF-8 first,
// then Latin-1, then Windows-1252. A leading UTF-8 BOM is dropped. The
// encoding that succeeded is returned so callers can surface it.
func DecodeCSV(data []byte) (string, Encoding, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if utf8.Valid(data) {
		return string(data), EncodingUTF8, nil
	}

	for _, c := range fallbacks {
		if containsByte(data, c.rejects) {
			continue
		}
		out, err := c.cmap.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		return string(out), c.name, nil
	}

	return "", "", fmt.Errorf("decode upload: %w", ErrEncoding)
}

func containsByte(data []byte, match func(byte) bool) bool {
	for _, b := range data {
		if match(b) {
			return true
		}
	}
	return false
}
