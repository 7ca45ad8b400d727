package core

// streaming.go wraps upload readers before their bytes reach the decoder:
// the UTF-8 byte order mark that Windows tools prepend is dropped and the
// size limit is enforced while reading, so an oversized upload is rejected
// without buffering all of it.

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrFileTooLarge is returned when an upload exceeds the configured limit.
var ErrFileTooLarge = errors.New("file too large")

// ErrEmptyFile is returned for an upload with no bytes after the BOM.
var ErrEmptyFile = errors.New("empty file")

// ErrNotCSV is returned for an upload whose name lacks a .csv extension.
var ErrNotCSV = errors.New("file is not a csv upload")

// CheckCSVName accepts file names ending in .csv, in any case.
func CheckCSVName(name string) error {
	if !strings.EqualFold(filepath.Ext(strings.TrimSpace(name)), ".csv") {
		return fmt.Errorf("%q: %w", name, ErrNotCSV)
	}
	return nil
}

// BOMSkippingReader drops a leading UTF-8 BOM from the wrapped reader.
type BOMSkippingReader struct {
	r       *bufio.Reader
	checked bool
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{r: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (b *BOMSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			_, _ = b.r.Discard(len(utf8BOM))
		}
	}
	return b.r.Read(p)
}

// ReadUpload reads an upload body, skipping a BOM and failing with
// ErrFileTooLarge past maxSize bytes (maxSize <= 0 disables the limit) or
// ErrEmptyFile when nothing remains.
func ReadUpload(r io.Reader, maxSize int64) ([]byte, error) {
	src := io.Reader(NewBOMSkippingReader(r))
	if maxSize > 0 {
		src = io.LimitReader(src, maxSize+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxSize)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	return data, nil
}
