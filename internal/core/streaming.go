package core

// streaming.go prepares raw upload streams for the CSV parsers.
//
// Files exported on Windows tooling typically start with a byte-order mark,
// and older scale firmware occasionally writes stray Latin-1 bytes. Both are
// handled on the fly without buffering the whole file:
//
//   - a UTF-8 BOM is dropped
//   - a UTF-16 BOM switches decoding to UTF-16 and is dropped
//   - invalid UTF-8 sequences become U+FFFD

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewCleanReader wraps r with BOM detection and UTF-8 repair.
func NewCleanReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
