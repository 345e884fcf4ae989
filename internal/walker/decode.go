package walker

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decode turns raw entry bytes into text. A leading UTF-8 or UTF-16 byte
// order mark selects the encoding and is stripped; anything else is read as
// UTF-8. Invalid sequences are dropped and their byte count returned.
func decode(data []byte) (string, int) {
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		out = data
	}
	if utf8.Valid(out) {
		return string(out), 0
	}
	clean := strings.ToValidUTF8(string(out), "")
	return clean, len(out) - len(clean)
}
