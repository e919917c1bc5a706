package formats

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	errs "github.com/geoknoesis/ldproxy/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText converts data in the given charset to UTF-8. An empty charset
// means UTF-8.
func decodeText(data []byte, charset string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return nil, errs.Mark(fmt.Errorf("input is not valid UTF-8"), errs.ErrMalformedInput)
		}
		return data, nil
	case "iso-8859-1", "latin1", "latin-1":
		out := make([]byte, 0, len(data))
		for _, b := range data {
			out = utf8.AppendRune(out, rune(b))
		}
		return out, nil
	default:
		return nil, errs.Mark(fmt.Errorf("unsupported charset %q", charset), errs.ErrUnsupportedFormat)
	}
}
