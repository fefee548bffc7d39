package classfile

import (
	"fmt"
	"unicode/utf16"
)

// decodeModifiedUTF8 decodes the modified UTF-8 encoding used by Utf8
// constant pool entries. It differs from standard UTF-8 in two ways: U+0000
// is encoded as the two-byte sequence 0xC0 0x80, and characters outside the
// basic multilingual plane are encoded as surrogate pairs of three-byte
// sequences. Decoding therefore goes through UTF-16 code units.
func decodeModifiedUTF8(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			if c == 0 {
				return "", fmt.Errorf("modified UTF-8 must not contain a raw NUL byte (position %d)", i)
			}
			units = append(units, uint16(c))
			i++
		case c&0xe0 == 0xc0:
			if i+1 >= len(b) || b[i+1]&0xc0 != 0x80 {
				return "", fmt.Errorf("truncated two-byte sequence at position %d", i)
			}
			units = append(units, uint16(c&0x1f)<<6|uint16(b[i+1]&0x3f))
			i += 2
		case c&0xf0 == 0xe0:
			if i+2 >= len(b) || b[i+1]&0xc0 != 0x80 || b[i+2]&0xc0 != 0x80 {
				return "", fmt.Errorf("truncated three-byte sequence at position %d", i)
			}
			units = append(units, uint16(c&0x0f)<<12|uint16(b[i+1]&0x3f)<<6|uint16(b[i+2]&0x3f))
			i += 3
		default:
			return "", fmt.Errorf("invalid leading byte 0x%02x at position %d", c, i)
		}
	}
	return string(utf16.Decode(units)), nil
}
